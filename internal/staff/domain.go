package staff

import "time"

// Member represents a staff account on a tenant's panel.
type Member struct {
	Tenant        string
	Username      string
	RoleName      string
	MinecraftUUID string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
