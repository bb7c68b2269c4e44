package roles

import "time"

// Role represents a staff role for management. Order is the ordinal
// authority rank: lower values outrank higher ones.
type Role struct {
	Tenant      string
	Name        string
	Order       int
	Permissions []string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
