package auth

import "time"

// APIKey is a tenant credential acting as a staff member. Only the bcrypt
// hash of the key secret is stored.
type APIKey struct {
	Tenant     string
	KeyID      string
	SecretHash string
	Username   string
	RoleName   string
	IsActive   bool
	CreatedAt  time.Time
}
