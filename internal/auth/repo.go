package auth

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/modl-gg/panel-sub007/internal/shared"
)

// Repository defines persistence operations for the auth module.
type Repository interface {
	FindKey(ctx context.Context, tenant, keyID string) (*APIKey, error)
}

// PGRepository implements Repository using PostgreSQL. The role name is
// joined from the staff member the key acts as.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// FindKey fetches an active API key by tenant and key ID.
func (r *PGRepository) FindKey(ctx context.Context, tenant, keyID string) (*APIKey, error) {
	const query = `
		SELECT k.tenant, k.key_id, k.secret_hash, k.username, s.role_name, k.is_active, k.created_at
		FROM api_keys k
		JOIN staff_members s ON s.tenant = k.tenant AND s.username = k.username
		WHERE k.tenant = $1 AND k.key_id = $2 AND k.is_active`
	var key APIKey
	err := r.pool.QueryRow(ctx, query, tenant, keyID).
		Scan(&key.Tenant, &key.KeyID, &key.SecretHash, &key.Username, &key.RoleName, &key.IsActive, &key.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, shared.ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	return &key, nil
}

var _ Repository = (*PGRepository)(nil)
