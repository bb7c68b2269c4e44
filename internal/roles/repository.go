package roles

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/modl-gg/panel-sub007/internal/authz"
	"github.com/modl-gg/panel-sub007/internal/platform/httpx"
)

// Repository provides PostgreSQL backed persistence for roles.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// List returns all roles for a tenant ordered by rank.
func (r *Repository) List(ctx context.Context, tenant string) ([]Role, error) {
	rows, err := r.pool.Query(ctx, `SELECT tenant, name, ord, permissions, created_at, updated_at FROM roles WHERE tenant=$1 ORDER BY ord, name`, tenant)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Role
	for rows.Next() {
		var role Role
		if err := rows.Scan(&role.Tenant, &role.Name, &role.Order, &role.Permissions, &role.CreatedAt, &role.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, role)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Get fetches one role by name.
func (r *Repository) Get(ctx context.Context, tenant, name string) (Role, error) {
	var role Role
	err := r.pool.QueryRow(ctx, `SELECT tenant, name, ord, permissions, created_at, updated_at FROM roles WHERE tenant=$1 AND name=$2`, tenant, name).
		Scan(&role.Tenant, &role.Name, &role.Order, &role.Permissions, &role.CreatedAt, &role.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Role{}, httpx.ErrNotFound
	}
	if err != nil {
		return Role{}, err
	}
	return role, nil
}

// Create inserts a new role. Duplicate names map to httpx.ErrDuplicate.
func (r *Repository) Create(ctx context.Context, role Role) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO roles (tenant, name, ord, permissions, created_at, updated_at) VALUES ($1, $2, $3, $4, now(), now())`,
		role.Tenant, role.Name, role.Order, role.Permissions)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return httpx.ErrDuplicate
		}
		return err
	}
	return nil
}

// Update replaces a role's rank and permission set.
func (r *Repository) Update(ctx context.Context, role Role) error {
	tag, err := r.pool.Exec(ctx, `UPDATE roles SET ord=$3, permissions=$4, updated_at=now() WHERE tenant=$1 AND name=$2`,
		role.Tenant, role.Name, role.Order, role.Permissions)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return httpx.ErrNotFound
	}
	return nil
}

// Delete removes a role by name.
func (r *Repository) Delete(ctx context.Context, tenant, name string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM roles WHERE tenant=$1 AND name=$2`, tenant, name)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return httpx.ErrNotFound
	}
	return nil
}

// SetOrder updates a single role's rank. Used by bulk reorder.
func (r *Repository) SetOrder(ctx context.Context, tenant, name string, order int) error {
	tag, err := r.pool.Exec(ctx, `UPDATE roles SET ord=$3, updated_at=now() WHERE tenant=$1 AND name=$2`, tenant, name, order)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return httpx.ErrNotFound
	}
	return nil
}

// RoleSnapshot implements authz.RoleSource so the hierarchy cache can rebuild
// tables straight from the backing store.
func (r *Repository) RoleSnapshot(ctx context.Context, tenant string) ([]authz.Role, error) {
	list, err := r.List(ctx, tenant)
	if err != nil {
		return nil, err
	}
	snapshot := make([]authz.Role, 0, len(list))
	for _, role := range list {
		snapshot = append(snapshot, authz.Role{
			Name:        role.Name,
			Order:       role.Order,
			Permissions: role.Permissions,
		})
	}
	return snapshot, nil
}

var _ authz.RoleSource = (*Repository)(nil)
