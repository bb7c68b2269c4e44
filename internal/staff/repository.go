package staff

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/modl-gg/panel-sub007/internal/platform/httpx"
)

// Repository provides PostgreSQL backed persistence for staff members.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// List returns all staff members for a tenant.
func (r *Repository) List(ctx context.Context, tenant string) ([]Member, error) {
	rows, err := r.pool.Query(ctx, `SELECT tenant, username, role_name, COALESCE(minecraft_uuid, ''), created_at, updated_at FROM staff_members WHERE tenant=$1 ORDER BY username`, tenant)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Member
	for rows.Next() {
		var m Member
		if err := rows.Scan(&m.Tenant, &m.Username, &m.RoleName, &m.MinecraftUUID, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Get fetches one member by username.
func (r *Repository) Get(ctx context.Context, tenant, username string) (Member, error) {
	var m Member
	err := r.pool.QueryRow(ctx, `SELECT tenant, username, role_name, COALESCE(minecraft_uuid, ''), created_at, updated_at FROM staff_members WHERE tenant=$1 AND username=$2`, tenant, username).
		Scan(&m.Tenant, &m.Username, &m.RoleName, &m.MinecraftUUID, &m.CreatedAt, &m.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Member{}, httpx.ErrNotFound
	}
	if err != nil {
		return Member{}, err
	}
	return m, nil
}

// SetRole updates a member's role.
func (r *Repository) SetRole(ctx context.Context, tenant, username, roleName string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE staff_members SET role_name=$3, updated_at=now() WHERE tenant=$1 AND username=$2`, tenant, username, roleName)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return httpx.ErrNotFound
	}
	return nil
}

// Remove deletes a member.
func (r *Repository) Remove(ctx context.Context, tenant, username string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM staff_members WHERE tenant=$1 AND username=$2`, tenant, username)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return httpx.ErrNotFound
	}
	return nil
}

// SetMinecraftUUID links a game account to a member.
func (r *Repository) SetMinecraftUUID(ctx context.Context, tenant, username, uuid string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE staff_members SET minecraft_uuid=$3, updated_at=now() WHERE tenant=$1 AND username=$2`, tenant, username, uuid)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return httpx.ErrNotFound
	}
	return nil
}
