package staff

import (
	"context"
	"fmt"

	"github.com/modl-gg/panel-sub007/internal/authz"
	"github.com/modl-gg/panel-sub007/internal/platform/httpx"
	"github.com/modl-gg/panel-sub007/internal/shared"
)

// RepositoryPort defines data access methods for staff members.
type RepositoryPort interface {
	List(ctx context.Context, tenant string) ([]Member, error)
	Get(ctx context.Context, tenant, username string) (Member, error)
	SetRole(ctx context.Context, tenant, username, roleName string) error
	Remove(ctx context.Context, tenant, username string) error
	SetMinecraftUUID(ctx context.Context, tenant, username, uuid string) error
}

// Service composes the hierarchy policy gate over staff mutations.
type Service struct {
	repo  RepositoryPort
	cache *authz.Cache
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, cache *authz.Cache) *Service {
	return &Service{repo: repo, cache: cache}
}

// List returns all staff members for a tenant.
func (s *Service) List(ctx context.Context, tenant string) ([]Member, error) {
	return s.repo.List(ctx, tenant)
}

// ChangeRole assigns a new role to the target member, gated by CanModifyRole.
func (s *Service) ChangeRole(ctx context.Context, actor *shared.Actor, targetUsername, newRole string) error {
	target, err := s.repo.Get(ctx, actor.Tenant, targetUsername)
	if err != nil {
		return err
	}
	table := s.cache.Get(ctx, actor.Tenant)
	// The gate fails closed on unknown names, so distinguish the
	// validation case before asking it for the authority decision.
	if _, ok := table[newRole]; !ok {
		return fmt.Errorf("%w: unknown role %q", httpx.ErrValidation, newRole)
	}
	if !authz.CanModifyRole(table, actor.RoleName, target.RoleName, newRole) {
		return fmt.Errorf("%w: cannot change %s to role %q", httpx.ErrForbidden, targetUsername, newRole)
	}
	return s.repo.SetRole(ctx, actor.Tenant, targetUsername, newRole)
}

// Remove deletes the target member, gated by CanRemoveUser.
func (s *Service) Remove(ctx context.Context, actor *shared.Actor, targetUsername string) error {
	target, err := s.repo.Get(ctx, actor.Tenant, targetUsername)
	if err != nil {
		return err
	}
	table := s.cache.Get(ctx, actor.Tenant)
	if !authz.CanRemoveUser(table, actor.RoleName, target.RoleName) {
		return fmt.Errorf("%w: cannot remove %s", httpx.ErrForbidden, targetUsername)
	}
	return s.repo.Remove(ctx, actor.Tenant, targetUsername)
}

// LinkGameAccount sets the target member's game account, gated by
// CanLinkGameAccount: root-role actors may relink anyone, everyone else only
// themselves.
func (s *Service) LinkGameAccount(ctx context.Context, actor *shared.Actor, targetUsername, minecraftUUID string) error {
	if _, err := s.repo.Get(ctx, actor.Tenant, targetUsername); err != nil {
		return err
	}
	table := s.cache.Get(ctx, actor.Tenant)
	if !authz.CanLinkGameAccount(table, actor.RoleName, actor.Username, targetUsername) {
		return fmt.Errorf("%w: cannot link game account for %s", httpx.ErrForbidden, targetUsername)
	}
	return s.repo.SetMinecraftUUID(ctx, actor.Tenant, targetUsername, minecraftUUID)
}
