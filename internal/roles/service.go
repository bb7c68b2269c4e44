package roles

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/modl-gg/panel-sub007/internal/authz"
	"github.com/modl-gg/panel-sub007/internal/platform/httpx"
)

// RepositoryPort defines data access methods for roles.
type RepositoryPort interface {
	List(ctx context.Context, tenant string) ([]Role, error)
	Get(ctx context.Context, tenant, name string) (Role, error)
	Create(ctx context.Context, role Role) error
	Update(ctx context.Context, role Role) error
	Delete(ctx context.Context, tenant, name string) error
	SetOrder(ctx context.Context, tenant, name string, order int) error
}

// Service handles role management, enforcing the hierarchy policy gate on
// every mutation and invalidating the cached hierarchy afterwards.
type Service struct {
	repo  RepositoryPort
	cache *authz.Cache
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, cache *authz.Cache) *Service {
	return &Service{repo: repo, cache: cache}
}

// List returns all roles for a tenant.
func (s *Service) List(ctx context.Context, tenant string) ([]Role, error) {
	return s.repo.List(ctx, tenant)
}

// Create inserts a new role below the actor's authority.
func (s *Service) Create(ctx context.Context, tenant, actorRole string, role Role) error {
	role.Name = strings.TrimSpace(role.Name)
	if role.Name == "" {
		return fmt.Errorf("%w: role name required", httpx.ErrValidation)
	}
	if role.Name == authz.RootRoleName {
		return fmt.Errorf("%w: cannot create the root role", httpx.ErrForbidden)
	}
	table := s.cache.Get(ctx, tenant)
	actor, ok := table[actorRole]
	if !ok || role.Order <= actor.Order {
		return fmt.Errorf("%w: new role must rank below your own", httpx.ErrForbidden)
	}
	role.Tenant = tenant
	if err := s.repo.Create(ctx, role); err != nil {
		return err
	}
	s.cache.Clear(tenant)
	return nil
}

// Update changes a role's rank and permissions. The root role and the
// actor's own role are off limits, and the result must stay below the actor.
func (s *Service) Update(ctx context.Context, tenant, actorRole string, role Role) error {
	if role.Name == authz.RootRoleName {
		return fmt.Errorf("%w: the root role is immutable", httpx.ErrForbidden)
	}
	if role.Name == actorRole {
		return fmt.Errorf("%w: cannot modify your own role", httpx.ErrForbidden)
	}
	table := s.cache.Get(ctx, tenant)
	if !authz.HasHigherAuthority(table, actorRole, role.Name) {
		return fmt.Errorf("%w: insufficient authority over %q", httpx.ErrForbidden, role.Name)
	}
	actor, ok := table[actorRole]
	if !ok || role.Order <= actor.Order {
		return fmt.Errorf("%w: role must stay below your own rank", httpx.ErrForbidden)
	}
	role.Tenant = tenant
	if err := s.repo.Update(ctx, role); err != nil {
		return err
	}
	s.cache.Clear(tenant)
	return nil
}

// Delete removes a role strictly below the actor's authority.
func (s *Service) Delete(ctx context.Context, tenant, actorRole, name string) error {
	if name == authz.RootRoleName {
		return fmt.Errorf("%w: the root role is immutable", httpx.ErrForbidden)
	}
	table := s.cache.Get(ctx, tenant)
	if !authz.HasHigherAuthority(table, actorRole, name) {
		return fmt.Errorf("%w: insufficient authority over %q", httpx.ErrForbidden, name)
	}
	if err := s.repo.Delete(ctx, tenant, name); err != nil {
		return err
	}
	s.cache.Clear(tenant)
	return nil
}

// ReorderEntry pairs a role with its requested rank.
type ReorderEntry struct {
	Name  string
	Order int
}

// Reorder applies the requested ranks to the roles the actor may move and
// reports the names that were rejected. Root-role actors may move everything
// except the root role itself.
func (s *Service) Reorder(ctx context.Context, tenant, actorRole string, entries []ReorderEntry) (rejected []string, err error) {
	table := s.cache.Get(ctx, tenant)
	names := make([]string, len(entries))
	byName := make(map[string]int, len(entries))
	for i, e := range entries {
		names[i] = e.Name
		byName[e.Name] = e.Order
	}

	var allowed []string
	if authz.CanReorderRoles(table, actorRole) {
		for _, name := range names {
			if name == authz.RootRoleName {
				rejected = append(rejected, name)
				continue
			}
			allowed = append(allowed, name)
		}
	} else {
		allowed, rejected = authz.PartitionReorder(table, actorRole, names)
	}

	for _, name := range allowed {
		if err := s.repo.SetOrder(ctx, tenant, name, byName[name]); err != nil {
			if errors.Is(err, httpx.ErrNotFound) {
				rejected = append(rejected, name)
				continue
			}
			return rejected, err
		}
	}
	if len(allowed) > 0 {
		s.cache.Clear(tenant)
	}
	return rejected, nil
}
