package staff

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modl-gg/panel-sub007/internal/authz"
	"github.com/modl-gg/panel-sub007/internal/platform/httpx"
	"github.com/modl-gg/panel-sub007/internal/shared"
)

type mockRepo struct {
	members map[string]Member // username -> member, single tenant
}

func newMockRepo(members ...Member) *mockRepo {
	m := &mockRepo{members: make(map[string]Member)}
	for _, mem := range members {
		m.members[mem.Username] = mem
	}
	return m
}

func (m *mockRepo) List(_ context.Context, tenant string) ([]Member, error) {
	out := make([]Member, 0, len(m.members))
	for _, mem := range m.members {
		out = append(out, mem)
	}
	return out, nil
}

func (m *mockRepo) Get(_ context.Context, tenant, username string) (Member, error) {
	mem, ok := m.members[username]
	if !ok {
		return Member{}, httpx.ErrNotFound
	}
	return mem, nil
}

func (m *mockRepo) SetRole(_ context.Context, tenant, username, roleName string) error {
	mem, ok := m.members[username]
	if !ok {
		return httpx.ErrNotFound
	}
	mem.RoleName = roleName
	m.members[username] = mem
	return nil
}

func (m *mockRepo) Remove(_ context.Context, tenant, username string) error {
	if _, ok := m.members[username]; !ok {
		return httpx.ErrNotFound
	}
	delete(m.members, username)
	return nil
}

func (m *mockRepo) SetMinecraftUUID(_ context.Context, tenant, username, uuid string) error {
	mem, ok := m.members[username]
	if !ok {
		return httpx.ErrNotFound
	}
	mem.MinecraftUUID = uuid
	m.members[username] = mem
	return nil
}

type stubRoleSource struct{ roles []authz.Role }

func (s stubRoleSource) RoleSnapshot(context.Context, string) ([]authz.Role, error) {
	return s.roles, nil
}

func newStaffService(t *testing.T) (*Service, *mockRepo) {
	t.Helper()
	repo := newMockRepo(
		Member{Tenant: "acme", Username: "root", RoleName: authz.RootRoleName},
		Member{Tenant: "acme", Username: "alice", RoleName: "Admin"},
		Member{Tenant: "acme", Username: "bob", RoleName: "Moderator"},
		Member{Tenant: "acme", Username: "carol", RoleName: "Helper"},
	)
	source := stubRoleSource{roles: []authz.Role{
		{Name: authz.RootRoleName, Order: 0},
		{Name: "Admin", Order: 1},
		{Name: "Moderator", Order: 2},
		{Name: "Helper", Order: 3},
	}}
	cache := authz.NewCache(source, time.Minute, slog.Default())
	return NewService(repo, cache), repo
}

func actor(username, role string) *shared.Actor {
	return &shared.Actor{Tenant: "acme", Username: username, RoleName: role}
}

func TestChangeRole(t *testing.T) {
	svc, repo := newStaffService(t)
	ctx := context.Background()

	err := svc.ChangeRole(ctx, actor("alice", "Admin"), "carol", "Moderator")
	require.NoError(t, err)
	assert.Equal(t, "Moderator", repo.members["carol"].RoleName)
}

func TestChangeRoleUpToActorRank(t *testing.T) {
	svc, repo := newStaffService(t)

	// Promoting up to the actor's own rank is allowed, past it is not.
	err := svc.ChangeRole(context.Background(), actor("alice", "Admin"), "carol", "Admin")
	require.NoError(t, err)
	assert.Equal(t, "Admin", repo.members["carol"].RoleName)
}

func TestChangeRoleDenied(t *testing.T) {
	svc, repo := newStaffService(t)
	ctx := context.Background()

	// No authority over a peer.
	err := svc.ChangeRole(ctx, actor("bob", "Moderator"), "alice", "Helper")
	assert.ErrorIs(t, err, httpx.ErrForbidden)

	// The root member is untouchable.
	err = svc.ChangeRole(ctx, actor("alice", "Admin"), "root", "Helper")
	assert.ErrorIs(t, err, httpx.ErrForbidden)

	// Only root may hand out the root role.
	err = svc.ChangeRole(ctx, actor("alice", "Admin"), "carol", authz.RootRoleName)
	assert.ErrorIs(t, err, httpx.ErrForbidden)

	assert.Equal(t, "Admin", repo.members["alice"].RoleName)
	assert.Equal(t, "Helper", repo.members["carol"].RoleName)
}

func TestChangeRoleUnknownNewRole(t *testing.T) {
	svc, _ := newStaffService(t)

	err := svc.ChangeRole(context.Background(), actor("root", authz.RootRoleName), "carol", "Ghost")
	assert.ErrorIs(t, err, httpx.ErrValidation)
}

func TestChangeRoleUnknownTarget(t *testing.T) {
	svc, _ := newStaffService(t)

	err := svc.ChangeRole(context.Background(), actor("alice", "Admin"), "nobody", "Helper")
	assert.ErrorIs(t, err, httpx.ErrNotFound)
}

func TestRemove(t *testing.T) {
	svc, repo := newStaffService(t)
	ctx := context.Background()

	require.NoError(t, svc.Remove(ctx, actor("alice", "Admin"), "carol"))
	assert.NotContains(t, repo.members, "carol")

	// Peers and root stay.
	assert.ErrorIs(t, svc.Remove(ctx, actor("bob", "Moderator"), "alice"), httpx.ErrForbidden)
	assert.ErrorIs(t, svc.Remove(ctx, actor("alice", "Admin"), "root"), httpx.ErrForbidden)
}

func TestLinkGameAccountSelf(t *testing.T) {
	svc, repo := newStaffService(t)
	ctx := context.Background()

	err := svc.LinkGameAccount(ctx, actor("bob", "Moderator"), "bob", "069a79f4-44e9-4726-a5be-fca90e38aaf5")
	require.NoError(t, err)
	assert.Equal(t, "069a79f4-44e9-4726-a5be-fca90e38aaf5", repo.members["bob"].MinecraftUUID)
}

func TestLinkGameAccountOthersDenied(t *testing.T) {
	svc, repo := newStaffService(t)

	// Rank does not matter; only root may relink someone else.
	err := svc.LinkGameAccount(context.Background(), actor("alice", "Admin"), "carol", "069a79f4-44e9-4726-a5be-fca90e38aaf5")
	assert.ErrorIs(t, err, httpx.ErrForbidden)
	assert.Empty(t, repo.members["carol"].MinecraftUUID)
}

func TestLinkGameAccountRootActsForAnyone(t *testing.T) {
	svc, repo := newStaffService(t)

	err := svc.LinkGameAccount(context.Background(), actor("root", authz.RootRoleName), "carol", "069a79f4-44e9-4726-a5be-fca90e38aaf5")
	require.NoError(t, err)
	assert.NotEmpty(t, repo.members["carol"].MinecraftUUID)
}
