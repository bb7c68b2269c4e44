package authz

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTable() HierarchyTable {
	return BuildTable([]Role{
		{Name: RootRoleName, Order: 0},
		{Name: "Admin", Order: 1, Permissions: []string{"roles.edit", "staff.manage"}},
		{Name: "Moderator", Order: 2, Permissions: []string{"punishments.apply"}},
		{Name: "Helper", Order: 3, Permissions: []string{"tickets.view"}},
	})
}

func TestHasHigherAuthority(t *testing.T) {
	table := testTable()

	assert.True(t, HasHigherAuthority(table, RootRoleName, "Admin"))
	assert.True(t, HasHigherAuthority(table, "Admin", "Helper"))
	assert.False(t, HasHigherAuthority(table, "Helper", "Admin"))

	// Equal order is not strictly higher.
	assert.False(t, HasHigherAuthority(table, "Admin", "Admin"))
}

func TestHasHigherAuthorityFailsClosed(t *testing.T) {
	table := testTable()

	// An absent role never outranks anything, in either position.
	assert.False(t, HasHigherAuthority(table, "Ghost", "Helper"))
	assert.False(t, HasHigherAuthority(table, "Admin", "Ghost"))
	assert.False(t, HasHigherAuthority(table, "Ghost", "Ghost"))
}

func TestHasHigherOrEqualAuthority(t *testing.T) {
	table := testTable()

	assert.True(t, HasHigherOrEqualAuthority(table, "Admin", "Admin"))
	assert.True(t, HasHigherOrEqualAuthority(table, "Admin", "Helper"))
	assert.False(t, HasHigherOrEqualAuthority(table, "Helper", "Admin"))
	assert.False(t, HasHigherOrEqualAuthority(table, "Ghost", "Helper"))
	assert.False(t, HasHigherOrEqualAuthority(table, "Admin", "Ghost"))
}

func TestHasPermission(t *testing.T) {
	table := testTable()

	assert.True(t, HasPermission(table, "Admin", "roles.edit"))
	assert.False(t, HasPermission(table, "Helper", "roles.edit"))
	assert.False(t, HasPermission(table, "Ghost", "roles.edit"))

	// Root holds every permission implicitly, including ones nobody lists.
	assert.True(t, HasPermission(table, RootRoleName, "roles.edit"))
	assert.True(t, HasPermission(table, RootRoleName, "anything.at.all"))
}

func TestCanModifyRole(t *testing.T) {
	table := testTable()

	tests := []struct {
		name       string
		actorRole  string
		targetRole string
		newRole    string
		want       bool
	}{
		{"admin promotes helper to moderator", "Admin", "Helper", "Moderator", true},
		{"admin promotes helper up to admin", "Admin", "Helper", "Admin", true},
		{"admin cannot promote helper past itself", "Admin", "Helper", RootRoleName, false},
		{"helper cannot touch admin", "Helper", "Admin", "Moderator", false},
		{"equal ranks cannot modify each other", "Admin", "Admin", "Helper", false},
		{"root target is immutable", "Admin", RootRoleName, "Helper", false},
		{"root may assign root", RootRoleName, "Admin", RootRoleName, true},
		{"root demotes admin", RootRoleName, "Admin", "Helper", true},
		{"unknown actor denied", "Ghost", "Helper", "Moderator", false},
		{"unknown target denied", "Admin", "Ghost", "Helper", false},
		{"unknown new role denied", "Admin", "Helper", "Ghost", false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, CanModifyRole(table, tc.actorRole, tc.targetRole, tc.newRole))
		})
	}
}

func TestCanRemoveUser(t *testing.T) {
	table := testTable()

	assert.True(t, CanRemoveUser(table, "Admin", "Helper"))
	assert.True(t, CanRemoveUser(table, RootRoleName, "Admin"))
	assert.False(t, CanRemoveUser(table, "Helper", "Admin"))
	assert.False(t, CanRemoveUser(table, "Admin", "Admin"))
	assert.False(t, CanRemoveUser(table, "Admin", RootRoleName))
	assert.False(t, CanRemoveUser(table, "Ghost", "Helper"))
}

func TestCanLinkGameAccount(t *testing.T) {
	table := testTable()

	// Root acts for anyone.
	assert.True(t, CanLinkGameAccount(table, RootRoleName, "alice", "bob"))

	// Everyone else only for themselves, rank notwithstanding.
	assert.True(t, CanLinkGameAccount(table, "Admin", "alice", "alice"))
	assert.False(t, CanLinkGameAccount(table, "Admin", "alice", "bob"))
	assert.False(t, CanLinkGameAccount(table, "Helper", "carol", "bob"))

	// Empty identities never match.
	assert.False(t, CanLinkGameAccount(table, "Admin", "", ""))
	assert.False(t, CanLinkGameAccount(table, "Ghost", "alice", "alice"))
}

func TestCanManageGameAccount(t *testing.T) {
	table := testTable()

	assert.True(t, CanManageGameAccount(table, "Admin", "Helper"))
	assert.False(t, CanManageGameAccount(table, "Helper", "Admin"))
	assert.False(t, CanManageGameAccount(table, "Admin", "Admin"))
}

func TestCanReorderRoles(t *testing.T) {
	table := testTable()

	assert.True(t, CanReorderRoles(table, RootRoleName))
	assert.False(t, CanReorderRoles(table, "Admin"))
	assert.False(t, CanReorderRoles(table, "Ghost"))
}

func TestPartitionReorder(t *testing.T) {
	table := testTable()

	allowed, rejected := PartitionReorder(table, "Admin", []string{"Moderator", "Helper", RootRoleName, "Admin", "Ghost"})
	assert.Equal(t, []string{"Moderator", "Helper"}, allowed)
	assert.Equal(t, []string{RootRoleName, "Admin", "Ghost"}, rejected)
}

func TestPartitionReorderUnknownActor(t *testing.T) {
	table := testTable()

	requested := []string{"Helper", "Moderator"}
	allowed, rejected := PartitionReorder(table, "Ghost", requested)
	require.Empty(t, allowed)
	assert.Equal(t, requested, rejected)
}

func TestBuildTableEmptySnapshot(t *testing.T) {
	table := BuildTable(nil)
	require.Empty(t, table)

	// With no roles everything denies.
	assert.False(t, HasPermission(table, RootRoleName, "roles.edit"))
	assert.False(t, HasHigherAuthority(table, RootRoleName, "Admin"))
}
