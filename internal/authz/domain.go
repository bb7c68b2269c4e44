package authz

// RootRoleName is the reserved name of the single immutable top-level role.
// Its order and permission set are never mutated through the policy gate.
const RootRoleName = "Super Admin"

// Role is a snapshot of a staff role used for authority decisions.
// Lower Order means higher authority.
type Role struct {
	Name        string
	Order       int
	Permissions []string
}

// HierarchyTable maps role names to their snapshot for one tenant.
// Lookups are O(1); insertion order is irrelevant.
type HierarchyTable map[string]Role

// BuildTable constructs a hierarchy table from a role snapshot.
func BuildTable(roles []Role) HierarchyTable {
	table := make(HierarchyTable, len(roles))
	for _, role := range roles {
		table[role.Name] = role
	}
	return table
}

// HasHigherAuthority reports whether role a strictly outranks role b.
// An absent role name never outranks anything.
func HasHigherAuthority(table HierarchyTable, a, b string) bool {
	ra, ok := table[a]
	if !ok {
		return false
	}
	rb, ok := table[b]
	if !ok {
		return false
	}
	return ra.Order < rb.Order
}

// HasHigherOrEqualAuthority reports whether role a ranks at least as high as b.
func HasHigherOrEqualAuthority(table HierarchyTable, a, b string) bool {
	ra, ok := table[a]
	if !ok {
		return false
	}
	rb, ok := table[b]
	if !ok {
		return false
	}
	return ra.Order <= rb.Order
}

// HasPermission reports whether the named role carries the permission.
// The root role implicitly holds every permission. Absent roles hold none.
func HasPermission(table HierarchyTable, roleName, perm string) bool {
	role, ok := table[roleName]
	if !ok {
		return false
	}
	if role.Name == RootRoleName {
		return true
	}
	for _, p := range role.Permissions {
		if p == perm {
			return true
		}
	}
	return false
}
