package authz

// Policy gate decisions. Every function is pure and fail-closed: a role name
// missing from the table always yields a denial, never an error. Callers in
// HTTP handlers and UI layers branch on the boolean directly.

// CanModifyRole reports whether an actor may change target's role to newRole.
// The root role can never be the target and actors cannot retarget their own
// role. The actor must strictly outrank the target's current role and rank at
// least as high as the new role, so an Admin may promote a Helper up to Admin
// but never past itself. Assigning the root role requires already holding it.
func CanModifyRole(table HierarchyTable, actorRole, targetRole, newRole string) bool {
	if targetRole == RootRoleName {
		return false
	}
	if actorRole == targetRole {
		return false
	}
	if newRole == RootRoleName && actorRole != RootRoleName {
		return false
	}
	if !HasHigherAuthority(table, actorRole, targetRole) {
		return false
	}
	return HasHigherOrEqualAuthority(table, actorRole, newRole)
}

// CanRemoveUser reports whether an actor may remove a member holding
// targetRole. Root-role members and the actor's own role are protected.
func CanRemoveUser(table HierarchyTable, actorRole, targetRole string) bool {
	if targetRole == RootRoleName {
		return false
	}
	if actorRole == targetRole {
		return false
	}
	return HasHigherAuthority(table, actorRole, targetRole)
}

// CanLinkGameAccount reports whether an actor may (re)link a game account for
// the member identified by targetID. Root-role actors may act for anyone;
// everyone else only for their own identity, regardless of comparative
// authority.
func CanLinkGameAccount(table HierarchyTable, actorRole, actorID, targetID string) bool {
	role, ok := table[actorRole]
	if !ok {
		return false
	}
	if role.Name == RootRoleName {
		return true
	}
	return actorID != "" && actorID == targetID
}

// CanManageGameAccount is the ordinal-only variant: an actor may act on a
// member's game account when it strictly outranks the member's role.
func CanManageGameAccount(table HierarchyTable, actorRole, targetRole string) bool {
	return HasHigherAuthority(table, actorRole, targetRole)
}

// CanReorderRoles reports whether the actor may reorder the whole role list.
// Only the root role may.
func CanReorderRoles(table HierarchyTable, actorRole string) bool {
	role, ok := table[actorRole]
	if !ok {
		return false
	}
	return role.Name == RootRoleName
}

// PartitionReorder splits a requested reorder set into roles the actor may
// move and roles it may not. Movable roles are those strictly below the
// actor's authority; the root role is never movable. An unknown actor moves
// nothing.
func PartitionReorder(table HierarchyTable, actorRole string, requested []string) (allowed, rejected []string) {
	if _, ok := table[actorRole]; !ok {
		return nil, append([]string(nil), requested...)
	}
	for _, name := range requested {
		if name != RootRoleName && HasHigherAuthority(table, actorRole, name) {
			allowed = append(allowed, name)
			continue
		}
		rejected = append(rejected, name)
	}
	return allowed, rejected
}
