package shared

// Core panel permissions.
const (
	PermTicketsView = "tickets.view"
	PermTicketsEdit = "tickets.edit"

	PermPunishmentsView  = "punishments.view"
	PermPunishmentsApply = "punishments.apply"

	PermStaffView   = "staff.view"
	PermStaffManage = "staff.manage"

	PermRolesView = "roles.view"
	PermRolesEdit = "roles.edit"

	PermMigrationRun = "migration.run"
)

// CoreScopes lists all permissions known to the panel.
func CoreScopes() []string {
	return []string{
		PermTicketsView,
		PermTicketsEdit,
		PermPunishmentsView,
		PermPunishmentsApply,
		PermStaffView,
		PermStaffManage,
		PermRolesView,
		PermRolesEdit,
		PermMigrationRun,
	}
}
