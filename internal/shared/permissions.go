package shared

// Well-known permission names granted through access keys.
const (
	PermReports   = "reports"
	PermAnalytics = "analytics"

	PermKeysView = "keys.view"
	PermKeysEdit = "keys.edit"
)

// CorePermissions lists the permissions shipped with the seed catalog.
func CorePermissions() []string {
	return []string{
		PermReports,
		PermAnalytics,
		PermKeysView,
		PermKeysEdit,
	}
}
