package manager

import "github.com/neuralliquid/autopr-engine-sub002/types"

// suspiciousGrant flags permission combinations that usually indicate a
// mistake in the request. The warnings are advisory: grants are applied
// as asked, the operator just gets told.
func suspiciousGrant(perms types.Permission) []string {
	var warnings []string

	if perms.Includes(types.Delete) && !perms.Includes(types.Update) {
		warnings = append(warnings, "delete granted without update")
	}
	if perms.Includes(types.Update) && !perms.Includes(types.Read) {
		warnings = append(warnings, "update granted without read")
	}
	if perms.Includes(types.Admin) && !perms.Includes(types.Read|types.Write) {
		warnings = append(warnings, "admin granted without read and write")
	}
	if perms.Includes(types.Manage) && !perms.Includes(types.Admin) {
		warnings = append(warnings, "manage granted without admin")
	}

	return warnings
}
