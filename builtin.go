package authz

import "github.com/neuralliquid/autopr-engine-sub002/types"

// content types developers and maintainers work on day to day
var contentTypes = []types.ResourceType{
	types.ResourceProject,
	types.ResourceRepository,
	types.ResourceWorkflow,
	types.ResourceTemplate,
}

// BuiltinRoles returns the role capability table used when WithRoles is
// not given. Each call returns a fresh copy, so callers may extend it
// before passing it back through WithRoles.
func BuiltinRoles() types.RoleCapabilities {
	admin := make(map[types.ResourceType]types.Permission)
	viewer := make(map[types.ResourceType]types.Permission)
	for _, t := range types.AllResourceTypes() {
		admin[t] = types.AllPermissions
		viewer[t] = types.Read
	}

	developer := map[types.ResourceType]types.Permission{
		types.ResourceUser:         types.Read,
		types.ResourceOrganization: types.Read,
		types.ResourceIntegration:  types.Read,
		types.ResourceConfig:       types.Read,
	}
	for _, t := range contentTypes {
		developer[t] = types.Read | types.Write | types.Create | types.Update
	}
	developer[types.ResourceWorkflow] |= types.Execute

	maintainer := make(map[types.ResourceType]types.Permission, len(developer))
	for t, p := range developer {
		maintainer[t] = p
	}
	for _, t := range contentTypes {
		maintainer[t] |= types.Delete
	}

	return types.RoleCapabilities{
		types.RoleAdmin:      admin,
		types.RoleMaintainer: maintainer,
		types.RoleDeveloper:  developer,
		types.RoleViewer:     viewer,
	}
}
