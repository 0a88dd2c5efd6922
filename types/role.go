package types

import "sort"

// Role names a reusable bundle of capabilities assigned to users outside this engine
type Role string

// roles shipped with the default capability table
const (
	RoleAdmin      Role = "admin"
	RoleMaintainer Role = "maintainer"
	RoleDeveloper  Role = "developer"
	RoleViewer     Role = "viewer"
)

// RoleCapabilities maps each role to the permissions it holds per resource type.
// A role missing from the table contributes nothing to a decision.
type RoleCapabilities map[Role]map[ResourceType]Permission

// Roles lists the defined roles in lexical order
func (rc RoleCapabilities) Roles() []Role {
	roles := make([]Role, 0, len(rc))
	for r := range rc {
		roles = append(roles, r)
	}
	sort.Slice(roles, func(i, j int) bool { return roles[i] < roles[j] })
	return roles
}

// Defined tells if the table knows the role
func (rc RoleCapabilities) Defined(r Role) bool {
	_, ok := rc[r]
	return ok
}

// PermissionsOf returns the permissions the role holds on the resource type
func (rc RoleCapabilities) PermissionsOf(r Role, t ResourceType) Permission {
	caps, ok := rc[r]
	if !ok {
		return None
	}
	return caps[t]
}

// Clone deep-copies the table so callers can extend it without aliasing
func (rc RoleCapabilities) Clone() RoleCapabilities {
	out := make(RoleCapabilities, len(rc))
	for r, caps := range rc {
		cp := make(map[ResourceType]Permission, len(caps))
		for t, p := range caps {
			cp[t] = p
		}
		out[r] = cp
	}
	return out
}
