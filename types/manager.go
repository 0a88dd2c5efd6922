package types

// Decider answers authorization requests
type Decider interface {
	// Authorize tells if the request is permitted.
	// A denial is reported as false, never as an error.
	Authorize(Context) (bool, error)
}

// Granter manages direct user-resource permissions
type Granter interface {
	// Grant gives permissions to a user on a resource, replacing any earlier grant
	Grant(userID string, res Resource, perms Permission, grantedBy string) error

	// Revoke removes the grant of a user on a resource.
	// Revoking an absent grant is not an error.
	Revoke(userID string, res Resource) error

	// Grants lists the direct grants of a user
	Grants(userID string) ([]Grant, error)

	// GrantsOn lists the direct grants on a resource
	GrantsOn(res Resource) ([]Grant, error)
}

// Owners manages resource ownership
type Owners interface {
	// SetOwner makes a user the owner of a resource, replacing any earlier owner
	SetOwner(res Resource, owner string) error

	// RemoveOwner clears the ownership of a resource.
	// Removing an absent owner is not an error.
	RemoveOwner(res Resource) error

	// Owner returns the owner of a resource, if any
	Owner(res Resource) (string, bool, error)
}

// Manager is the top level interface for end use.
// It decides if a user can act on a resource, with knowledge of role
// capabilities, direct grants, and resource ownership.
type Manager interface {
	Decider
	Granter
	Owners

	// Roles lists the roles known to the capability table
	Roles() []Role
}
