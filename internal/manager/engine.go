// Package manager implements the authorization decision engine and the
// decorator layers composed around it: synchronization, decision caching,
// write-through persistence, metrics, and audit reporting.
package manager

import (
	"fmt"
	"time"

	"github.com/go-logr/logr"

	"github.com/neuralliquid/autopr-engine-sub002/types"
)

var _ types.Manager = (*engine)(nil)

// engine evaluates authorization requests against resource ownership, role
// capabilities, direct grants, and explicit permissions, in that order.
// The first rule granting the action wins; no rule granting it is a denial.
type engine struct {
	store store
	roles types.RoleCapabilities
	log   logr.Logger
}

// NewEngine creates the base authorization manager deciding against the
// given role capability table
func NewEngine(roles types.RoleCapabilities, log logr.Logger) types.Manager {
	return newEngine(newMemStore(), roles, log)
}

func newEngine(s store, roles types.RoleCapabilities, log logr.Logger) *engine {
	if roles == nil {
		roles = types.RoleCapabilities{}
	}
	return &engine{store: s, roles: roles, log: log}
}

// Authorize tells if the request is permitted.
// Validation errors are returned to the caller; failures inside the
// evaluation itself degrade to a denial, never to an error.
func (m *engine) Authorize(c types.Context) (allowed bool, err error) {
	if e := c.Validate(); e != nil {
		return false, e
	}

	defer func() {
		if r := recover(); r != nil {
			m.log.Error(fmt.Errorf("panic: %v", r), "authorization evaluation failed, denying",
				"user", c.UserID, "resource", c.Resource(), "action", c.Action)
			allowed = false
			err = nil
		}
	}()

	m.log.V(6).Info("authorize", "user", c.UserID, "resource", c.Resource(), "action", c.Action)

	res := c.Resource()

	owner, ok, e := m.store.Owner(res)
	if e != nil {
		m.log.Error(e, "owner lookup failed, denying", "user", c.UserID, "resource", res)
		return false, nil
	}
	if ok && owner == c.UserID {
		m.log.V(6).Info("allowed by ownership", "user", c.UserID, "resource", res)
		return true, nil
	}

	// a pinned primary role is consulted instead of the role list
	if c.UserRole != "" {
		if m.roleAllows(c.UserRole, c.ResourceType, c.Action) {
			return true, nil
		}
	} else {
		for _, role := range c.Roles {
			if m.roleAllows(role, c.ResourceType, c.Action) {
				return true, nil
			}
		}
	}

	g, ok, e := m.store.Grant(c.UserID, res)
	if e != nil {
		m.log.Error(e, "grant lookup failed, denying", "user", c.UserID, "resource", res)
		return false, nil
	}
	if ok && g.Permissions.Includes(c.Action) {
		return true, nil
	}

	if c.Explicit.Includes(c.Action) {
		return true, nil
	}

	return false, nil
}

func (m *engine) roleAllows(role types.Role, t types.ResourceType, action types.Permission) bool {
	return m.roles.PermissionsOf(role, t).Includes(action)
}

// Grant gives permissions to a user on a resource, replacing any earlier grant
func (m *engine) Grant(userID string, res types.Resource, perms types.Permission, grantedBy string) error {
	m.log.V(4).Info("grant", "user", userID, "resource", res, "permissions", perms, "granted by", grantedBy)

	if e := validateTarget(userID, res); e != nil {
		return e
	}
	if !perms.Valid() {
		return fmt.Errorf("%w: %q", types.ErrUnknownPermission, perms.String())
	}

	for _, warning := range suspiciousGrant(perms) {
		m.log.Info("suspicious grant", "warning", warning, "user", userID, "resource", res, "permissions", perms)
	}

	g := types.Grant{
		UserID:      userID,
		Resource:    res,
		Permissions: perms,
		GrantedBy:   grantedBy,
		GrantedAt:   time.Now(),
	}
	if e := m.store.SetGrant(g); e != nil {
		return fmt.Errorf("%w: set grant: %v", types.ErrStoreUnavailable, e)
	}
	return nil
}

// Revoke removes the grant of a user on a resource, absent is fine
func (m *engine) Revoke(userID string, res types.Resource) error {
	m.log.V(4).Info("revoke", "user", userID, "resource", res)

	if e := validateTarget(userID, res); e != nil {
		return e
	}
	if e := m.store.DeleteGrant(userID, res); e != nil {
		return fmt.Errorf("%w: delete grant: %v", types.ErrStoreUnavailable, e)
	}
	return nil
}

// Grants lists the direct grants of a user
func (m *engine) Grants(userID string) ([]types.Grant, error) {
	grants, e := m.store.GrantsFor(userID)
	if e != nil {
		return nil, fmt.Errorf("%w: list grants: %v", types.ErrStoreUnavailable, e)
	}
	return grants, nil
}

// GrantsOn lists the direct grants on a resource
func (m *engine) GrantsOn(res types.Resource) ([]types.Grant, error) {
	grants, e := m.store.GrantsOn(res)
	if e != nil {
		return nil, fmt.Errorf("%w: list grants: %v", types.ErrStoreUnavailable, e)
	}
	return grants, nil
}

// SetOwner makes a user the owner of a resource, replacing any earlier owner
func (m *engine) SetOwner(res types.Resource, owner string) error {
	m.log.V(4).Info("set owner", "resource", res, "owner", owner)

	if e := validateTarget(owner, res); e != nil {
		return e
	}
	if e := m.store.SetOwner(res, owner); e != nil {
		return fmt.Errorf("%w: set owner: %v", types.ErrStoreUnavailable, e)
	}
	return nil
}

// RemoveOwner clears the ownership of a resource, absent is fine
func (m *engine) RemoveOwner(res types.Resource) error {
	m.log.V(4).Info("remove owner", "resource", res)

	if res.ID == "" || !res.Type.Valid() {
		return fmt.Errorf("%w: resource %s", types.ErrInvalidContext, res)
	}
	if e := m.store.DeleteOwner(res); e != nil {
		return fmt.Errorf("%w: delete owner: %v", types.ErrStoreUnavailable, e)
	}
	return nil
}

// Owner returns the owner of a resource, if any
func (m *engine) Owner(res types.Resource) (string, bool, error) {
	owner, ok, e := m.store.Owner(res)
	if e != nil {
		return "", false, fmt.Errorf("%w: owner lookup: %v", types.ErrStoreUnavailable, e)
	}
	return owner, ok, nil
}

// Roles lists the roles known to the capability table
func (m *engine) Roles() []types.Role {
	return m.roles.Roles()
}

// applyChange folds an externally persisted grant change into the store,
// keeping the persisted timestamps instead of minting new ones
func (m *engine) applyChange(change types.GrantChange) error {
	switch change.Method {
	case types.PersistInsert, types.PersistUpdate:
		if e := m.store.SetGrant(change.Grant); e != nil {
			return fmt.Errorf("%w: apply grant: %v", types.ErrStoreUnavailable, e)
		}
		return nil
	case types.PersistDelete:
		if e := m.store.DeleteGrant(change.UserID, change.Resource); e != nil {
			return fmt.Errorf("%w: apply revoke: %v", types.ErrStoreUnavailable, e)
		}
		return nil
	}
	return fmt.Errorf("%w: %s", types.ErrUnsupportedChange, change.Method)
}

func validateTarget(userID string, res types.Resource) error {
	if userID == "" {
		return fmt.Errorf("%w: empty user id", types.ErrInvalidContext)
	}
	if res.ID == "" {
		return fmt.Errorf("%w: empty resource id", types.ErrInvalidContext)
	}
	if !res.Type.Valid() {
		return fmt.Errorf("%w: %q", types.ErrUnknownResourceType, string(res.Type))
	}
	return nil
}
