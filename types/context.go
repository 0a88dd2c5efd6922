package types

import "fmt"

// Context carries one authorization request through the decision layers.
// It is built once, validated, and never mutated afterwards.
type Context struct {
	// UserID identifies the requesting user, never empty
	UserID string
	// Roles are all roles assigned to the user
	Roles []Role
	// UserRole is the primary role of the user, checked instead of Roles when set
	UserRole Role

	// ResourceType and ResourceID name the object under access
	ResourceType ResourceType
	ResourceID   string

	// Action is the permission the request needs, a single permission or a union
	Action Permission

	// Explicit are caller-asserted permissions consulted after every other rule
	Explicit Permission

	// Extra carries free-form request metadata for audit trails, never for decisions
	Extra map[string]any
}

// ContextOption sets optional fields of a Context under construction
type ContextOption func(*Context)

// WithRoles sets all roles assigned to the user
func WithRoles(roles ...Role) ContextOption {
	return func(c *Context) {
		c.Roles = roles
	}
}

// WithUserRole sets the primary role of the user
func WithUserRole(r Role) ContextOption {
	return func(c *Context) {
		c.UserRole = r
	}
}

// WithExplicit asserts permissions the caller already holds
func WithExplicit(p Permission) ContextOption {
	return func(c *Context) {
		c.Explicit = p
	}
}

// WithExtra attaches one metadata entry to the request
func WithExtra(key string, value any) ContextOption {
	return func(c *Context) {
		if c.Extra == nil {
			c.Extra = make(map[string]any)
		}
		c.Extra[key] = value
	}
}

// WithMetadata attaches a whole metadata map to the request
func WithMetadata(extra map[string]any) ContextOption {
	return func(c *Context) {
		if len(extra) == 0 {
			return
		}
		if c.Extra == nil {
			c.Extra = make(map[string]any, len(extra))
		}
		for k, v := range extra {
			c.Extra[k] = v
		}
	}
}

// NewContext builds and validates an authorization request
func NewContext(userID string, t ResourceType, resourceID string, action Permission, opts ...ContextOption) (Context, error) {
	c := Context{
		UserID:       userID,
		ResourceType: t,
		ResourceID:   resourceID,
		Action:       action,
	}
	for _, opt := range opts {
		opt(&c)
	}

	if e := c.Validate(); e != nil {
		return Context{}, e
	}
	return c, nil
}

// Validate checks the request identifies a user, a resource, and a known action
func (c Context) Validate() error {
	if c.UserID == "" {
		return fmt.Errorf("%w: empty user id", ErrInvalidContext)
	}
	if c.ResourceID == "" {
		return fmt.Errorf("%w: empty resource id", ErrInvalidContext)
	}
	if !c.ResourceType.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownResourceType, string(c.ResourceType))
	}
	if !c.Action.Valid() {
		return fmt.Errorf("%w: action %q", ErrUnknownPermission, c.Action.String())
	}
	if c.Explicit != None && !c.Explicit.IsIn(AllPermissions) {
		return fmt.Errorf("%w: explicit %q", ErrUnknownPermission, c.Explicit.String())
	}
	return nil
}

// Resource returns the resource under access
func (c Context) Resource() Resource {
	return Resource{Type: c.ResourceType, ID: c.ResourceID}
}
