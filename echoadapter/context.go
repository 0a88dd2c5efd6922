package echoadapter

import (
	"fmt"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/neuralliquid/autopr-engine-sub002/types"
)

// Context keys used to hand identity to the authorization middleware.
const (
	ContextKeyPrincipal    = "authz_principal"
	ContextKeySessionUser  = "session_user"
	ContextKeySessionRoles = "session_roles"
)

// Headers consulted when no principal is set on the context. These are
// meant for deployments where a gateway terminates authentication and
// forwards identity downstream.
const (
	HeaderUser  = "X-Auth-User"
	HeaderRoles = "X-Auth-Roles"
)

// Principal is the authenticated identity the middleware authorizes.
type Principal struct {
	UserID string
	Roles  []types.Role
}

// ExtractPrincipal builds a Principal from Echo context values.
// It checks, in order: a typed Principal stored by SetPrincipal, the
// identity headers, and session values left by an upstream session layer.
func ExtractPrincipal(c echo.Context) (*Principal, error) {
	if v := c.Get(ContextKeyPrincipal); v != nil {
		p, ok := v.(*Principal)
		if !ok {
			return nil, fmt.Errorf("principal in context is not a *Principal")
		}
		if p.UserID == "" {
			return nil, fmt.Errorf("principal in context has no user id")
		}
		return p, nil
	}

	if user := c.Request().Header.Get(HeaderUser); user != "" {
		return &Principal{
			UserID: user,
			Roles:  splitRoles(c.Request().Header.Get(HeaderRoles)),
		}, nil
	}

	if v := c.Get(ContextKeySessionUser); v != nil {
		user, ok := v.(string)
		if !ok || user == "" {
			return nil, fmt.Errorf("session user in context is not a string")
		}
		roles, err := sessionRoles(c)
		if err != nil {
			return nil, err
		}
		return &Principal{UserID: user, Roles: roles}, nil
	}

	return nil, fmt.Errorf("no authenticated principal in request context")
}

// SetPrincipal stores an identity for the middleware to pick up.
// This is the hook for authentication middleware and tests.
func SetPrincipal(c echo.Context, p *Principal) {
	if p == nil {
		return
	}
	c.Set(ContextKeyPrincipal, p)
}

// sessionRoles reads roles left in the context by a session layer,
// accepting the typed slice, a string slice, or a comma-joined string.
func sessionRoles(c echo.Context) ([]types.Role, error) {
	v := c.Get(ContextKeySessionRoles)
	if v == nil {
		return nil, nil
	}
	switch roles := v.(type) {
	case []types.Role:
		return roles, nil
	case []string:
		out := make([]types.Role, 0, len(roles))
		for _, r := range roles {
			out = append(out, types.Role(r))
		}
		return out, nil
	case string:
		return splitRoles(roles), nil
	default:
		return nil, fmt.Errorf("session roles in context have unsupported type %T", v)
	}
}

func splitRoles(raw string) []types.Role {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	roles := make([]types.Role, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			roles = append(roles, types.Role(p))
		}
	}
	return roles
}
