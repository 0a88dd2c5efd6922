// Package echoadapter exposes the authorization engine as Echo middleware.
// Handlers declare the resource type and action a route needs; the adapter
// extracts the caller identity, asks the engine, and converts the answer
// into HTTP status codes.
package echoadapter

import (
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/neuralliquid/autopr-engine-sub002/types"
)

// ErrPermissionDenied reports a decision that came back negative.
var ErrPermissionDenied = errors.New("permission denied")

// Check names one resource type / action pair for RequireAny and RequireAll.
type Check struct {
	ResourceType types.ResourceType
	Action       types.Permission
}

type settings struct {
	param   string
	fixedID string
	resolve func(echo.Context) string
}

// Option adjusts how middleware locates the resource under access.
type Option func(*settings)

// WithResourceParam names the route parameter holding the resource ID.
// The default is "id".
func WithResourceParam(name string) Option {
	return func(s *settings) {
		s.param = name
	}
}

// WithResourceID pins the resource ID to a fixed value, for routes that
// guard a singleton resource rather than a path-addressed one.
func WithResourceID(id string) Option {
	return func(s *settings) {
		s.fixedID = id
	}
}

// WithResourceResolver supplies a function deriving the resource ID from
// the request. It takes precedence over the other resource options.
func WithResourceResolver(fn func(echo.Context) string) Option {
	return func(s *settings) {
		s.resolve = fn
	}
}

func newSettings(opts []Option) *settings {
	s := &settings{param: "id"}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *settings) resourceID(c echo.Context) string {
	if s.resolve != nil {
		return s.resolve(c)
	}
	if s.fixedID != "" {
		return s.fixedID
	}
	return c.Param(s.param)
}

// Require creates middleware that enforces an action on a resource type.
// Missing identity yields 401, a negative decision 403, a malformed
// request 400, and an engine failure 500. It never falls through to allow.
func Require(m types.Decider, t types.ResourceType, action types.Permission, opts ...Option) echo.MiddlewareFunc {
	s := newSettings(opts)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p, err := ExtractPrincipal(c)
			if err != nil {
				log.Printf("authz: principal extraction failed: %v", err)
				return c.JSON(http.StatusUnauthorized, map[string]string{
					"error": "Unauthorized",
				})
			}

			return respond(c, next, decide(m, p, t, action, s.resourceID(c)))
		}
	}
}

// RequireAny creates middleware that allows the request if at least one
// of the checks passes. Checks are evaluated in order and stop at the
// first allow. All checks target the same resource ID.
func RequireAny(m types.Decider, checks []Check, opts ...Option) echo.MiddlewareFunc {
	s := newSettings(opts)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p, err := ExtractPrincipal(c)
			if err != nil {
				log.Printf("authz: principal extraction failed: %v", err)
				return c.JSON(http.StatusUnauthorized, map[string]string{
					"error": "Unauthorized",
				})
			}

			id := s.resourceID(c)
			err = fmt.Errorf("%w: no checks configured", ErrPermissionDenied)
			for _, check := range checks {
				if err = decide(m, p, check.ResourceType, check.Action, id); err == nil {
					break
				}
				if !errors.Is(err, ErrPermissionDenied) {
					break
				}
			}
			return respond(c, next, err)
		}
	}
}

// RequireAll creates middleware that allows the request only if every
// check passes. Evaluation stops at the first deny. All checks target
// the same resource ID.
func RequireAll(m types.Decider, checks []Check, opts ...Option) echo.MiddlewareFunc {
	s := newSettings(opts)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p, err := ExtractPrincipal(c)
			if err != nil {
				log.Printf("authz: principal extraction failed: %v", err)
				return c.JSON(http.StatusUnauthorized, map[string]string{
					"error": "Unauthorized",
				})
			}

			id := s.resourceID(c)
			for _, check := range checks {
				if err := decide(m, p, check.ResourceType, check.Action, id); err != nil {
					return respond(c, next, err)
				}
			}
			return next(c)
		}
	}
}

// decide runs one authorization check. A nil return means allowed;
// a denial comes back wrapped in ErrPermissionDenied.
func decide(m types.Decider, p *Principal, t types.ResourceType, action types.Permission, resourceID string) error {
	ctx, err := types.NewContext(p.UserID, t, resourceID, action, types.WithRoles(p.Roles...))
	if err != nil {
		return err
	}

	allowed, err := m.Authorize(ctx)
	if err != nil {
		return err
	}
	if !allowed {
		return fmt.Errorf("%w: %s on %s for %s", ErrPermissionDenied,
			action, types.NewResource(t, resourceID), p.UserID)
	}
	return nil
}

func respond(c echo.Context, next echo.HandlerFunc, err error) error {
	switch {
	case err == nil:
		return next(c)
	case errors.Is(err, ErrPermissionDenied):
		log.Printf("authz: authorization denied: %v", err)
		return c.JSON(http.StatusForbidden, map[string]string{
			"error": "Forbidden",
		})
	case errors.Is(err, types.ErrInvalidContext),
		errors.Is(err, types.ErrUnknownResourceType),
		errors.Is(err, types.ErrUnknownPermission):
		log.Printf("authz: malformed authorization request: %v", err)
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "Bad request",
		})
	default:
		log.Printf("authz: authorization check failed: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "Internal server error",
		})
	}
}
