package main

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/neuralliquid/autopr-engine-sub002/echoadapter"
	"github.com/neuralliquid/autopr-engine-sub002/types"
)

// adminResourceID names the singleton config resource guarding the
// grant and owner endpoints. Seed its owner or grant manage on it to
// bootstrap administration.
const adminResourceID = "authz"

func newServer(m types.Manager, roles types.RoleCapabilities, registry *prometheus.Registry) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(echomiddleware.Logger())
	e.Use(echomiddleware.Recover())

	h := &handlers{m: m, caps: roles}

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	if registry != nil {
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))
	}

	e.POST("/v1/check", h.check)
	e.GET("/v1/roles", h.roles)

	admin := e.Group("/v1", echoadapter.Require(m, types.ResourceConfig, types.Manage,
		echoadapter.WithResourceID(adminResourceID)))
	admin.POST("/grants", h.grant)
	admin.DELETE("/grants", h.revoke)
	admin.GET("/grants/:user", h.grantsOf)
	admin.PUT("/owners", h.setOwner)
	admin.DELETE("/owners", h.removeOwner)
	admin.GET("/owners/:type/:id", h.owner)

	return e
}

type handlers struct {
	m    types.Manager
	caps types.RoleCapabilities
}

type checkRequest struct {
	UserID       string         `json:"user_id"`
	Roles        []string       `json:"roles,omitempty"`
	UserRole     string         `json:"user_role,omitempty"`
	ResourceType string         `json:"resource_type"`
	ResourceID   string         `json:"resource_id"`
	Action       []string       `json:"action"`
	Explicit     []string       `json:"explicit,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

type grantRequest struct {
	UserID       string   `json:"user_id"`
	ResourceType string   `json:"resource_type"`
	ResourceID   string   `json:"resource_id"`
	Permissions  []string `json:"permissions"`
	GrantedBy    string   `json:"granted_by,omitempty"`
}

type revokeRequest struct {
	UserID       string `json:"user_id"`
	ResourceType string `json:"resource_type"`
	ResourceID   string `json:"resource_id"`
}

type ownerRequest struct {
	ResourceType string `json:"resource_type"`
	ResourceID   string `json:"resource_id"`
	UserID       string `json:"user_id,omitempty"`
}

type roleResponse struct {
	Role         types.Role                      `json:"role"`
	Capabilities map[types.ResourceType][]string `json:"capabilities"`
}

func (h *handlers) check(c echo.Context) error {
	var req checkRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "request body must be valid JSON"})
	}

	action, err := types.ParsePermissions(req.Action...)
	if err != nil {
		return writeError(c, err)
	}

	opts := make([]types.ContextOption, 0, 4)
	if len(req.Roles) > 0 {
		roles := make([]types.Role, 0, len(req.Roles))
		for _, r := range req.Roles {
			roles = append(roles, types.Role(r))
		}
		opts = append(opts, types.WithRoles(roles...))
	}
	if req.UserRole != "" {
		opts = append(opts, types.WithUserRole(types.Role(req.UserRole)))
	}
	if len(req.Explicit) > 0 {
		explicit, err := types.ParsePermissions(req.Explicit...)
		if err != nil {
			return writeError(c, err)
		}
		opts = append(opts, types.WithExplicit(explicit))
	}
	if len(req.Metadata) > 0 {
		opts = append(opts, types.WithMetadata(req.Metadata))
	}

	ctx, err := types.NewContext(req.UserID, types.ResourceType(req.ResourceType), req.ResourceID, action, opts...)
	if err != nil {
		return writeError(c, err)
	}

	allowed, err := h.m.Authorize(ctx)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]bool{"allowed": allowed})
}

func (h *handlers) roles(c echo.Context) error {
	out := make([]roleResponse, 0, len(h.caps))
	for _, r := range h.m.Roles() {
		caps := make(map[types.ResourceType][]string, len(h.caps[r]))
		for t, p := range h.caps[r] {
			caps[t] = p.Names()
		}
		out = append(out, roleResponse{Role: r, Capabilities: caps})
	}
	return c.JSON(http.StatusOK, map[string][]roleResponse{"roles": out})
}

func (h *handlers) grant(c echo.Context) error {
	var req grantRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "request body must be valid JSON"})
	}

	res, err := parseTarget(req.ResourceType, req.ResourceID)
	if err != nil {
		return writeError(c, err)
	}
	perms, err := types.ParsePermissions(req.Permissions...)
	if err != nil {
		return writeError(c, err)
	}

	grantedBy := req.GrantedBy
	if grantedBy == "" {
		if p, err := echoadapter.ExtractPrincipal(c); err == nil {
			grantedBy = p.UserID
		}
	}

	if err := h.m.Grant(req.UserID, res, perms, grantedBy); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handlers) revoke(c echo.Context) error {
	var req revokeRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "request body must be valid JSON"})
	}

	res, err := parseTarget(req.ResourceType, req.ResourceID)
	if err != nil {
		return writeError(c, err)
	}
	if err := h.m.Revoke(req.UserID, res); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handlers) grantsOf(c echo.Context) error {
	grants, err := h.m.Grants(c.Param("user"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string][]types.Grant{"grants": grants})
}

func (h *handlers) setOwner(c echo.Context) error {
	var req ownerRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "request body must be valid JSON"})
	}

	res, err := parseTarget(req.ResourceType, req.ResourceID)
	if err != nil {
		return writeError(c, err)
	}
	if err := h.m.SetOwner(res, req.UserID); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handlers) removeOwner(c echo.Context) error {
	var req ownerRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "request body must be valid JSON"})
	}

	res, err := parseTarget(req.ResourceType, req.ResourceID)
	if err != nil {
		return writeError(c, err)
	}
	if err := h.m.RemoveOwner(res); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handlers) owner(c echo.Context) error {
	res, err := parseTarget(c.Param("type"), c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}

	owner, ok, err := h.m.Owner(res)
	if err != nil {
		return writeError(c, err)
	}
	if !ok {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "no owner recorded"})
	}
	return c.JSON(http.StatusOK, map[string]string{
		"resource": res.String(),
		"owner":    owner,
	})
}

func parseTarget(typeName, id string) (types.Resource, error) {
	t, err := types.ParseResourceType(typeName)
	if err != nil {
		return types.Resource{}, err
	}
	if id == "" {
		return types.Resource{}, fmt.Errorf("%w: empty resource id", types.ErrInvalidContext)
	}
	return types.NewResource(t, id), nil
}

// writeError maps engine errors onto HTTP statuses. Validation failures
// carry the rejected value in the body; everything else stays generic.
func writeError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, types.ErrInvalidContext),
		errors.Is(err, types.ErrUnknownPermission),
		errors.Is(err, types.ErrUnknownResourceType),
		errors.Is(err, types.ErrUnknownRole):
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, types.ErrStoreUnavailable):
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "backing store unavailable"})
	default:
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}
}
