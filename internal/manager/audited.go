package manager

import (
	"time"

	"github.com/neuralliquid/autopr-engine-sub002/internal/audit"
	"github.com/neuralliquid/autopr-engine-sub002/types"
)

var _ types.Manager = (*auditedManager)(nil)

// auditedManager reports decisions and grant mutations to the audit trail.
// Every Authorize call yields exactly one authorization_check record; a
// denial yields an additional access_denied record. Records are queued
// after the decision is made, so auditing never delays or changes it.
type auditedManager struct {
	types.Manager
	audit *audit.Logger
}

// NewAudited wraps a manager with audit reporting
func NewAudited(m types.Manager, logger *audit.Logger) types.Manager {
	return &auditedManager{Manager: m, audit: logger}
}

func (m *auditedManager) Authorize(c types.Context) (bool, error) {
	start := time.Now()
	allowed, err := m.Manager.Authorize(c)
	elapsed := time.Since(start)

	check := types.Record{
		Event:        types.EventAuthorizationCheck,
		UserID:       c.UserID,
		ResourceType: c.ResourceType,
		ResourceID:   c.ResourceID,
		Action:       c.Action,
		Result:       types.ResultDenied,
		DurationMS:   float64(elapsed) / float64(time.Millisecond),
		Metadata:     c.Extra,
	}
	if err != nil {
		check.Reason = err.Error()
	} else if allowed {
		check.Result = types.ResultAllowed
	}
	m.audit.Record(check)

	if err == nil && !allowed {
		m.audit.Record(types.Record{
			Event:        types.EventAccessDenied,
			UserID:       c.UserID,
			ResourceType: c.ResourceType,
			ResourceID:   c.ResourceID,
			Action:       c.Action,
			Result:       types.ResultDenied,
			Metadata:     c.Extra,
		})
	}

	return allowed, err
}

func (m *auditedManager) Grant(userID string, res types.Resource, perms types.Permission, grantedBy string) error {
	if e := m.Manager.Grant(userID, res, perms, grantedBy); e != nil {
		return e
	}

	m.audit.Record(types.Record{
		Event:        types.EventPermissionGranted,
		UserID:       userID,
		ResourceType: res.Type,
		ResourceID:   res.ID,
		Action:       perms,
		Result:       types.ResultSuccess,
		Metadata:     map[string]any{"granted_by": grantedBy},
	})
	return nil
}

func (m *auditedManager) Revoke(userID string, res types.Resource) error {
	if e := m.Manager.Revoke(userID, res); e != nil {
		return e
	}

	m.audit.Record(types.Record{
		Event:        types.EventPermissionRevoked,
		UserID:       userID,
		ResourceType: res.Type,
		ResourceID:   res.ID,
		Result:       types.ResultSuccess,
	})
	return nil
}
