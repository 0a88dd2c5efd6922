package manager

import (
	"time"

	"github.com/neuralliquid/autopr-engine-sub002/internal/metrics"
	"github.com/neuralliquid/autopr-engine-sub002/types"
)

var _ types.Manager = (*instrumentedManager)(nil)

// instrumentedManager reports decision outcomes, latencies, and mutation
// counts to the metrics set
type instrumentedManager struct {
	types.Manager
	metrics *metrics.Set
}

// NewInstrumented wraps a manager with prometheus instrumentation
func NewInstrumented(m types.Manager, set *metrics.Set) types.Manager {
	return &instrumentedManager{Manager: m, metrics: set}
}

func (m *instrumentedManager) Authorize(c types.Context) (bool, error) {
	start := time.Now()
	allowed, err := m.Manager.Authorize(c)
	if err == nil {
		m.metrics.ObserveDecision(allowed, time.Since(start).Seconds())
	}
	return allowed, err
}

func (m *instrumentedManager) Grant(userID string, res types.Resource, perms types.Permission, grantedBy string) error {
	if e := m.Manager.Grant(userID, res, perms, grantedBy); e != nil {
		return e
	}
	m.metrics.IncGrant()
	return nil
}

func (m *instrumentedManager) Revoke(userID string, res types.Resource) error {
	if e := m.Manager.Revoke(userID, res); e != nil {
		return e
	}
	m.metrics.IncRevoke()
	return nil
}
