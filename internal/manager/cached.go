package manager

import (
	"github.com/go-logr/logr"

	"github.com/neuralliquid/autopr-engine-sub002/internal/metrics"
	"github.com/neuralliquid/autopr-engine-sub002/types"
)

var _ types.Manager = (*cachedManager)(nil)

// cachedManager short-circuits Authorize with remembered decisions and drops
// them when the state they were computed from changes. Every mutation
// invalidates by user and by resource in the same call.
//
// Cache failures are logged and treated as misses: they never change the
// decision and never surface to the caller.
type cachedManager struct {
	types.Manager
	cache   types.DecisionCache
	log     logr.Logger
	metrics *metrics.Set
}

// NewCached wraps a manager with a decision cache
func NewCached(m types.Manager, c types.DecisionCache, log logr.Logger, set *metrics.Set) types.Manager {
	return &cachedManager{Manager: m, cache: c, log: log, metrics: set}
}

func (m *cachedManager) Authorize(c types.Context) (bool, error) {
	if e := c.Validate(); e != nil {
		return false, e
	}

	key := types.CacheKey{UserID: c.UserID, Resource: c.Resource(), Action: c.Action}

	decision, ok, e := m.cache.Get(key)
	if e != nil {
		m.log.Error(e, "cache read failed, falling through", "key", key)
	} else if ok {
		m.metrics.IncCacheHit()
		return decision, nil
	}
	m.metrics.IncCacheMiss()

	decision, err := m.Manager.Authorize(c)
	if err != nil {
		return decision, err
	}

	if e := m.cache.Set(key, decision); e != nil {
		m.log.Error(e, "cache write failed", "key", key)
	}
	return decision, nil
}

func (m *cachedManager) Grant(userID string, res types.Resource, perms types.Permission, grantedBy string) error {
	if e := m.Manager.Grant(userID, res, perms, grantedBy); e != nil {
		return e
	}
	m.invalidate(userID, res)
	return nil
}

func (m *cachedManager) Revoke(userID string, res types.Resource) error {
	if e := m.Manager.Revoke(userID, res); e != nil {
		return e
	}
	m.invalidate(userID, res)
	return nil
}

func (m *cachedManager) SetOwner(res types.Resource, owner string) error {
	if e := m.Manager.SetOwner(res, owner); e != nil {
		return e
	}
	m.invalidate(owner, res)
	return nil
}

func (m *cachedManager) RemoveOwner(res types.Resource) error {
	if e := m.Manager.RemoveOwner(res); e != nil {
		return e
	}
	if e := m.cache.InvalidateResource(res); e != nil {
		m.log.Error(e, "cache invalidation failed", "resource", res)
	}
	return nil
}

func (m *cachedManager) applyChange(change types.GrantChange) error {
	ap, ok := m.Manager.(applier)
	if !ok {
		return errInnerCannotApply
	}
	if e := ap.applyChange(change); e != nil {
		return e
	}
	m.invalidate(change.UserID, change.Resource)
	return nil
}

func (m *cachedManager) invalidate(userID string, res types.Resource) {
	if e := m.cache.InvalidateUser(userID); e != nil {
		m.log.Error(e, "cache invalidation failed", "user", userID)
	}
	if e := m.cache.InvalidateResource(res); e != nil {
		m.log.Error(e, "cache invalidation failed", "resource", res)
	}
}
