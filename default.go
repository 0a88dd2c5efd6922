package authz

import (
	"context"
	"errors"
	"sync"

	"github.com/neuralliquid/autopr-engine-sub002/types"
)

// ErrNotInitialized reports use of the process-wide manager before Init
var ErrNotInitialized = errors.New("authz: default manager not initialized")

var (
	defaultMu  sync.RWMutex
	defaultMgr types.Manager
)

// Init builds the process-wide manager on its first call and returns it.
// Later calls return the existing instance and ignore their options.
// Cancel ctx to release the background workers of the built instance.
func Init(ctx context.Context, opts ...Option) (types.Manager, error) {
	defaultMu.Lock()
	defer defaultMu.Unlock()

	if defaultMgr != nil {
		return defaultMgr, nil
	}

	m, e := New(ctx, opts...)
	if e != nil {
		return nil, e
	}
	defaultMgr = m
	return m, nil
}

// Default returns the process-wide manager, or nil before Init
func Default() types.Manager {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultMgr
}

// SetDefault installs a prebuilt manager as the process-wide one
func SetDefault(m types.Manager) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultMgr = m
}

// Reset drops the process-wide manager so the next Init builds a new one.
// Workers of the dropped instance keep running until the context given
// to Init is canceled.
func Reset() {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultMgr = nil
}

// AuthorizeRequest asks the process-wide manager for one decision.
// extra is carried into the audit trail, never into the decision.
func AuthorizeRequest(userID string, roles []types.Role, t types.ResourceType, resourceID string, action types.Permission, extra map[string]any) (bool, error) {
	m := Default()
	if m == nil {
		return false, ErrNotInitialized
	}

	c, e := types.NewContext(userID, t, resourceID, action,
		types.WithRoles(roles...), types.WithMetadata(extra))
	if e != nil {
		return false, e
	}
	return m.Authorize(c)
}
