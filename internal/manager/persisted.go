package manager

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-logr/logr"

	"github.com/neuralliquid/autopr-engine-sub002/types"
)

// applier folds externally persisted grant changes into a manager without
// going back through the write-through persistence layer
type applier interface {
	applyChange(types.GrantChange) error
}

var errInnerCannotApply = errors.New("inner manager cannot apply persisted changes")

var _ types.Manager = (*persistedManager)(nil)

// persistedManager writes grants through a persister before applying them,
// loads the persisted state at startup, and folds changes made by other
// replicas back into the inner manager.
//
// Replayed echoes of this instance's own writes are harmless: grants
// replace, so applying one twice converges to the same state.
type persistedManager struct {
	types.Manager
	apply   applier
	persist types.GrantPersister
	log     logr.Logger
}

// NewPersisted wraps a manager with write-through grant persistence
func NewPersisted(ctx context.Context, inner types.Manager, persist types.GrantPersister, log logr.Logger) (types.Manager, error) {
	ap, ok := inner.(applier)
	if !ok {
		return nil, errInnerCannotApply
	}

	m := &persistedManager{
		Manager: inner,
		apply:   ap,
		persist: persist,
		log:     log,
	}

	if e := m.loadPersisted(); e != nil {
		return nil, e
	}
	if e := m.startWatching(ctx); e != nil {
		return nil, e
	}

	return m, nil
}

func (m *persistedManager) loadPersisted() error {
	m.log.V(4).Info("load persisted grants")

	grants, e := m.persist.List()
	if e != nil {
		return fmt.Errorf("%w: list grants: %v", types.ErrStoreUnavailable, e)
	}
	for _, g := range grants {
		if e := m.apply.applyChange(types.GrantChange{Grant: g, Method: types.PersistInsert}); e != nil {
			return e
		}
	}

	return nil
}

func (m *persistedManager) startWatching(ctx context.Context) error {
	changes, e := m.persist.Watch(ctx)
	if e != nil {
		return fmt.Errorf("%w: watch grants: %v", types.ErrStoreUnavailable, e)
	}

	go func() {
		for {
			select {
			case change, ok := <-changes:
				if !ok {
					return
				}
				if e := m.apply.applyChange(change); e != nil {
					m.log.Error(e, "coordinate grant change", "change", change)
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	return nil
}

// Grant persists the grant before handing it to the inner manager
func (m *persistedManager) Grant(userID string, res types.Resource, perms types.Permission, grantedBy string) error {
	m.log.V(4).Info("persist grant", "user", userID, "resource", res, "permissions", perms)

	if e := validateTarget(userID, res); e != nil {
		return e
	}
	if !perms.Valid() {
		return fmt.Errorf("%w: %q", types.ErrUnknownPermission, perms.String())
	}

	g := types.Grant{
		UserID:      userID,
		Resource:    res,
		Permissions: perms,
		GrantedBy:   grantedBy,
		GrantedAt:   time.Now(),
	}
	if e := m.persist.Upsert(g); e != nil {
		return fmt.Errorf("%w: persist grant: %v", types.ErrStoreUnavailable, e)
	}

	return m.Manager.Grant(userID, res, perms, grantedBy)
}

// Revoke removes the persisted grant before handing it to the inner manager
func (m *persistedManager) Revoke(userID string, res types.Resource) error {
	m.log.V(4).Info("persist revoke", "user", userID, "resource", res)

	if e := validateTarget(userID, res); e != nil {
		return e
	}
	if e := m.persist.Remove(userID, res); e != nil {
		return fmt.Errorf("%w: persist revoke: %v", types.ErrStoreUnavailable, e)
	}

	return m.Manager.Revoke(userID, res)
}
