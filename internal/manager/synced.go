package manager

import (
	"sync"

	"github.com/neuralliquid/autopr-engine-sub002/types"
)

var _ types.Manager = (*syncedManager)(nil)

// syncedManager makes the managers below it safe in concurrent usages.
// Mutations hold the write lock, so a grant and the cache invalidation it
// triggers in the layer below happen as one step: no reader observes the
// new state with the old cached decision.
type syncedManager struct {
	m types.Manager
	sync.RWMutex
}

// NewSynced wraps a manager with a read-write lock
func NewSynced(m types.Manager) types.Manager {
	return &syncedManager{m: m}
}

func (s *syncedManager) Authorize(c types.Context) (bool, error) {
	s.RLock()
	defer s.RUnlock()
	return s.m.Authorize(c)
}

func (s *syncedManager) Grant(userID string, res types.Resource, perms types.Permission, grantedBy string) error {
	s.Lock()
	defer s.Unlock()
	return s.m.Grant(userID, res, perms, grantedBy)
}

func (s *syncedManager) Revoke(userID string, res types.Resource) error {
	s.Lock()
	defer s.Unlock()
	return s.m.Revoke(userID, res)
}

func (s *syncedManager) Grants(userID string) ([]types.Grant, error) {
	s.RLock()
	defer s.RUnlock()
	return s.m.Grants(userID)
}

func (s *syncedManager) GrantsOn(res types.Resource) ([]types.Grant, error) {
	s.RLock()
	defer s.RUnlock()
	return s.m.GrantsOn(res)
}

func (s *syncedManager) SetOwner(res types.Resource, owner string) error {
	s.Lock()
	defer s.Unlock()
	return s.m.SetOwner(res, owner)
}

func (s *syncedManager) RemoveOwner(res types.Resource) error {
	s.Lock()
	defer s.Unlock()
	return s.m.RemoveOwner(res)
}

func (s *syncedManager) Owner(res types.Resource) (string, bool, error) {
	s.RLock()
	defer s.RUnlock()
	return s.m.Owner(res)
}

func (s *syncedManager) Roles() []types.Role {
	s.RLock()
	defer s.RUnlock()
	return s.m.Roles()
}

func (s *syncedManager) applyChange(change types.GrantChange) error {
	s.Lock()
	defer s.Unlock()

	ap, ok := s.m.(applier)
	if !ok {
		return errInnerCannotApply
	}
	return ap.applyChange(change)
}
