package manager

import "github.com/neuralliquid/autopr-engine-sub002/types"

// store holds the authoritative grant and ownership state behind the engine.
// Implementations carry no locking of their own: the synced layer above the
// engine serializes all access.
type store interface {
	// SetGrant inserts or replaces the grant for its user-resource pair
	SetGrant(types.Grant) error

	// DeleteGrant removes the grant of a user on a resource, absent is fine
	DeleteGrant(userID string, res types.Resource) error

	// Grant returns the grant of a user on a resource, if any
	Grant(userID string, res types.Resource) (types.Grant, bool, error)

	// GrantsFor lists all grants of a user
	GrantsFor(userID string) ([]types.Grant, error)

	// GrantsOn lists all grants on a resource
	GrantsOn(res types.Resource) ([]types.Grant, error)

	// SetOwner makes a user the owner of a resource
	SetOwner(res types.Resource, owner string) error

	// DeleteOwner clears the ownership of a resource, absent is fine
	DeleteOwner(res types.Resource) error

	// Owner returns the owner of a resource, if any
	Owner(res types.Resource) (string, bool, error)
}

var _ store = (*memStore)(nil)

// memStore keeps grants in plain maps, indexed both ways for cheap listing
type memStore struct {
	byUser     map[string]map[types.Resource]types.Grant
	byResource map[types.Resource]map[string]types.Grant
	owners     map[types.Resource]string
}

func newMemStore() *memStore {
	return &memStore{
		byUser:     make(map[string]map[types.Resource]types.Grant),
		byResource: make(map[types.Resource]map[string]types.Grant),
		owners:     make(map[types.Resource]string),
	}
}

func (s *memStore) SetGrant(g types.Grant) error {
	if _, ok := s.byUser[g.UserID]; !ok {
		s.byUser[g.UserID] = make(map[types.Resource]types.Grant)
	}
	s.byUser[g.UserID][g.Resource] = g

	if _, ok := s.byResource[g.Resource]; !ok {
		s.byResource[g.Resource] = make(map[string]types.Grant)
	}
	s.byResource[g.Resource][g.UserID] = g

	return nil
}

func (s *memStore) DeleteGrant(userID string, res types.Resource) error {
	if grants, ok := s.byUser[userID]; ok {
		delete(grants, res)
		if len(grants) == 0 {
			delete(s.byUser, userID)
		}
	}
	if grants, ok := s.byResource[res]; ok {
		delete(grants, userID)
		if len(grants) == 0 {
			delete(s.byResource, res)
		}
	}
	return nil
}

func (s *memStore) Grant(userID string, res types.Resource) (types.Grant, bool, error) {
	g, ok := s.byUser[userID][res]
	return g, ok, nil
}

func (s *memStore) GrantsFor(userID string) ([]types.Grant, error) {
	grants := make([]types.Grant, 0, len(s.byUser[userID]))
	for _, g := range s.byUser[userID] {
		grants = append(grants, g)
	}
	return grants, nil
}

func (s *memStore) GrantsOn(res types.Resource) ([]types.Grant, error) {
	grants := make([]types.Grant, 0, len(s.byResource[res]))
	for _, g := range s.byResource[res] {
		grants = append(grants, g)
	}
	return grants, nil
}

func (s *memStore) SetOwner(res types.Resource, owner string) error {
	s.owners[res] = owner
	return nil
}

func (s *memStore) DeleteOwner(res types.Resource) error {
	delete(s.owners, res)
	return nil
}

func (s *memStore) Owner(res types.Resource) (string, bool, error) {
	owner, ok := s.owners[res]
	return owner, ok, nil
}
