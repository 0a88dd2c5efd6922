// Package fake provides in-memory persisters for tests and examples.
package fake

import (
	"context"
	"sync"

	"github.com/neuralliquid/autopr-engine-sub002/types"
)

var _ types.GrantPersister = (*grantPersister)(nil)

type grantPersister struct {
	grants  map[string]map[types.Resource]types.Grant
	changes chan types.GrantChange
	sync.RWMutex
}

// NewGrantPersister returns a fake grant persister which should not be used in real works
func NewGrantPersister() *grantPersister {
	return &grantPersister{
		grants: make(map[string]map[types.Resource]types.Grant),
	}
}

func (p *grantPersister) Upsert(g types.Grant) error {
	p.Lock()
	defer p.Unlock()

	method := types.PersistInsert
	if p.grants[g.UserID] != nil {
		if prev, ok := p.grants[g.UserID][g.Resource]; ok {
			if prev.Permissions == g.Permissions {
				return nil
			}
			method = types.PersistUpdate
		}
	} else {
		p.grants[g.UserID] = make(map[types.Resource]types.Grant)
	}

	p.grants[g.UserID][g.Resource] = g

	if p.changes != nil {
		p.changes <- types.GrantChange{Grant: g, Method: method}
	}

	return nil
}

func (p *grantPersister) Remove(userID string, res types.Resource) error {
	p.Lock()
	defer p.Unlock()

	if p.grants[userID] == nil {
		return nil
	}
	g, ok := p.grants[userID][res]
	if !ok {
		return nil
	}

	delete(p.grants[userID], res)

	if p.changes != nil {
		p.changes <- types.GrantChange{Grant: g, Method: types.PersistDelete}
	}

	return nil
}

func (p *grantPersister) List() ([]types.Grant, error) {
	p.RLock()
	defer p.RUnlock()

	grants := make([]types.Grant, 0, len(p.grants))
	for _, byRes := range p.grants {
		for _, g := range byRes {
			grants = append(grants, g)
		}
	}

	return grants, nil
}

func (p *grantPersister) Watch(context.Context) (<-chan types.GrantChange, error) {
	p.Lock()
	defer p.Unlock()

	// buffered so writers never block on a watcher that is gone
	p.changes = make(chan types.GrantChange, 64)
	return p.changes, nil
}
