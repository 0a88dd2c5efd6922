package manager

import (
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/neuralliquid/autopr-engine-sub002/internal/cache"
	"github.com/neuralliquid/autopr-engine-sub002/persist/fake"
	. "github.com/neuralliquid/autopr-engine-sub002/types"
)

// brokenPersister refuses every write
type brokenPersister struct {
	GrantPersister
}

var errPersistDown = errors.New("persister is down")

func (brokenPersister) Upsert(Grant) error           { return errPersistDown }
func (brokenPersister) Remove(string, Resource) error { return errPersistDown }

var _ = Describe("persisted manager", func() {
	repo := NewResource(ResourceRepository, "core")

	newStack := func() Manager {
		inner := newEngine(newMemStore(), testRoles, testLog)
		return NewSynced(NewCached(inner, cache.New(time.Minute), testLog, nil))
	}

	It("loads persisted grants at startup", func() {
		p := fake.NewGrantPersister()
		grantedAt := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
		Expect(p.Upsert(Grant{UserID: "alice", Resource: repo, Permissions: Delete, GrantedBy: "root", GrantedAt: grantedAt})).To(Succeed())

		m, e := NewPersisted(context.Background(), newStack(), p, testLog)
		Expect(e).To(Succeed())

		Expect(m.Authorize(mustContext("alice", ResourceRepository, "core", Delete))).To(BeTrue())

		grants, e := m.Grants("alice")
		Expect(e).To(Succeed())
		Expect(grants).To(HaveLen(1))
		Expect(grants[0].GrantedAt).To(Equal(grantedAt), "the persisted timestamp survives the load")
	})

	It("writes grants through to the persister", func() {
		p := fake.NewGrantPersister()
		m, e := NewPersisted(context.Background(), newStack(), p, testLog)
		Expect(e).To(Succeed())

		Expect(m.Grant("alice", repo, Read|Write, "root")).To(Succeed())

		persisted, e := p.List()
		Expect(e).To(Succeed())
		Expect(persisted).To(HaveLen(1))
		Expect(persisted[0].Permissions).To(Equal(Read | Write))

		Expect(m.Revoke("alice", repo)).To(Succeed())
		persisted, e = p.List()
		Expect(e).To(Succeed())
		Expect(persisted).To(BeEmpty())
	})

	It("folds external changes into the running manager", func() {
		p := fake.NewGrantPersister()
		m, e := NewPersisted(context.Background(), newStack(), p, testLog)
		Expect(e).To(Succeed())

		check := mustContext("alice", ResourceRepository, "core", Delete)
		Expect(m.Authorize(check)).To(BeFalse())

		// another replica writes to the shared persister
		Expect(p.Upsert(Grant{UserID: "alice", Resource: repo, Permissions: Delete, GrantedBy: "peer", GrantedAt: time.Now()})).To(Succeed())

		Eventually(func() bool {
			allowed, _ := m.Authorize(check)
			return allowed
		}).Should(BeTrue(), "the watched insert reached the engine and dropped the cached denial")

		Expect(p.Remove("alice", repo)).To(Succeed())
		Eventually(func() bool {
			allowed, _ := m.Authorize(check)
			return allowed
		}).Should(BeFalse(), "the watched delete revoked the grant")
	})

	It("leaves the inner manager untouched when persistence fails", func() {
		m, e := NewPersisted(context.Background(), newStack(), brokenPersister{GrantPersister: fake.NewGrantPersister()}, testLog)
		Expect(e).To(Succeed())

		Expect(m.Grant("alice", repo, Delete, "root")).To(MatchError(ErrStoreUnavailable))
		Expect(m.Authorize(mustContext("alice", ResourceRepository, "core", Delete))).To(BeFalse())

		Expect(m.Revoke("alice", repo)).To(MatchError(ErrStoreUnavailable))
	})

	It("stops watching when the context is canceled", func() {
		p := fake.NewGrantPersister()
		ctx, cancel := context.WithCancel(context.Background())
		m, e := NewPersisted(ctx, newStack(), p, testLog)
		Expect(e).To(Succeed())
		cancel()

		// the watcher is gone; direct use of the manager still works
		Expect(m.Grant("alice", repo, Read, "root")).To(Succeed())
		Expect(m.Authorize(mustContext("alice", ResourceRepository, "core", Read))).To(BeTrue())
	})
})
