package manager

import (
	"errors"
	"time"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/neuralliquid/autopr-engine-sub002/internal/cache"
	. "github.com/neuralliquid/autopr-engine-sub002/types"
)

// countingManager counts how often the inner manager really evaluates
type countingManager struct {
	Manager
	evaluations int
}

func (m *countingManager) Authorize(c Context) (bool, error) {
	m.evaluations++
	return m.Manager.Authorize(c)
}

// brokenCache fails every operation
type brokenCache struct{}

var errCacheDown = errors.New("cache is down")

func (brokenCache) Get(CacheKey) (bool, bool, error)  { return false, false, errCacheDown }
func (brokenCache) Set(CacheKey, bool) error          { return errCacheDown }
func (brokenCache) InvalidateUser(string) error       { return errCacheDown }
func (brokenCache) InvalidateResource(Resource) error { return errCacheDown }
func (brokenCache) Clear() error                      { return errCacheDown }

var _ = Describe("cached manager", func() {
	var (
		inner *countingManager
		c     *cache.Cache
		m     Manager
		now   time.Time
	)

	repo := NewResource(ResourceRepository, "core")

	BeforeEach(func() {
		now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
		inner = &countingManager{Manager: newEngine(newMemStore(), testRoles, testLog)}
		c = cache.New(5*time.Minute, cache.WithClock(func() time.Time { return now }))
		m = NewSynced(NewCached(inner, c, testLog, nil))
	})

	It("evaluates once and then serves from the cache", func() {
		req := mustContext("alice", ResourceRepository, "core", Read, WithRoles(RoleViewer))

		Expect(m.Authorize(req)).To(BeTrue())
		Expect(m.Authorize(req)).To(BeTrue())
		Expect(m.Authorize(req)).To(BeTrue())
		Expect(inner.evaluations).To(Equal(1))
	})

	It("caches denials too", func() {
		req := mustContext("alice", ResourceRepository, "core", Delete)

		Expect(m.Authorize(req)).To(BeFalse())
		Expect(m.Authorize(req)).To(BeFalse())
		Expect(inner.evaluations).To(Equal(1))
	})

	It("re-evaluates after the entry expires", func() {
		req := mustContext("alice", ResourceRepository, "core", Read, WithRoles(RoleViewer))

		Expect(m.Authorize(req)).To(BeTrue())
		now = now.Add(6 * time.Minute)
		Expect(m.Authorize(req)).To(BeTrue())
		Expect(inner.evaluations).To(Equal(2))
	})

	It("serves the new decision right after a grant", func() {
		req := mustContext("alice", ResourceRepository, "core", Delete)

		Expect(m.Authorize(req)).To(BeFalse(), "nothing granted yet")
		Expect(m.Grant("alice", repo, Delete, "root")).To(Succeed())
		Expect(m.Authorize(req)).To(BeTrue(), "the stale denial was invalidated")
	})

	It("serves the new decision right after a revoke", func() {
		req := mustContext("alice", ResourceRepository, "core", Delete)

		Expect(m.Grant("alice", repo, Delete, "root")).To(Succeed())
		Expect(m.Authorize(req)).To(BeTrue())

		Expect(m.Revoke("alice", repo)).To(Succeed())
		Expect(m.Authorize(req)).To(BeFalse())
	})

	It("invalidates other users' decisions about the same resource", func() {
		alice := mustContext("alice", ResourceRepository, "core", Read, WithRoles(RoleViewer))
		Expect(m.Authorize(alice)).To(BeTrue())
		Expect(inner.evaluations).To(Equal(1))

		Expect(m.Grant("bob", repo, Write, "root")).To(Succeed())

		Expect(m.Authorize(alice)).To(BeTrue())
		Expect(inner.evaluations).To(Equal(2), "the resource sweep dropped alice's entry")
	})

	It("keeps decisions about unrelated resources", func() {
		unrelated := mustContext("carol", ResourceProject, "p7", Read, WithRoles(RoleViewer))
		Expect(m.Authorize(unrelated)).To(BeTrue())
		Expect(inner.evaluations).To(Equal(1))

		Expect(m.Grant("bob", repo, Write, "root")).To(Succeed())

		Expect(m.Authorize(unrelated)).To(BeTrue())
		Expect(inner.evaluations).To(Equal(1), "carol's entry survived")
	})

	It("invalidates after ownership changes", func() {
		req := mustContext("owen", ResourceRepository, "core", Manage)

		Expect(m.Authorize(req)).To(BeFalse())
		Expect(m.SetOwner(repo, "owen")).To(Succeed())
		Expect(m.Authorize(req)).To(BeTrue())

		Expect(m.RemoveOwner(repo)).To(Succeed())
		Expect(m.Authorize(req)).To(BeFalse())
	})

	It("does not cache invalid requests", func() {
		_, e := m.Authorize(Context{UserID: "alice", ResourceType: "cluster", ResourceID: "c1", Action: Read})
		Expect(e).To(MatchError(ErrUnknownResourceType))
		Expect(c.Len()).To(BeZero())
	})

	It("works correctly with a broken cache", func() {
		broken := NewSynced(NewCached(inner, brokenCache{}, testLog, nil))
		req := mustContext("alice", ResourceRepository, "core", Read, WithRoles(RoleViewer))

		Expect(broken.Authorize(req)).To(BeTrue())
		Expect(broken.Authorize(req)).To(BeTrue())
		Expect(inner.evaluations).To(Equal(2), "every check is a full evaluation")

		Expect(broken.Grant("alice", repo, Delete, "root")).To(Succeed(), "invalidation failures are not fatal")
	})
})
