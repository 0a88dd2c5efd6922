package manager

import (
	"time"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/neuralliquid/autopr-engine-sub002/internal/cache"
	"github.com/neuralliquid/autopr-engine-sub002/internal/metrics"
	. "github.com/neuralliquid/autopr-engine-sub002/types"
)

func counterValue(reg *prometheus.Registry, name string, labels map[string]string) float64 {
	families, e := reg.Gather()
	Expect(e).To(Succeed())

	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
	metric:
		for _, m := range mf.GetMetric() {
			got := make(map[string]string, len(m.GetLabel()))
			for _, p := range m.GetLabel() {
				got[p.GetName()] = p.GetValue()
			}
			for k, v := range labels {
				if got[k] != v {
					continue metric
				}
			}
			return m.GetCounter().GetValue()
		}
	}
	return 0
}

var _ = Describe("instrumented manager", func() {
	var (
		reg *prometheus.Registry
		set *metrics.Set
		m   Manager
	)

	repo := NewResource(ResourceRepository, "core")

	BeforeEach(func() {
		reg = prometheus.NewRegistry()
		var e error
		set, e = metrics.New(reg)
		Expect(e).To(Succeed())

		inner := newEngine(newMemStore(), testRoles, testLog)
		m = NewInstrumented(NewSynced(NewCached(inner, cache.New(time.Minute), testLog, set)), set)
	})

	It("counts decisions by result", func() {
		Expect(m.Authorize(mustContext("alice", ResourceRepository, "core", Read, WithRoles(RoleViewer)))).To(BeTrue())
		Expect(m.Authorize(mustContext("alice", ResourceRepository, "core", Delete))).To(BeFalse())
		Expect(m.Authorize(mustContext("alice", ResourceRepository, "core", Delete))).To(BeFalse())

		Expect(counterValue(reg, "authz_decisions_total", map[string]string{"result": "allowed"})).To(BeEquivalentTo(1))
		Expect(counterValue(reg, "authz_decisions_total", map[string]string{"result": "denied"})).To(BeEquivalentTo(2))
	})

	It("counts cache traffic", func() {
		req := mustContext("alice", ResourceRepository, "core", Read, WithRoles(RoleViewer))
		Expect(m.Authorize(req)).To(BeTrue())
		Expect(m.Authorize(req)).To(BeTrue())

		Expect(counterValue(reg, "authz_cache_misses_total", nil)).To(BeEquivalentTo(1))
		Expect(counterValue(reg, "authz_cache_hits_total", nil)).To(BeEquivalentTo(1))
	})

	It("counts grants and revokes", func() {
		Expect(m.Grant("alice", repo, Read, "root")).To(Succeed())
		Expect(m.Revoke("alice", repo)).To(Succeed())
		Expect(m.Revoke("alice", repo)).To(Succeed())

		Expect(counterValue(reg, "authz_mutations_total", map[string]string{"op": "grant"})).To(BeEquivalentTo(1))
		Expect(counterValue(reg, "authz_mutations_total", map[string]string{"op": "revoke"})).To(BeEquivalentTo(2))
	})

	It("skips counting failed mutations", func() {
		Expect(m.Grant("", repo, Read, "root")).To(MatchError(ErrInvalidContext))
		Expect(counterValue(reg, "authz_mutations_total", map[string]string{"op": "grant"})).To(BeZero())
	})

	It("registers cleanly only once per registry", func() {
		_, e := metrics.New(reg)
		Expect(e).To(HaveOccurred(), "duplicate registration is reported")
	})
})
