package authz

import (
	"context"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/neuralliquid/autopr-engine-sub002/types"
)

var _ = Describe("the process-wide manager", func() {
	var (
		ctx    context.Context
		cancel context.CancelFunc
	)

	BeforeEach(func() {
		ctx, cancel = context.WithCancel(context.Background())
		Reset()
	})
	AfterEach(func() {
		Reset()
		cancel()
	})

	It("is nil before Init and refuses decisions", func() {
		Expect(Default()).To(BeNil())

		_, e := AuthorizeRequest("vera", nil, types.ResourceProject, "p1", types.Read, nil)
		Expect(e).To(MatchError(ErrNotInitialized))
	})

	It("builds once and ignores later options", func() {
		m, e := Init(ctx, WithLogger(testLog), WithoutAudit())
		Expect(e).To(Succeed())
		Expect(Default()).To(BeIdenticalTo(m))

		again, e := Init(ctx, WithLogger(testLog), WithRoles(types.RoleCapabilities{}))
		Expect(e).To(Succeed())
		Expect(again).To(BeIdenticalTo(m))

		// the role table from the first Init still applies
		allowed, e := AuthorizeRequest("vera", []types.Role{types.RoleViewer}, types.ResourceProject, "p1", types.Read, nil)
		Expect(e).To(Succeed())
		Expect(allowed).To(BeTrue())
	})

	It("can be replaced and reset", func() {
		_, e := Init(ctx, WithLogger(testLog), WithoutAudit())
		Expect(e).To(Succeed())

		other, e := New(ctx, WithLogger(testLog), WithoutAudit(), WithRoles(types.RoleCapabilities{
			"ops": {types.ResourceConfig: types.AllPermissions},
		}))
		Expect(e).To(Succeed())

		SetDefault(other)
		Expect(Default()).To(BeIdenticalTo(other))

		allowed, e := AuthorizeRequest("op", []types.Role{"ops"}, types.ResourceConfig, "main", types.Manage, nil)
		Expect(e).To(Succeed())
		Expect(allowed).To(BeTrue())

		Reset()
		Expect(Default()).To(BeNil())
	})

	It("carries request metadata into the audit trail", func() {
		sink := &capturingSink{}
		_, e := Init(ctx, WithLogger(testLog), WithAuditSink(sink))
		Expect(e).To(Succeed())

		allowed, e := AuthorizeRequest("vera", []types.Role{types.RoleViewer}, types.ResourceProject, "p1", types.Read,
			map[string]any{"request_id": "r-1"})
		Expect(e).To(Succeed())
		Expect(allowed).To(BeTrue())

		Eventually(func() []types.Record {
			return sink.byEvent(types.EventAuthorizationCheck)
		}).ShouldNot(BeEmpty())
		checks := sink.byEvent(types.EventAuthorizationCheck)
		Expect(checks[0].Metadata).To(HaveKeyWithValue("request_id", "r-1"))
	})

	It("rejects malformed requests before reaching the engine", func() {
		_, e := Init(ctx, WithLogger(testLog), WithoutAudit())
		Expect(e).To(Succeed())

		_, e = AuthorizeRequest("", nil, types.ResourceProject, "p1", types.Read, nil)
		Expect(e).To(MatchError(types.ErrInvalidContext))
	})
})
