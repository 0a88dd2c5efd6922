package manager

import (
	"context"
	"sync"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/neuralliquid/autopr-engine-sub002/internal/audit"
	. "github.com/neuralliquid/autopr-engine-sub002/types"
)

// memorySink captures audit records for assertions
type memorySink struct {
	mu      sync.Mutex
	records []Record
}

func (s *memorySink) Write(r Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, r)
	return nil
}

func (s *memorySink) byEvent(event EventType) []Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Record
	for _, r := range s.records {
		if r.Event == event {
			out = append(out, r)
		}
	}
	return out
}

func (s *memorySink) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

var _ = Describe("audited manager", func() {
	var (
		sink   *memorySink
		logger *audit.Logger
		m      Manager
	)

	repo := NewResource(ResourceRepository, "core")

	BeforeEach(func() {
		sink = &memorySink{}
		logger = audit.New(context.Background(), testLog, audit.WithSink(sink))
		m = NewAudited(NewSynced(newEngine(newMemStore(), testRoles, testLog)), logger)
	})

	It("writes one check record per authorize call", func() {
		Expect(m.Authorize(mustContext("alice", ResourceRepository, "core", Read, WithRoles(RoleViewer)))).To(BeTrue())
		Expect(m.Authorize(mustContext("alice", ResourceRepository, "core", Read, WithRoles(RoleViewer)))).To(BeTrue())
		Expect(logger.Close()).To(Succeed())

		checks := sink.byEvent(EventAuthorizationCheck)
		Expect(checks).To(HaveLen(2))
		Expect(checks[0].Result).To(Equal(ResultAllowed))
		Expect(checks[0].UserID).To(Equal("alice"))
		Expect(checks[0].ResourceType).To(Equal(ResourceRepository))
		Expect(checks[0].Action).To(Equal(Read))
		Expect(checks[0].ID).NotTo(BeEmpty())
		Expect(sink.byEvent(EventAccessDenied)).To(BeEmpty())
	})

	It("writes an extra denied record for every denial", func() {
		Expect(m.Authorize(mustContext("alice", ResourceRepository, "core", Delete))).To(BeFalse())
		Expect(logger.Close()).To(Succeed())

		Expect(sink.len()).To(Equal(2))
		checks := sink.byEvent(EventAuthorizationCheck)
		Expect(checks).To(HaveLen(1))
		Expect(checks[0].Result).To(Equal(ResultDenied))

		denied := sink.byEvent(EventAccessDenied)
		Expect(denied).To(HaveLen(1))
		Expect(denied[0].UserID).To(Equal("alice"))
		Expect(denied[0].Action).To(Equal(Delete))
	})

	It("records invalid requests with their reason, without a denied record", func() {
		_, e := m.Authorize(Context{UserID: "", ResourceType: ResourceProject, ResourceID: "p1", Action: Read})
		Expect(e).To(MatchError(ErrInvalidContext))
		Expect(logger.Close()).To(Succeed())

		checks := sink.byEvent(EventAuthorizationCheck)
		Expect(checks).To(HaveLen(1))
		Expect(checks[0].Result).To(Equal(ResultDenied))
		Expect(checks[0].Reason).NotTo(BeEmpty())
		Expect(sink.byEvent(EventAccessDenied)).To(BeEmpty())
	})

	It("carries request metadata into the records", func() {
		c := mustContext("alice", ResourceRepository, "core", Delete, WithExtra("request_id", "req-1"))
		Expect(m.Authorize(c)).To(BeFalse())
		Expect(logger.Close()).To(Succeed())

		checks := sink.byEvent(EventAuthorizationCheck)
		Expect(checks[0].Metadata).To(HaveKeyWithValue("request_id", "req-1"))
	})

	It("records grants and revokes with the acting principal", func() {
		Expect(m.Grant("alice", repo, Delete|Update, "root")).To(Succeed())
		Expect(m.Revoke("alice", repo)).To(Succeed())
		Expect(logger.Close()).To(Succeed())

		granted := sink.byEvent(EventPermissionGranted)
		Expect(granted).To(HaveLen(1))
		Expect(granted[0].UserID).To(Equal("alice"))
		Expect(granted[0].Action).To(Equal(Delete | Update))
		Expect(granted[0].Metadata).To(HaveKeyWithValue("granted_by", "root"))

		revoked := sink.byEvent(EventPermissionRevoked)
		Expect(revoked).To(HaveLen(1))
	})

	It("does not record failed mutations", func() {
		Expect(m.Grant("", repo, Read, "root")).To(MatchError(ErrInvalidContext))
		Expect(logger.Close()).To(Succeed())

		Expect(sink.byEvent(EventPermissionGranted)).To(BeEmpty())
	})

	It("measures decision duration", func() {
		Expect(m.Authorize(mustContext("alice", ResourceRepository, "core", Read, WithRoles(RoleViewer)))).To(BeTrue())
		Expect(logger.Close()).To(Succeed())

		checks := sink.byEvent(EventAuthorizationCheck)
		Expect(checks[0].DurationMS).To(BeNumerically(">=", 0))
	})
})
