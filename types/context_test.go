package types_test

import (
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/ginkgo/extensions/table"
	. "github.com/onsi/gomega"

	. "github.com/neuralliquid/autopr-engine-sub002/types"
)

var _ = Describe("authorization context", func() {
	It("builds a minimal valid request", func() {
		c, e := NewContext("alice", ResourceProject, "p1", Read)
		Expect(e).To(Succeed())
		Expect(c.UserID).To(Equal("alice"))
		Expect(c.Resource()).To(Equal(NewResource(ResourceProject, "p1")))
		Expect(c.Action).To(Equal(Read))
		Expect(c.Roles).To(BeEmpty())
		Expect(c.Extra).To(BeNil())
	})

	It("applies options", func() {
		c, e := NewContext("alice", ResourceRepository, "r1", Write,
			WithRoles(RoleDeveloper, RoleViewer),
			WithUserRole(RoleDeveloper),
			WithExplicit(Read),
			WithExtra("request_id", "req-42"),
		)
		Expect(e).To(Succeed())
		Expect(c.Roles).To(Equal([]Role{RoleDeveloper, RoleViewer}))
		Expect(c.UserRole).To(Equal(RoleDeveloper))
		Expect(c.Explicit).To(Equal(Read))
		Expect(c.Extra).To(HaveKeyWithValue("request_id", "req-42"))
	})

	It("merges metadata maps", func() {
		c, e := NewContext("alice", ResourceProject, "p1", Read,
			WithExtra("ip", "10.0.0.7"),
			WithMetadata(map[string]any{"request_id": "req-9", "path": "/v1/projects/p1"}),
		)
		Expect(e).To(Succeed())
		Expect(c.Extra).To(HaveLen(3))
	})

	DescribeTable("invalid requests are rejected",
		func(userID string, t ResourceType, resourceID string, action Permission, sentinel error) {
			_, e := NewContext(userID, t, resourceID, action)
			Expect(e).To(MatchError(sentinel))
		},
		Entry("empty user", "", ResourceProject, "p1", Read, ErrInvalidContext),
		Entry("empty resource id", "alice", ResourceProject, "", Read, ErrInvalidContext),
		Entry("unknown resource type", "alice", ResourceType("cluster"), "c1", Read, ErrUnknownResourceType),
		Entry("zero action", "alice", ResourceProject, "p1", None, ErrUnknownPermission),
		Entry("unknown action bit", "alice", ResourceProject, "p1", Permission(1<<19), ErrUnknownPermission),
	)

	It("rejects explicit sets with unknown bits", func() {
		_, e := NewContext("alice", ResourceProject, "p1", Read, WithExplicit(Permission(1<<21)))
		Expect(e).To(MatchError(ErrUnknownPermission))
	})
})
