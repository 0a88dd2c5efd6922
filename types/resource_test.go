package types_test

import (
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/ginkgo/extensions/table"
	. "github.com/onsi/gomega"

	. "github.com/neuralliquid/autopr-engine-sub002/types"
)

var _ = Describe("resource", func() {
	DescribeTable("known types parse",
		func(s string, want ResourceType) {
			Expect(ParseResourceType(s)).To(Equal(want))
		},
		Entry("project", "project", ResourceProject),
		Entry("repository", "repository", ResourceRepository),
		Entry("upper case", "WORKFLOW", ResourceWorkflow),
		Entry("padded", " config ", ResourceConfig),
	)

	DescribeTable("unknown types are rejected",
		func(s string) {
			_, e := ParseResourceType(s)
			Expect(e).To(MatchError(ErrUnknownResourceType))
		},
		Entry("empty", ""),
		Entry("typo", "projct"),
		Entry("outside the set", "deployment"),
	)

	It("lists every known type", func() {
		all := AllResourceTypes()
		Expect(all).To(HaveLen(8))
		for _, t := range all {
			Expect(t.Valid()).To(BeTrue(), string(t))
		}
	})

	DescribeTable("serialized form",
		func(r Resource, s string) {
			Expect(r.String()).To(Equal(s))
		},
		Entry("project", NewResource(ResourceProject, "p1"), "project:p1"),
		Entry("workflow", NewResource(ResourceWorkflow, "deploy-prod"), "workflow:deploy-prod"),
	)

	DescribeTable("parse serialized resources",
		func(s string, want Resource) {
			Expect(ParseResource(s)).To(Equal(want))
		},
		Entry("project", "project:p1", NewResource(ResourceProject, "p1")),
		Entry("id with separators", "repository:org/repo", NewResource(ResourceRepository, "org/repo")),
	)

	DescribeTable("reject malformed resources",
		func(s string) {
			_, e := ParseResource(s)
			Expect(e).To(HaveOccurred())
		},
		Entry("no separator", "project"),
		Entry("empty id", "project:"),
		Entry("unknown type", "cluster:c1"),
	)
})

var _ = Describe("role capabilities", func() {
	table := RoleCapabilities{
		RoleViewer: {
			ResourceProject: Read,
		},
		RoleAdmin: {
			ResourceProject:    AllPermissions,
			ResourceRepository: AllPermissions,
		},
	}

	It("lists roles in lexical order", func() {
		Expect(table.Roles()).To(Equal([]Role{RoleAdmin, RoleViewer}))
	})

	It("knows which roles are defined", func() {
		Expect(table.Defined(RoleAdmin)).To(BeTrue())
		Expect(table.Defined(Role("auditor"))).To(BeFalse())
	})

	DescribeTable("permissions of a role on a type",
		func(r Role, t ResourceType, want Permission) {
			Expect(table.PermissionsOf(r, t)).To(Equal(want))
		},
		Entry("viewer reads projects", RoleViewer, ResourceProject, Read),
		Entry("viewer has nothing on repositories", RoleViewer, ResourceRepository, None),
		Entry("undefined role has nothing", Role("auditor"), ResourceProject, None),
	)

	It("clones without aliasing", func() {
		cp := table.Clone()
		cp[RoleViewer][ResourceProject] |= Write
		Expect(table.PermissionsOf(RoleViewer, ResourceProject)).To(Equal(Read))
	})
})
