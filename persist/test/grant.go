// Package test holds shared conformance cases every grant persister
// implementation must pass. A suite registers its persister with
// TestGrantPersister in BeforeSuite, then includes GrantCases.
package test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/neuralliquid/autopr-engine-sub002/types"
)

var gp types.GrantPersister

// TestGrantPersister registers the persister exercised by GrantCases
func TestGrantPersister(p types.GrantPersister) {
	gp = p
}

func grantOn(user, project string, perms types.Permission) types.Grant {
	return types.Grant{
		UserID:      user,
		Resource:    types.NewResource(types.ResourceProject, project),
		Permissions: perms,
		GrantedBy:   "root",
		GrantedAt:   time.Now().UTC().Truncate(time.Millisecond),
	}
}

func listedGrant(user string, res types.Resource) func() (types.Grant, bool) {
	return func() (types.Grant, bool) {
		grants, e := gp.List()
		Expect(e).To(Succeed())
		for _, g := range grants {
			if g.UserID == user && g.Resource == res {
				return g, true
			}
		}
		return types.Grant{}, false
	}
}

// GrantCases are implementation-independent persister cases. Watchers
// driven by polling coalesce rapid writes, so the cases wait for each
// change to arrive before making the next one.
var GrantCases = Describe("grant persister", func() {
	It("round trips grants", func() {
		alan := grantOn("alan", "apollo", types.Read|types.Write)
		ada := grantOn("ada", "analytical", types.Read)
		Expect(gp.Upsert(alan)).To(Succeed())
		Expect(gp.Upsert(ada)).To(Succeed())

		got, ok := listedGrant("alan", alan.Resource)()
		Expect(ok).To(BeTrue())
		Expect(got.Permissions).To(Equal(types.Read | types.Write))
		Expect(got.GrantedBy).To(Equal("root"))
		Expect(got.GrantedAt).To(BeTemporally("~", alan.GrantedAt, time.Second))

		_, ok = listedGrant("ada", ada.Resource)()
		Expect(ok).To(BeTrue())
	})

	It("replaces the grant of a user-resource pair", func() {
		first := grantOn("hopper", "mark1", types.Read)
		Expect(gp.Upsert(first)).To(Succeed())

		second := grantOn("hopper", "mark1", types.Write|types.Delete)
		Expect(gp.Upsert(second)).To(Succeed())

		got, ok := listedGrant("hopper", first.Resource)()
		Expect(ok).To(BeTrue())
		Expect(got.Permissions).To(Equal(types.Write | types.Delete))
	})

	It("removes grants and tolerates removing absent ones", func() {
		g := grantOn("kay", "smalltalk", types.Read)
		Expect(gp.Upsert(g)).To(Succeed())
		Expect(gp.Remove("kay", g.Resource)).To(Succeed())

		_, ok := listedGrant("kay", g.Resource)()
		Expect(ok).To(BeFalse())

		Expect(gp.Remove("kay", g.Resource)).To(Succeed())
	})

	It("delivers changes to watchers", func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		w, e := gp.Watch(ctx)
		Expect(e).To(Succeed())

		g := grantOn("ritchie", "unix", types.Read)
		Expect(gp.Upsert(g)).To(Succeed())

		var got types.GrantChange
		Eventually(w, "5s").Should(Receive(&got))
		Expect(got.Method).To(Equal(types.PersistInsert))
		Expect(got.UserID).To(Equal("ritchie"))
		Expect(got.Resource).To(Equal(g.Resource))
		Expect(got.Permissions).To(Equal(types.Read))

		g.Permissions = types.Read | types.Execute
		Expect(gp.Upsert(g)).To(Succeed())
		Eventually(w, "5s").Should(Receive(&got))
		Expect(got.Method).To(Equal(types.PersistUpdate))
		Expect(got.Permissions).To(Equal(types.Read | types.Execute))

		Expect(gp.Remove("ritchie", g.Resource)).To(Succeed())
		Eventually(w, "5s").Should(Receive(&got))
		Expect(got.Method).To(Equal(types.PersistDelete))
		Expect(got.UserID).To(Equal("ritchie"))
		Expect(got.Resource).To(Equal(g.Resource))
	})
})
