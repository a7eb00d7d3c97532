package policy_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/servisdesk/servisdesk/internal/domain"
	"github.com/servisdesk/servisdesk/internal/policy"
)

func ptr(v int64) *int64 { return &v }

var _ = Describe("Access policy", func() {
	var (
		admin     *domain.Identity
		superuser *domain.Identity
		creator   *domain.Identity
		assignee  *domain.Identity
		stranger  *domain.Identity
		ticket    *domain.Ticket
	)

	BeforeEach(func() {
		admin = &domain.Identity{ID: 1, Username: "admin", IsActive: true, IsStaff: true}
		superuser = &domain.Identity{ID: 2, Username: "root", IsActive: true, IsSuperuser: true}
		creator = &domain.Identity{ID: 3, Username: "alice", IsActive: true}
		assignee = &domain.Identity{ID: 4, Username: "bob", IsActive: true}
		stranger = &domain.Identity{ID: 5, Username: "carol", IsActive: true}
		ticket = &domain.Ticket{ID: 10, CreatorID: creator.ID, AssigneeID: ptr(assignee.ID)}
	})

	Describe("IsAdministrator", func() {
		It("accepts staff and superusers", func() {
			Expect(policy.IsAdministrator(admin)).To(BeTrue())
			Expect(policy.IsAdministrator(superuser)).To(BeTrue())
		})

		It("rejects regular, inactive and anonymous identities", func() {
			Expect(policy.IsAdministrator(creator)).To(BeFalse())
			admin.IsActive = false
			Expect(policy.IsAdministrator(admin)).To(BeFalse())
			Expect(policy.IsAdministrator(nil)).To(BeFalse())
		})
	})

	Describe("CanViewTicket", func() {
		It("allows administrators and the creator", func() {
			Expect(policy.CanViewTicket(admin, ticket)).To(BeTrue())
			Expect(policy.CanViewTicket(creator, ticket)).To(BeTrue())
		})

		It("denies every non-admin who did not create the ticket", func() {
			Expect(policy.CanViewTicket(stranger, ticket)).To(BeFalse())
			Expect(policy.CanViewTicket(assignee, ticket)).To(BeFalse())
		})
	})

	Describe("CanEditTicket", func() {
		It("allows administrators, the creator and the assignee", func() {
			Expect(policy.CanEditTicket(admin, ticket)).To(BeTrue())
			Expect(policy.CanEditTicket(creator, ticket)).To(BeTrue())
			Expect(policy.CanEditTicket(assignee, ticket)).To(BeTrue())
		})

		It("denies everyone else", func() {
			Expect(policy.CanEditTicket(stranger, ticket)).To(BeFalse())
			ticket.AssigneeID = nil
			Expect(policy.CanEditTicket(assignee, ticket)).To(BeFalse())
		})
	})

	Describe("administrator-only operations", func() {
		It("never escalates a non-admin assignee", func() {
			Expect(policy.CanAssign(assignee)).To(BeFalse())
			Expect(policy.CanChangeStatus(assignee)).To(BeFalse())
			Expect(policy.CanDeleteTicket(assignee)).To(BeFalse())
			Expect(policy.CanManageIdentities(assignee)).To(BeFalse())
			Expect(policy.CanPostInternalComment(creator)).To(BeFalse())
		})

		It("grants administrators", func() {
			Expect(policy.CanAssign(admin)).To(BeTrue())
			Expect(policy.CanChangeStatus(superuser)).To(BeTrue())
			Expect(policy.CanDeleteTicket(admin)).To(BeTrue())
			Expect(policy.CanManageIdentities(admin)).To(BeTrue())
		})
	})

	Describe("self protection", func() {
		It("rejects deactivating or deleting the acting identity", func() {
			Expect(policy.CanDeactivateIdentity(admin, admin.ID)).To(BeFalse())
			Expect(policy.CanDeleteIdentity(admin, admin.ID)).To(BeFalse())
			Expect(policy.CanDeactivateIdentity(admin, creator.ID)).To(BeTrue())
			Expect(policy.CanDeleteIdentity(admin, creator.ID)).To(BeTrue())
		})
	})

	Describe("comment visibility", func() {
		var thread []domain.Comment

		BeforeEach(func() {
			thread = []domain.Comment{
				{ID: 1, TicketID: ticket.ID, AuthorID: creator.ID, Content: "still broken"},
				{ID: 2, TicketID: ticket.ID, AuthorID: admin.ID, Content: "vendor issue", IsInternal: true},
				{ID: 3, TicketID: ticket.ID, AuthorID: admin.ID, Content: "on it"},
			}
		})

		It("hides internal comments from the non-admin creator", func() {
			visible := policy.VisibleComments(creator, thread)
			Expect(visible).To(HaveLen(2))
			for _, c := range visible {
				Expect(c.IsInternal).To(BeFalse())
			}
		})

		It("shows the full thread to administrators in order", func() {
			visible := policy.VisibleComments(admin, thread)
			Expect(visible).To(HaveLen(3))
			Expect(visible[1].ID).To(Equal(int64(2)))
		})
	})
})
