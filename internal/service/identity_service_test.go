package service_test

import (
	"context"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/servisdesk/servisdesk/internal/domain"
	"github.com/servisdesk/servisdesk/internal/events"
	"github.com/servisdesk/servisdesk/internal/search"
	"github.com/servisdesk/servisdesk/internal/service"
	apperrors "github.com/servisdesk/servisdesk/pkg/errorutil"
)

var _ = Describe("IdentityService", func() {
	var (
		ctx   context.Context
		f     *fixture
		admin *domain.Identity
		alice *domain.Identity
	)

	validInput := func(username string) service.IdentityCreateInput {
		return service.IdentityCreateInput{
			Username:  username,
			Email:     username + "@example.com",
			FirstName: "New",
			LastName:  "Person",
			Password1: "s3cret-pass",
			Password2: "s3cret-pass",
		}
	}

	BeforeEach(func() {
		ctx = context.Background()
		f = newFixture()
		admin = f.identity("admin", true)
		alice = f.identity("alice", false)
	})

	Describe("CreateIdentity", func() {
		It("creates exactly one empty profile alongside the identity", func() {
			created, err := f.identities.CreateIdentity(ctx, admin, validInput("newbie"))
			Expect(err).NotTo(HaveOccurred())
			Expect(created.Identity.IsActive).To(BeTrue())
			Expect(created.Identity.PasswordHash).NotTo(Equal("s3cret-pass"))

			Expect(f.store.ProfileCount(created.Identity.ID)).To(Equal(1))
			profile, err := f.store.Profiles().GetByIdentity(ctx, created.Identity.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(profile.Phone).To(BeEmpty())
			Expect(profile.Department).To(BeEmpty())
			Expect(profile.Position).To(BeEmpty())
			Expect(profile.IsActive).To(BeTrue())
			Expect(f.events.Types()).To(ContainElement(events.EventIdentityCreated))
		})

		It("stores supplied profile fields", func() {
			input := validInput("withdept")
			input.Department = "Finance"
			input.Phone = "+1 555 0100"
			created, err := f.identities.CreateIdentity(ctx, admin, input)
			Expect(err).NotTo(HaveOccurred())
			Expect(created.Profile.Department).To(Equal("Finance"))
			Expect(created.Profile.Phone).To(Equal("+1 555 0100"))
		})

		It("rejects mismatched passwords", func() {
			input := validInput("mismatch")
			input.Password2 = "something-else"
			_, err := f.identities.CreateIdentity(ctx, admin, input)
			Expect(err).To(haveCode(apperrors.CodeValidation))
			Expect(apperrors.ToDomainError(err).Details).To(HaveKeyWithValue("password2", "passwords do not match"))
		})

		It("rejects a password beyond the bcrypt byte limit as a field error", func() {
			input := validInput("cyrillic")
			input.Password1 = strings.Repeat("пароль", 7)
			input.Password2 = input.Password1
			_, err := f.identities.CreateIdentity(ctx, admin, input)
			Expect(err).To(haveCode(apperrors.CodeValidation))
			Expect(apperrors.ToDomainError(err).Details).To(HaveKeyWithValue("password2", "password must be at most 72 bytes"))
		})

		It("reports a taken username as a conflict", func() {
			_, err := f.identities.CreateIdentity(ctx, admin, validInput("alice"))
			Expect(err).To(haveCode(apperrors.CodeConflict))
		})

		It("leaves nothing behind when the profile insert fails", func() {
			f.store.FailOn("profiles.create", apperrors.NewInternalError(nil))
			_, err := f.identities.CreateIdentity(ctx, admin, validInput("ghost"))
			Expect(err).To(HaveOccurred())

			_, err = f.store.Identities().GetByUsername(ctx, "ghost")
			Expect(apperrors.IsNoRows(err)).To(BeTrue())
		})

		It("is reserved for administrators", func() {
			_, err := f.identities.CreateIdentity(ctx, alice, validInput("sneaky"))
			Expect(err).To(haveCode(apperrors.CodeForbidden))
		})
	})

	Describe("UpdateIdentity", func() {
		It("saves the identity and refreshes its profile together", func() {
			before, err := f.store.Profiles().GetByIdentity(ctx, alice.ID)
			Expect(err).NotTo(HaveOccurred())

			updated, err := f.identities.UpdateIdentity(ctx, admin, alice.ID, service.IdentityUpdateInput{
				FirstName:  ptr("Alicia"),
				Department: ptr("Support"),
				IsStaff:    ptr(true),
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(updated.Identity.FirstName).To(Equal("Alicia"))
			Expect(updated.Identity.IsStaff).To(BeTrue())

			after, err := f.store.Profiles().GetByIdentity(ctx, alice.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(after.Department).To(Equal("Support"))
			Expect(after.UpdatedAt).To(BeTemporally(">", before.UpdatedAt))
		})

		It("refuses to deactivate the acting administrator", func() {
			_, err := f.identities.UpdateIdentity(ctx, admin, admin.ID, service.IdentityUpdateInput{IsActive: ptr(false)})
			Expect(err).To(haveCode(apperrors.CodeForbidden))
		})

		It("rejects a new password pair that does not match", func() {
			_, err := f.identities.UpdateIdentity(ctx, admin, alice.ID, service.IdentityUpdateInput{
				NewPassword1: "first-password",
				NewPassword2: "second-password",
			})
			Expect(err).To(haveCode(apperrors.CodeValidation))
		})

		It("rejects a new password beyond the bcrypt byte limit", func() {
			long := strings.Repeat("пароль", 7)
			_, err := f.identities.UpdateIdentity(ctx, admin, alice.ID, service.IdentityUpdateInput{
				NewPassword1: long,
				NewPassword2: long,
			})
			Expect(err).To(haveCode(apperrors.CodeValidation))
			Expect(apperrors.ToDomainError(err).Details).To(HaveKey("new_password2"))
		})

		It("reports unknown identities as not found", func() {
			_, err := f.identities.UpdateIdentity(ctx, admin, 9999, service.IdentityUpdateInput{})
			Expect(err).To(haveCode(apperrors.CodeNotFound))
		})
	})

	Describe("ToggleActive and DeleteIdentity", func() {
		It("flips the active flag of another identity", func() {
			toggled, err := f.identities.ToggleActive(ctx, admin, alice.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(toggled.Identity.IsActive).To(BeFalse())

			toggled, err = f.identities.ToggleActive(ctx, admin, alice.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(toggled.Identity.IsActive).To(BeTrue())
		})

		It("protects the acting administrator", func() {
			_, err := f.identities.ToggleActive(ctx, admin, admin.ID)
			Expect(err).To(haveCode(apperrors.CodeForbidden))
			Expect(f.identities.DeleteIdentity(ctx, admin, admin.ID)).To(haveCode(apperrors.CodeForbidden))
		})

		It("cascades deletion to the profile and created tickets", func() {
			ticket := f.ticket(alice, "Soon to vanish", domain.TicketPriorityLow)
			Expect(f.identities.DeleteIdentity(ctx, admin, alice.ID)).To(Succeed())

			Expect(f.store.ProfileCount(alice.ID)).To(BeZero())
			Expect(f.store.TicketExists(ticket.ID)).To(BeFalse())
		})

		It("unassigns tickets of a deleted assignee", func() {
			bob := f.identity("bob", false)
			ticket := f.ticket(alice, "Assigned to bob", domain.TicketPriorityLow)
			_, err := f.tickets.AssignTicket(ctx, admin, ticket.ID, ptr(bob.ID))
			Expect(err).NotTo(HaveOccurred())

			Expect(f.identities.DeleteIdentity(ctx, admin, bob.ID)).To(Succeed())
			stored, err := f.store.Tickets().GetByID(ctx, ticket.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(stored.AssigneeID).To(BeNil())
			Expect(stored.Status).To(Equal(domain.TicketStatusInProgress))
		})
	})

	Describe("SearchIdentities", func() {
		It("filters by department and active flag", func() {
			_, err := f.identities.UpdateIdentity(ctx, admin, alice.ID, service.IdentityUpdateInput{Department: ptr("Finance")})
			Expect(err).NotTo(HaveOccurred())
			carol := f.identity("carol", false)
			_, err = f.identities.UpdateIdentity(ctx, admin, carol.ID, service.IdentityUpdateInput{
				Department: ptr("Finance"),
				IsActive:   ptr(false),
			})
			Expect(err).NotTo(HaveOccurred())

			page, err := f.identities.SearchIdentities(ctx, admin, search.IdentityCriteria{Department: "fin"}, 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(page.Total).To(Equal(2))
			Expect(page.Items[0].Identity.Username).To(Equal("carol"))

			page, err = f.identities.SearchIdentities(ctx, admin, search.IdentityCriteria{Department: "fin", Active: ptr(true)}, 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(page.Total).To(Equal(1))
			Expect(page.Items[0].Identity.Username).To(Equal("alice"))
		})

		It("matches the term across names and email", func() {
			page, err := f.identities.SearchIdentities(ctx, admin, search.IdentityCriteria{Term: "ALICE@"}, 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(page.Total).To(Equal(1))
		})

		It("is reserved for administrators", func() {
			_, err := f.identities.SearchIdentities(ctx, alice, search.IdentityCriteria{}, 1)
			Expect(err).To(haveCode(apperrors.CodeForbidden))
		})
	})
})

var _ = Describe("ProfileService", func() {
	It("updates the caller's names and profile fields", func() {
		ctx := context.Background()
		f := newFixture()
		alice := f.identity("alice", false)

		updated, err := f.profiles.Update(ctx, alice, service.ProfileUpdateInput{
			LastName: ptr("Liddell"),
			Email:    ptr("alice@wonderland.example"),
			Position: ptr("Analyst"),
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(updated.Identity.LastName).To(Equal("Liddell"))
		Expect(updated.Profile.Position).To(Equal("Analyst"))

		reloaded, err := f.profiles.Get(ctx, alice)
		Expect(err).NotTo(HaveOccurred())
		Expect(reloaded.Identity.Email).To(Equal("alice@wonderland.example"))
		Expect(reloaded.Profile.Position).To(Equal("Analyst"))
	})

	It("rejects an invalid email", func() {
		f := newFixture()
		alice := f.identity("alice", false)
		_, err := f.profiles.Update(context.Background(), alice, service.ProfileUpdateInput{Email: ptr("not-an-email")})
		Expect(err).To(haveCode(apperrors.CodeValidation))
	})
})
