package domain_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/servisdesk/servisdesk/internal/domain"
)

var _ = Describe("Ticket", func() {
	var (
		ticket *domain.Ticket
		t0     time.Time
	)

	BeforeEach(func() {
		t0 = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
		ticket = &domain.Ticket{
			ID:       1,
			Title:    "Printer jam",
			Status:   domain.TicketStatusNew,
			Priority: domain.TicketPriorityMedium,
		}
	})

	Describe("SetStatus", func() {
		It("leaves resolved_at empty for open statuses", func() {
			ticket.SetStatus(domain.TicketStatusInProgress, t0)
			Expect(ticket.ResolvedAt).To(BeNil())
		})

		DescribeTable("stamps resolved_at when entering a finished status",
			func(status domain.TicketStatus) {
				ticket.SetStatus(status, t0)
				Expect(ticket.ResolvedAt).NotTo(BeNil())
				Expect(*ticket.ResolvedAt).To(Equal(t0))
			},
			Entry("resolved", domain.TicketStatusResolved),
			Entry("closed", domain.TicketStatusClosed),
		)

		It("never moves or clears the stamp afterwards", func() {
			ticket.SetStatus(domain.TicketStatusResolved, t0)
			ticket.SetStatus(domain.TicketStatusClosed, t0.Add(time.Hour))
			ticket.SetStatus(domain.TicketStatusNew, t0.Add(2*time.Hour))
			ticket.SetStatus(domain.TicketStatusResolved, t0.Add(3*time.Hour))

			Expect(ticket.Status).To(Equal(domain.TicketStatusResolved))
			Expect(ticket.ResolvedAt).NotTo(BeNil())
			Expect(*ticket.ResolvedAt).To(Equal(t0))
		})
	})

	Describe("assignment", func() {
		DescribeTable("assigning forces in_progress whatever the prior status",
			func(prior domain.TicketStatus) {
				ticket.Status = prior
				ticket.AssignTo(7, t0)
				Expect(ticket.Status).To(Equal(domain.TicketStatusInProgress))
				Expect(ticket.IsAssignedTo(7)).To(BeTrue())
			},
			Entry("new", domain.TicketStatusNew),
			Entry("in_progress", domain.TicketStatusInProgress),
			Entry("resolved", domain.TicketStatusResolved),
			Entry("closed", domain.TicketStatusClosed),
			Entry("cancelled", domain.TicketStatusCancelled),
		)

		It("keeps an earlier resolved_at when a resolved ticket is reassigned", func() {
			ticket.SetStatus(domain.TicketStatusResolved, t0)
			ticket.AssignTo(9, t0.Add(time.Hour))
			Expect(*ticket.ResolvedAt).To(Equal(t0))
		})

		It("unassigning never changes the status", func() {
			ticket.AssignTo(7, t0)
			ticket.SetStatus(domain.TicketStatusCancelled, t0)
			ticket.Unassign()
			Expect(ticket.AssigneeID).To(BeNil())
			Expect(ticket.Status).To(Equal(domain.TicketStatusCancelled))
		})
	})

	Describe("presentation helpers", func() {
		It("maps statuses to badge colors", func() {
			Expect(domain.TicketStatusNew.Color()).To(Equal("primary"))
			Expect(domain.TicketStatusInProgress.Color()).To(Equal("warning"))
			Expect(domain.TicketStatusResolved.Color()).To(Equal("success"))
			Expect(domain.TicketStatusClosed.Color()).To(Equal("secondary"))
			Expect(domain.TicketStatusCancelled.Color()).To(Equal("danger"))
			Expect(domain.TicketStatus("bogus").Color()).To(Equal("secondary"))
		})

		It("maps priorities to badge colors", func() {
			Expect(domain.TicketPriorityLow.Color()).To(Equal("success"))
			Expect(domain.TicketPriorityMedium.Color()).To(Equal("warning"))
			Expect(domain.TicketPriorityHigh.Color()).To(Equal("danger"))
			Expect(domain.TicketPriorityCritical.Color()).To(Equal("dark"))
			Expect(domain.TicketPriority("bogus").Color()).To(Equal("secondary"))
		})

		It("validates enum values", func() {
			Expect(domain.TicketStatus("open").Valid()).To(BeFalse())
			Expect(domain.TicketStatusClosed.Valid()).To(BeTrue())
			Expect(domain.TicketPriority("urgent").Valid()).To(BeFalse())
			Expect(domain.TicketPriorityCritical.Valid()).To(BeTrue())
		})
	})
})

var _ = Describe("Identity", func() {
	It("falls back to the username when no name is set", func() {
		identity := domain.Identity{Username: "jdoe"}
		Expect(identity.FullName()).To(Equal("jdoe"))

		identity.FirstName = "Jane"
		identity.LastName = "Doe"
		Expect(identity.FullName()).To(Equal("Jane Doe"))
	})
})
