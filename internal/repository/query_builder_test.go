package repository

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/servisdesk/servisdesk/internal/domain"
	"github.com/servisdesk/servisdesk/internal/search"
)

var _ = Describe("buildTicketWhere", func() {
	It("matches everything without criteria", func() {
		where, args := buildTicketWhere(TicketFilter{})
		Expect(where).To(Equal("1=1"))
		Expect(args).To(BeEmpty())
	})

	It("applies the owner scope before any criteria", func() {
		owner := int64(4)
		status := domain.TicketStatusNew
		where, args := buildTicketWhere(TicketFilter{
			OwnerID:  &owner,
			Criteria: search.TicketCriteria{Status: &status},
		})
		Expect(where).To(Equal("1=1 AND creator_id=$1 AND status=$2"))
		Expect(args).To(Equal([]any{int64(4), domain.TicketStatusNew}))
	})

	It("combines every criterion with AND", func() {
		status := domain.TicketStatusNew
		priority := domain.TicketPriorityCritical
		creator := int64(9)
		from := time.Date(2024, 1, 10, 15, 30, 0, 0, time.UTC)
		to := time.Date(2024, 1, 12, 0, 0, 0, 0, time.UTC)

		where, args := buildTicketWhere(TicketFilter{Criteria: search.TicketCriteria{
			Term:        "vpn",
			Status:      &status,
			Priority:    &priority,
			CreatorID:   &creator,
			CreatedFrom: &from,
			CreatedTo:   &to,
		}})

		Expect(where).To(Equal("1=1 AND (title ILIKE $1 OR description ILIKE $1) AND status=$2 AND priority=$3" +
			" AND creator_id=$4 AND created_at >= $5 AND created_at < $6"))
		Expect(args).To(HaveLen(6))
		Expect(args[0]).To(Equal("%vpn%"))
		Expect(args[4]).To(Equal(time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)))
		Expect(args[5]).To(Equal(time.Date(2024, 1, 13, 0, 0, 0, 0, time.UTC)))
	})

	It("ignores a blank search term", func() {
		where, _ := buildTicketWhere(TicketFilter{Criteria: search.TicketCriteria{Term: "   "}})
		Expect(where).To(Equal("1=1"))
	})
})

var _ = Describe("buildIdentityWhere", func() {
	It("searches login, names, email and department", func() {
		where, args := buildIdentityWhere(search.IdentityCriteria{Term: "ops"})
		Expect(where).To(ContainSubstring("i.username ILIKE $1"))
		Expect(where).To(ContainSubstring("p.department ILIKE $1"))
		Expect(args).To(Equal([]any{"%ops%"}))
	})

	It("filters by department and active flag", func() {
		active := false
		where, args := buildIdentityWhere(search.IdentityCriteria{Department: "IT", Active: &active})
		Expect(where).To(Equal("1=1 AND p.department ILIKE $1 AND i.is_active = $2"))
		Expect(args).To(Equal([]any{"%IT%", false}))
	})
})
