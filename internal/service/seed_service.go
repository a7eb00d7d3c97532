package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/servisdesk/servisdesk/internal/domain"
	apperrors "github.com/servisdesk/servisdesk/pkg/errorutil"
)

// DemoPassword is set on every seeded account.
const DemoPassword = "servisdesk123"

type demoTicket struct {
	creator     string
	title       string
	description string
	priority    domain.TicketPriority
	status      domain.TicketStatus
}

var demoIdentities = []IdentityCreateInput{
	{Username: "support", FirstName: "Sam", LastName: "Support", Email: "support@example.com", Department: "IT", Position: "Support engineer", Phone: "+1-555-010-0001", IsStaff: true},
	{Username: "ivanov", FirstName: "Ivan", LastName: "Ivanov", Email: "ivanov@example.com", Department: "IT", Position: "Developer", Phone: "+1-555-010-0002"},
	{Username: "petrova", FirstName: "Maria", LastName: "Petrova", Email: "petrova@example.com", Department: "Accounting", Position: "Accountant", Phone: "+1-555-010-0003"},
	{Username: "sidorov", FirstName: "Alexey", LastName: "Sidorov", Email: "sidorov@example.com", Department: "Sales", Position: "Manager", Phone: "+1-555-010-0004"},
}

var demoTickets = []demoTicket{
	{"ivanov", "Printer problem", "The HP LaserJet reports a paper jam on every job although the tray is full.", domain.TicketPriorityMedium, domain.TicketStatusNew},
	{"petrova", "Database access needed", "A new sales colleague needs read access to the customers and orders tables.", domain.TicketPriorityHigh, domain.TicketStatusInProgress},
	{"sidorov", "Office suite upgrade", "Every workstation in the department still runs the 2016 office suite and needs the current release.", domain.TicketPriorityLow, domain.TicketStatusResolved},
	{"ivanov", "Broken keyboard", "The keyboard in room 305 does not register any key presses and needs replacing.", domain.TicketPriorityMedium, domain.TicketStatusNew},
	{"petrova", "Slow internet", "Pages load very slowly across the accounting department. Please check the network equipment.", domain.TicketPriorityCritical, domain.TicketStatusInProgress},
}

// SeedResult summarises a seeding run.
type SeedResult struct {
	IdentitiesCreated int
	IdentitiesSkipped int
	TicketsCreated    int
}

// SeedService loads demo identities and tickets into an empty installation.
type SeedService struct {
	identities *IdentityService
	tickets    *TicketService
	logger     *zap.Logger
}

// NewSeedService constructs the service.
func NewSeedService(identities *IdentityService, tickets *TicketService, logger *zap.Logger) *SeedService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SeedService{identities: identities, tickets: tickets, logger: logger}
}

// Run creates the demo accounts. Tickets are only seeded for accounts created
// by this run, so repeated runs do not duplicate them.
func (s *SeedService) Run(ctx context.Context) (*SeedResult, error) {
	result := &SeedResult{}
	created := make(map[string]*domain.Identity, len(demoIdentities))
	var agent *domain.Identity

	for _, input := range demoIdentities {
		input.Password1, input.Password2 = DemoPassword, DemoPassword
		record, err := s.identities.Seed(ctx, input)
		if apperrors.HasCode(err, apperrors.CodeConflict) {
			result.IdentitiesSkipped++
			s.logger.Info("seed identity exists", zap.String("username", input.Username))
			continue
		}
		if err != nil {
			return result, err
		}
		identity := record.Identity
		created[identity.Username] = &identity
		if identity.IsStaff {
			agent = &identity
		}
		result.IdentitiesCreated++
	}

	for _, demo := range demoTickets {
		creator, ok := created[demo.creator]
		if !ok {
			continue
		}
		ticket, err := s.tickets.CreateTicket(ctx, creator, TicketCreateInput{
			Title:       demo.title,
			Description: demo.description,
			Priority:    demo.priority,
		})
		if err != nil {
			return result, err
		}
		result.TicketsCreated++
		if demo.status == domain.TicketStatusNew || agent == nil {
			continue
		}
		if _, err := s.tickets.AssignTicket(ctx, agent, ticket.ID, &agent.ID); err != nil {
			return result, err
		}
		if demo.status != domain.TicketStatusInProgress {
			if _, err := s.tickets.ChangeStatus(ctx, agent, ticket.ID, demo.status); err != nil {
				return result, err
			}
		}
	}

	s.logger.Info("seed completed",
		zap.Int("identities_created", result.IdentitiesCreated),
		zap.Int("identities_skipped", result.IdentitiesSkipped),
		zap.Int("tickets_created", result.TicketsCreated),
	)
	return result, nil
}
