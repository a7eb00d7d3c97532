package service

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/servisdesk/servisdesk/internal/domain"
	"github.com/servisdesk/servisdesk/internal/events"
	"github.com/servisdesk/servisdesk/internal/policy"
	"github.com/servisdesk/servisdesk/internal/repository"
	"github.com/servisdesk/servisdesk/internal/search"
	apperrors "github.com/servisdesk/servisdesk/pkg/errorutil"
)

const (
	adminRecentTickets  = 10
	memberRecentTickets = 5
	commentPreviewLen   = 120
)

// TicketService coordinates ticket and comment workflows.
type TicketService struct {
	tickets    repository.TicketRepository
	comments   repository.CommentRepository
	identities repository.IdentityRepository
	tx         repository.Transactor
	dispatcher events.Dispatcher
	logger     *zap.Logger
	now        func() time.Time
}

// TicketDependencies bundles repositories for ticket service.
type TicketDependencies struct {
	TicketRepo   repository.TicketRepository
	CommentRepo  repository.CommentRepository
	IdentityRepo repository.IdentityRepository
	Transactor   repository.Transactor
	Dispatcher   events.Dispatcher
	Logger       *zap.Logger
	Clock        func() time.Time
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	Title       string
	Description string
	Priority    domain.TicketPriority
}

// TicketUpdateInput carries the fields of a partial ticket update. Status and
// assignee changes are reserved for administrators. AssigneeSet distinguishes
// "unassign" (AssigneeSet with nil AssigneeID) from "leave unchanged".
type TicketUpdateInput struct {
	Title       *string
	Description *string
	Priority    *domain.TicketPriority
	Status      *domain.TicketStatus
	AssigneeSet bool
	AssigneeID  *int64
}

// TicketDetail is a ticket with the part of its thread the caller may read.
type TicketDetail struct {
	Ticket   domain.Ticket
	Comments []domain.Comment
}

// DashboardStats summarises the tickets in the caller's scope.
type DashboardStats struct {
	Total            int
	New              int
	InProgress       int
	Resolved         int
	ActiveIdentities *int
	Recent           []domain.Ticket
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TicketService{
		tickets:    deps.TicketRepo,
		comments:   deps.CommentRepo,
		identities: deps.IdentityRepo,
		tx:         deps.Transactor,
		dispatcher: deps.Dispatcher,
		logger:     logger,
		now:        clock,
	}
}

// CreateTicket files a new ticket on behalf of creator.
func (s *TicketService) CreateTicket(ctx context.Context, creator *domain.Identity, input TicketCreateInput) (*domain.Ticket, error) {
	if creator == nil {
		return nil, apperrors.NewUnauthorized("authentication required")
	}

	ticket := &domain.Ticket{
		Title:       strings.TrimSpace(input.Title),
		Description: strings.TrimSpace(input.Description),
		Status:      domain.TicketStatusNew,
		Priority:    input.Priority,
		CreatorID:   creator.ID,
	}
	if ticket.Priority == "" {
		ticket.Priority = domain.TicketPriorityMedium
	}
	if err := validateTicket(ticket); err != nil {
		return nil, err
	}

	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, s.storeError("create ticket", err)
	}
	s.publishEvent(ctx, events.EventTicketCreated, creator.ID, ticket.ID, events.TicketCreatedPayload{
		Title:    ticket.Title,
		Priority: ticket.Priority,
	})
	return ticket, nil
}

// GetTicket returns a ticket and its visible comments. Tickets the caller may
// not see are reported as missing.
func (s *TicketService) GetTicket(ctx context.Context, actor *domain.Identity, ticketID int64) (*TicketDetail, error) {
	ticket, err := s.loadTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !policy.CanViewTicket(actor, ticket) {
		return nil, ticketNotFound(ticketID)
	}
	thread, err := s.comments.ListByTicket(ctx, ticket.ID)
	if err != nil {
		return nil, s.storeError("list comments", err)
	}
	return &TicketDetail{Ticket: *ticket, Comments: policy.VisibleComments(actor, thread)}, nil
}

// UpdateTicket applies a partial update.
func (s *TicketService) UpdateTicket(ctx context.Context, actor *domain.Identity, ticketID int64, input TicketUpdateInput) (*domain.Ticket, error) {
	ticket, err := s.loadTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !policy.CanEditTicket(actor, ticket) {
		return nil, ticketNotFound(ticketID)
	}
	admin := policy.IsAdministrator(actor)
	if (input.Status != nil || input.AssigneeSet) && !admin {
		return nil, apperrors.NewForbidden("only administrators may change status or assignee")
	}

	if input.Title != nil {
		ticket.Title = strings.TrimSpace(*input.Title)
	}
	if input.Description != nil {
		ticket.Description = strings.TrimSpace(*input.Description)
	}
	if input.Priority != nil {
		ticket.Priority = *input.Priority
	}
	if input.Status != nil && !input.Status.Valid() {
		return nil, apperrors.NewValidationError("validation failed", map[string]any{"status": "unknown status"})
	}
	if err := validateTicket(ticket); err != nil {
		return nil, err
	}

	now := s.now()
	oldStatus := ticket.Status
	oldAssignee := ticket.AssigneeID
	assigneeChanged := false
	if input.AssigneeSet {
		// Same rule as AssignTicket: naming an assignee, even the current
		// one, moves the ticket to in_progress.
		assigneeChanged = !sameAssignee(ticket.AssigneeID, input.AssigneeID)
		if err := s.applyAssignee(ctx, ticket, input.AssigneeID, now); err != nil {
			return nil, err
		}
	}
	if input.Status != nil {
		ticket.SetStatus(*input.Status, now)
	}

	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, s.storeError("update ticket", err)
	}

	s.publishEvent(ctx, events.EventTicketUpdated, actor.ID, ticket.ID, nil)
	if assigneeChanged {
		s.publishEvent(ctx, events.EventTicketAssigned, actor.ID, ticket.ID, events.TicketAssignedPayload{
			PreviousAssigneeID: oldAssignee,
			AssigneeID:         ticket.AssigneeID,
		})
	}
	if ticket.Status != oldStatus {
		s.publishEvent(ctx, events.EventTicketStatusChanged, actor.ID, ticket.ID, events.TicketStatusChangedPayload{
			OldStatus: oldStatus,
			NewStatus: ticket.Status,
		})
	}
	return ticket, nil
}

// AssignTicket sets or clears the assignee. Assigning moves the ticket to
// in_progress; unassigning leaves the status alone.
func (s *TicketService) AssignTicket(ctx context.Context, actor *domain.Identity, ticketID int64, assigneeID *int64) (*domain.Ticket, error) {
	if !policy.CanAssign(actor) {
		return nil, apperrors.NewForbidden("only administrators may assign tickets")
	}
	ticket, err := s.loadTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}

	oldStatus := ticket.Status
	oldAssignee := ticket.AssigneeID
	if err := s.applyAssignee(ctx, ticket, assigneeID, s.now()); err != nil {
		return nil, err
	}
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, s.storeError("assign ticket", err)
	}

	s.publishEvent(ctx, events.EventTicketAssigned, actor.ID, ticket.ID, events.TicketAssignedPayload{
		PreviousAssigneeID: oldAssignee,
		AssigneeID:         ticket.AssigneeID,
	})
	if ticket.Status != oldStatus {
		s.publishEvent(ctx, events.EventTicketStatusChanged, actor.ID, ticket.ID, events.TicketStatusChangedPayload{
			OldStatus: oldStatus,
			NewStatus: ticket.Status,
		})
	}
	return ticket, nil
}

// ChangeStatus sets any of the five statuses.
func (s *TicketService) ChangeStatus(ctx context.Context, actor *domain.Identity, ticketID int64, status domain.TicketStatus) (*domain.Ticket, error) {
	if !policy.CanChangeStatus(actor) {
		return nil, apperrors.NewForbidden("only administrators may change ticket status")
	}
	if !status.Valid() {
		return nil, apperrors.NewValidationError("validation failed", map[string]any{"status": "unknown status"})
	}
	ticket, err := s.loadTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}

	oldStatus := ticket.Status
	ticket.SetStatus(status, s.now())
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, s.storeError("change status", err)
	}
	s.publishEvent(ctx, events.EventTicketStatusChanged, actor.ID, ticket.ID, events.TicketStatusChangedPayload{
		OldStatus: oldStatus,
		NewStatus: status,
	})
	return ticket, nil
}

// DeleteTicket removes a ticket and its comments atomically.
func (s *TicketService) DeleteTicket(ctx context.Context, actor *domain.Identity, ticketID int64) error {
	if !policy.CanDeleteTicket(actor) {
		return apperrors.NewForbidden("only administrators may delete tickets")
	}
	ticket, err := s.loadTicket(ctx, ticketID)
	if err != nil {
		return err
	}

	var removed int64
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		n, err := s.comments.DeleteByTicket(ctx, ticket.ID)
		if err != nil {
			return err
		}
		removed = n
		return s.tickets.Delete(ctx, ticket.ID)
	})
	if err != nil {
		return s.storeError("delete ticket", err)
	}

	s.publishEvent(ctx, events.EventTicketDeleted, actor.ID, ticket.ID, events.TicketDeletedPayload{
		Title:           ticket.Title,
		CommentsRemoved: removed,
	})
	return nil
}

// AddComment appends a comment to a ticket the actor can see.
func (s *TicketService) AddComment(ctx context.Context, actor *domain.Identity, ticketID int64, content string, internal bool) (*domain.Comment, error) {
	ticket, err := s.loadTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !policy.CanViewTicket(actor, ticket) {
		return nil, ticketNotFound(ticketID)
	}
	if internal && !policy.CanPostInternalComment(actor) {
		return nil, apperrors.NewForbidden("only administrators may post internal comments")
	}

	comment := &domain.Comment{
		TicketID:   ticket.ID,
		AuthorID:   actor.ID,
		Content:    strings.TrimSpace(content),
		IsInternal: internal,
	}
	if comment.Content == "" {
		return nil, apperrors.NewValidationError("validation failed", map[string]any{"content": "comment must not be empty"})
	}
	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, s.storeError("create comment", err)
	}

	s.publishEvent(ctx, events.EventTicketCommentAdded, actor.ID, ticket.ID, events.TicketCommentAddedPayload{
		CommentID:   comment.ID,
		IsInternal:  comment.IsInternal,
		BodyPreview: stringPreview(comment.Content, commentPreviewLen),
	})
	return comment, nil
}

// SearchTickets returns one page of tickets in the actor's scope.
func (s *TicketService) SearchTickets(ctx context.Context, actor *domain.Identity, criteria search.TicketCriteria, page int) (*search.Page[domain.Ticket], error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	filter := repository.TicketFilter{Criteria: criteria, OwnerID: scopeOwner(actor)}

	total, err := s.tickets.Count(ctx, filter)
	if err != nil {
		return nil, s.storeError("count tickets", err)
	}
	window := search.Paginate(total, page, search.TicketPageSize)
	items, err := s.tickets.List(ctx, filter, window.Size, window.Offset())
	if err != nil {
		return nil, s.storeError("list tickets", err)
	}
	result := search.NewPage(items, window)
	return &result, nil
}

// Dashboard gathers counters and the most recent tickets in scope.
func (s *TicketService) Dashboard(ctx context.Context, actor *domain.Identity) (*DashboardStats, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	owner := scopeOwner(actor)

	counts, err := s.tickets.CountByStatus(ctx, owner)
	if err != nil {
		return nil, s.storeError("count tickets by status", err)
	}
	stats := &DashboardStats{
		New:        counts[domain.TicketStatusNew],
		InProgress: counts[domain.TicketStatusInProgress],
		Resolved:   counts[domain.TicketStatusResolved] + counts[domain.TicketStatusClosed],
	}
	for _, n := range counts {
		stats.Total += n
	}

	limit := memberRecentTickets
	if policy.IsAdministrator(actor) {
		limit = adminRecentTickets
		active, err := s.identities.CountActive(ctx)
		if err != nil {
			return nil, s.storeError("count identities", err)
		}
		stats.ActiveIdentities = &active
	}
	recent, err := s.tickets.List(ctx, repository.TicketFilter{OwnerID: owner}, limit, 0)
	if err != nil {
		return nil, s.storeError("list recent tickets", err)
	}
	stats.Recent = recent
	return stats, nil
}

func (s *TicketService) applyAssignee(ctx context.Context, ticket *domain.Ticket, assigneeID *int64, now time.Time) error {
	if assigneeID == nil {
		ticket.Unassign()
		return nil
	}
	assignee, err := s.identities.GetByID(ctx, *assigneeID)
	if err != nil {
		if apperrors.IsNoRows(err) {
			return apperrors.NewNotFound("assignee", map[string]any{"id": *assigneeID})
		}
		return s.storeError("load assignee", err)
	}
	if !assignee.IsActive {
		return apperrors.NewValidationError("validation failed", map[string]any{"assignee_id": "assignee is not active"})
	}
	ticket.AssignTo(assignee.ID, now)
	return nil
}

func (s *TicketService) loadTicket(ctx context.Context, ticketID int64) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if apperrors.IsNoRows(err) {
			return nil, ticketNotFound(ticketID)
		}
		return nil, s.storeError("load ticket", err)
	}
	return ticket, nil
}

func (s *TicketService) storeError(op string, err error) error {
	mapped := apperrors.ToDomainError(err)
	if mapped.Code == apperrors.CodeInternal {
		s.logger.Error("ticket store failure", zap.String("op", op), zap.Error(err))
	}
	return mapped
}

func (s *TicketService) publishEvent(ctx context.Context, eventType events.EventType, actorID, ticketID int64, payload interface{}) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, events.NewEvent(eventType, actorID, ticketID, s.now(), payload))
}

func validateTicket(ticket *domain.Ticket) error {
	fields := apperrors.FieldErrors{}
	titleLen := utf8.RuneCountInString(strings.TrimSpace(ticket.Title))
	switch {
	case titleLen < domain.TicketTitleMinLength:
		fields.Add("title", "title must be at least 5 characters")
	case titleLen > domain.TicketTitleMaxLength:
		fields.Add("title", "title must be at most 200 characters")
	}
	if utf8.RuneCountInString(strings.TrimSpace(ticket.Description)) < domain.TicketDescriptionMinLength {
		fields.Add("description", "description must be at least 10 characters")
	}
	if !ticket.Priority.Valid() {
		fields.Add("priority", "unknown priority")
	}
	return fields.Err()
}

// scopeOwner restricts non-administrators to their own tickets.
func scopeOwner(actor *domain.Identity) *int64 {
	if policy.IsAdministrator(actor) {
		return nil
	}
	id := actor.ID
	return &id
}

func sameAssignee(current, next *int64) bool {
	if current == nil || next == nil {
		return current == nil && next == nil
	}
	return *current == *next
}

func ticketNotFound(id int64) error {
	return apperrors.NewNotFound("ticket", map[string]any{"id": id})
}

func stringPreview(body string, max int) string {
	body = strings.TrimSpace(body)
	runes := []rune(body)
	if len(runes) <= max {
		return body
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}
