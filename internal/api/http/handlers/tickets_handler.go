package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/servisdesk/servisdesk/internal/api/dto"
	"github.com/servisdesk/servisdesk/internal/domain"
	"github.com/servisdesk/servisdesk/internal/search"
	"github.com/servisdesk/servisdesk/internal/service"
	apperrors "github.com/servisdesk/servisdesk/pkg/errorutil"
)

// TicketsHandler manages ticket and comment endpoints.
type TicketsHandler struct {
	service  *service.TicketService
	location *time.Location
}

// NewTicketsHandler constructs handler. Date filters are read in loc.
func NewTicketsHandler(ticketService *service.TicketService, loc *time.Location) *TicketsHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &TicketsHandler{service: ticketService, location: loc}
}

// ListTickets GET /tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	actor, err := currentIdentity(c)
	if err != nil {
		return err
	}
	criteria, err := h.parseTicketQuery(c)
	if err != nil {
		return err
	}
	page, err := h.service.SearchTickets(c.UserContext(), actor, criteria, search.ParsePageNumber(c.Query("page")))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": pageResponse(page, ticketResponse)})
}

// CreateTicket POST /tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	actor, err := currentIdentity(c)
	if err != nil {
		return err
	}
	var req dto.CreateTicketRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	ticket, err := h.service.CreateTicket(c.UserContext(), actor, service.TicketCreateInput{
		Title:       req.Title,
		Description: req.Description,
		Priority:    req.Priority,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// GetTicket GET /tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	actor, err := currentIdentity(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "ticket")
	if err != nil {
		return err
	}
	detail, err := h.service.GetTicket(c.UserContext(), actor, id)
	if err != nil {
		return err
	}
	comments := make([]dto.CommentResponse, 0, len(detail.Comments))
	for i := range detail.Comments {
		comments = append(comments, commentResponse(&detail.Comments[i]))
	}
	return c.JSON(fiber.Map{"data": dto.TicketDetailResponse{
		TicketResponse: ticketResponse(&detail.Ticket),
		Comments:       comments,
	}})
}

// UpdateTicket PATCH /tickets/:id.
func (h *TicketsHandler) UpdateTicket(c *fiber.Ctx) error {
	actor, err := currentIdentity(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "ticket")
	if err != nil {
		return err
	}
	var req dto.UpdateTicketRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	ticket, err := h.service.UpdateTicket(c.UserContext(), actor, id, service.TicketUpdateInput{
		Title:       req.Title,
		Description: req.Description,
		Priority:    req.Priority,
		Status:      req.Status,
		AssigneeSet: req.AssigneeID.Set,
		AssigneeID:  req.AssigneeID.Value,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// DeleteTicket DELETE /tickets/:id.
func (h *TicketsHandler) DeleteTicket(c *fiber.Ctx) error {
	actor, err := currentIdentity(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "ticket")
	if err != nil {
		return err
	}
	if err := h.service.DeleteTicket(c.UserContext(), actor, id); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// AssignTicket POST /tickets/:id/assign.
func (h *TicketsHandler) AssignTicket(c *fiber.Ctx) error {
	actor, err := currentIdentity(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "ticket")
	if err != nil {
		return err
	}
	var req dto.AssignTicketRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	ticket, err := h.service.AssignTicket(c.UserContext(), actor, id, req.AssigneeID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// ChangeStatus POST /tickets/:id/status.
func (h *TicketsHandler) ChangeStatus(c *fiber.Ctx) error {
	actor, err := currentIdentity(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "ticket")
	if err != nil {
		return err
	}
	var req dto.ChangeStatusRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	ticket, err := h.service.ChangeStatus(c.UserContext(), actor, id, req.Status)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// AddComment POST /tickets/:id/comments.
func (h *TicketsHandler) AddComment(c *fiber.Ctx) error {
	actor, err := currentIdentity(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "ticket")
	if err != nil {
		return err
	}
	var req dto.CreateCommentRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	comment, err := h.service.AddComment(c.UserContext(), actor, id, req.Content, req.IsInternal)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": commentResponse(comment)})
}

// Dashboard GET /dashboard.
func (h *TicketsHandler) Dashboard(c *fiber.Ctx) error {
	actor, err := currentIdentity(c)
	if err != nil {
		return err
	}
	stats, err := h.service.Dashboard(c.UserContext(), actor)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.DashboardResponse{
		TotalTickets:      stats.Total,
		NewTickets:        stats.New,
		InProgressTickets: stats.InProgress,
		ResolvedTickets:   stats.Resolved,
		ActiveUsers:       stats.ActiveIdentities,
		RecentTickets:     ticketResponses(stats.Recent),
	}})
}

// parseTicketQuery reads search, status, priority, created_by, date_from and
// date_to. Malformed values are reported per field.
func (h *TicketsHandler) parseTicketQuery(c *fiber.Ctx) (search.TicketCriteria, error) {
	criteria := search.TicketCriteria{Term: strings.TrimSpace(c.Query("search"))}
	fields := apperrors.FieldErrors{}

	if raw := strings.TrimSpace(c.Query("status")); raw != "" {
		status := domain.TicketStatus(raw)
		if status.Valid() {
			criteria.Status = &status
		} else {
			fields.Add("status", "unknown status")
		}
	}
	if raw := strings.TrimSpace(c.Query("priority")); raw != "" {
		priority := domain.TicketPriority(raw)
		if priority.Valid() {
			criteria.Priority = &priority
		} else {
			fields.Add("priority", "unknown priority")
		}
	}
	if raw := strings.TrimSpace(c.Query("created_by")); raw != "" {
		creatorID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			fields.Add("created_by", "must be an identity id")
		} else {
			criteria.CreatorID = &creatorID
		}
	}
	var err error
	if criteria.CreatedFrom, err = search.ParseDate(c.Query("date_from"), h.location); err != nil {
		fields.Add("date_from", "expected YYYY-MM-DD")
	}
	if criteria.CreatedTo, err = search.ParseDate(c.Query("date_to"), h.location); err != nil {
		fields.Add("date_to", "expected YYYY-MM-DD")
	}
	return criteria, fields.Err()
}
