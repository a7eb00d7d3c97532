package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/servisdesk/servisdesk/internal/api/dto"
	"github.com/servisdesk/servisdesk/internal/auth"
	"github.com/servisdesk/servisdesk/internal/domain"
	"github.com/servisdesk/servisdesk/internal/search"
	apperrors "github.com/servisdesk/servisdesk/pkg/errorutil"
)

func currentIdentity(c *fiber.Ctx) (*domain.Identity, error) {
	identity, ok := auth.PrincipalFromContext(c)
	if !ok {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	return identity, nil
}

// pathID reads a numeric route parameter. Anything else cannot name a record.
func pathID(c *fiber.Ctx, resource string) (int64, error) {
	raw := c.Params("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.NewNotFound(resource, map[string]any{"id": raw})
	}
	return id, nil
}

func parseBody(c *fiber.Ctx, out interface{}) error {
	if err := c.BodyParser(out); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	return nil
}

func ticketResponse(t *domain.Ticket) dto.TicketResponse {
	return dto.TicketResponse{
		ID:            t.ID,
		Title:         t.Title,
		Description:   t.Description,
		Status:        t.Status,
		StatusLabel:   t.Status.Label(),
		StatusColor:   t.Status.Color(),
		Priority:      t.Priority,
		PriorityLabel: t.Priority.Label(),
		PriorityColor: t.Priority.Color(),
		CreatorID:     t.CreatorID,
		AssigneeID:    t.AssigneeID,
		IsResolved:    t.IsResolved(),
		CreatedAt:     t.CreatedAt,
		UpdatedAt:     t.UpdatedAt,
		ResolvedAt:    t.ResolvedAt,
	}
}

func ticketResponses(tickets []domain.Ticket) []dto.TicketResponse {
	items := make([]dto.TicketResponse, 0, len(tickets))
	for i := range tickets {
		items = append(items, ticketResponse(&tickets[i]))
	}
	return items
}

func commentResponse(c *domain.Comment) dto.CommentResponse {
	return dto.CommentResponse{
		ID:         c.ID,
		TicketID:   c.TicketID,
		AuthorID:   c.AuthorID,
		Content:    c.Content,
		IsInternal: c.IsInternal,
		CreatedAt:  c.CreatedAt,
	}
}

func identityResponse(identity *domain.Identity, profile *domain.Profile) dto.IdentityResponse {
	resp := dto.IdentityResponse{
		ID:          identity.ID,
		Username:    identity.Username,
		FirstName:   identity.FirstName,
		LastName:    identity.LastName,
		FullName:    identity.FullName(),
		Email:       identity.Email,
		IsActive:    identity.IsActive,
		IsStaff:     identity.IsStaff,
		IsSuperuser: identity.IsSuperuser,
		DateJoined:  identity.DateJoined,
		LastLogin:   identity.LastLogin,
	}
	if profile != nil {
		resp.Profile = dto.ProfileResponse{
			Phone:      profile.Phone,
			Department: profile.Department,
			Position:   profile.Position,
			IsActive:   profile.IsActive,
			CreatedAt:  profile.CreatedAt,
			UpdatedAt:  profile.UpdatedAt,
		}
	}
	return resp
}

func pageResponse[T, R any](page *search.Page[T], convert func(*T) R) dto.PageResponse[R] {
	items := make([]R, 0, len(page.Items))
	for i := range page.Items {
		items = append(items, convert(&page.Items[i]))
	}
	return dto.PageResponse[R]{
		Items:       items,
		Page:        page.Number,
		PageSize:    page.Size,
		Total:       page.Total,
		Pages:       page.Pages,
		HasNext:     page.HasNext,
		HasPrevious: page.HasPrevious,
	}
}
