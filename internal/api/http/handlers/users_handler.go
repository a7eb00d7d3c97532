package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/servisdesk/servisdesk/internal/api/dto"
	"github.com/servisdesk/servisdesk/internal/domain"
	"github.com/servisdesk/servisdesk/internal/search"
	"github.com/servisdesk/servisdesk/internal/service"
	apperrors "github.com/servisdesk/servisdesk/pkg/errorutil"
)

// UsersHandler exposes identity management for administrators.
type UsersHandler struct {
	identities *service.IdentityService
}

// NewUsersHandler constructs handler.
func NewUsersHandler(identities *service.IdentityService) *UsersHandler {
	return &UsersHandler{identities: identities}
}

func withProfile(item *domain.IdentityWithProfile) dto.IdentityResponse {
	return identityResponse(&item.Identity, &item.Profile)
}

// ListUsers GET /users.
func (h *UsersHandler) ListUsers(c *fiber.Ctx) error {
	actor, err := currentIdentity(c)
	if err != nil {
		return err
	}
	criteria := search.IdentityCriteria{
		Term:       strings.TrimSpace(c.Query("search")),
		Department: strings.TrimSpace(c.Query("department")),
	}
	if raw := strings.TrimSpace(c.Query("is_active")); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			return apperrors.NewValidationError("validation failed", map[string]any{"is_active": "expected 1 or 0"})
		}
		criteria.Active = &active
	}
	page, err := h.identities.SearchIdentities(c.UserContext(), actor, criteria, search.ParsePageNumber(c.Query("page")))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": pageResponse(page, withProfile)})
}

// CreateUser POST /users.
func (h *UsersHandler) CreateUser(c *fiber.Ctx) error {
	actor, err := currentIdentity(c)
	if err != nil {
		return err
	}
	var req dto.CreateUserRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	created, err := h.identities.CreateIdentity(c.UserContext(), actor, service.IdentityCreateInput{
		Username:   req.Username,
		Email:      req.Email,
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		Password1:  req.Password1,
		Password2:  req.Password2,
		Phone:      req.Phone,
		Department: req.Department,
		Position:   req.Position,
		IsStaff:    req.IsStaff,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": withProfile(created)})
}

// GetUser GET /users/:id.
func (h *UsersHandler) GetUser(c *fiber.Ctx) error {
	actor, err := currentIdentity(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "identity")
	if err != nil {
		return err
	}
	found, err := h.identities.GetIdentity(c.UserContext(), actor, id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": withProfile(found)})
}

// UpdateUser PATCH /users/:id.
func (h *UsersHandler) UpdateUser(c *fiber.Ctx) error {
	actor, err := currentIdentity(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "identity")
	if err != nil {
		return err
	}
	var req dto.UpdateUserRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	updated, err := h.identities.UpdateIdentity(c.UserContext(), actor, id, service.IdentityUpdateInput{
		Username:     req.Username,
		Email:        req.Email,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Phone:        req.Phone,
		Department:   req.Department,
		Position:     req.Position,
		IsStaff:      req.IsStaff,
		IsActive:     req.IsActive,
		NewPassword1: req.NewPassword1,
		NewPassword2: req.NewPassword2,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": withProfile(updated)})
}

// ToggleActive POST /users/:id/toggle-active.
func (h *UsersHandler) ToggleActive(c *fiber.Ctx) error {
	actor, err := currentIdentity(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "identity")
	if err != nil {
		return err
	}
	toggled, err := h.identities.ToggleActive(c.UserContext(), actor, id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": withProfile(toggled)})
}

// DeleteUser DELETE /users/:id.
func (h *UsersHandler) DeleteUser(c *fiber.Ctx) error {
	actor, err := currentIdentity(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "identity")
	if err != nil {
		return err
	}
	if err := h.identities.DeleteIdentity(c.UserContext(), actor, id); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}
