package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/servisdesk/servisdesk/internal/api/dto"
	"github.com/servisdesk/servisdesk/internal/service"
)

// ProfileHandler serves the caller's own record.
type ProfileHandler struct {
	profiles *service.ProfileService
}

// NewProfileHandler constructs handler.
func NewProfileHandler(profiles *service.ProfileService) *ProfileHandler {
	return &ProfileHandler{profiles: profiles}
}

// GetProfile GET /profile.
func (h *ProfileHandler) GetProfile(c *fiber.Ctx) error {
	actor, err := currentIdentity(c)
	if err != nil {
		return err
	}
	current, err := h.profiles.Get(c.UserContext(), actor)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": withProfile(current)})
}

// UpdateProfile PATCH /profile.
func (h *ProfileHandler) UpdateProfile(c *fiber.Ctx) error {
	actor, err := currentIdentity(c)
	if err != nil {
		return err
	}
	var req dto.UpdateProfileRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	updated, err := h.profiles.Update(c.UserContext(), actor, service.ProfileUpdateInput{
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		Email:      req.Email,
		Phone:      req.Phone,
		Department: req.Department,
		Position:   req.Position,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": withProfile(updated)})
}
