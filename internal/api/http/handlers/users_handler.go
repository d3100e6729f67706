package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/todo-service/internal/api/dto"
)

// UsersHandler exposes caller identity endpoints.
type UsersHandler struct{}

// NewUsersHandler constructs handler.
func NewUsersHandler() *UsersHandler {
	return &UsersHandler{}
}

// Me GET /me. The dashboard field is a navigation hint; every operation is still
// authorized on its own.
func (h *UsersHandler) Me(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	return c.JSON(dto.MeResponse{
		UserID:    principal.UserID,
		Role:      principal.Role,
		Dashboard: principal.Dashboard(),
	})
}
