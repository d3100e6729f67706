package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/todo-service/internal/api/dto"
	"github.com/spec-kit/todo-service/internal/service"
)

// SubscriptionHandler exposes the caller's subscription.
type SubscriptionHandler struct {
	service *service.SubscriptionService
}

// NewSubscriptionHandler constructs handler.
func NewSubscriptionHandler(subscriptionService *service.SubscriptionService) *SubscriptionHandler {
	return &SubscriptionHandler{service: subscriptionService}
}

// GetStatus GET /subscription.
func (h *SubscriptionHandler) GetStatus(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	status, err := h.service.GetStatus(c.UserContext(), principal, principal.UserID)
	if err != nil {
		return err
	}
	return c.JSON(dto.NewSubscriptionResponse(status))
}

// Subscribe POST /subscription.
func (h *SubscriptionHandler) Subscribe(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	status, err := h.service.Subscribe(c.UserContext(), principal, principal.UserID)
	if err != nil {
		return err
	}
	return c.JSON(dto.NewSubscriptionResponse(status))
}
