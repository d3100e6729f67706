package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/todo-service/internal/api/dto"
	"github.com/spec-kit/todo-service/internal/observability"
	"github.com/spec-kit/todo-service/internal/service"
)

// WebhookHandler receives identity provider deliveries.
type WebhookHandler struct {
	service *service.ProvisioningService
	metrics *observability.Metrics
	logger  *zap.Logger
}

// NewWebhookHandler constructs handler.
func NewWebhookHandler(provisioning *service.ProvisioningService, metrics *observability.Metrics, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{service: provisioning, metrics: metrics, logger: logger}
}

// Register POST /webhook/register.
func (h *WebhookHandler) Register(c *fiber.Ctx) error {
	headers := http.Header{}
	c.Request().Header.VisitAll(func(key, value []byte) {
		headers.Add(string(key), string(value))
	})
	payload := append([]byte(nil), c.Body()...)

	result, err := h.service.Receive(c.UserContext(), payload, headers)
	if result != nil {
		h.metrics.RecordWebhookEvent(result.EventType, string(result.State))
		h.logger.Info("webhook delivery",
			zap.String("delivery_id", result.DeliveryID),
			zap.String("event_type", result.EventType),
			zap.String("state", string(result.State)),
			zap.String("user_id", result.UserID),
			zap.Bool("duplicate", result.Duplicate))
	}
	if err != nil {
		return err
	}
	return c.JSON(dto.WebhookResponse{
		Message:   "Webhook received",
		State:     string(result.State),
		Duplicate: result.Duplicate,
	})
}
