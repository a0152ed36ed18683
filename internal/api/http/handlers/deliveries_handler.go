package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/alert-bridge/internal/service"
	apperrors "github.com/spec-kit/alert-bridge/pkg/util"
)

// DeliveriesHandler exposes the delivery audit trail.
type DeliveriesHandler struct {
	audit *service.AuditService
}

// NewDeliveriesHandler constructs handler.
func NewDeliveriesHandler(audit *service.AuditService) *DeliveriesHandler {
	return &DeliveriesHandler{audit: audit}
}

// List GET /deliveries?key=...&limit=...
func (h *DeliveriesHandler) List(c *fiber.Ctx) error {
	key := c.Query("key")
	if key == "" {
		return apperrors.NewValidationError("key query parameter required", nil)
	}
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			return apperrors.NewValidationError("invalid limit", nil)
		}
		limit = parsed
	}

	deliveries, err := h.audit.ListDeliveries(c.UserContext(), key, limit)
	if err != nil {
		return err
	}

	items := make([]fiber.Map, 0, len(deliveries))
	for _, d := range deliveries {
		items = append(items, fiber.Map{
			"id":           d.ID,
			"grouping_key": d.GroupingKey,
			"store":        d.Store,
			"action":       d.Action,
			"ticket_id":    d.TicketID,
			"count":        d.Count,
			"occurred_at":  d.OccurredAt,
		})
	}
	return c.JSON(fiber.Map{"data": items})
}
