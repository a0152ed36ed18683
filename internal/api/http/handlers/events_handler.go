package handlers

import (
	"encoding/json"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/alert-bridge/internal/normalize"
	"github.com/spec-kit/alert-bridge/internal/service"
	apperrors "github.com/spec-kit/alert-bridge/pkg/util"
)

// EventsHandler receives monitoring-source error events.
type EventsHandler struct {
	normalizer *normalize.Normalizer
	lifecycle  *service.LifecycleService
}

// NewEventsHandler constructs handler.
func NewEventsHandler(normalizer *normalize.Normalizer, lifecycle *service.LifecycleService) *EventsHandler {
	return &EventsHandler{normalizer: normalizer, lifecycle: lifecycle}
}

// Receive POST /webhooks/events.
func (h *EventsHandler) Receive(c *fiber.Ctx) error {
	var payload map[string]any
	if err := json.Unmarshal(c.Body(), &payload); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	ev := h.normalizer.Normalize(payload)
	if ev == nil {
		// Connectivity test ping: acknowledged, nothing touched.
		return c.SendString("ok")
	}

	outcome, err := h.lifecycle.HandleEvent(c.UserContext(), *ev)
	if err != nil {
		return err
	}
	return respondOutcome(c, outcome)
}

func respondOutcome(c *fiber.Ctx, outcome service.Outcome) error {
	switch outcome {
	case service.OutcomeCreated:
		return c.Status(fiber.StatusCreated).SendString("created")
	case service.OutcomeUpdated:
		return c.SendString("updated")
	default:
		return c.SendString("ok")
	}
}
