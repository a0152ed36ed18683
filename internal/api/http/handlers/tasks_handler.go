package handlers

import (
	"encoding/json"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/alert-bridge/internal/service"
	apperrors "github.com/spec-kit/alert-bridge/pkg/util"
)

// TasksHandler receives secondary-store ticket-change notifications.
type TasksHandler struct {
	escalation *service.EscalationService
}

// NewTasksHandler constructs handler.
func NewTasksHandler(escalation *service.EscalationService) *TasksHandler {
	return &TasksHandler{escalation: escalation}
}

// Receive POST /webhooks/tasks.
func (h *TasksHandler) Receive(c *fiber.Ctx) error {
	var payload map[string]any
	if err := json.Unmarshal(c.Body(), &payload); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	outcome, err := h.escalation.HandleTaskChange(c.UserContext(), payload)
	if err != nil {
		return err
	}
	if outcome == service.OutcomeSkipped {
		return c.SendString("ignored")
	}
	return respondOutcome(c, outcome)
}
