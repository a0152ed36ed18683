package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/alert-bridge/internal/config"
	"github.com/spec-kit/alert-bridge/internal/normalize"
	"github.com/spec-kit/alert-bridge/internal/render"
	"github.com/spec-kit/alert-bridge/internal/tickets"
	apperrors "github.com/spec-kit/alert-bridge/pkg/util"
)

// EscalationService watches secondary-store change notifications for the
// trigger tag and drives the lifecycle controller against the primary store,
// recovering the grouping key from the ticket body rather than from the
// store's own identifiers.
type EscalationService struct {
	lifecycle *LifecycleService
	secondary tickets.SecondaryStore
	bridge    config.BridgeConfig
	logger    *zap.Logger
}

// NewEscalationService constructs the service.
func NewEscalationService(cfg config.Config, lifecycle *LifecycleService, secondary tickets.SecondaryStore, logger *zap.Logger) *EscalationService {
	return &EscalationService{
		lifecycle: lifecycle,
		secondary: secondary,
		bridge:    cfg.Bridge,
		logger:    logger,
	}
}

// HandleTaskChange processes one change notification. A notification
// without the trigger tag, or whose task body carries no recoverable
// grouping key, is acknowledged as a no-op, not an error.
func (s *EscalationService) HandleTaskChange(ctx context.Context, payload map[string]any) (Outcome, error) {
	change, ok := normalize.ParseTaskChange(payload)
	if !ok {
		return OutcomeSkipped, apperrors.NewValidationError("task id missing from notification", nil)
	}
	if !change.HasTag(s.bridge.TriggerTag) {
		s.logger.Debug("task change without trigger tag", zap.String("task_id", change.TaskID))
		return OutcomeSkipped, nil
	}

	task, err := s.secondary.GetTask(ctx, change.TaskID)
	if err != nil {
		return OutcomeSkipped, err
	}

	key, ok := render.ExtractGroupingKey(task.Body)
	if !ok {
		s.logger.Warn("trigger tag set but no grouping key in task body",
			zap.String("task_id", change.TaskID))
		return OutcomeSkipped, nil
	}

	title, environment := render.ParseTaskTitle(task.Title)
	return s.lifecycle.Escalate(ctx, EscalationInput{
		Key:         key,
		TaskID:      change.TaskID,
		Title:       title,
		Environment: environment,
		Permalink:   render.ExtractPermalink(task.Body),
		Summary:     render.ExtractSummary(task.Body),
	})
}
