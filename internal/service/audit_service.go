package service

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/alert-bridge/internal/domain"
	"github.com/spec-kit/alert-bridge/internal/events"
	"github.com/spec-kit/alert-bridge/internal/observability"
	"github.com/spec-kit/alert-bridge/internal/repository"
)

// AuditService appends a delivery-trail row for every ticket action. Rows
// are written from dispatcher callbacks; a failed write is logged and
// counted but never fails the request that produced the event.
type AuditService struct {
	deliveries repository.DeliveryRepository
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
	enabled    bool
}

// NewAuditService creates the service. It is inert when deliveries is nil
// (no Postgres configured).
func NewAuditService(deliveries repository.DeliveryRepository, dispatcher events.Dispatcher, metrics *observability.Metrics, logger *zap.Logger, enabled bool) *AuditService {
	return &AuditService{
		deliveries: deliveries,
		dispatcher: dispatcher,
		metrics:    metrics,
		logger:     logger,
		enabled:    enabled && deliveries != nil,
	}
}

// RegisterHandlers subscribes to ticket events.
func (a *AuditService) RegisterHandlers() {
	if a.dispatcher == nil || !a.enabled {
		return
	}
	a.dispatcher.Subscribe(events.EventTicketCreated, a.record)
	a.dispatcher.Subscribe(events.EventTicketUpdated, a.record)
	a.dispatcher.Subscribe(events.EventTicketEscalated, a.record)
}

func (a *AuditService) record(ctx context.Context, event events.Event) error {
	err := a.deliveries.Insert(ctx, domain.Delivery{
		ID:          uuid.NewString(),
		GroupingKey: string(event.GroupingKey),
		Store:       event.Store,
		Action:      string(event.Type),
		TicketID:    event.TicketID,
		Count:       event.Count,
		OccurredAt:  event.Timestamp,
	})
	if err != nil {
		a.logger.Warn("best-effort action failed", zap.String("action", "audit insert"), zap.Error(err))
		a.metrics.RecordBestEffortFailure("audit insert")
	}
	return err
}

// ListDeliveries exposes the audit trail for one grouping key.
func (a *AuditService) ListDeliveries(ctx context.Context, key string, limit int) ([]domain.Delivery, error) {
	if !a.enabled {
		return nil, nil
	}
	return a.deliveries.ListByKey(ctx, key, limit)
}
