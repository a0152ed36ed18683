package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/alert-bridge/internal/domain"
)

// DeliveryRepository persists the delivery audit trail.
type DeliveryRepository interface {
	Insert(ctx context.Context, delivery domain.Delivery) error
	ListByKey(ctx context.Context, key string, limit int) ([]domain.Delivery, error)
}

type deliveryRepository struct {
	pool *pgxpool.Pool
}

// NewDeliveryRepository builds a repository over the given pool.
func NewDeliveryRepository(pool *pgxpool.Pool) DeliveryRepository {
	return &deliveryRepository{pool: pool}
}

func (r *deliveryRepository) Insert(ctx context.Context, delivery domain.Delivery) error {
	if r.pool == nil {
		return errors.New("postgres pool not configured")
	}
	_, err := r.pool.Exec(ctx,
		`INSERT INTO deliveries (id, grouping_key, store, action, ticket_id, occurrence_count, occurred_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		delivery.ID, delivery.GroupingKey, delivery.Store, delivery.Action,
		delivery.TicketID, delivery.Count, delivery.OccurredAt)
	return err
}

func (r *deliveryRepository) ListByKey(ctx context.Context, key string, limit int) ([]domain.Delivery, error) {
	if r.pool == nil {
		return nil, errors.New("postgres pool not configured")
	}
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx,
		`SELECT id, grouping_key, store, action, ticket_id, occurrence_count, occurred_at
		 FROM deliveries WHERE grouping_key = $1
		 ORDER BY occurred_at DESC LIMIT $2`, key, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var deliveries []domain.Delivery
	for rows.Next() {
		var d domain.Delivery
		if err := rows.Scan(&d.ID, &d.GroupingKey, &d.Store, &d.Action, &d.TicketID, &d.Count, &d.OccurredAt); err != nil {
			return nil, err
		}
		deliveries = append(deliveries, d)
	}
	return deliveries, rows.Err()
}
