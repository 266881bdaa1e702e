package webhook

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/pitabwire/frame/datastore/pool"

	"github.com/cleanscribe/cleanscribe/pkg/events"
)

// Repository persists consumer endpoints, delivery attempts and dead letters.
type Repository struct {
	pool pool.Pool
}

// NewRepository creates a new webhook repository.
func NewRepository(pool pool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) writer(ctx context.Context) *gorm.DB {
	return r.pool.DB(ctx, false)
}

func (r *Repository) reader(ctx context.Context) *gorm.DB {
	return r.pool.DB(ctx, true)
}

// CreateEndpoint persists a new consumer endpoint.
func (r *Repository) CreateEndpoint(ctx context.Context, ep *ConsumerEndpoint) error {
	return r.writer(ctx).Create(ep).Error
}

// GetByID returns a consumer endpoint by ID.
func (r *Repository) GetByID(ctx context.Context, id string) (*ConsumerEndpoint, error) {
	var ep ConsumerEndpoint
	if err := r.reader(ctx).Where("id = ?", id).First(&ep).Error; err != nil {
		return nil, err
	}
	return &ep, nil
}

// ListByEventType returns active consumers subscribed to the given event type.
func (r *Repository) ListByEventType(ctx context.Context, et events.EventType) ([]ConsumerEndpoint, error) {
	// JSONB containment keeps the lookup on the index.
	var endpoints []ConsumerEndpoint
	err := r.reader(ctx).
		Where("is_active = ? AND event_types @> ?", true, fmt.Sprintf(`[%q]`, et)).
		Find(&endpoints).Error
	return endpoints, err
}

// ListAll returns every consumer endpoint, for the admin listing.
func (r *Repository) ListAll(ctx context.Context) ([]ConsumerEndpoint, error) {
	var endpoints []ConsumerEndpoint
	err := r.reader(ctx).Find(&endpoints).Error
	return endpoints, err
}

// Delete soft-deletes a consumer endpoint.
func (r *Repository) Delete(ctx context.Context, id string) error {
	return r.writer(ctx).Where("id = ?", id).Delete(&ConsumerEndpoint{}).Error
}

// RecordDelivery persists one delivery attempt.
func (r *Repository) RecordDelivery(ctx context.Context, da *DeliveryAttempt) error {
	return r.writer(ctx).Create(da).Error
}

// ListDeliveries returns delivery attempts for a consumer, newest first.
func (r *Repository) ListDeliveries(ctx context.Context, consumerID string, limit, offset int) ([]DeliveryAttempt, error) {
	q := r.reader(ctx).
		Where("consumer_id = ?", consumerID).
		Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if offset > 0 {
		q = q.Offset(offset)
	}
	var attempts []DeliveryAttempt
	err := q.Find(&attempts).Error
	return attempts, err
}

// CreateDeadLetter buries an undeliverable event.
func (r *Repository) CreateDeadLetter(ctx context.Context, dl *DeadLetter) error {
	return r.writer(ctx).Create(dl).Error
}

// GetDeadLetterByID returns a single dead letter.
func (r *Repository) GetDeadLetterByID(ctx context.Context, id string) (*DeadLetter, error) {
	var dl DeadLetter
	if err := r.reader(ctx).Where("id = ?", id).First(&dl).Error; err != nil {
		return nil, err
	}
	return &dl, nil
}

// ListDeadLetters returns replayable dead letters for a consumer.
func (r *Repository) ListDeadLetters(ctx context.Context, consumerID string) ([]DeadLetter, error) {
	var letters []DeadLetter
	err := r.reader(ctx).
		Where("consumer_id = ? AND replayable = ?", consumerID, true).
		Order("created_at DESC").
		Find(&letters).Error
	return letters, err
}

// MarkDeadLetterReplayed flips a dead letter to non-replayable.
func (r *Repository) MarkDeadLetterReplayed(ctx context.Context, id string) error {
	return r.writer(ctx).
		Model(&DeadLetter{}).
		Where("id = ?", id).
		Update("replayable", false).Error
}
