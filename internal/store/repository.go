package store

import (
	"context"

	"gorm.io/gorm"

	"github.com/pitabwire/frame/datastore/pool"
)

// Repository provides CRUD operations for recordings and their segments.
type Repository struct {
	pool pool.Pool
}

// NewRepository creates a new recording repository.
func NewRepository(pool pool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) db(ctx context.Context, readOnly bool) *gorm.DB {
	return r.pool.DB(ctx, readOnly)
}

// CreateRecording persists a new recording.
func (r *Repository) CreateRecording(ctx context.Context, rec *Recording) error {
	return r.db(ctx, false).Create(rec).Error
}

// GetRecording returns a recording by ID.
func (r *Repository) GetRecording(ctx context.Context, id string) (*Recording, error) {
	var rec Recording
	err := r.db(ctx, true).Where("id = ?", id).First(&rec).Error
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// ListRecordings returns recordings newest first.
func (r *Repository) ListRecordings(ctx context.Context, limit, offset int) ([]Recording, error) {
	var recs []Recording
	q := r.db(ctx, true).Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if offset > 0 {
		q = q.Offset(offset)
	}
	err := q.Find(&recs).Error
	return recs, err
}

// FindByContentHash returns the recording already holding the given upload
// hash, if any.
func (r *Repository) FindByContentHash(ctx context.Context, hash string) (*Recording, error) {
	var rec Recording
	err := r.db(ctx, true).Where("content_hash = ?", hash).First(&rec).Error
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// UpdateRecording persists changes to a recording.
func (r *Repository) UpdateRecording(ctx context.Context, rec *Recording) error {
	return r.db(ctx, false).Save(rec).Error
}

// AppendSegments persists a batch of raw segments for a recording.
func (r *Repository) AppendSegments(ctx context.Context, segments []SegmentRecord) error {
	if len(segments) == 0 {
		return nil
	}
	return r.db(ctx, false).Create(&segments).Error
}

// ListSegments returns the raw segments of a recording in insertion order.
func (r *Repository) ListSegments(ctx context.Context, recordingID string) ([]SegmentRecord, error) {
	var segments []SegmentRecord
	err := r.db(ctx, true).
		Where("recording_id = ?", recordingID).
		Order("created_at ASC").
		Find(&segments).Error
	return segments, err
}
