package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/craftfolio/engine/internal/logger"
	"github.com/craftfolio/engine/internal/types"
)

type ModerationRecordRepo interface {
	Create(ctx context.Context, tx *gorm.DB, record *types.ModerationRecord) error
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.ModerationRecord, error)
	CountByContentSince(ctx context.Context, tx *gorm.DB, contentID uuid.UUID, since time.Time) (int64, error)
	ListByReporter(ctx context.Context, tx *gorm.DB, reporterID uuid.UUID, limit int) ([]*types.ModerationRecord, error)
	UpdateStatus(ctx context.Context, tx *gorm.DB, id uuid.UUID, status string, priority int) error
}

type moderationRecordRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewModerationRecordRepo(db *gorm.DB, baseLog *logger.Logger) ModerationRecordRepo {
	return &moderationRecordRepo{db: db, log: baseLog.With("repo", "ModerationRecordRepo")}
}

func (r *moderationRecordRepo) Create(ctx context.Context, tx *gorm.DB, record *types.ModerationRecord) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	return transaction.WithContext(ctx).Create(record).Error
}

func (r *moderationRecordRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.ModerationRecord, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var result types.ModerationRecord
	if err := transaction.WithContext(ctx).
		Where("id = ?", id).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *moderationRecordRepo) CountByContentSince(ctx context.Context, tx *gorm.DB, contentID uuid.UUID, since time.Time) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var count int64
	if contentID == uuid.Nil {
		return 0, nil
	}

	if err := transaction.WithContext(ctx).
		Model(&types.ModerationRecord{}).
		Where("content_id = ? AND created_at >= ?", contentID, since).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *moderationRecordRepo) ListByReporter(ctx context.Context, tx *gorm.DB, reporterID uuid.UUID, limit int) ([]*types.ModerationRecord, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.ModerationRecord
	if reporterID == uuid.Nil {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("reporter_id = ?", reporterID).
		Order("created_at DESC").
		Limit(limit).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *moderationRecordRepo) UpdateStatus(ctx context.Context, tx *gorm.DB, id uuid.UUID, status string, priority int) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	return transaction.WithContext(ctx).
		Model(&types.ModerationRecord{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":   status,
			"priority": priority,
		}).Error
}
