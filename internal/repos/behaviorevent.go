package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/craftfolio/engine/internal/logger"
	"github.com/craftfolio/engine/internal/types"
)

type BehaviorEventRepo interface {
	Create(ctx context.Context, tx *gorm.DB, events []*types.BehaviorEvent) error
	ListRecentByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID, limit int) ([]*types.BehaviorEvent, error)
	ListRecentByUserAndType(ctx context.Context, tx *gorm.DB, userID uuid.UUID, eventType string, limit int) ([]*types.BehaviorEvent, error)
	ListByUserSince(ctx context.Context, tx *gorm.DB, userID uuid.UUID, since time.Time) ([]*types.BehaviorEvent, error)
	ListByTargetSince(ctx context.Context, tx *gorm.DB, targetID uuid.UUID, since time.Time) ([]*types.BehaviorEvent, error)
	ListByUsersSince(ctx context.Context, tx *gorm.DB, userIDs []uuid.UUID, eventTypes []string, since time.Time) ([]*types.BehaviorEvent, error)
	CountByUserTypeSince(ctx context.Context, tx *gorm.DB, userID uuid.UUID, eventType string, since time.Time) (int64, error)
}

type behaviorEventRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewBehaviorEventRepo(db *gorm.DB, baseLog *logger.Logger) BehaviorEventRepo {
	return &behaviorEventRepo{db: db, log: baseLog.With("repo", "BehaviorEventRepo")}
}

func (r *behaviorEventRepo) Create(ctx context.Context, tx *gorm.DB, events []*types.BehaviorEvent) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(events) == 0 {
		return nil
	}

	return transaction.WithContext(ctx).Create(&events).Error
}

func (r *behaviorEventRepo) ListRecentByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID, limit int) ([]*types.BehaviorEvent, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.BehaviorEvent
	if userID == uuid.Nil {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *behaviorEventRepo) ListRecentByUserAndType(ctx context.Context, tx *gorm.DB, userID uuid.UUID, eventType string, limit int) ([]*types.BehaviorEvent, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.BehaviorEvent
	if userID == uuid.Nil {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("user_id = ? AND type = ?", userID, eventType).
		Order("created_at DESC").
		Limit(limit).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *behaviorEventRepo) ListByUserSince(ctx context.Context, tx *gorm.DB, userID uuid.UUID, since time.Time) ([]*types.BehaviorEvent, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.BehaviorEvent
	if userID == uuid.Nil {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("user_id = ? AND created_at >= ?", userID, since).
		Order("created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *behaviorEventRepo) ListByTargetSince(ctx context.Context, tx *gorm.DB, targetID uuid.UUID, since time.Time) ([]*types.BehaviorEvent, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.BehaviorEvent
	if targetID == uuid.Nil {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("target_id = ? AND created_at >= ?", targetID, since).
		Order("created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *behaviorEventRepo) ListByUsersSince(ctx context.Context, tx *gorm.DB, userIDs []uuid.UUID, eventTypes []string, since time.Time) ([]*types.BehaviorEvent, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.BehaviorEvent
	if len(userIDs) == 0 {
		return results, nil
	}

	q := transaction.WithContext(ctx).
		Where("user_id IN ? AND created_at >= ?", userIDs, since)
	if len(eventTypes) > 0 {
		q = q.Where("type IN ?", eventTypes)
	}
	if err := q.Order("created_at DESC").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *behaviorEventRepo) CountByUserTypeSince(ctx context.Context, tx *gorm.DB, userID uuid.UUID, eventType string, since time.Time) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var count int64
	if userID == uuid.Nil {
		return 0, nil
	}

	if err := transaction.WithContext(ctx).
		Model(&types.BehaviorEvent{}).
		Where("user_id = ? AND type = ? AND created_at >= ?", userID, eventType, since).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
