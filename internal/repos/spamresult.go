package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/craftfolio/engine/internal/logger"
	"github.com/craftfolio/engine/internal/types"
)

type SpamResultRepo interface {
	Create(ctx context.Context, tx *gorm.DB, result *types.SpamDetectionResult) error
	ListRecentByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID, limit int) ([]*types.SpamDetectionResult, error)
}

type spamResultRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSpamResultRepo(db *gorm.DB, baseLog *logger.Logger) SpamResultRepo {
	return &spamResultRepo{db: db, log: baseLog.With("repo", "SpamResultRepo")}
}

func (r *spamResultRepo) Create(ctx context.Context, tx *gorm.DB, result *types.SpamDetectionResult) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	return transaction.WithContext(ctx).Create(result).Error
}

func (r *spamResultRepo) ListRecentByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID, limit int) ([]*types.SpamDetectionResult, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.SpamDetectionResult
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
