package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/craftfolio/engine/internal/logger"
	"github.com/craftfolio/engine/internal/types"
)

type SanctionRepo interface {
	Create(ctx context.Context, tx *gorm.DB, sanction *types.UserSanction) error
	ListActiveByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.UserSanction, error)
}

type sanctionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSanctionRepo(db *gorm.DB, baseLog *logger.Logger) SanctionRepo {
	return &sanctionRepo{db: db, log: baseLog.With("repo", "SanctionRepo")}
}

func (r *sanctionRepo) Create(ctx context.Context, tx *gorm.DB, sanction *types.UserSanction) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	return transaction.WithContext(ctx).Create(sanction).Error
}

func (r *sanctionRepo) ListActiveByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.UserSanction, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.UserSanction
	if userID == uuid.Nil {
		return results, nil
	}

	now := time.Now()
	if err := transaction.WithContext(ctx).
		Where("user_id = ? AND starts_at <= ? AND (expires_at IS NULL OR expires_at > ?)", userID, now, now).
		Order("created_at DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
