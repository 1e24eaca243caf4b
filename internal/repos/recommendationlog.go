package repos

import (
	"context"

	"gorm.io/gorm"

	"github.com/craftfolio/engine/internal/logger"
	"github.com/craftfolio/engine/internal/types"
)

type RecommendationLogRepo interface {
	Create(ctx context.Context, tx *gorm.DB, entry *types.RecommendationLog) error
}

type recommendationLogRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewRecommendationLogRepo(db *gorm.DB, baseLog *logger.Logger) RecommendationLogRepo {
	return &recommendationLogRepo{db: db, log: baseLog.With("repo", "RecommendationLogRepo")}
}

func (r *recommendationLogRepo) Create(ctx context.Context, tx *gorm.DB, entry *types.RecommendationLog) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	return transaction.WithContext(ctx).Create(entry).Error
}
