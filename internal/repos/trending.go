package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/craftfolio/engine/internal/logger"
	"github.com/craftfolio/engine/internal/types"
)

type TrendingRepo interface {
	Upsert(ctx context.Context, tx *gorm.DB, metrics *types.TrendingMetrics) error
	Get(ctx context.Context, tx *gorm.DB, artworkID uuid.UUID) (*types.TrendingMetrics, error)
	GetByArtworkIDs(ctx context.Context, tx *gorm.DB, artworkIDs []uuid.UUID) ([]*types.TrendingMetrics, error)
	ListTop(ctx context.Context, tx *gorm.DB, limit int) ([]*types.TrendingMetrics, error)
	UpdateRanks(ctx context.Context, tx *gorm.DB, artworkID uuid.UUID, categoryRank, globalRank int) error
}

type trendingRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTrendingRepo(db *gorm.DB, baseLog *logger.Logger) TrendingRepo {
	return &trendingRepo{db: db, log: baseLog.With("repo", "TrendingRepo")}
}

func (r *trendingRepo) Upsert(ctx context.Context, tx *gorm.DB, metrics *types.TrendingMetrics) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	return transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "artwork_id"}},
			UpdateAll: true,
		}).
		Create(metrics).Error
}

func (r *trendingRepo) Get(ctx context.Context, tx *gorm.DB, artworkID uuid.UUID) (*types.TrendingMetrics, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var result types.TrendingMetrics
	if err := transaction.WithContext(ctx).
		Where("artwork_id = ?", artworkID).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *trendingRepo) GetByArtworkIDs(ctx context.Context, tx *gorm.DB, artworkIDs []uuid.UUID) ([]*types.TrendingMetrics, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.TrendingMetrics
	if len(artworkIDs) == 0 {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("artwork_id IN ?", artworkIDs).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *trendingRepo) ListTop(ctx context.Context, tx *gorm.DB, limit int) ([]*types.TrendingMetrics, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.TrendingMetrics
	if err := transaction.WithContext(ctx).
		Order("trending_score DESC").
		Limit(limit).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *trendingRepo) UpdateRanks(ctx context.Context, tx *gorm.DB, artworkID uuid.UUID, categoryRank, globalRank int) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	return transaction.WithContext(ctx).
		Model(&types.TrendingMetrics{}).
		Where("artwork_id = ?", artworkID).
		Updates(map[string]interface{}{
			"category_rank": categoryRank,
			"global_rank":   globalRank,
		}).Error
}
