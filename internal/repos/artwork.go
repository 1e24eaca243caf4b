package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/craftfolio/engine/internal/logger"
	"github.com/craftfolio/engine/internal/types"
)

type ArtworkRepo interface {
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Artwork, error)
	GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.Artwork, error)
	ListByOwner(ctx context.Context, tx *gorm.DB, ownerID uuid.UUID, limit int) ([]*types.Artwork, error)
	ListRecentVisible(ctx context.Context, tx *gorm.DB, limit int) ([]*types.Artwork, error)
	ListByMaterial(ctx context.Context, tx *gorm.DB, material string, limit int) ([]*types.Artwork, error)
	ListUnscanned(ctx context.Context, tx *gorm.DB, limit int) ([]*types.Artwork, error)
	ListActiveSince(ctx context.Context, tx *gorm.DB, since time.Time, limit int) ([]*types.Artwork, error)
	UpdateModeration(ctx context.Context, tx *gorm.DB, id uuid.UUID, status string, score float64) error
	IncrementCounter(ctx context.Context, tx *gorm.DB, id uuid.UUID, column string, delta int64) error
}

// Counter columns that IncrementCounter accepts. Anything else is a
// programming error and is rejected.
var artworkCounterColumns = map[string]bool{
	"views_count":     true,
	"likes_count":     true,
	"bookmarks_count": true,
	"shares_count":    true,
	"comments_count":  true,
}

type artworkRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewArtworkRepo(db *gorm.DB, baseLog *logger.Logger) ArtworkRepo {
	return &artworkRepo{db: db, log: baseLog.With("repo", "ArtworkRepo")}
}

func (r *artworkRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Artwork, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var result types.Artwork
	if err := transaction.WithContext(ctx).
		Where("id = ?", id).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *artworkRepo) GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.Artwork, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.Artwork
	if len(ids) == 0 {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("id IN ?", ids).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *artworkRepo) ListByOwner(ctx context.Context, tx *gorm.DB, ownerID uuid.UUID, limit int) ([]*types.Artwork, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.Artwork
	if ownerID == uuid.Nil {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at DESC").
		Limit(limit).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *artworkRepo) ListRecentVisible(ctx context.Context, tx *gorm.DB, limit int) ([]*types.Artwork, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.Artwork
	if err := transaction.WithContext(ctx).
		Where("moderation_status <> ?", types.ModerationHidden).
		Order("created_at DESC").
		Limit(limit).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *artworkRepo) ListByMaterial(ctx context.Context, tx *gorm.DB, material string, limit int) ([]*types.Artwork, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.Artwork
	if material == "" {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("material = ? AND moderation_status <> ?", material, types.ModerationHidden).
		Order("created_at DESC").
		Limit(limit).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *artworkRepo) ListUnscanned(ctx context.Context, tx *gorm.DB, limit int) ([]*types.Artwork, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.Artwork
	if err := transaction.WithContext(ctx).
		Where("scanned_at IS NULL").
		Order("created_at ASC").
		Limit(limit).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *artworkRepo) ListActiveSince(ctx context.Context, tx *gorm.DB, since time.Time, limit int) ([]*types.Artwork, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.Artwork
	if err := transaction.WithContext(ctx).
		Where("updated_at >= ? AND moderation_status <> ?", since, types.ModerationHidden).
		Order("updated_at DESC").
		Limit(limit).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *artworkRepo) UpdateModeration(ctx context.Context, tx *gorm.DB, id uuid.UUID, status string, score float64) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	now := time.Now()
	return transaction.WithContext(ctx).
		Model(&types.Artwork{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"moderation_status": status,
			"moderation_score":  score,
			"scanned_at":        now,
		}).Error
}

func (r *artworkRepo) IncrementCounter(ctx context.Context, tx *gorm.DB, id uuid.UUID, column string, delta int64) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if !artworkCounterColumns[column] {
		return ErrUnknownCounter
	}

	return transaction.WithContext(ctx).
		Model(&types.Artwork{}).
		Where("id = ?", id).
		UpdateColumn(column, gorm.Expr(column+" + ?", delta)).Error
}
