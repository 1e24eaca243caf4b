package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/craftfolio/engine/internal/logger"
	"github.com/craftfolio/engine/internal/types"
)

type CommentRepo interface {
	ListByArtwork(ctx context.Context, tx *gorm.DB, artworkID uuid.UUID, limit int) ([]*types.Comment, error)
	ListUnscanned(ctx context.Context, tx *gorm.DB, limit int) ([]*types.Comment, error)
	UpdateModeration(ctx context.Context, tx *gorm.DB, id uuid.UUID, status string, score float64) error
}

type commentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCommentRepo(db *gorm.DB, baseLog *logger.Logger) CommentRepo {
	return &commentRepo{db: db, log: baseLog.With("repo", "CommentRepo")}
}

func (r *commentRepo) ListByArtwork(ctx context.Context, tx *gorm.DB, artworkID uuid.UUID, limit int) ([]*types.Comment, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.Comment
	if artworkID == uuid.Nil {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("artwork_id = ?", artworkID).
		Order("created_at DESC").
		Limit(limit).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *commentRepo) ListUnscanned(ctx context.Context, tx *gorm.DB, limit int) ([]*types.Comment, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.Comment
	if err := transaction.WithContext(ctx).
		Where("scanned_at IS NULL").
		Order("created_at ASC").
		Limit(limit).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *commentRepo) UpdateModeration(ctx context.Context, tx *gorm.DB, id uuid.UUID, status string, score float64) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	now := time.Now()
	return transaction.WithContext(ctx).
		Model(&types.Comment{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"moderation_status": status,
			"moderation_score":  score,
			"scanned_at":        now,
		}).Error
}
