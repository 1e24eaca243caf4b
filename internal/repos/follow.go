package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/craftfolio/engine/internal/logger"
	"github.com/craftfolio/engine/internal/types"
)

type FollowRepo interface {
	CountFollowers(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (int64, error)
	CountFollowersBulk(ctx context.Context, tx *gorm.DB, userIDs []uuid.UUID) (map[uuid.UUID]int64, error)
}

type followRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewFollowRepo(db *gorm.DB, baseLog *logger.Logger) FollowRepo {
	return &followRepo{db: db, log: baseLog.With("repo", "FollowRepo")}
}

func (r *followRepo) CountFollowers(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var count int64
	if userID == uuid.Nil {
		return 0, nil
	}

	if err := transaction.WithContext(ctx).
		Model(&types.Follow{}).
		Where("followee_id = ?", userID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *followRepo) CountFollowersBulk(ctx context.Context, tx *gorm.DB, userIDs []uuid.UUID) (map[uuid.UUID]int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	out := map[uuid.UUID]int64{}
	if len(userIDs) == 0 {
		return out, nil
	}

	type row struct {
		FolloweeID uuid.UUID
		N          int64
	}
	var rows []row
	if err := transaction.WithContext(ctx).
		Model(&types.Follow{}).
		Select("followee_id, COUNT(*) AS n").
		Where("followee_id IN ?", userIDs).
		Group("followee_id").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, r := range rows {
		out[r.FolloweeID] = r.N
	}
	return out, nil
}
