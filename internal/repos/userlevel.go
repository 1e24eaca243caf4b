package repos

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/craftfolio/engine/internal/logger"
	"github.com/craftfolio/engine/internal/types"
)

type UserLevelRepo interface {
	Get(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*types.UserLevel, error)
	EnsureRow(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*types.UserLevel, error)
	// AddExperience applies the delta as a single atomic SQL increment and
	// returns the resulting total. Concurrent awards must not lose updates.
	AddExperience(ctx context.Context, tx *gorm.DB, userID uuid.UUID, delta int64) (int64, error)
	UpdateLevel(ctx context.Context, tx *gorm.DB, userID uuid.UUID, level int, pointsToNext int64) error
	UpdateRatings(ctx context.Context, tx *gorm.DB, userID uuid.UUID, artist, community, overall float64) error
	AddBadge(ctx context.Context, tx *gorm.DB, userID uuid.UUID, badgeID string) (bool, error)
}

type userLevelRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUserLevelRepo(db *gorm.DB, baseLog *logger.Logger) UserLevelRepo {
	return &userLevelRepo{db: db, log: baseLog.With("repo", "UserLevelRepo")}
}

func (r *userLevelRepo) Get(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*types.UserLevel, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var result types.UserLevel
	if err := transaction.WithContext(ctx).
		Where("user_id = ?", userID).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *userLevelRepo) EnsureRow(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*types.UserLevel, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	row := &types.UserLevel{
		UserID:       userID,
		CurrentLevel: 1,
		Badges:       datatypes.JSON([]byte("[]")),
	}
	if err := transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoNothing: true,
		}).
		Create(row).Error; err != nil {
		return nil, err
	}
	return r.Get(ctx, tx, userID)
}

func (r *userLevelRepo) AddExperience(ctx context.Context, tx *gorm.DB, userID uuid.UUID, delta int64) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if err := transaction.WithContext(ctx).
		Model(&types.UserLevel{}).
		Where("user_id = ?", userID).
		UpdateColumn("experience_points", gorm.Expr("experience_points + ?", delta)).Error; err != nil {
		return 0, err
	}
	row, err := r.Get(ctx, tx, userID)
	if err != nil {
		return 0, err
	}
	return row.ExperiencePoints, nil
}

func (r *userLevelRepo) UpdateLevel(ctx context.Context, tx *gorm.DB, userID uuid.UUID, level int, pointsToNext int64) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	return transaction.WithContext(ctx).
		Model(&types.UserLevel{}).
		Where("user_id = ?", userID).
		Updates(map[string]interface{}{
			"current_level":  level,
			"points_to_next": pointsToNext,
		}).Error
}

func (r *userLevelRepo) UpdateRatings(ctx context.Context, tx *gorm.DB, userID uuid.UUID, artist, community, overall float64) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	return transaction.WithContext(ctx).
		Model(&types.UserLevel{}).
		Where("user_id = ?", userID).
		Updates(map[string]interface{}{
			"artist_rating":    artist,
			"community_rating": community,
			"overall_rating":   overall,
		}).Error
}

// AddBadge appends the badge if absent and reports whether it was added.
// Badges are append-only; nothing ever removes one.
func (r *userLevelRepo) AddBadge(ctx context.Context, tx *gorm.DB, userID uuid.UUID, badgeID string) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	row, err := r.Get(ctx, transaction, userID)
	if err != nil {
		return false, err
	}

	var badges []string
	if len(row.Badges) > 0 {
		if err := json.Unmarshal(row.Badges, &badges); err != nil {
			return false, errors.New("repos: corrupt badges payload")
		}
	}
	for _, b := range badges {
		if b == badgeID {
			return false, nil
		}
	}
	badges = append(badges, badgeID)
	raw, err := json.Marshal(badges)
	if err != nil {
		return false, err
	}

	if err := transaction.WithContext(ctx).
		Model(&types.UserLevel{}).
		Where("user_id = ?", userID).
		UpdateColumn("badges", datatypes.JSON(raw)).Error; err != nil {
		return false, err
	}
	return true, nil
}
