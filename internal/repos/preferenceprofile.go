package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/craftfolio/engine/internal/logger"
	"github.com/craftfolio/engine/internal/types"
)

type PreferenceProfileRepo interface {
	Get(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*types.UserPreferenceProfile, error)
	Upsert(ctx context.Context, tx *gorm.DB, profile *types.UserPreferenceProfile) error
	ListRecentlyUpdated(ctx context.Context, tx *gorm.DB, excludeUserID uuid.UUID, limit int) ([]*types.UserPreferenceProfile, error)
}

type preferenceProfileRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPreferenceProfileRepo(db *gorm.DB, baseLog *logger.Logger) PreferenceProfileRepo {
	return &preferenceProfileRepo{db: db, log: baseLog.With("repo", "PreferenceProfileRepo")}
}

func (r *preferenceProfileRepo) Get(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*types.UserPreferenceProfile, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var result types.UserPreferenceProfile
	if err := transaction.WithContext(ctx).
		Where("user_id = ?", userID).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *preferenceProfileRepo) Upsert(ctx context.Context, tx *gorm.DB, profile *types.UserPreferenceProfile) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	return transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			UpdateAll: true,
		}).
		Create(profile).Error
}

func (r *preferenceProfileRepo) ListRecentlyUpdated(ctx context.Context, tx *gorm.DB, excludeUserID uuid.UUID, limit int) ([]*types.UserPreferenceProfile, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.UserPreferenceProfile
	q := transaction.WithContext(ctx).Order("last_updated DESC").Limit(limit)
	if excludeUserID != uuid.Nil {
		q = q.Where("user_id <> ?", excludeUserID)
	}
	if err := q.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
