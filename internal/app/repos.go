package app

import (
	"gorm.io/gorm"

	"github.com/craftfolio/engine/internal/logger"
	"github.com/craftfolio/engine/internal/repos"
)

type Repos struct {
	User              repos.UserRepo
	Follow            repos.FollowRepo
	BehaviorEvent     repos.BehaviorEventRepo
	Artwork           repos.ArtworkRepo
	Comment           repos.CommentRepo
	ModerationRecord  repos.ModerationRecordRepo
	Sanction          repos.SanctionRepo
	SpamResult        repos.SpamResultRepo
	PreferenceProfile repos.PreferenceProfileRepo
	Trending          repos.TrendingRepo
	UserLevel         repos.UserLevelRepo
	RecommendationLog repos.RecommendationLogRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		User:              repos.NewUserRepo(db, log),
		Follow:            repos.NewFollowRepo(db, log),
		BehaviorEvent:     repos.NewBehaviorEventRepo(db, log),
		Artwork:           repos.NewArtworkRepo(db, log),
		Comment:           repos.NewCommentRepo(db, log),
		ModerationRecord:  repos.NewModerationRecordRepo(db, log),
		Sanction:          repos.NewSanctionRepo(db, log),
		SpamResult:        repos.NewSpamResultRepo(db, log),
		PreferenceProfile: repos.NewPreferenceProfileRepo(db, log),
		Trending:          repos.NewTrendingRepo(db, log),
		UserLevel:         repos.NewUserLevelRepo(db, log),
		RecommendationLog: repos.NewRecommendationLogRepo(db, log),
	}
}
