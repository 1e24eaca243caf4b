package services

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/craftfolio/engine/internal/logger"
	"github.com/craftfolio/engine/internal/repos"
	"github.com/craftfolio/engine/internal/types"
)

// Activity identifiers accepted by AwardActivity.
const (
	ActivityUpload          = "upload"
	ActivityFirstUpload     = "first_upload"
	ActivityReceiveLike     = "receive_like"
	ActivityReceiveComment  = "receive_comment"
	ActivityReceiveBookmark = "receive_bookmark"
	ActivityReceiveShare    = "receive_share"
	ActivityGiveLike        = "give_like"
	ActivityGiveComment     = "give_comment"
	ActivityFollow          = "follow"
	ActivityContentRemoved  = "content_removed"
	ActivitySpamWarning     = "spam_warning"
)

// activityBasePoints is the base XP table. Negative entries are penalties
// and bypass the multiplier.
var activityBasePoints = map[string]int64{
	ActivityUpload:          50,
	ActivityFirstUpload:     100,
	ActivityReceiveLike:     5,
	ActivityReceiveComment:  10,
	ActivityReceiveBookmark: 15,
	ActivityReceiveShare:    25,
	ActivityGiveLike:        2,
	ActivityGiveComment:     5,
	ActivityFollow:          3,
	ActivityContentRemoved:  -100,
	ActivitySpamWarning:     -50,
}

// levelTiers is the fixed leveling table, ascending by MinXP.
var levelTiers = []types.LevelTier{
	{Level: 1, Title: "Apprentice", MinXP: 0, Perks: []string{"basic profile"}},
	{Level: 2, Title: "Crafter", MinXP: 100, Perks: []string{"custom banner"}},
	{Level: 3, Title: "Artisan", MinXP: 350, Perks: []string{"featured eligibility"}},
	{Level: 4, Title: "Journeyman", MinXP: 800, Perks: []string{"collection folders"}},
	{Level: 5, Title: "Craftsman", MinXP: 1600, Perks: []string{"early access drops"}},
	{Level: 6, Title: "Master Crafter", MinXP: 3000, Perks: []string{"workshop hosting"}},
	{Level: 7, Title: "Virtuoso", MinXP: 5500, Perks: []string{"storefront priority"}},
	{Level: 8, Title: "Luminary", MinXP: 10000, Perks: []string{"curator invitations"}},
}

type ActivityAward struct {
	Activity   string  `json:"activity"`
	BasePoints int64   `json:"base_points"`
	Multiplier float64 `json:"multiplier"`
	XPAwarded  int64   `json:"xp_awarded"`
	NewTotal   int64   `json:"new_total"`
	LeveledUp  bool    `json:"leveled_up"`
	NewLevel   int     `json:"new_level"`
	NewTitle   string  `json:"new_title,omitempty"`
}

type LevelProgress struct {
	Level        int      `json:"level"`
	Title        string   `json:"title"`
	XP           int64    `json:"xp"`
	PointsToNext int64    `json:"points_to_next"`
	Progress     float64  `json:"progress"`
	Perks        []string `json:"perks"`
}

// UserStatistics is the snapshot achievements and ratings are computed from.
type UserStatistics struct {
	Uploads             int
	AvgQuality          float64
	MaxLikesOnOneItem   int64
	TotalLikesReceived  int64
	TotalComments       int64
	LikesGiven          int64
	CommentsGiven       int64
	TrendingAppearances int
	Level               int
}

type GrowthService interface {
	AwardActivity(ctx context.Context, userID uuid.UUID, activity string, contentID *uuid.UUID) (*ActivityAward, error)
	EvaluateAchievements(ctx context.Context, userID uuid.UUID) ([]types.Achievement, error)
	RecomputeRatings(ctx context.Context, userID uuid.UUID) error
	LevelProgressFor(ctx context.Context, userID uuid.UUID) (*LevelProgress, error)
}

type growthService struct {
	log       *logger.Logger
	levels    repos.UserLevelRepo
	users     repos.UserRepo
	events    repos.BehaviorEventRepo
	artworks  repos.ArtworkRepo
	trending  repos.TrendingRepo
	sanctions repos.SanctionRepo
	nowFn     func() time.Time
}

func NewGrowthService(
	baseLog *logger.Logger,
	levels repos.UserLevelRepo,
	users repos.UserRepo,
	events repos.BehaviorEventRepo,
	artworks repos.ArtworkRepo,
	trending repos.TrendingRepo,
	sanctions repos.SanctionRepo,
) GrowthService {
	return &growthService{
		log:       baseLog.With("service", "GrowthService"),
		levels:    levels,
		users:     users,
		events:    events,
		artworks:  artworks,
		trending:  trending,
		sanctions: sanctions,
		nowFn:     time.Now,
	}
}

// AwardActivity credits XP for one activity. The increment itself is a
// single SQL add, so concurrent awards for the same user never lose
// updates. Level transitions are applied here, not by a store trigger.
func (s *growthService) AwardActivity(ctx context.Context, userID uuid.UUID, activity string, contentID *uuid.UUID) (*ActivityAward, error) {
	base, ok := activityBasePoints[activity]
	if !ok {
		return nil, fmt.Errorf("unknown activity %q", activity)
	}

	row, err := s.levels.EnsureRow(ctx, nil, userID)
	if err != nil {
		return nil, fmt.Errorf("ensure level row: %w", err)
	}

	multiplier := 1.0
	if base > 0 {
		multiplier = s.multiplierFor(ctx, userID, contentID)
	}
	delta := int64(math.Round(float64(base) * multiplier))

	total, err := s.levels.AddExperience(ctx, nil, userID, delta)
	if err != nil {
		return nil, fmt.Errorf("add experience: %w", err)
	}

	award := &ActivityAward{
		Activity:   activity,
		BasePoints: base,
		Multiplier: multiplier,
		XPAwarded:  delta,
		NewTotal:   total,
		NewLevel:   row.CurrentLevel,
	}

	tier := TierForXP(total)
	if tier.Level != row.CurrentLevel {
		if err := s.levels.UpdateLevel(ctx, nil, userID, tier.Level, pointsToNextTier(total)); err != nil {
			s.log.Warn("level transition write failed", "user_id", userID, "error", err)
		} else {
			award.LeveledUp = tier.Level > row.CurrentLevel
			award.NewLevel = tier.Level
			award.NewTitle = tier.Title
		}
	}
	return award, nil
}

func (s *growthService) multiplierFor(ctx context.Context, userID uuid.UUID, contentID *uuid.UUID) float64 {
	quality, engagement := 0.0, 0.0
	if contentID != nil {
		if metrics, err := s.trending.Get(ctx, nil, *contentID); err == nil {
			quality = metrics.QualityScore
			engagement = metrics.EngagementRate
		}
	}

	streak := 0
	if events, err := s.events.ListByUserSince(ctx, nil, userID, s.nowFn().Add(-7*24*time.Hour)); err == nil {
		streak = consecutiveActiveDays(events, s.nowFn())
	}

	accountAgeDays := 365.0
	if user, err := s.users.GetByID(ctx, nil, userID); err == nil {
		accountAgeDays = s.nowFn().Sub(user.CreatedAt).Hours() / 24
	}

	return XPMultiplier(quality, engagement, streak, accountAgeDays)
}

// XPMultiplier assembles bonus terms on top of the base 1.0: quality,
// engagement, activity streak, and a new-account bonus that fades out
// over the first 30 days.
func XPMultiplier(quality, engagementRate float64, consecutiveDays int, accountAgeDays float64) float64 {
	m := 1.0
	if quality > 0.8 {
		m += 0.5
	}
	if engagementRate > 0.3 {
		m += 0.3
	}
	m += math.Min(0.5, float64(consecutiveDays)*0.1)
	if accountAgeDays < 30 {
		m += 0.5 * (1 - accountAgeDays/30)
	}
	return m
}

// consecutiveActiveDays counts the streak of calendar days ending today
// that each have at least one event.
func consecutiveActiveDays(events []*types.BehaviorEvent, now time.Time) int {
	active := map[string]bool{}
	for _, e := range events {
		active[e.CreatedAt.Format("2006-01-02")] = true
	}
	streak := 0
	for day := now; active[day.Format("2006-01-02")]; day = day.AddDate(0, 0, -1) {
		streak++
	}
	return streak
}

func TierForXP(xp int64) types.LevelTier {
	tier := levelTiers[0]
	for _, t := range levelTiers {
		if xp >= t.MinXP {
			tier = t
		}
	}
	return tier
}

func pointsToNextTier(xp int64) int64 {
	for _, t := range levelTiers {
		if t.MinXP > xp {
			return t.MinXP - xp
		}
	}
	return 0
}

// TierProgress reports how far through the current tier the XP total is,
// clamped to [0,1]. The top tier always reports 1.
func TierProgress(xp int64) float64 {
	current := TierForXP(xp)
	var next *types.LevelTier
	for i := range levelTiers {
		if levelTiers[i].MinXP > current.MinXP {
			next = &levelTiers[i]
			break
		}
	}
	if next == nil {
		return 1
	}
	return clamp01(float64(xp-current.MinXP) / float64(next.MinXP-current.MinXP))
}

func (s *growthService) LevelProgressFor(ctx context.Context, userID uuid.UUID) (*LevelProgress, error) {
	row, err := s.levels.EnsureRow(ctx, nil, userID)
	if err != nil {
		return nil, err
	}
	tier := TierForXP(row.ExperiencePoints)
	return &LevelProgress{
		Level:        tier.Level,
		Title:        tier.Title,
		XP:           row.ExperiencePoints,
		PointsToNext: pointsToNextTier(row.ExperiencePoints),
		Progress:     TierProgress(row.ExperiencePoints),
		Perks:        tier.Perks,
	}, nil
}

// achievementCatalog is static. Conditions read only the statistics
// snapshot, so re-evaluating on unchanged stats is a no-op for held badges.
var achievementCatalog = []struct {
	types.Achievement
	satisfied func(UserStatistics) bool
}{
	{types.Achievement{ID: "first_piece", Name: "First Piece", Category: "creation", Difficulty: "easy", Points: 25},
		func(s UserStatistics) bool { return s.Uploads >= 1 }},
	{types.Achievement{ID: "prolific_maker", Name: "Prolific Maker", Category: "creation", Difficulty: "medium", Points: 100},
		func(s UserStatistics) bool { return s.Uploads >= 25 }},
	{types.Achievement{ID: "gallery_regular", Name: "Gallery Regular", Category: "creation", Difficulty: "hard", Points: 300},
		func(s UserStatistics) bool { return s.Uploads >= 100 }},
	{types.Achievement{ID: "quality_eye", Name: "Quality Eye", Category: "quality", Difficulty: "medium", Points: 150},
		func(s UserStatistics) bool { return s.Uploads >= 5 && s.AvgQuality >= 0.7 }},
	{types.Achievement{ID: "crowd_favorite", Name: "Crowd Favorite", Category: "engagement", Difficulty: "medium", Points: 100},
		func(s UserStatistics) bool { return s.MaxLikesOnOneItem >= 100 }},
	{types.Achievement{ID: "beloved", Name: "Beloved", Category: "engagement", Difficulty: "hard", Points: 250},
		func(s UserStatistics) bool { return s.TotalLikesReceived >= 1000 }},
	{types.Achievement{ID: "generous_heart", Name: "Generous Heart", Category: "community", Difficulty: "easy", Points: 50},
		func(s UserStatistics) bool { return s.LikesGiven >= 100 }},
	{types.Achievement{ID: "conversationalist", Name: "Conversationalist", Category: "community", Difficulty: "medium", Points: 75},
		func(s UserStatistics) bool { return s.CommentsGiven >= 50 }},
	{types.Achievement{ID: "trendsetter", Name: "Trendsetter", Category: "reach", Difficulty: "hard", Points: 200},
		func(s UserStatistics) bool { return s.TrendingAppearances >= 3 }},
	{types.Achievement{ID: "seasoned", Name: "Seasoned", Category: "progression", Difficulty: "medium", Points: 100},
		func(s UserStatistics) bool { return s.Level >= 5 }},
}

// EvaluateAchievements unlocks every newly satisfied achievement and
// credits its point reward. Held badges are skipped, so the call is
// idempotent. Newly unlocked achievements are returned for notification.
func (s *growthService) EvaluateAchievements(ctx context.Context, userID uuid.UUID) ([]types.Achievement, error) {
	stats, err := s.collectStatistics(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("collect statistics: %w", err)
	}

	var unlocked []types.Achievement
	for _, entry := range achievementCatalog {
		if !entry.satisfied(*stats) {
			continue
		}
		added, err := s.levels.AddBadge(ctx, nil, userID, entry.ID)
		if err != nil {
			s.log.Warn("badge write failed", "user_id", userID, "badge", entry.ID, "error", err)
			continue
		}
		if !added {
			continue
		}
		if _, err := s.levels.AddExperience(ctx, nil, userID, entry.Points); err != nil {
			s.log.Warn("achievement reward credit failed", "user_id", userID, "badge", entry.ID, "error", err)
		}
		unlocked = append(unlocked, entry.Achievement)
	}
	return unlocked, nil
}

func (s *growthService) collectStatistics(ctx context.Context, userID uuid.UUID) (*UserStatistics, error) {
	uploads, err := s.artworks.ListByOwner(ctx, nil, userID, 500)
	if err != nil {
		return nil, err
	}

	stats := &UserStatistics{Uploads: len(uploads)}
	ids := make([]uuid.UUID, len(uploads))
	for i, aw := range uploads {
		ids[i] = aw.ID
		stats.TotalLikesReceived += aw.LikesCount
		stats.TotalComments += aw.CommentsCount
		if aw.LikesCount > stats.MaxLikesOnOneItem {
			stats.MaxLikesOnOneItem = aw.LikesCount
		}
	}

	if metrics, err := s.trending.GetByArtworkIDs(ctx, nil, ids); err == nil {
		sum := 0.0
		for _, m := range metrics {
			sum += m.QualityScore
			if m.GlobalRank > 0 && m.GlobalRank <= 100 {
				stats.TrendingAppearances++
			}
		}
		if len(metrics) > 0 {
			stats.AvgQuality = sum / float64(len(metrics))
		}
	}

	stats.LikesGiven, _ = s.events.CountByUserTypeSince(ctx, nil, userID, types.EventLike, time.Time{})
	stats.CommentsGiven, _ = s.events.CountByUserTypeSince(ctx, nil, userID, types.EventComment, time.Time{})

	if row, err := s.levels.Get(ctx, nil, userID); err == nil {
		stats.Level = row.CurrentLevel
	}
	return stats, nil
}

// RecomputeRatings rebuilds all three ratings from scratch. Wholesale
// recomputation keeps the math simple and makes concurrent runs
// last-writer-wins safe.
func (s *growthService) RecomputeRatings(ctx context.Context, userID uuid.UUID) error {
	stats, err := s.collectStatistics(ctx, userID)
	if err != nil {
		return fmt.Errorf("collect statistics: %w", err)
	}

	events, err := s.events.ListByUserSince(ctx, nil, userID, s.nowFn().Add(-12*7*24*time.Hour))
	if err != nil {
		return fmt.Errorf("load rating window: %w", err)
	}

	sanctions, err := s.sanctions.ListActiveByUser(ctx, nil, userID)
	if err != nil {
		s.log.Warn("sanction lookup failed, rating unpenalized", "user_id", userID, "error", err)
	}

	artist := ArtistRating(*stats, weeklyConsistency(events, s.nowFn()))
	community := CommunityRating(*stats, events, sanctions)
	overall := (artist + community) / 2

	if err := s.levels.UpdateRatings(ctx, nil, userID, artist, community, overall); err != nil {
		return fmt.Errorf("write ratings: %w", err)
	}
	return nil
}

// ArtistRating is in [1,5]: quality, likes-per-upload, comments-per-upload
// and week-over-week consistency.
func ArtistRating(stats UserStatistics, consistency float64) float64 {
	if stats.Uploads == 0 {
		return 1
	}
	perUpload := float64(stats.Uploads)
	likesPer := float64(stats.TotalLikesReceived) / perUpload
	commentsPer := float64(stats.TotalComments) / perUpload
	r := 1 +
		stats.AvgQuality*1.6 +
		math.Min(likesPer/10, 1)*1.2 +
		math.Min(commentsPer/5, 1)*0.8 +
		consistency*0.4
	return clampRating(r)
}

// CommunityRating is in [1,5]: how much the user gives back, discounted
// by active sanctions.
func CommunityRating(stats UserStatistics, events []*types.BehaviorEvent, sanctions []*types.UserSanction) float64 {
	helpfulness := math.Min(1, float64(stats.CommentsGiven)/50)

	kinds := map[string]bool{}
	for _, e := range events {
		if types.PositiveEngagement(e.Type) || e.Type == types.EventFollow {
			kinds[e.Type] = true
		}
	}
	breadth := float64(len(kinds)) / 5

	penalty := 0.0
	for _, s := range sanctions {
		penalty += float64(s.SeverityLevel) * 0.1
	}
	penalty = math.Min(0.5, penalty)

	r := 1 + (helpfulness*2.0+breadth*1.2+0.8)*(1-penalty)
	return clampRating(r)
}

// weeklyConsistency is the fraction of the trailing 12 weeks with at least
// one event.
func weeklyConsistency(events []*types.BehaviorEvent, now time.Time) float64 {
	active := map[int]bool{}
	for _, e := range events {
		week := int(now.Sub(e.CreatedAt).Hours() / (7 * 24))
		if week >= 0 && week < 12 {
			active[week] = true
		}
	}
	return float64(len(active)) / 12
}

func clampRating(r float64) float64 {
	return math.Max(1, math.Min(5, r))
}
