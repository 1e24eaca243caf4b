package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/craftfolio/engine/internal/logger"
	"github.com/craftfolio/engine/internal/repos"
	"github.com/craftfolio/engine/internal/types"
)

func TestActivityBasePoints_Signs(t *testing.T) {
	positives := []string{
		ActivityUpload, ActivityFirstUpload, ActivityReceiveLike, ActivityReceiveComment,
		ActivityReceiveBookmark, ActivityReceiveShare, ActivityGiveLike, ActivityGiveComment,
		ActivityFollow,
	}
	for _, a := range positives {
		if activityBasePoints[a] <= 0 {
			t.Fatalf("activity %q must carry positive points, got %d", a, activityBasePoints[a])
		}
	}
	if activityBasePoints[ActivityContentRemoved] >= 0 {
		t.Fatalf("content removal must be a penalty")
	}
	if activityBasePoints[ActivitySpamWarning] >= 0 {
		t.Fatalf("spam warnings must be a penalty")
	}
}

func TestXPMultiplier(t *testing.T) {
	cases := []struct {
		name           string
		quality        float64
		engagement     float64
		streakDays     int
		accountAgeDays float64
		want           float64
	}{
		{"established account, no bonuses", 0.5, 0.1, 0, 365, 1.0},
		{"high quality", 0.9, 0.1, 0, 365, 1.5},
		{"high engagement", 0.5, 0.4, 0, 365, 1.3},
		{"streak capped", 0.5, 0.1, 10, 365, 1.5},
		{"brand new account", 0.5, 0.1, 0, 0, 1.5},
		{"everything", 0.9, 0.4, 10, 0, 2.8},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := XPMultiplier(tc.quality, tc.engagement, tc.streakDays, tc.accountAgeDays)
			if diff := got - tc.want; diff > 1e-9 || diff < -1e-9 {
				t.Fatalf("XPMultiplier = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestTierForXP(t *testing.T) {
	cases := []struct {
		xp   int64
		want int
	}{
		{0, 1},
		{99, 1},
		{100, 2},
		{3000, 6},
		{999999, 8},
	}
	for _, tc := range cases {
		if got := TierForXP(tc.xp); got.Level != tc.want {
			t.Fatalf("TierForXP(%d).Level = %d, want %d", tc.xp, got.Level, tc.want)
		}
	}
}

func TestTierProgress(t *testing.T) {
	for _, xp := range []int64{0, 50, 100, 350, 5000, 999999} {
		p := TierProgress(xp)
		if p < 0 || p > 1 {
			t.Fatalf("TierProgress(%d) = %v, out of [0,1]", xp, p)
		}
	}
	if TierProgress(0) != 0 {
		t.Fatalf("tier floor should report 0 progress")
	}
	if TierProgress(999999) != 1 {
		t.Fatalf("top tier should report full progress")
	}
	// Level 1 spans 0..100.
	if got := TierProgress(50); got != 0.5 {
		t.Fatalf("TierProgress(50) = %v, want 0.5", got)
	}
}

func TestConsecutiveActiveDays(t *testing.T) {
	now := time.Date(2026, 8, 20, 15, 0, 0, 0, time.UTC)
	eventOn := func(daysAgo int) *types.BehaviorEvent {
		return &types.BehaviorEvent{CreatedAt: now.AddDate(0, 0, -daysAgo)}
	}

	cases := []struct {
		name   string
		events []*types.BehaviorEvent
		want   int
	}{
		{"no events", nil, 0},
		{"today only", []*types.BehaviorEvent{eventOn(0)}, 1},
		{"three day streak", []*types.BehaviorEvent{eventOn(0), eventOn(1), eventOn(2)}, 3},
		{"gap breaks streak", []*types.BehaviorEvent{eventOn(0), eventOn(2), eventOn(3)}, 1},
		{"streak must include today", []*types.BehaviorEvent{eventOn(1), eventOn(2)}, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := consecutiveActiveDays(tc.events, now); got != tc.want {
				t.Fatalf("consecutiveActiveDays = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestArtistRating_Bounds(t *testing.T) {
	if got := ArtistRating(UserStatistics{}, 0); got != 1 {
		t.Fatalf("no uploads should floor at 1, got %v", got)
	}
	best := ArtistRating(UserStatistics{
		Uploads:            10,
		AvgQuality:         1,
		TotalLikesReceived: 1000,
		TotalComments:      500,
	}, 1)
	if best < 1 || best > 5 {
		t.Fatalf("rating out of [1,5]: %v", best)
	}
	if best <= 4 {
		t.Fatalf("strong statistics should rate high, got %v", best)
	}
}

func TestCommunityRating_SanctionsDiscount(t *testing.T) {
	stats := UserStatistics{CommentsGiven: 100}
	events := []*types.BehaviorEvent{
		{Type: types.EventLike},
		{Type: types.EventComment},
		{Type: types.EventFollow},
	}
	clean := CommunityRating(stats, events, nil)
	sanctioned := CommunityRating(stats, events, []*types.UserSanction{
		{SeverityLevel: 3},
		{SeverityLevel: 3},
	})
	if sanctioned >= clean {
		t.Fatalf("active sanctions must lower the rating: %v >= %v", sanctioned, clean)
	}
	if clean < 1 || clean > 5 || sanctioned < 1 || sanctioned > 5 {
		t.Fatalf("ratings out of [1,5]: %v, %v", clean, sanctioned)
	}
}

type fakeLevelRepo struct {
	repos.UserLevelRepo
	badges map[string]bool
	xp     int64
}

func (f *fakeLevelRepo) AddBadge(ctx context.Context, tx *gorm.DB, userID uuid.UUID, badgeID string) (bool, error) {
	if f.badges[badgeID] {
		return false, nil
	}
	f.badges[badgeID] = true
	return true, nil
}

func (f *fakeLevelRepo) AddExperience(ctx context.Context, tx *gorm.DB, userID uuid.UUID, delta int64) (int64, error) {
	f.xp += delta
	return f.xp, nil
}

func (f *fakeLevelRepo) Get(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*types.UserLevel, error) {
	return nil, gorm.ErrRecordNotFound
}

type fakeGrowthArtworkRepo struct {
	repos.ArtworkRepo
	rows []*types.Artwork
}

func (f *fakeGrowthArtworkRepo) ListByOwner(ctx context.Context, tx *gorm.DB, ownerID uuid.UUID, limit int) ([]*types.Artwork, error) {
	return f.rows, nil
}

type fakeGrowthTrendingRepo struct {
	repos.TrendingRepo
}

func (f *fakeGrowthTrendingRepo) GetByArtworkIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.TrendingMetrics, error) {
	return nil, nil
}

type fakeGrowthEventRepo struct {
	repos.BehaviorEventRepo
}

func (f *fakeGrowthEventRepo) CountByUserTypeSince(ctx context.Context, tx *gorm.DB, userID uuid.UUID, eventType string, since time.Time) (int64, error) {
	return 0, nil
}

func TestEvaluateAchievements_Idempotent(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	levels := &fakeLevelRepo{badges: map[string]bool{}}
	svc := NewGrowthService(
		logger.NewNop(),
		levels,
		nil,
		&fakeGrowthEventRepo{},
		&fakeGrowthArtworkRepo{rows: []*types.Artwork{{ID: uuid.New(), LikesCount: 10}}},
		&fakeGrowthTrendingRepo{},
		nil,
	)

	first, err := svc.EvaluateAchievements(ctx, userID)
	if err != nil {
		t.Fatalf("first evaluation: %v", err)
	}
	if len(first) != 1 || first[0].ID != "first_piece" {
		t.Fatalf("one upload should unlock exactly first_piece, got %+v", first)
	}
	xpAfterFirst := levels.xp
	if xpAfterFirst != first[0].Points {
		t.Fatalf("unlock should credit the achievement points, got %d", xpAfterFirst)
	}

	second, err := svc.EvaluateAchievements(ctx, userID)
	if err != nil {
		t.Fatalf("second evaluation: %v", err)
	}
	if len(second) != 0 {
		t.Fatalf("re-evaluating unchanged statistics must unlock nothing, got %+v", second)
	}
	if levels.xp != xpAfterFirst {
		t.Fatalf("re-evaluation must not re-credit points: %d != %d", levels.xp, xpAfterFirst)
	}
}

func TestAchievementCatalog_UniqueIDs(t *testing.T) {
	seen := map[string]bool{}
	for _, entry := range achievementCatalog {
		if seen[entry.ID] {
			t.Fatalf("duplicate achievement id %q", entry.ID)
		}
		seen[entry.ID] = true
		if entry.Points <= 0 {
			t.Fatalf("achievement %q must award positive points", entry.ID)
		}
		if !entry.satisfied(UserStatistics{Uploads: 1000, AvgQuality: 1, MaxLikesOnOneItem: 100000,
			TotalLikesReceived: 100000, LikesGiven: 100000, CommentsGiven: 100000,
			TrendingAppearances: 100, Level: 8}) {
			t.Fatalf("achievement %q unreachable even by maximal statistics", entry.ID)
		}
	}
}
