package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/craftfolio/engine/internal/countstore"
	"github.com/craftfolio/engine/internal/logger"
	"github.com/craftfolio/engine/internal/repos"
	"github.com/craftfolio/engine/internal/types"
)

func TestSpamEnsemble_Bounds(t *testing.T) {
	cases := []struct {
		name string
		sub  SpamSubScores
	}{
		{"all zero", SpamSubScores{}},
		{"all one", SpamSubScores{1, 1, 1, 1, 1}},
		{"mixed", SpamSubScores{ContentSimilarity: 0.9, Flooding: 0.2}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := SpamEnsemble(tc.sub)
			if got < 0 || got > 1 {
				t.Fatalf("SpamEnsemble(%+v) = %v, out of [0,1]", tc.sub, got)
			}
		})
	}
	if SpamEnsemble(SpamSubScores{}) != 0 {
		t.Fatalf("zero sub-scores must yield 0")
	}
}

func TestSpamEnsemble_Monotonic(t *testing.T) {
	base := SpamSubScores{0.2, 0.2, 0.2, 0.2, 0.2}
	baseScore := SpamEnsemble(base)
	bumps := []func(s SpamSubScores) SpamSubScores{
		func(s SpamSubScores) SpamSubScores { s.ContentSimilarity += 0.5; return s },
		func(s SpamSubScores) SpamSubScores { s.BehaviorAnomaly += 0.5; return s },
		func(s SpamSubScores) SpamSubScores { s.Flooding += 0.5; return s },
		func(s SpamSubScores) SpamSubScores { s.Toxicity += 0.5; return s },
		func(s SpamSubScores) SpamSubScores { s.BotProbability += 0.5; return s },
	}
	for i, bump := range bumps {
		if got := SpamEnsemble(bump(base)); got <= baseScore {
			t.Fatalf("bumping sub-score %d did not increase ensemble: %v <= %v", i, got, baseScore)
		}
	}
}

func TestSpamRiskLevel_Totality(t *testing.T) {
	valid := map[string]bool{
		types.RiskLow:      true,
		types.RiskMedium:   true,
		types.RiskHigh:     true,
		types.RiskCritical: true,
	}
	for score := 0.0; score <= 1.0; score += 0.01 {
		if level := SpamRiskLevel(score); !valid[level] {
			t.Fatalf("SpamRiskLevel(%v) = %q, not a known level", score, level)
		}
	}

	cases := []struct {
		score float64
		want  string
	}{
		{0.0, types.RiskLow},
		{0.29, types.RiskLow},
		{0.3, types.RiskMedium},
		{0.6, types.RiskHigh},
		{0.8, types.RiskCritical},
		{1.0, types.RiskCritical},
	}
	for _, tc := range cases {
		if got := SpamRiskLevel(tc.score); got != tc.want {
			t.Fatalf("SpamRiskLevel(%v) = %q, want %q", tc.score, got, tc.want)
		}
	}
}

func TestRecommendSpamAction(t *testing.T) {
	warning := &types.UserSanction{ActionType: types.SanctionWarning}
	tempBan := &types.UserSanction{ActionType: types.SanctionTempBan}

	cases := []struct {
		name      string
		score     float64
		sanctions []*types.UserSanction
		want      string
	}{
		{"clean low score", 0.2, nil, types.SpamActionAllow},
		{"clean mid score", 0.5, nil, types.SpamActionShadowBan},
		{"clean high score", 0.75, nil, types.SpamActionTempBan},
		{"clean critical", 0.95, nil, types.SpamActionPermanentBan},
		{"history escalates", 0.75, []*types.UserSanction{tempBan, warning}, types.SpamActionPermanentBan},
		{"history cannot invent spam", 0.0, []*types.UserSanction{tempBan, tempBan}, types.SpamActionAllow},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := RecommendSpamAction(tc.score, tc.sanctions); got != tc.want {
				t.Fatalf("RecommendSpamAction(%v) = %q, want %q", tc.score, got, tc.want)
			}
		})
	}
}

type fakeSpamEventRepo struct {
	repos.BehaviorEventRepo
	events []*types.BehaviorEvent
}

func (f *fakeSpamEventRepo) ListRecentByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID, limit int) ([]*types.BehaviorEvent, error) {
	return f.events, nil
}

type fakeSpamArtworkRepo struct {
	repos.ArtworkRepo
}

func (f *fakeSpamArtworkRepo) ListByOwner(ctx context.Context, tx *gorm.DB, ownerID uuid.UUID, limit int) ([]*types.Artwork, error) {
	return nil, nil
}

type fakeSpamSanctionRepo struct {
	repos.SanctionRepo
}

func (f *fakeSpamSanctionRepo) ListActiveByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.UserSanction, error) {
	return nil, nil
}

type fakeSpamResultRepo struct {
	repos.SpamResultRepo
	rows []*types.SpamDetectionResult
}

func (f *fakeSpamResultRepo) Create(ctx context.Context, tx *gorm.DB, result *types.SpamDetectionResult) error {
	f.rows = append(f.rows, result)
	return nil
}

func (f *fakeSpamResultRepo) ListRecentByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID, limit int) ([]*types.SpamDetectionResult, error) {
	return f.rows, nil
}

func TestAnalyze_RepeatedPromoTextTripsSpam(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	counts := countstore.NewMemCountStore()
	for i := 0; i < 8; i++ {
		if err := counts.Increment(ctx, types.EventUpload, userID.String()); err != nil {
			t.Fatalf("increment: %v", err)
		}
	}

	results := &fakeSpamResultRepo{}
	svc := NewSpamService(
		logger.NewNop(),
		&fakeSpamEventRepo{},
		&fakeSpamArtworkRepo{},
		&fakeSpamSanctionRepo{},
		results,
		counts,
	)

	req := SpamCheckRequest{
		UserID:      userID,
		ContentType: "artwork",
		Text:        "Buy now buy now buy now!!!",
	}

	first, err := svc.Analyze(ctx, req)
	if err != nil {
		t.Fatalf("first analyze: %v", err)
	}
	if first.SubScores.Flooding <= 0 {
		t.Fatalf("8 uploads in an hour against a ceiling of 5 should raise flooding, got %v", first.SubScores.Flooding)
	}
	if len(results.rows) != 1 || results.rows[0].ContentHash == "" {
		t.Fatalf("first analysis should persist the content hash")
	}

	second, err := svc.Analyze(ctx, req)
	if err != nil {
		t.Fatalf("second analyze: %v", err)
	}
	if second.SubScores.ContentSimilarity != 1 {
		t.Fatalf("reposted text should register as an exact duplicate, got %v", second.SubScores.ContentSimilarity)
	}
	if !second.IsSpam {
		t.Fatalf("repeated promo text with flooding should be spam, got %+v", second)
	}
	if second.RecommendedAction == types.SpamActionAllow {
		t.Fatalf("spam verdict should carry an enforcement action, got %q", second.RecommendedAction)
	}
}

func TestCadenceScore(t *testing.T) {
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	uniform := make([]time.Time, 20)
	for i := range uniform {
		uniform[i] = base.Add(time.Duration(i) * time.Second)
	}
	if got := CadenceScore(uniform); got < 0.6 {
		t.Fatalf("machine-regular cadence should score at least 0.6, got %v", got)
	}

	organic := []time.Time{
		base,
		base.Add(42 * time.Second),
		base.Add(3 * time.Minute),
		base.Add(11 * time.Minute),
		base.Add(28 * time.Minute),
		base.Add(95 * time.Minute),
	}
	if got := CadenceScore(organic); got != 0 {
		t.Fatalf("organic cadence should score 0, got %v", got)
	}

	if got := CadenceScore(uniform[:4]); got != 0 {
		t.Fatalf("fewer than 5 events should score 0, got %v", got)
	}
}
