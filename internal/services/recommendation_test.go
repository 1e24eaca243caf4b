package services

import (
	"context"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/craftfolio/engine/internal/logger"
	"github.com/craftfolio/engine/internal/repos"
	"github.com/craftfolio/engine/internal/types"
)

func TestCosineSimilarity(t *testing.T) {
	cases := []struct {
		name string
		a    []float64
		b    []float64
		want float64
	}{
		{"identical", []float64{1, 0, 1}, []float64{1, 0, 1}, 1},
		{"orthogonal", []float64{1, 0}, []float64{0, 1}, 0},
		{"zero vector", []float64{0, 0}, []float64{1, 1}, 0},
		{"length mismatch", []float64{1}, []float64{1, 1}, 0},
		{"empty", nil, nil, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := cosineSimilarity(tc.a, tc.b)
			if math.Abs(got-tc.want) > 1e-9 {
				t.Fatalf("cosineSimilarity = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestWeightOverlap(t *testing.T) {
	a := map[string]float64{"ceramic": 0.6, "wood": 0.4}
	b := map[string]float64{"ceramic": 0.3, "glass": 0.7}
	if got := weightOverlap(a, b); got != 0.3 {
		t.Fatalf("weightOverlap = %v, want 0.3", got)
	}
	if got := weightOverlap(a, map[string]float64{}); got != 0 {
		t.Fatalf("disjoint overlap should be 0, got %v", got)
	}
	if got := weightOverlap(a, a); math.Abs(got-1) > 1e-9 {
		t.Fatalf("self overlap of a normalized map should be 1, got %v", got)
	}
}

func TestMergeHybrid_ConfidenceWeighting(t *testing.T) {
	shared := uuid.New()
	collabOnly := uuid.New()
	collab := map[uuid.UUID]*scoredCandidate{
		shared:     {ArtworkID: shared, Score: 1, Reasons: []string{"similar taste"}},
		collabOnly: {ArtworkID: collabOnly, Score: 1},
	}
	content := map[uuid.UUID]*scoredCandidate{
		shared: {ArtworkID: shared, Score: 1, Reasons: []string{"material match"}},
	}

	merged := mergeHybrid(collab, content, 0.5)
	byID := map[uuid.UUID]RecommendedItem{}
	for _, item := range merged {
		byID[item.ArtworkID] = item
	}

	// wCollab = 0.5*0.6 = 0.3, wContent = 0.7.
	if got := byID[shared].Score; math.Abs(got-1.0) > 1e-9 {
		t.Fatalf("shared item should sum both sides to 1.0, got %v", got)
	}
	if got := byID[collabOnly].Score; math.Abs(got-0.3) > 1e-9 {
		t.Fatalf("collab-only item should carry the collaborative weight, got %v", got)
	}
	if len(byID[shared].Reasons) != 2 {
		t.Fatalf("explanations must concatenate, got %v", byID[shared].Reasons)
	}
}

func TestDiversityShuffle_PreservesMembership(t *testing.T) {
	items := make([]RecommendedItem, 10)
	for i := range items {
		items[i] = RecommendedItem{ArtworkID: uuid.New(), Score: float64(10 - i)}
	}
	before := map[uuid.UUID]bool{}
	for _, item := range items {
		before[item.ArtworkID] = true
	}

	diversityShuffle(items, 0.8, rand.New(rand.NewSource(1)))

	if len(items) != 10 {
		t.Fatalf("shuffle must not change length")
	}
	for _, item := range items {
		if !before[item.ArtworkID] {
			t.Fatalf("shuffle must not invent items")
		}
	}

	// Zero weight is a no-op.
	ordered := make([]RecommendedItem, len(items))
	copy(ordered, items)
	diversityShuffle(items, 0, rand.New(rand.NewSource(1)))
	for i := range items {
		if items[i].ArtworkID != ordered[i].ArtworkID {
			t.Fatalf("zero diversity weight must preserve order")
		}
	}
}

type fakeProfileRepo struct {
	repos.PreferenceProfileRepo
	profile *types.UserPreferenceProfile
}

func (f *fakeProfileRepo) Get(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*types.UserPreferenceProfile, error) {
	if f.profile == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return f.profile, nil
}

type fakeTrendingRepo struct {
	repos.TrendingRepo
	top []*types.TrendingMetrics
}

func (f *fakeTrendingRepo) ListTop(ctx context.Context, tx *gorm.DB, limit int) ([]*types.TrendingMetrics, error) {
	return f.top, nil
}

type fakeRecLogRepo struct {
	repos.RecommendationLogRepo
	entries []*types.RecommendationLog
}

func (f *fakeRecLogRepo) Create(ctx context.Context, tx *gorm.DB, entry *types.RecommendationLog) error {
	f.entries = append(f.entries, entry)
	return nil
}

func TestGenerate_ColdStartBelowConfidenceThreshold(t *testing.T) {
	top := []*types.TrendingMetrics{
		{ArtworkID: uuid.New(), TrendingScore: 0.9},
		{ArtworkID: uuid.New(), TrendingScore: 0.7},
	}
	logs := &fakeRecLogRepo{}
	svc := &recommendationService{
		log:      logger.NewNop(),
		profiles: &fakeProfileRepo{profile: &types.UserPreferenceProfile{Confidence: 0.1}},
		trending: &fakeTrendingRepo{top: top},
		recLogs:  logs,
		opts:     RecommendationOptions{MaxResults: 20},
		nowFn:    time.Now,
		rng:      rand.New(rand.NewSource(1)),
	}

	result, err := svc.Generate(context.Background(), uuid.New(), "session-1")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if result.Algorithm != AlgorithmColdStart {
		t.Fatalf("low-confidence profile must cold start, got %q", result.Algorithm)
	}
	if len(result.Items) != 2 {
		t.Fatalf("cold start should serve the trending list, got %d items", len(result.Items))
	}
	if len(logs.entries) != 1 || logs.entries[0].Algorithm != AlgorithmColdStart {
		t.Fatalf("served recommendations must be logged")
	}
}

func TestGenerate_MissingProfileColdStarts(t *testing.T) {
	svc := &recommendationService{
		log:      logger.NewNop(),
		profiles: &fakeProfileRepo{},
		trending: &fakeTrendingRepo{top: nil},
		recLogs:  &fakeRecLogRepo{},
		opts:     RecommendationOptions{MaxResults: 20},
		nowFn:    time.Now,
		rng:      rand.New(rand.NewSource(1)),
	}
	result, err := svc.Generate(context.Background(), uuid.New(), "")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if result.Algorithm != AlgorithmColdStart {
		t.Fatalf("unknown user must cold start, got %q", result.Algorithm)
	}
	if result.Confidence != 0 {
		t.Fatalf("unknown user confidence should be 0, got %v", result.Confidence)
	}
}
