package services

import (
	"math"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/craftfolio/engine/internal/types"
)

func TestEngagementRate(t *testing.T) {
	view := &types.BehaviorEvent{Type: types.EventView}
	like := &types.BehaviorEvent{Type: types.EventLike}
	share := &types.BehaviorEvent{Type: types.EventShare}

	cases := []struct {
		name   string
		events []*types.BehaviorEvent
		want   float64
	}{
		{"no events", nil, 0},
		{"no views", []*types.BehaviorEvent{like, share}, 0},
		{"likes per view", []*types.BehaviorEvent{view, view, like}, 1.5},
		{"mixed", []*types.BehaviorEvent{view, view, like, share}, 5.5},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := EngagementRate(tc.events); got != tc.want {
				t.Fatalf("EngagementRate = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestVelocityScore_RewardsAccelerationOnly(t *testing.T) {
	now := time.Date(2026, 8, 10, 12, 0, 0, 0, time.UTC)
	windowStart := now.Add(-24 * time.Hour)

	likeAt := func(hoursIn int, n int) []*types.BehaviorEvent {
		out := make([]*types.BehaviorEvent, n)
		for i := range out {
			out[i] = &types.BehaviorEvent{
				Type:      types.EventLike,
				CreatedAt: windowStart.Add(time.Duration(hoursIn) * time.Hour),
			}
		}
		return out
	}

	var steady []*types.BehaviorEvent
	for h := 0; h < 24; h++ {
		steady = append(steady, likeAt(h, 2)...)
	}
	if got := VelocityScore(steady, windowStart, now); got != 0 {
		t.Fatalf("steady traffic must score 0, got %v", got)
	}

	var accelerating []*types.BehaviorEvent
	for h := 0; h < 24; h++ {
		accelerating = append(accelerating, likeAt(h, h*h/10)...)
	}
	if got := VelocityScore(accelerating, windowStart, now); got <= 0 {
		t.Fatalf("accelerating traffic must score positive, got %v", got)
	}

	if got := VelocityScore(steady, now.Add(-time.Hour), now); got != 0 {
		t.Fatalf("windows under 3 hours must score 0, got %v", got)
	}
}

func TestTrendingScore_TimeDecayMonotonic(t *testing.T) {
	score := func(ageDays float64) float64 {
		decay := math.Pow(trendingDecayBase, ageDays)
		recency := math.Max(0, 1-ageDays/recencyBonusDays) * recencyBonusWeight
		return 0.5*decay + recency
	}
	prev := math.Inf(1)
	for age := 0.0; age <= 14; age++ {
		got := score(age)
		if got >= prev {
			t.Fatalf("score at age %v (%v) is not below score at age %v (%v)", age, got, age-1, prev)
		}
		prev = got
	}
}

func TestDenseRanks(t *testing.T) {
	a, b, c, d := uuid.New(), uuid.New(), uuid.New(), uuid.New()
	metrics := []*types.TrendingMetrics{
		{ArtworkID: a, TrendingScore: 0.9},
		{ArtworkID: b, TrendingScore: 0.5},
		{ArtworkID: c, TrendingScore: 0.5},
		{ArtworkID: d, TrendingScore: 0.1},
	}
	ranks := denseRanks(metrics)
	if ranks[a] != 1 {
		t.Fatalf("top score should rank 1, got %d", ranks[a])
	}
	if ranks[b] != 2 || ranks[c] != 2 {
		t.Fatalf("ties must share a rank, got %d and %d", ranks[b], ranks[c])
	}
	if ranks[d] != 3 {
		t.Fatalf("dense ranking should not skip after ties, got %d", ranks[d])
	}
}
