package services

import (
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/craftfolio/engine/internal/types"
)

func buildProfileFixture() (uuid.UUID, []*types.BehaviorEvent, map[uuid.UUID]*types.Artwork, time.Time) {
	userID := uuid.New()
	now := time.Date(2026, 8, 20, 15, 0, 0, 0, time.UTC)

	ceramic := &types.Artwork{
		ID:            uuid.New(),
		OwnerID:       uuid.New(),
		Material:      "ceramic",
		ColorKeywords: marshalJSON([]string{"blue", "white"}),
		StyleKeywords: marshalJSON([]string{"minimal"}),
	}
	wood := &types.Artwork{
		ID:       uuid.New(),
		OwnerID:  uuid.New(),
		Material: "wood",
	}
	artworks := map[uuid.UUID]*types.Artwork{ceramic.ID: ceramic, wood.ID: wood}

	events := []*types.BehaviorEvent{
		{UserID: userID, TargetID: &ceramic.ID, Type: types.EventLike, Intensity: 1, CreatedAt: now.Add(-2 * time.Hour)},
		{UserID: userID, TargetID: &ceramic.ID, Type: types.EventBookmark, Intensity: 1, CreatedAt: now.Add(-26 * time.Hour)},
		{UserID: userID, TargetID: &wood.ID, Type: types.EventLike, Intensity: 1, CreatedAt: now.Add(-48 * time.Hour)},
		{UserID: userID, TargetID: &ceramic.ID, Type: types.EventView, Intensity: 1, CreatedAt: now.Add(-time.Hour)},
		{UserID: userID, TargetID: &wood.ID, Type: types.EventView, Intensity: 1, CreatedAt: now.Add(-3 * time.Hour)},
	}
	return userID, events, artworks, now
}

func TestBuildProfile_Deterministic(t *testing.T) {
	userID, events, artworks, now := buildProfileFixture()
	a := BuildProfile(userID, events, artworks, now)
	b := BuildProfile(userID, events, artworks, now)
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("BuildProfile must be deterministic over the same window")
	}
}

func TestBuildProfile_AffinityNormalization(t *testing.T) {
	userID, events, artworks, now := buildProfileFixture()
	profile := BuildProfile(userID, events, artworks, now)

	materials := decodeWeightMap(profile.MaterialAffinities)
	sum := 0.0
	for _, w := range materials {
		sum += w
	}
	if math.Abs(sum-1) > 1e-9 {
		t.Fatalf("material affinities must sum to 1, got %v", sum)
	}
	if materials["ceramic"] <= materials["wood"] {
		t.Fatalf("ceramic got like+bookmark vs wood's like; expected higher affinity, got %v vs %v",
			materials["ceramic"], materials["wood"])
	}
}

func TestBuildProfile_VectorIsUnitLength(t *testing.T) {
	userID, events, artworks, now := buildProfileFixture()
	profile := BuildProfile(userID, events, artworks, now)

	vector := decodeFloatSlice(profile.PreferenceVector)
	if len(vector) != types.PreferenceVectorDim {
		t.Fatalf("vector length = %d, want %d", len(vector), types.PreferenceVectorDim)
	}
	norm := 0.0
	for _, v := range vector {
		norm += v * v
	}
	if math.Abs(norm-1) > 1e-9 {
		t.Fatalf("vector norm^2 = %v, want 1", norm)
	}
}

func TestBuildProfile_Rates(t *testing.T) {
	userID, events, artworks, now := buildProfileFixture()
	profile := BuildProfile(userID, events, artworks, now)

	// 2 likes over 2 views.
	if profile.LikeRate != 1 {
		t.Fatalf("LikeRate = %v, want 1", profile.LikeRate)
	}
	if profile.BookmarkRate != 0.5 {
		t.Fatalf("BookmarkRate = %v, want 0.5", profile.BookmarkRate)
	}
	if profile.ShareRate != 0 {
		t.Fatalf("ShareRate = %v, want 0", profile.ShareRate)
	}
}

func TestProfileConfidence(t *testing.T) {
	now := time.Date(2026, 8, 20, 15, 0, 0, 0, time.UTC)

	if got := profileConfidence(nil, now); got != 0 {
		t.Fatalf("no events should give 0 confidence, got %v", got)
	}

	stale := make([]*types.BehaviorEvent, 200)
	for i := range stale {
		stale[i] = &types.BehaviorEvent{CreatedAt: now.Add(-30 * 24 * time.Hour)}
	}
	if got := profileConfidence(stale, now); got != 0.8 {
		t.Fatalf("full volume without recent activity should cap at 0.8, got %v", got)
	}

	fresh := append(stale[:199:199], &types.BehaviorEvent{CreatedAt: now.Add(-time.Hour)})
	if got := profileConfidence(fresh, now); got != 1 {
		t.Fatalf("full volume with recent activity should reach 1, got %v", got)
	}
}
