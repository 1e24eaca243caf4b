package services

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/craftfolio/engine/internal/logger"
	"github.com/craftfolio/engine/internal/repos"
	"github.com/craftfolio/engine/internal/signals"
	"github.com/craftfolio/engine/internal/types"
)

// Event weights for preference learning; a bookmark says more than a like,
// a share more than either.
var affinityEventWeights = map[string]float64{
	types.EventLike:     1.0,
	types.EventBookmark: 1.5,
	types.EventShare:    2.0,
	types.EventComment:  1.2,
}

const profileWindowDays = 90

type ProfileService interface {
	// Rebuild recomputes the whole profile from the trailing event window
	// and replaces the stored row. Rebuilding twice over the same window
	// yields the same profile.
	Rebuild(ctx context.Context, userID uuid.UUID) (*types.UserPreferenceProfile, error)
}

type profileService struct {
	log      *logger.Logger
	events   repos.BehaviorEventRepo
	artworks repos.ArtworkRepo
	profiles repos.PreferenceProfileRepo
	nowFn    func() time.Time
}

func NewProfileService(
	baseLog *logger.Logger,
	events repos.BehaviorEventRepo,
	artworks repos.ArtworkRepo,
	profiles repos.PreferenceProfileRepo,
) ProfileService {
	return &profileService{
		log:      baseLog.With("service", "ProfileService"),
		events:   events,
		artworks: artworks,
		profiles: profiles,
		nowFn:    time.Now,
	}
}

func (s *profileService) Rebuild(ctx context.Context, userID uuid.UUID) (*types.UserPreferenceProfile, error) {
	now := s.nowFn()
	since := now.Add(-profileWindowDays * 24 * time.Hour)
	events, err := s.events.ListByUserSince(ctx, nil, userID, since)
	if err != nil {
		return nil, fmt.Errorf("load profile events: %w", err)
	}

	targetIDs := make([]uuid.UUID, 0, len(events))
	seen := map[uuid.UUID]struct{}{}
	for _, e := range events {
		if e.TargetID == nil || !types.PositiveEngagement(e.Type) {
			continue
		}
		if _, ok := seen[*e.TargetID]; ok {
			continue
		}
		seen[*e.TargetID] = struct{}{}
		targetIDs = append(targetIDs, *e.TargetID)
	}
	artworks, err := s.artworks.GetByIDs(ctx, nil, targetIDs)
	if err != nil {
		return nil, fmt.Errorf("load engaged artworks: %w", err)
	}
	artworkByID := map[uuid.UUID]*types.Artwork{}
	for _, aw := range artworks {
		artworkByID[aw.ID] = aw
	}

	profile := BuildProfile(userID, events, artworkByID, now)
	if err := s.profiles.Upsert(ctx, nil, profile); err != nil {
		return nil, fmt.Errorf("upsert profile: %w", err)
	}
	return profile, nil
}

// BuildProfile derives the full profile from one event window. Pure: same
// inputs, same output.
func BuildProfile(userID uuid.UUID, events []*types.BehaviorEvent, artworkByID map[uuid.UUID]*types.Artwork, now time.Time) *types.UserPreferenceProfile {
	materials := map[string]float64{}
	colors := map[string]float64{}
	styles := map[string]float64{}
	artists := map[string]float64{}
	vector := make([]float64, types.PreferenceVectorDim)

	hourIdx := make([]int, 0, len(events))
	dayIdx := make([]int, 0, len(events))
	seasons := map[string]float64{}

	counts := map[string]int{}
	var viewSeconds float64
	var viewSamples int

	for _, e := range events {
		counts[e.Type]++
		hourIdx = append(hourIdx, signals.HourOfDay(e.CreatedAt))
		dayIdx = append(dayIdx, signals.DayOfWeek(e.CreatedAt))
		seasons[signals.SeasonOf(e.CreatedAt)]++

		if e.Type == types.EventView {
			if secs, ok := payloadFloat(e, "duration_seconds"); ok {
				viewSeconds += secs
				viewSamples++
			}
		}

		weight, ok := affinityEventWeights[e.Type]
		if !ok || e.TargetID == nil {
			continue
		}
		weight *= math.Max(e.Intensity, 0.1)
		aw, ok := artworkByID[*e.TargetID]
		if !ok {
			continue
		}
		if aw.Material != "" {
			materials[aw.Material] += weight
			addHashedFeature(vector, "material:"+aw.Material, weight)
		}
		for _, c := range decodeStringSlice(aw.ColorKeywords) {
			colors[c] += weight
			addHashedFeature(vector, "color:"+c, weight)
		}
		for _, st := range decodeStringSlice(aw.StyleKeywords) {
			styles[st] += weight
			addHashedFeature(vector, "style:"+st, weight)
		}
		artists[aw.OwnerID.String()] += weight
		addHashedFeature(vector, "artist:"+aw.OwnerID.String(), weight)
	}

	normalizeWeights(materials)
	normalizeWeights(colors)
	normalizeWeights(styles)
	normalizeWeights(artists)
	normalizeWeights(seasons)
	l2Normalize(vector)

	views := counts[types.EventView]
	avgView := 0.0
	if viewSamples > 0 {
		avgView = viewSeconds / float64(viewSamples)
	}

	return &types.UserPreferenceProfile{
		UserID:             userID,
		PreferenceVector:   marshalJSON(vector),
		MaterialAffinities: marshalJSON(materials),
		ColorPreferences:   marshalJSON(colors),
		StylePreferences:   marshalJSON(styles),
		ArtistAffinities:   marshalJSON(artists),
		HourHistogram:      marshalJSON(signals.Histogram(24, hourIdx)),
		DayHistogram:       marshalJSON(signals.Histogram(7, dayIdx)),
		SeasonalPatterns:   marshalJSON(seasons),
		LikeRate:           rateOf(counts[types.EventLike], views),
		BookmarkRate:       rateOf(counts[types.EventBookmark], views),
		ShareRate:          rateOf(counts[types.EventShare], views),
		CommentRate:        rateOf(counts[types.EventComment], views),
		AvgViewSeconds:     avgView,
		Confidence:         profileConfidence(events, now),
		LastUpdated:        now,
	}
}

// profileConfidence grows with event volume and requires recent activity to
// reach the top of the range.
func profileConfidence(events []*types.BehaviorEvent, now time.Time) float64 {
	volume := math.Min(1, float64(len(events))/200)
	recent := 0.0
	weekAgo := now.Add(-7 * 24 * time.Hour)
	for _, e := range events {
		if e.CreatedAt.After(weekAgo) {
			recent = 1
			break
		}
	}
	return clamp01(volume*0.8 + recent*0.2)
}

func addHashedFeature(vector []float64, feature string, weight float64) {
	h := fnv.New32a()
	_, _ = h.Write([]byte(feature))
	vector[int(h.Sum32())%len(vector)] += weight
}

func normalizeWeights(weights map[string]float64) {
	total := 0.0
	for _, w := range weights {
		total += w
	}
	if total == 0 {
		return
	}
	for k := range weights {
		weights[k] /= total
	}
}

func l2Normalize(vector []float64) {
	norm := 0.0
	for _, v := range vector {
		norm += v * v
	}
	if norm == 0 {
		return
	}
	norm = math.Sqrt(norm)
	for i := range vector {
		vector[i] /= norm
	}
}

func rateOf(n, views int) float64 {
	if views == 0 {
		return 0
	}
	return math.Min(1, float64(n)/float64(views))
}

func payloadFloat(e *types.BehaviorEvent, key string) (float64, bool) {
	if len(e.Payload) == 0 {
		return 0, false
	}
	payload := decodeWeightMap(e.Payload)
	v, ok := payload[key]
	return v, ok
}
