package services

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/craftfolio/engine/internal/logger"
	"github.com/craftfolio/engine/internal/repos"
	"github.com/craftfolio/engine/internal/signals"
	"github.com/craftfolio/engine/internal/types"
)

// Engagement weights per event type; shares count most because they expand
// reach.
var engagementWeights = map[string]float64{
	types.EventView:     1,
	types.EventLike:     3,
	types.EventBookmark: 5,
	types.EventShare:    8,
	types.EventComment:  4,
}

const (
	trendingDecayBase   = 0.85
	recencyBonusDays    = 3.0
	recencyBonusWeight  = 0.3
	velocityNormalizer  = 100.0
	originalityPeerSize = 20
)

type TrendingService interface {
	ComputeForArtwork(ctx context.Context, artworkID uuid.UUID) (*types.TrendingMetrics, error)
	RefreshRecent(ctx context.Context, limit int) (int, error)
	RecomputeRanks(ctx context.Context) error
}

type trendingService struct {
	log        *logger.Logger
	events     repos.BehaviorEventRepo
	artworks   repos.ArtworkRepo
	users      repos.UserRepo
	levels     repos.UserLevelRepo
	follows    repos.FollowRepo
	comments   repos.CommentRepo
	trending   repos.TrendingRepo
	windowDays int
	nowFn      func() time.Time
}

func NewTrendingService(
	baseLog *logger.Logger,
	events repos.BehaviorEventRepo,
	artworks repos.ArtworkRepo,
	users repos.UserRepo,
	levels repos.UserLevelRepo,
	follows repos.FollowRepo,
	comments repos.CommentRepo,
	trending repos.TrendingRepo,
	windowDays int,
) TrendingService {
	if windowDays <= 0 {
		windowDays = 7
	}
	return &trendingService{
		log:        baseLog.With("service", "TrendingService"),
		events:     events,
		artworks:   artworks,
		users:      users,
		levels:     levels,
		follows:    follows,
		comments:   comments,
		trending:   trending,
		windowDays: windowDays,
		nowFn:      time.Now,
	}
}

func (s *trendingService) ComputeForArtwork(ctx context.Context, artworkID uuid.UUID) (*types.TrendingMetrics, error) {
	artwork, err := s.artworks.GetByID(ctx, nil, artworkID)
	if err != nil {
		return nil, fmt.Errorf("load artwork: %w", err)
	}

	now := s.nowFn()
	windowStart := now.Add(-time.Duration(s.windowDays) * 24 * time.Hour)
	events, err := s.events.ListByTargetSince(ctx, nil, artworkID, windowStart)
	if err != nil {
		return nil, fmt.Errorf("load window events: %w", err)
	}

	var (
		engagement float64
		velocity   float64
		virality   float64
		quality    float64
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		engagement = EngagementRate(events)
		return nil
	})
	g.Go(func() error {
		velocity = VelocityScore(events, windowStart, now)
		return nil
	})
	g.Go(func() error {
		virality = s.viralityCoefficient(gctx, events)
		return nil
	})
	g.Go(func() error {
		quality = s.qualityScore(gctx, artwork)
		return nil
	})
	_ = g.Wait()

	views := 0
	for _, e := range events {
		if e.Type == types.EventView {
			views++
		}
	}

	ageDays := now.Sub(artwork.CreatedAt).Hours() / 24
	if ageDays < 0 {
		ageDays = 0
	}
	decay := math.Pow(trendingDecayBase, ageDays)
	recency := math.Max(0, 1-ageDays/recencyBonusDays) * recencyBonusWeight

	base := engagement*0.3 + velocity*0.25 + virality*0.2 + quality*0.15 +
		math.Min(1, math.Log(1+float64(views))/10)*0.1
	base *= s.artistBoost(ctx, artwork.OwnerID)

	metrics := &types.TrendingMetrics{
		ArtworkID:           artworkID,
		TrendingScore:       base*decay + recency,
		VelocityScore:       velocity,
		EngagementRate:      engagement,
		ViralityCoefficient: virality,
		QualityScore:        quality,
		RecencyBonus:        recency,
		TimeDecayFactor:     decay,
		UpdatedAt:           now,
	}
	if err := s.trending.Upsert(ctx, nil, metrics); err != nil {
		return nil, fmt.Errorf("upsert trending metrics: %w", err)
	}
	return metrics, nil
}

// EngagementRate is weighted engagement per view over the window.
func EngagementRate(events []*types.BehaviorEvent) float64 {
	views := 0
	weighted := 0.0
	for _, e := range events {
		if e.Type == types.EventView {
			views++
		}
		if w, ok := engagementWeights[e.Type]; ok && e.Type != types.EventView {
			weighted += w
		}
	}
	if views == 0 {
		return 0
	}
	return weighted / float64(views)
}

// VelocityScore rewards accelerating engagement: it sums only the positive
// second differences of the hourly weighted-activity series. Steady traffic,
// however heavy, scores zero.
func VelocityScore(events []*types.BehaviorEvent, windowStart, now time.Time) float64 {
	hours := int(now.Sub(windowStart).Hours()) + 1
	if hours < 3 {
		return 0
	}
	buckets := make([]float64, hours)
	for _, e := range events {
		idx := int(e.CreatedAt.Sub(windowStart).Hours())
		if idx < 0 || idx >= hours {
			continue
		}
		if w, ok := engagementWeights[e.Type]; ok {
			buckets[idx] += w
		}
	}
	sum := 0.0
	for i := 2; i < hours; i++ {
		accel := (buckets[i] - buckets[i-1]) - (buckets[i-1] - buckets[i-2])
		if accel > 0 {
			sum += accel
		}
	}
	return math.Min(1, sum/velocityNormalizer)
}

func (s *trendingService) viralityCoefficient(ctx context.Context, events []*types.BehaviorEvent) float64 {
	var shares []*types.BehaviorEvent
	for _, e := range events {
		if e.Type == types.EventShare {
			shares = append(shares, e)
		}
	}
	if len(shares) == 0 {
		return 0
	}

	firstShare := shares[0].CreatedAt
	postShareViewers := map[uuid.UUID]struct{}{}
	for _, e := range events {
		if e.Type == types.EventView && !e.CreatedAt.Before(firstShare) {
			postShareViewers[e.UserID] = struct{}{}
		}
	}
	reach := math.Min(1, float64(len(postShareViewers))/(float64(len(shares))*10))

	sharerIDs := make([]uuid.UUID, 0, len(shares))
	seen := map[uuid.UUID]struct{}{}
	for _, e := range shares {
		if _, ok := seen[e.UserID]; ok {
			continue
		}
		seen[e.UserID] = struct{}{}
		sharerIDs = append(sharerIDs, e.UserID)
	}
	influence := 0.0
	followerCounts, err := s.follows.CountFollowersBulk(ctx, nil, sharerIDs)
	if err != nil {
		s.log.Warn("follower counts failed, ignoring sharer influence", "error", err)
	} else {
		total := 0.0
		for _, n := range followerCounts {
			total += math.Log10(1 + float64(n))
		}
		influence = math.Min(1, total/(float64(len(sharerIDs))*5))
	}

	compactness := 0.0
	if len(shares) > 1 {
		var meanGapHours float64
		for i := 1; i < len(shares); i++ {
			meanGapHours += shares[i].CreatedAt.Sub(shares[i-1].CreatedAt).Hours()
		}
		meanGapHours /= float64(len(shares) - 1)
		compactness = 1 / (1 + meanGapHours)
	}

	return clamp01(reach*0.4 + influence*0.3 + compactness*0.3)
}

func (s *trendingService) qualityScore(ctx context.Context, artwork *types.Artwork) float64 {
	reputation := s.artistReputation(ctx, artwork.OwnerID)
	richness := contentRichness(artwork)
	technical := technicalScore(decodeStringSlice(artwork.ImageURLs))
	reaction := s.communityReaction(ctx, artwork.ID)
	originality := s.originality(ctx, artwork)

	return clamp01(reputation*0.30 + richness*0.25 + technical*0.20 + reaction*0.15 + originality*0.10)
}

func (s *trendingService) artistReputation(ctx context.Context, ownerID uuid.UUID) float64 {
	rating := 0.0
	if level, err := s.levels.Get(ctx, nil, ownerID); err == nil {
		rating = level.ArtistRating / 5
	}
	followers, uploads := 0.0, 0.0
	if user, err := s.users.GetByID(ctx, nil, ownerID); err == nil {
		followers = math.Min(1, math.Log10(1+float64(user.FollowersCount))/4)
		uploads = math.Min(1, math.Log10(1+float64(user.UploadsCount))/2)
	}
	return clamp01(rating*0.4 + followers*0.3 + uploads*0.3)
}

func contentRichness(artwork *types.Artwork) float64 {
	score := 0.0
	if len(artwork.Title) >= 10 {
		score += 0.3
	}
	if len(artwork.Description) >= 50 {
		score += 0.3
	}
	if artwork.Material != "" {
		score += 0.2
	}
	if len(decodeStringSlice(artwork.ImageURLs)) > 0 {
		score += 0.2
	}
	return score
}

func technicalScore(imageURLs []string) float64 {
	if len(imageURLs) == 0 {
		return 0
	}
	good := 0
	for _, u := range imageURLs {
		lower := strings.ToLower(stripQuery(u))
		for ext := range imageExtWhitelist {
			if strings.HasSuffix(lower, ext) {
				good++
				break
			}
		}
	}
	return float64(good) / float64(len(imageURLs))
}

func (s *trendingService) communityReaction(ctx context.Context, artworkID uuid.UUID) float64 {
	comments, err := s.comments.ListByArtwork(ctx, nil, artworkID, 50)
	if err != nil {
		s.log.Warn("comment lookup failed for reaction quality", "artwork_id", artworkID, "error", err)
		return 0
	}
	if len(comments) == 0 {
		return 0
	}
	total := 0
	for _, c := range comments {
		total += len(c.Body)
	}
	avg := float64(total) / float64(len(comments))
	return math.Min(1, avg/50)
}

func (s *trendingService) originality(ctx context.Context, artwork *types.Artwork) float64 {
	peers, err := s.artworks.ListByMaterial(ctx, nil, artwork.Material, originalityPeerSize)
	if err != nil {
		s.log.Warn("peer lookup failed for originality", "artwork_id", artwork.ID, "error", err)
		return 1
	}
	text := artwork.Title + " " + artwork.Description
	maxSim := 0.0
	for _, p := range peers {
		if p.ID == artwork.ID {
			continue
		}
		sim := signals.JaccardSimilarity(text, p.Title+" "+p.Description)
		if sim > maxSim {
			maxSim = sim
		}
	}
	return 1 - maxSim
}

// artistBoost gives emerging artists and highly rated artists a lift. The
// two factors stack multiplicatively.
func (s *trendingService) artistBoost(ctx context.Context, ownerID uuid.UUID) float64 {
	boost := 1.0
	if user, err := s.users.GetByID(ctx, nil, ownerID); err == nil && user.UploadsCount <= 5 {
		boost *= 1.2
	}
	if level, err := s.levels.Get(ctx, nil, ownerID); err == nil && level.ArtistRating >= 4.0 {
		boost *= 1.1
	}
	return boost
}

// RefreshRecent recomputes metrics for artworks active inside the window.
func (s *trendingService) RefreshRecent(ctx context.Context, limit int) (int, error) {
	windowStart := s.nowFn().Add(-time.Duration(s.windowDays) * 24 * time.Hour)
	items, err := s.artworks.ListActiveSince(ctx, nil, windowStart, limit)
	if err != nil {
		return 0, fmt.Errorf("list active artworks: %w", err)
	}
	refreshed := 0
	for _, aw := range items {
		if _, cerr := s.ComputeForArtwork(ctx, aw.ID); cerr != nil {
			s.log.Warn("trending refresh failed for artwork", "artwork_id", aw.ID, "error", cerr)
			continue
		}
		refreshed++
	}
	return refreshed, nil
}

// RecomputeRanks re-sorts every tracked artwork and assigns dense ranks,
// globally and within each material category.
func (s *trendingService) RecomputeRanks(ctx context.Context) error {
	metrics, err := s.trending.ListTop(ctx, nil, 10000)
	if err != nil {
		return fmt.Errorf("list trending metrics: %w", err)
	}
	if len(metrics) == 0 {
		return nil
	}

	ids := make([]uuid.UUID, len(metrics))
	for i, m := range metrics {
		ids[i] = m.ArtworkID
	}
	artworks, err := s.artworks.GetByIDs(ctx, nil, ids)
	if err != nil {
		return fmt.Errorf("load artworks for ranking: %w", err)
	}
	materials := map[uuid.UUID]string{}
	for _, aw := range artworks {
		materials[aw.ID] = aw.Material
	}

	globalRanks := denseRanks(metrics)

	byCategory := map[string][]*types.TrendingMetrics{}
	for _, m := range metrics {
		cat := materials[m.ArtworkID]
		byCategory[cat] = append(byCategory[cat], m)
	}
	for _, group := range byCategory {
		categoryRanks := denseRanks(group)
		for _, m := range group {
			if uerr := s.trending.UpdateRanks(ctx, nil, m.ArtworkID, categoryRanks[m.ArtworkID], globalRanks[m.ArtworkID]); uerr != nil {
				s.log.Warn("rank update failed", "artwork_id", m.ArtworkID, "error", uerr)
			}
		}
	}
	return nil
}

// denseRanks assigns 1..N by trending score descending; ties share a rank.
func denseRanks(metrics []*types.TrendingMetrics) map[uuid.UUID]int {
	sorted := make([]*types.TrendingMetrics, len(metrics))
	copy(sorted, metrics)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].TrendingScore > sorted[j].TrendingScore
	})
	ranks := map[uuid.UUID]int{}
	rank := 0
	prev := math.Inf(1)
	for _, m := range sorted {
		if m.TrendingScore < prev {
			rank++
			prev = m.TrendingScore
		}
		ranks[m.ArtworkID] = rank
	}
	return ranks
}
