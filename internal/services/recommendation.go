package services

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/craftfolio/engine/internal/logger"
	"github.com/craftfolio/engine/internal/repos"
	"github.com/craftfolio/engine/internal/signals"
	"github.com/craftfolio/engine/internal/types"
)

// Candidate generator identifiers, recorded with every served list.
const (
	AlgorithmHybrid         = "hybrid"
	AlgorithmColdStart      = "cold_start"
	AlgorithmFallbackRecent = "fallback_recent"
)

const (
	similarUserK        = 30
	candidatePool       = 200
	collaborativeWindow = 30 * 24 * time.Hour
	coldStartThreshold  = 0.3
)

type RecommendedItem struct {
	ArtworkID           uuid.UUID `json:"artwork_id"`
	Score               float64   `json:"score"`
	Reasons             []string  `json:"reasons,omitempty"`
	PredictedEngagement float64   `json:"predicted_engagement"`
	Novelty             float64   `json:"novelty"`
}

type RecommendationResult struct {
	Items       []RecommendedItem `json:"items"`
	Algorithm   string            `json:"algorithm"`
	Confidence  float64           `json:"confidence"`
	GeneratedAt time.Time         `json:"generated_at"`
}

type RecommendationService interface {
	Generate(ctx context.Context, userID uuid.UUID, sessionID string) (*RecommendationResult, error)
	// UpdateOptions applies a runtime configuration change. Later Generate
	// calls observe the new options; cached results expire on their own.
	UpdateOptions(opts RecommendationOptions)
}

type RecommendationOptions struct {
	MaxResults      int
	DiversityWeight float64
	CacheEnabled    bool
	CacheTTL        time.Duration
}

type recommendationService struct {
	log      *logger.Logger
	profiles repos.PreferenceProfileRepo
	events   repos.BehaviorEventRepo
	artworks repos.ArtworkRepo
	trending repos.TrendingRepo
	recLogs  repos.RecommendationLogRepo
	rdb      *redis.Client
	nowFn    func() time.Time
	rng      *rand.Rand

	optsMu sync.RWMutex
	opts   RecommendationOptions
}

func NewRecommendationService(
	baseLog *logger.Logger,
	profiles repos.PreferenceProfileRepo,
	events repos.BehaviorEventRepo,
	artworks repos.ArtworkRepo,
	trending repos.TrendingRepo,
	recLogs repos.RecommendationLogRepo,
	rdb *redis.Client,
	opts RecommendationOptions,
) RecommendationService {
	if opts.MaxResults <= 0 {
		opts.MaxResults = 20
	}
	return &recommendationService{
		log:      baseLog.With("service", "RecommendationService"),
		profiles: profiles,
		events:   events,
		artworks: artworks,
		trending: trending,
		recLogs:  recLogs,
		rdb:      rdb,
		opts:     opts,
		nowFn:    time.Now,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (s *recommendationService) UpdateOptions(opts RecommendationOptions) {
	if opts.MaxResults <= 0 {
		opts.MaxResults = 20
	}
	s.optsMu.Lock()
	s.opts = opts
	s.optsMu.Unlock()
	s.log.Info("recommendation options updated",
		"max_results", opts.MaxResults, "cache_enabled", opts.CacheEnabled)
}

func (s *recommendationService) options() RecommendationOptions {
	s.optsMu.RLock()
	defer s.optsMu.RUnlock()
	return s.opts
}

// Generate produces a ranked list for the user. Failures never propagate:
// the worst case is a deterministic most-recent fallback with confidence
// 0.1, so the feed always renders.
func (s *recommendationService) Generate(ctx context.Context, userID uuid.UUID, sessionID string) (*RecommendationResult, error) {
	if s.options().CacheEnabled && s.rdb != nil {
		if cached := s.cacheGet(ctx, userID); cached != nil {
			return cached, nil
		}
	}

	result, err := s.generate(ctx, userID)
	if err != nil {
		s.log.Warn("recommendation generation failed, serving recency fallback", "user_id", userID, "error", err)
		result = s.fallbackRecent(ctx)
	}

	s.logServed(ctx, userID, sessionID, result)
	if s.options().CacheEnabled && s.rdb != nil {
		s.cacheSet(ctx, userID, result)
	}
	return result, nil
}

func (s *recommendationService) generate(ctx context.Context, userID uuid.UUID) (*RecommendationResult, error) {
	profile, err := s.profiles.Get(ctx, nil, userID)
	if err != nil || profile.Confidence < coldStartThreshold {
		return s.coldStart(ctx, profile)
	}

	recent, err := s.events.ListRecentByUser(ctx, nil, userID, 500)
	if err != nil {
		return nil, fmt.Errorf("load seen events: %w", err)
	}
	seen := map[uuid.UUID]struct{}{}
	var likedIDs []uuid.UUID
	for _, e := range recent {
		if e.TargetID == nil {
			continue
		}
		seen[*e.TargetID] = struct{}{}
		if types.PositiveEngagement(e.Type) {
			likedIDs = append(likedIDs, *e.TargetID)
		}
	}

	var collab, content map[uuid.UUID]*scoredCandidate
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var cerr error
		collab, cerr = s.collaborative(gctx, userID, profile, seen)
		if cerr != nil {
			s.log.Warn("collaborative generator failed, skipping", "user_id", userID, "error", cerr)
		}
		return nil
	})
	g.Go(func() error {
		var cerr error
		content, cerr = s.contentBased(gctx, profile, seen, likedIDs)
		if cerr != nil {
			s.log.Warn("content-based generator failed, skipping", "user_id", userID, "error", cerr)
		}
		return nil
	})
	_ = g.Wait()

	if len(collab) == 0 && len(content) == 0 {
		return s.coldStart(ctx, profile)
	}

	merged := mergeHybrid(collab, content, profile.Confidence)
	sort.SliceStable(merged, func(i, j int) bool { return merged[i].Score > merged[j].Score })

	// Diversity pass: a weighted partial shuffle, not a real submodular
	// reranker. Same contract (ranked list in, ranked list out), so it can
	// be swapped for MMR without touching callers.
	opts := s.options()
	diversityShuffle(merged, opts.DiversityWeight, s.rng)
	if len(merged) > opts.MaxResults {
		merged = merged[:opts.MaxResults]
	}

	s.enrich(ctx, merged, profile)

	return &RecommendationResult{
		Items:       merged,
		Algorithm:   AlgorithmHybrid,
		Confidence:  profile.Confidence,
		GeneratedAt: s.nowFn(),
	}, nil
}

type scoredCandidate = RecommendedItem

// collaborative finds the top-K most similar users and surfaces what they
// engaged with and the target user has not seen.
func (s *recommendationService) collaborative(ctx context.Context, userID uuid.UUID, profile *types.UserPreferenceProfile, seen map[uuid.UUID]struct{}) (map[uuid.UUID]*scoredCandidate, error) {
	others, err := s.profiles.ListRecentlyUpdated(ctx, nil, userID, candidatePool)
	if err != nil {
		return nil, fmt.Errorf("list candidate profiles: %w", err)
	}

	type neighbor struct {
		userID     uuid.UUID
		similarity float64
	}
	neighbors := make([]neighbor, 0, len(others))
	for _, other := range others {
		sim := ProfileSimilarity(profile, other)
		if sim > 0 {
			neighbors = append(neighbors, neighbor{userID: other.UserID, similarity: sim})
		}
	}
	sort.Slice(neighbors, func(i, j int) bool { return neighbors[i].similarity > neighbors[j].similarity })
	if len(neighbors) > similarUserK {
		neighbors = neighbors[:similarUserK]
	}
	if len(neighbors) == 0 {
		return nil, nil
	}

	simByUser := map[uuid.UUID]float64{}
	ids := make([]uuid.UUID, len(neighbors))
	for i, n := range neighbors {
		ids[i] = n.userID
		simByUser[n.userID] = n.similarity
	}

	positive := []string{types.EventLike, types.EventBookmark, types.EventShare, types.EventComment}
	events, err := s.events.ListByUsersSince(ctx, nil, ids, positive, s.nowFn().Add(-collaborativeWindow))
	if err != nil {
		return nil, fmt.Errorf("load neighbor events: %w", err)
	}

	sums := map[uuid.UUID]float64{}
	contributions := map[uuid.UUID]int{}
	for _, e := range events {
		if e.TargetID == nil {
			continue
		}
		if _, already := seen[*e.TargetID]; already {
			continue
		}
		weight := affinityEventWeights[e.Type]
		sums[*e.TargetID] += simByUser[e.UserID] * weight * math.Max(e.Intensity, 0.1)
		contributions[*e.TargetID]++
	}

	out := map[uuid.UUID]*scoredCandidate{}
	for id, sum := range sums {
		out[id] = &scoredCandidate{
			ArtworkID: id,
			Score:     clamp01(sum / float64(contributions[id])),
			Reasons:   []string{"popular with artists who share your taste"},
		}
	}
	return out, nil
}

// ProfileSimilarity blends preference-vector cosine similarity with
// category-overlap similarities.
func ProfileSimilarity(a, b *types.UserPreferenceProfile) float64 {
	cos := cosineSimilarity(decodeFloatSlice(a.PreferenceVector), decodeFloatSlice(b.PreferenceVector))
	material := weightOverlap(decodeWeightMap(a.MaterialAffinities), decodeWeightMap(b.MaterialAffinities))
	color := weightOverlap(decodeWeightMap(a.ColorPreferences), decodeWeightMap(b.ColorPreferences))
	style := weightOverlap(decodeWeightMap(a.StylePreferences), decodeWeightMap(b.StylePreferences))
	return clamp01(cos*0.5 + material*0.2 + color*0.15 + style*0.15)
}

func (s *recommendationService) contentBased(ctx context.Context, profile *types.UserPreferenceProfile, seen map[uuid.UUID]struct{}, likedIDs []uuid.UUID) (map[uuid.UUID]*scoredCandidate, error) {
	candidates, err := s.artworks.ListRecentVisible(ctx, nil, candidatePool)
	if err != nil {
		return nil, fmt.Errorf("list candidate artworks: %w", err)
	}

	if len(likedIDs) > 20 {
		likedIDs = likedIDs[:20]
	}
	liked, err := s.artworks.GetByIDs(ctx, nil, likedIDs)
	if err != nil {
		s.log.Warn("liked artwork lookup failed, skipping similarity term", "error", err)
		liked = nil
	}

	materials := decodeWeightMap(profile.MaterialAffinities)
	artists := decodeWeightMap(profile.ArtistAffinities)
	stylePrefs := decodeWeightMap(profile.StylePreferences)
	colorPrefs := decodeWeightMap(profile.ColorPreferences)

	out := map[uuid.UUID]*scoredCandidate{}
	for _, aw := range candidates {
		if _, already := seen[aw.ID]; already {
			continue
		}
		styleMatch := keywordAffinity(stylePrefs, decodeStringSlice(aw.StyleKeywords))
		colorMatch := keywordAffinity(colorPrefs, decodeStringSlice(aw.ColorKeywords))
		pastSim := 0.0
		text := aw.Title + " " + aw.Description
		for _, l := range liked {
			sim := signals.JaccardSimilarity(text, l.Title+" "+l.Description)
			if sim > pastSim {
				pastSim = sim
			}
		}
		score := clamp01(materials[aw.Material]*0.3 +
			artists[aw.OwnerID.String()]*0.25 +
			styleMatch*0.2 +
			colorMatch*0.15 +
			pastSim*0.1)
		if score == 0 {
			continue
		}
		out[aw.ID] = &scoredCandidate{
			ArtworkID: aw.ID,
			Score:     score,
			Reasons:   []string{"matches your material and style preferences"},
		}
	}
	return out, nil
}

// mergeHybrid weights the two candidate lists by profile confidence: the
// more the engine knows the user, the more the collaborative side counts.
func mergeHybrid(collab, content map[uuid.UUID]*scoredCandidate, confidence float64) []RecommendedItem {
	wCollab := confidence * 0.6
	wContent := 1 - wCollab

	merged := map[uuid.UUID]*RecommendedItem{}
	for id, c := range collab {
		merged[id] = &RecommendedItem{ArtworkID: id, Score: c.Score * wCollab, Reasons: c.Reasons}
	}
	for id, c := range content {
		if existing, ok := merged[id]; ok {
			existing.Score += c.Score * wContent
			existing.Reasons = append(existing.Reasons, c.Reasons...)
			continue
		}
		merged[id] = &RecommendedItem{ArtworkID: id, Score: c.Score * wContent, Reasons: c.Reasons}
	}

	out := make([]RecommendedItem, 0, len(merged))
	for _, item := range merged {
		out = append(out, *item)
	}
	return out
}

// diversityShuffle nudges nearby items apart with probability proportional
// to the configured weight.
func diversityShuffle(items []RecommendedItem, weight float64, rng *rand.Rand) {
	if weight <= 0 || len(items) < 3 {
		return
	}
	for i := range items {
		if rng.Float64() >= weight {
			continue
		}
		j := i + rng.Intn(3)
		if j >= len(items) {
			j = len(items) - 1
		}
		items[i], items[j] = items[j], items[i]
	}
}

func (s *recommendationService) enrich(ctx context.Context, items []RecommendedItem, profile *types.UserPreferenceProfile) {
	ids := make([]uuid.UUID, len(items))
	for i, item := range items {
		ids[i] = item.ArtworkID
	}
	artworks, err := s.artworks.GetByIDs(ctx, nil, ids)
	if err != nil {
		s.log.Warn("enrichment lookup failed", "error", err)
		return
	}
	byID := map[uuid.UUID]*types.Artwork{}
	for _, aw := range artworks {
		byID[aw.ID] = aw
	}

	materials := decodeWeightMap(profile.MaterialAffinities)
	artists := decodeWeightMap(profile.ArtistAffinities)
	now := s.nowFn()
	for i := range items {
		aw, ok := byID[items[i].ArtworkID]
		if !ok {
			continue
		}
		items[i].PredictedEngagement = clamp01(profile.LikeRate +
			materials[aw.Material]*0.3 +
			artists[aw.OwnerID.String()]*0.2)
		ageDays := now.Sub(aw.CreatedAt).Hours() / 24
		items[i].Novelty = math.Max(0, 1-ageDays/30)
	}
}

// coldStart serves the current trending list when the profile is too thin
// for personalization.
func (s *recommendationService) coldStart(ctx context.Context, profile *types.UserPreferenceProfile) (*RecommendationResult, error) {
	top, err := s.trending.ListTop(ctx, nil, s.options().MaxResults)
	if err != nil {
		return nil, fmt.Errorf("trending fallback: %w", err)
	}
	items := make([]RecommendedItem, 0, len(top))
	for _, m := range top {
		items = append(items, RecommendedItem{
			ArtworkID: m.ArtworkID,
			Score:     m.TrendingScore,
			Reasons:   []string{"trending now"},
			Novelty:   1,
		})
	}
	confidence := 0.0
	if profile != nil {
		confidence = profile.Confidence
	}
	return &RecommendationResult{
		Items:       items,
		Algorithm:   AlgorithmColdStart,
		Confidence:  confidence,
		GeneratedAt: s.nowFn(),
	}, nil
}

// fallbackRecent is the last resort: newest visible artworks, fixed low
// confidence so callers can tell this list apart from a real ranking.
func (s *recommendationService) fallbackRecent(ctx context.Context) *RecommendationResult {
	items := []RecommendedItem{}
	recent, err := s.artworks.ListRecentVisible(ctx, nil, s.options().MaxResults)
	if err != nil {
		s.log.Error("recency fallback failed, serving empty list", "error", err)
	} else {
		for _, aw := range recent {
			items = append(items, RecommendedItem{
				ArtworkID: aw.ID,
				Score:     0.1,
				Reasons:   []string{"recently shared"},
			})
		}
	}
	return &RecommendationResult{
		Items:       items,
		Algorithm:   AlgorithmFallbackRecent,
		Confidence:  0.1,
		GeneratedAt: s.nowFn(),
	}
}

func (s *recommendationService) logServed(ctx context.Context, userID uuid.UUID, sessionID string, result *RecommendationResult) {
	ids := make([]string, len(result.Items))
	scores := make([]float64, len(result.Items))
	for i, item := range result.Items {
		ids[i] = item.ArtworkID.String()
		scores[i] = item.Score
	}
	entry := &types.RecommendationLog{
		UserID:    userID,
		SessionID: sessionID,
		Algorithm: result.Algorithm,
		ItemIDs:   marshalJSON(ids),
		Scores:    marshalJSON(scores),
	}
	if err := s.recLogs.Create(ctx, nil, entry); err != nil {
		s.log.Warn("failed to log served recommendations", "user_id", userID, "error", err)
	}
}

func (s *recommendationService) cacheKey(userID uuid.UUID) string {
	return "rec:" + userID.String()
}

func (s *recommendationService) cacheGet(ctx context.Context, userID uuid.UUID) *RecommendationResult {
	raw, err := s.rdb.Get(ctx, s.cacheKey(userID)).Bytes()
	if err != nil {
		return nil
	}
	var result RecommendationResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil
	}
	return &result
}

func (s *recommendationService) cacheSet(ctx context.Context, userID uuid.UUID, result *RecommendationResult) {
	raw, err := json.Marshal(result)
	if err != nil {
		return
	}
	if err := s.rdb.Set(ctx, s.cacheKey(userID), raw, s.options().CacheTTL).Err(); err != nil {
		s.log.Warn("recommendation cache write failed", "user_id", userID, "error", err)
	}
}

func cosineSimilarity(a, b []float64) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// weightOverlap is Σ min(w1[k], w2[k]) over the union of keys; both maps are
// normalized so the result is already in [0,1].
func weightOverlap(a, b map[string]float64) float64 {
	total := 0.0
	for k, wa := range a {
		if wb, ok := b[k]; ok {
			total += math.Min(wa, wb)
		}
	}
	return total
}

func keywordAffinity(prefs map[string]float64, keywords []string) float64 {
	total := 0.0
	for _, kw := range keywords {
		total += prefs[kw]
	}
	return clamp01(total)
}
