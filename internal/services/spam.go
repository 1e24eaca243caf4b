package services

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/craftfolio/engine/internal/countstore"
	"github.com/craftfolio/engine/internal/logger"
	"github.com/craftfolio/engine/internal/repos"
	"github.com/craftfolio/engine/internal/signals"
	"github.com/craftfolio/engine/internal/types"
)

// Ensemble weights, one per sub-score. Flooding dominates because it is the
// cheapest signal for an attacker to trip and the hardest to fake away.
const (
	spamWeightSimilarity = 0.25
	spamWeightAnomaly    = 0.20
	spamWeightFlooding   = 0.30
	spamWeightToxicity   = 0.15
	spamWeightBot        = 0.10

	// The exponent sharpens separation near the high end of the ensemble.
	spamEnsembleExponent = 1.2

	spamThreshold = 0.3
)

// Per-hour action ceilings; excess over a ceiling contributes to flooding.
var floodCeilings = map[string]int{
	types.EventUpload:  5,
	types.EventComment: 20,
	types.EventLike:    50,
}

var botAgentKeywords = []string{"bot", "crawler", "spider", "headless", "curl", "python-requests", "scrapy"}

type SpamCheckRequest struct {
	UserID      uuid.UUID
	ContentID   *uuid.UUID
	ContentType string
	Text        string
	ImageURL    string
	SessionID   string
	UserAgent   string
}

type SpamSubScores struct {
	ContentSimilarity float64 `json:"content_similarity"`
	BehaviorAnomaly   float64 `json:"behavior_anomaly"`
	Flooding          float64 `json:"flooding"`
	Toxicity          float64 `json:"toxicity"`
	BotProbability    float64 `json:"bot_probability"`
}

type SpamVerdict struct {
	IsSpam            bool          `json:"is_spam"`
	OverallScore      float64       `json:"overall_score"`
	Confidence        float64       `json:"confidence"`
	RiskLevel         string        `json:"risk_level"`
	RecommendedAction string        `json:"recommended_action"`
	SubScores         SpamSubScores `json:"sub_scores"`
	Violations        []string      `json:"violations,omitempty"`
}

type SpamService interface {
	Analyze(ctx context.Context, req SpamCheckRequest) (*SpamVerdict, error)
}

type spamService struct {
	log       *logger.Logger
	events    repos.BehaviorEventRepo
	artworks  repos.ArtworkRepo
	sanctions repos.SanctionRepo
	results   repos.SpamResultRepo
	counts    countstore.CountStore
	nowFn     func() time.Time
}

func NewSpamService(
	baseLog *logger.Logger,
	events repos.BehaviorEventRepo,
	artworks repos.ArtworkRepo,
	sanctions repos.SanctionRepo,
	results repos.SpamResultRepo,
	counts countstore.CountStore,
) SpamService {
	return &spamService{
		log:       baseLog.With("service", "SpamService"),
		events:    events,
		artworks:  artworks,
		sanctions: sanctions,
		results:   results,
		counts:    counts,
		nowFn:     time.Now,
	}
}

// Analyze runs the five sub-scores in parallel and combines them. A failing
// sub-score defaults to 0 and never aborts the ensemble; if the whole
// computation falls over the verdict fails open to allow with confidence 0.
func (s *spamService) Analyze(ctx context.Context, req SpamCheckRequest) (verdict *SpamVerdict, err error) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("spam analysis panicked, failing open", "user_id", req.UserID, "panic", fmt.Sprint(r))
			verdict = failOpenVerdict()
			err = nil
		}
	}()

	var sub SpamSubScores
	var violations []string
	var sanctionRows []*types.UserSanction

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		score, ferr := s.contentSimilarity(gctx, req)
		if ferr != nil {
			s.log.Warn("content similarity failed, defaulting to 0", "user_id", req.UserID, "error", ferr)
			return nil
		}
		sub.ContentSimilarity = score
		return nil
	})
	g.Go(func() error {
		score, ferr := s.behaviorAnomaly(gctx, req.UserID)
		if ferr != nil {
			s.log.Warn("behavior anomaly failed, defaulting to 0", "user_id", req.UserID, "error", ferr)
			return nil
		}
		sub.BehaviorAnomaly = score
		return nil
	})
	g.Go(func() error {
		score, ferr := s.flooding(gctx, req.UserID)
		if ferr != nil {
			s.log.Warn("flooding score failed, defaulting to 0", "user_id", req.UserID, "error", ferr)
			return nil
		}
		sub.Flooding = score
		return nil
	})
	g.Go(func() error {
		scan := signals.ScanToxicPatterns(req.Text)
		sub.Toxicity = scan.Score
		violations = scan.Violations
		return nil
	})
	g.Go(func() error {
		rows, ferr := s.sanctions.ListActiveByUser(gctx, nil, req.UserID)
		if ferr != nil {
			s.log.Warn("sanction lookup failed, ignoring history", "user_id", req.UserID, "error", ferr)
			return nil
		}
		sanctionRows = rows
		return nil
	})
	_ = g.Wait()

	// Bot probability reuses the anomaly score, so it runs after the join.
	sub.BotProbability = s.botProbability(ctx, req, sub.BehaviorAnomaly)

	overall := SpamEnsemble(sub)
	action := RecommendSpamAction(overall, sanctionRows)
	verdict = &SpamVerdict{
		IsSpam:            overall > spamThreshold,
		OverallScore:      overall,
		Confidence:        clamp01(0.5 + math.Abs(overall-spamThreshold)),
		RiskLevel:         SpamRiskLevel(overall),
		RecommendedAction: action,
		SubScores:         sub,
		Violations:        violations,
	}

	result := &types.SpamDetectionResult{
		UserID:            req.UserID,
		ContentID:         req.ContentID,
		ContentType:       req.ContentType,
		OverallScore:      overall,
		ContentHash:       contentHash(req.Text),
		ContentSimilarity: sub.ContentSimilarity,
		BehaviorAnomaly:   sub.BehaviorAnomaly,
		FloodingScore:     sub.Flooding,
		ToxicityScore:     sub.Toxicity,
		BotProbability:    sub.BotProbability,
		IsSpam:            verdict.IsSpam,
		RiskLevel:         verdict.RiskLevel,
		RecommendedAction: verdict.RecommendedAction,
	}
	if perr := s.results.Create(ctx, nil, result); perr != nil {
		s.log.Warn("failed to persist spam result", "user_id", req.UserID, "error", perr)
	}

	return verdict, nil
}

// SpamEnsemble combines the sub-scores into a sharpened [0,1] score. It is
// monotonically non-decreasing in every sub-score.
func SpamEnsemble(sub SpamSubScores) float64 {
	weighted := sub.ContentSimilarity*spamWeightSimilarity +
		sub.BehaviorAnomaly*spamWeightAnomaly +
		sub.Flooding*spamWeightFlooding +
		sub.Toxicity*spamWeightToxicity +
		sub.BotProbability*spamWeightBot
	return clamp01(math.Pow(clamp01(weighted), spamEnsembleExponent))
}

func SpamRiskLevel(overall float64) string {
	switch {
	case overall >= 0.8:
		return types.RiskCritical
	case overall >= 0.6:
		return types.RiskHigh
	case overall >= spamThreshold:
		return types.RiskMedium
	default:
		return types.RiskLow
	}
}

// RecommendSpamAction scales the score by the user's sanction history before
// applying the action thresholds. Repeat offenders reach bans sooner.
func RecommendSpamAction(overall float64, sanctions []*types.UserSanction) string {
	warnings, tempBans := 0, 0
	for _, s := range sanctions {
		switch s.ActionType {
		case types.SanctionWarning:
			warnings++
		case types.SanctionTempBan:
			tempBans++
		}
	}
	multiplier := 1 + 0.1*float64(warnings) + 0.3*float64(tempBans)
	adjusted := clamp01(overall * multiplier)
	switch {
	case adjusted >= 0.9:
		return types.SpamActionPermanentBan
	case adjusted >= 0.7:
		return types.SpamActionTempBan
	case adjusted >= 0.4:
		return types.SpamActionShadowBan
	default:
		return types.SpamActionAllow
	}
}

// contentSimilarity scores how closely the text repeats the user's own
// recent output. An exact fuzzy-hash match against a previously analyzed
// text is a duplicate and scores 1 outright; otherwise the best Jaccard
// overlap with the user's recent artworks is used.
func (s *spamService) contentSimilarity(ctx context.Context, req SpamCheckRequest) (float64, error) {
	if strings.TrimSpace(req.Text) == "" {
		return 0, nil
	}
	hash := signals.FuzzyHash(req.Text)
	priorResults, err := s.results.ListRecentByUser(ctx, nil, req.UserID, 50)
	if err != nil {
		return 0, err
	}
	for _, pr := range priorResults {
		if pr.ContentHash != "" && pr.ContentHash == hash {
			if req.ContentID == nil || pr.ContentID == nil || *pr.ContentID != *req.ContentID {
				return 1, nil
			}
		}
	}
	prior, err := s.artworks.ListByOwner(ctx, nil, req.UserID, 20)
	if err != nil {
		return 0, err
	}
	best := 0.0
	for _, aw := range prior {
		if req.ContentID != nil && aw.ID == *req.ContentID {
			continue
		}
		sim := signals.JaccardSimilarity(req.Text, aw.Title+" "+aw.Description)
		if sim > best {
			best = sim
		}
	}
	return best, nil
}

func (s *spamService) behaviorAnomaly(ctx context.Context, userID uuid.UUID) (float64, error) {
	events, err := s.events.ListRecentByUser(ctx, nil, userID, 100)
	if err != nil {
		return 0, err
	}
	timestamps := make([]time.Time, len(events))
	for i, e := range events {
		timestamps[i] = e.CreatedAt
	}
	return CadenceScore(timestamps), nil
}

// CadenceScore detects bot-like regularity in inter-event gaps: very low
// variance or a high share of sub-2-second gaps both raise the score.
func CadenceScore(timestamps []time.Time) float64 {
	if len(timestamps) < 5 {
		return 0
	}
	gaps := make([]float64, 0, len(timestamps)-1)
	rapid := 0
	for i := 1; i < len(timestamps); i++ {
		gap := math.Abs(timestamps[i].Sub(timestamps[i-1]).Seconds())
		gaps = append(gaps, gap)
		if gap < 2 {
			rapid++
		}
	}
	score := 0.0
	if stdDev(gaps) < 5 {
		score += 0.6
	}
	score += 0.4 * float64(rapid) / float64(len(gaps))
	return clamp01(score)
}

func (s *spamService) flooding(ctx context.Context, userID uuid.UUID) (float64, error) {
	score := 0.0
	// Counter names must match what the orchestrator increments: the bare
	// event type.
	for action, ceiling := range floodCeilings {
		n, err := s.counts.GetCount(ctx, action, userID.String(), countstore.PeriodHour)
		if err != nil {
			return 0, err
		}
		excess := n - ceiling
		if excess > 0 {
			score += math.Min(1, float64(excess)/float64(ceiling))
		}
	}
	return clamp01(score), nil
}

func (s *spamService) botProbability(ctx context.Context, req SpamCheckRequest, anomaly float64) float64 {
	score := 0.0
	agent := strings.ToLower(req.UserAgent)
	for _, kw := range botAgentKeywords {
		if strings.Contains(agent, kw) {
			score += 0.6
			break
		}
	}
	score += anomaly * 0.4

	avg, err := s.avgSessionDuration(ctx, req.UserID)
	if err != nil {
		s.log.Warn("session duration lookup failed", "user_id", req.UserID, "error", err)
	} else if avg > 0 && (avg < 10*time.Second || avg > 2*time.Hour) {
		score += 0.3
	}
	return clamp01(score)
}

func (s *spamService) avgSessionDuration(ctx context.Context, userID uuid.UUID) (time.Duration, error) {
	events, err := s.events.ListRecentByUser(ctx, nil, userID, 100)
	if err != nil {
		return 0, err
	}
	type span struct{ first, last time.Time }
	sessions := map[string]*span{}
	for _, e := range events {
		if e.SessionID == "" {
			continue
		}
		sp, ok := sessions[e.SessionID]
		if !ok {
			sessions[e.SessionID] = &span{first: e.CreatedAt, last: e.CreatedAt}
			continue
		}
		if e.CreatedAt.Before(sp.first) {
			sp.first = e.CreatedAt
		}
		if e.CreatedAt.After(sp.last) {
			sp.last = e.CreatedAt
		}
	}
	if len(sessions) == 0 {
		return 0, nil
	}
	var total time.Duration
	for _, sp := range sessions {
		total += sp.last.Sub(sp.first)
	}
	return total / time.Duration(len(sessions)), nil
}

func contentHash(text string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}
	return signals.FuzzyHash(text)
}

func failOpenVerdict() *SpamVerdict {
	return &SpamVerdict{
		IsSpam:            false,
		OverallScore:      0,
		Confidence:        0,
		RiskLevel:         types.RiskLow,
		RecommendedAction: types.SpamActionAllow,
	}
}

func stdDev(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	mean := 0.0
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))
	variance := 0.0
	for _, v := range values {
		variance += (v - mean) * (v - mean)
	}
	variance /= float64(len(values))
	return math.Sqrt(variance)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
