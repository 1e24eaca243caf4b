package services

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/craftfolio/engine/internal/logger"
	"github.com/craftfolio/engine/internal/repos"
	"github.com/craftfolio/engine/internal/signals"
	"github.com/craftfolio/engine/internal/types"
)

const ViolationCopyright = "copyright_concern"

// Report categories map to intake priorities 1-5.
var reportPriorities = map[string]int{
	"violence":      5,
	"harassment":    4,
	"inappropriate": 3,
	"copyright":     3,
	"spam":          2,
	"fake":          2,
	"other":         1,
}

// Base review minutes per content type.
var reviewBaseMinutes = map[string]float64{
	"artwork": 5,
	"comment": 2,
	"profile": 3,
	"message": 1,
}

var imageExtWhitelist = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
}

var suspectURLKeywords = []string{"nsfw", "nude", "porn", "xxx", "gore", "explicit"}

var copyrightKeywords = []string{
	"stolen from", "reposted from", "not my art", "original by",
	"all rights reserved", "dmca", "copyrighted",
}

type ModerationRequest struct {
	ContentID      uuid.UUID
	ContentType    string
	OwnerID        uuid.UUID
	Text           string
	ImageURLs      []string
	ReporterID     *uuid.UUID
	ReportReason   string
	ReportCategory string
}

type ModerationDecision struct {
	Action                 string   `json:"action"`
	Confidence             float64  `json:"confidence"`
	ToxicityScore          float64  `json:"toxicity_score"`
	InappropriatenessScore float64  `json:"inappropriateness_score"`
	SpamScore              float64  `json:"spam_score"`
	CopyrightScore         float64  `json:"copyright_score"`
	ViolationTypes         []string `json:"violation_types,omitempty"`
	HumanReviewRequired    bool     `json:"human_review_required"`
	EstimatedReviewMinutes float64  `json:"estimated_review_minutes"`
}

type ReportOutcome struct {
	ReportID  uuid.UUID `json:"report_id"`
	Priority  int       `json:"priority"`
	Escalated bool      `json:"escalated"`
	Duplicate bool      `json:"duplicate"`
}

type BatchScanSummary struct {
	Scanned  int `json:"scanned"`
	Flagged  int `json:"flagged"`
	Failures int `json:"failures"`
}

type ModerationService interface {
	AnalyzeContent(ctx context.Context, req ModerationRequest) (*ModerationDecision, error)
	ProcessReport(ctx context.Context, req ModerationRequest) (*ReportOutcome, error)
	ApplySpamSanction(ctx context.Context, userID uuid.UUID, action, reason string) error
	ScanArtworks(ctx context.Context, limit int) (*BatchScanSummary, error)
	ScanComments(ctx context.Context, limit int) (*BatchScanSummary, error)
}

type moderationService struct {
	log       *logger.Logger
	spam      SpamService
	artworks  repos.ArtworkRepo
	comments  repos.CommentRepo
	records   repos.ModerationRecordRepo
	sanctions repos.SanctionRepo
	nowFn     func() time.Time
}

func NewModerationService(
	baseLog *logger.Logger,
	spam SpamService,
	artworks repos.ArtworkRepo,
	comments repos.CommentRepo,
	records repos.ModerationRecordRepo,
	sanctions repos.SanctionRepo,
) ModerationService {
	return &moderationService{
		log:       baseLog.With("service", "ModerationService"),
		spam:      spam,
		artworks:  artworks,
		comments:  comments,
		records:   records,
		sanctions: sanctions,
		nowFn:     time.Now,
	}
}

// AnalyzeContent runs the scans in parallel and folds them into one decision.
// Unlike spam, moderation fails closed: an unexpected failure produces a
// review decision with human review required.
func (s *moderationService) AnalyzeContent(ctx context.Context, req ModerationRequest) (decision *ModerationDecision, err error) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("moderation analysis panicked, failing closed", "content_id", req.ContentID, "panic", fmt.Sprint(r))
			decision = failClosedDecision()
			err = nil
		}
	}()

	var (
		toxScan    signals.ToxicScan
		inapp      float64
		inappViols []string
		copyScore  float64
		spamScore  float64
		strikes    int
		avgSev     float64
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		toxScan = signals.ScanToxicPatterns(req.Text)
		return nil
	})
	g.Go(func() error {
		inapp, inappViols = scanImageHeuristics(req.ImageURLs)
		return nil
	})
	g.Go(func() error {
		copyScore = scanCopyrightKeywords(req.Text)
		return nil
	})
	g.Go(func() error {
		verdict, serr := s.spam.Analyze(gctx, SpamCheckRequest{
			UserID:      req.OwnerID,
			ContentID:   &req.ContentID,
			ContentType: req.ContentType,
			Text:        req.Text,
		})
		if serr != nil {
			s.log.Warn("spam sub-analysis failed, defaulting to 0", "content_id", req.ContentID, "error", serr)
			return nil
		}
		spamScore = verdict.OverallScore
		return nil
	})
	g.Go(func() error {
		rows, serr := s.sanctions.ListActiveByUser(gctx, nil, req.OwnerID)
		if serr != nil {
			s.log.Warn("owner sanction lookup failed", "owner_id", req.OwnerID, "error", serr)
			return nil
		}
		strikes = len(rows)
		for _, row := range rows {
			avgSev += float64(row.SeverityLevel)
		}
		if strikes > 0 {
			avgSev /= float64(strikes)
		}
		return nil
	})
	_ = g.Wait()

	violations := append([]string{}, toxScan.Violations...)
	violations = append(violations, inappViols...)
	if copyScore > 0 {
		violations = append(violations, ViolationCopyright)
	}

	decision = DecideModeration(ModerationScores{
		Toxicity:          toxScan.Score,
		Inappropriateness: inapp,
		Spam:              spamScore,
		Copyright:         copyScore,
		OwnerStrikes:      strikes,
		OwnerAvgSeverity:  avgSev,
	}, violations, req.ContentType, reportPriorities[req.ReportCategory])
	return decision, nil
}

// ModerationScores is the input bundle for the pure decision function.
type ModerationScores struct {
	Toxicity          float64
	Inappropriateness float64
	Spam              float64
	Copyright         float64
	OwnerStrikes      int
	OwnerAvgSeverity  float64
}

// DecideModeration applies the threshold ensemble. Every adjusted score in
// [0,1] maps to exactly one decision.
func DecideModeration(scores ModerationScores, violations []string, contentType string, priority int) *ModerationDecision {
	reputation := clamp01(1 - 0.1*float64(scores.OwnerStrikes) - 0.1*scores.OwnerAvgSeverity)
	peak := math3Max(scores.Toxicity, scores.Inappropriateness, scores.Spam)
	adjusted := clamp01(peak * (1 + 0.2*float64(scores.OwnerStrikes) - 0.1*reputation))

	var action string
	switch {
	case adjusted >= 0.8:
		action = types.DecisionRemove
	case adjusted >= 0.6:
		action = types.DecisionRestrict
	case adjusted >= 0.3:
		action = types.DecisionReview
	default:
		action = types.DecisionApprove
	}

	confidence := (peak + meanNonZero(scores.Toxicity, scores.Inappropriateness, scores.Spam, scores.Copyright)) / 2

	humanReview := action == types.DecisionReview
	for _, v := range violations {
		if v == signals.ViolationViolence || v == ViolationCopyright {
			humanReview = true
		}
	}
	if confidence < 0.7 && action != types.DecisionApprove {
		humanReview = true
	}

	return &ModerationDecision{
		Action:                 action,
		Confidence:             confidence,
		ToxicityScore:          scores.Toxicity,
		InappropriatenessScore: scores.Inappropriateness,
		SpamScore:              scores.Spam,
		CopyrightScore:         scores.Copyright,
		ViolationTypes:         violations,
		HumanReviewRequired:    humanReview,
		EstimatedReviewMinutes: EstimateReviewMinutes(contentType, violations, priority),
	}
}

// EstimateReviewMinutes scales a per-content-type base by violation kind and
// report priority. Higher priority shrinks the estimate: those queues are
// worked first and staffed accordingly.
func EstimateReviewMinutes(contentType string, violations []string, priority int) float64 {
	base, ok := reviewBaseMinutes[contentType]
	if !ok {
		base = reviewBaseMinutes["artwork"]
	}
	multiplier := 1.0
	for _, v := range violations {
		switch v {
		case ViolationCopyright:
			multiplier *= 3
		case signals.ViolationViolence:
			multiplier *= 2
		}
	}
	if priority < 1 {
		priority = 1
	}
	if priority > 5 {
		priority = 5
	}
	factor := (6.0 - float64(priority)) / 5.0
	if factor < 0.1 {
		factor = 0.1
	}
	return base * multiplier * factor
}

// ProcessReport handles the report intake path: priority from the category
// table, duplicate suppression over 24h, reporter-accuracy adjustment,
// record persistence, a full content decision, then escalation and
// auto-enforcement.
func (s *moderationService) ProcessReport(ctx context.Context, req ModerationRequest) (*ReportOutcome, error) {
	priority, ok := reportPriorities[req.ReportCategory]
	if !ok {
		priority = reportPriorities["other"]
	}

	dayAgo := s.nowFn().Add(-24 * time.Hour)
	dupes, err := s.records.CountByContentSince(ctx, nil, req.ContentID, dayAgo)
	if err != nil {
		s.log.Warn("duplicate report check failed", "content_id", req.ContentID, "error", err)
	}

	if req.ReporterID != nil {
		accuracy := s.reporterAccuracy(ctx, *req.ReporterID)
		if accuracy > 0.8 && priority < 5 {
			priority++
		} else if accuracy < 0.2 && priority > 1 {
			priority--
		}
	}

	decision, err := s.AnalyzeContent(ctx, req)
	if err != nil {
		decision = failClosedDecision()
	}

	escalated := priority >= 4 || decision.ToxicityScore >= 0.8
	status := types.ModStatusPending
	if escalated {
		priority = 5
		status = types.ModStatusEscalated
	}

	record := &types.ModerationRecord{
		ContentID:                req.ContentID,
		ContentType:              req.ContentType,
		ReporterID:               req.ReporterID,
		ReportReason:             req.ReportReason,
		ReportCategory:           req.ReportCategory,
		Priority:                 priority,
		AIRecommendation:         decision.Action,
		AIToxicityScore:          decision.ToxicityScore,
		AIInappropriatenessScore: decision.InappropriatenessScore,
		ViolationTypes:           marshalJSON(decision.ViolationTypes),
		Status:                   status,
		HumanReviewRequired:      decision.HumanReviewRequired,
		EstimatedReviewMinutes:   decision.EstimatedReviewMinutes,
	}
	if err := s.records.Create(ctx, nil, record); err != nil {
		// Report intake is user-initiated, so persistence failures propagate.
		return nil, fmt.Errorf("persist moderation record: %w", err)
	}

	if !decision.HumanReviewRequired && decision.Action != types.DecisionApprove {
		s.enforceContent(ctx, req.ContentID, req.ContentType, decision)
	}

	return &ReportOutcome{
		ReportID:  record.ID,
		Priority:  priority,
		Escalated: escalated,
		Duplicate: dupes > 0,
	}, nil
}

// reporterAccuracy is the fraction of the reporter's resolved reports where
// the moderator agreed with the AI recommendation. Unknown reporters get 0.5.
func (s *moderationService) reporterAccuracy(ctx context.Context, reporterID uuid.UUID) float64 {
	past, err := s.records.ListByReporter(ctx, nil, reporterID, 50)
	if err != nil {
		s.log.Warn("reporter history lookup failed", "reporter_id", reporterID, "error", err)
		return 0.5
	}
	agreed, resolved := 0, 0
	for _, rec := range past {
		if rec.Status != types.ModStatusResolved || rec.HumanDecision == "" {
			continue
		}
		resolved++
		if rec.HumanDecision == rec.AIRecommendation {
			agreed++
		}
	}
	if resolved == 0 {
		return 0.5
	}
	return float64(agreed) / float64(resolved)
}

// enforceContent hides removed content and flags restricted content. The
// engine never restores content on its own; that takes a human.
func (s *moderationService) enforceContent(ctx context.Context, contentID uuid.UUID, contentType string, decision *ModerationDecision) {
	status := types.ModerationFlagged
	if decision.Action == types.DecisionRemove {
		status = types.ModerationHidden
	}
	score := math3Max(decision.ToxicityScore, decision.InappropriatenessScore, decision.SpamScore)

	var err error
	switch contentType {
	case "comment":
		err = s.comments.UpdateModeration(ctx, nil, contentID, status, score)
	default:
		err = s.artworks.UpdateModeration(ctx, nil, contentID, status, score)
	}
	if err != nil {
		s.log.Error("auto-enforcement write failed", "content_id", contentID, "status", status, "error", err)
	} else {
		s.log.Info("auto-enforced moderation action", "content_id", contentID, "status", status, "action", decision.Action)
	}
}

// ApplySpamSanction records the sanction the spam engine recommended.
func (s *moderationService) ApplySpamSanction(ctx context.Context, userID uuid.UUID, action, reason string) error {
	sanction := &types.UserSanction{
		UserID:      userID,
		ActionType:  action,
		IsAutomated: true,
		Reason:      reason,
		StartsAt:    s.nowFn(),
	}
	switch action {
	case types.SpamActionShadowBan:
		sanction.SeverityLevel = 2
		expires := s.nowFn().Add(72 * time.Hour)
		sanction.ExpiresAt = &expires
	case types.SpamActionTempBan:
		sanction.SeverityLevel = 3
		expires := s.nowFn().Add(7 * 24 * time.Hour)
		sanction.ExpiresAt = &expires
	case types.SpamActionPermanentBan:
		sanction.SeverityLevel = 5
	default:
		sanction.ActionType = types.SanctionWarning
		sanction.SeverityLevel = 1
	}
	return s.sanctions.Create(ctx, nil, sanction)
}

// ScanArtworks sweeps unscanned artworks through the decision engine.
// Per-item failures are counted, never fatal to the batch.
func (s *moderationService) ScanArtworks(ctx context.Context, limit int) (*BatchScanSummary, error) {
	items, err := s.artworks.ListUnscanned(ctx, nil, limit)
	if err != nil {
		return nil, fmt.Errorf("list unscanned artworks: %w", err)
	}
	summary := &BatchScanSummary{}
	for _, aw := range items {
		decision, derr := s.AnalyzeContent(ctx, ModerationRequest{
			ContentID:   aw.ID,
			ContentType: "artwork",
			OwnerID:     aw.OwnerID,
			Text:        aw.Title + " " + aw.Description,
			ImageURLs:   decodeStringSlice(aw.ImageURLs),
		})
		if derr != nil {
			summary.Failures++
			continue
		}
		status := types.ModerationVisible
		if decision.Action == types.DecisionRemove {
			status = types.ModerationHidden
		} else if decision.Action != types.DecisionApprove {
			status = types.ModerationFlagged
		}
		score := math3Max(decision.ToxicityScore, decision.InappropriatenessScore, decision.SpamScore)
		if uerr := s.artworks.UpdateModeration(ctx, nil, aw.ID, status, score); uerr != nil {
			s.log.Warn("batch scan write failed", "artwork_id", aw.ID, "error", uerr)
			summary.Failures++
			continue
		}
		summary.Scanned++
		if status != types.ModerationVisible {
			summary.Flagged++
		}
	}
	return summary, nil
}

func (s *moderationService) ScanComments(ctx context.Context, limit int) (*BatchScanSummary, error) {
	items, err := s.comments.ListUnscanned(ctx, nil, limit)
	if err != nil {
		return nil, fmt.Errorf("list unscanned comments: %w", err)
	}
	summary := &BatchScanSummary{}
	for _, c := range items {
		decision, derr := s.AnalyzeContent(ctx, ModerationRequest{
			ContentID:   c.ID,
			ContentType: "comment",
			OwnerID:     c.AuthorID,
			Text:        c.Body,
		})
		if derr != nil {
			summary.Failures++
			continue
		}
		status := types.ModerationVisible
		if decision.Action == types.DecisionRemove {
			status = types.ModerationHidden
		} else if decision.Action != types.DecisionApprove {
			status = types.ModerationFlagged
		}
		score := math3Max(decision.ToxicityScore, decision.InappropriatenessScore, decision.SpamScore)
		if uerr := s.comments.UpdateModeration(ctx, nil, c.ID, status, score); uerr != nil {
			s.log.Warn("comment scan write failed", "comment_id", c.ID, "error", uerr)
			summary.Failures++
			continue
		}
		summary.Scanned++
		if status != types.ModerationVisible {
			summary.Flagged++
		}
	}
	return summary, nil
}

func scanImageHeuristics(urls []string) (float64, []string) {
	score := 0.0
	var violations []string
	for _, raw := range urls {
		lower := strings.ToLower(raw)
		for _, kw := range suspectURLKeywords {
			if strings.Contains(lower, kw) {
				score += 0.8
				violations = appendUnique(violations, signals.ViolationSexual)
				break
			}
		}
		ext := strings.ToLower(path.Ext(stripQuery(lower)))
		if ext != "" && !imageExtWhitelist[ext] {
			score += 0.3
		}
	}
	return clamp01(score), violations
}

func scanCopyrightKeywords(text string) float64 {
	lower := strings.ToLower(text)
	hits := 0
	for _, kw := range copyrightKeywords {
		if strings.Contains(lower, kw) {
			hits++
		}
	}
	switch {
	case hits >= 2:
		return 0.8
	case hits == 1:
		return 0.5
	default:
		return 0
	}
}

func failClosedDecision() *ModerationDecision {
	return &ModerationDecision{
		Action:              types.DecisionReview,
		Confidence:          0,
		HumanReviewRequired: true,
	}
}

func stripQuery(u string) string {
	if i := strings.IndexByte(u, '?'); i >= 0 {
		return u[:i]
	}
	return u
}

func appendUnique(list []string, v string) []string {
	for _, existing := range list {
		if existing == v {
			return list
		}
	}
	return append(list, v)
}

func math3Max(a, b, c float64) float64 {
	m := a
	if b > m {
		m = b
	}
	if c > m {
		m = c
	}
	return m
}

func meanNonZero(values ...float64) float64 {
	sum, n := 0.0, 0
	for _, v := range values {
		if v > 0 {
			sum += v
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}
