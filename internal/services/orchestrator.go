package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/craftfolio/engine/internal/countstore"
	"github.com/craftfolio/engine/internal/jobs"
	"github.com/craftfolio/engine/internal/logger"
	"github.com/craftfolio/engine/internal/repos"
	"github.com/craftfolio/engine/internal/types"
)

type UploadAnalysisRequest struct {
	UserID    uuid.UUID
	ArtworkID uuid.UUID
	Title     string
	Text      string
	ImageURLs []string
	SessionID string
	UserAgent string
}

// UploadAnalysisResult carries whatever each subsystem produced. A nil
// section means its subsystem was disabled or failed; Errors lists the
// failures and Success is false only when at least one subsystem errored.
type UploadAnalysisResult struct {
	Spam       *SpamVerdict        `json:"spam,omitempty"`
	Moderation *ModerationDecision `json:"moderation,omitempty"`
	Errors     []string            `json:"errors,omitempty"`
	Success    bool                `json:"success"`
	Duration   time.Duration       `json:"duration"`
}

type UserActionRequest struct {
	UserID    uuid.UUID
	Action    string
	TargetID  *uuid.UUID
	Metadata  map[string]any
	SessionID string
}

type ReportRequest struct {
	ReporterID  uuid.UUID
	ContentID   uuid.UUID
	ContentType string
	Reason      string
	Category    string
	Evidence    string
}

type EngineStatus struct {
	IsHealthy      bool          `json:"is_healthy"`
	ActiveFeatures []string      `json:"active_features"`
	Performance    PerfSnapshot  `json:"performance"`
	Queue          QueueSnapshot `json:"queue"`
	Config         EngineConfig  `json:"config"`
	StartedAt      time.Time     `json:"started_at"`
}

type PerfSnapshot struct {
	TotalAnalyses  int64         `json:"total_analyses"`
	TotalErrors    int64         `json:"total_errors"`
	AvgAnalysisDur time.Duration `json:"avg_analysis_duration"`
}

type QueueSnapshot struct {
	Processed int64 `json:"processed"`
	Failed    int64 `json:"failed"`
	Backlog   int   `json:"backlog"`
}

// Orchestrator is the engine façade. All cross-subsystem sequencing lives
// here; subsystem failures are isolated so a broken scorer never blocks a
// user-initiated write.
type Orchestrator interface {
	AnalyzeUpload(ctx context.Context, req UploadAnalysisRequest) (*UploadAnalysisResult, error)
	HandleUserAction(ctx context.Context, req UserActionRequest) error
	GenerateRecommendations(ctx context.Context, userID uuid.UUID, sessionID string) (*RecommendationResult, error)
	HandleReport(ctx context.Context, req ReportRequest) (*ReportOutcome, error)
	Status() EngineStatus
	UpdateConfiguration(patch ConfigPatch)
	EmergencyShutdown(reason string)
	Restart(ctx context.Context)
}

type orchestrator struct {
	log    *logger.Logger
	tracer trace.Tracer

	spam           SpamService
	moderation     ModerationService
	trending       TrendingService
	profiles       ProfileService
	recommendation RecommendationService
	growth         GrowthService

	events   repos.BehaviorEventRepo
	artworks repos.ArtworkRepo
	users    repos.UserRepo
	counts   countstore.CountStore

	queue     *jobs.Queue
	scheduler *jobs.Scheduler

	mu  sync.RWMutex
	cfg EngineConfig
	// configuredFeatures survives an emergency shutdown so Restart can
	// restore the loaded configuration, not the compiled defaults.
	configuredFeatures FeatureFlags
	startedAt          time.Time

	perfMu   sync.Mutex
	analyses int64
	errors   int64
	totalDur time.Duration
}

type OrchestratorDeps struct {
	Spam           SpamService
	Moderation     ModerationService
	Trending       TrendingService
	Profiles       ProfileService
	Recommendation RecommendationService
	Growth         GrowthService
	Events         repos.BehaviorEventRepo
	Artworks       repos.ArtworkRepo
	Users          repos.UserRepo
	Counts         countstore.CountStore
	Queue          *jobs.Queue
	Scheduler      *jobs.Scheduler
}

func NewOrchestrator(baseLog *logger.Logger, cfg EngineConfig, deps OrchestratorDeps) Orchestrator {
	return &orchestrator{
		log:            baseLog.With("service", "Orchestrator"),
		tracer:         otel.Tracer("craftfolio/engine"),
		spam:           deps.Spam,
		moderation:     deps.Moderation,
		trending:       deps.Trending,
		profiles:       deps.Profiles,
		recommendation: deps.Recommendation,
		growth:         deps.Growth,
		events:         deps.Events,
		artworks:       deps.Artworks,
		users:          deps.Users,
		counts:         deps.Counts,
		queue:          deps.Queue,
		scheduler:      deps.Scheduler,
		cfg:            cfg,

		configuredFeatures: cfg.Features,
		startedAt:          time.Now(),
	}
}

func (o *orchestrator) config() EngineConfig {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.cfg
}

// AnalyzeUpload runs spam and moderation scoring in parallel under the
// configured analysis timeout, records the upload as a behavior event, and
// queues the slower follow-up work. The event write is the only part whose
// failure reaches the caller.
func (o *orchestrator) AnalyzeUpload(ctx context.Context, req UploadAnalysisRequest) (*UploadAnalysisResult, error) {
	ctx, span := o.tracer.Start(ctx, "engine.AnalyzeUpload",
		trace.WithAttributes(attribute.String("artwork_id", req.ArtworkID.String())))
	defer span.End()

	cfg := o.config()
	start := time.Now()
	result := &UploadAnalysisResult{Success: true}

	actx, cancel := context.WithTimeout(ctx, cfg.Performance.AnalysisTimeout)
	defer cancel()

	var mu sync.Mutex
	fail := func(subsystem string, err error) {
		o.log.Warn("upload subsystem failed", "subsystem", subsystem, "artwork_id", req.ArtworkID, "error", err)
		mu.Lock()
		result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", subsystem, err))
		result.Success = false
		mu.Unlock()
	}

	g, gctx := errgroup.WithContext(actx)
	if cfg.Features.SpamDetection {
		g.Go(func() error {
			verdict, err := o.spam.Analyze(gctx, SpamCheckRequest{
				UserID:      req.UserID,
				ContentID:   &req.ArtworkID,
				ContentType: "artwork",
				Text:        req.Title + " " + req.Text,
				SessionID:   req.SessionID,
				UserAgent:   req.UserAgent,
			})
			if err != nil {
				fail("spam", err)
				return nil
			}
			mu.Lock()
			result.Spam = verdict
			mu.Unlock()
			return nil
		})
	}
	if cfg.Features.ContentModeration {
		g.Go(func() error {
			decision, err := o.moderation.AnalyzeContent(gctx, ModerationRequest{
				ContentID:   req.ArtworkID,
				ContentType: "artwork",
				OwnerID:     req.UserID,
				Text:        req.Title + " " + req.Text,
				ImageURLs:   req.ImageURLs,
			})
			if err != nil {
				fail("moderation", err)
				return nil
			}
			mu.Lock()
			result.Moderation = decision
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	// The upload event is a user-initiated write: its failure propagates.
	event := &types.BehaviorEvent{
		UserID:    req.UserID,
		TargetID:  &req.ArtworkID,
		Type:      types.EventUpload,
		Intensity: 1,
		SessionID: req.SessionID,
	}
	if err := o.events.Create(ctx, nil, []*types.BehaviorEvent{event}); err != nil {
		o.recordAnalysis(time.Since(start), true)
		return nil, fmt.Errorf("record upload event: %w", err)
	}
	if err := o.users.IncrementUploads(ctx, nil, req.UserID, 1); err != nil {
		fail("counters", err)
	}
	if err := o.counts.Increment(ctx, "upload", req.UserID.String()); err != nil {
		o.log.Debug("count increment failed", "error", err)
	}

	if result.Spam != nil && result.Spam.RecommendedAction != types.SpamActionAllow {
		if err := o.moderation.ApplySpamSanction(ctx, req.UserID, result.Spam.RecommendedAction, "automated spam detection"); err != nil {
			fail("sanction", err)
		}
	}

	o.enqueueFollowups(cfg, req.UserID, req.ArtworkID)
	result.Duration = time.Since(start)
	o.recordAnalysis(result.Duration, !result.Success)
	return result, nil
}

func (o *orchestrator) enqueueFollowups(cfg EngineConfig, userID, artworkID uuid.UUID) {
	if !cfg.Features.BatchProcessing {
		return
	}
	if cfg.Features.TrendingAnalysis {
		o.queue.Enqueue(jobs.Task{Name: "trending.compute", Run: func(ctx context.Context) error {
			_, err := o.trending.ComputeForArtwork(ctx, artworkID)
			return err
		}})
	}
	if cfg.Features.UserGrowth {
		o.queue.Enqueue(jobs.Task{Name: "growth.upload", Run: func(ctx context.Context) error {
			if _, err := o.growth.AwardActivity(ctx, userID, ActivityUpload, &artworkID); err != nil {
				return err
			}
			_, err := o.growth.EvaluateAchievements(ctx, userID)
			return err
		}})
	}
}

// actionCounterColumns maps feed actions to the artwork counter each one
// moves. Counter ownership is explicit here; there is no store trigger.
var actionCounterColumns = map[string]struct {
	column string
	delta  int64
}{
	types.EventView:       {"views_count", 1},
	types.EventLike:       {"likes_count", 1},
	types.EventUnlike:     {"likes_count", -1},
	types.EventBookmark:   {"bookmarks_count", 1},
	types.EventUnbookmark: {"bookmarks_count", -1},
	types.EventShare:      {"shares_count", 1},
	types.EventComment:    {"comments_count", 1},
}

var actionActivities = map[string]string{
	types.EventLike:    ActivityGiveLike,
	types.EventComment: ActivityGiveComment,
	types.EventFollow:  ActivityFollow,
}

func (o *orchestrator) HandleUserAction(ctx context.Context, req UserActionRequest) error {
	ctx, span := o.tracer.Start(ctx, "engine.HandleUserAction",
		trace.WithAttributes(attribute.String("action", req.Action)))
	defer span.End()

	cfg := o.config()

	event := &types.BehaviorEvent{
		UserID:    req.UserID,
		TargetID:  req.TargetID,
		Type:      req.Action,
		Payload:   marshalJSON(req.Metadata),
		Intensity: 1,
		SessionID: req.SessionID,
	}
	if err := o.events.Create(ctx, nil, []*types.BehaviorEvent{event}); err != nil {
		return fmt.Errorf("record action event: %w", err)
	}

	if counter, ok := actionCounterColumns[req.Action]; ok && req.TargetID != nil {
		if err := o.artworks.IncrementCounter(ctx, nil, *req.TargetID, counter.column, counter.delta); err != nil {
			o.log.Warn("counter increment failed", "action", req.Action, "target_id", req.TargetID, "error", err)
		}
	}
	if err := o.counts.Increment(ctx, req.Action, req.UserID.String()); err != nil {
		o.log.Debug("count increment failed", "error", err)
	}

	if !cfg.Features.BatchProcessing {
		return nil
	}
	if activity, ok := actionActivities[req.Action]; ok && cfg.Features.UserGrowth {
		userID, targetID := req.UserID, req.TargetID
		o.queue.Enqueue(jobs.Task{Name: "growth." + activity, Run: func(ctx context.Context) error {
			_, err := o.growth.AwardActivity(ctx, userID, activity, targetID)
			return err
		}})
	}
	if types.PositiveEngagement(req.Action) {
		if req.TargetID != nil && cfg.Features.TrendingAnalysis {
			targetID := *req.TargetID
			o.queue.Enqueue(jobs.Task{Name: "trending.compute", Run: func(ctx context.Context) error {
				_, err := o.trending.ComputeForArtwork(ctx, targetID)
				return err
			}})
		}
		if cfg.Features.PersonalizedRecommendations {
			userID := req.UserID
			o.queue.Enqueue(jobs.Task{Name: "profile.rebuild", Run: func(ctx context.Context) error {
				_, err := o.profiles.Rebuild(ctx, userID)
				return err
			}})
		}
	}
	return nil
}

func (o *orchestrator) GenerateRecommendations(ctx context.Context, userID uuid.UUID, sessionID string) (*RecommendationResult, error) {
	ctx, span := o.tracer.Start(ctx, "engine.GenerateRecommendations")
	defer span.End()

	if !o.config().Features.PersonalizedRecommendations {
		return nil, fmt.Errorf("personalized recommendations are disabled")
	}
	return o.recommendation.Generate(ctx, userID, sessionID)
}

func (o *orchestrator) HandleReport(ctx context.Context, req ReportRequest) (*ReportOutcome, error) {
	ctx, span := o.tracer.Start(ctx, "engine.HandleReport")
	defer span.End()

	if !o.config().Features.ContentModeration {
		return nil, fmt.Errorf("content moderation is disabled")
	}

	artwork, err := o.artworks.GetByID(ctx, nil, req.ContentID)
	text := req.Reason + " " + req.Evidence
	var ownerID uuid.UUID
	if err == nil {
		text = artwork.Title + " " + artwork.Description + " " + text
		ownerID = artwork.OwnerID
	}

	return o.moderation.ProcessReport(ctx, ModerationRequest{
		ContentID:      req.ContentID,
		ContentType:    req.ContentType,
		OwnerID:        ownerID,
		Text:           text,
		ReporterID:     &req.ReporterID,
		ReportReason:   req.Reason,
		ReportCategory: req.Category,
	})
}

func (o *orchestrator) Status() EngineStatus {
	cfg := o.config()

	var active []string
	for name, on := range map[string]bool{
		"spamDetection":               cfg.Features.SpamDetection,
		"contentModeration":           cfg.Features.ContentModeration,
		"personalizedRecommendations": cfg.Features.PersonalizedRecommendations,
		"trendingAnalysis":            cfg.Features.TrendingAnalysis,
		"userGrowth":                  cfg.Features.UserGrowth,
		"batchProcessing":             cfg.Features.BatchProcessing,
	} {
		if on {
			active = append(active, name)
		}
	}

	o.perfMu.Lock()
	perf := PerfSnapshot{TotalAnalyses: o.analyses, TotalErrors: o.errors}
	if o.analyses > 0 {
		perf.AvgAnalysisDur = o.totalDur / time.Duration(o.analyses)
	}
	o.perfMu.Unlock()

	processed, failed, backlog := o.queue.Stats()

	return EngineStatus{
		IsHealthy:      len(active) > 0,
		ActiveFeatures: active,
		Performance:    perf,
		Queue:          QueueSnapshot{Processed: processed, Failed: failed, Backlog: backlog},
		Config:         cfg,
		StartedAt:      o.startedAt,
	}
}

func (o *orchestrator) UpdateConfiguration(patch ConfigPatch) {
	o.mu.Lock()
	o.cfg = o.cfg.Apply(patch)
	if patch.Features != nil {
		o.configuredFeatures = o.cfg.Features
	}
	cfg := o.cfg
	o.mu.Unlock()

	o.recommendation.UpdateOptions(recommendationOptionsFrom(cfg))
	o.log.Info("configuration updated")
}

func recommendationOptionsFrom(cfg EngineConfig) RecommendationOptions {
	return RecommendationOptions{
		MaxResults:      cfg.MaxRecommendations,
		DiversityWeight: cfg.DiversityWeight,
		CacheEnabled:    cfg.Performance.CacheEnabled,
		CacheTTL:        cfg.Performance.CacheTTL,
	}
}

// EmergencyShutdown clears every feature flag and halts the recurring
// schedule. In-flight queue tasks settle; nothing new starts.
func (o *orchestrator) EmergencyShutdown(reason string) {
	o.log.Error("emergency shutdown", "reason", reason)
	o.mu.Lock()
	o.cfg.Features = FeatureFlags{}
	o.mu.Unlock()
	o.scheduler.Stop()
}

func (o *orchestrator) Restart(ctx context.Context) {
	o.mu.Lock()
	o.cfg.Features = o.configuredFeatures
	o.mu.Unlock()
	o.scheduler.Start(ctx)
	o.log.Info("engine restarted")
}

func (o *orchestrator) recordAnalysis(d time.Duration, errored bool) {
	o.perfMu.Lock()
	o.analyses++
	o.totalDur += d
	if errored {
		o.errors++
	}
	o.perfMu.Unlock()
}
