package app

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/craftfolio/engine/internal/countstore"
	"github.com/craftfolio/engine/internal/jobs"
	"github.com/craftfolio/engine/internal/logger"
	"github.com/craftfolio/engine/internal/services"
)

type Services struct {
	Spam           services.SpamService
	Moderation     services.ModerationService
	Trending       services.TrendingService
	Profile        services.ProfileService
	Recommendation services.RecommendationService
	Growth         services.GrowthService
	Orchestrator   services.Orchestrator

	Counts    countstore.CountStore
	Queue     *jobs.Queue
	Scheduler *jobs.Scheduler
}

func wireServices(log *logger.Logger, cfg Config, r Repos) (Services, error) {
	log.Info("Wiring services...")

	var (
		rdb    *redis.Client
		counts countstore.CountStore
	)
	rdb = redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		log.Warn("redis unavailable, using in-memory counters", "addr", cfg.RedisAddr, "error", err)
		rdb = nil
		counts = countstore.NewMemCountStore()
	} else {
		counts = countstore.NewRedisCountStore(rdb, log)
	}

	spam := services.NewSpamService(log, r.BehaviorEvent, r.Artwork, r.Sanction, r.SpamResult, counts)
	moderation := services.NewModerationService(log, spam, r.Artwork, r.Comment, r.ModerationRecord, r.Sanction)
	trending := services.NewTrendingService(log, r.BehaviorEvent, r.Artwork, r.User, r.UserLevel, r.Follow, r.Comment, r.Trending, cfg.Engine.TrendingWindowDays)
	profile := services.NewProfileService(log, r.BehaviorEvent, r.Artwork, r.PreferenceProfile)
	recommendation := services.NewRecommendationService(log, r.PreferenceProfile, r.BehaviorEvent, r.Artwork, r.Trending, r.RecommendationLog, rdb, services.RecommendationOptions{
		MaxResults:      cfg.Engine.MaxRecommendations,
		DiversityWeight: cfg.Engine.DiversityWeight,
		CacheEnabled:    cfg.Engine.Performance.CacheEnabled,
		CacheTTL:        cfg.Engine.Performance.CacheTTL,
	})
	growth := services.NewGrowthService(log, r.UserLevel, r.User, r.BehaviorEvent, r.Artwork, r.Trending, r.Sanction)

	queue := jobs.NewQueue(log, cfg.Engine.Performance.MaxConcurrentAnalyses, nil)
	scheduler := jobs.NewScheduler(log, queue, []jobs.Recurring{
		{Name: "trending.refresh", Interval: time.Hour, Run: func(ctx context.Context) error {
			_, err := trending.RefreshRecent(ctx, 500)
			return err
		}},
		{Name: "moderation.sweep", Interval: 30 * time.Minute, Run: func(ctx context.Context) error {
			if _, err := moderation.ScanArtworks(ctx, 200); err != nil {
				return err
			}
			_, err := moderation.ScanComments(ctx, 500)
			return err
		}},
		{Name: "trending.ranks", Interval: 6 * time.Hour, Run: func(ctx context.Context) error {
			return trending.RecomputeRanks(ctx)
		}},
	})

	orchestrator := services.NewOrchestrator(log, cfg.Engine, services.OrchestratorDeps{
		Spam:           spam,
		Moderation:     moderation,
		Trending:       trending,
		Profiles:       profile,
		Recommendation: recommendation,
		Growth:         growth,
		Events:         r.BehaviorEvent,
		Artworks:       r.Artwork,
		Users:          r.User,
		Counts:         counts,
		Queue:          queue,
		Scheduler:      scheduler,
	})

	return Services{
		Spam:           spam,
		Moderation:     moderation,
		Trending:       trending,
		Profile:        profile,
		Recommendation: recommendation,
		Growth:         growth,
		Orchestrator:   orchestrator,
		Counts:         counts,
		Queue:          queue,
		Scheduler:      scheduler,
	}, nil
}
