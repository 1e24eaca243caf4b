package services

import (
	"context"
	"testing"
	"time"

	"github.com/craftfolio/engine/internal/jobs"
	"github.com/craftfolio/engine/internal/logger"
)

type fakeRecService struct {
	RecommendationService
	pushed []RecommendationOptions
}

func (f *fakeRecService) UpdateOptions(opts RecommendationOptions) {
	f.pushed = append(f.pushed, opts)
}

func newTestOrchestrator(cfg EngineConfig, rec RecommendationService) Orchestrator {
	queue := jobs.NewQueue(logger.NewNop(), 1, nil)
	scheduler := jobs.NewScheduler(logger.NewNop(), queue, nil)
	return NewOrchestrator(logger.NewNop(), cfg, OrchestratorDeps{
		Recommendation: rec,
		Queue:          queue,
		Scheduler:      scheduler,
	})
}

func TestUpdateConfiguration_PropagatesRecommendationOptions(t *testing.T) {
	rec := &fakeRecService{}
	o := newTestOrchestrator(DefaultEngineConfig(), rec)

	o.UpdateConfiguration(ConfigPatch{Performance: &PerformanceConfig{
		MaxConcurrentAnalyses: 5,
		AnalysisTimeout:       10 * time.Second,
		CacheEnabled:          true,
		CacheTTL:              time.Minute,
	}})

	if len(rec.pushed) != 1 {
		t.Fatalf("expected one options push, got %d", len(rec.pushed))
	}
	got := rec.pushed[0]
	if !got.CacheEnabled || got.CacheTTL != time.Minute {
		t.Fatalf("cache settings not propagated: %+v", got)
	}
	if got.MaxResults != DefaultEngineConfig().MaxRecommendations {
		t.Fatalf("untouched result cap should carry over, got %+v", got)
	}
}

func TestRestart_RestoresConfiguredFeatures(t *testing.T) {
	cfg := DefaultEngineConfig()
	cfg.Features.BatchProcessing = false
	cfg.Features.UserGrowth = false
	o := newTestOrchestrator(cfg, &fakeRecService{})

	o.EmergencyShutdown("containment drill")
	if st := o.Status(); len(st.ActiveFeatures) != 0 {
		t.Fatalf("shutdown should clear every feature, got %v", st.ActiveFeatures)
	}

	o.Restart(context.Background())
	st := o.Status()
	if st.Config.Features != cfg.Features {
		t.Fatalf("restart restored %+v, want the loaded configuration %+v", st.Config.Features, cfg.Features)
	}
	if st.Config.Features.BatchProcessing {
		t.Fatalf("restart must not resurrect features the configuration disabled")
	}
}

func TestUpdateConfiguration_FeaturePatchSticksThroughRestart(t *testing.T) {
	rec := &fakeRecService{}
	o := newTestOrchestrator(DefaultEngineConfig(), rec)

	flags := DefaultEngineConfig().Features
	flags.SpamDetection = false
	o.UpdateConfiguration(ConfigPatch{Features: &flags})

	o.EmergencyShutdown("containment drill")
	o.Restart(context.Background())

	if o.Status().Config.Features.SpamDetection {
		t.Fatalf("restart should restore the patched flags, not the startup ones")
	}
}
