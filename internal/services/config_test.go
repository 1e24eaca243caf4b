package services

import (
	"testing"
	"time"
)

func TestEngineConfig_Apply(t *testing.T) {
	base := DefaultEngineConfig()

	t.Run("nil fields keep current values", func(t *testing.T) {
		out := base.Apply(ConfigPatch{})
		if out != base {
			t.Fatalf("empty patch changed config")
		}
	})

	t.Run("features replaced wholesale", func(t *testing.T) {
		out := base.Apply(ConfigPatch{Features: &FeatureFlags{SpamDetection: true}})
		if !out.Features.SpamDetection {
			t.Fatalf("patched flag lost")
		}
		if out.Features.ContentModeration {
			t.Fatalf("feature patch must replace the whole section")
		}
		if out.Performance != base.Performance {
			t.Fatalf("untouched section changed")
		}
	})

	t.Run("performance patch", func(t *testing.T) {
		out := base.Apply(ConfigPatch{Performance: &PerformanceConfig{
			MaxConcurrentAnalyses: 3,
			AnalysisTimeout:       time.Second,
		}})
		if out.Performance.MaxConcurrentAnalyses != 3 || out.Performance.AnalysisTimeout != time.Second {
			t.Fatalf("performance patch not applied: %+v", out.Performance)
		}
	})
}

func TestDefaultEngineConfig_AllFeaturesOn(t *testing.T) {
	cfg := DefaultEngineConfig()
	flags := cfg.Features
	if !flags.SpamDetection || !flags.ContentModeration || !flags.PersonalizedRecommendations ||
		!flags.TrendingAnalysis || !flags.UserGrowth || !flags.BatchProcessing {
		t.Fatalf("all subsystems should default on: %+v", flags)
	}
	if cfg.Performance.MaxConcurrentAnalyses <= 0 || cfg.Performance.AnalysisTimeout <= 0 {
		t.Fatalf("performance defaults must be positive: %+v", cfg.Performance)
	}
}
