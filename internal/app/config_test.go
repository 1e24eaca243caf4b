package app

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/craftfolio/engine/internal/logger"
)

func TestLoadConfig_EngineFileOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "engine.yaml")
	raw := []byte("trendingWindowDays: 14\nmaxRecommendations: 5\n")
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		t.Fatalf("write config file: %v", err)
	}
	t.Setenv("ENGINE_CONFIG_FILE", path)

	cfg, err := LoadConfig(logger.NewNop())
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Engine.TrendingWindowDays != 14 {
		t.Fatalf("file override lost: TrendingWindowDays = %d", cfg.Engine.TrendingWindowDays)
	}
	if cfg.Engine.MaxRecommendations != 5 {
		t.Fatalf("file override lost: MaxRecommendations = %d", cfg.Engine.MaxRecommendations)
	}
	if !cfg.Engine.Features.SpamDetection {
		t.Fatalf("fields absent from the file must keep their defaults")
	}
}

func TestLoadConfig_EnvOverridesWinOverFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "engine.yaml")
	raw := []byte("performance:\n  maxConcurrentAnalyses: 2\n")
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		t.Fatalf("write config file: %v", err)
	}
	t.Setenv("ENGINE_CONFIG_FILE", path)
	t.Setenv("MAX_CONCURRENT_ANALYSES", "7")

	cfg, err := LoadConfig(logger.NewNop())
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if got := cfg.Engine.Performance.MaxConcurrentAnalyses; got != 7 {
		t.Fatalf("env should win over file, got %d", got)
	}
}
