package app

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/craftfolio/engine/internal/logger"
	"github.com/craftfolio/engine/internal/services"
	"github.com/craftfolio/engine/internal/utils"
)

type Config struct {
	HTTPPort      string
	AllowOrigins  []string
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	Engine services.EngineConfig
}

// LoadConfig reads everything from the environment, then lets an optional
// YAML file (ENGINE_CONFIG_FILE) override the engine section. File values
// win over defaults; env values win over both for the fields below.
func LoadConfig(log *logger.Logger) (Config, error) {
	cfg := Config{
		HTTPPort:      utils.GetEnv("HTTP_PORT", "8080", log),
		RedisAddr:     utils.GetEnv("REDIS_ADDR", "localhost:6379", log),
		RedisPassword: utils.GetEnv("REDIS_PASSWORD", "", log),
		RedisDB:       utils.GetEnvAsInt("REDIS_DB", 0, log),
		Engine:        services.DefaultEngineConfig(),
	}

	if origins := utils.GetEnv("CORS_ALLOW_ORIGINS", "", log); origins != "" {
		for _, o := range strings.Split(origins, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.AllowOrigins = append(cfg.AllowOrigins, o)
			}
		}
	}

	if path := utils.GetEnv("ENGINE_CONFIG_FILE", "", log); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read engine config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &cfg.Engine); err != nil {
			return cfg, fmt.Errorf("parse engine config %s: %w", path, err)
		}
		log.Info("engine config loaded from file", "path", path)
	}

	if seconds := utils.GetEnvAsInt("ANALYSIS_TIMEOUT_SECONDS", 0, log); seconds > 0 {
		cfg.Engine.Performance.AnalysisTimeout = time.Duration(seconds) * time.Second
	}
	if n := utils.GetEnvAsInt("MAX_CONCURRENT_ANALYSES", 0, log); n > 0 {
		cfg.Engine.Performance.MaxConcurrentAnalyses = n
	}

	return cfg, nil
}
