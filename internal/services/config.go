package services

import "time"

// FeatureFlags gates each subsystem. The emergency kill switch clears all of
// them at once.
type FeatureFlags struct {
	SpamDetection               bool `yaml:"spamDetection" json:"spamDetection"`
	ContentModeration           bool `yaml:"contentModeration" json:"contentModeration"`
	PersonalizedRecommendations bool `yaml:"personalizedRecommendations" json:"personalizedRecommendations"`
	TrendingAnalysis            bool `yaml:"trendingAnalysis" json:"trendingAnalysis"`
	UserGrowth                  bool `yaml:"userGrowth" json:"userGrowth"`
	BatchProcessing             bool `yaml:"batchProcessing" json:"batchProcessing"`
}

type PerformanceConfig struct {
	MaxConcurrentAnalyses int           `yaml:"maxConcurrentAnalyses" json:"maxConcurrentAnalyses"`
	AnalysisTimeout       time.Duration `yaml:"analysisTimeout" json:"analysisTimeout"`
	CacheEnabled          bool          `yaml:"cacheEnabled" json:"cacheEnabled"`
	CacheTTL              time.Duration `yaml:"cacheTTL" json:"cacheTTL"`
}

type MonitoringConfig struct {
	LogLevel            string `yaml:"logLevel" json:"logLevel"`
	PerformanceTracking bool   `yaml:"performanceTracking" json:"performanceTracking"`
	ErrorReporting      bool   `yaml:"errorReporting" json:"errorReporting"`
}

type EngineConfig struct {
	Features    FeatureFlags      `yaml:"features" json:"features"`
	Performance PerformanceConfig `yaml:"performance" json:"performance"`
	Monitoring  MonitoringConfig  `yaml:"monitoring" json:"monitoring"`

	TrendingWindowDays int     `yaml:"trendingWindowDays" json:"trendingWindowDays"`
	DiversityWeight    float64 `yaml:"diversityWeight" json:"diversityWeight"`
	MaxRecommendations int     `yaml:"maxRecommendations" json:"maxRecommendations"`
}

func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		Features: FeatureFlags{
			SpamDetection:               true,
			ContentModeration:           true,
			PersonalizedRecommendations: true,
			TrendingAnalysis:            true,
			UserGrowth:                  true,
			BatchProcessing:             true,
		},
		Performance: PerformanceConfig{
			MaxConcurrentAnalyses: 10,
			AnalysisTimeout:       30 * time.Second,
			CacheEnabled:          false,
			CacheTTL:              5 * time.Minute,
		},
		Monitoring: MonitoringConfig{
			LogLevel:            "info",
			PerformanceTracking: true,
			ErrorReporting:      true,
		},
		TrendingWindowDays: 7,
		DiversityWeight:    0.3,
		MaxRecommendations: 20,
	}
}

// ConfigPatch is a partial configuration update. Nil fields keep their
// current value.
type ConfigPatch struct {
	Features    *FeatureFlags      `yaml:"features" json:"features,omitempty"`
	Performance *PerformanceConfig `yaml:"performance" json:"performance,omitempty"`
	Monitoring  *MonitoringConfig  `yaml:"monitoring" json:"monitoring,omitempty"`
}

func (c EngineConfig) Apply(patch ConfigPatch) EngineConfig {
	out := c
	if patch.Features != nil {
		out.Features = *patch.Features
	}
	if patch.Performance != nil {
		out.Performance = *patch.Performance
	}
	if patch.Monitoring != nil {
		out.Monitoring = *patch.Monitoring
	}
	return out
}
