package types

import (
	"time"

	"github.com/google/uuid"
)

// TrendingMetrics holds the current trending snapshot for one artwork,
// upserted on every recomputation.
type TrendingMetrics struct {
	ArtworkID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"artwork_id"`
	TrendingScore       float64   `gorm:"not null;default:0;index:idx_trending_score,sort:desc" json:"trending_score"`
	VelocityScore       float64   `gorm:"not null;default:0" json:"velocity_score"`
	EngagementRate      float64   `gorm:"not null;default:0" json:"engagement_rate"`
	ViralityCoefficient float64   `gorm:"not null;default:0" json:"virality_coefficient"`
	QualityScore        float64   `gorm:"not null;default:0" json:"quality_score"`
	RecencyBonus        float64   `gorm:"not null;default:0" json:"recency_bonus"`
	TimeDecayFactor     float64   `gorm:"not null;default:1" json:"time_decay_factor"`
	CategoryRank        int       `gorm:"not null;default:0" json:"category_rank"`
	GlobalRank          int       `gorm:"not null;default:0" json:"global_rank"`
	UpdatedAt           time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (TrendingMetrics) TableName() string { return "trending_metrics" }
