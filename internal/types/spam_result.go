package types

import (
	"time"

	"github.com/google/uuid"
)

// Spam risk levels.
const (
	RiskLow      = "low"
	RiskMedium   = "medium"
	RiskHigh     = "high"
	RiskCritical = "critical"
)

// Recommended spam enforcement actions.
const (
	SpamActionAllow        = "allow"
	SpamActionShadowBan    = "shadow_ban"
	SpamActionTempBan      = "temp_ban"
	SpamActionPermanentBan = "permanent_ban"
)

type SpamDetectionResult struct {
	ID                uuid.UUID  `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID            uuid.UUID  `gorm:"type:uuid;not null;index" json:"user_id"`
	ContentID         *uuid.UUID `gorm:"type:uuid;index" json:"content_id,omitempty"`
	ContentType       string     `json:"content_type"`
	ContentHash       string     `gorm:"index" json:"content_hash,omitempty"`
	OverallScore      float64    `gorm:"not null;default:0" json:"overall_score"`
	ContentSimilarity float64    `gorm:"not null;default:0" json:"content_similarity"`
	BehaviorAnomaly   float64    `gorm:"not null;default:0" json:"behavior_anomaly"`
	FloodingScore     float64    `gorm:"not null;default:0" json:"flooding_score"`
	ToxicityScore     float64    `gorm:"not null;default:0" json:"toxicity_score"`
	BotProbability    float64    `gorm:"not null;default:0" json:"bot_probability"`
	IsSpam            bool       `gorm:"not null;default:false;index" json:"is_spam"`
	RiskLevel         string     `gorm:"not null;default:low" json:"risk_level"`
	RecommendedAction string     `gorm:"not null;default:allow" json:"recommended_action"`
	CreatedAt         time.Time  `gorm:"not null;default:now()" json:"created_at"`
}

func (SpamDetectionResult) TableName() string { return "spam_detection_results" }
