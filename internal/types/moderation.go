package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Moderation decisions, ordered by severity.
const (
	DecisionApprove  = "approve"
	DecisionReview   = "review"
	DecisionRestrict = "restrict"
	DecisionRemove   = "remove"
)

// Moderation record lifecycle states. Resolved and escalated are terminal.
const (
	ModStatusPending   = "pending"
	ModStatusResolved  = "resolved"
	ModStatusEscalated = "escalated"
)

type ModerationRecord struct {
	ID                       uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	ContentID                uuid.UUID      `gorm:"type:uuid;not null;index:idx_moderation_content" json:"content_id"`
	ContentType              string         `gorm:"not null" json:"content_type"`
	ReporterID               *uuid.UUID     `gorm:"type:uuid;index" json:"reporter_id,omitempty"`
	ReportReason             string         `json:"report_reason"`
	ReportCategory           string         `gorm:"index" json:"report_category"`
	Priority                 int            `gorm:"not null;default:1" json:"priority"`
	AIRecommendation         string         `json:"ai_recommendation"`
	AIToxicityScore          float64        `gorm:"not null;default:0" json:"ai_toxicity_score"`
	AIInappropriatenessScore float64        `gorm:"not null;default:0" json:"ai_inappropriateness_score"`
	ViolationTypes           datatypes.JSON `gorm:"type:jsonb" json:"violation_types,omitempty"`
	Status                   string         `gorm:"not null;default:pending;index" json:"status"`
	HumanDecision            string         `json:"human_decision,omitempty"`
	HumanReviewRequired      bool           `gorm:"not null;default:false" json:"human_review_required"`
	EstimatedReviewMinutes   float64        `gorm:"not null;default:0" json:"estimated_review_minutes"`
	CreatedAt                time.Time      `gorm:"not null;default:now();index:idx_moderation_content" json:"created_at"`
	UpdatedAt                time.Time      `gorm:"not null;default:now()" json:"updated_at"`
}

func (ModerationRecord) TableName() string { return "moderation_records" }

// Sanction kinds, mildest first.
const (
	SanctionWarning      = "warning"
	SanctionShadowBan    = "shadow_ban"
	SanctionTempBan      = "temp_ban"
	SanctionPermanentBan = "permanent_ban"
)

// UserSanction is an active or expired enforcement action against a user.
// Expiry is passive: queries filter on ExpiresAt, nothing drives a timer.
type UserSanction struct {
	ID            uuid.UUID  `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID        uuid.UUID  `gorm:"type:uuid;not null;index" json:"user_id"`
	ActionType    string     `gorm:"not null" json:"action_type"`
	SeverityLevel int        `gorm:"not null;default:1" json:"severity_level"`
	IsAutomated   bool       `gorm:"not null;default:false" json:"is_automated"`
	Reason        string     `json:"reason"`
	StartsAt      time.Time  `gorm:"not null;default:now()" json:"starts_at"`
	ExpiresAt     *time.Time `gorm:"index" json:"expires_at,omitempty"`
	CreatedAt     time.Time  `gorm:"not null;default:now()" json:"created_at"`
}

func (UserSanction) TableName() string { return "user_sanctions" }
