package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// RecommendationLog records one served recommendation list for offline
// evaluation of the ranker.
type RecommendationLog struct {
	ID        uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID    uuid.UUID      `gorm:"type:uuid;not null;index" json:"user_id"`
	SessionID string         `json:"session_id"`
	Algorithm string         `gorm:"not null" json:"algorithm"`
	ItemIDs   datatypes.JSON `gorm:"type:jsonb" json:"item_ids,omitempty"`
	Scores    datatypes.JSON `gorm:"type:jsonb" json:"scores,omitempty"`
	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
}

func (RecommendationLog) TableName() string { return "recommendation_logs" }
