package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Behavior event types recorded by the engine. Events are append-only and
// never mutated after creation.
const (
	EventView       = "view"
	EventLike       = "like"
	EventUnlike     = "unlike"
	EventBookmark   = "bookmark"
	EventUnbookmark = "unbookmark"
	EventShare      = "share"
	EventComment    = "comment"
	EventUpload     = "upload"
	EventFollow     = "follow"
)

type BehaviorEvent struct {
	ID        uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID    uuid.UUID      `gorm:"type:uuid;not null;index:idx_behavior_user_time" json:"user_id"`
	TargetID  *uuid.UUID     `gorm:"type:uuid;index" json:"target_id,omitempty"`
	Type      string         `gorm:"not null;index" json:"type"`
	Payload   datatypes.JSON `gorm:"type:jsonb" json:"payload,omitempty"`
	Intensity float64        `gorm:"not null;default:1" json:"intensity"`
	SessionID string         `gorm:"index" json:"session_id"`
	CreatedAt time.Time      `gorm:"not null;default:now();index:idx_behavior_user_time" json:"created_at"`
}

func (BehaviorEvent) TableName() string { return "behavior_events" }

// PositiveEngagement reports whether the event type counts toward
// preference learning and collaborative filtering.
func PositiveEngagement(eventType string) bool {
	switch eventType {
	case EventLike, EventBookmark, EventShare, EventComment:
		return true
	}
	return false
}
