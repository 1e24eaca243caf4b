package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// UserLevel carries experience and rating state. ExperiencePoints only
// moves through atomic increments; badges are append-only.
type UserLevel struct {
	UserID           uuid.UUID      `gorm:"type:uuid;primaryKey" json:"user_id"`
	CurrentLevel     int            `gorm:"not null;default:1" json:"current_level"`
	ExperiencePoints int64          `gorm:"not null;default:0" json:"experience_points"`
	PointsToNext     int64          `gorm:"not null;default:0" json:"points_to_next"`
	ArtistRating     float64        `gorm:"not null;default:1" json:"artist_rating"`
	CommunityRating  float64        `gorm:"not null;default:1" json:"community_rating"`
	OverallRating    float64        `gorm:"not null;default:1" json:"overall_rating"`
	Badges           datatypes.JSON `gorm:"type:jsonb" json:"badges,omitempty"`
	UpdatedAt        time.Time      `gorm:"not null;default:now()" json:"updated_at"`
}

func (UserLevel) TableName() string { return "user_levels" }

// Achievement is static catalog data, seeded in code and never stored.
type Achievement struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Category   string `json:"category"`
	Difficulty string `json:"difficulty"`
	Points     int64  `json:"points"`
}

// LevelTier is one row of the fixed leveling table.
type LevelTier struct {
	Level int
	Title string
	MinXP int64
	Perks []string
}
