package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// PreferenceVectorDim is the fixed length of the hashed preference vector.
const PreferenceVectorDim = 100

// UserPreferenceProfile is rebuilt wholesale from the trailing event window:
// a rebuild replaces every derived field, so two rebuilds over the same
// window produce the same row.
type UserPreferenceProfile struct {
	UserID             uuid.UUID      `gorm:"type:uuid;primaryKey" json:"user_id"`
	PreferenceVector   datatypes.JSON `gorm:"type:jsonb" json:"preference_vector,omitempty"`
	MaterialAffinities datatypes.JSON `gorm:"type:jsonb" json:"material_affinities,omitempty"`
	ColorPreferences   datatypes.JSON `gorm:"type:jsonb" json:"color_preferences,omitempty"`
	StylePreferences   datatypes.JSON `gorm:"type:jsonb" json:"style_preferences,omitempty"`
	ArtistAffinities   datatypes.JSON `gorm:"type:jsonb" json:"artist_affinities,omitempty"`
	HourHistogram      datatypes.JSON `gorm:"type:jsonb" json:"hour_histogram,omitempty"`
	DayHistogram       datatypes.JSON `gorm:"type:jsonb" json:"day_histogram,omitempty"`
	SeasonalPatterns   datatypes.JSON `gorm:"type:jsonb" json:"seasonal_patterns,omitempty"`
	LikeRate           float64        `gorm:"not null;default:0" json:"like_rate"`
	BookmarkRate       float64        `gorm:"not null;default:0" json:"bookmark_rate"`
	ShareRate          float64        `gorm:"not null;default:0" json:"share_rate"`
	CommentRate        float64        `gorm:"not null;default:0" json:"comment_rate"`
	AvgViewSeconds     float64        `gorm:"not null;default:0" json:"avg_view_seconds"`
	Confidence         float64        `gorm:"not null;default:0" json:"confidence"`
	LastUpdated        time.Time      `gorm:"not null;default:now();index" json:"last_updated"`
}

func (UserPreferenceProfile) TableName() string { return "user_preference_profiles" }
