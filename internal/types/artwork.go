package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Moderation states an artwork can be in. Visible is the default; flagged
// content stays visible pending review; hidden content is withheld and only
// a human can restore it.
const (
	ModerationVisible = "visible"
	ModerationFlagged = "flagged"
	ModerationHidden  = "hidden"
)

type Artwork struct {
	ID               uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	OwnerID          uuid.UUID      `gorm:"type:uuid;not null;index" json:"owner_id"`
	Owner            *User          `gorm:"constraint:OnDelete:CASCADE;foreignKey:OwnerID;references:ID" json:"owner,omitempty"`
	Title            string         `gorm:"not null" json:"title"`
	Description      string         `json:"description"`
	Material         string         `gorm:"index" json:"material"`
	StyleKeywords    datatypes.JSON `gorm:"type:jsonb" json:"style_keywords,omitempty"`
	ColorKeywords    datatypes.JSON `gorm:"type:jsonb" json:"color_keywords,omitempty"`
	ImageURLs        datatypes.JSON `gorm:"type:jsonb" json:"image_urls,omitempty"`
	ViewsCount       int64          `gorm:"not null;default:0" json:"views_count"`
	LikesCount       int64          `gorm:"not null;default:0" json:"likes_count"`
	BookmarksCount   int64          `gorm:"not null;default:0" json:"bookmarks_count"`
	SharesCount      int64          `gorm:"not null;default:0" json:"shares_count"`
	CommentsCount    int64          `gorm:"not null;default:0" json:"comments_count"`
	ModerationStatus string         `gorm:"not null;default:visible;index" json:"moderation_status"`
	ModerationScore  float64        `gorm:"not null;default:0" json:"moderation_score"`
	ScannedAt        *time.Time     `gorm:"index" json:"scanned_at,omitempty"`
	CreatedAt        time.Time      `gorm:"not null;default:now();index" json:"created_at"`
	UpdatedAt        time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Artwork) TableName() string { return "artworks" }

type Comment struct {
	ID               uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	ArtworkID        uuid.UUID      `gorm:"type:uuid;not null;index" json:"artwork_id"`
	AuthorID         uuid.UUID      `gorm:"type:uuid;not null;index" json:"author_id"`
	Body             string         `gorm:"not null" json:"body"`
	ModerationStatus string         `gorm:"not null;default:visible" json:"moderation_status"`
	ModerationScore  float64        `gorm:"not null;default:0" json:"moderation_score"`
	ScannedAt        *time.Time     `gorm:"index" json:"scanned_at,omitempty"`
	CreatedAt        time.Time      `gorm:"not null;default:now()" json:"created_at"`
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Comment) TableName() string { return "comments" }
