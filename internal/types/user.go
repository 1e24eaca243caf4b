package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type User struct {
	ID             uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Handle         string         `gorm:"uniqueIndex;not null" json:"handle"`
	DisplayName    string         `json:"display_name"`
	UploadsCount   int64          `gorm:"not null;default:0" json:"uploads_count"`
	FollowersCount int64          `gorm:"not null;default:0" json:"followers_count"`
	CreatedAt      time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (User) TableName() string { return "users" }

type Follow struct {
	ID         uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	FollowerID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_follow_pair" json:"follower_id"`
	FolloweeID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_follow_pair;index" json:"followee_id"`
	CreatedAt  time.Time `gorm:"not null;default:now()" json:"created_at"`
}

func (Follow) TableName() string { return "follows" }
