package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	TierFree = "free"
	TierPro  = "pro"
)

// User is the presence record of a nomad: identity, last known position,
// subscription tier and distress state.
//
// DistressActive and DistressActivatedAt are always written together.
type User struct {
	ID                  uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Email               string         `gorm:"size:255;uniqueIndex" json:"email"`
	Name                string         `gorm:"size:100" json:"name"`
	Image               string         `gorm:"type:text" json:"image"`
	Status              string         `gorm:"size:255" json:"status"`
	Vehicle             string         `gorm:"size:100" json:"vehicle"`
	Role                string         `gorm:"size:20;default:'user'" json:"role"`
	Latitude            *float64       `json:"latitude"`
	Longitude           *float64       `json:"longitude"`
	LastActive          time.Time      `gorm:"index" json:"last_active"`
	SubscriptionTier    string         `gorm:"size:20;not null;default:'free'" json:"subscription_tier"`
	DistressActive      bool           `gorm:"not null;default:false;index" json:"distress_active"`
	DistressActivatedAt *time.Time     `json:"distress_activated_at"`
	PushToken           *string        `gorm:"size:255" json:"-"`
	Route               *string        `gorm:"type:text" json:"route"`
	CreatedAt           time.Time      `json:"created_at"`
	UpdatedAt           time.Time      `json:"updated_at"`
	DeletedAt           gorm.DeletedAt `gorm:"index" json:"-"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	if u.SubscriptionTier == "" {
		u.SubscriptionTier = TierFree
	}
	return nil
}

// HasLocation reports whether the user has reported coordinates at least once.
func (u *User) HasLocation() bool {
	return u.Latitude != nil && u.Longitude != nil
}

// HasPushToken reports whether the user registered a device for push.
func (u *User) HasPushToken() bool {
	return u.PushToken != nil && *u.PushToken != ""
}

func (u *User) IsPro() bool {
	return u.SubscriptionTier == TierPro
}

// DisplayName falls back to a generic label for users without a profile name.
func (u *User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	return "A nomad"
}
