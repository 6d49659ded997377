package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Notification types.
const (
	NotificationDistressAlert      = "DISTRESS_ALERT"
	NotificationRouteMatch         = "ROUTE_MATCH"
	NotificationRouteUpdate        = "ROUTE_UPDATE"
	NotificationActivityCreated    = "NEW_ACTIVITY"
	NotificationActivityJoined     = "ACTIVITY_JOIN"
	NotificationActivityCancelled  = "ACTIVITY_CANCELLED"
	NotificationConnectionRequest  = "CONNECTION_REQUEST"
	NotificationConnectionAccepted = "CONNECTION_ACCEPTED"
	NotificationMeetingRequest     = "MEETING_REQUEST"
)

// Notification is one in-app feed entry addressed to a single recipient.
type Notification struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID      `gorm:"type:uuid;not null;index:idx_notifications_user_read,priority:1" json:"user_id"`
	SenderID  *uuid.UUID     `gorm:"type:uuid" json:"sender_id,omitempty"`
	Type      string         `gorm:"size:50;not null" json:"type"`
	Title     string         `gorm:"size:255;not null" json:"title"`
	Body      string         `gorm:"type:text" json:"body"`
	Payload   datatypes.JSON `gorm:"type:jsonb" json:"payload"`
	IsRead    bool           `gorm:"not null;default:false;index:idx_notifications_user_read,priority:2" json:"is_read"`
	CreatedAt time.Time      `gorm:"index" json:"created_at"`
	User      User           `gorm:"foreignKey:UserID" json:"-"`
}

func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return nil
}
