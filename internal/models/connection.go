package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	ConnectionPending  = "pending"
	ConnectionAccepted = "accepted"
)

// Connection is a friendship between two users. Once accepted it is
// undirected: either side may appear in UserID or FriendID.
type Connection struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_connections_pair,priority:1" json:"user_id"`
	FriendID  uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_connections_pair,priority:2;index" json:"friend_id"`
	Status    string    `gorm:"size:20;not null;default:'pending';index" json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	User      User      `gorm:"foreignKey:UserID" json:"-"`
	Friend    User      `gorm:"foreignKey:FriendID" json:"-"`
}

func (c *Connection) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// Other returns the id on the opposite side of the edge from userID.
func (c *Connection) Other(userID uuid.UUID) uuid.UUID {
	if c.UserID == userID {
		return c.FriendID
	}
	return c.UserID
}
