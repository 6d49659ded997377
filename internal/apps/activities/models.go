package activities

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	StatusActive    = "ACTIVE"
	StatusCancelled = "CANCELLED"

	// DateLayout is how activity dates are stored. Lexical order matches
	// chronological order, which the purge query relies on.
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

// Activity is a social event nomads can join: a campfire, a convoy, a hike.
type Activity struct {
	ID           uuid.UUID             `gorm:"type:uuid;primaryKey" json:"id"`
	CreatorID    uuid.UUID             `gorm:"type:uuid;not null;index" json:"creator_id"`
	Title        string                `gorm:"size:120;not null" json:"title"`
	Description  string                `gorm:"type:text" json:"description"`
	Type         string                `gorm:"size:30" json:"type"`
	Date         string                `gorm:"size:10;not null;index" json:"date"`
	Time         string                `gorm:"size:5" json:"time"`
	Location     string                `gorm:"size:255" json:"location"`
	Latitude     *float64              `json:"latitude"`
	Longitude    *float64              `json:"longitude"`
	Status       string                `gorm:"size:20;not null;default:'ACTIVE';index" json:"status"`
	CreatedAt    time.Time             `json:"created_at"`
	UpdatedAt    time.Time             `json:"updated_at"`
	Participants []ActivityParticipant `gorm:"foreignKey:ActivityID" json:"participants,omitempty"`
}

func (a *Activity) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// ActivityParticipant is the join row between an activity and a user. Rows
// must be removed before their activity.
type ActivityParticipant struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ActivityID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_activity_participant,priority:1" json:"activity_id"`
	UserID     uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_activity_participant,priority:2;index" json:"user_id"`
	JoinedAt   time.Time `json:"joined_at"`
}

func (p *ActivityParticipant) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// --- DTOs ---

type CreateActivityRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Type        string   `json:"type"`
	Date        string   `json:"date"`
	Time        string   `json:"time"`
	Location    string   `json:"location"`
	Latitude    *float64 `json:"latitude"`
	Longitude   *float64 `json:"longitude"`
}

type AdminStatsResponse struct {
	Active       int64 `json:"active"`
	Cancelled    int64 `json:"cancelled"`
	Participants int64 `json:"participants"`
}
