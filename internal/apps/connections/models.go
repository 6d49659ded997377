package connections

import (
	"time"

	"github.com/google/uuid"
)

// --- DTOs ---

type SendRequestRequest struct {
	FriendID uuid.UUID `json:"friend_id"`
}

type UserSummary struct {
	ID      uuid.UUID `json:"id"`
	Name    string    `json:"name"`
	Image   string    `json:"image"`
	Vehicle string    `json:"vehicle"`
	Status  string    `json:"status"`
}

type PendingRequestResponse struct {
	ID        uuid.UUID   `json:"id"`
	From      UserSummary `json:"from"`
	CreatedAt time.Time   `json:"created_at"`
}

type AdminStatsResponse struct {
	Accepted int64 `json:"accepted"`
	Pending  int64 `json:"pending"`
}
