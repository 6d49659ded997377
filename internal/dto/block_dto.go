package dto

import "github.com/google/uuid"

type BlockUserRequest struct {
	BlockedID uuid.UUID `json:"blocked_id"`
}
