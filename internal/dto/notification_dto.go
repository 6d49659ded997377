package dto

import "github.com/google/uuid"

type UnreadCountResponse struct {
	Count int64 `json:"count"`
}

type MeetingRequest struct {
	TargetUserID uuid.UUID `json:"target_user_id"`
}
