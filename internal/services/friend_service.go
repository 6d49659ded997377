package services

import (
	"context"
	"fmt"

	"github.com/ahmetcoskunkizilkaya/roadmate-backend/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// FriendService is the read side of the connection graph.
type FriendService struct {
	db *gorm.DB
}

func NewFriendService(db *gorm.DB) *FriendService {
	return &FriendService{db: db}
}

// AcceptedFriendsOf returns the ids of every accepted connection of userID,
// whichever side sent the request.
func (s *FriendService) AcceptedFriendsOf(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	var conns []models.Connection
	err := s.db.WithContext(ctx).
		Select("user_id", "friend_id").
		Where("status = ? AND (user_id = ? OR friend_id = ?)", models.ConnectionAccepted, userID, userID).
		Find(&conns).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load friends: %w", err)
	}

	seen := make(map[uuid.UUID]struct{}, len(conns))
	ids := make([]uuid.UUID, 0, len(conns))
	for i := range conns {
		other := conns[i].Other(userID)
		if _, ok := seen[other]; ok {
			continue
		}
		seen[other] = struct{}{}
		ids = append(ids, other)
	}
	return ids, nil
}

func (s *FriendService) AreFriends(ctx context.Context, a, b uuid.UUID) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Connection{}).
		Where("status = ? AND ((user_id = ? AND friend_id = ?) OR (user_id = ? AND friend_id = ?))",
			models.ConnectionAccepted, a, b, b, a).
		Count(&count).Error
	return count > 0, err
}
