package connections

import (
	"context"
	"errors"
	"fmt"

	"github.com/ahmetcoskunkizilkaya/roadmate-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/roadmate-backend/internal/services"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrConnectionNotFound = errors.New("connection not found")
	ErrConnectionExists   = errors.New("a connection with this user already exists")
	ErrNotAddressee       = errors.New("only the recipient can accept this request")
	ErrNotPending         = errors.New("connection request is not pending")
)

type ConnectionService struct {
	db          *gorm.DB
	broadcaster *services.Broadcaster
	blocks      *services.BlockService
	friends     *services.FriendService
}

func NewConnectionService(db *gorm.DB, broadcaster *services.Broadcaster, blocks *services.BlockService, friends *services.FriendService) *ConnectionService {
	return &ConnectionService{db: db, broadcaster: broadcaster, blocks: blocks, friends: friends}
}

// SendRequest opens a pending connection from userID to friendID and
// notifies the recipient.
func (s *ConnectionService) SendRequest(ctx context.Context, userID, friendID uuid.UUID) (*models.Connection, error) {
	if userID == friendID {
		return nil, services.ErrSelfTarget
	}
	sender, err := s.user(ctx, userID)
	if err != nil {
		return nil, err
	}
	if _, err := s.user(ctx, friendID); err != nil {
		return nil, err
	}
	blocked, err := s.blocks.BlockedBetween(ctx, userID, friendID)
	if err != nil {
		return nil, err
	}
	if blocked {
		return nil, services.ErrBlocked
	}

	var existing int64
	if err := s.db.WithContext(ctx).Model(&models.Connection{}).
		Where("(user_id = ? AND friend_id = ?) OR (user_id = ? AND friend_id = ?)", userID, friendID, friendID, userID).
		Count(&existing).Error; err != nil {
		return nil, err
	}
	if existing > 0 {
		return nil, ErrConnectionExists
	}

	conn := models.Connection{UserID: userID, FriendID: friendID, Status: models.ConnectionPending}
	if err := s.db.WithContext(ctx).Create(&conn).Error; err != nil {
		return nil, fmt.Errorf("failed to create connection: %w", err)
	}

	_, err = s.broadcaster.NotifyUser(ctx, services.NotificationInput{
		RecipientID: friendID,
		SenderID:    &userID,
		Type:        models.NotificationConnectionRequest,
		Title:       "Friend Request",
		Body:        fmt.Sprintf("%s wants to connect with you", sender.DisplayName()),
		Payload: map[string]any{
			"type":          models.NotificationConnectionRequest,
			"connection_id": conn.ID.String(),
			"sender_id":     userID.String(),
		},
	})
	if err != nil {
		return nil, err
	}
	return &conn, nil
}

// Accept turns a pending request addressed to userID into a friendship.
func (s *ConnectionService) Accept(ctx context.Context, userID, connectionID uuid.UUID) (*models.Connection, error) {
	var conn models.Connection
	if err := s.db.WithContext(ctx).First(&conn, "id = ?", connectionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrConnectionNotFound
		}
		return nil, err
	}
	if conn.FriendID != userID {
		return nil, ErrNotAddressee
	}
	if conn.Status != models.ConnectionPending {
		return nil, ErrNotPending
	}

	if err := s.db.WithContext(ctx).Model(&conn).Update("status", models.ConnectionAccepted).Error; err != nil {
		return nil, fmt.Errorf("failed to accept connection: %w", err)
	}

	accepter, err := s.user(ctx, userID)
	if err != nil {
		return nil, err
	}
	_, err = s.broadcaster.NotifyUser(ctx, services.NotificationInput{
		RecipientID: conn.UserID,
		SenderID:    &userID,
		Type:        models.NotificationConnectionAccepted,
		Title:       "Friend Request Accepted",
		Body:        fmt.Sprintf("%s accepted your friend request", accepter.DisplayName()),
		Payload: map[string]any{
			"type":          models.NotificationConnectionAccepted,
			"connection_id": conn.ID.String(),
			"sender_id":     userID.String(),
		},
	})
	if err != nil {
		return nil, err
	}
	return &conn, nil
}

func (s *ConnectionService) ListFriends(ctx context.Context, userID uuid.UUID) ([]UserSummary, error) {
	ids, err := s.friends.AcceptedFriendsOf(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := []UserSummary{}
	if len(ids) == 0 {
		return out, nil
	}

	var users []models.User
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Order("name ASC").Find(&users).Error; err != nil {
		return nil, err
	}
	for i := range users {
		out = append(out, summarize(&users[i]))
	}
	return out, nil
}

// ListPending returns requests waiting on userID, newest first.
func (s *ConnectionService) ListPending(ctx context.Context, userID uuid.UUID) ([]PendingRequestResponse, error) {
	var conns []models.Connection
	err := s.db.WithContext(ctx).
		Preload("User").
		Where("friend_id = ? AND status = ?", userID, models.ConnectionPending).
		Order("created_at DESC").
		Find(&conns).Error
	if err != nil {
		return nil, err
	}

	out := make([]PendingRequestResponse, 0, len(conns))
	for i := range conns {
		out = append(out, PendingRequestResponse{
			ID:        conns[i].ID,
			From:      summarize(&conns[i].User),
			CreatedAt: conns[i].CreatedAt,
		})
	}
	return out, nil
}

// Remove deletes the connection between userID and otherID in either
// direction, pending or accepted.
func (s *ConnectionService) Remove(ctx context.Context, userID, otherID uuid.UUID) error {
	result := s.db.WithContext(ctx).
		Where("(user_id = ? AND friend_id = ?) OR (user_id = ? AND friend_id = ?)", userID, otherID, otherID, userID).
		Delete(&models.Connection{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrConnectionNotFound
	}
	return nil
}

func (s *ConnectionService) Stats(ctx context.Context) (*AdminStatsResponse, error) {
	var stats AdminStatsResponse
	db := s.db.WithContext(ctx)
	if err := db.Model(&models.Connection{}).Where("status = ?", models.ConnectionAccepted).Count(&stats.Accepted).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.Connection{}).Where("status = ?", models.ConnectionPending).Count(&stats.Pending).Error; err != nil {
		return nil, err
	}
	return &stats, nil
}

func (s *ConnectionService) user(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).First(&u, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, services.ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

func summarize(u *models.User) UserSummary {
	return UserSummary{ID: u.ID, Name: u.DisplayName(), Image: u.Image, Vehicle: u.Vehicle, Status: u.Status}
}
