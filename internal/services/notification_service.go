package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ahmetcoskunkizilkaya/roadmate-backend/internal/models"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const notificationBatchSize = 100

// NotificationInput describes one feed entry to create.
type NotificationInput struct {
	RecipientID uuid.UUID
	SenderID    *uuid.UUID
	Type        string
	Title       string
	Body        string
	Payload     map[string]any
}

// NotificationService is the append-only in-app feed. Every read and write
// is scoped to the recipient.
type NotificationService struct {
	db *gorm.DB
}

func NewNotificationService(db *gorm.DB) *NotificationService {
	return &NotificationService{db: db}
}

func (s *NotificationService) Create(ctx context.Context, in NotificationInput) (*models.Notification, error) {
	n, err := toModel(in)
	if err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Create(&n).Error; err != nil {
		return nil, fmt.Errorf("failed to create notification: %w", err)
	}
	return &n, nil
}

// CreateMany writes all entries in batched inserts.
func (s *NotificationService) CreateMany(ctx context.Context, inputs []NotificationInput) ([]models.Notification, error) {
	if len(inputs) == 0 {
		return nil, nil
	}
	rows := make([]models.Notification, 0, len(inputs))
	for _, in := range inputs {
		n, err := toModel(in)
		if err != nil {
			return nil, err
		}
		rows = append(rows, n)
	}
	if err := s.db.WithContext(ctx).CreateInBatches(&rows, notificationBatchSize).Error; err != nil {
		return nil, fmt.Errorf("failed to create notifications: %w", err)
	}
	return rows, nil
}

// List returns the user's notifications, newest first.
func (s *NotificationService) List(ctx context.Context, userID uuid.UUID, unreadOnly bool) ([]models.Notification, error) {
	query := s.db.WithContext(ctx).Where("user_id = ?", userID)
	if unreadOnly {
		query = query.Where("is_read = ?", false)
	}
	var list []models.Notification
	err := query.Order("created_at DESC").Order("id DESC").Find(&list).Error
	return list, err
}

// MarkRead marks one of the user's notifications read. Unknown ids and ids
// belonging to someone else are silently ignored.
func (s *NotificationService) MarkRead(ctx context.Context, userID, notificationID uuid.UUID) error {
	return s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("id = ? AND user_id = ?", notificationID, userID).
		Update("is_read", true).Error
}

func (s *NotificationService) MarkAllRead(ctx context.Context, userID uuid.UUID) error {
	return s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Update("is_read", true).Error
}

func (s *NotificationService) UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&count).Error
	return count, err
}

func toModel(in NotificationInput) (models.Notification, error) {
	n := models.Notification{
		ID:       uuid.New(),
		UserID:   in.RecipientID,
		SenderID: in.SenderID,
		Type:     in.Type,
		Title:    in.Title,
		Body:     in.Body,
	}
	if in.Payload != nil {
		b, err := json.Marshal(in.Payload)
		if err != nil {
			return n, fmt.Errorf("failed to encode %s payload: %w", in.Type, err)
		}
		n.Payload = datatypes.JSON(b)
	}
	return n, nil
}
