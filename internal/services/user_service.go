package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ahmetcoskunkizilkaya/roadmate-backend/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UserService struct {
	db *gorm.DB
}

func NewUserService(db *gorm.DB) *UserService {
	return &UserService{db: db}
}

func (s *UserService) Get(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).First(&u, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

// UpdatePushToken stores the device token; a blank token clears it so the
// user stops receiving pushes.
func (s *UserService) UpdatePushToken(ctx context.Context, userID uuid.UUID, token string) error {
	var value interface{}
	if t := strings.TrimSpace(token); t != "" {
		value = t
	}
	result := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Update("push_token", value)
	if result.Error != nil {
		return fmt.Errorf("failed to update push token: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}
