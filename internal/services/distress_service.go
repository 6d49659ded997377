package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ahmetcoskunkizilkaya/roadmate-backend/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DistressService toggles a user's SOS signal. The active flag and its
// timestamp are always written in the same UPDATE.
type DistressService struct {
	db          *gorm.DB
	broadcaster *Broadcaster
	now         func() time.Time
}

func NewDistressService(db *gorm.DB, broadcaster *Broadcaster) *DistressService {
	return &DistressService{db: db, broadcaster: broadcaster, now: time.Now}
}

// Activate raises the user's distress signal and alerts nearby users. Only
// pro users with a known position may activate. The signal stays raised when
// the alert fan-out fails; the failure is logged and the notified count is 0.
func (s *DistressService) Activate(ctx context.Context, userID uuid.UUID) (int, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, ErrUserNotFound
		}
		return 0, err
	}
	if !user.IsPro() {
		return 0, ErrUpgradeRequired
	}
	if !user.HasLocation() {
		return 0, ErrLocationRequired
	}

	activatedAt := s.now().UTC()
	if err := s.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", userID).
		Updates(map[string]interface{}{
			"distress_active":       true,
			"distress_activated_at": activatedAt,
		}).Error; err != nil {
		return 0, fmt.Errorf("failed to activate distress: %w", err)
	}
	user.DistressActive = true
	user.DistressActivatedAt = &activatedAt

	notified, err := s.broadcaster.BroadcastDistress(ctx, &user)
	if err != nil {
		slog.Error("distress fan-out failed", "component", "fanout", "user_id", userID.String(), "error", err)
		return 0, nil
	}
	return notified, nil
}

func (s *DistressService) Deactivate(ctx context.Context, userID uuid.UUID) error {
	result := s.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", userID).
		Updates(map[string]interface{}{
			"distress_active":       false,
			"distress_activated_at": nil,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to deactivate distress: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}
