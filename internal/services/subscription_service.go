package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ahmetcoskunkizilkaya/roadmate-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/roadmate-backend/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SubscriptionService mirrors RevenueCat events into subscriptions and the
// user's tier, which the visibility policy and distress gate read.
type SubscriptionService struct {
	db *gorm.DB
}

func NewSubscriptionService(db *gorm.DB) *SubscriptionService {
	return &SubscriptionService{db: db}
}

func (s *SubscriptionService) HandleWebhookEvent(ctx context.Context, event *dto.RevenueCatEvent) error {
	userID, err := uuid.Parse(event.AppUserID)
	if err != nil {
		slog.Warn("revenuecat event for non-uuid app user", "app_user_id", event.AppUserID, "type", event.Type)
		return nil
	}

	switch event.Type {
	case "INITIAL_PURCHASE", "RENEWAL", "UNCANCELLATION", "PRODUCT_CHANGE":
		return s.activate(ctx, userID, event)
	case "CANCELLATION":
		// Access continues until EXPIRATION.
		return s.setStatus(ctx, event.AppUserID, "cancelled")
	case "EXPIRATION":
		return s.expire(ctx, userID, event)
	default:
		return nil
	}
}

func (s *SubscriptionService) activate(ctx context.Context, userID uuid.UUID, event *dto.RevenueCatEvent) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var sub models.Subscription
		err := tx.Where("revenuecat_id = ?", event.AppUserID).First(&sub).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			sub = models.Subscription{
				UserID:             userID,
				RevenueCatID:       event.AppUserID,
				ProductID:          event.ProductID,
				Status:             "active",
				CurrentPeriodStart: msToTime(event.PurchasedAtMs),
				CurrentPeriodEnd:   msToTime(event.ExpirationAtMs),
			}
			if err := tx.Create(&sub).Error; err != nil {
				return fmt.Errorf("failed to create subscription: %w", err)
			}
		case err != nil:
			return err
		default:
			if err := tx.Model(&sub).Updates(map[string]interface{}{
				"status":               "active",
				"product_id":           event.ProductID,
				"current_period_start": msToTime(event.PurchasedAtMs),
				"current_period_end":   msToTime(event.ExpirationAtMs),
			}).Error; err != nil {
				return fmt.Errorf("failed to renew subscription: %w", err)
			}
		}
		return tx.Model(&models.User{}).Where("id = ?", userID).Update("subscription_tier", models.TierPro).Error
	})
}

func (s *SubscriptionService) expire(ctx context.Context, userID uuid.UUID, event *dto.RevenueCatEvent) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Subscription{}).
			Where("revenuecat_id = ?", event.AppUserID).
			Update("status", "expired").Error; err != nil {
			return err
		}
		return tx.Model(&models.User{}).Where("id = ?", userID).Update("subscription_tier", models.TierFree).Error
	})
}

func (s *SubscriptionService) setStatus(ctx context.Context, revenueCatID, status string) error {
	return s.db.WithContext(ctx).Model(&models.Subscription{}).
		Where("revenuecat_id = ?", revenueCatID).
		Update("status", status).Error
}

// Status reports the user's tier and latest subscription record.
func (s *SubscriptionService) Status(ctx context.Context, userID uuid.UUID) (*dto.SubscriptionStatusResponse, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Select("id", "subscription_tier").First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	resp := &dto.SubscriptionStatusResponse{Tier: user.SubscriptionTier, Status: "none"}
	var sub models.Subscription
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("updated_at DESC").First(&sub).Error
	if err == nil {
		resp.Status = sub.Status
		resp.CurrentPeriodEnd = sub.CurrentPeriodEnd.UTC().Format(time.RFC3339)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	return resp, nil
}

func msToTime(ms int64) time.Time {
	return time.Unix(ms/1000, (ms%1000)*int64(time.Millisecond)).UTC()
}
