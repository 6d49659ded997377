package services

import (
	"context"
	"fmt"
	"time"

	"github.com/ahmetcoskunkizilkaya/roadmate-backend/internal/models"
	"gorm.io/gorm"
)

// LifecycleService expires distress signals older than DistressTTL.
type LifecycleService struct {
	db  *gorm.DB
	now func() time.Time
}

func NewLifecycleService(db *gorm.DB) *LifecycleService {
	return &LifecycleService{db: db, now: time.Now}
}

// ExpireDistress clears every distress signal activated before now minus
// DistressTTL in a single conditional UPDATE. The timestamp is compared at
// write time, so a user who re-activated after the cutoff keeps the newer
// signal. Rows flagged active without a timestamp are repaired too.
func (s *LifecycleService) ExpireDistress(ctx context.Context) (int64, error) {
	cutoff := s.now().UTC().Add(-DistressTTL)
	result := s.db.WithContext(ctx).Model(&models.User{}).
		Where("distress_active = ?", true).
		Where("distress_activated_at IS NULL OR distress_activated_at < ?", cutoff).
		Updates(map[string]interface{}{
			"distress_active":       false,
			"distress_activated_at": nil,
		})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to expire distress: %w", result.Error)
	}
	return result.RowsAffected, nil
}
