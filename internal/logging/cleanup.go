package logging

import (
	"context"
	"time"

	"github.com/ahmetcoskunkizilkaya/roadmate-backend/internal/models"
	"gorm.io/gorm"
)

// PurgeSystemLogs deletes system_logs rows older than cutoff and returns how
// many were removed. The lifecycle sweeper runs it on its own schedule.
func PurgeSystemLogs(ctx context.Context, db *gorm.DB, cutoff time.Time) (int64, error) {
	result := db.WithContext(ctx).Where("timestamp < ?", cutoff).Delete(&models.SystemLog{})
	return result.RowsAffected, result.Error
}
