// Package testutil opens throwaway sqlite databases with the production
// schema so service and handler tests run without a Postgres server.
package testutil

import (
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/ahmetcoskunkizilkaya/roadmate-backend/internal/database"
	"github.com/ahmetcoskunkizilkaya/roadmate-backend/internal/models"
)

// NewDB returns an in-memory database migrated with the core models plus
// any extra plugin models.
func NewDB(t *testing.T, extra ...interface{}) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	require.NoError(t, database.MigrateModels(db, extra))
	return db
}

// UserOpt tweaks a seeded user before insert.
type UserOpt func(*models.User)

func At(lat, lng float64) UserOpt {
	return func(u *models.User) {
		u.Latitude = &lat
		u.Longitude = &lng
	}
}

func Pro() UserOpt {
	return func(u *models.User) { u.SubscriptionTier = models.TierPro }
}

func WithPushToken(token string) UserOpt {
	return func(u *models.User) { u.PushToken = &token }
}

func WithRoute(route string) UserOpt {
	return func(u *models.User) { u.Route = &route }
}

func ActiveAt(ts time.Time) UserOpt {
	return func(u *models.User) { u.LastActive = ts }
}

func InDistressSince(ts time.Time) UserOpt {
	return func(u *models.User) {
		u.DistressActive = true
		u.DistressActivatedAt = &ts
	}
}

// SeedUser inserts a user named name with the given options applied.
func SeedUser(t *testing.T, db *gorm.DB, name string, opts ...UserOpt) *models.User {
	t.Helper()
	u := &models.User{
		Name:       name,
		Email:      fmt.Sprintf("%s-%s@roadmate.test", name, uuid.NewString()[:8]),
		LastActive: time.Now().UTC(),
	}
	for _, opt := range opts {
		opt(u)
	}
	require.NoError(t, db.Create(u).Error)
	return u
}

func SeedBlock(t *testing.T, db *gorm.DB, blocker, blocked uuid.UUID) {
	t.Helper()
	require.NoError(t, db.Create(&models.Block{BlockerID: blocker, BlockedID: blocked}).Error)
}

func SeedFriends(t *testing.T, db *gorm.DB, a, b uuid.UUID) {
	t.Helper()
	require.NoError(t, db.Create(&models.Connection{UserID: a, FriendID: b, Status: models.ConnectionAccepted}).Error)
}
