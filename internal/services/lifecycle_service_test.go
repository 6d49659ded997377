package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahmetcoskunkizilkaya/roadmate-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/roadmate-backend/internal/testutil"
)

func TestExpireDistress_TTLBoundary(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	activatedAt := time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)
	u := testutil.SeedUser(t, e.db, "sos", testutil.Pro(), testutil.At(37, 28), testutil.InDistressSince(activatedAt))

	e.lifecycle.now = fixedClock(activatedAt.Add(time.Hour + 59*time.Minute))
	n, err := e.lifecycle.ExpireDistress(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
	assert.True(t, e.reload(t, u.ID).DistressActive)

	e.lifecycle.now = fixedClock(activatedAt.Add(2*time.Hour + time.Minute))
	n, err = e.lifecycle.ExpireDistress(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	got := e.reload(t, u.ID)
	assert.False(t, got.DistressActive)
	assert.Nil(t, got.DistressActivatedAt)

	n, err = e.lifecycle.ExpireDistress(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n, "sweeping again is a no-op")
}

func TestExpireDistress_KeepsReactivatedSignal(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	now := time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)
	stale := testutil.SeedUser(t, e.db, "stale", testutil.InDistressSince(now.Add(-3*time.Hour)))
	reactivated := testutil.SeedUser(t, e.db, "reactivated", testutil.InDistressSince(now.Add(-time.Minute)))
	broken := testutil.SeedUser(t, e.db, "broken")
	require.NoError(t, e.db.Model(&models.User{}).Where("id = ?", broken.ID).Update("distress_active", true).Error)

	e.lifecycle.now = fixedClock(now)
	n, err := e.lifecycle.ExpireDistress(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	assert.False(t, e.reload(t, stale.ID).DistressActive)
	assert.True(t, e.reload(t, reactivated.ID).DistressActive)
	assert.False(t, e.reload(t, broken.ID).DistressActive)
}

func TestExpireDistress_ConcurrentSweepsAreSafe(t *testing.T) {
	e := newEnv(t)
	now := time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		testutil.SeedUser(t, e.db, "sos", testutil.InDistressSince(now.Add(-5*time.Hour)))
	}
	e.lifecycle.now = fixedClock(now)

	var wg sync.WaitGroup
	var mu sync.Mutex
	var total int64
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n, err := e.lifecycle.ExpireDistress(context.Background())
			assert.NoError(t, err)
			mu.Lock()
			total += n
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(5), total, "each row is expired exactly once")
}
