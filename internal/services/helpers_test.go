package services

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/ahmetcoskunkizilkaya/roadmate-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/roadmate-backend/internal/push"
	"github.com/ahmetcoskunkizilkaya/roadmate-backend/internal/queue"
	"github.com/ahmetcoskunkizilkaya/roadmate-backend/internal/testutil"
)

// fakePush records every dispatch it receives.
type fakePush struct {
	mu    sync.Mutex
	calls []pushCall
}

type pushCall struct {
	Tokens []string
	N      push.Notification
}

func (f *fakePush) Dispatch(_ context.Context, tokens []string, n push.Notification) push.Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, pushCall{Tokens: append([]string(nil), tokens...), N: n})
	return push.Result{Tokens: len(tokens), Batches: 1}
}

func (f *fakePush) Calls() []pushCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]pushCall(nil), f.calls...)
}

func (f *fakePush) AllTokens() []string {
	var out []string
	for _, c := range f.Calls() {
		out = append(out, c.Tokens...)
	}
	return out
}

type env struct {
	db            *gorm.DB
	queue         *queue.InProcess
	push          *fakePush
	blocks        *BlockService
	friends       *FriendService
	notifications *NotificationService
	broadcaster   *Broadcaster
	proximity     *ProximityService
	distress      *DistressService
	routes        *RouteService
	lifecycle     *LifecycleService
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db := testutil.NewDB(t)
	q := queue.NewInProcess(4, 5*time.Second)
	fp := &fakePush{}

	blocks := NewBlockService(db)
	friends := NewFriendService(db)
	notifications := NewNotificationService(db)
	broadcaster := NewBroadcaster(db, notifications, blocks, friends, q)
	RegisterTasks(q, broadcaster, fp)

	return &env{
		db:            db,
		queue:         q,
		push:          fp,
		blocks:        blocks,
		friends:       friends,
		notifications: notifications,
		broadcaster:   broadcaster,
		proximity:     NewProximityService(db, NewVisibilityPolicy(blocks)),
		distress:      NewDistressService(db, broadcaster),
		routes:        NewRouteService(db, q),
		lifecycle:     NewLifecycleService(db),
	}
}

func (e *env) notificationsFor(t *testing.T, userID uuid.UUID) []models.Notification {
	t.Helper()
	list, err := e.notifications.List(context.Background(), userID, false)
	require.NoError(t, err)
	return list
}

func (e *env) reload(t *testing.T, userID uuid.UUID) models.User {
	t.Helper()
	var u models.User
	require.NoError(t, e.db.First(&u, "id = ?", userID).Error)
	return u
}

func payloadOf(t *testing.T, n models.Notification) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(n.Payload, &m))
	return m
}

func fixedClock(ts time.Time) func() time.Time {
	return func() time.Time { return ts }
}
