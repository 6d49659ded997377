package routes

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/ahmetcoskunkizilkaya/roadmate-backend/internal/apps"
	"github.com/ahmetcoskunkizilkaya/roadmate-backend/internal/apps/activities"
	"github.com/ahmetcoskunkizilkaya/roadmate-backend/internal/apps/connections"
	"github.com/ahmetcoskunkizilkaya/roadmate-backend/internal/config"
	"github.com/ahmetcoskunkizilkaya/roadmate-backend/internal/handlers"
	"github.com/ahmetcoskunkizilkaya/roadmate-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/roadmate-backend/internal/push"
	"github.com/ahmetcoskunkizilkaya/roadmate-backend/internal/queue"
	"github.com/ahmetcoskunkizilkaya/roadmate-backend/internal/services"
	"github.com/ahmetcoskunkizilkaya/roadmate-backend/internal/sweeper"
	"github.com/ahmetcoskunkizilkaya/roadmate-backend/internal/testutil"
)

const (
	adminToken  = "admin-secret"
	webhookAuth = "Bearer rc-secret"
)

type nopDispatcher struct{}

func (nopDispatcher) Dispatch(_ context.Context, tokens []string, _ push.Notification) push.Result {
	return push.Result{Tokens: len(tokens)}
}

type server struct {
	app   *fiber.App
	db    *gorm.DB
	queue *queue.InProcess
}

func newServer(t *testing.T) *server {
	t.Helper()
	plugins := []apps.Plugin{activities.New(), connections.New()}
	var extra []interface{}
	for _, p := range plugins {
		extra = append(extra, p.Models()...)
	}
	db := testutil.NewDB(t, extra...)

	cfg := &config.Config{
		JWTSecret:             testutil.JWTSecret,
		AdminToken:            adminToken,
		RevenueCatWebhookAuth: webhookAuth,
		ActivitySweepInterval: time.Hour,
	}
	q := queue.NewInProcess(2, 5*time.Second)
	t.Cleanup(func() { _ = q.Close() })

	blocks := services.NewBlockService(db)
	friends := services.NewFriendService(db)
	notifications := services.NewNotificationService(db)
	broadcaster := services.NewBroadcaster(db, notifications, blocks, friends, q)
	services.RegisterTasks(q, broadcaster, nopDispatcher{})

	deps := apps.Deps{DB: db, Config: cfg, Tasks: q, Broadcaster: broadcaster, Blocks: blocks, Friends: friends}
	jobs := []sweeper.Job{{Name: "distress-expiry", Interval: time.Hour, Run: services.NewLifecycleService(db).ExpireDistress}}
	for _, p := range plugins {
		if sp, ok := p.(apps.SweepPlugin); ok {
			jobs = append(jobs, sp.SweepJobs(deps)...)
		}
	}

	app := fiber.New()
	Setup(app, cfg, db, Handlers{
		Health:        handlers.NewHealthHandler(db, nil),
		Proximity:     handlers.NewProximityHandler(services.NewProximityService(db, services.NewVisibilityPolicy(blocks))),
		Distress:      handlers.NewDistressHandler(services.NewDistressService(db, broadcaster)),
		Users:         handlers.NewUserHandler(services.NewUserService(db), services.NewRouteService(db, q)),
		Notifications: handlers.NewNotificationHandler(notifications, broadcaster),
		Blocks:        handlers.NewBlockHandler(blocks),
		Webhooks:      handlers.NewWebhookHandler(services.NewSubscriptionService(db), webhookAuth),
		Admin:         handlers.NewAdminHandler(sweeper.New(jobs...)),
	}, plugins, deps)

	return &server{app: app, db: db, queue: q}
}

type call struct {
	method  string
	path    string
	body    string
	as      *uuid.UUID
	headers map[string]string
}

func (s *server) do(t *testing.T, c call) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(c.method, c.path, strings.NewReader(c.body))
	req.Header.Set("Content-Type", "application/json")
	if c.as != nil {
		req.Header.Set("Authorization", testutil.Token(t, *c.as))
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	resp, err := s.app.Test(req, 5000)
	require.NoError(t, err)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var out map[string]any
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp.StatusCode, out
}

func TestHealth(t *testing.T) {
	s := newServer(t)
	status, body := s.do(t, call{method: "GET", path: "/api/health"})
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "ok", body["db"])
	assert.Equal(t, "in-process", body["queue"])
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	s := newServer(t)
	for _, c := range []call{
		{method: "PUT", path: "/api/location", body: `{"latitude":1,"longitude":1}`},
		{method: "POST", path: "/api/distress/activate"},
		{method: "GET", path: "/api/notifications"},
		{method: "GET", path: "/api/activities"},
		{method: "GET", path: "/api/connections"},
	} {
		status, _ := s.do(t, c)
		assert.Equal(t, fiber.StatusUnauthorized, status, c.path)
	}
}

func TestLocationAndNearby(t *testing.T) {
	s := newServer(t)
	me := testutil.SeedUser(t, s.db, "Ada")
	near := testutil.SeedUser(t, s.db, "Bo", testutil.At(41.01, 29.0), testutil.WithRoute("Izmir → Antalya"))
	far := testutil.SeedUser(t, s.db, "Cy", testutil.At(39.9, 32.85))

	status, _ := s.do(t, call{method: "PUT", path: "/api/location", body: `{"latitude":41.0}`, as: &me.ID})
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, _ = s.do(t, call{method: "PUT", path: "/api/location", body: `{"latitude":95,"longitude":29}`, as: &me.ID})
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, _ = s.do(t, call{method: "PUT", path: "/api/location", body: `{"latitude":41.0,"longitude":29.0}`, as: &me.ID})
	require.Equal(t, fiber.StatusOK, status)

	status, _ = s.do(t, call{method: "GET", path: "/api/nearby?lat=41"})
	assert.Equal(t, fiber.StatusBadRequest, status)

	// Free observer: self removed, the Ankara user is past the 50 km cap
	// and routes stay hidden.
	status, body := s.do(t, call{method: "GET", path: "/api/nearby?lat=41.0&lng=29.0", as: &me.ID})
	require.Equal(t, fiber.StatusOK, status)
	data := body["data"].([]any)
	require.Len(t, data, 1)
	first := data[0].(map[string]any)
	assert.Equal(t, near.ID.String(), first["id"])
	assert.NotContains(t, first, "route")

	// Anonymous: nothing filtered.
	status, body = s.do(t, call{method: "GET", path: "/api/nearby?lat=41.0&lng=29.0"})
	require.Equal(t, fiber.StatusOK, status)
	assert.Len(t, body["data"].([]any), 3)

	// Pro observer sees routes and the far user.
	require.NoError(t, s.db.Model(&models.User{}).Where("id = ?", me.ID).Update("subscription_tier", models.TierPro).Error)
	status, body = s.do(t, call{method: "GET", path: "/api/nearby?lat=41.0&lng=29.0", as: &me.ID})
	require.Equal(t, fiber.StatusOK, status)
	data = body["data"].([]any)
	require.Len(t, data, 2)
	assert.Equal(t, "Izmir → Antalya", data[0].(map[string]any)["route"])
	assert.Equal(t, far.ID.String(), data[1].(map[string]any)["id"])
}

func TestDistressFlow(t *testing.T) {
	s := newServer(t)
	free := testutil.SeedUser(t, s.db, "Free", testutil.At(41.0, 29.0))
	pro := testutil.SeedUser(t, s.db, "Pro", testutil.Pro())
	helper := testutil.SeedUser(t, s.db, "Helper", testutil.At(41.05, 29.0), testutil.WithPushToken("ExponentPushToken[h]"))

	status, body := s.do(t, call{method: "POST", path: "/api/distress/activate", as: &free.ID})
	assert.Equal(t, fiber.StatusForbidden, status)
	assert.Equal(t, true, body["requires_pro"])

	status, _ = s.do(t, call{method: "POST", path: "/api/distress/activate", as: &pro.ID})
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, _ = s.do(t, call{method: "PUT", path: "/api/location", body: `{"latitude":41.0,"longitude":29.0}`, as: &pro.ID})
	require.Equal(t, fiber.StatusOK, status)

	status, body = s.do(t, call{method: "POST", path: "/api/distress/activate", as: &pro.ID})
	require.Equal(t, fiber.StatusOK, status)
	assert.EqualValues(t, 1, body["notified_count"])

	status, body = s.do(t, call{method: "GET", path: "/api/distress/nearby?lat=41.0&lng=29.0", as: &helper.ID})
	require.Equal(t, fiber.StatusOK, status)
	data := body["data"].([]any)
	require.Len(t, data, 1)
	assert.Equal(t, pro.ID.String(), data[0].(map[string]any)["id"])

	status, body = s.do(t, call{method: "GET", path: "/api/notifications/unread-count", as: &helper.ID})
	require.Equal(t, fiber.StatusOK, status)
	assert.EqualValues(t, 1, body["count"])

	status, _ = s.do(t, call{method: "PUT", path: "/api/notifications/read-all", as: &helper.ID})
	require.Equal(t, fiber.StatusOK, status)
	_, body = s.do(t, call{method: "GET", path: "/api/notifications/unread-count", as: &helper.ID})
	assert.EqualValues(t, 0, body["count"])

	status, _ = s.do(t, call{method: "POST", path: "/api/distress/deactivate", as: &pro.ID})
	require.Equal(t, fiber.StatusOK, status)
	_, body = s.do(t, call{method: "GET", path: "/api/distress/nearby?lat=41.0&lng=29.0", as: &helper.ID})
	assert.Empty(t, body["data"])

	s.queue.Wait()
}

func TestRouteAndPushToken(t *testing.T) {
	s := newServer(t)
	me := testutil.SeedUser(t, s.db, "Ada")
	match := testutil.SeedUser(t, s.db, "Bo", testutil.WithRoute("heading to antalya soon"), testutil.WithPushToken("ExponentPushToken[bo]"))

	status, _ := s.do(t, call{method: "PUT", path: "/api/users/me/push-token", body: `{"token":"ExponentPushToken[ada]"}`, as: &me.ID})
	require.Equal(t, fiber.StatusOK, status)

	status, _ = s.do(t, call{method: "PUT", path: "/api/users/me/route", body: `{"route":"Izmir → Antalya"}`, as: &me.ID})
	require.Equal(t, fiber.StatusOK, status)
	s.queue.Wait()

	status, body := s.do(t, call{method: "GET", path: "/api/notifications?unread=true", as: &match.ID})
	require.Equal(t, fiber.StatusOK, status)
	data := body["data"].([]any)
	require.Len(t, data, 1)
	assert.Equal(t, models.NotificationRouteMatch, data[0].(map[string]any)["type"])

	status, body = s.do(t, call{method: "GET", path: "/api/users/me", as: &me.ID})
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "Izmir → Antalya", body["route"])
	assert.NotContains(t, body, "push_token")
}

func TestBlocksAndMeetingRequest(t *testing.T) {
	s := newServer(t)
	me := testutil.SeedUser(t, s.db, "Ada", testutil.At(41.0, 29.0))
	other := testutil.SeedUser(t, s.db, "Bo")

	status, body := s.do(t, call{method: "POST", path: "/api/notifications/meeting-request", body: `{"target_user_id":"` + other.ID.String() + `"}`, as: &me.ID})
	require.Equal(t, fiber.StatusCreated, status)
	assert.Equal(t, models.NotificationMeetingRequest, body["type"])

	status, _ = s.do(t, call{method: "POST", path: "/api/blocks", body: `{"blocked_id":"` + other.ID.String() + `"}`, as: &me.ID})
	require.Equal(t, fiber.StatusCreated, status)
	status, _ = s.do(t, call{method: "POST", path: "/api/blocks", body: `{"blocked_id":"` + other.ID.String() + `"}`, as: &me.ID})
	assert.Equal(t, fiber.StatusConflict, status)
	status, _ = s.do(t, call{method: "POST", path: "/api/blocks", body: `{"blocked_id":"` + me.ID.String() + `"}`, as: &me.ID})
	assert.Equal(t, fiber.StatusConflict, status)

	status, _ = s.do(t, call{method: "POST", path: "/api/notifications/meeting-request", body: `{"target_user_id":"` + other.ID.String() + `"}`, as: &me.ID})
	assert.Equal(t, fiber.StatusForbidden, status)

	status, body = s.do(t, call{method: "GET", path: "/api/blocks", as: &me.ID})
	require.Equal(t, fiber.StatusOK, status)
	assert.Len(t, body["data"].([]any), 1)

	status, _ = s.do(t, call{method: "DELETE", path: "/api/blocks/" + other.ID.String(), as: &me.ID})
	require.Equal(t, fiber.StatusOK, status)
	status, _ = s.do(t, call{method: "DELETE", path: "/api/blocks/" + other.ID.String(), as: &me.ID})
	assert.Equal(t, fiber.StatusNotFound, status)

	s.queue.Wait()
}

func TestRevenueCatWebhook(t *testing.T) {
	s := newServer(t)
	me := testutil.SeedUser(t, s.db, "Ada")
	event := `{"api_version":"1.0","event":{"type":"INITIAL_PURCHASE","id":"evt1","app_user_id":"` + me.ID.String() + `","product_id":"roadmate_pro_monthly","expiration_at_ms":4102444800000}}`

	status, _ := s.do(t, call{method: "POST", path: "/api/webhooks/revenuecat", body: event, headers: map[string]string{"Authorization": "Bearer wrong"}})
	assert.Equal(t, fiber.StatusUnauthorized, status)

	status, _ = s.do(t, call{method: "POST", path: "/api/webhooks/revenuecat", body: event, headers: map[string]string{"Authorization": webhookAuth}})
	require.Equal(t, fiber.StatusOK, status)

	status, body := s.do(t, call{method: "GET", path: "/api/subscription/status", as: &me.ID})
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, models.TierPro, body["tier"])
}

func TestAdminSweeps(t *testing.T) {
	s := newServer(t)
	user := testutil.SeedUser(t, s.db, "Ada", testutil.At(41.0, 29.0), testutil.InDistressSince(time.Now().UTC().Add(-3*time.Hour)))

	status, _ := s.do(t, call{method: "POST", path: "/api/admin/sweeps/distress-expiry"})
	assert.Equal(t, fiber.StatusUnauthorized, status)

	status, _ = s.do(t, call{method: "POST", path: "/api/admin/sweeps/distress-expiry", as: &user.ID})
	assert.Equal(t, fiber.StatusForbidden, status)

	admin := map[string]string{"X-Admin-Token": adminToken}
	status, body := s.do(t, call{method: "GET", path: "/api/admin/sweeps", headers: admin})
	require.Equal(t, fiber.StatusOK, status)
	assert.ElementsMatch(t, []any{"distress-expiry", "activity-purge"}, body["data"])

	status, body = s.do(t, call{method: "POST", path: "/api/admin/sweeps/distress-expiry", headers: admin})
	require.Equal(t, fiber.StatusOK, status)
	assert.EqualValues(t, 1, body["affected"])

	status, _ = s.do(t, call{method: "POST", path: "/api/admin/sweeps/nope", headers: admin})
	assert.Equal(t, fiber.StatusNotFound, status)

	status, _ = s.do(t, call{method: "GET", path: "/api/admin/activities/stats", headers: admin})
	assert.Equal(t, fiber.StatusOK, status)
}
