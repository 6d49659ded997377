package routes

import (
	"time"

	"github.com/ahmetcoskunkizilkaya/roadmate-backend/internal/apps"
	"github.com/ahmetcoskunkizilkaya/roadmate-backend/internal/config"
	"github.com/ahmetcoskunkizilkaya/roadmate-backend/internal/handlers"
	"github.com/ahmetcoskunkizilkaya/roadmate-backend/internal/identity"
	"github.com/ahmetcoskunkizilkaya/roadmate-backend/internal/middleware"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"gorm.io/gorm"
)

// Handlers bundles the core HTTP handlers mounted by Setup.
type Handlers struct {
	Health        *handlers.HealthHandler
	Proximity     *handlers.ProximityHandler
	Distress      *handlers.DistressHandler
	Users         *handlers.UserHandler
	Notifications *handlers.NotificationHandler
	Blocks        *handlers.BlockHandler
	Webhooks      *handlers.WebhookHandler
	Admin         *handlers.AdminHandler
}

func Setup(
	app *fiber.App,
	cfg *config.Config,
	db *gorm.DB,
	h Handlers,
	plugins []apps.Plugin,
	deps apps.Deps,
) {
	api := app.Group("/api")

	// General API rate limiter: 60 req/min per IP
	api.Use(limiter.New(limiter.Config{
		Max:               60,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	}))

	api.Get("/health", h.Health.Check)

	// Proximity reads work for anonymous callers too
	api.Get("/nearby", middleware.OptionalJWT(cfg), h.Proximity.Nearby)
	api.Get("/distress/nearby", middleware.OptionalJWT(cfg), h.Proximity.NearbyDistress)

	// Webhooks: shared secret in Authorization (no JWT)
	webhooks := api.Group("/webhooks")
	webhooks.Post("/revenuecat", h.Webhooks.HandleRevenueCat)

	// Admin (admin token, or JWT of an admin user). Mounted before the
	// protected group so the token alone is enough.
	admin := api.Group("/admin", middleware.OptionalJWT(cfg), middleware.AdminRequired(db, cfg))
	admin.Get("/sweeps", h.Admin.ListSweeps)
	admin.Post("/sweeps/:job", h.Admin.RunSweep)
	for _, p := range plugins {
		if ap, ok := p.(apps.AdminPlugin); ok {
			ap.RegisterAdminRoutes(admin, deps)
		}
	}

	protected := api.Group("", middleware.JWTProtected(cfg))
	protected.Put("/location", h.Proximity.UpdateLocation)

	// Distress is rate limited per user: 5 req/min (stricter)
	distress := protected.Group("/distress")
	distress.Use(limiter.New(limiter.Config{
		Max:               5,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      userKey,
	}))
	distress.Post("/activate", h.Distress.Activate)
	distress.Post("/deactivate", h.Distress.Deactivate)

	protected.Get("/users/me", h.Users.Me)
	protected.Put("/users/me/route", h.Users.UpdateRoute)
	protected.Put("/users/me/push-token", h.Users.UpdatePushToken)

	protected.Get("/notifications", h.Notifications.List)
	protected.Get("/notifications/unread-count", h.Notifications.UnreadCount)
	protected.Put("/notifications/read-all", h.Notifications.MarkAllRead)
	protected.Put("/notifications/:id/read", h.Notifications.MarkRead)
	protected.Post("/notifications/meeting-request", h.Notifications.MeetingRequest)

	protected.Post("/blocks", h.Blocks.BlockUser)
	protected.Delete("/blocks/:id", h.Blocks.UnblockUser)
	protected.Get("/blocks", h.Blocks.ListBlocks)

	protected.Get("/subscription/status", h.Webhooks.SubscriptionStatus)

	for _, p := range plugins {
		p.RegisterRoutes(protected, deps)
	}
}

func userKey(c *fiber.Ctx) string {
	if id := identity.OptionalUserID(c); id != nil {
		return id.String()
	}
	return c.IP()
}
