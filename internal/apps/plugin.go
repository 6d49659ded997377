package apps

import (
	"github.com/ahmetcoskunkizilkaya/roadmate-backend/internal/config"
	"github.com/ahmetcoskunkizilkaya/roadmate-backend/internal/queue"
	"github.com/ahmetcoskunkizilkaya/roadmate-backend/internal/services"
	"github.com/ahmetcoskunkizilkaya/roadmate-backend/internal/sweeper"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// Deps is what the core hands to every plugin.
type Deps struct {
	DB          *gorm.DB
	Config      *config.Config
	Tasks       queue.Client
	Broadcaster *services.Broadcaster
	Blocks      *services.BlockService
	Friends     *services.FriendService
}

// Plugin defines the interface every feature module must implement.
type Plugin interface {
	// ID returns the unique plugin identifier.
	ID() string

	// Models returns the list of GORM model pointers for AutoMigrate.
	Models() []interface{}

	// RegisterRoutes mounts plugin routes on the given Fiber group.
	// The group is already prefixed with /api and has JWT middleware applied.
	RegisterRoutes(router fiber.Router, deps Deps)
}

// AdminPlugin extends Plugin with admin-specific route registration.
type AdminPlugin interface {
	Plugin

	// RegisterAdminRoutes mounts admin-only routes on the given Fiber group.
	// The group has both JWT and Admin middleware applied.
	RegisterAdminRoutes(router fiber.Router, deps Deps)
}

// SweepPlugin extends Plugin with recurring maintenance jobs that the
// lifecycle sweeper runs alongside the core ones.
type SweepPlugin interface {
	Plugin

	SweepJobs(deps Deps) []sweeper.Job
}
