package activities

import (
	"github.com/ahmetcoskunkizilkaya/roadmate-backend/internal/apps"
	"github.com/ahmetcoskunkizilkaya/roadmate-backend/internal/sweeper"
	"github.com/gofiber/fiber/v2"
)

type ActivitiesPlugin struct {
	service *ActivityService
}

func New() *ActivitiesPlugin {
	return &ActivitiesPlugin{}
}

func (p *ActivitiesPlugin) ID() string { return "activities" }

func (p *ActivitiesPlugin) Models() []interface{} {
	return []interface{}{
		&Activity{},
		&ActivityParticipant{},
	}
}

func (p *ActivitiesPlugin) serviceFor(deps apps.Deps) *ActivityService {
	if p.service == nil {
		p.service = NewActivityService(deps.DB, deps.Tasks, deps.Blocks, deps.Friends)
	}
	return p.service
}

func (p *ActivitiesPlugin) RegisterRoutes(router fiber.Router, deps apps.Deps) {
	handler := NewActivityHandler(p.serviceFor(deps))

	router.Post("/activities", handler.Create)
	router.Get("/activities", handler.List)
	router.Get("/activities/:id", handler.Get)
	router.Post("/activities/:id/join", handler.Join)
	router.Delete("/activities/:id/join", handler.Leave)
	router.Post("/activities/:id/cancel", handler.Cancel)
}

func (p *ActivitiesPlugin) RegisterAdminRoutes(router fiber.Router, deps apps.Deps) {
	handler := NewActivityHandler(p.serviceFor(deps))
	router.Get("/activities/stats", handler.Stats)
}

func (p *ActivitiesPlugin) SweepJobs(deps apps.Deps) []sweeper.Job {
	return []sweeper.Job{{
		Name:     "activity-purge",
		Interval: deps.Config.ActivitySweepInterval,
		Run:      p.serviceFor(deps).PurgeStale,
	}}
}

var (
	_ apps.AdminPlugin = (*ActivitiesPlugin)(nil)
	_ apps.SweepPlugin = (*ActivitiesPlugin)(nil)
)
