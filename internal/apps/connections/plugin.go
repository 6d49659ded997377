package connections

import (
	"github.com/ahmetcoskunkizilkaya/roadmate-backend/internal/apps"
	"github.com/gofiber/fiber/v2"
)

// ConnectionsPlugin serves the friend graph. The Connection model itself
// is core because visibility and fan-out read it.
type ConnectionsPlugin struct {
	service *ConnectionService
}

func New() *ConnectionsPlugin {
	return &ConnectionsPlugin{}
}

func (p *ConnectionsPlugin) ID() string { return "connections" }

func (p *ConnectionsPlugin) Models() []interface{} { return nil }

func (p *ConnectionsPlugin) serviceFor(deps apps.Deps) *ConnectionService {
	if p.service == nil {
		p.service = NewConnectionService(deps.DB, deps.Broadcaster, deps.Blocks, deps.Friends)
	}
	return p.service
}

func (p *ConnectionsPlugin) RegisterRoutes(router fiber.Router, deps apps.Deps) {
	handler := NewConnectionHandler(p.serviceFor(deps))

	router.Post("/connections", handler.SendRequest)
	router.Get("/connections", handler.ListFriends)
	router.Get("/connections/pending", handler.ListPending)
	router.Put("/connections/:id/accept", handler.Accept)
	router.Delete("/connections/:userId", handler.Remove)
}

func (p *ConnectionsPlugin) RegisterAdminRoutes(router fiber.Router, deps apps.Deps) {
	handler := NewConnectionHandler(p.serviceFor(deps))
	router.Get("/connections/stats", handler.Stats)
}

var _ apps.AdminPlugin = (*ConnectionsPlugin)(nil)
