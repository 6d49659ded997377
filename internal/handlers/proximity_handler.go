package handlers

import (
	"strconv"

	"github.com/ahmetcoskunkizilkaya/roadmate-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/roadmate-backend/internal/identity"
	"github.com/ahmetcoskunkizilkaya/roadmate-backend/internal/services"
	"github.com/gofiber/fiber/v2"
)

type ProximityHandler struct {
	proximity *services.ProximityService
}

func NewProximityHandler(proximity *services.ProximityService) *ProximityHandler {
	return &ProximityHandler{proximity: proximity}
}

// UpdateLocation stores the caller's GPS position.
func (h *ProximityHandler) UpdateLocation(c *fiber.Ctx) error {
	userID, err := identity.GetUserID(c)
	if err != nil {
		return unauthorized(c)
	}

	var req dto.LocationRequest
	if err := c.BodyParser(&req); err != nil || req.Latitude == nil || req.Longitude == nil {
		return respond(c, fiber.StatusBadRequest, "latitude and longitude are required")
	}

	if err := h.proximity.ReportLocation(c.UserContext(), userID, *req.Latitude, *req.Longitude); err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Location updated"})
}

// Nearby lists the closest users to ?lat=&lng=. Authentication is optional.
func (h *ProximityHandler) Nearby(c *fiber.Ctx) error {
	lat, lng, ok := queryCoordinates(c)
	if !ok {
		return respond(c, fiber.StatusBadRequest, "lat and lng query parameters are required")
	}

	list, err := h.proximity.Nearby(c.UserContext(), identity.OptionalUserID(c), lat, lng)
	if err != nil {
		return writeError(c, err)
	}

	out := make([]dto.NearbyUserResponse, 0, len(list))
	for _, n := range list {
		r := dto.NearbyUserResponse{
			ID:             n.User.ID,
			Name:           n.User.DisplayName(),
			Image:          n.User.Image,
			Status:         n.User.Status,
			Vehicle:        n.User.Vehicle,
			Latitude:       *n.User.Latitude,
			Longitude:      *n.User.Longitude,
			DistanceKm:     n.DistanceKm,
			Online:         n.Online,
			DistressActive: n.DistressActive,
		}
		if n.ShowRoute {
			r.Route = n.User.Route
		}
		out = append(out, r)
	}
	return c.JSON(fiber.Map{"data": out})
}

func (h *ProximityHandler) NearbyDistress(c *fiber.Ctx) error {
	lat, lng, ok := queryCoordinates(c)
	if !ok {
		return respond(c, fiber.StatusBadRequest, "lat and lng query parameters are required")
	}

	list, err := h.proximity.NearbyDistress(c.UserContext(), identity.OptionalUserID(c), lat, lng)
	if err != nil {
		return writeError(c, err)
	}

	out := make([]dto.NearbyDistressResponse, 0, len(list))
	for _, n := range list {
		r := dto.NearbyDistressResponse{
			ID:         n.User.ID,
			Name:       n.User.DisplayName(),
			Image:      n.User.Image,
			Vehicle:    n.User.Vehicle,
			Latitude:   *n.User.Latitude,
			Longitude:  *n.User.Longitude,
			DistanceKm: n.DistanceKm,
		}
		if n.User.DistressActivatedAt != nil {
			r.DistressActivatedAt = *n.User.DistressActivatedAt
		}
		out = append(out, r)
	}
	return c.JSON(fiber.Map{"data": out})
}

func queryCoordinates(c *fiber.Ctx) (float64, float64, bool) {
	lat, err := strconv.ParseFloat(c.Query("lat"), 64)
	if err != nil {
		return 0, 0, false
	}
	lng, err := strconv.ParseFloat(c.Query("lng"), 64)
	if err != nil {
		return 0, 0, false
	}
	return lat, lng, true
}
