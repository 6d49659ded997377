package dto

import (
	"time"

	"github.com/google/uuid"
)

type LocationRequest struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

// NearbyUserResponse is one entry of the nearby list. Route is omitted unless
// the observer's tier allows it.
type NearbyUserResponse struct {
	ID             uuid.UUID `json:"id"`
	Name           string    `json:"name"`
	Image          string    `json:"image"`
	Status         string    `json:"status"`
	Vehicle        string    `json:"vehicle"`
	Latitude       float64   `json:"latitude"`
	Longitude      float64   `json:"longitude"`
	DistanceKm     float64   `json:"distance_km"`
	Online         bool      `json:"online"`
	DistressActive bool      `json:"distress_active"`
	Route          *string   `json:"route,omitempty"`
}

type NearbyDistressResponse struct {
	ID                  uuid.UUID `json:"id"`
	Name                string    `json:"name"`
	Image               string    `json:"image"`
	Vehicle             string    `json:"vehicle"`
	Latitude            float64   `json:"latitude"`
	Longitude           float64   `json:"longitude"`
	DistanceKm          float64   `json:"distance_km"`
	DistressActivatedAt time.Time `json:"distress_activated_at"`
}

type DistressActivateResponse struct {
	Message       string `json:"message"`
	NotifiedCount int    `json:"notified_count"`
}

type RouteRequest struct {
	Route string `json:"route"`
}

type PushTokenRequest struct {
	Token string `json:"token"`
}
