package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ahmetcoskunkizilkaya/roadmate-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/roadmate-backend/internal/queue"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// routeSeparators are tried in order; the first one present wins.
var routeSeparators = []string{"→", "->", "➔", "»", " - ", " > "}

// ExtractDestination returns the destination part of a free-text route such
// as "Izmir → Antalya". Without a known separator the whole trimmed route is
// the destination.
func ExtractDestination(route string) string {
	trimmed := strings.TrimSpace(route)
	if trimmed == "" {
		return ""
	}
	for _, sep := range routeSeparators {
		if !strings.Contains(trimmed, sep) {
			continue
		}
		parts := strings.Split(trimmed, sep)
		if dest := strings.TrimSpace(parts[len(parts)-1]); dest != "" {
			return dest
		}
		return trimmed
	}
	return trimmed
}

// RouteService stores route descriptors and schedules the route fan-out.
type RouteService struct {
	db    *gorm.DB
	tasks queue.Client
}

func NewRouteService(db *gorm.DB, tasks queue.Client) *RouteService {
	return &RouteService{db: db, tasks: tasks}
}

// UpdateRoute saves the user's route (blank clears it) and triggers
// OnRouteChanged when the stored route actually changed to a non-blank value.
func (s *RouteService) UpdateRoute(ctx context.Context, userID uuid.UUID, route string) error {
	trimmed := strings.TrimSpace(route)
	var value interface{}
	if trimmed != "" {
		value = trimmed
	}

	var current models.User
	if err := s.db.WithContext(ctx).Select("id", "route").First(&current, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to load route: %w", err)
	}
	if current.Route != nil && *current.Route == trimmed {
		return nil
	}

	result := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Update("route", value)
	if result.Error != nil {
		return fmt.Errorf("failed to update route: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}

	return s.OnRouteChanged(ctx, userID, trimmed)
}

// OnRouteChanged enqueues the route fan-out and returns without waiting for
// it. A blank route does nothing.
func (s *RouteService) OnRouteChanged(ctx context.Context, userID uuid.UUID, route string) error {
	if strings.TrimSpace(route) == "" {
		return nil
	}
	task, err := queue.NewTask(TaskRouteChanged, RouteChangedPayload{SenderID: userID, Route: route})
	if err != nil {
		return err
	}
	if _, err := s.tasks.Enqueue(ctx, task); err != nil {
		if errors.Is(err, queue.ErrQueueClosed) {
			slog.Warn("route fan-out dropped during shutdown", "component", "fanout", "user_id", userID.String())
			return nil
		}
		return fmt.Errorf("failed to enqueue route fan-out: %w", err)
	}
	return nil
}
