package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/ahmetcoskunkizilkaya/roadmate-backend/internal/geo"
	"github.com/ahmetcoskunkizilkaya/roadmate-backend/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	// NearbyLimit bounds the candidate pool before policy filtering.
	NearbyLimit  = 20
	OnlineWindow = 5 * time.Minute
	DistressTTL  = 2 * time.Hour
)

// NearbyUser is one ranked proximity result.
type NearbyUser struct {
	User           models.User
	DistanceKm     float64
	Online         bool
	DistressActive bool
	ShowRoute      bool
}

type ProximityService struct {
	db     *gorm.DB
	policy *VisibilityPolicy
	now    func() time.Time
}

func NewProximityService(db *gorm.DB, policy *VisibilityPolicy) *ProximityService {
	return &ProximityService{db: db, policy: policy, now: time.Now}
}

// ReportLocation stores the caller's position and refreshes last_active.
// It never triggers a broadcast.
func (s *ProximityService) ReportLocation(ctx context.Context, userID uuid.UUID, lat, lng float64) error {
	if !geo.ValidCoordinates(lat, lng) {
		return ErrInvalidCoordinates
	}
	result := s.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", userID).
		Updates(map[string]interface{}{
			"latitude":    lat,
			"longitude":   lng,
			"last_active": s.now().UTC(),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update location: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

// Nearby returns the NearbyLimit closest located users to (lat, lng),
// filtered by the observer's visibility. A nil or unknown observer is
// treated as anonymous: no self, block or tier filtering is applied and
// routes stay hidden.
func (s *ProximityService) Nearby(ctx context.Context, observerID *uuid.UUID, lat, lng float64) ([]NearbyUser, error) {
	if !geo.ValidCoordinates(lat, lng) {
		return nil, ErrInvalidCoordinates
	}

	var users []models.User
	if err := s.db.WithContext(ctx).
		Where("latitude IS NOT NULL AND longitude IS NOT NULL").
		Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to load located users: %w", err)
	}

	now := s.now()
	candidates := make([]NearbyUser, 0, len(users))
	for i := range users {
		u := users[i]
		candidates = append(candidates, NearbyUser{
			User:           u,
			DistanceKm:     geo.DistanceKm(lat, lng, *u.Latitude, *u.Longitude),
			Online:         now.Sub(u.LastActive) < OnlineWindow,
			DistressActive: u.DistressActive,
		})
	}
	sortByDistance(candidates)
	if len(candidates) > NearbyLimit {
		candidates = candidates[:NearbyLimit]
	}

	view, err := s.observerView(ctx, observerID)
	if err != nil {
		return nil, err
	}
	if view == nil {
		return candidates, nil
	}

	results := make([]NearbyUser, 0, len(candidates))
	for _, c := range candidates {
		vis := view.Evaluate(c.User.ID)
		if !vis.Visible || c.DistanceKm > vis.MaxDistanceKm {
			continue
		}
		c.ShowRoute = vis.ShowRoute
		results = append(results, c)
	}
	return results, nil
}

// NearbyDistress lists users whose distress signal is active and younger
// than DistressTTL, nearest first. A resolved observer never sees users on
// the other side of a block edge.
func (s *ProximityService) NearbyDistress(ctx context.Context, observerID *uuid.UUID, lat, lng float64) ([]NearbyUser, error) {
	if !geo.ValidCoordinates(lat, lng) {
		return nil, ErrInvalidCoordinates
	}

	cutoff := s.now().UTC().Add(-DistressTTL)
	var users []models.User
	if err := s.db.WithContext(ctx).
		Where("distress_active = ? AND distress_activated_at > ?", true, cutoff).
		Where("latitude IS NOT NULL AND longitude IS NOT NULL").
		Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to load distress signals: %w", err)
	}

	view, err := s.observerView(ctx, observerID)
	if err != nil {
		return nil, err
	}

	results := make([]NearbyUser, 0, len(users))
	for i := range users {
		u := users[i]
		if view != nil && (u.ID == view.observerID || view.IsBlocked(u.ID)) {
			continue
		}
		results = append(results, NearbyUser{
			User:           u,
			DistanceKm:     geo.DistanceKm(lat, lng, *u.Latitude, *u.Longitude),
			Online:         s.now().Sub(u.LastActive) < OnlineWindow,
			DistressActive: true,
		})
	}
	sortByDistance(results)
	return results, nil
}

// observerView returns nil for anonymous callers.
func (s *ProximityService) observerView(ctx context.Context, observerID *uuid.UUID) (*ObserverView, error) {
	if observerID == nil {
		return nil, nil
	}
	var observer models.User
	err := s.db.WithContext(ctx).Select("id", "subscription_tier").First(&observer, "id = ?", *observerID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load observer: %w", err)
	}
	return s.policy.ForObserver(ctx, observer.ID, observer.SubscriptionTier)
}

// sortByDistance orders ascending by distance, ties by lower user id.
func sortByDistance(list []NearbyUser) {
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].DistanceKm != list[j].DistanceKm {
			return list[i].DistanceKm < list[j].DistanceKm
		}
		return bytes.Compare(list[i].User.ID[:], list[j].User.ID[:]) < 0
	})
}
