package services

import (
	"context"
	"math"

	"github.com/ahmetcoskunkizilkaya/roadmate-backend/internal/models"
	"github.com/google/uuid"
)

// FreeTierMaxDistanceKm caps how far a free-tier observer can see.
const FreeTierMaxDistanceKm = 50.0

// Visibility is what an observer may see of one subject.
type Visibility struct {
	Visible       bool
	ShowRoute     bool
	MaxDistanceKm float64
}

// Evaluate applies the visibility rules in order: self is hidden, blocked
// pairs are hidden, otherwise the observer's tier decides route exposure and
// distance cap.
func Evaluate(observerID, subjectID uuid.UUID, observerTier string, blocked bool) Visibility {
	if subjectID == observerID || blocked {
		return Visibility{}
	}
	if observerTier == models.TierPro {
		return Visibility{Visible: true, ShowRoute: true, MaxDistanceKm: math.Inf(1)}
	}
	return Visibility{Visible: true, MaxDistanceKm: FreeTierMaxDistanceKm}
}

// BlockLookup is the block adjacency the policy reads.
type BlockLookup interface {
	BlockedBetween(ctx context.Context, a, b uuid.UUID) (bool, error)
	BlockedIDsOf(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
}

// VisibilityPolicy decides what one user may see of another.
type VisibilityPolicy struct {
	blocks BlockLookup
}

// NewVisibilityPolicy reads block edges through blocks.
func NewVisibilityPolicy(blocks BlockLookup) *VisibilityPolicy {
	return &VisibilityPolicy{blocks: blocks}
}

// IsVisible evaluates a single pair with one block lookup.
func (p *VisibilityPolicy) IsVisible(ctx context.Context, observerID, subjectID uuid.UUID, observerTier string) (Visibility, error) {
	if observerID == subjectID {
		return Visibility{}, nil
	}
	blocked, err := p.blocks.BlockedBetween(ctx, observerID, subjectID)
	if err != nil {
		return Visibility{}, err
	}
	return Evaluate(observerID, subjectID, observerTier, blocked), nil
}

// ObserverView is the policy bound to one observer, with that observer's
// block set loaded once so a whole result list can be filtered without a
// lookup per row.
type ObserverView struct {
	observerID uuid.UUID
	tier       string
	blocked    map[uuid.UUID]struct{}
}

// ForObserver loads the observer's block set for batch evaluation.
func (p *VisibilityPolicy) ForObserver(ctx context.Context, observerID uuid.UUID, observerTier string) (*ObserverView, error) {
	ids, err := p.blocks.BlockedIDsOf(ctx, observerID)
	if err != nil {
		return nil, err
	}
	blocked := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		blocked[id] = struct{}{}
	}
	return &ObserverView{observerID: observerID, tier: observerTier, blocked: blocked}, nil
}

// Evaluate applies the visibility rules to subjectID for the bound observer.
func (v *ObserverView) Evaluate(subjectID uuid.UUID) Visibility {
	_, blocked := v.blocked[subjectID]
	return Evaluate(v.observerID, subjectID, v.tier, blocked)
}

// IsBlocked reports whether a block exists between the observer and subjectID
// in either direction.
func (v *ObserverView) IsBlocked(subjectID uuid.UUID) bool {
	_, ok := v.blocked[subjectID]
	return ok
}
