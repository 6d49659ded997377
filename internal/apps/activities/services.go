package activities

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ahmetcoskunkizilkaya/roadmate-backend/internal/geo"
	"github.com/ahmetcoskunkizilkaya/roadmate-backend/internal/queue"
	"github.com/ahmetcoskunkizilkaya/roadmate-backend/internal/services"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrActivityNotFound    = errors.New("activity not found")
	ErrTitleRequired       = errors.New("title is required")
	ErrInvalidActivityDate = errors.New("date must be formatted as YYYY-MM-DD")
	ErrInvalidActivityTime = errors.New("time must be formatted as HH:MM")
	ErrActivityCancelled   = errors.New("activity is cancelled")
	ErrAlreadyJoined       = errors.New("already joined this activity")
	ErrNotParticipant      = errors.New("not a participant of this activity")
	ErrNotCreator          = errors.New("only the creator can cancel this activity")
	ErrCreatorCannotLeave  = errors.New("the creator cannot leave; cancel the activity instead")
)

// StaleAfter is how long past its date an activity is kept.
const StaleAfter = 7 * 24 * time.Hour

type ActivityService struct {
	db      *gorm.DB
	tasks   queue.Client
	blocks  *services.BlockService
	friends *services.FriendService
	now     func() time.Time
}

func NewActivityService(db *gorm.DB, tasks queue.Client, blocks *services.BlockService, friends *services.FriendService) *ActivityService {
	return &ActivityService{db: db, tasks: tasks, blocks: blocks, friends: friends, now: time.Now}
}

// Create stores a new activity with its creator as first participant and
// schedules the friends fan-out.
func (s *ActivityService) Create(ctx context.Context, creatorID uuid.UUID, req CreateActivityRequest) (*Activity, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, ErrTitleRequired
	}
	if _, err := time.Parse(DateLayout, req.Date); err != nil {
		return nil, ErrInvalidActivityDate
	}
	if req.Time != "" {
		if _, err := time.Parse(TimeLayout, req.Time); err != nil {
			return nil, ErrInvalidActivityTime
		}
	}
	if req.Latitude != nil && req.Longitude != nil && !geo.ValidCoordinates(*req.Latitude, *req.Longitude) {
		return nil, services.ErrInvalidCoordinates
	}

	activity := Activity{
		CreatorID:   creatorID,
		Title:       title,
		Description: req.Description,
		Type:        req.Type,
		Date:        req.Date,
		Time:        req.Time,
		Location:    req.Location,
		Latitude:    req.Latitude,
		Longitude:   req.Longitude,
		Status:      StatusActive,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&activity).Error; err != nil {
			return err
		}
		return tx.Create(&ActivityParticipant{ActivityID: activity.ID, UserID: creatorID, JoinedAt: s.now().UTC()}).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create activity: %w", err)
	}

	s.enqueue(ctx, services.ActivityEventPayload{
		Event:    services.ActivityCreated,
		ActorID:  creatorID,
		Activity: ref(&activity),
	})
	return &activity, nil
}

// ListForUser returns upcoming active activities created by the user or
// by their friends, soonest first.
func (s *ActivityService) ListForUser(ctx context.Context, userID uuid.UUID) ([]Activity, error) {
	friendIDs, err := s.friends.AcceptedFriendsOf(ctx, userID)
	if err != nil {
		return nil, err
	}
	creators := append([]uuid.UUID{userID}, friendIDs...)
	today := s.now().UTC().Format(DateLayout)

	var list []Activity
	err = s.db.WithContext(ctx).
		Preload("Participants").
		Where("creator_id IN ? AND status = ? AND date >= ?", creators, StatusActive, today).
		Order("date ASC").Order("time ASC").
		Find(&list).Error
	return list, err
}

func (s *ActivityService) Get(ctx context.Context, id uuid.UUID) (*Activity, error) {
	var activity Activity
	if err := s.db.WithContext(ctx).Preload("Participants").First(&activity, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrActivityNotFound
		}
		return nil, err
	}
	return &activity, nil
}

func (s *ActivityService) Join(ctx context.Context, userID, activityID uuid.UUID) error {
	activity, err := s.Get(ctx, activityID)
	if err != nil {
		return err
	}
	if activity.Status == StatusCancelled {
		return ErrActivityCancelled
	}
	blocked, err := s.blocks.BlockedBetween(ctx, userID, activity.CreatorID)
	if err != nil {
		return err
	}
	if blocked {
		return services.ErrBlocked
	}
	for _, p := range activity.Participants {
		if p.UserID == userID {
			return ErrAlreadyJoined
		}
	}

	if err := s.db.WithContext(ctx).Create(&ActivityParticipant{
		ActivityID: activityID,
		UserID:     userID,
		JoinedAt:   s.now().UTC(),
	}).Error; err != nil {
		return fmt.Errorf("failed to join activity: %w", err)
	}

	s.enqueue(ctx, services.ActivityEventPayload{
		Event:    services.ActivityJoined,
		ActorID:  userID,
		Activity: ref(activity),
	})
	return nil
}

func (s *ActivityService) Leave(ctx context.Context, userID, activityID uuid.UUID) error {
	activity, err := s.Get(ctx, activityID)
	if err != nil {
		return err
	}
	if activity.CreatorID == userID {
		return ErrCreatorCannotLeave
	}
	result := s.db.WithContext(ctx).
		Where("activity_id = ? AND user_id = ?", activityID, userID).
		Delete(&ActivityParticipant{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotParticipant
	}
	return nil
}

// Cancel marks the activity cancelled and tells the other participants.
func (s *ActivityService) Cancel(ctx context.Context, userID, activityID uuid.UUID) error {
	activity, err := s.Get(ctx, activityID)
	if err != nil {
		return err
	}
	if activity.CreatorID != userID {
		return ErrNotCreator
	}
	if activity.Status == StatusCancelled {
		return ErrActivityCancelled
	}

	if err := s.db.WithContext(ctx).Model(&Activity{}).
		Where("id = ?", activityID).
		Update("status", StatusCancelled).Error; err != nil {
		return fmt.Errorf("failed to cancel activity: %w", err)
	}

	participantIDs := make([]uuid.UUID, 0, len(activity.Participants))
	for _, p := range activity.Participants {
		participantIDs = append(participantIDs, p.UserID)
	}
	s.enqueue(ctx, services.ActivityEventPayload{
		Event:          services.ActivityCancelled,
		ActorID:        userID,
		Activity:       ref(activity),
		ParticipantIDs: participantIDs,
	})
	return nil
}

// PurgeStale deletes activities dated more than StaleAfter ago, removing
// their participant rows first. It returns the number of activities
// deleted.
func (s *ActivityService) PurgeStale(ctx context.Context) (int64, error) {
	cutoff := s.now().UTC().Add(-StaleAfter).Format(DateLayout)

	var deleted int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		stale := tx.Model(&Activity{}).Select("id").Where("date < ?", cutoff)
		if err := tx.Where("activity_id IN (?)", stale).Delete(&ActivityParticipant{}).Error; err != nil {
			return fmt.Errorf("failed to purge participants: %w", err)
		}
		result := tx.Where("date < ?", cutoff).Delete(&Activity{})
		if result.Error != nil {
			return fmt.Errorf("failed to purge activities: %w", result.Error)
		}
		deleted = result.RowsAffected
		return nil
	})
	return deleted, err
}

// Stats summarizes activity volume for the admin dashboard.
func (s *ActivityService) Stats(ctx context.Context) (*AdminStatsResponse, error) {
	var stats AdminStatsResponse
	db := s.db.WithContext(ctx)
	if err := db.Model(&Activity{}).Where("status = ?", StatusActive).Count(&stats.Active).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&Activity{}).Where("status = ?", StatusCancelled).Count(&stats.Cancelled).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&ActivityParticipant{}).Count(&stats.Participants).Error; err != nil {
		return nil, err
	}
	return &stats, nil
}

func (s *ActivityService) enqueue(ctx context.Context, p services.ActivityEventPayload) {
	if err := services.EnqueueActivityEvent(ctx, s.tasks, p); err != nil {
		slog.Error("failed to enqueue activity fan-out",
			"component", "activities",
			"event", p.Event,
			"activity_id", p.Activity.ID.String(),
			"error", err,
		)
	}
}

func ref(a *Activity) services.ActivityRef {
	return services.ActivityRef{ID: a.ID, Title: a.Title, Date: a.Date, CreatorID: a.CreatorID}
}
