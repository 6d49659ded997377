package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/ahmetcoskunkizilkaya/roadmate-backend/internal/push"
	"github.com/ahmetcoskunkizilkaya/roadmate-backend/internal/queue"
	"github.com/google/uuid"
)

// Task types for detached fan-out work.
const (
	TaskRouteChanged  = "fanout:route_changed"
	TaskActivityEvent = "fanout:activity"
	TaskPushDispatch  = "push:dispatch"
)

type RouteChangedPayload struct {
	SenderID uuid.UUID `json:"sender_id"`
	Route    string    `json:"route"`
}

// Activity event kinds carried by ActivityEventPayload.
const (
	ActivityCreated   = "created"
	ActivityJoined    = "joined"
	ActivityCancelled = "cancelled"
)

type ActivityEventPayload struct {
	Event          string      `json:"event"`
	ActorID        uuid.UUID   `json:"actor_id"`
	Activity       ActivityRef `json:"activity"`
	ParticipantIDs []uuid.UUID `json:"participant_ids,omitempty"`
}

type PushDispatchPayload struct {
	Tokens []string       `json:"tokens"`
	Title  string         `json:"title"`
	Body   string         `json:"body"`
	Data   map[string]any `json:"data,omitempty"`
}

// RegisterTasks binds the fan-out and push handlers to srv.
func RegisterTasks(srv queue.Server, b *Broadcaster, dispatcher push.Dispatcher) {
	srv.Register(TaskRouteChanged, func(ctx context.Context, t queue.Task) error {
		var p RouteChangedPayload
		if err := json.Unmarshal(t.Payload, &p); err != nil {
			return fmt.Errorf("decode %s: %w", t.Type, err)
		}
		res, err := b.BroadcastRouteChange(ctx, p.SenderID, p.Route)
		if err != nil {
			return err
		}
		slog.Info("route fan-out completed",
			"component", "fanout",
			"user_id", p.SenderID.String(),
			"friends", res.Friends,
			"matches", res.Matches,
		)
		return nil
	})

	srv.Register(TaskActivityEvent, func(ctx context.Context, t queue.Task) error {
		var p ActivityEventPayload
		if err := json.Unmarshal(t.Payload, &p); err != nil {
			return fmt.Errorf("decode %s: %w", t.Type, err)
		}
		switch p.Event {
		case ActivityCreated:
			_, err := b.NotifyActivityCreated(ctx, p.ActorID, p.Activity)
			return err
		case ActivityJoined:
			_, err := b.NotifyActivityJoined(ctx, p.ActorID, p.Activity)
			return err
		case ActivityCancelled:
			_, err := b.NotifyActivityCancelled(ctx, p.Activity, p.ParticipantIDs)
			return err
		default:
			return fmt.Errorf("unknown activity event %q", p.Event)
		}
	})

	srv.Register(TaskPushDispatch, func(ctx context.Context, t queue.Task) error {
		var p PushDispatchPayload
		if err := json.Unmarshal(t.Payload, &p); err != nil {
			return fmt.Errorf("decode %s: %w", t.Type, err)
		}
		dispatcher.Dispatch(ctx, p.Tokens, push.Notification{Title: p.Title, Body: p.Body, Data: p.Data})
		return nil
	})
}

// EnqueueActivityEvent schedules a social-event fan-out.
func EnqueueActivityEvent(ctx context.Context, tasks queue.Client, p ActivityEventPayload) error {
	task, err := queue.NewTask(TaskActivityEvent, p)
	if err != nil {
		return err
	}
	_, err = tasks.Enqueue(ctx, task)
	return err
}
