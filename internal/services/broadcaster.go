package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/ahmetcoskunkizilkaya/roadmate-backend/internal/geo"
	"github.com/ahmetcoskunkizilkaya/roadmate-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/roadmate-backend/internal/queue"
	"github.com/getsentry/sentry-go"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	DistressRadiusKm = 100.0
	RouteMatchLimit  = 20
)

// ActivityRef identifies the social event a fan-out is about.
type ActivityRef struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	Date      string    `json:"date"`
	CreatorID uuid.UUID `json:"creator_id"`
}

// RouteFanout counts the recipients of one route change.
type RouteFanout struct {
	Friends int
	Matches int
}

// DedupSet holds the recipients already notified within one broadcast.
type DedupSet map[uuid.UUID]struct{}

func (d DedupSet) Add(id uuid.UUID) { d[id] = struct{}{} }

func (d DedupSet) Has(id uuid.UUID) bool {
	_, ok := d[id]
	return ok
}

func (d DedupSet) IDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(d))
	for id := range d {
		ids = append(ids, id)
	}
	return ids
}

// Broadcaster decides who hears about an event, writes their notifications
// and schedules one push per recipient group. Notifications are committed
// before any push is attempted, so a push failure never removes one.
type Broadcaster struct {
	db            *gorm.DB
	notifications *NotificationService
	blocks        *BlockService
	friends       *FriendService
	tasks         queue.Client
}

func NewBroadcaster(db *gorm.DB, notifications *NotificationService, blocks *BlockService, friends *FriendService, tasks queue.Client) *Broadcaster {
	return &Broadcaster{
		db:            db,
		notifications: notifications,
		blocks:        blocks,
		friends:       friends,
		tasks:         tasks,
	}
}

// BroadcastDistress alerts every located user with a push token within
// DistressRadiusKm of source, skipping anyone on either side of a block
// edge with source. It returns how many users were notified.
func (b *Broadcaster) BroadcastDistress(ctx context.Context, source *models.User) (int, error) {
	if !source.HasLocation() {
		return 0, ErrLocationRequired
	}
	lat, lng := *source.Latitude, *source.Longitude

	blocked, err := b.blocks.BlockedIDsOf(ctx, source.ID)
	if err != nil {
		return 0, err
	}

	box := geo.BoundingBox(lat, lng, DistressRadiusKm)
	query := b.db.WithContext(ctx).
		Select("id", "name", "latitude", "longitude", "push_token").
		Where("id <> ?", source.ID).
		Where("push_token IS NOT NULL AND push_token <> ''").
		Where("latitude BETWEEN ? AND ? AND longitude BETWEEN ? AND ?", box.MinLat, box.MaxLat, box.MinLng, box.MaxLng)
	if len(blocked) > 0 {
		query = query.Where("id NOT IN ?", blocked)
	}
	var candidates []models.User
	if err := query.Find(&candidates).Error; err != nil {
		return 0, fmt.Errorf("failed to load distress candidates: %w", err)
	}

	name := source.DisplayName()
	payload := map[string]any{
		"type":           models.NotificationDistressAlert,
		"source_user_id": source.ID.String(),
		"lat":            lat,
		"lng":            lng,
	}

	inputs := make([]NotificationInput, 0, len(candidates))
	tokens := make([]string, 0, len(candidates))
	for i := range candidates {
		c := candidates[i]
		dist := geo.DistanceKm(lat, lng, *c.Latitude, *c.Longitude)
		if dist > DistressRadiusKm {
			continue
		}
		inputs = append(inputs, NotificationInput{
			RecipientID: c.ID,
			SenderID:    &source.ID,
			Type:        models.NotificationDistressAlert,
			Title:       "🚨 SOS Alert Nearby!",
			Body:        fmt.Sprintf("%s needs roadside help %dkm away", name, int(math.Round(dist))),
			Payload:     payload,
		})
		tokens = append(tokens, *c.PushToken)
	}

	if _, err := b.notifications.CreateMany(ctx, inputs); err != nil {
		return 0, err
	}
	b.schedulePush(ctx, tokens, "🚨 SOS Alert Nearby!", name+" needs roadside help nearby!", payload)

	slog.Info("distress broadcast",
		"component", "fanout",
		"user_id", source.ID.String(),
		"notified", len(inputs),
	)
	return len(inputs), nil
}

// BroadcastRouteChange tells the sender's friends about the new route, then
// tells up to RouteMatchLimit other travellers heading to the same
// destination. Nobody is notified twice.
func (b *Broadcaster) BroadcastRouteChange(ctx context.Context, senderID uuid.UUID, route string) (RouteFanout, error) {
	route = strings.TrimSpace(route)
	if route == "" {
		return RouteFanout{}, nil
	}

	sender, err := b.loadUser(ctx, senderID)
	if err != nil {
		return RouteFanout{}, err
	}
	blocked, err := b.blocks.BlockedIDsOf(ctx, senderID)
	if err != nil {
		return RouteFanout{}, err
	}

	var res RouteFanout
	name := sender.DisplayName()
	notified := DedupSet{}

	friends, err := b.visibleFriends(ctx, senderID, blocked)
	if err != nil {
		return res, err
	}
	friendPayload := map[string]any{
		"type":      models.NotificationRouteUpdate,
		"sender_id": senderID.String(),
		"route":     route,
	}
	inputs := make([]NotificationInput, 0, len(friends))
	tokens := make([]string, 0, len(friends))
	for i := range friends {
		f := friends[i]
		notified.Add(f.ID)
		inputs = append(inputs, NotificationInput{
			RecipientID: f.ID,
			SenderID:    &senderID,
			Type:        models.NotificationRouteUpdate,
			Title:       "Route Update",
			Body:        fmt.Sprintf("%s is on the road: %s!", name, route),
			Payload:     friendPayload,
		})
		if f.HasPushToken() {
			tokens = append(tokens, *f.PushToken)
		}
	}
	if _, err := b.notifications.CreateMany(ctx, inputs); err != nil {
		return res, err
	}
	res.Friends = len(inputs)
	b.schedulePush(ctx, tokens, "Route Update", fmt.Sprintf("%s is on the road: %s!", name, route), friendPayload)

	dest := ExtractDestination(route)
	if dest == "" {
		return res, nil
	}

	exclude := append(notified.IDs(), blocked...)
	query := b.db.WithContext(ctx).
		Select("id", "name", "push_token").
		Where("id <> ?", senderID).
		Where("push_token IS NOT NULL AND push_token <> ''").
		Where(`route IS NOT NULL AND LOWER(route) LIKE ? ESCAPE '\'`, "%"+escapeLike(strings.ToLower(dest))+"%")
	if len(exclude) > 0 {
		query = query.Where("id NOT IN ?", exclude)
	}
	var matches []models.User
	if err := query.Order("last_active DESC").Limit(RouteMatchLimit).Find(&matches).Error; err != nil {
		return res, fmt.Errorf("failed to load route matches: %w", err)
	}

	matchPayload := map[string]any{
		"type":        models.NotificationRouteMatch,
		"sender_id":   senderID.String(),
		"route":       route,
		"destination": dest,
	}
	body := fmt.Sprintf("%s is also heading to %s!", name, dest)
	inputs = inputs[:0]
	tokens = tokens[:0]
	for i := range matches {
		m := matches[i]
		if notified.Has(m.ID) {
			continue
		}
		notified.Add(m.ID)
		inputs = append(inputs, NotificationInput{
			RecipientID: m.ID,
			SenderID:    &senderID,
			Type:        models.NotificationRouteMatch,
			Title:       "Route Match",
			Body:        body,
			Payload:     matchPayload,
		})
		tokens = append(tokens, *m.PushToken)
	}
	if _, err := b.notifications.CreateMany(ctx, inputs); err != nil {
		return res, err
	}
	res.Matches = len(inputs)
	b.schedulePush(ctx, tokens, "Route Match", body, matchPayload)
	return res, nil
}

// NotifyActivityCreated tells the creator's friends about a new activity.
func (b *Broadcaster) NotifyActivityCreated(ctx context.Context, creatorID uuid.UUID, activity ActivityRef) (int, error) {
	creator, err := b.loadUser(ctx, creatorID)
	if err != nil {
		return 0, err
	}
	blocked, err := b.blocks.BlockedIDsOf(ctx, creatorID)
	if err != nil {
		return 0, err
	}
	friends, err := b.visibleFriends(ctx, creatorID, blocked)
	if err != nil {
		return 0, err
	}

	title := "New Activity"
	body := fmt.Sprintf("%s created a new activity: %s", creator.DisplayName(), activity.Title)
	return b.fanOut(ctx, friends, &creatorID, models.NotificationActivityCreated, title, body, activityPayload(models.NotificationActivityCreated, activity))
}

// NotifyActivityJoined tells the activity's creator that joinerID joined.
func (b *Broadcaster) NotifyActivityJoined(ctx context.Context, joinerID uuid.UUID, activity ActivityRef) (int, error) {
	if joinerID == activity.CreatorID {
		return 0, nil
	}
	joiner, err := b.loadUser(ctx, joinerID)
	if err != nil {
		return 0, err
	}
	creator, err := b.loadUser(ctx, activity.CreatorID)
	if err != nil {
		return 0, err
	}
	blocked, err := b.blocks.BlockedBetween(ctx, joinerID, creator.ID)
	if err != nil || blocked {
		return 0, err
	}

	body := fmt.Sprintf("%s joined your activity: %s", joiner.DisplayName(), activity.Title)
	return b.fanOut(ctx, []models.User{*creator}, &joinerID, models.NotificationActivityJoined, "New Participant", body, activityPayload(models.NotificationActivityJoined, activity))
}

// NotifyActivityCancelled tells every participant except the creator that
// the activity is off.
func (b *Broadcaster) NotifyActivityCancelled(ctx context.Context, activity ActivityRef, participantIDs []uuid.UUID) (int, error) {
	ids := make([]uuid.UUID, 0, len(participantIDs))
	for _, id := range participantIDs {
		if id != activity.CreatorID {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return 0, nil
	}

	var participants []models.User
	if err := b.db.WithContext(ctx).Select("id", "name", "push_token").Where("id IN ?", ids).Find(&participants).Error; err != nil {
		return 0, fmt.Errorf("failed to load participants: %w", err)
	}

	body := fmt.Sprintf("%s has been cancelled", activity.Title)
	return b.fanOut(ctx, participants, &activity.CreatorID, models.NotificationActivityCancelled, "Activity Cancelled", body, activityPayload(models.NotificationActivityCancelled, activity))
}

// NotifyUser writes one notification and pushes it to the recipient's
// device, if any.
func (b *Broadcaster) NotifyUser(ctx context.Context, in NotificationInput) (*models.Notification, error) {
	recipient, err := b.loadUser(ctx, in.RecipientID)
	if err != nil {
		return nil, err
	}
	n, err := b.notifications.Create(ctx, in)
	if err != nil {
		return nil, err
	}
	if recipient.HasPushToken() {
		b.schedulePush(ctx, []string{*recipient.PushToken}, in.Title, in.Body, in.Payload)
	}
	return n, nil
}

// SendMeetingRequest asks targetID to meet up at the sender's last
// reported position.
func (b *Broadcaster) SendMeetingRequest(ctx context.Context, senderID, targetID uuid.UUID) (*models.Notification, error) {
	if senderID == targetID {
		return nil, ErrSelfTarget
	}
	sender, err := b.loadUser(ctx, senderID)
	if err != nil {
		return nil, err
	}
	if !sender.HasLocation() {
		return nil, ErrLocationRequired
	}
	blocked, err := b.blocks.BlockedBetween(ctx, senderID, targetID)
	if err != nil {
		return nil, err
	}
	if blocked {
		return nil, ErrBlocked
	}

	return b.NotifyUser(ctx, NotificationInput{
		RecipientID: targetID,
		SenderID:    &senderID,
		Type:        models.NotificationMeetingRequest,
		Title:       "Meeting Request",
		Body:        fmt.Sprintf("%s wants to meet up!", sender.DisplayName()),
		Payload: map[string]any{
			"type":       models.NotificationMeetingRequest,
			"sender_id":  senderID.String(),
			"sender_lat": *sender.Latitude,
			"sender_lng": *sender.Longitude,
		},
	})
}

func (b *Broadcaster) fanOut(ctx context.Context, recipients []models.User, senderID *uuid.UUID, typ, title, body string, payload map[string]any) (int, error) {
	inputs := make([]NotificationInput, 0, len(recipients))
	tokens := make([]string, 0, len(recipients))
	for i := range recipients {
		r := recipients[i]
		inputs = append(inputs, NotificationInput{
			RecipientID: r.ID,
			SenderID:    senderID,
			Type:        typ,
			Title:       title,
			Body:        body,
			Payload:     payload,
		})
		if r.HasPushToken() {
			tokens = append(tokens, *r.PushToken)
		}
	}
	if _, err := b.notifications.CreateMany(ctx, inputs); err != nil {
		return 0, err
	}
	b.schedulePush(ctx, tokens, title, body, payload)
	return len(inputs), nil
}

// visibleFriends loads the accepted friends of userID minus blocked ids.
func (b *Broadcaster) visibleFriends(ctx context.Context, userID uuid.UUID, blocked []uuid.UUID) ([]models.User, error) {
	friendIDs, err := b.friends.AcceptedFriendsOf(ctx, userID)
	if err != nil {
		return nil, err
	}
	skip := make(map[uuid.UUID]struct{}, len(blocked))
	for _, id := range blocked {
		skip[id] = struct{}{}
	}
	ids := make([]uuid.UUID, 0, len(friendIDs))
	for _, id := range friendIDs {
		if _, ok := skip[id]; !ok {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return nil, nil
	}

	var friends []models.User
	if err := b.db.WithContext(ctx).Select("id", "name", "push_token").Where("id IN ?", ids).Find(&friends).Error; err != nil {
		return nil, fmt.Errorf("failed to load friends: %w", err)
	}
	return friends, nil
}

func (b *Broadcaster) loadUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var u models.User
	if err := b.db.WithContext(ctx).First(&u, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

// schedulePush hands tokens to the push:dispatch task. Failing to enqueue
// is logged and reported, never returned: the notifications are already
// stored.
func (b *Broadcaster) schedulePush(ctx context.Context, tokens []string, title, body string, data map[string]any) {
	if len(tokens) == 0 {
		return
	}
	task, err := queue.NewTask(TaskPushDispatch, PushDispatchPayload{Tokens: tokens, Title: title, Body: body, Data: data})
	if err == nil {
		_, err = b.tasks.Enqueue(ctx, task)
	}
	if err != nil {
		slog.Error("failed to schedule push", "component", "fanout", "tokens", len(tokens), "error", err)
		sentry.CaptureException(fmt.Errorf("schedule push: %w", err))
	}
}

func activityPayload(typ string, a ActivityRef) map[string]any {
	return map[string]any{
		"type":        typ,
		"activity_id": a.ID.String(),
		"title":       a.Title,
		"date":        a.Date,
	}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
