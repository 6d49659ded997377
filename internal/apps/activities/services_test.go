package activities

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/ahmetcoskunkizilkaya/roadmate-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/roadmate-backend/internal/push"
	"github.com/ahmetcoskunkizilkaya/roadmate-backend/internal/queue"
	"github.com/ahmetcoskunkizilkaya/roadmate-backend/internal/services"
	"github.com/ahmetcoskunkizilkaya/roadmate-backend/internal/testutil"
)

type nopDispatcher struct{}

func (nopDispatcher) Dispatch(_ context.Context, tokens []string, _ push.Notification) push.Result {
	return push.Result{Tokens: len(tokens)}
}

type fixture struct {
	db      *gorm.DB
	queue   *queue.InProcess
	service *ActivityService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewDB(t, New().Models()...)
	q := queue.NewInProcess(2, 5*time.Second)
	t.Cleanup(func() { _ = q.Close() })

	blocks := services.NewBlockService(db)
	friends := services.NewFriendService(db)
	notifications := services.NewNotificationService(db)
	broadcaster := services.NewBroadcaster(db, notifications, blocks, friends, q)
	services.RegisterTasks(q, broadcaster, nopDispatcher{})

	return &fixture{db: db, queue: q, service: NewActivityService(db, q, blocks, friends)}
}

func (f *fixture) notificationsFor(t *testing.T, userID uuid.UUID) []models.Notification {
	t.Helper()
	var list []models.Notification
	require.NoError(t, f.db.Where("user_id = ?", userID).Find(&list).Error)
	return list
}

func tomorrow() string {
	return time.Now().UTC().Add(24 * time.Hour).Format(DateLayout)
}

func TestCreate_NotifiesFriendsAndAddsCreator(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	creator := testutil.SeedUser(t, f.db, "Ada")
	friend := testutil.SeedUser(t, f.db, "Bo")
	blockedFriend := testutil.SeedUser(t, f.db, "Cy")
	stranger := testutil.SeedUser(t, f.db, "Di")
	testutil.SeedFriends(t, f.db, creator.ID, friend.ID)
	testutil.SeedFriends(t, f.db, blockedFriend.ID, creator.ID)
	testutil.SeedBlock(t, f.db, blockedFriend.ID, creator.ID)

	activity, err := f.service.Create(ctx, creator.ID, CreateActivityRequest{Title: " Campfire ", Date: tomorrow(), Time: "19:30"})
	require.NoError(t, err)
	f.queue.Wait()

	assert.Equal(t, "Campfire", activity.Title)
	assert.Equal(t, StatusActive, activity.Status)

	got, err := f.service.Get(ctx, activity.ID)
	require.NoError(t, err)
	require.Len(t, got.Participants, 1)
	assert.Equal(t, creator.ID, got.Participants[0].UserID)

	list := f.notificationsFor(t, friend.ID)
	require.Len(t, list, 1)
	assert.Equal(t, models.NotificationActivityCreated, list[0].Type)
	assert.Equal(t, "Ada created a new activity: Campfire", list[0].Body)

	assert.Empty(t, f.notificationsFor(t, blockedFriend.ID))
	assert.Empty(t, f.notificationsFor(t, stranger.ID))
}

func TestCreate_Validation(t *testing.T) {
	f := newFixture(t)
	creator := testutil.SeedUser(t, f.db, "Ada")
	badLat := 91.0
	lng := 0.0

	cases := []struct {
		name string
		req  CreateActivityRequest
		want error
	}{
		{"blank title", CreateActivityRequest{Title: "  ", Date: tomorrow()}, ErrTitleRequired},
		{"bad date", CreateActivityRequest{Title: "Hike", Date: "tomorrow"}, ErrInvalidActivityDate},
		{"bad time", CreateActivityRequest{Title: "Hike", Date: tomorrow(), Time: "7pm"}, ErrInvalidActivityTime},
		{"bad coordinates", CreateActivityRequest{Title: "Hike", Date: tomorrow(), Latitude: &badLat, Longitude: &lng}, services.ErrInvalidCoordinates},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.service.Create(context.Background(), creator.ID, tc.req)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestJoin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	creator := testutil.SeedUser(t, f.db, "Ada")
	joiner := testutil.SeedUser(t, f.db, "Bo")
	blocked := testutil.SeedUser(t, f.db, "Cy")
	testutil.SeedBlock(t, f.db, creator.ID, blocked.ID)

	activity, err := f.service.Create(ctx, creator.ID, CreateActivityRequest{Title: "Convoy", Date: tomorrow()})
	require.NoError(t, err)

	require.NoError(t, f.service.Join(ctx, joiner.ID, activity.ID))
	assert.ErrorIs(t, f.service.Join(ctx, joiner.ID, activity.ID), ErrAlreadyJoined)
	assert.ErrorIs(t, f.service.Join(ctx, blocked.ID, activity.ID), services.ErrBlocked)
	assert.ErrorIs(t, f.service.Join(ctx, joiner.ID, uuid.New()), ErrActivityNotFound)
	f.queue.Wait()

	list := f.notificationsFor(t, creator.ID)
	require.Len(t, list, 1)
	assert.Equal(t, models.NotificationActivityJoined, list[0].Type)
	assert.Equal(t, "Bo joined your activity: Convoy", list[0].Body)
}

func TestLeave(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	creator := testutil.SeedUser(t, f.db, "Ada")
	joiner := testutil.SeedUser(t, f.db, "Bo")

	activity, err := f.service.Create(ctx, creator.ID, CreateActivityRequest{Title: "Hike", Date: tomorrow()})
	require.NoError(t, err)
	require.NoError(t, f.service.Join(ctx, joiner.ID, activity.ID))

	assert.ErrorIs(t, f.service.Leave(ctx, creator.ID, activity.ID), ErrCreatorCannotLeave)
	require.NoError(t, f.service.Leave(ctx, joiner.ID, activity.ID))
	assert.ErrorIs(t, f.service.Leave(ctx, joiner.ID, activity.ID), ErrNotParticipant)
	f.queue.Wait()
}

func TestCancel_NotifiesParticipantsExceptCreator(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	creator := testutil.SeedUser(t, f.db, "Ada")
	p1 := testutil.SeedUser(t, f.db, "Bo")
	p2 := testutil.SeedUser(t, f.db, "Cy")

	activity, err := f.service.Create(ctx, creator.ID, CreateActivityRequest{Title: "Potluck", Date: tomorrow()})
	require.NoError(t, err)
	require.NoError(t, f.service.Join(ctx, p1.ID, activity.ID))
	require.NoError(t, f.service.Join(ctx, p2.ID, activity.ID))
	f.queue.Wait()

	assert.ErrorIs(t, f.service.Cancel(ctx, p1.ID, activity.ID), ErrNotCreator)
	require.NoError(t, f.service.Cancel(ctx, creator.ID, activity.ID))
	assert.ErrorIs(t, f.service.Cancel(ctx, creator.ID, activity.ID), ErrActivityCancelled)
	assert.ErrorIs(t, f.service.Join(ctx, testutil.SeedUser(t, f.db, "Di").ID, activity.ID), ErrActivityCancelled)
	f.queue.Wait()

	for _, p := range []*models.User{p1, p2} {
		var cancelled int
		for _, n := range f.notificationsFor(t, p.ID) {
			if n.Type == models.NotificationActivityCancelled {
				cancelled++
				assert.Equal(t, "Potluck has been cancelled", n.Body)
			}
		}
		assert.Equal(t, 1, cancelled, p.Name)
	}
	for _, n := range f.notificationsFor(t, creator.ID) {
		assert.NotEqual(t, models.NotificationActivityCancelled, n.Type)
	}
}

func TestListForUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	me := testutil.SeedUser(t, f.db, "Ada")
	friend := testutil.SeedUser(t, f.db, "Bo")
	stranger := testutil.SeedUser(t, f.db, "Cy")
	testutil.SeedFriends(t, f.db, me.ID, friend.ID)

	later := time.Now().UTC().Add(72 * time.Hour).Format(DateLayout)
	mine, err := f.service.Create(ctx, me.ID, CreateActivityRequest{Title: "Mine", Date: later})
	require.NoError(t, err)
	theirs, err := f.service.Create(ctx, friend.ID, CreateActivityRequest{Title: "Theirs", Date: tomorrow()})
	require.NoError(t, err)
	_, err = f.service.Create(ctx, stranger.ID, CreateActivityRequest{Title: "Stranger", Date: tomorrow()})
	require.NoError(t, err)
	cancelled, err := f.service.Create(ctx, friend.ID, CreateActivityRequest{Title: "Off", Date: tomorrow()})
	require.NoError(t, err)
	require.NoError(t, f.service.Cancel(ctx, friend.ID, cancelled.ID))
	require.NoError(t, f.db.Create(&Activity{CreatorID: me.ID, Title: "Past", Date: "2000-01-01", Status: StatusActive}).Error)
	f.queue.Wait()

	list, err := f.service.ListForUser(ctx, me.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, theirs.ID, list[0].ID)
	assert.Equal(t, mine.ID, list[1].ID)
}

func TestPurgeStale(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 20, 12, 0, 0, 0, time.UTC)
	f.service.now = func() time.Time { return now }
	user := testutil.SeedUser(t, f.db, "Ada")

	seed := func(date string) *Activity {
		a := &Activity{CreatorID: user.ID, Title: date, Date: date, Status: StatusActive}
		require.NoError(t, f.db.Create(a).Error)
		require.NoError(t, f.db.Create(&ActivityParticipant{ActivityID: a.ID, UserID: user.ID, JoinedAt: now}).Error)
		return a
	}
	stale := seed("2026-03-12")
	boundary := seed("2026-03-13")
	upcoming := seed("2026-03-25")

	deleted, err := f.service.PurgeStale(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	var ids []uuid.UUID
	require.NoError(t, f.db.Model(&Activity{}).Order("date").Pluck("id", &ids).Error)
	assert.Equal(t, []uuid.UUID{boundary.ID, upcoming.ID}, ids)

	var orphans int64
	require.NoError(t, f.db.Model(&ActivityParticipant{}).Where("activity_id = ?", stale.ID).Count(&orphans).Error)
	assert.Zero(t, orphans)

	deleted, err = f.service.PurgeStale(ctx)
	require.NoError(t, err)
	assert.Zero(t, deleted)
}

func TestStats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	creator := testutil.SeedUser(t, f.db, "Ada")
	joiner := testutil.SeedUser(t, f.db, "Bo")

	a, err := f.service.Create(ctx, creator.ID, CreateActivityRequest{Title: "One", Date: tomorrow()})
	require.NoError(t, err)
	b, err := f.service.Create(ctx, creator.ID, CreateActivityRequest{Title: "Two", Date: tomorrow()})
	require.NoError(t, err)
	require.NoError(t, f.service.Join(ctx, joiner.ID, a.ID))
	require.NoError(t, f.service.Cancel(ctx, creator.ID, b.ID))
	f.queue.Wait()

	stats, err := f.service.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, &AdminStatsResponse{Active: 1, Cancelled: 1, Participants: 3}, stats)
}
