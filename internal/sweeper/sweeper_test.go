package sweeper

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestSweeper_RunsJobsOnInterval(t *testing.T) {
	var fast, slow atomic.Int64
	s := New(
		Job{Name: "fast", Interval: 5 * time.Millisecond, Run: func(ctx context.Context) (int64, error) {
			fast.Add(1)
			return 1, nil
		}},
		Job{Name: "slow", Interval: time.Hour, Run: func(ctx context.Context) (int64, error) {
			slow.Add(1)
			return 0, nil
		}},
	)

	s.Start(context.Background())
	s.Start(context.Background())
	require.Eventually(t, func() bool { return fast.Load() >= 3 }, time.Second, time.Millisecond)
	s.Stop()

	assert.Equal(t, int64(0), slow.Load())
	assert.Equal(t, []string{"fast", "slow"}, s.Jobs())
}

func TestSweeper_FailureDoesNotStopLoop(t *testing.T) {
	var calls atomic.Int64
	s := New(Job{Name: "flaky", Interval: 5 * time.Millisecond, Run: func(ctx context.Context) (int64, error) {
		calls.Add(1)
		return 0, errors.New("db unavailable")
	}})

	s.Start(context.Background())
	require.Eventually(t, func() bool { return calls.Load() >= 2 }, time.Second, time.Millisecond)
	s.Stop()
}

func TestSweeper_RunNow(t *testing.T) {
	s := New(Job{Name: "distress-expiry", Interval: time.Hour, Run: func(ctx context.Context) (int64, error) {
		return 7, nil
	}})

	n, err := s.RunNow(context.Background(), "distress-expiry")
	require.NoError(t, err)
	assert.Equal(t, int64(7), n)

	_, err = s.RunNow(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrUnknownJob)
}

func TestSweeper_StopsWithParentContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := New(Job{Name: "idle", Interval: time.Hour, Run: func(ctx context.Context) (int64, error) { return 0, nil }})
	s.Start(ctx)
	cancel()
	s.Stop()
	s.Stop()
}
