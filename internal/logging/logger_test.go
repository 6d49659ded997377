package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingSink struct{ slog.Handler }

func (failingSink) Handle(context.Context, slog.Record) error { return errors.New("sink down") }

func TestFanout_WritesByLevel(t *testing.T) {
	var info, errs bytes.Buffer
	h := Fanout(
		slog.NewJSONHandler(&info, &slog.HandlerOptions{Level: slog.LevelInfo}),
		slog.NewJSONHandler(&errs, &slog.HandlerOptions{Level: slog.LevelError}),
	)
	logger := slog.New(h).With("component", "sweeper")

	logger.Info("sweep completed", "job", "distress-expiry")
	logger.Error("sweep failed", "job", "activity-purge")

	assert.Equal(t, 2, bytes.Count(info.Bytes(), []byte("\n")))
	assert.Equal(t, 1, bytes.Count(errs.Bytes(), []byte("\n")))

	var rec map[string]any
	require.NoError(t, json.Unmarshal(errs.Bytes(), &rec))
	assert.Equal(t, "sweeper", rec["component"])
	assert.Equal(t, "activity-purge", rec["job"])
}

func TestFanout_FailingSinkDoesNotStopOthers(t *testing.T) {
	var out bytes.Buffer
	stdout := slog.NewJSONHandler(&out, nil)
	h := Fanout(failingSink{stdout}, stdout)

	rec := slog.NewRecord(time.Now(), slog.LevelError, "distress fan-out failed", 0)
	err := h.Handle(context.Background(), rec)

	assert.EqualError(t, err, "sink down")
	assert.Contains(t, out.String(), "distress fan-out failed")
}

func TestFanout_SingleSinkIsReturnedAsIs(t *testing.T) {
	stdout := slog.NewJSONHandler(&bytes.Buffer{}, nil)
	assert.Same(t, stdout, Fanout(stdout))
}
