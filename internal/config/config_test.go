package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("PUSH_BATCH_SIZE", "")
	t.Setenv("DISTRESS_SWEEP_INTERVAL", "")
	t.Setenv("REDIS_URL", "")

	cfg := Load()

	assert.Equal(t, "localhost", cfg.DBHost)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 100, cfg.PushBatchSize)
	assert.Equal(t, 15*time.Minute, cfg.DistressSweepInterval)
	assert.Equal(t, 6*time.Hour, cfg.ActivitySweepInterval)
	assert.Equal(t, 30*24*time.Hour, cfg.LogRetention)
	assert.False(t, cfg.UseRedisQueue())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("PUSH_BATCH_SIZE", "50")
	t.Setenv("PUSH_RATE_PER_SEC", "2.5")
	t.Setenv("DISTRESS_SWEEP_INTERVAL", "1m")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")

	cfg := Load()

	assert.Equal(t, "db.internal", cfg.DBHost)
	assert.Equal(t, 50, cfg.PushBatchSize)
	assert.InDelta(t, 2.5, cfg.PushRatePerSecond, 0.0001)
	assert.Equal(t, time.Minute, cfg.DistressSweepInterval)
	assert.True(t, cfg.UseRedisQueue())
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("PUSH_BATCH_SIZE", "-3")
	t.Setenv("PUSH_CONCURRENCY", "many")
	t.Setenv("TASK_TIMEOUT", "soon")

	cfg := Load()

	assert.Equal(t, 100, cfg.PushBatchSize)
	assert.Equal(t, 4, cfg.PushConcurrency)
	assert.Equal(t, time.Minute, cfg.TaskTimeout)
}

func TestDSN(t *testing.T) {
	cfg := &Config{DBHost: "h", DBUser: "u", DBPassword: "p", DBName: "n", DBPort: "1", DBSSLMode: "disable"}
	assert.Equal(t, "host=h user=u password=p dbname=n port=1 sslmode=disable TimeZone=UTC", cfg.DSN())
}
