package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	// Database
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// JWT (issued by the identity service, verified here)
	JWTSecret string

	// Admin
	AdminUserIDs string
	AdminToken   string

	// Billing
	RevenueCatWebhookAuth string

	// Server
	Port        string
	CORSOrigins string
	AppEnv      string
	SentryDSN   string

	// Push provider
	ExpoPushURL       string
	ExpoAccessToken   string
	PushBatchSize     int
	PushConcurrency   int
	PushRatePerSecond float64
	PushTimeout       time.Duration

	// Detached tasks
	RedisURL         string
	QueueConcurrency int
	TaskTimeout      time.Duration

	// Lifecycle sweeper
	DistressSweepInterval time.Duration
	ActivitySweepInterval time.Duration
	LogSweepInterval      time.Duration
	LogRetention          time.Duration
}

func Load() *Config {
	return &Config{
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", ""),
		DBName:     getEnv("DB_NAME", "roadmate"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		JWTSecret: getEnv("JWT_SECRET", ""),

		AdminUserIDs: getEnv("ADMIN_USER_IDS", ""),
		AdminToken:   getEnv("ADMIN_TOKEN", ""),

		RevenueCatWebhookAuth: getEnv("REVENUECAT_WEBHOOK_AUTH", ""),

		Port:        getEnv("PORT", "8080"),
		CORSOrigins: getEnv("CORS_ORIGINS", "*"),
		AppEnv:      getEnv("APP_ENV", "development"),
		SentryDSN:   getEnv("SENTRY_DSN", ""),

		ExpoPushURL:       getEnv("EXPO_PUSH_URL", "https://exp.host/--/api/v2/push/send"),
		ExpoAccessToken:   getEnv("EXPO_ACCESS_TOKEN", ""),
		PushBatchSize:     parseInt(getEnv("PUSH_BATCH_SIZE", "100"), 100),
		PushConcurrency:   parseInt(getEnv("PUSH_CONCURRENCY", "4"), 4),
		PushRatePerSecond: parseFloat(getEnv("PUSH_RATE_PER_SEC", "6"), 6),
		PushTimeout:       parseDuration(getEnv("PUSH_TIMEOUT", "10s"), 10*time.Second),

		RedisURL:         getEnv("REDIS_URL", ""),
		QueueConcurrency: parseInt(getEnv("QUEUE_CONCURRENCY", "10"), 10),
		TaskTimeout:      parseDuration(getEnv("TASK_TIMEOUT", "60s"), time.Minute),

		DistressSweepInterval: parseDuration(getEnv("DISTRESS_SWEEP_INTERVAL", "15m"), 15*time.Minute),
		ActivitySweepInterval: parseDuration(getEnv("ACTIVITY_SWEEP_INTERVAL", "6h"), 6*time.Hour),
		LogSweepInterval:      parseDuration(getEnv("LOG_SWEEP_INTERVAL", "24h"), 24*time.Hour),
		LogRetention:          parseDuration(getEnv("LOG_RETENTION", "720h"), 30*24*time.Hour),
	}
}

func (c *Config) DSN() string {
	return "host=" + c.DBHost +
		" user=" + c.DBUser +
		" password=" + c.DBPassword +
		" dbname=" + c.DBName +
		" port=" + c.DBPort +
		" sslmode=" + c.DBSSLMode +
		" TimeZone=UTC"
}

// UseRedisQueue reports whether detached tasks go through asynq instead of
// in-process goroutines.
func (c *Config) UseRedisQueue() bool {
	return c.RedisURL != ""
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func parseInt(s string, fallback int) int {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func parseFloat(s string, fallback float64) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f <= 0 {
		return fallback
	}
	return f
}
