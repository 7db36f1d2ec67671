package config

import (
	"os"
	"strconv"
	"strings"
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

	// JWT
	JWTSecret        string
	JWTAccessExpiry  time.Duration
	JWTRefreshExpiry time.Duration

	// Admin
	AdminUserIDs string
	AdminToken   string

	// Server
	Port        string
	CORSOrigins string
	AppEnv      string
	SentryDSN   string

	// Escalation
	FlagThreshold   int64
	ReviewThreshold int64

	// Report priority overrides, "reason=priority,reason=priority"
	PriorityOverrides string

	// Alerts
	AlertDedupWindow   time.Duration
	DeliveryTimeout    time.Duration
	DeliveryWebhookURL string
	AlertQueueSize     int
	AlertWorkers       int

	// Enforcement
	ExpirySweepInterval time.Duration
}

func Load() *Config {
	return &Config{
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", ""),
		DBName:     getEnv("DB_NAME", "safety_db"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		JWTSecret:        getEnv("JWT_SECRET", ""),
		JWTAccessExpiry:  parseDuration(getEnv("JWT_ACCESS_EXPIRY", "15m"), 15*time.Minute),
		JWTRefreshExpiry: parseDuration(getEnv("JWT_REFRESH_EXPIRY", "168h"), 168*time.Hour),

		AdminUserIDs: getEnv("ADMIN_USER_IDS", ""),
		AdminToken:   getEnv("ADMIN_TOKEN", ""),

		Port:        getEnv("PORT", "8080"),
		CORSOrigins: getEnv("CORS_ORIGINS", "*"),
		AppEnv:      getEnv("APP_ENV", "development"),
		SentryDSN:   getEnv("SENTRY_DSN", ""),

		FlagThreshold:   int64(parseInt(getEnv("FLAG_THRESHOLD", "5"), 5)),
		ReviewThreshold: int64(parseInt(getEnv("REVIEW_THRESHOLD", "10"), 10)),

		PriorityOverrides: getEnv("REPORT_PRIORITY_OVERRIDES", ""),

		AlertDedupWindow:   parseDuration(getEnv("ALERT_DEDUP_WINDOW", "5m"), 5*time.Minute),
		DeliveryTimeout:    parseDuration(getEnv("DELIVERY_TIMEOUT", "3s"), 3*time.Second),
		DeliveryWebhookURL: getEnv("DELIVERY_WEBHOOK_URL", ""),
		AlertQueueSize:     parseInt(getEnv("ALERT_QUEUE_SIZE", "256"), 256),
		AlertWorkers:       parseInt(getEnv("ALERT_WORKERS", "4"), 4),

		ExpirySweepInterval: parseDuration(getEnv("EXPIRY_SWEEP_INTERVAL", "0s"), 0),
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

// PriorityOverrideMap parses PriorityOverrides into reason -> priority pairs.
// Malformed entries are skipped; validation happens in the priority table.
func (c *Config) PriorityOverrideMap() map[string]string {
	out := make(map[string]string)
	for _, pair := range strings.Split(c.PriorityOverrides, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok {
			continue
		}
		k, v = strings.TrimSpace(k), strings.TrimSpace(v)
		if k != "" && v != "" {
			out[k] = v
		}
	}
	return out
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}

func parseInt(s string, fallback int) int {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}
