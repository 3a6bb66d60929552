package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Addr       string
	MongoURI   string
	MongoDB    string
	CORSOrigin string
	// Redis is optional. When set, manager sessions are kept in Redis
	// instead of the Mongo sessions collection.
	RedisURL string
	// Admin credentials. The password is bcrypt-hashed once at startup and
	// only the hash is kept in memory.
	AdminUsername string
	AdminPassword string
	// Shared secret for the Google Ads lead-form webhook.
	WebhookSecret string
	// Session lifetime and the remaining-lifetime threshold below which a
	// successful validation pushes expiry forward.
	SessionTTL    time.Duration
	RefreshWindow time.Duration
	// SMTP configuration. Email is disabled when host or from are empty.
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string
	SMTPFromName string
	NotifyTo     []string
	// Geo lookup service base URL.
	GeoBaseURL string
}

func Load() Config {
	return Config{
		Addr:          getenv("API_ADDR", ":8080"),
		MongoURI:      getenv("MONGODB_URI", "mongodb://localhost:27017/"),
		MongoDB:       getenv("MONGODB_DB", "dubai_smart_invest"),
		CORSOrigin:    getenv("CORS_ORIGIN", "*"),
		RedisURL:      getenv("REDIS_URL", ""),
		AdminUsername: getenv("ADMIN_USERNAME", "admin"),
		AdminPassword: getenv("ADMIN_PASSWORD", ""),
		WebhookSecret: getenv("WEBHOOK_SECRET", ""),
		SessionTTL:    time.Duration(getenvInt("SESSION_TTL_SECONDS", 86400)) * time.Second,
		RefreshWindow: time.Duration(getenvInt("SESSION_REFRESH_WINDOW_SECONDS", 3600)) * time.Second,
		SMTPHost:      getenv("SMTP_HOST", ""),
		SMTPPort:      getenvInt("SMTP_PORT", 587),
		SMTPUsername:  getenv("SMTP_USERNAME", ""),
		SMTPPassword:  getenv("SMTP_PASSWORD", ""),
		SMTPFrom:      getenv("SMTP_FROM", ""),
		SMTPFromName:  getenv("SMTP_FROM_NAME", "Skyline Invest"),
		NotifyTo:      getenvList("NOTIFY_TO"),
		GeoBaseURL:    getenv("GEOIP_BASE_URL", "https://ipapi.co"),
	}
}

func getenv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvList(key string) []string {
	raw := os.Getenv(key)
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
