package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all service configuration loaded from environment variables.
type Config struct {
	Port          string
	PostgresDSN   string
	MongoURI      string
	MongoDB       string
	RedisAddr     string
	RedisPassword string

	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool

	SessionTTL time.Duration

	// AdminEmails always resolve as admin regardless of the profile flag.
	// Deployable empty; then only the profiles.is_admin column grants access.
	AdminEmails []string

	RateLimitMaxAttempts int
	RateLimitWindow      time.Duration

	SearchPageSize  int
	SearchDebounce  time.Duration
	RecentSearchMax int

	LogLevel  string
	LogFormat string // text|json
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	return &Config{
		Port:          getenv("PORT", "8080"),
		PostgresDSN:   getenv("POSTGRES_DSN", ""),
		MongoURI:      getenv("MONGO_URI", ""),
		MongoDB:       getenv("MONGO_DB", "marketplace"),
		RedisAddr:     getenv("REDIS_ADDR", "redis:6379"),
		RedisPassword: getenv("REDIS_PASSWORD", ""),

		MinioEndpoint:  getenv("MINIO_ENDPOINT", "minio:9000"),
		MinioAccessKey: getenv("MINIO_ACCESS_KEY", ""),
		MinioSecretKey: getenv("MINIO_SECRET_KEY", ""),
		MinioBucket:    getenv("MINIO_BUCKET", "nft-media"),
		MinioUseSSL:    getenv("MINIO_USE_SSL", "false") == "true",

		SessionTTL: getduration("SESSION_TTL", 24*time.Hour),

		AdminEmails: getlist("ADMIN_EMAILS"),

		RateLimitMaxAttempts: getint("RATE_LIMIT_MAX_ATTEMPTS", 5),
		RateLimitWindow:      getduration("RATE_LIMIT_WINDOW", 15*time.Minute),

		SearchPageSize:  getint("SEARCH_PAGE_SIZE", 12),
		SearchDebounce:  getduration("SEARCH_DEBOUNCE", 500*time.Millisecond),
		RecentSearchMax: getint("RECENT_SEARCH_MAX", 10),

		LogLevel:  getenv("LOG_LEVEL", "info"),
		LogFormat: getenv("LOG_FORMAT", "text"),
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getint(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getduration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func getlist(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, strings.ToLower(p))
		}
	}
	return out
}
