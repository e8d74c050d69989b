package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string

	HTTPAddr string

	OTLPEndpoint string

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int
	DBAutoMigrate     bool

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	Analytics AnalyticsConfig
	RateLimit RateLimitConfig
}

// AnalyticsConfig controls window resolution and display defaults.
type AnalyticsConfig struct {
	Timezone   string
	EpochFloor time.Time
}

// RateLimitConfig throttles analytics reads per scope.
type RateLimitConfig struct {
	Enabled bool
	Rate    float64
	Burst   int
}

const defaultEpochFloor = "2020-01-01"

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	redisAddr := strings.TrimSpace(getenv("REDIS_ADDR", ""))

	cfg := Config{
		AppName:           getenv("APP_SERVICE", "coursepulse"),
		AppVersion:        getenv("APP_VERSION", "0.1.0"),
		Environment:       getenv("ENVIRONMENT", "development"),
		HTTPAddr:          getenv("HTTP_ADDR", ":8080"),
		OTLPEndpoint:      getenv("OTLP_ENDPOINT", "localhost:4317"),
		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "postgres"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", "postgres"),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 5),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 20),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 300),
		DBConnMaxIdleTime: getenvInt("DATABASE_CONN_MAX_IDLE_TIME", 60),
		DBAutoMigrate:     getenvBool("DATABASE_AUTO_MIGRATE", true),
		RedisAddr:         redisAddr,
		RedisPassword:     getenv("REDIS_PASSWORD", ""),
		RedisDB:           getenvInt("REDIS_DB", 0),
		Analytics: AnalyticsConfig{
			Timezone:   getenv("ANALYTICS_TIMEZONE", "UTC"),
			EpochFloor: getenvDate("ANALYTICS_EPOCH_FLOOR", defaultEpochFloor),
		},
		RateLimit: RateLimitConfig{
			Enabled: redisAddr != "" && getenvBool("ANALYTICS_RATE_LIMIT_ENABLED", true),
			Rate:    getenvFloat("ANALYTICS_RATE_LIMIT_RATE", 5),
			Burst:   getenvInt("ANALYTICS_RATE_LIMIT_BURST", 20),
		},
	}

	return cfg
}

// Location resolves the analytics timezone, falling back to UTC.
func (c AnalyticsConfig) Location() *time.Location {
	name := strings.TrimSpace(c.Timezone)
	if name == "" || strings.EqualFold(name, "UTC") {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (c Config) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(c.Environment), "production")
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if value == "" {
		return def
	}
	switch value {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

func getenvFloat(key string, def float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return def
	}
	return parsed
}

func getenvDate(key, def string) time.Time {
	value := strings.TrimSpace(getenv(key, def))
	parsed, err := time.Parse("2006-01-02", value)
	if err != nil {
		parsed, _ = time.Parse("2006-01-02", def)
	}
	return parsed.UTC()
}
