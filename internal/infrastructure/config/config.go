// internal/infrastructure/config/config.go
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	// App
	AppVersion string

	// Server
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// MongoDB
	MongoURI string
	MongoDB  string

	// Redis
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Prices-data API (city lookup, average prices, link shortener)
	PricesDataDomain string

	// VK publisher
	VKGroupID         string
	VKTokenPhotos     string
	VKTokenStandalone string

	// Anomaly rules
	MaxDepartureDays int
	MaxPrice         int

	// Marker TTLs. The source versions disagreed on these, so they are
	// configuration, not constants.
	PostCooldownTTL time.Duration
	RouteDedupTTL   time.Duration

	// Stuck entry sweep
	SweepInterval time.Duration
	StuckMaxAge   time.Duration

	// Static resources
	CasesFile string
	ImagesDir string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	// Load .env file if it exists
	godotenv.Load()

	config := &Config{
		AppVersion:   getEnv("APP_VERSION", "1.0.0"),
		Port:         getEnv("PORT", "8080"),
		ReadTimeout:  time.Duration(getEnvAsInt("READ_TIMEOUT", 30)) * time.Second,
		WriteTimeout: time.Duration(getEnvAsInt("WRITE_TIMEOUT", 30)) * time.Second,

		MongoURI: getEnv("MONGODB_DSN", "mongodb://localhost:27017"),
		MongoDB:  getEnv("MONGO_DB", "anomaly_db"),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),

		PricesDataDomain: getEnv("PRICESDATA_DOMAIN", ""),

		VKGroupID:         getEnv("VK_GROUP_ID", ""),
		VKTokenPhotos:     getEnv("VK_TOKEN_PHOTOS", ""),
		VKTokenStandalone: getEnv("VK_TOKEN_STANDALONE", ""),

		MaxDepartureDays: getEnvAsInt("POST_PREVENT_MAX_DAYS", 30),
		MaxPrice:         getEnvAsInt("POST_PREVENT_MAX_PRICE", 20000),

		PostCooldownTTL: time.Duration(getEnvAsInt("POST_COOLDOWN_TTL_MINUTES", 120)) * time.Minute,
		RouteDedupTTL:   time.Duration(getEnvAsInt("ROUTE_DEDUP_TTL_MINUTES", 1440)) * time.Minute,

		SweepInterval: time.Duration(getEnvAsInt("SWEEP_INTERVAL_MINUTES", 10)) * time.Minute,
		StuckMaxAge:   time.Duration(getEnvAsInt("STUCK_MAX_AGE_MINUTES", 10)) * time.Minute,

		CasesFile: getEnv("CASES_FILE", "cases.json"),
		ImagesDir: getEnv("IMAGES_DIR", "images"),
	}

	return config, nil
}

// Helper functions to get environment variables
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}
