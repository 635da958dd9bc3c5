package config

import (
	"os"
	"strconv"
	"time"

	"kinobook/internal/database"
	"kinobook/internal/external"
	"kinobook/internal/messaging"

	"github.com/joho/godotenv"
)

// Config holds the application configuration.
type Config struct {
	Port           string
	GinMode        string
	LogLevel       string
	LogFormat      string
	RequestTimeout time.Duration

	// Expiration job for stale PENDING bookings
	BookingTTL           time.Duration
	ExpirationJobEnabled bool
	ExpirationInterval   time.Duration

	Database database.Config
	NATS     messaging.Config
	Services external.Config
}

// Load reads the configuration from environment variables. A .env file in
// the working directory is applied first when present.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:           getEnv("PORT", "8080"),
		GinMode:        getEnv("GIN_MODE", "debug"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogFormat:      getEnv("LOG_FORMAT", "json"),
		RequestTimeout: time.Duration(getEnvInt("REQUEST_TIMEOUT_SEC", 30)) * time.Second,

		BookingTTL:           time.Duration(getEnvInt("BOOKING_TTL_MIN", 15)) * time.Minute,
		ExpirationJobEnabled: getEnv("BOOKING_EXPIRATION_ENABLED", "true") == "true",
		ExpirationInterval:   time.Duration(getEnvInt("BOOKING_EXPIRATION_INTERVAL_SEC", 60)) * time.Second,

		Database: database.Config{
			Host:               getEnv("DB_HOST", "localhost"),
			Port:               getEnvInt("DB_PORT", 5432),
			User:               getEnv("DB_USER", "kinobook"),
			Password:           getEnv("DB_PASSWORD", "kinobook123"),
			DBName:             getEnv("DB_NAME", "kinobook"),
			SSLMode:            getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:       getEnvInt("DB_MAX_OPEN_CONNS", 50),
			MaxIdleConns:       getEnvInt("DB_MAX_IDLE_CONNS", 10),
			ConnMaxLifetimeMin: getEnvInt("DB_CONN_MAX_LIFETIME_MIN", 5),
			ConnMaxIdleTimeMin: getEnvInt("DB_CONN_MAX_IDLE_TIME_MIN", 1),
		},

		NATS: messaging.Config{
			URL:       getEnv("NATS_URL", "nats://localhost:4222"),
			ClusterID: getEnv("NATS_CLUSTER_ID", "kinobook"),
			ClientID:  getEnv("NATS_CLIENT_ID", "kinobook-api"),
		},

		Services: external.Config{
			UserServiceURL:         getEnv("USER_SERVICE_URL", "http://localhost:4001"),
			MovieServiceURL:        getEnv("MOVIE_SERVICE_URL", "http://localhost:4002"),
			WalletServiceURL:       getEnv("WALLET_SERVICE_URL", "http://localhost:4003"),
			HistoryServiceURL:      getEnv("HISTORY_SERVICE_URL", "http://localhost:4004"),
			NotificationServiceURL: getEnv("NOTIFICATION_SERVICE_URL", "http://localhost:4005"),
			Timeout:                time.Duration(getEnvInt("SERVICE_TIMEOUT_SEC", 10)) * time.Second,
			RetryMaxAttempts:       getEnvInt("SERVICE_RETRY_MAX_ATTEMPTS", 3),
			RetryBaseDelay:         time.Duration(getEnvInt("SERVICE_RETRY_BASE_DELAY_MS", 100)) * time.Millisecond,
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
