// README: Config loader with env defaults for HTTP, DB, Redis, push, and auth.
package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cast"
)

type Config struct {
	ServiceName string
	LoggerLevel string

	HTTPAddr string

	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string

	RedisAddr     string
	RedisPassword string

	JWTSecret string

	// FirebaseCredentialsFile enables FCM push when set; push is a no-op
	// otherwise.
	FirebaseCredentialsFile string

	// MapsAPIKey enables road-distance estimates via the Google Maps
	// Directions API; the haversine fallback is used otherwise.
	MapsAPIKey string
}

func Load() Config {
	_ = godotenv.Load(".env")

	cfg := Config{}

	cfg.ServiceName = cast.ToString(getOrReturnDefault("SERVICE_NAME", "rumo"))
	cfg.LoggerLevel = cast.ToString(getOrReturnDefault("LOGGER_LEVEL", "info"))
	cfg.HTTPAddr = cast.ToString(getOrReturnDefault("HTTP_ADDR", ":8080"))

	cfg.PostgresHost = cast.ToString(getOrReturnDefault("POSTGRES_HOST", "localhost"))
	cfg.PostgresPort = cast.ToString(getOrReturnDefault("POSTGRES_PORT", "5432"))
	cfg.PostgresUser = cast.ToString(getOrReturnDefault("POSTGRES_USER", "postgres"))
	cfg.PostgresPassword = cast.ToString(getOrReturnDefault("POSTGRES_PASSWORD", "postgres"))
	cfg.PostgresDB = cast.ToString(getOrReturnDefault("POSTGRES_DB", "rumo"))

	cfg.RedisAddr = cast.ToString(getOrReturnDefault("REDIS_ADDR", "localhost:6379"))
	cfg.RedisPassword = cast.ToString(getOrReturnDefault("REDIS_PASSWORD", ""))

	cfg.JWTSecret = cast.ToString(getOrReturnDefault("JWT_SECRET", "rumo-dev-secret-change-in-production"))

	cfg.FirebaseCredentialsFile = cast.ToString(getOrReturnDefault("FIREBASE_SERVICE_ACCOUNT_PATH", ""))
	cfg.MapsAPIKey = cast.ToString(getOrReturnDefault("MAPS_API_KEY", ""))

	return cfg
}

// PostgresURL assembles the pgx connection string.
func (c Config) PostgresURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.PostgresUser,
		c.PostgresPassword,
		c.PostgresHost,
		c.PostgresPort,
		c.PostgresDB,
	)
}

func getOrReturnDefault(key string, defaultValue interface{}) interface{} {
	value := os.Getenv(key)
	if value != "" {
		return value
	}
	return defaultValue
}
