package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	// Environment
	Environment string

	// Database
	DatabaseURL string

	// Redis
	RedisURL string

	// Server
	Port        string
	FrontendURL string

	// Game defaults (used when a room is created without overrides)
	DefaultPaddleRatio  float64
	DefaultGameDuration int // minutes
	DefaultBallSpeed    float64
	MinGameDuration     int
	MaxGameDuration     int

	// Lobby housekeeping
	RoomIdleMinutes    int
	ReaperPollSeconds  int
	RoomSnapshotTTLMin int

	// Security
	JWTSecret      string
	TokenExpiryHrs int
	BcryptCost     int
}

func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	return &Config{
		// Environment
		Environment: getEnv("APP_ENV", "development"),

		// Database
		DatabaseURL: getEnv("DATABASE_URL", "postgres://localhost:5432/transcendence?sslmode=disable"),

		// Redis
		RedisURL: getEnv("REDIS_URL", "redis://localhost:6379/0"),

		// Server
		Port:        getEnv("APP_PORT", "8080"),
		FrontendURL: getEnv("FRONTEND_URL", "http://localhost:5173"),

		// Game defaults
		DefaultPaddleRatio:  getEnvFloat("DEFAULT_PADDLE_RATIO", 0.3),
		DefaultGameDuration: getEnvInt("DEFAULT_GAME_DURATION_MINUTES", 3),
		DefaultBallSpeed:    getEnvFloat("DEFAULT_BALL_SPEED", 1.0),
		MinGameDuration:     getEnvInt("MIN_GAME_DURATION_MINUTES", 1),
		MaxGameDuration:     getEnvInt("MAX_GAME_DURATION_MINUTES", 10),

		// Lobby housekeeping
		RoomIdleMinutes:    getEnvInt("ROOM_IDLE_MINUTES", 30),
		ReaperPollSeconds:  getEnvInt("REAPER_POLL_SECONDS", 60),
		RoomSnapshotTTLMin: getEnvInt("ROOM_SNAPSHOT_TTL_MINUTES", 60),

		// Security
		JWTSecret:      getEnv("JWT_SECRET", "change-me-in-production"),
		TokenExpiryHrs: getEnvInt("TOKEN_EXPIRY_HOURS", 24),
		BcryptCost:     getEnvInt("BCRYPT_COST", 10),
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
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}
