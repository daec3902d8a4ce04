package main

import (
	"context"
	"log"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/transcendence/backend/internal/api"
	"github.com/transcendence/backend/internal/config"
	"github.com/transcendence/backend/internal/database"
	"github.com/transcendence/backend/internal/game"
	"github.com/transcendence/backend/internal/matches"
	"github.com/transcendence/backend/internal/migrations"
	"github.com/transcendence/backend/internal/redis"
	"github.com/transcendence/backend/internal/users"
	"github.com/transcendence/backend/internal/ws"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Initialize configuration
	cfg := config.Load()

	// Initialize database
	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Run migrations on start if requested
	if os.Getenv("MIGRATE_ON_START") == "true" {
		log.Println("↗ Running DB migrations on startup...")
		if err := migrations.RunMigrations(cfg.DatabaseURL); err != nil {
			log.Fatalf("Failed to run migrations: %v", err)
		}
	}

	// Initialize Redis
	rdb, err := redis.Connect(cfg.RedisURL)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer rdb.Close()

	userStore := users.NewStore(db)
	matchRecorder := matches.NewRecorder(db)

	// Initialize the room coordinator and its reaper worker. The websocket
	// hub is the broadcast sink for every room and game event.
	game.InitializeCoordinator(context.Background(), ws.GameHub, userStore, matchRecorder, rdb, cfg)

	// Wire Redis and start the room event subscriber in the WS layer
	ws.SetRedisClient(rdb, cfg)
	ws.SetUserStore(userStore)
	ws.StartRoomEventSubscriber(context.Background())

	// Set up Gin router
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()

	// Initialize API handlers
	api.SetupRoutes(router, db, rdb, cfg)

	// Start server
	port := cfg.Port
	if port == "" {
		port = "8080"
	}

	log.Printf("Starting Transcendence server on port %s", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
