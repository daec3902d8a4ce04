package api

import (
	"log"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"github.com/transcendence/backend/internal/api/handlers"
	"github.com/transcendence/backend/internal/auth"
	"github.com/transcendence/backend/internal/config"
	"github.com/transcendence/backend/internal/matches"
	"github.com/transcendence/backend/internal/users"
	"github.com/transcendence/backend/internal/ws"
)

// SetupRoutes configures all API routes
func SetupRoutes(router *gin.Engine, db *sqlx.DB, rdb *redis.Client, cfg *config.Config) {
	userStore := users.NewStore(db)
	matchRecorder := matches.NewRecorder(db)

	// CORS middleware for the SPA development server
	router.Use(func(c *gin.Context) {
		origin := "*"
		if cfg.FrontendURL != "" {
			origin = cfg.FrontendURL
		}
		c.Header("Access-Control-Allow-Origin", origin)
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Header("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	if cfg.Environment != "production" {
		router.Use(func(c *gin.Context) {
			c.Header("Cache-Control", "no-store, no-cache, must-revalidate, max-age=0")
			c.Header("Pragma", "no-cache")
			c.Header("Expires", "0")
			c.Next()
		})
		log.Println("[DEV MODE] Aggressive no-cache headers enabled for all routes")
	}

	// API v1 group
	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", handlers.HealthCheck)

		// Auth endpoints
		authGroup := v1.Group("/auth")
		{
			authGroup.POST("/register", handlers.Register(userStore, cfg))
			authGroup.POST("/login", handlers.Login(userStore, cfg))
		}

		// Realtime gateway; the token travels as a query parameter
		v1.GET("/ws", ws.HandleWebSocket)

		// Authenticated endpoints
		authorized := v1.Group("")
		authorized.Use(auth.Middleware(cfg))
		{
			authorized.GET("/me", handlers.GetMe(userStore))
			authorized.GET("/users/:id/stats", handlers.GetUserStats(userStore))
			authorized.GET("/matches", handlers.GetMyMatches(matchRecorder))

			rooms := authorized.Group("/rooms")
			{
				rooms.GET("", handlers.ListRooms())
				rooms.POST("", handlers.CreateRoom(cfg))
				rooms.GET("/:id", handlers.GetRoom())
				rooms.POST("/leave", handlers.LeaveRoom())
			}

			queue := authorized.Group("/queue")
			{
				queue.POST("/join", handlers.JoinQueue())
				queue.POST("/leave", handlers.LeaveQueue())
			}
		}
	}
}
