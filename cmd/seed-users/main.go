package main

import (
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/transcendence/backend/internal/auth"
	"github.com/transcendence/backend/internal/config"
	"github.com/transcendence/backend/internal/database"
	"github.com/transcendence/backend/internal/users"
)

// Seeds development accounts so a fresh environment has players to log in
// with. Usernames come from SEED_USERS (comma separated), password from
// SEED_PASSWORD.
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

	names := os.Getenv("SEED_USERS")
	if names == "" {
		names = "alice,bob"
		log.Printf("Using default seed users: %s", names)
	}

	password := os.Getenv("SEED_PASSWORD")
	if password == "" {
		password = "change-me-in-production"
		log.Printf("WARNING: Using default seed password. Set SEED_PASSWORD env var!")
	}

	hash, err := auth.HashPassword(password, cfg.BcryptCost)
	if err != nil {
		log.Fatalf("Failed to hash seed password: %v", err)
	}

	store := users.NewStore(db)
	for _, name := range strings.Split(names, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, err := store.GetByUsername(name); err == nil {
			log.Printf("User %s already exists, skipping", name)
			continue
		}
		u, err := store.Create(name, hash)
		if err != nil {
			log.Fatalf("Failed to create user %s: %v", name, err)
		}
		log.Printf("✓ Created user %s (id=%d)", u.Username, u.ID)
	}
}
