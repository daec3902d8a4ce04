package users

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/transcendence/backend/internal/game"
	"github.com/transcendence/backend/internal/models"
)

var ErrNotFound = errors.New("user not found")

// columnFor maps API field names onto table columns. Only whitelisted fields
// can be written through UpdateUser.
var columnFor = map[string]string{
	"status":           "status",
	"gamesPlayed":      "games_played",
	"win":              "win",
	"loss":             "loss",
	"winRate":          "win_rate",
	"pointsScored":     "points_scored",
	"pointsConceded":   "points_conceded",
	"pointsDifference": "points_difference",
	"lastActive":       "last_active",
}

// Store reads and writes user rows.
type Store struct {
	db *sqlx.DB
}

func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// Create inserts a new user with zeroed stats.
func (s *Store) Create(username, passwordHash string) (*models.User, error) {
	var u models.User
	err := s.db.Get(&u, `
		INSERT INTO users (username, password_hash, status, created_at)
		VALUES ($1, $2, 'offline', NOW())
		RETURNING id, username, password_hash, status, games_played, win, loss, win_rate,
		          points_scored, points_conceded, points_difference, created_at, last_active`,
		username, passwordHash)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByUsername fetches a user by username.
func (s *Store) GetByUsername(username string) (*models.User, error) {
	var u models.User
	err := s.db.Get(&u, `
		SELECT id, username, password_hash, status, games_played, win, loss, win_rate,
		       points_scored, points_conceded, points_difference, created_at, last_active
		FROM users WHERE username = $1`, username)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByID fetches a user by ID.
func (s *Store) GetByID(id int) (*models.User, error) {
	var u models.User
	err := s.db.Get(&u, `
		SELECT id, username, password_hash, status, games_played, win, loss, win_rate,
		       points_scored, points_conceded, points_difference, created_at, last_active
		FROM users WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// FindUserWithStats returns the stats block the game engine folds results
// into.
func (s *Store) FindUserWithStats(id int) (*game.UserStats, error) {
	var stats game.UserStats
	err := s.db.Get(&stats, `
		SELECT games_played AS "gamesplayed", win, loss, win_rate AS "winrate",
		       points_scored AS "pointsscored", points_conceded AS "pointsconceded",
		       points_difference AS "pointsdifference", status
		FROM users WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

// UpdateUser applies a partial update keyed by API field names.
func (s *Store) UpdateUser(id int, fields map[string]interface{}) error {
	if len(fields) == 0 {
		return nil
	}

	setClauses := make([]string, 0, len(fields)+1)
	args := make([]interface{}, 0, len(fields)+1)
	i := 1
	for field, value := range fields {
		col, ok := columnFor[field]
		if !ok {
			return fmt.Errorf("unknown user field %q", field)
		}
		setClauses = append(setClauses, fmt.Sprintf("%s=$%d", col, i))
		args = append(args, value)
		i++
	}
	setClauses = append(setClauses, "last_active=NOW()")
	args = append(args, id)

	query := fmt.Sprintf("UPDATE users SET %s WHERE id=$%d", strings.Join(setClauses, ", "), i)
	res, err := s.db.Exec(query, args...)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// TouchLastActive stamps the user's last activity time.
func (s *Store) TouchLastActive(id int) {
	if _, err := s.db.Exec(`UPDATE users SET last_active=NOW() WHERE id=$1`, id); err != nil {
		log.Printf("[USERS] Failed to touch last_active for user %d: %v", id, err)
	}
}
