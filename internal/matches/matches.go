package matches

import (
	"log"

	"github.com/jmoiron/sqlx"

	"github.com/transcendence/backend/internal/game"
	"github.com/transcendence/backend/internal/models"
)

// Recorder persists finished matches.
type Recorder struct {
	db *sqlx.DB
}

func NewRecorder(db *sqlx.DB) *Recorder {
	return &Recorder{db: db}
}

// SaveMatch inserts a finished match row.
func (r *Recorder) SaveMatch(m game.MatchRecord) error {
	_, err := r.db.Exec(`
		INSERT INTO matches (player_a, player_b, score_a, score_b, played_at)
		VALUES ($1, $2, $3, $4, $5)`,
		m.PlayerA, m.PlayerB, m.ScoreA, m.ScoreB, m.PlayedAt)
	if err != nil {
		log.Printf("[MATCH] Failed to save match %d vs %d: %v", m.PlayerA, m.PlayerB, err)
		return err
	}
	return nil
}

// ListForUser returns a user's match history, most recent first.
func (r *Recorder) ListForUser(userID int, limit int) ([]models.Match, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	matches := []models.Match{}
	err := r.db.Select(&matches, `
		SELECT id, player_a, player_b, score_a, score_b, played_at
		FROM matches
		WHERE player_a = $1 OR player_b = $1
		ORDER BY played_at DESC
		LIMIT $2`, userID, limit)
	if err != nil {
		return nil, err
	}
	return matches, nil
}
