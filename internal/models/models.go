package models

import (
	"database/sql"
	"time"
)

// User represents a registered player and their lifetime statistics.
type User struct {
	ID               int          `db:"id" json:"id"`
	Username         string       `db:"username" json:"username"`
	PasswordHash     string       `db:"password_hash" json:"-"`
	Status           string       `db:"status" json:"status"` // "offline", "online", "ingame"
	GamesPlayed      int          `db:"games_played" json:"gamesPlayed"`
	Win              int          `db:"win" json:"win"`
	Loss             int          `db:"loss" json:"loss"`
	WinRate          float64      `db:"win_rate" json:"winRate"`
	PointsScored     int          `db:"points_scored" json:"pointsScored"`
	PointsConceded   int          `db:"points_conceded" json:"pointsConceded"`
	PointsDifference int          `db:"points_difference" json:"pointsDifference"`
	CreatedAt        time.Time    `db:"created_at" json:"created_at"`
	LastActive       sql.NullTime `db:"last_active" json:"last_active,omitempty"`
}

// Match represents a finished game between two real players.
type Match struct {
	ID       int       `db:"id" json:"id"`
	PlayerA  int       `db:"player_a" json:"playerA"`
	PlayerB  int       `db:"player_b" json:"playerB"`
	ScoreA   int       `db:"score_a" json:"scoreA"`
	ScoreB   int       `db:"score_b" json:"scoreB"`
	PlayedAt time.Time `db:"played_at" json:"playedAt"`
}
