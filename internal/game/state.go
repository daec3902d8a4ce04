package game

import "time"

// RoomStatus represents the lobby state of a room.
type RoomStatus string

const (
	StatusOpen   RoomStatus = "OPEN"
	StatusFull   RoomStatus = "FULL"
	StatusInGame RoomStatus = "INGAME"
)

// User status values persisted through the user collaborator.
const (
	UserOnline  = "online"
	UserOffline = "offline"
	UserInGame  = "ingame"
)

// BotUserID marks the synthesized opponent slot in single-player sessions.
// Bot results are never persisted.
const BotUserID = 0

// Player identifies a room participant.
type Player struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
}

// Ball is the single ball of a session. X is lateral, Z runs between the two
// paddle planes, Y is a cosmetic height derived from Z. Velocities are in
// units per 60Hz frame.
type Ball struct {
	X  float64 `json:"x"`
	Y  float64 `json:"y"`
	Z  float64 `json:"z"`
	VX float64 `json:"vx"`
	VY float64 `json:"vy"`
	VZ float64 `json:"vz"`

	Stopped bool `json:"stopped"`

	// resumeAt defers the serve after a point; zero while in play.
	resumeAt time.Time
}

// PlayerSlot is one of the two fixed player entries of a session. Slot 0 is
// the first room player defending the near plane (negative Z); slot 1 defends
// the far plane and receives mirrored paddle input.
type PlayerSlot struct {
	UserID   int     `json:"userId"`
	Username string  `json:"username"`
	IsBot    bool    `json:"isBot"`
	Paddle   float64 `json:"paddle"` // lateral paddle center
	Score    int     `json:"score"`
}

// GameState is the complete mutable state of one running match.
type GameState struct {
	Ball      Ball          `json:"ball"`
	Players   [2]PlayerSlot `json:"players"`
	StartTime time.Time     `json:"startTime"`
	EndTime   time.Time     `json:"endTime"`
	DeltaTime float64       `json:"deltaTime"` // last tick duration, seconds
}

// SlotFor resolves a user id to a slot index, or -1 when the user is not part
// of the session.
func (s *GameState) SlotFor(userID int) int {
	for i := range s.Players {
		if !s.Players[i].IsBot && s.Players[i].UserID == userID {
			return i
		}
	}
	return -1
}

// Remaining returns the time left until the session deadline, floored at zero.
func (s *GameState) Remaining(now time.Time) time.Duration {
	if now.After(s.EndTime) {
		return 0
	}
	return s.EndTime.Sub(now)
}
