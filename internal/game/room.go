package game

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"
)

// Room lifecycle errors, reported to the caller without corrupting state.
var (
	ErrRoomFull      = errors.New("room is full")
	ErrRoomInGame    = errors.New("room is in game")
	ErrRoomNotFull   = errors.New("room needs two players to start")
	ErrNotInRoom     = errors.New("user is not in this room")
	ErrAlreadyInRoom = errors.New("user is already in this room")
)

// Room is the pre-game lobby grouping up to two players under one owner.
// OPEN -> FULL -> INGAME -> (FULL | OPEN). Mutation goes through Room methods
// under the room mutex; the room trusts its caller for authorization.
type Room struct {
	ID        string
	Name      string
	Owner     Player
	IsPrivate bool

	PaddleRatio  float64
	GameDuration int // minutes
	BallSpeed    float64

	mu           sync.RWMutex
	players      []Player
	status       RoomStatus
	session      *GameSession
	lastActivity time.Time

	broadcaster Broadcaster
	users       UserStore
	recorder    MatchRecorder
}

// RoomSnapshot is the serialized room state carried by room:update events.
type RoomSnapshot struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Owner        Player     `json:"owner"`
	IsPrivate    bool       `json:"isPrivate"`
	Players      []Player   `json:"players"`
	PaddleRatio  float64    `json:"paddleRatio"`
	GameDuration int        `json:"gameDuration"`
	BallSpeed    float64    `json:"ballSpeed"`
	Status       RoomStatus `json:"status"`
}

// NewRoom creates an OPEN room owned by its first player.
func NewRoom(id, name string, owner Player, isPrivate bool,
	paddleRatio float64, durationMinutes int, ballSpeed float64,
	b Broadcaster, users UserStore, rec MatchRecorder) *Room {

	if name == "" {
		name = fmt.Sprintf("%s's room", owner.Username)
	}

	return &Room{
		ID:           id,
		Name:         name,
		Owner:        owner,
		IsPrivate:    isPrivate,
		PaddleRatio:  paddleRatio,
		GameDuration: durationMinutes,
		BallSpeed:    ballSpeed,
		players:      []Player{owner},
		status:       StatusOpen,
		lastActivity: time.Now(),
		broadcaster:  b,
		users:        users,
		recorder:     rec,
	}
}

// Status returns the current lobby state.
func (r *Room) Status() RoomStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.status
}

// PlayerList returns a copy of the ordered player list.
func (r *Room) PlayerList() []Player {
	r.mu.RLock()
	defer r.mu.RUnlock()
	players := make([]Player, len(r.players))
	copy(players, r.players)
	return players
}

// PlayerCount returns the number of players in the room.
func (r *Room) PlayerCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.players)
}

// HasPlayer reports whether the user is a member of this room.
func (r *Room) HasPlayer(userID int) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.indexOf(userID) >= 0
}

// Session returns the active game session, nil unless INGAME.
func (r *Room) Session() *GameSession {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.session
}

// LastActivity returns the time of the last membership or status change.
func (r *Room) LastActivity() time.Time {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lastActivity
}

// Snapshot returns the serializable room state.
func (r *Room) Snapshot() RoomSnapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snapshotLocked()
}

func (r *Room) snapshotLocked() RoomSnapshot {
	players := make([]Player, len(r.players))
	copy(players, r.players)
	return RoomSnapshot{
		ID:           r.ID,
		Name:         r.Name,
		Owner:        r.Owner,
		IsPrivate:    r.IsPrivate,
		Players:      players,
		PaddleRatio:  r.PaddleRatio,
		GameDuration: r.GameDuration,
		BallSpeed:    r.BallSpeed,
		Status:       r.status,
	}
}

// Join adds a player while the room is OPEN; the second join moves the room
// to FULL. Joining a FULL or INGAME room is rejected.
func (r *Room) Join(u Player) error {
	r.mu.Lock()

	switch r.status {
	case StatusInGame:
		r.mu.Unlock()
		return ErrRoomInGame
	case StatusFull:
		r.mu.Unlock()
		return ErrRoomFull
	}
	if r.indexOf(u.ID) >= 0 {
		r.mu.Unlock()
		return ErrAlreadyInRoom
	}

	r.players = append(r.players, u)
	if len(r.players) == 2 {
		r.status = StatusFull
	}
	r.lastActivity = time.Now()
	snapshot := r.snapshotLocked()
	r.mu.Unlock()

	log.Printf("[ROOM] User %d joined room %s (%d players)", u.ID, r.ID, len(snapshot.Players))
	r.broadcaster.Emit(r.ID, "room:update", snapshot)
	return nil
}

// Leave removes the user. Mid-game departure is forwarded to the session as a
// surrender instead of removing the player; membership is dropped once the
// session winds down and resets the room. Owner departure transfers ownership
// to the next remaining player and renames the room.
func (r *Room) Leave(userID int) (empty bool, err error) {
	r.mu.Lock()

	idx := r.indexOf(userID)
	if idx < 0 {
		r.mu.Unlock()
		return false, ErrNotInRoom
	}

	if r.status == StatusInGame && r.session != nil {
		session := r.session
		r.mu.Unlock()
		session.Surrender(userID)
		// Fall through to removal so a restarted lobby doesn't keep the
		// departed player.
		r.mu.Lock()
		idx = r.indexOf(userID)
		if idx < 0 {
			r.mu.Unlock()
			return false, nil
		}
	}

	r.players = append(r.players[:idx], r.players[idx+1:]...)
	if r.status == StatusFull {
		r.status = StatusOpen
	}
	r.lastActivity = time.Now()

	if len(r.players) == 0 {
		r.mu.Unlock()
		log.Printf("[ROOM] Room %s is empty", r.ID)
		return true, nil
	}

	if r.Owner.ID == userID {
		r.Owner = r.players[0]
		r.Name = fmt.Sprintf("%s's room", r.Owner.Username)
		log.Printf("[ROOM] Ownership of room %s transferred to user %d", r.ID, r.Owner.ID)
	}
	snapshot := r.snapshotLocked()
	r.mu.Unlock()

	r.broadcaster.Emit(r.ID, "room:update", snapshot)
	return false, nil
}

// StartGame moves a FULL room to INGAME, marks both players in-game, and
// launches the session with the room's tunables. Owner-only enforcement is
// the caller's job.
func (r *Room) StartGame() error {
	r.mu.Lock()

	if r.status == StatusInGame {
		r.mu.Unlock()
		return ErrRoomInGame
	}
	if r.status != StatusFull {
		r.mu.Unlock()
		return ErrRoomNotFull
	}

	players := make([]Player, len(r.players))
	copy(players, r.players)
	session := NewGameSession(r, players, r.broadcaster, r.users, r.recorder,
		r.PaddleRatio, r.GameDuration, r.BallSpeed)
	r.session = session
	r.status = StatusInGame
	r.lastActivity = time.Now()
	snapshot := r.snapshotLocked()
	r.mu.Unlock()

	for _, p := range players {
		if err := r.users.UpdateUser(p.ID, map[string]interface{}{"status": UserInGame}); err != nil {
			log.Printf("[ROOM] Failed to mark user %d in-game: %v", p.ID, err)
		}
	}

	r.broadcaster.Emit(r.ID, "room:update", snapshot)
	session.Start()
	return nil
}

// Update merges a partial state change and re-broadcasts the room snapshot.
type RoomUpdate struct {
	Name      *string
	IsPrivate *bool
	Status    *RoomStatus
}

func (r *Room) Update(partial RoomUpdate) {
	r.mu.Lock()
	if partial.Name != nil {
		r.Name = *partial.Name
	}
	if partial.IsPrivate != nil {
		r.IsPrivate = *partial.IsPrivate
	}
	if partial.Status != nil {
		r.status = *partial.Status
	}
	r.lastActivity = time.Now()
	snapshot := r.snapshotLocked()
	r.mu.Unlock()

	r.broadcaster.Emit(r.ID, "room:update", snapshot)
}

// ResetAfterGame clears the finished session and reverts the lobby status to
// FULL or OPEN depending on how many players remain. Called by the session
// once its loops have exited.
func (r *Room) ResetAfterGame() {
	r.mu.Lock()
	r.session = nil
	if len(r.players) >= 2 {
		r.status = StatusFull
	} else {
		r.status = StatusOpen
	}
	r.lastActivity = time.Now()
	snapshot := r.snapshotLocked()
	r.mu.Unlock()

	r.broadcaster.Emit(r.ID, "room:update", snapshot)
}

// indexOf requires the lock to be held.
func (r *Room) indexOf(userID int) int {
	for i, p := range r.players {
		if p.ID == userID {
			return i
		}
	}
	return -1
}
