package game

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/transcendence/backend/internal/config"
)

// Coordinator errors surfaced to the transport layer.
var (
	ErrRoomNotFound    = errors.New("room not found")
	ErrAlreadyInQueue  = errors.New("user already in matchmaking queue")
	ErrUserBusy        = errors.New("user is already in a room")
	ErrNotOwner        = errors.New("only the room owner can start the game")
	ErrInvalidDuration = errors.New("game duration out of range")
)

// Coordinator is the in-memory directory of all active rooms plus the
// matchmaking queue. It is the boundary the websocket gateway and HTTP
// controllers call into.
type Coordinator struct {
	rooms      map[string]*Room
	userToRoom map[int]string // user ID -> room ID
	queue      []Player

	rdb         *redis.Client
	cfg         *config.Config
	broadcaster Broadcaster
	users       UserStore
	recorder    MatchRecorder
	mu          sync.RWMutex
}

var (
	// Global coordinator instance
	Coord *Coordinator
)

// InitializeCoordinator initializes the global coordinator and its workers.
func InitializeCoordinator(ctx context.Context, b Broadcaster, users UserStore, rec MatchRecorder,
	rdb *redis.Client, cfg *config.Config) {
	Coord = NewCoordinator(b, users, rec, rdb, cfg)
	go Coord.StartRoomReaper(ctx)
}

// NewCoordinator creates a coordinator with empty room and queue state.
func NewCoordinator(b Broadcaster, users UserStore, rec MatchRecorder,
	rdb *redis.Client, cfg *config.Config) *Coordinator {
	return &Coordinator{
		rooms:       make(map[string]*Room),
		userToRoom:  make(map[int]string),
		queue:       []Player{},
		rdb:         rdb,
		cfg:         cfg,
		broadcaster: b,
		users:       users,
		recorder:    rec,
	}
}

// generateRoomID generates a unique opaque room identifier.
func generateRoomID() string {
	b := make([]byte, 8)
	rand.Read(b)
	return "room_" + hex.EncodeToString(b)
}

// CreateRoom creates a new room owned by the given user. A user already in a
// room cannot create another.
func (c *Coordinator) CreateRoom(owner Player, name string, isPrivate bool,
	paddleRatio float64, durationMinutes int, ballSpeed float64) (*Room, error) {

	if c.cfg != nil && (durationMinutes < c.cfg.MinGameDuration || durationMinutes > c.cfg.MaxGameDuration) {
		return nil, ErrInvalidDuration
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, busy := c.userToRoom[owner.ID]; busy {
		return nil, ErrUserBusy
	}

	room := NewRoom(generateRoomID(), name, owner, isPrivate,
		paddleRatio, durationMinutes, ballSpeed,
		c.broadcaster, c.users, c.recorder)
	c.rooms[room.ID] = room
	c.userToRoom[owner.ID] = room.ID
	c.removeFromQueueLocked(owner.ID)

	log.Printf("[COORD] Room %s created by user %d", room.ID, owner.ID)
	c.saveRoomSnapshot(room)
	return room, nil
}

// GetRoom retrieves a room by ID.
func (c *Coordinator) GetRoom(roomID string) (*Room, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	room, exists := c.rooms[roomID]
	if !exists {
		return nil, ErrRoomNotFound
	}
	return room, nil
}

// RoomForUser returns the room the user currently belongs to, if any.
func (c *Coordinator) RoomForUser(userID int) (*Room, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	roomID, ok := c.userToRoom[userID]
	if !ok {
		return nil, false
	}
	room, exists := c.rooms[roomID]
	return room, exists
}

// ListRooms returns snapshots of all rooms, skipping private ones unless
// includePrivate is set.
func (c *Coordinator) ListRooms(includePrivate bool) []RoomSnapshot {
	c.mu.RLock()
	rooms := make([]*Room, 0, len(c.rooms))
	for _, r := range c.rooms {
		rooms = append(rooms, r)
	}
	c.mu.RUnlock()

	snapshots := make([]RoomSnapshot, 0, len(rooms))
	for _, r := range rooms {
		s := r.Snapshot()
		if s.IsPrivate && !includePrivate {
			continue
		}
		snapshots = append(snapshots, s)
	}
	return snapshots
}

// RoomCount returns the number of active rooms.
func (c *Coordinator) RoomCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.rooms)
}

// JoinRoom adds a user to an existing room, enforcing one-room exclusivity.
func (c *Coordinator) JoinRoom(roomID string, u Player) error {
	c.mu.Lock()
	room, exists := c.rooms[roomID]
	if !exists {
		c.mu.Unlock()
		return ErrRoomNotFound
	}
	if current, busy := c.userToRoom[u.ID]; busy && current != roomID {
		c.mu.Unlock()
		return ErrUserBusy
	}

	// Join under the coordinator lock so a concurrent queue pairing cannot
	// claim the same user between the busy check and the membership write.
	if err := room.Join(u); err != nil {
		c.mu.Unlock()
		return err
	}
	c.userToRoom[u.ID] = roomID
	c.removeFromQueueLocked(u.ID)
	c.mu.Unlock()

	c.saveRoomSnapshot(room)
	return nil
}

// LeaveRoom removes the user from whatever room they are in. A departure
// mid-game surrenders on their behalf; the last departure destroys the room.
func (c *Coordinator) LeaveRoom(userID int) error {
	c.mu.Lock()
	roomID, ok := c.userToRoom[userID]
	if !ok {
		c.mu.Unlock()
		return ErrNotInRoom
	}
	room, exists := c.rooms[roomID]
	delete(c.userToRoom, userID)
	c.mu.Unlock()

	if !exists {
		return ErrRoomNotFound
	}

	empty, err := room.Leave(userID)
	if err != nil {
		return err
	}
	if empty {
		c.destroyRoom(roomID)
		return nil
	}
	c.saveRoomSnapshot(room)
	return nil
}

// StartGame starts the match in the user's room; only the owner may start.
func (c *Coordinator) StartGame(roomID string, userID int) error {
	room, err := c.GetRoom(roomID)
	if err != nil {
		return err
	}
	if room.Owner.ID != userID {
		return ErrNotOwner
	}
	if err := room.StartGame(); err != nil {
		return err
	}
	c.saveRoomSnapshot(room)
	return nil
}

// JoinQueue adds a user to the matchmaking queue. When a second user is
// waiting, the pair is placed into a fresh room (first in queue owns it) and
// the room is returned to both callers via the room:update broadcast.
func (c *Coordinator) JoinQueue(u Player) (*Room, error) {
	c.mu.Lock()

	if _, busy := c.userToRoom[u.ID]; busy {
		c.mu.Unlock()
		return nil, ErrUserBusy
	}
	for _, waiting := range c.queue {
		if waiting.ID == u.ID {
			c.mu.Unlock()
			return nil, ErrAlreadyInQueue
		}
	}

	if len(c.queue) == 0 {
		c.queue = append(c.queue, u)
		c.mu.Unlock()
		log.Printf("[COORD] User %d queued for matchmaking", u.ID)
		return nil, nil
	}

	opponent := c.queue[0]
	c.queue = c.queue[1:]

	paddleRatio, duration, ballSpeed := 0.3, 3, 1.0
	if c.cfg != nil {
		paddleRatio = c.cfg.DefaultPaddleRatio
		duration = c.cfg.DefaultGameDuration
		ballSpeed = c.cfg.DefaultBallSpeed
	}

	room := NewRoom(generateRoomID(), "", opponent, false,
		paddleRatio, duration, ballSpeed,
		c.broadcaster, c.users, c.recorder)
	c.rooms[room.ID] = room
	c.userToRoom[opponent.ID] = room.ID
	c.userToRoom[u.ID] = room.ID
	c.mu.Unlock()

	if err := room.Join(u); err != nil {
		log.Printf("[COORD] Matchmaking join failed for user %d: %v", u.ID, err)
	}

	log.Printf("[COORD] Matched users %d and %d into room %s", opponent.ID, u.ID, room.ID)
	c.saveRoomSnapshot(room)
	return room, nil
}

// LeaveQueue removes a waiting user from the matchmaking queue.
func (c *Coordinator) LeaveQueue(userID int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.removeFromQueueLocked(userID)
}

// QueueLength returns the number of users waiting for a match.
func (c *Coordinator) QueueLength() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.queue)
}

func (c *Coordinator) removeFromQueueLocked(userID int) bool {
	for i, waiting := range c.queue {
		if waiting.ID == userID {
			c.queue = append(c.queue[:i], c.queue[i+1:]...)
			return true
		}
	}
	return false
}

// destroyRoom drops the room and every index entry pointing at it.
func (c *Coordinator) destroyRoom(roomID string) {
	c.mu.Lock()
	room, exists := c.rooms[roomID]
	if exists {
		delete(c.rooms, roomID)
		for _, p := range room.PlayerList() {
			if c.userToRoom[p.ID] == roomID {
				delete(c.userToRoom, p.ID)
			}
		}
	}
	c.mu.Unlock()

	if exists {
		log.Printf("[COORD] Room %s destroyed", roomID)
		c.deleteRoomSnapshot(roomID)
	}
}

// saveRoomSnapshot caches the room state in Redis, best-effort. Rooms are
// process-lifetime state; the cache only serves cross-instance reads.
func (c *Coordinator) saveRoomSnapshot(room *Room) {
	if c.rdb == nil {
		return
	}

	ttl := time.Hour
	if c.cfg != nil && c.cfg.RoomSnapshotTTLMin > 0 {
		ttl = time.Duration(c.cfg.RoomSnapshotTTLMin) * time.Minute
	}

	data, err := json.Marshal(room.Snapshot())
	if err != nil {
		log.Printf("[COORD] Failed to marshal room %s snapshot: %v", room.ID, err)
		return
	}
	if err := c.rdb.SetEx(context.Background(), "room:"+room.ID+":state", data, ttl).Err(); err != nil {
		log.Printf("[COORD] Failed to cache room %s snapshot: %v", room.ID, err)
	}
}

func (c *Coordinator) deleteRoomSnapshot(roomID string) {
	if c.rdb == nil {
		return
	}
	if err := c.rdb.Del(context.Background(), "room:"+roomID+":state").Err(); err != nil {
		log.Printf("[COORD] Failed to drop room %s snapshot: %v", roomID, err)
	}
}

// LoadRoomSnapshot reads a cached room snapshot from Redis. Used by HTTP
// reads when the room lives on another instance.
func (c *Coordinator) LoadRoomSnapshot(roomID string) (*RoomSnapshot, error) {
	if c.rdb == nil {
		return nil, ErrRoomNotFound
	}

	data, err := c.rdb.Get(context.Background(), "room:"+roomID+":state").Result()
	if err == redis.Nil {
		return nil, ErrRoomNotFound
	}
	if err != nil {
		return nil, err
	}

	var snapshot RoomSnapshot
	if err := json.Unmarshal([]byte(data), &snapshot); err != nil {
		return nil, err
	}
	return &snapshot, nil
}

// StartRoomReaper periodically destroys lobbies idle beyond the configured
// age and publishes a room_closed event for the websocket bridge.
func (c *Coordinator) StartRoomReaper(ctx context.Context) {
	poll := 60 * time.Second
	idle := 30 * time.Minute
	if c.cfg != nil {
		if c.cfg.ReaperPollSeconds > 0 {
			poll = time.Duration(c.cfg.ReaperPollSeconds) * time.Second
		}
		if c.cfg.RoomIdleMinutes > 0 {
			idle = time.Duration(c.cfg.RoomIdleMinutes) * time.Minute
		}
	}

	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	log.Printf("[REAPER] Room reaper started (poll=%v idle=%v)", poll, idle)

	for {
		select {
		case <-ctx.Done():
			log.Printf("[REAPER] Room reaper stopped")
			return
		case <-ticker.C:
			c.reapIdleRooms(idle)
		}
	}
}

func (c *Coordinator) reapIdleRooms(maxIdle time.Duration) {
	cutoff := time.Now().Add(-maxIdle)

	c.mu.RLock()
	var stale []*Room
	for _, room := range c.rooms {
		if room.Status() != StatusInGame && room.LastActivity().Before(cutoff) {
			stale = append(stale, room)
		}
	}
	c.mu.RUnlock()

	for _, room := range stale {
		// Re-check: the room may have gone in-game since the scan.
		if room.Status() == StatusInGame {
			continue
		}
		log.Printf("[REAPER] Destroying idle room %s", room.ID)
		c.destroyRoom(room.ID)
		c.publishRoomClosed(room.ID)
	}
}

// publishRoomClosed announces a reaped room on the room_events channel so
// the websocket layer (on any instance) can notify subscribed clients.
func (c *Coordinator) publishRoomClosed(roomID string) {
	if c.rdb == nil {
		return
	}
	payload, _ := json.Marshal(map[string]interface{}{
		"type":    "room_closed",
		"room_id": roomID,
		"message": "Room closed due to inactivity",
	})
	if n, err := c.rdb.Publish(context.Background(), "room_events", payload).Result(); err != nil {
		log.Printf("[REAPER] publish room_closed failed: room=%s err=%v", roomID, err)
	} else {
		log.Printf("[REAPER] published room_closed: room=%s subscribers=%d", roomID, n)
	}
}
