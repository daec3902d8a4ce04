package game

import (
	"sync"
	"testing"
	"time"
)

// In-memory collaborators shared by the session, room, and coordinator tests.

type recordedEvent struct {
	RoomID  string
	Event   string
	Payload interface{}
}

type fakeBroadcaster struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (f *fakeBroadcaster) Emit(roomID, event string, payload interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, recordedEvent{RoomID: roomID, Event: event, Payload: payload})
}

func (f *fakeBroadcaster) count(event string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, e := range f.events {
		if e.Event == event {
			n++
		}
	}
	return n
}

type fakeUserStore struct {
	mu      sync.Mutex
	stats   map[int]*UserStats
	updates map[int][]map[string]interface{}
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{
		stats:   make(map[int]*UserStats),
		updates: make(map[int][]map[string]interface{}),
	}
}

func (f *fakeUserStore) FindUserWithStats(userID int) (*UserStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.stats[userID]; ok {
		copied := *s
		return &copied, nil
	}
	return &UserStats{}, nil
}

func (f *fakeUserStore) UpdateUser(userID int, fields map[string]interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates[userID] = append(f.updates[userID], fields)

	s, ok := f.stats[userID]
	if !ok {
		s = &UserStats{}
		f.stats[userID] = s
	}
	if v, ok := fields["gamesPlayed"].(int); ok {
		s.GamesPlayed = v
	}
	if v, ok := fields["win"].(int); ok {
		s.Win = v
	}
	if v, ok := fields["loss"].(int); ok {
		s.Loss = v
	}
	if v, ok := fields["status"].(string); ok {
		s.Status = v
	}
	return nil
}

func (f *fakeUserStore) statsFor(userID int) UserStats {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.stats[userID]; ok {
		return *s
	}
	return UserStats{}
}

type fakeRecorder struct {
	mu    sync.Mutex
	saved []MatchRecord
}

func (f *fakeRecorder) SaveMatch(m MatchRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = append(f.saved, m)
	return nil
}

func (f *fakeRecorder) matches() []MatchRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]MatchRecord, len(f.saved))
	copy(out, f.saved)
	return out
}

func newTestRoom(t *testing.T, b Broadcaster, users UserStore, rec MatchRecorder, playerCount int) *Room {
	t.Helper()
	room := NewRoom("room_test", "", Player{ID: 1, Username: "alice"}, false,
		0.3, 1, 1.0, b, users, rec)
	if playerCount > 1 {
		if err := room.Join(Player{ID: 2, Username: "bob"}); err != nil {
			t.Fatalf("join failed: %v", err)
		}
	}
	return room
}

func waitForSession(t *testing.T, session *GameSession) {
	t.Helper()
	select {
	case <-session.Done():
	case <-time.After(3 * time.Second):
		t.Fatal("session did not terminate in time")
	}
}

func TestSurrenderZeroesScoreAndEndsQuickly(t *testing.T) {
	b := &fakeBroadcaster{}
	users := newFakeUserStore()
	rec := &fakeRecorder{}
	room := newTestRoom(t, b, users, rec, 2)

	session := NewGameSession(room, room.PlayerList(), b, users, rec, 0.3, 1, 1.0)
	session.state.Players[0].Score = 3
	session.Start()

	session.Surrender(1)
	waitForSession(t, session)

	saved := rec.matches()
	if len(saved) != 1 {
		t.Fatalf("expected 1 saved match, got %d", len(saved))
	}
	if saved[0].ScoreA != 0 {
		t.Errorf("surrendering player's score should be zeroed, got %d", saved[0].ScoreA)
	}
	if users.statsFor(1).Status != UserOnline || users.statsFor(2).Status != UserOnline {
		t.Error("both players should revert to online after the session")
	}
}

func TestDrawCreditsNeitherPlayer(t *testing.T) {
	b := &fakeBroadcaster{}
	users := newFakeUserStore()
	rec := &fakeRecorder{}
	room := newTestRoom(t, b, users, rec, 2)

	session := NewGameSession(room, room.PlayerList(), b, users, rec, 0.3, 1, 1.0)
	session.Start()

	// 0:0 surrender ends the match as a draw.
	session.Surrender(2)
	waitForSession(t, session)

	for _, id := range []int{1, 2} {
		s := users.statsFor(id)
		if s.GamesPlayed != 1 {
			t.Errorf("user %d gamesPlayed should be 1, got %d", id, s.GamesPlayed)
		}
		if s.Win != 0 || s.Loss != 0 {
			t.Errorf("draw should credit neither win nor loss for user %d, got %d/%d", id, s.Win, s.Loss)
		}
	}
	if room.Status() != StatusFull {
		t.Errorf("room with both players should reset to FULL, got %s", room.Status())
	}
}

func TestSessionEndsExactlyOnce(t *testing.T) {
	b := &fakeBroadcaster{}
	users := newFakeUserStore()
	rec := &fakeRecorder{}
	room := newTestRoom(t, b, users, rec, 2)

	session := NewGameSession(room, room.PlayerList(), b, users, rec, 0.3, 1, 1.0)
	session.Start()

	session.Surrender(1)
	session.Surrender(2)
	waitForSession(t, session)

	// Give the loops a moment to fully wind down before counting.
	time.Sleep(100 * time.Millisecond)

	if n := b.count("game:end"); n != 1 {
		t.Errorf("expected exactly one game:end event, got %d", n)
	}
	if n := len(rec.matches()); n != 1 {
		t.Errorf("expected exactly one saved match, got %d", n)
	}
}

func TestBotGameNotPersisted(t *testing.T) {
	b := &fakeBroadcaster{}
	users := newFakeUserStore()
	rec := &fakeRecorder{}
	room := newTestRoom(t, b, users, rec, 1)

	session := NewGameSession(room, room.PlayerList(), b, users, rec, 0.3, 1, 1.0)
	if !session.state.Players[1].IsBot {
		t.Fatal("lone player should get a bot opponent in slot 1")
	}
	session.Start()

	session.Surrender(1)
	waitForSession(t, session)

	if len(rec.matches()) != 0 {
		t.Errorf("bot games must not be persisted, got %d matches", len(rec.matches()))
	}
	if room.Status() != StatusOpen {
		t.Errorf("single-player room should reset to OPEN, got %s", room.Status())
	}
}

func TestPaddleCommandsApplyDuringSession(t *testing.T) {
	b := &fakeBroadcaster{}
	users := newFakeUserStore()
	rec := &fakeRecorder{}
	room := newTestRoom(t, b, users, rec, 2)

	session := NewGameSession(room, room.PlayerList(), b, users, rec, 0.3, 1, 1.0)
	session.Start()

	session.UpdatePaddle(1, 1.0)

	deadline := time.Now().Add(time.Second)
	max := session.metrics.HalfWidth() - session.metrics.PaddleWidth()/2
	for time.Now().Before(deadline) {
		if session.Snapshot().Players[0].Paddle == max {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if got := session.Snapshot().Players[0].Paddle; got != max {
		t.Errorf("paddle input should be applied by the session loop: want %.2f got %.2f", max, got)
	}

	session.Surrender(1)
	waitForSession(t, session)
}

func TestSessionEndsAtDeadline(t *testing.T) {
	b := &fakeBroadcaster{}
	users := newFakeUserStore()
	rec := &fakeRecorder{}
	room := newTestRoom(t, b, users, rec, 2)

	session := NewGameSession(room, room.PlayerList(), b, users, rec, 0.3, 1, 1.0)
	session.metrics.Duration = 300 * time.Millisecond

	started := time.Now()
	session.Start()
	waitForSession(t, session)

	if elapsed := time.Since(started); elapsed > 2*time.Second {
		t.Fatalf("session outlived its deadline by far: ran %v", elapsed)
	}
	if b.count("game:end") != 1 {
		t.Errorf("expected exactly 1 game:end, got %d", b.count("game:end"))
	}
	for _, id := range []int{1, 2} {
		s := users.statsFor(id)
		if s.Win != 0 || s.Loss != 0 {
			t.Errorf("a 0:0 timeout is a draw; user %d got win=%d loss=%d", id, s.Win, s.Loss)
		}
		if s.Status != UserOnline {
			t.Errorf("user %d should be back online, got %q", id, s.Status)
		}
	}
	if room.Status() != StatusFull {
		t.Errorf("room with both players should reset to FULL, got %s", room.Status())
	}
}
