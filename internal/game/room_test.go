package game

import (
	"testing"
	"time"
)

func TestRoomFillsAtTwoPlayers(t *testing.T) {
	b := &fakeBroadcaster{}
	room := newTestRoom(t, b, newFakeUserStore(), &fakeRecorder{}, 1)

	if room.Status() != StatusOpen {
		t.Fatalf("new room should be OPEN, got %s", room.Status())
	}

	if err := room.Join(Player{ID: 2, Username: "bob"}); err != nil {
		t.Fatalf("second join failed: %v", err)
	}
	if room.Status() != StatusFull {
		t.Errorf("room should be FULL at two players, got %s", room.Status())
	}

	if err := room.Join(Player{ID: 3, Username: "carol"}); err != ErrRoomFull {
		t.Errorf("third join should be rejected with ErrRoomFull, got %v", err)
	}
}

func TestRoomRejectsDuplicateJoin(t *testing.T) {
	b := &fakeBroadcaster{}
	room := newTestRoom(t, b, newFakeUserStore(), &fakeRecorder{}, 1)

	if err := room.Join(Player{ID: 1, Username: "alice"}); err != ErrAlreadyInRoom {
		t.Errorf("owner rejoining should fail with ErrAlreadyInRoom, got %v", err)
	}
}

func TestRoomDefaultName(t *testing.T) {
	b := &fakeBroadcaster{}
	room := NewRoom("room_x", "", Player{ID: 1, Username: "alice"}, false,
		0.3, 3, 1.0, b, newFakeUserStore(), &fakeRecorder{})

	if room.Name != "alice's room" {
		t.Errorf("unnamed room should default to the owner's name, got %q", room.Name)
	}
}

func TestOwnerLeaveTransfersOwnershipAndRenames(t *testing.T) {
	b := &fakeBroadcaster{}
	room := newTestRoom(t, b, newFakeUserStore(), &fakeRecorder{}, 2)

	empty, err := room.Leave(1)
	if err != nil {
		t.Fatalf("leave failed: %v", err)
	}
	if empty {
		t.Fatal("room with a remaining player should not report empty")
	}

	if room.Owner.ID != 2 {
		t.Errorf("ownership should transfer to the remaining player, got owner %d", room.Owner.ID)
	}
	if room.Name != "bob's room" {
		t.Errorf("room should be renamed for the new owner, got %q", room.Name)
	}
	if room.Status() != StatusOpen {
		t.Errorf("room should revert to OPEN after a leave, got %s", room.Status())
	}
}

func TestLastLeaveReportsEmpty(t *testing.T) {
	b := &fakeBroadcaster{}
	room := newTestRoom(t, b, newFakeUserStore(), &fakeRecorder{}, 1)

	empty, err := room.Leave(1)
	if err != nil {
		t.Fatalf("leave failed: %v", err)
	}
	if !empty {
		t.Error("last leave should report the room as empty")
	}
}

func TestLeaveRequiresMembership(t *testing.T) {
	b := &fakeBroadcaster{}
	room := newTestRoom(t, b, newFakeUserStore(), &fakeRecorder{}, 1)

	if _, err := room.Leave(99); err != ErrNotInRoom {
		t.Errorf("expected ErrNotInRoom, got %v", err)
	}
}

func TestUpdateMergesPartialState(t *testing.T) {
	b := &fakeBroadcaster{}
	room := newTestRoom(t, b, newFakeUserStore(), &fakeRecorder{}, 1)
	before := b.count("room:update")

	name := "grudge match"
	private := true
	room.Update(RoomUpdate{Name: &name, IsPrivate: &private})

	if room.Name != "grudge match" || !room.IsPrivate {
		t.Errorf("partial update should merge fields, got %q private=%v", room.Name, room.IsPrivate)
	}
	if room.Status() != StatusOpen {
		t.Errorf("untouched fields must survive the merge, got %s", room.Status())
	}
	if b.count("room:update") != before+1 {
		t.Error("update should re-broadcast the room snapshot")
	}
}

func TestStartGameRequiresTwoPlayers(t *testing.T) {
	b := &fakeBroadcaster{}
	room := newTestRoom(t, b, newFakeUserStore(), &fakeRecorder{}, 1)

	if err := room.StartGame(); err != ErrRoomNotFull {
		t.Errorf("starting an OPEN room should fail with ErrRoomNotFull, got %v", err)
	}
}

func TestStartGameLifecycle(t *testing.T) {
	b := &fakeBroadcaster{}
	users := newFakeUserStore()
	room := newTestRoom(t, b, users, &fakeRecorder{}, 2)

	if err := room.StartGame(); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if room.Status() != StatusInGame {
		t.Fatalf("room should be INGAME after start, got %s", room.Status())
	}
	session := room.Session()
	if session == nil {
		t.Fatal("an INGAME room must carry a session")
	}
	if users.statsFor(1).Status != UserInGame || users.statsFor(2).Status != UserInGame {
		t.Error("both players should be marked in-game")
	}

	if err := room.StartGame(); err != ErrRoomInGame {
		t.Errorf("starting twice should fail with ErrRoomInGame, got %v", err)
	}
	if err := room.Join(Player{ID: 3, Username: "carol"}); err != ErrRoomInGame {
		t.Errorf("joining mid-game should fail with ErrRoomInGame, got %v", err)
	}

	// Wind the session down so the test leaves no loops behind.
	session.Surrender(1)
	waitForSession(t, session)

	if room.Status() != StatusFull {
		t.Errorf("room should reset to FULL with both players present, got %s", room.Status())
	}
	if room.Session() != nil {
		t.Error("session reference should be cleared after the game")
	}
}

func TestLeaveDuringGameSurrendersAndRemoves(t *testing.T) {
	b := &fakeBroadcaster{}
	users := newFakeUserStore()
	rec := &fakeRecorder{}
	room := newTestRoom(t, b, users, rec, 2)

	if err := room.StartGame(); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	session := room.Session()

	if _, err := room.Leave(2); err != nil {
		t.Fatalf("leave failed: %v", err)
	}
	waitForSession(t, session)

	if room.HasPlayer(2) {
		t.Error("departed player should be removed from the room")
	}
	if room.Status() != StatusOpen {
		t.Errorf("room with one remaining player should reset to OPEN, got %s", room.Status())
	}
	saved := rec.matches()
	if len(saved) != 1 {
		t.Fatalf("expected 1 saved match, got %d", len(saved))
	}
	if saved[0].ScoreB != 0 {
		t.Errorf("mid-game leaver's score should be zeroed, got %d", saved[0].ScoreB)
	}
}

func TestStartGameReturnsPromptly(t *testing.T) {
	b := &fakeBroadcaster{}
	users := newFakeUserStore()
	rec := &fakeRecorder{}
	room := newTestRoom(t, b, users, rec, 2)

	done := make(chan error, 1)
	go func() { done <- room.StartGame() }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("start failed: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("StartGame did not return; session setup is blocking on the room lock")
	}

	session := room.Session()
	session.Surrender(1)
	waitForSession(t, session)
}
