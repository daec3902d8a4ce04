package game

import (
	"log"
	"sync"
	"time"
)

// Broadcaster delivers an event to every transport endpoint joined to a room.
type Broadcaster interface {
	Emit(roomID, event string, payload interface{})
}

// UserStats mirrors the persisted statistics of one user.
type UserStats struct {
	GamesPlayed      int     `json:"gamesPlayed"`
	Win              int     `json:"win"`
	Loss             int     `json:"loss"`
	WinRate          float64 `json:"winRate"`
	PointsScored     int     `json:"pointsScored"`
	PointsConceded   int     `json:"pointsConceded"`
	PointsDifference int     `json:"pointsDifference"`
	Status           string  `json:"status"`
}

// UserStore is the user/stats collaborator.
type UserStore interface {
	FindUserWithStats(userID int) (*UserStats, error)
	UpdateUser(userID int, fields map[string]interface{}) error
}

// MatchRecord is the persisted result of a finished match between real players.
type MatchRecord struct {
	PlayerA  int       `json:"playerA"`
	PlayerB  int       `json:"playerB"`
	ScoreA   int       `json:"scoreA"`
	ScoreB   int       `json:"scoreB"`
	PlayedAt time.Time `json:"playedAt"`
}

// MatchRecorder persists a completed match. One call per finished game.
type MatchRecorder interface {
	SaveMatch(m MatchRecord) error
}

type sessionCmd struct {
	surrender bool
	userID    int
	position  float64
}

// GameSession owns one room's match: the fixed-tick physics loop, the
// broadcast loop, inbound input, and end-of-game reporting. All state
// mutation happens inside the run goroutine; commands arrive through a
// channel and are applied at tick boundaries.
type GameSession struct {
	roomID  string
	room    *Room
	metrics Metrics
	engine  *PhysicsEngine

	broadcaster Broadcaster
	users       UserStore
	recorder    MatchRecorder

	mu    sync.RWMutex
	state *GameState

	cmds    chan sessionCmd
	done    chan struct{}
	endOnce sync.Once
}

// NewGameSession builds the initial state for the given players. A lone
// player gets a synthesized bot opponent in slot 1. The caller passes the
// player list explicitly; the room may be mid-transition under its own lock
// while the session is constructed.
func NewGameSession(room *Room, players []Player, b Broadcaster, users UserStore, rec MatchRecorder,
	paddleRatio float64, durationMinutes int, ballSpeed float64) *GameSession {

	metrics := NewMetrics(paddleRatio, durationMinutes, ballSpeed)

	state := &GameState{}
	for i := 0; i < 2; i++ {
		if i < len(players) {
			state.Players[i] = PlayerSlot{UserID: players[i].ID, Username: players[i].Username}
		} else {
			state.Players[i] = PlayerSlot{UserID: BotUserID, Username: "bot", IsBot: true}
		}
	}
	state.Ball = Ball{Stopped: true, resumeAt: time.Now().Add(PreRoll + ServePause)}

	return &GameSession{
		roomID:      room.ID,
		room:        room,
		metrics:     metrics,
		engine:      NewPhysicsEngine(metrics),
		broadcaster: b,
		users:       users,
		recorder:    rec,
		state:       state,
		cmds:        make(chan sessionCmd, 64),
		done:        make(chan struct{}),
	}
}

// Metrics returns the session's immutable constants.
func (gs *GameSession) Metrics() Metrics { return gs.metrics }

// Snapshot returns a copy of the current game state.
func (gs *GameSession) Snapshot() GameState {
	gs.mu.RLock()
	defer gs.mu.RUnlock()
	return *gs.state
}

// Done is closed once the session has fully terminated.
func (gs *GameSession) Done() <-chan struct{} { return gs.done }

// Start records the session window and launches the owning goroutine. The
// physics cadence begins after the pre-roll countdown; broadcasting starts
// immediately so clients see the countdown state.
func (gs *GameSession) Start() {
	now := time.Now()
	gs.mu.Lock()
	gs.state.StartTime = now
	gs.state.EndTime = now.Add(gs.metrics.Duration)
	gs.mu.Unlock()

	log.Printf("[GAME] Session started for room %s (duration=%v)", gs.roomID, gs.metrics.Duration)
	go gs.run()
}

func (gs *GameSession) run() {
	preroll := time.NewTimer(PreRoll)
	defer preroll.Stop()

	broadcast := time.NewTicker(gs.metrics.BroadcastInterval)
	defer broadcast.Stop()

	var physics *time.Ticker
	var physicsC <-chan time.Time
	last := time.Now()

	defer func() {
		if physics != nil {
			physics.Stop()
		}
		gs.finish()
	}()

	for {
		select {
		case <-preroll.C:
			physics = time.NewTicker(gs.metrics.TickInterval)
			physicsC = physics.C
			last = time.Now()

		case now := <-physicsC:
			gs.mu.Lock()
			gs.state.DeltaTime = now.Sub(last).Seconds()
			last = now
			gs.engine.CalculateFrame(gs.state)
			expired := !now.Before(gs.state.EndTime)
			gs.mu.Unlock()
			if expired {
				return
			}

		case now := <-broadcast.C:
			gs.broadcastState(now)
			gs.mu.RLock()
			expired := !now.Before(gs.state.EndTime)
			gs.mu.RUnlock()
			if expired {
				return
			}

		case cmd := <-gs.cmds:
			gs.apply(cmd)
		}
	}
}

// apply handles one inbound command at a tick boundary.
func (gs *GameSession) apply(cmd sessionCmd) {
	gs.mu.Lock()
	defer gs.mu.Unlock()

	slot := gs.state.SlotFor(cmd.userID)
	if slot < 0 {
		return
	}

	if cmd.surrender {
		gs.state.Players[slot].Score = 0
		gs.state.EndTime = time.Now().Add(3 * gs.metrics.TickInterval)
		log.Printf("[GAME] User %d surrendered in room %s", cmd.userID, gs.roomID)
		return
	}

	gs.engine.UpdatePaddlePosition(gs.state, cmd.position, slot)
}

// UpdatePaddle forwards a normalized paddle position for the given user.
// Input is dropped rather than blocking the caller when the session is busy.
func (gs *GameSession) UpdatePaddle(userID int, normalized float64) {
	select {
	case gs.cmds <- sessionCmd{userID: userID, position: normalized}:
	case <-gs.done:
	default:
	}
}

// Surrender zeroes the surrendering player's score and collapses the deadline
// so the loops wind down within a few ticks. Sole abnormal-termination path.
func (gs *GameSession) Surrender(userID int) {
	select {
	case gs.cmds <- sessionCmd{surrender: true, userID: userID}:
	case <-gs.done:
	}
}

func (gs *GameSession) broadcastState(now time.Time) {
	gs.mu.RLock()
	state := *gs.state
	remaining := state.Remaining(now)
	gs.mu.RUnlock()

	gs.broadcaster.Emit(gs.roomID, "game:state", map[string]interface{}{
		"ball":      state.Ball,
		"players":   state.Players,
		"remaining": remaining.Seconds(),
	})
}

// finish runs the end-of-game sequence exactly once: terminal event, stats,
// match record, status reversion, room reset. Persistence failures are
// logged and never block the room reset.
func (gs *GameSession) finish() {
	gs.endOnce.Do(func() {
		gs.mu.RLock()
		state := *gs.state
		gs.mu.RUnlock()

		gs.broadcaster.Emit(gs.roomID, "game:end", map[string]interface{}{
			"roomId": gs.roomID,
		})

		gs.reportResult(state)

		for _, p := range state.Players {
			if p.IsBot {
				continue
			}
			if err := gs.users.UpdateUser(p.UserID, map[string]interface{}{"status": UserOnline}); err != nil {
				log.Printf("[GAME] Failed to reset status for user %d: %v", p.UserID, err)
			}
		}

		gs.room.ResetAfterGame()
		close(gs.done)
		log.Printf("[GAME] Session ended for room %s (%d:%d)",
			gs.roomID, state.Players[0].Score, state.Players[1].Score)
	})
}

// reportResult updates both players' statistics from the score delta and
// persists the match unless the opponent is the bot.
func (gs *GameSession) reportResult(state GameState) {
	delta := state.Players[0].Score - state.Players[1].Score

	for i, p := range state.Players {
		if p.IsBot {
			continue
		}

		won := (i == 0 && delta > 0) || (i == 1 && delta < 0)
		lost := (i == 0 && delta < 0) || (i == 1 && delta > 0)
		opponent := state.Players[1-i]

		stats, err := gs.users.FindUserWithStats(p.UserID)
		if err != nil {
			log.Printf("[GAME] Failed to load stats for user %d: %v", p.UserID, err)
			continue
		}

		stats.GamesPlayed++
		if won {
			stats.Win++
		} else if lost {
			stats.Loss++
		}
		stats.WinRate = float64(stats.Win) / float64(stats.GamesPlayed)
		stats.PointsScored += p.Score
		stats.PointsConceded += opponent.Score
		stats.PointsDifference = stats.PointsScored - stats.PointsConceded

		err = gs.users.UpdateUser(p.UserID, map[string]interface{}{
			"gamesPlayed":      stats.GamesPlayed,
			"win":              stats.Win,
			"loss":             stats.Loss,
			"winRate":          stats.WinRate,
			"pointsScored":     stats.PointsScored,
			"pointsConceded":   stats.PointsConceded,
			"pointsDifference": stats.PointsDifference,
		})
		if err != nil {
			log.Printf("[GAME] Failed to update stats for user %d: %v", p.UserID, err)
		}
	}

	if state.Players[0].IsBot || state.Players[1].IsBot {
		return
	}

	err := gs.recorder.SaveMatch(MatchRecord{
		PlayerA:  state.Players[0].UserID,
		PlayerB:  state.Players[1].UserID,
		ScoreA:   state.Players[0].Score,
		ScoreB:   state.Players[1].Score,
		PlayedAt: time.Now(),
	})
	if err != nil {
		log.Printf("[GAME] Failed to save match for room %s: %v", gs.roomID, err)
	}
}
