package game

import (
	"math"
	"testing"
	"time"
)

func newTestEngine() (*PhysicsEngine, *GameState) {
	metrics := NewMetrics(0.3, 3, 1.0)
	engine := NewPhysicsEngine(metrics)
	state := &GameState{DeltaTime: 1.0 / PhysicsTickRate}
	return engine, state
}

func TestPaddleInputMapsOntoPlayableRange(t *testing.T) {
	engine, state := newTestEngine()
	halfPaddle := engine.metrics.PaddleWidth() / 2
	min := -engine.metrics.HalfWidth() + halfPaddle
	max := engine.metrics.HalfWidth() - halfPaddle

	engine.UpdatePaddlePosition(state, 0, 0)
	if state.Players[0].Paddle != min {
		t.Errorf("input 0 should map to %.2f, got %.2f", min, state.Players[0].Paddle)
	}

	engine.UpdatePaddlePosition(state, 1, 0)
	if state.Players[0].Paddle != max {
		t.Errorf("input 1 should map to %.2f, got %.2f", max, state.Players[0].Paddle)
	}

	engine.UpdatePaddlePosition(state, 0.5, 0)
	if math.Abs(state.Players[0].Paddle) > 1e-9 {
		t.Errorf("input 0.5 should center the paddle, got %.2f", state.Players[0].Paddle)
	}
}

func TestPaddleInputClampedOutsideUnitRange(t *testing.T) {
	engine, state := newTestEngine()
	halfPaddle := engine.metrics.PaddleWidth() / 2
	min := -engine.metrics.HalfWidth() + halfPaddle
	max := engine.metrics.HalfWidth() - halfPaddle

	engine.UpdatePaddlePosition(state, -3.5, 0)
	if state.Players[0].Paddle != min {
		t.Errorf("negative input should clamp to %.2f, got %.2f", min, state.Players[0].Paddle)
	}

	engine.UpdatePaddlePosition(state, 42, 0)
	if state.Players[0].Paddle != max {
		t.Errorf("oversized input should clamp to %.2f, got %.2f", max, state.Players[0].Paddle)
	}
}

func TestFarPlayerInputIsMirrored(t *testing.T) {
	engine, state := newTestEngine()

	engine.UpdatePaddlePosition(state, 0, 0)
	engine.UpdatePaddlePosition(state, 0, 1)
	if state.Players[0].Paddle != -state.Players[1].Paddle {
		t.Errorf("same input should mirror across slots: %.2f vs %.2f",
			state.Players[0].Paddle, state.Players[1].Paddle)
	}
}

func TestWallBounceInvertsLateralVelocity(t *testing.T) {
	engine, state := newTestEngine()
	limit := engine.metrics.HalfWidth() + engine.metrics.BallRadius/2

	state.Ball = Ball{X: engine.metrics.HalfWidth(), VX: 1, VZ: 0.1}
	engine.CalculateFrame(state)

	if state.Ball.VX >= 0 {
		t.Errorf("wall bounce should invert VX, got %.2f", state.Ball.VX)
	}
	if state.Ball.X > limit {
		t.Errorf("ball should be clamped inside the wall limit %.2f, got %.2f", limit, state.Ball.X)
	}
}

func TestPaddleHitRedirectsBall(t *testing.T) {
	engine, state := newTestEngine()
	plane := engine.metrics.PaddlePlane()

	// Near slot 1's plane, moving outward, paddle centered under the ball.
	state.Ball = Ball{X: 1, Z: plane - 0.5, VZ: 1}
	state.Players[1].Paddle = 0

	engine.CalculateFrame(state)

	if state.Ball.VZ >= 0 {
		t.Errorf("paddle hit should flip VZ, got %.2f", state.Ball.VZ)
	}
	if state.Ball.Z != plane {
		t.Errorf("ball should be re-seated on the paddle plane %.2f, got %.2f", plane, state.Ball.Z)
	}
	wantVX := (state.Ball.X - state.Players[1].Paddle) / 5
	if math.Abs(state.Ball.VX-wantVX) > 1e-9 {
		t.Errorf("redirect should be proportional to the offset: want %.3f got %.3f", wantVX, state.Ball.VX)
	}
}

func TestMissedBallScoresOpponent(t *testing.T) {
	engine, state := newTestEngine()
	half := engine.metrics.HalfDepth()

	// Past slot 1's plane, far away from the paddle: slot 0 scores.
	state.Ball = Ball{X: 10, Z: half - 0.5, VZ: 1}
	state.Players[1].Paddle = -10

	engine.CalculateFrame(state)

	if state.Players[0].Score != 1 {
		t.Errorf("opposite slot should score, got %d", state.Players[0].Score)
	}
	if state.Players[1].Score != 0 {
		t.Errorf("conceding slot should not score, got %d", state.Players[1].Score)
	}
	if !state.Ball.Stopped {
		t.Error("ball should be parked after a point")
	}
	if state.Ball.X != 0 || state.Ball.Z != 0 {
		t.Errorf("ball should reset to center, got (%.2f, %.2f)", state.Ball.X, state.Ball.Z)
	}
	if state.Ball.resumeAt.IsZero() {
		t.Error("serve resume time should be scheduled")
	}
}

func TestBallScoresAtPaddlePlaneNotBackWall(t *testing.T) {
	engine, state := newTestEngine()
	plane := engine.metrics.PaddlePlane()

	// The ball ends this frame between the paddle plane and the back wall.
	// Crossing the plane already decides the point; the ball must not travel
	// on toward the wall with the defender beaten.
	state.Ball = Ball{X: 10, Z: plane - 0.4, VZ: 1}
	state.Players[1].Paddle = -10

	engine.CalculateFrame(state)

	if state.Players[0].Score != 1 {
		t.Errorf("crossing the paddle plane should score, got %d", state.Players[0].Score)
	}
	if !state.Ball.Stopped {
		t.Error("ball should be parked once the point is decided")
	}
}

func TestServeLaunchesWithUnitDepthVelocity(t *testing.T) {
	engine, state := newTestEngine()

	for i := 0; i < 20; i++ {
		state.Ball = Ball{Stopped: true, resumeAt: time.Now().Add(-time.Millisecond)}
		engine.CalculateFrame(state)

		if state.Ball.Stopped {
			t.Fatal("ball should launch once the serve pause has elapsed")
		}
		if math.Abs(state.Ball.VZ) != 1 {
			t.Fatalf("serve VZ must be ±1, got %.2f", state.Ball.VZ)
		}
	}
}

func TestServeTargetsLastLoser(t *testing.T) {
	engine, state := newTestEngine()
	half := engine.metrics.HalfDepth()

	// Slot 1 concedes; the next serve must travel toward slot 1's plane.
	state.Ball = Ball{X: 10, Z: half + 0.1, VZ: 1}
	state.Players[1].Paddle = -10
	engine.CalculateFrame(state)

	state.Ball.resumeAt = time.Now().Add(-time.Millisecond)
	engine.CalculateFrame(state)

	if state.Ball.VZ != 1 {
		t.Errorf("serve should travel toward the conceding slot, got VZ=%.2f", state.Ball.VZ)
	}
}

func TestBallHeldDuringServePause(t *testing.T) {
	engine, state := newTestEngine()

	state.Ball = Ball{Stopped: true, resumeAt: time.Now().Add(time.Hour)}
	engine.CalculateFrame(state)

	if !state.Ball.Stopped {
		t.Error("ball should stay parked until the serve pause elapses")
	}
	if state.Ball.X != 0 || state.Ball.Z != 0 {
		t.Errorf("parked ball should not move, got (%.2f, %.2f)", state.Ball.X, state.Ball.Z)
	}
}
