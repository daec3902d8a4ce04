package game

import (
	"math/rand"
	"time"
)

// PhysicsEngine advances one match's state tick by tick. It has no
// concurrency of its own: CalculateFrame is called synchronously from the
// session loop, so a single tick is atomic with respect to inbound input.
type PhysicsEngine struct {
	metrics Metrics
	rng     *rand.Rand

	// serveDir is the Z direction of the next serve, toward the defender
	// who lost the last exchange. ±1, never 0.
	serveDir float64
}

// NewPhysicsEngine creates an engine bound to immutable session metrics.
func NewPhysicsEngine(metrics Metrics) *PhysicsEngine {
	e := &PhysicsEngine{
		metrics: metrics,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	e.serveDir = e.randomDirection()
	return e
}

func (e *PhysicsEngine) randomDirection() float64 {
	if e.rng.Intn(2) == 0 {
		return -1
	}
	return 1
}

// CalculateFrame advances the ball by one tick: deferred serve, integration,
// wall bounce, paddle bounce, scoring. Collision rules run in that order.
func (e *PhysicsEngine) CalculateFrame(s *GameState) {
	now := time.Now()

	if s.Ball.Stopped {
		if s.Ball.resumeAt.IsZero() || now.Before(s.Ball.resumeAt) {
			return
		}
		e.serve(&s.Ball)
	}

	// Velocities are units per 60Hz frame; scale by the real tick delta.
	step := s.DeltaTime * VelocityFactor * e.metrics.BallSpeed
	s.Ball.X += s.Ball.VX * step
	s.Ball.Z += s.Ball.VZ * step

	// Flight arc is purely cosmetic and never affects collisions.
	s.Ball.Y = e.arcHeight(s.Ball.Z)

	e.collideWalls(&s.Ball)
	e.collidePaddle(s, 0)
	e.collidePaddle(s, 1)
	e.checkScore(s, now)
}

// serve relaunches a stopped ball with a randomized lateral component and a
// Z direction toward the defender who conceded the last point.
func (e *PhysicsEngine) serve(b *Ball) {
	b.Stopped = false
	b.resumeAt = time.Time{}
	b.VX = (e.rng.Float64() - 0.5)
	b.VY = 0
	b.VZ = e.serveDir
}

// arcHeight maps the depth coordinate to the cosmetic parabolic flight height.
func (e *PhysicsEngine) arcHeight(z float64) float64 {
	half := e.metrics.HalfDepth()
	n := z / half
	return MaxBallHeight * (1 - n*n)
}

// collideWalls bounces the ball off the side walls, inverting the X and Y
// velocity components.
func (e *PhysicsEngine) collideWalls(b *Ball) {
	limit := e.metrics.HalfWidth() + e.metrics.BallRadius/2
	if b.X > limit {
		b.X = limit
		b.VX = -b.VX
		b.VY = -b.VY
	} else if b.X < -limit {
		b.X = -limit
		b.VX = -b.VX
		b.VY = -b.VY
	}
}

// collidePaddle checks one paddle plane. A hit redirects the lateral velocity
// proportionally to the offset between ball and paddle center and flips the
// Z direction; there is no energy loss.
func (e *PhysicsEngine) collidePaddle(s *GameState, slot int) {
	plane := e.metrics.PaddlePlane()
	sign := slotSign(slot)

	// The ball must have crossed the paddle's depth threshold moving outward.
	if s.Ball.Z*sign < plane || s.Ball.VZ*sign <= 0 {
		return
	}

	paddle := s.Players[slot].Paddle
	activeHalf := e.metrics.FieldWidth * e.metrics.PaddleRatio * 0.6 / 2
	if s.Ball.X < paddle-activeHalf || s.Ball.X > paddle+activeHalf {
		return
	}

	s.Ball.VX = (s.Ball.X - paddle) / 5
	s.Ball.VZ = -s.Ball.VZ
	s.Ball.Z = plane * sign
}

// checkScore awards a point to the defending side's opponent once the ball
// passes beyond a paddle plane, then parks the ball for the deferred serve.
func (e *PhysicsEngine) checkScore(s *GameState, now time.Time) {
	plane := e.metrics.PaddlePlane()

	var loser int
	switch {
	case s.Ball.Z < -plane:
		loser = 0
	case s.Ball.Z > plane:
		loser = 1
	default:
		return
	}

	winner := 1 - loser
	s.Players[winner].Score++

	// Reset to the launch pose; the serve resumes after the fixed pause,
	// toward the player who lost the exchange.
	e.serveDir = slotSign(loser)
	s.Ball = Ball{
		Y:        e.arcHeight(0),
		Stopped:  true,
		resumeAt: now.Add(ServePause),
	}
}

// UpdatePaddlePosition maps a normalized input in [0,1] onto the paddle's
// playable lateral range. Out-of-range input is clamped. Slot 1 faces the
// opposite direction and receives mirrored input.
func (e *PhysicsEngine) UpdatePaddlePosition(s *GameState, normalized float64, slot int) {
	if slot < 0 || slot > 1 {
		return
	}
	if normalized < 0 {
		normalized = 0
	} else if normalized > 1 {
		normalized = 1
	}
	if slot == 1 {
		normalized = 1 - normalized
	}

	halfPaddle := e.metrics.PaddleWidth() / 2
	min := -e.metrics.HalfWidth() + halfPaddle
	max := e.metrics.HalfWidth() - halfPaddle
	s.Players[slot].Paddle = min + normalized*(max-min)
}

// slotSign returns the Z sign of the plane a slot defends.
func slotSign(slot int) float64 {
	if slot == 0 {
		return -1
	}
	return 1
}
