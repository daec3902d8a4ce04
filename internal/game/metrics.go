package game

import "time"

// Field and engine constants. Velocities are expressed in units per 60Hz frame;
// position integration multiplies by the tick delta and VelocityFactor so the
// simulated speed is independent of the physics tick rate.
const (
	FieldWidth  = 30.0
	FieldDepth  = 40.0
	BallRadius  = 0.5
	PaddleDepth = 1.0 // distance from the field edge to the paddle plane

	VelocityFactor = 60.0

	PhysicsTickRate   = 50 // Hz
	BroadcastTickRate = 15 // Hz

	// Serve pause after a point and the pre-roll countdown before the
	// first tick. Both are part of the engine contract.
	ServePause = 2 * time.Second
	PreRoll    = 3 * time.Second

	// MaxBallHeight is the apex of the cosmetic flight arc.
	MaxBallHeight = 2.0
)

// Metrics holds the per-session constants derived from the room's tunables.
// Fixed at session construction; never mutated mid-session.
type Metrics struct {
	FieldWidth  float64
	FieldDepth  float64
	BallRadius  float64
	PaddleRatio float64
	PaddleDepth float64
	BallSpeed   float64
	Duration    time.Duration

	TickInterval      time.Duration
	BroadcastInterval time.Duration
}

// NewMetrics derives session metrics from room parameters.
// durationMinutes is the total game length; ballSpeed is a velocity multiplier.
func NewMetrics(paddleRatio float64, durationMinutes int, ballSpeed float64) Metrics {
	if paddleRatio <= 0 || paddleRatio > 1 {
		paddleRatio = 0.3
	}
	if ballSpeed <= 0 {
		ballSpeed = 1.0
	}
	if durationMinutes <= 0 {
		durationMinutes = 3
	}

	return Metrics{
		FieldWidth:        FieldWidth,
		FieldDepth:        FieldDepth,
		BallRadius:        BallRadius,
		PaddleRatio:       paddleRatio,
		PaddleDepth:       PaddleDepth,
		BallSpeed:         ballSpeed,
		Duration:          time.Duration(durationMinutes) * time.Minute,
		TickInterval:      time.Second / PhysicsTickRate,
		BroadcastInterval: time.Second / BroadcastTickRate,
	}
}

// HalfWidth returns half the lateral field size.
func (m Metrics) HalfWidth() float64 { return m.FieldWidth / 2 }

// HalfDepth returns half the field size along the play axis.
func (m Metrics) HalfDepth() float64 { return m.FieldDepth / 2 }

// PaddleWidth returns the full paddle width.
func (m Metrics) PaddleWidth() float64 { return m.FieldWidth * m.PaddleRatio }

// PaddlePlane returns the |z| coordinate of the paddle planes.
func (m Metrics) PaddlePlane() float64 { return m.HalfDepth() - m.PaddleDepth }
