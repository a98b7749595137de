// Package physics holds the pure kinematics for a match: ball motion,
// wall and paddle collisions, and goal detection. Nothing here keeps
// state between calls; randomness comes in through random.Random so
// tests can pin the bounce jitter.
package physics

import (
	"math"

	"github.com/mcoot/pongarena/internal/dependencies/random"
)

// Side identifies which end of the table a paddle defends
type Side int

const (
	SideLeft Side = iota
	SideRight
)

// Ball is the moving ball. Velocity is in table units per tick.
type Ball struct {
	X, Y   float64
	VX, VY float64
	Radius float64
}

// Speed returns the magnitude of the ball's velocity
func (b Ball) Speed() float64 {
	return math.Hypot(b.VX, b.VY)
}

// Rect is an axis-aligned rectangle anchored at its top-left corner
type Rect struct {
	X, Y          float64
	Width, Height float64
}

// Paddle is a participant's paddle
type Paddle struct {
	Rect
	Side Side
}

// CenterY returns the vertical center of the paddle
func (p Paddle) CenterY() float64 {
	return p.Y + p.Height/2
}

// ScoreResult reports which side, if any, scored this tick
type ScoreResult int

const (
	ScoreNone ScoreResult = iota
	// ScoreSide1 means the left participant scored (ball left the right edge)
	ScoreSide1
	// ScoreSide2 means the right participant scored (ball left the left edge)
	ScoreSide2
)

// Tuning holds the paddle-bounce parameters
type Tuning struct {
	MaxBounceAngle   float64 // radians from horizontal at the paddle tip
	BounceJitter     float64 // total width of the random angle perturbation
	MinVerticalRatio float64 // minimum |vy|/|vx| after a bounce
	SpeedIncrement   float64
	MaxSpeed         float64
}

// DefaultTuning returns the standard bounce parameters
func DefaultTuning() Tuning {
	return Tuning{
		MaxBounceAngle:   math.Pi / 2.5,
		BounceJitter:     math.Pi / 36,
		MinVerticalRatio: 0.2,
		SpeedIncrement:   0.5,
		MaxSpeed:         14,
	}
}

// AdvanceBall moves the ball along its velocity for dt ticks
func AdvanceBall(b *Ball, dt float64) {
	b.X += b.VX * dt
	b.Y += b.VY * dt
}

// ResolveWallCollision keeps the ball between the top and bottom walls.
// Calling it twice in a row changes nothing the second time.
func ResolveWallCollision(b *Ball, height float64) {
	if b.Y-b.Radius <= 0 {
		b.Y = b.Radius
		b.VY = math.Abs(b.VY)
	}
	if b.Y+b.Radius >= height {
		b.Y = height - b.Radius
		b.VY = -math.Abs(b.VY)
	}
}

// ResolvePaddleCollision bounces the ball off p if they overlap and the
// ball is travelling toward the paddle. It reports whether a hit occurred.
//
// The outgoing angle depends on where the ball struck relative to the
// paddle center, plus a small jitter. The new speed is the old speed plus
// the increment, capped at MaxSpeed but never lower than the old speed.
func ResolvePaddleCollision(b *Ball, p Paddle, tune Tuning, rnd random.Random) bool {
	if !CircleIntersectsRect(*b, p.Rect) {
		return false
	}
	if p.Side == SideLeft && b.VX > 0 || p.Side == SideRight && b.VX < 0 {
		return false
	}

	offset := (b.Y - p.CenterY()) / (p.Height / 2)
	offset = clamp(offset, -1, 1)

	angle := offset*tune.MaxBounceAngle + (rnd.Float64()-0.5)*tune.BounceJitter
	angle = clamp(angle, -tune.MaxBounceAngle, tune.MaxBounceAngle)

	dirX := math.Cos(angle)
	dirY := math.Sin(angle)
	if math.Abs(dirY) < tune.MinVerticalRatio*dirX {
		sign := 1.0
		if dirY < 0 || dirY == 0 && b.VY < 0 {
			sign = -1
		}
		dirY = sign * tune.MinVerticalRatio * dirX
	}
	norm := math.Hypot(dirX, dirY)
	dirX /= norm
	dirY /= norm

	oldSpeed := b.Speed()
	speed := math.Max(oldSpeed, math.Min(oldSpeed+tune.SpeedIncrement, tune.MaxSpeed))

	if p.Side == SideLeft {
		b.VX = dirX * speed
		b.X = p.X + p.Width + b.Radius
	} else {
		b.VX = -dirX * speed
		b.X = p.X - b.Radius
	}
	b.VY = dirY * speed
	return true
}

// DetectScore reports whether the ball has reached either goal line
func DetectScore(b Ball, width float64) ScoreResult {
	switch {
	case b.X-b.Radius <= 0:
		return ScoreSide2
	case b.X+b.Radius >= width:
		return ScoreSide1
	default:
		return ScoreNone
	}
}

// CircleIntersectsRect is an AABB test of the ball's bounding box against r
func CircleIntersectsRect(b Ball, r Rect) bool {
	return b.X+b.Radius >= r.X &&
		b.X-b.Radius <= r.X+r.Width &&
		b.Y+b.Radius >= r.Y &&
		b.Y-b.Radius <= r.Y+r.Height
}

// Overlaps reports whether two rectangles intersect
func Overlaps(a, b Rect) bool {
	return a.X < b.X+b.Width &&
		a.X+a.Width > b.X &&
		a.Y < b.Y+b.Height &&
		a.Y+a.Height > b.Y
}

// LaunchVelocity returns a velocity of the given speed pointing at angle
// radians from horizontal, toward the left when towardLeft is set
func LaunchVelocity(speed, angle float64, towardLeft bool) (vx, vy float64) {
	vx = math.Cos(angle) * speed
	vy = math.Sin(angle) * speed
	if towardLeft {
		vx = -vx
	}
	return vx, vy
}

// ClampPaddle keeps a paddle's vertical extent within the table
func ClampPaddle(p *Paddle, height float64) {
	p.Y = clamp(p.Y, 0, math.Max(0, height-p.Height))
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
