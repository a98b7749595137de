package engine

import (
	"math"
	"time"

	"github.com/mcoot/pongarena/internal/physics"
)

// Config holds table geometry and match rules.
// All speeds are in table units per tick.
type Config struct {
	TableWidth  float64
	TableHeight float64

	PaddleWidth  float64
	PaddleHeight float64
	PaddleInset  float64 // gap between a paddle and its goal line
	PaddleSpeed  float64

	BallRadius       float64
	InitialBallSpeed float64
	MaxLaunchAngle   float64 // serve angle limit from horizontal

	Bounce physics.Tuning

	WinScore int

	// TickInterval is the loop period. Zero disables the internal loop
	// so the caller drives Tick directly.
	TickInterval time.Duration

	PowerUpsEnabled bool
	PowerUpInterval uint64 // ticks between spawns
	PowerUpDuration uint64 // ticks an effect lasts
	PowerUpSize     float64
	BigPaddleScale  float64
	SpeedBoostScale float64
}

// DefaultConfig returns the standard 60 Hz match configuration
func DefaultConfig() Config {
	return Config{
		TableWidth:       800,
		TableHeight:      600,
		PaddleWidth:      10,
		PaddleHeight:     100,
		PaddleInset:      20,
		PaddleSpeed:      8,
		BallRadius:       8,
		InitialBallSpeed: 6,
		MaxLaunchAngle:   math.Pi / 4,
		Bounce:           physics.DefaultTuning(),
		WinScore:         5,
		TickInterval:     time.Second / 60,
		PowerUpsEnabled:  true,
		PowerUpInterval:  600,
		PowerUpDuration:  300,
		PowerUpSize:      24,
		BigPaddleScale:   1.5,
		SpeedBoostScale:  1.5,
	}
}
