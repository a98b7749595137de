package engine

import (
	"log/slog"

	"github.com/mcoot/pongarena/internal/model"
	"github.com/mcoot/pongarena/internal/physics"
)

// updatePowerUps expires effects, lets paddles collect the active
// power-up, and spawns a new one when the interval has elapsed.
func (e *Engine) updatePowerUps() {
	for _, s := range e.slots {
		e.expireEffects(s)
	}

	if e.powerUp != nil {
		for _, s := range e.slots {
			if physics.Overlaps(s.paddle.Rect, e.powerUp.rect) {
				e.applyPowerUp(s, e.powerUp.kind)
				e.powerUp = nil
				e.lastSpawn = e.tick
				break
			}
		}
		return
	}

	if e.tick-e.lastSpawn >= e.cfg.PowerUpInterval {
		e.spawnPowerUp()
	}
}

// spawnPowerUp places a power-up in one of the two paddle lanes so
// either participant can reach it
func (e *Engine) spawnPowerUp() {
	kind := model.PowerUpKinds[e.random.Intn(len(model.PowerUpKinds))]
	lane := e.slots[e.random.Intn(2)].paddle
	size := e.cfg.PowerUpSize

	e.powerUp = &powerUp{
		kind: kind,
		rect: physics.Rect{
			X:      lane.X + lane.Width/2 - size/2,
			Y:      e.random.Float64() * (e.cfg.TableHeight - size),
			Width:  size,
			Height: size,
		},
	}
	e.lastSpawn = e.tick
	e.logger.Debug("power-up spawned", slog.String("kind", string(kind)))
}

func (e *Engine) applyPowerUp(s *slot, kind model.PowerUpKind) {
	until := e.tick + e.cfg.PowerUpDuration
	switch kind {
	case model.PowerUpBigPaddle:
		s.bigUntil = until
		e.resizePaddle(s, s.baseHeight*e.cfg.BigPaddleScale)
	case model.PowerUpShield:
		s.shield = true
		s.shieldUntil = until
	case model.PowerUpSpeedBoost:
		s.boostUntil = until
	}
	e.logger.Debug("power-up collected",
		slog.String("player_id", string(s.participant.Identity.ID)),
		slog.String("kind", string(kind)))
}

func (e *Engine) expireEffects(s *slot) {
	if s.bigUntil > 0 && e.tick >= s.bigUntil {
		s.bigUntil = 0
		e.resizePaddle(s, s.baseHeight)
	}
	if s.boostUntil > 0 && e.tick >= s.boostUntil {
		s.boostUntil = 0
	}
	if s.shieldUntil > 0 && e.tick >= s.shieldUntil {
		s.shieldUntil = 0
		s.shield = false
	}
}

// resizePaddle changes paddle height around its current center
func (e *Engine) resizePaddle(s *slot, height float64) {
	center := s.paddle.CenterY()
	s.paddle.Height = height
	s.paddle.Y = center - height/2
	physics.ClampPaddle(&s.paddle, e.cfg.TableHeight)
}
