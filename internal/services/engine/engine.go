// Package engine runs a single server-authoritative match.
//
// An Engine owns the ball, both paddles, scores and power-ups for one
// room. It advances on a fixed-rate tick, applies buffered paddle
// intents, and pushes a snapshot to both participants after every tick.
// A match ends when one side reaches the win score or when a
// participant disconnects, in which case the other side wins by forfeit.
package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/mcoot/pongarena/internal/dependencies/clock"
	"github.com/mcoot/pongarena/internal/dependencies/random"
	"github.com/mcoot/pongarena/internal/model"
	"github.com/mcoot/pongarena/internal/physics"
	"github.com/mcoot/pongarena/internal/services/session"
)

// Participant is one side of a match
type Participant struct {
	Identity model.Identity
	Conn     session.Conn
}

// OutcomeFunc receives the final outcome exactly once per match
type OutcomeFunc func(outcome model.MatchOutcome)

type slot struct {
	participant Participant
	paddle      physics.Paddle
	baseHeight  float64
	direction   int
	score       int

	bigUntil    uint64
	boostUntil  uint64
	shieldUntil uint64
	shield      bool
}

type powerUp struct {
	kind model.PowerUpKind
	rect physics.Rect
}

// Engine is the state machine for one match
type Engine struct {
	cfg    Config
	room   model.MatchRoom
	clock  clock.Clock
	random random.Random
	logger *slog.Logger
	onEnd  OutcomeFunc

	mu        sync.Mutex
	state     model.MatchState
	slots     [2]*slot
	ball      physics.Ball
	tick      uint64
	powerUp   *powerUp
	lastSpawn uint64
	outcome   *model.MatchOutcome
	malformed int
	stopCh    chan struct{}
	stopOnce  sync.Once
}

// New creates an engine in the PENDING state
func New(room model.MatchRoom, p1, p2 Participant, cfg Config, clk clock.Clock, rnd random.Random, logger *slog.Logger, onEnd OutcomeFunc) *Engine {
	e := &Engine{
		cfg:    cfg,
		room:   room,
		clock:  clk,
		random: rnd,
		logger: logger.With(slog.String("room_id", string(room.ID))),
		onEnd:  onEnd,
		state:  model.MatchStatePending,
		stopCh: make(chan struct{}),
	}
	e.slots[0] = &slot{participant: p1}
	e.slots[1] = &slot{participant: p2}
	e.resetPaddles()
	return e
}

// Room returns the room this engine runs
func (e *Engine) Room() model.MatchRoom {
	return e.room
}

// State returns the current lifecycle state
func (e *Engine) State() model.MatchState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Outcome returns the final outcome once the match is over
func (e *Engine) Outcome() (model.MatchOutcome, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.outcome == nil {
		return model.MatchOutcome{}, false
	}
	return *e.outcome, true
}

// Start moves the match from PENDING to RUNNING, serves the ball, and
// starts the tick loop when a tick interval is configured.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != model.MatchStatePending {
		return model.ErrInvalidState
	}

	for _, s := range e.slots {
		s.score = 0
		s.direction = 0
	}
	e.resetPaddles()
	e.serve()
	e.state = model.MatchStateRunning
	e.lastSpawn = 0

	e.logger.Info("match started",
		slog.String("kind", string(e.room.Kind)),
		slog.String("player1", string(e.room.Participant1.ID)),
		slog.String("player2", string(e.room.Participant2.ID)))

	if e.cfg.TickInterval > 0 {
		go e.run(ctx)
	}
	return nil
}

// run drives Tick at the configured rate until the match ends,
// the engine is stopped, or ctx is cancelled
func (e *Engine) run(ctx context.Context) {
	ticker := time.NewTicker(e.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			e.Tick()
		case <-e.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

// Stop halts the tick loop without changing match state
func (e *Engine) Stop() {
	e.stopOnce.Do(func() { close(e.stopCh) })
}

// ApplyInput buffers a paddle intent from a participant's connection.
// Malformed intents are dropped and counted.
func (e *Engine) ApplyInput(connID model.ConnID, input model.Input) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != model.MatchStateRunning {
		return model.ErrInvalidState
	}

	s := e.slotFor(connID)
	if s == nil {
		return model.ErrNotParticipant
	}

	if !input.Valid() {
		e.malformed++
		e.logger.Warn("malformed input dropped",
			slog.String("player_id", string(s.participant.Identity.ID)),
			slog.Int("direction", input.Direction),
			slog.Int("malformed_total", e.malformed))
		return nil
	}

	s.direction = input.Direction
	return nil
}

// Tick advances the match by one step. Ticks are serialized; a tick
// on a match that is not running does nothing.
func (e *Engine) Tick() {
	e.mu.Lock()
	if e.state != model.MatchStateRunning {
		e.mu.Unlock()
		return
	}

	e.tick++

	e.movePaddles()
	physics.AdvanceBall(&e.ball, 1)
	physics.ResolveWallCollision(&e.ball, e.cfg.TableHeight)
	for _, s := range e.slots {
		physics.ResolvePaddleCollision(&e.ball, s.paddle, e.cfg.Bounce, e.random)
	}
	if e.cfg.PowerUpsEnabled {
		e.updatePowerUps()
	}
	e.resolveScoring()

	snapshot := e.snapshotLocked()
	now := e.clock.Now()
	for _, s := range e.slots {
		e.send(s, model.NewEvent(model.EventMatchSnapshot, now, snapshot))
	}

	var finished *model.MatchOutcome
	ticks := e.tick
	if e.state == model.MatchStateFinished {
		finished = e.outcome
		ended := e.endedPayload()
		for _, s := range e.slots {
			e.send(s, model.NewEvent(model.EventMatchEnded, now, ended))
		}
		e.Stop()
	}
	e.mu.Unlock()

	if finished != nil {
		e.logger.Info("match finished",
			slog.String("winner_id", string(finished.WinnerID)),
			slog.Int("score1", finished.Score1),
			slog.Int("score2", finished.Score2),
			slog.Uint64("ticks", ticks))
		e.handOff(*finished)
	}
}

// HandleDisconnection forfeits the match for the participant on connID.
// Calling it after the match has ended, or more than once, does nothing.
func (e *Engine) HandleDisconnection(connID model.ConnID) {
	e.mu.Lock()
	if e.state.IsTerminal() {
		e.mu.Unlock()
		return
	}

	var leaving, remaining *slot
	switch {
	case e.slots[0].participant.Conn.ID() == connID:
		leaving, remaining = e.slots[0], e.slots[1]
	case e.slots[1].participant.Conn.ID() == connID:
		leaving, remaining = e.slots[1], e.slots[0]
	default:
		e.mu.Unlock()
		return
	}

	e.state = model.MatchStateAborted
	e.outcome = e.buildOutcome(remaining.participant.Identity.ID, model.OutcomeReasonForfeit)
	e.send(remaining, model.NewEvent(model.EventMatchEnded, e.clock.Now(), e.endedPayload()))
	e.Stop()
	outcome := *e.outcome
	e.mu.Unlock()

	e.logger.Info("match forfeited",
		slog.String("leaver_id", string(leaving.participant.Identity.ID)),
		slog.String("winner_id", string(outcome.WinnerID)))
	e.handOff(outcome)
}

// Snapshot returns the current match state
func (e *Engine) Snapshot() model.Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

func (e *Engine) handOff(outcome model.MatchOutcome) {
	if e.onEnd != nil {
		e.onEnd(outcome)
	}
}

func (e *Engine) send(s *slot, event model.Event) {
	if err := s.participant.Conn.Send(event); err != nil {
		e.logger.Debug("match event not delivered",
			slog.String("player_id", string(s.participant.Identity.ID)),
			slog.String("event", string(event.Type)),
			slog.String("error", err.Error()))
	}
}

func (e *Engine) slotFor(connID model.ConnID) *slot {
	for _, s := range e.slots {
		if s.participant.Conn.ID() == connID {
			return s
		}
	}
	return nil
}

func (e *Engine) resetPaddles() {
	y := (e.cfg.TableHeight - e.cfg.PaddleHeight) / 2
	e.slots[0].paddle = physics.Paddle{
		Rect: physics.Rect{X: e.cfg.PaddleInset, Y: y, Width: e.cfg.PaddleWidth, Height: e.cfg.PaddleHeight},
		Side: physics.SideLeft,
	}
	e.slots[1].paddle = physics.Paddle{
		Rect: physics.Rect{X: e.cfg.TableWidth - e.cfg.PaddleInset - e.cfg.PaddleWidth, Y: y, Width: e.cfg.PaddleWidth, Height: e.cfg.PaddleHeight},
		Side: physics.SideRight,
	}
	for _, s := range e.slots {
		s.baseHeight = e.cfg.PaddleHeight
	}
}

// serve centers the ball and launches it toward a random side
func (e *Engine) serve() {
	towardLeft := e.random.Intn(2) == 1
	angle := (e.random.Float64()*2 - 1) * e.cfg.MaxLaunchAngle
	vx, vy := physics.LaunchVelocity(e.cfg.InitialBallSpeed, angle, towardLeft)
	e.ball = physics.Ball{
		X:      e.cfg.TableWidth / 2,
		Y:      e.cfg.TableHeight / 2,
		VX:     vx,
		VY:     vy,
		Radius: e.cfg.BallRadius,
	}
}

func (e *Engine) movePaddles() {
	for _, s := range e.slots {
		speed := e.cfg.PaddleSpeed
		if s.boostUntil > 0 {
			speed *= e.cfg.SpeedBoostScale
		}
		s.paddle.Y += float64(s.direction) * speed
		physics.ClampPaddle(&s.paddle, e.cfg.TableHeight)
	}
}

// resolveScoring awards a point when the ball reaches a goal line.
// A shield on the conceding side absorbs the pass instead.
func (e *Engine) resolveScoring() {
	result := physics.DetectScore(e.ball, e.cfg.TableWidth)
	if result == physics.ScoreNone {
		return
	}

	scorer, conceder := e.slots[0], e.slots[1]
	if result == physics.ScoreSide2 {
		scorer, conceder = e.slots[1], e.slots[0]
	}

	if conceder.shield {
		conceder.shield = false
		conceder.shieldUntil = 0
		e.ball.VX = -e.ball.VX
		if result == physics.ScoreSide2 {
			e.ball.X = e.ball.Radius + 1
		} else {
			e.ball.X = e.cfg.TableWidth - e.ball.Radius - 1
		}
		e.logger.Debug("shield absorbed goal", slog.String("player_id", string(conceder.participant.Identity.ID)))
		return
	}

	scorer.score++
	if scorer.score >= e.cfg.WinScore {
		e.state = model.MatchStateFinished
		e.outcome = e.buildOutcome(scorer.participant.Identity.ID, model.OutcomeReasonWin)
		return
	}
	e.serve()
}

func (e *Engine) buildOutcome(winner model.PlayerID, reason model.OutcomeReason) *model.MatchOutcome {
	return &model.MatchOutcome{
		MatchID:        e.room.ID,
		Kind:           e.room.Kind,
		Participant1ID: e.slots[0].participant.Identity.ID,
		Participant2ID: e.slots[1].participant.Identity.ID,
		Score1:         e.slots[0].score,
		Score2:         e.slots[1].score,
		WinnerID:       winner,
		Reason:         reason,
		EndedAt:        e.clock.Now(),
	}
}

func (e *Engine) endedPayload() model.MatchEndedPayload {
	return model.MatchEndedPayload{
		RoomID:   e.room.ID,
		WinnerID: e.outcome.WinnerID,
		FinalScore: model.FinalScore{
			Player1: e.outcome.Score1,
			Player2: e.outcome.Score2,
		},
		Reason: e.outcome.Reason,
	}
}

func (e *Engine) snapshotLocked() model.Snapshot {
	snap := model.Snapshot{
		RoomID:      e.room.ID,
		Tick:        e.tick,
		State:       e.state,
		TableWidth:  e.cfg.TableWidth,
		TableHeight: e.cfg.TableHeight,
		Ball: model.BallView{
			X:      e.ball.X,
			Y:      e.ball.Y,
			VX:     e.ball.VX,
			VY:     e.ball.VY,
			Radius: e.ball.Radius,
		},
		Slot1: slotView(e.slots[0]),
		Slot2: slotView(e.slots[1]),
	}
	if e.powerUp != nil {
		snap.PowerUp = &model.PowerUpView{
			Kind: e.powerUp.kind,
			X:    e.powerUp.rect.X,
			Y:    e.powerUp.rect.Y,
			Size: e.powerUp.rect.Width,
		}
	}
	return snap
}

func slotView(s *slot) model.SlotView {
	return model.SlotView{
		PlayerID: s.participant.Identity.ID,
		Nick:     s.participant.Identity.Nick,
		Faction:  s.participant.Identity.Faction,
		X:        s.paddle.X,
		Y:        s.paddle.Y,
		Width:    s.paddle.Width,
		Height:   s.paddle.Height,
		Score:    s.score,
		Shield:   s.shield,
		Boosted:  s.boostUntil > 0,
	}
}
