package engine

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/pongarena/internal/dependencies/mocks"
	"github.com/mcoot/pongarena/internal/model"
	"github.com/mcoot/pongarena/internal/testutil"
)

type EngineSuite struct {
	suite.Suite
	clock    *mocks.MockClock
	random   *mocks.MockRandom
	conn1    *testutil.FakeConn
	conn2    *testutil.FakeConn
	cfg      Config
	outcomes []model.MatchOutcome
	ctx      context.Context
	logs     *testutil.LogBuffer
	logger   *slog.Logger
}

func TestEngineSuite(t *testing.T) {
	suite.Run(t, new(EngineSuite))
}

func (s *EngineSuite) SetupTest() {
	s.clock = mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	s.random = mocks.NewMockRandom()
	s.conn1 = testutil.NewFakeConn("c1")
	s.conn2 = testutil.NewFakeConn("c2")
	s.cfg = DefaultConfig()
	s.cfg.TickInterval = 0
	s.cfg.PowerUpsEnabled = false
	s.outcomes = nil
	s.ctx = context.Background()
	s.logger, s.logs = testutil.CaptureLogger()
}

func (s *EngineSuite) newEngine() *Engine {
	room := model.MatchRoom{
		ID:           "ranked_1_p1_p2",
		Kind:         model.MatchKindRanked,
		Participant1: model.Identity{ID: "p1", Nick: "alice"},
		Participant2: model.Identity{ID: "p2", Nick: "bob"},
		CreatedAt:    s.clock.Now(),
	}
	return New(room,
		Participant{Identity: room.Participant1, Conn: s.conn1},
		Participant{Identity: room.Participant2, Conn: s.conn2},
		s.cfg, s.clock, s.random, s.logger,
		func(o model.MatchOutcome) { s.outcomes = append(s.outcomes, o) },
	)
}

func (s *EngineSuite) startedEngine() *Engine {
	e := s.newEngine()
	s.Require().NoError(e.Start(s.ctx))
	return e
}

func (s *EngineSuite) tickUntil(e *Engine, limit int, done func() bool) int {
	for i := 1; i <= limit; i++ {
		e.Tick()
		if done() {
			return i
		}
	}
	return limit
}

// Start tests

func (s *EngineSuite) TestStartMovesToRunning() {
	e := s.newEngine()
	s.Equal(model.MatchStatePending, e.State())

	s.Require().NoError(e.Start(s.ctx))

	s.Equal(model.MatchStateRunning, e.State())
	snap := e.Snapshot()
	s.Equal(400.0, snap.Ball.X)
	s.Equal(300.0, snap.Ball.Y)
	s.Equal(6.0, snap.Ball.VX)
	s.Equal(0, snap.Slot1.Score)
	s.Equal(0, snap.Slot2.Score)
	s.Equal(250.0, snap.Slot1.Y)
}

func (s *EngineSuite) TestStartTwiceFails() {
	e := s.startedEngine()
	s.ErrorIs(e.Start(s.ctx), model.ErrInvalidState)
}

func (s *EngineSuite) TestServeDirectionUsesRandom() {
	s.random.QueueIntn(1)
	s.random.QueueFloat64(1.0)
	e := s.startedEngine()

	snap := e.Snapshot()
	s.Less(snap.Ball.VX, 0.0)
	s.Greater(snap.Ball.VY, 0.0)
}

// Tick tests

func (s *EngineSuite) TestTickBeforeStartDoesNothing() {
	e := s.newEngine()
	e.Tick()

	s.Empty(s.conn1.Events())
	s.Equal(uint64(0), e.Snapshot().Tick)
}

func (s *EngineSuite) TestTickSendsSequencedSnapshotsToBoth() {
	e := s.startedEngine()
	e.Tick()
	e.Tick()
	e.Tick()

	for _, conn := range []*testutil.FakeConn{s.conn1, s.conn2} {
		events := conn.EventsOfType(model.EventMatchSnapshot)
		s.Require().Len(events, 3)
		var last uint64
		for _, ev := range events {
			snap := ev.Payload.(model.Snapshot)
			s.Greater(snap.Tick, last)
			last = snap.Tick
		}
	}
}

func (s *EngineSuite) TestBallBouncesOffStationaryPaddle() {
	e := s.startedEngine()

	for i := 0; i < 70; i++ {
		e.Tick()
	}

	snap := e.Snapshot()
	s.Less(snap.Ball.VX, 0.0)
	s.Equal(0, snap.Slot1.Score)
	s.Equal(0, snap.Slot2.Score)
	s.Equal(model.MatchStateRunning, e.State())
}

// Input tests

func (s *EngineSuite) TestApplyInputMovesPaddle() {
	e := s.startedEngine()

	s.Require().NoError(e.ApplyInput("c1", model.Input{Direction: -1}))
	e.Tick()

	s.Equal(242.0, e.Snapshot().Slot1.Y)
	s.Equal(250.0, e.Snapshot().Slot2.Y)
}

func (s *EngineSuite) TestPaddleIsClampedToTable() {
	e := s.startedEngine()

	s.Require().NoError(e.ApplyInput("c2", model.Input{Direction: 1}))
	for i := 0; i < 100; i++ {
		e.Tick()
	}

	s.Equal(500.0, e.Snapshot().Slot2.Y)
}

func (s *EngineSuite) TestMalformedInputIsDropped() {
	e := s.startedEngine()

	s.NoError(e.ApplyInput("c1", model.Input{Direction: 5}))
	e.Tick()

	s.Equal(250.0, e.Snapshot().Slot1.Y)
	s.Contains(s.logs.String(), "malformed input dropped")
}

func (s *EngineSuite) TestInputFromUnknownConnectionFails() {
	e := s.startedEngine()
	s.ErrorIs(e.ApplyInput("c9", model.Input{Direction: 1}), model.ErrNotParticipant)
}

func (s *EngineSuite) TestInputBeforeStartFails() {
	e := s.newEngine()
	s.ErrorIs(e.ApplyInput("c1", model.Input{Direction: 1}), model.ErrInvalidState)
}

// Scoring tests

func (s *EngineSuite) TestMatchFinishesAtWinScore() {
	e := s.startedEngine()
	s.Require().NoError(e.ApplyInput("c2", model.Input{Direction: -1}))

	s.tickUntil(e, 1000, func() bool { return e.State() != model.MatchStateRunning })

	s.Equal(model.MatchStateFinished, e.State())
	outcome, ok := e.Outcome()
	s.Require().True(ok)
	s.Equal(model.PlayerID("p1"), outcome.WinnerID)
	s.Equal(5, outcome.Score1)
	s.Equal(0, outcome.Score2)
	s.Equal(model.OutcomeReasonWin, outcome.Reason)
	s.Equal(model.RoomID("ranked_1_p1_p2"), outcome.MatchID)

	s.Require().Len(s.outcomes, 1)
	s.Equal(outcome, s.outcomes[0])

	for _, conn := range []*testutil.FakeConn{s.conn1, s.conn2} {
		ended := conn.EventsOfType(model.EventMatchEnded)
		s.Require().Len(ended, 1)
		payload := ended[0].Payload.(model.MatchEndedPayload)
		s.Equal(model.PlayerID("p1"), payload.WinnerID)
		s.Equal(model.FinalScore{Player1: 5, Player2: 0}, payload.FinalScore)

		for _, ev := range conn.EventsOfType(model.EventMatchSnapshot) {
			snap := ev.Payload.(model.Snapshot)
			s.LessOrEqual(snap.Slot1.Score, s.cfg.WinScore)
		}
	}
}

func (s *EngineSuite) TestSnapshotPrecedesMatchEnded() {
	e := s.startedEngine()
	s.Require().NoError(e.ApplyInput("c2", model.Input{Direction: -1}))
	s.tickUntil(e, 1000, func() bool { return e.State() != model.MatchStateRunning })

	events := s.conn1.Events()
	s.Require().GreaterOrEqual(len(events), 2)
	s.Equal(model.EventMatchEnded, events[len(events)-1].Type)
	s.Equal(model.EventMatchSnapshot, events[len(events)-2].Type)
	final := events[len(events)-2].Payload.(model.Snapshot)
	s.Equal(5, final.Slot1.Score)
	s.Equal(model.MatchStateFinished, final.State)
}

func (s *EngineSuite) TestTickAfterFinishIsNoop() {
	e := s.startedEngine()
	s.Require().NoError(e.ApplyInput("c2", model.Input{Direction: -1}))
	s.tickUntil(e, 1000, func() bool { return e.State() != model.MatchStateRunning })
	count := len(s.conn1.Events())

	e.Tick()
	e.Tick()

	s.Len(s.conn1.Events(), count)
	s.Len(s.outcomes, 1)
	s.ErrorIs(e.ApplyInput("c1", model.Input{Direction: 1}), model.ErrInvalidState)
}

func (s *EngineSuite) TestShieldAbsorbsOneGoal() {
	e := s.startedEngine()
	e.slots[1].shield = true
	e.slots[1].shieldUntil = 10_000
	s.Require().NoError(e.ApplyInput("c2", model.Input{Direction: -1}))

	for i := 0; i < 66; i++ {
		e.Tick()
	}

	snap := e.Snapshot()
	s.Equal(0, snap.Slot1.Score)
	s.False(snap.Slot2.Shield)
	s.Less(snap.Ball.VX, 0.0)
}

// Disconnection tests

func (s *EngineSuite) TestDisconnectionForfeitsToOpponent() {
	e := s.startedEngine()
	e.Tick()

	e.HandleDisconnection("c1")

	s.Equal(model.MatchStateAborted, e.State())
	s.Require().Len(s.outcomes, 1)
	s.Equal(model.PlayerID("p2"), s.outcomes[0].WinnerID)
	s.Equal(model.OutcomeReasonForfeit, s.outcomes[0].Reason)

	ended := s.conn2.EventsOfType(model.EventMatchEnded)
	s.Require().Len(ended, 1)
	s.Equal(model.OutcomeReasonForfeit, ended[0].Payload.(model.MatchEndedPayload).Reason)
	s.Empty(s.conn1.EventsOfType(model.EventMatchEnded))
}

func (s *EngineSuite) TestDisconnectionIsIdempotent() {
	e := s.startedEngine()

	e.HandleDisconnection("c1")
	e.HandleDisconnection("c1")
	e.HandleDisconnection("c2")

	s.Len(s.outcomes, 1)
	s.Len(s.conn2.EventsOfType(model.EventMatchEnded), 1)
	s.Empty(s.conn1.EventsOfType(model.EventMatchEnded))
}

func (s *EngineSuite) TestDisconnectionAfterFinishIsNoop() {
	e := s.startedEngine()
	s.Require().NoError(e.ApplyInput("c2", model.Input{Direction: -1}))
	s.tickUntil(e, 1000, func() bool { return e.State() != model.MatchStateRunning })

	e.HandleDisconnection("c1")

	s.Equal(model.MatchStateFinished, e.State())
	s.Len(s.outcomes, 1)
	s.Len(s.conn2.EventsOfType(model.EventMatchEnded), 1)
}

func (s *EngineSuite) TestDisconnectionOfUnknownConnectionIgnored() {
	e := s.startedEngine()
	e.HandleDisconnection("c9")

	s.Equal(model.MatchStateRunning, e.State())
	s.Empty(s.outcomes)
}

func (s *EngineSuite) TestDisconnectionWhilePendingAborts() {
	e := s.newEngine()
	e.HandleDisconnection("c2")

	s.Equal(model.MatchStateAborted, e.State())
	s.Require().Len(s.outcomes, 1)
	s.Equal(model.PlayerID("p1"), s.outcomes[0].WinnerID)
	s.ErrorIs(e.Start(s.ctx), model.ErrInvalidState)
}

// Power-up tests

func (s *EngineSuite) TestBigPaddlePowerUpLifecycle() {
	s.cfg.PowerUpsEnabled = true
	s.cfg.PowerUpInterval = 5
	s.cfg.PowerUpDuration = 10
	// serve right, BIG_PADDLE, left lane
	s.random.QueueIntn(0, 0, 0)
	// serve angle 0, power-up at the paddle's height
	s.random.QueueFloat64(0.5, 0.5)
	e := s.startedEngine()

	for i := 0; i < 5; i++ {
		e.Tick()
	}
	snap := e.Snapshot()
	s.Require().NotNil(snap.PowerUp)
	s.Equal(model.PowerUpBigPaddle, snap.PowerUp.Kind)

	e.Tick()
	snap = e.Snapshot()
	s.Nil(snap.PowerUp)
	s.Equal(150.0, snap.Slot1.Height)
	s.Equal(225.0, snap.Slot1.Y)

	// no further spawns while the effect runs out
	e.cfg.PowerUpInterval = 1_000
	for i := 0; i < 10; i++ {
		e.Tick()
	}
	snap = e.Snapshot()
	s.Equal(100.0, snap.Slot1.Height)
	s.Equal(250.0, snap.Slot1.Y)
}

func (s *EngineSuite) TestSpeedBoostScalesPaddleSpeed() {
	e := s.startedEngine()
	e.slots[0].boostUntil = 1_000

	s.Require().NoError(e.ApplyInput("c1", model.Input{Direction: -1}))
	e.Tick()

	snap := e.Snapshot()
	s.Equal(238.0, snap.Slot1.Y)
	s.True(snap.Slot1.Boosted)
}

// Loop tests

func (s *EngineSuite) TestLoopRunsAtConfiguredRate() {
	s.cfg.TickInterval = time.Millisecond
	e := s.startedEngine()
	defer e.Stop()

	s.Eventually(func() bool {
		return len(s.conn1.EventsOfType(model.EventMatchSnapshot)) >= 5
	}, time.Second, 5*time.Millisecond)
}
