// Package room binds paired players to running match engines.
package room

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mcoot/pongarena/internal/dependencies/clock"
	"github.com/mcoot/pongarena/internal/dependencies/random"
	"github.com/mcoot/pongarena/internal/model"
	"github.com/mcoot/pongarena/internal/services/engine"
)

// DefaultRecordTimeout bounds how long an outcome hand-off may take
const DefaultRecordTimeout = 5 * time.Second

// OutcomeRecorder persists finished matches
type OutcomeRecorder interface {
	Record(ctx context.Context, outcome model.MatchOutcome) error
}

// Coordinator creates rooms for confirmed pairings and routes
// connection events to the engine that owns them
type Coordinator struct {
	cfg           engine.Config
	clock         clock.Clock
	random        random.Random
	logger        *slog.Logger
	recorder      OutcomeRecorder
	recordTimeout time.Duration

	// loops outlive the request that created the room
	loopCtx    context.Context
	cancelLoop context.CancelFunc

	counter atomic.Uint64

	mu       sync.Mutex
	rooms    map[model.RoomID]*engine.Engine
	byConn   map[model.ConnID]model.RoomID
	byPlayer map[model.PlayerID]model.RoomID
	// ended remembers connections whose match is over until they leave
	// or start another one
	ended map[model.ConnID]model.RoomID
}

// NewCoordinator creates a coordinator. recorder may be nil.
func NewCoordinator(
	cfg engine.Config,
	recorder OutcomeRecorder,
	clk clock.Clock,
	rnd random.Random,
	logger *slog.Logger,
) *Coordinator {
	ctx, cancel := context.WithCancel(context.Background())
	return &Coordinator{
		cfg:           cfg,
		clock:         clk,
		random:        rnd,
		logger:        logger.With(slog.String("component", "room")),
		recorder:      recorder,
		recordTimeout: DefaultRecordTimeout,
		loopCtx:       ctx,
		cancelLoop:    cancel,
		rooms:         make(map[model.RoomID]*engine.Engine),
		byConn:        make(map[model.ConnID]model.RoomID),
		byPlayer:      make(map[model.PlayerID]model.RoomID),
		ended:         make(map[model.ConnID]model.RoomID),
	}
}

// CreateRoom starts a match between two already-paired participants.
// The returned id is unique even under concurrent creation.
func (c *Coordinator) CreateRoom(_ context.Context, kind model.MatchKind, p1, p2 engine.Participant) (model.RoomID, error) {
	c.mu.Lock()
	for _, p := range []engine.Participant{p1, p2} {
		if _, busy := c.byPlayer[p.Identity.ID]; busy {
			c.mu.Unlock()
			return "", fmt.Errorf("%s: %w", p.Identity.ID, model.ErrAlreadyInMatch)
		}
	}

	id := model.RoomID(fmt.Sprintf("%s_%d_%s_%s", kind, c.counter.Add(1), p1.Identity.ID, p2.Identity.ID))
	room := model.MatchRoom{
		ID:           id,
		Kind:         kind,
		Participant1: p1.Identity,
		Participant2: p2.Identity,
		CreatedAt:    c.clock.Now(),
	}

	eng := engine.New(room, p1, p2, c.cfg, c.clock, c.random, c.logger, func(outcome model.MatchOutcome) {
		c.finish(id, outcome)
	})

	c.rooms[id] = eng
	c.byConn[p1.Conn.ID()] = id
	c.byConn[p2.Conn.ID()] = id
	delete(c.ended, p1.Conn.ID())
	delete(c.ended, p2.Conn.ID())
	c.byPlayer[p1.Identity.ID] = id
	c.byPlayer[p2.Identity.ID] = id
	c.mu.Unlock()

	if err := eng.Start(c.loopCtx); err != nil {
		c.release(id)
		return "", err
	}

	c.logger.Info("room created",
		slog.String("room_id", string(id)),
		slog.String("kind", string(kind)))
	return id, nil
}

// HandleInput forwards a paddle intent to the match owning connID.
// Input after that match has ended fails with model.ErrInvalidState.
func (c *Coordinator) HandleInput(connID model.ConnID, input model.Input) error {
	eng, ok := c.engineForConn(connID)
	if !ok {
		c.mu.Lock()
		_, over := c.ended[connID]
		c.mu.Unlock()
		if over {
			return model.ErrInvalidState
		}
		return model.ErrMatchNotFound
	}
	return eng.ApplyInput(connID, input)
}

// HandleDisconnect forfeits the match owning connID, if any
func (c *Coordinator) HandleDisconnect(connID model.ConnID) bool {
	eng, ok := c.engineForConn(connID)
	if ok {
		eng.HandleDisconnection(connID)
	}

	// The forfeit above releases the room synchronously
	c.mu.Lock()
	delete(c.ended, connID)
	c.mu.Unlock()
	return ok
}

// InMatch reports whether the player is in an active room
func (c *Coordinator) InMatch(id model.PlayerID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.byPlayer[id]
	return ok
}

// RoomFor returns the id of the player's active room
func (c *Coordinator) RoomFor(id model.PlayerID) (model.RoomID, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	roomID, ok := c.byPlayer[id]
	return roomID, ok
}

// Engine returns the engine running a room
func (c *Coordinator) Engine(id model.RoomID) (*engine.Engine, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	eng, ok := c.rooms[id]
	return eng, ok
}

// Room returns an active room
func (c *Coordinator) Room(id model.RoomID) (model.MatchRoom, bool) {
	eng, ok := c.Engine(id)
	if !ok {
		return model.MatchRoom{}, false
	}
	return eng.Room(), true
}

// ActiveRooms returns the number of rooms that have not ended
func (c *Coordinator) ActiveRooms() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.rooms)
}

// Shutdown stops every tick loop. Matches are not persisted.
func (c *Coordinator) Shutdown() {
	c.cancelLoop()

	c.mu.Lock()
	engines := make([]*engine.Engine, 0, len(c.rooms))
	for _, eng := range c.rooms {
		engines = append(engines, eng)
	}
	c.mu.Unlock()

	for _, eng := range engines {
		eng.Stop()
	}
	c.logger.Info("room coordinator stopped", slog.Int("rooms", len(engines)))
}

func (c *Coordinator) engineForConn(connID model.ConnID) (*engine.Engine, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id, ok := c.byConn[connID]
	if !ok {
		return nil, false
	}
	eng, ok := c.rooms[id]
	return eng, ok
}

// finish runs once per room when its engine reaches a terminal state
func (c *Coordinator) finish(id model.RoomID, outcome model.MatchOutcome) {
	c.release(id)

	if c.recorder == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), c.recordTimeout)
	defer cancel()
	if err := c.recorder.Record(ctx, outcome); err != nil {
		c.logger.Error("failed to record match outcome",
			slog.String("room_id", string(id)),
			slog.Any("error", err))
	}
}

func (c *Coordinator) release(id model.RoomID) {
	c.mu.Lock()
	defer c.mu.Unlock()

	eng, ok := c.rooms[id]
	if !ok {
		return
	}
	delete(c.rooms, id)
	for connID, roomID := range c.byConn {
		if roomID == id {
			delete(c.byConn, connID)
			c.ended[connID] = id
		}
	}
	room := eng.Room()
	delete(c.byPlayer, room.Participant1.ID)
	delete(c.byPlayer, room.Participant2.ID)
}
