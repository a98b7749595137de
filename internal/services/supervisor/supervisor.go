// Package supervisor turns connection lifecycle events into matchmaking
// and match state changes.
package supervisor

import (
	"log/slog"

	"github.com/mcoot/pongarena/internal/dependencies/clock"
	"github.com/mcoot/pongarena/internal/model"
	"github.com/mcoot/pongarena/internal/services/session"
)

// Matchmaker releases queue places held by a closed connection
type Matchmaker interface {
	ReleaseConnection(connID model.ConnID) bool
}

// Rooms routes connection events to running matches
type Rooms interface {
	HandleDisconnect(connID model.ConnID) bool
	HandleInput(connID model.ConnID, input model.Input) error
}

// Supervisor handles connect, disconnect and input boundary events
type Supervisor struct {
	sessions    *session.Registry
	matchmaking Matchmaker
	rooms       Rooms
	clock       clock.Clock
	logger      *slog.Logger
}

// New creates a Supervisor
func New(
	sessions *session.Registry,
	matchmaking Matchmaker,
	rooms Rooms,
	clk clock.Clock,
	logger *slog.Logger,
) *Supervisor {
	return &Supervisor{
		sessions:    sessions,
		matchmaking: matchmaking,
		rooms:       rooms,
		clock:       clk,
		logger:      logger.With(slog.String("component", "supervisor")),
	}
}

// Connect registers an authenticated connection and confirms it to the
// client. Any connection it supersedes is returned so the caller can
// close it; that connection's own Disconnect still runs later.
func (s *Supervisor) Connect(conn session.Conn, identity model.Identity) session.Conn {
	superseded := s.sessions.Register(conn, identity)

	_ = conn.Send(model.NewEvent(model.EventConnected, s.clock.Now(), model.ConnectedPayload{
		ConnID:   conn.ID(),
		PlayerID: identity.ID,
		Nick:     identity.Nick,
	}))

	attrs := []any{
		slog.String("conn_id", string(conn.ID())),
		slog.String("player_id", string(identity.ID)),
	}
	if superseded != nil {
		attrs = append(attrs, slog.String("superseded", string(superseded.ID())))
	}
	s.logger.Info("player connected", attrs...)
	return superseded
}

// Disconnect releases everything the connection held. A live match
// is forfeited. Disconnection is never an error.
//
// The session goes first so no new pairing can pick the connection up.
// ReleaseConnection then waits out any pairing already in progress, which
// leaves its room visible to HandleDisconnect.
func (s *Supervisor) Disconnect(conn session.Conn) {
	current := s.sessions.Unregister(conn)
	s.matchmaking.ReleaseConnection(conn.ID())
	forfeited := s.rooms.HandleDisconnect(conn.ID())

	s.logger.Info("player disconnected",
		slog.String("conn_id", string(conn.ID())),
		slog.Bool("forfeited", forfeited),
		slog.Bool("was_current", current))
}

// Input forwards a paddle intent to the connection's match. Input for a
// match that has just ended fails with model.ErrInvalidState until the
// connection leaves; otherwise a connection with no match gets
// model.ErrMatchNotFound.
func (s *Supervisor) Input(connID model.ConnID, input model.Input) error {
	return s.rooms.HandleInput(connID, input)
}
