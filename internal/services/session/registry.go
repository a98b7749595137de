package session

import (
	"log/slog"
	"sync"

	"github.com/mcoot/pongarena/internal/model"
)

// Conn is a live client connection that can receive events
type Conn interface {
	ID() model.ConnID
	Send(event model.Event) error
}

// Session binds a player's identity snapshot to their current connection
type Session struct {
	Identity model.Identity
	Conn     Conn
}

// Registry maps player identities to their single live connection.
// Registering a new connection for an identity supersedes the old one;
// the old connection stays in the connection index only until it
// unregisters, and its lookups by identity no longer resolve to it.
type Registry struct {
	mu         sync.RWMutex
	byPlayer   map[model.PlayerID]*Session
	connPlayer map[model.ConnID]model.PlayerID
	logger     *slog.Logger
}

// NewRegistry creates an empty registry
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		byPlayer:   make(map[model.PlayerID]*Session),
		connPlayer: make(map[model.ConnID]model.PlayerID),
		logger:     logger.With(slog.String("component", "sessions")),
	}
}

// Register records conn as the live connection for identity.
// Returns the superseded connection, if any.
func (r *Registry) Register(conn Conn, identity model.Identity) (superseded Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if old, ok := r.byPlayer[identity.ID]; ok && old.Conn.ID() != conn.ID() {
		superseded = old.Conn
	}

	r.byPlayer[identity.ID] = &Session{Identity: identity, Conn: conn}
	r.connPlayer[conn.ID()] = identity.ID

	if superseded != nil {
		r.logger.Info("session superseded",
			slog.String("player_id", string(identity.ID)),
			slog.String("old_conn", string(superseded.ID())),
			slog.String("new_conn", string(conn.ID())))
	}
	return superseded
}

// Unregister removes conn. The identity mapping is only cleared when conn
// is still the current connection for that identity. Returns true if the
// identity mapping was cleared.
func (r *Registry) Unregister(conn Conn) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	playerID, ok := r.connPlayer[conn.ID()]
	if !ok {
		return false
	}
	delete(r.connPlayer, conn.ID())

	current, ok := r.byPlayer[playerID]
	if !ok || current.Conn.ID() != conn.ID() {
		return false
	}
	delete(r.byPlayer, playerID)
	return true
}

// ConnFor returns the current connection for a player
func (r *Registry) ConnFor(id model.PlayerID) (Conn, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.byPlayer[id]
	if !ok {
		return nil, false
	}
	return s.Conn, true
}

// SessionFor returns a copy of the player's current session
func (r *Registry) SessionFor(id model.PlayerID) (Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.byPlayer[id]
	if !ok {
		return Session{}, false
	}
	return *s, true
}

// IdentityFor returns the player a connection was registered for.
// Superseded connections still resolve until they unregister.
func (r *Registry) IdentityFor(connID model.ConnID) (model.PlayerID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.connPlayer[connID]
	return id, ok
}

// IsCurrent reports whether connID is the live connection for its player
func (r *Registry) IsCurrent(connID model.ConnID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.connPlayer[connID]
	if !ok {
		return false
	}
	s, ok := r.byPlayer[id]
	return ok && s.Conn.ID() == connID
}

// IsLive reports whether the player has a live connection
func (r *Registry) IsLive(id model.PlayerID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.byPlayer[id]
	return ok
}

// Send delivers an event to the player's current connection.
// Returns false when the player is offline or the send failed.
func (r *Registry) Send(id model.PlayerID, event model.Event) bool {
	conn, ok := r.ConnFor(id)
	if !ok {
		return false
	}
	if err := conn.Send(event); err != nil {
		r.logger.Warn("event not delivered",
			slog.String("player_id", string(id)),
			slog.String("event", string(event.Type)),
			slog.String("error", err.Error()))
		return false
	}
	return true
}

// Count returns the number of live identities
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byPlayer)
}
