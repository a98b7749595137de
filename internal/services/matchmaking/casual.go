package matchmaking

import (
	"sync"

	"github.com/mcoot/pongarena/internal/model"
	"github.com/mcoot/pongarena/internal/services/session"
)

// Waiter is the occupant of the casual slot
type Waiter struct {
	PlayerID model.PlayerID
	Conn     session.Conn
}

// CasualQueue holds at most one waiting connection
type CasualQueue struct {
	mu      sync.Mutex
	waiting *Waiter
}

// NewCasualQueue creates an empty casual slot
func NewCasualQueue() *CasualQueue {
	return &CasualQueue{}
}

// JoinOrMatch pairs the caller with the waiting occupant, if it belongs
// to a different player, and clears the slot. Otherwise the caller
// becomes the occupant and false is returned.
func (q *CasualQueue) JoinOrMatch(conn session.Conn, id model.PlayerID) (Waiter, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.waiting != nil && q.waiting.PlayerID != id {
		opponent := *q.waiting
		q.waiting = nil
		return opponent, true
	}

	q.waiting = &Waiter{PlayerID: id, Conn: conn}
	return Waiter{}, false
}

// ClearIfWaiting empties the slot when connID is the occupant
func (q *CasualQueue) ClearIfWaiting(connID model.ConnID) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.waiting != nil && q.waiting.Conn.ID() == connID {
		q.waiting = nil
		return true
	}
	return false
}

// RemovePlayer empties the slot when the player is the occupant
func (q *CasualQueue) RemovePlayer(id model.PlayerID) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.waiting != nil && q.waiting.PlayerID == id {
		q.waiting = nil
		return true
	}
	return false
}

// Waiting returns the current occupant, if any
func (q *CasualQueue) Waiting() (Waiter, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.waiting == nil {
		return Waiter{}, false
	}
	return *q.waiting, true
}
