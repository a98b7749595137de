package matchmaking

import (
	"sync"

	"github.com/mcoot/pongarena/internal/model"
)

// DefaultSkillTolerance is the widest skill gap the ranked queue will pair
const DefaultSkillTolerance = 10000

// RankedQueue is a FIFO of players waiting for a skill-proximate opponent.
// Every method is a single atomic step, so two concurrent FindMatch calls
// never claim the same entry.
type RankedQueue struct {
	tolerance int

	mu      sync.Mutex
	entries []model.QueueEntry
}

// NewRankedQueue creates an empty queue
func NewRankedQueue(tolerance int) *RankedQueue {
	return &RankedQueue{tolerance: tolerance}
}

// Enqueue adds an entry, replacing any previous entry for the same player
func (q *RankedQueue) Enqueue(entry model.QueueEntry) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.removeLocked(entry.PlayerID)
	q.entries = append(q.entries, entry)
}

// FindMatch looks for the earliest queued opponent within tolerance.
//
// The requester's previous entry is dropped first. Candidates for which
// eligible returns false are stale and are discarded while the scan
// continues. On success the opponent is removed and returned; otherwise
// the requester is appended and false is returned.
func (q *RankedQueue) FindMatch(entry model.QueueEntry, eligible func(model.QueueEntry) bool) (model.QueueEntry, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.removeLocked(entry.PlayerID)

	kept := q.entries[:0]
	var (
		opponent model.QueueEntry
		found    bool
	)
	for _, candidate := range q.entries {
		if found || abs(candidate.SkillScore-entry.SkillScore) > q.tolerance {
			kept = append(kept, candidate)
			continue
		}
		if eligible != nil && !eligible(candidate) {
			continue
		}
		opponent = candidate
		found = true
	}
	q.entries = kept

	if !found {
		q.entries = append(q.entries, entry)
	}
	return opponent, found
}

// Leave removes a player's entry. Leaving when absent is not an error.
func (q *RankedQueue) Leave(id model.PlayerID) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.removeLocked(id)
}

// Contains reports whether the player has a queued entry
func (q *RankedQueue) Contains(id model.PlayerID) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, e := range q.entries {
		if e.PlayerID == id {
			return true
		}
	}
	return false
}

// Len returns the number of queued entries
func (q *RankedQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// Entries returns a copy of the queue in insertion order
func (q *RankedQueue) Entries() []model.QueueEntry {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]model.QueueEntry, len(q.entries))
	copy(out, q.entries)
	return out
}

func (q *RankedQueue) removeLocked(id model.PlayerID) bool {
	for i, e := range q.entries {
		if e.PlayerID == id {
			q.entries = append(q.entries[:i], q.entries[i+1:]...)
			return true
		}
	}
	return false
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
