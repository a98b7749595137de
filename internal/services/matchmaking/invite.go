package matchmaking

import (
	"sort"
	"sync"
	"time"

	"github.com/mcoot/pongarena/internal/dependencies/clock"
	"github.com/mcoot/pongarena/internal/model"
)

type inviteKey struct {
	sender model.PlayerID
	target model.PlayerID
}

// InviteRegistry holds pending invites keyed by (sender, target).
// A zero TTL keeps invites until they are answered.
type InviteRegistry struct {
	clock clock.Clock
	ttl   time.Duration

	mu      sync.Mutex
	invites map[inviteKey]model.PendingInvite
}

// NewInviteRegistry creates an empty registry
func NewInviteRegistry(clk clock.Clock, ttl time.Duration) *InviteRegistry {
	return &InviteRegistry{
		clock:   clk,
		ttl:     ttl,
		invites: make(map[inviteKey]model.PendingInvite),
	}
}

// Send records an invite, overwriting an existing one for the same pair
func (r *InviteRegistry) Send(sender, target model.PlayerID) (model.PendingInvite, error) {
	if sender == target {
		return model.PendingInvite{}, model.ErrSelfInvite
	}

	invite := model.PendingInvite{
		SenderID:  sender,
		TargetID:  target,
		CreatedAt: r.clock.Now(),
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.invites[inviteKey{sender, target}] = invite
	return invite, nil
}

// Take removes and returns the invite from sender to target
func (r *InviteRegistry) Take(sender, target model.PlayerID) (model.PendingInvite, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := inviteKey{sender, target}
	invite, ok := r.invites[key]
	if !ok {
		return model.PendingInvite{}, model.ErrInviteNotFound
	}
	delete(r.invites, key)
	if r.expired(invite) {
		return model.PendingInvite{}, model.ErrInviteNotFound
	}
	return invite, nil
}

// RemoveInvolving drops every invite the player sent or received
func (r *InviteRegistry) RemoveInvolving(id model.PlayerID) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for key := range r.invites {
		if key.sender == id || key.target == id {
			delete(r.invites, key)
			removed++
		}
	}
	return removed
}

// Incoming lists unexpired invites addressed to target, oldest first
func (r *InviteRegistry) Incoming(target model.PlayerID) []model.PendingInvite {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []model.PendingInvite
	for key, invite := range r.invites {
		if key.target != target {
			continue
		}
		if r.expired(invite) {
			delete(r.invites, key)
			continue
		}
		out = append(out, invite)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Len returns the number of stored invites, expired or not
func (r *InviteRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.invites)
}

func (r *InviteRegistry) expired(invite model.PendingInvite) bool {
	if r.ttl <= 0 {
		return false
	}
	return r.clock.Since(invite.CreatedAt) >= r.ttl
}
