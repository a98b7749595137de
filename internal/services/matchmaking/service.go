// Package matchmaking pairs players for matches.
//
// Three sources produce pairings: a ranked queue matched on skill
// proximity, direct invites, and a single-slot casual queue. Service
// owns all three and guarantees that once a player is paired they are
// purged from every other source in the same step.
package matchmaking

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mcoot/pongarena/internal/dependencies/clock"
	"github.com/mcoot/pongarena/internal/model"
	"github.com/mcoot/pongarena/internal/services/engine"
	"github.com/mcoot/pongarena/internal/services/session"
)

// Config holds matchmaking settings
type Config struct {
	SkillTolerance int
	// InviteTTL evicts unanswered invites. Zero keeps them indefinitely.
	InviteTTL time.Duration
}

// DefaultConfig returns the default matchmaking settings
func DefaultConfig() Config {
	return Config{
		SkillTolerance: DefaultSkillTolerance,
		InviteTTL:      0,
	}
}

// IdentityLookup resolves identity snapshots
type IdentityLookup interface {
	Lookup(ctx context.Context, id model.PlayerID) (model.Identity, error)
	LookupByNick(ctx context.Context, nick string) (model.Identity, error)
}

// RoomCreator starts matches for confirmed pairings
type RoomCreator interface {
	CreateRoom(ctx context.Context, kind model.MatchKind, p1, p2 engine.Participant) (model.RoomID, error)
	InMatch(id model.PlayerID) bool
}

// Join statuses
const (
	StatusQueued     = model.MatchmakingQueued
	StatusWaiting    = model.MatchmakingWaiting
	StatusMatchFound = "match_found"
)

// JoinResult describes what a queue join did
type JoinResult struct {
	Status     string          `json:"status"`
	Mode       model.QueueMode `json:"mode"`
	RoomID     model.RoomID    `json:"room_id,omitempty"`
	OpponentID model.PlayerID  `json:"opponent_id,omitempty"`
}

// RespondResult describes the effect of answering an invite
type RespondResult struct {
	Decision   model.InviteDecision `json:"decision"`
	RoomID     model.RoomID         `json:"room_id,omitempty"`
	OpponentID model.PlayerID       `json:"opponent_id,omitempty"`
}

// IncomingInvite is a pending invite with the sender's display details
type IncomingInvite struct {
	SenderID     model.PlayerID `json:"sender_id"`
	SenderNick   string         `json:"sender_nick"`
	SenderAvatar string         `json:"sender_avatar"`
	CreatedAt    time.Time      `json:"created_at"`
}

// Service coordinates the ranked queue, invites and the casual slot
type Service struct {
	ranked  *RankedQueue
	invites *InviteRegistry
	casual  *CasualQueue

	directory IdentityLookup
	sessions  *session.Registry
	rooms     RoomCreator
	clock     clock.Clock
	logger    *slog.Logger

	// mu serialises pairings across all three structures
	mu sync.Mutex
}

// New creates a matchmaking service
func New(
	cfg Config,
	directory IdentityLookup,
	sessions *session.Registry,
	rooms RoomCreator,
	clk clock.Clock,
	logger *slog.Logger,
) *Service {
	return &Service{
		ranked:    NewRankedQueue(cfg.SkillTolerance),
		invites:   NewInviteRegistry(clk, cfg.InviteTTL),
		casual:    NewCasualQueue(),
		directory: directory,
		sessions:  sessions,
		rooms:     rooms,
		clock:     clk,
		logger:    logger.With(slog.String("component", "matchmaking")),
	}
}

// Ranked exposes the ranked queue for inspection
func (s *Service) Ranked() *RankedQueue {
	return s.ranked
}

// Invites exposes the invite registry for inspection
func (s *Service) Invites() *InviteRegistry {
	return s.invites
}

// Casual exposes the casual slot for inspection
func (s *Service) Casual() *CasualQueue {
	return s.casual
}

// JoinQueue puts a connected player into the ranked or casual queue,
// pairing them immediately when an opponent is available.
func (s *Service) JoinQueue(ctx context.Context, id model.PlayerID, mode model.QueueMode) (JoinResult, error) {
	if _, err := model.ParseQueueMode(string(mode)); err != nil {
		return JoinResult{}, err
	}

	sess, ok := s.sessions.SessionFor(id)
	if !ok {
		return JoinResult{}, model.ErrNotConnected
	}
	if s.rooms.InMatch(id) {
		return JoinResult{}, model.ErrAlreadyInMatch
	}

	identity, err := s.directory.Lookup(ctx, id)
	if err != nil {
		return JoinResult{}, err
	}
	self := engine.Participant{Identity: identity, Conn: sess.Conn}

	s.mu.Lock()
	defer s.mu.Unlock()

	// The socket may have closed or been paired while the lookup ran
	if !s.sessions.IsCurrent(sess.Conn.ID()) {
		return JoinResult{}, model.ErrNotConnected
	}
	if s.rooms.InMatch(id) {
		return JoinResult{}, model.ErrAlreadyInMatch
	}

	if mode == model.QueueModeRanked {
		return s.joinRankedLocked(ctx, self)
	}
	return s.joinCasualLocked(ctx, self)
}

func (s *Service) joinRankedLocked(ctx context.Context, self engine.Participant) (JoinResult, error) {
	id := self.Identity.ID
	s.casual.RemovePlayer(id)

	entry := model.QueueEntry{
		PlayerID:   id,
		SkillScore: self.Identity.SkillScore,
		EnqueuedAt: s.clock.Now(),
	}

	// Candidates whose owner is offline or already playing are stale
	// and fall out of the queue during the scan.
	var opponent engine.Participant
	found, ok := s.ranked.FindMatch(entry, func(candidate model.QueueEntry) bool {
		if s.rooms.InMatch(candidate.PlayerID) {
			return false
		}
		sess, live := s.sessions.SessionFor(candidate.PlayerID)
		if !live {
			s.logger.Debug("discarding stale ranked entry",
				slog.String("player_id", string(candidate.PlayerID)))
			return false
		}
		opponent = engine.Participant{Identity: sess.Identity, Conn: sess.Conn}
		return true
	})

	if !ok {
		s.notifyStatus(id, model.MatchmakingQueued, model.QueueModeRanked)
		s.logger.Info("player queued",
			slog.String("player_id", string(id)),
			slog.Int("skill_score", entry.SkillScore))
		return JoinResult{Status: StatusQueued, Mode: model.QueueModeRanked}, nil
	}

	opponent.Identity.SkillScore = found.SkillScore
	roomID, err := s.pairLocked(ctx, model.MatchKindRanked, opponent, self)
	if err != nil {
		// Requester keeps their place and the opponent returns to the queue
		s.ranked.Enqueue(found)
		s.ranked.Enqueue(entry)
		return JoinResult{}, err
	}

	return JoinResult{
		Status:     StatusMatchFound,
		Mode:       model.QueueModeRanked,
		RoomID:     roomID,
		OpponentID: opponent.Identity.ID,
	}, nil
}

func (s *Service) joinCasualLocked(ctx context.Context, self engine.Participant) (JoinResult, error) {
	id := self.Identity.ID
	s.ranked.Leave(id)

	waiter, paired := s.casual.JoinOrMatch(self.Conn, id)
	if paired {
		sess, live := s.sessions.SessionFor(waiter.PlayerID)
		if !live || sess.Conn.ID() != waiter.Conn.ID() || s.rooms.InMatch(waiter.PlayerID) {
			// Stale occupant; the requester takes the slot instead
			s.casual.JoinOrMatch(self.Conn, id)
			paired = false
		} else {
			opponent := engine.Participant{Identity: sess.Identity, Conn: sess.Conn}
			roomID, err := s.pairLocked(ctx, model.MatchKindCasualFIFO, opponent, self)
			if err != nil {
				// The occupant keeps the slot
				s.casual.JoinOrMatch(waiter.Conn, waiter.PlayerID)
				return JoinResult{}, err
			}
			return JoinResult{
				Status:     StatusMatchFound,
				Mode:       model.QueueModeCasual,
				RoomID:     roomID,
				OpponentID: opponent.Identity.ID,
			}, nil
		}
	}

	s.notifyStatus(id, model.MatchmakingWaiting, model.QueueModeCasual)
	s.logger.Info("player waiting for casual match", slog.String("player_id", string(id)))
	return JoinResult{Status: StatusWaiting, Mode: model.QueueModeCasual}, nil
}

// LeaveQueue removes the player from both queues. Leaving when not
// queued is a no-op and reports false.
func (s *Service) LeaveQueue(_ context.Context, id model.PlayerID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	leftRanked := s.ranked.Leave(id)
	leftCasual := s.casual.RemovePlayer(id)
	if !leftRanked && !leftCasual {
		return false
	}

	mode := model.QueueModeRanked
	if leftCasual {
		mode = model.QueueModeCasual
	}
	s.notifyStatus(id, model.MatchmakingLeft, mode)
	return true
}

// ReleaseConnection drops a closed connection from the casual slot.
// Ranked entries and invites outlive the socket; stale ranked entries
// are discarded by the next scan.
func (s *Service) ReleaseConnection(connID model.ConnID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.casual.ClearIfWaiting(connID)
}

// SendInvite records an invite from sender to the player with targetNick
// and notifies the target if they are online.
func (s *Service) SendInvite(ctx context.Context, senderID model.PlayerID, targetNick string) (model.PendingInvite, error) {
	sender, err := s.directory.Lookup(ctx, senderID)
	if err != nil {
		return model.PendingInvite{}, err
	}
	target, err := s.directory.LookupByNick(ctx, targetNick)
	if err != nil {
		return model.PendingInvite{}, err
	}

	invite, err := s.invites.Send(sender.ID, target.ID)
	if err != nil {
		return model.PendingInvite{}, err
	}

	s.sessions.Send(target.ID, model.NewEvent(model.EventInviteReceived, s.clock.Now(), model.InviteReceivedPayload{
		SenderID:     sender.ID,
		SenderNick:   sender.Nick,
		SenderAvatar: sender.AvatarOrDefault(),
	}))

	s.logger.Info("invite sent",
		slog.String("sender_id", string(sender.ID)),
		slog.String("target_id", string(target.ID)))
	return invite, nil
}

// RespondInvite answers the invite that senderNick sent to the responder.
// The invite is consumed whichever way it is answered.
func (s *Service) RespondInvite(
	ctx context.Context,
	responderID model.PlayerID,
	senderNick string,
	decision model.InviteDecision,
) (RespondResult, error) {
	if _, err := model.ParseInviteDecision(string(decision)); err != nil {
		return RespondResult{}, err
	}

	responder, err := s.directory.Lookup(ctx, responderID)
	if err != nil {
		return RespondResult{}, err
	}
	sender, err := s.directory.LookupByNick(ctx, senderNick)
	if err != nil {
		return RespondResult{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if decision == model.InviteDecline {
		if _, err := s.invites.Take(sender.ID, responder.ID); err != nil {
			return RespondResult{}, err
		}
		s.sessions.Send(sender.ID, model.NewEvent(model.EventInviteDeclined, s.clock.Now(), model.InviteDeclinedPayload{
			Nick: responder.Nick,
		}))
		s.logger.Info("invite declined",
			slog.String("sender_id", string(sender.ID)),
			slog.String("target_id", string(responder.ID)))
		return RespondResult{Decision: decision}, nil
	}

	responderSess, ok := s.sessions.SessionFor(responder.ID)
	if !ok {
		return RespondResult{}, model.ErrNotConnected
	}
	senderSess, ok := s.sessions.SessionFor(sender.ID)
	if !ok {
		return RespondResult{}, fmt.Errorf("inviter %s: %w", sender.Nick, model.ErrNotConnected)
	}
	if s.rooms.InMatch(responder.ID) || s.rooms.InMatch(sender.ID) {
		return RespondResult{}, model.ErrAlreadyInMatch
	}

	if _, err := s.invites.Take(sender.ID, responder.ID); err != nil {
		return RespondResult{}, err
	}

	roomID, err := s.pairLocked(ctx, model.MatchKindCasualInvite,
		engine.Participant{Identity: sender, Conn: senderSess.Conn},
		engine.Participant{Identity: responder, Conn: responderSess.Conn})
	if err != nil {
		return RespondResult{}, err
	}

	s.sessions.Send(sender.ID, model.NewEvent(model.EventInviteAccepted, s.clock.Now(), model.InviteAcceptedPayload{
		RoomID:     roomID,
		OpponentID: responder.ID,
	}))

	return RespondResult{Decision: decision, RoomID: roomID, OpponentID: sender.ID}, nil
}

// IncomingInvites lists the invites waiting on the player
func (s *Service) IncomingInvites(ctx context.Context, id model.PlayerID) []IncomingInvite {
	pending := s.invites.Incoming(id)
	out := make([]IncomingInvite, 0, len(pending))
	for _, invite := range pending {
		sender, err := s.directory.Lookup(ctx, invite.SenderID)
		if err != nil {
			continue
		}
		out = append(out, IncomingInvite{
			SenderID:     sender.ID,
			SenderNick:   sender.Nick,
			SenderAvatar: sender.AvatarOrDefault(),
			CreatedAt:    invite.CreatedAt,
		})
	}
	return out
}

// pairLocked creates the room and purges both players from every
// matchmaking source. Both players are told about the match unless it
// came from an invite, which has its own notifications.
func (s *Service) pairLocked(ctx context.Context, kind model.MatchKind, p1, p2 engine.Participant) (model.RoomID, error) {
	roomID, err := s.rooms.CreateRoom(ctx, kind, p1, p2)
	if err != nil {
		s.logger.Warn("failed to create room",
			slog.String("kind", string(kind)),
			slog.Any("error", err))
		return "", err
	}

	for _, p := range []engine.Participant{p1, p2} {
		s.ranked.Leave(p.Identity.ID)
		s.casual.RemovePlayer(p.Identity.ID)
		s.invites.RemoveInvolving(p.Identity.ID)
	}

	if kind != model.MatchKindCasualInvite {
		s.notifyMatchFound(p1, p2, roomID, kind)
		s.notifyMatchFound(p2, p1, roomID, kind)
	}

	s.logger.Info("players paired",
		slog.String("room_id", string(roomID)),
		slog.String("kind", string(kind)),
		slog.String("player1", string(p1.Identity.ID)),
		slog.String("player2", string(p2.Identity.ID)))
	return roomID, nil
}

func (s *Service) notifyMatchFound(to, opponent engine.Participant, roomID model.RoomID, kind model.MatchKind) {
	s.sessions.Send(to.Identity.ID, model.NewEvent(model.EventMatchFound, s.clock.Now(), model.MatchFoundPayload{
		RoomID:     roomID,
		Kind:       kind,
		OpponentID: opponent.Identity.ID,
		Opponent:   opponent.Identity.Nick,
	}))
}

func (s *Service) notifyStatus(id model.PlayerID, status string, mode model.QueueMode) {
	s.sessions.Send(id, model.NewEvent(model.EventMatchmakingStatus, s.clock.Now(), model.MatchmakingStatusPayload{
		Status: status,
		Mode:   mode,
	}))
}
