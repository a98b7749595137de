package handler

import (
	"encoding/json"
	"net/http"

	"github.com/mcoot/pongarena/internal/api/middleware"
	"github.com/mcoot/pongarena/internal/api/request"
	"github.com/mcoot/pongarena/internal/api/response"
	"github.com/mcoot/pongarena/internal/model"
	"github.com/mcoot/pongarena/internal/services/matchmaking"
)

// MatchmakingHandler handles queue and invite endpoints.
// Every operation here needs the caller to hold a live socket.
type MatchmakingHandler struct {
	matchmaking *matchmaking.Service
}

// NewMatchmakingHandler creates a new matchmaking handler
func NewMatchmakingHandler(mm *matchmaking.Service) *MatchmakingHandler {
	return &MatchmakingHandler{
		matchmaking: mm,
	}
}

// JoinQueue handles POST /api/v1/matchmaking/queue
func (h *MatchmakingHandler) JoinQueue(w http.ResponseWriter, r *http.Request) {
	identity := middleware.MustGetIdentity(r.Context())

	var req request.JoinQueueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, NewInvalidRequestError("invalid request body"))
		return
	}

	mode, err := model.ParseQueueMode(req.Mode)
	if err != nil {
		WriteError(w, err)
		return
	}

	result, err := h.matchmaking.JoinQueue(r.Context(), identity.ID, mode)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.OK(w, result)
}

// LeaveQueue handles DELETE /api/v1/matchmaking/queue
func (h *MatchmakingHandler) LeaveQueue(w http.ResponseWriter, r *http.Request) {
	identity := middleware.MustGetIdentity(r.Context())

	left := h.matchmaking.LeaveQueue(r.Context(), identity.ID)
	response.OK(w, response.QueueLeftResponse{Left: left})
}

// ListInvites handles GET /api/v1/invites
func (h *MatchmakingHandler) ListInvites(w http.ResponseWriter, r *http.Request) {
	identity := middleware.MustGetIdentity(r.Context())

	invites := h.matchmaking.IncomingInvites(r.Context(), identity.ID)
	if invites == nil {
		invites = []matchmaking.IncomingInvite{}
	}
	response.OK(w, response.InvitesResponse{Invites: invites})
}

// SendInvite handles POST /api/v1/invites
func (h *MatchmakingHandler) SendInvite(w http.ResponseWriter, r *http.Request) {
	identity := middleware.MustGetIdentity(r.Context())

	var req request.SendInviteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, NewInvalidRequestError("invalid request body"))
		return
	}
	if req.Nick == "" {
		WriteError(w, NewInvalidRequestError("nick is required"))
		return
	}

	invite, err := h.matchmaking.SendInvite(r.Context(), identity.ID, req.Nick)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.Created(w, response.InviteSentResponse{
		TargetID:  string(invite.TargetID),
		CreatedAt: invite.CreatedAt,
	})
}

// RespondInvite handles POST /api/v1/invites/respond
func (h *MatchmakingHandler) RespondInvite(w http.ResponseWriter, r *http.Request) {
	identity := middleware.MustGetIdentity(r.Context())

	var req request.RespondInviteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, NewInvalidRequestError("invalid request body"))
		return
	}
	if req.Nick == "" {
		WriteError(w, NewInvalidRequestError("nick is required"))
		return
	}

	decision, err := model.ParseInviteDecision(req.Action)
	if err != nil {
		WriteError(w, err)
		return
	}

	result, err := h.matchmaking.RespondInvite(r.Context(), identity.ID, req.Nick, decision)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.OK(w, result)
}
