// Package ws serves the realtime socket that carries matchmaking
// commands, paddle input and match events.
package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/mcoot/pongarena/internal/api/apierr"
	"github.com/mcoot/pongarena/internal/dependencies/clock"
	"github.com/mcoot/pongarena/internal/model"
	"github.com/mcoot/pongarena/internal/services/matchmaking"
	"github.com/mcoot/pongarena/internal/services/session"
)

// Time allowed for one socket command to finish
const commandTimeout = 5 * time.Second

// Authenticator resolves a session token to the identity behind it
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (model.Identity, error)
}

// Supervisor owns connection lifecycle and input routing
type Supervisor interface {
	Connect(conn session.Conn, identity model.Identity) session.Conn
	Disconnect(conn session.Conn)
	Input(connID model.ConnID, input model.Input) error
}

// Matchmaker handles queue and invite commands
type Matchmaker interface {
	JoinQueue(ctx context.Context, id model.PlayerID, mode model.QueueMode) (matchmaking.JoinResult, error)
	LeaveQueue(ctx context.Context, id model.PlayerID) bool
	SendInvite(ctx context.Context, senderID model.PlayerID, targetNick string) (model.PendingInvite, error)
	RespondInvite(ctx context.Context, responderID model.PlayerID, senderNick string, decision model.InviteDecision) (matchmaking.RespondResult, error)
}

// Handler upgrades authenticated requests and runs their sockets
type Handler struct {
	auth        Authenticator
	supervisor  Supervisor
	matchmaking Matchmaker
	clock       clock.Clock
	logger      *slog.Logger
	upgrader    websocket.Upgrader

	mu      sync.Mutex
	clients map[model.ConnID]*Client
	wg      sync.WaitGroup
}

// NewHandler creates a new Handler. checkOrigin may be nil to accept any origin.
func NewHandler(
	auth Authenticator,
	supervisor Supervisor,
	mm Matchmaker,
	clk clock.Clock,
	logger *slog.Logger,
	checkOrigin func(r *http.Request) bool,
) *Handler {
	if checkOrigin == nil {
		checkOrigin = func(*http.Request) bool { return true }
	}
	return &Handler{
		auth:        auth,
		supervisor:  supervisor,
		matchmaking: mm,
		clock:       clk,
		logger:      logger.With(slog.String("component", "ws")),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin,
		},
		clients: make(map[model.ConnID]*Client),
	}
}

// ServeHTTP handles GET /ws
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	token := tokenFrom(r)
	if token == "" {
		apierr.WriteError(w, apierr.NewUnauthorizedError())
		return
	}
	identity, err := h.auth.Authenticate(r.Context(), token)
	if err != nil {
		apierr.WriteError(w, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error
		h.logger.Debug("upgrade failed", slog.String("error", err.Error()))
		return
	}

	client := newClient(model.ConnID("c_"+uuid.NewString()), identity, conn, h.logger)
	h.track(client)

	superseded := h.supervisor.Connect(client, identity)
	if old, ok := superseded.(*Client); ok {
		old.Close()
	}

	h.wg.Add(2)
	go func() {
		defer h.wg.Done()
		client.writePump()
	}()
	go func() {
		defer h.wg.Done()
		client.readPump(h.dispatch)
		client.Close()
		h.supervisor.Disconnect(client)
		h.untrack(client)
	}()
}

// Close closes every open socket and waits for their pumps to exit
func (h *Handler) Close() {
	h.mu.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		c.Close()
	}
	h.wg.Wait()
}

// ClientCount returns the number of open sockets
func (h *Handler) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Handler) track(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c.ID()] = c
}

func (h *Handler) untrack(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, c.ID())
}

func (h *Handler) dispatch(c *Client, data []byte) {
	var msg Envelope
	if err := json.Unmarshal(data, &msg); err != nil {
		h.replyError(c, "", apierr.NewInvalidRequestError("Malformed message"))
		return
	}

	// Input is fire and forget: it arrives every frame and has no reply
	if msg.Type == TypeInput {
		var in InputData
		if err := json.Unmarshal(msg.Data, &in); err != nil {
			return
		}
		if err := h.supervisor.Input(c.ID(), model.Input{Direction: in.Direction}); err != nil {
			c.logger.Debug("input dropped", slog.String("error", err.Error()))
		}
		return
	}

	if msg.Type == TypePing {
		_ = c.Send(model.NewEvent(model.EventPong, h.clock.Now(), nil))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	result, err := h.command(ctx, c, msg)
	if err != nil {
		h.replyError(c, msg.Type, err)
		return
	}
	_ = c.Send(model.NewEvent(model.EventAck, h.clock.Now(), model.AckPayload{
		For:    msg.Type,
		Result: result,
	}))
}

func (h *Handler) command(ctx context.Context, c *Client, msg Envelope) (any, error) {
	switch msg.Type {
	case TypeQueueJoin:
		var data QueueJoinData
		if err := decode(msg.Data, &data); err != nil {
			return nil, err
		}
		mode, err := model.ParseQueueMode(data.Mode)
		if err != nil {
			return nil, err
		}
		return h.matchmaking.JoinQueue(ctx, c.PlayerID(), mode)

	case TypeQueueLeave:
		left := h.matchmaking.LeaveQueue(ctx, c.PlayerID())
		return map[string]bool{"left": left}, nil

	case TypeInviteSend:
		var data InviteSendData
		if err := decode(msg.Data, &data); err != nil {
			return nil, err
		}
		if data.Nick == "" {
			return nil, apierr.NewInvalidRequestError("nick is required")
		}
		invite, err := h.matchmaking.SendInvite(ctx, c.PlayerID(), data.Nick)
		if err != nil {
			return nil, err
		}
		return map[string]string{"target_id": string(invite.TargetID)}, nil

	case TypeInviteRespond:
		var data InviteRespondData
		if err := decode(msg.Data, &data); err != nil {
			return nil, err
		}
		decision, err := model.ParseInviteDecision(data.Action)
		if err != nil {
			return nil, err
		}
		return h.matchmaking.RespondInvite(ctx, c.PlayerID(), data.Nick, decision)

	default:
		return nil, apierr.NewUnknownMessageError(msg.Type)
	}
}

func (h *Handler) replyError(c *Client, forType string, err error) {
	status, apiErr := apierr.Describe(err)
	if status >= http.StatusInternalServerError {
		c.logger.Error("socket command failed",
			slog.String("type", forType),
			slog.String("error", err.Error()))
	}
	_ = c.Send(model.NewEvent(model.EventError, h.clock.Now(), model.ErrorPayload{
		For:     forType,
		Code:    apiErr.Code,
		Message: apiErr.Message,
	}))
}

func decode(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return apierr.NewInvalidRequestError("data is required")
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return apierr.NewInvalidRequestError("Malformed message data")
	}
	return nil
}

// tokenFrom reads the session token from the query string or a bearer header.
// Browsers cannot set headers on a socket upgrade, hence the query fallback.
func tokenFrom(r *http.Request) string {
	if token := r.URL.Query().Get("token"); token != "" {
		return token
	}
	header := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(header, "Bearer "); ok {
		return token
	}
	return ""
}

var _ session.Conn = (*Client)(nil)
