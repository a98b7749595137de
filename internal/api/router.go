package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/pongarena/internal/api/handler"
	"github.com/mcoot/pongarena/internal/api/middleware"
	"github.com/mcoot/pongarena/internal/api/response"
	"github.com/mcoot/pongarena/internal/services/auth"
	"github.com/mcoot/pongarena/internal/services/matchmaking"
	"github.com/mcoot/pongarena/internal/services/results"
)

// RouterConfig holds configuration for the API router
type RouterConfig struct {
	Logger      *slog.Logger
	AuthService *auth.Service
	Matchmaking *matchmaking.Service
	Results     *results.Service

	// Sockets serves GET /ws. Optional.
	Sockets http.Handler

	// Stats feeds the health endpoint. Optional.
	Stats Stats
}

// Stats reports live server load
type Stats interface {
	OnlinePlayers() int
	ActiveMatches() int
}

// NewRouter creates a new API router with all routes configured
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()

	// Create handlers
	playerHandler := handler.NewPlayerHandler(cfg.AuthService)
	matchmakingHandler := handler.NewMatchmakingHandler(cfg.Matchmaking)
	resultsHandler := handler.NewResultsHandler(cfg.Results)

	// Create middleware
	authMiddleware := middleware.Auth(cfg.AuthService)
	loggingMiddleware := middleware.Logging(cfg.Logger)
	recoveryMiddleware := middleware.Recovery(cfg.Logger)

	r.Use(middleware.RequestID)

	// API subrouter with common middleware
	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(recoveryMiddleware)
	api.Use(loggingMiddleware)

	// Health check endpoint (no auth)
	api.HandleFunc("/health", healthHandler(cfg.Stats)).Methods(http.MethodGet)

	// Player routes (no auth required for creating players/logging in)
	api.HandleFunc("/players/guest", playerHandler.CreateGuest).Methods(http.MethodPost)
	api.HandleFunc("/players/register", playerHandler.Register).Methods(http.MethodPost)
	api.HandleFunc("/players/login", playerHandler.Login).Methods(http.MethodPost)

	// Public reads
	api.HandleFunc("/players/{id}/matches", resultsHandler.History).Methods(http.MethodGet)
	api.HandleFunc("/leaderboard", resultsHandler.Leaderboard).Methods(http.MethodGet)

	// Protected routes
	protected := api.NewRoute().Subrouter()
	protected.Use(authMiddleware)
	protected.HandleFunc("/players/me", playerHandler.GetMe).Methods(http.MethodGet)
	protected.HandleFunc("/matchmaking/queue", matchmakingHandler.JoinQueue).Methods(http.MethodPost)
	protected.HandleFunc("/matchmaking/queue", matchmakingHandler.LeaveQueue).Methods(http.MethodDelete)
	protected.HandleFunc("/invites", matchmakingHandler.ListInvites).Methods(http.MethodGet)
	protected.HandleFunc("/invites", matchmakingHandler.SendInvite).Methods(http.MethodPost)
	protected.HandleFunc("/invites/respond", matchmakingHandler.RespondInvite).Methods(http.MethodPost)

	// Realtime socket, authenticated by the socket handler itself
	if cfg.Sockets != nil {
		sockets := recoveryMiddleware(loggingMiddleware(cfg.Sockets))
		r.Handle("/ws", sockets).Methods(http.MethodGet)
	}

	return r
}

func healthHandler(stats Stats) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := response.HealthResponse{Status: "ok"}
		if stats != nil {
			resp.PlayersOnline = stats.OnlinePlayers()
			resp.ActiveMatches = stats.ActiveMatches()
		}
		response.OK(w, resp)
	}
}
