package factory

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/mcoot/pongarena/internal/dependencies/clock"
	"github.com/mcoot/pongarena/internal/dependencies/random"
	"github.com/mcoot/pongarena/internal/services/auth"
	"github.com/mcoot/pongarena/internal/services/directory"
	"github.com/mcoot/pongarena/internal/services/engine"
	"github.com/mcoot/pongarena/internal/services/matchmaking"
	"github.com/mcoot/pongarena/internal/services/results"
	"github.com/mcoot/pongarena/internal/services/room"
	"github.com/mcoot/pongarena/internal/services/session"
	"github.com/mcoot/pongarena/internal/services/supervisor"
	"github.com/mcoot/pongarena/internal/storage"
	"github.com/mcoot/pongarena/internal/storage/memory"
	redisstorage "github.com/mcoot/pongarena/internal/storage/redis"
	sqlitestorage "github.com/mcoot/pongarena/internal/storage/sqlite"
	"github.com/mcoot/pongarena/internal/web/ws"
)

// Storage type constants
const (
	StorageTypeMemory = "memory"
	StorageTypeRedis  = "redis"
	StorageTypeSQLite = "sqlite"
)

// App contains all wired application components
type App struct {
	// Storage
	Storage storage.Storage

	// External dependencies
	Clock  clock.Clock
	Random random.Random

	// Services
	AuthService *auth.Service
	Directory   *directory.Directory
	Sessions    *session.Registry
	Rooms       *room.Coordinator
	Matchmaking *matchmaking.Service
	Results     *results.Service
	Supervisor  *supervisor.Supervisor
	Sockets     *ws.Handler
}

// Config holds configuration for the application factory
type Config struct {
	// AuthConfig holds configuration for the auth service (optional)
	// If zero value, defaults to auth.DefaultConfig()
	AuthConfig auth.Config
	// EngineConfig holds match rules (optional)
	// If nil, defaults to engine.DefaultConfig()
	EngineConfig *engine.Config
	// MatchmakingConfig holds queue settings (optional)
	// If nil, defaults to matchmaking.DefaultConfig()
	MatchmakingConfig *matchmaking.Config
	// ResultsConfig holds rating and listing limits (optional)
	// If nil, defaults to results.DefaultConfig()
	ResultsConfig *results.Config
	// Logger is the application logger (optional)
	// If nil, a no-op logger is used
	Logger *slog.Logger
	// StorageType selects the storage backend ("memory", "redis" or "sqlite")
	// If empty, defaults to "memory"
	StorageType string
	// RedisConfig holds Redis connection settings (required if StorageType is "redis")
	RedisConfig *redisstorage.Config
	// SQLiteConfig holds database settings (optional, defaults apply for "sqlite")
	SQLiteConfig *sqlitestorage.Config
	// CheckOrigin vets socket upgrade origins (optional, any origin if nil)
	CheckOrigin func(r *http.Request) bool
}

// New creates a new application with all dependencies wired
func New(cfg Config) (*App, error) {
	// Use no-op logger if not provided
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	// Create storage based on type
	var store storage.Storage
	storageType := cfg.StorageType
	if storageType == "" {
		storageType = StorageTypeMemory
	}

	switch storageType {
	case StorageTypeMemory:
		store = memory.New()
	case StorageTypeRedis:
		if cfg.RedisConfig == nil {
			return nil, errors.New("RedisConfig required when StorageType is redis")
		}
		redisStore, err := redisstorage.New(*cfg.RedisConfig)
		if err != nil {
			return nil, err
		}
		store = redisStore
	case StorageTypeSQLite:
		sqliteCfg := sqlitestorage.DefaultConfig()
		if cfg.SQLiteConfig != nil {
			sqliteCfg = *cfg.SQLiteConfig
		}
		sqliteStore, err := sqlitestorage.New(sqliteCfg, logger)
		if err != nil {
			return nil, err
		}
		store = sqliteStore
	default:
		return nil, errors.New("invalid StorageType: must be 'memory', 'redis' or 'sqlite'")
	}

	// Create external dependencies
	clk := clock.New()
	rnd := random.New()

	return newWithDependencies(store, clk, rnd, cfg, logger), nil
}

// newWithDependencies creates an App with the given dependencies (useful for testing)
func newWithDependencies(store storage.Storage, clk clock.Clock, rnd random.Random, cfg Config, logger *slog.Logger) *App {
	// Use defaults where config was not provided
	authCfg := cfg.AuthConfig
	if authCfg.SessionDuration == 0 {
		authCfg = auth.DefaultConfig()
	}
	engineCfg := engine.DefaultConfig()
	if cfg.EngineConfig != nil {
		engineCfg = *cfg.EngineConfig
	}
	mmCfg := matchmaking.DefaultConfig()
	if cfg.MatchmakingConfig != nil {
		mmCfg = *cfg.MatchmakingConfig
	}
	resultsCfg := results.DefaultConfig()
	if cfg.ResultsConfig != nil {
		resultsCfg = *cfg.ResultsConfig
	}

	// Create services
	authService := auth.New(store, clk, authCfg)
	dir := directory.New(store)
	resultsService := results.New(store, clk, logger, resultsCfg)
	sessions := session.NewRegistry(logger)
	rooms := room.NewCoordinator(engineCfg, resultsService, clk, rnd, logger)
	mm := matchmaking.New(mmCfg, dir, sessions, rooms, clk, logger)
	sup := supervisor.New(sessions, mm, rooms, clk, logger)
	sockets := ws.NewHandler(authService, sup, mm, clk, logger, cfg.CheckOrigin)

	return &App{
		Storage:     store,
		Clock:       clk,
		Random:      rnd,
		AuthService: authService,
		Directory:   dir,
		Sessions:    sessions,
		Rooms:       rooms,
		Matchmaking: mm,
		Results:     resultsService,
		Supervisor:  sup,
		Sockets:     sockets,
	}
}

// OnlinePlayers returns the number of players with a live socket
func (a *App) OnlinePlayers() int {
	return a.Sessions.Count()
}

// ActiveMatches returns the number of matches still being played
func (a *App) ActiveMatches() int {
	return a.Rooms.ActiveRooms()
}

// Close stops live matches, drops open sockets and closes storage
func (a *App) Close() error {
	a.Sockets.Close()
	a.Rooms.Shutdown()
	return a.Storage.Close()
}
