package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/cors"
	"golang.org/x/sync/errgroup"

	"github.com/mcoot/pongarena/internal/api"
	"github.com/mcoot/pongarena/internal/factory"
	"github.com/mcoot/pongarena/internal/services/engine"
	"github.com/mcoot/pongarena/internal/services/matchmaking"
	redisstorage "github.com/mcoot/pongarena/internal/storage/redis"
	sqlitestorage "github.com/mcoot/pongarena/internal/storage/sqlite"
)

// How often expired auth sessions are swept
const sessionSweepInterval = 10 * time.Minute

func main() {
	// Set up logging with JSON output
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		logger.Debug(".env file not found, using environment")
	}

	// Build factory config from environment
	cfg := factory.Config{
		Logger:      logger,
		StorageType: os.Getenv("STORAGE_TYPE"),
	}

	// Configure Redis if storage type is redis
	switch cfg.StorageType {
	case factory.StorageTypeRedis:
		redisURL := os.Getenv("REDIS_URL")
		if redisURL == "" {
			logger.Error("REDIS_URL required when STORAGE_TYPE=redis")
			os.Exit(1)
		}
		redisCfg := redisstorage.DefaultConfig()
		redisCfg.URL = redisURL
		cfg.RedisConfig = &redisCfg
	case factory.StorageTypeSQLite:
		sqliteCfg := sqlitestorage.DefaultConfig()
		if path := os.Getenv("SQLITE_PATH"); path != "" {
			sqliteCfg.Path = path
		}
		cfg.SQLiteConfig = &sqliteCfg
	}

	engineCfg := engine.DefaultConfig()
	engineCfg.WinScore = envInt(logger, "WIN_SCORE", engineCfg.WinScore)
	if v := os.Getenv("POWERUPS"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			logger.Error("invalid POWERUPS", slog.String("value", v))
			os.Exit(1)
		}
		engineCfg.PowerUpsEnabled = enabled
	}
	cfg.EngineConfig = &engineCfg

	mmCfg := matchmaking.DefaultConfig()
	if v := os.Getenv("INVITE_TTL"); v != "" {
		ttl, err := time.ParseDuration(v)
		if err != nil {
			logger.Error("invalid INVITE_TTL", slog.String("value", v))
			os.Exit(1)
		}
		mmCfg.InviteTTL = ttl
	}
	cfg.MatchmakingConfig = &mmCfg

	origins := allowedOrigins(os.Getenv("CORS_ORIGINS"))
	cfg.CheckOrigin = checkOrigin(origins)

	// Create application factory
	app, err := factory.New(cfg)
	if err != nil {
		logger.Error("failed to create application", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Create API router, socket endpoint included
	router := api.NewRouter(api.RouterConfig{
		Logger:      logger,
		AuthService: app.AuthService,
		Matchmaking: app.Matchmaking,
		Results:     app.Results,
		Sockets:     app.Sockets,
		Stats:       app,
	})

	handler := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
	}).Handler(router)

	// Create server
	serverConfig := api.DefaultServerConfig()
	serverConfig.Port = envInt(logger, "PORT", serverConfig.Port)
	server := api.NewServer(handler, serverConfig, logger)

	// Handle graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(server.Start)

	g.Go(func() error {
		ticker := time.NewTicker(sessionSweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gCtx.Done():
				return nil
			case <-ticker.C:
				if n := app.AuthService.CleanExpiredSessions(); n > 0 {
					logger.Info("expired sessions removed", slog.Int("count", n))
				}
			}
		}
	})

	g.Go(func() error {
		<-gCtx.Done()
		logger.Info("shutdown signal received")

		// Sockets first so their disconnects settle before rooms stop
		app.Sockets.Close()
		err := server.Shutdown(context.Background())
		if closeErr := app.Close(); closeErr != nil {
			logger.Error("failed to close application", slog.String("error", closeErr.Error()))
		}
		return err
	})

	logger.Info("server started", slog.String("addr", server.Addr()))

	if err := g.Wait(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("server stopped")
}

func envInt(logger *slog.Logger, key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		logger.Error("invalid integer setting", slog.String("key", key), slog.String("value", v))
		os.Exit(1)
	}
	return n
}

// allowedOrigins parses a comma-separated origin list; empty means any origin
func allowedOrigins(raw string) []string {
	var origins []string
	for _, o := range strings.Split(raw, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}

// checkOrigin applies the CORS origin list to socket upgrades
func checkOrigin(origins []string) func(r *http.Request) bool {
	if slices.Contains(origins, "*") {
		return nil
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		// Non-browser clients send no Origin
		return origin == "" || slices.Contains(origins, origin)
	}
}
