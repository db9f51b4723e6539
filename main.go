package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/isdelr/task-manager-api/internal/api"
	"github.com/isdelr/task-manager-api/internal/auth"
	"github.com/isdelr/task-manager-api/internal/config"
	"github.com/isdelr/task-manager-api/internal/database"
	"github.com/isdelr/task-manager-api/internal/logger"
	"github.com/isdelr/task-manager-api/internal/monitoring"
	"github.com/isdelr/task-manager-api/internal/repository"
	"github.com/isdelr/task-manager-api/internal/services"
	"github.com/isdelr/task-manager-api/internal/websocket"
	"github.com/rs/zerolog/log"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	logger.Init(cfg.LogLevel)

	// Set up database
	db, err := database.New(cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.DatabaseDriver).Msg("Failed to initialize database")
	}
	defer db.Close()

	if err := database.Migrate(context.Background(), db); err != nil {
		log.Fatal().Err(err).Msg("Failed to apply database migrations")
	}

	// Token denylist: Redis when configured, otherwise the revoked_tokens table
	var (
		denylist auth.Denylist
		pruner   *monitoring.Pruner
	)
	if cfg.RedisURL != "" {
		rdb, err := auth.NewRedisClient(context.Background(), cfg.RedisURL)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to Redis")
		}
		defer rdb.Close()
		denylist = auth.NewRedisDenylist(rdb)
		log.Info().Msg("Using Redis token denylist")
	} else {
		revoked := repository.NewRevokedTokenRepository(db)
		denylist = revoked
		pruner, err = monitoring.NewPruner(revoked, cfg.PruneSchedule)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create denylist pruner")
		}
		go pruner.Run()
	}

	// Set up WebSocket Hub
	hub := websocket.NewHub()
	go hub.Run()

	// Set up services
	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTTTL, cfg.JWTIssuer)
	authService := services.NewAuthService(repository.NewUserRepository(db), tokens, denylist)
	eventService := services.NewEventService(repository.NewEventRepository(db), hub)
	taskService := services.NewTaskService(repository.NewTaskRepository(db), eventService)

	// Set up router
	router := api.NewRouter(cfg, hub, authService, taskService, eventService)

	// Set up server
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	go func() {
		log.Info().Int("port", cfg.ServerPort).Str("env", cfg.Environment).Msg("Server starting")
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("ListenAndServe failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	if pruner != nil {
		pruner.Stop()
	}
	hub.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exiting")
}
