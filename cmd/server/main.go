// Gridscope - Interactive SQL Data Exploration Grid
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gridscope

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/tomtom215/gridscope/docs"
	"github.com/tomtom215/gridscope/internal/api"
	"github.com/tomtom215/gridscope/internal/client"
	"github.com/tomtom215/gridscope/internal/config"
	"github.com/tomtom215/gridscope/internal/database"
	"github.com/tomtom215/gridscope/internal/engine"
	"github.com/tomtom215/gridscope/internal/logging"
	"github.com/tomtom215/gridscope/internal/supervisor"
	"github.com/tomtom215/gridscope/internal/supervisor/services"
	ws "github.com/tomtom215/gridscope/internal/websocket"
)

// backend is what main needs from the query source: the engine's data
// methods plus a liveness probe for readiness checks.
type backend interface {
	engine.Backend
	api.Pinger
}

// @title Gridscope API
// @version 1.0
// @description Grouped, paged queries over a DuckDB table for the interactive grid. Grid sessions stream frames over the WebSocket at /api/v1/grid/ws.
//
// @contact.name GitHub Repository
// @contact.url https://github.com/tomtom215/gridscope/issues
//
// @license.name AGPL-3.0-or-later
// @license.url https://www.gnu.org/licenses/agpl-3.0.html
//
// @host localhost:3858
// @BasePath /api/v1
// @schemes http https
//
// @tag.name Grid
// @tag.description Grid data: metadata, paged queries, filter values and search
//
// @tag.name Health
// @tag.description Liveness, readiness and health status
//
// @tag.name Operations
// @tag.description Latency statistics and query cache control
//
//go:generate swag init -g main.go -d ./,../../internal/api,../../internal/models -o ../../docs
func main() {
	cfg, err := config.Load()
	if err != nil {
		// Config not yet available, so the default logger reports this.
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("version", api.Version).
		Str("environment", cfg.Server.Environment).
		Msg("Starting Gridscope with supervisor tree")

	if cfg.ShouldWarnAboutCORS() {
		logging.Warn().Msg("CORS allows any origin in production; set CORS_ORIGINS to restrict it")
	}

	source, closeSource, err := openBackend(cfg)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize query backend")
	}
	defer closeSource()

	engineService := engine.New(source, cfg.Cache, cfg.Engine)
	hub := ws.NewHub(engineService, cfg.Grid)

	handler := api.NewHandler(engineService, source, hub, cfg)
	chiMw := api.NewChiMiddlewareFromSecurity(
		cfg.Security.CORSOrigins,
		cfg.Security.RateLimitReqs,
		cfg.Security.RateLimitWindow,
		cfg.Security.RateLimitDisabled,
	)
	router := api.NewRouter(handler, chiMw)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Handler:           router.SetupChi(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.Timeout,
		WriteTimeout:      cfg.Server.Timeout,
		IdleTimeout:       60 * time.Second,
	}

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		FailureThreshold: 5,
		FailureBackoff:   15 * time.Second,
		ShutdownTimeout:  cfg.Server.ShutdownTimeout,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}

	janitorInterval := time.Minute
	if cfg.Cache.TTL > 0 && cfg.Cache.TTL < janitorInterval {
		janitorInterval = cfg.Cache.TTL
	}
	tree.AddEngineService(services.NewCacheJanitorService(engineService, janitorInterval))
	tree.AddSessionService(services.NewGridHubService(hub))
	tree.AddAPIService(services.NewHTTPServerService(server, addr, cfg.Server.ShutdownTimeout))
	logging.Info().Str("addr", addr).Msg("Services added to supervisor tree")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logging.Info().Msg("Starting supervisor tree...")
	errCh := tree.ServeBackground(ctx)

	// The supervisor's error channel delivers exactly one value and is never closed.
	select {
	case <-ctx.Done():
		logging.Info().Msg("Received shutdown signal, waiting for supervisor to finish...")
		err = <-errCh
	case err = <-errCh:
		stop()
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		logging.Error().Err(err).Msg("Supervisor tree error")
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	if len(unstopped) > 0 {
		logging.Warn().Int("count", len(unstopped)).Msg("Services failed to stop within timeout")
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service failed to stop")
		}
	}

	logging.Info().Msg("Application stopped gracefully")
}

// openBackend returns the local DuckDB database, or a client for another
// Gridscope instance when ENGINE_REMOTE_URL is set.
func openBackend(cfg *config.Config) (backend, func(), error) {
	if cfg.Engine.IsRemote() {
		logging.Info().Str("remote_url", cfg.Engine.RemoteURL).Msg("Using remote query engine")
		return client.New(cfg.Engine), func() {}, nil
	}

	db, err := database.New(&cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	logging.Info().
		Str("db_path", db.Path()).
		Str("table", db.Table()).
		Msg("Database initialized successfully")

	closeDB := func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing database")
		}
	}
	return db, closeDB, nil
}
