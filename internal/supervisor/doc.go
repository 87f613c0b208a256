// Gridscope - Interactive SQL Data Exploration Grid
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gridscope

/*
Package supervisor provides process supervision for Gridscope using suture v4.

The supervisor tree manages every long-running service in the process with
Erlang/OTP-style restart, failure isolation and graceful shutdown.

# Overview

Services are organized into three layers:

	RootSupervisor ("gridscope")
	├── EngineSupervisor ("engine-layer")
	│   └── CacheJanitorService
	├── SessionSupervisor ("session-layer")
	│   └── GridHubService
	└── APISupervisor ("api-layer")
	    └── HTTPServerService

A panic in the session hub restarts the hub (closing its sessions) while the
HTTP API keeps serving stateless queries.

# Usage Example

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
	    return err
	}

	tree.AddEngineService(services.NewCacheJanitorService(engineService, time.Minute))
	tree.AddSessionService(services.NewGridHubService(hub))
	tree.AddAPIService(services.NewHTTPServerService(server, addr, cfg.Server.ShutdownTimeout))

	// Blocks until ctx is canceled
	err = tree.Serve(ctx)

# Configuration

TreeConfig controls restart behavior. Zero fields take suture's defaults:
  - FailureThreshold: 5 failures
  - FailureDecay: 30 seconds
  - FailureBackoff: 15 seconds
  - ShutdownTimeout: 10 seconds

# Service Interface

All services implement suture.Service:

	type Service interface {
	    Serve(ctx context.Context) error
	}

Return nil to stop without restart, an error to be restarted, and ctx.Err()
promptly once the context is canceled.

# What Is NOT Supervised

DuckDB is an embedded library owned by the database package, and grid
sessions are owned by the hub. Neither runs as a separate service.

# Debugging Shutdown Issues

	report, err := tree.UnstoppedServiceReport()
	for _, svc := range report {
	    logging.Warn().Str("service", svc.Name).Msg("service did not stop")
	}
*/
package supervisor
