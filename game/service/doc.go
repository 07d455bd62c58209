// Package service provides the business logic layer for the box-pushing puzzle.
//
// The service package implements:
//   - Multi-session game management
//   - Level lookup and storage through a LevelManager
//   - Single and bulk move processing
//   - Paginated move history
//   - Solver-backed hints
//
// Core Interfaces:
//
// GameService is the main service interface providing high-level game operations.
// SessionManager handles session creation, retrieval, and lifecycle.
// LevelManager loads, lists and saves level definitions.
//
// Architecture:
//
// The service layer sits between the transport layer (HTTP/WebSocket/MCP) and
// the game engine. Each session owns its own engine; the session mutex
// serializes every call that touches it, so concurrent requests against the
// same session never interleave ticks.
//
// Usage:
//
//	sessionMgr := session.NewManager()
//	levelMgr, _ := config.NewManager("levels")
//	gameService := service.NewGameService(sessionMgr, levelMgr, service.WithLogger(logger))
//
//	info, err := gameService.CreateSession(ctx, "classic")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	result, err := gameService.Move(ctx, info.ID, "right", false)
//
// Bulk moves stop at the first move that leaves the board unchanged and once
// the level is won. At most MaxBulkMoves moves run per call.
package service
