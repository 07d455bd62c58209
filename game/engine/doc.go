// Package engine provides the simulation core of the box-pushing puzzle.
//
// The engine package implements:
//   - The input queue and directional input alphabet
//   - Push-chain movement resolution over the entity store
//   - Win detection (a box on every box spot)
//   - The tick driver and read-only render snapshots
//
// Core Types:
//
// Engine owns one game: the entity store seeded from a level definition, the
// GameState (playing/won plus move counter) and the InputQueue. ResolveMovement
// and EvaluateWin are plain functions so they can be driven without an Engine.
//
// Usage:
//
//	eng, err := engine.NewEngine(level.Classic(), engine.WithLogger(logger))
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	eng.EnqueueInput("right")
//	result := eng.AdvanceTick()
//	snap := eng.Snapshot()
//
// Rules:
//
// Each tick a player consumes one input. The scan walks from the player in the
// requested direction collecting moveable entities until it reaches an empty
// cell (the whole run shifts by one), an immoveable entity (nothing moves) or
// the edge of the grid (nothing moves). The move counter increases on every
// tick in which something moved. Once every box spot holds a box the game is
// won and stays won.
package engine
