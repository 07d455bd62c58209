package service_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wricardo/boxpush/game/config"
	"github.com/wricardo/boxpush/game/ecs"
	"github.com/wricardo/boxpush/game/engine"
	"github.com/wricardo/boxpush/game/level"
	"github.com/wricardo/boxpush/game/service"
	"github.com/wricardo/boxpush/game/session"
	"github.com/wricardo/boxpush/game/solver"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func newTestService(t *testing.T, opts ...service.Option) service.GameService {
	t.Helper()
	levels, err := config.NewManager(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, levels.SaveLevel("corridor", &level.Definition{
		Name: "Corridor",
		Map:  "W P B . S W",
	}))
	require.NoError(t, levels.SaveLevel("stuck", &level.Definition{
		Name: "Stuck",
		Map:  "W S . P B W",
	}))

	return service.NewGameService(session.NewManager(), levels, opts...)
}

func createSession(t *testing.T, svc service.GameService, levelName string) string {
	t.Helper()
	info, err := svc.CreateSession(context.Background(), levelName)
	require.NoError(t, err)
	return info.ID
}

func eventTypes(events []service.GameEvent) []string {
	var types []string
	for _, ev := range events {
		types = append(types, ev.Type)
	}
	return types
}

func TestGameService_CreateSession(t *testing.T) {
	ctx := context.Background()
	core, logs := observer.New(zap.InfoLevel)
	svc := newTestService(t, service.WithLogger(zap.New(core)))

	t.Run("default level", func(t *testing.T) {
		info, err := svc.CreateSession(ctx, "")
		require.NoError(t, err)
		assert.Equal(t, "classic", info.LevelID)
		assert.Equal(t, engine.NewGameState(), info.GameState)
		require.NotNil(t, info.Snapshot)
		assert.Equal(t, 8, info.Snapshot.Width)
	})

	t.Run("named level", func(t *testing.T) {
		info, err := svc.CreateSession(ctx, "corridor")
		require.NoError(t, err)
		assert.Equal(t, "corridor", info.LevelID)
		assert.Equal(t, "Corridor", info.LevelName)
		assert.Equal(t, []string{"W P B . S W"}, info.Snapshot.Rows)
	})

	t.Run("missing level lists alternatives", func(t *testing.T) {
		_, err := svc.CreateSession(ctx, "nope")
		assert.ErrorIs(t, err, config.ErrLevelNotFound)
		assert.Contains(t, err.Error(), "classic, corridor, stuck")
	})

	assert.Equal(t, 2, logs.FilterMessage("session created").Len())
}

func TestGameService_Move(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	id := createSession(t, svc, "corridor")

	t.Run("invalid direction", func(t *testing.T) {
		_, err := svc.Move(ctx, id, "jump", false)
		assert.ErrorIs(t, err, service.ErrInvalidDirection)
	})

	t.Run("unknown session", func(t *testing.T) {
		_, err := svc.Move(ctx, "missing", "up", false)
		assert.ErrorIs(t, err, session.ErrSessionNotFound)
	})

	t.Run("blocked by wall", func(t *testing.T) {
		res, err := svc.Move(ctx, id, "left", false)
		require.NoError(t, err)
		assert.False(t, res.Success)
		assert.Equal(t, engine.OutcomeBlocked, res.Step.Outcome)
		assert.Equal(t, []string{"blocked"}, eventTypes(res.Events))
		assert.Equal(t, 0, res.Snapshot.MovesCount)
	})

	t.Run("push", func(t *testing.T) {
		res, err := svc.Move(ctx, id, "RIGHT", false)
		require.NoError(t, err)
		assert.True(t, res.Success)
		assert.Equal(t, 1, res.Step.Pushed)
		assert.Equal(t, ecs.Cell{X: 1, Y: 0}, res.Step.From)
		assert.Equal(t, ecs.Cell{X: 2, Y: 0}, res.Step.To)
		assert.Equal(t, "Pushed a box right", res.Message)
		assert.Equal(t, []string{"push"}, eventTypes(res.Events))
	})

	t.Run("winning push", func(t *testing.T) {
		res, err := svc.Move(ctx, id, "right", false)
		require.NoError(t, err)
		assert.True(t, res.WonNow)
		assert.Equal(t, "You won in 2 moves!", res.Message)
		assert.Equal(t, []string{"push", "victory"}, eventTypes(res.Events))
		assert.True(t, res.Snapshot.Won())
	})

	t.Run("reset then move", func(t *testing.T) {
		res, err := svc.Move(ctx, id, "right", true)
		require.NoError(t, err)
		assert.Equal(t, []string{"reset", "push"}, eventTypes(res.Events))
		assert.Equal(t, engine.Playing, res.Snapshot.State)
		assert.Equal(t, 1, res.Snapshot.MovesCount)
	})
}

func TestGameService_BulkMove(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	t.Run("stops on victory", func(t *testing.T) {
		id := createSession(t, svc, "corridor")
		res, err := svc.BulkMove(ctx, id, []string{"right", "right", "left"}, false)
		require.NoError(t, err)
		assert.True(t, res.Success)
		assert.Equal(t, 3, res.RequestedMoves)
		assert.Equal(t, 2, res.MovesExecuted)
		assert.Equal(t, 2, res.BoxesPushed)
		assert.Equal(t, service.StopVictory, res.StopReasonCode)
		assert.Equal(t, 2, res.StoppedOnMove)
		assert.Equal(t, ecs.Cell{X: 1, Y: 0}, res.Start)
		assert.Equal(t, ecs.Cell{X: 3, Y: 0}, res.End)
		assert.True(t, res.Snapshot.Won())

		again, err := svc.BulkMove(ctx, id, []string{"left"}, false)
		require.NoError(t, err)
		assert.Equal(t, 0, again.MovesExecuted)
		assert.Equal(t, service.StopVictory, again.StopReasonCode)
		assert.Equal(t, 1, again.StoppedOnMove)
	})

	t.Run("stops when blocked", func(t *testing.T) {
		id := createSession(t, svc, "corridor")
		res, err := svc.BulkMove(ctx, id, []string{"left", "right"}, false)
		require.NoError(t, err)
		assert.False(t, res.Success)
		assert.Equal(t, service.StopBlocked, res.StopReasonCode)
		assert.Equal(t, 1, res.StoppedOnMove)
		assert.Zero(t, res.MovesExecuted)
		assert.Len(t, res.Steps, 1)
	})

	t.Run("stops on invalid direction", func(t *testing.T) {
		id := createSession(t, svc, "corridor")
		res, err := svc.BulkMove(ctx, id, []string{"right", "jump", "right"}, false)
		require.NoError(t, err)
		assert.False(t, res.Success)
		assert.Equal(t, service.StopInvalidDirection, res.StopReasonCode)
		assert.Equal(t, 2, res.StoppedOnMove)
		assert.Equal(t, 1, res.MovesExecuted)
	})

	t.Run("truncates long requests", func(t *testing.T) {
		id := createSession(t, svc, "classic")
		moves := make([]string, 60)
		for i := range moves {
			moves[i] = []string{"up", "down"}[i%2]
		}
		res, err := svc.BulkMove(ctx, id, moves, false)
		require.NoError(t, err)
		assert.True(t, res.Truncated)
		assert.Equal(t, service.MaxBulkMoves, res.Limit)
		assert.Equal(t, service.MaxBulkMoves, res.MovesExecuted)
		assert.Len(t, res.Steps, service.MaxBulkMoves)
		assert.Equal(t, 60, res.RequestedMoves)
	})

	t.Run("reset first", func(t *testing.T) {
		id := createSession(t, svc, "corridor")
		_, err := svc.Move(ctx, id, "right", false)
		require.NoError(t, err)

		res, err := svc.BulkMove(ctx, id, []string{"right", "right"}, true)
		require.NoError(t, err)
		assert.Equal(t, "reset", res.Events[0].Type)
		assert.True(t, res.Snapshot.Won())
		assert.Empty(t, res.StopReasonCode)
	})

	t.Run("cancelled context", func(t *testing.T) {
		id := createSession(t, svc, "corridor")
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		res, err := svc.BulkMove(cctx, id, []string{"right"}, false)
		require.NoError(t, err)
		assert.Equal(t, service.StopCanceled, res.StopReasonCode)
		assert.Zero(t, res.MovesExecuted)
	})

	t.Run("no moves", func(t *testing.T) {
		id := createSession(t, svc, "corridor")
		_, err := svc.BulkMove(ctx, id, nil, false)
		assert.ErrorIs(t, err, service.ErrNoMoves)
	})
}

func TestGameService_GetMoveHistory(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	id := createSession(t, svc, "classic")

	for _, d := range []string{"up", "down", "up", "down", "up"} {
		_, err := svc.Move(ctx, id, d, false)
		require.NoError(t, err)
	}

	t.Run("defaults to newest first", func(t *testing.T) {
		h, err := svc.GetMoveHistory(ctx, id, service.HistoryOptions{})
		require.NoError(t, err)
		assert.Equal(t, 5, h.TotalMoves)
		assert.Equal(t, 20, h.PageSize)
		require.Len(t, h.Moves, 5)
		assert.Equal(t, 5, h.Moves[0].Tick)
		assert.Equal(t, engine.Up, h.Moves[0].Direction)
	})

	t.Run("ascending pages", func(t *testing.T) {
		h, err := svc.GetMoveHistory(ctx, id, service.HistoryOptions{Page: 2, Limit: 2, Order: "asc"})
		require.NoError(t, err)
		require.Len(t, h.Moves, 2)
		assert.Equal(t, 3, h.Moves[0].Tick)
		assert.Equal(t, 4, h.Moves[1].Tick)
		assert.Equal(t, 3, h.TotalPages)
		assert.True(t, h.HasNext)
		assert.True(t, h.HasPrevious)
	})

	t.Run("past the end", func(t *testing.T) {
		h, err := svc.GetMoveHistory(ctx, id, service.HistoryOptions{Page: 9, Limit: 2})
		require.NoError(t, err)
		assert.NotNil(t, h.Moves)
		assert.Empty(t, h.Moves)
		assert.False(t, h.HasNext)
	})

	t.Run("limit is capped", func(t *testing.T) {
		h, err := svc.GetMoveHistory(ctx, id, service.HistoryOptions{Limit: 1000})
		require.NoError(t, err)
		assert.Equal(t, 100, h.PageSize)
	})
}

func TestGameService_Hint(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	id := createSession(t, svc, "corridor")
	hint, err := svc.Hint(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, engine.Right, hint.Next)
	assert.Equal(t, []engine.Direction{engine.Right, engine.Right}, hint.Moves)

	_, err = svc.BulkMove(ctx, id, []string{"right", "right"}, false)
	require.NoError(t, err)
	hint, err = svc.Hint(ctx, id)
	require.NoError(t, err)
	assert.True(t, hint.Solved)
	assert.Empty(t, hint.Moves)

	stuck := createSession(t, svc, "stuck")
	_, err = svc.Hint(ctx, stuck)
	assert.ErrorIs(t, err, solver.ErrNoSolution)

	limited := newTestService(t, service.WithHintLimit(3))
	_, err = limited.Hint(ctx, createSession(t, limited, "classic"))
	assert.ErrorIs(t, err, solver.ErrStateLimit)
}

func TestGameService_SessionsLifecycle(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	ids := map[string]bool{}
	for i := 0; i < 3; i++ {
		ids[createSession(t, svc, "corridor")] = true
	}

	list, err := svc.ListSessions(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	for _, info := range list {
		assert.True(t, ids[info.ID])
		assert.Nil(t, info.Snapshot, "listings omit snapshots")
	}

	var first string
	for id := range ids {
		first = id
		break
	}
	info, err := svc.GetSession(ctx, first)
	require.NoError(t, err)
	assert.NotNil(t, info.Snapshot)

	require.NoError(t, svc.DeleteSession(ctx, first))
	_, err = svc.GetSession(ctx, first)
	assert.ErrorIs(t, err, session.ErrSessionNotFound)
	assert.ErrorIs(t, svc.DeleteSession(ctx, first), session.ErrSessionNotFound)
}

func TestGameService_Reset(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	id := createSession(t, svc, "corridor")

	_, err := svc.Move(ctx, id, "right", false)
	require.NoError(t, err)

	snap, err := svc.Reset(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 0, snap.MovesCount)
	assert.Equal(t, []string{"W P B . S W"}, snap.Rows)

	state, err := svc.GetGameState(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, snap.Hash, state.Hash)

	h, err := svc.GetMoveHistory(ctx, id, service.HistoryOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, h.TotalMoves, "history survives reset")
}

func TestGameService_Levels(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	err := svc.SaveLevel(ctx, "mine", &level.Definition{Name: "Mine", Map: "W P B S W"})
	require.NoError(t, err)

	def, err := svc.LoadLevel(ctx, "mine")
	require.NoError(t, err)
	assert.Equal(t, "Mine", def.Name)

	levels, err := svc.ListLevels(ctx)
	require.NoError(t, err)
	var ids []string
	for _, l := range levels {
		ids = append(ids, l.LevelID)
	}
	assert.Equal(t, []string{"classic", "corridor", "mine", "stuck"}, ids)

	err = svc.SaveLevel(ctx, "bad", &level.Definition{Name: "Bad", Map: "W P W"})
	assert.ErrorIs(t, err, config.ErrInvalidLevel)

	require.NoError(t, svc.ReloadLevels(ctx))
	def, err = svc.LoadLevel(ctx, "mine")
	require.NoError(t, err)
	assert.Equal(t, "Mine", def.Name, "saved files survive a reload")
}

func TestGameService_ConcurrentMovesOnOneSession(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	id := createSession(t, svc, "classic")

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 10; i++ {
				dir := []string{"up", "down", "left", "right"}[(g+i)%4]
				if _, err := svc.Move(ctx, id, dir, false); err != nil {
					t.Error(fmt.Errorf("move %s: %w", dir, err))
				}
			}
		}(g)
	}
	wg.Wait()

	h, err := svc.GetMoveHistory(ctx, id, service.HistoryOptions{})
	require.NoError(t, err)
	assert.Equal(t, 80, h.TotalMoves)
	assert.Equal(t, 80, h.Moves[0].Tick)
}
