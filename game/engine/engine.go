package engine

import (
	"fmt"
	"slices"

	"github.com/wricardo/boxpush/game/ecs"
	"github.com/wricardo/boxpush/game/level"
	"go.uber.org/zap"
)

// Engine is the tick driver. It owns the entity store, the game state and the
// input queue of one game. Only EnqueueInput may be called concurrently with
// other methods.
type Engine struct {
	def   *level.Definition
	store *ecs.Store
	grid  level.Grid
	state GameState
	queue *InputQueue

	order     DrainOrder
	observers multiObserver
	logger    *zap.Logger

	tick    int
	history []MoveHistoryEntry
}

// Option configures an Engine.
type Option func(*Engine)

// WithObserver adds an observer notified when the game is won.
func WithObserver(o Observer) Option {
	return func(e *Engine) { e.observers = append(e.observers, o) }
}

// WithDrainOrder selects how queued inputs are consumed.
func WithDrainOrder(order DrainOrder) Option {
	return func(e *Engine) { e.order = order }
}

// WithLogger sets the logger used for tick tracing and the win notice.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// NewEngine loads def into a fresh game.
func NewEngine(def *level.Definition, opts ...Option) (*Engine, error) {
	if def == nil {
		return nil, fmt.Errorf("new engine: level definition is nil")
	}

	e := &Engine{
		def:    def,
		queue:  &InputQueue{},
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.observers = append(multiObserver{LogObserver{Logger: e.logger, Level: def.Name}}, e.observers...)

	if err := e.load(); err != nil {
		return nil, err
	}
	return e, nil
}

// NewEngineFromMap is a shortcut for an unnamed level.
func NewEngineFromMap(mapText string, opts ...Option) (*Engine, error) {
	return NewEngine(&level.Definition{Name: "custom", Map: mapText}, opts...)
}

func (e *Engine) load() error {
	store, grid, err := level.Load(e.def.Map)
	if err != nil {
		return fmt.Errorf("level %q: %w", e.def.Name, err)
	}
	e.store = store
	e.grid = grid
	e.state = NewGameState()
	return nil
}

// EnqueueInput appends a raw input for the next tick.
func (e *Engine) EnqueueInput(in Input) {
	e.queue.Push(in)
}

// Pending returns the number of queued inputs.
func (e *Engine) Pending() int {
	return e.queue.Len()
}

// AdvanceTick resolves queued input, updates the move counter and runs the
// win check, in that order.
func (e *Engine) AdvanceTick() TickResult {
	e.tick++

	moves, discarded := ResolveMovement(e.store, e.grid, e.queue, e.order)

	moved := false
	for _, m := range moves {
		if m.Outcome == OutcomeMoved {
			moved = true
		}
	}
	if moved {
		e.state.MovesCount++
	}

	for _, m := range moves {
		e.history = append(e.history, newHistoryEntry(e.tick, m, e.state.MovesCount))
		e.logger.Debug("input resolved",
			zap.Int("tick", e.tick),
			zap.String("input", string(m.Input)),
			zap.String("outcome", string(m.Outcome)),
			zap.Int("from_x", m.From.X), zap.Int("from_y", m.From.Y),
			zap.Int("to_x", m.To.X), zap.Int("to_y", m.To.Y),
			zap.Int("pushed", m.Pushed),
		)
	}

	wonNow := EvaluateWin(e.store, &e.state, e.observers)

	return TickResult{
		Tick:       e.tick,
		Moves:      moves,
		Moved:      moved,
		Discarded:  discarded,
		WonNow:     wonNow,
		State:      e.state.State,
		MovesCount: e.state.MovesCount,
	}
}

// Move enqueues dir and advances one tick.
func (e *Engine) Move(dir Direction) TickResult {
	e.EnqueueInput(Input(dir))
	return e.AdvanceTick()
}

// Reset reloads the level into a new game. Move history is kept.
func (e *Engine) Reset() error {
	e.queue.Clear()
	return e.load()
}

// State returns a copy of the game state.
func (e *Engine) State() GameState {
	return e.state
}

// IsWon reports whether the game has been won.
func (e *Engine) IsWon() bool {
	return e.state.State == Won
}

// Grid returns the dimensions of the loaded level.
func (e *Engine) Grid() level.Grid {
	return e.grid
}

// Level returns the definition the engine was built from.
func (e *Engine) Level() *level.Definition {
	return e.def
}

// Store exposes the entity store for read-only inspection.
func (e *Engine) Store() *ecs.Store {
	return e.store
}

// Tick returns the number of ticks advanced so far.
func (e *Engine) Tick() int {
	return e.tick
}

// History returns a copy of every resolved input since the engine was created.
func (e *Engine) History() []MoveHistoryEntry {
	return slices.Clone(e.history)
}

// PlayerCell returns the cell of the first player.
func (e *Engine) PlayerCell() (ecs.Cell, bool) {
	for p := range e.store.Query(ecs.KindPlayer, ecs.KindPosition) {
		return e.store.Position(p).Cell(), true
	}
	return ecs.Cell{}, false
}
