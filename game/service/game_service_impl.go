package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/wricardo/boxpush/game/engine"
	"github.com/wricardo/boxpush/game/level"
	"github.com/wricardo/boxpush/game/solver"
	"go.uber.org/zap"
)

// MaxBulkMoves caps the number of moves executed by one BulkMove call.
const MaxBulkMoves = 50

var (
	ErrInvalidDirection = errors.New("invalid direction")
	ErrNoMoves          = errors.New("no moves provided")
)

// gameServiceImpl implements the GameService interface
type gameServiceImpl struct {
	sessions  SessionManager
	levels    LevelManager
	logger    *zap.Logger
	drain     engine.DrainOrder
	hintLimit int
}

// Option configures the game service.
type Option func(*gameServiceImpl)

// WithLogger sets the service logger. Engines created for new sessions log
// through it too.
func WithLogger(l *zap.Logger) Option {
	return func(s *gameServiceImpl) { s.logger = l }
}

// WithDrainOrder selects how session engines drain their input queues.
func WithDrainOrder(order engine.DrainOrder) Option {
	return func(s *gameServiceImpl) { s.drain = order }
}

// WithHintLimit bounds the number of states a hint search may visit.
func WithHintLimit(n int) Option {
	return func(s *gameServiceImpl) { s.hintLimit = n }
}

// NewGameService creates a new game service instance
func NewGameService(sessions SessionManager, levels LevelManager, opts ...Option) GameService {
	s := &gameServiceImpl{
		sessions:  sessions,
		levels:    levels,
		logger:    zap.NewNop(),
		hintLimit: solver.DefaultMaxStates,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateSession creates a new game session
func (s *gameServiceImpl) CreateSession(ctx context.Context, levelName string) (*SessionInfo, error) {
	var def *level.Definition
	levelID := levelName
	if levelName != "" {
		var err error
		def, err = s.levels.LoadLevel(levelName)
		if err != nil {
			return nil, s.levelLoadError(levelName, err)
		}
	} else {
		def = s.levels.GetDefault()
		levelID = def.Name
	}

	sess, err := s.sessions.Create("", levelID, def,
		engine.WithLogger(s.logger.With(zap.String("level", levelID))),
		engine.WithDrainOrder(s.drain),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	s.logger.Info("session created", zap.String("session", sess.ID), zap.String("level", levelID))

	sess.Lock()
	defer sess.Unlock()
	return sessionInfo(sess), nil
}

// levelLoadError lists available levels when the requested one is missing.
func (s *gameServiceImpl) levelLoadError(name string, err error) error {
	available, listErr := s.levels.ListLevels()
	if listErr != nil || len(available) == 0 {
		return fmt.Errorf("failed to load level %s: %w", name, err)
	}
	ids := make([]string, 0, len(available))
	for _, l := range available {
		ids = append(ids, l.LevelID)
	}
	return fmt.Errorf("failed to load level %s (available: %s): %w", name, strings.Join(ids, ", "), err)
}

// GetSession retrieves session information
func (s *gameServiceImpl) GetSession(ctx context.Context, sessionID string) (*SessionInfo, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	sess.Lock()
	defer sess.Unlock()
	return sessionInfo(sess), nil
}

// ListSessions returns all active sessions, oldest first
func (s *gameServiceImpl) ListSessions(ctx context.Context) ([]*SessionInfo, error) {
	sessions := s.sessions.List()
	result := make([]*SessionInfo, 0, len(sessions))

	for _, sess := range sessions {
		sess.Lock()
		info := sessionInfo(sess)
		sess.Unlock()
		info.Snapshot = nil
		result = append(result, info)
	}

	slices.SortFunc(result, func(a, b *SessionInfo) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return result, nil
}

// DeleteSession removes a session
func (s *gameServiceImpl) DeleteSession(ctx context.Context, sessionID string) error {
	if err := s.sessions.Delete(sessionID); err != nil {
		return err
	}
	s.logger.Info("session deleted", zap.String("session", sessionID))
	return nil
}

// Move executes a single move for a session
func (s *gameServiceImpl) Move(ctx context.Context, sessionID, direction string, reset bool) (*MoveResult, error) {
	dir, ok := engine.ParseDirection(direction)
	if !ok {
		return nil, fmt.Errorf("%w: %q (use up, down, left or right)", ErrInvalidDirection, direction)
	}

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	sess.Lock()
	defer sess.Unlock()

	events := []GameEvent{}
	if reset {
		ev, err := resetEngine(sess.Engine)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}

	tick := sess.Engine.Move(dir)
	step := stepInfo(1, tick)
	events = append(events, moveEvents(step, tick)...)

	snap := sess.Engine.Snapshot()
	return &MoveResult{
		Success:  step.Outcome == engine.OutcomeMoved,
		Message:  moveMessage(step, tick),
		Events:   events,
		Step:     step,
		WonNow:   tick.WonNow,
		Snapshot: &snap,
	}, nil
}

// BulkMove executes moves in sequence. It stops at the first move that does
// not change the board and as soon as the level is won.
func (s *gameServiceImpl) BulkMove(ctx context.Context, sessionID string, moves []string, reset bool) (*BulkMoveResult, error) {
	if len(moves) == 0 {
		return nil, ErrNoMoves
	}

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	sess.Lock()
	defer sess.Unlock()

	result := &BulkMoveResult{
		RequestedMoves: len(moves),
		Success:        true,
		Events:         []GameEvent{},
	}

	if reset {
		ev, err := resetEngine(sess.Engine)
		if err != nil {
			return nil, err
		}
		result.Events = append(result.Events, ev)
	}
	result.Start, _ = sess.Engine.PlayerCell()

	if len(moves) > MaxBulkMoves {
		result.Truncated = true
		result.Limit = MaxBulkMoves
		moves = moves[:MaxBulkMoves]
	}

	stop := func(i int, code, reason string) {
		result.StopReasonCode = code
		result.StoppedReason = reason
		result.StoppedOnMove = i + 1
	}

	for i, raw := range moves {
		if err := ctx.Err(); err != nil {
			result.Success = false
			stop(i, StopCanceled, err.Error())
			break
		}
		if sess.Engine.IsWon() {
			stop(i, StopVictory, "level already won")
			break
		}

		dir, ok := engine.ParseDirection(raw)
		if !ok {
			result.Success = false
			stop(i, StopInvalidDirection, fmt.Sprintf("invalid direction %q", raw))
			break
		}

		tick := sess.Engine.Move(dir)
		step := stepInfo(i+1, tick)
		result.Steps = append(result.Steps, step)
		result.Events = append(result.Events, moveEvents(step, tick)...)

		if step.Outcome != engine.OutcomeMoved {
			result.Success = false
			stop(i, string(step.Outcome), moveMessage(step, tick))
			break
		}

		result.MovesExecuted++
		result.BoxesPushed += step.Pushed
		if tick.WonNow {
			if i < len(moves)-1 {
				stop(i, StopVictory, "all boxes are on their spots")
			}
			break
		}
	}

	result.End, _ = sess.Engine.PlayerCell()
	snap := sess.Engine.Snapshot()
	result.Snapshot = &snap
	return result, nil
}

// Reset restarts the session's level
func (s *gameServiceImpl) Reset(ctx context.Context, sessionID string) (*engine.Snapshot, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	sess.Lock()
	defer sess.Unlock()

	if _, err := resetEngine(sess.Engine); err != nil {
		return nil, err
	}
	snap := sess.Engine.Snapshot()
	return &snap, nil
}

// GetGameState returns a snapshot of the session's game
func (s *gameServiceImpl) GetGameState(ctx context.Context, sessionID string) (*engine.Snapshot, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	sess.Lock()
	defer sess.Unlock()

	snap := sess.Engine.Snapshot()
	return &snap, nil
}

// GetMoveHistory returns paginated move history
func (s *gameServiceImpl) GetMoveHistory(ctx context.Context, sessionID string, opts HistoryOptions) (*HistoryResponse, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	sess.Lock()
	history := sess.Engine.History()
	sess.Unlock()

	return paginate(history, opts), nil
}

func paginate(history []engine.MoveHistoryEntry, opts HistoryOptions) *HistoryResponse {
	total := len(history)

	// Apply defaults
	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.Limit <= 0 {
		opts.Limit = 20
	}
	if opts.Limit > 100 {
		opts.Limit = 100
	}
	if opts.Order != "asc" {
		opts.Order = "desc"
	}

	totalPages := (total + opts.Limit - 1) / opts.Limit
	if totalPages == 0 {
		totalPages = 1
	}

	if opts.Order == "desc" {
		slices.Reverse(history)
	}

	start := min((opts.Page-1)*opts.Limit, total)
	end := min(start+opts.Limit, total)

	moves := history[start:end]
	if moves == nil {
		moves = []engine.MoveHistoryEntry{}
	}

	return &HistoryResponse{
		Moves:       moves,
		TotalMoves:  total,
		Page:        opts.Page,
		PageSize:    opts.Limit,
		TotalPages:  totalPages,
		HasNext:     opts.Page < totalPages,
		HasPrevious: opts.Page > 1,
	}
}

// Hint searches for a shortest solution from the current position. The search
// runs on a copy of the board so the session stays available meanwhile.
func (s *gameServiceImpl) Hint(ctx context.Context, sessionID string) (*HintResult, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	sess.Lock()
	won := sess.Engine.IsWon()
	puzzle, err := solver.FromEngine(sess.Engine)
	sess.Unlock()

	if won {
		return &HintResult{Solved: true, Moves: []engine.Direction{}}, nil
	}
	if err != nil {
		return nil, err
	}

	res, err := puzzle.Solve(s.hintLimit)
	if err != nil {
		return nil, fmt.Errorf("hint for session %s: %w", sessionID, err)
	}

	hint := &HintResult{Moves: res.Moves, Explored: res.Explored}
	if len(res.Moves) > 0 {
		hint.Next = res.Moves[0]
	}
	return hint, nil
}

// ListLevels returns available levels
func (s *gameServiceImpl) ListLevels(ctx context.Context) ([]*LevelInfo, error) {
	return s.levels.ListLevels()
}

// LoadLevel returns a level definition by name
func (s *gameServiceImpl) LoadLevel(ctx context.Context, levelName string) (*level.Definition, error) {
	return s.levels.LoadLevel(levelName)
}

// SaveLevel validates and stores a level definition
func (s *gameServiceImpl) SaveLevel(ctx context.Context, levelName string, def *level.Definition) error {
	if err := s.levels.SaveLevel(levelName, def); err != nil {
		return err
	}
	s.logger.Info("level saved", zap.String("level", levelName))
	return nil
}

// ReloadLevels drops cached level definitions so edited files are picked up.
// Running sessions keep the definition they started with.
func (s *gameServiceImpl) ReloadLevels(ctx context.Context) error {
	if err := s.levels.RefreshCache(); err != nil {
		return fmt.Errorf("reload levels: %w", err)
	}
	s.logger.Info("levels reloaded")
	return nil
}

// session looks up a session and records the access.
func (s *gameServiceImpl) session(id string) (*Session, error) {
	sess, err := s.sessions.Get(id)
	if err != nil {
		return nil, fmt.Errorf("session %s: %w", id, err)
	}
	_ = s.sessions.UpdateLastAccessed(id)
	return sess, nil
}

func sessionInfo(sess *Session) *SessionInfo {
	snap := sess.Engine.Snapshot()
	return &SessionInfo{
		ID:             sess.ID,
		LevelID:        sess.LevelID,
		LevelName:      sess.Level.Name,
		CreatedAt:      sess.CreatedAt,
		LastAccessedAt: sess.LastAccessedAt(),
		GameState:      sess.Engine.State(),
		Snapshot:       &snap,
	}
}

func resetEngine(e *engine.Engine) (GameEvent, error) {
	if err := e.Reset(); err != nil {
		return GameEvent{}, fmt.Errorf("reset: %w", err)
	}
	pos, _ := e.PlayerCell()
	return GameEvent{
		Type:      "reset",
		Message:   "Game reset to initial state",
		Timestamp: time.Now(),
		Position:  pos,
	}, nil
}

func stepInfo(idx int, tick engine.TickResult) StepInfo {
	step := StepInfo{Idx: idx, Victory: tick.WonNow}
	if len(tick.Moves) > 0 {
		m := tick.Moves[0]
		step.Dir = string(m.Direction)
		step.From = m.From
		step.To = m.To
		step.Pushed = m.Pushed
		step.Outcome = m.Outcome
	}
	return step
}

func moveEvents(step StepInfo, tick engine.TickResult) []GameEvent {
	now := time.Now()
	var events []GameEvent

	switch {
	case step.Outcome == engine.OutcomeMoved && step.Pushed > 0:
		events = append(events, GameEvent{Type: "push", Message: moveMessage(step, tick), Timestamp: now, Position: step.To})
	case step.Outcome == engine.OutcomeMoved:
		events = append(events, GameEvent{Type: "move", Message: moveMessage(step, tick), Timestamp: now, Position: step.To})
	default:
		events = append(events, GameEvent{Type: "blocked", Message: moveMessage(step, tick), Timestamp: now, Position: step.From})
	}

	if tick.WonNow {
		events = append(events, GameEvent{
			Type:      "victory",
			Message:   fmt.Sprintf("All boxes are on their spots in %d moves!", tick.MovesCount),
			Timestamp: now,
			Position:  step.To,
		})
	}
	return events
}

func moveMessage(step StepInfo, tick engine.TickResult) string {
	if tick.WonNow {
		return fmt.Sprintf("You won in %d moves!", tick.MovesCount)
	}
	switch step.Outcome {
	case engine.OutcomeMoved:
		switch step.Pushed {
		case 0:
			return fmt.Sprintf("Moved %s", step.Dir)
		case 1:
			return fmt.Sprintf("Pushed a box %s", step.Dir)
		default:
			return fmt.Sprintf("Pushed %d boxes %s", step.Pushed, step.Dir)
		}
	case engine.OutcomeBlocked:
		return fmt.Sprintf("Can't move %s: the way is blocked", step.Dir)
	case engine.OutcomeEdge:
		return fmt.Sprintf("Can't move %s: edge of the board", step.Dir)
	default:
		return "Nothing happened"
	}
}
