package service

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/wricardo/boxpush/game/engine"
	"github.com/wricardo/boxpush/game/level"
)

// GameService defines all game-related operations
type GameService interface {
	// Session Management
	CreateSession(ctx context.Context, levelName string) (*SessionInfo, error)
	GetSession(ctx context.Context, sessionID string) (*SessionInfo, error)
	ListSessions(ctx context.Context) ([]*SessionInfo, error)
	DeleteSession(ctx context.Context, sessionID string) error

	// Game Operations
	Move(ctx context.Context, sessionID, direction string, reset bool) (*MoveResult, error)
	BulkMove(ctx context.Context, sessionID string, moves []string, reset bool) (*BulkMoveResult, error)
	Reset(ctx context.Context, sessionID string) (*engine.Snapshot, error)

	// Game State
	GetGameState(ctx context.Context, sessionID string) (*engine.Snapshot, error)
	GetMoveHistory(ctx context.Context, sessionID string, opts HistoryOptions) (*HistoryResponse, error)
	Hint(ctx context.Context, sessionID string) (*HintResult, error)

	// Levels
	ListLevels(ctx context.Context) ([]*LevelInfo, error)
	LoadLevel(ctx context.Context, levelName string) (*level.Definition, error)
	SaveLevel(ctx context.Context, levelName string, def *level.Definition) error
	ReloadLevels(ctx context.Context) error
}

// SessionManager defines session storage operations
type SessionManager interface {
	Create(id, levelID string, def *level.Definition, opts ...engine.Option) (*Session, error)
	Get(id string) (*Session, error)
	List() []*Session
	Delete(id string) error
	UpdateLastAccessed(id string) error
}

// LevelManager handles level loading and storage
type LevelManager interface {
	LoadLevel(name string) (*level.Definition, error)
	ListLevels() ([]*LevelInfo, error)
	GetDefault() *level.Definition
	SaveLevel(name string, def *level.Definition) error
	RefreshCache() error
}

// Session represents an active game session. The embedded mutex guards
// Engine; hold it for any call that reads or advances the game.
type Session struct {
	sync.Mutex

	ID        string
	LevelID   string
	Engine    *engine.Engine
	Level     *level.Definition
	CreatedAt time.Time

	lastAccessed atomic.Int64
}

// NewSession wraps an engine in a session stamped with the current time.
func NewSession(id, levelID string, def *level.Definition, eng *engine.Engine) *Session {
	now := time.Now()
	s := &Session{
		ID:        id,
		LevelID:   levelID,
		Engine:    eng,
		Level:     def,
		CreatedAt: now,
	}
	s.lastAccessed.Store(now.UnixNano())
	return s
}

// Touch records an access at t.
func (s *Session) Touch(t time.Time) {
	s.lastAccessed.Store(t.UnixNano())
}

// LastAccessedAt returns the time of the most recent access.
func (s *Session) LastAccessedAt() time.Time {
	return time.Unix(0, s.lastAccessed.Load())
}
