package service

import (
	"time"

	"github.com/wricardo/boxpush/game/ecs"
	"github.com/wricardo/boxpush/game/engine"
)

// SessionInfo provides information about a game session
type SessionInfo struct {
	ID             string           `json:"id"`
	LevelID        string           `json:"level_id"`
	LevelName      string           `json:"level_name"`
	CreatedAt      time.Time        `json:"created_at"`
	LastAccessedAt time.Time        `json:"last_accessed_at"`
	GameState      engine.GameState `json:"game_state"`
	Snapshot       *engine.Snapshot `json:"snapshot,omitempty"`
}

// MoveResult contains the result of a move operation
type MoveResult struct {
	Success  bool             `json:"success"`
	Message  string           `json:"message"`
	Events   []GameEvent      `json:"events,omitempty"`
	Step     StepInfo         `json:"step"`
	WonNow   bool             `json:"won_now"`
	Snapshot *engine.Snapshot `json:"state"`
}

// Stop reason codes reported by BulkMove.
const (
	StopVictory          = "victory"
	StopBlocked          = "blocked"
	StopEdge             = "edge"
	StopInvalidDirection = "invalid_direction"
	StopCanceled         = "canceled"
)

// BulkMoveResult contains the result of multiple moves
type BulkMoveResult struct {
	RequestedMoves int              `json:"requested_moves"`
	MovesExecuted  int              `json:"moves_executed"`
	Success        bool             `json:"success"`
	Truncated      bool             `json:"truncated,omitempty"`
	Limit          int              `json:"limit,omitempty"`
	StoppedReason  string           `json:"stopped_reason,omitempty"`
	StopReasonCode string           `json:"stop_reason_code,omitempty"`
	StoppedOnMove  int              `json:"stopped_on_move,omitempty"` // 1-based
	Start          ecs.Cell         `json:"start"`
	End            ecs.Cell         `json:"end"`
	BoxesPushed    int              `json:"boxes_pushed"`
	Steps          []StepInfo       `json:"steps,omitempty"`
	Events         []GameEvent      `json:"events"`
	Snapshot       *engine.Snapshot `json:"state"`
}

// StepInfo is a compact record of one executed move
type StepInfo struct {
	Idx     int            `json:"idx"`
	Dir     string         `json:"dir"`
	From    ecs.Cell       `json:"from"`
	To      ecs.Cell       `json:"to"`
	Pushed  int            `json:"pushed"`
	Outcome engine.Outcome `json:"outcome"`
	Victory bool           `json:"victory,omitempty"`
}

// GameEvent represents an event that occurred during gameplay
type GameEvent struct {
	Type      string    `json:"type"` // "reset", "move", "push", "blocked", "victory"
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	Position  ecs.Cell  `json:"position"`
}

// HistoryOptions configures move history retrieval
type HistoryOptions struct {
	Page  int    `json:"page"`
	Limit int    `json:"limit"`
	Order string `json:"order"` // "asc" or "desc"
}

// HistoryResponse contains paginated move history
type HistoryResponse struct {
	Moves       []engine.MoveHistoryEntry `json:"moves"`
	TotalMoves  int                       `json:"total_moves"`
	Page        int                       `json:"page"`
	PageSize    int                       `json:"page_size"`
	TotalPages  int                       `json:"total_pages"`
	HasNext     bool                      `json:"has_next"`
	HasPrevious bool                      `json:"has_previous"`
}

// HintResult is a shortest solution from the current position.
type HintResult struct {
	Solved   bool               `json:"solved"`
	Next     engine.Direction   `json:"next,omitempty"`
	Moves    []engine.Direction `json:"moves"`
	Explored int                `json:"explored"`
}

// LevelInfo provides information about a level
type LevelInfo struct {
	Filename    string `json:"filename,omitempty"`
	LevelID     string `json:"level_id"` // The identifier to use for session creation
	Name        string `json:"name"`
	Description string `json:"description"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	Boxes       int    `json:"boxes"`
	Spots       int    `json:"spots"`
	Builtin     bool   `json:"builtin,omitempty"`
}
