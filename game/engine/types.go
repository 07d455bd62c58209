package engine

import (
	"strings"
	"sync"
	"time"

	"github.com/wricardo/boxpush/game/ecs"
)

// Direction is one of the four move directions.
type Direction string

const (
	Up    Direction = "up"
	Down  Direction = "down"
	Left  Direction = "left"
	Right Direction = "right"
)

// Directions lists the input alphabet in a fixed order.
var Directions = []Direction{Up, Down, Left, Right}

// ParseDirection maps an input to a direction, case-insensitively.
func ParseDirection(s string) (Direction, bool) {
	switch d := Direction(strings.ToLower(strings.TrimSpace(s))); d {
	case Up, Down, Left, Right:
		return d, true
	}
	return "", false
}

// Delta returns the unit step of d.
func (d Direction) Delta() (dx, dy int) {
	switch d {
	case Up:
		return 0, -1
	case Down:
		return 0, 1
	case Left:
		return -1, 0
	case Right:
		return 1, 0
	}
	return 0, 0
}

// Input is a raw command from the input collaborator. Anything that is not a
// direction is accepted into the queue and ignored when resolved.
type Input string

// GameplayState is the coarse game status.
type GameplayState string

const (
	Playing GameplayState = "playing"
	Won     GameplayState = "won"
)

// GameState is read by the win evaluator and by presentation.
type GameState struct {
	State      GameplayState `json:"state"`
	MovesCount int           `json:"moves_count"`
}

// NewGameState returns the state of a game that just started.
func NewGameState() GameState {
	return GameState{State: Playing}
}

// DrainOrder selects how the input queue is consumed.
type DrainOrder int

const (
	// DrainLIFO applies the most recent input and discards the rest each tick.
	DrainLIFO DrainOrder = iota
	// DrainFIFO applies the oldest input and keeps the rest for later ticks.
	DrainFIFO
)

// InputQueue holds pending inputs. Push is safe from any goroutine.
type InputQueue struct {
	mu     sync.Mutex
	inputs []Input
}

// Push appends an input.
func (q *InputQueue) Push(in Input) {
	q.mu.Lock()
	q.inputs = append(q.inputs, in)
	q.mu.Unlock()
}

// Len returns the number of pending inputs.
func (q *InputQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.inputs)
}

// Pop removes one input according to order.
func (q *InputQueue) Pop(order DrainOrder) (Input, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.inputs) == 0 {
		return "", false
	}
	var in Input
	if order == DrainFIFO {
		in = q.inputs[0]
		q.inputs = q.inputs[1:]
	} else {
		in = q.inputs[len(q.inputs)-1]
		q.inputs = q.inputs[:len(q.inputs)-1]
	}
	return in, true
}

// Clear drops every pending input and returns how many were dropped.
func (q *InputQueue) Clear() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := len(q.inputs)
	q.inputs = nil
	return n
}

// Outcome describes what happened to one player on one tick.
type Outcome string

const (
	OutcomeMoved   Outcome = "moved"
	OutcomeBlocked Outcome = "blocked"
	OutcomeEdge    Outcome = "edge"
	OutcomeIgnored Outcome = "ignored"
)

// PlayerMove records the resolution of one player's input.
type PlayerMove struct {
	Player    ecs.Entity `json:"player"`
	Input     Input      `json:"input,omitempty"`
	Direction Direction  `json:"direction,omitempty"`
	From      ecs.Cell   `json:"from"`
	To        ecs.Cell   `json:"to"`
	Pushed    int        `json:"pushed"`
	Outcome   Outcome    `json:"outcome"`
}

// TickResult summarizes one AdvanceTick.
type TickResult struct {
	Tick       int           `json:"tick"`
	Moves      []PlayerMove  `json:"moves"`
	Moved      bool          `json:"moved"`
	Discarded  int           `json:"discarded,omitempty"`
	WonNow     bool          `json:"won_now"`
	State      GameplayState `json:"state"`
	MovesCount int           `json:"moves_count"`
}

// MoveHistoryEntry records a resolved player input.
type MoveHistoryEntry struct {
	Tick       int       `json:"tick"`
	Input      Input     `json:"input"`
	Direction  Direction `json:"direction,omitempty"`
	From       ecs.Cell  `json:"from"`
	To         ecs.Cell  `json:"to"`
	Pushed     int       `json:"pushed"`
	Outcome    Outcome   `json:"outcome"`
	MoveNumber int       `json:"move_number"`
	Timestamp  int64     `json:"timestamp"`
}

func newHistoryEntry(tick int, m PlayerMove, movesCount int) MoveHistoryEntry {
	return MoveHistoryEntry{
		Tick:       tick,
		Input:      m.Input,
		Direction:  m.Direction,
		From:       m.From,
		To:         m.To,
		Pushed:     m.Pushed,
		Outcome:    m.Outcome,
		MoveNumber: movesCount,
		Timestamp:  time.Now().Unix(),
	}
}
