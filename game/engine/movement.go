package engine

import (
	"slices"

	"github.com/wricardo/boxpush/game/ecs"
	"github.com/wricardo/boxpush/game/level"
)

// Occupancy answers what stands on a cell.
type Occupancy interface {
	Moveable(c ecs.Cell) bool
	Immoveable(c ecs.Cell) bool
}

// cellIndex is the per-input view of the store used by the chain scan.
type cellIndex struct {
	moveableAt   map[ecs.Cell]ecs.Entity
	immoveableAt map[ecs.Cell]ecs.Entity
}

func newCellIndex(store *ecs.Store) *cellIndex {
	return &cellIndex{
		moveableAt:   store.IndexByCell(ecs.KindMoveable),
		immoveableAt: store.IndexByCell(ecs.KindImmoveable),
	}
}

func (ix *cellIndex) Moveable(c ecs.Cell) bool {
	_, ok := ix.moveableAt[c]
	return ok
}

func (ix *cellIndex) Immoveable(c ecs.Cell) bool {
	_, ok := ix.immoveableAt[c]
	return ok
}

// ScanChain walks from `from` (inclusive) in direction dir and returns the
// cells whose occupants must shift by one.
//
// A moveable extends the chain; an immoveable blocks it and nothing moves; an
// empty cell ends the scan and the chain moves. Running off the grid without
// reaching an empty cell is reported as OutcomeEdge and nothing moves.
func ScanChain(grid level.Grid, from ecs.Cell, dir Direction, occ Occupancy) ([]ecs.Cell, Outcome) {
	dx, dy := dir.Delta()
	if dx == 0 && dy == 0 {
		return nil, OutcomeIgnored
	}

	var chain []ecs.Cell
	for c := from; grid.Contains(c); c = (ecs.Cell{X: c.X + dx, Y: c.Y + dy}) {
		switch {
		case occ.Moveable(c):
			chain = append(chain, c)
		case occ.Immoveable(c):
			return nil, OutcomeBlocked
		default:
			if len(chain) == 0 {
				return nil, OutcomeIgnored
			}
			return chain, OutcomeMoved
		}
	}
	return nil, OutcomeEdge
}

// ResolveMovement consumes at most one input per player and applies the
// resulting pushes. Under DrainLIFO the inputs left over once every player
// has been served are discarded; the count is returned.
func ResolveMovement(store *ecs.Store, grid level.Grid, queue *InputQueue, order DrainOrder) ([]PlayerMove, int) {
	var moves []PlayerMove

	players := slices.Collect(store.Query(ecs.KindPlayer, ecs.KindPosition))
	for _, player := range players {
		in, ok := queue.Pop(order)
		if !ok {
			break
		}

		from := store.Position(player).Cell()
		move := PlayerMove{Player: player, Input: in, From: from, To: from}

		dir, ok := ParseDirection(string(in))
		if !ok {
			move.Outcome = OutcomeIgnored
			moves = append(moves, move)
			continue
		}
		move.Direction = dir

		index := newCellIndex(store)
		chain, outcome := ScanChain(grid, from, dir, index)
		move.Outcome = outcome

		if outcome == OutcomeMoved {
			dx, dy := dir.Delta()
			for _, c := range chain {
				pos := store.Position(index.moveableAt[c])
				pos.X += dx
				pos.Y += dy
			}
			move.To = store.Position(player).Cell()
			move.Pushed = len(chain) - 1
		}
		moves = append(moves, move)
	}

	discarded := 0
	if order == DrainLIFO {
		discarded = queue.Clear()
	}
	return moves, discarded
}
