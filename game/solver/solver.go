// Package solver searches for the shortest sequence of moves that wins a
// level. It applies the same push-chain rule as the engine.
package solver

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/wricardo/boxpush/game/ecs"
	"github.com/wricardo/boxpush/game/engine"
	"github.com/wricardo/boxpush/game/level"
)

// DefaultMaxStates bounds the search when no limit is given.
const DefaultMaxStates = 200000

var (
	ErrNoSolution     = errors.New("no solution found")
	ErrStateLimit     = errors.New("search state limit reached")
	ErrNeedsOnePlayer = errors.New("solver needs exactly one player")
)

// Puzzle is the static part of a level plus the movable pieces.
type Puzzle struct {
	Grid   level.Grid
	Walls  map[ecs.Cell]bool
	Spots  []ecs.Cell
	Player ecs.Cell
	Boxes  []ecs.Cell
}

// Result is a solution and how much of the space was explored to find it.
type Result struct {
	Moves    []engine.Direction `json:"moves"`
	Explored int                `json:"explored"`
}

// FromStore extracts a puzzle from the current contents of an entity store.
func FromStore(store *ecs.Store, grid level.Grid) (*Puzzle, error) {
	p := &Puzzle{Grid: grid, Walls: make(map[ecs.Cell]bool)}

	players := 0
	for ent := range store.Query(ecs.KindPlayer, ecs.KindPosition) {
		p.Player = store.Position(ent).Cell()
		players++
	}
	if players != 1 {
		return nil, fmt.Errorf("%w: found %d", ErrNeedsOnePlayer, players)
	}

	for ent := range store.Query(ecs.KindImmoveable, ecs.KindPosition) {
		p.Walls[store.Position(ent).Cell()] = true
	}
	for ent := range store.Query(ecs.KindBoxSpot, ecs.KindPosition) {
		p.Spots = append(p.Spots, store.Position(ent).Cell())
	}
	for ent := range store.Query(ecs.KindBox, ecs.KindPosition) {
		p.Boxes = append(p.Boxes, store.Position(ent).Cell())
	}
	return p, nil
}

// FromEngine extracts a puzzle from a running game.
func FromEngine(e *engine.Engine) (*Puzzle, error) {
	return FromStore(e.Store(), e.Grid())
}

type node struct {
	player ecs.Cell
	boxes  []ecs.Cell
	parent int
	dir    engine.Direction
}

// occupancy adapts a search node to engine.Occupancy.
type occupancy struct {
	walls  map[ecs.Cell]bool
	player ecs.Cell
	boxes  map[ecs.Cell]bool
}

func (o occupancy) Moveable(c ecs.Cell) bool   { return c == o.player || o.boxes[c] }
func (o occupancy) Immoveable(c ecs.Cell) bool { return o.walls[c] }

// Solve runs a breadth-first search and returns a shortest solution.
// maxStates <= 0 uses DefaultMaxStates.
func (p *Puzzle) Solve(maxStates int) (*Result, error) {
	if maxStates <= 0 {
		maxStates = DefaultMaxStates
	}

	start := node{player: p.Player, boxes: sortCells(slices.Clone(p.Boxes)), parent: -1}
	if p.solved(start.boxes) {
		return &Result{Moves: []engine.Direction{}, Explored: 1}, nil
	}

	nodes := []node{start}
	seen := map[string]bool{key(start): true}

	for i := 0; i < len(nodes); i++ {
		cur := nodes[i]
		occ := occupancy{walls: p.Walls, player: cur.player, boxes: toSet(cur.boxes)}

		for _, dir := range engine.Directions {
			chain, outcome := engine.ScanChain(p.Grid, cur.player, dir, occ)
			if outcome != engine.OutcomeMoved {
				continue
			}

			next := apply(cur, chain, dir)
			next.parent = i
			next.dir = dir

			k := key(next)
			if seen[k] {
				continue
			}
			seen[k] = true
			nodes = append(nodes, next)

			if p.solved(next.boxes) {
				return &Result{Moves: path(nodes, len(nodes)-1), Explored: len(nodes)}, nil
			}
			if len(nodes) >= maxStates {
				return nil, fmt.Errorf("%w after %d states", ErrStateLimit, len(nodes))
			}
		}
	}
	return nil, fmt.Errorf("%w: explored %d states", ErrNoSolution, len(nodes))
}

func (p *Puzzle) solved(boxes []ecs.Cell) bool {
	set := toSet(boxes)
	for _, s := range p.Spots {
		if !set[s] {
			return false
		}
	}
	return true
}

func apply(cur node, chain []ecs.Cell, dir engine.Direction) node {
	dx, dy := dir.Delta()
	moving := toSet(chain)

	next := node{player: ecs.Cell{X: cur.player.X + dx, Y: cur.player.Y + dy}}
	next.boxes = make([]ecs.Cell, len(cur.boxes))
	for i, b := range cur.boxes {
		if moving[b] {
			b = ecs.Cell{X: b.X + dx, Y: b.Y + dy}
		}
		next.boxes[i] = b
	}
	sortCells(next.boxes)
	return next
}

func path(nodes []node, i int) []engine.Direction {
	var out []engine.Direction
	for ; nodes[i].parent >= 0; i = nodes[i].parent {
		out = append(out, nodes[i].dir)
	}
	slices.Reverse(out)
	return out
}

func key(n node) string {
	var b strings.Builder
	writeCell := func(c ecs.Cell) {
		b.WriteString(strconv.Itoa(c.X))
		b.WriteByte(',')
		b.WriteString(strconv.Itoa(c.Y))
		b.WriteByte(';')
	}
	writeCell(n.player)
	for _, c := range n.boxes {
		writeCell(c)
	}
	return b.String()
}

func toSet(cells []ecs.Cell) map[ecs.Cell]bool {
	set := make(map[ecs.Cell]bool, len(cells))
	for _, c := range cells {
		set[c] = true
	}
	return set
}

func sortCells(cells []ecs.Cell) []ecs.Cell {
	slices.SortFunc(cells, func(a, b ecs.Cell) int {
		if c := cmp.Compare(a.Y, b.Y); c != 0 {
			return c
		}
		return cmp.Compare(a.X, b.X)
	})
	return cells
}
