package level

import (
	"errors"
	"fmt"

	"github.com/wricardo/boxpush/game/ecs"
)

var ErrNotEnclosed = errors.New("level is not enclosed by walls")

// CheckEnclosed flood-fills from every player through non-wall cells and fails
// if the fill reaches a void cell or steps off the grid.
func (l *Layout) CheckEnclosed() error {
	players := l.Find(TilePlayer)
	seen := make(map[ecs.Cell]bool)
	queue := append([]ecs.Cell(nil), players...)
	for _, p := range players {
		seen[p] = true
	}

	neighbors := []ecs.Cell{{X: 0, Y: -1}, {X: 0, Y: 1}, {X: -1, Y: 0}, {X: 1, Y: 0}}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		for _, d := range neighbors {
			next := ecs.Cell{X: cur.X + d.X, Y: cur.Y + d.Y}
			if !l.Grid.Contains(next) {
				return fmt.Errorf("%w: open edge next to (%d,%d)", ErrNotEnclosed, cur.X, cur.Y)
			}
			if seen[next] {
				continue
			}
			switch l.At(next) {
			case TileWall:
				continue
			case TileVoid:
				return fmt.Errorf("%w: void cell at (%d,%d) is reachable", ErrNotEnclosed, next.X, next.Y)
			}
			seen[next] = true
			queue = append(queue, next)
		}
	}
	return nil
}
