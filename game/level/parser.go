package level

import (
	"errors"
	"fmt"
	"strings"

	"github.com/wricardo/boxpush/game/ecs"
)

// Map tokens.
const (
	TokenFloor   = "."
	TokenWall    = "W"
	TokenPlayer  = "P"
	TokenBox     = "B"
	TokenBoxSpot = "S"
	TokenVoid    = "N"
)

// Draw order and sprites for each entity type.
const (
	FloorZ   = 5
	BoxSpotZ = 9
	WallZ    = 10
	PlayerZ  = 10
	BoxZ     = 10

	FloorSprite   = "/images/floor.png"
	WallSprite    = "/images/wall.png"
	PlayerSprite  = "/images/player.png"
	BoxSprite     = "/images/box.png"
	BoxSpotSprite = "/images/box_spot.png"
)

var ErrEmptyMap = errors.New("map is empty")

// ParseError locates an unrecognized token. Row and Col are zero-based.
type ParseError struct {
	Token string
	Row   int
	Col   int
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("unrecognized map token %q at row %d, col %d", e.Token, e.Row, e.Col)
}

// Tile is the content of one grid cell.
type Tile uint8

const (
	TileVoid Tile = iota
	TileFloor
	TileWall
	TilePlayer
	TileBox
	TileBoxSpot
)

var tokenTiles = map[string]Tile{
	TokenFloor:   TileFloor,
	TokenWall:    TileWall,
	TokenPlayer:  TilePlayer,
	TokenBox:     TileBox,
	TokenBoxSpot: TileBoxSpot,
	TokenVoid:    TileVoid,
}

// Token returns the map token that produces t.
func (t Tile) Token() string {
	switch t {
	case TileFloor:
		return TokenFloor
	case TileWall:
		return TokenWall
	case TilePlayer:
		return TokenPlayer
	case TileBox:
		return TokenBox
	case TileBoxSpot:
		return TokenBoxSpot
	}
	return TokenVoid
}

// Grid is the fixed size of a loaded map.
type Grid struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Contains reports whether c lies inside the grid.
func (g Grid) Contains(c ecs.Cell) bool {
	return c.X >= 0 && c.X < g.Width && c.Y >= 0 && c.Y < g.Height
}

// Layout is a fully parsed map. Rows may be ragged; missing cells are void.
type Layout struct {
	Grid  Grid
	Tiles [][]Tile
}

// At returns the tile at c, or TileVoid outside the layout.
func (l *Layout) At(c ecs.Cell) Tile {
	if c.Y < 0 || c.Y >= len(l.Tiles) || c.X < 0 || c.X >= len(l.Tiles[c.Y]) {
		return TileVoid
	}
	return l.Tiles[c.Y][c.X]
}

// Count returns how many cells hold t.
func (l *Layout) Count(t Tile) int {
	n := 0
	for _, row := range l.Tiles {
		for _, tile := range row {
			if tile == t {
				n++
			}
		}
	}
	return n
}

// Find returns every cell holding t in row-major order.
func (l *Layout) Find(t Tile) []ecs.Cell {
	var out []ecs.Cell
	for y, row := range l.Tiles {
		for x, tile := range row {
			if tile == t {
				out = append(out, ecs.Cell{X: x, Y: y})
			}
		}
	}
	return out
}

// Parse reads a map of space-separated single-character tokens, one row per line.
// Blank lines around the map and whitespace around each row are ignored.
func Parse(text string) (*Layout, error) {
	trimmed := strings.Trim(text, " \t\r\n")
	if trimmed == "" {
		return nil, ErrEmptyMap
	}

	lines := strings.Split(trimmed, "\n")
	layout := &Layout{Tiles: make([][]Tile, 0, len(lines))}

	for y, line := range lines {
		tokens := strings.Fields(line)
		row := make([]Tile, len(tokens))
		for x, token := range tokens {
			tile, ok := tokenTiles[token]
			if !ok {
				return nil, &ParseError{Token: token, Row: y, Col: x}
			}
			row[x] = tile
		}
		layout.Tiles = append(layout.Tiles, row)
		if len(row) > layout.Grid.Width {
			layout.Grid.Width = len(row)
		}
	}
	layout.Grid.Height = len(layout.Tiles)

	return layout, nil
}

// Populate creates the entities described by the layout in scan order.
func (l *Layout) Populate(store *ecs.Store) error {
	for y, row := range l.Tiles {
		for x, tile := range row {
			if err := spawnTile(store, tile, x, y); err != nil {
				return err
			}
		}
	}
	return nil
}

// Load parses text into a fresh store. The store is only returned when the
// whole map parsed.
func Load(text string) (*ecs.Store, Grid, error) {
	layout, err := Parse(text)
	if err != nil {
		return nil, Grid{}, fmt.Errorf("load map: %w", err)
	}
	store := ecs.NewStore()
	if err := layout.Populate(store); err != nil {
		return nil, Grid{}, fmt.Errorf("load map: %w", err)
	}
	return store, layout.Grid, nil
}

func spawnTile(store *ecs.Store, tile Tile, x, y int) error {
	if tile == TileVoid {
		return nil
	}
	if err := spawn(store, x, y, FloorZ, FloorSprite, ecs.Floor{}); err != nil {
		return err
	}
	switch tile {
	case TileWall:
		return spawn(store, x, y, WallZ, WallSprite, ecs.Wall{}, ecs.Immoveable{})
	case TilePlayer:
		return spawn(store, x, y, PlayerZ, PlayerSprite, ecs.Player{}, ecs.Moveable{})
	case TileBox:
		return spawn(store, x, y, BoxZ, BoxSprite, ecs.Box{}, ecs.Moveable{})
	case TileBoxSpot:
		return spawn(store, x, y, BoxSpotZ, BoxSpotSprite, ecs.BoxSpot{})
	}
	return nil
}

func spawn(store *ecs.Store, x, y, z int, sprite string, tags ...ecs.Component) error {
	e := store.CreateEntity()
	components := append([]ecs.Component{
		ecs.Position{X: x, Y: y, Z: z},
		ecs.Renderable{Path: sprite},
	}, tags...)
	for _, c := range components {
		if err := store.Attach(e, c); err != nil {
			return err
		}
	}
	return nil
}
