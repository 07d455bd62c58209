package engine

import (
	"cmp"
	"slices"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/wricardo/boxpush/game/ecs"
	"github.com/wricardo/boxpush/game/level"
)

// Extra glyphs used only in rendered rows.
const (
	GlyphBoxOnSpot    = "*"
	GlyphPlayerOnSpot = "+"
)

// Sprite is one drawable entity.
type Sprite struct {
	Entity ecs.Entity `json:"entity"`
	X      int        `json:"x"`
	Y      int        `json:"y"`
	Z      int        `json:"z"`
	Path   string     `json:"path"`
	Kind   string     `json:"kind"`
}

// Snapshot is a read-only view of a game for presentation.
type Snapshot struct {
	Level        string        `json:"level"`
	Width        int           `json:"width"`
	Height       int           `json:"height"`
	State        GameplayState `json:"state"`
	MovesCount   int           `json:"moves_count"`
	Tick         int           `json:"tick"`
	Player       ecs.Cell      `json:"player"`
	Boxes        []ecs.Cell    `json:"boxes"`
	Spots        []ecs.Cell    `json:"spots"`
	BoxesOnSpots int           `json:"boxes_on_spots"`
	Rows         []string      `json:"rows"`
	Sprites      []Sprite      `json:"sprites"`
	Hash         uint64        `json:"hash"`
}

// Won reports whether the snapshot was taken after the win.
func (s *Snapshot) Won() bool {
	return s.State == Won
}

// Board joins Rows with newlines.
func (s *Snapshot) Board() string {
	return strings.Join(s.Rows, "\n")
}

// identity is checked in priority order; the first kind present names the sprite.
var identity = []ecs.Kind{ecs.KindPlayer, ecs.KindBox, ecs.KindWall, ecs.KindBoxSpot, ecs.KindFloor}

// Snapshot captures the current game for rendering.
func (e *Engine) Snapshot() Snapshot {
	snap := Snapshot{
		Level:      e.def.Name,
		Width:      e.grid.Width,
		Height:     e.grid.Height,
		State:      e.state.State,
		MovesCount: e.state.MovesCount,
		Tick:       e.tick,
	}
	snap.Player, _ = e.PlayerCell()

	for ent := range e.store.Query(ecs.KindPosition, ecs.KindRenderable) {
		pos := e.store.Position(ent)
		r, _ := e.store.Renderable(ent)
		snap.Sprites = append(snap.Sprites, Sprite{
			Entity: ent,
			X:      pos.X,
			Y:      pos.Y,
			Z:      pos.Z,
			Path:   r.Path,
			Kind:   kindName(e.store, ent),
		})
	}
	slices.SortStableFunc(snap.Sprites, func(a, b Sprite) int { return cmp.Compare(a.Z, b.Z) })

	for b := range e.store.Query(ecs.KindBox, ecs.KindPosition) {
		snap.Boxes = append(snap.Boxes, e.store.Position(b).Cell())
	}
	boxes := e.store.IndexByCell(ecs.KindBox)
	for s := range e.store.Query(ecs.KindBoxSpot, ecs.KindPosition) {
		c := e.store.Position(s).Cell()
		snap.Spots = append(snap.Spots, c)
		if _, ok := boxes[c]; ok {
			snap.BoxesOnSpots++
		}
	}

	snap.Rows = renderRows(e.store, e.grid)
	snap.Hash = fingerprint(&snap)
	return snap
}

func kindName(store *ecs.Store, ent ecs.Entity) string {
	for _, k := range identity {
		if store.Has(ent, k) {
			return k.String()
		}
	}
	return ""
}

// renderRows draws the board with the map grammar plus the on-spot glyphs.
func renderRows(store *ecs.Store, grid level.Grid) []string {
	cells := make([][]string, grid.Height)
	for y := range cells {
		cells[y] = slices.Repeat([]string{level.TokenVoid}, grid.Width)
	}

	set := func(c ecs.Cell, glyph string) {
		if grid.Contains(c) {
			cells[c.Y][c.X] = glyph
		}
	}
	draw := func(kind ecs.Kind, glyph string) {
		for ent := range store.Query(kind, ecs.KindPosition) {
			set(store.Position(ent).Cell(), glyph)
		}
	}

	draw(ecs.KindFloor, level.TokenFloor)
	draw(ecs.KindBoxSpot, level.TokenBoxSpot)
	draw(ecs.KindWall, level.TokenWall)

	spots := store.IndexByCell(ecs.KindBoxSpot)
	overlay := func(kind ecs.Kind, glyph, onSpot string) {
		for ent := range store.Query(kind, ecs.KindPosition) {
			c := store.Position(ent).Cell()
			if _, ok := spots[c]; ok {
				set(c, onSpot)
			} else {
				set(c, glyph)
			}
		}
	}
	overlay(ecs.KindBox, level.TokenBox, GlyphBoxOnSpot)
	overlay(ecs.KindPlayer, level.TokenPlayer, GlyphPlayerOnSpot)

	rows := make([]string, grid.Height)
	for y, row := range cells {
		rows[y] = strings.Join(row, " ")
	}
	return rows
}

func fingerprint(s *Snapshot) uint64 {
	d := xxhash.New()
	for _, row := range s.Rows {
		d.WriteString(row)
		d.WriteString("\n")
	}
	d.WriteString(string(s.State))
	d.WriteString(strconv.Itoa(s.MovesCount))
	return d.Sum64()
}
