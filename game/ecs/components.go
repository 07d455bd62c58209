package ecs

// Kind identifies a component table. Each kind owns one bit of an entity's mask.
type Kind uint8

const (
	KindPosition Kind = iota
	KindRenderable
	KindFloor
	KindWall
	KindPlayer
	KindBox
	KindBoxSpot
	KindMoveable
	KindImmoveable

	kindCount
)

var kindNames = [...]string{
	KindPosition:   "position",
	KindRenderable: "renderable",
	KindFloor:      "floor",
	KindWall:       "wall",
	KindPlayer:     "player",
	KindBox:        "box",
	KindBoxSpot:    "box_spot",
	KindMoveable:   "moveable",
	KindImmoveable: "immoveable",
}

func (k Kind) String() string {
	if k < kindCount {
		return kindNames[k]
	}
	return "unknown"
}

func (k Kind) bit() mask { return 1 << k }

// Component is any value attachable to an entity.
type Component interface {
	Kind() Kind
}

// Cell is an (x, y) grid coordinate.
type Cell struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Position places an entity on the grid. Z only affects draw order.
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
	Z int `json:"z"`
}

func (Position) Kind() Kind { return KindPosition }

// Cell drops the draw-order coordinate.
func (p Position) Cell() Cell { return Cell{X: p.X, Y: p.Y} }

// Renderable names the sprite drawn for an entity.
type Renderable struct {
	Path string `json:"path"`
}

func (Renderable) Kind() Kind { return KindRenderable }

// Presence-only tags.
type (
	Floor      struct{}
	Wall       struct{}
	Player     struct{}
	Box        struct{}
	BoxSpot    struct{}
	Moveable   struct{}
	Immoveable struct{}
)

func (Floor) Kind() Kind      { return KindFloor }
func (Wall) Kind() Kind       { return KindWall }
func (Player) Kind() Kind     { return KindPlayer }
func (Box) Kind() Kind        { return KindBox }
func (BoxSpot) Kind() Kind    { return KindBoxSpot }
func (Moveable) Kind() Kind   { return KindMoveable }
func (Immoveable) Kind() Kind { return KindImmoveable }

// tagFor returns the zero tag value of a presence-only kind.
func tagFor(k Kind) Component {
	switch k {
	case KindFloor:
		return Floor{}
	case KindWall:
		return Wall{}
	case KindPlayer:
		return Player{}
	case KindBox:
		return Box{}
	case KindBoxSpot:
		return BoxSpot{}
	case KindMoveable:
		return Moveable{}
	case KindImmoveable:
		return Immoveable{}
	}
	return nil
}
