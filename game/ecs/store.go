package ecs

import (
	"errors"
	"fmt"
	"iter"
)

var ErrUnknownEntity = errors.New("unknown entity")

// Entity is a dense index into the store's component tables.
type Entity uint32

type mask uint16

// Store is an arena of entities with parallel component tables.
// Tags live only in the per-entity mask; valued components have their own slice.
type Store struct {
	masks       []mask
	positions   []Position
	renderables []Renderable
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{}
}

// CreateEntity appends a fresh entity with no components.
func (s *Store) CreateEntity() Entity {
	e := Entity(len(s.masks))
	s.masks = append(s.masks, 0)
	s.positions = append(s.positions, Position{})
	s.renderables = append(s.renderables, Renderable{})
	return e
}

// Len returns the number of entities ever created.
func (s *Store) Len() int {
	return len(s.masks)
}

func (s *Store) valid(e Entity) bool {
	return int(e) < len(s.masks)
}

// Attach adds or replaces a component on e.
func (s *Store) Attach(e Entity, c Component) error {
	if !s.valid(e) {
		return fmt.Errorf("attach %s to %d: %w", c.Kind(), e, ErrUnknownEntity)
	}
	switch v := c.(type) {
	case Position:
		s.positions[e] = v
	case *Position:
		s.positions[e] = *v
	case Renderable:
		s.renderables[e] = v
	case *Renderable:
		s.renderables[e] = *v
	}
	s.masks[e] |= c.Kind().bit()
	return nil
}

// Has reports whether e carries every listed kind.
func (s *Store) Has(e Entity, kinds ...Kind) bool {
	if !s.valid(e) {
		return false
	}
	want := maskOf(kinds)
	return s.masks[e]&want == want
}

// Get returns a copy of the component of kind k attached to e.
func (s *Store) Get(e Entity, k Kind) (Component, bool) {
	if !s.Has(e, k) {
		return nil, false
	}
	switch k {
	case KindPosition:
		return s.positions[e], true
	case KindRenderable:
		return s.renderables[e], true
	}
	return tagFor(k), true
}

// Position returns a pointer for in-place mutation, or nil when e has no
// position. The pointer is invalidated by the next CreateEntity.
func (s *Store) Position(e Entity) *Position {
	if !s.Has(e, KindPosition) {
		return nil
	}
	return &s.positions[e]
}

// Renderable returns the sprite of e, if any.
func (s *Store) Renderable(e Entity) (Renderable, bool) {
	if !s.Has(e, KindRenderable) {
		return Renderable{}, false
	}
	return s.renderables[e], true
}

// Query yields, in insertion order, every entity that has all of kinds.
// An empty kind list yields nothing.
func (s *Store) Query(kinds ...Kind) iter.Seq[Entity] {
	want := maskOf(kinds)
	return func(yield func(Entity) bool) {
		if want == 0 {
			return
		}
		for i, m := range s.masks {
			if m&want != want {
				continue
			}
			if !yield(Entity(i)) {
				return
			}
		}
	}
}

// Count returns how many entities match Query(kinds...).
func (s *Store) Count(kinds ...Kind) int {
	n := 0
	for range s.Query(kinds...) {
		n++
	}
	return n
}

// IndexByCell maps each cell to the entity with a position and all of kinds
// standing on it. If two entities share a cell, the later one wins.
func (s *Store) IndexByCell(kinds ...Kind) map[Cell]Entity {
	idx := make(map[Cell]Entity)
	for e := range s.Query(append([]Kind{KindPosition}, kinds...)...) {
		idx[s.positions[e].Cell()] = e
	}
	return idx
}

// At returns every positioned entity on c in insertion order.
func (s *Store) At(c Cell) []Entity {
	var out []Entity
	for e := range s.Query(KindPosition) {
		if s.positions[e].Cell() == c {
			out = append(out, e)
		}
	}
	return out
}

func maskOf(kinds []Kind) mask {
	var m mask
	for _, k := range kinds {
		m |= k.bit()
	}
	return m
}
