package ecs

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func spawn(t *testing.T, s *Store, x, y int, tags ...Component) Entity {
	t.Helper()
	e := s.CreateEntity()
	require.NoError(t, s.Attach(e, Position{X: x, Y: y}))
	for _, tag := range tags {
		require.NoError(t, s.Attach(e, tag))
	}
	return e
}

func TestCreateEntity_DenseIDs(t *testing.T) {
	s := NewStore()
	for i := 0; i < 5; i++ {
		assert.Equal(t, Entity(i), s.CreateEntity())
	}
	assert.Equal(t, 5, s.Len())
}

func TestAttach_UnknownEntity(t *testing.T) {
	s := NewStore()
	err := s.Attach(Entity(3), Wall{})
	assert.ErrorIs(t, err, ErrUnknownEntity)
}

func TestGet(t *testing.T) {
	s := NewStore()
	e := spawn(t, s, 2, 3, Box{}, Moveable{}, Renderable{Path: "/images/box.png"})

	c, ok := s.Get(e, KindPosition)
	require.True(t, ok)
	assert.Equal(t, Position{X: 2, Y: 3}, c)

	c, ok = s.Get(e, KindRenderable)
	require.True(t, ok)
	assert.Equal(t, Renderable{Path: "/images/box.png"}, c)

	c, ok = s.Get(e, KindBox)
	require.True(t, ok)
	assert.Equal(t, Box{}, c)

	_, ok = s.Get(e, KindWall)
	assert.False(t, ok)

	_, ok = s.Get(Entity(99), KindPosition)
	assert.False(t, ok)
}

func TestPosition_MutatesInPlace(t *testing.T) {
	s := NewStore()
	e := spawn(t, s, 1, 1)

	s.Position(e).X++
	c, _ := s.Get(e, KindPosition)
	assert.Equal(t, 2, c.(Position).X)

	bare := s.CreateEntity()
	assert.Nil(t, s.Position(bare))
}

func TestQuery_IntersectionInInsertionOrder(t *testing.T) {
	s := NewStore()
	wall := spawn(t, s, 0, 0, Wall{}, Immoveable{})
	box1 := spawn(t, s, 1, 0, Box{}, Moveable{})
	player := spawn(t, s, 2, 0, Player{}, Moveable{})
	box2 := spawn(t, s, 3, 0, Box{}, Moveable{})
	unplaced := s.CreateEntity()
	require.NoError(t, s.Attach(unplaced, Box{}))

	assert.Equal(t, []Entity{box1, box2}, slices.Collect(s.Query(KindPosition, KindBox)))
	assert.Equal(t, []Entity{box1, player, box2}, slices.Collect(s.Query(KindMoveable)))
	assert.Equal(t, []Entity{wall}, slices.Collect(s.Query(KindImmoveable, KindPosition)))
	assert.Empty(t, slices.Collect(s.Query()))
	assert.Equal(t, 3, s.Count(KindBox))
}

func TestQuery_StopsEarly(t *testing.T) {
	s := NewStore()
	for i := 0; i < 10; i++ {
		spawn(t, s, i, 0, Box{})
	}

	seen := 0
	for range s.Query(KindBox) {
		seen++
		if seen == 3 {
			break
		}
	}
	assert.Equal(t, 3, seen)
}

func TestIndexByCell(t *testing.T) {
	s := NewStore()
	spawn(t, s, 0, 0, Floor{})
	wall := spawn(t, s, 0, 0, Wall{}, Immoveable{})
	spawn(t, s, 1, 0, Floor{})
	box := spawn(t, s, 1, 0, Box{}, Moveable{})

	immoveable := s.IndexByCell(KindImmoveable)
	moveable := s.IndexByCell(KindMoveable)

	assert.Equal(t, map[Cell]Entity{{X: 0, Y: 0}: wall}, immoveable)
	assert.Equal(t, map[Cell]Entity{{X: 1, Y: 0}: box}, moveable)
}

func TestAt(t *testing.T) {
	s := NewStore()
	floor := spawn(t, s, 4, 2, Floor{})
	spot := spawn(t, s, 4, 2, BoxSpot{})
	spawn(t, s, 5, 2, Floor{})

	assert.Equal(t, []Entity{floor, spot}, s.At(Cell{X: 4, Y: 2}))
	assert.Empty(t, s.At(Cell{X: 9, Y: 9}))
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "player", KindPlayer.String())
	assert.Equal(t, "unknown", Kind(200).String())
}
