package level

import (
	"errors"
	"fmt"
	"strings"
)

var ErrInvalidDefinition = errors.New("invalid level definition")

// Definition is an authorable level as stored in the level library.
type Definition struct {
	Name            string `json:"name" yaml:"name"`
	Description     string `json:"description" yaml:"description"`
	Map             string `json:"map" yaml:"map"`
	RequireEnclosed bool   `json:"require_enclosed,omitempty" yaml:"require_enclosed,omitempty"`
}

// Layout parses the definition's map.
func (d *Definition) Layout() (*Layout, error) {
	layout, err := Parse(d.Map)
	if err != nil {
		return nil, fmt.Errorf("level %q: %w", d.Name, err)
	}
	return layout, nil
}

// Validate checks the definition for playability.
func (d *Definition) Validate() error {
	if d == nil {
		return fmt.Errorf("%w: definition is nil", ErrInvalidDefinition)
	}
	if strings.TrimSpace(d.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidDefinition)
	}

	layout, err := d.Layout()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidDefinition, err)
	}

	if n := layout.Count(TilePlayer); n != 1 {
		return fmt.Errorf("%w: map must contain exactly one player (P), got %d", ErrInvalidDefinition, n)
	}
	spots := layout.Count(TileBoxSpot)
	if spots == 0 {
		return fmt.Errorf("%w: map must contain at least one box spot (S)", ErrInvalidDefinition)
	}
	if boxes := layout.Count(TileBox); boxes < spots {
		return fmt.Errorf("%w: map has %d boxes for %d box spots", ErrInvalidDefinition, boxes, spots)
	}

	if d.RequireEnclosed {
		if err := layout.CheckEnclosed(); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidDefinition, err)
		}
	}
	return nil
}

const classicMap = `
N N W W W W W W
W W W . . . . W
W . . . B . . W
W . . . . . . W
W . P . . . . W
W . . S . . . W
W . . . . . . W
W W W W W W W W
`

// Classic returns the built-in starter level.
func Classic() *Definition {
	return &Definition{
		Name:            "classic",
		Description:     "One box, one spot. Push the box onto the spot.",
		Map:             classicMap,
		RequireEnclosed: true,
	}
}
