package service

import (
	"github.com/wricardo/boxpush/game/level"
)

// DescribeLevel summarizes a level definition for listings.
func DescribeLevel(id, filename string, def *level.Definition) (*LevelInfo, error) {
	layout, err := def.Layout()
	if err != nil {
		return nil, err
	}
	return &LevelInfo{
		Filename:    filename,
		LevelID:     id,
		Name:        def.Name,
		Description: def.Description,
		Width:       layout.Grid.Width,
		Height:      layout.Grid.Height,
		Boxes:       layout.Count(level.TileBox),
		Spots:       layout.Count(level.TileBoxSpot),
	}, nil
}
