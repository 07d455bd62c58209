// Package config provides the level library for the puzzle server.
//
// The config package handles:
//   - Loading level definitions from YAML or JSON files
//   - Validation of every level before it is served
//   - Built-in levels and the default level
//   - Level discovery and listing
//
// Level Format:
//
// Levels live in a single directory as <id>.yaml, <id>.yml or <id>.json.
// Each file decodes into a level.Definition:
//
//	name: Corridor
//	description: Push the box to the end
//	require_enclosed: true
//	map: |
//	  W W W W W W
//	  W P B . S W
//	  W W W W W W
//
// A file named after a built-in level replaces it. The built-in "classic"
// level is always available and is the default.
//
// Usage:
//
//	manager, err := config.NewManager("levels", config.WithLogger(logger))
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	def, err := manager.LoadLevel("corridor")
//	levels, err := manager.ListLevels()
//	err = manager.SaveLevel("mine", def)
package config
