package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wricardo/boxpush/game/level"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"gopkg.in/yaml.v3"
)

const corridor = `
W W W W W W
W P B . S W
W W W W W W
`

func corridorLevel() *level.Definition {
	return &level.Definition{
		Name:        "Corridor",
		Description: "Push the box to the end",
		Map:         corridor,
	}
}

func writeLevelFile(t *testing.T, dir, filename string, def *level.Definition) {
	t.Helper()
	var data []byte
	var err error
	if filepath.Ext(filename) == ".json" {
		data, err = json.MarshalIndent(def, "", "  ")
	} else {
		data, err = yaml.Marshal(def)
	}
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, filename), data, 0644))
}

func TestNewManager(t *testing.T) {
	t.Run("builtins only", func(t *testing.T) {
		m, err := NewManager("")
		require.NoError(t, err)
		assert.Equal(t, "classic", m.GetDefault().Name)
	})

	t.Run("non-existent directory", func(t *testing.T) {
		_, err := NewManager("/non/existent/path")
		assert.Error(t, err)
	})

	t.Run("path is a file", func(t *testing.T) {
		f := filepath.Join(t.TempDir(), "file")
		require.NoError(t, os.WriteFile(f, nil, 0644))
		_, err := NewManager(f)
		assert.Error(t, err)
	})

	t.Run("classic file overrides builtin", func(t *testing.T) {
		dir := t.TempDir()
		def := corridorLevel()
		def.Name = "My Classic"
		writeLevelFile(t, dir, "classic.yaml", def)

		m, err := NewManager(dir)
		require.NoError(t, err)
		assert.Equal(t, "My Classic", m.GetDefault().Name)
	})

	t.Run("broken classic file falls back to builtin", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "classic.yaml"), []byte("map: \"W ? W\"\n"), 0644))

		core, logs := observer.New(zap.WarnLevel)
		m, err := NewManager(dir, WithLogger(zap.New(core)))
		require.NoError(t, err)
		assert.Equal(t, level.Classic().Map, m.GetDefault().Map)
		assert.Equal(t, 1, logs.Len())
	})
}

func TestManager_LoadLevel(t *testing.T) {
	dir := t.TempDir()
	writeLevelFile(t, dir, "corridor.yaml", corridorLevel())
	writeLevelFile(t, dir, "json-level.json", corridorLevel())
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.yml"), []byte("name: bad\nmap: \"P B\"\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "garbage.yaml"), []byte(":\n  - ["), 0644))

	m, err := NewManager(dir)
	require.NoError(t, err)

	tests := []struct {
		name    string
		level   string
		wantErr error
		want    string
	}{
		{"yaml by id", "corridor", nil, "Corridor"},
		{"yaml with extension", "corridor.yaml", nil, "Corridor"},
		{"json", "json-level", nil, "Corridor"},
		{"builtin", "classic", nil, "classic"},
		{"missing", "nope", ErrLevelNotFound, ""},
		{"fails validation", "bad", ErrInvalidLevel, ""},
		{"not yaml", "garbage", ErrInvalidLevel, ""},
		{"path traversal", "../corridor", ErrInvalidLevel, ""},
		{"empty", "", ErrInvalidLevel, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def, err := m.LoadLevel(tt.level)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, def.Name)
		})
	}

	t.Run("validation error is reachable", func(t *testing.T) {
		_, err := m.LoadLevel("bad")
		assert.ErrorIs(t, err, level.ErrInvalidDefinition)
	})
}

func TestManager_LoadLevel_DefaultsNameToID(t *testing.T) {
	dir := t.TempDir()
	def := corridorLevel()
	def.Name = ""
	writeLevelFile(t, dir, "unnamed.yaml", def)

	m, err := NewManager(dir)
	require.NoError(t, err)

	got, err := m.LoadLevel("unnamed")
	require.NoError(t, err)
	assert.Equal(t, "unnamed", got.Name)
}

func TestManager_LoadLevel_Caches(t *testing.T) {
	dir := t.TempDir()
	writeLevelFile(t, dir, "corridor.yaml", corridorLevel())

	m, err := NewManager(dir)
	require.NoError(t, err)

	first, err := m.LoadLevel("corridor")
	require.NoError(t, err)
	require.NoError(t, os.Remove(filepath.Join(dir, "corridor.yaml")))

	second, err := m.LoadLevel("corridor")
	require.NoError(t, err)
	assert.Same(t, first, second)

	require.NoError(t, m.RefreshCache())
	_, err = m.LoadLevel("corridor")
	assert.ErrorIs(t, err, ErrLevelNotFound)
}

func TestManager_RefreshCache_KeepsChosenDefault(t *testing.T) {
	dir := t.TempDir()
	writeLevelFile(t, dir, "corridor.yaml", corridorLevel())

	m, err := NewManager(dir)
	require.NoError(t, err)
	require.NoError(t, m.SetDefault("corridor"))

	edited := corridorLevel()
	edited.Name = "Corridor v2"
	writeLevelFile(t, dir, "corridor.yaml", edited)

	require.NoError(t, m.RefreshCache())
	assert.Equal(t, "Corridor v2", m.GetDefault().Name)

	require.NoError(t, os.Remove(filepath.Join(dir, "corridor.yaml")))
	assert.ErrorIs(t, m.RefreshCache(), ErrLevelNotFound)
	assert.Equal(t, "Corridor v2", m.GetDefault().Name, "previous default survives a failed reload")
}

func TestManager_ListLevels(t *testing.T) {
	dir := t.TempDir()
	writeLevelFile(t, dir, "corridor.yaml", corridorLevel())
	writeLevelFile(t, dir, "alpha.json", corridorLevel())
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.yaml"), []byte("map: \"W ?\"\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignore me"), 0644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.yaml"), 0755))

	m, err := NewManager(dir)
	require.NoError(t, err)

	levels, err := m.ListLevels()
	require.NoError(t, err)

	var ids []string
	for _, l := range levels {
		ids = append(ids, l.LevelID)
	}
	assert.Equal(t, []string{"alpha", "classic", "corridor"}, ids)

	assert.Equal(t, "alpha.json", levels[0].Filename)
	assert.True(t, levels[1].Builtin)
	assert.Equal(t, 8, levels[1].Width)
	assert.Equal(t, 1, levels[1].Spots)

	corridorInfo := levels[2]
	assert.Equal(t, 6, corridorInfo.Width)
	assert.Equal(t, 3, corridorInfo.Height)
	assert.Equal(t, 1, corridorInfo.Boxes)
	assert.False(t, corridorInfo.Builtin)
}

func TestManager_Files(t *testing.T) {
	dir := t.TempDir()
	writeLevelFile(t, dir, "corridor.json", corridorLevel())
	writeLevelFile(t, dir, "corridor.yaml", corridorLevel())
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.yml"), []byte("map: \"W ?\"\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignore me"), 0644))

	m, err := NewManager(dir)
	require.NoError(t, err)

	files, err := m.Files()
	require.NoError(t, err)
	assert.Equal(t, []LevelFile{
		{ID: "broken", Filename: "broken.yml"},
		{ID: "corridor", Filename: "corridor.yaml"},
	}, files)

	builtinOnly, err := NewManager("")
	require.NoError(t, err)
	files, err = builtinOnly.Files()
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestManager_SaveLevel(t *testing.T) {
	dir := t.TempDir()
	m, err := NewManager(dir)
	require.NoError(t, err)

	require.NoError(t, m.SaveLevel("corridor", corridorLevel()))

	data, err := os.ReadFile(filepath.Join(dir, "corridor.yaml"))
	require.NoError(t, err)
	var onDisk level.Definition
	require.NoError(t, yaml.Unmarshal(data, &onDisk))
	assert.Equal(t, "Corridor", onDisk.Name)
	require.NoError(t, onDisk.Validate())

	// A fresh manager sees the saved file.
	m2, err := NewManager(dir)
	require.NoError(t, err)
	got, err := m2.LoadLevel("corridor")
	require.NoError(t, err)
	assert.Equal(t, "Corridor", got.Name)

	t.Run("invalid", func(t *testing.T) {
		err := m.SaveLevel("broken", &level.Definition{Name: "broken", Map: "P"})
		assert.ErrorIs(t, err, ErrInvalidLevel)
		assert.NoFileExists(t, filepath.Join(dir, "broken.yaml"))
	})

	t.Run("nil", func(t *testing.T) {
		assert.ErrorIs(t, m.SaveLevel("x", nil), ErrInvalidLevel)
	})

	t.Run("no directory", func(t *testing.T) {
		builtinOnly, err := NewManager("")
		require.NoError(t, err)
		assert.ErrorIs(t, builtinOnly.SaveLevel("corridor", corridorLevel()), ErrNoLevelDir)
	})
}

func TestManager_SetDefault(t *testing.T) {
	dir := t.TempDir()
	writeLevelFile(t, dir, "corridor.yaml", corridorLevel())
	m, err := NewManager(dir)
	require.NoError(t, err)

	require.NoError(t, m.SetDefault("corridor"))
	assert.Equal(t, "Corridor", m.GetDefault().Name)
	assert.ErrorIs(t, m.SetDefault("nope"), ErrLevelNotFound)
}

func TestManager_ConcurrentLoad(t *testing.T) {
	dir := t.TempDir()
	writeLevelFile(t, dir, "corridor.yaml", corridorLevel())
	m, err := NewManager(dir)
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([]*level.Definition, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			def, err := m.LoadLevel("corridor")
			assert.NoError(t, err)
			results[i] = def
		}(i)
	}
	wg.Wait()

	for _, def := range results {
		assert.Same(t, results[0], def)
	}
}
