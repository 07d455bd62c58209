package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/wricardo/boxpush/game/level"
	"github.com/wricardo/boxpush/game/service"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

var (
	ErrLevelNotFound = errors.New("level not found")
	ErrInvalidLevel  = errors.New("invalid level")
	ErrNoLevelDir    = errors.New("no level directory configured")
)

// DefaultLevel is the level used when a session names none.
const DefaultLevel = "classic"

// Level file extensions in lookup order.
var extensions = []string{".yaml", ".yml", ".json"}

var _ service.LevelManager = (*Manager)(nil)

// Manager handles level loading and caching. Files in the level directory
// shadow built-in levels of the same name.
type Manager struct {
	levelDir     string
	builtins     map[string]*level.Definition
	levels       map[string]*level.Definition
	defaultLevel *level.Definition
	defaultName  string
	logger       *zap.Logger
	mu           sync.RWMutex
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the manager logger.
func WithLogger(l *zap.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// NewManager creates a level manager reading from levelDir. An empty levelDir
// serves built-in levels only.
func NewManager(levelDir string, opts ...Option) (*Manager, error) {
	if levelDir != "" {
		info, err := os.Stat(levelDir)
		if err != nil {
			return nil, fmt.Errorf("level directory: %w", err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("level directory %s is not a directory", levelDir)
		}
	}

	m := &Manager{
		levelDir: levelDir,
		builtins: map[string]*level.Definition{DefaultLevel: level.Classic()},
		levels:   make(map[string]*level.Definition),
		logger:   zap.NewNop(),

		defaultName: DefaultLevel,
	}
	for _, opt := range opts {
		opt(m)
	}

	if err := m.loadDefaultLevel(); err != nil {
		return nil, fmt.Errorf("failed to load default level: %w", err)
	}
	return m, nil
}

// LoadLevel loads a level by name. The name may carry a file extension.
func (m *Manager) LoadLevel(name string) (*level.Definition, error) {
	id, err := levelID(name)
	if err != nil {
		return nil, err
	}

	m.mu.RLock()
	// Check cache first
	if def, exists := m.levels[id]; exists {
		m.mu.RUnlock()
		return def, nil
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()

	// Double-check after acquiring write lock
	if def, exists := m.levels[id]; exists {
		return def, nil
	}

	def, _, err := m.readLevel(id)
	if errors.Is(err, ErrLevelNotFound) {
		if builtin, ok := m.builtins[id]; ok {
			def, err = builtin, nil
		}
	}
	if err != nil {
		return nil, err
	}

	m.levels[id] = def
	return def, nil
}

// readLevel finds id in the level directory and decodes it.
func (m *Manager) readLevel(id string) (*level.Definition, string, error) {
	if m.levelDir == "" {
		return nil, "", ErrLevelNotFound
	}

	for _, ext := range extensions {
		filename := id + ext
		data, err := os.ReadFile(filepath.Join(m.levelDir, filename))
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, "", fmt.Errorf("failed to read level file: %w", err)
		}

		def, err := decode(data, ext)
		if err != nil {
			return nil, "", fmt.Errorf("%w: %s: %v", ErrInvalidLevel, filename, err)
		}
		if def.Name == "" {
			def.Name = id
		}
		if err := def.Validate(); err != nil {
			return nil, "", fmt.Errorf("%w: %s: %w", ErrInvalidLevel, filename, err)
		}
		return def, filename, nil
	}
	return nil, "", ErrLevelNotFound
}

func decode(data []byte, ext string) (*level.Definition, error) {
	var def level.Definition
	var err error
	if ext == ".json" {
		err = json.Unmarshal(data, &def)
	} else {
		err = yaml.Unmarshal(data, &def)
	}
	if err != nil {
		return nil, err
	}
	return &def, nil
}

// LevelFile names one level file in the level directory.
type LevelFile struct {
	ID       string
	Filename string
}

// Files lists the level files in the level directory, valid or not, sorted by
// ID. When two files share an ID the one earlier in lookup order wins.
func (m *Manager) Files() ([]LevelFile, error) {
	if m.levelDir == "" {
		return nil, nil
	}

	entries, err := os.ReadDir(m.levelDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read level directory: %w", err)
	}

	byID := make(map[string]LevelFile)
	for _, entry := range entries {
		ext := filepath.Ext(entry.Name())
		rank := slices.Index(extensions, ext)
		if entry.IsDir() || rank < 0 {
			continue
		}
		id := strings.TrimSuffix(entry.Name(), ext)
		if prev, ok := byID[id]; ok && slices.Index(extensions, filepath.Ext(prev.Filename)) < rank {
			continue
		}
		byID[id] = LevelFile{ID: id, Filename: entry.Name()}
	}

	files := make([]LevelFile, 0, len(byID))
	for _, f := range byID {
		files = append(files, f)
	}
	slices.SortFunc(files, func(a, b LevelFile) int {
		return strings.Compare(a.ID, b.ID)
	})
	return files, nil
}

// ListLevels returns information about all available levels, sorted by ID.
// Files that fail to load are skipped.
func (m *Manager) ListLevels() ([]*service.LevelInfo, error) {
	files, err := m.Files()
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var levels []*service.LevelInfo

	for _, f := range files {
		def, err := m.LoadLevel(f.ID)
		if err != nil {
			m.logger.Warn("skipping level", zap.String("file", f.Filename), zap.Error(err))
			continue
		}
		info, err := service.DescribeLevel(f.ID, f.Filename, def)
		if err != nil {
			continue
		}
		seen[f.ID] = true
		levels = append(levels, info)
	}

	for id, def := range m.builtins {
		if seen[id] {
			continue
		}
		info, err := service.DescribeLevel(id, "", def)
		if err != nil {
			continue
		}
		info.Builtin = true
		levels = append(levels, info)
	}

	slices.SortFunc(levels, func(a, b *service.LevelInfo) int {
		return strings.Compare(a.LevelID, b.LevelID)
	})
	return levels, nil
}

// GetDefault returns the default level
func (m *Manager) GetDefault() *level.Definition {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.defaultLevel
}

// SetDefault sets the default level by name
func (m *Manager) SetDefault(name string) error {
	def, err := m.LoadLevel(name)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultLevel = def
	m.defaultName = name
	return nil
}

// RefreshCache drops cached levels so the next load rereads the files, then
// reloads the default level. On error the previous default stays in place.
func (m *Manager) RefreshCache() error {
	m.mu.Lock()
	m.levels = make(map[string]*level.Definition)
	m.mu.Unlock()

	return m.loadDefaultLevel()
}

func (m *Manager) loadDefaultLevel() error {
	m.mu.RLock()
	name := m.defaultName
	m.mu.RUnlock()

	def, err := m.LoadLevel(name)
	if _, ok := m.builtins[name]; ok && errors.Is(err, ErrInvalidLevel) {
		m.logger.Warn("default level file is invalid, using built-in", zap.Error(err))
		def, err = m.builtins[name], nil
	}
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultLevel = def
	return nil
}

// SaveLevel validates def and writes it as YAML to the level directory.
func (m *Manager) SaveLevel(name string, def *level.Definition) error {
	if m.levelDir == "" {
		return ErrNoLevelDir
	}
	id, err := levelID(name)
	if err != nil {
		return err
	}
	if def == nil {
		return fmt.Errorf("%w: missing definition", ErrInvalidLevel)
	}

	saved := *def
	if saved.Name == "" {
		saved.Name = id
	}
	if err := saved.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidLevel, err)
	}

	data, err := yaml.Marshal(&saved)
	if err != nil {
		return fmt.Errorf("failed to marshal level: %w", err)
	}

	path := filepath.Join(m.levelDir, id+".yaml")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write level file: %w", err)
	}

	m.mu.Lock()
	m.levels[id] = &saved
	m.mu.Unlock()

	m.logger.Info("level written", zap.String("path", path))
	return nil
}

// levelID strips a known extension and rejects names that are not plain
// file names.
func levelID(name string) (string, error) {
	id := name
	for _, ext := range extensions {
		id = strings.TrimSuffix(id, ext)
	}
	if id == "" || id == "." || id == ".." || strings.ContainsAny(id, `/\`) {
		return "", fmt.Errorf("%w: bad level name %q", ErrInvalidLevel, name)
	}
	return id, nil
}
