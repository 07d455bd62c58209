package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func levelDir(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
	}
	return dir
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newCommand()
	cmd.Writer = &out
	cmd.ErrWriter = &out
	err := cmd.Run(context.Background(), append([]string{"levels"}, args...))
	return out.String(), err
}

const (
	corridorYAML = "name: Corridor\nmap: \"W P B . S W\"\n"
	stuckYAML    = "name: Stuck\nmap: \"W S . P B W\"\n"
)

func TestValidate(t *testing.T) {
	dir := levelDir(t, map[string]string{
		"corridor.yaml": corridorYAML,
		"broken.yaml":   "map: \"W ? W\"\n",
		"readme.md":     "not a level",
	})

	out, err := run(t, "--dir", dir, "validate")
	assert.ErrorIs(t, err, errInvalidLevels)
	assert.Contains(t, out, "✗ broken.yaml")
	assert.Contains(t, out, "✓ corridor.yaml\n")
	assert.Contains(t, out, "2 files, 1 invalid")
}

func TestValidate_Solve(t *testing.T) {
	dir := levelDir(t, map[string]string{
		"corridor.yaml": corridorYAML,
		"stuck.yaml":    stuckYAML,
	})

	out, err := run(t, "--dir", dir, "validate", "--solve")
	assert.ErrorIs(t, err, errInvalidLevels)
	assert.Contains(t, out, "✓ corridor.yaml (solvable in 2 moves)")
	assert.Contains(t, out, "✗ stuck.yaml: no solution found")
}

func TestValidate_ShippedLevels(t *testing.T) {
	out, err := run(t, "--dir", filepath.Join("..", "..", "levels"), "validate", "--solve")
	require.NoError(t, err, out)
	assert.Contains(t, out, "0 invalid")
}

func TestAnalyze(t *testing.T) {
	dir := levelDir(t, map[string]string{
		"corridor.yaml": corridorYAML,
		"stuck.yaml":    stuckYAML,
	})

	out, err := run(t, "--dir", dir, "analyze")
	require.NoError(t, err)
	assert.Contains(t, out, "=== classic (built-in) ===")
	assert.Contains(t, out, "=== corridor (corridor.yaml) ===")
	assert.Contains(t, out, "Grid: 6x1, Boxes: 1, Spots: 1")
	assert.Contains(t, out, "Solution: 2 moves")
	assert.Contains(t, out, "Solution: no solution found")
}

func TestSolve(t *testing.T) {
	dir := levelDir(t, map[string]string{"corridor.yaml": corridorYAML})

	out, err := run(t, "--dir", dir, "solve", "corridor")
	require.NoError(t, err)
	assert.Contains(t, out, "Corridor: 2 moves")
	assert.Contains(t, out, "right right\n")
	assert.Contains(t, out, "W . . P * W")

	_, err = run(t, "--dir", dir, "solve")
	assert.Error(t, err)

	_, err = run(t, "--dir", dir, "solve", "missing")
	assert.Error(t, err)
}
