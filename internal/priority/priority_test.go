package priority

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/semindex-mcp/internal/workspace"
	"github.com/dshills/semindex-mcp/pkg/types"
)

func writeFile(t *testing.T, dir, name string) {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("content\n"), 0o644))
}

func TestSelect_CodePatternOrder(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "main.go")
	writeFile(t, dir, "README.md")
	writeFile(t, dir, "go.mod")
	writeFile(t, dir, "internal/util.go")

	sel := NewSelector(workspace.NewScanner(dir))
	picked, err := sel.Select(context.Background(), types.ProjectCode)
	require.NoError(t, err)

	// README before go.mod before main.go, pattern order not path order
	require.True(t, len(picked) >= 3)
	assert.Equal(t, "README.md", picked[0])
	assert.Equal(t, "go.mod", picked[1])
	assert.Equal(t, "main.go", picked[2])
	assert.NotContains(t, picked, "internal/util.go")
}

func TestSelect_ProsePatterns(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "chapter-01.md")
	writeFile(t, dir, "chapter-07.md")
	writeFile(t, dir, "outline.md")
	writeFile(t, dir, "characters.md")

	sel := NewSelector(workspace.NewScanner(dir))
	picked, err := sel.Select(context.Background(), types.ProjectProse)
	require.NoError(t, err)

	require.True(t, len(picked) >= 3)
	assert.Equal(t, "outline.md", picked[0])
	assert.Equal(t, "characters.md", picked[1])
	assert.Contains(t, picked, "chapter-01.md")
	assert.NotContains(t, picked, "chapter-07.md")
}

func TestSelect_LimitAndDedupe(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "readme.md")
	writeFile(t, dir, "outline.md")
	writeFile(t, dir, "synopsis.md")

	sel := NewSelector(workspace.NewScanner(dir)).WithLimit(2)
	picked, err := sel.Select(context.Background(), types.ProjectProse)
	require.NoError(t, err)

	assert.Len(t, picked, 2)
	seen := map[string]int{}
	for _, p := range picked {
		seen[p]++
	}
	for p, n := range seen {
		assert.Equal(t, 1, n, p)
	}
}

func TestSelect_UnknownTypeUsesCommonPatterns(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "README.md")
	writeFile(t, dir, "notes.md")

	sel := NewSelector(workspace.NewScanner(dir))
	picked, err := sel.Select(context.Background(), types.ProjectUnknown)
	require.NoError(t, err)

	require.NotEmpty(t, picked)
	assert.Equal(t, "README.md", picked[0])
}

func TestSelect_Idempotent(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "README.md")
	writeFile(t, dir, "main.go")
	writeFile(t, dir, "go.mod")

	sel := NewSelector(workspace.NewScanner(dir))
	first, err := sel.Select(context.Background(), types.ProjectCode)
	require.NoError(t, err)
	second, err := sel.Select(context.Background(), types.ProjectCode)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestMatchPattern(t *testing.T) {
	assert.True(t, matchPattern("readme*", "README.md"))
	assert.True(t, matchPattern("cmd/*", "cmd/main.go"))
	assert.False(t, matchPattern("cmd/*", "cmd/app/main.go"))
	assert.True(t, matchPattern("*.fountain", "episodes/pilot.fountain"))
	assert.False(t, matchPattern("main.go", "internal/util.go"))
}
