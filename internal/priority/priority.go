// Package priority ranks workspace files so a small hot set can be indexed
// before the full build completes.
//
// Ordering is: type-specific priority patterns (entry points, README,
// outline or treatment equivalents), then files touched in recent git
// history, truncated to a fixed cap. Selection is idempotent and
// side-effect free; a missing VCS simply contributes no files.
package priority

import (
	"bytes"
	"context"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/dshills/semindex-mcp/internal/workspace"
	"github.com/dshills/semindex-mcp/pkg/types"
)

// DefaultLimit caps the priority file list
const DefaultLimit = 200

// gitTimeout bounds the best-effort git invocation
const gitTimeout = 5 * time.Second

// Patterns matched against base names (lowercased), per project type.
// Earlier patterns rank higher.
var commonPatterns = []string{
	"readme*", "*.md",
}

var typePatterns = map[types.ProjectType][]string{
	types.ProjectCode: {
		"readme*", "go.mod", "package.json", "pyproject.toml", "cargo.toml",
		"main.go", "main.py", "index.ts", "index.js", "cmd/*",
	},
	types.ProjectProse: {
		"outline*", "characters*", "synopsis*", "chapter-01*", "chapter-1*", "chapter01*", "readme*",
	},
	types.ProjectScript: {
		"treatment*", "beats*", "beat-sheet*", "outline*", "*.fountain", "*.fdx",
	},
	types.ProjectDocs: {
		"index.*", "getting-started*", "getting_started*", "overview*", "readme*",
	},
}

// Selector produces the ordered priority file list for a workspace
type Selector struct {
	scanner *workspace.Scanner
	limit   int
}

// NewSelector creates a selector over the given scanner
func NewSelector(scanner *workspace.Scanner) *Selector {
	return &Selector{
		scanner: scanner,
		limit:   DefaultLimit,
	}
}

// WithLimit overrides the priority cap
func (s *Selector) WithLimit(limit int) *Selector {
	if limit > 0 {
		s.limit = limit
	}
	return s
}

// Select returns up to limit workspace-relative paths, highest priority
// first. The same workspace state always yields the same list.
func (s *Selector) Select(ctx context.Context, projectType types.ProjectType) ([]string, error) {
	all, err := s.scanner.List()
	if err != nil {
		return nil, err
	}

	patterns := typePatterns[projectType]
	if patterns == nil {
		patterns = commonPatterns
	}

	picked := make([]string, 0, s.limit)
	seen := make(map[string]struct{})
	add := func(rel string) {
		if _, dup := seen[rel]; dup || len(picked) >= s.limit {
			return
		}
		seen[rel] = struct{}{}
		picked = append(picked, rel)
	}

	// 1. Pattern-matched priority files, in pattern order
	for _, pattern := range patterns {
		for _, rel := range all {
			if matchPattern(pattern, rel) {
				add(rel)
			}
		}
	}

	// 2. Recently changed files from version control, best-effort
	for _, rel := range s.recentGitFiles(ctx) {
		if _, indexed := seen[rel]; !indexed && contains(all, rel) {
			add(rel)
		}
	}

	return picked, nil
}

// matchPattern matches a pattern against a relative path. Patterns with a
// slash match against the whole path; others against the base name.
func matchPattern(pattern, rel string) bool {
	if strings.Contains(pattern, "/") {
		ok, _ := filepath.Match(pattern, strings.ToLower(rel))
		return ok
	}
	ok, _ := filepath.Match(pattern, strings.ToLower(filepath.Base(rel)))
	return ok
}

// recentGitFiles lists files touched in recent commits. Absence of git or
// of a repository is not an error; it simply yields nothing.
func (s *Selector) recentGitFiles(ctx context.Context) []string {
	ctx, cancel := context.WithTimeout(ctx, gitTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", "-C", s.scanner.Root(),
		"log", "--name-only", "--pretty=format:", "-n", "20")
	out, err := cmd.Output()
	if err != nil {
		return nil
	}

	var files []string
	seen := make(map[string]struct{})
	for _, line := range bytes.Split(out, []byte("\n")) {
		rel := strings.TrimSpace(string(line))
		if rel == "" {
			continue
		}
		rel = filepath.ToSlash(rel)
		if _, dup := seen[rel]; !dup {
			seen[rel] = struct{}{}
			files = append(files, rel)
		}
	}
	return files
}

func contains(sorted []string, target string) bool {
	for _, s := range sorted {
		if s == target {
			return true
		}
	}
	return false
}
