// Package workspace enumerates and fingerprints the indexable files of a
// project tree.
package workspace

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// MaxFileSize is the largest file the scanner will surface for indexing.
// Larger files are almost always generated artifacts or data dumps.
const MaxFileSize = 100_000

// CacheDirName is the workspace-local directory holding the index cache.
// It is always excluded from scanning and watching.
const CacheDirName = ".semindex"

// DefaultIgnoreDirs are directory names excluded from scanning and watching
var DefaultIgnoreDirs = map[string]struct{}{
	".git":         {},
	CacheDirName:   {},
	"node_modules": {},
	"vendor":       {},
	"dist":         {},
	"build":        {},
	"target":       {},
	"__pycache__":  {},
	".venv":        {},
	"venv":         {},
	".idea":        {},
	".vscode":      {},
}

// IndexExtensions are the file extensions the engine indexes: code, config,
// documentation, prose and screenplay formats.
var IndexExtensions = map[string]struct{}{
	// Code
	".go": {}, ".py": {}, ".js": {}, ".ts": {}, ".jsx": {}, ".tsx": {},
	".rs": {}, ".rb": {}, ".java": {}, ".kt": {}, ".swift": {},
	".c": {}, ".cpp": {}, ".h": {}, ".hpp": {}, ".cs": {},
	// Config
	".yaml": {}, ".yml": {}, ".toml": {}, ".json": {},
	// Documentation
	".md": {}, ".rst": {}, ".mdx": {}, ".adoc": {},
	// Prose
	".txt": {}, ".rtf": {},
	// Screenplays
	".fountain": {}, ".fdx": {}, ".highland": {},
}

// Scanner discovers indexable files under a workspace root and computes the
// freshness fingerprint over them. It is stateless and safe for concurrent
// use.
type Scanner struct {
	root        string
	maxFileSize int64
	ignoreDirs  map[string]struct{}
	extensions  map[string]struct{}
}

// NewScanner creates a scanner for the given workspace root
func NewScanner(root string) *Scanner {
	return &Scanner{
		root:        root,
		maxFileSize: MaxFileSize,
		ignoreDirs:  DefaultIgnoreDirs,
		extensions:  IndexExtensions,
	}
}

// Root returns the workspace root path
func (s *Scanner) Root() string {
	return s.root
}

// Indexable reports whether a path is a candidate for indexing based on its
// extension and location. It does not stat the file.
func (s *Scanner) Indexable(path string) bool {
	if _, ok := s.extensions[strings.ToLower(filepath.Ext(path))]; !ok {
		return false
	}
	rel, err := filepath.Rel(s.root, path)
	if err != nil {
		rel = path
	}
	for _, part := range strings.Split(filepath.ToSlash(rel), "/") {
		if _, ignored := s.ignoreDirs[part]; ignored {
			return false
		}
	}
	return true
}

// IgnoredDir reports whether a directory name is excluded from scanning
func (s *Scanner) IgnoredDir(name string) bool {
	_, ok := s.ignoreDirs[name]
	return ok
}

// List returns the sorted workspace-relative paths of all indexable files.
// Unreadable entries are skipped, never fatal.
func (s *Scanner) List() ([]string, error) {
	var files []string

	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == s.root {
				return err
			}
			return nil
		}

		if d.IsDir() {
			if path != s.root && (s.IgnoredDir(d.Name()) || strings.HasPrefix(d.Name(), ".")) {
				return filepath.SkipDir
			}
			return nil
		}

		if _, ok := s.extensions[strings.ToLower(filepath.Ext(path))]; !ok {
			return nil
		}

		info, err := d.Info()
		if err != nil || info.Size() > s.maxFileSize {
			return nil
		}

		rel, err := filepath.Rel(s.root, path)
		if err != nil {
			return nil
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("workspace root inaccessible: %w", err)
	}

	sort.Strings(files)
	return files, nil
}

// Fingerprint computes the workspace freshness fingerprint: a SHA-256 hash
// over every indexable file's relative path and mtime. It changes whenever
// any indexable file is added, removed, or modified, without reading file
// contents.
func (s *Scanner) Fingerprint() (string, error) {
	files, err := s.List()
	if err != nil {
		return "", err
	}

	h := sha256.New()
	for _, rel := range files {
		info, err := os.Stat(filepath.Join(s.root, filepath.FromSlash(rel)))
		if err != nil {
			continue // Deleted between List and Stat, next fingerprint differs
		}
		fmt.Fprintf(h, "%s:%d\n", rel, info.ModTime().UnixNano())
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// Abs converts a workspace-relative path back to an absolute one
func (s *Scanner) Abs(rel string) string {
	return filepath.Join(s.root, filepath.FromSlash(rel))
}

// Rel converts an absolute path under the root to workspace-relative form
func (s *Scanner) Rel(abs string) string {
	rel, err := filepath.Rel(s.root, abs)
	if err != nil {
		return abs
	}
	return filepath.ToSlash(rel)
}
