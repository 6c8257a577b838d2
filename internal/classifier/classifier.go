// Package classifier detects workspace and per-file content types from
// marker files, extensions, and lightweight content sniffing.
//
// Classification is side-effect free and deterministic. It never fails:
// the worst case is ProjectUnknown, which routes files to the generic
// chunking strategy.
package classifier

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/dshills/semindex-mcp/pkg/types"
)

// sniffLimit caps how much file content detection reads
const sniffLimit = 2048

// Code extensions always classify as code regardless of workspace type
var codeExtensions = map[string]struct{}{
	".go": {}, ".py": {}, ".js": {}, ".ts": {}, ".jsx": {}, ".tsx": {},
	".rs": {}, ".rb": {}, ".java": {}, ".kt": {}, ".swift": {},
	".c": {}, ".cpp": {}, ".h": {}, ".hpp": {}, ".cs": {},
}

// Screenplay extensions always classify as script
var scriptExtensions = map[string]struct{}{
	".fountain": {}, ".fdx": {}, ".highland": {},
}

// docsExtensions are structured-documentation formats
var docsExtensions = map[string]struct{}{
	".rst": {}, ".mdx": {}, ".adoc": {},
}

// Workspace marker rules, checked in order. A marker from more than one
// category yields ProjectMixed.
var (
	codeMarkers   = []string{"go.mod", "package.json", "pyproject.toml", "setup.py", "Cargo.toml", "Makefile", "pom.xml", "build.gradle"}
	proseMarkers  = []string{"manuscript", "chapters", "outline.md", "characters.md"}
	scriptGlobs   = []string{"*.fountain", "*.fdx", "*.highland"}
	docsMarkers   = []string{"mkdocs.yml", "mkdocs.yaml", "docs/conf.py", "docs/index.rst", "docs/index.md"}
	sluglineRe    = regexp.MustCompile(`(?m)^(INT|EXT|EST|INT/EXT|INT\.?/EXT)[\. ].*$`)
	fencedCodeRe  = regexp.MustCompile("(?m)^```")
	atxHeadingRe  = regexp.MustCompile(`(?m)^#{1,6}\s+\S`)
)

// DetectProjectType determines the workspace-level project type from marker
// files at the root. Markers from more than one category yield ProjectMixed;
// no markers at all yield ProjectUnknown.
func DetectProjectType(root string) types.ProjectType {
	var matched []types.ProjectType

	if hasAnyFile(root, codeMarkers) {
		matched = append(matched, types.ProjectCode)
	}
	if hasAnyFile(root, proseMarkers) {
		matched = append(matched, types.ProjectProse)
	}
	if hasAnyGlob(root, scriptGlobs) {
		matched = append(matched, types.ProjectScript)
	}
	if hasAnyFile(root, docsMarkers) {
		matched = append(matched, types.ProjectDocs)
	}

	switch len(matched) {
	case 0:
		return types.ProjectUnknown
	case 1:
		return matched[0]
	default:
		return types.ProjectMixed
	}
}

// DetectFileType classifies a single file. Extension tables are checked
// first; ambiguous text extensions fall back to content sniffing over at
// most the first 2KB. Never fails; unreadable or unrecognized files are
// ProjectUnknown.
func DetectFileType(path string) types.ProjectType {
	ext := strings.ToLower(filepath.Ext(path))

	if _, ok := codeExtensions[ext]; ok {
		return types.ProjectCode
	}
	if _, ok := scriptExtensions[ext]; ok {
		return types.ProjectScript
	}
	if _, ok := docsExtensions[ext]; ok {
		return types.ProjectDocs
	}

	switch ext {
	case ".md", ".txt", ".rtf":
		return sniffTextType(path)
	case ".yaml", ".yml", ".toml", ".json":
		return types.ProjectCode
	default:
		return types.ProjectUnknown
	}
}

// sniffTextType inspects a content prefix to separate screenplay, docs,
// and prose. Scene headings imply script; fenced code blocks or a heading
// hierarchy imply docs; anything else is prose.
func sniffTextType(path string) types.ProjectType {
	prefix, err := readPrefix(path, sniffLimit)
	if err != nil {
		return types.ProjectProse
	}

	if sluglineRe.MatchString(prefix) {
		return types.ProjectScript
	}

	if fencedCodeRe.MatchString(prefix) {
		return types.ProjectDocs
	}

	// Two or more heading levels suggest structured documentation rather
	// than a manuscript with a single chapter title.
	if len(atxHeadingRe.FindAllString(prefix, 3)) >= 2 {
		return types.ProjectDocs
	}

	return types.ProjectProse
}

func readPrefix(path string, n int) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()

	buf := make([]byte, n)
	read, err := f.Read(buf)
	if read == 0 && err != nil {
		return "", err
	}
	return string(buf[:read]), nil
}

func hasAnyFile(root string, names []string) bool {
	for _, name := range names {
		if _, err := os.Stat(filepath.Join(root, filepath.FromSlash(name))); err == nil {
			return true
		}
	}
	return false
}

func hasAnyGlob(root string, globs []string) bool {
	for _, g := range globs {
		matches, err := filepath.Glob(filepath.Join(root, g))
		if err == nil && len(matches) > 0 {
			return true
		}
	}
	return false
}
