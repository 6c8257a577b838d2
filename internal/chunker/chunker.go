package chunker

import (
	"errors"
	"path/filepath"
	"strings"

	"github.com/dshills/semindex-mcp/internal/classifier"
	"github.com/dshills/semindex-mcp/pkg/types"
)

// ErrParseFailure indicates a strategy could not parse its input. The
// registry treats it as file-local and retries with the generic strategy.
var ErrParseFailure = errors.New("parse failure")

// Strategy produces an ordered sequence of chunks for a single file.
// path is the absolute location on disk; rel is the workspace-relative
// path recorded in each chunk.
type Strategy interface {
	Name() string
	Chunk(path, rel string) ([]types.Chunk, error)
}

// Registry dispatches files to the correct chunking strategy based on
// extension and classified content type.
type Registry struct {
	code       *CodeChunker
	prose      *ProseChunker
	screenplay *ScreenplayChunker
	generic    *GenericChunker
}

// NewRegistry creates a registry owning one instance of each strategy
func NewRegistry() *Registry {
	return &Registry{
		code:       NewCodeChunker(),
		prose:      NewProseChunker(),
		screenplay: NewScreenplayChunker(),
		generic:    NewGenericChunker(),
	}
}

// ForFile selects the strategy for a file: explicit extension match first
// (code, screenplay), then the classified content type, then generic. For
// mixed workspaces the file is re-classified individually rather than
// trusting the workspace-level type.
func (r *Registry) ForFile(path string, projectType types.ProjectType) Strategy {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".go":
		return r.code
	case ".fountain", ".fdx", ".highland":
		return r.screenplay
	}

	fileType := projectType
	if projectType == types.ProjectMixed || projectType == types.ProjectUnknown {
		fileType = classifier.DetectFileType(path)
	}

	switch fileType {
	case types.ProjectProse, types.ProjectDocs:
		// Both use section-aware splitting; docs just tend to have more
		// headings.
		return r.prose
	case types.ProjectScript:
		return r.screenplay
	default:
		return r.generic
	}
}

// ChunkFile chunks one file with the selected strategy, falling back to
// the generic strategy on any strategy failure. Failures are isolated to
// the file: ChunkFile only returns an error when even generic chunking
// cannot read the file.
func (r *Registry) ChunkFile(path, rel string, projectType types.ProjectType) ([]types.Chunk, error) {
	strategy := r.ForFile(path, projectType)

	chunks, err := strategy.Chunk(path, rel)
	if err != nil && strategy != Strategy(r.generic) {
		chunks, err = r.generic.Chunk(path, rel)
	}
	if err != nil {
		return nil, err
	}

	return dedupe(chunks), nil
}

// dedupe collapses chunks sharing the same (path, start, end) identity,
// keeping the last occurrence. Strategies should not produce duplicates,
// but the store's uniqueness invariant is enforced here too.
func dedupe(chunks []types.Chunk) []types.Chunk {
	if len(chunks) < 2 {
		return chunks
	}

	seen := make(map[string]int, len(chunks))
	out := chunks[:0]
	for _, c := range chunks {
		key := c.Key()
		if i, dup := seen[key]; dup {
			out[i] = c
			continue
		}
		seen[key] = len(out)
		out = append(out, c)
	}
	return out
}

// wordCount counts whitespace-separated words
func wordCount(s string) int {
	return len(strings.Fields(s))
}
