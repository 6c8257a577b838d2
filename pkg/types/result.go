package types

// SearchResult represents a single semantic search result with relevance
// information
type SearchResult struct {
	Chunk Chunk
	Rank  int     // Position in result set (1-based)
	Score float64 // Cosine similarity against the query vector
}

// Validate checks if the search result is valid
func (sr *SearchResult) Validate() error {
	if sr.Rank < 1 {
		return ErrInvalidRank
	}

	if sr.Score < -1 || sr.Score > 1 {
		return ErrInvalidScore
	}

	return sr.Chunk.Validate()
}

// ContextSource identifies which degradation tier produced a context answer
type ContextSource string

const (
	// SourceSemantic is Tier 1: vector search over the index store.
	SourceSemantic ContextSource = "semantic"
	// SourceKeyword is Tier 2: keyword search over workspace files.
	SourceKeyword ContextSource = "keyword"
	// SourceFiles is Tier 3: a listing of files whose names match the query.
	SourceFiles ContextSource = "files"
)

// Quality scores reported per tier
const (
	QualitySemantic = 1.0
	QualityKeyword  = 0.6
	QualityFiles    = 0.3
)

// ContextResult is the answer to a context query. It is always annotated
// with the tier that supplied it so callers can communicate confidence.
// An empty Results slice is a valid answer, never an error.
type ContextResult struct {
	Source  ContextSource
	Quality float64
	Results []SearchResult
	Content string // Formatted context with file:line references
}

// Empty reports whether the result carries no usable context
func (cr *ContextResult) Empty() bool {
	return len(cr.Results) == 0 && cr.Content == ""
}
