package query

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/dshills/semindex-mcp/internal/service"
	"github.com/dshills/semindex-mcp/internal/workspace"
	"github.com/dshills/semindex-mcp/pkg/types"
)

const (
	// DefaultMaxResults bounds context answers per tier
	DefaultMaxResults = 10
	// keyword matches per file keep the grep tier from flooding the answer
	maxMatchesPerFile = 5
	// minKeywordLen filters noise words before they reach the grep tier
	minKeywordLen = 3
)

// ErrEmptyQuery is returned for a blank query string. It is the only
// error GetContext produces; finding nothing is an answer, not a
// failure.
var ErrEmptyQuery = errors.New("query cannot be empty")

var stopWords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "are": {}, "but": {}, "not": {},
	"you": {}, "all": {}, "can": {}, "had": {}, "her": {}, "was": {},
	"one": {}, "our": {}, "out": {}, "has": {}, "him": {}, "his": {},
	"how": {}, "its": {}, "may": {}, "new": {}, "now": {}, "old": {},
	"see": {}, "two": {}, "way": {}, "who": {}, "did": {}, "get": {},
	"use": {}, "that": {}, "this": {}, "with": {}, "from": {},
	"what": {}, "when": {}, "where": {}, "which": {}, "does": {},
	"into": {}, "have": {}, "been": {}, "were": {}, "they": {},
	"will": {}, "would": {}, "could": {}, "should": {}, "about": {},
	"find": {}, "show": {}, "list": {},
}

// Engine answers context queries with graceful degradation: semantic
// search when the index can serve it, keyword grep when it cannot, and
// a file-name listing as the floor.
type Engine struct {
	svc     *service.Service
	scanner *workspace.Scanner
}

// New creates an engine over an indexing service
func New(svc *service.Service) *Engine {
	return &Engine{
		svc:     svc,
		scanner: workspace.NewScanner(svc.Root()),
	}
}

// GetContext answers a natural-language query about the workspace. The
// result names the tier that produced it and its quality. An empty
// result set is a valid answer.
func (e *Engine) GetContext(ctx context.Context, text string, maxResults int) (*types.ContextResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyQuery
	}
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}

	if res := e.semanticTier(ctx, text, maxResults); res != nil {
		return res, nil
	}

	keywords := extractKeywords(text)

	if res := e.keywordTier(ctx, keywords, maxResults); res != nil {
		return res, nil
	}

	return e.fileTier(keywords, maxResults), nil
}

// semanticTier returns nil when the index cannot serve the query or
// finds nothing, letting the caller fall through.
func (e *Engine) semanticTier(ctx context.Context, text string, maxResults int) *types.ContextResult {
	results, err := e.svc.Query(ctx, text, maxResults, service.DefaultThreshold)
	if err != nil {
		log.Printf("query: semantic tier unavailable: %v", err)
		return nil
	}
	if len(results) == 0 {
		return nil
	}

	var b strings.Builder
	for _, r := range results {
		fmt.Fprintf(&b, "## %s:%d-%d", r.Chunk.FilePath, r.Chunk.StartLine, r.Chunk.EndLine)
		if r.Chunk.Name != "" {
			fmt.Fprintf(&b, " (%s %s)", r.Chunk.ChunkType, r.Chunk.Name)
		}
		b.WriteString("\n\n")
		b.WriteString(r.Chunk.Content)
		b.WriteString("\n\n")
	}

	return &types.ContextResult{
		Source:  types.SourceSemantic,
		Quality: types.QualitySemantic,
		Results: results,
		Content: strings.TrimRight(b.String(), "\n") + "\n",
	}
}

// keywordTier greps workspace files for extracted keywords. Returns nil
// when no keyword matches anything.
func (e *Engine) keywordTier(ctx context.Context, keywords []string, maxResults int) *types.ContextResult {
	if len(keywords) == 0 {
		return nil
	}

	files, err := e.scanner.List()
	if err != nil {
		return nil
	}

	var b strings.Builder
	var results []types.SearchResult
	for _, rel := range files {
		if ctx.Err() != nil {
			return nil
		}
		if len(results) >= maxResults {
			break
		}
		matches := grepFile(e.scanner.Abs(rel), keywords)
		if len(matches) == 0 {
			continue
		}

		content := strings.Join(matchLines(matches), "\n")
		chunk := types.Chunk{
			FilePath:  rel,
			StartLine: matches[0].line,
			EndLine:   matches[len(matches)-1].line,
			Content:   content,
			ChunkType: types.ChunkBlock,
		}
		chunk.ComputeContentHash()
		results = append(results, types.SearchResult{
			Chunk: chunk,
			Rank:  len(results) + 1,
			Score: types.QualityKeyword,
		})

		fmt.Fprintf(&b, "## %s\n\n", rel)
		for _, m := range matches {
			fmt.Fprintf(&b, "%d: %s\n", m.line, m.text)
		}
		b.WriteString("\n")
	}

	if len(results) == 0 {
		return nil
	}
	return &types.ContextResult{
		Source:  types.SourceKeyword,
		Quality: types.QualityKeyword,
		Results: results,
		Content: strings.TrimRight(b.String(), "\n") + "\n",
	}
}

// fileTier lists files whose names contain any keyword. It may be
// empty; that is still the answer.
func (e *Engine) fileTier(keywords []string, maxResults int) *types.ContextResult {
	res := &types.ContextResult{
		Source:  types.SourceFiles,
		Quality: types.QualityFiles,
	}

	files, err := e.scanner.List()
	if err != nil {
		return res
	}

	var names []string
	for _, rel := range files {
		lower := strings.ToLower(rel)
		for _, kw := range keywords {
			if strings.Contains(lower, kw) {
				names = append(names, rel)
				break
			}
		}
		if len(names) >= maxResults {
			break
		}
	}

	if len(names) == 0 {
		return res
	}

	var b strings.Builder
	b.WriteString("Files possibly relevant to the query:\n")
	for i, name := range names {
		fmt.Fprintf(&b, "- %s\n", name)
		res.Results = append(res.Results, types.SearchResult{
			Chunk: types.Chunk{
				FilePath:  name,
				StartLine: 1,
				EndLine:   1,
				Content:   name,
				ChunkType: types.ChunkBlock,
			},
			Rank:  i + 1,
			Score: types.QualityFiles,
		})
	}
	res.Content = b.String()
	return res
}

// extractKeywords lowercases the query and strips stop words and short
// tokens
func extractKeywords(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9') && r != '_'
	})

	var keywords []string
	seen := make(map[string]struct{})
	for _, f := range fields {
		if len(f) < minKeywordLen {
			continue
		}
		if _, stop := stopWords[f]; stop {
			continue
		}
		if _, dup := seen[f]; dup {
			continue
		}
		seen[f] = struct{}{}
		keywords = append(keywords, f)
	}
	return keywords
}

type match struct {
	line int
	text string
}

func matchLines(matches []match) []string {
	out := make([]string, len(matches))
	for i, m := range matches {
		out[i] = m.text
	}
	return out
}

// grepFile returns up to maxMatchesPerFile lines containing any keyword,
// case-insensitive
func grepFile(path string, keywords []string) []match {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}

	var matches []match
	for i, line := range strings.Split(string(data), "\n") {
		lower := strings.ToLower(line)
		for _, kw := range keywords {
			if strings.Contains(lower, kw) {
				matches = append(matches, match{line: i + 1, text: strings.TrimSpace(line)})
				break
			}
		}
		if len(matches) >= maxMatchesPerFile {
			break
		}
	}
	return matches
}
