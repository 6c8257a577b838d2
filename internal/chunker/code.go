package chunker

import (
	"fmt"
	"os"
	"strings"

	"github.com/dshills/semindex-mcp/internal/parser"
	"github.com/dshills/semindex-mcp/pkg/types"
)

const (
	// TypeSummaryCeiling is the line count above which a type declaration
	// is summarized (header + doc + method signatures) instead of being
	// embedded verbatim, bounding embedding cost for big types.
	TypeSummaryCeiling = 150

	// MinChunkLines is the smallest span emitted as its own chunk.
	// Shorter symbols are merged into a trailing module chunk.
	MinChunkLines = 3
)

// CodeChunker is the syntax-aware strategy for Go sources: one chunk per
// top-level function, method and type declaration, doc comments included.
type CodeChunker struct {
	parser *parser.Parser
}

// NewCodeChunker creates a syntax-aware code chunker
func NewCodeChunker() *CodeChunker {
	return &CodeChunker{parser: parser.New()}
}

// Name returns the strategy name
func (c *CodeChunker) Name() string { return "code" }

// Chunk parses the file and emits one chunk per top-level symbol. Parse
// failures that produce no symbols return ErrParseFailure so the registry
// can fall back to generic chunking.
func (c *CodeChunker) Chunk(path, rel string) ([]types.Chunk, error) {
	result, err := c.parser.ParseFile(path)
	if err != nil {
		return nil, err
	}

	if result.HasErrors() && len(result.Symbols) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrParseFailure, result.Errors[0].Message)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	lines := strings.Split(string(content), "\n")

	var chunks []types.Chunk
	var shortSyms []types.Symbol

	for i := range result.Symbols {
		sym := &result.Symbols[i]
		if sym.Start.Line <= 0 || sym.Start.Line > len(lines) {
			continue
		}

		if sym.End.Line-sym.Start.Line+1 < MinChunkLines {
			shortSyms = append(shortSyms, *sym)
			continue
		}

		if isTypeKind(sym.Kind) && sym.End.Line-sym.Start.Line+1 > TypeSummaryCeiling {
			chunks = append(chunks, c.summarizeType(sym, result.Symbols, rel))
			continue
		}

		chunks = append(chunks, c.symbolChunk(sym, lines, rel))
	}

	if merged, ok := c.mergeShort(shortSyms, lines, rel); ok {
		chunks = append(chunks, merged)
	}

	// A file with no chunkable symbols (imports only, const blocks) still
	// gets a single module chunk.
	if len(chunks) == 0 {
		if module, ok := c.moduleChunk(result.PackageName, lines, rel); ok {
			chunks = append(chunks, module)
		}
	}

	return chunks, nil
}

func (c *CodeChunker) symbolChunk(sym *types.Symbol, lines []string, rel string) types.Chunk {
	startIdx := sym.Start.Line - 1
	endIdx := sym.End.Line
	if endIdx > len(lines) {
		endIdx = len(lines)
	}

	chunk := types.Chunk{
		FilePath:  rel,
		StartLine: sym.Start.Line,
		EndLine:   endIdx,
		Content:   strings.Join(lines[startIdx:endIdx], "\n"),
		ChunkType: kindToChunkType(sym.Kind),
		Name:      sym.Name,
		Meta:      symbolMeta(sym),
	}
	chunk.ComputeContentHash()
	return chunk
}

// summarizeType emits a signature-only chunk for an oversized type: the
// declaration header, its doc comment, and the signatures of the methods
// declared on it in the same file.
func (c *CodeChunker) summarizeType(sym *types.Symbol, all []types.Symbol, rel string) types.Chunk {
	var b strings.Builder
	if sym.DocComment != "" {
		b.WriteString(sym.DocComment)
		b.WriteString("\n")
	}
	b.WriteString(sym.Signature)
	b.WriteString("\n")

	for i := range all {
		m := &all[i]
		if m.Kind == types.KindMethod && m.Receiver == sym.Name {
			b.WriteString("\t")
			b.WriteString(m.Signature)
			b.WriteString("\n")
		}
	}

	chunk := types.Chunk{
		FilePath:  rel,
		StartLine: sym.Start.Line,
		EndLine:   sym.End.Line,
		Content:   b.String(),
		ChunkType: types.ChunkClassSummary,
		Name:      sym.Name,
		Meta:      symbolMeta(sym),
	}
	chunk.ComputeContentHash()
	return chunk
}

// mergeShort folds symbols below the minimum line threshold into a single
// module chunk spanning their first to last line.
func (c *CodeChunker) mergeShort(syms []types.Symbol, lines []string, rel string) (types.Chunk, bool) {
	if len(syms) == 0 {
		return types.Chunk{}, false
	}

	first, last := syms[0].Start.Line, syms[0].End.Line
	var parts []string
	for i := range syms {
		s := &syms[i]
		if s.Start.Line < first {
			first = s.Start.Line
		}
		if s.End.Line > last {
			last = s.End.Line
		}
		endIdx := s.End.Line
		if endIdx > len(lines) {
			endIdx = len(lines)
		}
		parts = append(parts, strings.Join(lines[s.Start.Line-1:endIdx], "\n"))
	}

	chunk := types.Chunk{
		FilePath:  rel,
		StartLine: first,
		EndLine:   last,
		Content:   strings.Join(parts, "\n\n"),
		ChunkType: types.ChunkModule,
	}
	chunk.ComputeContentHash()
	return chunk, true
}

func (c *CodeChunker) moduleChunk(pkg string, lines []string, rel string) (types.Chunk, bool) {
	body := strings.TrimRight(strings.Join(lines, "\n"), "\n")
	if strings.TrimSpace(body) == "" {
		return types.Chunk{}, false
	}

	chunk := types.Chunk{
		FilePath:  rel,
		StartLine: 1,
		EndLine:   len(lines),
		Content:   body,
		ChunkType: types.ChunkModule,
		Name:      pkg,
	}
	chunk.ComputeContentHash()
	return chunk, true
}

func symbolMeta(sym *types.Symbol) map[string]string {
	meta := map[string]string{
		types.MetaSignature: sym.Signature,
	}
	if sym.DocComment != "" {
		meta[types.MetaDocstring] = sym.DocComment
	}
	if sym.Directives != "" {
		meta[types.MetaDecorators] = sym.Directives
	}
	return meta
}

func isTypeKind(kind types.SymbolKind) bool {
	switch kind {
	case types.KindStruct, types.KindInterface, types.KindType:
		return true
	default:
		return false
	}
}

func kindToChunkType(kind types.SymbolKind) types.ChunkType {
	switch kind {
	case types.KindFunction:
		return types.ChunkFunction
	case types.KindMethod:
		return types.ChunkMethod
	case types.KindStruct, types.KindInterface, types.KindType:
		return types.ChunkTypeDecl
	default:
		return types.ChunkModule
	}
}
