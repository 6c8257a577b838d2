package chunker

import (
	"fmt"
	"os"
	"strings"

	"github.com/dshills/semindex-mcp/pkg/types"
)

const (
	// GenericWindowLines is the sliding window size in lines
	GenericWindowLines = 40
	// GenericOverlapLines is how many lines adjacent windows share
	GenericOverlapLines = 5
)

// GenericChunker is the fallback strategy: a fixed-size sliding window over
// lines with a small overlap. Any non-empty file yields at least one chunk.
type GenericChunker struct {
	window  int
	overlap int
}

// NewGenericChunker creates a generic chunker with default window sizing
func NewGenericChunker() *GenericChunker {
	return &GenericChunker{
		window:  GenericWindowLines,
		overlap: GenericOverlapLines,
	}
}

// Name returns the strategy name
func (g *GenericChunker) Name() string { return "generic" }

// Chunk splits the file into overlapping line windows
func (g *GenericChunker) Chunk(path, rel string) ([]types.Chunk, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	text := strings.TrimRight(string(content), "\n")
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	lines := strings.Split(text, "\n")
	step := g.window - g.overlap
	if step < 1 {
		step = 1
	}

	var chunks []types.Chunk
	for start := 0; start < len(lines); start += step {
		end := start + g.window
		if end > len(lines) {
			end = len(lines)
		}

		body := strings.Join(lines[start:end], "\n")
		if strings.TrimSpace(body) != "" {
			chunk := types.Chunk{
				FilePath:  rel,
				StartLine: start + 1,
				EndLine:   end,
				Content:   body,
				ChunkType: types.ChunkBlock,
			}
			chunk.ComputeContentHash()
			chunks = append(chunks, chunk)
		}

		if end == len(lines) {
			break
		}
	}

	return chunks, nil
}
