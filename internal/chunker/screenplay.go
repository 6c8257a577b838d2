package chunker

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/dshills/semindex-mcp/pkg/types"
)

// sluglineRe matches scene headings: standard sluglines (INT./EXT./EST.)
// and Fountain forced headings (a line starting with a single period).
var sluglineRe = regexp.MustCompile(`^(?:(?:INT|EXT|EST|I/E|INT/EXT|INT\./EXT)[\. ].*|\.[A-Za-z].*)$`)

// ScreenplayChunker splits screenplays purely on scene headings. A scene is
// the natural unit of meaning: each one becomes a single atomic chunk with
// no further splitting and no overlap.
type ScreenplayChunker struct{}

// NewScreenplayChunker creates a scene-aware screenplay chunker
func NewScreenplayChunker() *ScreenplayChunker {
	return &ScreenplayChunker{}
}

// Name returns the strategy name
func (s *ScreenplayChunker) Name() string { return "screenplay" }

// Chunk splits the file into one chunk per scene. Content before the first
// slugline (title page, notes) becomes a single block chunk.
func (s *ScreenplayChunker) Chunk(path, rel string) ([]types.Chunk, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	lines := strings.Split(string(content), "\n")

	var chunks []types.Chunk
	sceneNum := 0
	start := 0
	slugline := ""

	emit := func(end int) {
		body := strings.TrimRight(strings.Join(lines[start:end], "\n"), "\n")
		if strings.TrimSpace(body) == "" {
			return
		}

		chunk := types.Chunk{
			FilePath:  rel,
			StartLine: start + 1,
			EndLine:   end,
			Content:   body,
		}
		if slugline == "" {
			chunk.ChunkType = types.ChunkBlock
		} else {
			sceneNum++
			chunk.ChunkType = types.ChunkScene
			chunk.Name = slugline
			chunk.Meta = map[string]string{
				types.MetaSlugline:    slugline,
				types.MetaSceneNumber: strconv.Itoa(sceneNum),
			}
		}
		chunk.ComputeContentHash()
		chunks = append(chunks, chunk)
	}

	for i, line := range lines {
		if sluglineRe.MatchString(strings.TrimSpace(line)) {
			emit(i)
			start = i
			slugline = strings.TrimSpace(line)
		}
	}
	emit(len(lines))

	return chunks, nil
}
