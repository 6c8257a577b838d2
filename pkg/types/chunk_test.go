package types

import (
	"crypto/sha256"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkKey(t *testing.T) {
	c := Chunk{FilePath: "internal/app/main.go", StartLine: 10, EndLine: 42}
	assert.Equal(t, "internal/app/main.go:10-42", c.Key())
}

func TestComputeContentHash(t *testing.T) {
	c := Chunk{Content: "func main() {}"}
	c.ComputeContentHash()
	assert.Equal(t, sha256.Sum256([]byte("func main() {}")), c.ContentHash)

	other := Chunk{Content: "func main() {}"}
	other.ComputeContentHash()
	assert.Equal(t, c.ContentHash, other.ContentHash)
}

func TestEmbeddingText_IncludesMetadata(t *testing.T) {
	c := Chunk{
		Content:   "func Greet(name string) {\n\tfmt.Println(name)\n}",
		ChunkType: ChunkFunction,
		Name:      "Greet",
		Meta: map[string]string{
			MetaSignature: "func Greet(name string)",
			MetaDocstring: "Greet prints a greeting",
		},
	}

	text := c.EmbeddingText()
	assert.Contains(t, text, "Greet")
	assert.Contains(t, text, "func Greet(name string)")
	assert.Contains(t, text, "Greet prints a greeting")
	assert.Contains(t, text, "fmt.Println")
}

func TestEmbeddingText_BareContent(t *testing.T) {
	c := Chunk{Content: "just some prose"}
	assert.Equal(t, "just some prose", c.EmbeddingText())
}

func TestChunkValidate(t *testing.T) {
	valid := Chunk{
		FilePath:  "README.md",
		StartLine: 1,
		EndLine:   5,
		Content:   "# Title",
		ChunkType: ChunkSection,
	}
	valid.ComputeContentHash()
	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(*Chunk)
	}{
		{"empty content", func(c *Chunk) { c.Content = "" }},
		{"zero start line", func(c *Chunk) { c.StartLine = 0 }},
		{"end before start", func(c *Chunk) { c.EndLine = 0 }},
		{"unknown chunk type", func(c *Chunk) { c.ChunkType = "haiku" }},
		{"missing file path", func(c *Chunk) { c.FilePath = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid
			tt.mutate(&c)
			assert.Error(t, c.Validate())
		})
	}
}

func TestProjectTypeValid(t *testing.T) {
	for _, pt := range []ProjectType{ProjectCode, ProjectProse, ProjectScript, ProjectDocs, ProjectMixed, ProjectUnknown} {
		assert.True(t, pt.Valid(), string(pt))
	}
	assert.False(t, ProjectType("poetry").Valid())
}

func TestSearchResultValidate(t *testing.T) {
	c := Chunk{FilePath: "a.go", StartLine: 1, EndLine: 2, Content: "x", ChunkType: ChunkBlock}
	c.ComputeContentHash()

	ok := SearchResult{Chunk: c, Rank: 1, Score: 0.9}
	assert.NoError(t, ok.Validate())

	badRank := SearchResult{Chunk: c, Rank: 0, Score: 0.9}
	assert.ErrorIs(t, badRank.Validate(), ErrInvalidRank)

	badScore := SearchResult{Chunk: c, Rank: 1, Score: 1.5}
	assert.ErrorIs(t, badScore.Validate(), ErrInvalidScore)
}

func TestContextResultEmpty(t *testing.T) {
	empty := ContextResult{Source: SourceFiles, Quality: QualityFiles}
	assert.True(t, empty.Empty())

	withContent := ContextResult{Source: SourceFiles, Quality: QualityFiles, Content: "- a.go\n"}
	assert.False(t, withContent.Empty())
}
