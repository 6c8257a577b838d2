package types

import (
	"crypto/sha256"
	"errors"
	"fmt"
)

// ChunkType represents the kind of content a chunk carries
type ChunkType string

const (
	ChunkFunction     ChunkType = "function"
	ChunkMethod       ChunkType = "method"
	ChunkTypeDecl     ChunkType = "type"
	ChunkClassSummary ChunkType = "class_summary"
	ChunkModule       ChunkType = "module"
	ChunkSection      ChunkType = "section"
	ChunkParagraph    ChunkType = "paragraph"
	ChunkScene        ChunkType = "scene"
	ChunkBlock        ChunkType = "block"
)

// Well-known Meta keys written by the chunking strategies
const (
	MetaSignature    = "signature"
	MetaDocstring    = "docstring"
	MetaDecorators   = "decorators"
	MetaSectionTitle = "section_title"
	MetaWordCount    = "word_count"
	MetaSlugline     = "slugline"
	MetaSceneNumber  = "scene_number"
)

// Chunk is an immutable unit of indexed content. It is created by a chunking
// strategy during (re)indexing and replaced wholesale when its source file
// changes or is deleted.
type Chunk struct {
	// Location
	FilePath  string // Relative to workspace root
	StartLine int    // 1-based, inclusive
	EndLine   int    // 1-based, inclusive

	// Content
	Content     string
	ContentHash [32]byte // SHA-256 of Content, used for change detection

	// Metadata
	ChunkType ChunkType
	Name      string            // Function/class/section name if applicable
	Meta      map[string]string // Strategy-specific metadata
}

// Key returns the chunk's identity within a workspace index. The store
// guarantees at most one chunk per key after an update completes.
func (c *Chunk) Key() string {
	return fmt.Sprintf("%s:%d-%d", c.FilePath, c.StartLine, c.EndLine)
}

// ComputeContentHash computes the SHA-256 hash of the chunk content
func (c *Chunk) ComputeContentHash() {
	c.ContentHash = sha256.Sum256([]byte(c.Content))
}

// EmbeddingText returns the text to embed for this chunk. Name, signature
// and docstring are prepended when present so short bodies still carry
// their semantic identity into the vector.
func (c *Chunk) EmbeddingText() string {
	text := ""
	if c.Name != "" {
		text += c.Name + "\n"
	}
	if sig := c.Meta[MetaSignature]; sig != "" {
		text += sig + "\n"
	}
	if doc := c.Meta[MetaDocstring]; doc != "" {
		text += doc + "\n"
	}
	return text + c.Content
}

// ValidateContent checks if the chunk content is valid
func (c *Chunk) ValidateContent() error {
	if c.Content == "" {
		return errors.New("chunk content cannot be empty")
	}

	if c.StartLine <= 0 || c.EndLine <= 0 {
		return errors.New("line numbers must be positive")
	}

	if c.StartLine > c.EndLine {
		return errors.New("start line must be before or equal to end line")
	}

	return nil
}

// ValidateChunkType checks if the chunk type is valid
func (c *Chunk) ValidateChunkType() error {
	switch c.ChunkType {
	case ChunkFunction, ChunkMethod, ChunkTypeDecl, ChunkClassSummary,
		ChunkModule, ChunkSection, ChunkParagraph, ChunkScene, ChunkBlock:
		return nil
	default:
		return errors.New("invalid chunk type")
	}
}

// Validate performs comprehensive validation of the chunk
func (c *Chunk) Validate() error {
	if err := c.ValidateContent(); err != nil {
		return err
	}

	if err := c.ValidateChunkType(); err != nil {
		return err
	}

	if c.FilePath == "" {
		return errors.New("file path is required")
	}

	var zeroHash [32]byte
	if c.ContentHash == zeroHash {
		return errors.New("content hash must be computed")
	}

	return nil
}
