package chunker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/semindex-mcp/pkg/types"
)

const screenplay = `Title: THE LONG NIGHT
Credit: Written by

INT. KITCHEN - DAY

JANE stands at the counter, staring at a cold cup of coffee.

JANE
I should have left an hour ago.

EXT. PARKING LOT - CONTINUOUS

Jane crosses to her car, keys in hand.

.MONTAGE - THE DRIVE

Streetlights. Rain. A green light turning yellow.
`

func TestScreenplayChunker_OneChunkPerScene(t *testing.T) {
	dir := t.TempDir()
	src := writeFile(t, dir, "pilot.fountain", screenplay)

	chunks, err := NewScreenplayChunker().Chunk(src, "pilot.fountain")
	require.NoError(t, err)
	require.Len(t, chunks, 4)

	// Title page preamble
	assert.Equal(t, types.ChunkBlock, chunks[0].ChunkType)
	assert.Contains(t, chunks[0].Content, "THE LONG NIGHT")

	// Scenes in order, numbered from 1
	assert.Equal(t, types.ChunkScene, chunks[1].ChunkType)
	assert.Equal(t, "INT. KITCHEN - DAY", chunks[1].Meta[types.MetaSlugline])
	assert.Equal(t, "1", chunks[1].Meta[types.MetaSceneNumber])

	assert.Equal(t, "EXT. PARKING LOT - CONTINUOUS", chunks[2].Name)
	assert.Equal(t, "2", chunks[2].Meta[types.MetaSceneNumber])

	// Fountain forced heading
	assert.Equal(t, ".MONTAGE - THE DRIVE", chunks[3].Name)
	assert.Equal(t, "3", chunks[3].Meta[types.MetaSceneNumber])
}

func TestScreenplayChunker_SceneIsAtomic(t *testing.T) {
	dir := t.TempDir()
	src := writeFile(t, dir, "pilot.fountain", screenplay)

	chunks, err := NewScreenplayChunker().Chunk(src, "pilot.fountain")
	require.NoError(t, err)

	// Every line of a scene lives in exactly one chunk
	assert.Contains(t, chunks[1].Content, "I should have left an hour ago.")
	assert.NotContains(t, chunks[2].Content, "I should have left an hour ago.")
}

func TestScreenplayChunker_NoSluglines(t *testing.T) {
	dir := t.TempDir()
	src := writeFile(t, dir, "notes.fountain", "Just some loose notes.\nNo scenes yet.\n")

	chunks, err := NewScreenplayChunker().Chunk(src, "notes.fountain")
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, types.ChunkBlock, chunks[0].ChunkType)
}
