// Package chunker divides workspace files into semantically meaningful
// chunks for embedding and search.
//
// A Registry dispatches each file to one of four strategies:
//
//   - CodeChunker: syntax-aware chunking of Go sources. One chunk per
//     top-level function, method, or type, with doc comments attached.
//     Oversized type declarations become signature-only summaries.
//   - ProseChunker: heading-delimited sections with paragraph accumulation
//     up to a word ceiling and one-paragraph overlap between chunks.
//   - ScreenplayChunker: one atomic chunk per scene, split on sluglines.
//   - GenericChunker: fixed-size line windows with overlap, used for
//     unrecognized content and as fallback when a strategy fails.
//
// # Basic Usage
//
//	r := chunker.NewRegistry()
//	chunks, err := r.ChunkFile("/ws/main.go", "main.go", types.ProjectCode)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// # Dispatch Rules
//
// Strategy selection is deterministic: explicit extension match first
// (.go, .fountain, .fdx, .highland), then the classified content type,
// then generic. Mixed workspaces re-classify per file.
//
// # Failure Isolation
//
// A strategy failure (for example a syntax error that yields no symbols)
// falls back to generic chunking for that file only. Re-running chunking
// on an unchanged file always produces an identical chunk set.
package chunker
