// Package types provides shared type definitions for the semindex MCP server.
//
// This package defines domain types used across the indexing engine:
// chunks, project types, symbols, and search/context results.
//
// # Core Types
//
// Chunk is a bounded, independently embeddable unit of file content with
// positional and semantic metadata:
//
//	chunk := types.Chunk{
//	    FilePath:  "internal/server/server.go",
//	    StartLine: 12,
//	    EndLine:   48,
//	    Content:   body,
//	    ChunkType: types.ChunkFunction,
//	    Name:      "NewServer",
//	}
//	chunk.ComputeContentHash()
//
// ProjectType classifies a workspace (code, prose, script, docs, mixed,
// unknown) and selects chunking and priority rules.
//
// # Context Results
//
// ContextResult carries a tiered answer to a context query. The Source
// field identifies which degradation tier supplied it (semantic, keyword,
// or file listing) with a matching Quality score, so callers can report
// confidence to their own users:
//
//	result, _ := engine.GetContext(ctx, "parse fountain sluglines", 10)
//	fmt.Printf("source=%s quality=%.1f\n", result.Source, result.Quality)
package types
