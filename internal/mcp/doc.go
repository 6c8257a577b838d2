// Package mcp implements the Model Context Protocol (MCP) server for semindex.
//
// The MCP server exposes four tools to AI coding assistants:
//   - get_context: Retrieve relevant workspace context with graceful degradation
//   - search_index: Run a raw semantic search against the index
//   - index_status: Check index state, progress, and metrics
//   - rebuild_index: Force a full rebuild of a workspace index
//
// # Protocol Overview
//
// MCP is a JSON-RPC 2.0 protocol over stdio transport:
//
//	Client → Server: {"method": "tools/call", "params": {...}}
//	Server → Client: {"result": {...}}
//
// # Workspace Lifecycle
//
// The first tool call mentioning a workspace path starts a background
// indexing service for it: the workspace is classified, priority files
// are indexed first, and the index is kept fresh through file watching.
// Tool calls never block on indexing; get_context degrades to keyword
// and file-name tiers while the index builds, and the response names the
// tier that answered:
//
//	Response:
//	{
//	  "source": "semantic",
//	  "quality": 1.0,
//	  "result_count": 5,
//	  "content": "## internal/auth/service.go:45-72 ..."
//	}
//
// # Error Handling
//
// The MCP server returns standard JSON-RPC error responses:
//
//	{
//	  "error": {
//	    "code": -32602,
//	    "message": "invalid path",
//	    "data": {
//	      "param": "path",
//	      "reason": "path does not exist"
//	    }
//	  }
//	}
//
// Error codes:
//   - -32602: Invalid params (missing/invalid arguments)
//   - -32603: Internal error (embedder, filesystem, etc.)
//   - -32001: Empty query
//
// # Logging
//
// The server logs to stderr; stdout is reserved for MCP protocol.
package mcp
