package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dshills/semindex-mcp/internal/query"
)

// MCP error codes
const (
	ErrorCodeInvalidParams = -32602 // Invalid method parameters
	ErrorCodeInternalError = -32603 // Internal JSON-RPC error
	ErrorCodeEmptyQuery    = -32001 // Query parameter is empty
)

// handleGetContext handles the get_context tool invocation
func (s *Server) handleGetContext(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	path, queryText, errResp := pathAndQuery(args)
	if errResp != nil {
		return nil, errResp
	}

	maxResults := getIntDefault(args, "max_results", query.DefaultMaxResults)
	if maxResults < 1 || maxResults > 50 {
		return nil, newMCPError(ErrorCodeInvalidParams, "max_results must be between 1 and 50", map[string]interface{}{
			"param": "max_results",
			"value": maxResults,
		})
	}

	h, err := s.workspace(ctx, path)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to open workspace", map[string]interface{}{
			"error": err.Error(),
		})
	}

	result, err := h.engine.GetContext(ctx, queryText, maxResults)
	if err != nil {
		if errors.Is(err, query.ErrEmptyQuery) {
			return nil, newMCPError(ErrorCodeEmptyQuery, "query cannot be empty", nil)
		}
		return nil, newMCPError(ErrorCodeInternalError, "context retrieval failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"source":       string(result.Source),
		"quality":      result.Quality,
		"result_count": len(result.Results),
		"content":      result.Content,
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleSearchIndex handles the search_index tool invocation
func (s *Server) handleSearchIndex(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	path, queryText, errResp := pathAndQuery(args)
	if errResp != nil {
		return nil, errResp
	}

	limit := getIntDefault(args, "limit", 10)
	if limit < 1 || limit > 100 {
		return nil, newMCPError(ErrorCodeInvalidParams, "limit must be between 1 and 100", map[string]interface{}{
			"param": "limit",
			"value": limit,
		})
	}
	threshold := getFloatDefault(args, "threshold", 0.3)
	if threshold < 0 || threshold > 1 {
		return nil, newMCPError(ErrorCodeInvalidParams, "threshold must be between 0.0 and 1.0", map[string]interface{}{
			"param": "threshold",
			"value": threshold,
		})
	}

	h, err := s.workspace(ctx, path)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to open workspace", map[string]interface{}{
			"error": err.Error(),
		})
	}

	results, err := h.svc.Query(ctx, queryText, limit, threshold)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "search failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	items := make([]map[string]interface{}, 0, len(results))
	for _, r := range results {
		items = append(items, map[string]interface{}{
			"file":       r.Chunk.FilePath,
			"start_line": r.Chunk.StartLine,
			"end_line":   r.Chunk.EndLine,
			"chunk_type": string(r.Chunk.ChunkType),
			"name":       r.Chunk.Name,
			"rank":       r.Rank,
			"score":      r.Score,
			"content":    r.Chunk.Content,
		})
	}
	status := h.svc.Status()
	response := map[string]interface{}{
		"queryable": status.Queryable(),
		"state":     string(status.State),
		"results":   items,
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleIndexStatus handles the index_status tool invocation
func (s *Server) handleIndexStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	path, errResp := requiredPath(args)
	if errResp != nil {
		return nil, errResp
	}

	h, err := s.workspace(ctx, path)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to open workspace", map[string]interface{}{
			"error": err.Error(),
		})
	}

	status := h.svc.Status()
	data, err := json.MarshalIndent(status, "", "  ")
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to encode status", nil)
	}
	return mcp.NewToolResultText(string(data)), nil
}

// handleRebuildIndex handles the rebuild_index tool invocation
func (s *Server) handleRebuildIndex(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	path, errResp := requiredPath(args)
	if errResp != nil {
		return nil, errResp
	}

	h, err := s.workspace(ctx, path)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to open workspace", map[string]interface{}{
			"error": err.Error(),
		})
	}

	h.svc.Rebuild()

	response := map[string]interface{}{
		"rebuilding": true,
		"path":       path,
		"state":      string(h.svc.Status().State),
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// Helper functions

// requiredPath extracts and validates the path argument
func requiredPath(args map[string]interface{}) (string, error) {
	path, ok := args["path"].(string)
	if !ok || path == "" {
		return "", newMCPError(ErrorCodeInvalidParams, "path parameter is required", map[string]interface{}{
			"param":  "path",
			"reason": "missing or empty",
		})
	}
	if err := validatePath(path); err != nil {
		return "", newMCPError(ErrorCodeInvalidParams, "invalid path", map[string]interface{}{
			"param":  "path",
			"reason": err.Error(),
		})
	}
	return path, nil
}

// pathAndQuery extracts the path and query arguments shared by the
// search-style tools
func pathAndQuery(args map[string]interface{}) (string, string, error) {
	path, err := requiredPath(args)
	if err != nil {
		return "", "", err
	}
	queryText, ok := args["query"].(string)
	if !ok || queryText == "" {
		return "", "", newMCPError(ErrorCodeEmptyQuery, "query parameter is required and cannot be empty", map[string]interface{}{
			"param":  "query",
			"reason": "missing or empty",
		})
	}
	return path, queryText, nil
}

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// validatePath checks if a path is an absolute, readable directory
func validatePath(path string) error {
	if path == "" {
		return ErrPathRequired
	}
	if !filepath.IsAbs(path) {
		return ErrPathNotAbsolute
	}

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return ErrPathNotFound
	}
	if err != nil {
		return ErrPathNotReadable
	}
	if !info.IsDir() {
		return ErrNotDirectory
	}

	f, err := os.Open(path)
	if err != nil {
		return ErrPathNotReadable
	}
	_ = f.Close()

	return nil
}

// formatJSON formats a map as indented JSON
func formatJSON(data map[string]interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// getIntDefault extracts an integer parameter with a default value
func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	if val, ok := args[key].(float64); ok {
		return int(val)
	}
	if val, ok := args[key].(int); ok {
		return val
	}
	return defaultValue
}

// getFloatDefault extracts a float parameter with a default value
func getFloatDefault(args map[string]interface{}, key string, defaultValue float64) float64 {
	if val, ok := args[key].(float64); ok {
		return val
	}
	return defaultValue
}

// Validation helpers

var (
	ErrPathRequired    = errors.New("path is required")
	ErrPathNotAbsolute = errors.New("path must be absolute")
	ErrPathNotFound    = errors.New("path does not exist")
	ErrPathNotReadable = errors.New("path is not readable")
	ErrNotDirectory    = errors.New("path is not a directory")
)
