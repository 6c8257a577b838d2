package mcp

import (
	"context"
	"fmt"
	"sync"

	"github.com/mark3labs/mcp-go/server"

	"github.com/dshills/semindex-mcp/internal/embedder"
	"github.com/dshills/semindex-mcp/internal/query"
	"github.com/dshills/semindex-mcp/internal/service"
)

const (
	// ServerName is the MCP server name
	ServerName = "semindex-mcp"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
)

// workspaceHandle bundles the per-workspace service with its query engine
type workspaceHandle struct {
	svc    *service.Service
	engine *query.Engine
}

// Server wraps the MCP server with application dependencies. One
// indexing service runs per workspace path, created lazily on first
// use.
type Server struct {
	mcp *server.MCPServer
	emb embedder.Embedder

	mu         sync.Mutex
	workspaces map[string]*workspaceHandle
}

// NewServer creates a new MCP server instance
func NewServer() (*Server, error) {
	emb, err := embedder.NewFromEnv()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}

	mcpServer := server.NewMCPServer(
		ServerName,
		ServerVersion,
	)

	s := &Server{
		mcp:        mcpServer,
		emb:        emb,
		workspaces: make(map[string]*workspaceHandle),
	}

	s.registerTools()

	return s, nil
}

// Serve starts the MCP server on stdio and blocks until shutdown
func (s *Server) Serve(ctx context.Context) error {
	defer s.Close()
	return server.ServeStdio(s.mcp)
}

// Close stops every workspace service and releases the embedder
func (s *Server) Close() {
	s.mu.Lock()
	handles := make([]*workspaceHandle, 0, len(s.workspaces))
	for _, h := range s.workspaces {
		handles = append(handles, h)
	}
	s.workspaces = make(map[string]*workspaceHandle)
	s.mu.Unlock()

	for _, h := range handles {
		h.svc.Stop()
	}
	_ = s.emb.Close()
}

// workspace returns the handle for a path, starting an indexing
// service on first access.
func (s *Server) workspace(ctx context.Context, path string) (*workspaceHandle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if h, ok := s.workspaces[path]; ok {
		return h, nil
	}

	svc := service.New(path, s.emb)
	if err := svc.Start(ctx); err != nil {
		return nil, fmt.Errorf("failed to start indexing for %s: %w", path, err)
	}

	h := &workspaceHandle{
		svc:    svc,
		engine: query.New(svc),
	}
	s.workspaces[path] = h
	return h, nil
}

// registerTools registers all MCP tools
func (s *Server) registerTools() {
	s.mcp.AddTool(getContextTool(), s.handleGetContext)
	s.mcp.AddTool(searchIndexTool(), s.handleSearchIndex)
	s.mcp.AddTool(indexStatusTool(), s.handleIndexStatus)
	s.mcp.AddTool(rebuildIndexTool(), s.handleRebuildIndex)
}
