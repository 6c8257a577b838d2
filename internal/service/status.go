package service

import (
	"time"

	"github.com/dshills/semindex-mcp/pkg/types"
)

// IndexState is the lifecycle state of a workspace index
type IndexState string

// Index lifecycle states. Checking branches to Loading when a cached
// snapshot exists and to Building otherwise; Ready and Updating
// alternate as file changes arrive.
const (
	StateNoIndex   IndexState = "no_index"
	StateChecking  IndexState = "checking"
	StateLoading   IndexState = "loading"
	StateVerifying IndexState = "verifying"
	StateBuilding  IndexState = "building"
	StateReady     IndexState = "ready"
	StateUpdating  IndexState = "updating"
	StateDegraded  IndexState = "degraded"
	StateError     IndexState = "error"
)

// Queryable reports whether semantic search can be served in this state.
// During Building the caller must also check PriorityComplete.
func (s IndexState) Queryable() bool {
	switch s {
	case StateReady, StateUpdating, StateBuilding:
		return true
	default:
		return false
	}
}

// IndexStatus is a point-in-time snapshot of the index lifecycle.
// Status() returns copies; callers never share the live struct.
type IndexStatus struct {
	State            IndexState        `json:"state"`
	ProjectType      types.ProjectType `json:"project_type"`
	Progress         int               `json:"progress"` // 0-100
	CurrentFile      string            `json:"current_file,omitempty"`
	ChunkCount       int               `json:"chunk_count"`
	FileCount        int               `json:"file_count"`
	PriorityComplete bool              `json:"priority_complete"`
	LastUpdated      time.Time         `json:"last_updated,omitzero"`
	Error            string            `json:"error,omitempty"`
	FallbackReason   string            `json:"fallback_reason,omitempty"`
	Metrics          IndexMetrics      `json:"metrics"`
}

// Queryable reports whether the service can answer semantic queries
// right now.
func (s IndexStatus) Queryable() bool {
	if s.State == StateBuilding {
		return s.PriorityComplete
	}
	return s.State.Queryable()
}

// IndexMetrics accumulates coarse timing counters over the service
// lifetime
type IndexMetrics struct {
	BuildMillis      int64 `json:"build_millis"`
	EmbedMillis      int64 `json:"embed_millis"`
	FilesIndexed     int   `json:"files_indexed"`
	FilesFailed      int   `json:"files_failed"`
	QueryCount       int64 `json:"query_count"`
	TotalQueryMillis int64 `json:"total_query_millis"`
	CacheHits        int64 `json:"cache_hits"`
	CacheMisses      int64 `json:"cache_misses"`
}
