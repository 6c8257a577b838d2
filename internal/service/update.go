package service

import (
	"context"
	"errors"
	"log"
	"os"
	"time"

	"github.com/dshills/semindex-mcp/internal/embedder"
	"github.com/dshills/semindex-mcp/internal/watcher"
)

// applyBatch folds a debounced batch of file events into the index.
// Each file is removed first and re-added only if it still exists, so
// rename and delete never leave stale chunks behind.
func (s *Service) applyBatch(ctx context.Context, batch []watcher.Event) {
	prev := s.Status().State
	switch prev {
	case StateReady, StateDegraded, StateUpdating:
	default:
		// A build in flight will pick these files up itself
		return
	}

	// Degraded has no edge to Updating; events are folded in quietly
	// and a rebuild does the recovering.
	if prev != StateDegraded {
		s.setStatus(func(st *IndexStatus) { st.State = StateUpdating })
	}

	dst := s.currentStore()
	embedded := 0

	for _, ev := range batch {
		if ctx.Err() != nil {
			return
		}
		dst.RemoveFile(ev.Path)
		if ev.Removed {
			continue
		}

		abs := s.scanner.Abs(ev.Path)
		if _, err := os.Stat(abs); err != nil {
			continue // deleted between the event and now
		}

		chunks, err := s.registry.ChunkFile(abs, ev.Path, s.projectType)
		if err != nil || len(chunks) == 0 {
			if err != nil {
				log.Printf("index: cannot chunk %s: %v", ev.Path, err)
			}
			continue
		}

		if err := s.embedAndStore(ctx, dst, chunkedFile{rel: ev.Path, chunks: chunks}); err != nil {
			if errors.Is(err, embedder.ErrUnavailable) {
				s.setStatus(func(st *IndexStatus) {
					st.State = StateDegraded
					st.FallbackReason = "embedding provider unavailable: " + err.Error()
				})
			}
			return
		}
		embedded++
	}

	s.persist(dst)

	next := prev
	if prev == StateUpdating {
		next = StateReady
	}
	s.setStatus(func(st *IndexStatus) {
		st.State = next
		st.CurrentFile = ""
		st.ChunkCount = dst.ChunkCount()
		st.FileCount = dst.FileCount()
		st.LastUpdated = time.Now()
	})

	if prev == StateDegraded && embedded > 0 {
		// The provider answered again, but the aborted build left the
		// rest of the workspace unindexed. A partial index must not be
		// promoted; recovery is a full rebuild.
		s.Rebuild()
	}
}
