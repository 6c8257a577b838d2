package service

import (
	"context"
	"errors"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dshills/semindex-mcp/internal/embedder"
	"github.com/dshills/semindex-mcp/internal/store"
	"github.com/dshills/semindex-mcp/pkg/types"
)

const (
	// embedBatchSize bounds texts per embedding call
	embedBatchSize = 50
	// embedBatchTimeout skips a file whose batch does not come back in time
	embedBatchTimeout = 30 * time.Second
	// chunkWorkers bounds concurrent file chunking
	chunkWorkers = 4

	// Build progress splits evenly between the priority pass and the
	// remainder of the workspace
	priorityPhaseEnd = 50
)

// build indexes the whole workspace from scratch: priority files
// first, then everything else, then a snapshot to disk.
func (s *Service) build(ctx context.Context) {
	buildStart := time.Now()

	fresh := store.New()
	s.adoptStore(fresh, "")
	s.setStatus(func(st *IndexStatus) {
		st.State = StateBuilding
		st.Progress = 0
		st.PriorityComplete = false
		st.CurrentFile = ""
		st.ChunkCount = 0
		st.FileCount = 0
		st.Error = ""
		st.FallbackReason = ""
	})

	all, err := s.scanner.List()
	if err != nil {
		s.setStatus(func(st *IndexStatus) {
			st.State = StateError
			st.Error = "workspace unreadable: " + err.Error()
		})
		return
	}

	prio, err := s.selector.Select(ctx, s.projectType)
	if err != nil {
		prio = nil // priority selection is best-effort
	}
	inPrio := make(map[string]struct{}, len(prio))
	for _, rel := range prio {
		inPrio[rel] = struct{}{}
	}
	rest := make([]string, 0, len(all))
	for _, rel := range all {
		if _, ok := inPrio[rel]; !ok {
			rest = append(rest, rel)
		}
	}

	if err := s.indexFiles(ctx, fresh, prio, 0, priorityPhaseEnd); err != nil {
		s.degradeOrReturn(ctx, err)
		return
	}
	s.setStatus(func(st *IndexStatus) {
		st.PriorityComplete = true
		st.Progress = priorityPhaseEnd
		st.ChunkCount = fresh.ChunkCount()
		st.FileCount = fresh.FileCount()
	})

	if err := s.indexFiles(ctx, fresh, rest, priorityPhaseEnd, 100); err != nil {
		s.degradeOrReturn(ctx, err)
		return
	}

	s.persist(fresh)

	s.setStatus(func(st *IndexStatus) {
		st.State = StateReady
		st.Progress = 100
		st.CurrentFile = ""
		st.ChunkCount = fresh.ChunkCount()
		st.FileCount = fresh.FileCount()
		st.LastUpdated = time.Now()
		st.Metrics.BuildMillis += time.Since(buildStart).Milliseconds()
	})
	log.Printf("index: built %d chunks from %d files for %s in %s",
		fresh.ChunkCount(), fresh.FileCount(), s.scanner.Root(), time.Since(buildStart).Round(time.Millisecond))
}

// degradeOrReturn maps a build failure to Degraded, or returns quietly
// when the service is shutting down.
func (s *Service) degradeOrReturn(ctx context.Context, err error) {
	if ctx.Err() != nil {
		return
	}
	if errors.Is(err, embedder.ErrUnavailable) {
		s.setStatus(func(st *IndexStatus) {
			st.State = StateDegraded
			st.FallbackReason = "embedding provider unavailable: " + err.Error()
		})
		log.Printf("index: degraded for %s: %v", s.scanner.Root(), err)
		return
	}
	s.setStatus(func(st *IndexStatus) {
		st.State = StateError
		st.Error = err.Error()
	})
	log.Printf("index: build failed for %s: %v", s.scanner.Root(), err)
}

type chunkedFile struct {
	rel    string
	chunks []types.Chunk
}

// indexFiles chunks files concurrently and embeds them sequentially,
// advancing progress from fromPct to toPct. Per-file failures are
// recorded and skipped; only embedder unavailability aborts the pass.
func (s *Service) indexFiles(ctx context.Context, dst *store.Store, files []string, fromPct, toPct int) error {
	if len(files) == 0 {
		return ctx.Err()
	}

	results := make(chan chunkedFile, chunkWorkers)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(chunkWorkers)

	go func() {
		for _, rel := range files {
			rel := rel
			g.Go(func() error {
				chunks, err := s.registry.ChunkFile(s.scanner.Abs(rel), rel, s.projectType)
				if err != nil {
					log.Printf("index: cannot chunk %s: %v", rel, err)
					chunks = nil
				}
				select {
				case results <- chunkedFile{rel: rel, chunks: chunks}:
					return nil
				case <-gctx.Done():
					return gctx.Err()
				}
			})
		}
		_ = g.Wait()
		close(results)
	}()

	done := 0
	for cf := range results {
		done++
		s.setStatus(func(st *IndexStatus) {
			st.CurrentFile = cf.rel
			st.Progress = fromPct + (toPct-fromPct)*done/len(files)
		})

		if len(cf.chunks) == 0 {
			s.setStatus(func(st *IndexStatus) { st.Metrics.FilesFailed++ })
			continue
		}
		if err := s.embedAndStore(ctx, dst, cf); err != nil {
			// Drain the chunk workers before returning
			for range results {
			}
			return err
		}
	}
	return ctx.Err()
}

// embedAndStore embeds a file's chunks in bounded batches and commits
// them atomically. A timed-out batch skips the file for this pass.
func (s *Service) embedAndStore(ctx context.Context, dst *store.Store, cf chunkedFile) error {
	embedStart := time.Now()
	vectors := make([][]float32, 0, len(cf.chunks))

	for off := 0; off < len(cf.chunks); off += embedBatchSize {
		end := min(off+embedBatchSize, len(cf.chunks))
		texts := make([]string, 0, end-off)
		for _, c := range cf.chunks[off:end] {
			texts = append(texts, c.EmbeddingText())
		}

		bctx, cancel := context.WithTimeout(ctx, embedBatchTimeout)
		vecs, err := s.emb.Embed(bctx, texts)
		timedOut := errors.Is(bctx.Err(), context.DeadlineExceeded)
		cancel()

		switch {
		case err == nil:
			vectors = append(vectors, vecs...)
		case ctx.Err() != nil:
			return ctx.Err()
		case timedOut:
			log.Printf("index: embedding timed out for %s, skipping this pass", cf.rel)
			s.setStatus(func(st *IndexStatus) { st.Metrics.FilesFailed++ })
			return nil
		case errors.Is(err, embedder.ErrUnavailable):
			return err
		default:
			log.Printf("index: embedding failed for %s, skipping: %v", cf.rel, err)
			s.setStatus(func(st *IndexStatus) { st.Metrics.FilesFailed++ })
			return nil
		}
	}

	if err := dst.ReplaceFile(cf.rel, cf.chunks, vectors); err != nil {
		log.Printf("index: cannot store %s: %v", cf.rel, err)
		s.setStatus(func(st *IndexStatus) { st.Metrics.FilesFailed++ })
		return nil
	}

	s.setStatus(func(st *IndexStatus) {
		st.Metrics.FilesIndexed++
		st.Metrics.EmbedMillis += time.Since(embedStart).Milliseconds()
	})
	return nil
}

// persist snapshots the store keyed by the current workspace
// fingerprint. Persistence failures are logged, never fatal; the
// in-memory index stays authoritative.
func (s *Service) persist(dst *store.Store) {
	fp, err := s.scanner.Fingerprint()
	if err != nil {
		log.Printf("index: cannot fingerprint %s: %v", s.scanner.Root(), err)
		return
	}
	if err := dst.Save(s.cachePath(), fp); err != nil {
		log.Printf("index: cannot persist %s: %v", s.scanner.Root(), err)
		return
	}
	s.mu.Lock()
	s.lastFP = fp
	s.mu.Unlock()
}
