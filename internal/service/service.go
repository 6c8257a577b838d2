package service

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dshills/semindex-mcp/internal/chunker"
	"github.com/dshills/semindex-mcp/internal/classifier"
	"github.com/dshills/semindex-mcp/internal/embedder"
	"github.com/dshills/semindex-mcp/internal/priority"
	"github.com/dshills/semindex-mcp/internal/store"
	"github.com/dshills/semindex-mcp/internal/watcher"
	"github.com/dshills/semindex-mcp/internal/workspace"

	"github.com/dshills/semindex-mcp/pkg/types"
)

const (
	// DefaultTopK bounds semantic search results
	DefaultTopK = 10
	// DefaultThreshold drops semantic matches below this similarity
	DefaultThreshold = 0.3

	cacheFileName = "index.db"
)

// Service owns the index lifecycle for one workspace: detection,
// building, persistence, incremental updates, and semantic queries.
type Service struct {
	scanner  *workspace.Scanner
	registry *chunker.Registry
	selector *priority.Selector
	emb      embedder.Embedder

	projectType types.ProjectType

	mu       sync.Mutex
	status   IndexStatus
	st       *store.Store
	lastFP   string
	onChange func(IndexStatus)

	watch     *watcher.Watcher
	watcherOK bool
	checking  atomic.Bool // freshness probe in flight

	events  chan []watcher.Event
	rebuild chan struct{}

	cancel   context.CancelFunc
	wg       sync.WaitGroup
	stopOnce sync.Once

	debounce time.Duration
}

// Option configures a Service
type Option func(*Service)

// WithDebounce overrides the watcher debounce interval
func WithDebounce(d time.Duration) Option {
	return func(s *Service) { s.debounce = d }
}

// WithStatusCallback registers a callback invoked after every status
// change. The callback receives a copy and must not block.
func WithStatusCallback(fn func(IndexStatus)) Option {
	return func(s *Service) { s.onChange = fn }
}

// New creates a service for the workspace rooted at root. The embedder
// is borrowed, not owned; the caller closes it.
func New(root string, emb embedder.Embedder, opts ...Option) *Service {
	scanner := workspace.NewScanner(root)
	s := &Service{
		scanner:  scanner,
		registry: chunker.NewRegistry(),
		selector: priority.NewSelector(scanner),
		emb:      emb,
		st:       store.New(),
		events:   make(chan []watcher.Event, 64),
		rebuild:  make(chan struct{}, 1),
		debounce: watcher.DefaultDebounce,
		status:   IndexStatus{State: StateNoIndex},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Root returns the workspace root path
func (s *Service) Root() string { return s.scanner.Root() }

// Start classifies the workspace, begins watching for changes, and
// kicks off the initial load-or-build in the background. It returns
// immediately; progress is observable through Status.
func (s *Service) Start(ctx context.Context) error {
	s.projectType = classifier.DetectProjectType(s.scanner.Root())
	s.setStatus(func(st *IndexStatus) {
		st.State = StateChecking
		st.ProjectType = s.projectType
	})

	w, err := watcher.New(s.scanner, s.debounce, func(batch []watcher.Event) {
		select {
		case s.events <- batch:
		default:
			log.Printf("index: update queue full, dropping %d events for %s", len(batch), s.scanner.Root())
		}
	})
	if err == nil {
		err = w.Start()
	}
	if err != nil {
		// Not fatal: queries fall back to a freshness probe
		log.Printf("index: file watching disabled for %s: %v", s.scanner.Root(), err)
	} else {
		s.watch = w
		s.watcherOK = true
	}

	// The build outlives the caller's request context; only Stop ends it
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	s.wg.Add(1)
	go s.run(runCtx)
	return nil
}

// Stop halts the watcher and the update loop and waits for them. The
// store keeps its last committed contents.
func (s *Service) Stop() {
	s.stopOnce.Do(func() {
		if s.watch != nil {
			s.watch.Stop()
		}
		if s.cancel != nil {
			s.cancel()
		}
		s.wg.Wait()
	})
}

// Rebuild schedules a full rebuild from scratch. It is the recovery
// path out of Degraded and Error. A rebuild already pending is not
// duplicated.
func (s *Service) Rebuild() {
	select {
	case s.rebuild <- struct{}{}:
	default:
	}
}

// Status returns a copy of the current index status
func (s *Service) Status() IndexStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.status
	if sc, ok := s.emb.(interface{ CacheStats() (int64, int64) }); ok {
		st.Metrics.CacheHits, st.Metrics.CacheMisses = sc.CacheStats()
	}
	return st
}

// Query runs a semantic search against the current index. It returns
// nil results without error when the index cannot serve semantic
// queries yet; it never blocks on an unfinished build.
func (s *Service) Query(ctx context.Context, text string, topK int, threshold float64) ([]types.SearchResult, error) {
	if text == "" {
		return nil, fmt.Errorf("query text cannot be empty")
	}
	if topK <= 0 {
		topK = DefaultTopK
	}

	status := s.Status()
	if !status.Queryable() {
		return nil, nil
	}
	if !s.watcherOK {
		s.checkFresh()
	}

	start := time.Now()
	vecs, err := s.emb.Embed(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	results := s.currentStore().Search(vecs[0], topK, threshold)

	elapsed := time.Since(start).Milliseconds()
	s.setStatus(func(st *IndexStatus) {
		st.Metrics.QueryCount++
		st.Metrics.TotalQueryMillis += elapsed
	})
	return results, nil
}

// run owns all index mutation: the initial build, watcher batches, and
// rebuild requests are serialized here.
func (s *Service) run(ctx context.Context) {
	defer s.wg.Done()

	s.initialize(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case batch := <-s.events:
			s.applyBatch(ctx, batch)
		case <-s.rebuild:
			// A rebuild restarts the cycle from the top
			s.setStatus(func(st *IndexStatus) { st.State = StateChecking })
			s.build(ctx)
		}
	}
}

// initialize loads and verifies a cached snapshot, falling back to a
// full build when the cache is absent, corrupt, or stale.
func (s *Service) initialize(ctx context.Context) {
	cache := s.cachePath()
	if _, err := os.Stat(cache); err != nil {
		s.build(ctx)
		return
	}

	s.setStatus(func(is *IndexStatus) { is.State = StateLoading })
	st, fp, err := store.Load(cache)
	if err == nil {
		s.setStatus(func(is *IndexStatus) { is.State = StateVerifying })
		current, ferr := s.scanner.Fingerprint()
		if ferr == nil && current == fp {
			s.adoptStore(st, fp)
			s.setStatus(func(is *IndexStatus) {
				is.State = StateReady
				is.Progress = 100
				is.PriorityComplete = true
				is.ChunkCount = st.ChunkCount()
				is.FileCount = st.FileCount()
				is.LastUpdated = time.Now()
			})
			log.Printf("index: loaded %d chunks from cache for %s", st.ChunkCount(), s.scanner.Root())
			return
		}
		log.Printf("index: cache stale for %s, rebuilding", s.scanner.Root())
	} else {
		log.Printf("index: discarding unusable cache for %s: %v", s.scanner.Root(), err)
		_ = os.Remove(cache)
	}

	s.build(ctx)
}

// checkFresh compensates for a dead watcher: when the workspace
// fingerprint has drifted from the indexed one, a rebuild is scheduled.
// At most one probe runs at a time.
func (s *Service) checkFresh() {
	if !s.checking.CompareAndSwap(false, true) {
		return
	}
	go func() {
		defer s.checking.Store(false)
		current, err := s.scanner.Fingerprint()
		if err != nil {
			return
		}
		s.mu.Lock()
		stale := s.lastFP != "" && s.lastFP != current
		s.mu.Unlock()
		if stale {
			s.Rebuild()
		}
	}()
}

func (s *Service) cachePath() string {
	return filepath.Join(s.scanner.Root(), workspace.CacheDirName, cacheFileName)
}

func (s *Service) currentStore() *store.Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st
}

func (s *Service) adoptStore(st *store.Store, fingerprint string) {
	s.mu.Lock()
	s.st = st
	s.lastFP = fingerprint
	s.mu.Unlock()
}

// setStatus applies a mutation to the status cell and notifies the
// change callback with a copy.
func (s *Service) setStatus(mutate func(*IndexStatus)) {
	s.mu.Lock()
	mutate(&s.status)
	snapshot := s.status
	cb := s.onChange
	s.mu.Unlock()
	if cb != nil {
		cb(snapshot)
	}
}
