// Package registry implements the Job Registry & Lifecycle Manager (C5):
// it owns the set of live crawl jobs, arbitrates control operations
// (create, pause, resume, stop, resume-from-files, clear, statistics), and
// can reconstruct a job from its on-disk checkpoint. The external control
// API (HTTP handlers, request validation, JSON envelopes) is out of scope
// and consumes this package's exported operations directly.
package registry

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/lukemcguire/webdex/crawler"
	"github.com/lukemcguire/webdex/internal/job"
	"github.com/lukemcguire/webdex/internal/store"
	"github.com/lukemcguire/webdex/internal/visited"
	"github.com/lukemcguire/webdex/result"
)

// clearConcurrency bounds how many checkpoint/partition removals ClearAll
// runs at once.
const clearConcurrency = 8

// recentLogLines bounds the log tail a status query returns.
const recentLogLines = 50

// ErrNotFound is returned when a job id has no on-disk checkpoint. It
// wraps result.ErrNotFound so the control boundary can classify it via
// result.Classify.
var ErrNotFound = fmt.Errorf("registry: job not found: %w", result.ErrNotFound)

// ErrConflict is returned by resume_from_files when the job is already
// live and its worker goroutine has not exited.
var ErrConflict = fmt.Errorf("registry: job already running: %w", result.ErrConflict)

// Control is the outcome of a stop/pause/resume control operation.
type Control string

const (
	ControlStopRequested   Control = "stop_requested"
	ControlAlreadyFinished Control = "already_finished"
	ControlNotActive       Control = "not_active"
	ControlPaused          Control = "paused"
	ControlResumed         Control = "resumed"
)

// liveEntry is a running or paused worker's handle: the Job itself and a
// channel that's closed when its Run goroutine returns.
type liveEntry struct {
	j    *crawler.Job
	done chan struct{}
}

func (e *liveEntry) alive() bool {
	select {
	case <-e.done:
		return false
	default:
		return true
	}
}

// Registry owns the live-job map, the shared index store and visited log,
// and the directory live jobs checkpoint to. All registry mutations occur
// under a single mutex; worker execution never holds it.
type Registry struct {
	checkpointDir string
	storageDir    string
	store         *store.Store
	visitedLog    *visited.Log

	mu      sync.Mutex
	live    map[job.ID]*liveEntry
	counter uint64
}

// New constructs a Registry rooted at dataDir: dataDir/visited_urls.data,
// dataDir/crawlers/, dataDir/storage/.
func New(dataDir string) (*Registry, error) {
	checkpointDir := filepath.Join(dataDir, "crawlers")
	if err := os.MkdirAll(checkpointDir, 0o755); err != nil {
		return nil, fmt.Errorf("create checkpoint dir: %w", err)
	}
	storageDir := filepath.Join(dataDir, "storage")
	st, err := store.New(storageDir)
	if err != nil {
		return nil, fmt.Errorf("create index store: %w", err)
	}
	return &Registry{
		checkpointDir: checkpointDir,
		storageDir:    storageDir,
		store:         st,
		visitedLog:    visited.NewLog(filepath.Join(dataDir, "visited_urls.data")),
		live:          make(map[job.ID]*liveEntry),
	}, nil
}

// Store returns the registry's shared index store, for wiring into a
// search engine.
func (r *Registry) Store() *store.Store { return r.store }

// VisitedLog returns the registry's shared visited log.
func (r *Registry) VisitedLog() *visited.Log { return r.visitedLog }

func (r *Registry) nextID() job.ID {
	r.counter++
	return job.NewID(time.Now().UTC(), r.counter)
}

func (r *Registry) deps() crawler.Deps {
	return crawler.Deps{Store: r.store, VisitedLog: r.visitedLog, CheckpointDir: r.checkpointDir}
}

// Create builds and starts a fresh crawl job for cfg and returns its id.
// Parameter-domain validation is the external boundary's responsibility;
// Create only rejects a missing origin.
func (r *Registry) Create(ctx context.Context, cfg job.Config) (job.ID, error) {
	if strings.TrimSpace(cfg.Origin) == "" {
		return "", fmt.Errorf("create job: origin is required: %w", result.ErrInvalidInput)
	}

	r.mu.Lock()
	id := r.nextID()
	r.mu.Unlock()

	j, err := crawler.New(id, cfg, r.deps())
	if err != nil {
		return "", fmt.Errorf("create job %s: %w", id, err)
	}
	r.startWorker(ctx, id, j)
	return id, nil
}

func (r *Registry) startWorker(ctx context.Context, id job.ID, j *crawler.Job) {
	entry := &liveEntry{j: j, done: make(chan struct{})}
	r.mu.Lock()
	r.live[id] = entry
	r.mu.Unlock()

	go func() {
		defer close(entry.done)
		j.Run(ctx)
	}()
}

// Wait blocks until id's worker goroutine exits or ctx is cancelled. A job
// that is not live returns immediately.
func (r *Registry) Wait(ctx context.Context, id job.ID) error {
	r.mu.Lock()
	entry, ok := r.live[id]
	r.mu.Unlock()
	if !ok {
		return nil
	}
	select {
	case <-entry.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Status is the result of a status query: the saved config/state, the
// reconciled liveness status, recent logs, and a queue preview.
type Status struct {
	Config       job.Config
	State        job.State
	Logs         []string
	QueuePreview []string
}

// Status reads a job's checkpoint trio and cross-references the live
// registry to report the reconciled Active/Paused/stopped view.
func (r *Registry) Status(id job.ID) (Status, error) {
	live, hasLive := r.reconcile(id)

	if hasLive {
		cfg, st, paused := live.j.Status()
		st.Status = liveStatus(st, paused)
		return Status{
			Config:       cfg,
			State:        st,
			Logs:         live.j.RecentLogs(recentLogLines),
			QueuePreview: live.j.QueuePreview(),
		}, nil
	}

	cp := crawler.NewCheckpoint(r.checkpointDir, id)
	cfg, st, err := cp.ReadState()
	if err != nil {
		return Status{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if !st.Terminal() {
		st.Status = job.StatusInterrupted
	}
	logs, _ := cp.ReadLogs()
	if len(logs) > recentLogLines {
		logs = logs[len(logs)-recentLogLines:]
	}
	entries, _ := cp.ReadQueue()
	preview := make([]string, len(entries))
	for i, e := range entries {
		preview[i] = fmt.Sprintf("%s (depth: %d)", e.URL, e.Depth)
	}
	return Status{Config: cfg, State: st, Logs: logs, QueuePreview: preview}, nil
}

func liveStatus(st job.State, paused bool) job.Status {
	if st.Terminal() {
		return st.Status
	}
	if paused {
		return job.StatusPaused
	}
	return job.StatusActive
}

// reconcile looks up id in the live map; if the handle's worker goroutine
// has already exited it is removed and (nil, false) is returned.
func (r *Registry) reconcile(id job.ID) (*liveEntry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.live[id]
	if !ok {
		return nil, false
	}
	if !entry.alive() {
		delete(r.live, id)
		return nil, false
	}
	return entry, true
}

// Summary is one row of List's output.
type Summary struct {
	ID           job.ID
	Status       job.Status
	Origin       string
	VisitedCount int
	CreatedAt    time.Time
	UpdatedAt    time.Time
	CompletedAt  *time.Time
}

// List enumerates every on-disk job, ordered by created_at descending, and
// the count of currently-live workers.
func (r *Registry) List() ([]Summary, int, error) {
	matches, err := filepath.Glob(filepath.Join(r.checkpointDir, "*.data"))
	if err != nil {
		return nil, 0, fmt.Errorf("glob checkpoint dir: %w", err)
	}

	summaries := make([]Summary, 0, len(matches))
	for _, m := range matches {
		id := job.ID(strings.TrimSuffix(filepath.Base(m), ".data"))
		st, err := r.Status(id)
		if err != nil {
			continue
		}
		summaries = append(summaries, Summary{
			ID:           id,
			Status:       st.State.Status,
			Origin:       st.Config.Origin,
			VisitedCount: st.State.URLsVisitedThisSession,
			CreatedAt:    st.State.CreatedAt,
			UpdatedAt:    st.State.UpdatedAt,
			CompletedAt:  st.State.CompletedAt,
		})
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].CreatedAt.After(summaries[j].CreatedAt)
	})

	r.mu.Lock()
	liveCount := len(r.live)
	r.mu.Unlock()
	return summaries, liveCount, nil
}

// Stop sets the stop signal on a live job's worker. It never joins the
// worker.
func (r *Registry) Stop(id job.ID) (Control, error) {
	entry, ok := r.reconcile(id)
	if !ok {
		st, err := r.Status(id)
		if err != nil {
			return "", err
		}
		if st.State.Terminal() {
			return ControlAlreadyFinished, nil
		}
		return ControlNotActive, nil
	}
	entry.j.Stop()
	return ControlStopRequested, nil
}

// Pause acquires the pause gate of a live, running job.
func (r *Registry) Pause(id job.ID) (Control, error) {
	entry, ok := r.reconcile(id)
	if !ok {
		return ControlNotActive, nil
	}
	entry.j.Pause()
	return ControlPaused, nil
}

// Resume releases the pause gate of a live job, or, if the job is not
// currently live, attempts a resume-from-files.
func (r *Registry) Resume(ctx context.Context, id job.ID) (Control, error) {
	entry, ok := r.reconcile(id)
	if ok {
		entry.j.Resume()
		return ControlResumed, nil
	}
	if err := r.ResumeFromFiles(ctx, id); err != nil {
		return "", err
	}
	return ControlResumed, nil
}

// ResumeFromFiles refuses if id is already live and alive; otherwise it
// reads the saved JobConfig, constructs a new Job with resume semantics,
// registers it, and starts its worker.
func (r *Registry) ResumeFromFiles(ctx context.Context, id job.ID) error {
	if _, ok := r.reconcile(id); ok {
		return ErrConflict
	}

	cp := crawler.NewCheckpoint(r.checkpointDir, id)
	cfg, _, err := cp.ReadState()
	if err != nil {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	j, err := crawler.Resume(id, cfg, r.deps())
	if err != nil {
		return fmt.Errorf("resume job %s: %w", id, err)
	}
	r.startWorker(ctx, id, j)
	return nil
}

// ClearCounts reports how many files and live workers a ClearAll call
// removed.
type ClearCounts struct {
	FilesRemoved   int
	WorkersDropped int
}

// ClearAll deletes the visited log, every per-job checkpoint file, and
// every index partition, and drops all live-registry entries without
// signaling them to stop: a best-effort administrative wipe. Running twice
// yields the same empty filesystem state.
func (r *Registry) ClearAll() (ClearCounts, error) {
	var counts ClearCounts
	var mu sync.Mutex

	r.mu.Lock()
	counts.WorkersDropped = len(r.live)
	r.live = make(map[job.ID]*liveEntry)
	r.mu.Unlock()

	// Remove treats a missing log as success, so count it only if it existed.
	visitedExisted := existingCount(filepath.Join(filepath.Dir(r.checkpointDir), "visited_urls.data"))
	if err := r.visitedLog.Remove(); err == nil {
		mu.Lock()
		counts.FilesRemoved += visitedExisted
		mu.Unlock()
	}

	var g errgroup.Group
	g.SetLimit(clearConcurrency)

	checkpointMatches, _ := filepath.Glob(filepath.Join(r.checkpointDir, "*.data"))
	for _, m := range checkpointMatches {
		id := job.ID(strings.TrimSuffix(filepath.Base(m), ".data"))
		g.Go(func() error {
			cp := crawler.NewCheckpoint(r.checkpointDir, id)
			before := existingCount(cp.DataPath(), cp.LogsPath(), cp.QueuePath())
			_ = cp.RemoveAll()
			mu.Lock()
			counts.FilesRemoved += before
			mu.Unlock()
			return nil
		})
	}

	partitions, err := r.store.Partitions()
	if err == nil {
		for _, letter := range partitions {
			path := filepath.Join(r.storageDir, letter+".data")
			g.Go(func() error {
				if err := os.Remove(path); err == nil {
					mu.Lock()
					counts.FilesRemoved++
					mu.Unlock()
				}
				return nil
			})
		}
	}

	_ = g.Wait()
	return counts, nil
}

func existingCount(paths ...string) int {
	n := 0
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			n++
		}
	}
	return n
}

// Statistics aggregates visited-log and index-partition counts plus the
// live worker count.
type Statistics struct {
	VisitedCount      int
	PartitionCounts   map[string]int
	ActiveWorkerCount int
}

// Statistics computes an aggregate snapshot, pruning dead workers from the
// live map as it goes.
func (r *Registry) Statistics() (Statistics, error) {
	visitedCount, err := r.visitedLog.Count()
	if err != nil {
		return Statistics{}, fmt.Errorf("count visited log: %w", err)
	}

	letters, err := r.store.Partitions()
	if err != nil {
		return Statistics{}, fmt.Errorf("list partitions: %w", err)
	}
	partitionCounts := make(map[string]int, len(letters))
	for _, letter := range letters {
		n, err := r.store.CountEntries(letter)
		if err != nil {
			return Statistics{}, fmt.Errorf("count partition %s: %w", letter, err)
		}
		partitionCounts[letter] = n
	}

	r.mu.Lock()
	for id, entry := range r.live {
		if !entry.alive() {
			delete(r.live, id)
		}
	}
	activeCount := len(r.live)
	r.mu.Unlock()

	return Statistics{
		VisitedCount:      visitedCount,
		PartitionCounts:   partitionCounts,
		ActiveWorkerCount: activeCount,
	}, nil
}

// VisitedStats exposes the visited log's per-job and per-domain breakdown.
func (r *Registry) VisitedStats() (visited.Stats, error) {
	return r.visitedLog.Stats()
}
