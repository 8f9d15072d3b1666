// Package crawler implements the Crawl Job (C4): a single breadth-first
// worker that dequeues (url, depth) pairs, fetches and extracts each page,
// indexes discovered words, enqueues discovered links, and checkpoints its
// state to disk after every step that can affect it.
package crawler

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/lukemcguire/webdex/internal/extract"
	"github.com/lukemcguire/webdex/internal/job"
	"github.com/lukemcguire/webdex/internal/store"
	"github.com/lukemcguire/webdex/internal/visited"
)

// Deps bundles the shared collaborators a Job needs: the index store and
// visited log are process-wide and shared across every concurrent job; the
// checkpoint directory is where this job's .data/.logs/.queue files live.
type Deps struct {
	Store         *store.Store
	VisitedLog    *visited.Log
	CheckpointDir string
	Events        chan<- Event // optional; nil disables progress events
}

// Job is one running (or paused) crawl: its queue, in-memory visited set,
// checkpoint writer, and control signals. Pause and stop are two distinct
// primitives rather than ad-hoc booleans.
type Job struct {
	id   job.ID
	cfg  job.Config
	deps Deps

	queue      *Queue
	visitedSet *visited.Set
	checkpoint *Checkpoint
	limiter    *rate.Limiter
	latency    *LatencyTracker
	memory     *MemoryWatcher

	pause *pauseGate
	stop  *stopLatch

	mu     sync.Mutex
	state  job.State
	logs   []string
}

// New constructs a fresh Job: it seeds the queue with (origin, 0), loads
// the global visited set, and writes the job's initial checkpoint.
func New(id job.ID, cfg job.Config, deps Deps) (*Job, error) {
	now := time.Now().UTC()
	j := &Job{
		id:         id,
		cfg:        cfg,
		deps:       deps,
		queue:      NewQueue(cfg.MaxQueueCapacity),
		checkpoint: NewCheckpoint(deps.CheckpointDir, id),
		limiter:    newLimiter(cfg.HitRate),
		latency:    NewLatencyTracker(),
		memory:     NewMemoryWatcher(defaultMemoryLimitMB),
		pause:      newPauseGate(),
		stop:       newStopLatch(),
		state: job.State{
			Status:    job.StatusActive,
			CreatedAt: now,
			UpdatedAt: now,
		},
	}
	j.memory.SetThrottleCallback(func(level ThrottleLevel) {
		j.log(fmt.Sprintf("memory pressure: %s", throttleLevelName(level)))
	})

	set, err := deps.VisitedLog.LoadAllAccelerated()
	if err != nil {
		return nil, fmt.Errorf("load visited set: %w", err)
	}
	j.visitedSet = set

	if err := j.queue.Enqueue(job.PendingEntry{URL: cfg.Origin, Depth: 0}); err != nil {
		return nil, fmt.Errorf("seed queue with origin: %w", err)
	}

	j.log(fmt.Sprintf("job started at origin %s", cfg.Origin))
	j.persistAll()
	return j, nil
}

// Resume reconstructs a Job from its on-disk checkpoint: saved logs are
// loaded for history, the saved queue is restored (truncated to capacity,
// with the drop count logged), created_at
// is preserved, completed_at is cleared, and the global visited set is
// reloaded fresh. The origin is not re-enqueued.
func Resume(id job.ID, cfg job.Config, deps Deps) (*Job, error) {
	now := time.Now().UTC()
	j := &Job{
		id:         id,
		cfg:        cfg,
		deps:       deps,
		queue:      NewQueue(cfg.MaxQueueCapacity),
		checkpoint: NewCheckpoint(deps.CheckpointDir, id),
		limiter:    newLimiter(cfg.HitRate),
		latency:    NewLatencyTracker(),
		memory:     NewMemoryWatcher(defaultMemoryLimitMB),
		pause:      newPauseGate(),
		stop:       newStopLatch(),
	}
	j.memory.SetThrottleCallback(func(level ThrottleLevel) {
		j.log(fmt.Sprintf("memory pressure: %s", throttleLevelName(level)))
	})

	_, savedState, err := j.checkpoint.ReadState()
	if err != nil {
		return nil, fmt.Errorf("read saved state: %w", err)
	}
	j.state = job.State{
		Status:                 job.StatusActive,
		URLsVisitedThisSession: 0,
		CreatedAt:              savedState.CreatedAt,
		UpdatedAt:              now,
		CompletedAt:            nil,
	}

	savedLogs, err := j.checkpoint.ReadLogs()
	if err != nil {
		return nil, fmt.Errorf("read saved logs: %w", err)
	}
	j.logs = savedLogs

	entries, err := j.checkpoint.ReadQueue()
	if err != nil {
		return nil, fmt.Errorf("read saved queue: %w", err)
	}
	if dropped := j.queue.LoadEntries(entries); dropped > 0 {
		j.log(fmt.Sprintf("resume: dropped %d queue entries exceeding capacity %d", dropped, cfg.MaxQueueCapacity))
	}

	set, err := deps.VisitedLog.LoadAllAccelerated()
	if err != nil {
		return nil, fmt.Errorf("load visited set: %w", err)
	}
	j.visitedSet = set

	j.log("job resumed from checkpoint")
	j.persistAll()
	return j, nil
}

// Run executes the breadth-first worker loop until the job reaches a
// terminal state or ctx is cancelled. It never returns an error: every
// failure mode either skips one URL or transitions the job to Interrupted.
func (j *Job) Run(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			j.log(fmt.Sprintf("worker panic: %v", r))
			j.transition(job.StatusInterrupted)
		}
	}()

	for {
		if err := j.pause.Wait(ctx); err != nil {
			j.transition(job.StatusInterrupted)
			return
		}
		if j.stop.Stopped() {
			j.transition(job.StatusInterrupted)
			return
		}

		j.memory.Check()

		entry, ok := j.queue.Dequeue()
		j.persistQueue()
		if !ok {
			j.transition(job.StatusFinished)
			return
		}

		if entry.Depth > j.cfg.MaxDepth {
			continue
		}

		if err := j.limiter.Wait(ctx); err != nil {
			j.transition(job.StatusInterrupted)
			return
		}

		if j.visitedSet.Contains(entry.URL) {
			continue
		}

		j.processEntry(ctx, entry)
		j.persistQueue()

		if j.stop.Stopped() {
			j.transition(job.StatusInterrupted)
			return
		}
		if j.cfg.MaxURLsToVisit > 0 && j.sessionCount() >= j.cfg.MaxURLsToVisit {
			j.transition(job.StatusFinished)
			return
		}
	}
}

func (j *Job) processEntry(ctx context.Context, entry job.PendingEntry) {
	result, err := Fetch(ctx, entry.URL, j.cfg.UserAgent, j.cfg.RequestTimeout)
	if err != nil {
		cat := ClassifyError(err, result.StatusCode)
		j.log(fmt.Sprintf("skip %s: %s (%v)", entry.URL, cat, err))
		j.emit(Event{URL: entry.URL, StatusCode: result.StatusCode, Depth: entry.Depth, Error: err.Error(), Visited: j.sessionCount()})
		return
	}
	j.latency.Observe(result.RTT)

	j.recordVisit(entry.URL)
	j.emit(Event{URL: entry.URL, StatusCode: result.StatusCode, Depth: entry.Depth, Visited: j.sessionCount()})

	base, parseErr := url.Parse(entry.URL)
	if parseErr != nil {
		j.log(fmt.Sprintf("parse fetched url %s: %v", entry.URL, parseErr))
		return
	}
	extracted := extract.Page(strings.NewReader(result.Body), base)

	freq := wordFrequencies(extract.Words(extracted.Text))
	if len(freq) > 0 {
		if err := j.deps.Store.Store(freq, entry.URL, j.cfg.Origin, entry.Depth); err != nil {
			j.log(fmt.Sprintf("index %s: %v", entry.URL, err))
		}
	}

	if entry.Depth >= j.cfg.MaxDepth || j.stop.Stopped() {
		return
	}

	for _, link := range extracted.URLs {
		if j.visitedSet.Contains(link) {
			continue
		}
		if err := j.queue.Enqueue(job.PendingEntry{URL: link, Depth: entry.Depth + 1}); err != nil {
			j.log(fmt.Sprintf("queue full enqueueing links from %s, remaining links dropped", entry.URL))
			break
		}
	}
}

func (j *Job) recordVisit(rawURL string) {
	now := time.Now().UTC()
	j.visitedSet.Add(rawURL)
	if err := j.deps.VisitedLog.Append(job.VisitedEntry{URL: rawURL, JobID: j.id, Timestamp: now}); err != nil {
		j.log(fmt.Sprintf("append visited log for %s: %v", rawURL, err))
	}

	j.mu.Lock()
	j.state.URLsVisitedThisSession++
	j.state.UpdatedAt = now
	j.mu.Unlock()
	j.persistState()
}

// defaultMemoryLimitMB is the soft heap limit each job's MemoryWatcher
// installs; debug.SetMemoryLimit applies it to the whole process, not to one
// job. Large crawls shed pressure by logging rather than by refusing work
// outright.
const defaultMemoryLimitMB = 512

func throttleLevelName(level ThrottleLevel) string {
	switch level {
	case ThrottleWarning:
		return "warning"
	case ThrottleCritical:
		return "critical"
	default:
		return "normal"
	}
}

func wordFrequencies(words []string) map[string]int {
	freq := make(map[string]int, len(words))
	for _, w := range words {
		freq[w]++
	}
	return freq
}

// Pause acquires the pause gate and records the Paused status.
func (j *Job) Pause() {
	j.pause.Pause()
	j.setStatus(job.StatusPaused)
	j.log("job paused")
}

// Resume releases the pause gate and records the Active status.
func (j *Job) Resume() {
	j.pause.Resume()
	j.setStatus(job.StatusActive)
	j.log("job resumed")
}

// Stop raises the stop latch and releases the pause gate so a paused
// worker can observe termination.
func (j *Job) Stop() {
	j.stop.Set()
	j.pause.Resume()
	j.log("stop requested")
}

func (j *Job) transition(status job.Status) {
	now := time.Now().UTC()
	j.mu.Lock()
	j.state.Status = status
	j.state.UpdatedAt = now
	if status == job.StatusFinished || status == job.StatusInterrupted {
		j.state.CompletedAt = &now
	}
	j.mu.Unlock()
	j.log(fmt.Sprintf("job transitioned to %s", status))
	j.emit(Event{Status: string(status), Visited: j.sessionCount()})
	j.persistAll()
	if status == job.StatusFinished || status == job.StatusInterrupted {
		if err := j.visitedSet.Close(); err != nil {
			j.log(fmt.Sprintf("close visited set accelerator: %v", err))
		}
	}
}

func (j *Job) setStatus(status job.Status) {
	j.mu.Lock()
	j.state.Status = status
	j.state.UpdatedAt = time.Now().UTC()
	j.mu.Unlock()
	j.persistState()
}

func (j *Job) sessionCount() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.state.URLsVisitedThisSession
}

// Status returns a snapshot of the job's config, mutable state, and paused
// flag, for the registry's status operation. Recent log lines and the queue
// preview come from RecentLogs and QueuePreview.
func (j *Job) Status() (job.Config, job.State, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.cfg, j.state, j.pause.Paused()
}

// RecentLogs returns up to n of the most recent log lines.
func (j *Job) RecentLogs(n int) []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	if len(j.logs) <= n {
		out := make([]string, len(j.logs))
		copy(out, j.logs)
		return out
	}
	out := make([]string, n)
	copy(out, j.logs[len(j.logs)-n:])
	return out
}

// QueuePreview returns the current pending entries, formatted
// "<url> (depth: <d>)".
func (j *Job) QueuePreview() []string {
	entries := j.queue.Snapshot()
	preview := make([]string, len(entries))
	for i, e := range entries {
		preview[i] = fmt.Sprintf("%s (depth: %d)", e.URL, e.Depth)
	}
	return preview
}

func (j *Job) log(msg string) {
	line := fmt.Sprintf("%s - %s", time.Now().UTC().Format("2006-01-02 15:04:05"), msg)
	j.mu.Lock()
	j.logs = append(j.logs, line)
	j.mu.Unlock()
	j.persistLogs()
}

func (j *Job) emit(evt Event) {
	if j.deps.Events == nil {
		return
	}
	evt.JobID = string(j.id)
	select {
	case j.deps.Events <- evt:
	default:
	}
}

// persistState, persistLogs, and persistQueue each swallow their own
// errors into the job's log: checkpoint write failures are logged and
// ignored, never fatal; the next checkpoint re-attempts.
func (j *Job) persistState() {
	j.mu.Lock()
	cfg, st := j.cfg, j.state
	j.mu.Unlock()
	if err := j.checkpoint.WriteState(cfg, st); err != nil {
		j.mu.Lock()
		j.logs = append(j.logs, fmt.Sprintf("%s - checkpoint state write failed: %v", time.Now().UTC().Format("2006-01-02 15:04:05"), err))
		j.mu.Unlock()
	}
}

func (j *Job) persistLogs() {
	j.mu.Lock()
	logs := make([]string, len(j.logs))
	copy(logs, j.logs)
	j.mu.Unlock()
	_ = j.checkpoint.WriteLogs(logs)
}

func (j *Job) persistQueue() {
	entries := j.queue.Snapshot()
	if err := j.checkpoint.WriteQueue(entries); err != nil {
		j.log(fmt.Sprintf("checkpoint queue write failed: %v", err))
	}
}

func (j *Job) persistAll() {
	j.persistState()
	j.persistLogs()
	j.persistQueue()
}
