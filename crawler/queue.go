package crawler

import (
	"errors"
	"sync"
	"time"

	"github.com/lukemcguire/webdex/internal/job"
)

// queueOpTimeout bounds both enqueue and dequeue attempts.
const queueOpTimeout = time.Second

// ErrQueueFull is returned by Enqueue when the queue stays at capacity for
// the full operation timeout.
var ErrQueueFull = errors.New("crawler: queue full")

// Queue is a Crawl Job's bounded FIFO of pending (url, depth) entries. All
// methods are safe for concurrent use: the worker loop owns dequeue and
// enqueue, while the registry's status path reads Snapshot from the
// caller's goroutine.
type Queue struct {
	mu       sync.Mutex
	items    []job.PendingEntry
	capacity int
	changed  chan struct{}
}

// NewQueue creates an empty queue with the given capacity
// (JobConfig.MaxQueueCapacity).
func NewQueue(capacity int) *Queue {
	return &Queue{capacity: capacity, changed: make(chan struct{})}
}

// Enqueue blocks up to queueOpTimeout for room in the queue.
func (q *Queue) Enqueue(entry job.PendingEntry) error {
	deadline := time.Now().Add(queueOpTimeout)
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.items) >= q.capacity {
		if !q.waitLocked(deadline) {
			return ErrQueueFull
		}
	}
	q.items = append(q.items, entry)
	q.broadcastLocked()
	return nil
}

// Dequeue blocks up to queueOpTimeout for an entry. ok is false on timeout,
// which the worker loop treats as "queue empty".
func (q *Queue) Dequeue() (entry job.PendingEntry, ok bool) {
	deadline := time.Now().Add(queueOpTimeout)
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.items) == 0 {
		if !q.waitLocked(deadline) {
			return job.PendingEntry{}, false
		}
	}
	entry = q.items[0]
	q.items = append(q.items[:0:0], q.items[1:]...)
	q.broadcastLocked()
	return entry, true
}

// waitLocked releases the lock until the queue changes or the deadline
// passes, then re-acquires it. Returns false once the deadline has passed;
// the caller re-checks its condition either way.
func (q *Queue) waitLocked(deadline time.Time) bool {
	ch := q.changed
	q.mu.Unlock()
	defer q.mu.Lock()

	remaining := time.Until(deadline)
	if remaining <= 0 {
		return false
	}
	timer := time.NewTimer(remaining)
	defer timer.Stop()
	select {
	case <-ch:
		return true
	case <-timer.C:
		return false
	}
}

// broadcastLocked wakes every waiter by closing the current change channel
// and installing a fresh one. Callers must hold q.mu.
func (q *Queue) broadcastLocked() {
	close(q.changed)
	q.changed = make(chan struct{})
}

// Len reports the number of entries currently queued.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Cap reports the queue's configured capacity.
func (q *Queue) Cap() int {
	return q.capacity
}

// Snapshot returns a copy of the queue's current entries in FIFO order
// without removing them.
func (q *Queue) Snapshot() []job.PendingEntry {
	q.mu.Lock()
	defer q.mu.Unlock()
	entries := make([]job.PendingEntry, len(q.items))
	copy(entries, q.items)
	return entries
}

// LoadEntries refills an empty queue from persisted entries in order,
// silently truncating to capacity. Returns the number of entries dropped.
func (q *Queue) LoadEntries(entries []job.PendingEntry) (dropped int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, e := range entries {
		if len(q.items) >= q.capacity {
			dropped = len(entries) - i
			break
		}
		q.items = append(q.items, e)
	}
	if len(q.items) > 0 {
		q.broadcastLocked()
	}
	return dropped
}
