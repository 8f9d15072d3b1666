// Package job defines the data model shared by the crawler, registry, and
// checkpoint codecs: job identifiers, configuration, mutable state, and the
// small records that get persisted to disk (pending queue entries, visited
// entries, and word entries).
package job

import (
	"fmt"
	"time"
)

// Status is a crawl job's lifecycle state.
type Status string

const (
	StatusActive      Status = "Active"
	StatusPaused      Status = "Paused"
	StatusFinished    Status = "Finished"
	StatusInterrupted Status = "Interrupted"
)

// ID is an opaque, process-unique job identifier of the form
// "<epoch_seconds>_<spawn_counter>". It also serves as the filename stem for
// a job's checkpoint files.
type ID string

// NewID builds a job ID from a creation time and a monotonically
// increasing spawn counter.
func NewID(createdAt time.Time, counter uint64) ID {
	return ID(fmt.Sprintf("%d_%d", createdAt.Unix(), counter))
}

// Config holds the immutable parameters of a crawl job. Parameter-domain
// validation is the responsibility of the external control API; the
// registry only rejects an empty Origin.
type Config struct {
	Origin           string        `json:"origin"`
	MaxDepth         int           `json:"max_depth"`
	HitRate          float64       `json:"hit_rate"`
	MaxQueueCapacity int           `json:"max_queue_capacity"`
	MaxURLsToVisit   int           `json:"max_urls_to_visit"`
	UserAgent        string        `json:"user_agent,omitempty"`
	RequestTimeout   time.Duration `json:"request_timeout,omitempty"`
}

// RequestInterval returns the minimum spacing between two fetch attempts.
func (c Config) RequestInterval() time.Duration {
	if c.HitRate <= 0 {
		return 0
	}
	return time.Duration(float64(time.Second) / c.HitRate)
}

// State is the mutable, checkpointed portion of a job's lifecycle.
type State struct {
	Status                 Status     `json:"status"`
	URLsVisitedThisSession int        `json:"visited_count"`
	CreatedAt              time.Time  `json:"created_at"`
	UpdatedAt              time.Time  `json:"updated_at"`
	CompletedAt            *time.Time `json:"completed_at,omitempty"`
}

// Terminal reports whether the state machine has reached a terminal status.
func (s State) Terminal() bool {
	return s.Status == StatusFinished || s.Status == StatusInterrupted
}

// PendingEntry is a (url, depth) pair awaiting a fetch.
type PendingEntry struct {
	URL   string
	Depth int
}

// VisitedEntry is one line of the global, append-only visited log.
type VisitedEntry struct {
	URL       string
	JobID     ID
	Timestamp time.Time
}

// WordEntry is one line of a partition file: a word occurrence on a
// specific page, discovered while crawling from a specific origin.
type WordEntry struct {
	Word        string
	RelevantURL string
	OriginURL   string
	Depth       int
	Frequency   int
}
