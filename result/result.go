// Package result provides the output types and writers for the control
// surface: search hits, job summaries/status, and aggregate statistics.
// The HTTP control API layer (request validation, JSON envelopes) is out
// of scope; this package only shapes what that layer, or the CLI/TUI, can
// hand back to a caller.
package result

import "time"

// SearchHit is one ranked, deduplicated search result.
type SearchHit struct {
	Word           string `json:"word"`
	RelevantURL    string `json:"relevant_url"`
	OriginURL      string `json:"origin_url"`
	Depth          int    `json:"depth"`
	Frequency      int    `json:"frequency"`
	RelevanceScore int    `json:"relevance_score"`
}

// SearchResponse is the full output of a search operation.
type SearchResponse struct {
	Results      []SearchHit `json:"results"`
	TotalResults int         `json:"total_results"`
}

// JobSummary is one row of a job list.
type JobSummary struct {
	JobID        string     `json:"job_id"`
	Status       string     `json:"status"`
	Origin       string     `json:"origin"`
	VisitedCount int        `json:"visited_count"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
}

// JobStatusView is the full output of a status operation: config, state,
// recent logs, and a queue preview.
type JobStatusView struct {
	JobID            string     `json:"job_id"`
	Status           string     `json:"status"`
	Origin           string     `json:"origin"`
	MaxDepth         int        `json:"max_depth"`
	HitRate          float64    `json:"hit_rate"`
	MaxQueueCapacity int        `json:"max_queue_capacity"`
	MaxURLsToVisit   int        `json:"max_urls_to_visit"`
	VisitedCount     int        `json:"visited_count"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
	Logs             []string   `json:"logs"`
	QueuePreview     []string   `json:"queue_preview"`
}

// Stats is the output of the statistics operation.
type Stats struct {
	VisitedCount      int            `json:"visited_count"`
	PartitionCounts   map[string]int `json:"partition_counts"`
	ActiveWorkerCount int            `json:"active_worker_count"`
}
