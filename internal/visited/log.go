// Package visited implements the Visited Log: a durable, append-only global
// record of every URL any crawl job has fetched, plus the in-memory set
// each job seeds itself with at startup.
package visited

import (
	"bufio"
	"fmt"
	"net/url"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/lukemcguire/webdex/internal/job"
)

// Log is the durable, append-only "<url> <job_id> <iso8601_datetime>" file
// shared by every crawl job in the process.
type Log struct {
	path string
	mu   sync.Mutex
}

// NewLog opens (without truncating) the visited log at path.
func NewLog(path string) *Log {
	return &Log{path: path}
}

// Append records a visit. The write is local-I/O best-effort: a failure is
// returned to the caller to log, never fatal.
func (l *Log) Append(entry job.VisitedEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open visited log: %w", err)
	}
	defer f.Close()

	line := fmt.Sprintf("%s %s %s\n", entry.URL, entry.JobID, entry.Timestamp.Format(time.RFC3339))
	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("append visited log: %w", err)
	}
	return nil
}

// LoadAll returns the exact set of every URL recorded in the log by any
// job. Lines with fewer than 3 whitespace-separated fields are skipped.
func (l *Log) LoadAll() (*Set, error) {
	return l.load(NewSet())
}

// LoadAllAccelerated behaves like LoadAll but fronts the returned Set with
// a disk-backed bloom filter (visited.NewAcceleratedSet), so jobs crawling
// a history of many thousands of URLs get a fast "definitely new" path
// without holding the whole set twice in memory. Falls back silently to an
// unaccelerated Set if the accelerator can't be constructed (e.g. no
// writable temp dir).
func (l *Log) LoadAllAccelerated() (*Set, error) {
	set, err := NewAcceleratedSet()
	if err != nil {
		return l.LoadAll()
	}
	return l.load(set)
}

func (l *Log) load(set *Set) (*Set, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.Open(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return set, nil
		}
		return nil, fmt.Errorf("open visited log: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 3 {
			continue
		}
		set.Add(fields[0])
	}
	return set, scanner.Err()
}

// Count returns the number of well-formed lines in the log, used for
// statistics.
func (l *Log) Count() (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.Open(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("open visited log: %w", err)
	}
	defer f.Close()

	count := 0
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if len(strings.Fields(scanner.Text())) >= 3 {
			count++
		}
	}
	return count, scanner.Err()
}

// Remove deletes the visited log file. Used by the registry's clear_all.
func (l *Log) Remove() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove visited log: %w", err)
	}
	return nil
}

// JobVisitStats summarizes one job's contribution to the visited log.
type JobVisitStats struct {
	JobID      job.ID
	Count      int
	FirstVisit time.Time
	LastVisit  time.Time
}

// Stats aggregates the visited log by job and by host: total URL count,
// per-job visit counts with first/last timestamps, and per-domain counts.
type Stats struct {
	TotalURLs int
	ByJob     map[job.ID]*JobVisitStats
	ByDomain  map[string]int
}

// Stats computes a Stats snapshot by scanning the log once.
func (l *Log) Stats() (Stats, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := Stats{
		ByJob:    make(map[job.ID]*JobVisitStats),
		ByDomain: make(map[string]int),
	}

	f, err := os.Open(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return out, nil
		}
		return out, fmt.Errorf("open visited log: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 3 {
			continue
		}
		rawURL, jobID := fields[0], job.ID(fields[1])
		visitedAt, _ := time.Parse(time.RFC3339, fields[2])

		out.TotalURLs++

		js, ok := out.ByJob[jobID]
		if !ok {
			js = &JobVisitStats{JobID: jobID, FirstVisit: visitedAt, LastVisit: visitedAt}
			out.ByJob[jobID] = js
		}
		js.Count++
		if visitedAt.Before(js.FirstVisit) {
			js.FirstVisit = visitedAt
		}
		if visitedAt.After(js.LastVisit) {
			js.LastVisit = visitedAt
		}

		if parsed, err := url.Parse(rawURL); err == nil && parsed.Host != "" {
			out.ByDomain[parsed.Host]++
		}
	}
	return out, scanner.Err()
}

// SortedDomains returns domains from a Stats snapshot sorted by visit count
// descending, for display purposes.
func (s Stats) SortedDomains() []string {
	domains := make([]string, 0, len(s.ByDomain))
	for d := range s.ByDomain {
		domains = append(domains, d)
	}
	sort.Slice(domains, func(i, j int) bool {
		return s.ByDomain[domains[i]] > s.ByDomain[domains[j]]
	})
	return domains
}
