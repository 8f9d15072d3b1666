package crawler

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lukemcguire/webdex/internal/job"
)

// Checkpoint persists one job's <job_id>.data / .logs / .queue trio under a
// shared per-registry directory.
type Checkpoint struct {
	dir string
	id  job.ID
}

// NewCheckpoint returns a Checkpoint for id rooted at dir (typically
// "data/crawlers").
func NewCheckpoint(dir string, id job.ID) *Checkpoint {
	return &Checkpoint{dir: dir, id: id}
}

func (c *Checkpoint) DataPath() string  { return filepath.Join(c.dir, string(c.id)+".data") }
func (c *Checkpoint) LogsPath() string  { return filepath.Join(c.dir, string(c.id)+".logs") }
func (c *Checkpoint) QueuePath() string { return filepath.Join(c.dir, string(c.id)+".queue") }

type stateSnapshot struct {
	Config job.Config `json:"config"`
	State  job.State  `json:"state"`
}

// legacyStateSnapshot accepts a "timestamp" field in place of "created_at",
// so checkpoints written under the older key still resume.
type legacyStateSnapshot struct {
	Config job.Config `json:"config"`
	State  struct {
		job.State
		Timestamp time.Time `json:"timestamp"`
	} `json:"state"`
}

// WriteState atomically replaces the .data file with config+state, writing
// to a uuid-suffixed temp file and renaming over the target so a crash
// never leaves a half-written snapshot.
func (c *Checkpoint) WriteState(cfg job.Config, st job.State) error {
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return fmt.Errorf("create checkpoint dir: %w", err)
	}
	data, err := json.MarshalIndent(stateSnapshot{Config: cfg, State: st}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal job state: %w", err)
	}
	return writeThenRename(c.DataPath(), data)
}

// ReadState loads a previously written .data snapshot. A state lacking
// created_at falls back to a legacy "timestamp" field.
func (c *Checkpoint) ReadState() (job.Config, job.State, error) {
	raw, err := os.ReadFile(c.DataPath())
	if err != nil {
		return job.Config{}, job.State{}, fmt.Errorf("read job state: %w", err)
	}
	var snap legacyStateSnapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return job.Config{}, job.State{}, fmt.Errorf("parse job state: %w", err)
	}
	state := snap.State.State
	if state.CreatedAt.IsZero() {
		state.CreatedAt = snap.State.Timestamp
	}
	return snap.Config, state, nil
}

// WriteLogs rewrites the .logs file in full, oldest line first.
func (c *Checkpoint) WriteLogs(lines []string) error {
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return fmt.Errorf("create checkpoint dir: %w", err)
	}
	var b strings.Builder
	for _, l := range lines {
		b.WriteString(l)
		b.WriteByte('\n')
	}
	return writeThenRename(c.LogsPath(), []byte(b.String()))
}

// ReadLogs loads the .logs file into memory, oldest first. Missing file is
// not an error (fresh job).
func (c *Checkpoint) ReadLogs() ([]string, error) {
	f, err := os.Open(c.LogsPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open logs: %w", err)
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if line := scanner.Text(); line != "" {
			lines = append(lines, line)
		}
	}
	return lines, scanner.Err()
}

// WriteQueue rewrites the .queue file in full from the current pending
// entries: "<url> <depth>" per line.
func (c *Checkpoint) WriteQueue(entries []job.PendingEntry) error {
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return fmt.Errorf("create checkpoint dir: %w", err)
	}
	var b strings.Builder
	for _, e := range entries {
		fmt.Fprintf(&b, "%s %d\n", e.URL, e.Depth)
	}
	return writeThenRename(c.QueuePath(), []byte(b.String()))
}

// ReadQueue loads the .queue file into pending entries. Malformed lines are
// skipped.
func (c *Checkpoint) ReadQueue() ([]job.PendingEntry, error) {
	f, err := os.Open(c.QueuePath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open queue: %w", err)
	}
	defer f.Close()

	var entries []job.PendingEntry
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) != 2 {
			continue
		}
		depth, err := strconv.Atoi(fields[1])
		if err != nil {
			continue
		}
		entries = append(entries, job.PendingEntry{URL: fields[0], Depth: depth})
	}
	return entries, scanner.Err()
}

// RemoveAll deletes all three checkpoint files for this job. Used by
// clear_all and by tests; a missing file is not an error.
func (c *Checkpoint) RemoveAll() error {
	for _, p := range []string{c.DataPath(), c.LogsPath(), c.QueuePath()} {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove %s: %w", p, err)
		}
	}
	return nil
}

func writeThenRename(path string, data []byte) error {
	tmp := path + "." + uuid.NewString() + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
