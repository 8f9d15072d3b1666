package crawler_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/lukemcguire/webdex/crawler"
	"github.com/lukemcguire/webdex/internal/job"
	"github.com/lukemcguire/webdex/internal/store"
	"github.com/lukemcguire/webdex/internal/visited"
)

// newTestServer serves a tiny two-page site: the origin links to one child
// page, and each page has distinct word frequencies so the index can be
// checked directly.
func newTestServer() *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body>apple banana apple <a href="/x">x</a></body></html>`)
	})
	mux.HandleFunc("/x", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<p>cherry cherry cherry</p>`)
	})
	return httptest.NewServer(mux)
}

func newDeps(t *testing.T) crawler.Deps {
	t.Helper()
	dir := t.TempDir()
	st, err := store.New(filepath.Join(dir, "storage"))
	if err != nil {
		t.Fatalf("store.New() error: %v", err)
	}
	return crawler.Deps{
		Store:         st,
		VisitedLog:    visited.NewLog(filepath.Join(dir, "visited_urls.data")),
		CheckpointDir: filepath.Join(dir, "crawlers"),
	}
}

// runToCompletion runs j until Run returns, with a test-scale deadline.
func runToCompletion(t *testing.T, j *crawler.Job) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	done := make(chan struct{})
	go func() {
		j.Run(ctx)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("Run() did not finish in time")
	}
}

func TestJobCrawlIndexesWordsAndTerminatesFinished(t *testing.T) {
	ts := newTestServer()
	defer ts.Close()

	deps := newDeps(t)
	cfg := job.Config{
		Origin:           ts.URL + "/",
		MaxDepth:         1,
		HitRate:          100,
		MaxQueueCapacity: 100,
		MaxURLsToVisit:   5,
	}

	j, err := crawler.New(job.ID("1_1"), cfg, deps)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	runToCompletion(t, j)

	finalCfg, st, _ := j.Status()
	if st.Status != job.StatusFinished {
		t.Fatalf("Status = %v, want Finished", st.Status)
	}
	if st.CompletedAt == nil {
		t.Error("CompletedAt is nil on a Finished job")
	}
	if finalCfg.Origin != cfg.Origin {
		t.Errorf("Origin changed: %s", finalCfg.Origin)
	}

	words, err := deps.Store.Load("a")
	if err != nil {
		t.Fatalf("Load(a) error: %v", err)
	}
	apple, ok := words["apple"]
	if !ok || len(apple) != 1 || apple[0].Frequency != 2 || apple[0].Depth != 0 {
		t.Errorf("a.data apple entry = %+v, want one entry freq=2 depth=0", words["apple"])
	}

	words, err = deps.Store.Load("c")
	if err != nil {
		t.Fatalf("Load(c) error: %v", err)
	}
	cherry, ok := words["cherry"]
	if !ok || len(cherry) != 1 || cherry[0].Frequency != 3 || cherry[0].Depth != 1 {
		t.Errorf("c.data cherry entry = %+v, want one entry freq=3 depth=1", words["cherry"])
	}
}

func TestJobMaxDepthGatesEnqueues(t *testing.T) {
	// A three-level chain: / -> /x -> /y. With MaxDepth 1, /x (depth 1) is
	// fetched but its link to /y is never enqueued.
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<a href="/x">x</a>`)
	})
	mux.HandleFunc("/x", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<a href="/y">y</a>`)
	})
	mux.HandleFunc("/y", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<p>too deep</p>`)
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()

	deps := newDeps(t)
	cfg := job.Config{
		Origin:           ts.URL + "/",
		MaxDepth:         1,
		HitRate:          1000,
		MaxQueueCapacity: 100,
	}

	j, err := crawler.New(job.ID("1_2"), cfg, deps)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	runToCompletion(t, j)

	_, st, _ := j.Status()
	if st.URLsVisitedThisSession != 2 {
		t.Errorf("visited %d URLs, want 2 (origin and /x, never /y)", st.URLsVisitedThisSession)
	}

	set, err := deps.VisitedLog.LoadAll()
	if err != nil {
		t.Fatalf("LoadAll() error: %v", err)
	}
	if set.Contains(ts.URL + "/y") {
		t.Error("depth-2 URL /y was fetched despite MaxDepth 1")
	}
}

func TestJobMaxURLsToVisitBoundsSessionCount(t *testing.T) {
	ts := newTestServer()
	defer ts.Close()

	deps := newDeps(t)
	cfg := job.Config{
		Origin:           ts.URL + "/",
		MaxDepth:         5,
		HitRate:          1000,
		MaxQueueCapacity: 100,
		MaxURLsToVisit:   1,
	}

	j, err := crawler.New(job.ID("1_3"), cfg, deps)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	runToCompletion(t, j)

	_, st, _ := j.Status()
	if st.URLsVisitedThisSession > cfg.MaxURLsToVisit {
		t.Errorf("visited %d URLs, want at most %d", st.URLsVisitedThisSession, cfg.MaxURLsToVisit)
	}
}

func TestJobPauseStopsFetchingThenStopInterrupts(t *testing.T) {
	ts := newTestServer()
	defer ts.Close()

	deps := newDeps(t)
	cfg := job.Config{
		Origin:           ts.URL + "/",
		MaxDepth:         1,
		HitRate:          5,
		MaxQueueCapacity: 100,
	}

	j, err := crawler.New(job.ID("1_4"), cfg, deps)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	j.Pause()
	_, st, paused := j.Status()
	if !paused {
		t.Fatal("Status() paused = false after Pause()")
	}
	before := st.URLsVisitedThisSession

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	done := make(chan struct{})
	go func() {
		j.Run(ctx)
		close(done)
	}()
	time.Sleep(200 * time.Millisecond)

	_, st, _ = j.Status()
	if st.URLsVisitedThisSession != before {
		t.Errorf("visited count advanced while paused: %d -> %d", before, st.URLsVisitedThisSession)
	}

	j.Stop()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run() did not exit after Stop() while paused")
	}

	_, st, _ = j.Status()
	if st.Status != job.StatusInterrupted {
		t.Errorf("Status = %v, want Interrupted", st.Status)
	}
}

func TestJobEmitsProgressEvents(t *testing.T) {
	ts := newTestServer()
	defer ts.Close()

	deps := newDeps(t)
	events := make(chan crawler.Event, 16)
	deps.Events = events

	cfg := job.Config{
		Origin:           ts.URL + "/",
		MaxDepth:         1,
		HitRate:          1000,
		MaxQueueCapacity: 100,
	}
	j, err := crawler.New(job.ID("1_6"), cfg, deps)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	runToCompletion(t, j)
	close(events)

	var fetches, transitions []crawler.Event
	for e := range events {
		if e.Status != "" {
			transitions = append(transitions, e)
			continue
		}
		fetches = append(fetches, e)
	}
	if len(fetches) != 2 {
		t.Fatalf("received %d fetch events, want 2 (one per fetched page)", len(fetches))
	}
	if fetches[0].URL != cfg.Origin || fetches[0].Depth != 0 || fetches[0].StatusCode != 200 {
		t.Errorf("first fetch event = %+v, want origin at depth 0 with status 200", fetches[0])
	}
	if fetches[1].Visited != 2 {
		t.Errorf("second fetch event Visited = %d, want 2", fetches[1].Visited)
	}
	if len(transitions) != 1 || transitions[0].Status != string(job.StatusFinished) {
		t.Errorf("transition events = %+v, want one Finished", transitions)
	}
}

func TestResumeFromFilesResetsSessionCounterAndCompletedAt(t *testing.T) {
	ts := newTestServer()
	defer ts.Close()

	deps := newDeps(t)
	cfg := job.Config{
		Origin:           ts.URL + "/",
		MaxDepth:         1,
		HitRate:          1000,
		MaxQueueCapacity: 100,
	}

	id := job.ID("1_5")
	j, err := crawler.New(id, cfg, deps)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	runToCompletion(t, j)

	resumed, err := crawler.Resume(id, cfg, deps)
	if err != nil {
		t.Fatalf("Resume() error: %v", err)
	}
	_, st, _ := resumed.Status()
	if st.URLsVisitedThisSession != 0 {
		t.Errorf("resumed session counter = %d, want 0", st.URLsVisitedThisSession)
	}
	if st.CompletedAt != nil {
		t.Error("resumed job has CompletedAt set before it has run")
	}
}
