// Package main provides the webdex CLI entrypoint: job control
// (create/status/list/stop/pause/resume/resume-from-files/clear/stats),
// search, and an operator dashboard (watch).
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/lukemcguire/webdex/internal/job"
	"github.com/lukemcguire/webdex/internal/registry"
	"github.com/lukemcguire/webdex/internal/search"
	"github.com/lukemcguire/webdex/result"
	"github.com/lukemcguire/webdex/tui"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	topFlags := flag.NewFlagSet("webdex", flag.ContinueOnError)
	dataDir := topFlags.String("data-dir", "./webdex-data", "directory holding checkpoints, visited log, and index partitions")
	if err := topFlags.Parse(args); err != nil {
		return 1
	}
	rest := topFlags.Args()
	if len(rest) < 1 {
		usage()
		return 1
	}
	cmd, rest := rest[0], rest[1:]

	reg, err := registry.New(*dataDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	switch cmd {
	case "create":
		return cmdCreate(ctx, reg, rest)
	case "status":
		return cmdStatus(reg, rest)
	case "list":
		return cmdList(reg, rest)
	case "stop":
		return cmdControl(rest, reg.Stop)
	case "pause":
		return cmdControl(rest, reg.Pause)
	case "resume":
		return cmdResume(ctx, reg, rest)
	case "resume-from-files":
		return cmdResumeFromFiles(ctx, reg, rest)
	case "clear":
		return cmdClear(reg, rest)
	case "stats":
		return cmdStats(reg, rest)
	case "search":
		return cmdSearch(reg, rest)
	case "random-word":
		return cmdRandomWord(reg, rest)
	case "watch":
		return cmdWatch(ctx, cancel, reg)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		usage()
		return 1
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `Usage: webdex [-data-dir DIR] <command> [args]

Commands:
  create -origin URL [flags]    start a new crawl job
  status -id JOBID               show a job's status, logs, and queue
  list                           list every job
  stop -id JOBID                 request a running job stop
  pause -id JOBID                pause a running job
  resume -id JOBID               resume a paused or interrupted job
  resume-from-files -id JOBID    resume a job strictly from its checkpoint
  clear                          delete all jobs and index data
  stats                          show aggregate visited/index statistics
  search QUERY [flags]           run a ranked search against the index
  random-word                    return a uniformly random indexed word
  watch                          launch the operator dashboard`)
}

func cmdCreate(ctx context.Context, reg *registry.Registry, args []string) int {
	fs := flag.NewFlagSet("create", flag.ContinueOnError)
	origin := fs.String("origin", "", "origin URL to crawl")
	maxDepth := fs.Int("max-depth", 3, "maximum crawl depth")
	hitRate := fs.Float64("hit-rate", 1.0, "requests per second")
	maxQueue := fs.Int("max-queue", 10000, "maximum pending-queue capacity")
	maxURLs := fs.Int("max-urls", 1000, "maximum URLs to visit this session")
	userAgent := fs.String("user-agent", "webdex/1.0", "user agent string")
	timeout := fs.Duration("timeout", 10*time.Second, "per-request fetch timeout")
	if err := fs.Parse(args); err != nil {
		return 1
	}

	cfg := job.Config{
		Origin:           *origin,
		MaxDepth:         *maxDepth,
		HitRate:          *hitRate,
		MaxQueueCapacity: *maxQueue,
		MaxURLsToVisit:   *maxURLs,
		UserAgent:        *userAgent,
		RequestTimeout:   *timeout,
	}

	id, err := reg.Create(ctx, cfg)
	if err != nil {
		return reportError(err)
	}
	fmt.Printf("job %s created, crawling (ctrl-c to interrupt)\n", id)

	// The worker dies with this process, so the command runs it to
	// completion the way a one-shot crawl would.
	return runJobToCompletion(ctx, reg, id)
}

func cmdStatus(reg *registry.Registry, args []string) int {
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	id := fs.String("id", "", "job id")
	asJSON := fs.Bool("json", false, "output as JSON")
	if err := fs.Parse(args); err != nil {
		return 1
	}

	st, err := reg.Status(job.ID(*id))
	if err != nil {
		return reportError(err)
	}
	view := toStatusView(job.ID(*id), st)

	if *asJSON {
		if err := result.WriteJSONValue(os.Stdout, view); err != nil {
			return reportError(err)
		}
		return 0
	}
	result.PrintStatus(os.Stdout, &view)
	return 0
}

func cmdList(reg *registry.Registry, args []string) int {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	asJSON := fs.Bool("json", false, "output as JSON")
	if err := fs.Parse(args); err != nil {
		return 1
	}

	summaries, liveCount, err := reg.List()
	if err != nil {
		return reportError(err)
	}
	jobs := make([]result.JobSummary, len(summaries))
	for i, s := range summaries {
		jobs[i] = result.JobSummary{
			JobID:        string(s.ID),
			Status:       string(s.Status),
			Origin:       s.Origin,
			VisitedCount: s.VisitedCount,
			CreatedAt:    s.CreatedAt,
			UpdatedAt:    s.UpdatedAt,
			CompletedAt:  s.CompletedAt,
		}
	}

	if *asJSON {
		if err := result.WriteJobListJSON(os.Stdout, jobs); err != nil {
			return reportError(err)
		}
		return 0
	}
	result.PrintJobList(os.Stdout, jobs, liveCount)
	return 0
}

func cmdControl(args []string, op func(job.ID) (registry.Control, error)) int {
	fs := flag.NewFlagSet("control", flag.ContinueOnError)
	id := fs.String("id", "", "job id")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	outcome, err := op(job.ID(*id))
	if err != nil {
		return reportError(err)
	}
	fmt.Println(outcome)
	return 0
}

func cmdResume(ctx context.Context, reg *registry.Registry, args []string) int {
	fs := flag.NewFlagSet("resume", flag.ContinueOnError)
	id := fs.String("id", "", "job id")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	outcome, err := reg.Resume(ctx, job.ID(*id))
	if err != nil {
		return reportError(err)
	}
	fmt.Println(outcome)
	return runJobToCompletion(ctx, reg, job.ID(*id))
}

func cmdResumeFromFiles(ctx context.Context, reg *registry.Registry, args []string) int {
	fs := flag.NewFlagSet("resume-from-files", flag.ContinueOnError)
	id := fs.String("id", "", "job id")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if err := reg.ResumeFromFiles(ctx, job.ID(*id)); err != nil {
		return reportError(err)
	}
	fmt.Println(registry.ControlResumed)
	return runJobToCompletion(ctx, reg, job.ID(*id))
}

// runJobToCompletion blocks until id's worker exits or ctx is cancelled;
// on cancel it requests a clean stop and waits for the final checkpoint.
func runJobToCompletion(ctx context.Context, reg *registry.Registry, id job.ID) int {
	if err := reg.Wait(ctx, id); err != nil {
		_, _ = reg.Stop(id)
		_ = reg.Wait(context.Background(), id)
	}

	st, err := reg.Status(id)
	if err != nil {
		return reportError(err)
	}
	fmt.Printf("job %s %s: visited %d URLs\n", id, st.State.Status, st.State.URLsVisitedThisSession)
	return 0
}

func cmdClear(reg *registry.Registry, args []string) int {
	fs := flag.NewFlagSet("clear", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return 1
	}
	counts, err := reg.ClearAll()
	if err != nil {
		return reportError(err)
	}
	fmt.Printf("removed %d files, dropped %d live workers\n", counts.FilesRemoved, counts.WorkersDropped)
	return 0
}

func cmdStats(reg *registry.Registry, args []string) int {
	fs := flag.NewFlagSet("stats", flag.ContinueOnError)
	asJSON := fs.Bool("json", false, "output as JSON")
	if err := fs.Parse(args); err != nil {
		return 1
	}

	stats, err := reg.Statistics()
	if err != nil {
		return reportError(err)
	}
	out := result.Stats{
		VisitedCount:      stats.VisitedCount,
		PartitionCounts:   stats.PartitionCounts,
		ActiveWorkerCount: stats.ActiveWorkerCount,
	}
	if *asJSON {
		if err := result.WriteJSONValue(os.Stdout, out); err != nil {
			return reportError(err)
		}
		return 0
	}
	result.PrintStats(os.Stdout, &out)

	vs, err := reg.VisitedStats()
	if err != nil {
		return reportError(err)
	}
	if len(vs.ByDomain) > 0 {
		fmt.Println("visits by domain:")
		for _, domain := range vs.SortedDomains() {
			fmt.Printf("  %-40s %d\n", domain, vs.ByDomain[domain])
		}
	}
	return 0
}

func cmdSearch(reg *registry.Registry, args []string) int {
	fs := flag.NewFlagSet("search", flag.ContinueOnError)
	sortBy := fs.String("sort", "relevance", "sort order: relevance, frequency, or depth")
	offset := fs.Int("offset", 0, "pagination offset")
	limit := fs.Int("limit", 20, "pagination limit")
	asJSON := fs.Bool("json", false, "output as JSON")
	asCSV := fs.Bool("csv", false, "output as CSV")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "search requires a query argument")
		return 1
	}
	query := fs.Arg(0)

	engine := search.New(reg.Store())
	hits, total, err := engine.Search(query, search.SortCriterion(*sortBy), *offset, *limit)
	if err != nil {
		return reportError(err)
	}

	searchHits := make([]result.SearchHit, len(hits))
	for i, h := range hits {
		searchHits[i] = result.SearchHit{
			Word:           h.Word,
			RelevantURL:    h.RelevantURL,
			OriginURL:      h.OriginURL,
			Depth:          h.Depth,
			Frequency:      h.Frequency,
			RelevanceScore: h.Score,
		}
	}

	switch {
	case *asJSON:
		if err := result.WriteJSON(os.Stdout, searchHits); err != nil {
			return reportError(err)
		}
		return 0
	case *asCSV:
		if err := result.WriteCSV(os.Stdout, searchHits); err != nil {
			return reportError(err)
		}
		return 0
	default:
		result.PrintSearchResults(os.Stdout, &result.SearchResponse{Results: searchHits, TotalResults: total})
		return 0
	}
}

func cmdRandomWord(reg *registry.Registry, args []string) int {
	fs := flag.NewFlagSet("random-word", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return 1
	}
	word, err := search.New(reg.Store()).RandomWord()
	if err != nil {
		return reportError(err)
	}
	fmt.Println(word)
	return 0
}

func cmdWatch(ctx context.Context, cancel context.CancelFunc, reg *registry.Registry) int {
	model := tui.NewModel(ctx, cancel, reg)
	program := tea.NewProgram(model)
	if _, err := program.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func toStatusView(id job.ID, st registry.Status) result.JobStatusView {
	return result.JobStatusView{
		JobID:            string(id),
		Status:           string(st.State.Status),
		Origin:           st.Config.Origin,
		MaxDepth:         st.Config.MaxDepth,
		HitRate:          st.Config.HitRate,
		MaxQueueCapacity: st.Config.MaxQueueCapacity,
		MaxURLsToVisit:   st.Config.MaxURLsToVisit,
		VisitedCount:     st.State.URLsVisitedThisSession,
		CreatedAt:        st.State.CreatedAt,
		UpdatedAt:        st.State.UpdatedAt,
		CompletedAt:      st.State.CompletedAt,
		Logs:             st.Logs,
		QueuePreview:     st.QueuePreview,
	}
}

func reportError(err error) int {
	switch result.Classify(err) {
	case result.CategoryNotFound:
		fmt.Fprintf(os.Stderr, "Not found: %v\n", err)
	case result.CategoryInvalidInput:
		fmt.Fprintf(os.Stderr, "Invalid input: %v\n", err)
	case result.CategoryConflict:
		fmt.Fprintf(os.Stderr, "Conflict: %v\n", err)
	default:
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	return 1
}
