package result

import (
	"fmt"
	"io"
	"sort"
)

// PrintSearchResults writes a human-readable rendering of a search
// response to w.
func PrintSearchResults(w io.Writer, resp *SearchResponse) {
	writef := func(format string, a ...any) { _, _ = fmt.Fprintf(w, format, a...) }

	if len(resp.Results) == 0 {
		writef("No results found.\n")
		return
	}
	for i, hit := range resp.Results {
		writef("  %d. %s (score %d)\n", i+1, hit.RelevantURL, hit.RelevanceScore)
		writef("     word: %s  origin: %s  depth: %d  frequency: %d\n",
			hit.Word, hit.OriginURL, hit.Depth, hit.Frequency)
	}
	writef("%d of %d results\n", len(resp.Results), resp.TotalResults)
}

// PrintJobList writes a human-readable rendering of a job list to w.
func PrintJobList(w io.Writer, jobs []JobSummary, activeWorkers int) {
	writef := func(format string, a ...any) { _, _ = fmt.Fprintf(w, format, a...) }

	if len(jobs) == 0 {
		writef("No jobs found.\n")
		return
	}
	for _, j := range jobs {
		writef("  %-20s %-12s %-40s visited=%d\n", j.JobID, j.Status, j.Origin, j.VisitedCount)
	}
	writef("%d jobs, %d active workers\n", len(jobs), activeWorkers)
}

// PrintStatus writes a human-readable rendering of a job status to w.
func PrintStatus(w io.Writer, st *JobStatusView) {
	writef := func(format string, a ...any) { _, _ = fmt.Fprintf(w, format, a...) }

	writef("job %s: %s\n", st.JobID, st.Status)
	writef("  origin: %s\n", st.Origin)
	writef("  visited this session: %d\n", st.VisitedCount)
	writef("  queue (%d pending):\n", len(st.QueuePreview))
	for _, q := range st.QueuePreview {
		writef("    %s\n", q)
	}
	writef("  recent logs:\n")
	for _, l := range st.Logs {
		writef("    %s\n", l)
	}
}

// PrintStats writes a human-readable rendering of aggregate statistics.
func PrintStats(w io.Writer, st *Stats) {
	writef := func(format string, a ...any) { _, _ = fmt.Fprintf(w, format, a...) }

	writef("visited URLs: %d\n", st.VisitedCount)
	writef("active workers: %d\n", st.ActiveWorkerCount)
	writef("index partitions:\n")
	for _, letter := range sortedPartitionLetters(st.PartitionCounts) {
		writef("  %-6s %d\n", letter, st.PartitionCounts[letter])
	}
}

func sortedPartitionLetters(counts map[string]int) []string {
	letters := make([]string, 0, len(counts))
	for l := range counts {
		letters = append(letters, l)
	}
	sort.Strings(letters)
	return letters
}
