package result

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
)

// WriteJSON writes search hits as a formatted JSON array to w. Uses a flat
// array format (not wrapped with metadata) for simpler CI/pipe integration.
func WriteJSON(w io.Writer, hits []SearchHit) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(hits); err != nil {
		return fmt.Errorf("write json output: %w", err)
	}
	return nil
}

// WriteCSV writes search hits as CSV to w, always including a header row.
// Column order: word, relevant_url, origin_url, depth, frequency,
// relevance_score.
func WriteCSV(w io.Writer, hits []SearchHit) error {
	cw := csv.NewWriter(w)

	header := []string{"word", "relevant_url", "origin_url", "depth", "frequency", "relevance_score"}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	for _, h := range hits {
		record := []string{
			h.Word,
			h.RelevantURL,
			h.OriginURL,
			strconv.Itoa(h.Depth),
			strconv.Itoa(h.Frequency),
			strconv.Itoa(h.RelevanceScore),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write csv record for %s: %w", h.RelevantURL, err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv output: %w", err)
	}
	return nil
}

// WriteJobListJSON writes job summaries as a formatted JSON array to w.
func WriteJobListJSON(w io.Writer, jobs []JobSummary) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(jobs); err != nil {
		return fmt.Errorf("write json output: %w", err)
	}
	return nil
}

// WriteJSONValue writes any control-plane result value (a JobStatusView,
// Stats, or similar) as formatted JSON to w.
func WriteJSONValue(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("write json output: %w", err)
	}
	return nil
}
