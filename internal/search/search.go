// Package search implements the Search & Ranking Engine (C6): query
// normalization, partition selection, prefix-truncation matching, and score
// composition against the Index Store a crawl job writes to.
package search

import (
	"fmt"
	"math/rand"
	"regexp"
	"sort"
	"strings"

	"github.com/lukemcguire/webdex/internal/job"
	"github.com/lukemcguire/webdex/internal/store"
)

// minExactLen is the token length below which only an exact match counts;
// shorter tokens never prefix-match.
const minExactLen = 3

// Sort criteria accepted by Search; an unrecognized value defaults to
// SortRelevance.
type SortCriterion string

const (
	SortRelevance SortCriterion = "relevance"
	SortFrequency SortCriterion = "frequency"
	SortDepth     SortCriterion = "depth"
)

var tokenPattern = regexp.MustCompile(`[a-z]{2,}`)

// Normalize lowercases query and extracts its [a-z]{2,} tokens.
func Normalize(query string) []string {
	return tokenPattern.FindAllString(strings.ToLower(query), -1)
}

// ErrNoSearchTerms is returned when a query normalizes to zero tokens.
var ErrNoSearchTerms = fmt.Errorf("search: no valid search terms")

// Result is one ranked, deduplicated hit.
type Result struct {
	Word        string
	RelevantURL string
	OriginURL   string
	Depth       int
	Frequency   int
	Score       int
}

// Engine answers ranked queries against a shared Index Store.
type Engine struct {
	store *store.Store
}

// New constructs an Engine reading from st.
func New(st *store.Store) *Engine {
	return &Engine{store: st}
}

// Search normalizes query, loads the partitions its tokens touch, matches
// and scores candidate entries, deduplicates by relevant_url keeping the
// highest score, sorts by criterion, and paginates. It returns the paged
// slice plus the total pre-pagination match count.
func (e *Engine) Search(query string, criterion SortCriterion, pageOffset, pageLimit int) ([]Result, int, error) {
	tokens := Normalize(query)
	if len(tokens) == 0 {
		return nil, 0, ErrNoSearchTerms
	}

	byLetter := make(map[string][]string)
	for _, tok := range tokens {
		letter := string(tok[0])
		byLetter[letter] = append(byLetter[letter], tok)
	}

	best := make(map[string]Result)
	for letter, toks := range byLetter {
		partition, err := e.store.Load(letter)
		if err != nil {
			return nil, 0, fmt.Errorf("load partition %s: %w", letter, err)
		}
		for _, tok := range toks {
			for _, m := range matchWords(tok, partition) {
				for _, entry := range partition[m] {
					score := scoreEntry(entry, tok, m)
					existing, ok := best[entry.RelevantURL]
					if !ok || score > existing.Score {
						best[entry.RelevantURL] = Result{
							Word:        m,
							RelevantURL: entry.RelevantURL,
							OriginURL:   entry.OriginURL,
							Depth:       entry.Depth,
							Frequency:   entry.Frequency,
							Score:       score,
						}
					}
				}
			}
		}
	}

	results := make([]Result, 0, len(best))
	for _, r := range best {
		results = append(results, r)
	}
	sortResults(results, criterion)

	total := len(results)
	return paginate(results, pageOffset, pageLimit), total, nil
}

// matchWords returns the partition keys matched by query token q: an exact
// match if |q| < 3, otherwise every key obtained by truncating q to each
// length from |q| down to 3 that exists in the partition (the full-length
// exact match, if present, is always included).
func matchWords(q string, partition map[string][]job.WordEntry) []string {
	if len(q) < minExactLen {
		if _, ok := partition[q]; ok {
			return []string{q}
		}
		return nil
	}

	var matches []string
	for i := len(q); i >= minExactLen; i-- {
		prefix := q[:i]
		if _, ok := partition[prefix]; ok {
			matches = append(matches, prefix)
		}
	}
	return matches
}

// scoreEntry composes the score for a (query token q, matched word m) pair
// against entry e:
//
//	score = 10*freq + (1000 if q==m else 500*|m|/|q| truncated) - 5*depth
//	score = max(score, 0)
//
// The prefix bonus truncates; it never rounds.
func scoreEntry(e job.WordEntry, q, m string) int {
	score := 10*e.Frequency - 5*e.Depth
	if q == m {
		score += 1000
	} else {
		score += (500 * len(m)) / len(q)
	}
	if score < 0 {
		return 0
	}
	return score
}

func sortResults(results []Result, criterion SortCriterion) {
	switch criterion {
	case SortFrequency:
		sort.SliceStable(results, func(i, j int) bool { return results[i].Frequency > results[j].Frequency })
	case SortDepth:
		sort.SliceStable(results, func(i, j int) bool { return results[i].Depth < results[j].Depth })
	default:
		sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	}
}

func paginate(results []Result, offset, limit int) []Result {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(results) {
		return []Result{}
	}
	end := offset + limit
	if limit <= 0 || end > len(results) {
		end = len(results)
	}
	return results[offset:end]
}

// RandomWord selects one partition uniformly at random from those present
// on disk, loads it, and returns one of its keys uniformly at random.
func (e *Engine) RandomWord() (string, error) {
	letters, err := e.store.Partitions()
	if err != nil {
		return "", fmt.Errorf("list partitions: %w", err)
	}
	if len(letters) == 0 {
		return "", fmt.Errorf("search: index is empty")
	}

	letter := letters[rand.Intn(len(letters))]
	partition, err := e.store.Load(letter)
	if err != nil {
		return "", fmt.Errorf("load partition %s: %w", letter, err)
	}
	if len(partition) == 0 {
		return "", fmt.Errorf("search: partition %s is empty", letter)
	}

	words := make([]string, 0, len(partition))
	for w := range partition {
		words = append(words, w)
	}
	return words[rand.Intn(len(words))], nil
}
