package knowledge

import (
	"context"
	"log/slog"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
)

const (
	// DefaultMargin is added to every per-query top_k so that splitting a
	// budget across many queries never asks for zero passages.
	DefaultMargin = 2
	// MaxDisplaySources caps the deduplicated source list.
	MaxDisplaySources = 15
	// MinTitleLength is the shortest title (in runes) kept as a citation.
	MinTitleLength = 10
)

// Aggregated is the merged outcome of a batch of queries.
type Aggregated struct {
	CombinedText  string
	UniqueSources []SourceRecord
	QueryCount    int
	// SourceCount is the deduplicated total before the display cap.
	SourceCount int
	FailedCount int
}

// Found reports whether at least one query produced answer text.
func (a Aggregated) Found() bool {
	return a.CombinedText != ""
}

// Aggregator fans a list of queries out to a Sender, one at a time.
type Aggregator struct {
	sender     Sender
	margin     int
	maxSources int
	logger     *slog.Logger
}

// NewAggregator returns an Aggregator with the default margin and cap.
func NewAggregator(s Sender, logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{
		sender:     s,
		margin:     DefaultMargin,
		maxSources: MaxDisplaySources,
		logger:     logger,
	}
}

// PerQueryTopK splits total across n queries.
func PerQueryTopK(total, n, margin int) int {
	if margin < 1 {
		margin = 1
	}
	if n < 1 || total < 0 {
		return margin
	}
	return total/n + margin
}

// Aggregate sends every query exactly once and merges the answers. Failed
// or empty answers are skipped; only when all of them fail is CombinedText
// left empty.
func (a *Aggregator) Aggregate(ctx context.Context, queries []string, topKTotal int) Aggregated {
	out := Aggregated{QueryCount: len(queries)}
	if len(queries) == 0 {
		return out
	}

	topK := PerQueryTopK(topKTotal, len(queries), a.margin)

	var texts []string
	var sources []SourceRecord
	for _, q := range queries {
		res := a.sender.Send(ctx, Request{Query: q, TopK: topK})
		if res.Failed() {
			out.FailedCount++
			a.logger.Warn("Query failed", "query", q, "error", res.Error)
			continue
		}
		if res.Text == "" {
			a.logger.Info("Query returned no text", "query", q)
			continue
		}
		texts = append(texts, res.Text)
		sources = append(sources, res.Sources...)
	}

	out.CombinedText = strings.Join(texts, "\n\n")
	unique := DedupeSources(sources)
	out.SourceCount = len(unique)
	if len(unique) > a.maxSources {
		unique = unique[:a.maxSources]
	}
	out.UniqueSources = unique
	return out
}

// DedupeSources drops short or empty titles and keeps the first record for
// every normalized title, preserving order.
func DedupeSources(in []SourceRecord) []SourceRecord {
	seen := make(map[string]bool, len(in))
	var out []SourceRecord
	for _, s := range in {
		title := collapseSpaces(s.Title)
		if utf8.RuneCountInString(title) < MinTitleLength {
			continue
		}
		key := NormalizeTitle(title)
		if seen[key] {
			continue
		}
		seen[key] = true
		s.Title = title
		out = append(out, s)
	}
	return out
}

// NormalizeTitle case-folds a title and collapses its whitespace.
func NormalizeTitle(title string) string {
	return cases.Fold().String(collapseSpaces(title))
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
