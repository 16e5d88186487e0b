package finance

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/mikeboe/finance-assistant/pkg/knowledge"
)

const (
	notFoundNotice = "No relevant information was found in the knowledge base for this request. Try rephrasing it or broadening the topic."

	comparisonFooter = "💡 **Recommendation:** the right strategy depends on your trading goals, risk tolerance and market conditions."
	marketFooter     = "⚠️ **Important:** always account for risk and use stop-losses when trading."
	unavailableBody  = "The research knowledge base is not configured or unreachable, so no live search was performed. Set KNOWLEDGE_BASE_URL and KNOWLEDGE_BASE_API_KEY to enable it."
)

var titleCaser = cases.Title(language.English)

// TitleCase capitalizes every word of s.
func TitleCase(s string) string {
	return titleCaser.String(strings.TrimSpace(s))
}

func titleLine(subject string, kind Kind) string {
	switch kind {
	case KindIndicator:
		return fmt.Sprintf("📊 **Strategies using %s**", subject)
	case KindComparison:
		return fmt.Sprintf("⚖️ **Comparison: %s**", subject)
	case KindMarketCondition:
		return fmt.Sprintf("📈 **Analysis for %s**", subject)
	case KindResearch:
		return fmt.Sprintf("🔬 **Research on: %s**", subject)
	}
	return fmt.Sprintf("**%s**", subject)
}

func sourcesHeader(kind Kind) string {
	if kind == KindResearch {
		return "📄 **Papers found:**"
	}
	return "📚 **Sources:**"
}

func footer(kind Kind) string {
	switch kind {
	case KindComparison:
		return comparisonFooter
	case KindMarketCondition:
		return marketFooter
	}
	return ""
}

func carriesCitations(kind Kind) bool {
	return kind == KindIndicator || kind == KindResearch
}

// Format renders an aggregated result as a report. Sections are separated by
// a blank line in a fixed order: title, body, sources, footer.
func Format(subject string, agg knowledge.Aggregated, kind Kind) string {
	sections := []string{titleLine(subject, kind)}

	if agg.Found() {
		sections = append(sections, agg.CombinedText)
	} else {
		body := notFoundNotice
		if agg.FailedCount > 0 {
			body += fmt.Sprintf("\n(%d of %d knowledge base queries failed.)", agg.FailedCount, agg.QueryCount)
		}
		sections = append(sections, body)
	}

	if carriesCitations(kind) && len(agg.UniqueSources) > 0 {
		sections = append(sections, formatSources(agg, kind))
	}

	if f := footer(kind); f != "" {
		sections = append(sections, f)
	}

	return strings.Join(sections, "\n\n")
}

// FormatUnavailable renders the degraded-mode placeholder.
func FormatUnavailable(subject string, kind Kind) string {
	sections := []string{titleLine(subject, kind), unavailableBody}
	if f := footer(kind); f != "" {
		sections = append(sections, f)
	}
	return strings.Join(sections, "\n\n")
}

func formatSources(agg knowledge.Aggregated, kind Kind) string {
	var sb strings.Builder
	sb.WriteString(sourcesHeader(kind))
	for i, s := range agg.UniqueSources {
		sb.WriteString("\n")
		sb.WriteString(SourceLine(i+1, s))
	}
	if agg.SourceCount > len(agg.UniqueSources) {
		sb.WriteString(fmt.Sprintf("\n(showing %d of %d sources)", len(agg.UniqueSources), agg.SourceCount))
	}
	return sb.String()
}

// SourceLine renders "{index}. {title}[ - {authors}][ ({year})]".
func SourceLine(index int, s knowledge.SourceRecord) string {
	line := fmt.Sprintf("%d. %s", index, s.Title)
	if s.Authors != "" {
		line += " - " + s.Authors
	}
	if s.Year > 0 {
		line += fmt.Sprintf(" (%d)", s.Year)
	}
	return line
}
