package finance

import (
	"fmt"
	"strings"
)

// Kind selects the query template and the report layout of a tool.
type Kind int

const (
	KindIndicator Kind = iota
	KindComparison
	KindMarketCondition
	KindResearch
)

func (k Kind) String() string {
	switch k {
	case KindIndicator:
		return "indicator"
	case KindComparison:
		return "comparison"
	case KindMarketCondition:
		return "market_condition"
	case KindResearch:
		return "research"
	}
	return "unknown"
}

// Total top_k budgets per tool kind. Research splits its budget across the
// fan-out variants.
const (
	indicatorTopK  = 7
	comparisonTopK = 6
	marketTopK     = 8
	researchTopK   = 10
)

// TopKBudget returns the total number of passages requested for a kind.
func TopKBudget(k Kind) int {
	switch k {
	case KindIndicator:
		return indicatorTopK
	case KindComparison:
		return comparisonTopK
	case KindMarketCondition:
		return marketTopK
	case KindResearch:
		return researchTopK
	}
	return 5
}

// IndicatorArgs are the arguments of search_indicator_strategies.
type IndicatorArgs struct {
	IndicatorName string `json:"indicator_name" jsonschema:"Indicator name (RSI, MACD, SMA, EMA, Bollinger Bands, etc.)"`
	Timeframe     string `json:"timeframe,omitempty" jsonschema:"Timeframe (1min, 5min, 15min, 1h, 4h, 1d, etc.); 'any' for all"`
}

// ComparisonArgs are the arguments of compare_strategies.
type ComparisonArgs struct {
	Strategy1 string `json:"strategy1" jsonschema:"First strategy to compare"`
	Strategy2 string `json:"strategy2" jsonschema:"Second strategy to compare"`
}

// MarketArgs are the arguments of analyze_market_conditions.
type MarketArgs struct {
	MarketType   string `json:"market_type" jsonschema:"Market type (trending, sideways, volatile, bearish, bullish, crisis)"`
	AnalysisType string `json:"analysis_type,omitempty" jsonschema:"Analysis type (technical, fundamental, behavioral, quantitative)"`
}

// ResearchArgs are the arguments of find_research_papers.
type ResearchArgs struct {
	Topic    string `json:"topic" jsonschema:"Research topic, e.g. 'machine learning trading' or 'behavioral finance'"`
	YearFrom int    `json:"year_from,omitempty" jsonschema:"Earliest publication year (default 2020)"`
}

// optional reports whether an optional argument should produce a clause.
func optional(v string) bool {
	v = strings.TrimSpace(v)
	return v != "" && !strings.EqualFold(v, "any") && !strings.EqualFold(v, "null")
}

func joinParts(parts ...string) string {
	var kept []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, " ")
}

// IndicatorQueries builds the single indicator query.
func IndicatorQueries(args IndicatorArgs) []string {
	tf := ""
	if optional(args.Timeframe) {
		tf = "timeframe " + strings.TrimSpace(args.Timeframe)
	}
	return []string{joinParts(
		"technical indicator "+strings.TrimSpace(args.IndicatorName),
		tf,
		"trading strategy",
		"entry and exit conditions",
		"parameter settings",
		"backtest results",
	)}
}

// ComparisonQueries builds the single comparison query.
func ComparisonQueries(args ComparisonArgs) []string {
	return []string{joinParts(
		"comparison of trading strategies",
		strings.TrimSpace(args.Strategy1),
		"versus",
		strings.TrimSpace(args.Strategy2),
		"advantages disadvantages performance",
	)}
}

// MarketQueries builds the single market-condition query.
func MarketQueries(args MarketArgs) []string {
	market := ""
	if optional(args.MarketType) {
		market = "market conditions " + strings.TrimSpace(args.MarketType)
	}
	analysis := strings.TrimSpace(args.AnalysisType)
	if !optional(analysis) {
		analysis = DefaultAnalysisType
	}
	return []string{joinParts(
		"trading strategy "+analysis+" analysis",
		market,
		"risk management",
		"historical results",
		"practical application",
	)}
}

// ResearchQueries fans a topic out into methodology, results and model
// variants. A single query under-retrieves multi-faceted research topics.
func ResearchQueries(args ResearchArgs) []string {
	topic := strings.TrimSpace(args.Topic)
	since := ""
	if args.YearFrom > 0 {
		since = fmt.Sprintf("since %d", args.YearFrom)
	}
	return []string{
		joinParts("research", topic, since, "methodology approach"),
		joinParts(topic, since, "empirical results practical application"),
		joinParts(topic, since, "model formula algorithm"),
	}
}

// BuildQueries expands tool arguments into the ordered query list.
func BuildQueries(args any) ([]string, error) {
	switch a := args.(type) {
	case IndicatorArgs:
		return IndicatorQueries(a), nil
	case ComparisonArgs:
		return ComparisonQueries(a), nil
	case MarketArgs:
		return MarketQueries(a), nil
	case ResearchArgs:
		return ResearchQueries(a), nil
	}
	return nil, fmt.Errorf("unsupported tool arguments %T", args)
}
