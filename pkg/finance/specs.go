package finance

// ArgumentSpec declares one tool parameter.
type ArgumentSpec struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Default     any    `json:"default,omitempty"`
	Description string `json:"description"`
	Required    bool   `json:"required"`
}

// ToolSpec declares a tool for agent frameworks.
type ToolSpec struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Arguments   []ArgumentSpec `json:"arguments"`
}

// InputSchema renders the arguments as a JSON schema object.
func (t ToolSpec) InputSchema() map[string]any {
	props := make(map[string]any, len(t.Arguments))
	required := []string{}
	for _, a := range t.Arguments {
		p := map[string]any{
			"type":        a.Type,
			"description": a.Description,
		}
		if a.Default != nil {
			p["default"] = a.Default
		}
		props[a.Name] = p
		if a.Required {
			required = append(required, a.Name)
		}
	}
	return map[string]any{
		"type":       "object",
		"properties": props,
		"required":   required,
	}
}

func toolSpecs() []ToolSpec {
	return []ToolSpec{
		{
			Name:        ToolSearchIndicatorStrategies,
			Description: "Search trading strategies built on a specific technical indicator, with entry/exit conditions, parameters and backtest results from research papers.",
			Arguments: []ArgumentSpec{
				{Name: "indicator_name", Type: "string", Description: "Indicator name (RSI, MACD, SMA, EMA, Bollinger Bands, etc.)", Required: true},
				{Name: "timeframe", Type: "string", Default: DefaultTimeframe, Description: "Timeframe (1min, 5min, 15min, 1h, 4h, 1d, etc.); 'any' for all"},
			},
		},
		{
			Name:        ToolCompareStrategies,
			Description: "Compare two trading strategies or approaches: advantages, drawbacks and reported performance.",
			Arguments: []ArgumentSpec{
				{Name: "strategy1", Type: "string", Description: "First strategy to compare", Required: true},
				{Name: "strategy2", Type: "string", Description: "Second strategy to compare", Required: true},
			},
		},
		{
			Name:        ToolAnalyzeMarketConditions,
			Description: "Analyze which strategies suit given market conditions.",
			Arguments: []ArgumentSpec{
				{Name: "market_type", Type: "string", Description: "Market type (trending, sideways, volatile, bearish, bullish, crisis)", Required: true},
				{Name: "analysis_type", Type: "string", Default: DefaultAnalysisType, Description: "Analysis type (technical, fundamental, behavioral, quantitative)"},
			},
		},
		{
			Name:        ToolFindResearchPapers,
			Description: "Find research papers on a finance topic published since a given year.",
			Arguments: []ArgumentSpec{
				{Name: "topic", Type: "string", Description: "Research topic, e.g. 'machine learning trading' or 'behavioral finance'", Required: true},
				{Name: "year_from", Type: "integer", Default: DefaultYearFrom, Description: "Earliest publication year"},
			},
		},
	}
}
