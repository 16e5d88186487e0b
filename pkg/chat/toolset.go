package chat

import (
	"fmt"

	"github.com/mikeboe/finance-assistant/pkg/finance"
	"google.golang.org/adk/agent"
	"google.golang.org/adk/tool"
	"google.golang.org/adk/tool/functiontool"
)

// FinanceToolset exposes the finance registry to an ADK agent.
type FinanceToolset struct {
	registry *finance.Registry
}

func NewFinanceToolset(registry *finance.Registry) *FinanceToolset {
	return &FinanceToolset{registry: registry}
}

func (t *FinanceToolset) Name() string {
	return "finance_tools"
}

func (t *FinanceToolset) Tools(ctx agent.ReadonlyContext) ([]tool.Tool, error) {
	descriptions := make(map[string]string)
	for _, spec := range t.registry.Specs() {
		descriptions[spec.Name] = spec.Description
	}

	indicatorTool, err := functiontool.New[finance.IndicatorArgs, ToolResp](
		functiontool.Config{
			Name:        finance.ToolSearchIndicatorStrategies,
			Description: descriptions[finance.ToolSearchIndicatorStrategies],
		},
		t.searchIndicatorStrategiesTool,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s tool: %w", finance.ToolSearchIndicatorStrategies, err)
	}

	compareTool, err := functiontool.New[finance.ComparisonArgs, ToolResp](
		functiontool.Config{
			Name:        finance.ToolCompareStrategies,
			Description: descriptions[finance.ToolCompareStrategies],
		},
		t.compareStrategiesTool,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s tool: %w", finance.ToolCompareStrategies, err)
	}

	marketTool, err := functiontool.New[finance.MarketArgs, ToolResp](
		functiontool.Config{
			Name:        finance.ToolAnalyzeMarketConditions,
			Description: descriptions[finance.ToolAnalyzeMarketConditions],
		},
		t.analyzeMarketConditionsTool,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s tool: %w", finance.ToolAnalyzeMarketConditions, err)
	}

	researchTool, err := functiontool.New[finance.ResearchArgs, ToolResp](
		functiontool.Config{
			Name:        finance.ToolFindResearchPapers,
			Description: descriptions[finance.ToolFindResearchPapers],
		},
		t.findResearchPapersTool,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s tool: %w", finance.ToolFindResearchPapers, err)
	}

	return []tool.Tool{indicatorTool, compareTool, marketTool, researchTool}, nil
}

// ToolResp carries the formatted answer back to the model.
type ToolResp struct {
	Result string `json:"result"`
}

func (t *FinanceToolset) searchIndicatorStrategiesTool(ctx tool.Context, args finance.IndicatorArgs) (ToolResp, error) {
	return ToolResp{Result: t.registry.SearchIndicatorStrategies(ctx, args)}, nil
}

func (t *FinanceToolset) compareStrategiesTool(ctx tool.Context, args finance.ComparisonArgs) (ToolResp, error) {
	return ToolResp{Result: t.registry.CompareStrategies(ctx, args)}, nil
}

func (t *FinanceToolset) analyzeMarketConditionsTool(ctx tool.Context, args finance.MarketArgs) (ToolResp, error) {
	return ToolResp{Result: t.registry.AnalyzeMarketConditions(ctx, args)}, nil
}

func (t *FinanceToolset) findResearchPapersTool(ctx tool.Context, args finance.ResearchArgs) (ToolResp, error) {
	return ToolResp{Result: t.registry.FindResearchPapers(ctx, args)}, nil
}
