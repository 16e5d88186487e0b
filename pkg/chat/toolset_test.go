package chat

import (
	"testing"

	"github.com/mikeboe/finance-assistant/pkg/finance"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFinanceToolsetExposesAllTools(t *testing.T) {
	ts := NewFinanceToolset(finance.NewRegistry(nil))
	assert.Equal(t, "finance_tools", ts.Name())

	tools, err := ts.Tools(nil)
	require.NoError(t, err)
	require.Len(t, tools, 4)

	names := make([]string, 0, len(tools))
	for _, tl := range tools {
		names = append(names, tl.Name())
		assert.NotEmpty(t, tl.Description())
	}
	assert.Equal(t, []string{
		finance.ToolSearchIndicatorStrategies,
		finance.ToolCompareStrategies,
		finance.ToolAnalyzeMarketConditions,
		finance.ToolFindResearchPapers,
	}, names)
}
