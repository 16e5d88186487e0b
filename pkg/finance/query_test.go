package finance

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndicatorQueries(t *testing.T) {
	tests := []struct {
		name string
		args IndicatorArgs
		want string
	}{
		{
			"with timeframe",
			IndicatorArgs{IndicatorName: "RSI", Timeframe: "1h"},
			"technical indicator RSI timeframe 1h trading strategy entry and exit conditions parameter settings backtest results",
		},
		{
			"any timeframe omitted",
			IndicatorArgs{IndicatorName: "MACD", Timeframe: "any"},
			"technical indicator MACD trading strategy entry and exit conditions parameter settings backtest results",
		},
		{
			"empty timeframe omitted",
			IndicatorArgs{IndicatorName: "EMA"},
			"technical indicator EMA trading strategy entry and exit conditions parameter settings backtest results",
		},
		{
			"ANY is case-insensitive",
			IndicatorArgs{IndicatorName: "SMA", Timeframe: "ANY"},
			"technical indicator SMA trading strategy entry and exit conditions parameter settings backtest results",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, []string{tt.want}, IndicatorQueries(tt.args))
		})
	}
}

func TestComparisonQueries(t *testing.T) {
	got := ComparisonQueries(ComparisonArgs{Strategy1: "momentum", Strategy2: "contrarian"})
	require.Len(t, got, 1)
	assert.Equal(t, "comparison of trading strategies momentum versus contrarian advantages disadvantages performance", got[0])
}

func TestMarketQueries(t *testing.T) {
	got := MarketQueries(MarketArgs{MarketType: "volatile", AnalysisType: "quantitative"})
	assert.Equal(t, []string{
		"trading strategy quantitative analysis market conditions volatile risk management historical results practical application",
	}, got)

	got = MarketQueries(MarketArgs{MarketType: "sideways"})
	assert.True(t, strings.HasPrefix(got[0], "trading strategy technical analysis"))
}

func TestResearchQueriesFanOut(t *testing.T) {
	got := ResearchQueries(ResearchArgs{Topic: "behavioral finance", YearFrom: 2021})
	require.Len(t, got, 3)

	assert.Contains(t, got[0], "methodology")
	assert.Contains(t, got[1], "results")
	assert.Contains(t, got[1], "practical")
	assert.Contains(t, got[2], "model formula algorithm")
	for _, q := range got {
		assert.Contains(t, q, "behavioral finance")
		assert.Contains(t, q, "since 2021")
	}
}

func TestBuildQueriesDeterministic(t *testing.T) {
	args := ResearchArgs{Topic: "machine learning trading", YearFrom: 2020}
	a, err := BuildQueries(args)
	require.NoError(t, err)
	b, err := BuildQueries(args)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestBuildQueriesUnsupported(t *testing.T) {
	_, err := BuildQueries("not args")
	assert.Error(t, err)
}
