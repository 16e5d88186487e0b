package finance

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mikeboe/finance-assistant/pkg/config"
	"github.com/mikeboe/finance-assistant/pkg/knowledge"
	"github.com/mikeboe/finance-assistant/pkg/metrics"
)

// mockBackend is a knowledge base that records every request body.
type mockBackend struct {
	mu       sync.Mutex
	calls    int32
	requests []knowledge.Request
	status   int
	body     string
}

func (m *mockBackend) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&m.calls, 1)
		var req knowledge.Request
		_ = json.NewDecoder(r.Body).Decode(&req)
		m.mu.Lock()
		m.requests = append(m.requests, req)
		m.mu.Unlock()
		if m.status != 0 && m.status != http.StatusOK {
			w.WriteHeader(m.status)
			return
		}
		_, _ = w.Write([]byte(m.body))
	})
}

func newBackend(t *testing.T, body string) (*mockBackend, config.KnowledgeBaseConfig) {
	t.Helper()
	m := &mockBackend{body: body}
	ts := httptest.NewServer(m.handler())
	t.Cleanup(ts.Close)
	return m, config.KnowledgeBaseConfig{
		URL:     ts.URL,
		APIKey:  "test-key",
		Paths:   []string{"/query"},
		Timeout: 2 * time.Second,
	}
}

const backendAnswer = `{
	"response": "RSI mean reversion works on daily bars.",
	"source_nodes": [
		{"metadata": {"title": "Momentum Trading Strategies", "authors": "Jegadeesh, Titman", "year": 1993}},
		{"metadata": {"title": "  momentum trading strategies  "}},
		{"metadata": {"title": "RSI"}}
	]
}`

func TestSearchIndicatorStrategies(t *testing.T) {
	m, cfg := newBackend(t, backendAnswer)
	reg := NewRegistryFromConfig(context.Background(), cfg)
	require.False(t, reg.Degraded())

	out := reg.SearchIndicatorStrategies(context.Background(), IndicatorArgs{IndicatorName: "rsi", Timeframe: "1d"})

	assert.Contains(t, out, "RSI")
	assert.Contains(t, out, "RSI mean reversion works on daily bars.")
	assert.Contains(t, out, "1. Momentum Trading Strategies - Jegadeesh, Titman (1993)")
	assert.NotContains(t, out, "2.")
	require.Len(t, m.requests, 1)
	assert.Equal(t, TopKBudget(KindIndicator)+knowledge.DefaultMargin, m.requests[0].TopK)
	assert.Contains(t, m.requests[0].Query, "timeframe 1d")
}

func TestSearchIndicatorStrategiesAlwaysNamesIndicator(t *testing.T) {
	_, cfg := newBackend(t, `{"response": null}`)
	live := NewRegistryFromConfig(context.Background(), cfg)
	degraded := NewRegistry(nil)

	for _, name := range []string{"rsi", "Bollinger Bands", "macd"} {
		for _, tf := range []string{"", "any", "5min", "4h"} {
			args := IndicatorArgs{IndicatorName: name, Timeframe: tf}
			for _, reg := range []*Registry{live, degraded} {
				out := reg.SearchIndicatorStrategies(context.Background(), args)
				assert.NotEmpty(t, out)
				assert.Contains(t, out, strings.ToUpper(name))
			}
		}
	}
}

func TestFindResearchPapersFansOut(t *testing.T) {
	m, cfg := newBackend(t, backendAnswer)
	reg := NewRegistryFromConfig(context.Background(), cfg)

	out := reg.FindResearchPapers(context.Background(), ResearchArgs{Topic: "behavioral finance"})

	require.Len(t, m.requests, 3)
	for _, req := range m.requests {
		assert.Equal(t, researchTopK/3+knowledge.DefaultMargin, req.TopK)
		assert.Contains(t, req.Query, "since 2020")
	}
	assert.Contains(t, out, "Research on: Behavioral Finance (since 2020)")
	assert.Equal(t, 3, strings.Count(out, "RSI mean reversion works on daily bars."))
	assert.Contains(t, out, "Papers found")
}

func TestFindResearchPapersIdempotent(t *testing.T) {
	_, cfg := newBackend(t, backendAnswer)
	reg := NewRegistryFromConfig(context.Background(), cfg)

	first := reg.FindResearchPapers(context.Background(), ResearchArgs{Topic: "behavioral finance", YearFrom: 2020})
	second := reg.FindResearchPapers(context.Background(), ResearchArgs{Topic: "behavioral finance", YearFrom: 2020})
	assert.Equal(t, first, second)
}

func TestCompareStrategiesDegradedMakesNoNetworkCalls(t *testing.T) {
	m, cfg := newBackend(t, backendAnswer)
	cfg.URL = ""

	rec := metrics.NewRecorder()
	reg := NewRegistryFromConfig(context.Background(), cfg, WithMetrics(rec))
	require.True(t, reg.Degraded())

	out := reg.CompareStrategies(context.Background(), ComparisonArgs{Strategy1: "RSI", Strategy2: "MACD"})

	assert.Contains(t, out, "Comparison: Rsi vs Macd")
	assert.Contains(t, out, unavailableBody)
	assert.Equal(t, int32(0), atomic.LoadInt32(&m.calls))
}

func TestBackendDownRendersNotFound(t *testing.T) {
	m, cfg := newBackend(t, "")
	m.status = http.StatusServiceUnavailable
	reg := NewRegistryFromConfig(context.Background(), cfg)

	out := reg.AnalyzeMarketConditions(context.Background(), MarketArgs{MarketType: "volatile"})

	assert.Contains(t, out, "VOLATILE market (technical approach)")
	assert.Contains(t, out, notFoundNotice)
	assert.True(t, strings.HasSuffix(out, marketFooter))
}

func TestProbeOnStartDegradesWhenUnreachable(t *testing.T) {
	m, cfg := newBackend(t, "")
	m.status = http.StatusBadGateway
	cfg.ProbeOnStart = true

	reg := NewRegistryFromConfig(context.Background(), cfg)
	assert.True(t, reg.Degraded())
	assert.Equal(t, int32(1), atomic.LoadInt32(&m.calls))
}

func TestInvoke(t *testing.T) {
	_, cfg := newBackend(t, backendAnswer)
	reg := NewRegistryFromConfig(context.Background(), cfg)
	ctx := context.Background()

	out := reg.Invoke(ctx, ToolSearchIndicatorStrategies, json.RawMessage(`{"indicator_name": "macd"}`))
	assert.Contains(t, out, "Strategies using MACD")

	out = reg.Invoke(ctx, ToolFindResearchPapers, json.RawMessage(`{"topic": "pairs trading", "year_from": 2018}`))
	assert.Contains(t, out, "since 2018")

	out = reg.Invoke(ctx, "place_order", nil)
	assert.True(t, strings.HasPrefix(out, "❌"))

	out = reg.Invoke(ctx, ToolCompareStrategies, json.RawMessage(`{"strategy1": 1}`))
	assert.True(t, strings.HasPrefix(out, "❌"))

	out = reg.Invoke(ctx, ToolAnalyzeMarketConditions, json.RawMessage(`{}`))
	assert.Contains(t, out, "market_type is required")
}

type panickingSender struct{}

func (panickingSender) Send(context.Context, knowledge.Request) knowledge.Result {
	panic("unexpected response shape")
}

func TestRunRecoversPanics(t *testing.T) {
	reg := NewRegistry(panickingSender{})
	out := reg.CompareStrategies(context.Background(), ComparisonArgs{Strategy1: "a", Strategy2: "b"})
	assert.True(t, strings.HasPrefix(out, "❌"))
	assert.Contains(t, out, "unexpected response shape")
}

func TestSpecs(t *testing.T) {
	reg := NewRegistry(nil)
	specs := reg.Specs()
	require.Len(t, specs, 4)

	names := make([]string, 0, len(specs))
	for _, s := range specs {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{
		ToolSearchIndicatorStrategies,
		ToolCompareStrategies,
		ToolAnalyzeMarketConditions,
		ToolFindResearchPapers,
	}, names)

	spec, ok := reg.Spec(ToolFindResearchPapers)
	require.True(t, ok)
	schema := spec.InputSchema()
	assert.Equal(t, []string{"topic"}, schema["required"])
	props := schema["properties"].(map[string]any)
	assert.Equal(t, DefaultYearFrom, props["year_from"].(map[string]any)["default"])
}

func TestRegistryPing(t *testing.T) {
	m, cfg := newBackend(t, backendAnswer)
	reg := NewRegistryFromConfig(context.Background(), cfg)

	res := reg.Ping(context.Background())
	assert.False(t, res.Failed())
	require.Len(t, m.requests, 1)
	assert.Equal(t, 1, m.requests[0].TopK)

	degraded := NewRegistry(nil)
	assert.True(t, degraded.Ping(context.Background()).Failed())
}

func TestAnalyzeMarketConditionsAnyUsesDefaultApproach(t *testing.T) {
	m, cfg := newBackend(t, backendAnswer)
	reg := NewRegistryFromConfig(context.Background(), cfg)

	out := reg.AnalyzeMarketConditions(context.Background(), MarketArgs{MarketType: "volatile", AnalysisType: "any"})

	assert.Contains(t, out, "Analysis for VOLATILE market (technical approach)")
	assert.NotContains(t, out, "any approach")
	require.Len(t, m.requests, 1)
	assert.Contains(t, m.requests[0].Query, "technical analysis")
}
