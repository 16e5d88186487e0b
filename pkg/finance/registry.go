package finance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mikeboe/finance-assistant/pkg/config"
	"github.com/mikeboe/finance-assistant/pkg/knowledge"
	"github.com/mikeboe/finance-assistant/pkg/metrics"
)

// Tool names exposed to agents.
const (
	ToolSearchIndicatorStrategies = "search_indicator_strategies"
	ToolCompareStrategies         = "compare_strategies"
	ToolAnalyzeMarketConditions   = "analyze_market_conditions"
	ToolFindResearchPapers        = "find_research_papers"
)

// Argument defaults.
const (
	DefaultTimeframe    = "any"
	DefaultAnalysisType = "technical"
	DefaultYearFrom     = 2020
)

// Registry dispatches the four finance tools. In degraded mode every tool
// answers with a placeholder and never touches the network.
type Registry struct {
	sender     knowledge.Sender
	aggregator *knowledge.Aggregator
	degraded   bool
	specs      []ToolSpec
	logger     *slog.Logger
	metrics    *metrics.Recorder
}

type options struct {
	logger  *slog.Logger
	metrics *metrics.Recorder
	client  []knowledge.Option
}

// Option customizes a Registry.
type Option func(*options)

// WithLogger sets the logger of the registry and of the client it builds.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithMetrics records tool calls and retrieval attempts.
func WithMetrics(m *metrics.Recorder) Option {
	return func(o *options) { o.metrics = m }
}

// WithClientOptions passes options to knowledge.NewClient in NewRegistryFromConfig.
func WithClientOptions(opts ...knowledge.Option) Option {
	return func(o *options) { o.client = append(o.client, opts...) }
}

func collect(opts []Option) options {
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// NewRegistry builds a registry on top of sender. A nil sender puts the
// registry in degraded mode.
func NewRegistry(sender knowledge.Sender, opts ...Option) *Registry {
	o := collect(opts)
	r := &Registry{
		sender:   sender,
		degraded: sender == nil,
		specs:    toolSpecs(),
		logger:   o.logger,
		metrics:  o.metrics,
	}
	if sender != nil {
		r.aggregator = knowledge.NewAggregator(sender, o.logger)
	}
	return r
}

// NewRegistryFromConfig builds the knowledge base client from cfg. Missing
// configuration, or a failed probe when cfg.ProbeOnStart is set, yields a
// degraded registry instead of an error.
func NewRegistryFromConfig(ctx context.Context, cfg config.KnowledgeBaseConfig, opts ...Option) *Registry {
	o := collect(opts)
	clientOpts := append([]knowledge.Option{
		knowledge.WithLogger(o.logger),
		knowledge.WithMetrics(o.metrics),
	}, o.client...)

	client, err := knowledge.NewClient(cfg, clientOpts...)
	if err != nil {
		if errors.Is(err, knowledge.ErrNotConfigured) {
			o.logger.Warn("Knowledge base not configured, tools run in degraded mode", "error", err)
		} else {
			o.logger.Error("Failed to create knowledge base client, tools run in degraded mode", "error", err)
		}
		return NewRegistry(nil, opts...)
	}

	if cfg.ProbeOnStart {
		if res := client.Ping(ctx); res.Failed() {
			o.logger.Warn("Knowledge base unreachable, tools run in degraded mode", "url", client.BaseURL(), "error", res.Error)
			return NewRegistry(nil, opts...)
		}
	}

	o.logger.Info("Knowledge base client ready", "url", client.BaseURL())
	return NewRegistry(client, opts...)
}

// Degraded reports whether the registry runs without a backend.
func (r *Registry) Degraded() bool { return r.degraded }

// Ping checks the backend connection. Senders without a Ping method are
// probed with a one-result test query.
func (r *Registry) Ping(ctx context.Context) knowledge.Result {
	if r.degraded {
		return knowledge.Result{Error: "knowledge base not configured"}
	}
	if p, ok := r.sender.(interface {
		Ping(context.Context) knowledge.Result
	}); ok {
		return p.Ping(ctx)
	}
	return r.sender.Send(ctx, knowledge.Request{Query: "test query", TopK: 1})
}

// Specs returns the declared tools in a stable order.
func (r *Registry) Specs() []ToolSpec {
	out := make([]ToolSpec, len(r.specs))
	copy(out, r.specs)
	return out
}

// Spec looks up a tool by name.
func (r *Registry) Spec(name string) (ToolSpec, bool) {
	for _, s := range r.specs {
		if s.Name == name {
			return s, true
		}
	}
	return ToolSpec{}, false
}

// SearchIndicatorStrategies finds trading strategies built on a technical indicator.
func (r *Registry) SearchIndicatorStrategies(ctx context.Context, args IndicatorArgs) string {
	if strings.TrimSpace(args.IndicatorName) == "" {
		return failureText(ToolSearchIndicatorStrategies, errors.New("indicator_name is required"))
	}
	if strings.TrimSpace(args.Timeframe) == "" {
		args.Timeframe = DefaultTimeframe
	}
	subject := strings.ToUpper(strings.TrimSpace(args.IndicatorName))
	if optional(args.Timeframe) {
		subject += fmt.Sprintf(" (%s)", strings.TrimSpace(args.Timeframe))
	}
	return r.run(ctx, ToolSearchIndicatorStrategies, KindIndicator, subject, args)
}

// CompareStrategies compares two trading strategies or approaches.
func (r *Registry) CompareStrategies(ctx context.Context, args ComparisonArgs) string {
	if strings.TrimSpace(args.Strategy1) == "" || strings.TrimSpace(args.Strategy2) == "" {
		return failureText(ToolCompareStrategies, errors.New("strategy1 and strategy2 are required"))
	}
	subject := TitleCase(args.Strategy1) + " vs " + TitleCase(args.Strategy2)
	return r.run(ctx, ToolCompareStrategies, KindComparison, subject, args)
}

// AnalyzeMarketConditions finds strategies suited to a market regime.
func (r *Registry) AnalyzeMarketConditions(ctx context.Context, args MarketArgs) string {
	if strings.TrimSpace(args.MarketType) == "" {
		return failureText(ToolAnalyzeMarketConditions, errors.New("market_type is required"))
	}
	if !optional(args.AnalysisType) {
		args.AnalysisType = DefaultAnalysisType
	}
	subject := fmt.Sprintf("%s market (%s approach)",
		strings.ToUpper(strings.TrimSpace(args.MarketType)), strings.TrimSpace(args.AnalysisType))
	return r.run(ctx, ToolAnalyzeMarketConditions, KindMarketCondition, subject, args)
}

// FindResearchPapers searches research papers on a finance topic.
func (r *Registry) FindResearchPapers(ctx context.Context, args ResearchArgs) string {
	if strings.TrimSpace(args.Topic) == "" {
		return failureText(ToolFindResearchPapers, errors.New("topic is required"))
	}
	if args.YearFrom <= 0 {
		args.YearFrom = DefaultYearFrom
	}
	subject := fmt.Sprintf("%s (since %d)", TitleCase(args.Topic), args.YearFrom)
	return r.run(ctx, ToolFindResearchPapers, KindResearch, subject, args)
}

// Invoke dispatches by tool name with JSON-encoded arguments.
func (r *Registry) Invoke(ctx context.Context, name string, rawArgs json.RawMessage) string {
	if len(rawArgs) == 0 {
		rawArgs = json.RawMessage("{}")
	}

	switch name {
	case ToolSearchIndicatorStrategies:
		var args IndicatorArgs
		if err := json.Unmarshal(rawArgs, &args); err != nil {
			return failureText(name, fmt.Errorf("invalid arguments: %w", err))
		}
		return r.SearchIndicatorStrategies(ctx, args)
	case ToolCompareStrategies:
		var args ComparisonArgs
		if err := json.Unmarshal(rawArgs, &args); err != nil {
			return failureText(name, fmt.Errorf("invalid arguments: %w", err))
		}
		return r.CompareStrategies(ctx, args)
	case ToolAnalyzeMarketConditions:
		var args MarketArgs
		if err := json.Unmarshal(rawArgs, &args); err != nil {
			return failureText(name, fmt.Errorf("invalid arguments: %w", err))
		}
		return r.AnalyzeMarketConditions(ctx, args)
	case ToolFindResearchPapers:
		var args ResearchArgs
		if err := json.Unmarshal(rawArgs, &args); err != nil {
			return failureText(name, fmt.Errorf("invalid arguments: %w", err))
		}
		return r.FindResearchPapers(ctx, args)
	}
	return failureText(name, errors.New("unknown tool"))
}

func (r *Registry) run(ctx context.Context, name string, kind Kind, subject string, args any) (out string) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("Tool panicked", "tool", name, "panic", p)
			r.metrics.ToolCalled(name, "failed")
			out = failureText(name, fmt.Errorf("%v", p))
		}
	}()

	if r.degraded {
		r.metrics.ToolCalled(name, "degraded")
		return FormatUnavailable(subject, kind)
	}

	queries, err := BuildQueries(args)
	if err != nil {
		r.metrics.ToolCalled(name, "failed")
		return failureText(name, err)
	}

	r.logger.Info("Running tool", "tool", name, "queries", len(queries))
	agg := r.aggregator.Aggregate(ctx, queries, TopKBudget(kind))
	r.metrics.ToolCalled(name, "live")
	r.logger.Info("Tool finished", "tool", name, "found", agg.Found(), "sources", agg.SourceCount, "failed_queries", agg.FailedCount)

	return Format(subject, agg, kind)
}

func failureText(tool string, err error) string {
	return fmt.Sprintf("❌ %s failed: %v", tool, err)
}
