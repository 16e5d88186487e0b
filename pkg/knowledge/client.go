package knowledge

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mikeboe/finance-assistant/pkg/config"
	"github.com/mikeboe/finance-assistant/pkg/metrics"
)

// ErrNotConfigured is returned by NewClient when the base URL or the API key
// is missing.
var ErrNotConfigured = errors.New("knowledge base is not configured")

const (
	defaultTimeout   = 30 * time.Second
	defaultThreshold = 0.7
	maxErrorBody     = 512
)

// Client talks to the knowledge base HTTP API.
type Client struct {
	baseURL    string
	apiKey     string
	paths      []string
	timeout    time.Duration
	threshold  float64
	httpClient *http.Client
	logger     *slog.Logger
	metrics    *metrics.Recorder
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets the logger used for failed attempts.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithMetrics records attempts and latencies.
func WithMetrics(m *metrics.Recorder) Option {
	return func(c *Client) { c.metrics = m }
}

// NewClient validates cfg and builds a Client. It performs no network I/O.
func NewClient(cfg config.KnowledgeBaseConfig, opts ...Option) (*Client, error) {
	if !cfg.Configured() {
		return nil, ErrNotConfigured
	}
	base := strings.TrimRight(strings.TrimSpace(cfg.URL), "/")
	u, err := url.Parse(base)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid knowledge base URL %q: %w", cfg.URL, ErrNotConfigured)
	}

	paths := cfg.Paths
	if len(paths) == 0 {
		paths = []string{"/query"}
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	threshold := cfg.SimilarityThreshold
	if threshold < 0 || threshold > 1 {
		threshold = defaultThreshold
	}

	c := &Client{
		baseURL:    base,
		apiKey:     cfg.APIKey,
		paths:      paths,
		timeout:    timeout,
		threshold:  threshold,
		httpClient: &http.Client{},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the configured endpoint root.
func (c *Client) BaseURL() string { return c.baseURL }

// Threshold returns the similarity threshold applied when a request leaves it unset.
func (c *Client) Threshold() float64 { return c.threshold }

// Send posts req to each candidate path in order and returns the first
// HTTP 200 answer. Every attempt gets its own timeout.
func (c *Client) Send(ctx context.Context, req Request) Result {
	if req.TopK < 1 {
		req.TopK = 1
	}
	if req.SimilarityThreshold == 0 {
		req.SimilarityThreshold = c.threshold
	}

	body, err := json.Marshal(req)
	if err != nil {
		return failure(fmt.Sprintf("failed to encode request: %v", err))
	}

	var lastErr error
	for _, path := range c.paths {
		start := time.Now()
		res, err := c.attempt(ctx, path, body)
		c.metrics.ObserveRetrieval(outcome(res, err), time.Since(start))
		if err == nil {
			return res
		}
		lastErr = err
		c.logger.Warn("Knowledge base attempt failed", "path", path, "query", req.Query, "error", err)
	}

	return failure(fmt.Sprintf("knowledge base request to %s failed: %v", c.baseURL, lastErr))
}

// Ping issues a minimal query to check connectivity.
func (c *Client) Ping(ctx context.Context) Result {
	return c.Send(ctx, Request{Query: "test query", TopK: 1})
}

func (c *Client) attempt(ctx context.Context, path string, body []byte) (Result, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	endpoint := c.baseURL + path
	if path == "/" {
		endpoint = c.baseURL
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return Result{}, fmt.Errorf("POST %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, fmt.Errorf("reading response from %s: %w", endpoint, err)
	}

	if resp.StatusCode != http.StatusOK {
		snippet := string(data)
		if len(snippet) > maxErrorBody {
			snippet = snippet[:maxErrorBody]
		}
		return Result{}, fmt.Errorf("POST %s returned HTTP %d: %s", endpoint, resp.StatusCode, strings.TrimSpace(snippet))
	}

	return decodeResponse(data)
}

func outcome(res Result, err error) string {
	switch {
	case err != nil:
		return "error"
	case res.Text == "":
		return "empty"
	default:
		return "ok"
	}
}

// queryResponse mirrors the backend answer. Everything is optional.
type queryResponse struct {
	Response    *string      `json:"response"`
	SourceNodes []sourceNode `json:"source_nodes"`
	Error       any          `json:"error"`
}

type sourceNode struct {
	Metadata map[string]any `json:"metadata"`
	Node     *struct {
		Metadata map[string]any `json:"metadata"`
	} `json:"node"`
}

func (n sourceNode) metadata() map[string]any {
	if len(n.Metadata) > 0 {
		return n.Metadata
	}
	if n.Node != nil {
		return n.Node.Metadata
	}
	return nil
}

func decodeResponse(data []byte) (Result, error) {
	var qr queryResponse
	if err := json.Unmarshal(data, &qr); err != nil {
		return Result{}, fmt.Errorf("malformed knowledge base response: %w", err)
	}
	if msg, ok := qr.Error.(string); ok && strings.TrimSpace(msg) != "" {
		return Result{}, fmt.Errorf("knowledge base error: %s", msg)
	}

	res := Result{}
	if qr.Response != nil {
		res.Text = strings.TrimSpace(*qr.Response)
	}
	for _, node := range qr.SourceNodes {
		md := node.metadata()
		if md == nil {
			continue
		}
		res.Sources = append(res.Sources, SourceRecord{
			Title:   stringValue(md["title"]),
			Authors: authorsValue(md["authors"]),
			Year:    yearValue(md["year"]),
		})
	}
	return res, nil
}

func stringValue(v any) string {
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}

func authorsValue(v any) string {
	switch a := v.(type) {
	case string:
		return strings.TrimSpace(a)
	case []any:
		var names []string
		for _, item := range a {
			if s := stringValue(item); s != "" {
				names = append(names, s)
			}
		}
		return strings.Join(names, ", ")
	}
	return ""
}

func yearValue(v any) int {
	switch y := v.(type) {
	case float64:
		if y > 0 && y == float64(int(y)) {
			return int(y)
		}
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(y)); err == nil && n > 0 {
			return n
		}
	}
	return 0
}
