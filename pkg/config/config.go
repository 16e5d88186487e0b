package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// KnowledgeBaseConfig holds the settings of the retrieval backend.
type KnowledgeBaseConfig struct {
	URL                 string
	APIKey              string
	Paths               []string
	Timeout             time.Duration
	SimilarityThreshold float64
	ProbeOnStart        bool
}

// Configured reports whether both the base URL and the API key are set.
// Tools run in degraded mode otherwise.
func (k KnowledgeBaseConfig) Configured() bool {
	return strings.TrimSpace(k.URL) != "" && strings.TrimSpace(k.APIKey) != ""
}

type Config struct {
	KnowledgeBase  KnowledgeBaseConfig
	GoogleApiKey   string
	ReasoningModel string
	TitleModel     string
	Temperature    float64
	MaxHistory     int
	DatabaseURL    string
	Port           string
	AppTitle       string
	AppDescription string
}

// ValidateAgent reports whether the chat agent can be started.
func (c *Config) ValidateAgent() error {
	if c.GoogleApiKey == "" {
		return fmt.Errorf("GOOGLE_API_KEY is not set")
	}
	if c.ReasoningModel == "" {
		return fmt.Errorf("REASONING_MODEL is not set")
	}
	return nil
}

// Load reads .env (if present), the optional YAML file at path and the
// process environment, in increasing order of precedence.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			slog.Debug("No .env file found, using environment variables")
		} else {
			slog.Warn("Failed to load .env file", "error", err)
		}
	}

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("finance-assistant")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("failed to read config: %w", err)
			}
		}
	}

	return fromViper(v)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("KNOWLEDGE_BASE_PATHS", "/query")
	v.SetDefault("KNOWLEDGE_BASE_TIMEOUT", "30s")
	v.SetDefault("KNOWLEDGE_BASE_SIMILARITY_THRESHOLD", 0.7)
	v.SetDefault("KNOWLEDGE_BASE_PROBE", false)
	v.SetDefault("REASONING_MODEL", "gemini-3-flash-preview")
	v.SetDefault("TITLE_MODEL", "gemini-3-flash-preview")
	v.SetDefault("LLM_TEMPERATURE", 0.1)
	v.SetDefault("MAX_HISTORY", 50)
	v.SetDefault("PORT", "8081")
	v.SetDefault("APP_TITLE", "ArXiv Finance Research Assistant")
	v.SetDefault("APP_DESCRIPTION", "AI-powered assistant for financial research papers analysis")
}

func fromViper(v *viper.Viper) (*Config, error) {
	timeout, err := parseTimeout(v.GetString("KNOWLEDGE_BASE_TIMEOUT"))
	if err != nil {
		return nil, err
	}

	return &Config{
		KnowledgeBase: KnowledgeBaseConfig{
			URL:                 strings.TrimRight(v.GetString("KNOWLEDGE_BASE_URL"), "/"),
			APIKey:              v.GetString("KNOWLEDGE_BASE_API_KEY"),
			Paths:               splitPaths(v.GetString("KNOWLEDGE_BASE_PATHS")),
			Timeout:             timeout,
			SimilarityThreshold: v.GetFloat64("KNOWLEDGE_BASE_SIMILARITY_THRESHOLD"),
			ProbeOnStart:        v.GetBool("KNOWLEDGE_BASE_PROBE"),
		},
		GoogleApiKey:   v.GetString("GOOGLE_API_KEY"),
		ReasoningModel: v.GetString("REASONING_MODEL"),
		TitleModel:     v.GetString("TITLE_MODEL"),
		Temperature:    v.GetFloat64("LLM_TEMPERATURE"),
		MaxHistory:     v.GetInt("MAX_HISTORY"),
		DatabaseURL:    v.GetString("DATABASE_URL"),
		Port:           v.GetString("PORT"),
		AppTitle:       v.GetString("APP_TITLE"),
		AppDescription: v.GetString("APP_DESCRIPTION"),
	}, nil
}

// parseTimeout accepts a Go duration ("45s", "1m") or a bare number of
// seconds ("30"). Anything under one second is rejected.
func parseTimeout(raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 30 * time.Second, nil
	}

	var d time.Duration
	if n, err := strconv.Atoi(raw); err == nil {
		d = time.Duration(n) * time.Second
	} else {
		d, err = time.ParseDuration(raw)
		if err != nil {
			return 0, fmt.Errorf("invalid KNOWLEDGE_BASE_TIMEOUT %q: %w", raw, err)
		}
	}
	if d < time.Second {
		return 0, fmt.Errorf("KNOWLEDGE_BASE_TIMEOUT %q is below one second", raw)
	}
	return d, nil
}

// splitPaths turns "/query, /v1/query,," into ["/query", "/v1/query"].
// The root path is written as "/" and kept.
func splitPaths(raw string) []string {
	var paths []string
	for _, p := range strings.Split(raw, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if !strings.HasPrefix(p, "/") {
			p = "/" + p
		}
		paths = append(paths, p)
	}
	if len(paths) == 0 {
		return []string{"/query"}
	}
	return paths
}
