package clients

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
)

type fakeLLM struct {
	reply  string
	err    error
	prompt string
}

func (f *fakeLLM) GenerateContent(_ context.Context, messages []llms.MessageContent, _ ...llms.CallOption) (*llms.ContentResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	for _, m := range messages {
		for _, p := range m.Parts {
			if tc, ok := p.(llms.TextContent); ok {
				f.prompt += tc.Text
			}
		}
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: f.reply}}}, nil
}

func (f *fakeLLM) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, f, prompt, options...)
}

func TestGenerateTitle(t *testing.T) {
	llm := &fakeLLM{reply: "  \"RSI Day Trading Strategies\"\n"}
	g := NewTitleGenerator(llm)

	title, err := g.GenerateTitle(context.Background(), "RSI for day trading?", "Here are strategies...")
	require.NoError(t, err)
	assert.Equal(t, "RSI Day Trading Strategies", title)
	assert.Contains(t, llm.prompt, "User: RSI for day trading?")
}

func TestGenerateTitleError(t *testing.T) {
	g := NewTitleGenerator(&fakeLLM{err: errors.New("quota exceeded")})

	_, err := g.GenerateTitle(context.Background(), "a", "b")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota exceeded")
}

func TestCleanTitle(t *testing.T) {
	assert.Equal(t, "Momentum vs Contrarian", cleanTitle("Title: **Momentum vs Contrarian**"))
	assert.Equal(t, "First line", cleanTitle("First line\nsecond line"))
	assert.Len(t, []rune(cleanTitle(strings.Repeat("x", 200))), maxTitleRunes)
}

func TestGoogleAiRequiresKey(t *testing.T) {
	_, err := GoogleAi(context.Background(), DefaultModel, "")
	assert.Error(t, err)
}
