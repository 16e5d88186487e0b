package clients

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
)

const maxTitleRunes = 80

// TitleGenerator names conversations with a single LLM prompt.
type TitleGenerator struct {
	llm llms.Model
}

func NewTitleGenerator(llm llms.Model) *TitleGenerator {
	return &TitleGenerator{llm: llm}
}

func (g *TitleGenerator) GenerateTitle(ctx context.Context, userMsg, modelMsg string) (string, error) {
	prompt := fmt.Sprintf("Generate a short, concise title (max 5 words) for this chat conversation. Reply with the title only.\nUser: %s\nModel: %s", userMsg, modelMsg)

	out, err := llms.GenerateFromSinglePrompt(ctx, g.llm, prompt, llms.WithTemperature(0.2), llms.WithMaxTokens(32))
	if err != nil {
		return "", fmt.Errorf("failed to generate title: %w", err)
	}
	return cleanTitle(out), nil
}

func cleanTitle(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	s = strings.TrimPrefix(s, "Title:")
	s = strings.Trim(strings.TrimSpace(s), "\"'*#` ")

	r := []rune(s)
	if len(r) > maxTitleRunes {
		s = strings.TrimSpace(string(r[:maxTitleRunes]))
	}
	return s
}
