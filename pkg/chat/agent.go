package chat

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/mikeboe/finance-assistant/pkg/config"
	"github.com/mikeboe/finance-assistant/pkg/finance"
	"google.golang.org/adk/agent"
	"google.golang.org/adk/agent/llmagent"
	"google.golang.org/adk/model"
	"google.golang.org/adk/model/gemini"
	"google.golang.org/adk/runner"
	"google.golang.org/adk/session"
	"google.golang.org/adk/tool"
	"google.golang.org/genai"
)

const (
	appName   = "finance-assistant"
	agentName = "finance_analyst"
	userID    = "user"
)

const systemInstruction = `You are an expert financial markets analyst and a specialist in quantitative finance research from ArXiv.

Your job:
1. Analyse research papers on finance.
2. Find trading strategies and approaches.
3. Explain complex concepts in plain language.
4. Give practical recommendations.
5. Reason step by step for deeper analysis.

Always:
- Cite the specific studies returned by the tools.
- Point out limitations and risks.
- Suggest next steps for further study.
- Use the finance tools before answering questions about strategies, indicators, markets or papers.`

// Responder produces the assistant reply for one user turn.
type Responder interface {
	Respond(ctx context.Context, sessionID string, history []Message, content string) (string, error)
}

// AgentResponder answers through an ADK agent equipped with the finance tools.
type AgentResponder struct {
	agent agent.Agent
}

func NewAgentResponder(ctx context.Context, cfg *config.Config, registry *finance.Registry) (*AgentResponder, error) {
	if err := cfg.ValidateAgent(); err != nil {
		return nil, err
	}

	modelClient, err := gemini.NewModel(ctx, cfg.ReasoningModel, &genai.ClientConfig{
		APIKey: cfg.GoogleApiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create model: %w", err)
	}

	temperature := float32(cfg.Temperature)
	financeAgent, err := llmagent.New(llmagent.Config{
		Name:        agentName,
		Model:       modelClient,
		Description: "A finance research assistant backed by a knowledge base of ArXiv papers.",
		Instruction: systemInstruction,
		GenerateContentConfig: &genai.GenerateContentConfig{
			Temperature: &temperature,
		},
		Toolsets: []tool.Toolset{
			NewFinanceToolset(registry),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create agent: %w", err)
	}

	return &AgentResponder{agent: financeAgent}, nil
}

// Respond replays history into a fresh in-memory session and runs the agent
// on content, returning the concatenated model text.
func (r *AgentResponder) Respond(ctx context.Context, sessionID string, history []Message, content string) (string, error) {
	sessionSvc := session.InMemoryService()

	createRes, err := sessionSvc.Create(ctx, &session.CreateRequest{
		AppName:   appName,
		UserID:    userID,
		SessionID: sessionID,
	})
	if err != nil {
		return "", fmt.Errorf("failed to create session: %w", err)
	}
	storedSession := createRes.Session

	for _, msg := range history {
		role := RoleUser
		author := userID
		if msg.Role == RoleModel {
			role = RoleModel
			author = agentName
		}

		evt := session.NewEvent(uuid.NewString())
		evt.Author = author
		evt.LLMResponse = model.LLMResponse{
			Content: &genai.Content{
				Role:  role,
				Parts: []*genai.Part{{Text: msg.Content}},
			},
		}
		if err := sessionSvc.AppendEvent(ctx, storedSession, evt); err != nil {
			return "", fmt.Errorf("failed to replay history: %w", err)
		}
	}

	run, err := runner.New(runner.Config{
		AppName:        appName,
		Agent:          r.agent,
		SessionService: sessionSvc,
	})
	if err != nil {
		return "", fmt.Errorf("failed to create runner: %w", err)
	}

	userContent := &genai.Content{
		Role:  RoleUser,
		Parts: []*genai.Part{{Text: content}},
	}

	slog.Info("Starting agent run", "session_id", sessionID, "history", len(history))

	var reply strings.Builder
	for event, err := range run.Run(ctx, userID, sessionID, userContent, agent.RunConfig{}) {
		if err != nil {
			return "", fmt.Errorf("agent run failed: %w", err)
		}
		if event.LLMResponse.Content == nil {
			continue
		}
		for _, part := range event.LLMResponse.Content.Parts {
			if part.FunctionCall != nil {
				slog.Info("Agent tool call", "tool", part.FunctionCall.Name)
			}
			if part.FunctionResponse != nil {
				slog.Info("Agent tool result", "tool", part.FunctionResponse.Name)
			}
			if part.Text != "" && !part.Thought {
				reply.WriteString(part.Text)
			}
		}
	}

	slog.Info("Agent run completed", "session_id", sessionID, "reply_len", reply.Len())
	return reply.String(), nil
}
