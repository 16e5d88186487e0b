package chat

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mikeboe/finance-assistant/pkg/metrics"
)

// TitleGenerator names a conversation after its first exchange.
type TitleGenerator interface {
	GenerateTitle(ctx context.Context, userMsg, modelMsg string) (string, error)
}

// Service runs chat turns against a Responder and records them in a Store.
type Service struct {
	responder Responder
	store     Store
	titles    TitleGenerator
	logger    *slog.Logger
	metrics   *metrics.Recorder

	mu    sync.Mutex
	locks map[uuid.UUID]*conversationLock
}

// conversationLock is dropped from Service.locks once no turn holds or
// waits for it.
type conversationLock struct {
	mu   sync.Mutex
	refs int
}

type ServiceOption func(*Service)

func WithTitleGenerator(g TitleGenerator) ServiceOption {
	return func(s *Service) { s.titles = g }
}

func WithServiceLogger(l *slog.Logger) ServiceOption {
	return func(s *Service) { s.logger = l }
}

func WithServiceMetrics(m *metrics.Recorder) ServiceOption {
	return func(s *Service) { s.metrics = m }
}

func NewService(responder Responder, store Store, opts ...ServiceOption) *Service {
	s := &Service{
		responder: responder,
		store:     store,
		logger:    slog.Default(),
		locks:     make(map[uuid.UUID]*conversationLock),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) CreateConversation(ctx context.Context) (*Conversation, error) {
	return s.store.CreateConversation(ctx)
}

func (s *Service) GetConversation(ctx context.Context, id uuid.UUID) (*Conversation, error) {
	return s.store.GetConversation(ctx, id)
}

func (s *Service) ListConversations(ctx context.Context) ([]Conversation, error) {
	return s.store.ListConversations(ctx)
}

// lock serializes turns within one conversation. The returned func
// releases the lock.
func (s *Service) lock(id uuid.UUID) func() {
	s.mu.Lock()
	l, ok := s.locks[id]
	if !ok {
		l = &conversationLock{}
		s.locks[id] = l
	}
	l.refs++
	s.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()

		s.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, id)
		}
		s.mu.Unlock()
	}
}

// Chat runs one turn. Responder failures become an apology that is
// recorded like any other reply; only store failures are returned.
func (s *Service) Chat(ctx context.Context, conversationID uuid.UUID, content string) (string, error) {
	defer s.lock(conversationID)()

	history, err := s.store.History(ctx, conversationID)
	if err != nil {
		return "", err
	}

	if err := s.store.Append(ctx, Message{ConversationID: conversationID, Role: RoleUser, Content: content}); err != nil {
		return "", fmt.Errorf("failed to save user message: %w", err)
	}

	reply, respErr := s.responder.Respond(ctx, conversationID.String(), history, content)
	if respErr != nil {
		s.logger.Error("Chat turn failed", "conversation_id", conversationID, "error", respErr)
		s.metrics.ChatHandled("error")
		reply = apology(respErr)
	} else {
		s.metrics.ChatHandled("ok")
	}

	if err := s.store.Append(ctx, Message{ConversationID: conversationID, Role: RoleModel, Content: reply}); err != nil {
		return "", fmt.Errorf("failed to save model message: %w", err)
	}

	if respErr == nil && len(history) == 0 {
		s.nameConversation(ctx, conversationID, content, reply)
	}
	return reply, nil
}

func (s *Service) nameConversation(ctx context.Context, id uuid.UUID, userMsg, modelMsg string) {
	if s.titles == nil {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	title, err := s.titles.GenerateTitle(ctx, userMsg, modelMsg)
	if err != nil {
		s.logger.Warn("Failed to generate conversation title", "conversation_id", id, "error", err)
		return
	}
	if title == "" {
		return
	}
	if err := s.store.SetTitle(ctx, id, title); err != nil {
		s.logger.Error("Failed to update conversation title", "conversation_id", id, "error", err)
	}
}

func (s *Service) History(ctx context.Context, conversationID uuid.UUID) ([]Message, error) {
	return s.store.History(ctx, conversationID)
}

func (s *Service) ClearHistory(ctx context.Context, conversationID uuid.UUID) error {
	defer s.lock(conversationID)()

	return s.store.Clear(ctx, conversationID)
}

// Suggestions returns conversation starters.
func (s *Service) Suggestions() []string {
	return Suggestions()
}

func apology(err error) string {
	return fmt.Sprintf("Sorry, an error occurred: %v", err)
}

func Suggestions() []string {
	return []string{
		"Show me RSI-based strategies for day trading",
		"Compare the effectiveness of MACD and RSI in trending markets",
		"Which strategies suit a volatile market?",
		"Find behavioral finance research from the last 3 years",
		"Tell me about mean reversion strategies for cryptocurrencies",
		"Which algorithmic strategies show the best results?",
		"Analyse strategies for a sideways market with a technical approach",
		"Compare momentum and contrarian strategies",
	}
}

// Session binds a Service to a single conversation.
type Session struct {
	svc *Service
	id  uuid.UUID
}

// NewSession starts a fresh conversation.
func (s *Service) NewSession(ctx context.Context) (*Session, error) {
	conv, err := s.store.CreateConversation(ctx)
	if err != nil {
		return nil, err
	}
	return &Session{svc: s, id: conv.ID}, nil
}

func (s *Session) ID() uuid.UUID { return s.id }

func (s *Session) Chat(ctx context.Context, message string) (string, error) {
	return s.svc.Chat(ctx, s.id, message)
}

func (s *Session) History(ctx context.Context) ([]Message, error) {
	return s.svc.History(ctx, s.id)
}

func (s *Session) ClearHistory(ctx context.Context) error {
	return s.svc.ClearHistory(ctx, s.id)
}
