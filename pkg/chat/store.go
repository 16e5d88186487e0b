package chat

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultTitle is the title of a conversation that has not been named yet.
const DefaultTitle = "New Conversation"

// ErrConversationNotFound is returned for unknown conversation IDs.
var ErrConversationNotFound = errors.New("conversation not found")

type Conversation struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Message struct {
	ID             uuid.UUID `json:"id"`
	ConversationID uuid.UUID `json:"conversation_id"`
	Role           string    `json:"role"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"created_at"`
}

// Message roles.
const (
	RoleUser  = "user"
	RoleModel = "model"
)

// Store keeps conversation transcripts. Append evicts the oldest messages
// once a conversation holds more than the store's limit.
type Store interface {
	CreateConversation(ctx context.Context) (*Conversation, error)
	GetConversation(ctx context.Context, id uuid.UUID) (*Conversation, error)
	ListConversations(ctx context.Context) ([]Conversation, error)
	SetTitle(ctx context.Context, id uuid.UUID, title string) error
	Append(ctx context.Context, msg Message) error
	History(ctx context.Context, id uuid.UUID) ([]Message, error)
	Clear(ctx context.Context, id uuid.UUID) error
}

// MemoryStore is an in-process Store.
type MemoryStore struct {
	mu            sync.Mutex
	limit         int
	conversations map[uuid.UUID]*Conversation
	order         []uuid.UUID
	messages      map[uuid.UUID][]Message
	now           func() time.Time
}

// NewMemoryStore keeps at most limit messages per conversation.
func NewMemoryStore(limit int) *MemoryStore {
	if limit <= 0 {
		limit = 50
	}
	return &MemoryStore{
		limit:         limit,
		conversations: make(map[uuid.UUID]*Conversation),
		messages:      make(map[uuid.UUID][]Message),
		now:           time.Now,
	}
}

func (s *MemoryStore) CreateConversation(_ context.Context) (*Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	conv := &Conversation{ID: uuid.New(), Title: DefaultTitle, CreatedAt: now, UpdatedAt: now}
	s.conversations[conv.ID] = conv
	s.order = append(s.order, conv.ID)
	c := *conv
	return &c, nil
}

func (s *MemoryStore) GetConversation(_ context.Context, id uuid.UUID) (*Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[id]
	if !ok {
		return nil, ErrConversationNotFound
	}
	c := *conv
	return &c, nil
}

// ListConversations returns the most recently updated conversations first.
func (s *MemoryStore) ListConversations(_ context.Context) ([]Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	convs := make([]Conversation, 0, len(s.order))
	for i := len(s.order) - 1; i >= 0; i-- {
		convs = append(convs, *s.conversations[s.order[i]])
	}
	slices.SortStableFunc(convs, func(a, b Conversation) int {
		return b.UpdatedAt.Compare(a.UpdatedAt)
	})
	return convs, nil
}

func (s *MemoryStore) SetTitle(_ context.Context, id uuid.UUID, title string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[id]
	if !ok {
		return ErrConversationNotFound
	}
	conv.Title = title
	return nil
}

func (s *MemoryStore) Append(_ context.Context, msg Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[msg.ConversationID]
	if !ok {
		return ErrConversationNotFound
	}
	if msg.ID == uuid.Nil {
		msg.ID = uuid.New()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = s.now()
	}

	msgs := append(s.messages[msg.ConversationID], msg)
	if len(msgs) > s.limit {
		msgs = append([]Message(nil), msgs[len(msgs)-s.limit:]...)
	}
	s.messages[msg.ConversationID] = msgs
	conv.UpdatedAt = msg.CreatedAt
	return nil
}

func (s *MemoryStore) History(_ context.Context, id uuid.UUID) ([]Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.conversations[id]; !ok {
		return nil, ErrConversationNotFound
	}
	return append([]Message(nil), s.messages[id]...), nil
}

func (s *MemoryStore) Clear(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.conversations[id]; !ok {
		return ErrConversationNotFound
	}
	delete(s.messages, id)
	return nil
}
