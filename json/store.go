package json

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sync"
	"time"

	"github.com/fwojciec/drip"
	"github.com/google/uuid"
)

var _ drip.ConversationStore = (*Store)(nil)

// Store keeps each conversation in <dir>/<id>.json. Writes are serialized
// within the process; concurrent processes sharing dir are not supported.
type Store struct {
	dir string
	now func() time.Time
	mu  sync.Mutex
}

// NewStore returns a Store rooted at dir. The directory is created on the
// first write.
func NewStore(dir string) *Store {
	return &Store{dir: dir, now: func() time.Time { return time.Now().UTC() }}
}

func (s *Store) path(id string) string {
	return filepath.Join(s.dir, id+".json")
}

// CreateConversation writes a new empty conversation.
func (s *Store) CreateConversation(_ context.Context, model string) (*drip.Conversation, error) {
	now := s.now()
	conv := drip.Conversation{ID: uuid.NewString(), Model: model, CreatedAt: now, UpdatedAt: now}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := Save(s.path(conv.ID), conv); err != nil {
		return nil, fmt.Errorf("json: create conversation: %w", err)
	}
	return &conv, nil
}

// Conversation loads the conversation id.
func (s *Store) Conversation(_ context.Context, id string) (*drip.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	conv, err := s.load(id)
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

func (s *Store) load(id string) (drip.Conversation, error) {
	if id == "" || filepath.Base(id) != id {
		return drip.Conversation{}, fmt.Errorf("json: conversation %q: %w", id, drip.ErrConversationNotFound)
	}
	conv, err := Load(s.path(id))
	if errors.Is(err, fs.ErrNotExist) {
		return drip.Conversation{}, fmt.Errorf("json: conversation %q: %w", id, drip.ErrConversationNotFound)
	}
	if err != nil {
		return drip.Conversation{}, fmt.Errorf("json: load conversation: %w", err)
	}
	return conv, nil
}

// SaveMessage appends the message with text as its response, or replaces
// the response of a message already saved under the same ID. Conversations
// not on disk yet are created from params.Conversation.
func (s *Store) SaveMessage(_ context.Context, text string, params drip.CompletionParams) error {
	if params.Conversation == nil || params.Conversation.ID == "" {
		return fmt.Errorf("json: save message: conversation id required: %w", drip.ErrValidation)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, err := s.load(params.Conversation.ID)
	if errors.Is(err, drip.ErrConversationNotFound) {
		conv = drip.Conversation{
			ID:                 params.Conversation.ID,
			Model:              params.Conversation.Model,
			DiscardTokenLimits: params.Conversation.DiscardTokenLimits,
			CreatedAt:          s.now(),
		}
	} else if err != nil {
		return err
	}

	msg := params.Message
	msg.Response = text
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = s.now()
	}
	replaced := false
	for i := range conv.Messages {
		if conv.Messages[i].ID == msg.ID {
			conv.Messages[i].Response = text
			replaced = true
			break
		}
	}
	if !replaced {
		conv.Messages = append(conv.Messages, msg)
	}
	conv.UpdatedAt = s.now()
	if err := Save(s.path(conv.ID), conv); err != nil {
		return fmt.Errorf("json: save message: %w", err)
	}
	return nil
}

// DiscardTokenLimits exempts the conversation from the token limit check.
func (s *Store) DiscardTokenLimits(_ context.Context, conv *drip.Conversation) error {
	if conv == nil {
		return fmt.Errorf("json: discard token limits: conversation required: %w", drip.ErrValidation)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, err := s.load(conv.ID)
	if err != nil {
		return err
	}
	stored.DiscardTokenLimits = true
	stored.UpdatedAt = s.now()
	if err := Save(s.path(stored.ID), stored); err != nil {
		return fmt.Errorf("json: discard token limits: %w", err)
	}
	return nil
}
