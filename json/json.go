// Package json persists conversations as one JSON file per conversation.
package json

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fwojciec/drip"
)

// envelope is the v1 wire format for a persisted conversation.
type envelope struct {
	Version            int          `json:"version"`
	ID                 string       `json:"id"`
	Model              string       `json:"model"`
	DiscardTokenLimits bool         `json:"discard_token_limits"`
	CreatedAt          time.Time    `json:"created_at"`
	UpdatedAt          time.Time    `json:"updated_at"`
	Messages           []messageDTO `json:"messages"`
}

type messageDTO struct {
	ID        string    `json:"id"`
	Prompt    string    `json:"prompt"`
	Response  string    `json:"response"`
	Timestamp time.Time `json:"timestamp"`
}

// MarshalConversation serializes a Conversation in v1 envelope format.
func MarshalConversation(c drip.Conversation) ([]byte, error) {
	env := envelope{
		Version:            1,
		ID:                 c.ID,
		Model:              c.Model,
		DiscardTokenLimits: c.DiscardTokenLimits,
		CreatedAt:          c.CreatedAt,
		UpdatedAt:          c.UpdatedAt,
		Messages:           make([]messageDTO, len(c.Messages)),
	}
	for i, m := range c.Messages {
		env.Messages[i] = messageDTO{ID: m.ID, Prompt: m.Prompt, Response: m.Response, Timestamp: m.Timestamp}
	}
	return json.MarshalIndent(env, "", "  ")
}

// UnmarshalConversation deserializes a Conversation from v1 envelope format.
func UnmarshalConversation(data []byte) (drip.Conversation, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return drip.Conversation{}, fmt.Errorf("unmarshal envelope: %w", err)
	}
	if env.Version != 1 {
		return drip.Conversation{}, fmt.Errorf("unsupported envelope version: %d", env.Version)
	}
	msgs := make([]drip.Message, len(env.Messages))
	for i, dto := range env.Messages {
		msgs[i] = drip.Message{ID: dto.ID, Prompt: dto.Prompt, Response: dto.Response, Timestamp: dto.Timestamp}
	}
	return drip.Conversation{
		ID:                 env.ID,
		Model:              env.Model,
		DiscardTokenLimits: env.DiscardTokenLimits,
		CreatedAt:          env.CreatedAt,
		UpdatedAt:          env.UpdatedAt,
		Messages:           msgs,
	}, nil
}

// Save writes a Conversation to a JSON file, creating parent directories as
// needed. The file is replaced atomically.
func Save(path string, c drip.Conversation) error {
	data, err := MarshalConversation(c)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create directories: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}

// Load reads a Conversation from a JSON file.
func Load(path string) (drip.Conversation, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return drip.Conversation{}, fmt.Errorf("read file: %w", err)
	}
	return UnmarshalConversation(data)
}
