package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/fwojciec/drip"
	"google.golang.org/genai"
)

// Interface compliance check.
var _ drip.Provider = (*Client)(nil)

// Client implements [drip.Provider] for the Google Gemini API.
type Client struct {
	client *genai.Client
	model  string
}

// Option configures a [Client].
type Option func(*Client)

// WithModel sets the default model ID used when a request names none.
func WithModel(model string) Option {
	return func(c *Client) { c.model = model }
}

// New creates a new Gemini [Client] with the given API key and options.
func New(ctx context.Context, apiKey string, opts ...Option) (*Client, error) {
	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: %w", err)
	}
	c := &Client{
		client: gc,
		model:  DefaultModel,
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// Stream sends a streaming request to the Gemini API and returns a
// [drip.Stream] that emits semantic events.
func (c *Client) Stream(ctx context.Context, req drip.Request) (drip.Stream, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("gemini: %w", err)
	}
	model := req.Model
	if model == "" {
		model = c.model
	}

	contents := ConvertConversation(req.Conversation, req.Prompt)
	config := buildConfig(req)

	iter := c.client.Models.GenerateContentStream(ctx, model, contents, config)
	return NewStreamFromIter(ctx, iter), nil
}

func buildConfig(req drip.Request) *genai.GenerateContentConfig {
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = defaultMaxTokens
	}

	config := &genai.GenerateContentConfig{
		MaxOutputTokens: int32(maxTokens),
		ThinkingConfig: &genai.ThinkingConfig{
			IncludeThoughts: true,
		},
	}

	if req.SystemPrompt != "" {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: req.SystemPrompt}},
		}
	}

	if req.Temperature != nil {
		temp := float32(*req.Temperature)
		config.Temperature = &temp
	}

	return config
}

// ConvertConversation converts the conversation history and the new prompt
// to genai Contents. Exchanges without a response are skipped.
// Exported for testing.
func ConvertConversation(conv *drip.Conversation, prompt string) []*genai.Content {
	var result []*genai.Content
	if conv != nil {
		for _, m := range conv.Messages {
			if m.Prompt == "" || m.Response == "" {
				continue
			}
			result = append(result,
				&genai.Content{Role: "user", Parts: []*genai.Part{{Text: m.Prompt}}},
				&genai.Content{Role: "model", Parts: []*genai.Part{{Text: m.Response}}},
			)
		}
	}
	return append(result, &genai.Content{Role: "user", Parts: []*genai.Part{{Text: prompt}}})
}

// producerError converts an SDK error into a *drip.ProducerError. API
// errors keep their status as the code, except RESOURCE_EXHAUSTED which is
// reported as quota exhaustion.
func producerError(err error) error {
	apiErr, ok := asAPIError(err)
	if !ok {
		return fmt.Errorf("gemini: %w", err)
	}
	code := strings.ToLower(apiErr.Status)
	if apiErr.Status == statusResourceExhausted {
		code = drip.CodeInsufficientQuota
	}
	return &drip.ProducerError{Code: code, Message: apiErr.Message, Err: err}
}

func asAPIError(err error) (genai.APIError, bool) {
	var v genai.APIError
	if errors.As(err, &v) {
		return v, true
	}
	var p *genai.APIError
	if errors.As(err, &p) && p != nil {
		return *p, true
	}
	return genai.APIError{}, false
}
