package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/fwojciec/drip"
)

// Interface compliance check.
var _ drip.Provider = (*Client)(nil)

// Client implements [drip.Provider] for the Anthropic Messages API.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// Option configures a [Client].
type Option func(*Client)

// WithBaseURL sets the API base URL. Useful for testing with httptest.
func WithBaseURL(url string) Option {
	return func(c *Client) { c.baseURL = url }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// New creates a new Anthropic [Client] with the given API key and options.
func New(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
		httpClient: http.DefaultClient,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Stream sends a streaming request to the Anthropic Messages API and returns
// a [drip.Stream] that emits semantic events.
//
// Non-200 responses are returned as *drip.ProducerError whose Code is the
// API error type, e.g. "overloaded_error" or "rate_limit_error".
func (c *Client) Stream(ctx context.Context, req drip.Request) (drip.Stream, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("anthropic: %w", err)
	}
	body, err := buildRequestBody(req)
	if err != nil {
		return nil, fmt.Errorf("anthropic: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+messagesPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("anthropic: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Api-Key", c.apiKey)
	httpReq.Header.Set("Anthropic-Version", apiVersion)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("anthropic: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, parseHTTPError(resp)
	}

	return newStream(ctx, resp.Body), nil
}

func buildRequestBody(req drip.Request) ([]byte, error) {
	model := req.Model
	if model == "" {
		model = DefaultModel
	}
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = defaultMaxTokens
	}

	apiReq := apiRequest{
		Model:       model,
		MaxTokens:   maxTokens,
		Stream:      true,
		System:      convertSystem(req.SystemPrompt),
		Messages:    convertMessages(req.Conversation, req.Prompt),
		Temperature: req.Temperature,
	}
	return json.Marshal(apiReq)
}

// convertSystem converts a system prompt string to an array of content blocks
// suitable for the Anthropic API. Returns nil when the prompt is empty.
func convertSystem(prompt string) []apiContentBlock {
	if prompt == "" {
		return nil
	}
	return []apiContentBlock{{Type: "text", Text: prompt}}
}

// convertMessages flattens the conversation into alternating user and
// assistant turns followed by prompt. Exchanges without a response are
// skipped because the API rejects two user turns in a row.
func convertMessages(conv *drip.Conversation, prompt string) []apiMessage {
	var result []apiMessage
	if conv != nil {
		for _, m := range conv.Messages {
			if m.Prompt == "" || m.Response == "" {
				continue
			}
			result = append(result,
				apiMessage{Role: "user", Content: []apiContentBlock{{Type: "text", Text: m.Prompt}}},
				apiMessage{Role: "assistant", Content: []apiContentBlock{{Type: "text", Text: m.Response}}},
			)
		}
	}
	return append(result, apiMessage{Role: "user", Content: []apiContentBlock{{Type: "text", Text: prompt}}})
}

func parseHTTPError(resp *http.Response) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &drip.ProducerError{
			Message: fmt.Sprintf("HTTP %d", resp.StatusCode),
			Err:     fmt.Errorf("anthropic: read error body: %w", err),
		}
	}
	var apiErr sseError
	if err := json.Unmarshal(body, &apiErr); err != nil || apiErr.Error.Type == "" {
		return &drip.ProducerError{Message: fmt.Sprintf("HTTP %d: %s", resp.StatusCode, string(body))}
	}
	return &drip.ProducerError{Code: apiErr.Error.Type, Message: apiErr.Error.Message}
}
