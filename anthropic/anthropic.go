// Package anthropic implements [drip.Provider] for the Anthropic Messages API.
//
// It connects to the Anthropic Messages API via SSE and emits semantic events
// through the pull-based [drip.Stream] interface. The SSE parser drives one
// step at a time using a state-machine approach.
package anthropic

// DefaultModel is used when the request names no model.
const DefaultModel = "claude-sonnet-4-20250514"

const (
	defaultBaseURL   = "https://api.anthropic.com"
	defaultMaxTokens = 8192
	apiVersion       = "2023-06-01"
	messagesPath     = "/v1/messages"
)

// KindThinking is the CodeGPTEvent kind carrying extended thinking deltas.
const KindThinking = "thinking"

// apiRequest is the JSON body sent to the Anthropic Messages API.
type apiRequest struct {
	Model       string            `json:"model"`
	MaxTokens   int               `json:"max_tokens"`
	Stream      bool              `json:"stream"`
	System      []apiContentBlock `json:"system,omitempty"`
	Messages    []apiMessage      `json:"messages"`
	Temperature *float64          `json:"temperature,omitempty"`
}

type apiMessage struct {
	Role    string            `json:"role"`
	Content []apiContentBlock `json:"content"`
}

type apiContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// SSE response types.

type sseMessageStart struct {
	Type    string            `json:"type"`
	Message sseMessagePayload `json:"message"`
}

type sseMessagePayload struct {
	ID    string   `json:"id"`
	Model string   `json:"model"`
	Usage sseUsage `json:"usage"`
}

// sseUsage is used in message_start events. Cache fields are nullable.
type sseUsage struct {
	InputTokens              int  `json:"input_tokens"`
	OutputTokens             int  `json:"output_tokens"`
	CacheCreationInputTokens *int `json:"cache_creation_input_tokens"`
	CacheReadInputTokens     *int `json:"cache_read_input_tokens"`
}

type sseContentBlockDelta struct {
	Type  string   `json:"type"`
	Index int      `json:"index"`
	Delta sseDelta `json:"delta"`
}

type sseDelta struct {
	Type     string `json:"type"`
	Text     string `json:"text,omitempty"`
	Thinking string `json:"thinking,omitempty"`
}

type sseMessageDelta struct {
	Type  string             `json:"type"`
	Delta sseMessageDeltaVal `json:"delta"`
	Usage struct {
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

type sseMessageDeltaVal struct {
	StopReason *string `json:"stop_reason"`
}

type sseError struct {
	Type  string         `json:"type"`
	Error sseErrorDetail `json:"error"`
}

type sseErrorDetail struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// thinkingPayload is the CodeGPTEvent payload for thinking deltas.
type thinkingPayload struct {
	Index int    `json:"index"`
	Text  string `json:"text"`
}
