// Package gemini implements [drip.Provider] for the Google Gemini API.
//
// It wraps the google.golang.org/genai SDK, translating between drip's
// domain types and the Gemini API types. Streaming uses the SDK's iter.Seq2
// iterator, wrapped into the pull-based [drip.Stream] interface.
package gemini

// DefaultModel is used when the request names no model.
const DefaultModel = "gemini-2.5-flash"

const defaultMaxTokens = 65536

// KindThinking is the CodeGPTEvent kind carrying thought summaries.
const KindThinking = "thinking"

// statusResourceExhausted is the API status reported when quota runs out.
const statusResourceExhausted = "RESOURCE_EXHAUSTED"
