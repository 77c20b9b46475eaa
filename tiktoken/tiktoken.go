// Package tiktoken implements drip.TokenCounter with the BPE encodings of
// github.com/pkoukk/tiktoken-go.
package tiktoken

import (
	"fmt"
	"strings"
	"sync"

	"github.com/fwojciec/drip"
	"github.com/pkoukk/tiktoken-go"
)

var _ drip.TokenCounter = (*Counter)(nil)

type encodingInfo struct {
	encoding  string
	maxTokens int
}

// DefaultEncoding is used for models missing from the table.
const DefaultEncoding = "cl100k_base"

// defaultMaxTokens is the context size assumed for unknown models.
const defaultMaxTokens = 8192

// models maps model names, or their prefixes, to an encoding and the
// model's context size. Claude and Gemini models have no public BPE
// tables; cl100k_base is a close enough stand-in for limit checks.
var models = map[string]encodingInfo{
	"gpt-4o":           {encoding: "o200k_base", maxTokens: 128000},
	"gpt-4o-mini":      {encoding: "o200k_base", maxTokens: 128000},
	"gpt-4.1":          {encoding: "o200k_base", maxTokens: 1047576},
	"gpt-4-turbo":      {encoding: "cl100k_base", maxTokens: 128000},
	"gpt-4":            {encoding: "cl100k_base", maxTokens: 8192},
	"gpt-3.5-turbo":    {encoding: "cl100k_base", maxTokens: 16385},
	"claude":           {encoding: "cl100k_base", maxTokens: 200000},
	"gemini-2.5":       {encoding: "cl100k_base", maxTokens: 1048576},
	"gemini-2.0-flash": {encoding: "cl100k_base", maxTokens: 1048576},
}

// Counter counts tokens for one model. The encoding is loaded on first
// use; loading may download the BPE ranks, so the first call can be slow
// or fail when offline.
type Counter struct {
	model     string
	encoding  string
	maxTokens int

	once    sync.Once
	enc     *tiktoken.Tiktoken
	initErr error
}

// New returns a Counter for model. Unknown models use DefaultEncoding.
func New(model string) *Counter {
	info, ok := lookup(model)
	if !ok {
		info = encodingInfo{encoding: DefaultEncoding, maxTokens: defaultMaxTokens}
	}
	return &Counter{model: model, encoding: info.encoding, maxTokens: info.maxTokens}
}

// lookup finds the exact model or the longest matching prefix.
func lookup(model string) (encodingInfo, bool) {
	if info, ok := models[model]; ok {
		return info, true
	}
	var best string
	for prefix := range models {
		if strings.HasPrefix(model, prefix) && len(prefix) > len(best) {
			best = prefix
		}
	}
	if best == "" {
		return encodingInfo{}, false
	}
	return models[best], true
}

// Warm loads the encoding and reports whether it is usable.
func (c *Counter) Warm() error {
	c.once.Do(func() {
		enc, err := tiktoken.GetEncoding(c.encoding)
		if err != nil {
			c.initErr = fmt.Errorf("tiktoken: load encoding %s: %w", c.encoding, err)
			return
		}
		c.enc = enc
	})
	return c.initErr
}

// CountTokens returns the number of BPE tokens in text.
func (c *Counter) CountTokens(text string) (int, error) {
	if err := c.Warm(); err != nil {
		return 0, err
	}
	if text == "" {
		return 0, nil
	}
	return len(c.enc.Encode(text, nil, nil)), nil
}

// Encoding returns the name of the encoding in use.
func (c *Counter) Encoding() string { return c.encoding }

// MaxTokens returns the model's context size.
func (c *Counter) MaxTokens() int { return c.maxTokens }

// Model returns the model the counter was created for.
func (c *Counter) Model() string { return c.model }
