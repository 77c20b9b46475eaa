package drip

// Usage tracks token consumption as reported by the provider, when it
// reports any.
//
// Providers normalize their API-specific fields so that InputTokens counts
// every prompt token, cached or not. Providers must clamp to zero when
// deriving values from inconsistent upstream data.
type Usage struct {
	InputTokens  int
	OutputTokens int
}

// Total returns InputTokens + OutputTokens.
func (u Usage) Total() int { return u.InputTokens + u.OutputTokens }
