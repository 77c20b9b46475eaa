package drip

import "unicode/utf8"

// TokenCounter counts tokens in text. Implementations are stateless per
// call and safe for concurrent use.
type TokenCounter interface {
	CountTokens(text string) (int, error)
}

// TokenCounterFunc adapts a function to TokenCounter.
type TokenCounterFunc func(text string) (int, error)

// CountTokens calls f(text).
func (f TokenCounterFunc) CountTokens(text string) (int, error) { return f(text) }

// Estimator is a character-ratio TokenCounter. It needs no tables and is
// used when an exact tokenizer is unavailable.
type Estimator struct{}

var _ TokenCounter = Estimator{}

// CountTokens returns EstimateTokens(text).
func (Estimator) CountTokens(text string) (int, error) {
	return EstimateTokens(text), nil
}

// EstimateTokens approximates a token count: about four characters per
// token for Latin text and one and a half for CJK. Non-empty text counts
// at least one token.
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}
	total := utf8.RuneCountInString(text)
	cjk := 0
	for _, r := range text {
		if isCJK(r) {
			cjk++
		}
	}
	n := int(float64(cjk)/1.5 + float64(total-cjk)/4.0)
	if n == 0 {
		n = 1
	}
	return n
}

func isCJK(r rune) bool {
	return (r >= 0x4E00 && r <= 0x9FFF) || // CJK unified ideographs
		(r >= 0x3400 && r <= 0x4DBF) || // extension A
		(r >= 0x3040 && r <= 0x30FF) || // hiragana, katakana
		(r >= 0xAC00 && r <= 0xD7AF) // hangul syllables
}
