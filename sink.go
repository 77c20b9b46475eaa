package drip

// Sink is the consumer-facing notification surface. The controller calls it
// from a single goroutine, in order, so implementations never observe two
// notifications concurrently. Implementations must not call back into the
// controller synchronously.
type Sink interface {
	// OnPartialUpdate delivers coalesced text to append to the rendered
	// response.
	OnPartialUpdate(text string)
	// OnTokenEstimateChanged publishes the running token total.
	OnTokenEstimateChanged(total int)
	// OnTokenTotals publishes the final prompt and conversation counts.
	OnTokenTotals(totals TokenTotals)
	// OnError reports a terminal failure.
	OnError(message string)
	// OnQuotaExceeded reports a terminal quota exhaustion.
	OnQuotaExceeded()
	// OnCompleted reports successful completion. text is the full response;
	// it has already been rendered through OnPartialUpdate.
	OnCompleted(text string)
	// OnCancelled reports that the exchange was cancelled.
	OnCancelled()
	// OnCodeGPTEvent forwards an out-of-band producer event verbatim.
	OnCodeGPTEvent(evt CodeGPTEvent)
	// SetInteractionEnabled toggles the consumer's interactive affordances.
	SetInteractionEnabled(enabled bool)
}

// TokenTotals are the token counts published when an exchange completes.
type TokenTotals struct {
	Prompt       int
	Conversation int
}
