package mock

import "github.com/fwojciec/drip"

var _ drip.Sink = (*Sink)(nil)

// Sink is a test double for drip.Sink. Notifications are fire-and-forget,
// so every method is a no-op when its function field is nil.
type Sink struct {
	OnPartialUpdateFn        func(text string)
	OnTokenEstimateChangedFn func(total int)
	OnTokenTotalsFn          func(totals drip.TokenTotals)
	OnErrorFn                func(message string)
	OnQuotaExceededFn        func()
	OnCompletedFn            func(text string)
	OnCancelledFn            func()
	OnCodeGPTEventFn         func(evt drip.CodeGPTEvent)
	SetInteractionEnabledFn  func(enabled bool)
}

// OnPartialUpdate delegates to OnPartialUpdateFn.
func (s *Sink) OnPartialUpdate(text string) {
	if s.OnPartialUpdateFn != nil {
		s.OnPartialUpdateFn(text)
	}
}

// OnTokenEstimateChanged delegates to OnTokenEstimateChangedFn.
func (s *Sink) OnTokenEstimateChanged(total int) {
	if s.OnTokenEstimateChangedFn != nil {
		s.OnTokenEstimateChangedFn(total)
	}
}

// OnTokenTotals delegates to OnTokenTotalsFn.
func (s *Sink) OnTokenTotals(totals drip.TokenTotals) {
	if s.OnTokenTotalsFn != nil {
		s.OnTokenTotalsFn(totals)
	}
}

// OnError delegates to OnErrorFn.
func (s *Sink) OnError(message string) {
	if s.OnErrorFn != nil {
		s.OnErrorFn(message)
	}
}

// OnQuotaExceeded delegates to OnQuotaExceededFn.
func (s *Sink) OnQuotaExceeded() {
	if s.OnQuotaExceededFn != nil {
		s.OnQuotaExceededFn()
	}
}

// OnCompleted delegates to OnCompletedFn.
func (s *Sink) OnCompleted(text string) {
	if s.OnCompletedFn != nil {
		s.OnCompletedFn(text)
	}
}

// OnCancelled delegates to OnCancelledFn.
func (s *Sink) OnCancelled() {
	if s.OnCancelledFn != nil {
		s.OnCancelledFn()
	}
}

// OnCodeGPTEvent delegates to OnCodeGPTEventFn.
func (s *Sink) OnCodeGPTEvent(evt drip.CodeGPTEvent) {
	if s.OnCodeGPTEventFn != nil {
		s.OnCodeGPTEventFn(evt)
	}
}

// SetInteractionEnabled delegates to SetInteractionEnabledFn.
func (s *Sink) SetInteractionEnabled(enabled bool) {
	if s.SetInteractionEnabledFn != nil {
		s.SetInteractionEnabledFn(enabled)
	}
}
