package drip

// StopReason indicates why the provider stopped generating.
type StopReason string

const (
	StopEndTurn StopReason = "end_turn"
	StopLength  StopReason = "length"
	StopError   StopReason = "error"
	StopAborted StopReason = "aborted"
	StopUnknown StopReason = "unknown"
)
