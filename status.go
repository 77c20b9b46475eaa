package drip

// Status is the lifecycle state of one streaming exchange.
//
//	Idle → Streaming → {Completed | Errored | TokensExceeded | Cancelled}
//
// Every state after Streaming is terminal and absorbing.
type Status int

const (
	StatusIdle Status = iota
	StatusStreaming
	StatusCompleted
	StatusErrored
	StatusTokensExceeded
	StatusCancelled
)

// Terminal reports whether s is one of the absorbing end states.
func (s Status) Terminal() bool {
	return s >= StatusCompleted
}

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusStreaming:
		return "streaming"
	case StatusCompleted:
		return "completed"
	case StatusErrored:
		return "errored"
	case StatusTokensExceeded:
		return "tokens_exceeded"
	case StatusCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}
