package drip

// Outcome is a sealed interface describing how an exchange ended. Exactly
// one Outcome occurs per exchange.
type Outcome interface {
	outcome()
	// Status returns the terminal Status matching the outcome.
	Status() Status
}

// OutcomeCompleted is a successful exchange carrying the full text.
type OutcomeCompleted struct {
	Text string
}

func (OutcomeCompleted) outcome()       {}
func (OutcomeCompleted) Status() Status { return StatusCompleted }

// OutcomeError is a producer failure or an internal fault.
type OutcomeError struct {
	Code    string
	Message string
}

func (OutcomeError) outcome()       {}
func (OutcomeError) Status() Status { return StatusErrored }

// OutcomeTokensExceeded ends an exchange whose conversation exceeded the
// token limit and for which no continue decision could be obtained.
type OutcomeTokensExceeded struct {
	Conversation *Conversation
}

func (OutcomeTokensExceeded) outcome()       {}
func (OutcomeTokensExceeded) Status() Status { return StatusTokensExceeded }

// OutcomeCancelled is an exchange stopped by the user, by a declined
// token-limit decision, or by context cancellation.
type OutcomeCancelled struct{}

func (OutcomeCancelled) outcome()       {}
func (OutcomeCancelled) Status() Status { return StatusCancelled }

// Interface compliance checks.
var (
	_ Outcome = OutcomeCompleted{}
	_ Outcome = OutcomeError{}
	_ Outcome = OutcomeTokensExceeded{}
	_ Outcome = OutcomeCancelled{}
)
