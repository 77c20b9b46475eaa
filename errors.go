package drip

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure modes.
var (
	// ErrValidation indicates a request or message failed validation.
	ErrValidation = errors.New("validation error")

	// ErrStreamNotReady indicates Response() was called before Next().
	ErrStreamNotReady = errors.New("stream not ready: call Next() first")

	// ErrStreamClosed indicates an operation on a closed stream.
	ErrStreamClosed = errors.New("stream closed")

	// ErrInternalFault indicates an unexpected failure inside accounting or
	// delivery code. It is reported to the Sink and returned to the producer.
	ErrInternalFault = errors.New("internal fault")

	// ErrConversationNotFound indicates a store has no such conversation.
	ErrConversationNotFound = errors.New("conversation not found")
)

// CodeInsufficientQuota is the producer error code that denotes quota
// exhaustion.
const CodeInsufficientQuota = "insufficient_quota"

// DefaultQuotaCodes lists the error codes classified as quota exhaustion
// when no explicit list is configured.
var DefaultQuotaCodes = []string{CodeInsufficientQuota}

// ErrorDetails describes a producer failure as reported by the upstream
// service.
type ErrorDetails struct {
	Code    string
	Message string
}

// ProducerError is a transport or service failure raised by a Provider.
// Code carries the upstream error code or type; it is empty when the
// upstream did not supply one.
type ProducerError struct {
	Code    string
	Message string
	Err     error
}

func (e *ProducerError) Error() string {
	if e.Code == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *ProducerError) Unwrap() error { return e.Err }

// Details returns the ErrorDetails view of the error.
func (e *ProducerError) Details() ErrorDetails {
	return ErrorDetails{Code: e.Code, Message: e.Message}
}

// DetailsOf extracts ErrorDetails from err. Errors that are not a
// *ProducerError produce details with an empty code and err's text.
func DetailsOf(err error) ErrorDetails {
	if err == nil {
		return ErrorDetails{}
	}
	var pe *ProducerError
	if errors.As(err, &pe) {
		return pe.Details()
	}
	return ErrorDetails{Message: err.Error()}
}
