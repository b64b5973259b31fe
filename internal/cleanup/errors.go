package cleanup

import (
	"errors"
	"fmt"
)

// Kind classifies a cleanup failure
type Kind int

const (
	KindUnknown Kind = iota
	KindConfiguration
	KindClientProtocol
	KindTransient
	KindTerminal
	KindExhausted
)

func (k Kind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration"
	case KindClientProtocol:
		return "client_protocol"
	case KindTransient:
		return "transient"
	case KindTerminal:
		return "terminal"
	case KindExhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}

// ConfigurationError: the service is not set up to call the vision model.
// MissingKey distinguishes an absent key from a malformed one.
type ConfigurationError struct {
	MissingKey bool
	Reason     string
}

func (e *ConfigurationError) Error() string {
	return e.Reason
}

// ClientProtocolError: the caller sent an unusable request
type ClientProtocolError struct {
	Reason string
	Err    error
}

func (e *ClientProtocolError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Reason, e.Err)
	}
	return e.Reason
}

func (e *ClientProtocolError) Unwrap() error { return e.Err }

// TransientExternalError: a failed attempt that is worth retrying.
// Only ever surfaces as ExhaustionError.Last.
type TransientExternalError struct {
	Status int
	Err    error
}

func (e *TransientExternalError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("transient upstream failure (status %d): %v", e.Status, e.Err)
	}
	return fmt.Sprintf("transient upstream failure: %v", e.Err)
}

func (e *TransientExternalError) Unwrap() error { return e.Err }

// TerminalExternalError: the vision model failed in a way retrying will not fix.
// Status is 0 when no HTTP response was received.
type TerminalExternalError struct {
	Status int
	Detail string
	Err    error
}

func (e *TerminalExternalError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("upstream request failed (status %d): %s", e.Status, e.Detail)
	}
	return fmt.Sprintf("upstream request failed: %s", e.Detail)
}

func (e *TerminalExternalError) Unwrap() error { return e.Err }

// ExhaustionError: every attempt failed with a retryable error
type ExhaustionError struct {
	Attempts int
	Last     error
}

func (e *ExhaustionError) Error() string {
	return fmt.Sprintf("cleanup failed after %d attempts: %v", e.Attempts, e.Last)
}

func (e *ExhaustionError) Unwrap() error { return e.Last }

// KindOf: reports the kind of the outermost cleanup error in err's chain
func KindOf(err error) Kind {
	var (
		configErr    *ConfigurationError
		protocolErr  *ClientProtocolError
		exhaustedErr *ExhaustionError
		terminalErr  *TerminalExternalError
		transientErr *TransientExternalError
	)
	switch {
	case err == nil:
		return KindUnknown
	case errors.As(err, &configErr):
		return KindConfiguration
	case errors.As(err, &protocolErr):
		return KindClientProtocol
	case errors.As(err, &exhaustedErr):
		return KindExhausted
	case errors.As(err, &terminalErr):
		return KindTerminal
	case errors.As(err, &transientErr):
		return KindTransient
	default:
		return KindUnknown
	}
}
