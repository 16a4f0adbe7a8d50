package irc

import "fmt"

// ErrKind classifies the errors this package returns, per the error
// handling design: codec errors on inbound lines are reported via an
// event and discarded, TransportError is fatal, everything else is
// surfaced to the caller of the specific API that raised it.
type ErrKind int

const (
	ErrKindMalformedLine ErrKind = iota
	ErrKindInvalidArgument
	ErrKindNotRegistered
	ErrKindNotSupported
	ErrKindAsyncRequestError
	ErrKindDisconnected
	ErrKindCancelled
	ErrKindTransportError
)

func (k ErrKind) String() string {
	switch k {
	case ErrKindMalformedLine:
		return "malformed line"
	case ErrKindInvalidArgument:
		return "invalid argument"
	case ErrKindNotRegistered:
		return "not registered"
	case ErrKindNotSupported:
		return "not supported"
	case ErrKindAsyncRequestError:
		return "async request error"
	case ErrKindDisconnected:
		return "disconnected"
	case ErrKindCancelled:
		return "cancelled"
	case ErrKindTransportError:
		return "transport error"
	default:
		return "unknown"
	}
}

// Error is the error type returned by this package. Kind lets callers
// branch with errors.Is against the sentinel *Error values below, or
// inspect Kind directly.
type Error struct {
	Kind ErrKind
	// Line is the raw offending line, set for ErrKindMalformedLine and
	// ErrKindAsyncRequestError.
	Line string
	// Command is the numeric or verb that produced an
	// ErrKindAsyncRequestError.
	Command string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s", e.Kind, e.Err)
	}
	return e.Kind.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrNotRegistered) match any *Error of that Kind,
// independent of Line/Command/Err.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// Sentinels for use with errors.Is. Only Kind is compared.
var (
	ErrMalformedLine    = &Error{Kind: ErrKindMalformedLine}
	ErrInvalidArgument  = &Error{Kind: ErrKindInvalidArgument}
	ErrNotRegistered    = &Error{Kind: ErrKindNotRegistered}
	ErrNotSupported     = &Error{Kind: ErrKindNotSupported}
	ErrAsyncRequest     = &Error{Kind: ErrKindAsyncRequestError}
	ErrDisconnected     = &Error{Kind: ErrKindDisconnected}
	ErrCancelled        = &Error{Kind: ErrKindCancelled}
	ErrTransport        = &Error{Kind: ErrKindTransportError}
)

var errNoCommand = fmt.Errorf("no command found")

func errMissingPrefix() error {
	return fmt.Errorf("message is missing a required prefix")
}

func errNotEnoughParamsText(command string, want, got int) error {
	return fmt.Errorf("command %s wants at least %d parameters, got %d", command, want, got)
}

func invalidArgument(format string, args ...interface{}) error {
	return &Error{Kind: ErrKindInvalidArgument, Err: fmt.Errorf(format, args...)}
}

func notRegistered(operation string) error {
	return &Error{Kind: ErrKindNotRegistered, Err: fmt.Errorf("%s requires the session to have received server info", operation)}
}

func notSupported(feature string) error {
	return &Error{Kind: ErrKindNotSupported, Err: fmt.Errorf("network does not support %s", feature)}
}
