package types

import (
	"errors"
	"fmt"
)

// -----------------------------------------------------------------------------
// Status codes (mirror the code object manager's status values)
// -----------------------------------------------------------------------------

// Status is the coarse result code recorded in a session's last-error slot.
// The numbers align with the code object manager's status enumeration.
type Status uint32

const (
	StatusSuccess         Status = 0
	StatusError           Status = 1
	StatusInvalidArgument Status = 2
	StatusOutOfResources  Status = 3
)

// String implements the Stringer interface for Status.
func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "SUCCESS"
	case StatusError:
		return "ERROR"
	case StatusInvalidArgument:
		return "INVALID_ARGUMENT"
	case StatusOutOfResources:
		return "OUT_OF_RESOURCES"
	default:
		return fmt.Sprintf("UNKNOWN_STATUS_%d", uint32(s))
	}
}

// -----------------------------------------------------------------------------
// Typed Errors (stable categories for programmatic handling)
// -----------------------------------------------------------------------------

// ErrKind classifies errors so callers can branch on intent rather than text.
type ErrKind int

const (
	ErrKindProvider    ErrKind = iota // tree/symbol/action provider reported failure
	ErrKindSchema                     // missing required field, wrong node kind, bad leaf
	ErrKindVocabulary                 // tag outside a closed vocabulary
	ErrKindResource                   // count exceeds the configured allocation guard
	ErrKindProtocol                   // transform chain or symbol pass invariant broken
	ErrKindArgument                   // invalid caller argument
	ErrKindState                      // invalid operation for current state (e.g., closed)
	ErrKindUnsupported                // valid request the artifact cannot serve
)

// String implements the Stringer interface for ErrKind.
func (k ErrKind) String() string {
	switch k {
	case ErrKindProvider:
		return "provider"
	case ErrKindSchema:
		return "schema"
	case ErrKindVocabulary:
		return "vocabulary"
	case ErrKindResource:
		return "resource"
	case ErrKindProtocol:
		return "protocol"
	case ErrKindArgument:
		return "argument"
	case ErrKindState:
		return "state"
	case ErrKindUnsupported:
		return "unsupported"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Error is a typed error with a status code and an optional underlying cause.
type Error struct {
	Kind   ErrKind
	Status Status
	Msg    string
	Err    error // optional underlying cause
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error by Kind and Msg so that sentinels survive wrapping
// with extra context (see Errorf).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e == nil || t == nil {
		return false
	}
	return e.Kind == t.Kind && e.Msg == t.Msg
}

// StatusOf returns the status carried by err. Errors that are not *Error
// (or wrap one) report StatusError; a nil error is StatusSuccess.
func StatusOf(err error) Status {
	if err == nil {
		return StatusSuccess
	}
	var te *Error
	if errors.As(err, &te) && te.Status != StatusSuccess {
		return te.Status
	}
	return StatusError
}

// Errorf builds a copy of sentinel whose cause carries the formatted context.
// errors.Is(result, sentinel) holds.
func Errorf(sentinel *Error, format string, args ...any) *Error {
	return &Error{
		Kind:   sentinel.Kind,
		Status: sentinel.Status,
		Msg:    sentinel.Msg,
		Err:    fmt.Errorf(format, args...),
	}
}

// Provider wraps a failure reported by a provider as ErrProvider. A status
// carried by err itself is kept.
func Provider(op string, err error) *Error {
	e := Errorf(ErrProvider, "%s: %w", op, err)
	var inner *Error
	if errors.As(err, &inner) && inner.Status != StatusSuccess {
		e.Status = inner.Status
	}
	return e
}

// Sentinels commonly returned by implementations.
var (
	// ErrMissingField indicates a required metadata field was absent.
	ErrMissingField = &Error{Kind: ErrKindSchema, Status: StatusError, Msg: "missing required metadata field"}
	// ErrWrongKind indicates a metadata node had an unexpected kind.
	ErrWrongKind = &Error{Kind: ErrKindSchema, Status: StatusError, Msg: "metadata node has wrong kind"}
	// ErrParse indicates a string leaf could not be converted to the requested type.
	ErrParse = &Error{Kind: ErrKindSchema, Status: StatusError, Msg: "failed to convert metadata value"}
	// ErrStringTooLong indicates a string leaf exceeded the configured maximum.
	ErrStringTooLong = &Error{Kind: ErrKindSchema, Status: StatusError, Msg: "size of string value exceeded"}
	// ErrUnknownTag indicates a shader or hardware stage tag outside the closed vocabulary.
	ErrUnknownTag = &Error{Kind: ErrKindVocabulary, Status: StatusError, Msg: "unknown metadata tag"}
	// ErrTooLarge indicates a list or map is larger than the allocation guard allows.
	ErrTooLarge = &Error{Kind: ErrKindResource, Status: StatusOutOfResources, Msg: "metadata collection too large"}
	// ErrProtocol indicates a transform stage produced an unexpected number of outputs.
	ErrProtocol = &Error{Kind: ErrKindProtocol, Status: StatusError, Msg: "unexpected number of data objects"}
	// ErrSymbolCountMismatch indicates the two symbol passes disagreed.
	ErrSymbolCountMismatch = &Error{Kind: ErrKindProtocol, Status: StatusError, Msg: "function symbol count changed between passes"}
	// ErrProvider indicates the underlying provider reported a failure.
	ErrProvider = &Error{Kind: ErrKindProvider, Status: StatusError, Msg: "provider failure"}
	// ErrEmptyBuffer indicates an artifact was opened from an empty buffer.
	ErrEmptyBuffer = &Error{Kind: ErrKindArgument, Status: StatusInvalidArgument, Msg: "empty code object buffer"}
	// ErrBufferSize indicates a caller-provided buffer does not match the data size.
	ErrBufferSize = &Error{Kind: ErrKindArgument, Status: StatusInvalidArgument, Msg: "buffer size mismatch"}
	// ErrClosed indicates an operation on a closed code object.
	ErrClosed = &Error{Kind: ErrKindState, Status: StatusError, Msg: "code object is closed"}
	// ErrUnsupported indicates the artifact or actor cannot serve the request.
	ErrUnsupported = &Error{Kind: ErrKindUnsupported, Status: StatusError, Msg: "unsupported operation"}
)
