package partner

import (
	"errors"
	"strings"
)

// Kind classifies engine failures. The route layer maps each kind to an HTTP status.
type Kind uint8

const (
	KindUnknown Kind = iota
	InvalidArgument
	NotFound
	Forbidden
	InvalidState
	AlreadyPartners
	DuplicatePending
	StoreUnavailable
)

func (k Kind) String() string {
	switch k {
	case InvalidArgument:
		return "invalid argument"
	case NotFound:
		return "not found"
	case Forbidden:
		return "forbidden"
	case InvalidState:
		return "invalid state"
	case AlreadyPartners:
		return "already partners"
	case DuplicatePending:
		return "duplicate pending request"
	case StoreUnavailable:
		return "store unavailable"
	}
	return "unknown"
}

// Error is the only error type returned by Engine methods.
type Error struct {
	Kind Kind
	Op   string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(e.Kind.String())
	if e.Msg != "" {
		b.WriteString(": ")
		b.WriteString(e.Msg)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so errors.Is(err, partner.ErrNotFound)
// works regardless of Op or Msg.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// Sentinels for errors.Is.
var (
	ErrInvalidArgument  = &Error{Kind: InvalidArgument}
	ErrNotFound         = &Error{Kind: NotFound}
	ErrForbidden        = &Error{Kind: Forbidden}
	ErrInvalidState     = &Error{Kind: InvalidState}
	ErrAlreadyPartners  = &Error{Kind: AlreadyPartners}
	ErrDuplicatePending = &Error{Kind: DuplicatePending}
	ErrStoreUnavailable = &Error{Kind: StoreUnavailable}
)

// KindOf returns the kind of err, or KindUnknown when err did not come from the engine.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Retryable reports whether the caller may retry the same operation unchanged.
func Retryable(err error) bool {
	return KindOf(err) == StoreUnavailable
}

func newError(op string, kind Kind, msg string) *Error {
	return &Error{Kind: kind, Op: op, Msg: msg}
}
