package world

import (
	"errors"
	"fmt"
)

// Kind classifies a failure so callers can decide how to surface it.
type Kind int

const (
	KindUnknown       Kind = iota
	KindNotFound           // a referenced room or exit does not resolve
	KindCreation           // the store rejected or failed to produce a new entity
	KindSerialization      // stored data could not be decoded or projected
	KindPersistence        // a write to the store failed
	KindUpstream           // the gateway's call to the primary service failed
	KindValidation         // caller input is malformed
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not found"
	case KindCreation:
		return "creation failed"
	case KindSerialization:
		return "serialization failed"
	case KindPersistence:
		return "persistence failed"
	case KindUpstream:
		return "upstream failed"
	case KindValidation:
		return "invalid input"
	default:
		return "unknown error"
	}
}

// Error is the single error type returned by store and editor operations.
type Error struct {
	Kind Kind
	Op   string // operation and subject, e.g. "get room #4"
	Err  error  // underlying cause, may be nil
}

// Sentinels for errors.Is. A sentinel matches any *Error of the same Kind.
var (
	ErrNotFound      = &Error{Kind: KindNotFound}
	ErrCreation      = &Error{Kind: KindCreation}
	ErrSerialization = &Error{Kind: KindSerialization}
	ErrPersistence   = &Error{Kind: KindPersistence}
	ErrUpstream      = &Error{Kind: KindUpstream}
	ErrValidation    = &Error{Kind: KindValidation}
)

// NewError builds an *Error. err may be nil.
func NewError(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches bare sentinels by kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || t.Op != "" || t.Err != nil {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf returns the kind of the outermost *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsNotFound reports whether err is a not-found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
