// Package apperr classifies failures of external calls so every page section can
// render an inline message instead of aborting the whole render.
package apperr

import (
	"errors"
	"fmt"
)

// Kind is the error taxonomy shared by fetchers, generators and handlers.
type Kind int

const (
	KindUnknown Kind = iota
	// KindUnavailable: upstream API unreachable or returned an unusable response.
	KindUnavailable
	// KindEmpty: upstream answered but had nothing for the request.
	KindEmpty
	// KindInvalidSelection: missing or invalid user selection.
	KindInvalidSelection
	// KindUnknownID: identifier not known upstream.
	KindUnknownID
	// KindDownstream: a dependent service (filings, LLM) failed.
	KindDownstream
)

func (k Kind) String() string {
	switch k {
	case KindUnavailable:
		return "unavailable"
	case KindEmpty:
		return "empty"
	case KindInvalidSelection:
		return "invalid_selection"
	case KindUnknownID:
		return "unknown_id"
	case KindDownstream:
		return "downstream"
	default:
		return "unknown"
	}
}

// Error carries a Kind, the failing operation and a message safe to show users.
type Error struct {
	Kind Kind
	Op   string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Err != nil && e.Msg != "":
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Msg, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	default:
		return fmt.Sprintf("%s: %s", e.Op, e.Msg)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an *Error without a cause.
func New(kind Kind, op, msg string) *Error {
	return &Error{Kind: kind, Op: op, Msg: msg}
}

// Wrap builds an *Error around err. A nil err yields nil.
func Wrap(kind Kind, op, msg string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Msg: msg, Err: err}
}

// KindOf returns the Kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// UserMessage returns the outermost non-empty message in err's chain. Errors
// without one get a generic text per kind.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	for next := err; next != nil; {
		var e *Error
		if !errors.As(next, &e) {
			break
		}
		if e.Msg != "" {
			return e.Msg
		}
		next = e.Err
	}
	switch KindOf(err) {
	case KindUnavailable:
		return "The upstream service is unavailable right now."
	case KindEmpty:
		return "No data available."
	case KindInvalidSelection:
		return "Please make a valid selection."
	case KindUnknownID:
		return "Unknown identifier."
	case KindDownstream:
		return "A dependent service failed."
	default:
		return "Something went wrong."
	}
}
