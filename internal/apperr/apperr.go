// Package apperr labels failures of the ingestion pipeline so callers can
// decide between degrading a single item and failing a whole page.
package apperr

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindCredentialExpired Kind = "credential_expired"
	KindTransport         Kind = "transport"
	KindInvalidInput      Kind = "invalid_input"
	KindBackend           Kind = "backend"
	KindNoAccountLinked   Kind = "no_account_linked"
	KindUserNotFound      Kind = "user_not_found"
	KindStore             Kind = "store"
)

// Sentinels for errors.Is checks. Matching is by Kind only.
var (
	ErrCredentialExpired = &Error{Kind: KindCredentialExpired}
	ErrTransport         = &Error{Kind: KindTransport}
	ErrInvalidInput      = &Error{Kind: KindInvalidInput}
	ErrBackend           = &Error{Kind: KindBackend}
	ErrNoAccountLinked   = &Error{Kind: KindNoAccountLinked}
	ErrUserNotFound      = &Error{Kind: KindUserNotFound}
	ErrStore             = &Error{Kind: KindStore}
)

type Error struct {
	Kind Kind
	Op   string
	Msg  string
	Err  error
}

func New(kind Kind, op, msg string) *Error {
	return &Error{Kind: kind, Op: op, Msg: msg}
}

func Wrap(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func (e *Error) Error() string {
	detail := e.Msg
	if e.Err != nil {
		if detail != "" {
			detail = fmt.Sprintf("%s: %v", detail, e.Err)
		} else {
			detail = e.Err.Error()
		}
	}
	if detail == "" {
		detail = string(e.Kind)
	}
	if e.Op != "" {
		return fmt.Sprintf("%s: %s", e.Op, detail)
	}
	return detail
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf returns the kind of the first *Error in err's chain, or "" when
// err carries no label.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Message returns the user-facing text of err: the labelled message when one
// was set, otherwise the full error string.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Msg != "" {
		return e.Msg
	}
	if err == nil {
		return ""
	}
	return err.Error()
}
