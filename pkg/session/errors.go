package session

import (
	"errors"
	"fmt"
)

// ErrorKind classifies why a session could not be established. Every kind
// aborts the run.
type ErrorKind int

const (
	InvalidCredentials ErrorKind = iota + 1
	Timeout
	ElementMissing
	SessionExpired
)

func (k ErrorKind) String() string {
	switch k {
	case InvalidCredentials:
		return "invalid_credentials"
	case Timeout:
		return "timeout"
	case ElementMissing:
		return "element_missing"
	case SessionExpired:
		return "session_expired"
	default:
		return "unknown"
	}
}

// AuthError is returned by Establish. Artifact is the diagnostic captured
// for the failure, empty when capture failed.
type AuthError struct {
	Kind     ErrorKind
	Message  string
	Artifact string
	Err      error
}

func (e *AuthError) Error() string {
	msg := fmt.Sprintf("auth %s: %s", e.Kind, e.Message)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *AuthError) Unwrap() error { return e.Err }

// Is matches another *AuthError of the same kind, so callers can write
// errors.Is(err, &session.AuthError{Kind: session.Timeout}).
func (e *AuthError) Is(target error) bool {
	t, ok := target.(*AuthError)
	return ok && t.Kind == e.Kind
}

// KindOf returns the kind of the AuthError in err's chain, zero if none
func KindOf(err error) ErrorKind {
	var ae *AuthError
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return 0
}
