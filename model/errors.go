package model

import "errors"

// Kind is a stable category for programmatic error handling.
type Kind string

const (
	KindConfig        Kind = "Config"
	KindConnection    Kind = "Connection"
	KindCredential    Kind = "Credential"
	KindArtifactParse Kind = "ArtifactParse"
	KindTransaction   Kind = "Transaction"
	KindGeneration    Kind = "Generation"
)

// Error is the client's structured error type.
//
// Op names the operation that failed ("dial", "load signer", "parse artifact").
// Phase is only set for KindTransaction.
type Error struct {
	Kind    Kind
	Op      string
	Phase   Phase
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	prefix := string(e.Kind) + " error"
	if e.Op != "" {
		prefix += " (" + e.Op
		if e.Phase != "" {
			prefix += ", " + string(e.Phase)
		}
		prefix += ")"
	}
	msg := e.Message
	if msg == "" && e.Cause != nil {
		msg = e.Cause.Error()
	} else if e.Cause != nil {
		msg = msg + ": " + e.Cause.Error()
	}
	if msg == "" {
		return prefix
	}
	return prefix + ": " + msg
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

func newError(kind Kind, op, msg string, cause error) *Error {
	return &Error{Kind: kind, Op: op, Message: msg, Cause: cause}
}

func ConfigError(op, msg string, cause error) error {
	return newError(KindConfig, op, msg, cause)
}

func ConnectionError(op, msg string, cause error) error {
	return newError(KindConnection, op, msg, cause)
}

func CredentialError(op, msg string, cause error) error {
	return newError(KindCredential, op, msg, cause)
}

func ArtifactParseError(op, msg string, cause error) error {
	return newError(KindArtifactParse, op, msg, cause)
}

func GenerationError(op, msg string, cause error) error {
	return newError(KindGeneration, op, msg, cause)
}

// TransactionError reports a failed gateway call in the given phase.
func TransactionError(op string, phase Phase, msg string, cause error) error {
	e := newError(KindTransaction, op, msg, cause)
	e.Phase = phase
	return e
}

// IsKind reports whether err is (or wraps) a *Error with the given Kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == kind
}

// KindOf returns the Kind of a structured error, or "" if err carries none.
func KindOf(err error) Kind {
	var e *Error
	if !errors.As(err, &e) {
		return ""
	}
	return e.Kind
}

// PhaseOf returns the gateway phase of a transaction error, or "".
func PhaseOf(err error) Phase {
	var e *Error
	if !errors.As(err, &e) {
		return ""
	}
	return e.Phase
}
