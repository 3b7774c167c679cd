// Package fault defines the user-visible error taxonomy of the relay.
package fault

import (
	"errors"
	"fmt"
)

// Kind classifies a failure for listeners and exit handling.
type Kind string

const (
	// UnsupportedEnvironment means no recognition capability exists; capture never starts.
	UnsupportedEnvironment Kind = "unsupported_environment"
	// RecognitionFailed stops the current capture session.
	RecognitionFailed Kind = "recognition_failed"
	// TranslationFailed is local to one settle cycle.
	TranslationFailed Kind = "translation_failed"
	// InvalidResponse means the translation service payload lacked a translation.
	InvalidResponse Kind = "invalid_response"
)

// Fatal reports whether a kind ends the capture session.
func (k Kind) Fatal() bool {
	return k == UnsupportedEnvironment || k == RecognitionFailed
}

// Error attaches a Kind to an underlying error.
type Error struct {
	Kind Kind
	Err  error
}

// New wraps err with kind. A nil err still produces a usable error.
func New(kind Kind, err error) *Error {
	if err == nil {
		err = errors.New(string(kind))
	}
	return &Error{Kind: kind, Err: err}
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the Kind carried by err, or "" when err is unclassified.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return ""
}

// Detail returns the user-facing detail text of err.
func Detail(err error) string {
	if err == nil {
		return ""
	}
	var fe *Error
	if errors.As(err, &fe) && fe.Err != nil {
		return fe.Err.Error()
	}
	return err.Error()
}
