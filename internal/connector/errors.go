package connector

import (
	"errors"
	"fmt"
)

// Kind classifies a failed connection attempt.
type Kind int

const (
	KindValidation Kind = iota + 1
	KindDetection
	KindManifest
	KindActivation
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindDetection:
		return "detection"
	case KindManifest:
		return "manifest"
	case KindActivation:
		return "activation"
	default:
		return "unknown"
	}
}

// ExitCode is the process exit status for k.
func (k Kind) ExitCode() int {
	switch k {
	case KindManifest:
		return 2
	case KindActivation:
		return 3
	default:
		return 1
	}
}

// Error is a failed connection attempt. BackupPath is set once a snapshot
// exists; Restored reports whether the manifest is back to its
// pre-attempt content.
type Error struct {
	Kind        Kind
	Message     string
	BackupPath  string
	Remediation string
	Restored    bool
	Err         error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s error: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("%s error: %s: %v", e.Kind, e.Message, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ExitCode maps err to the process exit status. Errors that did not come
// from a connection attempt exit 1.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind.ExitCode()
	}
	return 1
}

func failure(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}
