// Package loreerr classifies errors into the kinds the CLI reports
// distinct diagnoses and exit codes for.
package loreerr

import "errors"

// Kind is a coarse classification of what went wrong.
type Kind string

const (
	KindInput      Kind = "input"
	KindFileSystem Kind = "filesystem"
	KindParse      Kind = "parse"
	KindStore      Kind = "store"
	KindNetwork    Kind = "network"
	KindQuota      Kind = "quota"
	KindCrypto     Kind = "crypto"
	KindUnknown    Kind = "unknown"
)

// Error wraps an underlying error with a Kind, so callers that only care
// about the message can still use errors.Is/Unwrap and callers that need
// to pick an exit code can switch on Kind.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return e.Err.Error()
	}
	return e.Op + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New wraps err with the given kind and operation label. Returns nil if
// err is nil.
func New(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf returns the Kind attached to err, walking the unwrap chain.
// Returns KindUnknown if err (or nothing in its chain) is a *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// ExitCode maps a Kind to a process exit code, grouping related failures
// onto the same code the way a Unix tool's errno-derived exit status would.
func ExitCode(kind Kind) int {
	switch kind {
	case KindInput:
		return 2
	case KindFileSystem, KindParse, KindStore:
		return 3
	case KindNetwork, KindQuota:
		return 4
	case KindCrypto:
		return 5
	default:
		return 1
	}
}
