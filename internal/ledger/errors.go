package ledger

import (
	"errors"
	"fmt"

	"github.com/autonomoussoftware/metronome-data-analysis/internal/model"
)

// TransientFetchError is returned when an RPC call fails on every attempt
// of its retry budget. It carries the last underlying cause.
type TransientFetchError struct {
	Op       string
	Attempts int
	Err      error
}

func (e *TransientFetchError) Error() string {
	return fmt.Sprintf("%s failed after %d attempts: %v", e.Op, e.Attempts, e.Err)
}

func (e *TransientFetchError) Unwrap() error {
	return e.Err
}

// IsTransient reports whether err is a retry-exhausted fetch failure.
func IsTransient(err error) bool {
	var target *TransientFetchError
	return errors.As(err, &target)
}

// RangeTooLargeError is returned when the provider rejects an event query
// because the block range is too wide. It is never retried.
type RangeTooLargeError struct {
	Kind model.EventKind
	From uint64
	To   uint64
	Err  error
}

func (e *RangeTooLargeError) Error() string {
	return fmt.Sprintf("%s events in blocks %d-%d: range too large: %v", e.Kind, e.From, e.To, e.Err)
}

func (e *RangeTooLargeError) Unwrap() error {
	return e.Err
}

// Permanent marks the error as not eligible for retry.
func (e *RangeTooLargeError) Permanent() bool {
	return true
}

type permanent interface {
	Permanent() bool
}

func isPermanent(err error) bool {
	var p permanent
	return errors.As(err, &p) && p.Permanent()
}

// CallRevertedError is returned when a contract call reverts. Retrying
// cannot change the outcome.
type CallRevertedError struct {
	Err error
}

func (e *CallRevertedError) Error() string {
	return fmt.Sprintf("call reverted: %v", e.Err)
}

func (e *CallRevertedError) Unwrap() error {
	return e.Err
}

func (e *CallRevertedError) Permanent() bool {
	return true
}
