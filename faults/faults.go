// Package faults defines the error taxonomy shared by the pipeline:
// validation failures skip an entry, transient failures are retried, fatal
// failures abort one employee's run, exhausted retries mark one operation
// failed without stopping the batch.
package faults

import (
	"context"
	"errors"
	"fmt"
)

// ValidationError marks a malformed extracted entry. The entry is skipped and
// reported; the batch continues.
type ValidationError struct {
	Key    string
	Reason error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid entry %s: %v", e.Key, e.Reason)
}

func (e *ValidationError) Unwrap() error { return e.Reason }

// ConflictDecisionError signals a data-model violation that deterministic
// reconciliation should make impossible, such as two accepted rows sharing a
// natural key. It is logged, never fatal.
type ConflictDecisionError struct {
	Key    string
	Detail string
}

func (e *ConflictDecisionError) Error() string {
	return fmt.Sprintf("conflicting decision for %s: %s", e.Key, e.Detail)
}

// TransientExternalError wraps a timeout or rate-limit from an external
// collaborator. Callers retry it with backoff.
type TransientExternalError struct {
	Op  string
	Err error
}

func (e *TransientExternalError) Error() string {
	return fmt.Sprintf("transient failure in %s: %v", e.Op, e.Err)
}

func (e *TransientExternalError) Unwrap() error { return e.Err }

// FatalExternalError wraps an authentication failure or permanent rejection.
// It fails the affected employee's run; other employees are unaffected.
type FatalExternalError struct {
	Op  string
	Err error
}

func (e *FatalExternalError) Error() string {
	return fmt.Sprintf("fatal failure in %s: %v", e.Op, e.Err)
}

func (e *FatalExternalError) Unwrap() error { return e.Err }

// ExhaustedRetryError marks one entry's external operation as failed after the
// backoff budget ran out.
type ExhaustedRetryError struct {
	Op       string
	Key      string
	Attempts int
	Last     error
}

func (e *ExhaustedRetryError) Error() string {
	return fmt.Sprintf("%s for %s failed after %d attempts: %v", e.Op, e.Key, e.Attempts, e.Last)
}

func (e *ExhaustedRetryError) Unwrap() error { return e.Last }

func Transient(op string, err error) error {
	if err == nil {
		return nil
	}
	return &TransientExternalError{Op: op, Err: err}
}

func Fatal(op string, err error) error {
	if err == nil {
		return nil
	}
	return &FatalExternalError{Op: op, Err: err}
}

// IsTransient reports whether err should be retried. Deadline expiry counts as
// transient: a timed-out external call is a retryable failure, never success.
func IsTransient(err error) bool {
	var transient *TransientExternalError
	if errors.As(err, &transient) {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}

func IsFatal(err error) bool {
	var fatal *FatalExternalError
	return errors.As(err, &fatal)
}
