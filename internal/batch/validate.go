package batch

import (
	"errors"
	"fmt"
	"sort"
)

// Validation errors, matched with errors.Is.
var (
	ErrCompleteFailure = errors.New("bulk operation completely failed")
	ErrPartialFailure  = errors.New("bulk operation partially failed")
)

// ValidationError reports an unsuccessful bulk operation.
type ValidationError struct {
	Kind          error
	OperationType string
	Succeeded     int
	Failed        int
	Retryable     bool
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (%d succeeded, %d failed)", e.Kind, e.OperationType, e.Succeeded, e.Failed)
}

func (e *ValidationError) Unwrap() error { return e.Kind }

// ValidateResult converts a result into an error. It is a pure read.
//
// No operations, or successes without failures, are fine. Failures without
// successes are ErrCompleteFailure. Mixed outcomes are ErrPartialFailure when
// failOnPartialFailure is set, and fine otherwise.
func ValidateResult(result *Result, failOnPartialFailure bool) error {
	succeeded := result.SuccessCount()
	failed := result.FailureCount()

	var kind error
	switch {
	case failed == 0:
		return nil
	case succeeded == 0:
		kind = ErrCompleteFailure
	case failOnPartialFailure:
		kind = ErrPartialFailure
	default:
		return nil
	}

	return &ValidationError{
		Kind:          kind,
		OperationType: result.OperationType,
		Succeeded:     succeeded,
		Failed:        failed,
		Retryable:     AreFailuresRetryable(result),
	}
}

// AreFailuresRetryable reports whether at least one recorded failure
// classifies as retryable.
func AreFailuresRetryable(result *Result) bool {
	for _, kind := range result.FailureKinds() {
		if kind.Classification() == Retryable {
			return true
		}
	}
	return false
}

// RetryableFailures returns, sorted, the ids whose failure classifies as
// retryable.
func RetryableFailures(result *Result) []string {
	var ids []string
	for id, kind := range result.FailureKinds() {
		if kind.Classification() == Retryable {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}
