package batch

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Result aggregates the per-item outcome of one bulk operation. It is owned
// by the request that created it; its methods are safe for concurrent use.
//
// A failure entry is not removed when the same id later succeeds, so an id
// that recovered after a retry appears in both sets and
// SuccessCount()+FailureCount() can exceed the number of ids requested.
type Result struct {
	OperationID   string
	OperationType string
	StartTime     time.Time

	mu        sync.RWMutex
	successes map[string]struct{}
	failures  map[string]failure
	endTime   time.Time

	batchesProcessed atomic.Int64
	batchesRetried   atomic.Int64
}

// failure is the last recorded error for an id and how it was classified.
type failure struct {
	message string
	kind    ErrorKind
}

// NewResult starts an empty result for the given operation type.
func NewResult(operationType string) *Result {
	return &Result{
		OperationID:   uuid.NewString(),
		OperationType: operationType,
		StartTime:     time.Now(),
		successes:     make(map[string]struct{}),
		failures:      make(map[string]failure),
	}
}

// AddSuccess records id as successfully processed.
func (r *Result) AddSuccess(id string) {
	r.mu.Lock()
	r.successes[id] = struct{}{}
	r.mu.Unlock()
}

// AddFailure records id as failed with message, categorized from the message
// text. A later failure for the same id overwrites the earlier one.
func (r *Result) AddFailure(id, message string) {
	r.AddFailureKind(id, message, CategorizeMessage(message))
}

// AddFailureKind records id as failed with message and an already known kind.
func (r *Result) AddFailureKind(id, message string, kind ErrorKind) {
	r.mu.Lock()
	r.failures[id] = failure{message: message, kind: kind}
	r.mu.Unlock()
}

// IncrementBatchesProcessed counts one processed chunk.
func (r *Result) IncrementBatchesProcessed() { r.batchesProcessed.Add(1) }

// IncrementBatchesRetried counts one chunk that needed at least one retry.
func (r *Result) IncrementBatchesRetried() { r.batchesRetried.Add(1) }

// MarkCompleted stamps the end time.
func (r *Result) MarkCompleted() {
	r.mu.Lock()
	r.endTime = time.Now()
	r.mu.Unlock()
}

// EndTime returns the completion time, zero until MarkCompleted.
func (r *Result) EndTime() time.Time {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.endTime
}

// Duration returns the elapsed run time, measured to now while still running.
func (r *Result) Duration() time.Duration {
	end := r.EndTime()
	if end.IsZero() {
		return time.Since(r.StartTime)
	}
	return end.Sub(r.StartTime)
}

func (r *Result) BatchesProcessed() int { return int(r.batchesProcessed.Load()) }
func (r *Result) BatchesRetried() int   { return int(r.batchesRetried.Load()) }

// SuccessCount returns the number of distinct successful ids.
func (r *Result) SuccessCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.successes)
}

// FailureCount returns the number of distinct failed ids.
func (r *Result) FailureCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.failures)
}

// TotalOperations returns the number of operations recorded as done, which is
// the success count.
func (r *Result) TotalOperations() int { return r.SuccessCount() }

// SuccessRate returns successes as a percentage of all recorded outcomes, or
// 0 when nothing was recorded.
func (r *Result) SuccessRate() float64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	total := len(r.successes) + len(r.failures)
	if total == 0 {
		return 0
	}
	return float64(len(r.successes)) / float64(total) * 100
}

func (r *Result) IsCompleteSuccess() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.successes) > 0 && len(r.failures) == 0
}

func (r *Result) HasFailures() bool  { return r.FailureCount() > 0 }
func (r *Result) HasSuccesses() bool { return r.SuccessCount() > 0 }

// SuccessfulIDs returns the successful ids, sorted.
func (r *Result) SuccessfulIDs() []string {
	r.mu.RLock()
	ids := make([]string, 0, len(r.successes))
	for id := range r.successes {
		ids = append(ids, id)
	}
	r.mu.RUnlock()
	sort.Strings(ids)
	return ids
}

// Failures returns a copy of the id to error message map.
func (r *Result) Failures() map[string]string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]string, len(r.failures))
	for id, f := range r.failures {
		out[id] = f.message
	}
	return out
}

// FailureKinds returns a copy of the id to ErrorKind map.
func (r *Result) FailureKinds() map[string]ErrorKind {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]ErrorKind, len(r.failures))
	for id, f := range r.failures {
		out[id] = f.kind
	}
	return out
}

// Summary is a JSON-friendly snapshot of a Result.
type Summary struct {
	OperationID      string            `json:"operationId"`
	OperationType    string            `json:"operationType"`
	SuccessCount     int               `json:"successCount"`
	FailureCount     int               `json:"failureCount"`
	TotalOperations  int               `json:"totalOperations"`
	SuccessRate      float64           `json:"successRate"`
	BatchesProcessed int               `json:"batchesProcessed"`
	BatchesRetried   int               `json:"batchesRetried"`
	StartTime        time.Time         `json:"startTime"`
	EndTime          time.Time         `json:"endTime"`
	DurationMs       int64             `json:"durationMs"`
	Failures         map[string]string `json:"failures,omitempty"`
}

// Summary snapshots the result.
func (r *Result) Summary() Summary {
	return Summary{
		OperationID:      r.OperationID,
		OperationType:    r.OperationType,
		SuccessCount:     r.SuccessCount(),
		FailureCount:     r.FailureCount(),
		TotalOperations:  r.TotalOperations(),
		SuccessRate:      r.SuccessRate(),
		BatchesProcessed: r.BatchesProcessed(),
		BatchesRetried:   r.BatchesRetried(),
		StartTime:        r.StartTime,
		EndTime:          r.EndTime(),
		DurationMs:       r.Duration().Milliseconds(),
		Failures:         r.Failures(),
	}
}
