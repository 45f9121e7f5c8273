package batch

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResult_Counts(t *testing.T) {
	r := NewResult(string(OperationDelete))
	require.NotEmpty(t, r.OperationID)
	assert.Equal(t, "DELETE", r.OperationType)

	assert.Equal(t, 0.0, r.SuccessRate())
	assert.False(t, r.IsCompleteSuccess())

	r.AddSuccess("a")
	r.AddSuccess("b")
	r.AddSuccess("b")
	r.AddSuccess("c")
	r.AddFailure("d", "not found")

	assert.Equal(t, 3, r.SuccessCount())
	assert.Equal(t, 1, r.FailureCount())
	assert.Equal(t, 3, r.TotalOperations())
	assert.Equal(t, 75.0, r.SuccessRate())
	assert.True(t, r.HasFailures())
	assert.True(t, r.HasSuccesses())
	assert.False(t, r.IsCompleteSuccess())
	assert.Equal(t, []string{"a", "b", "c"}, r.SuccessfulIDs())
}

func TestResult_LastFailureWins(t *testing.T) {
	r := NewResult("DELETE")
	r.AddFailure("a", "Backend Error")
	r.AddFailure("a", "Message not found")

	assert.Equal(t, 1, r.FailureCount())
	assert.Equal(t, map[string]string{"a": "Message not found"}, r.Failures())
}

func TestResult_FailureKeptAfterSuccess(t *testing.T) {
	r := NewResult("DELETE")
	r.AddFailure("a", "Backend Error")
	r.AddSuccess("a")

	assert.Equal(t, 1, r.SuccessCount())
	assert.Equal(t, 1, r.FailureCount())
	assert.Equal(t, 50.0, r.SuccessRate())
}

func TestResult_MarkCompleted(t *testing.T) {
	r := NewResult("DELETE")
	assert.True(t, r.EndTime().IsZero())

	r.MarkCompleted()
	assert.False(t, r.EndTime().IsZero())
	assert.False(t, r.EndTime().Before(r.StartTime))
	assert.GreaterOrEqual(t, r.Duration().Nanoseconds(), int64(0))
}

func TestResult_ConcurrentWriters(t *testing.T) {
	r := NewResult("MODIFY_LABELS")

	var wg sync.WaitGroup
	for g := 0; g < 10; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				id := fmt.Sprintf("%d-%d", g, i)
				if i%2 == 0 {
					r.AddSuccess(id)
				} else {
					r.AddFailure(id, "timeout")
				}
				r.IncrementBatchesProcessed()
			}
			r.IncrementBatchesRetried()
		}(g)
	}
	wg.Wait()

	assert.Equal(t, 500, r.SuccessCount())
	assert.Equal(t, 500, r.FailureCount())
	assert.Equal(t, 1000, r.BatchesProcessed())
	assert.Equal(t, 10, r.BatchesRetried())
}

func TestResult_Summary(t *testing.T) {
	r := NewResult("DELETE")
	r.AddSuccess("a")
	r.AddFailure("b", "Backend Error")
	r.IncrementBatchesProcessed()
	r.MarkCompleted()

	s := r.Summary()
	assert.Equal(t, r.OperationID, s.OperationID)
	assert.Equal(t, 1, s.SuccessCount)
	assert.Equal(t, 1, s.FailureCount)
	assert.Equal(t, 1, s.TotalOperations)
	assert.Equal(t, 50.0, s.SuccessRate)
	assert.Equal(t, 1, s.BatchesProcessed)
	assert.Equal(t, map[string]string{"b": "Backend Error"}, s.Failures)
	assert.Equal(t, r.EndTime(), s.EndTime)
}
