package batch

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"
)

// fakeMailbox is a MailboxClient that logs every call and fails according to
// errFor, which receives the zero-based index of the call across both methods.
type fakeMailbox struct {
	mu     sync.Mutex
	calls  [][]string
	kinds  []OperationKind
	labels []LabelChanges
	users  []string
	errFor func(call int, ids []string) error
}

func (f *fakeMailbox) BatchDelete(ctx context.Context, userID string, ids []string) error {
	return f.record(OperationDelete, userID, ids, LabelChanges{})
}

func (f *fakeMailbox) BatchModifyLabels(ctx context.Context, userID string, ids []string, changes LabelChanges) error {
	return f.record(OperationModifyLabels, userID, ids, changes)
}

func (f *fakeMailbox) record(kind OperationKind, userID string, ids []string, changes LabelChanges) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	call := len(f.calls)
	f.calls = append(f.calls, append([]string(nil), ids...))
	f.kinds = append(f.kinds, kind)
	f.labels = append(f.labels, changes)
	f.users = append(f.users, userID)
	if f.errFor != nil {
		return f.errFor(call, ids)
	}
	return nil
}

func (f *fakeMailbox) CallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeMailbox) CallSizes() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	sizes := make([]int, len(f.calls))
	for i, c := range f.calls {
		sizes[i] = len(c)
	}
	return sizes
}

// sleepRecorder replaces real sleeping in tests.
type sleepRecorder struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (s *sleepRecorder) Sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.delays = append(s.delays, d)
	s.mu.Unlock()
	return ctx.Err()
}

func (s *sleepRecorder) Delays() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Duration(nil), s.delays...)
}

func makeIDs(n int) []string {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = fmt.Sprintf("msg-%05d", i)
	}
	return ids
}

var (
	errNotFound    = &ProviderError{StatusCode: 404, Message: "Requested entity was not found."}
	errBadRequest  = &ProviderError{StatusCode: 400, Message: "Invalid label id"}
	errBackend     = &ProviderError{StatusCode: 503, Message: "The service is currently unavailable."}
	errRateLimited = &ProviderError{StatusCode: 429, Message: "Too many concurrent requests for user", Reason: "rateLimitExceeded"}
)

// Status-only errors carry no retry wording; only the status decides.
var (
	errTooManyRequests = statusOnly(http.StatusTooManyRequests)
	errServerError     = statusOnly(http.StatusInternalServerError)
	errBadGateway      = statusOnly(http.StatusBadGateway)
	errGatewayTimeout  = statusOnly(http.StatusGatewayTimeout)
	errPlainBadRequest = statusOnly(http.StatusBadRequest)
	errPlainForbidden  = statusOnly(http.StatusForbidden)
	errPlainNotFound   = statusOnly(http.StatusNotFound)
)

func statusOnly(status int) *ProviderError {
	return &ProviderError{StatusCode: status, Message: http.StatusText(status)}
}
