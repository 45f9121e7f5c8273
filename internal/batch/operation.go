package batch

import (
	"context"
	"errors"
	"fmt"
)

// OperationKind identifies the remote bulk operation to perform.
type OperationKind string

const (
	OperationDelete       OperationKind = "DELETE"
	OperationModifyLabels OperationKind = "MODIFY_LABELS"
)

// Provider limits
const (
	// MaxDeleteBatchSize is the provider's hard limit of ids per batch delete call.
	MaxDeleteBatchSize = 1000

	// InitialAdaptiveBatchSize is where label modification chunk sizing starts.
	InitialAdaptiveBatchSize = 15

	// MinAdaptiveBatchSize is the floor the adaptive size never drops below.
	MinAdaptiveBatchSize = 5
)

// Request validation errors.
var (
	ErrUnknownOperation = errors.New("unknown operation kind")
	ErrMissingUser      = errors.New("user id is required")
	ErrNoLabelChanges   = errors.New("label modification requires labels to add or remove")
)

// LabelChanges is the label mutation payload of a MODIFY_LABELS request.
type LabelChanges struct {
	Add    []string
	Remove []string
}

// IsEmpty reports whether the payload neither adds nor removes a label.
func (c LabelChanges) IsEmpty() bool {
	return len(c.Add) == 0 && len(c.Remove) == 0
}

func (c LabelChanges) clone() LabelChanges {
	return LabelChanges{Add: cloneStrings(c.Add), Remove: cloneStrings(c.Remove)}
}

// OperationRequest describes one bulk operation. It is immutable once built;
// accessors return copies.
type OperationRequest struct {
	kind   OperationKind
	userID string
	ids    []string
	labels LabelChanges
}

// NewDeleteRequest builds a request that permanently deletes ids.
// Duplicate ids are kept as given.
func NewDeleteRequest(userID string, ids []string) OperationRequest {
	return OperationRequest{
		kind:   OperationDelete,
		userID: userID,
		ids:    cloneStrings(ids),
	}
}

// NewModifyLabelsRequest builds a request that adds and removes labels on ids.
func NewModifyLabelsRequest(userID string, ids []string, changes LabelChanges) OperationRequest {
	return OperationRequest{
		kind:   OperationModifyLabels,
		userID: userID,
		ids:    cloneStrings(ids),
		labels: changes.clone(),
	}
}

// Kind returns the operation kind.
func (r OperationRequest) Kind() OperationKind { return r.kind }

// UserID returns the mailbox owner the operation acts on.
func (r OperationRequest) UserID() string { return r.userID }

// IDs returns a copy of the item identifiers in request order.
func (r OperationRequest) IDs() []string { return cloneStrings(r.ids) }

// Len returns the number of identifiers, duplicates included.
func (r OperationRequest) Len() int { return len(r.ids) }

// Labels returns a copy of the label mutation payload.
func (r OperationRequest) Labels() LabelChanges { return r.labels.clone() }

// Validate checks that the request can be executed. An empty id list is valid.
func (r OperationRequest) Validate() error {
	switch r.kind {
	case OperationDelete:
	case OperationModifyLabels:
		if r.labels.IsEmpty() {
			return ErrNoLabelChanges
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownOperation, r.kind)
	}
	if r.userID == "" {
		return ErrMissingUser
	}
	return nil
}

// MailboxClient is the remote mail-provider capability the engine drives.
// Each call is atomic: either every id in the call is applied or none is.
// Errors should be *ProviderError where the status code is known.
type MailboxClient interface {
	BatchDelete(ctx context.Context, userID string, ids []string) error
	BatchModifyLabels(ctx context.Context, userID string, ids []string, changes LabelChanges) error
}

// ProviderError is a failure reported by the remote mail provider.
type ProviderError struct {
	// StatusCode is the HTTP status, or 0 when the call never got a response.
	StatusCode int
	Message    string
	// Reason is the provider's machine-readable reason, e.g. "rateLimitExceeded".
	Reason string
	// Transport marks connection-level failures (no usable response).
	Transport bool
	Err       error
}

func (e *ProviderError) Error() string {
	if e.StatusCode == 0 {
		return e.Message
	}
	if e.Reason != "" {
		return fmt.Sprintf("%s (status %d, reason %s)", e.Message, e.StatusCode, e.Reason)
	}
	return fmt.Sprintf("%s (status %d)", e.Message, e.StatusCode)
}

func (e *ProviderError) Unwrap() error { return e.Err }

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s))
	copy(out, s)
	return out
}
