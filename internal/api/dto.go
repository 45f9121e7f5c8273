package api

import "github.com/ignite/mailbox-bulkops/internal/batch"

// BatchDeleteRequest is the body of POST /api/v1/messages/batch-delete.
type BatchDeleteRequest struct {
	MessageIDs []string `json:"messageIds"`
	// FailOnPartialFailure overrides the configured default when set.
	FailOnPartialFailure *bool `json:"failOnPartialFailure,omitempty"`
}

// BatchModifyRequest is the body of POST /api/v1/messages/batch-modify.
type BatchModifyRequest struct {
	MessageIDs           []string `json:"messageIds"`
	AddLabelIDs          []string `json:"addLabelIds,omitempty"`
	RemoveLabelIDs       []string `json:"removeLabelIds,omitempty"`
	FailOnPartialFailure *bool    `json:"failOnPartialFailure,omitempty"`
}

// OperationResponse reports a finished bulk operation.
type OperationResponse struct {
	batch.Summary
	Success      bool     `json:"success"`
	Retryable    bool     `json:"retryable"`
	RetryableIDs []string `json:"retryableIds,omitempty"`
	Error        string   `json:"error,omitempty"`
}

func newOperationResponse(result *batch.Result, verr error) OperationResponse {
	resp := OperationResponse{
		Summary:      result.Summary(),
		Success:      verr == nil,
		Retryable:    batch.AreFailuresRetryable(result),
		RetryableIDs: batch.RetryableFailures(result),
	}
	if verr != nil {
		resp.Error = verr.Error()
	}
	return resp
}
