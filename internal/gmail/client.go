// Package gmail adapts the Gmail REST API to batch.MailboxClient.
package gmail

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	gmailapi "google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/ignite/mailbox-bulkops/internal/batch"
)

// MaxIDsPerCall is the Gmail limit for batchDelete and batchModify.
const MaxIDsPerCall = 1000

// Scopes needed for bulk delete and label modification.
var Scopes = []string{gmailapi.MailGoogleComScope, gmailapi.GmailModifyScope}

// Client calls the Gmail batch endpoints for one credential.
type Client struct {
	svc     *gmailapi.Service
	timeout time.Duration
}

var _ batch.MailboxClient = (*Client)(nil)

// NewClient creates a client authenticating with ts. Extra options are
// appended after the defaults and win over them.
func NewClient(ctx context.Context, ts oauth2.TokenSource, timeout time.Duration, opts ...option.ClientOption) (*Client, error) {
	all := append([]option.ClientOption{option.WithTokenSource(ts)}, opts...)
	svc, err := gmailapi.NewService(ctx, all...)
	if err != nil {
		return nil, fmt.Errorf("create gmail service: %w", err)
	}
	return &Client{svc: svc, timeout: timeout}, nil
}

// BatchDelete permanently deletes ids. The call is all-or-nothing.
func (c *Client) BatchDelete(ctx context.Context, userID string, ids []string) error {
	if err := checkSize(ids); err != nil {
		return err
	}
	callCtx, cancel := c.withTimeout(ctx)
	defer cancel()

	req := &gmailapi.BatchDeleteMessagesRequest{Ids: ids}
	return mapError(ctx, c.svc.Users.Messages.BatchDelete(userID, req).Context(callCtx).Do())
}

// BatchModifyLabels adds and removes labels on ids. The call is
// all-or-nothing.
func (c *Client) BatchModifyLabels(ctx context.Context, userID string, ids []string, changes batch.LabelChanges) error {
	if err := checkSize(ids); err != nil {
		return err
	}
	callCtx, cancel := c.withTimeout(ctx)
	defer cancel()

	req := &gmailapi.BatchModifyMessagesRequest{
		Ids:            ids,
		AddLabelIds:    changes.Add,
		RemoveLabelIds: changes.Remove,
	}
	return mapError(ctx, c.svc.Users.Messages.BatchModify(userID, req).Context(callCtx).Do())
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok || c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}

func checkSize(ids []string) error {
	if len(ids) > MaxIDsPerCall {
		return &batch.ProviderError{
			StatusCode: http.StatusBadRequest,
			Message:    fmt.Sprintf("Too many ids: %d exceeds the limit of %d", len(ids), MaxIDsPerCall),
		}
	}
	return nil
}

// mapError converts a Gmail client error into a *batch.ProviderError.
// When the caller's context is done its error is returned unchanged; the
// per-call timeout firing is a retryable transport failure.
func mapError(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if errors.Is(err, context.DeadlineExceeded) {
		// Err is left unset so the timeout is not mistaken for caller cancellation.
		return &batch.ProviderError{Message: "request timeout: " + err.Error(), Transport: true}
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		pe := &batch.ProviderError{StatusCode: apiErr.Code, Message: apiErr.Message, Err: err}
		if pe.Message == "" {
			pe.Message = http.StatusText(apiErr.Code)
		}
		if len(apiErr.Errors) > 0 {
			pe.Reason = apiErr.Errors[0].Reason
		}
		return pe
	}

	return &batch.ProviderError{Message: err.Error(), Transport: true, Err: err}
}
