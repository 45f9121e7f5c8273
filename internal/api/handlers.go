// Package api exposes the bulk mailbox operations over HTTP.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"golang.org/x/oauth2"

	"github.com/ignite/mailbox-bulkops/internal/auth"
	"github.com/ignite/mailbox-bulkops/internal/batch"
	"github.com/ignite/mailbox-bulkops/internal/pkg/httputil"
	"github.com/ignite/mailbox-bulkops/internal/pkg/logger"
	"github.com/ignite/mailbox-bulkops/internal/service/bulk"
)

// BulkService is the operation runner behind the handlers.
type BulkService interface {
	Execute(ctx context.Context, tok *oauth2.Token, req batch.OperationRequest, failOnPartialFailure bool) (*batch.Result, error)
	Stats() bulk.Stats
}

// Handlers contains all HTTP handlers.
type Handlers struct {
	svc                  BulkService
	failOnPartialFailure bool
	startedAt            time.Time
}

// NewHandlers creates handlers. failOnPartialFailure is the default for
// requests that do not set it.
func NewHandlers(svc BulkService, failOnPartialFailure bool) *Handlers {
	return &Handlers{svc: svc, failOnPartialFailure: failOnPartialFailure, startedAt: time.Now()}
}

// HealthCheck reports liveness.
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	httputil.OK(w, map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"uptime":    time.Since(h.startedAt).Round(time.Second).String(),
	})
}

// BatchDelete permanently deletes the requested messages.
func (h *Handlers) BatchDelete(w http.ResponseWriter, r *http.Request) {
	var body BatchDeleteRequest
	if !httputil.Decode(w, r, &body) {
		return
	}
	if msg := checkIDs(body.MessageIDs); msg != "" {
		httputil.BadRequest(w, msg)
		return
	}

	req := batch.NewDeleteRequest(auth.UserID(r), body.MessageIDs)
	h.run(w, r, req, h.strict(body.FailOnPartialFailure))
}

// BatchModify adds and removes labels on the requested messages.
func (h *Handlers) BatchModify(w http.ResponseWriter, r *http.Request) {
	var body BatchModifyRequest
	if !httputil.Decode(w, r, &body) {
		return
	}
	if msg := checkIDs(body.MessageIDs); msg != "" {
		httputil.BadRequest(w, msg)
		return
	}

	changes := batch.LabelChanges{Add: body.AddLabelIDs, Remove: body.RemoveLabelIDs}
	req := batch.NewModifyLabelsRequest(auth.UserID(r), body.MessageIDs, changes)
	h.run(w, r, req, h.strict(body.FailOnPartialFailure))
}

// BatchStats returns circuit breaker and adaptive sizing state.
func (h *Handlers) BatchStats(w http.ResponseWriter, r *http.Request) {
	httputil.OK(w, h.svc.Stats())
}

func (h *Handlers) strict(override *bool) bool {
	if override != nil {
		return *override
	}
	return h.failOnPartialFailure
}

// run executes req and maps the outcome to a status code: 200 on success,
// 207 for a partial failure in strict mode, 502 when every item failed.
func (h *Handlers) run(w http.ResponseWriter, r *http.Request, req batch.OperationRequest, strict bool) {
	result, err := h.svc.Execute(r.Context(), auth.TokenFromContext(r.Context()), req, strict)

	switch {
	case errors.Is(err, bulk.ErrInvalidRequest):
		httputil.BadRequest(w, err.Error())
	case errors.Is(err, bulk.ErrOperationInProgress):
		httputil.Conflict(w, err.Error())
	case result == nil:
		httputil.InternalError(w, err)
	case err == nil:
		httputil.OK(w, newOperationResponse(result, nil))
	case errors.Is(err, batch.ErrPartialFailure):
		logOutcome(req, result, err)
		httputil.JSON(w, http.StatusMultiStatus, newOperationResponse(result, err))
	case errors.Is(err, batch.ErrCompleteFailure):
		logOutcome(req, result, err)
		httputil.JSON(w, http.StatusBadGateway, newOperationResponse(result, err))
	default:
		httputil.InternalError(w, err)
	}
}

func logOutcome(req batch.OperationRequest, result *batch.Result, err error) {
	logger.Warn("bulk operation unsuccessful",
		"operation", string(req.Kind()), "operation_id", result.OperationID, "user", req.UserID(),
		"succeeded", result.SuccessCount(), "failed", result.FailureCount(), "error", err)
}

func checkIDs(ids []string) string {
	if ids == nil {
		return "messageIds is required"
	}
	for _, id := range ids {
		if id == "" {
			return "messageIds must not contain empty ids"
		}
	}
	return ""
}

func writeNotFound(w http.ResponseWriter, r *http.Request) {
	httputil.Error(w, http.StatusNotFound, "not_found", "no route for "+r.Method+" "+r.URL.Path)
}
