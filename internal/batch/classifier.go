package batch

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"syscall"
)

// Classification decides whether a failed attempt is worth retrying.
type Classification int

const (
	// Permanent failures are surfaced immediately.
	Permanent Classification = iota
	// Retryable failures are retried with backoff.
	Retryable
)

func (c Classification) String() string {
	if c == Retryable {
		return "retryable"
	}
	return "permanent"
}

// ErrorKind is the finer-grained category behind a Classification.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindTransientNetwork
	KindRateLimitOrQuota
	KindPermanentClient
)

func (k ErrorKind) String() string {
	switch k {
	case KindTransientNetwork:
		return "transient_network"
	case KindRateLimitOrQuota:
		return "rate_limit_or_quota"
	case KindPermanentClient:
		return "permanent_client"
	default:
		return "unknown"
	}
}

// Classification maps a kind to retry policy. Unknown fails closed.
func (k ErrorKind) Classification() Classification {
	switch k {
	case KindTransientNetwork, KindRateLimitOrQuota:
		return Retryable
	default:
		return Permanent
	}
}

var rateLimitPhrases = []string{
	"rate limit",
	"user rate limit",
	"quota",
	"too many concurrent",
	"ratelimitexceeded",
	"userratelimitexceeded",
}

var transientPhrases = []string{
	"timeout",
	"unavailable",
	"internal error",
	"backend error",
	"connection reset",
	"connection refused",
	"broken pipe",
}

var permanentPhrases = []string{
	"not found",
	"invalid",
	"permission",
	"authentication",
	"unauthorized",
	"forbidden",
}

// Classify maps a failure to Retryable or Permanent.
func Classify(err error) Classification {
	return Categorize(err).Classification()
}

// ClassifyMessage classifies a recorded failure message. A "(status NNN"
// marker, as written by ProviderError.Error, is judged by the status rules
// first. Empty or unrecognized messages are Permanent.
func ClassifyMessage(msg string) Classification {
	return CategorizeMessage(msg).Classification()
}

// statusMarker matches the status written by ProviderError.Error.
var statusMarker = regexp.MustCompile(`\(status (\d{3})\b`)

// CategorizeMessage is the message-only counterpart of Categorize.
func CategorizeMessage(msg string) ErrorKind {
	if m := statusMarker.FindStringSubmatch(msg); m != nil {
		status, _ := strconv.Atoi(m[1])
		if kind, ok := categorizeStatus(status, msg); ok {
			return kind
		}
	}
	return categorizeMessage(msg)
}

// Categorize maps a failure to an ErrorKind using, in turn, context
// cancellation, the provider status code, connection-level error types and
// finally the message text.
func Categorize(err error) ErrorKind {
	if err == nil {
		return KindUnknown
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return KindPermanentClient
	}

	var perr *ProviderError
	if errors.As(err, &perr) {
		if kind, ok := categorizeStatus(perr.StatusCode, perr.Message+" "+perr.Reason); ok {
			return kind
		}
		if perr.Transport {
			return KindTransientNetwork
		}
	}

	if isTransportError(err) {
		return KindTransientNetwork
	}

	return categorizeMessage(err.Error())
}

// categorizeStatus handles errors that carry an HTTP status. ok is false when
// the status alone does not decide.
func categorizeStatus(status int, msg string) (ErrorKind, bool) {
	switch {
	case status == 0:
		return KindUnknown, false
	case status == http.StatusTooManyRequests:
		return KindRateLimitOrQuota, true
	case status == http.StatusForbidden:
		if containsAny(strings.ToLower(msg), rateLimitPhrases) {
			return KindRateLimitOrQuota, true
		}
		return KindPermanentClient, true
	case status >= 500:
		return KindTransientNetwork, true
	case status >= 400:
		return KindPermanentClient, true
	}
	return KindUnknown, false
}

func categorizeMessage(msg string) ErrorKind {
	lower := strings.ToLower(strings.TrimSpace(msg))
	switch {
	case lower == "":
		return KindUnknown
	case containsAny(lower, rateLimitPhrases):
		return KindRateLimitOrQuota
	case containsAny(lower, transientPhrases):
		return KindTransientNetwork
	case containsAny(lower, permanentPhrases):
		return KindPermanentClient
	}
	return KindUnknown
}

func isTransportError(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return true
	}
	return errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.EPIPE)
}

func containsAny(s string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}
