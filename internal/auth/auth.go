// Package auth extracts the caller's mail-provider credential from requests.
//
// The service does not run an OAuth flow of its own: callers present an
// already-issued Gmail access token as a bearer token and it is forwarded to
// the provider unchanged.
package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"golang.org/x/oauth2"

	"github.com/ignite/mailbox-bulkops/internal/pkg/httputil"
	"github.com/ignite/mailbox-bulkops/internal/pkg/logger"
)

// UserHeader selects the mailbox to act on. Without it the token owner's
// mailbox ("me") is used.
const UserHeader = "X-Mailbox-User"

// DefaultUser is the provider alias for the authenticated user.
const DefaultUser = "me"

// ErrMissingToken is returned when no bearer token is present.
var ErrMissingToken = errors.New("missing bearer token")

type contextKey struct{}

// BearerToken returns the token from an "Authorization: Bearer <token>"
// header. The scheme is matched case-insensitively.
func BearerToken(r *http.Request) (string, error) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", ErrMissingToken
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", ErrMissingToken
	}
	return token, nil
}

// Middleware rejects requests without a bearer token with 401 and stores the
// token in the request context otherwise.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := BearerToken(r)
		if err != nil {
			logger.Warn("unauthenticated request", "path", r.URL.Path, "remote", r.RemoteAddr)
			w.Header().Set("WWW-Authenticate", `Bearer realm="mailbox-bulkops"`)
			httputil.Unauthorized(w, "unauthorized")
			return
		}
		tok := &oauth2.Token{AccessToken: token, TokenType: "Bearer"}
		next.ServeHTTP(w, r.WithContext(WithToken(r.Context(), tok)))
	})
}

// WithToken returns a copy of ctx carrying tok.
func WithToken(ctx context.Context, tok *oauth2.Token) context.Context {
	return context.WithValue(ctx, contextKey{}, tok)
}

// TokenFromContext returns the token stored by Middleware, or nil.
func TokenFromContext(ctx context.Context) *oauth2.Token {
	tok, _ := ctx.Value(contextKey{}).(*oauth2.Token)
	return tok
}

// UserID returns the mailbox the request targets.
func UserID(r *http.Request) string {
	if u := strings.TrimSpace(r.Header.Get(UserHeader)); u != "" {
		return u
	}
	return DefaultUser
}
