package gmail

import (
	"context"
	"errors"

	"golang.org/x/oauth2"
	"google.golang.org/api/option"

	"github.com/ignite/mailbox-bulkops/internal/batch"
	"github.com/ignite/mailbox-bulkops/internal/config"
)

// ErrEmptyToken is returned when a client is requested without an access token.
var ErrEmptyToken = errors.New("gmail: access token is empty")

// ClientFactory builds a Client per caller access token.
type ClientFactory struct {
	cfg  config.GmailConfig
	opts []option.ClientOption
}

// NewClientFactory applies cfg's endpoint and user agent to every client it
// builds. opts are appended last.
func NewClientFactory(cfg config.GmailConfig, opts ...option.ClientOption) *ClientFactory {
	base := []option.ClientOption{option.WithUserAgent(cfg.UserAgent)}
	if cfg.Endpoint != "" {
		base = append(base, option.WithEndpoint(cfg.Endpoint))
	}
	return &ClientFactory{cfg: cfg, opts: append(base, opts...)}
}

// ForToken returns a client authenticating with tok. The token is used as
// given and never refreshed.
func (f *ClientFactory) ForToken(ctx context.Context, tok *oauth2.Token) (batch.MailboxClient, error) {
	if tok == nil || tok.AccessToken == "" {
		return nil, ErrEmptyToken
	}
	return NewClient(ctx, oauth2.StaticTokenSource(tok), f.cfg.Timeout(), f.opts...)
}

// BearerToken wraps a raw access token.
func BearerToken(accessToken string) *oauth2.Token {
	return &oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"}
}
