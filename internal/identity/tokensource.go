package identity

import (
	"context"
	"sync"
	"time"

	"golang.org/x/oauth2"
)

// Token converts the credentials to an oauth2 token carrying the ID token
// as its access token.
func (c *Credentials) Token() *oauth2.Token {
	if c == nil {
		return nil
	}
	return &oauth2.Token{
		AccessToken:  c.IDToken,
		TokenType:    "Bearer",
		RefreshToken: c.RefreshToken,
		Expiry:       c.Expiry,
	}
}

type refreshSource struct {
	ctx      context.Context
	provider Provider

	mu    sync.Mutex
	creds *Credentials
}

func (s *refreshSource) Token() (*oauth2.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.creds == nil || s.creds.RefreshToken == "" {
		return nil, ErrNotAuthenticated
	}
	next, err := s.provider.Refresh(s.ctx, s.creds.RefreshToken)
	if err != nil {
		return nil, err
	}
	if next.RefreshToken == "" {
		next.RefreshToken = s.creds.RefreshToken
	}
	s.creds = next
	return next.Token(), nil
}

// TokenSource returns a source that hands out creds' ID token until shortly
// before expiry and then refreshes it through p. It is used by the CLI,
// which has no browser session.
func TokenSource(ctx context.Context, p Provider, creds *Credentials) oauth2.TokenSource {
	return oauth2.ReuseTokenSourceWithExpiry(creds.Token(), &refreshSource{ctx: ctx, provider: p, creds: creds}, time.Minute)
}

// IDTokenFunc adapts a token source to the REST client's bearer hook.
func IDTokenFunc(ts oauth2.TokenSource) func(context.Context) (string, error) {
	return func(context.Context) (string, error) {
		tok, err := ts.Token()
		if err != nil {
			return "", err
		}
		return tok.AccessToken, nil
	}
}
