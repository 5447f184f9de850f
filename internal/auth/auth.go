package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// ErrMissingCredentials is returned when the Spotify client ID or secret is empty.
var ErrMissingCredentials = errors.New("missing Spotify client ID or secret")

// Authenticator obtains app-level Spotify tokens with the client credentials
// grant. No user login is involved, so only catalog endpoints such as search
// are reachable.
type Authenticator struct {
	config *clientcredentials.Config
	cache  *TokenCache
}

// Option configures an Authenticator.
type Option func(*Authenticator)

// WithTokenURL overrides the token endpoint.
func WithTokenURL(url string) Option {
	return func(a *Authenticator) {
		a.config.TokenURL = url
	}
}

// New creates an Authenticator. cache may be nil to disable token persistence.
// Returns ErrMissingCredentials if either credential is empty.
func New(clientID, clientSecret string, cache *TokenCache, opts ...Option) (*Authenticator, error) {
	if clientID == "" || clientSecret == "" {
		return nil, ErrMissingCredentials
	}

	a := &Authenticator{
		config: &clientcredentials.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			TokenURL:     spotifyauth.TokenURL,
		},
		cache: cache,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// TokenSource returns a token source that starts from the cached token, if
// any, fetches a new one once it expires and writes every new token back to
// the cache.
func (a *Authenticator) TokenSource(ctx context.Context) (oauth2.TokenSource, error) {
	base := a.config.TokenSource(ctx)
	if a.cache == nil {
		return oauth2.ReuseTokenSource(nil, base), nil
	}

	cached, err := a.cache.Load()
	if err != nil {
		return nil, fmt.Errorf("loading cached token: %w", err)
	}

	ts := &cachingTokenSource{
		src:   oauth2.ReuseTokenSource(cached, base),
		cache: a.cache,
	}
	if cached != nil {
		ts.last = cached.AccessToken
	}
	return ts, nil
}

// Client returns a Spotify client authorized with app tokens. With retry set,
// the client waits out rate limits and retries server errors.
func (a *Authenticator) Client(ctx context.Context, retry bool) (*spotify.Client, error) {
	ts, err := a.TokenSource(ctx)
	if err != nil {
		return nil, err
	}
	return spotify.New(oauth2.NewClient(ctx, ts), spotify.WithRetry(retry)), nil
}

// Logout removes the cached token.
func (a *Authenticator) Logout() error {
	if a.cache == nil {
		return nil
	}
	return a.cache.Delete()
}

// cachingTokenSource saves tokens to disk whenever the wrapped source hands
// out a new one.
type cachingTokenSource struct {
	mu    sync.Mutex
	src   oauth2.TokenSource
	cache *TokenCache
	last  string
}

func (s *cachingTokenSource) Token() (*oauth2.Token, error) {
	tok, err := s.src.Token()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if tok.AccessToken != s.last {
		// A failed save only costs an extra token request next run.
		_ = s.cache.Save(tok)
		s.last = tok.AccessToken
	}
	return tok, nil
}
