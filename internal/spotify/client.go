// Package spotify provides a wrapper around the Spotify Web API that serves
// genre-based track recommendations.
package spotify

import (
	"github.com/zmb3/spotify/v2"
)

// maxSearchLimit is the largest page the search endpoint accepts.
const maxSearchLimit = 50

// Client wraps the Spotify API client with convenience methods.
type Client struct {
	api    *spotify.Client
	market string
}

// Option configures a Client.
type Option func(*Client)

// WithMarket restricts results to tracks playable in the given ISO 3166-1
// alpha-2 market.
func WithMarket(code string) Option {
	return func(c *Client) {
		c.market = code
	}
}

// New creates a new Spotify client wrapper.
// The underlying client should already be authenticated.
func New(api *spotify.Client, opts ...Option) *Client {
	c := &Client{api: api}
	for _, opt := range opts {
		opt(c)
	}
	return c
}
