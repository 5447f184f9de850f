// Package lastfm provides a Last.fm recommendation source backed by the
// tag.getTopTracks chart.
package lastfm

import (
	"errors"
	"time"
)

// ErrMissingAPIKey is returned when no API key is configured.
var ErrMissingAPIKey = errors.New("missing Last.fm API key")

// Config holds Last.fm API configuration.
type Config struct {
	APIKey string

	// RetryDelays are the waits before each retry of a rate-limited call.
	// Empty disables retries.
	RetryDelays []time.Duration
}

// Validate returns ErrMissingAPIKey if the key is empty.
func (c Config) Validate() error {
	if c.APIKey == "" {
		return ErrMissingAPIKey
	}
	return nil
}
