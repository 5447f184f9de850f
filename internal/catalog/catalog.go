// Package catalog defines the track descriptors returned by external music
// catalogs and the contract for querying them by genre.
package catalog

import (
	"context"

	"github.com/justestif/moodify/internal/genre"
)

// DefaultLimit is the number of tracks requested when none is configured.
const DefaultLimit = 5

// Track describes one recommended track.
type Track struct {
	Title  string `json:"title"`
	Artist string `json:"artist"` // Primary artist only
	URL    string `json:"url"`
}

// Recommender returns up to limit tracks for a genre, in the catalog's own
// relevance order. Callers must not assume exactly limit results, nor the
// same results for repeated calls.
type Recommender interface {
	Recommend(ctx context.Context, g genre.Genre, limit int) ([]Track, error)
}

// RecommenderFunc adapts a function to the Recommender interface.
type RecommenderFunc func(ctx context.Context, g genre.Genre, limit int) ([]Track, error)

// Recommend calls f(ctx, g, limit).
func (f RecommenderFunc) Recommend(ctx context.Context, g genre.Genre, limit int) ([]Track, error) {
	return f(ctx, g, limit)
}

// Truncate returns at most limit tracks, preserving order. It never returns
// nil.
func Truncate(tracks []Track, limit int) []Track {
	if limit < 0 {
		limit = 0
	}
	if len(tracks) > limit {
		tracks = tracks[:limit]
	}
	if tracks == nil {
		return []Track{}
	}
	return tracks
}
