package spotify

import (
	"context"
	"errors"
	"fmt"

	"github.com/zmb3/spotify/v2"

	"github.com/justestif/moodify/internal/catalog"
	"github.com/justestif/moodify/internal/genre"
)

// compile-time interface assertion
var _ catalog.Recommender = (*Client)(nil)

// Recommend searches the catalog for tracks tagged with genre g and returns
// at most limit of them in Spotify's relevance order.
func (c *Client) Recommend(ctx context.Context, g genre.Genre, limit int) ([]catalog.Track, error) {
	if limit <= 0 {
		return []catalog.Track{}, nil
	}

	opts := []spotify.RequestOption{spotify.Limit(min(limit, maxSearchLimit))}
	if c.market != "" {
		opts = append(opts, spotify.Market(c.market))
	}

	result, err := c.api.Search(ctx, "genre:"+g.String(), spotify.SearchTypeTrack, opts...)
	if err != nil {
		return nil, fmt.Errorf("searching genre %s: %w", g, err)
	}
	if result == nil || result.Tracks == nil {
		return nil, errors.New("search response carries no tracks")
	}

	tracks := make([]catalog.Track, 0, len(result.Tracks.Tracks))
	for _, t := range result.Tracks.Tracks {
		tracks = append(tracks, convertTrack(t))
	}
	return catalog.Truncate(tracks, limit), nil
}

// convertTrack converts a Spotify FullTrack to a catalog.Track, keeping only
// the primary artist.
func convertTrack(t spotify.FullTrack) catalog.Track {
	var artist string
	if len(t.Artists) > 0 {
		artist = t.Artists[0].Name
	}

	return catalog.Track{
		Title:  t.Name,
		Artist: artist,
		URL:    t.ExternalURLs["spotify"],
	}
}
