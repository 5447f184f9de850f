package lastfm

// topTracksResponse is the JSON response for tag.getTopTracks.
type topTracksResponse struct {
	Tracks struct {
		Track []apiTrack `json:"track"`
		Attr  struct {
			Tag   string `json:"tag"`
			Total string `json:"total"`
		} `json:"@attr"`
	} `json:"tracks"`
}

// apiTrack is one entry of a top-tracks chart.
type apiTrack struct {
	Name   string `json:"name"`
	URL    string `json:"url"`
	Artist struct {
		Name string `json:"name"`
		URL  string `json:"url"`
	} `json:"artist"`
}

// apiError represents a Last.fm API error response.
type apiError struct {
	Error   int    `json:"error"`
	Message string `json:"message"`
}
