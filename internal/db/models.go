package db

import (
	"time"

	"github.com/google/uuid"
)

// Run records the outcome of one recommendation request. Tracks themselves
// are not stored.
type Run struct {
	ID         uuid.UUID `json:"id"`
	Emotion    string    `json:"emotion"`
	Genre      string    `json:"genre"`
	FaceCount  int       `json:"face_count"`
	TrackCount int       `json:"track_count"`
	CatalogOK  bool      `json:"catalog_ok"` // false when the catalog call failed
	CreatedAt  time.Time `json:"created_at"`
}
