// Package genre maps detected emotions to the music genre used to query a
// catalog.
package genre

import "github.com/justestif/moodify/internal/emotion"

// Genre is an opaque catalog query key.
type Genre string

// Genres, one per emotion label.
const (
	Pop      Genre = "pop"
	Acoustic Genre = "acoustic"
	Rock     Genre = "rock"
	Dance    Genre = "dance"
	Chill    Genre = "chill"
	Ambient  Genre = "ambient"
	Metal    Genre = "metal"
)

// Default is returned for labels that have no mapping entry.
const Default = Pop

// For returns the genre for an emotion:
//
//   - Happy    = pop
//   - Sad      = acoustic
//   - Angry    = rock
//   - Surprise = dance
//   - Neutral  = chill
//   - Fear     = ambient
//   - Disgust  = metal
//
// Any other value maps to Default, so the function stays total if the
// vocabulary grows.
func For(e emotion.Emotion) Genre {
	switch e {
	case emotion.Happy:
		return Pop
	case emotion.Sad:
		return Acoustic
	case emotion.Angry:
		return Rock
	case emotion.Surprise:
		return Dance
	case emotion.Neutral:
		return Chill
	case emotion.Fear:
		return Ambient
	case emotion.Disgust:
		return Metal
	default:
		return Default
	}
}

func (g Genre) String() string {
	return string(g)
}
