// Package emotion defines the fixed facial-emotion vocabulary, classifier
// scores over it, and the contract of the external emotion classifier.
package emotion

import (
	"slices"
	"strings"
)

// Emotion is one label of the classifier vocabulary.
type Emotion string

// The vocabulary of the pre-trained classifier. Declaration order is the
// label order used for tie-breaks and for positional score vectors.
const (
	Angry    Emotion = "Angry"
	Disgust  Emotion = "Disgust"
	Fear     Emotion = "Fear"
	Happy    Emotion = "Happy"
	Sad      Emotion = "Sad"
	Surprise Emotion = "Surprise"
	Neutral  Emotion = "Neutral"
)

// NumLabels is the size of the vocabulary.
const NumLabels = 7

var labels = [NumLabels]Emotion{Angry, Disgust, Fear, Happy, Sad, Surprise, Neutral}

// Labels returns the vocabulary in its fixed order.
func Labels() []Emotion {
	return slices.Clone(labels[:])
}

// Index returns the position of e in the label order, or -1 if e is not part
// of the vocabulary.
func Index(e Emotion) int {
	return slices.Index(labels[:], e)
}

// Parse maps a label name to an Emotion, ignoring case.
func Parse(s string) (Emotion, bool) {
	for _, e := range labels {
		if strings.EqualFold(string(e), strings.TrimSpace(s)) {
			return e, true
		}
	}
	return "", false
}

func (e Emotion) String() string {
	return string(e)
}
