package emotion

import (
	"context"
	"errors"

	"github.com/justestif/moodify/internal/vision"
)

// ErrClassifierUnavailable is returned when the classifier fails, times out,
// or returns scores outside the vocabulary contract.
var ErrClassifierUnavailable = errors.New("emotion classifier unavailable")

// Classifier is the pre-trained emotion model consumed by the pipeline.
// Implementations must be safe for concurrent use and must not retain the
// tensor after returning.
type Classifier interface {
	Classify(ctx context.Context, t vision.Tensor) (Scores, error)
}

// ClassifierFunc adapts a function to the Classifier interface.
type ClassifierFunc func(ctx context.Context, t vision.Tensor) (Scores, error)

// Classify calls f(ctx, t).
func (f ClassifierFunc) Classify(ctx context.Context, t vision.Tensor) (Scores, error) {
	return f(ctx, t)
}
