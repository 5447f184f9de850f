package pipeline

import (
	"errors"

	"github.com/justestif/moodify/internal/emotion"
	"github.com/justestif/moodify/internal/vision"
)

// ErrRecommendationUnavailable marks a failed, timed-out or malformed catalog
// call. Run never returns it; it is carried in Result.CatalogErr.
var ErrRecommendationUnavailable = errors.New("recommendations unavailable")

// Error kinds reported to callers.
const (
	KindInvalidImage              = "invalid_image"
	KindClassifierUnavailable     = "classifier_unavailable"
	KindRecommendationUnavailable = "recommendation_unavailable"
	KindInternal                  = "internal"
)

// Classify returns the kind of err, or "" for nil.
func Classify(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, vision.ErrInvalidImage):
		return KindInvalidImage
	case errors.Is(err, emotion.ErrClassifierUnavailable):
		return KindClassifierUnavailable
	case errors.Is(err, ErrRecommendationUnavailable):
		return KindRecommendationUnavailable
	default:
		return KindInternal
	}
}
