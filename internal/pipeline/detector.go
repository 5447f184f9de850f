// Package pipeline turns a captured image into an emotion, a genre and a
// list of recommended tracks.
package pipeline

import (
	"context"
	"fmt"
	"image"
	"time"

	"github.com/justestif/moodify/internal/emotion"
	"github.com/justestif/moodify/internal/logger"
	"github.com/justestif/moodify/internal/vision"
)

// DefaultClassifierTimeout bounds a single classifier call.
const DefaultClassifierTimeout = 10 * time.Second

// Detection is the outcome of deciding the emotion shown in an image.
type Detection struct {
	Emotion   emotion.Emotion
	FaceCount int
	Face      *vision.BoundingBox // nil when no face was found
	Scores    emotion.Scores      // nil when no face was found
}

// Detector decides the single emotion reported for an image.
//
// Only the first box returned by the localizer is classified; further faces
// are ignored. With PigoLocalizer the first box is the most confident
// detection. An image with no face yields Neutral without calling the
// classifier.
type Detector struct {
	localizer  vision.Localizer
	classifier emotion.Classifier
	timeout    time.Duration
	log        *logger.Logger
}

// DetectorOption configures a Detector.
type DetectorOption func(*Detector)

// WithClassifierTimeout bounds each classifier call. Zero or negative
// disables the bound.
func WithClassifierTimeout(d time.Duration) DetectorOption {
	return func(dt *Detector) {
		dt.timeout = d
	}
}

// WithDetectorLogger sets the logger.
func WithDetectorLogger(l *logger.Logger) DetectorOption {
	return func(dt *Detector) {
		if l != nil {
			dt.log = l
		}
	}
}

// NewDetector creates a Detector.
func NewDetector(loc vision.Localizer, cls emotion.Classifier, opts ...DetectorOption) *Detector {
	d := &Detector{
		localizer:  loc,
		classifier: cls,
		timeout:    DefaultClassifierTimeout,
		log:        logger.Nop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Decide locates faces in img and classifies the first one.
func (d *Detector) Decide(ctx context.Context, img image.Image) (Detection, error) {
	if err := vision.CheckImage(img); err != nil {
		return Detection{}, err
	}

	boxes, err := d.localizer.Locate(img)
	if err != nil {
		return Detection{}, fmt.Errorf("locating faces: %w", err)
	}

	if len(boxes) == 0 {
		d.log.Debug("no face found, falling back to %s", emotion.Neutral)
		return Detection{Emotion: emotion.Neutral}, nil
	}
	if len(boxes) > 1 {
		d.log.Debug("%d faces found, classifying only the first", len(boxes))
	}

	face := boxes[0]
	tensor, err := vision.Normalize(img, face)
	if err != nil {
		return Detection{}, fmt.Errorf("normalizing face %s: %w", face, err)
	}

	scores, err := withTimeout(ctx, d.timeout, func(ctx context.Context) (emotion.Scores, error) {
		return d.classifier.Classify(ctx, tensor)
	})
	if err != nil {
		return Detection{}, fmt.Errorf("%w: %w", emotion.ErrClassifierUnavailable, err)
	}
	if err := scores.Validate(); err != nil {
		return Detection{}, fmt.Errorf("%w: malformed scores: %w", emotion.ErrClassifierUnavailable, err)
	}

	e := scores.Dominant()
	d.log.Debug("face %s classified as %s (%.3f)", face, e, scores[e])

	return Detection{
		Emotion:   e,
		FaceCount: len(boxes),
		Face:      &face,
		Scores:    scores,
	}, nil
}
