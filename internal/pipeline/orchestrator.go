package pipeline

import (
	"context"
	"fmt"
	"image"
	"time"

	"github.com/justestif/moodify/internal/catalog"
	"github.com/justestif/moodify/internal/emotion"
	"github.com/justestif/moodify/internal/genre"
	"github.com/justestif/moodify/internal/logger"
)

// DefaultCatalogTimeout bounds a single catalog call.
const DefaultCatalogTimeout = 10 * time.Second

// Decider decides the emotion shown in an image. *Detector implements it.
type Decider interface {
	Decide(ctx context.Context, img image.Image) (Detection, error)
}

// Result is the outcome of one pipeline run.
type Result struct {
	Emotion   emotion.Emotion
	Genre     genre.Genre
	Tracks    []catalog.Track // never nil; empty when none are available
	FaceCount int

	// CatalogErr is set when the catalog call failed. Emotion and Genre are
	// still valid in that case.
	CatalogErr error
}

// TracksAvailable reports whether the catalog answered.
func (r Result) TracksAvailable() bool {
	return r.CatalogErr == nil
}

// Orchestrator runs image -> emotion -> genre -> tracks.
type Orchestrator struct {
	decider     Decider
	recommender catalog.Recommender
	limit       int
	timeout     time.Duration
	log         *logger.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLimit sets the number of tracks requested.
func WithLimit(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.limit = n
		}
	}
}

// WithCatalogTimeout bounds each catalog call. Zero or negative disables the
// bound.
func WithCatalogTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		o.timeout = d
	}
}

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.log = l
		}
	}
}

// NewOrchestrator creates an Orchestrator.
func NewOrchestrator(decider Decider, recommender catalog.Recommender, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		decider:     decider,
		recommender: recommender,
		limit:       catalog.DefaultLimit,
		timeout:     DefaultCatalogTimeout,
		log:         logger.Nop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run processes one image. Invalid images and classifier failures are
// returned as errors. A catalog failure is not: the result then carries the
// emotion and genre, no tracks, and CatalogErr.
func (o *Orchestrator) Run(ctx context.Context, img image.Image) (Result, error) {
	det, err := o.decider.Decide(ctx, img)
	if err != nil {
		return Result{}, err
	}

	g := genre.For(det.Emotion)
	res := Result{
		Emotion:   det.Emotion,
		Genre:     g,
		FaceCount: det.FaceCount,
	}

	tracks, err := withTimeout(ctx, o.timeout, func(ctx context.Context) ([]catalog.Track, error) {
		return o.recommender.Recommend(ctx, g, o.limit)
	})
	if err != nil {
		res.Tracks = []catalog.Track{}
		res.CatalogErr = fmt.Errorf("%w: %w", ErrRecommendationUnavailable, err)
		o.log.Warn("no tracks for %s: %v", g, err)
		return res, nil
	}

	res.Tracks = catalog.Truncate(tracks, o.limit)
	o.log.Debug("emotion=%s genre=%s faces=%d tracks=%d", res.Emotion, res.Genre, res.FaceCount, len(res.Tracks))
	return res, nil
}
