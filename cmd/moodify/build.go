package main

import (
	"context"
	"fmt"

	"github.com/justestif/moodify/internal/auth"
	"github.com/justestif/moodify/internal/catalog"
	"github.com/justestif/moodify/internal/classifier"
	"github.com/justestif/moodify/internal/config"
	"github.com/justestif/moodify/internal/db"
	"github.com/justestif/moodify/internal/emotion"
	"github.com/justestif/moodify/internal/lastfm"
	"github.com/justestif/moodify/internal/logger"
	"github.com/justestif/moodify/internal/pipeline"
	"github.com/justestif/moodify/internal/spotify"
	"github.com/justestif/moodify/internal/vision"
)

// components holds everything a command needs to run the pipeline.
type components struct {
	orchestrator *pipeline.Orchestrator
	history      *db.DB // nil when run history is disabled
	closers      []func() error
}

// Close releases the classifier backend and database pool.
func (c *components) Close() {
	for _, fn := range c.closers {
		_ = fn()
	}
	if c.history != nil {
		c.history.Close()
	}
}

// Runs returns the run repository, or nil when history is disabled.
func (c *components) Runs() *db.RunRepository {
	if c.history == nil {
		return nil
	}
	return c.history.Runs()
}

func build(ctx context.Context, cfg config.Config, log *logger.Logger) (*components, error) {
	c := &components{}

	loc, err := vision.LoadPigoLocalizer(cfg.Detector.Cascade, cfg.Detector.DetectorConfig)
	if err != nil {
		return nil, fmt.Errorf("loading face detector: %w", err)
	}

	cls, closeCls, err := newClassifier(cfg.Classifier)
	if err != nil {
		return nil, err
	}
	c.closers = append(c.closers, closeCls)

	rec, err := newRecommender(ctx, cfg.Catalog)
	if err != nil {
		c.Close()
		return nil, err
	}

	detector := pipeline.NewDetector(loc, cls,
		pipeline.WithClassifierTimeout(cfg.Classifier.Timeout),
		pipeline.WithDetectorLogger(log),
	)
	c.orchestrator = pipeline.NewOrchestrator(detector, rec,
		pipeline.WithLimit(cfg.Catalog.Limit),
		pipeline.WithCatalogTimeout(cfg.Catalog.Timeout),
		pipeline.WithLogger(log),
	)

	if cfg.DatabaseURL != "" {
		history, err := db.New(ctx, cfg.DatabaseURL)
		if err != nil {
			// History is optional; keep serving without it.
			log.Warn("run history disabled: %v", err)
		} else {
			c.history = history
		}
	}

	return c, nil
}

func newClassifier(cfg config.ClassifierConfig) (emotion.Classifier, func() error, error) {
	switch cfg.Backend {
	case config.BackendWorker:
		w, err := classifier.StartWorker(cfg.Command[0], cfg.Command[1:]...)
		if err != nil {
			return nil, nil, fmt.Errorf("starting classifier worker: %w", err)
		}
		return w, w.Close, nil
	case config.BackendHTTP:
		return classifier.NewHTTPClient(cfg.Endpoint), func() error { return nil }, nil
	default:
		return nil, nil, fmt.Errorf("unknown classifier backend %q", cfg.Backend)
	}
}

func newRecommender(ctx context.Context, cfg config.CatalogConfig) (catalog.Recommender, error) {
	switch cfg.Provider {
	case config.ProviderLastFM:
		return lastfm.NewClient(lastfm.Config{
			APIKey:      cfg.LastFMAPIKey,
			RetryDelays: cfg.LastFMRetryDelays,
		})
	case config.ProviderSpotify:
		cache, err := auth.DefaultTokenCache()
		if err != nil {
			cache = nil
		}
		a, err := auth.New(cfg.SpotifyClientID, cfg.SpotifyClientSecret, cache)
		if err != nil {
			return nil, err
		}
		api, err := a.Client(ctx, cfg.Retry)
		if err != nil {
			return nil, fmt.Errorf("creating Spotify client: %w", err)
		}
		var opts []spotify.Option
		if cfg.Market != "" {
			opts = append(opts, spotify.WithMarket(cfg.Market))
		}
		return spotify.New(api, opts...), nil
	default:
		return nil, fmt.Errorf("unknown catalog provider %q", cfg.Provider)
	}
}
