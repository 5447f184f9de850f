package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/justestif/moodify/internal/catalog"
	"github.com/justestif/moodify/internal/classifier"
	"github.com/justestif/moodify/internal/config"
	"github.com/justestif/moodify/internal/emotion"
	"github.com/justestif/moodify/internal/genre"
	"github.com/justestif/moodify/internal/lastfm"
	"github.com/justestif/moodify/internal/logger"
	"github.com/justestif/moodify/internal/pipeline"
	"github.com/justestif/moodify/internal/vision"
	"github.com/justestif/moodify/internal/web"
)

func TestPrintResult(t *testing.T) {
	tests := []struct {
		name    string
		res     pipeline.Result
		want    []string
		notWant []string
	}{
		{
			name: "tracks",
			res: pipeline.Result{
				Emotion:   emotion.Happy,
				Genre:     genre.Pop,
				FaceCount: 1,
				Tracks: []catalog.Track{
					{Title: "Song A", Artist: "Band A", URL: "https://open.spotify.com/track/a"},
					{Title: "Song B", Artist: "Band B"},
				},
			},
			want:    []string{"Emotion: Happy", "Genre:   pop", "1. Song A - Band A", "   https://open.spotify.com/track/a", "2. Song B - Band B"},
			notWant: []string{"No tracks found", "no face detected"},
		},
		{
			name: "no face no tracks",
			res: pipeline.Result{
				Emotion: emotion.Neutral,
				Genre:   genre.Chill,
				Tracks:  []catalog.Track{},
			},
			want: []string{"Emotion: Neutral", "(no face detected)", "No tracks found. Try again!"},
		},
		{
			name: "catalog down",
			res: pipeline.Result{
				Emotion:    emotion.Angry,
				Genre:      genre.Rock,
				FaceCount:  1,
				Tracks:     []catalog.Track{},
				CatalogErr: fmt.Errorf("%w: timeout", pipeline.ErrRecommendationUnavailable),
			},
			want: []string{"Genre:   rock", "Recommendations unavailable", "No tracks found. Try again!"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			printResult(&buf, tt.res)
			out := buf.String()

			for _, s := range tt.want {
				if !strings.Contains(out, s) {
					t.Errorf("output missing %q:\n%s", s, out)
				}
			}
			for _, s := range tt.notWant {
				if strings.Contains(out, s) {
					t.Errorf("output contains %q:\n%s", s, out)
				}
			}
		})
	}
}

func TestDecodeFile(t *testing.T) {
	dir := t.TempDir()

	good := filepath.Join(dir, "face.png")
	f, err := os.Create(good)
	if err != nil {
		t.Fatal(err)
	}
	if err := png.Encode(f, image.NewGray(image.Rect(0, 0, 12, 9))); err != nil {
		t.Fatal(err)
	}
	f.Close()

	bad := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(bad, []byte("not an image"), 0600); err != nil {
		t.Fatal(err)
	}

	img, err := decodeFile(good, 0)
	if err != nil {
		t.Fatalf("decodeFile() error = %v", err)
	}
	if img.Bounds() != image.Rect(0, 0, 12, 9) {
		t.Errorf("bounds = %v", img.Bounds())
	}

	if _, err := decodeFile(bad, 0); !errors.Is(err, vision.ErrInvalidImage) {
		t.Errorf("decodeFile(bad) error = %v, want ErrInvalidImage", err)
	}
	if _, err := decodeFile(good, 12*9-1); !errors.Is(err, vision.ErrInvalidImage) {
		t.Errorf("decodeFile(over budget) error = %v, want ErrInvalidImage", err)
	}
	if _, err := decodeFile(filepath.Join(dir, "missing.png"), 0); err == nil {
		t.Error("decodeFile(missing) should fail")
	}
}

func TestNewClassifier(t *testing.T) {
	cls, closeFn, err := newClassifier(config.ClassifierConfig{
		Backend:  config.BackendHTTP,
		Endpoint: "http://127.0.0.1:5000/predict",
	})
	if err != nil {
		t.Fatalf("newClassifier() error = %v", err)
	}
	if _, ok := cls.(*classifier.HTTPClient); !ok {
		t.Errorf("newClassifier() = %T, want *classifier.HTTPClient", cls)
	}
	if err := closeFn(); err != nil {
		t.Errorf("close error = %v", err)
	}

	if _, _, err := newClassifier(config.ClassifierConfig{Backend: "grpc"}); err == nil {
		t.Error("newClassifier() should reject unknown backends")
	}
}

func TestNewRecommender(t *testing.T) {
	rec, err := newRecommender(context.Background(), config.CatalogConfig{
		Provider:     config.ProviderLastFM,
		LastFMAPIKey: "key",
	})
	if err != nil {
		t.Fatalf("newRecommender() error = %v", err)
	}
	if _, ok := rec.(*lastfm.Client); !ok {
		t.Errorf("newRecommender() = %T, want *lastfm.Client", rec)
	}

	if _, err := newRecommender(context.Background(), config.CatalogConfig{Provider: config.ProviderSpotify}); err == nil {
		t.Error("newRecommender() should fail without Spotify credentials")
	}
	if _, err := newRecommender(context.Background(), config.CatalogConfig{Provider: "deezer"}); err == nil {
		t.Error("newRecommender() should reject unknown providers")
	}
}

func TestWriteOutputs(t *testing.T) {
	one := []detectOutput{{Path: "a.png", Error: &web.ErrorResponse{Error: pipeline.KindInvalidImage, Message: "bad"}}}

	var buf bytes.Buffer
	if err := writeOutputs(&buf, one); err != nil {
		t.Fatalf("writeOutputs() error = %v", err)
	}
	if !strings.HasPrefix(strings.TrimSpace(buf.String()), "{") {
		t.Errorf("single output should be an object:\n%s", buf.String())
	}
	if !strings.Contains(buf.String(), `"invalid_image"`) {
		t.Errorf("output missing error kind:\n%s", buf.String())
	}

	buf.Reset()
	if err := writeOutputs(&buf, append(one, detectOutput{Path: "b.png"})); err != nil {
		t.Fatalf("writeOutputs() error = %v", err)
	}
	if !strings.HasPrefix(strings.TrimSpace(buf.String()), "[") {
		t.Errorf("multiple outputs should be an array:\n%s", buf.String())
	}
}

// redirectStd points os.Stdout and os.Stderr at files for the rest of the test.
func redirectStd(t *testing.T) (stdout, stderr *os.File) {
	t.Helper()
	dir := t.TempDir()
	var err error
	if stdout, err = os.Create(filepath.Join(dir, "stdout")); err != nil {
		t.Fatal(err)
	}
	if stderr, err = os.Create(filepath.Join(dir, "stderr")); err != nil {
		t.Fatal(err)
	}
	origOut, origErr := os.Stdout, os.Stderr
	os.Stdout, os.Stderr = stdout, stderr
	t.Cleanup(func() {
		os.Stdout, os.Stderr = origOut, origErr
		stdout.Close()
		stderr.Close()
	})
	return stdout, stderr
}

func TestDetectImages_JSONWhenCatalogFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "face.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := png.Encode(f, image.NewGray(image.Rect(0, 0, 64, 64))); err != nil {
		t.Fatal(err)
	}
	f.Close()

	stdout, stderr := redirectStd(t)
	log := logger.New(true)

	happy, err := emotion.FromVector([]float64{0, 0, 0, 1, 0, 0, 0})
	if err != nil {
		t.Fatal(err)
	}
	runner := pipeline.NewOrchestrator(
		pipeline.NewDetector(
			vision.LocalizerFunc(func(image.Image) ([]vision.BoundingBox, error) {
				return []vision.BoundingBox{{X: 8, Y: 8, Width: 32, Height: 32}}, nil
			}),
			emotion.ClassifierFunc(func(context.Context, vision.Tensor) (emotion.Scores, error) {
				return happy, nil
			}),
			pipeline.WithDetectorLogger(log),
		),
		catalog.RecommenderFunc(func(context.Context, genre.Genre, int) ([]catalog.Track, error) {
			return nil, errors.New("503 service unavailable")
		}),
		pipeline.WithLogger(log),
	)

	err = detectImages(context.Background(), os.Stdout, runner, nil, log, []string{path}, detectOptions{asJSON: true, concurrency: 1})
	if err != nil {
		t.Fatalf("detectImages() error = %v", err)
	}

	data, err := os.ReadFile(stdout.Name())
	if err != nil {
		t.Fatal(err)
	}
	var got detectOutput
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("stdout is not JSON: %v\n%s", err, data)
	}
	if got.Result == nil || got.Result.Emotion != "Happy" || got.Result.TracksAvailable || got.Result.CatalogError == "" {
		t.Errorf("result = %+v, want Happy with tracks unavailable", got.Result)
	}

	logs, err := os.ReadFile(stderr.Name())
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(logs), "[WARN]") {
		t.Errorf("catalog warning not on stderr: %q", logs)
	}
}

func TestDetectImages_ReportsEachFailure(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "a.txt")
	if err := os.WriteFile(bad, []byte("not an image"), 0600); err != nil {
		t.Fatal(err)
	}

	runner := pipeline.NewOrchestrator(
		pipeline.NewDetector(
			vision.LocalizerFunc(func(image.Image) ([]vision.BoundingBox, error) { return nil, nil }),
			emotion.ClassifierFunc(func(context.Context, vision.Tensor) (emotion.Scores, error) {
				return nil, errors.New("unused")
			}),
		),
		catalog.RecommenderFunc(func(context.Context, genre.Genre, int) ([]catalog.Track, error) {
			return nil, nil
		}),
	)

	var out bytes.Buffer
	err := detectImages(context.Background(), &out, runner, nil, logger.Nop(),
		[]string{bad, filepath.Join(dir, "missing.png")}, detectOptions{concurrency: 2})
	if err == nil || !strings.Contains(err.Error(), "2 of 2 images failed") {
		t.Errorf("detectImages() error = %v, want 2 of 2 failed", err)
	}
	for _, want := range []string{"== " + bad + " ==", "Error (invalid_image)"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output missing %q:\n%s", want, out.String())
		}
	}
}
