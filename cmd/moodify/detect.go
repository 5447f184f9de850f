package main

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/justestif/moodify/internal/db"
	"github.com/justestif/moodify/internal/logger"
	"github.com/justestif/moodify/internal/pipeline"
	"github.com/justestif/moodify/internal/vision"
	"github.com/justestif/moodify/internal/web"
)

// detectOutput is one entry of the JSON output.
type detectOutput struct {
	Path   string                 `json:"path"`
	Result *web.RecommendResponse `json:"result,omitempty"`
	Error  *web.ErrorResponse     `json:"error,omitempty"`
}

// detectOptions controls a detect run.
type detectOptions struct {
	asJSON      bool
	concurrency int
	maxPixels   int
}

func newDetectCmd(a *app) *cobra.Command {
	var opts detectOptions

	cmd := &cobra.Command{
		Use:   "detect <image>...",
		Short: "Recommend tracks for the face in each image file",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := build(cmd.Context(), a.cfg, a.log)
			if err != nil {
				return err
			}
			defer c.Close()

			opts.maxPixels = a.cfg.Detector.MaxPixels
			return detectImages(cmd.Context(), cmd.OutOrStdout(), c.orchestrator, c.Runs(), a.log, args, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.asJSON, "json", false, "print results as JSON")
	cmd.Flags().IntVar(&opts.concurrency, "concurrency", pipeline.DefaultConcurrency, "number of images processed at once")
	return cmd
}

// detectImages runs the pipeline on each path and writes the results to out.
// Logs go through log only, so out stays machine-readable with --json.
func detectImages(ctx context.Context, out io.Writer, runner pipeline.Runner, runs *db.RunRepository, log *logger.Logger, paths []string, opts detectOptions) error {
	items := make([]pipeline.Item, len(paths))
	for i, path := range paths {
		items[i] = pipeline.Item{
			Name: path,
			Load: func() (image.Image, error) { return decodeFile(path, opts.maxPixels) },
		}
	}

	results, err := pipeline.NewBatch(runner, pipeline.WithConcurrency(opts.concurrency)).RunAll(ctx, items)
	if err != nil {
		return err
	}

	outputs := make([]detectOutput, len(results))
	failed := 0
	for i, r := range results {
		outputs[i].Path = r.Name
		if r.Err != nil {
			failed++
			outputs[i].Error = &web.ErrorResponse{Error: pipeline.Classify(r.Err), Message: r.Err.Error()}
			continue
		}
		id := record(ctx, runs, r.Result, log)
		resp := web.NewRecommendResponse(id, r.Result)
		outputs[i].Result = &resp
	}

	if opts.asJSON {
		if err := writeOutputs(out, outputs); err != nil {
			return err
		}
	} else {
		for i, r := range results {
			if len(results) > 1 {
				if i > 0 {
					fmt.Fprintln(out)
				}
				fmt.Fprintf(out, "== %s ==\n", r.Name)
			}
			if r.Err != nil {
				fmt.Fprintf(out, "Error (%s): %v\n", pipeline.Classify(r.Err), r.Err)
				continue
			}
			printResult(out, r.Result)
		}
	}

	switch {
	case failed == 0:
		return nil
	case len(results) == 1:
		return fmt.Errorf("%s: %w", pipeline.Classify(results[0].Err), results[0].Err)
	default:
		return fmt.Errorf("%d of %d images failed", failed, len(results))
	}
}

// record stores a run in history when it is enabled and returns its ID.
func record(ctx context.Context, runs *db.RunRepository, res pipeline.Result, log *logger.Logger) uuid.UUID {
	id := uuid.New()
	if runs == nil {
		return id
	}
	run := &db.Run{
		ID:         id,
		Emotion:    res.Emotion.String(),
		Genre:      res.Genre.String(),
		FaceCount:  res.FaceCount,
		TrackCount: len(res.Tracks),
		CatalogOK:  res.TracksAvailable(),
	}
	if err := runs.Create(ctx, run); err != nil {
		log.Warn("recording run: %v", err)
	}
	return id
}

// writeOutputs prints a single object for one image and an array otherwise.
func writeOutputs(w io.Writer, outputs []detectOutput) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if len(outputs) == 1 {
		return enc.Encode(outputs[0])
	}
	return enc.Encode(outputs)
}

// decodeFile reads a JPEG or PNG image from disk, rejecting images over
// maxPixels before decoding them.
func decodeFile(path string, maxPixels int) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: opening %s: %w", vision.ErrInvalidImage, path, err)
	}
	defer f.Close()

	img, _, err := vision.Decode(f, maxPixels)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return img, nil
}

// printResult writes a human-readable summary of res.
func printResult(w io.Writer, res pipeline.Result) {
	fmt.Fprintf(w, "Emotion: %s\n", res.Emotion)
	fmt.Fprintf(w, "Genre:   %s\n", res.Genre)
	if res.FaceCount == 0 {
		fmt.Fprintln(w, "(no face detected)")
	}
	fmt.Fprintln(w)

	if res.CatalogErr != nil {
		fmt.Fprintf(w, "Recommendations unavailable: %v\n", res.CatalogErr)
	}
	if len(res.Tracks) == 0 {
		fmt.Fprintln(w, "No tracks found. Try again!")
		return
	}

	for i, t := range res.Tracks {
		fmt.Fprintf(w, "%d. %s - %s\n", i+1, t.Title, t.Artist)
		if t.URL != "" {
			fmt.Fprintf(w, "   %s\n", t.URL)
		}
	}
}
