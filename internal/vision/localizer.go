package vision

import (
	"fmt"
	"image"
	"os"
	"slices"

	pigo "github.com/esimov/pigo/core"
)

// Localizer finds candidate face regions in an image.
type Localizer interface {
	Locate(img image.Image) ([]BoundingBox, error)
}

// LocalizerFunc adapts a function to the Localizer interface.
type LocalizerFunc func(img image.Image) ([]BoundingBox, error)

// Locate calls f(img).
func (f LocalizerFunc) Locate(img image.Image) ([]BoundingBox, error) {
	return f(img)
}

// DetectorConfig holds the tunables of the cascade face detector.
type DetectorConfig struct {
	ScaleFactor  float64 `yaml:"scale_factor"`  // Growth of the scan window between passes
	ShiftFactor  float64 `yaml:"shift_factor"`  // Scan window step as a fraction of its size
	MinSize      int     `yaml:"min_size"`      // Smallest face side in pixels
	MaxSize      int     `yaml:"max_size"`      // Largest face side in pixels
	IoUThreshold float64 `yaml:"iou_threshold"` // Overlap above which detections are merged
	MinQuality   float32 `yaml:"min_quality"`   // Detections scoring below this are dropped
}

// DefaultDetectorConfig returns the recommended detector configuration.
func DefaultDetectorConfig() DetectorConfig {
	return DetectorConfig{
		ScaleFactor:  1.1,
		ShiftFactor:  0.1,
		MinSize:      40,
		MaxSize:      1000,
		IoUThreshold: 0.2,
		MinQuality:   5.0,
	}
}

// PigoLocalizer is a Localizer backed by a pigo pixel-intensity cascade.
// The unpacked cascade is read-only, so one PigoLocalizer may be shared by
// concurrent callers.
type PigoLocalizer struct {
	cascade *pigo.Pigo
	cfg     DetectorConfig
}

// compile-time interface assertion
var _ Localizer = (*PigoLocalizer)(nil)

// LoadPigoLocalizer reads a cascade file from disk and unpacks it.
func LoadPigoLocalizer(path string, cfg DetectorConfig) (*PigoLocalizer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading cascade file: %w", err)
	}
	return NewPigoLocalizer(data, cfg)
}

// NewPigoLocalizer unpacks a cascade from its binary form.
func NewPigoLocalizer(cascade []byte, cfg DetectorConfig) (*PigoLocalizer, error) {
	if len(cascade) == 0 {
		return nil, fmt.Errorf("empty cascade")
	}
	classifier, err := pigo.NewPigo().Unpack(cascade)
	if err != nil {
		return nil, fmt.Errorf("unpacking cascade: %w", err)
	}
	return &PigoLocalizer{cascade: classifier, cfg: cfg}, nil
}

// Locate runs the cascade over img and returns face boxes ordered by
// detection quality (highest first), then by row, then by column. The order is
// deterministic for a given image and configuration.
func (l *PigoLocalizer) Locate(img image.Image) ([]BoundingBox, error) {
	if err := CheckImage(img); err != nil {
		return nil, err
	}

	bounds := img.Bounds()
	cols, rows := bounds.Dx(), bounds.Dy()
	params := pigo.CascadeParams{
		MinSize:     l.cfg.MinSize,
		MaxSize:     l.cfg.MaxSize,
		ShiftFactor: l.cfg.ShiftFactor,
		ScaleFactor: l.cfg.ScaleFactor,
		ImageParams: pigo.ImageParams{
			Pixels: grayPixels(img, bounds),
			Rows:   rows,
			Cols:   cols,
			Dim:    cols,
		},
	}

	dets := l.cascade.RunCascade(params, 0.0)
	dets = l.cascade.ClusterDetections(dets, l.cfg.IoUThreshold)

	return rankDetections(dets, l.cfg.MinQuality, cols, rows), nil
}

type rankedBox struct {
	box     BoundingBox
	quality float32
}

// rankDetections filters detections by quality, converts them to boxes clamped
// into a cols x rows image, and sorts them.
func rankDetections(dets []pigo.Detection, minQuality float32, cols, rows int) []BoundingBox {
	ranked := make([]rankedBox, 0, len(dets))
	for _, d := range dets {
		if d.Q < minQuality {
			continue
		}
		box, ok := boxFromDetection(d, cols, rows)
		if !ok {
			continue
		}
		ranked = append(ranked, rankedBox{box: box, quality: d.Q})
	}

	slices.SortStableFunc(ranked, func(a, b rankedBox) int {
		switch {
		case a.quality > b.quality:
			return -1
		case a.quality < b.quality:
			return 1
		case a.box.Y != b.box.Y:
			return a.box.Y - b.box.Y
		default:
			return a.box.X - b.box.X
		}
	})

	boxes := make([]BoundingBox, len(ranked))
	for i, r := range ranked {
		boxes[i] = r.box
	}
	return boxes
}

// boxFromDetection converts a centre/scale detection into a box clipped to the
// image. It returns false if nothing of the box remains inside the image.
func boxFromDetection(d pigo.Detection, cols, rows int) (BoundingBox, bool) {
	half := d.Scale / 2
	x0 := max(d.Col-half, 0)
	y0 := max(d.Row-half, 0)
	x1 := min(d.Col-half+d.Scale, cols)
	y1 := min(d.Row-half+d.Scale, rows)
	if x1 <= x0 || y1 <= y0 {
		return BoundingBox{}, false
	}
	return BoundingBox{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0}, true
}
