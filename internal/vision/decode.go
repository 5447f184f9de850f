package vision

import (
	"fmt"
	"image"
	_ "image/jpeg" // register decoders
	_ "image/png"
	"io"
)

// DefaultMaxPixels is the default decode budget: 4096x4096.
const DefaultMaxPixels = 4096 * 4096

// Decode reads a JPEG or PNG image. The header is checked first, and images
// with more than maxPixels pixels are rejected before any pixel data is
// decoded. maxPixels <= 0 disables the check.
func Decode(r io.ReadSeeker, maxPixels int) (image.Image, string, error) {
	cfg, format, err := image.DecodeConfig(r)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %w", ErrInvalidImage, err)
	}
	if maxPixels > 0 && cfg.Width*cfg.Height > maxPixels {
		return nil, format, fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrInvalidImage, cfg.Width, cfg.Height, maxPixels)
	}

	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, format, fmt.Errorf("rewinding image: %w", err)
	}
	img, format, err := image.Decode(r)
	if err != nil {
		return nil, format, fmt.Errorf("%w: %w", ErrInvalidImage, err)
	}
	return img, format, nil
}
