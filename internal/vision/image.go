// Package vision locates faces in captured images and turns a face region
// into the fixed-size tensor the emotion classifier expects.
package vision

import (
	"errors"
	"fmt"
	"image"
	"image/color"
)

// Sentinel errors.
var (
	// ErrInvalidImage is returned when a captured image is nil, empty, or has
	// no intensity channel.
	ErrInvalidImage = errors.New("invalid image")

	// ErrInvalidRegion is returned when a bounding box has zero area or falls
	// outside the image it refers to.
	ErrInvalidRegion = errors.New("invalid region")
)

// BoundingBox is a face region in image coordinates. X and Y are offsets from
// the image's bounds origin, so (0, 0) is always the top-left pixel.
type BoundingBox struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Area returns Width*Height, or 0 for a degenerate box.
func (b BoundingBox) Area() int {
	if b.Width <= 0 || b.Height <= 0 {
		return 0
	}
	return b.Width * b.Height
}

// Within reports whether the box lies entirely inside the given bounds.
func (b BoundingBox) Within(bounds image.Rectangle) bool {
	return b.X >= 0 && b.Y >= 0 &&
		b.X+b.Width <= bounds.Dx() &&
		b.Y+b.Height <= bounds.Dy()
}

// rect translates the box into the absolute coordinate space of bounds.
func (b BoundingBox) rect(bounds image.Rectangle) image.Rectangle {
	origin := bounds.Min.Add(image.Pt(b.X, b.Y))
	return image.Rectangle{Min: origin, Max: origin.Add(image.Pt(b.Width, b.Height))}
}

func (b BoundingBox) String() string {
	return fmt.Sprintf("(%d,%d %dx%d)", b.X, b.Y, b.Width, b.Height)
}

// Channels returns the number of intensity channels of the image's color
// model: 1 for grayscale, 3 for color, and 0 for alpha-only images.
func Channels(img image.Image) int {
	switch img.ColorModel() {
	case color.GrayModel, color.Gray16Model:
		return 1
	case color.AlphaModel, color.Alpha16Model:
		return 0
	default:
		return 3
	}
}

// CheckImage validates that img can be fed through the pipeline.
func CheckImage(img image.Image) error {
	if img == nil {
		return fmt.Errorf("%w: nil image", ErrInvalidImage)
	}
	bounds := img.Bounds()
	if bounds.Empty() {
		return fmt.Errorf("%w: zero-sized image %dx%d", ErrInvalidImage, bounds.Dx(), bounds.Dy())
	}
	if Channels(img) < 1 {
		return fmt.Errorf("%w: no intensity channel", ErrInvalidImage)
	}
	return nil
}

// grayPixels converts the region r of img to 8-bit luma in row-major order.
// Luma uses the ITU-R 601 weights of color.GrayModel.
func grayPixels(img image.Image, r image.Rectangle) []uint8 {
	pixels := make([]uint8, r.Dx()*r.Dy())
	i := 0
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			pixels[i] = color.GrayModel.Convert(img.At(x, y)).(color.Gray).Y
			i++
		}
	}
	return pixels
}
