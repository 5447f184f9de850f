package vision

import (
	"fmt"
	"image"

	"github.com/nfnt/resize"
)

// TensorSize is the side length R of the square classifier input.
const TensorSize = 48

// Tensor is a normalized face region with shape (1, 1, TensorSize, TensorSize)
// and values in [0, 1]. Data is row-major.
type Tensor struct {
	Data []float32
}

// Shape returns the (batch, channel, height, width) shape of every Tensor.
func (t Tensor) Shape() [4]int {
	return [4]int{1, 1, TensorSize, TensorSize}
}

// At returns the value at the given row and column.
func (t Tensor) At(row, col int) float32 {
	return t.Data[row*TensorSize+col]
}

// Normalize crops box out of img, reduces it to luma, resamples it to
// TensorSize x TensorSize with bilinear interpolation and rescales 0..255 to
// 0..1. The output shape never depends on the box size.
func Normalize(img image.Image, box BoundingBox) (Tensor, error) {
	if err := CheckImage(img); err != nil {
		return Tensor{}, err
	}
	if box.Area() == 0 {
		return Tensor{}, fmt.Errorf("%w: degenerate box %s", ErrInvalidRegion, box)
	}
	bounds := img.Bounds()
	if !box.Within(bounds) {
		return Tensor{}, fmt.Errorf("%w: box %s outside %dx%d image", ErrInvalidRegion, box, bounds.Dx(), bounds.Dy())
	}

	crop := &image.Gray{
		Pix:    grayPixels(img, box.rect(bounds)),
		Stride: box.Width,
		Rect:   image.Rect(0, 0, box.Width, box.Height),
	}
	scaled := resize.Resize(TensorSize, TensorSize, crop, resize.Bilinear)

	data := make([]float32, TensorSize*TensorSize)
	pix := grayPixels(scaled, scaled.Bounds())
	for i, v := range pix {
		data[i] = float32(v) / 255
	}
	return Tensor{Data: data}, nil
}
