package vision

import (
	"errors"
	"image"
	"image/color"
	"testing"
)

func uniformRGBA(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func gradientGray(w, h int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetGray(x, y, color.Gray{Y: uint8((x*7 + y*13) % 256)})
		}
	}
	return img
}

func TestNormalize_ShapeAndRange(t *testing.T) {
	img := gradientGray(640, 480)

	tests := []struct {
		name string
		box  BoundingBox
	}{
		{"single pixel", BoundingBox{X: 10, Y: 10, Width: 1, Height: 1}},
		{"smaller than tensor", BoundingBox{X: 0, Y: 0, Width: 20, Height: 30}},
		{"exact tensor size", BoundingBox{X: 100, Y: 50, Width: TensorSize, Height: TensorSize}},
		{"larger than tensor", BoundingBox{X: 200, Y: 100, Width: 240, Height: 240}},
		{"non-square", BoundingBox{X: 5, Y: 5, Width: 300, Height: 90}},
		{"whole image", BoundingBox{X: 0, Y: 0, Width: 640, Height: 480}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tensor, err := Normalize(img, tt.box)
			if err != nil {
				t.Fatalf("Normalize() error = %v", err)
			}

			if got := len(tensor.Data); got != TensorSize*TensorSize {
				t.Fatalf("len(Data) = %d, want %d", got, TensorSize*TensorSize)
			}
			if got, want := tensor.Shape(), [4]int{1, 1, TensorSize, TensorSize}; got != want {
				t.Errorf("Shape() = %v, want %v", got, want)
			}
			for i, v := range tensor.Data {
				if v < 0 || v > 1 {
					t.Fatalf("Data[%d] = %v, want value in [0, 1]", i, v)
				}
			}
		})
	}
}

func TestNormalize_Intensity(t *testing.T) {
	tests := []struct {
		name  string
		color color.Color
		want  float32
	}{
		{"white", color.White, 1},
		{"black", color.Black, 0},
		{"mid gray", color.Gray{Y: 51}, 0.2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img := uniformRGBA(100, 100, tt.color)
			tensor, err := Normalize(img, BoundingBox{X: 10, Y: 10, Width: 60, Height: 60})
			if err != nil {
				t.Fatalf("Normalize() error = %v", err)
			}
			for i, v := range tensor.Data {
				if diff := v - tt.want; diff > 1e-6 || diff < -1e-6 {
					t.Fatalf("Data[%d] = %v, want %v", i, v, tt.want)
				}
			}
		})
	}
}

func TestNormalize_Deterministic(t *testing.T) {
	img := gradientGray(200, 200)
	box := BoundingBox{X: 17, Y: 23, Width: 97, Height: 113}

	first, err := Normalize(img, box)
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	second, err := Normalize(img, box)
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}

	for i := range first.Data {
		if first.Data[i] != second.Data[i] {
			t.Fatalf("Data[%d] differs between calls: %v vs %v", i, first.Data[i], second.Data[i])
		}
	}
}

func TestNormalize_OffsetBounds(t *testing.T) {
	// Sub-images keep their parent's coordinates; boxes stay relative to Min.
	parent := uniformRGBA(200, 200, color.Black)
	for y := 100; y < 150; y++ {
		for x := 100; x < 150; x++ {
			parent.Set(x, y, color.White)
		}
	}
	sub := parent.SubImage(image.Rect(100, 100, 200, 200))

	tensor, err := Normalize(sub, BoundingBox{X: 0, Y: 0, Width: 50, Height: 50})
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if got := tensor.At(TensorSize/2, TensorSize/2); got != 1 {
		t.Errorf("centre value = %v, want 1", got)
	}
}

func TestNormalize_Errors(t *testing.T) {
	img := uniformRGBA(100, 80, color.White)

	tests := []struct {
		name    string
		img     image.Image
		box     BoundingBox
		wantErr error
	}{
		{"nil image", nil, BoundingBox{Width: 1, Height: 1}, ErrInvalidImage},
		{"empty image", image.NewRGBA(image.Rect(0, 0, 0, 0)), BoundingBox{Width: 1, Height: 1}, ErrInvalidImage},
		{"alpha only image", image.NewAlpha(image.Rect(0, 0, 10, 10)), BoundingBox{Width: 1, Height: 1}, ErrInvalidImage},
		{"zero width", img, BoundingBox{X: 0, Y: 0, Width: 0, Height: 10}, ErrInvalidRegion},
		{"negative height", img, BoundingBox{X: 0, Y: 0, Width: 10, Height: -1}, ErrInvalidRegion},
		{"negative origin", img, BoundingBox{X: -1, Y: 0, Width: 10, Height: 10}, ErrInvalidRegion},
		{"overflows width", img, BoundingBox{X: 95, Y: 0, Width: 10, Height: 10}, ErrInvalidRegion},
		{"overflows height", img, BoundingBox{X: 0, Y: 75, Width: 10, Height: 10}, ErrInvalidRegion},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Normalize(tt.img, tt.box)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Normalize() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
