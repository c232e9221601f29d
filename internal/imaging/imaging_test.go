package imaging

import (
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"testing"
)

func writePNG(t *testing.T, path string, img image.Image) {
	t.Helper()
	file, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer file.Close()
	if err := png.Encode(file, img); err != nil {
		t.Fatal(err)
	}
}

func gradient(width, height int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetGray(x, y, color.Gray{Y: uint8((x*7 + y*3) % 256)})
		}
	}
	return img
}

func TestDecodeGrayRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "img.png")
	writePNG(t, path, gradient(16, 16))

	gray, err := DecodeGray(path)
	if err != nil {
		t.Fatalf("DecodeGray: %v", err)
	}
	if gray.Bounds().Dx() != 16 || gray.Bounds().Dy() != 16 {
		t.Fatalf("unexpected bounds %v", gray.Bounds())
	}
}

func TestDecodeGrayMissingFile(t *testing.T) {
	if _, err := DecodeGray(filepath.Join(t.TempDir(), "nope.png")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestCorrelateIdenticalIsOne(t *testing.T) {
	img := gradient(32, 32)
	score := Correlate(img, img)
	if math.Abs(score-1) > 1e-9 {
		t.Fatalf("self correlation = %v, want 1", score)
	}
}

func TestCorrelateDistinguishesImages(t *testing.T) {
	a := gradient(32, 32)
	b := Uniform(32, 32, 200)
	inverted := image.NewGray(a.Bounds())
	for i, p := range a.Pix {
		inverted.Pix[i] = 255 - p
	}

	same := Correlate(a, a)
	different := Correlate(a, inverted)
	if different >= same {
		t.Fatalf("inverted image scored %v >= %v", different, same)
	}
	if got := Correlate(a, b); got <= 0 || got > 1 {
		t.Fatalf("correlation out of range: %v", got)
	}
}

func TestCorrelateSizeMismatch(t *testing.T) {
	if got := Correlate(gradient(8, 8), gradient(16, 16)); got != 0 {
		t.Fatalf("mismatched sizes scored %v, want 0", got)
	}
}

func TestResizeAndCrop(t *testing.T) {
	img := gradient(64, 64)

	small := Resize(img, 16, 16)
	if small.Bounds().Dx() != 16 || small.Bounds().Dy() != 16 {
		t.Fatalf("resize bounds %v", small.Bounds())
	}

	crop := Crop(img, image.Rect(10, 10, 30, 40))
	if crop.Bounds().Dx() != 20 || crop.Bounds().Dy() != 30 {
		t.Fatalf("crop bounds %v", crop.Bounds())
	}

	// Past-edge regions are clipped rather than erroring.
	edge := Crop(img, image.Rect(60, 60, 100, 100))
	if edge.Bounds().Dx() != 4 || edge.Bounds().Dy() != 4 {
		t.Fatalf("clipped crop bounds %v", edge.Bounds())
	}
}

func TestMean(t *testing.T) {
	if got := Mean(Uniform(10, 10, 240)); got != 240 {
		t.Fatalf("mean = %v, want 240", got)
	}
	if got := Mean(image.NewGray(image.Rect(0, 0, 0, 0))); got != 0 {
		t.Fatalf("empty mean = %v", got)
	}
}
