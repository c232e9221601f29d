// Package imaging provides the grayscale plumbing shared by the template
// catalog and the card matcher: decoding screenshots and templates,
// scaling, cropping, and normalized cross-correlation.
package imaging

import (
	"fmt"
	"image"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"math"
	"os"

	xdraw "golang.org/x/image/draw"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// DecodeGray reads an image file and converts it to 8-bit grayscale.
// PNG, JPEG, GIF, WebP, and BMP are supported.
func DecodeGray(path string) (*image.Gray, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open image: %w", err)
	}
	defer file.Close()

	decoded, _, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("decode image %q: %w", path, err)
	}
	return ToGray(decoded), nil
}

// ToGray converts any image to 8-bit grayscale without scaling.
func ToGray(src image.Image) *image.Gray {
	if gray, ok := src.(*image.Gray); ok {
		return gray
	}
	bounds := src.Bounds()
	gray := image.NewGray(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(gray, gray.Bounds(), src, bounds.Min, draw.Src)
	return gray
}

// Resize scales a grayscale image to the given dimensions using
// bilinear interpolation.
func Resize(src *image.Gray, width, height int) *image.Gray {
	if src.Bounds().Dx() == width && src.Bounds().Dy() == height {
		return src
	}
	dst := image.NewGray(image.Rect(0, 0, width, height))
	xdraw.BiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), xdraw.Src, nil)
	return dst
}

// Crop returns a copy of the given region of src. Regions extending past
// the image edge are clipped.
func Crop(src *image.Gray, region image.Rectangle) *image.Gray {
	region = region.Intersect(src.Bounds())
	dst := image.NewGray(image.Rect(0, 0, region.Dx(), region.Dy()))
	draw.Draw(dst, dst.Bounds(), src, region.Min, draw.Src)
	return dst
}

// Mean returns the average pixel intensity of a grayscale image.
func Mean(img *image.Gray) float64 {
	bounds := img.Bounds()
	count := bounds.Dx() * bounds.Dy()
	if count == 0 {
		return 0
	}
	var sum uint64
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		row := img.Pix[(y-bounds.Min.Y)*img.Stride : (y-bounds.Min.Y)*img.Stride+bounds.Dx()]
		for _, p := range row {
			sum += uint64(p)
		}
	}
	return float64(sum) / float64(count)
}

// Correlate computes the normalized cross-correlation between two
// grayscale images of equal size. The result is in [0, 1] for
// non-negative pixel data, with 1 meaning identical up to a scale factor.
// Mismatched dimensions yield 0.
func Correlate(a, b *image.Gray) float64 {
	if a.Bounds().Dx() != b.Bounds().Dx() || a.Bounds().Dy() != b.Bounds().Dy() {
		return 0
	}
	width := a.Bounds().Dx()
	height := a.Bounds().Dy()

	var dot, normA, normB float64
	for y := 0; y < height; y++ {
		rowA := a.Pix[y*a.Stride : y*a.Stride+width]
		rowB := b.Pix[y*b.Stride : y*b.Stride+width]
		for x := 0; x < width; x++ {
			pa := float64(rowA[x])
			pb := float64(rowB[x])
			dot += pa * pb
			normA += pa * pa
			normB += pb * pb
		}
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / math.Sqrt(normA*normB)
}

// Uniform builds a solid grayscale image, which tests and the layout
// background probe both rely on.
func Uniform(width, height int, value uint8) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, width, height))
	for i := range img.Pix {
		img.Pix[i] = value
	}
	return img
}
