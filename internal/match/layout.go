package match

import (
	"image"

	"cardcounter/internal/imaging"
)

// Layout locates the card regions within a pack screenshot. Implementations
// may inspect the image; the standard layout probes the background to decide
// between the two- and three-card bottom rows.
type Layout interface {
	Regions(img *image.Gray) []image.Rectangle
}

// Base dimensions the fixed card boxes were measured against. Regions scale
// linearly with the actual screenshot size.
const (
	baseWidth  = 240
	baseHeight = 227
)

// backgroundThreshold is the mean intensity of the bottom-left probe strip
// above which the bottom row holds two cards instead of three.
const backgroundThreshold = 235

type baseRegion struct {
	x, y, w, h int
}

var (
	topRow = []baseRegion{
		{0, 5, 75, 106},
		{81, 5, 75, 106},
		{164, 5, 75, 106},
	}
	bottomRowThree = []baseRegion{
		{0, 121, 75, 106},
		{81, 121, 75, 106},
		{164, 121, 75, 106},
	}
	bottomRowTwo = []baseRegion{
		{39, 121, 75, 106},
		{124, 121, 75, 106},
	}
	probeRegion = baseRegion{0, 124, 30, 50}
)

// StandardLayout is the fixed five-or-six card pack layout.
type StandardLayout struct{}

// Regions returns the card boxes for a screenshot, scaled from the base
// layout. A bright bottom-left strip means the pack shows only two cards on
// the bottom row.
func (StandardLayout) Regions(img *image.Gray) []image.Rectangle {
	width := img.Bounds().Dx()
	height := img.Bounds().Dy()
	if width == 0 || height == 0 {
		return nil
	}

	scaleX := float64(width) / baseWidth
	scaleY := float64(height) / baseHeight

	probe := imaging.Crop(img, scale(probeRegion, scaleX, scaleY))
	bottom := bottomRowThree
	if imaging.Mean(probe) > backgroundThreshold {
		bottom = bottomRowTwo
	}

	regions := make([]image.Rectangle, 0, len(topRow)+len(bottom))
	for _, r := range topRow {
		regions = append(regions, scale(r, scaleX, scaleY))
	}
	for _, r := range bottom {
		regions = append(regions, scale(r, scaleX, scaleY))
	}
	return regions
}

func scale(r baseRegion, scaleX, scaleY float64) image.Rectangle {
	return image.Rect(
		int(float64(r.x)*scaleX),
		int(float64(r.y)*scaleY),
		int(float64(r.x+r.w)*scaleX),
		int(float64(r.y+r.h)*scaleY),
	)
}
