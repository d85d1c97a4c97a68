// Package landcover classifies satellite map imagery into land-cover classes
// using HSV color thresholds combined with the Excess Green index.
//
// Five classes are recognized: dense vegetation, sparse vegetation, bare
// rock/soil, built-up/paved, and water. Percentages always sum to 100.
package landcover

import (
	"image"
	"math"

	"github.com/paleobytes/gheval/internal/model"
)

// EarthRadiusM is the WGS84 equatorial radius in meters.
const EarthRadiusM = 6378137

// DefaultRadiusM is the analysis radius used when the caller does not
// specify one.
const DefaultRadiusM = 500

// MetersToPixels converts a ground distance at the given latitude and Web
// Mercator zoom level to screen pixels (256px tiles).
func MetersToPixels(lat float64, zoom int, meters float64) int {
	pixelsPerMeter := math.Exp2(float64(zoom)) * 256 /
		(2 * math.Pi * EarthRadiusM * math.Cos(lat*math.Pi/180))
	return int(meters * pixelsPerMeter)
}

// Analyze classifies the land cover within a circle of radiusM meters around
// the image center. The radius is clamped to the image bounds. Returns the
// class percentages and the pixel radius actually analyzed.
func Analyze(img image.Image, lat float64, zoom int, radiusM float64) (model.LandCover, int) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	cx, cy := w/2, h/2

	radiusPx := MetersToPixels(lat, zoom, radiusM)
	if max := min(cx, cy); radiusPx > max {
		radiusPx = max
	}

	rsq := radiusPx * radiusPx
	mask := func(x, y int) bool {
		dx, dy := x-cx, y-cy
		return dx*dx+dy*dy <= rsq
	}
	return Classify(img, mask), radiusPx
}

// Classify classifies every pixel for which mask returns true. A nil mask
// means the whole image. Unclassifiable pixels are redistributed
// proportionally across the classified classes.
func Classify(img image.Image, mask func(x, y int) bool) model.LandCover {
	b := img.Bounds()

	var total, water, denseVeg, sparseVeg, bare, built int
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if mask != nil && !mask(x-b.Min.X, y-b.Min.Y) {
				continue
			}
			total++

			r32, g32, b32, _ := img.At(x, y).RGBA()
			r := float64(r32 >> 8)
			g := float64(g32 >> 8)
			bl := float64(b32 >> 8)

			hue, sPct, vPct := rgbToHSV(r, g, bl)
			exg := excessGreen(r, g, bl)

			switch {
			// Water: blue hues, saturated, dark.
			case hue >= 180 && hue <= 260 && sPct > 30 && vPct < 60:
				water++
			// Dense vegetation: green hues, saturated, strongly green.
			case hue >= 70 && hue <= 170 && sPct > 40 && vPct > 30 && exg > 0.05:
				denseVeg++
			// Sparse vegetation: weakly saturated greens, or mildly green
			// pixels in a wider hue band.
			case (hue >= 70 && hue <= 170 && sPct >= 20 && sPct <= 40) ||
				(exg > 0 && exg <= 0.05 && hue >= 50 && hue <= 180):
				sparseVeg++
			// Bare rock/soil: yellow-brown hues, moderate saturation.
			case hue >= 20 && hue <= 60 && sPct >= 20 && sPct <= 60:
				bare++
			// Built-up/paved: grey tones.
			case sPct < 20:
				built++
			}
		}
	}
	if total == 0 {
		return model.LandCover{}
	}

	counts := []int{denseVeg, sparseVeg, bare, built, water}
	classified := 0
	for _, c := range counts {
		classified += c
	}
	if classified == 0 {
		counts[2] = total // everything bare
		classified = total
	} else if unclassified := total - classified; unclassified > 0 {
		for i := range counts {
			counts[i] += unclassified * counts[i] / classified
		}
	}

	sum := 0
	for _, c := range counts {
		sum += c
	}
	pcts := make([]int, len(counts))
	for i, c := range counts {
		pcts[i] = int(math.Round(float64(c) * 100 / float64(sum)))
	}

	// Rounding drift lands on the largest class so the total stays 100.
	drift, largest := 100, 0
	for i, p := range pcts {
		drift -= p
		if p > pcts[largest] {
			largest = i
		}
	}
	pcts[largest] += drift

	return model.LandCover{
		DenseVeg:  pcts[0],
		SparseVeg: pcts[1],
		Bare:      pcts[2],
		Built:     pcts[3],
		Water:     pcts[4],
	}
}

// rgbToHSV converts 0-255 RGB to hue in degrees (0-360) and saturation/value
// as percentages (0-100).
func rgbToHSV(r, g, b float64) (hue, sPct, vPct float64) {
	max := math.Max(r, math.Max(g, b))
	min := math.Min(r, math.Min(g, b))
	delta := max - min

	vPct = max * 100 / 255
	if max > 0 {
		sPct = delta * 100 / max
	}
	if delta == 0 {
		return 0, sPct, vPct
	}
	switch max {
	case r:
		hue = 60 * math.Mod((g-b)/delta, 6)
	case g:
		hue = 60 * ((b-r)/delta + 2)
	default:
		hue = 60 * ((r-g)/delta + 4)
	}
	if hue < 0 {
		hue += 360
	}
	return hue, sPct, vPct
}

// excessGreen computes the normalized Excess Green index 2g-r-b, roughly
// -1 (strongly non-green) to 1 (strongly green).
func excessGreen(r, g, b float64) float64 {
	sum := r + g + b
	if sum == 0 {
		sum = 1
	}
	return (2*g - r - b) / sum
}
