package landcover

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/paleobytes/gheval/internal/model"
)

func uniform(c color.RGBA, w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func TestClassify_UniformClasses(t *testing.T) {
	tests := []struct {
		name string
		c    color.RGBA
		want model.LandCover
	}{
		{
			"forest green is dense vegetation",
			color.RGBA{R: 30, G: 160, B: 40, A: 255},
			model.LandCover{DenseVeg: 100},
		},
		{
			"grey asphalt is built",
			color.RGBA{R: 128, G: 128, B: 128, A: 255},
			model.LandCover{Built: 100},
		},
		{
			"dark saturated blue is water",
			color.RGBA{R: 30, G: 60, B: 120, A: 255},
			model.LandCover{Water: 100},
		},
		{
			"brown soil is bare",
			color.RGBA{R: 180, G: 140, B: 100, A: 255},
			model.LandCover{Bare: 100},
		},
		{
			"washed-out green is sparse vegetation",
			color.RGBA{R: 140, G: 180, B: 130, A: 255},
			model.LandCover{SparseVeg: 100},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(uniform(tt.c, 16, 16), nil)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClassify_SplitImage(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 10, 10))
	for y := 0; y < 10; y++ {
		for x := 0; x < 10; x++ {
			if x < 5 {
				img.SetRGBA(x, y, color.RGBA{R: 30, G: 160, B: 40, A: 255})
			} else {
				img.SetRGBA(x, y, color.RGBA{R: 128, G: 128, B: 128, A: 255})
			}
		}
	}

	got := Classify(img, nil)
	assert.Equal(t, 50, got.DenseVeg)
	assert.Equal(t, 50, got.Built)
	assert.Equal(t, 100, got.DenseVeg+got.SparseVeg+got.Bare+got.Built+got.Water)
}

func TestClassify_SumsTo100(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 9, 9))
	colors := []color.RGBA{
		{R: 30, G: 160, B: 40, A: 255},
		{R: 128, G: 128, B: 128, A: 255},
		{R: 30, G: 60, B: 120, A: 255},
	}
	for y := 0; y < 9; y++ {
		for x := 0; x < 9; x++ {
			img.SetRGBA(x, y, colors[(y*9+x)%3])
		}
	}

	got := Classify(img, nil)
	assert.Equal(t, 100, got.DenseVeg+got.SparseVeg+got.Bare+got.Built+got.Water)
}

func TestClassify_MaskRestrictsPixels(t *testing.T) {
	// Green left half, grey right half; mask only the left half.
	img := image.NewRGBA(image.Rect(0, 0, 10, 10))
	for y := 0; y < 10; y++ {
		for x := 0; x < 10; x++ {
			if x < 5 {
				img.SetRGBA(x, y, color.RGBA{R: 30, G: 160, B: 40, A: 255})
			} else {
				img.SetRGBA(x, y, color.RGBA{R: 128, G: 128, B: 128, A: 255})
			}
		}
	}

	got := Classify(img, func(x, y int) bool { return x < 5 })
	assert.Equal(t, model.LandCover{DenseVeg: 100}, got)
}

func TestClassify_EmptyMask(t *testing.T) {
	img := uniform(color.RGBA{R: 128, G: 128, B: 128, A: 255}, 4, 4)
	got := Classify(img, func(x, y int) bool { return false })
	assert.Equal(t, model.LandCover{}, got)
}

func TestMetersToPixels(t *testing.T) {
	// At the equator, zoom 15, one pixel covers ~4.78m of ground.
	assert.Equal(t, 20, MetersToPixels(0, 15, 100))
	assert.Equal(t, 41, MetersToPixels(0, 16, 100))

	// Higher latitude shrinks ground coverage per pixel.
	assert.Greater(t, MetersToPixels(60, 15, 100), MetersToPixels(0, 15, 100))
}

func TestAnalyze_ClampsRadiusToImage(t *testing.T) {
	img := uniform(color.RGBA{R: 30, G: 160, B: 40, A: 255}, 64, 64)

	got, radiusPx := Analyze(img, 37.5665, 10, 100000)
	assert.Equal(t, 32, radiusPx)
	assert.Equal(t, model.LandCover{DenseVeg: 100}, got)
}
