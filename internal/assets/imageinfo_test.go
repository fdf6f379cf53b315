package assets

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePNG(t *testing.T, w, h int, c color.RGBA) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	p := filepath.Join(t.TempDir(), "cover.png")
	f, err := os.Create(p)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())
	return p
}

func TestDimensions(t *testing.T) {
	p := writePNG(t, 12, 7, color.RGBA{A: 255})
	w, h, err := Dimensions(p)
	require.NoError(t, err)
	assert.Equal(t, 12, w)
	assert.Equal(t, 7, h)
}

func TestDimensionsRejectsNonImage(t *testing.T) {
	p := filepath.Join(t.TempDir(), "x.png")
	require.NoError(t, os.WriteFile(p, []byte("not an image"), 0o644))
	_, _, err := Dimensions(p)
	assert.Error(t, err)
}

func TestFileColorSolid(t *testing.T) {
	p := writePNG(t, 16, 16, color.RGBA{R: 0x20, G: 0x40, B: 0x80, A: 0xff})
	c, err := FileColor(p)
	require.NoError(t, err)
	assert.Equal(t, "#204080", c)
}

func TestPixelAt(t *testing.T) {
	px := Pixels{
		Pix:    []uint8{1, 2, 3, 4, 5, 6, 7, 8},
		Stride: 4,
		Width:  1,
		Height: 2,
	}
	c, ok := PixelAt(px, 0, 1)
	require.True(t, ok)
	assert.Equal(t, color.RGBA{R: 5, G: 6, B: 7, A: 8}, c)

	_, ok = PixelAt(px, 1, 0)
	assert.False(t, ok)
	_, ok = PixelAt(px, 0, -1)
	assert.False(t, ok)
}
