package assets

import (
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// Dimensions reads only the image header.
func Dimensions(path string) (width, height int, err error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0, fmt.Errorf("decode image config: %w", err)
	}
	return cfg.Width, cfg.Height, nil
}

// Pixels is decoded 8-bit RGBA data in row-major order.
type Pixels struct {
	Pix    []uint8
	Stride int
	Width  int
	Height int
}

// PixelAt samples one pixel. Coordinates outside the image report false.
func PixelAt(p Pixels, x, y int) (color.RGBA, bool) {
	if x < 0 || y < 0 || x >= p.Width || y >= p.Height {
		return color.RGBA{}, false
	}
	i := y*p.Stride + x*4
	if i+3 >= len(p.Pix) {
		return color.RGBA{}, false
	}
	return color.RGBA{R: p.Pix[i], G: p.Pix[i+1], B: p.Pix[i+2], A: p.Pix[i+3]}, true
}

// AverageColor scales img down to a single pixel and returns it as #rrggbb.
func AverageColor(img image.Image) string {
	dst := image.NewRGBA(image.Rect(0, 0, 1, 1))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)

	c, _ := PixelAt(Pixels{Pix: dst.Pix, Stride: dst.Stride, Width: 1, Height: 1}, 0, 0)
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// FileColor decodes the image at path and returns its AverageColor.
func FileColor(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return "", fmt.Errorf("decode image: %w", err)
	}
	return AverageColor(img), nil
}
