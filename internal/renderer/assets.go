package renderer

import (
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	_ "image/png"
	"math"
	"os"

	"github.com/golang/freetype/truetype"
	"golang.org/x/image/draw"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// white is the canvas and padding colour.
var white = color.RGBA{R: 255, G: 255, B: 255, A: 255}

// LoadImage decodes a still image (PNG, JPEG, GIF, BMP or WebP).
func LoadImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, format, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	if b := img.Bounds(); b.Dx() == 0 || b.Dy() == 0 {
		return nil, fmt.Errorf("decode %s: empty %s image", path, format)
	}
	return img, nil
}

// LoadFont parses a TrueType font file.
func LoadFont(fontPath string) (*truetype.Font, error) {
	fontBytes, err := os.ReadFile(fontPath)
	if err != nil {
		return nil, err
	}

	f, err := truetype.Parse(fontBytes)
	if err != nil {
		return nil, fmt.Errorf("parse font %s: %w", fontPath, err)
	}
	return f, nil
}

// PadSquare fits img inside a size x size white square, preserving aspect
// ratio and centring it. Images larger than the square are scaled down;
// smaller ones keep their size. An image that is already exactly the
// square size is copied unchanged.
func PadSquare(img image.Image, size int) *image.RGBA {
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, size, size))

	if b.Dx() == size && b.Dy() == size {
		draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
		return dst
	}

	fillWhite(dst)

	w, h := fitWithin(b.Dx(), b.Dy(), size)
	x := (size - w) / 2
	y := (size - h) / 2
	target := image.Rect(x, y, x+w, y+h)
	if w == b.Dx() && h == b.Dy() {
		draw.Draw(dst, target, img, b.Min, draw.Over)
	} else {
		draw.CatmullRom.Scale(dst, target, img, b, draw.Over, nil)
	}
	return dst
}

// fitWithin returns the largest size no bigger than w x h that fits inside
// a limit x limit box with the same aspect ratio. It never upscales.
func fitWithin(w, h, limit int) (int, int) {
	if w <= limit && h <= limit {
		return w, h
	}
	scale := math.Min(float64(limit)/float64(w), float64(limit)/float64(h))
	nw := max(int(math.Round(float64(w)*scale)), 1)
	nh := max(int(math.Round(float64(h)*scale)), 1)
	return min(nw, limit), min(nh, limit)
}

// fillWhite sets every pixel of img to opaque white.
func fillWhite(img *image.RGBA) {
	b := img.Bounds()
	w := b.Dx() * 4
	if w == 0 {
		return
	}
	for y := 0; y < b.Dy(); y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+w]
		row[0] = 255
		for n := 1; n < len(row); n *= 2 {
			copy(row[n:], row[:n])
		}
	}
}

// reuseRGBA returns an image of exactly w x h backed by buf's storage when
// it is large enough. The contents are undefined.
func reuseRGBA(buf *image.RGBA, w, h int) *image.RGBA {
	need := w * h * 4
	if buf != nil && cap(buf.Pix) >= need {
		return &image.RGBA{Pix: buf.Pix[:need], Stride: w * 4, Rect: image.Rect(0, 0, w, h)}
	}
	return image.NewRGBA(image.Rect(0, 0, w, h))
}

// toRGBA converts img to a zero-origin RGBA copy.
func toRGBA(img image.Image) *image.RGBA {
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}

// floorDiv divides rounding towards negative infinity, so oversized layers
// are centred the same way on both sides of the canvas.
func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
