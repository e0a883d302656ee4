package renderer

import (
	"image"
	"image/color"

	"github.com/golang/freetype/truetype"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Padding added around the measured text before stretching.
const (
	textMarginX = 60
	textMarginY = 80
)

// Fallback placement when no size produces a usable bounding box.
const (
	fallbackFontSize = 50
	fallbackX        = 20
	fallbackYOffset  = 40
)

// TextBlock is a label rasterised once per render and scaled per frame.
type TextBlock struct {
	Text string

	// Image is the block stretched to the target size.
	Image *image.RGBA

	// Natural size of the padded text before stretching. Zero for fallback
	// blocks.
	NaturalWidth  int
	NaturalHeight int

	FontSize float64
	Fallback bool
}

// TextOptions controls the size search.
type TextOptions struct {
	Width, Height int
	SizeStart     int
	SizeStep      int
	SizeMin       int
}

// NewTextBlock fits text with a descending size search and stretches the
// result to the target size. ttf may be nil, in which case the block is
// drawn with the built-in bitmap face. The result is never empty.
func NewTextBlock(text string, ttf *truetype.Font, opts TextOptions) *TextBlock {
	if ttf != nil {
		for size := opts.SizeStart; size > opts.SizeMin; size -= opts.SizeStep {
			face := truetype.NewFace(ttf, &truetype.Options{Size: float64(size), DPI: 72})
			bounds, _ := font.BoundString(face, text)
			w := (bounds.Max.X - bounds.Min.X).Ceil()
			h := (bounds.Max.Y - bounds.Min.Y).Ceil()
			if w > 0 && h > 0 {
				block := stretchText(text, face, bounds, w, h, opts)
				block.FontSize = float64(size)
				face.Close()
				return block
			}
			face.Close()
		}
	}
	return fallbackText(text, ttf, opts)
}

// stretchText draws text in black on a padded white raster with its ink
// box at the margin offset, then scales it to the target size.
func stretchText(text string, face font.Face, bounds fixed.Rectangle26_6, w, h int, opts TextOptions) *TextBlock {
	natural := image.NewRGBA(image.Rect(0, 0, w+textMarginX, h+textMarginY))
	fillWhite(natural)

	d := &font.Drawer{
		Dst:  natural,
		Src:  image.NewUniform(color.Black),
		Face: face,
		Dot: fixed.Point26_6{
			X: fixed.I(textMarginX/2) - bounds.Min.X,
			Y: fixed.I(textMarginY/2) - bounds.Min.Y,
		},
	}
	d.DrawString(text)

	dst := image.NewRGBA(image.Rect(0, 0, opts.Width, opts.Height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), natural, natural.Bounds(), draw.Src, nil)

	return &TextBlock{
		Text:          text,
		Image:         dst,
		NaturalWidth:  natural.Bounds().Dx(),
		NaturalHeight: natural.Bounds().Dy(),
	}
}

// fallbackText draws text unscaled at a fixed position on a white block of
// the target size.
func fallbackText(text string, ttf *truetype.Font, opts TextOptions) *TextBlock {
	dst := image.NewRGBA(image.Rect(0, 0, opts.Width, opts.Height))
	fillWhite(dst)

	var face font.Face = basicfont.Face7x13
	size := 13.0
	if ttf != nil {
		face = truetype.NewFace(ttf, &truetype.Options{Size: fallbackFontSize, DPI: 72})
		defer face.Close()
		size = fallbackFontSize
	}

	top := opts.Height/2 - fallbackYOffset
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(color.Black),
		Face: face,
		Dot:  fixed.P(fallbackX, top+face.Metrics().Ascent.Ceil()),
	}
	d.DrawString(text)

	return &TextBlock{
		Text:     text,
		Image:    dst,
		FontSize: size,
		Fallback: true,
	}
}

// ScaleInto renders the block at the size of dst.
func (b *TextBlock) ScaleInto(dst *image.RGBA) {
	if dst.Bounds().Size() == b.Image.Bounds().Size() {
		copy(dst.Pix, b.Image.Pix)
		return
	}
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), b.Image, b.Image.Bounds(), draw.Src, nil)
}
