package renderer

import (
	"fmt"
	"image"
	"image/gif"
	"os"

	"github.com/linuxmatters/syntunes/internal/timing"
	"golang.org/x/image/draw"
)

// Overlay is the looping animation shown under the waveform. Frames are
// opaque, composited over white and resized to the panel width. An empty
// Overlay is valid and disables the layer.
type Overlay struct {
	Frames []*image.RGBA
}

// Len returns the number of frames.
func (o *Overlay) Len() int {
	if o == nil {
		return 0
	}
	return len(o.Frames)
}

// FrameAt returns the frame for time t, or false when there are no frames.
func (o *Overlay) FrameAt(model timing.Model, t float64) (*image.RGBA, bool) {
	idx, ok := model.OverlayFrameIndex(t, o.Len())
	if !ok {
		return nil, false
	}
	return o.Frames[idx], true
}

// LoadOverlay decodes an animated GIF, resolving frame disposal so every
// frame is a complete picture, and resizes each frame to width pixels wide
// keeping its aspect ratio.
func LoadOverlay(path string, width int) (*Overlay, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	g, err := gif.DecodeAll(f)
	if err != nil {
		return nil, fmt.Errorf("decode overlay %s: %w", path, err)
	}
	return NewOverlay(g, width)
}

// NewOverlay builds an Overlay from decoded GIF data.
func NewOverlay(g *gif.GIF, width int) (*Overlay, error) {
	if len(g.Image) == 0 {
		return &Overlay{}, nil
	}

	bounds := image.Rect(0, 0, g.Config.Width, g.Config.Height)
	if bounds.Empty() {
		bounds = g.Image[0].Bounds()
	}
	if bounds.Empty() {
		return nil, fmt.Errorf("overlay has empty bounds")
	}

	// Transparent regions start out empty so they composite to white.
	canvas := image.NewRGBA(bounds)
	var previous *image.RGBA

	height := int(float64(width) * float64(bounds.Dy()) / float64(bounds.Dx()))
	height = max(height, 1)

	frames := make([]*image.RGBA, 0, len(g.Image))
	for i, frame := range g.Image {
		disposal := byte(gif.DisposalNone)
		if i < len(g.Disposal) {
			disposal = g.Disposal[i]
		}
		if disposal == gif.DisposalPrevious {
			previous = image.NewRGBA(bounds)
			copy(previous.Pix, canvas.Pix)
		}

		draw.Draw(canvas, frame.Bounds(), frame, frame.Bounds().Min, draw.Over)

		flat := image.NewRGBA(bounds)
		fillWhite(flat)
		draw.Draw(flat, bounds, canvas, bounds.Min, draw.Over)

		resized := image.NewRGBA(image.Rect(0, 0, width, height))
		draw.CatmullRom.Scale(resized, resized.Bounds(), flat, bounds, draw.Src, nil)
		frames = append(frames, resized)

		switch disposal {
		case gif.DisposalBackground:
			draw.Draw(canvas, frame.Bounds(), image.Transparent, image.Point{}, draw.Src)
		case gif.DisposalPrevious:
			copy(canvas.Pix, previous.Pix)
		}
	}

	return &Overlay{Frames: frames}, nil
}
