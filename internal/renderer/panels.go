package renderer

import (
	"image"
	"image/color"

	"github.com/linuxmatters/syntunes/internal/audio"
)

// waveformScale is the fraction of the half-height a full-scale sample
// reaches.
const waveformScale = 0.8

// spectrumScale is the fraction of the tile height a full-scale bin reaches.
const spectrumScale = 0.95

// WaveformStyle configures the oscilloscope panel.
type WaveformStyle struct {
	Window          float64 // seconds of audio shown, centred on t
	CenterLine      color.RGBA
	CenterLineWidth int
}

// DrawWaveform paints a white tile with the samples around t drawn as one
// vertical black stroke per column. When the window holds more samples than
// the tile is wide they are decimated with a fixed stride. The centre line
// is drawn last so it always sits on top.
func DrawWaveform(tile *image.RGBA, track *audio.Track, t float64, style WaveformStyle) {
	fillWhite(tile)

	b := tile.Bounds()
	width, height := b.Dx(), b.Dy()

	sr := track.SampleRate
	current := int(t * float64(sr))
	windowSamples := int(style.Window * float64(sr))
	lo := max(0, current-windowSamples/2)
	hi := min(len(track.Samples), current+windowSamples/2)
	if hi <= lo {
		return
	}
	data := track.Samples[lo:hi]

	if len(data) > width {
		step := len(data) / width
		cols := min(width, (len(data)+step-1)/step)
		for i := 0; i < cols; i++ {
			drawStroke(tile, i, height, data[i*step])
		}
	} else {
		for i, s := range data {
			drawStroke(tile, i, height, s)
		}
	}

	lw := max(style.CenterLineWidth, 1)
	cx := width / 2
	x0 := cx - lw/2
	for x := x0; x < x0+lw; x++ {
		fillColumn(tile, x, 0, height-1, style.CenterLine)
	}
}

func drawStroke(tile *image.RGBA, x, height int, sample float64) {
	centerY := height / 2
	offset := int(sample * float64(centerY) * waveformScale)
	y1, y2 := centerY-offset, centerY+offset
	if y1 > y2 {
		y1, y2 = y2, y1
	}
	fillColumn(tile, x, y1, y2, color.RGBA{A: 255})
}

// DrawSpectrum paints a white tile with one bottom-anchored bar per
// magnitude. Bars are at least one pixel tall.
func DrawSpectrum(tile *image.RGBA, mags []float64) {
	fillWhite(tile)

	b := tile.Bounds()
	width, height := b.Dx(), b.Dy()
	black := color.RGBA{A: 255}
	for i, m := range mags {
		if i >= width {
			break
		}
		barHeight := max(int(m*float64(height)*spectrumScale), 1)
		fillColumn(tile, i, max(0, height-barHeight), height-1, black)
	}
}

// fillColumn sets rows y0..y1 inclusive of column x, clipped to the tile.
func fillColumn(tile *image.RGBA, x, y0, y1 int, c color.RGBA) {
	b := tile.Bounds()
	if x < 0 || x >= b.Dx() {
		return
	}
	y0 = max(y0, 0)
	y1 = min(y1, b.Dy()-1)
	for y := y0; y <= y1; y++ {
		o := y*tile.Stride + x*4
		tile.Pix[o], tile.Pix[o+1], tile.Pix[o+2], tile.Pix[o+3] = c.R, c.G, c.B, c.A
	}
}
