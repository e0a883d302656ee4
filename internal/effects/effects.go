// Package effects implements the per-layer image effects applied by the
// compositor: the amplitude-driven two-tone threshold, the fade from white
// and the shake (pulse) sizing.
package effects

import (
	"image"
	"image/draw"

	"github.com/linuxmatters/syntunes/internal/config"
)

// Rec.601 luma weights.
const (
	lumaR = 0.2989
	lumaG = 0.5870
	lumaB = 0.1140
)

// Group identifies a shake group. Each group has its own pulse multiplier.
type Group int

const (
	GroupMain Group = iota
	GroupVisualization
	GroupText
)

// Multiplier returns the configured pulse strength for a group.
func (g Group) Multiplier(cfg config.Effects) float64 {
	switch g {
	case GroupMain:
		return cfg.ShakeMain
	case GroupText:
		return cfg.ShakeText
	default:
		return cfg.ShakeVisualization
	}
}

// Cutoff returns the luma threshold and contrast gain for an amplitude.
func Cutoff(amplitude float64, cfg config.Effects) (threshold, gain float64) {
	threshold = cfg.ThresholdBase - amplitude*cfg.ThresholdRange
	gain = cfg.ContrastBase + amplitude*cfg.ContrastAmplitude
	return threshold, gain
}

// Threshold reduces img to pure black and white in place. Pixels whose
// contrast-boosted luma falls below the amplitude-dependent cutoff become
// black; everything else becomes white. Alpha is forced opaque.
func Threshold(img *image.RGBA, amplitude float64, cfg config.Effects) {
	threshold, gain := Cutoff(amplitude, cfg)

	b := img.Bounds()
	w := b.Dx() * 4
	for y := 0; y < b.Dy(); y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+w]
		for i := 0; i < w; i += 4 {
			gray := lumaR*float64(row[i]) + lumaG*float64(row[i+1]) + lumaB*float64(row[i+2])
			enhanced := gray * gain
			if enhanced < 0 {
				enhanced = 0
			} else if enhanced > 255 {
				enhanced = 255
			}

			var v uint8 = 255
			if enhanced < threshold {
				v = 0
			}
			row[i], row[i+1], row[i+2], row[i+3] = v, v, v, 255
		}
	}
}

// Thresholded returns a thresholded copy of src, leaving src untouched.
func Thresholded(src image.Image, amplitude float64, cfg config.Effects) *image.RGBA {
	b := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
	Threshold(dst, amplitude, cfg)
	return dst
}

// Fade blends img towards white in place with the given coverage. A
// progress of 1 or more leaves img untouched; 0 or less turns it white.
func Fade(img *image.RGBA, progress float64) {
	if progress >= 1 {
		return
	}
	alpha := 0
	if progress > 0 {
		alpha = int(progress * 255)
	}
	inv := 255 - alpha

	b := img.Bounds()
	w := b.Dx() * 4
	for y := 0; y < b.Dy(); y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+w]
		for i := 0; i < w; i += 4 {
			row[i] = blendWhite(row[i], alpha, inv)
			row[i+1] = blendWhite(row[i+1], alpha, inv)
			row[i+2] = blendWhite(row[i+2], alpha, inv)
			row[i+3] = 255
		}
	}
}

func blendWhite(c uint8, alpha, inv int) uint8 {
	return uint8((int(c)*alpha + 255*inv + 127) / 255)
}

// ShakeSize scales base by the pulse factor 1 + amplitude*multiplier and
// truncates. A multiplier of 0 always yields base.
func ShakeSize(base int, amplitude, multiplier float64) int {
	return int(float64(base) * ShakeFactor(amplitude, multiplier))
}

// ShakeFactor returns the scale factor for a shake group.
func ShakeFactor(amplitude, multiplier float64) float64 {
	return 1 + amplitude*multiplier
}
