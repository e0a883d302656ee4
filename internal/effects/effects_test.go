package effects

import (
	"image"
	"image/color"
	"testing"

	"github.com/linuxmatters/syntunes/internal/config"
)

func gradient(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := uint8((x * 255) / (w - 1))
			img.SetRGBA(x, y, color.RGBA{R: v, G: uint8(y * 20), B: 255 - v, A: 255})
		}
	}
	return img
}

func isTwoTone(t *testing.T, img *image.RGBA) {
	t.Helper()
	for i := 0; i < len(img.Pix); i += 4 {
		r, g, b, a := img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3]
		if a != 255 || r != g || g != b || (r != 0 && r != 255) {
			t.Fatalf("pixel %d is (%d,%d,%d,%d), want pure black or white", i/4, r, g, b, a)
		}
	}
}

func TestThresholdProducesTwoTones(t *testing.T) {
	cfg := config.Default().Effects
	for _, amp := range []float64{0, 0.25, 0.5, 1} {
		img := gradient(64, 8)
		Threshold(img, amp, cfg)
		isTwoTone(t, img)
	}
}

func TestThresholdIdempotentAtZeroAmplitude(t *testing.T) {
	cfg := config.Default().Effects
	img := gradient(64, 8)
	Threshold(img, 0, cfg)
	first := append([]uint8(nil), img.Pix...)

	Threshold(img, 0, cfg)
	for i := range first {
		if first[i] != img.Pix[i] {
			t.Fatalf("second threshold changed byte %d: %d -> %d", i, first[i], img.Pix[i])
		}
	}
}

func TestThresholdKnownValues(t *testing.T) {
	cfg := config.Default().Effects

	cases := []struct {
		name string
		in   color.RGBA
		amp  float64
		want uint8
	}{
		// 255*1.5 clipped to 255, not below 240.
		{"white stays white", color.RGBA{255, 255, 255, 255}, 0, 255},
		{"black stays black", color.RGBA{0, 0, 0, 255}, 0, 0},
		// luma 150*1.5 = 225 < 240.
		{"mid grey darkens at rest", color.RGBA{150, 150, 150, 255}, 0, 0},
		// gain 2.5, threshold 120: 150*2.5 clipped 255 >= 120.
		{"mid grey brightens on loud frames", color.RGBA{150, 150, 150, 255}, 0.5, 255},
		// threshold 0 at full amplitude: nothing is below it.
		{"full amplitude whites out", color.RGBA{0, 0, 0, 255}, 1, 255},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			img := image.NewRGBA(image.Rect(0, 0, 1, 1))
			img.SetRGBA(0, 0, tc.in)
			Threshold(img, tc.amp, cfg)
			if got := img.Pix[0]; got != tc.want {
				t.Errorf("got %d, want %d", got, tc.want)
			}
		})
	}
}

func TestThresholdedLeavesSourceUntouched(t *testing.T) {
	src := gradient(16, 4)
	orig := append([]uint8(nil), src.Pix...)

	dst := Thresholded(src, 0, config.Default().Effects)
	if dst == src {
		t.Fatal("Thresholded returned its input")
	}
	for i := range orig {
		if orig[i] != src.Pix[i] {
			t.Fatalf("source modified at byte %d", i)
		}
	}
	isTwoTone(t, dst)
}

func TestThresholdSubImage(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	sub := img.SubImage(image.Rect(1, 1, 3, 3)).(*image.RGBA)
	Threshold(sub, 0, config.Default().Effects)

	// Transparent black outside the sub-rectangle stays untouched.
	if a := img.RGBAAt(0, 0).A; a != 0 {
		t.Errorf("pixel outside sub-image modified: alpha %d", a)
	}
	if a := img.RGBAAt(1, 1).A; a != 255 {
		t.Errorf("pixel inside sub-image not processed: alpha %d", a)
	}
}

func TestFadeIdentityAtFullProgress(t *testing.T) {
	for _, p := range []float64{1, 1.5, 100} {
		img := gradient(16, 4)
		orig := append([]uint8(nil), img.Pix...)
		Fade(img, p)
		for i := range orig {
			if orig[i] != img.Pix[i] {
				t.Fatalf("progress %g changed byte %d", p, i)
			}
		}
	}
}

func TestFadeZeroIsWhite(t *testing.T) {
	for _, p := range []float64{0, -1} {
		img := gradient(16, 4)
		Fade(img, p)
		for i, v := range img.Pix {
			if v != 255 {
				t.Fatalf("progress %g: byte %d = %d, want 255", p, i, v)
			}
		}
	}
}

func TestFadeHalfway(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 1, 1))
	img.SetRGBA(0, 0, color.RGBA{0, 0, 0, 255})
	Fade(img, 0.5)

	// alpha 127 over white leaves 128.
	if got := img.Pix[0]; got != 128 {
		t.Errorf("black at half fade = %d, want 128", got)
	}
}

func TestFadeMonotonic(t *testing.T) {
	prev := 256
	for _, p := range []float64{0, 0.1, 0.3, 0.6, 0.9, 1} {
		img := image.NewRGBA(image.Rect(0, 0, 1, 1))
		img.SetRGBA(0, 0, color.RGBA{0, 0, 0, 255})
		Fade(img, p)
		v := int(img.Pix[0])
		if v > prev {
			t.Errorf("progress %g: value %d brighter than previous %d", p, v, prev)
		}
		prev = v
	}
}

func TestShakeSize(t *testing.T) {
	cases := []struct {
		base      int
		amp, mult float64
		want      int
	}{
		{1080, 0, 0.08, 1080},
		{1080, 1, 0.08, 1166},
		{1080, 0.5, 0.08, 1123},
		{450, 1, 0, 450},
		{450, 0.73, 0, 450},
	}
	for _, tc := range cases {
		if got := ShakeSize(tc.base, tc.amp, tc.mult); got != tc.want {
			t.Errorf("ShakeSize(%d, %g, %g) = %d, want %d", tc.base, tc.amp, tc.mult, got, tc.want)
		}
	}
}

func TestGroupMultiplier(t *testing.T) {
	cfg := config.Default().Effects
	if got := GroupMain.Multiplier(cfg); got != 0.08 {
		t.Errorf("main multiplier = %g", got)
	}
	if got := GroupVisualization.Multiplier(cfg); got != 0 {
		t.Errorf("visualization multiplier = %g", got)
	}
	if got := GroupText.Multiplier(cfg); got != 0 {
		t.Errorf("text multiplier = %g", got)
	}
}
