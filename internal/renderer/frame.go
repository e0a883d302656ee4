package renderer

import (
	"fmt"
	"image"
	"image/color"
	"sync"

	"github.com/linuxmatters/syntunes/internal/audio"
	"github.com/linuxmatters/syntunes/internal/config"
	"github.com/linuxmatters/syntunes/internal/effects"
	"github.com/linuxmatters/syntunes/internal/timing"
	"golang.org/x/image/draw"
)

// Scene is the read-only state shared by every frame of one render.
type Scene struct {
	Track    *audio.Track
	Envelope audio.Envelope
	Timing   timing.Model

	// Cover is the padded square cover at the layout cover size.
	Cover   *image.RGBA
	Overlay *Overlay
	Artist  *TextBlock
	Title   *TextBlock
}

// Compositor lays out the layers of each frame. It holds no mutable state
// and is shared by all workers; per-goroutine scratch lives in FrameWorker.
type Compositor struct {
	cfg   config.Config
	scene Scene

	intro    *image.RGBA
	waveform WaveformStyle
	spectrum audio.SpectrumOptions
	canvas   image.Rectangle

	canvasPool sync.Pool
}

// NewCompositor validates the scene and precomputes the intro cover.
func NewCompositor(cfg config.Config, scene Scene) (*Compositor, error) {
	if scene.Track == nil {
		return nil, fmt.Errorf("scene has no track")
	}
	if scene.Cover == nil {
		return nil, fmt.Errorf("scene has no cover")
	}
	if scene.Artist == nil || scene.Title == nil {
		return nil, fmt.Errorf("scene is missing text blocks")
	}
	if scene.Overlay == nil {
		scene.Overlay = &Overlay{}
	}

	r, g, b, err := config.ParseHexColor(cfg.Analysis.CenterLineColor)
	if err != nil {
		return nil, err
	}

	c := &Compositor{
		cfg:   cfg,
		scene: scene,
		intro: effects.Thresholded(scene.Cover, 0, cfg.Effects),
		waveform: WaveformStyle{
			Window:          cfg.Analysis.WaveformWindow,
			CenterLine:      color.RGBA{R: r, G: g, B: b, A: 255},
			CenterLineWidth: cfg.Analysis.CenterLineWidth,
		},
		spectrum: audio.SpectrumOptions{
			Window:          cfg.Analysis.SpectrumWindow,
			FloorPercentile: cfg.Analysis.SpectrumFloorPercentile,
			CeilPercentile:  cfg.Analysis.SpectrumCeilPercentile,
			Headroom:        cfg.Analysis.SpectrumHeadroom,
			Sigma:           cfg.Analysis.SpectrumSigma,
		},
		canvas: image.Rect(0, 0, cfg.Video.Width, cfg.Video.Height),
	}
	c.canvasPool.New = func() any {
		return image.NewRGBA(c.canvas)
	}
	return c, nil
}

// NumFrames returns the number of frames in the render.
func (c *Compositor) NumFrames() int {
	return c.scene.Track.FrameCount(c.cfg.Video.FPS)
}

// FrameTime returns the timestamp of frame i in seconds.
func (c *Compositor) FrameTime(i int) float64 {
	return float64(i) / float64(c.cfg.Video.FPS)
}

// FrameWorker renders frames for one goroutine. Each worker owns its
// canvas, tile buffers and FFT plan.
type FrameWorker struct {
	c        *Compositor
	img      *image.RGBA
	analyzer *audio.SpectrumAnalyzer

	cover, spec, wave, gif, artist, title *image.RGBA
}

// NewWorker returns a worker with a pooled canvas. Call Release when done.
func (c *Compositor) NewWorker() *FrameWorker {
	return &FrameWorker{
		c:        c,
		img:      c.canvasPool.Get().(*image.RGBA),
		analyzer: audio.NewSpectrumAnalyzer(c.scene.Track, c.spectrum),
	}
}

// Release returns the canvas to the pool. The worker must not be used
// afterwards.
func (w *FrameWorker) Release() {
	if w.img != nil {
		w.c.canvasPool.Put(w.img)
		w.img = nil
	}
}

// Image returns the canvas holding the most recently rendered frame. It is
// overwritten by the next Render call.
func (w *FrameWorker) Image() *image.RGBA {
	return w.img
}

// Render draws frame i onto the worker canvas and returns it.
func (w *FrameWorker) Render(i int) *image.RGBA {
	c := w.c
	cfg := c.cfg
	canvas := w.img
	fillWhite(canvas)

	t := c.FrameTime(i)
	if t < cfg.Timing.IntroHold {
		pasteCentered(canvas, c.intro)
		return canvas
	}

	amplitude := c.scene.Envelope.At(i)
	fade := c.scene.Timing.FadeProgress(t - cfg.Timing.IntroHold)

	w.drawCover(canvas, amplitude)
	w.drawPanels(canvas, t, amplitude, fade)
	w.drawText(canvas, amplitude, fade)
	return canvas
}

func (w *FrameWorker) drawCover(canvas *image.RGBA, amplitude float64) {
	cfg := w.c.cfg
	base := w.c.scene.Cover
	size := effects.ShakeSize(cfg.Layout.CoverSize, amplitude, effects.GroupMain.Multiplier(cfg.Effects))

	w.cover = reuseRGBA(w.cover, size, size)
	scaleInto(w.cover, base)
	effects.Threshold(w.cover, amplitude, cfg.Effects)
	pasteCentered(canvas, w.cover)
}

func (w *FrameWorker) drawPanels(canvas *image.RGBA, t, amplitude, fade float64) {
	c := w.c
	cfg := c.cfg
	l := cfg.Layout
	factor := effects.ShakeFactor(amplitude, effects.GroupVisualization.Multiplier(cfg.Effects))

	visW := int(float64(l.PanelWidth) * factor)
	waveH := int(float64(l.WaveformHeight) * factor)
	specH := int(float64(l.SpectrumHeight) * factor)

	w.spec = reuseRGBA(w.spec, visW, specH)
	DrawSpectrum(w.spec, w.analyzer.Spectrum(t, visW))
	effectLayer(w.spec, amplitude, fade, cfg.Effects)

	w.wave = reuseRGBA(w.wave, visW, waveH)
	DrawWaveform(w.wave, c.scene.Track, t, c.waveform)
	effectLayer(w.wave, amplitude, fade, cfg.Effects)

	gifH := waveH
	var overlay *image.RGBA
	if frame, ok := c.scene.Overlay.FrameAt(c.scene.Timing, t); ok {
		fb := frame.Bounds()
		gw := int(float64(fb.Dx()) * factor)
		gh := int(float64(fb.Dy()) * factor)
		if gw > 0 && gh > 0 {
			w.gif = reuseRGBA(w.gif, gw, gh)
			scaleInto(w.gif, frame)
			effectLayer(w.gif, amplitude, fade, cfg.Effects)
			overlay = w.gif
			gifH = gh
		}
	}

	total := specH + l.PanelGap + waveH + l.PanelGap + gifH
	y := cfg.Video.Height/2 - floorDiv(total, 2)
	x := l.PanelMarginX

	paste(canvas, w.spec, x, y)
	y += specH + l.PanelGap
	paste(canvas, w.wave, x, y)
	y += waveH + l.PanelGap
	if overlay != nil {
		paste(canvas, overlay, x, y)
	}
}

func (w *FrameWorker) drawText(canvas *image.RGBA, amplitude, fade float64) {
	cfg := w.c.cfg
	l := cfg.Layout
	factor := effects.ShakeFactor(amplitude, effects.GroupText.Multiplier(cfg.Effects))

	tw := int(float64(l.TextWidth) * factor)
	th := int(float64(l.TextHeight) * factor)
	if tw <= 0 || th <= 0 {
		return
	}
	x := cfg.Video.Width - tw - l.TextMarginX
	artistY := cfg.Video.Height - (l.ArtistAnchor + l.AnchorOffset) - floorDiv(th, 2)
	titleY := cfg.Video.Height - (l.TitleAnchor - l.AnchorOffset) - floorDiv(th, 2)

	w.artist = reuseRGBA(w.artist, tw, th)
	w.c.scene.Artist.ScaleInto(w.artist)
	effectLayer(w.artist, amplitude, fade, cfg.Effects)

	w.title = reuseRGBA(w.title, tw, th)
	w.c.scene.Title.ScaleInto(w.title)
	effectLayer(w.title, amplitude, fade, cfg.Effects)

	paste(canvas, w.artist, x, artistY)
	paste(canvas, w.title, x, titleY)
}

// effectLayer applies threshold then fade.
func effectLayer(tile *image.RGBA, amplitude, fade float64, cfg config.Effects) {
	effects.Threshold(tile, amplitude, cfg)
	effects.Fade(tile, fade)
}

// scaleInto resizes src to fill dst, copying directly when sizes match.
func scaleInto(dst *image.RGBA, src *image.RGBA) {
	if dst.Bounds().Size() == src.Bounds().Size() {
		draw.Draw(dst, dst.Bounds(), src, src.Bounds().Min, draw.Src)
		return
	}
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
}

// paste copies tile onto canvas with its top-left corner at (x, y),
// clipped to the canvas.
func paste(canvas, tile *image.RGBA, x, y int) {
	r := tile.Bounds().Add(image.Pt(x, y))
	draw.Draw(canvas, r, tile, tile.Bounds().Min, draw.Src)
}

// pasteCentered centres tile on canvas.
func pasteCentered(canvas, tile *image.RGBA) {
	cb, tb := canvas.Bounds(), tile.Bounds()
	paste(canvas, tile, floorDiv(cb.Dx()-tb.Dx(), 2), floorDiv(cb.Dy()-tb.Dy(), 2))
}
