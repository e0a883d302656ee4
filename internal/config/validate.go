package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateVideo(); err != nil {
		return err
	}
	if err := c.validateLayout(); err != nil {
		return err
	}
	if err := c.validateTiming(); err != nil {
		return err
	}
	if err := c.validateAnalysis(); err != nil {
		return err
	}
	if err := c.validateEncoder(); err != nil {
		return err
	}
	if c.UploadRetry.MaxRetries < 0 {
		return errors.New("upload_retry.max_retries must be >= 0")
	}
	return nil
}

func (c *Config) validateVideo() error {
	if c.Video.Width <= 0 || c.Video.Height <= 0 {
		return fmt.Errorf("video size must be positive, got %dx%d", c.Video.Width, c.Video.Height)
	}
	if c.Video.Width%2 != 0 || c.Video.Height%2 != 0 {
		return fmt.Errorf("video size must be even for yuv420p, got %dx%d", c.Video.Width, c.Video.Height)
	}
	if c.Video.FPS <= 0 {
		return fmt.Errorf("video.fps must be positive, got %d", c.Video.FPS)
	}
	return nil
}

func (c *Config) validateLayout() error {
	l := c.Layout
	sizes := map[string]int{
		"layout.cover_size":      l.CoverSize,
		"layout.panel_width":     l.PanelWidth,
		"layout.waveform_height": l.WaveformHeight,
		"layout.spectrum_height": l.SpectrumHeight,
		"layout.text_width":      l.TextWidth,
		"layout.text_height":     l.TextHeight,
		"layout.thumbnail_size":  l.ThumbnailSize,
		"layout.font_size_start": l.FontSizeStart,
		"layout.font_size_step":  l.FontSizeStep,
	}
	for name, v := range sizes {
		if v <= 0 {
			return fmt.Errorf("%s must be positive, got %d", name, v)
		}
	}
	if l.PanelGap < 0 || l.PanelMarginX < 0 || l.TextMarginX < 0 {
		return errors.New("layout gaps and margins must be >= 0")
	}
	if l.FontSizeMin < 0 || l.FontSizeMin >= l.FontSizeStart {
		return fmt.Errorf("layout.font_size_min must be in [0, %d)", l.FontSizeStart)
	}
	return nil
}

func (c *Config) validateTiming() error {
	if c.Timing.BPM <= 0 {
		return fmt.Errorf("timing.bpm must be positive, got %g", c.Timing.BPM)
	}
	if c.Timing.BeatsPerLoop <= 0 {
		return fmt.Errorf("timing.beats_per_loop must be positive, got %d", c.Timing.BeatsPerLoop)
	}
	if c.Timing.FadeBeats <= 0 {
		return fmt.Errorf("timing.fade_beats must be positive, got %g", c.Timing.FadeBeats)
	}
	if c.Timing.IntroHold < 0 {
		return errors.New("timing.intro_hold must be >= 0")
	}
	return nil
}

func (c *Config) validateAnalysis() error {
	a := c.Analysis
	if a.SampleRate <= 0 {
		return errors.New("analysis.sample_rate must be positive")
	}
	if a.EnvelopeWindow < 0 || a.SpectrumWindow <= 0 || a.WaveformWindow <= 0 {
		return errors.New("analysis windows must be positive")
	}
	if a.SmoothingWindow <= 0 {
		return errors.New("analysis.smoothing_window must be positive")
	}
	if a.SmoothingAlpha <= 0 || a.SmoothingAlpha > 1 {
		return fmt.Errorf("analysis.smoothing_alpha must be in (0, 1], got %g", a.SmoothingAlpha)
	}
	if a.SpectrumFloorPercentile < 0 || a.SpectrumCeilPercentile > 100 || a.SpectrumFloorPercentile >= a.SpectrumCeilPercentile {
		return errors.New("analysis spectrum percentiles must satisfy 0 <= floor < ceil <= 100")
	}
	if a.SpectrumSigma < 0 {
		return errors.New("analysis.spectrum_sigma must be >= 0")
	}
	if _, _, _, err := ParseHexColor(a.CenterLineColor); err != nil {
		return fmt.Errorf("analysis.center_line_color: %w", err)
	}
	return nil
}

func (c *Config) validateEncoder() error {
	e := c.Encoder
	if strings.TrimSpace(e.FFmpegPath) == "" {
		return errors.New("encoder.ffmpeg_path must be set")
	}
	if e.CRF < 0 || e.CRF > 51 {
		return fmt.Errorf("encoder.crf must be in [0, 51], got %d", e.CRF)
	}
	if e.ThumbnailQuality < 1 || e.ThumbnailQuality > 100 {
		return fmt.Errorf("encoder.thumbnail_quality must be in [1, 100], got %d", e.ThumbnailQuality)
	}
	if e.PreviewSeconds < 0 {
		return errors.New("encoder.preview_seconds must be >= 0")
	}
	if e.Workers < 0 {
		return errors.New("encoder.workers must be >= 0")
	}
	switch strings.ToLower(e.HWAccel) {
	case "", "none", "auto", "nvenc", "qsv", "vaapi", "videotoolbox":
	default:
		return fmt.Errorf("encoder.hwaccel: unsupported value %q", e.HWAccel)
	}
	return nil
}
