package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"runtime"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Video describes the output raster and frame rate.
type Video struct {
	Width  int `toml:"width"`
	Height int `toml:"height"`
	FPS    int `toml:"fps"`
}

// Layout holds the fixed canvas geometry. Every size is in pixels at the
// 1920x1080 reference canvas.
type Layout struct {
	CoverSize      int `toml:"cover_size"`
	PanelWidth     int `toml:"panel_width"`
	WaveformHeight int `toml:"waveform_height"`
	SpectrumHeight int `toml:"spectrum_height"`
	PanelGap       int `toml:"panel_gap"`
	PanelMarginX   int `toml:"panel_margin_x"`

	TextWidth   int `toml:"text_width"`
	TextHeight  int `toml:"text_height"`
	TextMarginX int `toml:"text_margin_x"`
	// Vertical anchors measured from the canvas bottom; the block centre sits
	// at anchor + AnchorOffset above the bottom edge.
	ArtistAnchor int `toml:"artist_anchor"`
	TitleAnchor  int `toml:"title_anchor"`
	AnchorOffset int `toml:"anchor_offset"`

	FontSizeStart int `toml:"font_size_start"`
	FontSizeStep  int `toml:"font_size_step"`
	FontSizeMin   int `toml:"font_size_min"`

	ThumbnailSize int `toml:"thumbnail_size"`
}

// Timing holds tempo and beat-derived durations.
type Timing struct {
	BPM          float64 `toml:"bpm"`
	BeatsPerLoop int     `toml:"beats_per_loop"`
	FadeBeats    float64 `toml:"fade_beats"`
	IntroHold    float64 `toml:"intro_hold"`
}

// Effects holds the threshold and shake parameters.
type Effects struct {
	ThresholdBase     float64 `toml:"threshold_base"`
	ThresholdRange    float64 `toml:"threshold_range"`
	ContrastBase      float64 `toml:"contrast_base"`
	ContrastAmplitude float64 `toml:"contrast_amplitude"`

	ShakeMain          float64 `toml:"shake_main"`
	ShakeVisualization float64 `toml:"shake_visualization"`
	ShakeText          float64 `toml:"shake_text"`
}

// Analysis holds audio feature extraction parameters.
type Analysis struct {
	SampleRate      int     `toml:"sample_rate"`
	EnvelopeWindow  float64 `toml:"envelope_window"`
	SmoothingWindow int     `toml:"smoothing_window"`
	SmoothingAlpha  float64 `toml:"smoothing_alpha"`

	SpectrumWindow          float64 `toml:"spectrum_window"`
	SpectrumFloorPercentile float64 `toml:"spectrum_floor_percentile"`
	SpectrumCeilPercentile  float64 `toml:"spectrum_ceil_percentile"`
	SpectrumHeadroom        float64 `toml:"spectrum_headroom"`
	SpectrumSigma           float64 `toml:"spectrum_sigma"`

	WaveformWindow  float64 `toml:"waveform_window"`
	CenterLineColor string  `toml:"center_line_color"`
	CenterLineWidth int     `toml:"center_line_width"`
}

// Assets points at the overlay animation and font used for text blocks.
type Assets struct {
	OverlayPath string `toml:"overlay_path"`
	FontPath    string `toml:"font_path"`
}

// Encoder configures the external ffmpeg hand-off.
type Encoder struct {
	FFmpegPath       string  `toml:"ffmpeg_path"`
	FFprobePath      string  `toml:"ffprobe_path"`
	VideoCodec       string  `toml:"video_codec"`
	HWAccel          string  `toml:"hwaccel"`
	Preset           string  `toml:"preset"`
	CRF              int     `toml:"crf"`
	AudioCodec       string  `toml:"audio_codec"`
	AudioBitrate     string  `toml:"audio_bitrate"`
	Workers          int     `toml:"workers"`
	PreviewSeconds   float64 `toml:"preview_seconds"`
	ThumbnailQuality int     `toml:"thumbnail_quality"`
}

// Logging configures the slog logger.
type Logging struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
	File   string `toml:"file"`
}

// UploadRetry is the bounded retry policy handed to the video-hosting
// uploader. The renderer itself never uploads.
type UploadRetry struct {
	MaxRetries    int   `toml:"max_retries"`
	RetryStatuses []int `toml:"retry_statuses"`
}

// Config is the immutable render configuration passed into the pipeline.
type Config struct {
	Video       Video       `toml:"video"`
	Layout      Layout      `toml:"layout"`
	Timing      Timing      `toml:"timing"`
	Effects     Effects     `toml:"effects"`
	Analysis    Analysis    `toml:"analysis"`
	Assets      Assets      `toml:"assets"`
	Encoder     Encoder     `toml:"encoder"`
	Logging     Logging     `toml:"logging"`
	UploadRetry UploadRetry `toml:"upload_retry"`
}

// Default returns the stock configuration.
func Default() Config {
	return Config{
		Video: Video{Width: 1920, Height: 1080, FPS: 30},
		Layout: Layout{
			CoverSize:      1080,
			PanelWidth:     450,
			WaveformHeight: 250,
			SpectrumHeight: 250,
			PanelGap:       20,
			PanelMarginX:   20,
			TextWidth:      450,
			TextHeight:     300,
			TextMarginX:    20,
			ArtistAnchor:   145,
			TitleAnchor:    935,
			AnchorOffset:   150,
			FontSizeStart:  200,
			FontSizeStep:   10,
			FontSizeMin:    20,
			ThumbnailSize:  1080,
		},
		Timing: Timing{
			BPM:          130,
			BeatsPerLoop: 8,
			FadeBeats:    8,
			IntroHold:    0.2,
		},
		Effects: Effects{
			ThresholdBase:      240,
			ThresholdRange:     240,
			ContrastBase:       1.5,
			ContrastAmplitude:  2,
			ShakeMain:          0.08,
			ShakeVisualization: 0,
			ShakeText:          0,
		},
		Analysis: Analysis{
			SampleRate:              48000,
			EnvelopeWindow:          0.005,
			SmoothingWindow:         3,
			SmoothingAlpha:          0.1,
			SpectrumWindow:          0.1,
			SpectrumFloorPercentile: 5,
			SpectrumCeilPercentile:  95,
			SpectrumHeadroom:        0.1,
			SpectrumSigma:           0.5,
			WaveformWindow:          2.0,
			CenterLineColor:         "#FF0000",
			CenterLineWidth:         2,
		},
		Assets: Assets{
			OverlayPath: "assets/animation.gif",
			FontPath:    "assets/font.ttf",
		},
		Encoder: Encoder{
			FFmpegPath:       "ffmpeg",
			FFprobePath:      "ffprobe",
			VideoCodec:       "libx264",
			HWAccel:          "none",
			Preset:           "medium",
			CRF:              23,
			AudioCodec:       "aac",
			AudioBitrate:     "192k",
			Workers:          0,
			PreviewSeconds:   15,
			ThumbnailQuality: 95,
		},
		Logging: Logging{
			Level:  "info",
			Format: "console",
		},
		UploadRetry: UploadRetry{
			MaxRetries:    3,
			RetryStatuses: []int{500, 502, 503, 504},
		},
	}
}

// Load reads a TOML file over the defaults. An empty path returns the
// defaults unchanged.
func Load(path string) (*Config, error) {
	cfg := Default()

	path = strings.TrimSpace(path)
	if path != "" {
		file, err := os.Open(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("config file %s does not exist", path)
			}
			return nil, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SampleConfig returns the commented sample configuration.
func SampleConfig() string {
	return sampleConfig
}

// WorkerCount resolves the configured worker count, defaulting to the number
// of CPUs.
func (c *Config) WorkerCount() int {
	if c.Encoder.Workers > 0 {
		return c.Encoder.Workers
	}
	return runtime.NumCPU()
}

// ShouldRetry reports whether an upload attempt that failed with the given
// HTTP status should be retried. attempt counts retries already made.
func (p UploadRetry) ShouldRetry(status, attempt int) bool {
	if attempt >= p.MaxRetries {
		return false
	}
	for _, s := range p.RetryStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// ParseHexColor parses a hex colour string (with or without leading #) into
// RGB components.
func ParseHexColor(hex string) (r, g, b uint8, err error) {
	hex = strings.TrimPrefix(hex, "#")
	if len(hex) != 6 {
		return 0, 0, 0, fmt.Errorf("invalid hex colour %q: must be 6 characters", hex)
	}

	val, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("invalid hex colour %q: %w", hex, err)
	}

	return uint8(val >> 16), uint8(val >> 8), uint8(val), nil
}
