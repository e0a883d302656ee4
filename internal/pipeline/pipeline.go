// Package pipeline runs one render end to end: decode, analysis, asset
// loading, parallel frame composition and the hand-off to the encoder.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/golang/freetype/truetype"
	"github.com/linuxmatters/syntunes/internal/audio"
	"github.com/linuxmatters/syntunes/internal/config"
	"github.com/linuxmatters/syntunes/internal/deps"
	"github.com/linuxmatters/syntunes/internal/encoder"
	"github.com/linuxmatters/syntunes/internal/logging"
	"github.com/linuxmatters/syntunes/internal/renderer"
	"github.com/linuxmatters/syntunes/internal/timing"
)

// ErrInvalidRequest is returned for requests that cannot be rendered.
var ErrInvalidRequest = errors.New("invalid render request")

// ErrOutputLocked is returned when another render holds the output lock.
var ErrOutputLocked = errors.New("output is locked by another render")

// Request describes one render.
type Request struct {
	AudioPath  string
	CoverPath  string // optional, extracted from the audio file when empty
	OutputPath string

	BPM          float64 // 0 uses the configured default
	BeatsPerLoop int     // 0 uses the configured default

	Artist string // optional, read from tags when empty
	Title  string

	SkipPreview bool // do not cut the preview clip
}

// Timings breaks down where a render spent its time.
type Timings struct {
	Analysis  time.Duration
	Render    time.Duration // frame composition
	Encode    time.Duration // waiting on the sink
	Thumbnail time.Duration
	Preview   time.Duration
	Total     time.Duration
}

// Result describes the files a render produced.
type Result struct {
	VideoPath     string
	ThumbnailPath string
	PreviewPath   string // empty when skipped or failed

	Frames     int
	Duration   float64 // seconds
	VideoCodec string
	FileSize   int64

	Profile  *audio.AudioProfile
	Timings  Timings
	Warnings []string
}

// FrameSink receives composed frames in presentation order.
type FrameSink interface {
	WriteFrame(img *image.RGBA) error
	// Close finalises the output.
	Close() error
	// Abort discards any partial output.
	Abort()
}

// SinkFactory opens a started sink for the given encoder configuration.
type SinkFactory func(ctx context.Context, cfg encoder.Config) (FrameSink, error)

// sizedSink is implemented by sinks that can report their output size.
type sizedSink interface {
	OutputSize() int64
}

// FrameProgress is reported after each frame reaches the sink.
type FrameProgress struct {
	Frame       int // 1-based count of frames written
	TotalFrames int
	Elapsed     time.Duration
	Amplitude   float64
	FileSize    int64
	VideoCodec  string
	// Snapshot is a copy of the frame, set every Options.SnapshotEvery
	// frames.
	Snapshot *image.RGBA
}

// Observer receives progress callbacks. Nil fields are skipped. Callbacks
// run on the render goroutine and must not block.
type Observer struct {
	Analysis     audio.ProgressCallback
	AnalysisDone func(profile *audio.AudioProfile, elapsed time.Duration)
	Frame        func(FrameProgress)
}

// Options carries collaborators that are not part of the configuration.
type Options struct {
	Logger   *slog.Logger
	Observer Observer

	// NewSink replaces the ffmpeg encoder. Used by tests.
	NewSink SinkFactory

	// SnapshotEvery controls how often FrameProgress carries a frame copy.
	// Zero disables snapshots.
	SnapshotEvery int
	// ProgressEvery throttles Frame callbacks. Zero reports every frame.
	ProgressEvery int
}

// ThumbnailPath returns "<stem>_thumbnail.jpg" beside output.
func ThumbnailPath(output string) string {
	return siblingPath(output, "_thumbnail.jpg")
}

// PreviewPath returns "<stem>_preview.mp4" beside output.
func PreviewPath(output string) string {
	return siblingPath(output, "_preview.mp4")
}

func siblingPath(output, suffix string) string {
	return strings.TrimSuffix(output, filepath.Ext(output)) + suffix
}

// Validate checks the request against cfg and fills defaults.
func (r *Request) Validate(cfg config.Config) error {
	if strings.TrimSpace(r.AudioPath) == "" {
		return fmt.Errorf("%w: audio path is required", ErrInvalidRequest)
	}
	if strings.TrimSpace(r.OutputPath) == "" {
		return fmt.Errorf("%w: output path is required", ErrInvalidRequest)
	}
	if r.BPM == 0 {
		r.BPM = cfg.Timing.BPM
	}
	if r.BPM <= 0 || math.IsNaN(r.BPM) || math.IsInf(r.BPM, 0) {
		return fmt.Errorf("%w: bpm must be positive, got %g", ErrInvalidRequest, r.BPM)
	}
	if r.BeatsPerLoop == 0 {
		r.BeatsPerLoop = cfg.Timing.BeatsPerLoop
	}
	if r.BeatsPerLoop <= 0 {
		return fmt.Errorf("%w: beats per loop must be positive, got %d", ErrInvalidRequest, r.BeatsPerLoop)
	}
	if _, err := os.Stat(r.AudioPath); err != nil {
		return fmt.Errorf("%w: audio file: %w", ErrInvalidRequest, err)
	}
	if r.CoverPath != "" {
		if _, err := os.Stat(r.CoverPath); err != nil {
			return fmt.Errorf("%w: cover file: %w", ErrInvalidRequest, err)
		}
	}
	return nil
}

// Render produces the video, thumbnail and preview for req. Input errors are
// reported before the encoder starts; a failed or cancelled render leaves no
// video at req.OutputPath.
func Render(ctx context.Context, cfg config.Config, req Request, opts Options) (*Result, error) {
	start := time.Now()
	logger := logging.OrNop(opts.Logger)

	if err := req.Validate(cfg); err != nil {
		return nil, err
	}
	if opts.NewSink == nil {
		if err := deps.Require(deps.Media(cfg.Encoder.FFmpegPath, cfg.Encoder.FFprobePath)); err != nil {
			return nil, fmt.Errorf("missing dependencies: %w", err)
		}
	}

	lock := flock.New(req.OutputPath + ".lock")
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire output lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrOutputLocked, req.OutputPath)
	}
	// The lock file is left in place; unlinking it would let a waiting render
	// lock an orphaned inode while a newcomer locks a fresh file.
	defer lock.Unlock()

	session, err := NewSession(logger)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := session.Close(); err != nil {
			session.Logger().Warn("failed to remove session dir", "error", err)
		}
	}()
	log := session.Logger()
	log.Info("render started", "audio", req.AudioPath, "output", req.OutputPath, "bpm", req.BPM)

	scene, profile, analysisTime, err := prepare(ctx, cfg, req, session, opts.Observer)
	if err != nil {
		return nil, err
	}

	comp, err := renderer.NewCompositor(cfg, scene)
	if err != nil {
		return nil, fmt.Errorf("build compositor: %w", err)
	}

	newSink := opts.NewSink
	videoCodec := cfg.Encoder.VideoCodec
	if newSink == nil {
		newSink = startEncoder
		videoCodec = encoder.ResolveVideoCodec(ctx, cfg.Encoder.FFmpegPath, cfg.Encoder.HWAccel, cfg.Encoder.VideoCodec)
	}
	log.Info("encoder selected", "codec", videoCodec, "hwaccel", cfg.Encoder.HWAccel)

	sink, err := newSink(ctx, encoder.Config{
		OutputPath:   req.OutputPath,
		AudioPath:    req.AudioPath,
		Width:        cfg.Video.Width,
		Height:       cfg.Video.Height,
		Framerate:    cfg.Video.FPS,
		FFmpegPath:   cfg.Encoder.FFmpegPath,
		VideoCodec:   videoCodec,
		Preset:       cfg.Encoder.Preset,
		CRF:          cfg.Encoder.CRF,
		AudioCodec:   cfg.Encoder.AudioCodec,
		AudioBitrate: cfg.Encoder.AudioBitrate,
		Logger:       log,
	})
	if err != nil {
		return nil, fmt.Errorf("start encoder: %w", err)
	}

	fr := frameRenderer{
		comp:          comp,
		sink:          sink,
		workers:       cfg.WorkerCount(),
		envelope:      scene.Envelope,
		codec:         videoCodec,
		observer:      opts.Observer.Frame,
		snapshotEvery: opts.SnapshotEvery,
		progressEvery: max(opts.ProgressEvery, 1),
	}
	if err := fr.run(ctx); err != nil {
		sink.Abort()
		return nil, err
	}

	// The thumbnail is written while the video is still a partial file, so
	// a failure here leaves nothing at the output path.
	thumbStart := time.Now()
	thumbPath := ThumbnailPath(req.OutputPath)
	if err := renderer.GenerateThumbnail(thumbPath, scene.Cover, cfg.Layout.ThumbnailSize, cfg.Encoder.ThumbnailQuality, cfg.Effects); err != nil {
		sink.Abort()
		return nil, fmt.Errorf("thumbnail: %w", err)
	}
	thumbTime := time.Since(thumbStart)

	if err := sink.Close(); err != nil {
		os.Remove(thumbPath)
		return nil, fmt.Errorf("finalise video: %w", err)
	}

	result := &Result{
		VideoPath:  req.OutputPath,
		Frames:     comp.NumFrames(),
		Duration:   scene.Track.Duration(),
		VideoCodec: videoCodec,
		Profile:    profile,
	}
	result.Timings.Analysis = analysisTime
	result.Timings.Render = fr.renderTime
	result.Timings.Encode = fr.writeTime
	if info, err := os.Stat(req.OutputPath); err == nil {
		result.FileSize = info.Size()
	}
	log.Info("video written", "path", req.OutputPath, "frames", result.Frames, "size", result.FileSize)

	result.ThumbnailPath = thumbPath
	result.Timings.Thumbnail = thumbTime

	if opts.NewSink == nil {
		verify(ctx, cfg, result, session)
		if !req.SkipPreview {
			previewStart := time.Now()
			if path, err := cutPreview(ctx, cfg, req.OutputPath, videoCodec, result.Duration); err != nil {
				session.Warn("preview clip failed", "error", err)
			} else {
				result.PreviewPath = path
			}
			result.Timings.Preview = time.Since(previewStart)
		}
	}

	result.Timings.Total = time.Since(start)
	result.Warnings = session.Warnings()
	log.Info("render finished", "elapsed", result.Timings.Total.Round(time.Millisecond), "warnings", len(result.Warnings))
	return result, nil
}

// prepare decodes and analyses the audio and loads every asset the frames
// need. Nothing here touches the output path.
func prepare(ctx context.Context, cfg config.Config, req Request, session *Session, obs Observer) (renderer.Scene, *audio.AudioProfile, time.Duration, error) {
	log := session.Logger()

	track, err := audio.Decode(ctx, req.AudioPath, audio.DecodeOptions{
		FFmpegPath:         cfg.Encoder.FFmpegPath,
		FallbackSampleRate: cfg.Analysis.SampleRate,
	})
	if err != nil {
		return renderer.Scene{}, nil, 0, fmt.Errorf("decode audio: %w", err)
	}
	log.Info("audio decoded", "sample_rate", track.SampleRate, "duration", track.DurationTime().Round(time.Millisecond))

	model, err := timing.New(req.BPM, req.BeatsPerLoop, cfg.Timing.FadeBeats)
	if err != nil {
		return renderer.Scene{}, nil, 0, err
	}

	cover, err := loadCover(req, session)
	if err != nil {
		return renderer.Scene{}, nil, 0, err
	}

	artist, title := req.Artist, req.Title
	if artist == "" || title == "" {
		tags, err := audio.ReadTags(ctx, req.AudioPath, cfg.Encoder.FFprobePath)
		if err != nil {
			session.Warn("could not read tags", "error", err)
		}
		if artist == "" {
			artist = tags.Artist
		}
		if title == "" {
			title = tags.Title
		}
	}

	var ttf *truetype.Font
	if cfg.Assets.FontPath != "" {
		ttf, err = renderer.LoadFont(cfg.Assets.FontPath)
		if err != nil {
			session.Warn("font unavailable, using bitmap fallback", "path", cfg.Assets.FontPath, "error", err)
			ttf = nil
		}
	} else {
		session.Warn("no font configured, using bitmap fallback")
	}
	textOpts := renderer.TextOptions{
		Width:     cfg.Layout.TextWidth,
		Height:    cfg.Layout.TextHeight,
		SizeStart: cfg.Layout.FontSizeStart,
		SizeStep:  cfg.Layout.FontSizeStep,
		SizeMin:   cfg.Layout.FontSizeMin,
	}

	overlay := &renderer.Overlay{}
	if cfg.Assets.OverlayPath != "" {
		loaded, err := renderer.LoadOverlay(cfg.Assets.OverlayPath, cfg.Layout.PanelWidth)
		if err != nil {
			session.Warn("overlay unavailable, layer disabled", "path", cfg.Assets.OverlayPath, "error", err)
		} else {
			overlay = loaded
		}
	}

	analysisStart := time.Now()
	profile, err := audio.Analyze(ctx, track, audio.AnalysisOptions{
		FPS:             cfg.Video.FPS,
		HalfWindow:      cfg.Analysis.EnvelopeWindow,
		SmoothingWindow: cfg.Analysis.SmoothingWindow,
		SmoothingAlpha:  cfg.Analysis.SmoothingAlpha,
	}, obs.Analysis)
	if err != nil {
		return renderer.Scene{}, nil, 0, fmt.Errorf("analyse audio: %w", err)
	}
	analysisTime := time.Since(analysisStart)
	if obs.AnalysisDone != nil {
		obs.AnalysisDone(profile, analysisTime)
	}
	log.Debug("analysis complete", "frames", profile.NumFrames, "peak", profile.GlobalPeak, "rms", profile.GlobalRMS)

	scene := renderer.Scene{
		Track:    track,
		Envelope: profile.Envelope,
		Timing:   model,
		Cover:    renderer.PadSquare(cover, cfg.Layout.CoverSize),
		Overlay:  overlay,
		Artist:   renderer.NewTextBlock(artist, ttf, textOpts),
		Title:    renderer.NewTextBlock(title, ttf, textOpts),
	}
	if scene.Artist.Fallback || scene.Title.Fallback {
		log.Debug("text rendered with fallback face", "artist", artist, "title", title)
	}
	return scene, profile, analysisTime, nil
}

func loadCover(req Request, session *Session) (image.Image, error) {
	path := req.CoverPath
	if path == "" {
		extracted, err := audio.ExtractCover(req.AudioPath, session.Dir)
		if err != nil {
			return nil, fmt.Errorf("%w: no cover given and none embedded: %w", ErrInvalidRequest, err)
		}
		session.Logger().Info("using embedded cover art")
		path = extracted
	}
	img, err := renderer.LoadImage(path)
	if err != nil {
		return nil, fmt.Errorf("%w: cover: %w", ErrInvalidRequest, err)
	}
	return img, nil
}

func startEncoder(ctx context.Context, cfg encoder.Config) (FrameSink, error) {
	enc, err := encoder.New(cfg)
	if err != nil {
		return nil, err
	}
	if err := enc.Start(ctx); err != nil {
		return nil, err
	}
	return enc, nil
}

func cutPreview(ctx context.Context, cfg config.Config, video, codec string, duration float64) (string, error) {
	path := PreviewPath(video)
	seconds := encoder.PreviewDuration(duration, cfg.Encoder.PreviewSeconds)
	err := encoder.Preview(ctx, video, path, seconds, encoder.PreviewOptions{
		FFmpegPath:   cfg.Encoder.FFmpegPath,
		VideoCodec:   codec,
		Preset:       cfg.Encoder.Preset,
		CRF:          cfg.Encoder.CRF,
		AudioCodec:   cfg.Encoder.AudioCodec,
		AudioBitrate: cfg.Encoder.AudioBitrate,
	})
	if err != nil {
		return "", err
	}
	return path, nil
}

// verify probes the finished video and records a warning when its duration
// drifts from the audio by more than a frame. ffprobe is optional.
func verify(ctx context.Context, cfg config.Config, result *Result, session *Session) {
	if _, err := exec.LookPath(cfg.Encoder.FFprobePath); err != nil {
		return
	}
	info, err := encoder.Probe(ctx, cfg.Encoder.FFprobePath, result.VideoPath)
	if err != nil {
		session.Warn("could not verify output", "error", err)
		return
	}
	tolerance := 1 / float64(cfg.Video.FPS)
	if math.Abs(info.Duration-result.Duration) > tolerance+0.05 {
		session.Warn("output duration differs from audio", "video", info.Duration, "audio", result.Duration)
	}
	if info.AudioStreams == 0 {
		session.Warn("output has no audio stream")
	}
}
