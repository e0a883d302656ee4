package encoder

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"

	"github.com/linuxmatters/syntunes/internal/ffprobe"
)

// PreviewOptions configures the preview clip.
type PreviewOptions struct {
	FFmpegPath   string
	VideoCodec   string
	Preset       string
	CRF          int
	AudioCodec   string
	AudioBitrate string
}

// PreviewDuration returns the preview length: the first limit seconds, or
// the whole video when it is shorter.
func PreviewDuration(duration, limit float64) float64 {
	return min(duration, limit)
}

// Preview re-encodes the first seconds of input into output. Like the main
// encode it writes a partial file and renames it on success.
func Preview(ctx context.Context, input, output string, seconds float64, opts PreviewOptions) error {
	if seconds <= 0 {
		return fmt.Errorf("preview duration must be positive, got %g", seconds)
	}
	if opts.FFmpegPath == "" {
		opts.FFmpegPath = "ffmpeg"
	}
	if opts.VideoCodec == "" {
		opts.VideoCodec = SoftwareCodec
	}
	if opts.AudioCodec == "" {
		opts.AudioCodec = "aac"
	}

	partial := PartialPath(output)
	cmd := exec.CommandContext(ctx, opts.FFmpegPath, previewArgs(input, partial, seconds, opts)...)
	stderr := newTailBuffer(8 << 10)
	cmd.Stderr = stderr
	if err := cmd.Run(); err != nil {
		os.Remove(partial)
		return fmt.Errorf("preview: %w", ffmpegError(err, stderr))
	}
	if err := os.Rename(partial, output); err != nil {
		os.Remove(partial)
		return fmt.Errorf("preview: %w", err)
	}
	return nil
}

func previewArgs(input, output string, seconds float64, opts PreviewOptions) []string {
	args := []string{"-hide_banner", "-loglevel", "error", "-y"}
	args = append(args, hwInputArgs(opts.VideoCodec)...)
	args = append(args, "-i", input, "-t", strconv.FormatFloat(seconds, 'f', 3, 64))
	args = append(args, "-c:v", opts.VideoCodec)
	args = append(args, videoCodecArgs(opts.VideoCodec, opts.Preset, opts.CRF)...)
	args = append(args, "-c:a", opts.AudioCodec)
	if opts.AudioBitrate != "" {
		args = append(args, "-b:a", opts.AudioBitrate)
	}
	return append(args, "-movflags", "+faststart", output)
}

// VideoInfo summarises a finished video.
type VideoInfo struct {
	Width, Height int
	FPS           float64
	Duration      float64
	Frames        int
	AudioStreams  int
}

// Probe inspects a finished video with ffprobe.
func Probe(ctx context.Context, ffprobePath, path string) (VideoInfo, error) {
	result, err := ffprobe.Inspect(ctx, ffprobePath, path)
	if err != nil {
		return VideoInfo{}, err
	}
	video, ok := result.VideoStream()
	if !ok {
		return VideoInfo{}, fmt.Errorf("%s has no video stream", path)
	}

	info := VideoInfo{
		Width:        video.Width,
		Height:       video.Height,
		FPS:          video.FrameRateValue(),
		Duration:     result.DurationSeconds(),
		AudioStreams: result.AudioStreamCount(),
	}
	if n, err := strconv.Atoi(video.NBFrames); err == nil {
		info.Frames = n
	}
	return info, nil
}
