// Package encoder hands rendered frames to an ffmpeg subprocess, which muxes
// them with the source audio into an H.264/AAC MP4.
package encoder

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/linuxmatters/syntunes/internal/logging"
)

// ErrClosed is returned when writing to a finished or aborted encoder.
var ErrClosed = errors.New("encoder closed")

// Config holds the encoder configuration
type Config struct {
	OutputPath string // Final MP4 path
	AudioPath  string // Source audio, muxed as the second input
	Width      int    // Video width in pixels
	Height     int    // Video height in pixels
	Framerate  int    // Frames per second

	FFmpegPath   string
	VideoCodec   string // libx264 or a hardware H.264 encoder name
	Preset       string
	CRF          int
	AudioCodec   string
	AudioBitrate string

	Logger *slog.Logger
}

// Encoder streams raw RGBA frames into ffmpeg. Output goes to a hidden
// partial file next to OutputPath and is renamed into place by Close.
type Encoder struct {
	config Config

	cmd         *exec.Cmd
	stdin       io.WriteCloser
	stderr      *tailBuffer
	partialPath string
	frameSize   int

	mu     sync.Mutex
	frames int
	done   bool
}

// New validates the configuration. Call Start to launch ffmpeg.
func New(config Config) (*Encoder, error) {
	if config.Width <= 0 || config.Height <= 0 {
		return nil, fmt.Errorf("invalid dimensions: %dx%d", config.Width, config.Height)
	}
	if config.Framerate <= 0 {
		return nil, fmt.Errorf("invalid framerate: %d", config.Framerate)
	}
	if config.OutputPath == "" {
		return nil, fmt.Errorf("output path cannot be empty")
	}
	if config.AudioPath == "" {
		return nil, fmt.Errorf("audio path cannot be empty")
	}
	if config.FFmpegPath == "" {
		config.FFmpegPath = "ffmpeg"
	}
	if config.VideoCodec == "" {
		config.VideoCodec = "libx264"
	}
	if config.AudioCodec == "" {
		config.AudioCodec = "aac"
	}
	config.Logger = logging.OrNop(config.Logger)

	return &Encoder{
		config:      config,
		partialPath: PartialPath(config.OutputPath),
		frameSize:   config.Width * config.Height * 4,
	}, nil
}

// PartialPath returns the hidden in-progress path used for output.
func PartialPath(output string) string {
	dir, base := filepath.Split(output)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	return filepath.Join(dir, "."+stem+"-"+uuid.NewString()+ext)
}

// Start launches ffmpeg. The process is killed if ctx is cancelled.
func (e *Encoder) Start(ctx context.Context) error {
	args := e.args()
	e.config.Logger.Debug("starting ffmpeg", "binary", e.config.FFmpegPath, "args", strings.Join(args, " "))

	cmd := exec.CommandContext(ctx, e.config.FFmpegPath, args...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("ffmpeg stdin: %w", err)
	}
	e.stderr = newTailBuffer(8 << 10)
	cmd.Stderr = e.stderr

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start ffmpeg: %w", err)
	}
	e.cmd = cmd
	e.stdin = stdin
	return nil
}

// args builds the ffmpeg command line.
func (e *Encoder) args() []string {
	c := e.config
	args := []string{"-hide_banner", "-loglevel", "error", "-y"}
	args = append(args, hwInputArgs(c.VideoCodec)...)

	// stdin for video in raw rgba format
	args = append(args,
		"-thread_queue_size", "64",
		"-f", "rawvideo",
		"-pix_fmt", "rgba",
		"-s", fmt.Sprintf("%dx%d", c.Width, c.Height),
		"-r", strconv.Itoa(c.Framerate),
		"-i", "pipe:0",
	)
	args = append(args, "-i", c.AudioPath)
	args = append(args, "-map", "0:v:0", "-map", "1:a:0")

	args = append(args, "-c:v", c.VideoCodec)
	args = append(args, videoCodecArgs(c.VideoCodec, c.Preset, c.CRF)...)
	args = append(args, "-r", strconv.Itoa(c.Framerate))

	args = append(args, "-c:a", c.AudioCodec)
	if c.AudioBitrate != "" {
		args = append(args, "-b:a", c.AudioBitrate)
	}
	args = append(args, "-movflags", "+faststart", e.partialPath)
	return args
}

// WriteFrame sends one frame. Frames must arrive in presentation order.
func (e *Encoder) WriteFrame(img *image.RGBA) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.done || e.stdin == nil {
		return ErrClosed
	}

	b := img.Bounds()
	if b.Dx() != e.config.Width || b.Dy() != e.config.Height {
		return fmt.Errorf("frame %d is %dx%d, want %dx%d", e.frames, b.Dx(), b.Dy(), e.config.Width, e.config.Height)
	}

	if img.Stride == b.Dx()*4 {
		if _, err := e.stdin.Write(img.Pix[:e.frameSize]); err != nil {
			return e.writeError(err)
		}
	} else {
		row := b.Dx() * 4
		for y := 0; y < b.Dy(); y++ {
			if _, err := e.stdin.Write(img.Pix[y*img.Stride : y*img.Stride+row]); err != nil {
				return e.writeError(err)
			}
		}
	}
	e.frames++
	return nil
}

func (e *Encoder) writeError(err error) error {
	if tail := e.stderr.String(); tail != "" {
		return fmt.Errorf("write frame %d: %w: %s", e.frames, err, tail)
	}
	return fmt.Errorf("write frame %d: %w", e.frames, err)
}

// Frames returns the number of frames written so far.
func (e *Encoder) Frames() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.frames
}

// OutputSize returns the current size of the partial output file in bytes,
// or 0 before ffmpeg has created it.
func (e *Encoder) OutputSize() int64 {
	info, err := os.Stat(e.partialPath)
	if err != nil {
		return 0
	}
	return info.Size()
}

// Codec returns the video encoder name handed to ffmpeg.
func (e *Encoder) Codec() string {
	return e.config.VideoCodec
}

// Close flushes ffmpeg and moves the finished file into place. On failure
// the partial file is removed and nothing is left at OutputPath.
func (e *Encoder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.done {
		return ErrClosed
	}
	e.done = true
	if e.cmd == nil {
		return ErrClosed
	}

	// we are done. close the stdin pipe and let ffmpeg finish
	e.stdin.Close()
	if err := e.cmd.Wait(); err != nil {
		os.Remove(e.partialPath)
		return ffmpegError(err, e.stderr)
	}

	if err := os.Rename(e.partialPath, e.config.OutputPath); err != nil {
		os.Remove(e.partialPath)
		return fmt.Errorf("move output into place: %w", err)
	}
	e.config.Logger.Debug("encoder finished", "output", e.config.OutputPath, "frames", e.frames)
	return nil
}

// Abort stops ffmpeg and removes the partial file. It is safe to call after
// Close.
func (e *Encoder) Abort() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.done {
		return
	}
	e.done = true
	if e.cmd != nil {
		e.stdin.Close()
		if e.cmd.Process != nil {
			_ = e.cmd.Process.Kill()
		}
		_ = e.cmd.Wait()
	}
	os.Remove(e.partialPath)
}

func ffmpegError(err error, stderr *tailBuffer) error {
	if stderr != nil {
		if tail := stderr.String(); tail != "" {
			return fmt.Errorf("ffmpeg: %w: %s", err, tail)
		}
	}
	return fmt.Errorf("ffmpeg: %w", err)
}

// tailBuffer keeps the last max bytes written to it.
type tailBuffer struct {
	mu  sync.Mutex
	max int
	buf []byte
}

func newTailBuffer(limit int) *tailBuffer {
	return &tailBuffer{max: limit}
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buf = append(t.buf, p...)
	if over := len(t.buf) - t.max; over > 0 {
		t.buf = append(t.buf[:0], t.buf[over:]...)
	}
	return len(p), nil
}

func (t *tailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return strings.TrimSpace(string(t.buf))
}
