package audio

import (
	"bufio"
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os/exec"
	"strconv"
	"strings"
)

// FFmpegDecoder implements AudioDecoder by piping the file through an ffmpeg
// subprocess. It handles every container ffmpeg can read, resampled to a
// fixed rate and downmixed to mono f64le.
type FFmpegDecoder struct {
	cmd        *exec.Cmd
	stdout     io.ReadCloser
	reader     *bufio.Reader
	stderr     bytes.Buffer
	sampleRate int
	done       bool
}

// NewFFmpegDecoder starts ffmpeg for filename.
func NewFFmpegDecoder(ctx context.Context, filename, ffmpegPath string, sampleRate int) (*FFmpegDecoder, error) {
	ffmpegPath = strings.TrimSpace(ffmpegPath)
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if sampleRate <= 0 {
		sampleRate = 48000
	}

	cmd := exec.CommandContext(ctx, ffmpegPath,
		"-hide_banner",
		"-loglevel", "error",
		"-i", filename,
		"-vn",
		"-f", "f64le",
		"-acodec", "pcm_f64le",
		"-ac", "1",
		"-ar", strconv.Itoa(sampleRate),
		"pipe:1",
	)

	d := &FFmpegDecoder{cmd: cmd, sampleRate: sampleRate}
	cmd.Stderr = &d.stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start ffmpeg decoder: %w", err)
	}
	d.stdout = stdout
	d.reader = bufio.NewReaderSize(stdout, 1<<16)
	return d, nil
}

// ReadChunk reads the next chunk of samples
func (d *FFmpegDecoder) ReadChunk(numSamples int) ([]float64, error) {
	if d.done {
		return nil, io.EOF
	}

	buf := make([]byte, numSamples*8)
	n, err := io.ReadFull(d.reader, buf)
	n -= n % 8

	samples := make([]float64, n/8)
	for i := range samples {
		samples[i] = math.Float64frombits(binary.LittleEndian.Uint64(buf[i*8:]))
	}

	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			d.done = true
			if waitErr := d.wait(); waitErr != nil {
				return nil, waitErr
			}
			if len(samples) == 0 {
				return nil, io.EOF
			}
			return samples, nil
		}
		return nil, fmt.Errorf("read ffmpeg output: %w", err)
	}
	return samples, nil
}

func (d *FFmpegDecoder) wait() error {
	if d.cmd == nil || d.cmd.Process == nil {
		return nil
	}
	err := d.cmd.Wait()
	d.cmd = nil
	if err != nil {
		return fmt.Errorf("ffmpeg decode: %w: %s", err, strings.TrimSpace(d.stderr.String()))
	}
	return nil
}

// SampleRate returns the sample rate ffmpeg resamples to
func (d *FFmpegDecoder) SampleRate() int {
	return d.sampleRate
}

// NumSamples is unknown until the stream ends
func (d *FFmpegDecoder) NumSamples() int64 {
	return 0
}

// NumChannels reports the downmixed channel count
func (d *FFmpegDecoder) NumChannels() int {
	return 1
}

// Close stops ffmpeg if it is still running
func (d *FFmpegDecoder) Close() error {
	if d.cmd == nil || d.cmd.Process == nil {
		return nil
	}
	if d.stdout != nil {
		d.stdout.Close()
	}
	_ = d.cmd.Process.Kill()
	_ = d.cmd.Wait()
	d.cmd = nil
	return nil
}
