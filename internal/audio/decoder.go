package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// AudioDecoder defines the interface for all audio format decoders
type AudioDecoder interface {
	// ReadChunk reads the next chunk of mono samples as float64.
	// Returns io.EOF when the stream is exhausted.
	ReadChunk(numSamples int) ([]float64, error)

	// SampleRate returns the audio sample rate in Hz
	SampleRate() int

	// NumSamples returns the total number of mono samples.
	// Returns 0 if the length is unknown.
	NumSamples() int64

	// NumChannels returns the number of source channels (1=mono, 2=stereo)
	NumChannels() int

	// Close closes the decoder and releases resources
	Close() error
}

// ErrEmptyTrack is returned when a file decodes to zero samples.
var ErrEmptyTrack = errors.New("audio: no samples decoded")

// DecodeOptions controls how a track is opened.
type DecodeOptions struct {
	// FFmpegPath is used for containers without a native decoder.
	FFmpegPath string
	// FallbackSampleRate is the rate ffmpeg resamples to.
	FallbackSampleRate int
}

// chunkSize is the number of mono samples requested per ReadChunk call.
const chunkSize = 1 << 14

// Container identifies a source file family by its leading bytes.
type Container int

const (
	ContainerUnknown Container = iota
	ContainerWAV
	ContainerMP3
	ContainerFLAC
	ContainerMP4
)

func (c Container) String() string {
	switch c {
	case ContainerWAV:
		return "wav"
	case ContainerMP3:
		return "mp3"
	case ContainerFLAC:
		return "flac"
	case ContainerMP4:
		return "mp4"
	default:
		return "unknown"
	}
}

// Sniff reads the file signature. MP3 files carrying no ID3 header are
// recognised by extension and frame sync.
func Sniff(path string) (Container, error) {
	f, err := os.Open(path)
	if err != nil {
		return ContainerUnknown, err
	}
	defer f.Close()

	head := make([]byte, 12)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return ContainerUnknown, err
	}
	return sniffBytes(head[:n], path), nil
}

func sniffBytes(head []byte, path string) Container {
	switch {
	case len(head) >= 12 && bytes.Equal(head[:4], []byte("RIFF")) && bytes.Equal(head[8:12], []byte("WAVE")):
		return ContainerWAV
	case len(head) >= 4 && bytes.Equal(head[:4], []byte("fLaC")):
		return ContainerFLAC
	case len(head) >= 8 && bytes.Equal(head[4:8], []byte("ftyp")):
		return ContainerMP4
	case len(head) >= 3 && bytes.Equal(head[:3], []byte("ID3")):
		// ID3 tags are also used by some WAV/AIFF writers, but a file that
		// starts with one is an MP3 in practice.
		return ContainerMP3
	case len(head) >= 2 && head[0] == 0xFF && head[1]&0xE0 == 0xE0 &&
		strings.EqualFold(filepath.Ext(path), ".mp3"):
		return ContainerMP3
	}
	return ContainerUnknown
}

// NewDecoder opens the most suitable decoder for path.
func NewDecoder(ctx context.Context, path string, opts DecodeOptions) (AudioDecoder, error) {
	container, err := Sniff(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open audio: %w", err)
	}

	switch container {
	case ContainerWAV:
		return NewWAVDecoder(path)
	case ContainerMP3:
		return NewMP3Decoder(path)
	case ContainerFLAC:
		return NewFLACDecoder(path)
	default:
		return NewFFmpegDecoder(ctx, path, opts.FFmpegPath, opts.FallbackSampleRate)
	}
}

// Decode reads the whole file into a mono Track. The decoder is closed before
// returning, so the Track holds no file handles.
func Decode(ctx context.Context, path string, opts DecodeOptions) (*Track, error) {
	dec, err := NewDecoder(ctx, path, opts)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	capHint := dec.NumSamples()
	if capHint <= 0 || capHint > 1<<31 {
		capHint = chunkSize
	}
	samples := make([]float64, 0, capHint)

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		chunk, err := dec.ReadChunk(chunkSize)
		samples = append(samples, chunk...)
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
		}
	}

	if len(samples) == 0 {
		return nil, fmt.Errorf("decode %s: %w", filepath.Base(path), ErrEmptyTrack)
	}

	return NewTrack(path, samples, dec.SampleRate())
}
