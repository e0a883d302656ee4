package audio

import (
	"fmt"
	"time"
)

// Track is a decoded mono sample buffer. It is immutable once built and safe
// for concurrent readers.
type Track struct {
	// Path is the source file, reopened by the encoder for muxing.
	Path       string
	Samples    []float64
	SampleRate int
}

// NewTrack wraps decoded samples.
func NewTrack(path string, samples []float64, sampleRate int) (*Track, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate %d", sampleRate)
	}
	return &Track{Path: path, Samples: samples, SampleRate: sampleRate}, nil
}

// Duration returns the track length in seconds.
func (t *Track) Duration() float64 {
	return float64(len(t.Samples)) / float64(t.SampleRate)
}

// DurationTime returns the track length as a time.Duration.
func (t *Track) DurationTime() time.Duration {
	return time.Duration(t.Duration() * float64(time.Second))
}

// FrameCount returns ceil(duration * fps), computed exactly from the sample
// count.
func (t *Track) FrameCount(fps int) int {
	n := int64(len(t.Samples))
	sr := int64(t.SampleRate)
	return int((n*int64(fps) + sr - 1) / sr)
}

// Window returns the samples in [start, end) seconds, clipped to the track.
// The result aliases the track buffer and must not be modified.
func (t *Track) Window(start, end float64) []float64 {
	lo := int(start * float64(t.SampleRate))
	hi := int(end * float64(t.SampleRate))
	return t.slice(lo, hi)
}

func (t *Track) slice(lo, hi int) []float64 {
	if lo < 0 {
		lo = 0
	}
	if hi > len(t.Samples) {
		hi = len(t.Samples)
	}
	if lo >= hi {
		return nil
	}
	return t.Samples[lo:hi]
}
