package audio

import (
	"fmt"
	"io"
	"os"

	"github.com/mewkiz/flac"
)

// FLACDecoder implements AudioDecoder for FLAC files
type FLACDecoder struct {
	stream        *flac.Stream
	file          *os.File
	sampleRate    int
	numSamples    int64
	numChannels   int
	bitsPerSample int

	// Samples decoded from the last frame that did not fit the previous chunk
	pending []float64
}

// NewFLACDecoder creates a new FLAC decoder
func NewFLACDecoder(filename string) (*FLACDecoder, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}

	// Parse FLAC stream - reads signature and StreamInfo block
	stream, err := flac.New(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create FLAC decoder: %w", err)
	}

	info := stream.Info
	if info == nil || info.SampleRate == 0 || info.NChannels == 0 {
		stream.Close()
		f.Close()
		return nil, fmt.Errorf("FLAC stream info missing: %s", filename)
	}

	return &FLACDecoder{
		stream:        stream,
		file:          f,
		sampleRate:    int(info.SampleRate),
		numSamples:    int64(info.NSamples),
		numChannels:   int(info.NChannels),
		bitsPerSample: int(info.BitsPerSample),
	}, nil
}

// ReadChunk reads the next chunk of samples
func (d *FLACDecoder) ReadChunk(numSamples int) ([]float64, error) {
	samples := make([]float64, 0, numSamples)

	if len(d.pending) > 0 {
		n := min(numSamples, len(d.pending))
		samples = append(samples, d.pending[:n]...)
		d.pending = d.pending[n:]
	}

	// Read FLAC frames until we have enough samples
	for len(samples) < numSamples {
		frame, err := d.stream.ParseNext()
		if err != nil {
			if err == io.EOF {
				if len(samples) == 0 {
					return nil, io.EOF
				}
				return samples, nil
			}
			return nil, fmt.Errorf("failed to parse FLAC frame: %w", err)
		}

		// FLAC frames contain one subframe per channel; downmix by averaging
		bits := int(frame.BitsPerSample)
		if bits == 0 {
			bits = d.bitsPerSample
		}
		maxVal := float64(int64(1) << (bits - 1))
		frameSamples := len(frame.Subframes[0].Samples)
		channels := float64(len(frame.Subframes))

		for i := 0; i < frameSamples; i++ {
			var sum int64
			for _, subframe := range frame.Subframes {
				sum += int64(subframe.Samples[i])
			}
			v := float64(sum) / channels / maxVal
			if len(samples) < numSamples {
				samples = append(samples, v)
			} else {
				d.pending = append(d.pending, v)
			}
		}
	}

	return samples, nil
}

// SampleRate returns the sample rate
func (d *FLACDecoder) SampleRate() int {
	return d.sampleRate
}

// NumSamples returns the total number of samples
func (d *FLACDecoder) NumSamples() int64 {
	return d.numSamples
}

// NumChannels returns the number of audio channels
func (d *FLACDecoder) NumChannels() int {
	return d.numChannels
}

// Close closes the decoder and releases resources
func (d *FLACDecoder) Close() error {
	if d.stream != nil {
		d.stream.Close()
	}
	if d.file != nil {
		return d.file.Close()
	}
	return nil
}
