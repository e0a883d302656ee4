package audio

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// writeWAV writes interleaved 16-bit PCM samples in [-1, 1].
func writeWAV(t *testing.T, path string, samples []float64, sampleRate, channels int) {
	t.Helper()

	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create wav: %v", err)
	}
	defer f.Close()

	enc := wav.NewEncoder(f, sampleRate, 16, channels, 1)
	data := make([]int, len(samples))
	for i, s := range samples {
		data[i] = int(math.Round(s * 32767))
	}
	buf := &audio.IntBuffer{
		Data:           data,
		Format:         &audio.Format{NumChannels: channels, SampleRate: sampleRate},
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatalf("encode wav: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("close wav encoder: %v", err)
	}
}

// generateSine creates a mono sine wave.
func generateSine(freq, amplitude float64, sampleRate int, seconds float64) []float64 {
	n := int(seconds * float64(sampleRate))
	samples := make([]float64, n)
	for i := range samples {
		samples[i] = amplitude * math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate))
	}
	return samples
}

func sineTrack(t *testing.T, freq, amplitude float64, sampleRate int, seconds float64) *Track {
	t.Helper()
	track, err := NewTrack("sine.wav", generateSine(freq, amplitude, sampleRate, seconds), sampleRate)
	if err != nil {
		t.Fatalf("NewTrack: %v", err)
	}
	return track
}

func tempPath(t *testing.T, name string) string {
	return filepath.Join(t.TempDir(), name)
}
