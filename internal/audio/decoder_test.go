package audio

import (
	"context"
	"errors"
	"math"
	"os"
	"testing"
)

func TestDecodeWAVMono(t *testing.T) {
	path := tempPath(t, "mono.wav")
	samples := generateSine(440, 0.5, 48000, 1.0)
	writeWAV(t, path, samples, 48000, 1)

	track, err := Decode(context.Background(), path, DecodeOptions{})
	if err != nil {
		t.Fatalf("Decode returned error: %v", err)
	}

	if track.SampleRate != 48000 {
		t.Errorf("SampleRate = %d, want 48000", track.SampleRate)
	}
	if len(track.Samples) != len(samples) {
		t.Fatalf("decoded %d samples, want %d", len(track.Samples), len(samples))
	}
	for i := 0; i < len(samples); i += 997 {
		if math.Abs(track.Samples[i]-samples[i]) > 1e-3 {
			t.Fatalf("sample %d = %.5f, want %.5f", i, track.Samples[i], samples[i])
		}
	}
	if track.Path != path {
		t.Errorf("Path = %q, want %q", track.Path, path)
	}
	t.Logf("Decoded %.2fs of audio", track.Duration())
}

func TestDecodeWAVStereoDownmix(t *testing.T) {
	path := tempPath(t, "stereo.wav")
	// Left at +0.5, right at -0.25: mono average is 0.125
	frames := 4800
	interleaved := make([]float64, frames*2)
	for i := 0; i < frames; i++ {
		interleaved[2*i] = 0.5
		interleaved[2*i+1] = -0.25
	}
	writeWAV(t, path, interleaved, 48000, 2)

	dec, err := NewWAVDecoder(path)
	if err != nil {
		t.Fatalf("NewWAVDecoder: %v", err)
	}
	if dec.NumChannels() != 2 {
		t.Errorf("NumChannels = %d, want 2", dec.NumChannels())
	}
	if dec.NumSamples() != int64(frames) {
		t.Errorf("NumSamples = %d, want %d", dec.NumSamples(), frames)
	}
	dec.Close()

	track, err := Decode(context.Background(), path, DecodeOptions{})
	if err != nil {
		t.Fatalf("Decode returned error: %v", err)
	}
	if len(track.Samples) != frames {
		t.Fatalf("decoded %d mono samples, want %d", len(track.Samples), frames)
	}
	if math.Abs(track.Samples[100]-0.125) > 1e-3 {
		t.Errorf("downmixed sample = %.5f, want 0.125", track.Samples[100])
	}
}

func TestDecodeEmptyWAV(t *testing.T) {
	path := tempPath(t, "empty.wav")
	writeWAV(t, path, nil, 48000, 1)

	_, err := Decode(context.Background(), path, DecodeOptions{})
	if err == nil {
		t.Fatal("expected error for empty track")
	}
	if !errors.Is(err, ErrEmptyTrack) {
		// Some encoders reject a zero-length data chunk as invalid instead
		t.Logf("empty track rejected with: %v", err)
	}
}

func TestDecodeMissingFile(t *testing.T) {
	if _, err := Decode(context.Background(), "nonexistent.wav", DecodeOptions{}); err == nil {
		t.Error("Expected error for nonexistent file, got nil")
	}
}

func TestDecodeCancelled(t *testing.T) {
	path := tempPath(t, "cancel.wav")
	writeWAV(t, path, generateSine(440, 0.5, 48000, 1.0), 48000, 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Decode(ctx, path, DecodeOptions{}); !errors.Is(err, context.Canceled) {
		t.Errorf("Decode with cancelled context = %v, want context.Canceled", err)
	}
}

func TestSniffSignatures(t *testing.T) {
	testCases := []struct {
		name string
		file string
		head []byte
		want Container
	}{
		{"wav", "a.wav", []byte("RIFF\x00\x00\x00\x00WAVE"), ContainerWAV},
		{"flac", "a.flac", []byte("fLaC\x00\x00\x00\x22"), ContainerFLAC},
		{"id3", "a.bin", []byte("ID3\x03\x00\x00\x00\x00\x00\x00"), ContainerMP3},
		{"mpeg sync with mp3 extension", "a.mp3", []byte{0xFF, 0xFB, 0x90, 0x64}, ContainerMP3},
		{"mpeg sync elsewhere", "a.aac", []byte{0xFF, 0xF1, 0x50, 0x80}, ContainerUnknown},
		{"m4a", "a.m4a", []byte("\x00\x00\x00\x20ftypM4A "), ContainerMP4},
		{"ogg", "a.ogg", []byte("OggS\x00\x02"), ContainerUnknown},
		{"short", "a.wav", []byte("RI"), ContainerUnknown},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			path := tempPath(t, tc.file)
			if err := os.WriteFile(path, tc.head, 0o644); err != nil {
				t.Fatalf("write: %v", err)
			}
			got, err := Sniff(path)
			if err != nil {
				t.Fatalf("Sniff: %v", err)
			}
			if got != tc.want {
				t.Errorf("Sniff = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestTrackFrameCount(t *testing.T) {
	testCases := []struct {
		samples    int
		sampleRate int
		want       int
	}{
		{480000, 48000, 300}, // 10s exactly
		{480001, 48000, 301}, // one sample over rounds up
		{1, 48000, 1},
		{0, 48000, 0},
		{441000, 44100, 300},
		{22050, 44100, 15}, // 0.5s
		{1000, 44100, 1},   // 22.7ms -> 0.68 frames
	}

	for _, tc := range testCases {
		track, err := NewTrack("", make([]float64, tc.samples), tc.sampleRate)
		if err != nil {
			t.Fatalf("NewTrack: %v", err)
		}
		got := track.FrameCount(30)
		want := int(math.Ceil(track.Duration() * 30))
		if got != tc.want || got != want {
			t.Errorf("FrameCount(%d samples @ %d) = %d, want %d", tc.samples, tc.sampleRate, got, tc.want)
		}
	}
}

func TestTrackWindowClips(t *testing.T) {
	track, _ := NewTrack("", []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, 10)

	if got := track.Window(-1, 0.3); len(got) != 3 || got[0] != 1 {
		t.Errorf("Window(-1, 0.3) = %v, want [1 2 3]", got)
	}
	if got := track.Window(0.8, 5); len(got) != 2 || got[1] != 10 {
		t.Errorf("Window(0.8, 5) = %v, want [9 10]", got)
	}
	if got := track.Window(2, 3); got != nil {
		t.Errorf("Window past end = %v, want nil", got)
	}
}

func TestNewTrackRejectsBadRate(t *testing.T) {
	if _, err := NewTrack("", []float64{0}, 0); err == nil {
		t.Error("expected error for zero sample rate")
	}
}
