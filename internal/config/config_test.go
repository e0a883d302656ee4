package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseHexColor(t *testing.T) {
	testCases := []struct {
		in      string
		r, g, b uint8
		wantErr bool
	}{
		{in: "#FF0000", r: 0xFF},
		{in: "FF0000", r: 0xFF},
		{in: "#00ff80", g: 0xFF, b: 0x80},
		{in: "#FFF", wantErr: true},
		{in: "#FF00001", wantErr: true},
		{in: "#GG0000", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tc := range testCases {
		r, g, b, err := ParseHexColor(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("ParseHexColor(%q) accepted an invalid colour", tc.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseHexColor(%q) returned error: %v", tc.in, err)
			continue
		}
		if r != tc.r || g != tc.g || b != tc.b {
			t.Errorf("ParseHexColor(%q) = (%d, %d, %d), want (%d, %d, %d)", tc.in, r, g, b, tc.r, tc.g, tc.b)
		}
	}
}

func TestValidateCenterLineColor(t *testing.T) {
	for _, colour := range []string{"red", "#FF00", "#12345G"} {
		cfg := Default()
		cfg.Analysis.CenterLineColor = colour
		err := cfg.Validate()
		if err == nil {
			t.Errorf("Validate accepted center_line_color %q", colour)
			continue
		}
		if !strings.Contains(err.Error(), "center_line_color") {
			t.Errorf("error %q does not name center_line_color", err)
		}
	}

	cfg := Default()
	cfg.Analysis.CenterLineColor = "00FF00"
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate rejected a colour without '#': %v", err)
	}
}

func TestDefaultMatchesCanvasConstants(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}

	if cfg.Video.Width != 1920 || cfg.Video.Height != 1080 || cfg.Video.FPS != 30 {
		t.Errorf("canvas = %dx%d@%d, want 1920x1080@30", cfg.Video.Width, cfg.Video.Height, cfg.Video.FPS)
	}
	if cfg.Layout.CoverSize != 1080 {
		t.Errorf("cover size = %d, want 1080", cfg.Layout.CoverSize)
	}
	if cfg.Layout.PanelWidth != 450 || cfg.Layout.WaveformHeight != 250 || cfg.Layout.SpectrumHeight != 250 {
		t.Errorf("panel = %d wide, %d/%d high, want 450 wide, 250/250 high",
			cfg.Layout.PanelWidth, cfg.Layout.WaveformHeight, cfg.Layout.SpectrumHeight)
	}
	if cfg.Layout.TextWidth != 450 || cfg.Layout.TextHeight != 300 {
		t.Errorf("text block = %dx%d, want 450x300", cfg.Layout.TextWidth, cfg.Layout.TextHeight)
	}
	if cfg.Timing.IntroHold != 0.2 || cfg.Timing.FadeBeats != 8 || cfg.Layout.PanelGap != 20 {
		t.Errorf("intro hold %g, fade beats %g, gap %d; want 0.2, 8, 20",
			cfg.Timing.IntroHold, cfg.Timing.FadeBeats, cfg.Layout.PanelGap)
	}
	if cfg.Encoder.ThumbnailQuality != 95 {
		t.Errorf("thumbnail quality = %d, want 95", cfg.Encoder.ThumbnailQuality)
	}
}

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\") returned error: %v", err)
	}
	if cfg.Timing.BPM != Default().Timing.BPM {
		t.Errorf("BPM = %g, want default %g", cfg.Timing.BPM, Default().Timing.BPM)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[timing]
bpm = 140.0

[effects]
shake_text = 0.05

[encoder]
workers = 3
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Timing.BPM != 140 {
		t.Errorf("BPM = %g, want 140", cfg.Timing.BPM)
	}
	if cfg.Effects.ShakeText != 0.05 {
		t.Errorf("ShakeText = %g, want 0.05", cfg.Effects.ShakeText)
	}
	if cfg.WorkerCount() != 3 {
		t.Errorf("WorkerCount() = %d, want 3", cfg.WorkerCount())
	}
	// Untouched keys keep their defaults
	if cfg.Effects.ShakeMain != 0.08 {
		t.Errorf("ShakeMain = %g, want default 0.08", cfg.Effects.ShakeMain)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	testCases := []struct {
		name    string
		content string
		wantErr string
	}{
		{"zero bpm", "[timing]\nbpm = 0.0\n", "timing.bpm"},
		{"zero beats per loop", "[timing]\nbeats_per_loop = 0\n", "timing.beats_per_loop"},
		{"alpha above one", "[analysis]\nsmoothing_alpha = 1.5\n", "smoothing_alpha"},
		{"odd width", "[video]\nwidth = 1921\n", "even"},
		{"bad colour", "[analysis]\ncenter_line_color = \"red\"\n", "center_line_color"},
		{"unknown hwaccel", "[encoder]\nhwaccel = \"cuda\"\n", "hwaccel"},
		{"unknown key", "[timing]\ntempo = 120\n", "parse config"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			if err := os.WriteFile(path, []byte(tc.content), 0o644); err != nil {
				t.Fatalf("write config: %v", err)
			}
			_, err := Load(path)
			if err == nil {
				t.Fatalf("Load accepted %q", tc.content)
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("error %q does not mention %q", err, tc.wantErr)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestSampleConfigParses(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.toml")
	if err := os.WriteFile(path, []byte(SampleConfig()), 0o644); err != nil {
		t.Fatalf("write sample: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("sample config does not load: %v", err)
	}
	def := Default()
	if cfg.Layout != def.Layout || cfg.Effects != def.Effects || cfg.Timing != def.Timing {
		t.Error("sample config drifted from Default()")
	}
}

func TestUploadRetryPolicy(t *testing.T) {
	policy := Default().UploadRetry

	testCases := []struct {
		status  int
		attempt int
		want    bool
	}{
		{500, 0, true},
		{502, 1, true},
		{503, 2, true},
		{504, 3, false}, // retries exhausted
		{400, 0, false},
		{404, 0, false},
		{501, 0, false},
	}

	for _, tc := range testCases {
		if got := policy.ShouldRetry(tc.status, tc.attempt); got != tc.want {
			t.Errorf("ShouldRetry(%d, %d) = %v, want %v", tc.status, tc.attempt, got, tc.want)
		}
	}
}
