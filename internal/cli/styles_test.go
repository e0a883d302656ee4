package cli

import (
	"strings"
	"testing"
	"time"
)

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, "0s"},
		{250 * time.Millisecond, "250ms"},
		{time.Second, "1.0s"},
		{90500 * time.Millisecond, "90.5s"},
	}
	for _, tt := range tests {
		if got := FormatDuration(tt.in); got != tt.want {
			t.Errorf("FormatDuration(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{-1, "0 B"},
		{0, "0 B"},
		{512, "512 B"},
		{1536, "1.5 KiB"},
		{5 * 1024 * 1024, "5.0 MiB"},
	}
	for _, tt := range tests {
		if got := FormatBytes(tt.in); got != tt.want {
			t.Errorf("FormatBytes(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatSpeed(t *testing.T) {
	if got := FormatSpeed(2.25); got != "2.2x realtime" && got != "2.3x realtime" {
		t.Errorf("FormatSpeed(2.25) = %q", got)
	}
}

func TestFormatSummary(t *testing.T) {
	s := Summary{
		Video:     "out.mp4",
		Thumbnail: "out_thumbnail.jpg",
		Codec:     "libx264",
		Frames:    300,
		Duration:  10 * time.Second,
		Elapsed:   5 * time.Second,
		FileSize:  2048,
	}
	out := FormatSummary(s)

	for _, want := range []string{"out.mp4", "out_thumbnail.jpg", "libx264", "300 (10.0s)", "2.0x realtime", "2.0 KiB"} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "Preview") {
		t.Error("preview row shown without a preview clip")
	}

	s.Preview = "out_preview.mp4"
	if !strings.Contains(FormatSummary(s), "out_preview.mp4") {
		t.Error("preview row missing")
	}
}
