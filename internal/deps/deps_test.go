package deps

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeStub(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	script := []byte("#!/bin/sh\nexit 0\n")
	if err := os.WriteFile(path, script, 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	return path
}

func TestCheckBinaries(t *testing.T) {
	present := writeStub(t, t.TempDir(), "present")
	reqs := []Requirement{
		{Name: "Present", Command: present},
		{Name: "Missing", Command: "clearly-not-present-binary"},
		{Name: "Unset", Command: "  "},
	}

	results := CheckBinaries(reqs)
	if len(results) != len(reqs) {
		t.Fatalf("expected %d results, got %d", len(reqs), len(results))
	}
	if !results[0].Available {
		t.Fatalf("expected first requirement to be available, got %#v", results[0])
	}
	if results[0].Detail != "" {
		t.Fatalf("unexpected detail for available dependency: %s", results[0].Detail)
	}
	if results[1].Available || results[1].Detail == "" {
		t.Fatalf("expected missing binary to be unavailable with detail, got %#v", results[1])
	}
	if results[2].Detail != "command not configured" {
		t.Fatalf("unexpected detail for unset command: %q", results[2].Detail)
	}
}

func TestRequireIgnoresOptional(t *testing.T) {
	ffmpeg := writeStub(t, t.TempDir(), "ffmpeg")

	if err := Require(Media(ffmpeg, "clearly-not-present-ffprobe")); err != nil {
		t.Fatalf("missing optional ffprobe should not fail: %v", err)
	}

	err := Require(Media("clearly-not-present-ffmpeg", "clearly-not-present-ffprobe"))
	if err == nil {
		t.Fatal("expected error for missing ffmpeg")
	}
	if !strings.Contains(err.Error(), "FFmpeg") || strings.Contains(err.Error(), "FFprobe") {
		t.Fatalf("unexpected error: %v", err)
	}
}
