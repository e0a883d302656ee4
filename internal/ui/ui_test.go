package ui

import (
	"errors"
	"image"
	"image/color"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

func TestModelPhases(t *testing.T) {
	m := NewModel(true, 30)
	if m.phase != PhaseAnalysis {
		t.Fatalf("initial phase = %v", m.phase)
	}

	m.Update(AnalysisProgress{Frame: 30, TotalFrames: 300, Amplitude: 0.4})
	if !strings.Contains(m.View(), "Analysing Audio") {
		t.Error("analysis view should name the phase")
	}

	m.Update(AnalysisComplete{PeakMagnitude: 1, RMSLevel: 0.5, DynamicRange: 6, Duration: 10 * time.Second})
	if m.phase != PhaseRendering {
		t.Fatalf("phase after analysis = %v", m.phase)
	}
	if len(m.levels) != 0 {
		t.Error("level history should reset between phases")
	}
	if m.audioProfile.PeakLevel != 0 {
		t.Errorf("peak of 1.0 should be 0 dB, got %g", m.audioProfile.PeakLevel)
	}

	m.Update(RenderProgress{Frame: 150, TotalFrames: 300, Amplitude: 0.9, VideoCodec: "libx264"})
	view := m.View()
	if !strings.Contains(view, "Frame 150 of 300") || !strings.Contains(view, "libx264") {
		t.Errorf("render view missing progress details:\n%s", view)
	}

	m.Update(RenderProgress{Frame: 300, TotalFrames: 300})
	if m.phase != PhaseFinishing {
		t.Errorf("phase after last frame = %v", m.phase)
	}

	_, cmd := m.Update(RenderComplete{
		OutputFile:    "out.mp4",
		ThumbnailFile: "out_thumbnail.jpg",
		TotalFrames:   300,
		TotalTime:     5 * time.Second,
		RenderTime:    3 * time.Second,
		Warnings:      []string{"overlay unavailable"},
	})
	if m.phase != PhaseComplete || cmd == nil {
		t.Fatal("completion should switch phase and schedule quit")
	}
	summary := m.CompletionSummary()
	for _, want := range []string{"out.mp4", "out_thumbnail.jpg", "300 frames at 30 fps", "overlay unavailable"} {
		if !strings.Contains(summary, want) {
			t.Errorf("summary missing %q", want)
		}
	}
}

func TestModelInterruptAndFailure(t *testing.T) {
	m := NewModel(true, 30)
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	if cmd == nil || !m.Interrupted() {
		t.Error("ctrl+c should quit and mark the model interrupted")
	}
	if m.CompletionSummary() != "" {
		t.Error("incomplete render has no summary")
	}

	m = NewModel(true, 30)
	_, cmd = m.Update(RenderFailed{Err: errors.New("boom")})
	if cmd == nil || m.Interrupted() {
		t.Error("failure should quit without marking an interrupt")
	}
}

func TestLevelHistoryIsBounded(t *testing.T) {
	m := NewModel(true, 30)
	for i := 0; i < levelHistory*2; i++ {
		m.pushLevel(float64(i))
	}
	if len(m.levels) != levelHistory {
		t.Fatalf("history length = %d, want %d", len(m.levels), levelHistory)
	}
	if m.levels[levelHistory-1] != float64(levelHistory*2-1) {
		t.Errorf("newest level = %g", m.levels[levelHistory-1])
	}
}

func TestRenderLevels(t *testing.T) {
	if renderLevels(nil, 10) != "" {
		t.Error("empty history should render nothing")
	}
	out := renderLevels([]float64{0, 0.25, 0.75, 1, 2}, 4)
	rows := strings.Split(out, "\n")
	if len(rows) != 2 {
		t.Fatalf("expected two rows, got %d", len(rows))
	}
	if !strings.Contains(rows[1], "█") {
		t.Error("loud samples should fill the bottom row")
	}
}

func TestDownsampleFrame(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 128, 36))
	for y := 0; y < 36; y++ {
		for x := 0; x < 128; x++ {
			if x >= 64 {
				img.Set(x, y, color.RGBA{255, 255, 255, 255})
			} else {
				img.Set(x, y, color.RGBA{0, 0, 0, 255})
			}
		}
	}

	preview := DownsampleFrame(img, DefaultPreviewConfig())
	if len(preview) != 18 || len(preview[0]) != 64 {
		t.Fatalf("preview size = %dx%d", len(preview[0]), len(preview))
	}
	if preview[0][0] != (color.RGBA{0, 0, 0, 255}) {
		t.Errorf("left cell = %v, want black", preview[0][0])
	}
	if preview[17][63] != (color.RGBA{255, 255, 255, 255}) {
		t.Errorf("right cell = %v, want white", preview[17][63])
	}

	out := RenderPreview(preview)
	if strings.Count(out, "\n") != 18+3 {
		t.Errorf("unexpected preview line count %d", strings.Count(out, "\n"))
	}
	// Each row switches colour once, so it carries exactly two escapes.
	row := strings.Split(out, "\n")[2]
	if n := strings.Count(row, "\x1b[48;2;"); n != 2 {
		t.Errorf("row has %d colour escapes, want 2", n)
	}
}
