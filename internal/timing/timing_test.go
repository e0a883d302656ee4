package timing

import (
	"errors"
	"math"
	"testing"
)

func mustModel(t *testing.T, bpm float64, beatsPerLoop int) Model {
	t.Helper()
	m, err := New(bpm, beatsPerLoop, 8)
	if err != nil {
		t.Fatalf("New(%g, %d): %v", bpm, beatsPerLoop, err)
	}
	return m
}

func TestFadeInDurationAcrossTempos(t *testing.T) {
	prev := math.Inf(1)
	for bpm := 60.0; bpm <= 200; bpm += 0.5 {
		m := mustModel(t, bpm, 8)
		got := m.FadeInDuration()
		want := 8 * 60 / bpm
		if math.Abs(got-want) > 1e-12 {
			t.Fatalf("bpm %.1f: FadeInDuration = %f, want %f", bpm, got, want)
		}
		if got >= prev {
			t.Fatalf("bpm %.1f: fade duration %f not strictly decreasing (previous %f)", bpm, got, prev)
		}
		prev = got
	}
}

func TestLoopCycleDuration(t *testing.T) {
	m := mustModel(t, 128, 8)
	if got := m.LoopCycleDuration(); math.Abs(got-3.75) > 1e-12 {
		t.Errorf("LoopCycleDuration(128, 8) = %f, want 3.75", got)
	}

	m = mustModel(t, 130, 4)
	if got, want := m.LoopCycleDuration(), 4*60/130.0; math.Abs(got-want) > 1e-12 {
		t.Errorf("LoopCycleDuration(130, 4) = %f, want %f", got, want)
	}
}

func TestFadeProgress(t *testing.T) {
	m := mustModel(t, 120, 8) // fade lasts 4s
	testCases := []struct {
		t, want float64
	}{
		{-0.2, 0},
		{0, 0},
		{1, 0.25},
		{2, 0.5},
		{4, 1},
		{100, 1},
	}
	for _, tc := range testCases {
		if got := m.FadeProgress(tc.t); math.Abs(got-tc.want) > 1e-12 {
			t.Errorf("FadeProgress(%g) = %f, want %f", tc.t, got, tc.want)
		}
	}
}

func TestOverlayFrameIndexInRange(t *testing.T) {
	m := mustModel(t, 137, 8)
	for _, count := range []int{1, 2, 7, 24, 100} {
		for ti := 0; ti < 3000; ti++ {
			tm := float64(ti) / 30
			idx, ok := m.OverlayFrameIndex(tm, count)
			if !ok {
				t.Fatalf("count %d: ok = false", count)
			}
			if idx < 0 || idx >= count {
				t.Fatalf("t=%.3f count=%d: index %d out of range", tm, count, idx)
			}
		}
	}
}

func TestOverlayFrameIndexLoops(t *testing.T) {
	m := mustModel(t, 120, 8) // 4s loop
	testCases := []struct {
		t    float64
		want int
	}{
		{0, 0},
		{1, 2},
		{3.99, 7},
		{4, 0},
		{5, 2},
	}
	for _, tc := range testCases {
		idx, _ := m.OverlayFrameIndex(tc.t, 8)
		if idx != tc.want {
			t.Errorf("OverlayFrameIndex(%g, 8) = %d, want %d", tc.t, idx, tc.want)
		}
	}
}

func TestOverlayFrameIndexNoFrames(t *testing.T) {
	m := mustModel(t, 128, 8)
	if _, ok := m.OverlayFrameIndex(1.5, 0); ok {
		t.Error("expected ok = false with zero frames")
	}
}

func TestNewRejectsInvalidTempo(t *testing.T) {
	cases := []struct {
		bpm   float64
		loop  int
		beats float64
	}{
		{0, 8, 8},
		{-120, 8, 8},
		{math.NaN(), 8, 8},
		{math.Inf(1), 8, 8},
		{120, 0, 8},
		{120, 8, 0},
	}
	for _, c := range cases {
		if _, err := New(c.bpm, c.loop, c.beats); !errors.Is(err, ErrInvalidTempo) {
			t.Errorf("New(%g, %d, %g) = %v, want ErrInvalidTempo", c.bpm, c.loop, c.beats, err)
		}
	}
}
