// Package timing converts tempo into the beat-locked durations that drive the
// fade-in reveal and the overlay animation loop.
package timing

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidTempo is returned for non-positive or non-finite tempo values.
var ErrInvalidTempo = errors.New("timing: invalid tempo")

// Model is immutable for the duration of a render.
type Model struct {
	bpm          float64
	beatsPerLoop int
	fadeBeats    float64
}

// New builds a Model. fadeBeats is the length of the reveal in beats.
func New(bpm float64, beatsPerLoop int, fadeBeats float64) (Model, error) {
	if bpm <= 0 || math.IsNaN(bpm) || math.IsInf(bpm, 0) {
		return Model{}, fmt.Errorf("%w: bpm %g", ErrInvalidTempo, bpm)
	}
	if beatsPerLoop <= 0 {
		return Model{}, fmt.Errorf("%w: beats per loop %d", ErrInvalidTempo, beatsPerLoop)
	}
	if fadeBeats <= 0 || math.IsNaN(fadeBeats) || math.IsInf(fadeBeats, 0) {
		return Model{}, fmt.Errorf("%w: fade beats %g", ErrInvalidTempo, fadeBeats)
	}
	return Model{bpm: bpm, beatsPerLoop: beatsPerLoop, fadeBeats: fadeBeats}, nil
}

// BPM returns the tempo in beats per minute.
func (m Model) BPM() float64 { return m.bpm }

// BeatsPerLoop returns the overlay loop length in beats.
func (m Model) BeatsPerLoop() int { return m.beatsPerLoop }

func (m Model) beatsPerSecond() float64 {
	return m.bpm / 60
}

// FadeInDuration is the reveal length in seconds.
func (m Model) FadeInDuration() float64 {
	return m.fadeBeats / m.beatsPerSecond()
}

// LoopCycleDuration is the overlay loop length in seconds.
func (m Model) LoopCycleDuration() float64 {
	return float64(m.beatsPerLoop) / m.beatsPerSecond()
}

// FadeProgress maps elapsed seconds since the reveal started to [0, 1].
func (m Model) FadeProgress(t float64) float64 {
	if t < 0 {
		return 0
	}
	return math.Min(1, t/m.FadeInDuration())
}

// OverlayFrameIndex maps t to a frame of a count-frame loop. ok is false
// when there are no frames.
func (m Model) OverlayFrameIndex(t float64, count int) (index int, ok bool) {
	if count <= 0 {
		return 0, false
	}
	loop := m.LoopCycleDuration()
	pos := math.Mod(t, loop)
	if pos < 0 {
		pos += loop
	}
	index = int(pos/loop*float64(count)) % count
	return index, true
}
