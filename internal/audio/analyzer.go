package audio

import (
	"context"
	"math"
	"time"
)

// AnalysisOptions controls envelope extraction.
type AnalysisOptions struct {
	FPS             int
	HalfWindow      float64 // seconds either side of the frame time
	SmoothingWindow int
	SmoothingAlpha  float64
}

// AudioProfile holds the envelope and whole-track statistics gathered in
// the analysis pass.
type AudioProfile struct {
	Envelope Envelope

	// Total number of output frames
	NumFrames int

	GlobalPeak   float64 // Highest absolute sample
	GlobalRMS    float64 // RMS over the whole track
	DynamicRange float64 // GlobalPeak / GlobalRMS in dB, 0 for silence

	SampleRate int
	Duration   float64 // Seconds
}

// ProgressCallback is called with progress updates during analysis
type ProgressCallback func(frame, totalFrames int, amplitude float64, elapsed time.Duration)

// progressEvery throttles callbacks to one per this many frames
const progressEvery = 30

// Analyze performs the analysis pass: raw envelope, smoothing, and global
// statistics. It checks ctx between frames.
func Analyze(ctx context.Context, track *Track, opts AnalysisOptions, progressCb ProgressCallback) (*AudioProfile, error) {
	startTime := time.Now()

	total := track.FrameCount(opts.FPS)
	raw := make([]float64, total)
	duration := track.Duration()

	for i := range raw {
		if i%progressEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		raw[i] = frameAmplitude(track, float64(i)/float64(opts.FPS), opts.HalfWindow, duration)

		if progressCb != nil && (i+1)%progressEvery == 0 {
			progressCb(i+1, total, raw[i], time.Since(startTime))
		}
	}

	profile := &AudioProfile{
		Envelope:   SmoothEnvelope(raw, opts.SmoothingWindow, opts.SmoothingAlpha),
		NumFrames:  total,
		SampleRate: track.SampleRate,
		Duration:   duration,
	}

	var sumSquares float64
	for _, s := range track.Samples {
		sumSquares += s * s
		if a := math.Abs(s); a > profile.GlobalPeak {
			profile.GlobalPeak = a
		}
	}
	if len(track.Samples) > 0 {
		profile.GlobalRMS = math.Sqrt(sumSquares / float64(len(track.Samples)))
	}
	if profile.GlobalRMS > 0 {
		profile.DynamicRange = 20 * math.Log10(profile.GlobalPeak/profile.GlobalRMS)
	}

	if progressCb != nil {
		var last float64
		if total > 0 {
			last = profile.Envelope[total-1]
		}
		progressCb(total, total, last, time.Since(startTime))
	}

	return profile, nil
}
