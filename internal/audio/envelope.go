package audio

import "math"

// Envelope is the smoothed per-frame loudness signal, one value in [0, 1]
// per output frame. It is read-only after construction.
type Envelope []float64

// At returns the amplitude for frame i, or 0 outside the envelope.
func (e Envelope) At(i int) float64 {
	if i < 0 || i >= len(e) {
		return 0
	}
	return e[i]
}

// RawEnvelope computes the peak absolute sample within +/- halfWindow
// seconds of each frame time, clipped to 1. Windows that fall outside the
// track yield 0.
func RawEnvelope(track *Track, fps int, halfWindow float64) []float64 {
	n := track.FrameCount(fps)
	env := make([]float64, n)
	duration := track.Duration()

	for i := range env {
		env[i] = frameAmplitude(track, float64(i)/float64(fps), halfWindow, duration)
	}
	return env
}

func frameAmplitude(track *Track, t, halfWindow, duration float64) float64 {
	start := math.Max(0, t-halfWindow)
	end := math.Min(duration, t+halfWindow)
	if end <= start {
		return 0
	}
	return math.Min(peakAbs(track.Window(start, end)), 1.0)
}

func peakAbs(samples []float64) float64 {
	var peak float64
	for _, s := range samples {
		if a := math.Abs(s); a > peak {
			peak = a
		}
	}
	return peak
}

// MovingAverage applies a centred moving average. Windows are truncated at
// the edges and average only the samples available.
func MovingAverage(values []float64, window int) []float64 {
	out := make([]float64, len(values))
	if window <= 1 {
		copy(out, values)
		return out
	}

	half := window / 2
	for i := range values {
		start := max(0, i-half)
		end := min(len(values), i+half+1)
		var sum float64
		for _, v := range values[start:end] {
			sum += v
		}
		out[i] = sum / float64(end-start)
	}
	return out
}

// ExponentialSmooth applies y[0]=x[0], y[i]=alpha*x[i]+(1-alpha)*y[i-1].
func ExponentialSmooth(values []float64, alpha float64) []float64 {
	out := make([]float64, len(values))
	if len(values) == 0 {
		return out
	}
	out[0] = values[0]
	for i := 1; i < len(values); i++ {
		out[i] = alpha*values[i] + (1-alpha)*out[i-1]
	}
	return out
}

// SmoothEnvelope runs the moving average and then the exponential filter
// over the whole sequence.
func SmoothEnvelope(raw []float64, window int, alpha float64) Envelope {
	return Envelope(ExponentialSmooth(MovingAverage(raw, window), alpha))
}
