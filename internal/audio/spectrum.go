package audio

import (
	"math"
	"slices"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/dsp/window"
)

// SpectrumOptions controls the per-frame spectral analysis.
type SpectrumOptions struct {
	Window          float64 // analysis window length in seconds
	FloorPercentile float64
	CeilPercentile  float64
	Headroom        float64 // fraction of the dB range added below the floor and above the ceiling
	Sigma           float64 // gaussian smoothing along frequency; 0 disables
}

// SpectrumAnalyzer computes normalized magnitude spectra on demand. It keeps
// scratch buffers and an FFT plan, so each goroutine needs its own analyzer.
type SpectrumAnalyzer struct {
	track  *Track
	opts   SpectrumOptions
	fft    *fourier.FFT
	buf    []float64
	coeffs []complex128
}

// NewSpectrumAnalyzer creates an analyzer over track.
func NewSpectrumAnalyzer(track *Track, opts SpectrumOptions) *SpectrumAnalyzer {
	return &SpectrumAnalyzer{track: track, opts: opts}
}

// Spectrum returns normalized magnitudes in [0, 1] for the window centred at
// t seconds, resampled onto log-spaced bins when there are more bins than
// width. An empty window yields width zeros.
func (a *SpectrumAnalyzer) Spectrum(t float64, width int) []float64 {
	sr := a.track.SampleRate
	windowSamples := int(a.opts.Window * float64(sr))
	current := int(t * float64(sr))
	data := a.track.slice(current-windowSamples/2, current+windowSamples/2)
	if len(data) == 0 {
		return make([]float64, width)
	}

	mags := a.magnitudes(data)
	norm := a.normalize(mags)
	if len(norm) > 3 && a.opts.Sigma > 0 {
		norm = GaussianSmooth(norm, a.opts.Sigma)
	}
	if len(norm) > width {
		return LogResample(norm, width)
	}
	return norm
}

// magnitudes returns |rfft(hamming(data))|.
func (a *SpectrumAnalyzer) magnitudes(data []float64) []float64 {
	n := len(data)
	if a.fft == nil {
		a.fft = fourier.NewFFT(n)
	} else if a.fft.Len() != n {
		a.fft.Reset(n)
	}
	if cap(a.buf) < n {
		a.buf = make([]float64, n)
	}
	a.buf = a.buf[:n]
	copy(a.buf, data)
	if n > 1 {
		window.Hamming(a.buf)
	}

	bins := n/2 + 1
	if cap(a.coeffs) < bins {
		a.coeffs = make([]complex128, bins)
	}
	a.coeffs = a.fft.Coefficients(a.coeffs[:bins], a.buf)

	mags := make([]float64, bins)
	for i, c := range a.coeffs {
		mags[i] = math.Hypot(real(c), imag(c))
	}
	return mags
}

// normalize converts magnitudes to dB and maps them between this frame's
// floor and ceiling percentiles. A flat spectrum maps to zeros.
func (a *SpectrumAnalyzer) normalize(mags []float64) []float64 {
	db := make([]float64, len(mags))
	for i, m := range mags {
		db[i] = 20 * math.Log10(m+1e-10)
	}

	floor := Percentile(db, a.opts.FloorPercentile)
	ceil := Percentile(db, a.opts.CeilPercentile)
	rng := ceil - floor

	out := make([]float64, len(db))
	if rng <= 0 {
		return out
	}
	scale := rng * (1 + 2*a.opts.Headroom)
	for i, v := range db {
		out[i] = clamp01((v - floor + rng*a.opts.Headroom) / scale)
	}
	return out
}

// Percentile returns the p-th percentile (0-100) using linear interpolation
// between closest ranks.
func Percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := slices.Clone(values)
	slices.Sort(sorted)

	pos := p / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo < 0 {
		lo = 0
	}
	if hi >= len(sorted) {
		hi = len(sorted) - 1
	}
	frac := pos - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}

// GaussianSmooth convolves values with a normalized gaussian kernel of the
// given sigma, truncated at four standard deviations, mirroring the edges
// (d c b a | a b c d | d c b a).
func GaussianSmooth(values []float64, sigma float64) []float64 {
	radius := int(4*sigma + 0.5)
	if radius == 0 || len(values) == 0 {
		return slices.Clone(values)
	}

	kernel := make([]float64, 2*radius+1)
	var sum float64
	for i := range kernel {
		x := float64(i - radius)
		kernel[i] = math.Exp(-0.5 * x * x / (sigma * sigma))
		sum += kernel[i]
	}
	for i := range kernel {
		kernel[i] /= sum
	}

	n := len(values)
	out := make([]float64, n)
	for i := range values {
		var acc float64
		for k, w := range kernel {
			acc += w * values[reflectIndex(i+k-radius, n)]
		}
		out[i] = acc
	}
	return out
}

func reflectIndex(i, n int) int {
	for i < 0 || i >= n {
		if i < 0 {
			i = -i - 1
		} else {
			i = 2*n - i - 1
		}
	}
	return i
}

// LogResample picks width values at indices 10^(k*log10(n-1)/(width-1)),
// truncated, so low frequencies get more of the display.
func LogResample(values []float64, width int) []float64 {
	out := make([]float64, width)
	n := len(values)
	if n == 0 || width == 0 {
		return out
	}
	if n == 1 {
		for i := range out {
			out[i] = values[0]
		}
		return out
	}

	stop := math.Log10(float64(n - 1))
	for k := range out {
		var exp float64
		if width > 1 {
			exp = float64(k) * stop / float64(width-1)
		}
		idx := int(math.Pow(10, exp))
		if idx >= n {
			idx = n - 1
		}
		out[k] = values[idx]
	}
	return out
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
