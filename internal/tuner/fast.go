package tuner

import (
	"math"
	"sort"

	"github.com/pitchlab/eartrain-api/internal/tuner/dsp"
)

const (
	fastWindowSize = 2048
	fastHopSize    = 512
	histogramBins  = 50

	// lowRegisterFreq is C2. Below it, octave confusion dominates and
	// folded candidates are admitted alongside the raw estimate.
	lowRegisterFreq = 65.41
)

// AnalyzeFast runs a single YIN detector over short hopped frames.
// It trades the batch ensemble's robustness for latency, which is what
// a live stream needs.
func (a *Analyzer) AnalyzeFast(samples []float64, sampleRate int) (Reading, error) {
	if len(samples) < fastWindowSize {
		return a.Analyze(samples, sampleRate)
	}

	var estimates []float64
	for start := 0; start+fastWindowSize <= len(samples); start += fastHopSize {
		frame := samples[start : start+fastWindowSize]
		if dsp.RMS(frame) < silenceRMS {
			continue
		}
		freq, confidence := dsp.YIN(dsp.PreEmphasis(frame), sampleRate, yinThreshold)
		if freq <= 0 || confidence <= 0 {
			continue
		}
		estimates = append(estimates, freq)
		if freq < lowRegisterFreq {
			// Low strings trip octave errors. Count the raw estimate
			// double and admit the folded octaves as weaker candidates
			// so frames that landed an octave off can still converge.
			estimates = append(estimates, freq, freq*2, freq/2)
		}
	}
	if len(estimates) == 0 {
		return Reading{}, ErrNoPitchDetected
	}

	agreed := histogramMode(estimates)
	if agreed <= 0 {
		return Reading{}, ErrNoPitchDetected
	}
	return NearestPitch(a.catalog, agreed)
}

// histogramMode buckets the estimates into a fixed histogram, keeps
// the most populated bin and returns a median over it that weights
// lower estimates double. Overtones bias frame detectors upward, so
// the skew pulls the result back toward the fundamental.
func histogramMode(estimates []float64) float64 {
	lo, hi := estimates[0], estimates[0]
	for _, f := range estimates[1:] {
		lo = math.Min(lo, f)
		hi = math.Max(hi, f)
	}
	if hi-lo < 1e-9 {
		return lo
	}

	width := (hi - lo) / histogramBins
	counts := make([]int, histogramBins)
	for _, f := range estimates {
		bin := int((f - lo) / width)
		if bin >= histogramBins {
			bin = histogramBins - 1
		}
		counts[bin]++
	}

	bestBin := 0
	for bin, count := range counts {
		if count > counts[bestBin] {
			bestBin = bin
		}
	}
	binLo := lo + float64(bestBin)*width
	binHi := binLo + width

	var members []float64
	for _, f := range estimates {
		if f >= binLo && f <= binHi {
			members = append(members, f)
		}
	}
	sort.Float64s(members)

	// Weighted median: each value below the plain median counts
	// twice.
	mid := members[len(members)/2]
	var weighted []float64
	for _, f := range members {
		weighted = append(weighted, f)
		if f < mid {
			weighted = append(weighted, f)
		}
	}
	sort.Float64s(weighted)
	return weighted[len(weighted)/2]
}
