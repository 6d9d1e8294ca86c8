package tuner

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/pitchlab/eartrain-api/internal/theory"
	"github.com/pitchlab/eartrain-api/internal/tuner/dsp"
)

const (
	// silenceRMS is the minimum frame energy below which detection is
	// skipped entirely.
	silenceRMS = 0.005

	// yinThreshold is the CMNDF acceptance threshold for the YIN
	// detector.
	yinThreshold = 0.15

	// outlierSigma bounds how far a candidate may sit from the
	// ensemble mean before it is discarded.
	outlierSigma = 2.0

	// batchFrameSize is the analysis window for batch uploads. The
	// time-domain detectors are quadratic per frame, so long uploads
	// are sampled at up to maxBatchFrames evenly spaced windows
	// instead of being analyzed whole.
	batchFrameSize = 8192
	maxBatchFrames = 8
)

// Analyzer pools several pitch detectors over a single audio buffer
// and reconciles their estimates into one reading.
type Analyzer struct {
	catalog *theory.Catalog
}

func NewAnalyzer(catalog *theory.Catalog) *Analyzer {
	return &Analyzer{catalog: catalog}
}

// Analyze runs the full detector ensemble over the buffer and maps the
// agreed frequency to the nearest keyboard pitch.
func (a *Analyzer) Analyze(samples []float64, sampleRate int) (Reading, error) {
	if len(samples) == 0 || dsp.RMS(samples) < silenceRMS {
		return Reading{}, ErrNoPitchDetected
	}

	var frequencies []float64
	for _, frame := range batchFrames(samples) {
		if dsp.RMS(frame) < silenceRMS {
			continue
		}
		frequencies = append(frequencies, a.collectCandidates(dsp.PreEmphasis(frame), sampleRate)...)
	}
	if len(frequencies) == 0 {
		return Reading{}, ErrNoPitchDetected
	}

	agreed := reconcile(frequencies)
	if agreed <= 0 {
		return Reading{}, ErrNoPitchDetected
	}
	return NearestPitch(a.catalog, agreed)
}

// batchFrames slices the upload into analysis windows: short buffers
// come back whole, anything longer is sampled at evenly spaced offsets
// so the per-request detector cost stays bounded.
func batchFrames(samples []float64) [][]float64 {
	if len(samples) <= batchFrameSize {
		return [][]float64{samples}
	}

	count := (len(samples) + batchFrameSize - 1) / batchFrameSize
	if count > maxBatchFrames {
		count = maxBatchFrames
	}
	span := len(samples) - batchFrameSize
	frames := make([][]float64, 0, count)
	for i := 0; i < count; i++ {
		offset := 0
		if count > 1 {
			offset = i * span / (count - 1)
		}
		frames = append(frames, samples[offset:offset+batchFrameSize])
	}
	return frames
}

// collectCandidates gathers frequency estimates from every detector
// that produced one. The time-domain detectors see the raw frame; the
// spectral ones get a Hann-windowed copy.
func (a *Analyzer) collectCandidates(frame []float64, sampleRate int) []float64 {
	var frequencies []float64

	if freq, confidence := dsp.YIN(frame, sampleRate, yinThreshold); freq > 0 && confidence > 0 {
		frequencies = append(frequencies, freq)
	}
	for i, c := range dsp.ACF(frame, sampleRate) {
		if i >= 2 {
			break
		}
		frequencies = append(frequencies, c.Frequency)
	}

	windowed := append([]float64(nil), frame...)
	dsp.ApplyWindow(windowed, dsp.HannWindow(len(windowed)))
	if freq, confidence := dsp.HPS(windowed, sampleRate); freq > 0 && confidence > 0 {
		frequencies = append(frequencies, freq)
	}
	if freq, confidence := dsp.Cepstrum(windowed, sampleRate); freq > 0 && confidence > 0 {
		frequencies = append(frequencies, freq)
	}
	return frequencies
}

// reconcile drops estimates that disagree with the ensemble and
// returns the median of what remains.
func reconcile(frequencies []float64) float64 {
	if len(frequencies) == 1 {
		return frequencies[0]
	}

	mean, std := stat.MeanStdDev(frequencies, nil)
	kept := frequencies
	if std > 0 {
		kept = kept[:0:0]
		for _, f := range frequencies {
			if math.Abs(f-mean) <= outlierSigma*std {
				kept = append(kept, f)
			}
		}
		if len(kept) == 0 {
			kept = frequencies
		}
	}

	sorted := append([]float64(nil), kept...)
	sort.Float64s(sorted)
	return stat.Quantile(0.5, stat.Empirical, sorted, nil)
}
