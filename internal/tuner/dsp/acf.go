package dsp

import "sort"

// acfPeakThreshold is the minimum normalized correlation for a lag to
// count as a pitch candidate.
const acfPeakThreshold = 0.3

// Candidate is one frequency estimate with its confidence and the
// algorithm that produced it.
type Candidate struct {
	Frequency  float64
	Confidence float64
	Method     string
}

// ACF estimates pitch candidates by picking local maxima of the
// normalized autocorrelation within the valid frequency band, strongest
// first.
func ACF(frame []float64, sampleRate int) []Candidate {
	n := len(frame)
	if n < 4 {
		return nil
	}

	// Normalized autocorrelation over the first half of the lags.
	energy := 0.0
	for _, s := range frame {
		energy += s * s
	}
	if energy == 0 {
		return nil
	}

	maxLag := n / 2
	corr := make([]float64, maxLag)
	for lag := 0; lag < maxLag; lag++ {
		sum := 0.0
		for j := 0; j+lag < n; j++ {
			sum += frame[j] * frame[j+lag]
		}
		corr[lag] = sum / energy
	}

	minLag := int(float64(sampleRate) / DefaultMaxFreq)
	if minLag < 1 {
		minLag = 1
	}

	var candidates []Candidate
	for lag := minLag + 1; lag < maxLag-1; lag++ {
		if corr[lag] > corr[lag-1] && corr[lag] > corr[lag+1] && corr[lag] > acfPeakThreshold {
			frequency := float64(sampleRate) / float64(lag)
			if frequency < DefaultMinFreq || frequency > DefaultMaxFreq {
				continue
			}
			candidates = append(candidates, Candidate{
				Frequency:  frequency,
				Confidence: corr[lag],
				Method:     "ACF",
			})
		}
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].Confidence > candidates[j].Confidence
	})
	return candidates
}
