package dsp

// Default frequency band for musical pitch detection, spanning the piano
// range with headroom.
const (
	DefaultMinFreq = 25.0
	DefaultMaxFreq = 4400.0
)

// YIN estimates the fundamental frequency of a frame using the YIN
// algorithm (de Cheveigné & Kawahara, 2002): difference function,
// cumulative mean normalized difference, first threshold minimum, then
// parabolic interpolation of the period. Returns (0, 0) when no period
// below the threshold is found or the result leaves the valid band.
func YIN(frame []float64, sampleRate int, threshold float64) (freq, confidence float64) {
	n := len(frame)
	halfN := n / 2
	if halfN < 2 {
		return 0, 0
	}

	// Difference function
	diff := make([]float64, halfN)
	for tau := 0; tau < halfN; tau++ {
		sum := 0.0
		for j := 0; j < halfN; j++ {
			delta := frame[j] - frame[j+tau]
			sum += delta * delta
		}
		diff[tau] = sum
	}

	// Cumulative mean normalized difference function
	cmndf := make([]float64, halfN)
	cmndf[0] = 1.0
	runningSum := 0.0
	for tau := 1; tau < halfN; tau++ {
		runningSum += diff[tau]
		cmndf[tau] = diff[tau] / (runningSum / float64(tau))
	}

	// First minimum below threshold
	minTau := -1
	for tau := 1; tau < halfN; tau++ {
		if cmndf[tau] < threshold {
			if tau+1 < halfN && cmndf[tau] < cmndf[tau+1] {
				minTau = tau
				break
			}
		}
	}
	if minTau <= 0 {
		return 0, 0
	}

	period := parabolicInterpolation(cmndf, minTau)
	if period <= 0 {
		return 0, 0
	}
	frequency := float64(sampleRate) / period
	if frequency < DefaultMinFreq || frequency > DefaultMaxFreq {
		return 0, 0
	}
	return frequency, 1.0 - cmndf[minTau]
}

// parabolicInterpolation refines a discrete minimum/maximum location by
// fitting a parabola through the point and its neighbors.
func parabolicInterpolation(data []float64, idx int) float64 {
	if idx <= 0 || idx >= len(data)-1 {
		return float64(idx)
	}
	y1 := data[idx-1]
	y2 := data[idx]
	y3 := data[idx+1]
	denom := 2.0 * (y1 - 2*y2 + y3)
	if denom == 0 {
		return float64(idx)
	}
	return float64(idx) + (y1-y3)/denom
}
