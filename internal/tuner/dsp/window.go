// Package dsp holds the signal-processing primitives behind the tuner:
// windowing, pre-emphasis, and the pitch estimation algorithms pooled by
// the analyzers.
package dsp

import "math"

// preEmphasisCoef is the standard speech/music pre-emphasis coefficient.
const preEmphasisCoef = 0.97

// PreEmphasis applies the high-frequency emphasis filter
// y[n] = x[n] - 0.97·x[n-1].
func PreEmphasis(signal []float64) []float64 {
	if len(signal) == 0 {
		return signal
	}
	result := make([]float64, len(signal))
	result[0] = signal[0]
	for i := 1; i < len(signal); i++ {
		result[i] = signal[i] - preEmphasisCoef*signal[i-1]
	}
	return result
}

// HannWindow returns a Hann window of the given size.
func HannWindow(size int) []float64 {
	window := make([]float64, size)
	if size == 1 {
		window[0] = 1
		return window
	}
	for i := range window {
		window[i] = 0.5 * (1.0 - math.Cos(2.0*math.Pi*float64(i)/float64(size-1)))
	}
	return window
}

// ApplyWindow multiplies the frame by the window in place and returns it.
// The two slices must have equal length.
func ApplyWindow(frame, window []float64) []float64 {
	for i := range frame {
		frame[i] *= window[i]
	}
	return frame
}

// RMS returns the root mean square level of the frame.
func RMS(frame []float64) float64 {
	if len(frame) == 0 {
		return 0
	}
	sum := 0.0
	for _, s := range frame {
		sum += s * s
	}
	return math.Sqrt(sum / float64(len(frame)))
}
