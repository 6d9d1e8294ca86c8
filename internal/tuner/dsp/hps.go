package dsp

import (
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
)

const hpsHarmonics = 5

// HPS estimates the fundamental frequency via the harmonic product
// spectrum: the magnitude spectrum is multiplied by its own
// downsampled copies so harmonics reinforce the fundamental bin.
func HPS(frame []float64, sampleRate int) (float64, float64) {
	n := len(frame)
	if n < 8 {
		return 0, 0
	}

	spectrum := fft.FFTReal(frame)
	half := len(spectrum) / 2
	magnitude := make([]float64, half)
	for i := 0; i < half; i++ {
		magnitude[i] = cmplx.Abs(spectrum[i])
	}

	binWidth := float64(sampleRate) / float64(n)
	minBin := int(DefaultMinFreq / binWidth)
	if minBin < 1 {
		minBin = 1
	}
	maxBin := int(DefaultMaxFreq / binWidth)
	if maxBin > half/hpsHarmonics {
		maxBin = half / hpsHarmonics
	}
	if maxBin <= minBin {
		return 0, 0
	}

	product := make([]float64, maxBin)
	copy(product, magnitude[:maxBin])
	for h := 2; h <= hpsHarmonics; h++ {
		for bin := minBin; bin < maxBin; bin++ {
			idx := bin * h
			if idx < half {
				product[bin] *= magnitude[idx]
			}
		}
	}

	bestBin := minBin
	bestValue := product[minBin]
	for bin := minBin + 1; bin < maxBin; bin++ {
		if product[bin] > bestValue {
			bestValue = product[bin]
			bestBin = bin
		}
	}
	if bestValue <= 0 {
		return 0, 0
	}

	frequency := float64(bestBin) * binWidth

	// Confidence from how far the winning bin stands above the mean
	// product level.
	mean := 0.0
	for bin := minBin; bin < maxBin; bin++ {
		mean += product[bin]
	}
	mean /= float64(maxBin - minBin)
	confidence := 0.0
	if mean > 0 {
		confidence = math.Min(1.0, math.Log1p(bestValue/mean)/10.0)
	}
	return frequency, confidence
}
