package dsp

import (
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
)

// Cepstrum estimates the fundamental frequency from the real cepstrum:
// the inverse transform of the log magnitude spectrum peaks at the
// quefrency of the pitch period.
func Cepstrum(frame []float64, sampleRate int) (float64, float64) {
	n := len(frame)
	if n < 8 {
		return 0, 0
	}

	spectrum := fft.FFTReal(frame)
	logMag := make([]complex128, len(spectrum))
	for i, c := range spectrum {
		mag := cmplx.Abs(c)
		logMag[i] = complex(math.Log(mag+1e-12), 0)
	}

	cep := fft.IFFT(logMag)

	minQuefrency := int(float64(sampleRate) / DefaultMaxFreq)
	if minQuefrency < 2 {
		minQuefrency = 2
	}
	maxQuefrency := int(float64(sampleRate) / DefaultMinFreq)
	if maxQuefrency > n/2 {
		maxQuefrency = n / 2
	}
	if maxQuefrency <= minQuefrency {
		return 0, 0
	}

	bestQ := minQuefrency
	bestValue := real(cep[minQuefrency])
	for q := minQuefrency + 1; q < maxQuefrency; q++ {
		if v := real(cep[q]); v > bestValue {
			bestValue = v
			bestQ = q
		}
	}
	if bestValue <= 0 {
		return 0, 0
	}

	frequency := float64(sampleRate) / float64(bestQ)
	confidence := math.Min(1.0, bestValue)
	return frequency, confidence
}
