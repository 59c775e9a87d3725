package fingerprint

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"

	"github.com/bread133/xk7-retail-group/pkg/models"
	"github.com/mjibson/go-dsp/fft"
)

// Tunables
const (
	FrameSize = 2048
	HopSize   = 512

	// Power below this maps to the 0 dB floor, keeping the spectrogram non-negative.
	minPower = 1.0
)

// Hann returns a symmetric Hann window of length n.
func Hann(n int) []float64 {
	w := make([]float64, n)
	if n == 1 {
		w[0] = 1
		return w
	}
	for i := 0; i < n; i++ {
		// Hann: 0.5 - 0.5*cos(2*pi*n/(N-1))
		w[i] = 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(n-1))
	}
	return w
}

// FFTReal wraps the go-dsp FFT function and returns a complex spectrum.
func FFTReal(frame []float64) []complex128 {
	return fft.FFTReal(frame)
}

// PowerSpectrum returns |X[k]|^2 for the non-negative frequencies 0..n/2 inclusive.
func PowerSpectrum(spectrum []complex128) []float64 {
	half := len(spectrum)/2 + 1
	pow := make([]float64, half)
	for i := 0; i < half; i++ {
		m := cmplx.Abs(spectrum[i])
		pow[i] = m * m
	}
	return pow
}

// LogPower converts a power value to dB with a 0 dB floor.
func LogPower(p float64) float64 {
	if p < minPower || math.IsNaN(p) {
		p = minPower
	}
	return 10 * math.Log10(p)
}

// FirstChannel returns the first channel of interleaved samples.
func FirstChannel(samples []float64, channels int) []float64 {
	if channels <= 1 {
		return samples
	}
	out := make([]float64, len(samples)/channels)
	for i := range out {
		out[i] = samples[i*channels]
	}
	return out
}

// NumFrames returns max(0, floor((n-frameSize)/hopSize)+1).
func NumFrames(n, frameSize, hopSize int) int {
	if n < frameSize {
		return 0
	}
	return (n-frameSize)/hopSize + 1
}

// ComputeSpectrogram frames the first channel of samples, applies a Hann window,
// and returns a frame-major log-power spectrogram: spectrogram[frameIdx][freqBin].
// Zero frame or hop sizes select the package defaults.
func ComputeSpectrogram(samples []float64, channels, frameSize, hopSize int) ([][]float64, error) {
	if frameSize == 0 {
		frameSize = FrameSize
	}
	if hopSize == 0 {
		hopSize = HopSize
	}
	if frameSize < 2 || hopSize < 1 {
		return nil, errors.New("frame size must be >= 2 and hop size >= 1")
	}

	mono := FirstChannel(samples, channels)
	numFrames := NumFrames(len(mono), frameSize, hopSize)
	if numFrames <= 0 {
		return nil, fmt.Errorf("%d samples for frame size %d: %w", len(mono), frameSize, models.ErrEmptyInput)
	}

	window := Hann(frameSize)
	spectrogram := make([][]float64, numFrames)
	frame := make([]float64, frameSize)
	for f := 0; f < numFrames; f++ {
		start := f * hopSize
		for i := 0; i < frameSize; i++ {
			frame[i] = mono[start+i] * window[i]
		}
		pow := PowerSpectrum(FFTReal(frame))
		for i, p := range pow {
			pow[i] = LogPower(p)
		}
		spectrogram[f] = pow
	}
	return spectrogram, nil
}
