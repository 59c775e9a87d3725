package fingerprint

import (
	"sort"

	"gonum.org/v1/gonum/floats"
)

// Peak represents a spectral landmark used for fingerprinting.
type Peak struct {
	FrameIdx  int     // frame index in the spectrogram
	FreqBin   int     // frequency bin index
	Magnitude float64 // log-power in dB
}

// Less reports whether p sorts before q in canonical (frame, bin) order.
func (p Peak) Less(q Peak) bool {
	if p.FrameIdx == q.FrameIdx {
		return p.FreqBin < q.FreqBin
	}
	return p.FrameIdx < q.FrameIdx
}

const (
	// Neighborhood is the side of the square local-maximum window.
	Neighborhood = 3
	// ThresholdRatio keeps peaks above this share of the global maximum.
	ThresholdRatio = 0.8

	// value used for neighbors outside the spectrogram
	outOfBounds = 0.0
)

// ExtractPeaks applies a k×k maximum filter over the spectrogram and keeps the
// cells that equal their neighborhood maximum and exceed thresholdRatio times
// the global maximum.
//
// Plateaus are kept as-is: every cell of a flat maximum is reported, so
// adjacent duplicate peaks are expected.
//
// Returns peaks in canonical (frame, bin) order.
func ExtractPeaks(spectrogram [][]float64, k int, thresholdRatio float64) []Peak {
	if len(spectrogram) == 0 || len(spectrogram[0]) == 0 {
		return nil
	}
	if k <= 0 {
		k = Neighborhood
	}

	nFrames := len(spectrogram)
	nBins := len(spectrogram[0])

	globalMax := spectrogram[0][0]
	for _, frame := range spectrogram {
		if m := floats.Max(frame); m > globalMax {
			globalMax = m
		}
	}
	threshold := thresholdRatio * globalMax

	// window offsets follow the scipy maximum_filter origin: [-k/2, k-1-k/2]
	lo := -(k / 2)
	hi := k - 1 - k/2

	peaks := make([]Peak, 0, nFrames)
	for t := 0; t < nFrames; t++ {
		for f := 0; f < nBins; f++ {
			v := spectrogram[t][f]
			if v <= threshold {
				continue
			}
			if v == localMax(spectrogram, t, f, lo, hi) {
				peaks = append(peaks, Peak{FrameIdx: t, FreqBin: f, Magnitude: v})
			}
		}
	}
	return peaks
}

func localMax(spectrogram [][]float64, t, f, lo, hi int) float64 {
	nFrames := len(spectrogram)
	nBins := len(spectrogram[0])
	maxVal := spectrogram[t][f]
	for dt := lo; dt <= hi; dt++ {
		ti := t + dt
		for df := lo; df <= hi; df++ {
			fi := f + df
			v := outOfBounds
			if ti >= 0 && ti < nFrames && fi >= 0 && fi < nBins {
				v = spectrogram[ti][fi]
			}
			if v > maxVal {
				maxVal = v
			}
		}
	}
	return maxVal
}

// SortPeaks sorts peaks in place into canonical (frame, bin) order.
func SortPeaks(peaks []Peak) {
	sort.Slice(peaks, func(i, j int) bool { return peaks[i].Less(peaks[j]) })
}

// LimitPeaks keeps the limit strongest peaks (ties broken by canonical order)
// and returns them in canonical order. limit <= 0 disables the cap.
func LimitPeaks(peaks []Peak, limit int) []Peak {
	if limit <= 0 || len(peaks) <= limit {
		return peaks
	}
	out := make([]Peak, len(peaks))
	copy(out, peaks)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Magnitude == out[j].Magnitude {
			return out[i].Less(out[j])
		}
		return out[i].Magnitude > out[j].Magnitude
	})
	out = out[:limit]
	SortPeaks(out)
	return out
}
