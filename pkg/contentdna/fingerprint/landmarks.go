package fingerprint

import (
	"math"
	"sort"
)

const (
	// TimeWindow is the maximum frame distance between anchor and target.
	TimeWindow = 50
	// FreqWindow is the maximum bin distance between anchor and target.
	FreqWindow = 20
)

// LandmarkPair is an anchor peak paired with a later target peak.
type LandmarkPair struct {
	Anchor Peak
	Target Peak
}

// inTargetZone is the exact box filter applied to every candidate.
func inTargetZone(anchor, target Peak, timeWindow, freqWindow int) bool {
	dt := target.FrameIdx - anchor.FrameIdx
	df := target.FreqBin - anchor.FreqBin
	if df < 0 {
		df = -df
	}
	return dt > 0 && dt <= timeWindow && df <= freqWindow
}

// PairPeaks pairs each anchor with every target in its target zone:
// 0 < Δframe <= timeWindow and |Δbin| <= freqWindow.
//
// Candidates come from a radius query on a grid index; the result is
// identical to PairPeaksNaive, including order. peaks must be in canonical order.
func PairPeaks(peaks []Peak, timeWindow, freqWindow int) []LandmarkPair {
	if len(peaks) < 2 {
		return nil
	}
	radius := math.Sqrt(float64(timeWindow*timeWindow + freqWindow*freqWindow))
	index := newGridIndex(peaks, radius)

	var pairs []LandmarkPair
	var candidates []int
	for i, anchor := range peaks {
		candidates = index.within(anchor, radius, candidates[:0])
		// canonical order of targets drives hash emission order
		sort.Ints(candidates)
		for _, j := range candidates {
			if j == i {
				continue
			}
			if inTargetZone(anchor, peaks[j], timeWindow, freqWindow) {
				pairs = append(pairs, LandmarkPair{Anchor: anchor, Target: peaks[j]})
			}
		}
	}
	return pairs
}

// PairPeaksNaive is the O(n²) reference for PairPeaks.
func PairPeaksNaive(peaks []Peak, timeWindow, freqWindow int) []LandmarkPair {
	var pairs []LandmarkPair
	for i, anchor := range peaks {
		for j, target := range peaks {
			if i != j && inTargetZone(anchor, target, timeWindow, freqWindow) {
				pairs = append(pairs, LandmarkPair{Anchor: anchor, Target: target})
			}
		}
	}
	return pairs
}
