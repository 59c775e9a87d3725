package fingerprint

import (
	"math/rand"
	"reflect"
	"testing"
)

func TestPairPeaksTargetZone(t *testing.T) {
	peaks := []Peak{
		{FrameIdx: 0, FreqBin: 10},
		{FrameIdx: 0, FreqBin: 12}, // same frame: never a target
		{FrameIdx: 5, FreqBin: 15},
		{FrameIdx: 5, FreqBin: 40}, // |Δbin| = 30
		{FrameIdx: 50, FreqBin: 30},
		{FrameIdx: 60, FreqBin: 10}, // Δframe = 60
	}

	pairs := PairPeaks(peaks, 50, 20)

	want := []LandmarkPair{
		{Anchor: peaks[0], Target: peaks[2]},
		{Anchor: peaks[0], Target: peaks[4]},
		{Anchor: peaks[1], Target: peaks[2]},
		{Anchor: peaks[1], Target: peaks[4]},
		{Anchor: peaks[2], Target: peaks[4]},
		{Anchor: peaks[3], Target: peaks[4]},
		{Anchor: peaks[4], Target: peaks[5]},
	}
	if !reflect.DeepEqual(pairs, want) {
		t.Errorf("PairPeaks = %+v\nexpected %+v", pairs, want)
	}
}

func TestPairPeaksMatchesNaive(t *testing.T) {
	tests := []struct {
		name       string
		n          int
		frames     int
		bins       int
		timeWindow int
		freqWindow int
	}{
		{"defaults sparse", 200, 2000, 1025, TimeWindow, FreqWindow},
		{"defaults dense", 600, 300, 200, TimeWindow, FreqWindow},
		{"narrow", 300, 200, 100, 3, 0},
		{"wide", 150, 100, 60, 80, 60},
	}

	rng := rand.New(rand.NewSource(7))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen := make(map[[2]int]bool)
			peaks := make([]Peak, 0, tt.n)
			for len(peaks) < tt.n {
				p := Peak{FrameIdx: rng.Intn(tt.frames), FreqBin: rng.Intn(tt.bins), Magnitude: rng.Float64()}
				key := [2]int{p.FrameIdx, p.FreqBin}
				if seen[key] {
					continue
				}
				seen[key] = true
				peaks = append(peaks, p)
			}
			SortPeaks(peaks)

			got := PairPeaks(peaks, tt.timeWindow, tt.freqWindow)
			want := PairPeaksNaive(peaks, tt.timeWindow, tt.freqWindow)
			if len(want) == 0 {
				t.Fatal("test setup produced no pairs")
			}
			if !reflect.DeepEqual(got, want) {
				t.Fatalf("grid pairing differs from naive: got %d pairs, want %d", len(got), len(want))
			}
		})
	}
}

func TestPairPeaksDegenerate(t *testing.T) {
	if pairs := PairPeaks(nil, TimeWindow, FreqWindow); len(pairs) != 0 {
		t.Errorf("Expected no pairs for nil peaks, got %d", len(pairs))
	}
	single := []Peak{{FrameIdx: 3, FreqBin: 3}}
	if pairs := PairPeaks(single, TimeWindow, FreqWindow); len(pairs) != 0 {
		t.Errorf("Expected no pairs for a single peak, got %d", len(pairs))
	}
}
