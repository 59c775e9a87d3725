package fingerprint

import (
	"crypto/sha256"
	"testing"
)

func pair(anchorFrame, anchorBin, targetFrame, targetBin int) LandmarkPair {
	return LandmarkPair{
		Anchor: Peak{FrameIdx: anchorFrame, FreqBin: anchorBin},
		Target: Peak{FrameIdx: targetFrame, FreqBin: targetBin},
	}
}

func TestHashPair(t *testing.T) {
	p := pair(10, 3, 15, 7)

	if key := string(hashKey(p)); key != "3-7-5" {
		t.Errorf("hashKey = %q, expected %q", key, "3-7-5")
	}
	want := sha256.Sum256([]byte("3-7-5"))
	if got := HashPair(p); got != want {
		t.Errorf("HashPair = %s, expected %x", got, want)
	}

	// the key only depends on bins and the frame delta
	if HashPair(p) != HashPair(pair(100, 3, 105, 7)) {
		t.Error("Expected equal hashes for translated pairs")
	}
	if HashPair(p) == HashPair(pair(10, 7, 15, 3)) {
		t.Error("Expected different hashes for swapped bins")
	}
}

func TestEncodePairsOffsets(t *testing.T) {
	pairs := []LandmarkPair{
		pair(4, 1, 6, 2),
		pair(8, 1, 9, 2),
		pair(20, 1, 21, 2),
	}

	// span 16 frames over 64 ms: step = 0.25
	hashes := EncodePairs(pairs, 64)

	want := []int{0, 16, 64}
	if len(hashes) != len(want) {
		t.Fatalf("Expected %d hashes, got %d", len(want), len(hashes))
	}
	for i, h := range hashes {
		if h.LocalOffsetMs != want[i] {
			t.Errorf("hash %d offset = %d, expected %d", i, h.LocalOffsetMs, want[i])
		}
		if h.Hash != HashPair(pairs[i]) {
			t.Errorf("hash %d does not follow input order", i)
		}
	}
}

func TestEncodePairsDegenerateSpan(t *testing.T) {
	tests := []struct {
		name       string
		pairs      []LandmarkPair
		durationMs int
	}{
		{"same anchor frame", []LandmarkPair{pair(7, 1, 8, 2), pair(7, 3, 9, 4)}, 1000},
		{"zero duration", []LandmarkPair{pair(1, 1, 8, 2), pair(7, 3, 9, 4)}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for i, h := range EncodePairs(tt.pairs, tt.durationMs) {
				if h.LocalOffsetMs != 0 {
					t.Errorf("hash %d offset = %d, expected 0", i, h.LocalOffsetMs)
				}
			}
		})
	}

	if hashes := EncodePairs(nil, 1000); hashes != nil {
		t.Errorf("Expected nil for no pairs, got %v", hashes)
	}
}
