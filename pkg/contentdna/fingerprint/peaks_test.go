package fingerprint

import (
	"reflect"
	"testing"
)

func grid(rows, cols int) [][]float64 {
	g := make([][]float64, rows)
	for i := range g {
		g[i] = make([]float64, cols)
	}
	return g
}

func TestExtractPeaks(t *testing.T) {
	spec := grid(5, 5)
	spec[2][2] = 10
	spec[0][4] = 9 // corner: out-of-bounds neighbors count as 0
	spec[4][0] = 3 // local max but below 0.8 * 10
	spec[2][3] = 7 // neighbor of the strongest cell

	peaks := ExtractPeaks(spec, 3, 0.8)

	want := []Peak{
		{FrameIdx: 0, FreqBin: 4, Magnitude: 9},
		{FrameIdx: 2, FreqBin: 2, Magnitude: 10},
	}
	if !reflect.DeepEqual(peaks, want) {
		t.Errorf("ExtractPeaks = %+v, expected %+v", peaks, want)
	}
}

func TestExtractPeaksPlateau(t *testing.T) {
	spec := grid(4, 4)
	spec[1][1] = 5
	spec[1][2] = 5

	peaks := ExtractPeaks(spec, 3, 0.5)

	if len(peaks) != 2 {
		t.Fatalf("Expected both plateau cells, got %+v", peaks)
	}
	if peaks[0].FreqBin != 1 || peaks[1].FreqBin != 2 {
		t.Errorf("Unexpected plateau peaks %+v", peaks)
	}
}

func TestExtractPeaksThresholdIsStrict(t *testing.T) {
	spec := grid(3, 3)
	spec[0][0] = 8
	spec[2][2] = 10

	// 8 == 0.8 * 10 is not above the threshold
	peaks := ExtractPeaks(spec, 3, 0.8)
	if len(peaks) != 1 || peaks[0].Magnitude != 10 {
		t.Errorf("Expected only the global max, got %+v", peaks)
	}
}

func TestExtractPeaksCanonicalOrder(t *testing.T) {
	spec := grid(20, 20)
	for fr := 0; fr < 20; fr += 4 {
		for f := 18; f >= 0; f -= 6 {
			spec[fr][f] = 100
		}
	}

	peaks := ExtractPeaks(spec, 3, 0.8)
	if len(peaks) == 0 {
		t.Fatal("No peaks extracted")
	}
	for i := 1; i < len(peaks); i++ {
		if !peaks[i-1].Less(peaks[i]) {
			t.Fatalf("Peaks not canonically sorted at %d: %+v then %+v", i, peaks[i-1], peaks[i])
		}
	}
}

func TestExtractPeaksEmptySpectrogram(t *testing.T) {
	if peaks := ExtractPeaks(nil, 3, 0.8); len(peaks) > 0 {
		t.Error("Expected no peaks from empty spectrogram")
	}
	if peaks := ExtractPeaks([][]float64{{}}, 3, 0.8); len(peaks) > 0 {
		t.Error("Expected no peaks from zero-bin spectrogram")
	}
}

func TestLimitPeaks(t *testing.T) {
	peaks := []Peak{
		{FrameIdx: 0, FreqBin: 1, Magnitude: 3},
		{FrameIdx: 1, FreqBin: 1, Magnitude: 9},
		{FrameIdx: 2, FreqBin: 1, Magnitude: 5},
		{FrameIdx: 3, FreqBin: 1, Magnitude: 9},
	}

	got := LimitPeaks(peaks, 3)
	want := []Peak{peaks[1], peaks[2], peaks[3]}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("LimitPeaks = %+v, expected %+v", got, want)
	}

	if got := LimitPeaks(peaks, 0); len(got) != len(peaks) {
		t.Errorf("LimitPeaks with 0 should keep all peaks, got %d", len(got))
	}
}
