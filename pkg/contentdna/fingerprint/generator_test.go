package fingerprint

import (
	"errors"
	"reflect"
	"testing"

	"github.com/bread133/xk7-retail-group/pkg/models"
)

// steppedTone concatenates exact-bin tones, one per segment.
func steppedTone(frameSize, segment int, bins ...int) []float64 {
	var out []float64
	for _, b := range bins {
		out = append(out, sineAtBin(segment, frameSize, b, 10000)...)
	}
	return out
}

func testParams() Params {
	p := DefaultParams()
	p.FrameSize = 1024
	p.HopSize = 512
	return p
}

func TestGenerate(t *testing.T) {
	g, err := NewGenerator(testParams())
	if err != nil {
		t.Fatalf("NewGenerator failed: %v", err)
	}

	samples := steppedTone(1024, 8192, 40, 60, 80, 100, 80, 60)
	res, err := g.Generate(samples, 1, 8000)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if res.Peaks == 0 || res.Pairs == 0 {
		t.Fatalf("Expected peaks and pairs, got %d peaks, %d pairs", res.Peaks, res.Pairs)
	}
	if len(res.Hashes) != res.Pairs {
		t.Errorf("Expected one hash per pair, got %d hashes for %d pairs", len(res.Hashes), res.Pairs)
	}
	if res.DurationMs != len(samples)*1000/8000 {
		t.Errorf("DurationMs = %d, expected %d", res.DurationMs, len(samples)*1000/8000)
	}
	for i, h := range res.Hashes {
		if h.LocalOffsetMs < 0 || h.LocalOffsetMs > res.DurationMs {
			t.Errorf("hash %d offset %d outside [0, %d]", i, h.LocalOffsetMs, res.DurationMs)
		}
	}

	again, err := g.Generate(samples, 1, 8000)
	if err != nil {
		t.Fatalf("second Generate failed: %v", err)
	}
	if !reflect.DeepEqual(res.Hashes, again.Hashes) {
		t.Error("Expected deterministic hash output")
	}
}

func TestGenerateMaxPeaks(t *testing.T) {
	p := testParams()
	p.MaxPeaks = 2
	g, err := NewGenerator(p)
	if err != nil {
		t.Fatalf("NewGenerator failed: %v", err)
	}

	res, err := g.Generate(steppedTone(1024, 8192, 40, 60, 80, 100), 1, 8000)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if res.Peaks > 2 {
		t.Errorf("Expected at most 2 peaks, got %d", res.Peaks)
	}
}

func TestGenerateEmptyInput(t *testing.T) {
	g, err := NewGenerator(testParams())
	if err != nil {
		t.Fatalf("NewGenerator failed: %v", err)
	}

	_, err = g.Generate(make([]float64, 10), 1, 8000)
	if !errors.Is(err, models.ErrEmptyInput) {
		t.Errorf("Expected ErrEmptyInput, got %v", err)
	}
}

func TestParamsValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Params)
		ok     bool
	}{
		{"defaults", func(p *Params) {}, true},
		{"frame size", func(p *Params) { p.FrameSize = 1 }, false},
		{"hop size", func(p *Params) { p.HopSize = 0 }, false},
		{"neighborhood", func(p *Params) { p.Neighborhood = 0 }, false},
		{"threshold", func(p *Params) { p.ThresholdRatio = -0.1 }, false},
		{"time window", func(p *Params) { p.TimeWindow = 0 }, false},
		{"freq window", func(p *Params) { p.FreqWindow = -1 }, false},
		{"max peaks", func(p *Params) { p.MaxPeaks = -1 }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultParams()
			tt.modify(&p)
			err := p.Validate()
			if tt.ok && err != nil {
				t.Errorf("Expected valid params, got %v", err)
			}
			if !tt.ok && err == nil {
				t.Error("Expected validation error")
			}
		})
	}
}
