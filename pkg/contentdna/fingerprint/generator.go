package fingerprint

import (
	"errors"
	"fmt"

	"github.com/bread133/xk7-retail-group/pkg/models"
)

// Params configures the audio fingerprint pipeline.
type Params struct {
	FrameSize      int
	HopSize        int
	Neighborhood   int
	ThresholdRatio float64
	TimeWindow     int
	FreqWindow     int
	// MaxPeaks caps the peaks fed to the pairer. 0 disables the cap.
	MaxPeaks int
}

// DefaultParams returns the documented defaults.
func DefaultParams() Params {
	return Params{
		FrameSize:      FrameSize,
		HopSize:        HopSize,
		Neighborhood:   Neighborhood,
		ThresholdRatio: ThresholdRatio,
		TimeWindow:     TimeWindow,
		FreqWindow:     FreqWindow,
	}
}

// Validate reports the first invalid field.
func (p Params) Validate() error {
	switch {
	case p.FrameSize < 2:
		return fmt.Errorf("frame size %d: must be >= 2", p.FrameSize)
	case p.HopSize < 1:
		return fmt.Errorf("hop size %d: must be >= 1", p.HopSize)
	case p.Neighborhood < 1:
		return fmt.Errorf("neighborhood %d: must be >= 1", p.Neighborhood)
	case p.ThresholdRatio < 0:
		return errors.New("threshold ratio must be non-negative")
	case p.TimeWindow < 1:
		return fmt.Errorf("time window %d: must be >= 1", p.TimeWindow)
	case p.FreqWindow < 0:
		return fmt.Errorf("freq window %d: must be >= 0", p.FreqWindow)
	case p.MaxPeaks < 0:
		return fmt.Errorf("max peaks %d: must be >= 0", p.MaxPeaks)
	}
	return nil
}

// Generator turns decoded samples into landmark hashes.
type Generator struct {
	params Params
}

// NewGenerator validates p and returns a Generator.
func NewGenerator(p Params) (*Generator, error) {
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("invalid fingerprint params: %w", err)
	}
	return &Generator{params: p}, nil
}

// Params returns the generator's configuration.
func (g *Generator) Params() Params { return g.params }

// Result carries the pipeline output plus intermediate counts for logging.
type Result struct {
	Hashes     []models.FingerprintHash
	Frames     int
	Peaks      int
	Pairs      int
	DurationMs int
}

// Generate runs spectrogram → peaks → pairs → hashes over interleaved samples.
func (g *Generator) Generate(samples []float64, channels, sampleRate int) (*Result, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate %d: must be positive", sampleRate)
	}
	if channels < 1 {
		channels = 1
	}
	p := g.params

	// 1. Spectrogram
	spec, err := ComputeSpectrogram(samples, channels, p.FrameSize, p.HopSize)
	if err != nil {
		return nil, fmt.Errorf("failed to compute spectrogram: %w", err)
	}

	// 2. Peaks
	peaks := ExtractPeaks(spec, p.Neighborhood, p.ThresholdRatio)
	peaks = LimitPeaks(peaks, p.MaxPeaks)

	// 3. Pairs
	pairs := PairPeaks(peaks, p.TimeWindow, p.FreqWindow)

	// 4. Hashes
	durationMs := int(int64(len(samples)/channels) * 1000 / int64(sampleRate))
	hashes := EncodePairs(pairs, durationMs)

	return &Result{
		Hashes:     hashes,
		Frames:     len(spec),
		Peaks:      len(peaks),
		Pairs:      len(pairs),
		DurationMs: durationMs,
	}, nil
}
