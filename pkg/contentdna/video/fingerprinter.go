package video

import (
	"errors"
	"fmt"

	"github.com/bread133/xk7-retail-group/pkg/models"
)

// Tunables
const (
	TargetFPS     = 5.0
	SSIMThreshold = 0.6
	GroupSize     = 5
	Gamma         = 0.65
	WindowRadius  = 2

	// decode size; 103×135 patches give 27810 features
	FrameWidth  = 104
	FrameHeight = 136
)

// Params configures the video fingerprint pipeline. Width and Height are the
// size frames are decoded at.
type Params struct {
	TargetFPS     float64
	SSIMThreshold float64
	GroupSize     int
	Gamma         float64
	WindowRadius  int
	Width         int
	Height        int
}

// DefaultParams returns the documented defaults.
func DefaultParams() Params {
	return Params{
		TargetFPS:     TargetFPS,
		SSIMThreshold: SSIMThreshold,
		GroupSize:     GroupSize,
		Gamma:         Gamma,
		WindowRadius:  WindowRadius,
		Width:         FrameWidth,
		Height:        FrameHeight,
	}
}

// Validate reports the first invalid field.
func (p Params) Validate() error {
	switch {
	case p.TargetFPS < 0:
		return fmt.Errorf("target fps %.2f: must be >= 0", p.TargetFPS)
	case p.SSIMThreshold < -1 || p.SSIMThreshold > 1:
		return fmt.Errorf("ssim threshold %.2f: must be in [-1, 1]", p.SSIMThreshold)
	case p.GroupSize < 1:
		return fmt.Errorf("group size %d: must be >= 1", p.GroupSize)
	case p.Gamma <= 0:
		return fmt.Errorf("gamma %.2f: must be positive", p.Gamma)
	case p.WindowRadius < 1:
		return fmt.Errorf("window radius %d: must be >= 1", p.WindowRadius)
	case p.Width < 2 || p.Height < 2:
		return fmt.Errorf("frame size %dx%d: must be at least 2x2", p.Width, p.Height)
	case ((p.Width-1)*(p.Height-1)*2)%BitsPerWord != 0:
		return fmt.Errorf("frame size %dx%d: %w", p.Width, p.Height, models.ErrInvalidFeatureLength)
	}
	return nil
}

// Fingerprinter turns decoded frames into packed TIRI hashes.
type Fingerprinter struct {
	params Params
}

// NewFingerprinter validates p and returns a Fingerprinter.
func NewFingerprinter(p Params) (*Fingerprinter, error) {
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("invalid video params: %w", err)
	}
	return &Fingerprinter{params: p}, nil
}

// Params returns the fingerprinter's configuration.
func (fp *Fingerprinter) Params() Params { return fp.params }

// Result carries the fingerprints plus counts for logging.
type Result struct {
	Records   []models.VideoFingerprint
	Keyframes int
	Groups    int
	Skipped   []error // per-record failures
}

// Fingerprint runs keyframes → TIRIs → patch projections → packed hashes.
// A record that cannot be hashed is skipped and reported in Result.Skipped;
// an error is returned only when no record is produced.
func (fp *Fingerprinter) Fingerprint(frames []Frame) (*Result, error) {
	p := fp.params

	// 1. Keyframes
	keyframes, err := SelectKeyframes(frames, p.TargetFPS, p.SSIMThreshold)
	if err != nil {
		return nil, fmt.Errorf("failed to select keyframes: %w", err)
	}

	// 2. TIRIs
	tiris, err := BuildTIRIs(keyframes, p.GroupSize, p.Gamma)
	if err != nil {
		return nil, fmt.Errorf("failed to build TIRIs: %w", err)
	}
	if len(tiris) == 0 {
		return nil, fmt.Errorf("%d keyframes, need %d per group: %w", len(keyframes), p.GroupSize, models.ErrEmptyInput)
	}

	// 3. Hashes
	res := &Result{Keyframes: len(keyframes), Groups: len(tiris)}
	for _, t := range tiris {
		hash, err := fp.hashTIRI(t)
		if err != nil {
			res.Skipped = append(res.Skipped, fmt.Errorf("record at %dms: %w", t.TimestampMs, err))
			continue
		}
		res.Records = append(res.Records, models.VideoFingerprint{Hash: hash, TimestampMs: t.TimestampMs})
	}
	if len(res.Records) == 0 {
		return nil, errors.Join(res.Skipped...)
	}
	return res, nil
}

func (fp *Fingerprinter) hashTIRI(t TIRI) ([]uint16, error) {
	f, err := ProjectPatches(t.Image, fp.params.WindowRadius)
	if err != nil {
		return nil, err
	}
	return HashFeatures(f)
}
