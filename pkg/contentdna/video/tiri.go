package video

import (
	"fmt"
	"image"
	"math"
)

// TIRI is a temporally informative representative image: a decay-weighted
// sum over one group of keyframes.
type TIRI struct {
	Image       *image.Gray
	TimestampMs int // timestamp of the group's first keyframe
}

// BuildTIRIs splits keyframes into consecutive groups of groupSize and
// accumulates each group as Σ gamma^k · frame_k. A trailing group shorter
// than groupSize is dropped. Sums above 255 saturate.
func BuildTIRIs(keyframes []Keyframe, groupSize int, gamma float64) ([]TIRI, error) {
	if groupSize < 1 {
		return nil, fmt.Errorf("group size %d: must be >= 1", groupSize)
	}

	weights := make([]float64, groupSize)
	for k := range weights {
		weights[k] = math.Pow(gamma, float64(k))
	}

	tiris := make([]TIRI, 0, len(keyframes)/groupSize)
	for i := 0; i+groupSize <= len(keyframes); i += groupSize {
		img, err := accumulate(keyframes[i:i+groupSize], weights)
		if err != nil {
			return nil, fmt.Errorf("group at %dms: %w", keyframes[i].TimestampMs, err)
		}
		tiris = append(tiris, TIRI{Image: img, TimestampMs: keyframes[i].TimestampMs})
	}
	return tiris, nil
}

func accumulate(group []Keyframe, weights []float64) (*image.Gray, error) {
	b := group[0].Gray.Bounds()
	w, h := b.Dx(), b.Dy()
	acc := make([]float64, w*h)

	for k, kf := range group {
		kb := kf.Gray.Bounds()
		if kb.Dx() != w || kb.Dy() != h {
			return nil, fmt.Errorf("%w: %dx%d vs %dx%d", ErrSizeMismatch, w, h, kb.Dx(), kb.Dy())
		}
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				acc[y*w+x] += weights[k] * float64(grayAt(kf.Gray, x, y))
			}
		}
	}

	out := image.NewGray(image.Rect(0, 0, w, h))
	for i, v := range acc {
		out.Pix[i] = saturate(v)
	}
	return out, nil
}

// saturate truncates v toward zero and clamps it to [0, 255].
func saturate(v float64) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 255:
		return 255
	}
	return uint8(v)
}
