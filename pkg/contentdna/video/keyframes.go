// Package video fingerprints decoded video frames and matches fingerprint
// sequences.
package video

import (
	"fmt"
	"image"
	"image/draw"
	"math"

	"github.com/bread133/xk7-retail-group/pkg/models"
)

// Frame is one decoded video frame.
type Frame struct {
	Image       image.Image
	TimestampMs int
}

// Keyframe is a selected frame converted to grayscale.
type Keyframe struct {
	Gray        *image.Gray
	TimestampMs int
}

// ToGray converts img to 8-bit luma using ITU-R 601 weights. Gray images are
// returned as-is.
func ToGray(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok {
		return g
	}
	b := img.Bounds()
	g := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(g, g.Bounds(), img, b.Min, draw.Src)
	return g
}

// Decimate keeps the first frame of every 1/fps slot, where a frame's slot is
// floor(timestamp*fps/1000). fps <= 0 keeps every frame.
func Decimate(frames []Frame, fps float64) []Frame {
	if fps <= 0 {
		return frames
	}
	out := make([]Frame, 0, len(frames))
	last := math.MinInt
	for _, f := range frames {
		slot := int(math.Floor(float64(f.TimestampMs) * fps / 1000))
		if slot > last {
			out = append(out, f)
			last = slot
		}
	}
	return out
}

// SelectKeyframes decimates frames to fps and keeps each frame whose SSIM
// against the last kept keyframe falls below threshold. The first frame is
// always a keyframe.
func SelectKeyframes(frames []Frame, fps, threshold float64) ([]Keyframe, error) {
	frames = Decimate(frames, fps)
	if len(frames) == 0 {
		return nil, fmt.Errorf("no frames to select from: %w", models.ErrEmptyInput)
	}

	prev := ToGray(frames[0].Image)
	keyframes := []Keyframe{{Gray: prev, TimestampMs: frames[0].TimestampMs}}

	for _, f := range frames[1:] {
		cur := ToGray(f.Image)
		score, err := SSIM(prev, cur)
		if err != nil {
			return nil, fmt.Errorf("frame at %dms: %w", f.TimestampMs, err)
		}
		if score < threshold {
			keyframes = append(keyframes, Keyframe{Gray: cur, TimestampMs: f.TimestampMs})
			prev = cur
		}
	}
	return keyframes, nil
}

// grayAt returns the pixel at (x, y) relative to the image origin.
func grayAt(g *image.Gray, x, y int) uint8 {
	return g.GrayAt(g.Rect.Min.X+x, g.Rect.Min.Y+y).Y
}
