package video

import (
	"errors"
	"fmt"
	"image"

	"gonum.org/v1/gonum/stat"
)

// SSIM constants for 8-bit frames and a 7×7 uniform window.
const (
	ssimWindow    = 7
	ssimK1        = 0.01
	ssimK2        = 0.03
	ssimDataRange = 255.0
)

var (
	ssimC1 = (ssimK1 * ssimDataRange) * (ssimK1 * ssimDataRange)
	ssimC2 = (ssimK2 * ssimDataRange) * (ssimK2 * ssimDataRange)
)

// ErrSizeMismatch is returned when two frames being compared differ in size.
var ErrSizeMismatch = errors.New("frame sizes differ")

// SSIM returns the mean structural similarity of two equally sized gray
// frames. Statistics use a 7×7 uniform window with sample covariance, and
// the mean is taken over window centers that keep the window inside the
// frame. Frames smaller than the window are compared with global statistics.
func SSIM(a, b *image.Gray) (float64, error) {
	ra, rb := a.Bounds(), b.Bounds()
	if ra.Dx() != rb.Dx() || ra.Dy() != rb.Dy() {
		return 0, fmt.Errorf("%w: %dx%d vs %dx%d", ErrSizeMismatch, ra.Dx(), ra.Dy(), rb.Dx(), rb.Dy())
	}
	w, h := ra.Dx(), ra.Dy()
	if w == 0 || h == 0 {
		return 0, fmt.Errorf("empty frame %dx%d", w, h)
	}

	x := grayValues(a)
	y := grayValues(b)
	if w < ssimWindow || h < ssimWindow {
		return globalSSIM(x, y), nil
	}

	ix := newIntegral(x, w, h)
	iy := newIntegral(y, w, h)
	ixx := newIntegralProduct(x, x, w, h)
	iyy := newIntegralProduct(y, y, w, h)
	ixy := newIntegralProduct(x, y, w, h)

	const np = ssimWindow * ssimWindow
	const covNorm = float64(np) / float64(np-1)
	const half = ssimWindow / 2

	var sum float64
	var count int
	for r := half; r < h-half; r++ {
		for c := half; c < w-half; c++ {
			r0, c0, r1, c1 := r-half, c-half, r+half+1, c+half+1
			ux := ix.sum(r0, c0, r1, c1) / np
			uy := iy.sum(r0, c0, r1, c1) / np
			uxx := ixx.sum(r0, c0, r1, c1) / np
			uyy := iyy.sum(r0, c0, r1, c1) / np
			uxy := ixy.sum(r0, c0, r1, c1) / np

			vx := covNorm * (uxx - ux*ux)
			vy := covNorm * (uyy - uy*uy)
			vxy := covNorm * (uxy - ux*uy)

			sum += ssimIndex(ux, uy, vx, vy, vxy)
			count++
		}
	}
	return sum / float64(count), nil
}

func ssimIndex(ux, uy, vx, vy, vxy float64) float64 {
	return ((2*ux*uy + ssimC1) * (2*vxy + ssimC2)) /
		((ux*ux + uy*uy + ssimC1) * (vx + vy + ssimC2))
}

// globalSSIM treats the whole frame as one window.
func globalSSIM(x, y []float64) float64 {
	if len(x) < 2 {
		ux, uy := x[0], y[0]
		return ssimIndex(ux, uy, 0, 0, 0)
	}
	ux, vx := stat.MeanVariance(x, nil)
	uy, vy := stat.MeanVariance(y, nil)
	vxy := stat.Covariance(x, y, nil)
	return ssimIndex(ux, uy, vx, vy, vxy)
}

// grayValues copies the frame's pixels row-major into float64s.
func grayValues(g *image.Gray) []float64 {
	r := g.Bounds()
	w, h := r.Dx(), r.Dy()
	out := make([]float64, 0, w*h)
	for y := r.Min.Y; y < r.Max.Y; y++ {
		off := g.PixOffset(r.Min.X, y)
		for _, p := range g.Pix[off : off+w] {
			out = append(out, float64(p))
		}
	}
	return out
}

// integral is a summed-area table with one row and column of zero padding.
type integral struct {
	w   int
	tab []float64
}

func newIntegral(x []float64, w, h int) *integral {
	it := &integral{w: w + 1, tab: make([]float64, (w+1)*(h+1))}
	for r := 0; r < h; r++ {
		var row float64
		for c := 0; c < w; c++ {
			row += x[r*w+c]
			it.tab[(r+1)*it.w+c+1] = it.tab[r*it.w+c+1] + row
		}
	}
	return it
}

// newIntegralProduct builds the table over x[i]*y[i].
func newIntegralProduct(x, y []float64, w, h int) *integral {
	it := &integral{w: w + 1, tab: make([]float64, (w+1)*(h+1))}
	for r := 0; r < h; r++ {
		var row float64
		for c := 0; c < w; c++ {
			i := r*w + c
			row += x[i] * y[i]
			it.tab[(r+1)*it.w+c+1] = it.tab[r*it.w+c+1] + row
		}
	}
	return it
}

// sum returns the total over rows [r0, r1) and columns [c0, c1).
func (it *integral) sum(r0, c0, r1, c1 int) float64 {
	return it.tab[r1*it.w+c1] - it.tab[r0*it.w+c1] - it.tab[r1*it.w+c0] + it.tab[r0*it.w+c0]
}
