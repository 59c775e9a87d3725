package video

import (
	"fmt"
	"image"
	"math"

	"gonum.org/v1/gonum/floats"
)

// CosineBasis returns v[k] = cos((k+0.5)·π/(2w)) for k in [0, 2w].
func CosineBasis(w int) []float64 {
	v := make([]float64, 2*w+1)
	for k := range v {
		v[k] = math.Cos((float64(k) + 0.5) * math.Pi / float64(2*w))
	}
	return v
}

// ProjectPatches projects the (2w+1)×(2w+1) zero-padded patch around every
// pixel of the (H-1)×(W-1) top-left grid onto the cosine basis. alpha[i] is
// the basis applied to the patch's row sums, beta[i] to its column sums. The
// result is alpha followed by beta, each in row-major order.
func ProjectPatches(tiri *image.Gray, w int) ([]float64, error) {
	if w < 1 {
		return nil, fmt.Errorf("window radius %d: must be >= 1", w)
	}
	b := tiri.Bounds()
	width, height := b.Dx(), b.Dy()
	if width < 2 || height < 2 {
		return nil, nil
	}

	v := CosineBasis(w)
	side := len(v)
	rows, cols := height-1, width-1
	n := rows * cols

	f := make([]float64, 2*n)
	rowSums := make([]float64, side)
	colSums := make([]float64, side)

	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			for k := range rowSums {
				rowSums[k] = 0
				colSums[k] = 0
			}
			for a := 0; a < side; a++ {
				y := r - w + a
				if y < 0 || y >= height {
					continue
				}
				for bb := 0; bb < side; bb++ {
					x := c - w + bb
					if x < 0 || x >= width {
						continue
					}
					p := float64(grayAt(tiri, x, y))
					rowSums[a] += p
					colSums[bb] += p
				}
			}
			i := r*cols + c
			f[i] = floats.Dot(v, rowSums)
			f[n+i] = floats.Dot(v, colSums)
		}
	}
	return f, nil
}
