package fingerprint

import "math"

// gridIndex buckets peaks into square cells over the (frame, bin) plane for
// radius queries.
type gridIndex struct {
	cell  float64
	peaks []Peak
	cells map[[2]int][]int
}

func newGridIndex(peaks []Peak, cell float64) *gridIndex {
	if cell < 1 {
		cell = 1
	}
	g := &gridIndex{
		cell:  cell,
		peaks: peaks,
		cells: make(map[[2]int][]int, len(peaks)/4+1),
	}
	for i, p := range peaks {
		key := g.key(float64(p.FrameIdx), float64(p.FreqBin))
		g.cells[key] = append(g.cells[key], i)
	}
	return g
}

func (g *gridIndex) key(x, y float64) [2]int {
	return [2]int{int(math.Floor(x / g.cell)), int(math.Floor(y / g.cell))}
}

// within appends to dst the indices of peaks whose Euclidean distance from
// center is at most radius. Order is unspecified.
func (g *gridIndex) within(center Peak, radius float64, dst []int) []int {
	cx, cy := float64(center.FrameIdx), float64(center.FreqBin)
	lo := g.key(cx-radius, cy-radius)
	hi := g.key(cx+radius, cy+radius)
	r2 := radius*radius + 1e-9

	for x := lo[0]; x <= hi[0]; x++ {
		for y := lo[1]; y <= hi[1]; y++ {
			for _, i := range g.cells[[2]int{x, y}] {
				p := g.peaks[i]
				dx := float64(p.FrameIdx) - cx
				dy := float64(p.FreqBin) - cy
				if dx*dx+dy*dy <= r2 {
					dst = append(dst, i)
				}
			}
		}
	}
	return dst
}
