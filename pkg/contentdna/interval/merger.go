// Package interval keeps an ordered list of disjoint integer intervals and
// merges new ones into it within a tolerance distance.
package interval

import "sort"

// Interval is a closed range with an opaque integer payload (a time offset
// for match ranges).
type Interval struct {
	Start   int
	End     int
	Payload int
}

// Span returns End - Start.
func (iv Interval) Span() int { return iv.End - iv.Start }

// Merger holds intervals sorted by Start and pairwise disjoint. After an
// Insert with distance d, no two adjacent intervals are within d of each
// other. A Merger is not safe for concurrent use.
type Merger struct {
	items []Interval
}

// NewMerger returns an empty Merger.
func NewMerger() *Merger {
	return &Merger{}
}

// Len returns the number of intervals held.
func (m *Merger) Len() int { return len(m.items) }

// Intervals returns a copy of the current intervals in order.
func (m *Merger) Intervals() []Interval {
	out := make([]Interval, len(m.items))
	copy(out, m.items)
	return out
}

// Insert adds v, merging it with every interval it overlaps or that lies
// within maxDistance of it. Merging may bring the result within maxDistance
// of further neighbors; those are folded in until none remain.
func (m *Merger) Insert(v Interval, maxDistance int) {
	if len(m.items) == 0 {
		m.items = append(m.items, v)
		return
	}

	n := len(m.items)
	idxStart := sort.Search(n, func(i int) bool { return m.items[i].Start >= v.Start })
	idxEnd := idxStart + sort.Search(n-idxStart, func(i int) bool { return m.items[idxStart+i].End >= v.End })

	if idxStart > 0 && v.Start-m.items[idxStart-1].End <= maxDistance {
		idxStart--
	}
	if idxEnd < n && m.items[idxEnd].Start-v.End <= maxDistance {
		idxEnd++
	}

	if idxStart == idxEnd {
		m.insertAt(idxStart, v)
	} else {
		m.mergeRange(idxStart, idxEnd, v)
	}

	m.cascade(idxStart, maxDistance)
}

// cascade folds neighbors of items[pos] into it while they are within
// maxDistance. The neighbor counts as the existing interval.
func (m *Merger) cascade(pos, maxDistance int) {
	for {
		cur := m.items[pos]
		switch {
		case pos > 0 && cur.Start-m.items[pos-1].End <= maxDistance:
			m.removeAt(pos)
			pos--
			m.mergeRange(pos, pos+1, cur)
		case pos < len(m.items)-1 && m.items[pos+1].Start-cur.End <= maxDistance:
			m.removeAt(pos)
			m.mergeRange(pos, pos+1, cur)
		default:
			return
		}
	}
}

// mergeRange replaces items[lo:hi] and v with one interval covering all of
// them. The payload of the rightmost existing interval is kept unless v spans
// strictly more than the existing range.
func (m *Merger) mergeRange(lo, hi int, v Interval) {
	first, last := m.items[lo], m.items[hi-1]

	merged := Interval{
		Start:   min(first.Start, v.Start),
		End:     max(last.End, v.End),
		Payload: last.Payload,
	}
	if last.End-first.Start < v.Span() {
		merged.Payload = v.Payload
	}

	m.items[lo] = merged
	if hi > lo+1 {
		m.items = append(m.items[:lo+1], m.items[hi:]...)
	}
}

func (m *Merger) insertAt(i int, v Interval) {
	m.items = append(m.items, Interval{})
	copy(m.items[i+1:], m.items[i:])
	m.items[i] = v
}

func (m *Merger) removeAt(i int) {
	m.items = append(m.items[:i], m.items[i+1:]...)
}
