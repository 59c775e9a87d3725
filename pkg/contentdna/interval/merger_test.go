package interval

import (
	"math/rand"
	"reflect"
	"testing"
)

func build(d int, ivs ...Interval) *Merger {
	m := NewMerger()
	for _, iv := range ivs {
		m.Insert(iv, d)
	}
	return m
}

// checkInvariant fails the test unless intervals are sorted, disjoint, and
// more than d apart.
func checkInvariant(t *testing.T, m *Merger, d int) {
	t.Helper()
	items := m.Intervals()
	for i := 1; i < len(items); i++ {
		prev, cur := items[i-1], items[i]
		if cur.Start <= prev.Start {
			t.Fatalf("not sorted at %d: %+v then %+v", i, prev, cur)
		}
		if cur.Start-prev.End <= d {
			t.Fatalf("gap at %d is within %d: %+v then %+v", i, d, prev, cur)
		}
	}
}

func TestInsertExample(t *testing.T) {
	m := build(5, Interval{10, 20, 1}, Interval{22, 30, 2})

	want := []Interval{{10, 30, 1}}
	if got := m.Intervals(); !reflect.DeepEqual(got, want) {
		t.Errorf("Intervals = %+v, expected %+v", got, want)
	}
}

func TestInsert(t *testing.T) {
	tests := []struct {
		name   string
		d      int
		inputs []Interval
		want   []Interval
	}{
		{
			name:   "single",
			d:      2,
			inputs: []Interval{{5, 9, 0}},
			want:   []Interval{{5, 9, 0}},
		},
		{
			name:   "disjoint kept in order",
			d:      2,
			inputs: []Interval{{30, 40, 3}, {0, 5, 1}, {15, 20, 2}},
			want:   []Interval{{0, 5, 1}, {15, 20, 2}, {30, 40, 3}},
		},
		{
			name:   "gap equal to distance merges",
			d:      2,
			inputs: []Interval{{0, 5, 1}, {7, 9, 2}},
			want:   []Interval{{0, 9, 1}},
		},
		{
			name:   "gap above distance stays apart",
			d:      2,
			inputs: []Interval{{0, 5, 1}, {8, 9, 2}},
			want:   []Interval{{0, 5, 1}, {8, 9, 2}},
		},
		{
			name:   "longer incoming payload wins",
			d:      1,
			inputs: []Interval{{10, 12, 1}, {11, 30, 7}},
			want:   []Interval{{10, 30, 7}},
		},
		{
			name:   "equal span keeps existing payload",
			d:      1,
			inputs: []Interval{{10, 20, 1}, {15, 25, 7}},
			want:   []Interval{{10, 25, 1}},
		},
		{
			name:   "contained interval is absorbed",
			d:      0,
			inputs: []Interval{{0, 100, 4}, {10, 20, 9}},
			want:   []Interval{{0, 100, 4}},
		},
		{
			name:   "bridge merges both sides",
			d:      1,
			inputs: []Interval{{0, 10, 1}, {20, 30, 2}, {11, 19, 3}},
			want:   []Interval{{0, 30, 2}},
		},
		{
			name:   "covering interval swallows several",
			d:      0,
			inputs: []Interval{{2, 3, 1}, {5, 6, 2}, {8, 9, 3}, {0, 50, 4}},
			want:   []Interval{{0, 50, 4}},
		},
		{
			name:   "rightmost payload wins on multi merge",
			d:      0,
			inputs: []Interval{{0, 10, 1}, {12, 20, 2}, {9, 13, 3}},
			want:   []Interval{{0, 20, 2}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := build(tt.d, tt.inputs...)
			if got := m.Intervals(); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Intervals = %+v, expected %+v", got, tt.want)
			}
			checkInvariant(t, m, tt.d)
		})
	}
}

func TestInsertCascade(t *testing.T) {
	m := build(1, Interval{0, 5, 1}, Interval{10, 15, 2})

	// built with a tighter distance first, then a wider insert reaches both
	m.Insert(Interval{20, 22, 3}, 5)

	want := []Interval{{0, 22, 2}}
	if got := m.Intervals(); !reflect.DeepEqual(got, want) {
		t.Errorf("Intervals = %+v, expected %+v", got, want)
	}
	checkInvariant(t, m, 5)
}

func TestInsertIdempotent(t *testing.T) {
	m := build(2, Interval{0, 5, 1}, Interval{20, 30, 2}, Interval{50, 52, 3})
	before := m.Intervals()

	for _, iv := range before {
		m.Insert(iv, 2)
	}

	if got := m.Intervals(); !reflect.DeepEqual(got, before) {
		t.Errorf("Re-inserting changed the list: %+v, expected %+v", got, before)
	}
}

func TestInsertRandomInvariant(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for _, d := range []int{0, 1, 2, 5} {
		m := NewMerger()
		covered := make(map[int]bool)
		for i := 0; i < 300; i++ {
			start := rng.Intn(1000)
			iv := Interval{Start: start, End: start + rng.Intn(15), Payload: rng.Intn(10)}
			m.Insert(iv, d)
			for x := iv.Start; x <= iv.End; x++ {
				covered[x] = true
			}
			checkInvariant(t, m, d)
		}

		// every inserted point stays covered
		items := m.Intervals()
		for x := range covered {
			found := false
			for _, iv := range items {
				if x >= iv.Start && x <= iv.End {
					found = true
					break
				}
			}
			if !found {
				t.Fatalf("d=%d: point %d lost after merging", d, x)
			}
		}
	}
}

func TestIntervalsReturnsCopy(t *testing.T) {
	m := build(0, Interval{0, 5, 1})
	items := m.Intervals()
	items[0].Start = 99

	if m.Intervals()[0].Start != 0 {
		t.Error("Intervals should return a copy")
	}
}
