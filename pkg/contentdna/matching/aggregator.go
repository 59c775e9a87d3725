// Package matching turns raw hash collisions into consolidated match ranges.
package matching

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/bread133/xk7-retail-group/pkg/contentdna/interval"
	"github.com/bread133/xk7-retail-group/pkg/models"
)

const (
	MaxDiffS       = 2  // largest gap (s) between consecutive hits of one run
	MinDurationS   = 10 // shortest reported range (s)
	StitchDistance = 5  // cross-bucket merge distance (s)
	EdgeClampS     = 5  // ranges this close to either end snap to it

	// a run needs more than this many gaps' worth of members: j - i >= minRunGaps
	minRunGaps = 2
)

// Params configures the aggregator.
type Params struct {
	MaxDiffS       int
	MinDurationS   int
	BucketDistance int // per-bucket merge distance
	StitchDistance int
	EdgeClampS     int
	Workers        int // AggregateAll concurrency
}

// DefaultParams returns the documented defaults.
func DefaultParams() Params {
	return Params{
		MaxDiffS:       MaxDiffS,
		MinDurationS:   MinDurationS,
		BucketDistance: MaxDiffS,
		StitchDistance: StitchDistance,
		EdgeClampS:     EdgeClampS,
		Workers:        runtime.NumCPU(),
	}
}

// Validate reports the first invalid field.
func (p Params) Validate() error {
	switch {
	case p.MaxDiffS < 0:
		return fmt.Errorf("max diff %ds: must be >= 0", p.MaxDiffS)
	case p.MinDurationS < 0:
		return fmt.Errorf("min duration %ds: must be >= 0", p.MinDurationS)
	case p.BucketDistance < 0:
		return fmt.Errorf("bucket distance %ds: must be >= 0", p.BucketDistance)
	case p.StitchDistance < 0:
		return fmt.Errorf("stitch distance %ds: must be >= 0", p.StitchDistance)
	case p.EdgeClampS < 0:
		return fmt.Errorf("edge clamp %ds: must be >= 0", p.EdgeClampS)
	case p.Workers < 1:
		return fmt.Errorf("workers %d: must be >= 1", p.Workers)
	}
	return nil
}

// Aggregator groups raw matches by time offset and merges them into ranges.
// It holds no state between calls and is safe for concurrent use.
type Aggregator struct {
	params Params
}

// NewAggregator validates p and returns an Aggregator.
func NewAggregator(p Params) (*Aggregator, error) {
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("invalid match params: %w", err)
	}
	return &Aggregator{params: p}, nil
}

// Aggregate consolidates the raw matches of a single content into ranges of
// query seconds. durationSec is the query duration; 0 disables the end clamp.
func (a *Aggregator) Aggregate(rows []models.RawMatch, durationSec float64) []models.MatchRange {
	p := a.params

	// 1. Bucket local timestamps by offset second
	buckets := make(map[int][]int)
	for _, r := range rows {
		diff := floorDiv(r.StoredMs-r.LocalMs, 1000)
		buckets[diff] = append(buckets[diff], r.LocalMs)
	}
	diffs := make([]int, 0, len(buckets))
	for d := range buckets {
		diffs = append(diffs, d)
	}
	sort.Ints(diffs)

	// 2. Runs per bucket, stitched across buckets
	stitched := interval.NewMerger()
	for _, diff := range diffs {
		local := a.bucketIntervals(diff, buckets[diff])
		for _, iv := range local.Intervals() {
			if iv.Span() >= p.MinDurationS {
				stitched.Insert(iv, p.StitchDistance)
			}
		}
	}

	result := stitched.Intervals()
	if len(result) == 0 {
		return nil
	}

	// 3. Clamp to the query edges
	if result[0].Start <= p.EdgeClampS {
		result[0].Start = 0
	}
	if durationSec > 0 {
		end := int(math.Floor(durationSec))
		last := &result[len(result)-1]
		if end-last.End <= p.EdgeClampS {
			last.End = end
		}
	}

	// 4. Drop short ranges
	out := make([]models.MatchRange, 0, len(result))
	for _, iv := range result {
		if iv.Span() > p.MinDurationS {
			out = append(out, models.MatchRange{StartSec: iv.Start, EndSec: iv.End, OffsetSec: iv.Payload})
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// bucketIntervals scans the sorted timestamps of one offset bucket for runs
// whose consecutive gaps stay within MaxDiffS and merges them.
func (a *Aggregator) bucketIntervals(diff int, times []int) *interval.Merger {
	p := a.params
	merger := interval.NewMerger()
	if len(times) <= minRunGaps {
		return merger
	}
	sort.Ints(times)

	for i := 0; i < len(times); {
		j := i
		for j < len(times)-1 && floorDiv(times[j+1]-times[j], 1000) <= p.MaxDiffS {
			j++
		}
		if j-i >= minRunGaps {
			start := floorDiv(times[i], 1000)
			offset := diff
			// floor rounds a negative offset one second too far
			if start+diff < 0 {
				offset++
			}
			merger.Insert(interval.Interval{Start: start, End: floorDiv(times[j], 1000), Payload: offset}, p.BucketDistance)
		}
		i = j + 1
	}
	return merger
}

// AggregateAll splits rows by content id and aggregates each content in
// parallel. Contents without a surviving range are omitted.
func (a *Aggregator) AggregateAll(ctx context.Context, rows []models.RawMatch, durationSec float64) (map[string][]models.MatchRange, error) {
	byContent := make(map[string][]models.RawMatch)
	for _, r := range rows {
		byContent[r.ContentID] = append(byContent[r.ContentID], r)
	}

	var mu sync.Mutex
	results := make(map[string][]models.MatchRange, len(byContent))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(a.params.Workers)
	for id, contentRows := range byContent {
		id, contentRows := id, contentRows
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			ranges := a.Aggregate(contentRows, durationSec)
			if len(ranges) == 0 {
				return nil
			}
			mu.Lock()
			results[id] = ranges
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("aggregate matches: %w", err)
	}
	return results, nil
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
