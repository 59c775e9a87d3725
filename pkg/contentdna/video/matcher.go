package video

import (
	"errors"
	"fmt"
	"math/bits"

	"github.com/bread133/xk7-retail-group/pkg/models"
)

// Matching defaults, sized for 2781-component hashes.
const (
	HammingThresh = 9000
	MaxDiffTimeMs = 1000
	MinDurationMs = 5000
)

// ErrHashLengthMismatch is returned when two hashes have different lengths.
var ErrHashLengthMismatch = errors.New("hash lengths differ")

// MatchParams configures FindMatches.
type MatchParams struct {
	Thresh        int // runs continue while the Hamming distance is below this
	MaxDiffTimeMs int // tolerated drift between db and local record spacing
	MinDurationMs int // shortest emitted run, measured on the db side
}

// DefaultMatchParams returns the documented defaults.
func DefaultMatchParams() MatchParams {
	return MatchParams{
		Thresh:        HammingThresh,
		MaxDiffTimeMs: MaxDiffTimeMs,
		MinDurationMs: MinDurationMs,
	}
}

// Validate reports the first invalid field.
func (p MatchParams) Validate() error {
	switch {
	case p.Thresh < 1:
		return fmt.Errorf("hamming thresh %d: must be >= 1", p.Thresh)
	case p.MaxDiffTimeMs < 0:
		return fmt.Errorf("max diff time %dms: must be >= 0", p.MaxDiffTimeMs)
	case p.MinDurationMs < 0:
		return fmt.Errorf("min duration %dms: must be >= 0", p.MinDurationMs)
	}
	return nil
}

// Hamming returns the number of differing bits between a and b.
func Hamming(a, b []uint16) (int, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d vs %d", ErrHashLengthMismatch, len(a), len(b))
	}
	d := 0
	for i := range a {
		d += bits.OnesCount16(a[i] ^ b[i])
	}
	return d, nil
}

// FindMatches walks db and local in lockstep. Index i is skipped when the
// spacing to the next record differs by more than MaxDiffTimeMs between the
// two sequences; otherwise a run extends while the hashes stay within
// Thresh. A run spanning at least MinDurationMs of db time is emitted, and
// the walk resumes where the run ended.
func FindMatches(db, local []models.VideoFingerprint, p MatchParams) ([]models.VideoMatch, error) {
	n := min(len(db), len(local))

	var matches []models.VideoMatch
	i := 0
	for i < n-1 {
		dbStep := db[i+1].TimestampMs - db[i].TimestampMs
		localStep := local[i+1].TimestampMs - local[i].TimestampMs
		if abs(dbStep-localStep) > p.MaxDiffTimeMs {
			i++
			continue
		}

		start := i
		for i < n-1 {
			d, err := Hamming(db[i].Hash, local[i].Hash)
			if err != nil {
				return nil, fmt.Errorf("record %d: %w", i, err)
			}
			if d >= p.Thresh {
				break
			}
			i++
		}

		if i > start && db[i].TimestampMs-db[start].TimestampMs >= p.MinDurationMs {
			matches = append(matches, models.VideoMatch{
				DBStartMs:    db[start].TimestampMs,
				DBEndMs:      db[i].TimestampMs,
				LocalStartMs: local[start].TimestampMs,
				LocalEndMs:   local[i].TimestampMs,
			})
		}
		if i == start {
			i++
		}
	}
	return matches, nil
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
