package video

import (
	"fmt"
	"sort"

	"github.com/bread133/xk7-retail-group/pkg/models"
)

// BitsPerWord is the number of feature bits packed into one hash component.
const BitsPerWord = 10

// Median returns the median of f; for even lengths, the mean of the two
// middle values. f is not modified.
func Median(f []float64) float64 {
	s := make([]float64, len(f))
	copy(s, f)
	sort.Float64s(s)
	mid := len(s) / 2
	if len(s)%2 == 0 {
		return (s[mid-1] + s[mid]) / 2
	}
	return s[mid]
}

// HashFeatures thresholds f at its median (bit = f[i] >= median) and packs
// every 10 bits, most significant first, into one component in [0, 1023].
func HashFeatures(f []float64) ([]uint16, error) {
	if len(f) == 0 {
		return nil, fmt.Errorf("no features: %w", models.ErrEmptyInput)
	}
	if len(f)%BitsPerWord != 0 {
		return nil, fmt.Errorf("%d features: %w", len(f), models.ErrInvalidFeatureLength)
	}

	median := Median(f)
	packed := make([]uint16, len(f)/BitsPerWord)
	for i := range packed {
		var word uint16
		for _, x := range f[i*BitsPerWord : (i+1)*BitsPerWord] {
			word <<= 1
			if x >= median {
				word |= 1
			}
		}
		packed[i] = word
	}
	return packed, nil
}
