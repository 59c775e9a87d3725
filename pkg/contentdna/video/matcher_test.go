package video

import (
	"errors"
	"reflect"
	"testing"

	"github.com/bread133/xk7-retail-group/pkg/models"
)

func TestHamming(t *testing.T) {
	tests := []struct {
		a, b     []uint16
		expected int
	}{
		{[]uint16{5, 9}, []uint16{5, 9}, 0},
		{[]uint16{0b1010}, []uint16{0b0010}, 1},
		{[]uint16{0, 0}, []uint16{1023, 1023}, 20},
		{nil, nil, 0},
	}

	for _, tt := range tests {
		got, err := Hamming(tt.a, tt.b)
		if err != nil {
			t.Fatalf("Hamming(%v, %v) failed: %v", tt.a, tt.b, err)
		}
		if got != tt.expected {
			t.Errorf("Hamming(%v, %v) = %d, expected %d", tt.a, tt.b, got, tt.expected)
		}
	}

	if _, err := Hamming([]uint16{1}, []uint16{1, 2}); !errors.Is(err, ErrHashLengthMismatch) {
		t.Errorf("Expected ErrHashLengthMismatch, got %v", err)
	}
}

// records builds a sequence with one record per stepMs starting at startMs.
func records(startMs, stepMs int, hashes ...[]uint16) []models.VideoFingerprint {
	out := make([]models.VideoFingerprint, len(hashes))
	for i, h := range hashes {
		out[i] = models.VideoFingerprint{Hash: h, TimestampMs: startMs + i*stepMs}
	}
	return out
}

func repeat(h []uint16, n int) [][]uint16 {
	out := make([][]uint16, n)
	for i := range out {
		out[i] = h
	}
	return out
}

func TestFindMatches(t *testing.T) {
	same := []uint16{7, 300}
	other := []uint16{1023 - 7, 1023 - 300}
	params := MatchParams{Thresh: 3, MaxDiffTimeMs: 200, MinDurationMs: 5000}

	broken := repeat(same, 10)
	broken[5] = other

	tests := []struct {
		name  string
		db    []models.VideoFingerprint
		local []models.VideoFingerprint
		want  []models.VideoMatch
	}{
		{
			name:  "full run",
			db:    records(0, 1000, repeat(same, 10)...),
			local: records(30000, 1000, repeat(same, 10)...),
			want:  []models.VideoMatch{{DBStartMs: 0, DBEndMs: 9000, LocalStartMs: 30000, LocalEndMs: 39000}},
		},
		{
			name:  "run broken by a differing record",
			db:    records(0, 1000, repeat(same, 10)...),
			local: records(0, 1000, broken...),
			want:  []models.VideoMatch{{DBStartMs: 0, DBEndMs: 5000, LocalStartMs: 0, LocalEndMs: 5000}},
		},
		{
			name:  "too short",
			db:    records(0, 1000, repeat(same, 4)...),
			local: records(0, 1000, repeat(same, 4)...),
			want:  nil,
		},
		{
			name:  "spacing drift skips every index",
			db:    records(0, 1000, repeat(same, 10)...),
			local: records(0, 3000, repeat(same, 10)...),
			want:  nil,
		},
		{
			name:  "lockstep uses the shorter sequence",
			db:    records(0, 1000, repeat(same, 20)...),
			local: records(0, 1000, repeat(same, 7)...),
			want:  []models.VideoMatch{{DBStartMs: 0, DBEndMs: 6000, LocalStartMs: 0, LocalEndMs: 6000}},
		},
		{
			name:  "empty",
			db:    nil,
			local: records(0, 1000, repeat(same, 3)...),
			want:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FindMatches(tt.db, tt.local, params)
			if err != nil {
				t.Fatalf("FindMatches failed: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("FindMatches = %+v, expected %+v", got, tt.want)
			}
		})
	}
}

func TestFindMatchesLengthMismatch(t *testing.T) {
	db := records(0, 1000, []uint16{1, 2}, []uint16{1, 2})
	local := records(0, 1000, []uint16{1}, []uint16{1})

	_, err := FindMatches(db, local, DefaultMatchParams())
	if !errors.Is(err, ErrHashLengthMismatch) {
		t.Errorf("Expected ErrHashLengthMismatch, got %v", err)
	}
}

func TestMatchParamsValidate(t *testing.T) {
	if err := DefaultMatchParams().Validate(); err != nil {
		t.Errorf("Expected defaults to be valid, got %v", err)
	}
	bad := []MatchParams{
		{Thresh: 0, MaxDiffTimeMs: 1, MinDurationMs: 1},
		{Thresh: 1, MaxDiffTimeMs: -1, MinDurationMs: 1},
		{Thresh: 1, MaxDiffTimeMs: 1, MinDurationMs: -1},
	}
	for _, p := range bad {
		if err := p.Validate(); err == nil {
			t.Errorf("Expected error for %+v", p)
		}
	}
}
