package contentdna

import "github.com/bread133/xk7-retail-group/pkg/models"

// AudioInput is a decoded PCM buffer. Samples are interleaved and at integer
// amplitude scale.
type AudioInput struct {
	Samples    []float64
	Channels   int
	SampleRate int
}

// DurationSec returns the buffer length in seconds.
func (in AudioInput) DurationSec() float64 {
	if in.Channels <= 0 || in.SampleRate <= 0 {
		return 0
	}
	return float64(len(in.Samples)/in.Channels) / float64(in.SampleRate)
}

// AddOptions selects which tracks of a container AddFile fingerprints.
type AddOptions struct {
	Title     string // defaults to the container title tag, then the file name
	SkipAudio bool
	SkipVideo bool
}

// MatchReport is the result of matching one query file.
type MatchReport struct {
	Audio       map[string][]models.MatchRange // content id → ranges
	Video       map[string][]models.VideoMatch // content id → verified video ranges
	QueryHashes int
	VideoHashes int
	DurationMs  int
}

// ContentInfo is a stored content with its fingerprint counts.
type ContentInfo struct {
	models.Content
	AudioHashes  int
	VideoRecords int
}
