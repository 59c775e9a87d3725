package media

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-audio/wav"
)

// WAV is a decoded PCM file. Samples are interleaved and keep the integer
// scale of the source bit depth.
type WAV struct {
	Samples    []float64
	Channels   int
	SampleRate int
	BitDepth   int
}

// DurationMs returns the length of the file in milliseconds.
func (w *WAV) DurationMs() int {
	if w.Channels == 0 || w.SampleRate == 0 {
		return 0
	}
	return len(w.Samples) / w.Channels * 1000 / w.SampleRate
}

// ReadWAV decodes a PCM WAV file.
func ReadWAV(path string) (*WAV, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	decoder := wav.NewDecoder(f)
	if !decoder.IsValidFile() {
		return nil, fmt.Errorf("%s: not a valid WAV file", path)
	}
	if decoder.WavAudioFormat != 1 {
		return nil, fmt.Errorf("%s: unsupported WAV audio format %d, only PCM (1) supported", path, decoder.WavAudioFormat)
	}

	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("reading samples from %s: %w", path, err)
	}
	if buf.Format == nil || buf.Format.NumChannels == 0 {
		return nil, errors.New("WAV file has no channels")
	}

	samples := make([]float64, len(buf.Data))
	for i, v := range buf.Data {
		samples[i] = float64(v)
	}

	return &WAV{
		Samples:    samples,
		Channels:   buf.Format.NumChannels,
		SampleRate: buf.Format.SampleRate,
		BitDepth:   int(decoder.BitDepth),
	}, nil
}
