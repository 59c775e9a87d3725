package media

import (
	"errors"
	"image"
	"image/draw"

	"github.com/eligwz/spectrogram"
)

// Spectrogram image size
const (
	PlotWidth  = 2048
	PlotHeight = 512
)

// RenderSpectrogram draws the first channel of w as a magnitude spectrogram
// and saves it as a PNG at outputPath.
func RenderSpectrogram(w *WAV, outputPath string) error {
	if w == nil || len(w.Samples) == 0 || w.Channels == 0 {
		return errors.New("no samples to plot")
	}

	// normalize to [-1, 1]
	scale := 1.0
	if w.BitDepth > 0 {
		scale = float64(int(1) << (uint(w.BitDepth) - 1))
	}
	samples := make([]float64, 0, len(w.Samples)/w.Channels)
	for i := 0; i < len(w.Samples); i += w.Channels {
		samples = append(samples, w.Samples[i]/scale)
	}

	img := spectrogram.NewImage128(image.Rect(0, 0, PlotWidth, PlotHeight))
	black := spectrogram.ParseColor("000000")
	draw.Draw(img, img.Bounds(), image.NewUniform(black), image.Point{}, draw.Src)

	// Hamming window, FFT, linear magnitude
	spectrogram.Drawfft(
		img,
		samples,
		uint32(w.SampleRate),
		uint32(PlotHeight),
		false,
		false,
		true,
		false,
	)

	return spectrogram.SavePng(img, outputPath)
}
