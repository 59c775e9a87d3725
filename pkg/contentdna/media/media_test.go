package media

import (
	"bytes"
	"context"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// writeTestWAV writes a 16-bit PCM sine tone.
func writeTestWAV(t *testing.T, path string, rate, channels, n int) []int {
	t.Helper()

	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("Failed to create wav: %v", err)
	}
	defer f.Close()

	data := make([]int, n*channels)
	for i := 0; i < n; i++ {
		v := int(10000 * math.Sin(2*math.Pi*440*float64(i)/float64(rate)))
		for c := 0; c < channels; c++ {
			data[i*channels+c] = v
		}
	}

	enc := wav.NewEncoder(f, rate, 16, channels, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: channels, SampleRate: rate},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatalf("Failed to write samples: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("Failed to close encoder: %v", err)
	}
	return data
}

func TestReadWAV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tone.wav")
	want := writeTestWAV(t, path, 8000, 2, 4000)

	w, err := ReadWAV(path)
	if err != nil {
		t.Fatalf("ReadWAV failed: %v", err)
	}
	if w.Channels != 2 || w.SampleRate != 8000 || w.BitDepth != 16 {
		t.Errorf("Unexpected format: %d channels, %d Hz, %d bits", w.Channels, w.SampleRate, w.BitDepth)
	}
	if len(w.Samples) != len(want) {
		t.Fatalf("Expected %d samples, got %d", len(want), len(w.Samples))
	}
	for i, v := range want {
		if w.Samples[i] != float64(v) {
			t.Fatalf("Sample %d: got %v, want %d", i, w.Samples[i], v)
		}
	}
	if got := w.DurationMs(); got != 500 {
		t.Errorf("Expected 500ms, got %d", got)
	}
}

func TestReadWAVRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "junk.wav")
	if err := os.WriteFile(path, []byte("definitely not riff"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadWAV(path); err == nil {
		t.Error("Expected error for invalid WAV")
	}
	if _, err := ReadWAV(filepath.Join(t.TempDir(), "missing.wav")); err == nil {
		t.Error("Expected error for missing file")
	}
}

func TestRenderSpectrogram(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tone.wav")
	writeTestWAV(t, path, 8000, 1, 8000)

	w, err := ReadWAV(path)
	if err != nil {
		t.Fatalf("ReadWAV failed: %v", err)
	}
	out := filepath.Join(dir, "tone.png")
	if err := RenderSpectrogram(w, out); err != nil {
		t.Fatalf("RenderSpectrogram failed: %v", err)
	}
	if st, err := os.Stat(out); err != nil || st.Size() == 0 {
		t.Errorf("Expected non-empty PNG, got %v", err)
	}

	if err := RenderSpectrogram(&WAV{}, out); err == nil {
		t.Error("Expected error for empty WAV")
	}
}

func TestParseRate(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"25/1", 25},
		{"30000/1001", 30000.0 / 1001},
		{"0/0", 0},
		{"12.5", 12.5},
		{"", 0},
		{"x/2", 0},
	}
	for _, tt := range tests {
		if got := parseRate(tt.in); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("parseRate(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestParseProbe(t *testing.T) {
	out := []byte(`{
		"format": {"filename": "/x/clip.mp4", "duration": "12.345", "format_name": "mov,mp4", "tags": {"title": "Clip"}},
		"streams": [
			{"codec_type": "video", "width": 640, "height": 360, "avg_frame_rate": "0/0", "r_frame_rate": "25/1"},
			{"codec_type": "audio", "sample_rate": "44100", "channels": 2}
		]
	}`)
	info, err := parseProbe("/x/clip.mp4", out)
	if err != nil {
		t.Fatalf("parseProbe failed: %v", err)
	}
	if !info.HasAudio || !info.HasVideo {
		t.Errorf("Expected both tracks, got %+v", info)
	}
	if info.Filename != "clip.mp4" || info.Title != "Clip" {
		t.Errorf("Unexpected names %q %q", info.Filename, info.Title)
	}
	if info.SampleRate != 44100 || info.Channels != 2 || info.Width != 640 || info.Height != 360 || info.FPS != 25 {
		t.Errorf("Unexpected stream info %+v", info)
	}
	if info.DurationMs() != 12345 {
		t.Errorf("Expected 12345ms, got %d", info.DurationMs())
	}

	if _, err := parseProbe("x", []byte(`{"streams": [{"codec_type": "data"}]}`)); err == nil {
		t.Error("Expected error with no media streams")
	}
}

func TestReadRawFrames(t *testing.T) {
	cfg := DecodeConfig{FPS: 4, Width: 3, Height: 2}
	raw := make([]byte, 3*6)
	for i := range raw {
		raw[i] = byte(i)
	}

	frames, err := readRawFrames(bytes.NewReader(raw), cfg)
	if err != nil {
		t.Fatalf("readRawFrames failed: %v", err)
	}
	if len(frames) != 3 {
		t.Fatalf("Expected 3 frames, got %d", len(frames))
	}
	for i, f := range frames {
		if f.TimestampMs != i*250 {
			t.Errorf("Frame %d at %dms, want %dms", i, f.TimestampMs, i*250)
		}
		b := f.Image.Bounds()
		if b.Dx() != 3 || b.Dy() != 2 {
			t.Errorf("Frame %d has size %dx%d", i, b.Dx(), b.Dy())
		}
	}

	if _, err := readRawFrames(bytes.NewReader(raw[:8]), cfg); err == nil {
		t.Error("Expected error for truncated frame")
	}
}

func TestExtractAudioWAV(t *testing.T) {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		t.Skip("ffmpeg not installed")
	}

	dir := t.TempDir()
	in := filepath.Join(dir, "stereo.wav")
	writeTestWAV(t, in, 22050, 2, 22050)

	out, err := ExtractAudioWAV(context.Background(), in, filepath.Join(dir, "out"), ExtractConfig{SampleRate: 11025})
	if err != nil {
		t.Fatalf("ExtractAudioWAV failed: %v", err)
	}
	w, err := ReadWAV(out)
	if err != nil {
		t.Fatalf("ReadWAV failed: %v", err)
	}
	if w.Channels != 1 || w.SampleRate != 11025 {
		t.Errorf("Expected mono 11025 Hz, got %d channels at %d Hz", w.Channels, w.SampleRate)
	}
}
