// Package media decodes containers into the buffers the fingerprinters take.
// It shells out to ffmpeg and ffprobe, which must be on PATH.
package media

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/bread133/xk7-retail-group/pkg/contentdna/video"
	"github.com/bread133/xk7-retail-group/pkg/utils"
)

const (
	DefaultSampleRate = 11025

	extractTimeout = 2 * time.Minute
	decodeTimeout  = 10 * time.Minute
)

type ExtractConfig struct {
	SampleRate int
}

// ExtractAudioWAV writes the audio track of inputPath to outputDir as a mono
// 16-bit PCM WAV and returns its path.
func ExtractAudioWAV(ctx context.Context, inputPath, outputDir string, cfg ExtractConfig) (string, error) {
	if cfg.SampleRate == 0 {
		cfg.SampleRate = DefaultSampleRate
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, extractTimeout)
		defer cancel()
	}

	if err := utils.MakeDir(outputDir); err != nil {
		return "", err
	}

	baseName := strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath))
	outputPath := filepath.Join(outputDir, baseName+"."+utils.GenerateUUID()+".wav")

	tmpPath := outputPath + ".tmp.wav"
	defer os.Remove(tmpPath)

	cmd := exec.CommandContext(
		ctx,
		"ffmpeg",
		"-y",
		"-v", "error",
		"-i", inputPath,
		"-vn",      // drop video
		"-ac", "1", // mono
		"-ar", strconv.Itoa(cfg.SampleRate),
		"-c:a", "pcm_s16le",
		tmpPath,
	)

	if out, err := cmd.CombinedOutput(); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("ffmpeg audio extraction failed: %v (%s)", err, bytes.TrimSpace(out))
	}

	if err := utils.MoveFile(tmpPath, outputPath); err != nil {
		return "", err
	}

	return outputPath, nil
}

type DecodeConfig struct {
	FPS    float64
	Width  int
	Height int
}

// DecodeVideoFrames decodes inputPath into gray frames of the configured size,
// resampled to cfg.FPS. Frame i is stamped at i*1000/FPS ms.
func DecodeVideoFrames(ctx context.Context, inputPath string, cfg DecodeConfig) ([]video.Frame, error) {
	if cfg.FPS <= 0 {
		cfg.FPS = video.TargetFPS
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		cfg.Width, cfg.Height = video.FrameWidth, video.FrameHeight
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, decodeTimeout)
		defer cancel()
	}

	cmd := exec.CommandContext(
		ctx,
		"ffmpeg",
		"-v", "error",
		"-i", inputPath,
		"-an",
		"-vf", fmt.Sprintf("fps=%s,scale=%d:%d", strconv.FormatFloat(cfg.FPS, 'f', -1, 64), cfg.Width, cfg.Height),
		"-pix_fmt", "gray",
		"-f", "rawvideo",
		"-",
	)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting ffmpeg: %w", err)
	}

	frames, readErr := readRawFrames(bufio.NewReader(stdout), cfg)
	waitErr := cmd.Wait()

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if waitErr != nil {
		return nil, fmt.Errorf("ffmpeg video decode failed: %v (%s)", waitErr, bytes.TrimSpace(stderr.Bytes()))
	}
	if readErr != nil {
		return nil, readErr
	}
	return frames, nil
}

// readRawFrames splits a gray rawvideo stream into frames. A trailing partial
// frame is an error.
func readRawFrames(r io.Reader, cfg DecodeConfig) ([]video.Frame, error) {
	size := cfg.Width * cfg.Height
	var frames []video.Frame
	for i := 0; ; i++ {
		img := image.NewGray(image.Rect(0, 0, cfg.Width, cfg.Height))
		_, err := io.ReadFull(r, img.Pix[:size])
		if errors.Is(err, io.EOF) {
			return frames, nil
		}
		if err != nil {
			return nil, fmt.Errorf("reading frame %d: %w", i, err)
		}
		frames = append(frames, video.Frame{
			Image:       img,
			TimestampMs: int(float64(i) * 1000 / cfg.FPS),
		})
	}
}
