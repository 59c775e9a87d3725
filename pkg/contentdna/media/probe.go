package media

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const probeTimeout = 10 * time.Second

// Info is what ffprobe reports about a container.
type Info struct {
	Filename    string
	Title       string
	Format      string
	DurationSec float64
	HasAudio    bool
	HasVideo    bool
	SampleRate  int
	Channels    int
	Width       int
	Height      int
	FPS         float64
}

// DurationMs returns the container duration rounded down to milliseconds.
func (i *Info) DurationMs() int {
	return int(i.DurationSec * 1000)
}

type ffprobeOutput struct {
	Format struct {
		Filename string            `json:"filename"`
		Duration string            `json:"duration"`
		Format   string            `json:"format_name"`
		Tags     map[string]string `json:"tags"`
	} `json:"format"`
	Streams []ffprobeStream `json:"streams"`
}

type ffprobeStream struct {
	CodecType    string `json:"codec_type"`
	SampleRate   string `json:"sample_rate"`
	Channels     int    `json:"channels"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	AvgFrameRate string `json:"avg_frame_rate"`
	RFrameRate   string `json:"r_frame_rate"`
}

func (p *ffprobeOutput) firstStream(kind string) *ffprobeStream {
	for i := range p.Streams {
		if p.Streams[i].CodecType == kind {
			return &p.Streams[i]
		}
	}
	return nil
}

// Probe runs ffprobe on path.
func Probe(ctx context.Context, path string) (*Info, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, probeTimeout)
		defer cancel()
	}

	cmd := exec.CommandContext(
		ctx,
		"ffprobe",
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	)

	out, err := cmd.Output()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("ffprobe %s: %w", path, err)
	}
	return parseProbe(path, out)
}

func parseProbe(path string, out []byte) (*Info, error) {
	var probe ffprobeOutput
	if err := json.Unmarshal(out, &probe); err != nil {
		return nil, fmt.Errorf("parsing ffprobe output: %w", err)
	}

	a := probe.firstStream("audio")
	v := probe.firstStream("video")
	if a == nil && v == nil {
		return nil, errors.New("no audio or video stream found")
	}

	duration, _ := strconv.ParseFloat(probe.Format.Duration, 64)
	info := &Info{
		Filename:    filepath.Base(path),
		Format:      probe.Format.Format,
		DurationSec: duration,
		HasAudio:    a != nil,
		HasVideo:    v != nil,
	}
	if probe.Format.Tags != nil {
		info.Title = probe.Format.Tags["title"]
	}
	if a != nil {
		info.SampleRate, _ = strconv.Atoi(a.SampleRate)
		info.Channels = a.Channels
	}
	if v != nil {
		info.Width, info.Height = v.Width, v.Height
		info.FPS = parseRate(v.AvgFrameRate)
		if info.FPS == 0 {
			info.FPS = parseRate(v.RFrameRate)
		}
	}
	return info, nil
}

// parseRate parses ffprobe rationals such as "30000/1001". Malformed or
// zero-denominator rates give 0.
func parseRate(s string) float64 {
	num, den, found := strings.Cut(s, "/")
	n, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0
	}
	if !found {
		return n
	}
	d, err := strconv.ParseFloat(den, 64)
	if err != nil || d == 0 {
		return 0
	}
	return n / d
}
