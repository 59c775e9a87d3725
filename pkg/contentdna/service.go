// Package contentdna wires the fingerprint pipelines to a hash store. It
// indexes reference audio and video and finds reused segments in queries.
package contentdna

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bread133/xk7-retail-group/pkg/contentdna/fingerprint"
	"github.com/bread133/xk7-retail-group/pkg/contentdna/matching"
	"github.com/bread133/xk7-retail-group/pkg/contentdna/media"
	"github.com/bread133/xk7-retail-group/pkg/contentdna/storage"
	"github.com/bread133/xk7-retail-group/pkg/contentdna/video"
	"github.com/bread133/xk7-retail-group/pkg/logger"
	"github.com/bread133/xk7-retail-group/pkg/models"
)

// contentService is the default implementation of the Service interface.
type contentService struct {
	storage    Storage
	log        Logger
	config     *Config
	generator  *fingerprint.Generator
	aggregator *matching.Aggregator
	video      *video.Fingerprinter
}

func NewService(opts ...Option) (Service, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.Logger == nil {
		cfg.Logger = logger.GetLogger()
	}

	generator, err := fingerprint.NewGenerator(cfg.AudioParams)
	if err != nil {
		return nil, err
	}
	aggregator, err := matching.NewAggregator(cfg.MatchParams)
	if err != nil {
		return nil, err
	}
	fingerprinter, err := video.NewFingerprinter(cfg.VideoParams)
	if err != nil {
		return nil, err
	}
	if err := cfg.VideoMatchParams.Validate(); err != nil {
		return nil, fmt.Errorf("invalid video match params: %w", err)
	}

	// Create or use provided storage
	stor := cfg.Storage
	if stor == nil {
		stor, err = storage.Open(cfg.Backend, cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to create storage: %w", err)
		}
	}
	if cfg.LookupCacheSize > 0 {
		cached, err := storage.NewCachedStore(stor, cfg.LookupCacheSize)
		if err != nil {
			stor.Close()
			return nil, err
		}
		stor = cached
	}

	return &contentService{
		storage:    stor,
		log:        cfg.Logger,
		config:     cfg,
		generator:  generator,
		aggregator: aggregator,
		video:      fingerprinter,
	}, nil
}

// AddAudio fingerprints a decoded buffer and stores it as new audio content.
func (s *contentService) AddAudio(ctx context.Context, in AudioInput, title string) (string, error) {
	s.log.Infof("Processing audio: %s", title)

	res, err := s.generator.Generate(in.Samples, in.Channels, in.SampleRate)
	if err != nil {
		return "", fmt.Errorf("audio fingerprinting failed: %w", err)
	}
	s.log.Infof("Extracted %d peaks, %d pairs", res.Peaks, res.Pairs)

	return s.store(ctx, title, models.KindAudio, res.DurationMs, res.Hashes, nil)
}

// AddVideo fingerprints decoded frames and stores them as new video content.
func (s *contentService) AddVideo(ctx context.Context, frames []video.Frame, title string) (string, error) {
	s.log.Infof("Processing video: %s (%d frames)", title, len(frames))

	res, err := s.fingerprintVideo(frames)
	if err != nil {
		return "", err
	}

	return s.store(ctx, title, models.KindVideo, framesDurationMs(frames), nil, res.Records)
}

// AddFile decodes a container with ffmpeg and stores every selected track
// under one content id.
func (s *contentService) AddFile(ctx context.Context, path string, opts AddOptions) (string, error) {
	log := s.fileLogger(path)

	// 1. Probe
	info, err := media.Probe(ctx, path)
	if err != nil {
		return "", fmt.Errorf("probe failed: %w", err)
	}
	title := opts.Title
	if title == "" {
		title = info.Title
	}
	if title == "" {
		title = strings.TrimSuffix(info.Filename, filepath.Ext(info.Filename))
	}

	useAudio := info.HasAudio && !opts.SkipAudio
	useVideo := info.HasVideo && !opts.SkipVideo
	if !useAudio && !useVideo {
		return "", fmt.Errorf("%s: no track selected: %w", path, models.ErrEmptyInput)
	}

	// 2. Audio
	var hashes []models.FingerprintHash
	durationMs := info.DurationMs()
	if useAudio {
		in, err := s.decodeAudio(ctx, path)
		if err != nil {
			return "", err
		}
		res, err := s.generator.Generate(in.Samples, in.Channels, in.SampleRate)
		if err != nil {
			return "", fmt.Errorf("audio fingerprinting failed: %w", err)
		}
		hashes = res.Hashes
		durationMs = res.DurationMs
		log.Infof("Generated %d audio hashes", len(hashes))
	}

	// 3. Video
	var records []models.VideoFingerprint
	if useVideo {
		frames, err := s.decodeVideo(ctx, path)
		if err != nil {
			return "", err
		}
		res, err := s.fingerprintVideo(frames)
		if err != nil {
			return "", err
		}
		records = res.Records
		log.Infof("Generated %d video records from %d keyframes", len(records), res.Keyframes)
	}

	kind := models.KindMedia
	switch {
	case !useVideo:
		kind = models.KindAudio
	case !useAudio:
		kind = models.KindVideo
	}

	// 4. Store
	return s.store(ctx, title, kind, durationMs, hashes, records)
}

// store registers the content and writes its fingerprints. The content row is
// removed again if any write fails.
func (s *contentService) store(ctx context.Context, title, kind string, durationMs int, hashes []models.FingerprintHash, records []models.VideoFingerprint) (string, error) {
	contentID, err := s.storage.RegisterContent(ctx, title, kind, durationMs)
	if err != nil {
		return "", models.WrapStore("register content", err)
	}

	rollback := func(op string, err error) (string, error) {
		if derr := s.storage.DeleteContentByID(context.WithoutCancel(ctx), contentID); derr != nil {
			s.log.Warnf("Rollback of content %s failed: %v", contentID, derr)
		}
		return "", models.WrapStore(op, err)
	}

	if len(hashes) > 0 {
		rows := make([]models.HashRow, len(hashes))
		for i, h := range hashes {
			rows[i] = models.HashRow{ContentID: contentID, TimestampMs: h.LocalOffsetMs, Hash: h.Hash}
		}
		if err := s.storage.StoreAudioHashes(ctx, rows); err != nil {
			return rollback("store audio hashes", err)
		}
	}
	if len(records) > 0 {
		if err := s.storage.StoreVideoFingerprints(ctx, contentID, records); err != nil {
			return rollback("store video fingerprints", err)
		}
	}

	s.log.Infof("Successfully added %s content ID=%s (%d audio hashes, %d video records)", kind, contentID, len(hashes), len(records))
	return contentID, nil
}

// MatchAudio fingerprints a query buffer and returns the matched ranges per
// content id.
func (s *contentService) MatchAudio(ctx context.Context, in AudioInput) (map[string][]models.MatchRange, error) {
	res, err := s.generator.Generate(in.Samples, in.Channels, in.SampleRate)
	if err != nil {
		return nil, fmt.Errorf("audio fingerprinting failed: %w", err)
	}
	s.log.Debugf("Generated %d query hashes", len(res.Hashes))

	return s.matchHashes(ctx, res.Hashes, in.DurationSec())
}

// matchHashes joins the stored rows of every query hash against the query's
// own offsets and aggregates the collisions.
func (s *contentService) matchHashes(ctx context.Context, hashes []models.FingerprintHash, durationSec float64) (map[string][]models.MatchRange, error) {
	// 1. Local offset table; a repeated hash keeps its last offset
	local := make(map[models.HashValue]int, len(hashes))
	for _, h := range hashes {
		local[h.Hash] = h.LocalOffsetMs
	}
	keys := make([]models.HashValue, 0, len(local))
	for h := range local {
		keys = append(keys, h)
	}

	// 2. Bulk lookup
	rows, err := s.storage.LookupAudioHashes(ctx, keys)
	if err != nil {
		return nil, models.WrapStore("lookup audio hashes", err)
	}
	s.log.Debugf("Retrieved %d stored rows for %d hashes", len(rows), len(local))

	// 3. Raw matches
	raw := make([]models.RawMatch, 0, len(rows))
	for _, r := range rows {
		raw = append(raw, models.RawMatch{ContentID: r.ContentID, StoredMs: r.TimestampMs, LocalMs: local[r.Hash]})
	}

	// 4. Aggregate per content
	return s.aggregator.AggregateAll(ctx, raw, durationSec)
}

// MatchAudioBatch matches independent buffers in parallel.
func (s *contentService) MatchAudioBatch(ctx context.Context, items map[string]AudioInput) (map[string]map[string][]models.MatchRange, map[string]error) {
	results, errs := RunBatch(ctx, items, s.config.Workers, func(ctx context.Context, id string, in AudioInput) (map[string][]models.MatchRange, error) {
		return s.MatchAudio(ctx, in)
	})
	for id, err := range errs {
		s.log.Errorf("Batch item %s failed: %v", id, err)
	}
	return results, errs
}

// MatchVideo compares local records against the full stored sequence of one
// content.
func (s *contentService) MatchVideo(ctx context.Context, contentID string, local []models.VideoFingerprint) ([]models.VideoMatch, error) {
	db, err := s.storage.GetVideoFingerprints(ctx, contentID, 0, -1)
	if err != nil {
		return nil, models.WrapStore("get video fingerprints", err)
	}
	return video.FindMatches(db, local, s.config.VideoMatchParams)
}

// VerifyVideo checks each audio match against the video track. For a range
// [start, end] at offset o the stored records in [start+o, end+o] seconds are
// compared with the local records in [start, end].
func (s *contentService) VerifyVideo(ctx context.Context, audio map[string][]models.MatchRange, local []models.VideoFingerprint) (map[string][]models.VideoMatch, error) {
	out := make(map[string][]models.VideoMatch)
	for contentID, ranges := range audio {
		for _, r := range ranges {
			fromMs := (r.StartSec + r.OffsetSec) * 1000
			toMs := (r.EndSec + r.OffsetSec) * 1000
			db, err := s.storage.GetVideoFingerprints(ctx, contentID, fromMs, toMs)
			if err != nil {
				return nil, models.WrapStore("get video fingerprints", err)
			}

			window := recordsBetween(local, r.StartSec*1000, r.EndSec*1000)
			matches, err := video.FindMatches(db, window, s.config.VideoMatchParams)
			if err != nil {
				return nil, fmt.Errorf("content %s: %w", contentID, err)
			}
			out[contentID] = append(out[contentID], matches...)
		}
		if len(out[contentID]) == 0 {
			delete(out, contentID)
		}
	}
	return out, nil
}

// MatchFile matches a query container. Audio is matched first; with
// withVideo the video track verifies the audio ranges, or is compared
// against every stored video when the query has no audio.
func (s *contentService) MatchFile(ctx context.Context, path string, withVideo bool) (*MatchReport, error) {
	log := s.fileLogger(path)

	info, err := media.Probe(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("probe failed: %w", err)
	}

	report := &MatchReport{
		Audio:      map[string][]models.MatchRange{},
		Video:      map[string][]models.VideoMatch{},
		DurationMs: info.DurationMs(),
	}

	if info.HasAudio {
		in, err := s.decodeAudio(ctx, path)
		if err != nil {
			return nil, err
		}
		res, err := s.generator.Generate(in.Samples, in.Channels, in.SampleRate)
		if err != nil {
			return nil, fmt.Errorf("audio fingerprinting failed: %w", err)
		}
		report.QueryHashes = len(res.Hashes)
		report.DurationMs = res.DurationMs

		report.Audio, err = s.matchHashes(ctx, res.Hashes, in.DurationSec())
		if err != nil {
			return nil, err
		}
		log.Infof("Audio matched %d contents", len(report.Audio))
	}

	if !withVideo || !info.HasVideo {
		return report, nil
	}

	frames, err := s.decodeVideo(ctx, path)
	if err != nil {
		return nil, err
	}
	res, err := s.fingerprintVideo(frames)
	if err != nil {
		return nil, err
	}
	report.VideoHashes = len(res.Records)

	if info.HasAudio {
		report.Video, err = s.VerifyVideo(ctx, report.Audio, res.Records)
		if err != nil {
			return nil, err
		}
		log.Infof("Video verified %d of %d audio matches", len(report.Video), len(report.Audio))
		return report, nil
	}

	contents, err := s.storage.ListContent(ctx)
	if err != nil {
		return nil, models.WrapStore("list content", err)
	}
	for _, c := range contents {
		if c.Kind == models.KindAudio {
			continue
		}
		matches, err := s.MatchVideo(ctx, c.ID, res.Records)
		if err != nil {
			return nil, fmt.Errorf("content %s: %w", c.ID, err)
		}
		if len(matches) > 0 {
			report.Video[c.ID] = matches
		}
	}
	log.Infof("Video matched %d contents", len(report.Video))
	return report, nil
}

func (s *contentService) GetContentByID(ctx context.Context, contentID string) (*ContentInfo, error) {
	c, err := s.storage.GetContentByID(ctx, contentID)
	if err != nil {
		return nil, models.WrapStore("get content", err)
	}
	return s.withCounts(ctx, *c)
}

func (s *contentService) ListContent(ctx context.Context) ([]ContentInfo, error) {
	contents, err := s.storage.ListContent(ctx)
	if err != nil {
		return nil, models.WrapStore("list content", err)
	}
	out := make([]ContentInfo, 0, len(contents))
	for _, c := range contents {
		info, err := s.withCounts(ctx, c)
		if err != nil {
			return nil, err
		}
		out = append(out, *info)
	}
	return out, nil
}

func (s *contentService) withCounts(ctx context.Context, c models.Content) (*ContentInfo, error) {
	audio, vid, err := s.storage.CountFingerprints(ctx, c.ID)
	if err != nil {
		return nil, models.WrapStore("count fingerprints", err)
	}
	return &ContentInfo{Content: c, AudioHashes: audio, VideoRecords: vid}, nil
}

func (s *contentService) DeleteContent(ctx context.Context, contentID string) error {
	if err := s.storage.DeleteContentByID(ctx, contentID); err != nil {
		return models.WrapStore("delete content", err)
	}
	s.log.Infof("Deleted content ID=%s", contentID)
	return nil
}

func (s *contentService) Close() error {
	if s.storage != nil {
		return s.storage.Close()
	}
	return nil
}

func (s *contentService) fingerprintVideo(frames []video.Frame) (*video.Result, error) {
	res, err := s.video.Fingerprint(frames)
	if err != nil {
		return nil, fmt.Errorf("video fingerprinting failed: %w", err)
	}
	for _, skipped := range res.Skipped {
		s.log.Warnf("Skipped video record: %v", skipped)
	}
	return res, nil
}

// decodeAudio extracts the audio track to a temporary WAV and reads it back.
func (s *contentService) decodeAudio(ctx context.Context, path string) (AudioInput, error) {
	wavPath, err := media.ExtractAudioWAV(ctx, path, s.config.TempDir, media.ExtractConfig{
		SampleRate: s.config.SampleRate,
	})
	if err != nil {
		return AudioInput{}, fmt.Errorf("audio conversion failed: %w", err)
	}
	defer os.Remove(wavPath)

	w, err := media.ReadWAV(wavPath)
	if err != nil {
		return AudioInput{}, fmt.Errorf("failed to read WAV file: %w", err)
	}
	return AudioInput{Samples: w.Samples, Channels: w.Channels, SampleRate: w.SampleRate}, nil
}

func (s *contentService) decodeVideo(ctx context.Context, path string) ([]video.Frame, error) {
	p := s.config.VideoParams
	frames, err := media.DecodeVideoFrames(ctx, path, media.DecodeConfig{
		FPS:    p.TargetFPS,
		Width:  p.Width,
		Height: p.Height,
	})
	if err != nil {
		return nil, fmt.Errorf("video decoding failed: %w", err)
	}
	if len(frames) == 0 {
		return nil, fmt.Errorf("%s: %w", path, models.ErrEmptyInput)
	}
	return frames, nil
}

// fileLogger tags lines with the file name when the logger supports it.
func (s *contentService) fileLogger(path string) Logger {
	if l, ok := s.log.(*logger.Logger); ok {
		return l.With(filepath.Base(path))
	}
	return s.log
}

// recordsBetween returns the records with timestamps in [fromMs, toMs].
func recordsBetween(recs []models.VideoFingerprint, fromMs, toMs int) []models.VideoFingerprint {
	var out []models.VideoFingerprint
	for _, r := range recs {
		if r.TimestampMs >= fromMs && r.TimestampMs <= toMs {
			out = append(out, r)
		}
	}
	return out
}

func framesDurationMs(frames []video.Frame) int {
	if len(frames) == 0 {
		return 0
	}
	return frames[len(frames)-1].TimestampMs - frames[0].TimestampMs
}

// IsNotFound reports whether err means the content id is unknown.
func IsNotFound(err error) bool {
	return errors.Is(err, models.ErrContentNotFound)
}
