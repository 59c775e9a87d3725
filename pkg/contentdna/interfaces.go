package contentdna

import (
	"context"

	"github.com/bread133/xk7-retail-group/pkg/contentdna/video"
	"github.com/bread133/xk7-retail-group/pkg/models"
)

type Service interface {
	AddAudio(ctx context.Context, in AudioInput, title string) (string, error)
	AddVideo(ctx context.Context, frames []video.Frame, title string) (string, error)
	AddFile(ctx context.Context, path string, opts AddOptions) (string, error)

	MatchAudio(ctx context.Context, in AudioInput) (map[string][]models.MatchRange, error)
	MatchAudioBatch(ctx context.Context, items map[string]AudioInput) (map[string]map[string][]models.MatchRange, map[string]error)
	MatchVideo(ctx context.Context, contentID string, local []models.VideoFingerprint) ([]models.VideoMatch, error)
	VerifyVideo(ctx context.Context, audio map[string][]models.MatchRange, local []models.VideoFingerprint) (map[string][]models.VideoMatch, error)
	MatchFile(ctx context.Context, path string, withVideo bool) (*MatchReport, error)

	GetContentByID(ctx context.Context, contentID string) (*ContentInfo, error)
	ListContent(ctx context.Context) ([]ContentInfo, error)
	DeleteContent(ctx context.Context, contentID string) error
	Close() error
}

// Storage is the hash store contract. Every storage backend satisfies it.
type Storage interface {
	RegisterContent(ctx context.Context, title, kind string, durationMs int) (string, error)
	StoreAudioHashes(ctx context.Context, rows []models.HashRow) error
	LookupAudioHashes(ctx context.Context, hashes []models.HashValue) ([]models.HashRow, error)
	StoreVideoFingerprints(ctx context.Context, contentID string, recs []models.VideoFingerprint) error
	GetVideoFingerprints(ctx context.Context, contentID string, fromMs, toMs int) ([]models.VideoFingerprint, error)
	GetContentByID(ctx context.Context, contentID string) (*models.Content, error)
	ListContent(ctx context.Context) ([]models.Content, error)
	CountFingerprints(ctx context.Context, contentID string) (audio, video int, err error)
	DeleteContentByID(ctx context.Context, contentID string) error
	Close() error
}

type Logger interface {
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
	Debugf(format string, args ...any)
}
