package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/bread133/xk7-retail-group/pkg/models"
	"github.com/bread133/xk7-retail-group/pkg/utils"
)

const DefaultDBFile = "contentdna.sqlite3"
const errDBClientNil = "db client is nil"

// SQLiteStore keeps content, audio hashes and video fingerprints in sqlite
// through gorm.
type SQLiteStore struct {
	DB *gorm.DB
	db *sql.DB
}

type Content struct {
	ID         string `gorm:"primaryKey;type:varchar(36)"`
	Title      string `gorm:"index:idx_content_title" json:"title"`
	Kind       string `gorm:"type:varchar(8)" json:"kind"`
	DurationMs int    `json:"duration_ms"`
	CreatedAt  time.Time
}

type AudioHash struct {
	ID          uint   `gorm:"primaryKey;autoIncrement"`
	Hash        string `gorm:"type:char(64);index:idx_audio_hash" json:"hash"`
	ContentID   string `gorm:"type:varchar(36);index:idx_audio_content" json:"content_id"`
	TimestampMs int    `json:"timestamp_ms"`
}

type VideoFingerprint struct {
	ID          uint   `gorm:"primaryKey;autoIncrement"`
	ContentID   string `gorm:"type:varchar(36);index:idx_video_content_ts,priority:1" json:"content_id"`
	TimestampMs int    `gorm:"index:idx_video_content_ts,priority:2" json:"timestamp_ms"`
	Packed      []byte `json:"packed"`
}

// NewSQLiteStore opens (creating if needed) the sqlite database at dbPath.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dbPath == "" {
		dbPath = DefaultDBFile
	}
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating db dir: %w", err)
		}
	}

	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	}

	db, err := gorm.Open(sqlite.Open(dbPath+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("getting sql.DB from gorm: %w", err)
	}

	// sqlite allows one writer at a time
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(&Content{}, &AudioHash{}, &VideoFingerprint{}); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("auto migrate: %w", err)
	}

	return &SQLiteStore{DB: db, db: sqlDB}, nil
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteStore) RegisterContent(ctx context.Context, title, kind string, durationMs int) (string, error) {
	if s == nil || s.DB == nil {
		return "", errors.New(errDBClientNil)
	}

	content := Content{ID: utils.GenerateUUID(), Title: title, Kind: kind, DurationMs: durationMs}
	if err := s.DB.WithContext(ctx).Create(&content).Error; err != nil {
		return "", fmt.Errorf("creating content: %w", err)
	}
	return content.ID, nil
}

func (s *SQLiteStore) StoreAudioHashes(ctx context.Context, rows []models.HashRow) error {
	if s == nil || s.DB == nil {
		return errors.New(errDBClientNil)
	}

	db := s.DB.WithContext(ctx)
	entries := make([]AudioHash, 0, 1024)
	for _, r := range rows {
		entries = append(entries, AudioHash{
			Hash:        r.Hash.String(),
			ContentID:   r.ContentID,
			TimestampMs: r.TimestampMs,
		})
		if len(entries) >= 1000 {
			if err := db.CreateInBatches(entries, 500).Error; err != nil {
				return fmt.Errorf("batch insert audio hashes: %w", err)
			}
			entries = entries[:0]
		}
	}
	if len(entries) > 0 {
		if err := db.CreateInBatches(entries, 500).Error; err != nil {
			return fmt.Errorf("batch insert last audio hashes: %w", err)
		}
	}
	return nil
}

func (s *SQLiteStore) LookupAudioHashes(ctx context.Context, hashes []models.HashValue) ([]models.HashRow, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New(errDBClientNil)
	}

	unique := uniqueHashes(hashes)
	var out []models.HashRow
	for start := 0; start < len(unique); start += lookupChunk {
		end := min(start+lookupChunk, len(unique))

		keys := make([]string, 0, end-start)
		for _, h := range unique[start:end] {
			keys = append(keys, h.String())
		}

		var rows []AudioHash
		if err := s.DB.WithContext(ctx).Where("hash IN ?", keys).Find(&rows).Error; err != nil {
			return nil, fmt.Errorf("batch querying audio hashes: %w", err)
		}
		for _, r := range rows {
			h, err := models.ParseHashValue(r.Hash)
			if err != nil {
				return nil, fmt.Errorf("stored hash %q: %w", r.Hash, err)
			}
			out = append(out, models.HashRow{ContentID: r.ContentID, TimestampMs: r.TimestampMs, Hash: h})
		}
	}
	return out, nil
}

func (s *SQLiteStore) StoreVideoFingerprints(ctx context.Context, contentID string, recs []models.VideoFingerprint) error {
	if s == nil || s.DB == nil {
		return errors.New(errDBClientNil)
	}
	if len(recs) == 0 {
		return nil
	}

	entries := make([]VideoFingerprint, 0, len(recs))
	for _, r := range recs {
		entries = append(entries, VideoFingerprint{
			ContentID:   contentID,
			TimestampMs: r.TimestampMs,
			Packed:      encodePacked(r.Hash),
		})
	}
	if err := s.DB.WithContext(ctx).CreateInBatches(entries, 100).Error; err != nil {
		return fmt.Errorf("batch insert video fingerprints: %w", err)
	}
	return nil
}

// GetVideoFingerprints returns the content's records with timestamps in
// [fromMs, toMs], ordered by time. A negative toMs has no upper bound.
func (s *SQLiteStore) GetVideoFingerprints(ctx context.Context, contentID string, fromMs, toMs int) ([]models.VideoFingerprint, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New(errDBClientNil)
	}

	q := s.DB.WithContext(ctx).Where("content_id = ? AND timestamp_ms >= ?", contentID, fromMs)
	if toMs >= 0 {
		q = q.Where("timestamp_ms <= ?", toMs)
	}
	var rows []VideoFingerprint
	if err := q.Order("timestamp_ms").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("querying video fingerprints: %w", err)
	}

	out := make([]models.VideoFingerprint, 0, len(rows))
	for _, r := range rows {
		hash, err := decodePacked(r.Packed)
		if err != nil {
			return nil, fmt.Errorf("video fingerprint %d: %w", r.ID, err)
		}
		out = append(out, models.VideoFingerprint{Hash: hash, TimestampMs: r.TimestampMs})
	}
	return out, nil
}

func (s *SQLiteStore) GetContentByID(ctx context.Context, contentID string) (*models.Content, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New(errDBClientNil)
	}

	var c Content
	if err := s.DB.WithContext(ctx).Where("id = ?", contentID).First(&c).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%s: %w", contentID, models.ErrContentNotFound)
		}
		return nil, fmt.Errorf("querying content: %w", err)
	}
	return c.toModel(), nil
}

func (s *SQLiteStore) ListContent(ctx context.Context) ([]models.Content, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New(errDBClientNil)
	}

	var rows []Content
	if err := s.DB.WithContext(ctx).Order("created_at, id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("listing content: %w", err)
	}
	out := make([]models.Content, 0, len(rows))
	for i := range rows {
		out = append(out, *rows[i].toModel())
	}
	return out, nil
}

func (s *SQLiteStore) CountFingerprints(ctx context.Context, contentID string) (int, int, error) {
	if s == nil || s.DB == nil {
		return 0, 0, errors.New(errDBClientNil)
	}

	var audio, video int64
	db := s.DB.WithContext(ctx)
	if err := db.Model(&AudioHash{}).Where("content_id = ?", contentID).Count(&audio).Error; err != nil {
		return 0, 0, fmt.Errorf("counting audio hashes: %w", err)
	}
	if err := db.Model(&VideoFingerprint{}).Where("content_id = ?", contentID).Count(&video).Error; err != nil {
		return 0, 0, fmt.Errorf("counting video fingerprints: %w", err)
	}
	return int(audio), int(video), nil
}

// DeleteContentByID removes the content with all of its audio hashes and
// video fingerprints in one transaction.
func (s *SQLiteStore) DeleteContentByID(ctx context.Context, contentID string) error {
	if s == nil || s.DB == nil {
		return errors.New(errDBClientNil)
	}
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("content_id = ?", contentID).Delete(&AudioHash{}).Error; err != nil {
			return err
		}
		if err := tx.Where("content_id = ?", contentID).Delete(&VideoFingerprint{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", contentID).Delete(&Content{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%s: %w", contentID, models.ErrContentNotFound)
		}
		return nil
	})
}

func (c *Content) toModel() *models.Content {
	return &models.Content{
		ID:         c.ID,
		Title:      c.Title,
		Kind:       c.Kind,
		DurationMs: c.DurationMs,
		CreatedAt:  c.CreatedAt,
	}
}
