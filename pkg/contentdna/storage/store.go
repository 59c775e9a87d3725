// Package storage holds the persistent hash stores: a gorm/sqlite store, a
// badger key-value store and an LRU lookup cache that wraps either.
package storage

import (
	"context"
	"encoding/binary"
	"fmt"

	"github.com/bread133/xk7-retail-group/pkg/models"
)

// lookupChunk bounds the number of hashes per lookup query.
const lookupChunk = 500

// Store is the contract every backend implements.
type Store interface {
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

// Backends
const (
	BackendSQLite = "sqlite"
	BackendBadger = "badger"
)

// Open returns the backend named by backend at path.
func Open(backend, path string) (Store, error) {
	switch backend {
	case "", BackendSQLite:
		return NewSQLiteStore(path)
	case BackendBadger:
		return NewBadgerStore(path)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", backend)
	}
}

// encodePacked serializes hash components as little-endian uint16s.
func encodePacked(hash []uint16) []byte {
	b := make([]byte, 2*len(hash))
	for i, v := range hash {
		binary.LittleEndian.PutUint16(b[2*i:], v)
	}
	return b
}

func decodePacked(b []byte) ([]uint16, error) {
	if len(b)%2 != 0 {
		return nil, fmt.Errorf("packed hash of odd length %d", len(b))
	}
	hash := make([]uint16, len(b)/2)
	for i := range hash {
		hash[i] = binary.LittleEndian.Uint16(b[2*i:])
	}
	return hash, nil
}

// uniqueHashes drops duplicate hashes, keeping first-seen order.
func uniqueHashes(hashes []models.HashValue) []models.HashValue {
	seen := make(map[models.HashValue]struct{}, len(hashes))
	out := make([]models.HashValue, 0, len(hashes))
	for _, h := range hashes {
		if _, ok := seen[h]; ok {
			continue
		}
		seen[h] = struct{}{}
		out = append(out, h)
	}
	return out
}

// inRange reports whether ts lies in [fromMs, toMs]; a negative toMs has no
// upper bound.
func inRange(ts, fromMs, toMs int) bool {
	return ts >= fromMs && (toMs < 0 || ts <= toMs)
}
