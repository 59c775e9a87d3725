package storage

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v3"

	"github.com/bread133/xk7-retail-group/pkg/models"
	"github.com/bread133/xk7-retail-group/pkg/utils"
)

// Key layout:
//
//	c/<id>                      content JSON
//	a/<hash:32><id><ts:8>       audio hash entry
//	r/<id>/<hash:32><ts:8>      reverse index for deletes and counts
//	v/<id>/<ts:8>               packed video hash
const (
	prefixContent = "c/"
	prefixAudio   = "a/"
	prefixReverse = "r/"
	prefixVideo   = "v/"

	// rows written between context checks
	cancelCheck = 1000
)

// BadgerStore keeps everything in an embedded badger key-value store.
type BadgerStore struct {
	db *badger.DB
}

// NewBadgerStore opens (creating if needed) a badger store in dir.
func NewBadgerStore(dir string) (*BadgerStore, error) {
	db, err := badger.Open(badger.DefaultOptions(dir).WithLogger(nil))
	if err != nil {
		return nil, fmt.Errorf("badger open: %w", err)
	}
	return &BadgerStore{db: db}, nil
}

// NewMemoryBadgerStore opens a badger store that lives only in memory.
func NewMemoryBadgerStore() (*BadgerStore, error) {
	db, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
	if err != nil {
		return nil, fmt.Errorf("badger open in-memory: %w", err)
	}
	return &BadgerStore{db: db}, nil
}

func (s *BadgerStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func tsBytes(ts int) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(ts))
	return b
}

func contentKey(id string) []byte {
	return []byte(prefixContent + id)
}

func audioKey(h models.HashValue, id string, ts int) []byte {
	k := make([]byte, 0, len(prefixAudio)+len(h)+len(id)+8)
	k = append(k, prefixAudio...)
	k = append(k, h[:]...)
	k = append(k, id...)
	return append(k, tsBytes(ts)...)
}

func reverseKey(id string, h models.HashValue, ts int) []byte {
	k := make([]byte, 0, len(prefixReverse)+len(id)+1+len(h)+8)
	k = append(k, prefixReverse...)
	k = append(k, id...)
	k = append(k, '/')
	k = append(k, h[:]...)
	return append(k, tsBytes(ts)...)
}

func videoKey(id string, ts int) []byte {
	k := make([]byte, 0, len(prefixVideo)+len(id)+1+8)
	k = append(k, prefixVideo...)
	k = append(k, id...)
	k = append(k, '/')
	return append(k, tsBytes(ts)...)
}

// parseAudioKey splits an audio key into content id and timestamp.
func parseAudioKey(k []byte) (string, int, error) {
	head := len(prefixAudio) + len(models.HashValue{})
	if len(k) < head+8 {
		return "", 0, fmt.Errorf("malformed audio key of length %d", len(k))
	}
	id := string(k[head : len(k)-8])
	ts := int(binary.BigEndian.Uint64(k[len(k)-8:]))
	return id, ts, nil
}

func checkTimestamp(ts int) error {
	if ts < 0 {
		return fmt.Errorf("negative timestamp %d", ts)
	}
	return nil
}

type badgerContent struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Kind       string    `json:"kind"`
	DurationMs int       `json:"duration_ms"`
	CreatedAt  time.Time `json:"created_at"`
}

func (s *BadgerStore) RegisterContent(ctx context.Context, title, kind string, durationMs int) (string, error) {
	c := badgerContent{
		ID:         utils.GenerateUUID(),
		Title:      title,
		Kind:       kind,
		DurationMs: durationMs,
		CreatedAt:  time.Now().UTC(),
	}
	val, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("encoding content: %w", err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(contentKey(c.ID), val)
	})
	if err != nil {
		return "", fmt.Errorf("creating content: %w", err)
	}
	return c.ID, nil
}

func (s *BadgerStore) StoreAudioHashes(ctx context.Context, rows []models.HashRow) error {
	wb := s.db.NewWriteBatch()
	defer wb.Cancel()

	count := 0
	for _, r := range rows {
		if err := checkTimestamp(r.TimestampMs); err != nil {
			return err
		}
		if err := wb.Set(audioKey(r.Hash, r.ContentID, r.TimestampMs), nil); err != nil {
			return fmt.Errorf("batch set audio hash: %w", err)
		}
		if err := wb.Set(reverseKey(r.ContentID, r.Hash, r.TimestampMs), nil); err != nil {
			return fmt.Errorf("batch set reverse index: %w", err)
		}
		count++
		if count%cancelCheck == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
	}
	if err := wb.Flush(); err != nil {
		return fmt.Errorf("flush audio hashes: %w", err)
	}
	return nil
}

func (s *BadgerStore) LookupAudioHashes(ctx context.Context, hashes []models.HashValue) ([]models.HashRow, error) {
	var out []models.HashRow
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for i, h := range uniqueHashes(hashes) {
			if i%lookupChunk == 0 {
				if err := ctx.Err(); err != nil {
					return err
				}
			}
			prefix := append([]byte(prefixAudio), h[:]...)
			for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
				id, ts, err := parseAudioKey(it.Item().Key())
				if err != nil {
					return err
				}
				out = append(out, models.HashRow{ContentID: id, TimestampMs: ts, Hash: h})
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("looking up audio hashes: %w", err)
	}
	return out, nil
}

func (s *BadgerStore) StoreVideoFingerprints(ctx context.Context, contentID string, recs []models.VideoFingerprint) error {
	wb := s.db.NewWriteBatch()
	defer wb.Cancel()

	for _, r := range recs {
		if err := checkTimestamp(r.TimestampMs); err != nil {
			return err
		}
		if err := wb.Set(videoKey(contentID, r.TimestampMs), encodePacked(r.Hash)); err != nil {
			return fmt.Errorf("batch set video fingerprint: %w", err)
		}
	}
	if err := wb.Flush(); err != nil {
		return fmt.Errorf("flush video fingerprints: %w", err)
	}
	return nil
}

// GetVideoFingerprints returns the content's records with timestamps in
// [fromMs, toMs], ordered by time. A negative toMs has no upper bound.
func (s *BadgerStore) GetVideoFingerprints(ctx context.Context, contentID string, fromMs, toMs int) ([]models.VideoFingerprint, error) {
	var out []models.VideoFingerprint
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(prefixVideo + contentID + "/")
		for it.Seek(videoKey(contentID, max(fromMs, 0))); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			key := item.Key()
			ts := int(binary.BigEndian.Uint64(key[len(key)-8:]))
			if !inRange(ts, fromMs, toMs) {
				break
			}
			var hash []uint16
			err := item.Value(func(val []byte) error {
				var err error
				hash, err = decodePacked(val)
				return err
			})
			if err != nil {
				return fmt.Errorf("video fingerprint at %dms: %w", ts, err)
			}
			out = append(out, models.VideoFingerprint{Hash: hash, TimestampMs: ts})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("querying video fingerprints: %w", err)
	}
	return out, nil
}

func (s *BadgerStore) GetContentByID(ctx context.Context, contentID string) (*models.Content, error) {
	var c badgerContent
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(contentKey(contentID))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &c)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("%s: %w", contentID, models.ErrContentNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("querying content: %w", err)
	}
	return c.toModel(), nil
}

func (s *BadgerStore) ListContent(ctx context.Context) ([]models.Content, error) {
	var out []models.Content
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(prefixContent)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var c badgerContent
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &c)
			}); err != nil {
				return err
			}
			out = append(out, *c.toModel())
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing content: %w", err)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *BadgerStore) CountFingerprints(ctx context.Context, contentID string) (int, int, error) {
	var audio, video int
	err := s.db.View(func(txn *badger.Txn) error {
		audio = countPrefix(txn, []byte(prefixReverse+contentID+"/"))
		video = countPrefix(txn, []byte(prefixVideo+contentID+"/"))
		return nil
	})
	if err != nil {
		return 0, 0, fmt.Errorf("counting fingerprints: %w", err)
	}
	return audio, video, nil
}

func countPrefix(txn *badger.Txn, prefix []byte) int {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	opts.Prefix = prefix
	it := txn.NewIterator(opts)
	defer it.Close()

	n := 0
	for it.Rewind(); it.Valid(); it.Next() {
		n++
	}
	return n
}

// DeleteContentByID removes the content with all of its audio hashes and
// video fingerprints.
func (s *BadgerStore) DeleteContentByID(ctx context.Context, contentID string) error {
	var keys [][]byte
	err := s.db.View(func(txn *badger.Txn) error {
		if _, err := txn.Get(contentKey(contentID)); err != nil {
			return err
		}

		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		reverse := []byte(prefixReverse + contentID + "/")
		for it.Seek(reverse); it.ValidForPrefix(reverse); it.Next() {
			k := it.Item().KeyCopy(nil)
			rest := bytes.TrimPrefix(k, reverse)
			var h models.HashValue
			copy(h[:], rest[:len(h)])
			ts := int(binary.BigEndian.Uint64(rest[len(h):]))
			keys = append(keys, k, audioKey(h, contentID, ts))
		}

		video := []byte(prefixVideo + contentID + "/")
		for it.Seek(video); it.ValidForPrefix(video); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		return nil
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return fmt.Errorf("%s: %w", contentID, models.ErrContentNotFound)
	}
	if err != nil {
		return fmt.Errorf("collecting keys: %w", err)
	}

	wb := s.db.NewWriteBatch()
	defer wb.Cancel()
	for _, k := range keys {
		if err := wb.Delete(k); err != nil {
			return fmt.Errorf("batch delete: %w", err)
		}
	}
	if err := wb.Delete(contentKey(contentID)); err != nil {
		return fmt.Errorf("batch delete content: %w", err)
	}
	if err := wb.Flush(); err != nil {
		return fmt.Errorf("flush deletes: %w", err)
	}
	return nil
}

func (c *badgerContent) toModel() *models.Content {
	return &models.Content{
		ID:         c.ID,
		Title:      c.Title,
		Kind:       c.Kind,
		DurationMs: c.DurationMs,
		CreatedAt:  c.CreatedAt,
	}
}
