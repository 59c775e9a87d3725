package models

import "encoding/hex"

// HashValue is the 256-bit digest of one landmark pair.
type HashValue [32]byte

// String returns the lowercase hex form used as the stored hash key.
func (h HashValue) String() string {
	return hex.EncodeToString(h[:])
}

// ParseHashValue decodes the hex form produced by HashValue.String.
func ParseHashValue(s string) (HashValue, error) {
	var h HashValue
	b, err := hex.DecodeString(s)
	if err != nil {
		return h, err
	}
	if len(b) != len(h) {
		return h, hex.ErrLength
	}
	copy(h[:], b)
	return h, nil
}

// HashRow is the stored value for a hash bucket entry.
// TimestampMs is the local offset (in ms) of the anchor peak in the source audio.
type HashRow struct {
	ContentID   string
	TimestampMs int
	Hash        HashValue
}

// RawMatch is one hash collision joined against the locally computed offset table.
type RawMatch struct {
	ContentID string
	StoredMs  int // timestamp of the hash in the reference content
	LocalMs   int // timestamp of the same hash in the query
}
