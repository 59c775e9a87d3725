package models

import "time"

// Content kinds stored in the registry.
const (
	KindAudio = "audio"
	KindVideo = "video"
	KindMedia = "media" // both tracks fingerprinted
)

// Content represents a reference corpus entry.
type Content struct {
	ID         string    // Database ID (UUID)
	Title      string    // Human readable title or file name
	Kind       string    // One of KindAudio, KindVideo, KindMedia
	DurationMs int       // Duration in milliseconds
	CreatedAt  time.Time // Registration time
}

// FingerprintHash is one audio fingerprint produced from a landmark pair.
type FingerprintHash struct {
	Hash          HashValue
	LocalOffsetMs int
}

// MatchRange is a consolidated matched range of a query against one content.
// Start and end are query seconds; StartSec+OffsetSec is the position in the content.
type MatchRange struct {
	StartSec  int
	EndSec    int
	OffsetSec int
}

// VideoFingerprint is one packed TIRI hash. Every component is in [0, 1023].
type VideoFingerprint struct {
	Hash        []uint16
	TimestampMs int
}

// VideoMatch pairs a matched db time range with the matching local time range.
type VideoMatch struct {
	DBStartMs    int
	DBEndMs      int
	LocalStartMs int
	LocalEndMs   int
}
