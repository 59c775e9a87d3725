package fingerprint

import (
	"crypto/sha256"
	"math"
	"strconv"

	"github.com/bread133/xk7-retail-group/pkg/models"
)

// hashKey renders the landmark key "anchorBin-targetBin-deltaFrame".
func hashKey(pair LandmarkPair) []byte {
	key := make([]byte, 0, 24)
	key = strconv.AppendInt(key, int64(pair.Anchor.FreqBin), 10)
	key = append(key, '-')
	key = strconv.AppendInt(key, int64(pair.Target.FreqBin), 10)
	key = append(key, '-')
	key = strconv.AppendInt(key, int64(pair.Target.FrameIdx-pair.Anchor.FrameIdx), 10)
	return key
}

// HashPair returns the SHA-256 digest of the pair's landmark key.
func HashPair(pair LandmarkPair) models.HashValue {
	return models.HashValue(sha256.Sum256(hashKey(pair)))
}

// EncodePairs hashes every pair and remaps its anchor frame onto the input's
// millisecond timeline with one linear scale:
//
//	step = (maxAnchor - minAnchor) / totalDurationMs
//	localOffsetMs = floor((anchor - minAnchor) / step)
//
// When every anchor shares a frame, or the duration is unknown, all offsets are 0.
// Output order follows pairs.
func EncodePairs(pairs []LandmarkPair, totalDurationMs int) []models.FingerprintHash {
	if len(pairs) == 0 {
		return nil
	}

	minA, maxA := pairs[0].Anchor.FrameIdx, pairs[0].Anchor.FrameIdx
	for _, p := range pairs[1:] {
		if p.Anchor.FrameIdx < minA {
			minA = p.Anchor.FrameIdx
		}
		if p.Anchor.FrameIdx > maxA {
			maxA = p.Anchor.FrameIdx
		}
	}

	var step float64
	if maxA > minA && totalDurationMs > 0 {
		step = float64(maxA-minA) / float64(totalDurationMs)
	}

	hashes := make([]models.FingerprintHash, len(pairs))
	for i, p := range pairs {
		offset := 0
		if step > 0 {
			offset = int(math.Floor(float64(p.Anchor.FrameIdx-minA) / step))
		}
		hashes[i] = models.FingerprintHash{Hash: HashPair(p), LocalOffsetMs: offset}
	}
	return hashes
}
