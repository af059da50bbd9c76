package serialization

import "crypto/sha256"

// computeChecksum digests the JSON header and the data region. The v2
// preamble stores this so readers can detect truncation and bit rot before
// touching any payload.
func computeChecksum(header, data []byte) [sha256.Size]byte {
	h := sha256.New()
	h.Write(header)
	h.Write(data)
	var sum [sha256.Size]byte
	copy(sum[:], h.Sum(nil))
	return sum
}
