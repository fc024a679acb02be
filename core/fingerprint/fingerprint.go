// Package fingerprint derives the short content digest that disambiguates
// photos sharing a capture timestamp.
package fingerprint

import (
	"fmt"
	"hash/crc32"
)

// DigestLen is the fixed width of a digest in hex characters.
const DigestLen = 8

// Digest computes the content digest of a byte buffer: CRC32 (IEEE) of the
// original file bytes, rendered as exactly 8 lowercase hex characters,
// zero-padded. Deterministic and total — any byte sequence is hashable.
// The digest is always taken over the bytes as read from disk, never over
// a stamped re-encode, so it is stable across repeated runs.
func Digest(data []byte) string {
	return fmt.Sprintf("%08x", crc32.ChecksumIEEE(data))
}
