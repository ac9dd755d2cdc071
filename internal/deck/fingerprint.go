package deck

import (
	"crypto/sha256"
	"encoding/hex"
)

// Fingerprint digests a full image payload. Duplicate detection is a set
// membership check on these, so inserting into a large deck never degrades
// to an O(n) payload comparison.
func Fingerprint(payload ImageRef) string {
	sum := sha256.Sum256([]byte(payload))
	return hex.EncodeToString(sum[:])
}
