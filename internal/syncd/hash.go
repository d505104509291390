package syncd

import (
	"crypto/sha256"
	"encoding/hex"
)

// emptyHash is sha256("").
var emptyHash = ComputeHash("")

// ComputeHash returns "sha256:" plus the lowercase hex digest of
// content, the stored representation. Computed identically for text
// and already-base64-encoded binary content, per spec §4.3's closing
// note: both peers must hash the stored representation, never raw
// bytes, for binary reconciliation to converge.
func ComputeHash(content string) string {
	sum := sha256.Sum256([]byte(content))
	return "sha256:" + hex.EncodeToString(sum[:])
}
