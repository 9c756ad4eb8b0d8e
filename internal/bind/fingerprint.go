package bind

import (
	"crypto/md5"
	"encoding/hex"
)

// Fingerprint returns the lowercase hex MD5 digest of text's UTF-8 bytes.
//
// The digest detects accidental edits to an applied migration, not deliberate
// tampering. Ledgers store these digests, so the algorithm must not change:
// a different digest marks every applied migration as modified.
func Fingerprint(text string) string {
	sum := md5.Sum([]byte(text))
	return hex.EncodeToString(sum[:])
}
