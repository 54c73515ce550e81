package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
)

// Fingerprint derives the content-addressed cache key for a decision
// context. The context is canonicalized by sorting keys before hashing, so
// semantically identical contexts collide to the same key regardless of
// construction order.
func Fingerprint(context map[string]string) string {
	keys := make([]string, 0, len(context))
	for k := range context {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	h := sha256.New()
	for _, k := range keys {
		// NUL separators keep ("ab","c") and ("a","bc") distinct
		h.Write([]byte(k))
		h.Write([]byte{0})
		h.Write([]byte(context[k]))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
