package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
)

// HashStrings returns a stable hex digest over the given parts. Used for
// answer-cache keys, where the key must be identical across processes.
func HashStrings(parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// HashIDSet digests a set of IDs independent of their order, so the same
// passage set always yields the same hash.
func HashIDSet(ids []string) string {
	sorted := make([]string, len(ids))
	copy(sorted, ids)
	sort.Strings(sorted)
	return HashStrings(strings.Join(sorted, ","))
}
