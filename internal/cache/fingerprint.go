package cache

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"hash"
	"sort"
	"strings"

	"github.com/mikey/llm-phishing-detector/internal/core"
)

// urlPlaceholder substitutes every known URL inside the body before
// hashing, so two emails that mention the same links in a different order
// canonicalize to the same body text.
const urlPlaceholder = "\x00url\x00"

// Fingerprint computes the cache key for an email: a SHA-256 digest over a
// canonical serialization of sender, subject, body and the sorted URL set.
func Fingerprint(email *core.EmailRecord) string {
	urls := canonicalURLs(email.URLs)

	body := email.Body
	for _, u := range urls {
		body = strings.ReplaceAll(body, u, urlPlaceholder)
	}

	h := sha256.New()
	writeField(h, strings.ToLower(strings.TrimSpace(email.Sender)))
	writeField(h, email.Subject)
	writeField(h, body)
	for _, u := range urls {
		writeField(h, u)
	}

	return hex.EncodeToString(h.Sum(nil))
}

// writeField writes a length-prefixed field so adjacent fields can never
// collide across boundaries
func writeField(h hash.Hash, field string) {
	var length [8]byte
	binary.BigEndian.PutUint64(length[:], uint64(len(field)))
	h.Write(length[:])
	h.Write([]byte(field))
}

// canonicalURLs returns the deduplicated, sorted URL set
func canonicalURLs(urls []string) []string {
	seen := make(map[string]bool, len(urls))
	out := make([]string, 0, len(urls))
	for _, u := range urls {
		u = strings.TrimSpace(u)
		if u == "" || seen[u] {
			continue
		}
		seen[u] = true
		out = append(out, u)
	}
	sort.Strings(out)
	return out
}
