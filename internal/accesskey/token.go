package accesskey

import (
	"crypto/rand"
	"strings"
)

const (
	tokenAlphabet      = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	tokenSegments      = 4
	tokenSegmentLength = 8
)

// GenerateToken produces a bearer token of four hyphen-joined groups of
// eight uppercase-alphanumeric characters from a cryptographically secure
// source. Uniqueness is still enforced by the database; the service retries
// on collision.
func GenerateToken() (string, error) {
	buf := make([]byte, tokenSegments*tokenSegmentLength)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	var b strings.Builder
	b.Grow(tokenSegments*tokenSegmentLength + tokenSegments - 1)
	for i, raw := range buf {
		if i > 0 && i%tokenSegmentLength == 0 {
			b.WriteByte('-')
		}
		b.WriteByte(tokenAlphabet[int(raw)%len(tokenAlphabet)])
	}
	return b.String(), nil
}
