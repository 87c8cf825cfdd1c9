package session

import (
	"math/rand/v2"
	"strings"
)

const (
	codeLetters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	codeDigits  = "0123456789"
)

// NewCode returns a join code like "QXR-042": three uppercase letters,
// a dash and three digits (17,576,000 combinations).
func NewCode() string {
	var b strings.Builder
	b.Grow(7)
	for i := 0; i < 3; i++ {
		b.WriteByte(codeLetters[rand.IntN(len(codeLetters))])
	}
	b.WriteByte('-')
	for i := 0; i < 3; i++ {
		b.WriteByte(codeDigits[rand.IntN(len(codeDigits))])
	}
	return b.String()
}

// NormalizeCode canonicalises a user-typed join code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
