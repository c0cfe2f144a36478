// Package idgen derives short, stable identifiers for conflicts.
package idgen

import (
	"crypto/sha256"
	"fmt"
	"hash"
	"math/big"
	"strings"
)

// base36Alphabet is the character set for base36 encoding (0-9, a-z).
const base36Alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// ConflictIDPrefix prefixes every generated conflict ID.
const ConflictIDPrefix = "c"

// DefaultConflictIDLength is the number of base36 characters in a conflict ID.
const DefaultConflictIDLength = 8

// EncodeBase36 converts a byte slice to a base36 string of specified length.
func EncodeBase36(data []byte, length int) string {
	num := new(big.Int).SetBytes(data)

	var result strings.Builder
	base := big.NewInt(36)
	zero := big.NewInt(0)
	mod := new(big.Int)

	// Build the string in reverse
	chars := make([]byte, 0, length)
	for num.Cmp(zero) > 0 {
		num.DivMod(num, base, mod)
		chars = append(chars, base36Alphabet[mod.Int64()])
	}

	for i := len(chars) - 1; i >= 0; i-- {
		result.WriteByte(chars[i])
	}

	str := result.String()
	if len(str) < length {
		str = strings.Repeat("0", length-len(str)) + str
	}

	// Keep least significant digits
	if len(str) > length {
		str = str[len(str)-length:]
	}

	return str
}

// GenerateConflictID hashes the identity of a conflict into a short ID.
// The same label, span and side contents always produce the same ID, so a
// conflict re-detected on a later run maps onto its earlier history entries.
func GenerateConflictID(label string, start, end int, base, local, remote []string) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%d|%d", label, start, end)
	writeSide(h, "base", base)
	writeSide(h, "local", local)
	writeSide(h, "remote", remote)
	sum := h.Sum(nil)

	// 6 bytes = 48 bits, comfortably above 8 base36 chars
	return fmt.Sprintf("%s-%s", ConflictIDPrefix, EncodeBase36(sum[:6], DefaultConflictIDLength))
}

func writeSide(h hash.Hash, name string, lines []string) {
	fmt.Fprintf(h, "|%s:%d", name, len(lines))
	for _, l := range lines {
		h.Write([]byte{0})
		h.Write([]byte(l))
	}
}
