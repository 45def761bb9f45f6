// Package pathhash computes resource identifiers from resource paths using
// the engine's hashing rules.
package pathhash

import (
	"crypto/md5" //nolint:gosec // the engine's identifier algorithm, not a security boundary
	"encoding/binary"
	"fmt"
	"unicode/utf8"

	"github.com/meigma/hashlist/internal/hltype"
)

// valueMask keeps the low 56 bits of the folded digest.
const valueMask = 1<<56 - 1

// Hash returns the identifier of path.
//
// The path is normalized with Normalize and hashed with MD5; digest bytes
// 1 through 7, read big-endian, form the identifier value. The result is
// untagged. Hash fails only when path is not valid UTF-8.
func Hash(path string) (hltype.ID, error) {
	if !utf8.ValidString(path) {
		return hltype.ID{}, fmt.Errorf("%w: %q", hltype.ErrInvalidPathEncoding, path)
	}
	sum := md5.Sum([]byte(Normalize(path))) //nolint:gosec // see import
	return hltype.NewID(binary.BigEndian.Uint64(sum[:8]) & valueMask)
}

// Normalize returns the canonical form of path used as hashing input.
//
// The engine lowercases ASCII letters and nothing else: separators,
// whitespace and non-ASCII characters are hashed as written.
func Normalize(path string) string {
	i := 0
	for i < len(path) && !isUpperASCII(path[i]) {
		i++
	}
	if i == len(path) {
		return path
	}
	b := []byte(path)
	for ; i < len(b); i++ {
		if isUpperASCII(b[i]) {
			b[i] += 'a' - 'A'
		}
	}
	return string(b)
}

func isUpperASCII(c byte) bool {
	return 'A' <= c && c <= 'Z'
}
