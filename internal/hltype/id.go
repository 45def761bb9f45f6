package hltype

import (
	"cmp"
	"encoding/binary"
	"encoding/hex"
	"fmt"
)

const (
	// IDTextLen is the length of the hexadecimal part of an identifier.
	IDTextLen = 16

	// TagDelimiter separates the identifier value from its type tag.
	TagDelimiter = ':'

	// idLimit is the first value that is not a valid identifier. Identifiers
	// use the low 56 bits only.
	idLimit = 1 << 56

	taggedIDTextLen = IDTextLen + 3
)

// ID identifies a resource independently of its path.
//
// An ID is a 64-bit value plus a 1-byte type tag. The zero tag is the
// default and is omitted from the text form. ID is comparable and can be
// used as a map key; two IDs are equal iff value and tag match.
type ID struct {
	value uint64
	tag   uint8
}

// NewID returns the untagged identifier for value.
func NewID(value uint64) (ID, error) {
	return NewTaggedID(value, 0)
}

// NewTaggedID returns the identifier for value with the given type tag.
func NewTaggedID(value uint64, tag uint8) (ID, error) {
	if value >= idLimit {
		return ID{}, fmt.Errorf("%w: value %#x out of range", ErrMalformedID, value)
	}
	return ID{value: value, tag: tag}, nil
}

// ParseID parses the canonical text form: 16 hex digits, optionally
// followed by ':' and a two-digit hex tag. Hex digits are case-insensitive.
// A ":00" suffix is rejected because the default tag is never written.
func ParseID(text string) (ID, error) {
	var tag uint8
	switch len(text) {
	case IDTextLen:
	case taggedIDTextLen:
		if text[IDTextLen] != TagDelimiter {
			return ID{}, fmt.Errorf("%w: %q: bad tag delimiter", ErrMalformedID, text)
		}
		var raw [1]byte
		if _, err := hex.Decode(raw[:], []byte(text[IDTextLen+1:])); err != nil {
			return ID{}, fmt.Errorf("%w: %q: bad tag", ErrMalformedID, text)
		}
		if raw[0] == 0 {
			return ID{}, fmt.Errorf("%w: %q: default tag must be omitted", ErrMalformedID, text)
		}
		tag = raw[0]
	default:
		return ID{}, fmt.Errorf("%w: %q: invalid length %d", ErrMalformedID, text, len(text))
	}

	var raw [8]byte
	if _, err := hex.Decode(raw[:], []byte(text[:IDTextLen])); err != nil {
		return ID{}, fmt.Errorf("%w: %q: invalid hex", ErrMalformedID, text)
	}
	value := binary.BigEndian.Uint64(raw[:])
	if value >= idLimit {
		return ID{}, fmt.Errorf("%w: %q: value out of range", ErrMalformedID, text)
	}
	return ID{value: value, tag: tag}, nil
}

// MustParseID is like ParseID but panics on error. Intended for constants
// and tests.
func MustParseID(text string) ID {
	id, err := ParseID(text)
	if err != nil {
		panic(err)
	}
	return id
}

// Value returns the raw numeric value.
func (id ID) Value() uint64 {
	return id.value
}

// Tag returns the type tag (0 when untagged).
func (id ID) Tag() uint8 {
	return id.tag
}

// WithTag returns a copy of id carrying tag.
func (id ID) WithTag(tag uint8) ID {
	id.tag = tag
	return id
}

// IsZero reports whether id is the zero identifier.
func (id ID) IsZero() bool {
	return id == ID{}
}

// Compare orders identifiers by value, then by tag.
func (id ID) Compare(other ID) int {
	if c := cmp.Compare(id.value, other.value); c != 0 {
		return c
	}
	return cmp.Compare(id.tag, other.tag)
}

// String returns the canonical lowercase text form.
func (id ID) String() string {
	return string(id.appendText(make([]byte, 0, taggedIDTextLen)))
}

func (id ID) appendText(dst []byte) []byte {
	var raw [8]byte
	binary.BigEndian.PutUint64(raw[:], id.value)
	dst = hex.AppendEncode(dst, raw[:])
	if id.tag != 0 {
		dst = append(dst, TagDelimiter)
		dst = hex.AppendEncode(dst, []byte{id.tag})
	}
	return dst
}

// MarshalText implements encoding.TextMarshaler.
func (id ID) MarshalText() ([]byte, error) {
	return id.appendText(make([]byte, 0, taggedIDTextLen)), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *ID) UnmarshalText(text []byte) error {
	parsed, err := ParseID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
