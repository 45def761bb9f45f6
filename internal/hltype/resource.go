package hltype

import (
	"fmt"
	"unicode/utf8"
)

// ResourceType is the four-character kind of a resource, such as "TEMP"
// or "TBLU".
type ResourceType [4]byte

// ParseResourceType validates s as a resource type. It must be exactly four
// bytes of UTF-8.
func ParseResourceType(s string) (ResourceType, error) {
	var rt ResourceType
	if len(s) != len(rt) {
		return rt, fmt.Errorf("resource type %q: invalid length %d", s, len(s))
	}
	if !utf8.ValidString(s) {
		return rt, fmt.Errorf("resource type %q: invalid UTF-8", s)
	}
	copy(rt[:], s)
	return rt, nil
}

// String returns the four-character type name.
func (rt ResourceType) String() string {
	return string(rt[:])
}

// IsZero reports whether rt is unset.
func (rt ResourceType) IsZero() bool {
	return rt == ResourceType{}
}
