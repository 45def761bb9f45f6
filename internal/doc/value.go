// Package doc defines the schema-less document tree produced by the archive
// decoders and the typed accessors used to walk it.
//
// A Value is one of Null, Bool, Int, Uint, Float, String, Bytes, Seq or Map.
// Accessors never coerce between kinds beyond integer widening; callers
// that find an unexpected kind treat the document as malformed.
package doc

import (
	"fmt"
	"math"
)

// Kind identifies the variant held by a Value.
type Kind uint8

// Value kinds.
const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindUint
	KindFloat
	KindString
	KindBytes
	KindSeq
	KindMap
)

// String returns the kind name used in error messages.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindUint:
		return "uint"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindBytes:
		return "bytes"
	case KindSeq:
		return "sequence"
	case KindMap:
		return "map"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Value is a node of a decoded document.
type Value interface {
	Kind() Kind
	isValue()
}

type (
	// Null is the absent value.
	Null struct{}

	// Bool is a boolean scalar.
	Bool bool

	// Int is a signed integer scalar.
	Int int64

	// Uint is an unsigned integer scalar too large for Int.
	Uint uint64

	// Float is a floating point scalar.
	Float float64

	// String is a UTF-8 text scalar.
	String string

	// Bytes is a binary scalar.
	Bytes []byte

	// Seq is an ordered sequence of values.
	Seq []Value

	// Map is an ordered list of key/value pairs as they appeared in the
	// document.
	Map []Pair
)

// Pair is one member of a Map.
type Pair struct {
	Key   string
	Value Value
}

func (Null) Kind() Kind   { return KindNull }
func (Bool) Kind() Kind   { return KindBool }
func (Int) Kind() Kind    { return KindInt }
func (Uint) Kind() Kind   { return KindUint }
func (Float) Kind() Kind  { return KindFloat }
func (String) Kind() Kind { return KindString }
func (Bytes) Kind() Kind  { return KindBytes }
func (Seq) Kind() Kind    { return KindSeq }
func (Map) Kind() Kind    { return KindMap }

func (Null) isValue()   {}
func (Bool) isValue()   {}
func (Int) isValue()    {}
func (Uint) isValue()   {}
func (Float) isValue()  {}
func (String) isValue() {}
func (Bytes) isValue()  {}
func (Seq) isValue()    {}
func (Map) isValue()    {}

// KindOf returns the kind of v, treating a nil interface as Null.
func KindOf(v Value) Kind {
	if v == nil {
		return KindNull
	}
	return v.Kind()
}

// Get returns the value of the first member named key.
func (m Map) Get(key string) (Value, bool) {
	for _, p := range m {
		if p.Key == key {
			return p.Value, true
		}
	}
	return nil, false
}

// ShapeError reports a value of the wrong kind or range at a document path.
type ShapeError struct {
	Path string
	Want string
	Got  Kind
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("%s: want %s, got %s", e.Path, e.Want, e.Got)
}

// AsMap returns v as a Map.
func AsMap(v Value, path string) (Map, error) {
	m, ok := v.(Map)
	if !ok {
		return nil, &ShapeError{Path: path, Want: "map", Got: KindOf(v)}
	}
	return m, nil
}

// AsSeq returns v as a Seq.
func AsSeq(v Value, path string) (Seq, error) {
	s, ok := v.(Seq)
	if !ok {
		return nil, &ShapeError{Path: path, Want: "sequence", Got: KindOf(v)}
	}
	return s, nil
}

// AsString returns v as a string.
func AsString(v Value, path string) (string, error) {
	s, ok := v.(String)
	if !ok {
		return "", &ShapeError{Path: path, Want: "string", Got: KindOf(v)}
	}
	return string(s), nil
}

// AsUint returns v as an unsigned integer no greater than limit. Both Int
// and Uint values are accepted.
func AsUint(v Value, limit uint64, path string) (uint64, error) {
	var n uint64
	switch x := v.(type) {
	case Int:
		if x < 0 {
			return 0, &ShapeError{Path: path, Want: fmt.Sprintf("integer in [0, %d]", limit), Got: KindInt}
		}
		n = uint64(x)
	case Uint:
		n = uint64(x)
	default:
		return 0, &ShapeError{Path: path, Want: "integer", Got: KindOf(v)}
	}
	if n > limit {
		return 0, &ShapeError{Path: path, Want: fmt.Sprintf("integer in [0, %d]", limit), Got: KindOf(v)}
	}
	return n, nil
}

// AsUint32 is AsUint bounded to uint32.
func AsUint32(v Value, path string) (uint32, error) {
	n, err := AsUint(v, math.MaxUint32, path)
	return uint32(n), err //nolint:gosec // bounded by AsUint
}

// AsUint8 is AsUint bounded to uint8.
func AsUint8(v Value, path string) (uint8, error) {
	n, err := AsUint(v, math.MaxUint8, path)
	return uint8(n), err //nolint:gosec // bounded by AsUint
}

// OptionalString returns the string member key of m, or "" when absent or
// null.
func OptionalString(m Map, key, path string) (string, error) {
	v, ok := m.Get(key)
	if !ok || KindOf(v) == KindNull {
		return "", nil
	}
	return AsString(v, path+"."+key)
}

// OptionalUint8 returns the integer member key of m, or 0 when absent or
// null.
func OptionalUint8(m Map, key, path string) (uint8, error) {
	v, ok := m.Get(key)
	if !ok || KindOf(v) == KindNull {
		return 0, nil
	}
	return AsUint8(v, path+"."+key)
}

// Required returns member key of m or a ShapeError naming it.
func Required(m Map, key, path string) (Value, error) {
	v, ok := m.Get(key)
	if !ok {
		return nil, &ShapeError{Path: path + "." + key, Want: "required member", Got: KindNull}
	}
	return v, nil
}
