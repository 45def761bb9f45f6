package smile

import (
	"fmt"
	"math"
	"unicode/utf8"

	"github.com/meigma/hashlist/internal/doc"
)

// Encode serializes v as a Smile document with shared property names
// enabled.
func Encode(v doc.Value) ([]byte, error) {
	e := &encoder{
		buf:   append(append(make([]byte, 0, 4096), Magic...), flagSharedNames),
		names: make(map[string]int),
	}
	if err := e.value(v); err != nil {
		return nil, err
	}
	return e.buf, nil
}

type encoder struct {
	buf   []byte
	depth int
	names map[string]int
}

func (e *encoder) value(v doc.Value) error {
	switch x := v.(type) {
	case nil, doc.Null:
		e.buf = append(e.buf, tokenNull)
	case doc.Bool:
		if x {
			e.buf = append(e.buf, tokenTrue)
		} else {
			e.buf = append(e.buf, tokenFalse)
		}
	case doc.Int:
		e.int(int64(x))
	case doc.Uint:
		if x <= math.MaxInt64 {
			e.int(int64(x))
		} else {
			e.bigUint(uint64(x))
		}
	case doc.Float:
		e.buf = append(e.buf, tokenFloat64)
		e.septets(math.Float64bits(float64(x)), 10)
	case doc.String:
		return e.string(string(x))
	case doc.Bytes:
		e.buf = append(e.buf, tokenBinary7Bit)
		e.vint(uint64(len(x)))
		e.pack7(x)
	case doc.Seq:
		return e.seq(x)
	case doc.Map:
		return e.object(x)
	default:
		return fmt.Errorf("smile: cannot encode %T", v)
	}
	return nil
}

func (e *encoder) enter() error {
	e.depth++
	if e.depth > maxDepth {
		return fmt.Errorf("smile: nesting deeper than %d", maxDepth)
	}
	return nil
}

func (e *encoder) seq(s doc.Seq) error {
	if err := e.enter(); err != nil {
		return err
	}
	defer func() { e.depth-- }()

	e.buf = append(e.buf, tokenStartArray)
	for _, v := range s {
		if err := e.value(v); err != nil {
			return err
		}
	}
	e.buf = append(e.buf, tokenEndArray)
	return nil
}

func (e *encoder) object(m doc.Map) error {
	if err := e.enter(); err != nil {
		return err
	}
	defer func() { e.depth-- }()

	e.buf = append(e.buf, tokenStartObject)
	for _, p := range m {
		if err := e.key(p.Key); err != nil {
			return err
		}
		if err := e.value(p.Value); err != nil {
			return err
		}
	}
	e.buf = append(e.buf, tokenEndObject)
	return nil
}

func (e *encoder) key(name string) error {
	if !utf8.ValidString(name) {
		return fmt.Errorf("smile: invalid UTF-8 in property name %q", name)
	}
	if name == "" {
		e.buf = append(e.buf, tokenEmptyString)
		return nil
	}
	if idx, ok := e.names[name]; ok {
		if idx < 64 {
			e.buf = append(e.buf, 0x40|byte(idx))
		} else {
			e.buf = append(e.buf, tokenKeyLongSharedLo|byte(idx>>8), byte(idx))
		}
		return nil
	}

	n := len(name)
	switch {
	case isASCII(name) && n <= 64:
		e.buf = append(e.buf, 0x80|byte(n-1))
		e.buf = append(e.buf, name...)
	case !isASCII(name) && n <= 57:
		e.buf = append(e.buf, 0xC0|byte(n-2))
		e.buf = append(e.buf, name...)
	default:
		e.buf = append(e.buf, tokenKeyLongName)
		e.buf = append(e.buf, name...)
		e.buf = append(e.buf, tokenEndString)
	}

	if len(e.names) >= maxShared {
		clear(e.names)
	}
	e.names[name] = len(e.names)
	return nil
}

func (e *encoder) string(s string) error {
	if !utf8.ValidString(s) {
		return fmt.Errorf("smile: invalid UTF-8 in string value")
	}
	n := len(s)
	ascii := isASCII(s)
	switch {
	case n == 0:
		e.buf = append(e.buf, tokenEmptyString)
		return nil
	case ascii && n <= 32:
		e.buf = append(e.buf, 0x40|byte(n-1))
	case ascii && n <= 64:
		e.buf = append(e.buf, 0x60|byte(n-33))
	case !ascii && n <= 33:
		e.buf = append(e.buf, 0x80|byte(n-2))
	case !ascii && n <= 65:
		e.buf = append(e.buf, 0xA0|byte(n-34))
	case ascii:
		e.buf = append(e.buf, tokenLongASCII)
		e.buf = append(e.buf, s...)
		e.buf = append(e.buf, tokenEndString)
		return nil
	default:
		e.buf = append(e.buf, tokenLongUnicode)
		e.buf = append(e.buf, s...)
		e.buf = append(e.buf, tokenEndString)
		return nil
	}
	e.buf = append(e.buf, s...)
	return nil
}

func (e *encoder) int(n int64) {
	switch {
	case n >= -16 && n <= 15:
		e.buf = append(e.buf, 0xC0|byte(zigzagEncode(n)))
	case n >= math.MinInt32 && n <= math.MaxInt32:
		e.buf = append(e.buf, tokenInt32)
		e.vint(zigzagEncode(n))
	default:
		e.buf = append(e.buf, tokenInt64)
		e.vint(zigzagEncode(n))
	}
}

// bigUint writes n as a BigInteger: a two's complement magnitude with a
// leading zero byte so it stays positive.
func (e *encoder) bigUint(n uint64) {
	raw := []byte{0, byte(n >> 56), byte(n >> 48), byte(n >> 40), byte(n >> 32), byte(n >> 24), byte(n >> 16), byte(n >> 8), byte(n)}
	e.buf = append(e.buf, tokenBigInteger)
	e.vint(uint64(len(raw)))
	e.pack7(raw)
}

func zigzagEncode(n int64) uint64 {
	return uint64(n<<1) ^ uint64(n>>63) //nolint:gosec // zigzag encoding
}

// vint writes v as 7-bit groups followed by a final byte carrying 6 bits
// with the high bit set.
func (e *encoder) vint(v uint64) {
	last := byte(v&0x3F) | 0x80
	v >>= 6
	var tmp [10]byte
	i := len(tmp)
	for v != 0 {
		i--
		tmp[i] = byte(v & 0x7F)
		v >>= 7
	}
	e.buf = append(e.buf, tmp[i:]...)
	e.buf = append(e.buf, last)
}

// septets writes the low 7*n bits of v as n bytes, most significant first.
func (e *encoder) septets(v uint64, n int) {
	for k := n - 1; k >= 0; k-- {
		e.buf = append(e.buf, byte(v>>(7*k))&0x7F)
	}
}

func (e *encoder) pack7(data []byte) {
	full := len(data) / 7
	for c := range full {
		var acc uint64
		for _, b := range data[c*7 : c*7+7] {
			acc = acc<<8 | uint64(b)
		}
		e.septets(acc, 8)
	}
	tail := data[full*7:]
	if k := len(tail); k > 0 {
		var acc uint64
		for _, b := range tail {
			acc = acc<<8 | uint64(b)
		}
		e.septets(acc>>k, k)
		e.buf = append(e.buf, byte(acc)&(1<<k-1))
	}
}

func isASCII(s string) bool {
	for i := range len(s) {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}
