package smile

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"math/big"
	"unicode/utf8"

	"github.com/meigma/hashlist/internal/doc"
)

// Header layout.
const (
	HeaderLen = 4

	flagSharedNames  = 0x01
	flagSharedValues = 0x02
	flagRawBinary    = 0x04

	// maxShared is the size of each back-reference table. A full table is
	// cleared before the next string is added.
	maxShared = 1024

	// maxDepth bounds container nesting.
	maxDepth = 512
)

// Token bytes.
const (
	tokenEmptyString     = 0x20
	tokenNull            = 0x21
	tokenFalse           = 0x22
	tokenTrue            = 0x23
	tokenInt32           = 0x24
	tokenInt64           = 0x25
	tokenBigInteger      = 0x26
	tokenFloat32         = 0x28
	tokenFloat64         = 0x29
	tokenBigDecimal      = 0x2A
	tokenLongASCII       = 0xE0
	tokenLongUnicode     = 0xE4
	tokenBinary7Bit      = 0xE8
	tokenStartArray      = 0xF8
	tokenEndArray        = 0xF9
	tokenStartObject     = 0xFA
	tokenEndObject       = 0xFB
	tokenEndString       = 0xFC
	tokenRawBinary       = 0xFD
	tokenEndOfContent    = 0xFF
	tokenKeyLongName     = 0x34
	tokenKeyLongSharedLo = 0x30
	tokenKeyLongSharedHi = 0x33
)

// Magic is the start of every Smile header.
var Magic = []byte{':', ')', '\n'}

// Decoding errors.
var (
	// ErrInvalidHeader is returned when data does not start with a Smile header.
	ErrInvalidHeader = errors.New("smile: invalid header")

	// ErrUnsupportedVersion is returned for header versions other than 0.
	ErrUnsupportedVersion = errors.New("smile: unsupported version")

	// ErrSyntax is returned for malformed or unsupported tokens.
	ErrSyntax = errors.New("smile: syntax error")

	// ErrTruncated is returned when data ends inside a value.
	ErrTruncated = errors.New("smile: unexpected end of data")
)

// Header is the decoded Smile header.
type Header struct {
	Version      uint8
	SharedNames  bool
	SharedValues bool
	RawBinary    bool
}

// HasMagic reports whether data starts with the Smile signature.
func HasMagic(data []byte) bool {
	return bytes.HasPrefix(data, Magic)
}

// ParseHeader decodes the four-byte header at the start of data.
func ParseHeader(data []byte) (Header, error) {
	if len(data) < HeaderLen || !HasMagic(data) {
		return Header{}, ErrInvalidHeader
	}
	b := data[3]
	h := Header{
		Version:      b >> 4,
		SharedNames:  b&flagSharedNames != 0,
		SharedValues: b&flagSharedValues != 0,
		RawBinary:    b&flagRawBinary != 0,
	}
	if h.Version != 0 {
		return h, fmt.Errorf("%w: %d", ErrUnsupportedVersion, h.Version)
	}
	return h, nil
}

// Decode parses a complete Smile document. The root value may be followed
// only by end-of-content markers.
func Decode(data []byte) (doc.Value, Header, error) {
	h, err := ParseHeader(data)
	if err != nil {
		return nil, h, err
	}
	d := &decoder{data: data, pos: HeaderLen, hdr: h}
	root, err := d.value()
	if err != nil {
		return nil, h, err
	}
	for d.pos < len(d.data) {
		if d.data[d.pos] != tokenEndOfContent {
			return nil, h, d.errorf("trailing data after root value")
		}
		d.pos++
	}
	return root, h, nil
}

type decoder struct {
	data   []byte
	pos    int
	hdr    Header
	depth  int
	names  []string
	values []string
}

func (d *decoder) errorf(format string, args ...any) error {
	return fmt.Errorf("%w at offset %d: %s", ErrSyntax, d.pos, fmt.Sprintf(format, args...))
}

func (d *decoder) truncated() error {
	return fmt.Errorf("%w at offset %d", ErrTruncated, d.pos)
}

func (d *decoder) next() (byte, error) {
	if d.pos >= len(d.data) {
		return 0, d.truncated()
	}
	b := d.data[d.pos]
	d.pos++
	return b, nil
}

func (d *decoder) take(n int) ([]byte, error) {
	if n < 0 || n > len(d.data)-d.pos {
		return nil, d.truncated()
	}
	b := d.data[d.pos : d.pos+n]
	d.pos += n
	return b, nil
}

func (d *decoder) value() (doc.Value, error) {
	start := d.pos
	b, err := d.next()
	if err != nil {
		return nil, err
	}

	switch {
	case b == 0x00:
		d.pos = start
		return nil, d.errorf("invalid token 0x00")
	case b < tokenEmptyString:
		return d.sharedValue(int(b) - 1)
	case b == tokenEmptyString:
		return doc.String(""), nil
	case b == tokenNull:
		return doc.Null{}, nil
	case b == tokenFalse:
		return doc.Bool(false), nil
	case b == tokenTrue:
		return doc.Bool(true), nil
	case b == tokenInt32, b == tokenInt64:
		n, err := d.vint()
		if err != nil {
			return nil, err
		}
		return doc.Int(zigzag(n)), nil
	case b == tokenBigInteger:
		return d.bigInteger()
	case b == tokenFloat32:
		bits, err := d.septets(5)
		if err != nil {
			return nil, err
		}
		return doc.Float(math.Float32frombits(uint32(bits))), nil //nolint:gosec // low 32 bits by format
	case b == tokenFloat64:
		bits, err := d.septets(10)
		if err != nil {
			return nil, err
		}
		return doc.Float(math.Float64frombits(bits)), nil
	case b == tokenBigDecimal:
		d.pos = start
		return nil, d.errorf("BigDecimal values are not supported")
	case b >= 0x40 && b <= 0x5F:
		return d.shortString(int(b&0x1F) + 1)
	case b >= 0x60 && b <= 0x7F:
		return d.shortString(int(b&0x1F) + 33)
	case b >= 0x80 && b <= 0x9F:
		return d.shortString(int(b&0x1F) + 2)
	case b >= 0xA0 && b <= 0xBF:
		return d.shortString(int(b&0x1F) + 34)
	case b >= 0xC0 && b <= 0xDF:
		return doc.Int(zigzag(uint64(b & 0x1F))), nil
	case b == tokenLongASCII, b == tokenLongUnicode:
		s, err := d.terminated()
		if err != nil {
			return nil, err
		}
		return doc.String(s), nil
	case b == tokenBinary7Bit:
		return d.binary7()
	case b >= 0xEC && b <= 0xEF:
		lo, err := d.next()
		if err != nil {
			return nil, err
		}
		return d.sharedValue(int(b&0x03)<<8 | int(lo))
	case b == tokenStartArray:
		return d.array()
	case b == tokenStartObject:
		return d.object()
	case b == tokenRawBinary:
		return d.rawBinary()
	default:
		d.pos = start
		return nil, d.errorf("unexpected token 0x%02x", b)
	}
}

func (d *decoder) enter() error {
	d.depth++
	if d.depth > maxDepth {
		return d.errorf("nesting deeper than %d", maxDepth)
	}
	return nil
}

func (d *decoder) array() (doc.Value, error) {
	if err := d.enter(); err != nil {
		return nil, err
	}
	defer func() { d.depth-- }()

	seq := doc.Seq{}
	for {
		if d.pos >= len(d.data) {
			return nil, d.truncated()
		}
		if d.data[d.pos] == tokenEndArray {
			d.pos++
			return seq, nil
		}
		v, err := d.value()
		if err != nil {
			return nil, err
		}
		seq = append(seq, v)
	}
}

func (d *decoder) object() (doc.Value, error) {
	if err := d.enter(); err != nil {
		return nil, err
	}
	defer func() { d.depth-- }()

	m := doc.Map{}
	for {
		key, end, err := d.key()
		if err != nil {
			return nil, err
		}
		if end {
			return m, nil
		}
		v, err := d.value()
		if err != nil {
			return nil, err
		}
		m = append(m, doc.Pair{Key: key, Value: v})
	}
}

// key decodes a property name. end is true at the END_OBJECT marker.
func (d *decoder) key() (name string, end bool, err error) {
	start := d.pos
	b, err := d.next()
	if err != nil {
		return "", false, err
	}

	switch {
	case b == tokenEndObject:
		return "", true, nil
	case b == tokenEmptyString:
		return "", false, nil
	case b >= tokenKeyLongSharedLo && b <= tokenKeyLongSharedHi:
		lo, err := d.next()
		if err != nil {
			return "", false, err
		}
		name, err = d.sharedName(int(b&0x03)<<8 | int(lo))
		return name, false, err
	case b == tokenKeyLongName:
		name, err = d.terminated()
		if err != nil {
			return "", false, err
		}
	case b >= 0x40 && b <= 0x7F:
		name, err = d.sharedName(int(b & 0x3F))
		return name, false, err
	case b >= 0x80 && b <= 0xBF:
		name, err = d.text(int(b&0x3F) + 1)
		if err != nil {
			return "", false, err
		}
	case b >= 0xC0 && b <= 0xF7:
		name, err = d.text(int(b&0x3F) + 2)
		if err != nil {
			return "", false, err
		}
	default:
		d.pos = start
		return "", false, d.errorf("unexpected key token 0x%02x", b)
	}

	if d.hdr.SharedNames {
		d.names = remember(d.names, name)
	}
	return name, false, nil
}

func remember(table []string, s string) []string {
	if len(table) >= maxShared {
		table = table[:0]
	}
	return append(table, s)
}

func (d *decoder) sharedName(idx int) (string, error) {
	if !d.hdr.SharedNames || idx >= len(d.names) {
		return "", d.errorf("invalid shared name reference %d", idx)
	}
	return d.names[idx], nil
}

func (d *decoder) sharedValue(idx int) (doc.Value, error) {
	if !d.hdr.SharedValues || idx < 0 || idx >= len(d.values) {
		return nil, d.errorf("invalid shared value reference %d", idx)
	}
	return doc.String(d.values[idx]), nil
}

func (d *decoder) shortString(n int) (doc.Value, error) {
	s, err := d.text(n)
	if err != nil {
		return nil, err
	}
	if d.hdr.SharedValues {
		d.values = remember(d.values, s)
	}
	return doc.String(s), nil
}

func (d *decoder) text(n int) (string, error) {
	raw, err := d.take(n)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(raw) {
		return "", d.errorf("invalid UTF-8 in string")
	}
	return string(raw), nil
}

// terminated reads a string ended by the end-of-string marker.
func (d *decoder) terminated() (string, error) {
	end := bytes.IndexByte(d.data[d.pos:], tokenEndString)
	if end < 0 {
		d.pos = len(d.data)
		return "", d.truncated()
	}
	s, err := d.text(end)
	if err != nil {
		return "", err
	}
	d.pos++ // end marker
	return s, nil
}

// vint decodes an unsigned variable-length integer: 7 bits per byte with
// the high bit clear, then a final byte with the high bit set carrying 6 bits.
func (d *decoder) vint() (uint64, error) {
	var v uint64
	for range 10 {
		b, err := d.next()
		if err != nil {
			return 0, err
		}
		if b&0x80 != 0 {
			if v>>58 != 0 {
				return 0, d.errorf("variable-length integer overflows 64 bits")
			}
			return v<<6 | uint64(b&0x3F), nil
		}
		if v>>57 != 0 {
			return 0, d.errorf("variable-length integer overflows 64 bits")
		}
		v = v<<7 | uint64(b)
	}
	return 0, d.errorf("variable-length integer too long")
}

// length decodes a vint used as a byte count.
func (d *decoder) length() (int, error) {
	n, err := d.vint()
	if err != nil {
		return 0, err
	}
	if n > uint64(len(d.data)) {
		return 0, d.truncated()
	}
	return int(n), nil //nolint:gosec // bounded by len(d.data)
}

// septets accumulates n bytes of 7 data bits each, keeping the low 64 bits.
func (d *decoder) septets(n int) (uint64, error) {
	raw, err := d.take(n)
	if err != nil {
		return 0, err
	}
	var v uint64
	for _, b := range raw {
		if b&0x80 != 0 {
			return 0, d.errorf("high bit set in 7-bit data")
		}
		v = v<<7 | uint64(b)
	}
	return v, nil
}

func zigzag(n uint64) int64 {
	return int64(n>>1) ^ -int64(n&1) //nolint:gosec // zigzag decoding
}

func (d *decoder) binary7() (doc.Value, error) {
	n, err := d.length()
	if err != nil {
		return nil, err
	}
	out, err := d.unpack7(n)
	if err != nil {
		return nil, err
	}
	return doc.Bytes(out), nil
}

// unpack7 decodes n bytes stored as a big-endian stream of 7-bit groups.
// Every 7 bytes use 8 encoded bytes; a trailing group of k bytes uses k+1
// encoded bytes, the last holding the remaining k bits right-aligned.
func (d *decoder) unpack7(n int) ([]byte, error) {
	full, rem := n/7, n%7
	encoded := full * 8
	if rem > 0 {
		encoded += rem + 1
	}
	src, err := d.take(encoded)
	if err != nil {
		return nil, err
	}
	for _, b := range src {
		if b&0x80 != 0 {
			return nil, d.errorf("high bit set in 7-bit binary")
		}
	}

	out := make([]byte, 0, n)
	for c := range full {
		var acc uint64
		for _, b := range src[c*8 : c*8+8] {
			acc = acc<<7 | uint64(b)
		}
		for k := 6; k >= 0; k-- {
			out = append(out, byte(acc>>(8*k)))
		}
	}
	if rem > 0 {
		tail := src[full*8:]
		var acc uint64
		for _, b := range tail[:rem] {
			acc = acc<<7 | uint64(b)
		}
		acc = acc<<rem | uint64(tail[rem])&(1<<rem-1)
		for k := rem - 1; k >= 0; k-- {
			out = append(out, byte(acc>>(8*k)))
		}
	}
	return out, nil
}

func (d *decoder) bigInteger() (doc.Value, error) {
	n, err := d.length()
	if err != nil {
		return nil, err
	}
	raw, err := d.unpack7(n)
	if err != nil {
		return nil, err
	}
	// Two's complement, big-endian.
	v := new(big.Int).SetBytes(raw)
	if len(raw) > 0 && raw[0]&0x80 != 0 {
		v.Sub(v, new(big.Int).Lsh(big.NewInt(1), uint(len(raw))*8))
	}
	switch {
	case v.IsInt64():
		return doc.Int(v.Int64()), nil
	case v.IsUint64():
		return doc.Uint(v.Uint64()), nil
	default:
		return nil, d.errorf("BigInteger %s exceeds 64 bits", v)
	}
}

func (d *decoder) rawBinary() (doc.Value, error) {
	n, err := d.length()
	if err != nil {
		return nil, err
	}
	raw, err := d.take(n)
	if err != nil {
		return nil, err
	}
	return doc.Bytes(bytes.Clone(raw)), nil
}
