// Package archive decodes and encodes hash list archives.
//
// An archive is a document wrapped in an optional compression layer. The
// compression is detected from magic bytes (zstd, lz4) or assumed to be
// brotli; the document is either Smile (the legacy distribution format) or
// self-described CBOR (packed archives). Both decode to a doc tree holding
// the data revision and the entries sequence.
package archive

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/meigma/hashlist/internal/doc"
	"github.com/meigma/hashlist/internal/hltype"
	"github.com/meigma/hashlist/internal/smile"
)

// DefaultMaxDecompressedSize bounds the decompressed document.
const DefaultMaxDecompressedSize = 512 << 20

// Encoding identifies the document encoding inside the compression layer.
type Encoding uint8

const (
	EncodingSmile Encoding = iota
	EncodingCBOR
)

func (e Encoding) String() string {
	switch e {
	case EncodingSmile:
		return "smile"
	case EncodingCBOR:
		return "cbor"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(e))
	}
}

// Document is a decoded archive.
type Document struct {
	// Entries is the raw entries sequence, one map per record.
	Entries doc.Seq

	// Version holds the format version and the data revision.
	Version hltype.VersionTag

	Compression Compression
	Encoding    Encoding
}

// DecoderOption configures a Decoder.
type DecoderOption func(*Decoder)

// WithMaxDecompressedSize limits the size of the decompressed document.
// Zero keeps the default.
func WithMaxDecompressedSize(n uint64) DecoderOption {
	return func(d *Decoder) {
		if n > 0 {
			d.maxDecompressedSize = n
		}
	}
}

// WithMaxDecoderMemory limits the window size zstd decoders accept.
// Zero means the library default.
func WithMaxDecoderMemory(n uint64) DecoderOption {
	return func(d *Decoder) {
		d.maxDecoderMemory = n
	}
}

// Decoder decodes archives. It is safe for concurrent use and reuses zstd
// decoders across calls.
type Decoder struct {
	maxDecompressedSize uint64
	maxDecoderMemory    uint64
	pool                *decoderPool
}

// NewDecoder creates a Decoder.
func NewDecoder(opts ...DecoderOption) *Decoder {
	d := &Decoder{maxDecompressedSize: DefaultMaxDecompressedSize}
	for _, opt := range opts {
		opt(d)
	}
	d.pool = newDecoderPool(d.maxDecoderMemory)
	return d
}

// Decode decodes an archive with a one-off Decoder.
func Decode(data []byte, opts ...DecoderOption) (*Document, error) {
	return NewDecoder(opts...).Decode(data)
}

// Decode decompresses and parses data. Errors wrap one of
// hltype.ErrDecompression, hltype.ErrDocumentParse or
// hltype.ErrUnsupportedFormatVersion.
func (d *Decoder) Decode(data []byte) (*Document, error) {
	c := DetectCompression(data)
	raw, err := d.decompress(data, c)
	if err != nil {
		return nil, err
	}

	root, enc, err := parseDocument(raw)
	if err != nil {
		return nil, err
	}

	top, err := doc.AsMap(root, "$")
	if err != nil {
		return nil, fmt.Errorf("%w: %w", hltype.ErrDocumentParse, err)
	}
	version, err := versionOf(top)
	if err != nil {
		return nil, err
	}
	entriesVal, err := doc.Required(top, "entries", "$")
	if err != nil {
		return nil, fmt.Errorf("%w: %w", hltype.ErrDocumentParse, err)
	}
	entries, err := doc.AsSeq(entriesVal, "$.entries")
	if err != nil {
		return nil, fmt.Errorf("%w: %w", hltype.ErrDocumentParse, err)
	}

	return &Document{
		Entries:     entries,
		Version:     version,
		Compression: c,
		Encoding:    enc,
	}, nil
}

func parseDocument(raw []byte) (doc.Value, Encoding, error) {
	switch {
	case smile.HasMagic(raw):
		root, _, err := smile.Decode(raw)
		if errors.Is(err, smile.ErrUnsupportedVersion) {
			return nil, EncodingSmile, fmt.Errorf("%w: %w", hltype.ErrUnsupportedFormatVersion, err)
		}
		if err != nil {
			return nil, EncodingSmile, fmt.Errorf("%w: %w", hltype.ErrDocumentParse, err)
		}
		return root, EncodingSmile, nil
	case bytes.HasPrefix(raw, cborMagic):
		root, err := decodeCBOR(raw)
		if err != nil {
			return nil, EncodingCBOR, fmt.Errorf("%w: cbor: %w", hltype.ErrDocumentParse, err)
		}
		return root, EncodingCBOR, nil
	default:
		return nil, 0, fmt.Errorf("%w: unrecognized document encoding", hltype.ErrDocumentParse)
	}
}

// versionOf reads the format version and data revision from the top-level
// map. A missing formatVersion means the legacy format.
func versionOf(top doc.Map) (hltype.VersionTag, error) {
	tag := hltype.VersionTag{Format: hltype.FormatLegacy}

	if v, ok := top.Get("formatVersion"); ok {
		format, err := doc.AsUint32(v, "$.formatVersion")
		if err != nil {
			return tag, fmt.Errorf("%w: %w", hltype.ErrDocumentParse, err)
		}
		if format == 0 {
			return tag, fmt.Errorf("%w: $.formatVersion: must be at least %d", hltype.ErrDocumentParse, hltype.FormatLegacy)
		}
		if format > hltype.MaxFormatVersion {
			return tag, fmt.Errorf("%w: format %d, newest supported is %d",
				hltype.ErrUnsupportedFormatVersion, format, hltype.MaxFormatVersion)
		}
		tag.Format = format
	}

	v, err := doc.Required(top, "version", "$")
	if err != nil {
		return tag, fmt.Errorf("%w: %w", hltype.ErrDocumentParse, err)
	}
	tag.Revision, err = doc.AsUint32(v, "$.version")
	if err != nil {
		return tag, fmt.Errorf("%w: %w", hltype.ErrDocumentParse, err)
	}
	return tag, nil
}
