package archive

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/meigma/hashlist/internal/doc"
	"github.com/meigma/hashlist/internal/hltype"
	"github.com/meigma/hashlist/internal/smile"
)

// Format selects the archive layout written by Encode.
type Format uint8

const (
	// FormatLegacy is brotli-compressed Smile, readable by every consumer
	// of the distributed hash list.
	FormatLegacy Format = iota
	// FormatPacked is zstd-compressed CBOR with a formatVersion marker.
	FormatPacked
	// FormatPackedLZ4 is FormatPacked with lz4 compression.
	FormatPackedLZ4
)

func (f Format) String() string {
	switch f {
	case FormatLegacy:
		return "legacy"
	case FormatPacked:
		return "packed"
	case FormatPackedLZ4:
		return "packed-lz4"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(f))
	}
}

// ParseFormat parses a format name as printed by Format.String.
func ParseFormat(name string) (Format, error) {
	switch name {
	case "legacy":
		return FormatLegacy, nil
	case "packed":
		return FormatPacked, nil
	case "packed-lz4":
		return FormatPackedLZ4, nil
	default:
		return 0, fmt.Errorf("unknown archive format %q", name)
	}
}

type encodeConfig struct {
	format Format
	level  int
}

// EncoderOption configures Encode.
type EncoderOption func(*encodeConfig)

// WithFormat selects the archive layout. The default is FormatLegacy.
func WithFormat(f Format) EncoderOption {
	return func(c *encodeConfig) {
		c.format = f
	}
}

// WithCompressionLevel sets the compression level: brotli quality 0-11,
// zstd level 1-22 or lz4 level 0-9. Zero or out-of-range values use each
// codec's default.
func WithCompressionLevel(level int) EncoderOption {
	return func(c *encodeConfig) {
		c.level = level
	}
}

// Encode writes entries as an archive. Entries are stored in the given
// order. Tagged identifiers require a packed format.
func Encode(entries []hltype.Entry, revision uint32, opts ...EncoderOption) ([]byte, error) {
	cfg := encodeConfig{format: FormatLegacy}
	for _, opt := range opts {
		opt(&cfg)
	}

	switch cfg.format {
	case FormatLegacy:
		body, err := encodeLegacy(entries, revision)
		if err != nil {
			return nil, err
		}
		return compressBrotli(body, cfg.level)
	case FormatPacked, FormatPackedLZ4:
		body, err := marshalPacked(packed(entries, revision))
		if err != nil {
			return nil, err
		}
		if cfg.format == FormatPacked {
			return compressZstd(body, cfg.level)
		}
		return compressLZ4(body, cfg.level)
	default:
		return nil, fmt.Errorf("unsupported archive format %s", cfg.format)
	}
}

// hashText is the record form of an identifier: the value in uppercase hex,
// as written by the producing tool. Tags are stored separately.
func hashText(id hltype.ID) string {
	return strings.ToUpper(id.WithTag(0).String())
}

func encodeLegacy(entries []hltype.Entry, revision uint32) ([]byte, error) {
	records := make(doc.Seq, len(entries))
	for i, e := range entries {
		if e.ID.Tag() != 0 {
			return nil, fmt.Errorf("entry %s: tagged identifiers need a packed format", e.ID)
		}
		records[i] = doc.Map{
			{Key: "resourceType", Value: doc.String(e.ResourceType.String())},
			{Key: "hash", Value: doc.String(hashText(e.ID))},
			{Key: "path", Value: doc.String(e.Path)},
			{Key: "hint", Value: doc.String(e.Hint)},
			{Key: "gameFlags", Value: doc.Int(e.Flags)},
		}
	}
	root := doc.Map{
		{Key: "version", Value: doc.Int(revision)},
		{Key: "entries", Value: records},
	}
	return smile.Encode(root)
}

func packed(entries []hltype.Entry, revision uint32) *packedDocument {
	d := &packedDocument{
		FormatVersion: hltype.FormatPacked,
		Version:       revision,
		Entries:       make([]packedRecord, len(entries)),
	}
	for i, e := range entries {
		d.Entries[i] = packedRecord{
			Hash:         hashText(e.ID),
			ResourceType: e.ResourceType.String(),
			Path:         e.Path,
			Hint:         e.Hint,
			GameFlags:    uint8(e.Flags),
			Tag:          e.ID.Tag(),
		}
	}
	return d
}

func compressBrotli(data []byte, level int) ([]byte, error) {
	if level <= 0 || level > brotli.BestCompression {
		level = brotli.DefaultCompression
	}
	var buf bytes.Buffer
	// A fixed 4 MiB window keeps the first byte clear of the magic
	// numbers DetectCompression looks for.
	w := brotli.NewWriterOptions(&buf, brotli.WriterOptions{Quality: level, LGWin: 22})
	if _, err := w.Write(data); err != nil {
		return nil, fmt.Errorf("brotli compress: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("brotli compress: %w", err)
	}
	return buf.Bytes(), nil
}

func compressZstd(data []byte, level int) ([]byte, error) {
	encLevel := zstd.SpeedDefault
	if level > 0 {
		encLevel = zstd.EncoderLevelFromZstd(level)
	}
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(encLevel), zstd.WithEncoderCRC(true))
	if err != nil {
		return nil, fmt.Errorf("zstd compress: %w", err)
	}
	defer enc.Close()
	return enc.EncodeAll(data, nil), nil
}

var lz4Levels = []lz4.CompressionLevel{
	lz4.Fast, lz4.Level1, lz4.Level2, lz4.Level3, lz4.Level4,
	lz4.Level5, lz4.Level6, lz4.Level7, lz4.Level8, lz4.Level9,
}

func compressLZ4(data []byte, level int) ([]byte, error) {
	if level < 0 || level >= len(lz4Levels) {
		level = 0
	}
	var buf bytes.Buffer
	w := lz4.NewWriter(&buf)
	if err := w.Apply(
		lz4.CompressionLevelOption(lz4Levels[level]),
		lz4.ChecksumOption(true),
		lz4.SizeOption(uint64(len(data))),
	); err != nil {
		return nil, fmt.Errorf("lz4 compress: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return nil, fmt.Errorf("lz4 compress: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("lz4 compress: %w", err)
	}
	return buf.Bytes(), nil
}
