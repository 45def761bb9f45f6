package archive

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/andybalholm/brotli"
	"github.com/pierrec/lz4/v4"

	"github.com/meigma/hashlist/internal/hltype"
	"github.com/meigma/hashlist/internal/sizing"
	"github.com/meigma/hashlist/internal/smile"
)

// Compression identifies the outer compression layer of an archive.
type Compression uint8

const (
	// CompressionNone is a bare document, accepted for debugging.
	CompressionNone Compression = iota
	// CompressionBrotli is the distribution format of the legacy archive.
	CompressionBrotli
	// CompressionZstd is used by packed archives.
	CompressionZstd
	// CompressionLZ4 is used by packed archives tuned for load speed.
	CompressionLZ4
)

func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionBrotli:
		return "brotli"
	case CompressionZstd:
		return "zstd"
	case CompressionLZ4:
		return "lz4"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(c))
	}
}

var (
	zstdMagic = []byte{0x28, 0xB5, 0x2F, 0xFD}
	lz4Magic  = []byte{0x04, 0x22, 0x4D, 0x18}
	// cborMagic is the self-described CBOR tag 55799.
	cborMagic = []byte{0xD9, 0xD9, 0xF7}
)

// DetectCompression inspects the leading bytes of an archive. Brotli has no
// magic number, so anything unrecognized is assumed to be brotli.
func DetectCompression(data []byte) Compression {
	switch {
	case bytes.HasPrefix(data, zstdMagic):
		return CompressionZstd
	case bytes.HasPrefix(data, lz4Magic):
		return CompressionLZ4
	case smile.HasMagic(data), bytes.HasPrefix(data, cborMagic):
		return CompressionNone
	default:
		return CompressionBrotli
	}
}

func (d *Decoder) decompress(data []byte, c Compression) ([]byte, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty archive", hltype.ErrDecompression)
	}

	var (
		out []byte
		err error
	)
	switch c {
	case CompressionNone:
		if uint64(len(data)) > d.maxDecompressedSize {
			return nil, fmt.Errorf("%w: %w", hltype.ErrDecompression, hltype.ErrSizeOverflow)
		}
		return data, nil
	case CompressionBrotli:
		out, err = sizing.ReadAllWithLimit(brotli.NewReader(bytes.NewReader(data)), d.maxDecompressedSize, hltype.ErrSizeOverflow)
	case CompressionZstd:
		out, err = d.decompressZstd(data)
	case CompressionLZ4:
		out, err = d.decompressLZ4(data)
	default:
		err = fmt.Errorf("unsupported compression %s", c)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", hltype.ErrDecompression, c, err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: %s: no content", hltype.ErrDecompression, c)
	}
	return out, nil
}

func (d *Decoder) decompressZstd(data []byte) ([]byte, error) {
	dec, release, err := d.pool.get(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer release()
	return sizing.ReadAllWithLimit(dec, d.maxDecompressedSize, hltype.ErrSizeOverflow)
}

func (d *Decoder) decompressLZ4(data []byte) ([]byte, error) {
	frame, err := parseLZ4Frame(data)
	if err != nil {
		return nil, err
	}
	if frame.hasSize && frame.contentSize > d.maxDecompressedSize {
		return nil, hltype.ErrSizeOverflow
	}
	out, err := sizing.ReadAllWithLimit(lz4.NewReader(bytes.NewReader(data)), d.maxDecompressedSize, hltype.ErrSizeOverflow)
	if err != nil {
		return nil, err
	}
	if frame.hasSize && uint64(len(out)) != frame.contentSize {
		return nil, fmt.Errorf("decoded %d bytes, frame header records %d", len(out), frame.contentSize)
	}
	return out, nil
}

// LZ4 frame descriptor flags and block size bits.
const (
	lz4FlagDictID          = 1 << 0
	lz4FlagContentChecksum = 1 << 2
	lz4FlagContentSize     = 1 << 3
	lz4FlagBlockChecksum   = 1 << 4
	lz4BlockUncompressed   = 1 << 31
)

type lz4Frame struct {
	contentSize uint64
	hasSize     bool
}

// parseLZ4Frame walks the layout of a single lz4 frame without
// decompressing it: header, data blocks, end mark and content checksum.
// The frame must end exactly at the end of data. The lz4 reader stops
// cleanly at an EOF on a block or checksum boundary, so a truncated frame
// is only detected here.
func parseLZ4Frame(data []byte) (lz4Frame, error) {
	var f lz4Frame
	pos := len(lz4Magic)
	need := func(n int) error {
		if n < 0 || len(data)-pos < n {
			return fmt.Errorf("lz4 frame at offset %d: %w", pos, io.ErrUnexpectedEOF)
		}
		return nil
	}

	// FLG and BD bytes.
	if err := need(2); err != nil {
		return f, err
	}
	flg := data[pos]
	pos += 2
	if flg&lz4FlagContentSize != 0 {
		if err := need(8); err != nil {
			return f, err
		}
		f.contentSize = binary.LittleEndian.Uint64(data[pos:])
		f.hasSize = true
		pos += 8
	}
	if flg&lz4FlagDictID != 0 {
		return f, fmt.Errorf("lz4 frame: preset dictionaries are not supported")
	}
	// Header checksum.
	if err := need(1); err != nil {
		return f, err
	}
	pos++

	for {
		if err := need(4); err != nil {
			return f, err
		}
		x := binary.LittleEndian.Uint32(data[pos:])
		pos += 4
		if x == 0 {
			break
		}
		size := int(x &^ lz4BlockUncompressed)
		if flg&lz4FlagBlockChecksum != 0 {
			size += 4
		}
		if err := need(size); err != nil {
			return f, err
		}
		pos += size
	}

	if flg&lz4FlagContentChecksum != 0 {
		if err := need(4); err != nil {
			return f, err
		}
		pos += 4
	}
	if pos != len(data) {
		return f, fmt.Errorf("%d trailing bytes after lz4 frame", len(data)-pos)
	}
	return f, nil
}
