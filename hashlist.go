package hashlist

import (
	"iter"
	"log/slog"
	"sync"

	"github.com/opencontainers/go-digest"

	"github.com/meigma/hashlist/internal/archive"
	"github.com/meigma/hashlist/internal/index"
	"github.com/meigma/hashlist/internal/pathhash"
)

// Source identifies the archive bytes a HashList was loaded from.
type Source struct {
	// Digest is the sha256 digest of the archive.
	Digest digest.Digest

	// Size is the archive size in bytes.
	Size int64
}

// SourceOf computes the Source of archive bytes.
func SourceOf(data []byte) Source {
	return Source{Digest: digest.FromBytes(data), Size: int64(len(data))}
}

// HashList is a loaded hash list.
//
// A HashList is immutable and safe for concurrent use. Entries are returned
// by value.
type HashList struct {
	idx         *index.Index
	version     VersionTag
	source      Source
	compression Compression
	encoding    Encoding

	aliases   bool
	pathsOnce sync.Once
	paths     *index.PathIndex
}

// Load decodes an archive into a HashList.
//
// Errors wrap ErrDecompression, ErrDocumentParse,
// ErrUnsupportedFormatVersion or ErrDuplicateEntry. No partial list is
// returned on failure.
func Load(data []byte, opts ...Option) (*HashList, error) {
	cfg := newConfig(opts)
	return load(newDecoder(cfg), cfg, data)
}

func newDecoder(cfg *config) *archive.Decoder {
	return archive.NewDecoder(
		archive.WithMaxDecompressedSize(cfg.maxDecompressedSize),
		archive.WithMaxDecoderMemory(cfg.maxDecoderMemory),
	)
}

func load(dec *archive.Decoder, cfg *config, data []byte) (*HashList, error) {
	src := SourceOf(data)

	d, err := dec.Decode(data)
	if err != nil {
		cfg.logger.Debug("hash list decode failed",
			slog.String("digest", src.Digest.String()),
			slog.Any("error", err))
		return nil, err
	}

	idx, err := index.Build(d.Entries, cfg.duplicates)
	if err != nil {
		cfg.logger.Debug("hash list rejected",
			slog.String("digest", src.Digest.String()),
			slog.Any("error", err))
		return nil, err
	}

	h := &HashList{
		idx:         idx,
		version:     d.Version,
		source:      src,
		compression: d.Compression,
		encoding:    d.Encoding,
		aliases:     cfg.aliases,
	}
	cfg.logger.Debug("hash list decoded",
		slog.Int("entries", idx.Len()),
		slog.Uint64("revision", uint64(d.Version.Revision)),
		slog.Uint64("format", uint64(d.Version.Format)),
		slog.String("compression", d.Compression.String()),
		slog.String("digest", src.Digest.String()))
	return h, nil
}

// Lookup returns the entry for id.
func (h *HashList) Lookup(id ID) (Entry, bool) {
	return h.idx.Lookup(id)
}

// ReverseLookup returns the identifier of path and whether the list knows
// it.
//
// The identifier is computed with HashPath first. An entry with that value
// matches whatever its tag; the lowest tag wins when several share it. If no
// entry has the value and alias resolution is enabled, entries whose stored
// path matches are consulted. Otherwise the computed identifier is returned
// with false. The error is non-nil only when path is not valid UTF-8.
func (h *HashList) ReverseLookup(path string) (ID, bool, error) {
	id, err := pathhash.Hash(path)
	if err != nil {
		return ID{}, false, err
	}
	if e, ok := h.idx.LookupValue(id.Value()); ok {
		return e.ID, true, nil
	}
	if h.aliases {
		if e, ok := h.pathIndex().Lookup(path); ok {
			return e.ID, true, nil
		}
	}
	return id, false, nil
}

func (h *HashList) pathIndex() *index.PathIndex {
	h.pathsOnce.Do(func() {
		h.paths = index.NewPathIndex(h.idx)
	})
	return h.paths
}

// ToPath returns the path of id when known, and the identifier text
// otherwise.
func (h *HashList) ToPath(id ID) string {
	if e, ok := h.idx.Lookup(id); ok && e.HasPath() {
		return e.Path
	}
	return id.String()
}

// Len returns the number of entries.
func (h *HashList) Len() int {
	return h.idx.Len()
}

// Entries returns an iterator over all entries in archive order.
func (h *HashList) Entries() iter.Seq[Entry] {
	return h.idx.Entries()
}

// Version returns the format version and data revision.
func (h *HashList) Version() VersionTag {
	return h.version
}

// Source returns the identity of the archive the list was loaded from.
func (h *HashList) Source() Source {
	return h.source
}

// Compression returns the compression layer of the source archive.
func (h *HashList) Compression() Compression {
	return h.compression
}

// Encoding returns the document encoding of the source archive.
func (h *HashList) Encoding() Encoding {
	return h.encoding
}

// Matches reports whether the list was loaded from an archive with the
// given digest and size.
func (h *HashList) Matches(d digest.Digest, size int64) bool {
	return h.source.Size == size && h.source.Digest == d
}

// IsStale reports whether data differs from the archive the list was
// loaded from.
func (h *HashList) IsStale(data []byte) bool {
	if int64(len(data)) != h.source.Size {
		return true
	}
	return !h.Matches(digest.FromBytes(data), int64(len(data)))
}

// Encode writes entries as an archive in the selected format. The default
// format is FormatLegacy.
func Encode(entries []Entry, revision uint32, opts ...EncodeOption) ([]byte, error) {
	if _, err := index.FromEntries(entries, RejectDuplicates); err != nil {
		return nil, err
	}
	return archive.Encode(entries, revision, opts...)
}

// EncodeOption configures Encode.
type EncodeOption = archive.EncoderOption

// Encode options re-exported from archive.
var (
	// EncodeWithFormat selects the archive layout.
	EncodeWithFormat = archive.WithFormat

	// EncodeWithCompressionLevel sets the codec-specific compression level.
	EncodeWithCompressionLevel = archive.WithCompressionLevel
)
