package hashlist

import (
	"github.com/meigma/hashlist/internal/archive"
	"github.com/meigma/hashlist/internal/hltype"
	"github.com/meigma/hashlist/internal/index"
	"github.com/meigma/hashlist/internal/pathhash"
)

// --- Re-exports from internal packages ---

// ID identifies a resource: a 56-bit value plus an optional type tag.
type ID = hltype.ID

// ResourceType is the four-character kind of a resource.
type ResourceType = hltype.ResourceType

// Entry is one record of a hash list.
type Entry = hltype.Entry

// Flags records in which games a resource was seen.
type Flags = hltype.Flags

// GameVersion identifies a game release.
type GameVersion = hltype.GameVersion

// VersionTag holds the format version and data revision of a loaded list.
type VersionTag = hltype.VersionTag

// DuplicatePolicy decides how repeated identifiers in an archive are handled.
type DuplicatePolicy = index.DuplicatePolicy

// Compression identifies the compression layer of an archive.
type Compression = archive.Compression

// Encoding identifies the document encoding of an archive.
type Encoding = archive.Encoding

// Format selects the layout written by Encode.
type Format = archive.Format

// Game versions.
const (
	GameH1 = hltype.GameH1
	GameH2 = hltype.GameH2
	GameH3 = hltype.GameH3
)

// Duplicate policies.
const (
	RejectDuplicates = index.RejectDuplicates
	LastWins         = index.LastWins
)

// Compression constants.
const (
	CompressionNone   = archive.CompressionNone
	CompressionBrotli = archive.CompressionBrotli
	CompressionZstd   = archive.CompressionZstd
	CompressionLZ4    = archive.CompressionLZ4
)

// Encoding constants.
const (
	EncodingSmile = archive.EncodingSmile
	EncodingCBOR  = archive.EncodingCBOR
)

// Archive formats.
const (
	FormatLegacy    = archive.FormatLegacy
	FormatPacked    = archive.FormatPacked
	FormatPackedLZ4 = archive.FormatPackedLZ4
)

// MaxFormatVersion is the newest document format this package reads.
const MaxFormatVersion = hltype.MaxFormatVersion

// Identifier constructors re-exported from hltype.
var (
	// ParseID parses the 16-digit hex form, optionally followed by ':' and a
	// two-digit tag.
	ParseID = hltype.ParseID

	// MustParseID is like ParseID but panics on error.
	MustParseID = hltype.MustParseID

	// NewID returns the untagged identifier for a raw value.
	NewID = hltype.NewID

	// NewTaggedID returns the identifier for a raw value and tag.
	NewTaggedID = hltype.NewTaggedID

	// ParseResourceType validates a four-byte resource type.
	ParseResourceType = hltype.ParseResourceType

	// ParseFormat parses an archive format name.
	ParseFormat = archive.ParseFormat
)

// HashPath returns the identifier the engine assigns to path. It fails only
// when path is not valid UTF-8.
func HashPath(path string) (ID, error) {
	return pathhash.Hash(path)
}

// NormalizePath returns the form of path that is hashed: ASCII letters
// lowercased, everything else unchanged.
func NormalizePath(path string) string {
	return pathhash.Normalize(path)
}

// ParseAny accepts either identifier text or a path. Text starting with '0'
// is parsed as an identifier (every valid identifier does); anything else is
// hashed as a path.
func ParseAny(s string) (ID, error) {
	if len(s) > 0 && s[0] == '0' {
		return ParseID(s)
	}
	return HashPath(s)
}
