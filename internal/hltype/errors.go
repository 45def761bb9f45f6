package hltype

import "errors"

// Sentinel errors for hash list operations.
var (
	// ErrMalformedID is returned when identifier text has the wrong length,
	// charset or tag suffix, or when a value is out of range.
	ErrMalformedID = errors.New("hashlist: malformed identifier")

	// ErrInvalidPathEncoding is returned when a path is not valid UTF-8.
	ErrInvalidPathEncoding = errors.New("hashlist: invalid path encoding")

	// ErrDecompression is returned when the archive cannot be decompressed.
	ErrDecompression = errors.New("hashlist: decompression failed")

	// ErrDocumentParse is returned when decompressed content is not a valid
	// hash list document.
	ErrDocumentParse = errors.New("hashlist: document parse failed")

	// ErrUnsupportedFormatVersion is returned when the archive declares a
	// format version newer than this package understands.
	ErrUnsupportedFormatVersion = errors.New("hashlist: unsupported format version")

	// ErrDuplicateEntry is returned when an archive contains the same
	// identifier more than once and duplicates are rejected.
	ErrDuplicateEntry = errors.New("hashlist: duplicate entry")

	// ErrNotLoaded is returned by Store queries before a hash list is loaded.
	ErrNotLoaded = errors.New("hashlist: not loaded")

	// ErrSizeOverflow is returned when byte counts exceed supported limits.
	ErrSizeOverflow = errors.New("hashlist: size overflow")
)
