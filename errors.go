package hashlist

import "github.com/meigma/hashlist/internal/hltype"

// Errors re-exported from hltype.
var (
	// ErrMalformedID is returned when identifier text is malformed or a value
	// is out of range.
	ErrMalformedID = hltype.ErrMalformedID

	// ErrInvalidPathEncoding is returned when a path is not valid UTF-8.
	ErrInvalidPathEncoding = hltype.ErrInvalidPathEncoding

	// ErrDecompression is returned when an archive cannot be decompressed,
	// including truncated and oversized archives.
	ErrDecompression = hltype.ErrDecompression

	// ErrDocumentParse is returned when an archive's content is not a valid
	// hash list document.
	ErrDocumentParse = hltype.ErrDocumentParse

	// ErrUnsupportedFormatVersion is returned when an archive is newer than
	// this package understands.
	ErrUnsupportedFormatVersion = hltype.ErrUnsupportedFormatVersion

	// ErrDuplicateEntry is returned when an archive lists an identifier twice
	// and duplicates are rejected.
	ErrDuplicateEntry = hltype.ErrDuplicateEntry

	// ErrNotLoaded is returned by Store queries while no list is loaded.
	ErrNotLoaded = hltype.ErrNotLoaded

	// ErrSizeOverflow is returned when an archive exceeds size limits.
	ErrSizeOverflow = hltype.ErrSizeOverflow
)
