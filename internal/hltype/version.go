package hltype

import "fmt"

// Document format versions.
const (
	// FormatLegacy is the implicit version of documents without a
	// formatVersion marker.
	FormatLegacy uint32 = 1

	// FormatPacked adds the formatVersion marker and optional record tags.
	FormatPacked uint32 = 2

	// MaxFormatVersion is the newest format this package understands.
	MaxFormatVersion = FormatPacked
)

// VersionTag describes the loaded document.
type VersionTag struct {
	// Format is the document format version.
	Format uint32

	// Revision is the data revision recorded by the producing tool. It
	// increases with each published list and is not checked.
	Revision uint32
}

// String returns a human-readable form.
func (v VersionTag) String() string {
	return fmt.Sprintf("format %d, revision %d", v.Format, v.Revision)
}
