// Package smile decodes and encodes the Smile binary data format (version 0)
// into doc trees.
//
// Smile is a binary encoding of the JSON data model. A document starts with
// the four-byte header ":)\n" plus a flags byte whose high nibble is the
// format version and whose low bits enable back-references to previously
// seen property names and short string values.
//
// The decoder supports every token of the format except BigDecimal. The
// encoder emits the subset needed to write hash list documents: shared
// property names are enabled, shared string values are not.
package smile
