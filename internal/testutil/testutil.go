// Package testutil builds hash list fixtures for tests.
package testutil

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/meigma/hashlist/internal/archive"
	"github.com/meigma/hashlist/internal/hltype"
	"github.com/meigma/hashlist/internal/pathhash"
)

// Paths used by the standard fixture.
const (
	PathAB       = "a/b.ext"
	PathCD       = "c/d.ext"
	PathMainMenu = "[assembly:/_pro/scenes/frontend/mainmenu.entity].pc_entitytype"
)

// Entry returns an entry whose identifier is the hash of path.
func Entry(tb testing.TB, path, resourceType string) hltype.Entry {
	tb.Helper()
	id, err := pathhash.Hash(path)
	require.NoError(tb, err)
	rt, err := hltype.ParseResourceType(resourceType)
	require.NoError(tb, err)
	return hltype.Entry{ID: id, ResourceType: rt, Path: path}
}

// UnknownEntry returns an entry with no path for the raw identifier value.
func UnknownEntry(tb testing.TB, value uint64, resourceType string) hltype.Entry {
	tb.Helper()
	id, err := hltype.NewID(value)
	require.NoError(tb, err)
	rt, err := hltype.ParseResourceType(resourceType)
	require.NoError(tb, err)
	return hltype.Entry{ID: id, ResourceType: rt}
}

// Entries returns the standard fixture: two paths, one of them with a hint
// and game flags, plus an entry whose path is unknown.
func Entries(tb testing.TB) []hltype.Entry {
	tb.Helper()
	ab := Entry(tb, PathAB, "TEMP")
	ab.Hint = "first"
	ab.Flags = hltype.GameH2.Flag() | hltype.GameH3.Flag()
	cd := Entry(tb, PathCD, "TBLU")
	return []hltype.Entry{ab, cd, UnknownEntry(tb, 0x00ABCDEF01234567, "TEXT")}
}

// ManyEntries returns n distinct entries with generated paths.
func ManyEntries(tb testing.TB, n int) []hltype.Entry {
	tb.Helper()
	entries := make([]hltype.Entry, n)
	for i := range entries {
		entries[i] = Entry(tb, fmt.Sprintf("[assembly:/generated/%06d.entity].pc_entitytype", i), "TEMP")
	}
	return entries
}

// Archive encodes entries in the given format.
func Archive(tb testing.TB, entries []hltype.Entry, revision uint32, format archive.Format) []byte {
	tb.Helper()
	data, err := archive.Encode(entries, revision, archive.WithFormat(format))
	require.NoError(tb, err)
	return data
}

// LegacyArchive encodes entries as a brotli-compressed Smile archive.
func LegacyArchive(tb testing.TB, entries []hltype.Entry, revision uint32) []byte {
	tb.Helper()
	return Archive(tb, entries, revision, archive.FormatLegacy)
}
