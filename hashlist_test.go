package hashlist_test

import (
	"slices"
	"sync"
	"testing"

	"github.com/opencontainers/go-digest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/hashlist"
	"github.com/meigma/hashlist/internal/doc"
	"github.com/meigma/hashlist/internal/smile"
	"github.com/meigma/hashlist/internal/testutil"
)

// mustLoad loads an archive or fails the test.
func mustLoad(tb testing.TB, data []byte, opts ...hashlist.Option) *hashlist.HashList {
	tb.Helper()
	list, err := hashlist.Load(data, opts...)
	require.NoError(tb, err, "Load failed")
	return list
}

func TestLoadAndLookup(t *testing.T) {
	t.Parallel()

	for _, format := range []hashlist.Format{hashlist.FormatLegacy, hashlist.FormatPacked, hashlist.FormatPackedLZ4} {
		t.Run(format.String(), func(t *testing.T) {
			t.Parallel()
			entries := testutil.Entries(t)
			list := mustLoad(t, testutil.Archive(t, entries, 12, format))

			assert.Equal(t, len(entries), list.Len())
			assert.Equal(t, uint32(12), list.Version().Revision)
			for _, want := range entries {
				got, ok := list.Lookup(want.ID)
				require.True(t, ok, "lookup %s", want.ID)
				assert.Equal(t, want, got)
			}
		})
	}
}

func TestTwoRecordScenario(t *testing.T) {
	t.Parallel()

	ab := testutil.Entry(t, testutil.PathAB, "TEMP")
	cd := testutil.Entry(t, testutil.PathCD, "TBLU")
	list := mustLoad(t, testutil.LegacyArchive(t, []hashlist.Entry{ab, cd}, 1))

	assert.Equal(t, 2, list.Len())
	assert.Equal(t, hashlist.MustParseID("00077a671d4d3125"), ab.ID)

	got, ok := list.Lookup(hashlist.MustParseID("00077A671D4D3125"))
	require.True(t, ok)
	assert.Equal(t, testutil.PathAB, got.Path)
	assert.Equal(t, "TEMP", got.ResourceType.String())

	got, ok = list.Lookup(cd.ID)
	require.True(t, ok)
	assert.Equal(t, testutil.PathCD, got.Path)

	_, ok = list.Lookup(hashlist.MustParseID("0000000000000001"))
	assert.False(t, ok)
}

func TestReverseLookup(t *testing.T) {
	t.Parallel()

	alias := testutil.UnknownEntry(t, 0x0011223344556677, "TEMP")
	alias.Path = "alias/target.ext"
	entries := append(testutil.Entries(t), alias)
	data := testutil.LegacyArchive(t, entries, 1)

	t.Run("known path", func(t *testing.T) {
		t.Parallel()
		list := mustLoad(t, data)
		id, ok, err := list.ReverseLookup("A/B.EXT")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, hashlist.MustParseID("00077a671d4d3125"), id)
	})

	t.Run("unknown path returns computed id", func(t *testing.T) {
		t.Parallel()
		list := mustLoad(t, data)
		id, ok, err := list.ReverseLookup(testutil.PathMainMenu)
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Equal(t, hashlist.MustParseID("00d5cb7e6d04e32c"), id)
	})

	t.Run("alias without resolution", func(t *testing.T) {
		t.Parallel()
		list := mustLoad(t, data)
		id, ok, err := list.ReverseLookup("alias/target.ext")
		require.NoError(t, err)
		assert.False(t, ok)
		computed, err := hashlist.HashPath("alias/target.ext")
		require.NoError(t, err)
		assert.Equal(t, computed, id)
	})

	t.Run("alias with resolution", func(t *testing.T) {
		t.Parallel()
		list := mustLoad(t, data, hashlist.WithAliasResolution(true))
		id, ok, err := list.ReverseLookup("ALIAS/target.ext")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, alias.ID, id)

		// The computed identifier still takes precedence.
		id, ok, err = list.ReverseLookup(testutil.PathAB)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, hashlist.MustParseID("00077a671d4d3125"), id)
	})

	t.Run("tagged entry", func(t *testing.T) {
		t.Parallel()
		computed, err := hashlist.HashPath("a/b.ext")
		require.NoError(t, err)
		tagged := testutil.UnknownEntry(t, computed.Value(), "TEMP")
		tagged.ID = computed.WithTag(3)
		other := tagged
		other.ID = computed.WithTag(9)
		list := mustLoad(t, testutil.Archive(t, []hashlist.Entry{other, tagged}, 1, hashlist.FormatPacked))

		id, ok, err := list.ReverseLookup("a/b.ext")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, hashlist.MustParseID("00077a671d4d3125:03"), id)
	})

	t.Run("invalid encoding", func(t *testing.T) {
		t.Parallel()
		list := mustLoad(t, data)
		_, _, err := list.ReverseLookup("bad\xff")
		require.ErrorIs(t, err, hashlist.ErrInvalidPathEncoding)
	})
}

func TestToPath(t *testing.T) {
	t.Parallel()

	entries := testutil.Entries(t)
	list := mustLoad(t, testutil.LegacyArchive(t, entries, 1))

	assert.Equal(t, testutil.PathAB, list.ToPath(entries[0].ID))
	// Known entry without a path.
	assert.Equal(t, "00abcdef01234567", list.ToPath(entries[2].ID))
	// Unknown identifier.
	assert.Equal(t, "0000000000000042", list.ToPath(hashlist.MustParseID("0000000000000042")))
}

func TestLoadDuplicates(t *testing.T) {
	t.Parallel()

	first := testutil.Entry(t, testutil.PathAB, "TEMP")
	second := first
	second.Hint = "replacement"
	data := testutil.LegacyArchive(t, []hashlist.Entry{first, testutil.Entry(t, testutil.PathCD, "TEMP"), second}, 1)

	_, err := hashlist.Load(data)
	require.ErrorIs(t, err, hashlist.ErrDuplicateEntry)

	list := mustLoad(t, data, hashlist.WithDuplicatePolicy(hashlist.LastWins))
	assert.Equal(t, 2, list.Len())
	got, ok := list.Lookup(first.ID)
	require.True(t, ok)
	assert.Equal(t, "replacement", got.Hint)
}

func TestLoadTruncated(t *testing.T) {
	t.Parallel()

	for _, format := range []hashlist.Format{hashlist.FormatLegacy, hashlist.FormatPacked, hashlist.FormatPackedLZ4} {
		t.Run(format.String(), func(t *testing.T) {
			t.Parallel()
			data := testutil.Archive(t, testutil.ManyEntries(t, 300), 3, format)

			full, err := hashlist.Load(data)
			require.NoError(t, err, "complete archive")
			require.Equal(t, 300, full.Len())

			for n := range len(data) {
				list, err := hashlist.Load(data[:n])
				require.ErrorIs(t, err, hashlist.ErrDecompression, "prefix %d of %d", n, len(data))
				require.Nil(t, list)
			}
		})
	}
}

func TestLoadUnsupportedFormatVersion(t *testing.T) {
	t.Parallel()

	raw, err := smile.Encode(doc.Map{
		{Key: "formatVersion", Value: doc.Int(int64(hashlist.MaxFormatVersion) + 1)},
		{Key: "version", Value: doc.Int(1)},
		{Key: "entries", Value: doc.Seq{}},
	})
	require.NoError(t, err)

	_, err = hashlist.Load(raw)
	require.ErrorIs(t, err, hashlist.ErrUnsupportedFormatVersion)
}

func TestLoadSizeLimit(t *testing.T) {
	t.Parallel()

	data := testutil.LegacyArchive(t, testutil.ManyEntries(t, 100), 1)
	_, err := hashlist.Load(data, hashlist.WithMaxDecompressedSize(1024))
	require.ErrorIs(t, err, hashlist.ErrSizeOverflow)
	require.ErrorIs(t, err, hashlist.ErrDecompression)
}

func TestEntries(t *testing.T) {
	t.Parallel()

	entries := testutil.Entries(t)
	list := mustLoad(t, testutil.Archive(t, entries, 1, hashlist.FormatPacked))

	assert.Equal(t, entries, slices.Collect(list.Entries()))
	assert.Equal(t, entries, slices.Collect(list.Entries()), "iterator is restartable")
}

func TestSourceAndStaleness(t *testing.T) {
	t.Parallel()

	data := testutil.LegacyArchive(t, testutil.Entries(t), 1)
	other := testutil.LegacyArchive(t, testutil.Entries(t), 2)
	list := mustLoad(t, data)

	src := list.Source()
	assert.Equal(t, digest.FromBytes(data), src.Digest)
	assert.Equal(t, int64(len(data)), src.Size)
	assert.True(t, list.Matches(src.Digest, src.Size))
	assert.False(t, list.Matches(src.Digest, src.Size+1))
	assert.False(t, list.IsStale(data))
	assert.True(t, list.IsStale(other))
	assert.Equal(t, hashlist.CompressionBrotli, list.Compression())
	assert.Equal(t, hashlist.EncodingSmile, list.Encoding())
}

func TestEncode(t *testing.T) {
	t.Parallel()

	entries := testutil.Entries(t)
	data, err := hashlist.Encode(entries, 5, hashlist.EncodeWithFormat(hashlist.FormatPackedLZ4), hashlist.EncodeWithCompressionLevel(9))
	require.NoError(t, err)

	list := mustLoad(t, data)
	assert.Equal(t, hashlist.VersionTag{Format: hashlist.MaxFormatVersion, Revision: 5}, list.Version())
	assert.Equal(t, hashlist.CompressionLZ4, list.Compression())

	_, err = hashlist.Encode(append(entries, entries[0]), 5)
	require.ErrorIs(t, err, hashlist.ErrDuplicateEntry)
}

func TestParseAny(t *testing.T) {
	t.Parallel()

	id, err := hashlist.ParseAny("00077A671D4D3125")
	require.NoError(t, err)
	assert.Equal(t, hashlist.MustParseID("00077a671d4d3125"), id)

	id, err = hashlist.ParseAny("A/B.ext")
	require.NoError(t, err)
	assert.Equal(t, hashlist.MustParseID("00077a671d4d3125"), id)

	_, err = hashlist.ParseAny("0xyz")
	require.ErrorIs(t, err, hashlist.ErrMalformedID)

	assert.Equal(t, "a/b.ext", hashlist.NormalizePath("A/B.ext"))
}

func TestConcurrentReads(t *testing.T) {
	t.Parallel()

	entries := testutil.ManyEntries(t, 500)
	list := mustLoad(t, testutil.Archive(t, entries, 1, hashlist.FormatPacked), hashlist.WithAliasResolution(true))

	var wg sync.WaitGroup
	for w := range 8 {
		wg.Go(func() {
			// Misses build the path index; all workers race on it.
			if _, ok, err := list.ReverseLookup("missing/path.ext"); ok || err != nil {
				t.Errorf("reverse miss: %v, %v", ok, err)
				return
			}
			for i := range entries {
				e := entries[(i+w*61)%len(entries)]
				got, ok := list.Lookup(e.ID)
				if !ok || got.Path != e.Path {
					t.Errorf("lookup %s: got %+v, %v", e.ID, got, ok)
					return
				}
				id, ok, err := list.ReverseLookup(e.Path)
				if err != nil || !ok || id != e.ID {
					t.Errorf("reverse %s: got %s, %v, %v", e.Path, id, ok, err)
					return
				}
			}
		})
	}
	wg.Wait()
}
