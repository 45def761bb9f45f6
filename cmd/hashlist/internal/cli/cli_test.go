package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/hashlist"
	"github.com/meigma/hashlist/internal/testutil"
)

// run executes the command tree with args and returns standard output and
// standard error.
func run(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	root := NewRootCmd()
	var stdout, stderr bytes.Buffer
	root.SetIn(strings.NewReader(stdin))
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)
	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

// writeList writes the standard fixture archive to a temp file.
func writeList(t *testing.T, format hashlist.Format) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "hash_list.hmla")
	data := testutil.Archive(t, testutil.Entries(t), 4, format)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

// TestNoFlagConflicts verifies that every subcommand merges its flags with
// the persistent ones without shorthand conflicts.
func TestNoFlagConflicts(t *testing.T) {
	t.Parallel()

	root := RootCmd()
	for _, cmd := range root.Commands() {
		t.Run(cmd.Name(), func(t *testing.T) {
			defer func() {
				if r := recover(); r != nil {
					t.Errorf("flag conflict in %q command: %v", cmd.Name(), r)
				}
			}()
			_ = cmd.Flags()
			_ = cmd.InheritedFlags()
		})
	}
}

func TestSubcommandsExist(t *testing.T) {
	t.Parallel()

	var names []string
	for _, cmd := range RootCmd().Commands() {
		names = append(names, cmd.Name())
	}
	for _, want := range []string{"hash", "lookup", "reverse", "info", "pack", "export", "version"} {
		assert.Contains(t, names, want)
	}
}

func TestHash(t *testing.T) {
	t.Parallel()

	out, _, err := run(t, "", "hash", "A/B.ext", testutil.PathMainMenu)
	require.NoError(t, err)
	assert.Equal(t, "00077a671d4d3125  A/B.ext\n00d5cb7e6d04e32c  "+testutil.PathMainMenu+"\n", out)

	out, _, err = run(t, "", "--json", "hash", "a/b.ext")
	require.NoError(t, err)
	var got []hashOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, []hashOutput{{Path: "a/b.ext", ID: "00077a671d4d3125"}}, got)

	_, _, err = run(t, "", "hash", "bad\xff")
	require.ErrorIs(t, err, hashlist.ErrInvalidPathEncoding)
}

func TestLookup(t *testing.T) {
	t.Parallel()

	list := writeList(t, hashlist.FormatLegacy)

	out, _, err := run(t, "", "lookup", "--list", list, "00077A671D4D3125", "c/d.ext", "00abcdef01234567")
	require.NoError(t, err)
	assert.Equal(t,
		"00077a671d4d3125\tTEMP\ta/b.ext\t(first)\n"+
			lookupLine(t, testutil.PathCD, "TBLU")+
			"00abcdef01234567\tTEXT\t-\n",
		out)

	out, _, err = run(t, "", "lookup", "-l", list, "0000000000000001")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 1 identifiers not found")
	assert.Equal(t, "0000000000000001\tnot found\n", out)

	_, _, err = run(t, "", "lookup", "-l", list, "0xyz")
	require.ErrorIs(t, err, hashlist.ErrMalformedID)

	_, _, err = run(t, "", "lookup", "0000000000000001")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--list is required")
}

// lookupLine returns the text lookup line of a fixture entry with a path.
func lookupLine(t *testing.T, path, resourceType string) string {
	t.Helper()
	id, err := hashlist.HashPath(path)
	require.NoError(t, err)
	return id.String() + "\t" + resourceType + "\t" + path + "\n"
}

func TestLookupJSON(t *testing.T) {
	t.Parallel()

	list := writeList(t, hashlist.FormatPacked)
	out, _, err := run(t, "", "--json", "lookup", "--list", list, testutil.PathAB)
	require.NoError(t, err)

	var got []lookupOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Len(t, got, 1)
	assert.True(t, got[0].Found)
	assert.Equal(t, entryOutput{
		ID:    "00077a671d4d3125",
		Type:  "TEMP",
		Path:  testutil.PathAB,
		Hint:  "first",
		Flags: 6,
		Games: []string{"h2", "h3"},
	}, *got[0].Entry)
}

func TestReverse(t *testing.T) {
	t.Parallel()

	alias := testutil.UnknownEntry(t, 0x0011223344556677, "TEMP")
	alias.Path = "alias/target.ext"
	path := filepath.Join(t.TempDir(), "aliases.hmla")
	require.NoError(t, os.WriteFile(path, testutil.LegacyArchive(t, append(testutil.Entries(t), alias), 1), 0o600))

	computed, err := hashlist.HashPath("alias/target.ext")
	require.NoError(t, err)

	out, _, err := run(t, "", "reverse", "--list", path, "A/B.EXT", "alias/target.ext")
	require.NoError(t, err)
	assert.Equal(t,
		"00077a671d4d3125  known  A/B.EXT\n"+
			computed.String()+"  unknown  alias/target.ext\n",
		out)

	out, _, err = run(t, "", "reverse", "--list", path, "--aliases", "alias/target.ext")
	require.NoError(t, err)
	assert.Equal(t, "0011223344556677  known  alias/target.ext\n", out)
}

func TestInfo(t *testing.T) {
	t.Parallel()

	list := writeList(t, hashlist.FormatPackedLZ4)
	out, _, err := run(t, "", "--json", "info", "--list", list)
	require.NoError(t, err)

	var info InfoOutput
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Equal(t, "lz4", info.Compression)
	assert.Equal(t, "cbor", info.Encoding)
	assert.Equal(t, hashlist.MaxFormatVersion, info.FormatVersion)
	assert.Equal(t, uint32(4), info.Revision)
	assert.Equal(t, 3, info.Entries)
	assert.Equal(t, 2, info.WithPath)
	assert.Equal(t, map[string]int{"TEMP": 1, "TBLU": 1, "TEXT": 1}, info.Types)
	assert.Equal(t, map[string]int{"h2": 1, "h3": 1}, info.Games)
	assert.True(t, strings.HasPrefix(info.Digest, "sha256:"))

	out, _, err = run(t, "", "info", "--list", writeList(t, hashlist.FormatLegacy))
	require.NoError(t, err)
	assert.Contains(t, out, "Compression: brotli\n")
	assert.Contains(t, out, "Encoding:    smile\n")
	assert.Contains(t, out, "Entries:     3 (2 with path)\n")
}

func TestPackExportRoundTrip(t *testing.T) {
	t.Parallel()

	const lines = "# fixture\n" +
		"00077a671d4d3125.TEMP,a/b.ext,first,6\n" +
		"00abcdef01234567.TEXT\n" +
		"00123456789abcde:2a.TBLU,\"quoted,path\",,1\n"
	dir := t.TempDir()
	archive := filepath.Join(dir, "out.hmla")

	for _, format := range []string{"legacy", "packed", "packed-lz4"} {
		t.Run(format, func(t *testing.T) {
			if format == "legacy" {
				// Tagged identifiers need a packed format.
				_, _, err := run(t, lines, "pack", "--in", "-", "--out", archive, "--format", format)
				require.Error(t, err)
				return
			}
			out, _, err := run(t, lines, "pack", "--in", "-", "--out", archive+format,
				"--format", format, "--revision", "9")
			require.NoError(t, err)
			assert.Contains(t, out, "wrote 3 entries")

			out, _, err = run(t, "", "export", "--list", archive+format)
			require.NoError(t, err)
			assert.Equal(t,
				"00077a671d4d3125.TEMP,a/b.ext,first,6\n"+
					"00abcdef01234567.TEXT,,,0\n"+
					"00123456789abcde:2a.TBLU,\"quoted,path\",,1\n",
				out)
		})
	}
}

func TestPackFromFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	in := filepath.Join(dir, "entries.csv")
	require.NoError(t, os.WriteFile(in, []byte("00077a671d4d3125.TEMP,a/b.ext\n"), 0o600))
	archive := filepath.Join(dir, "out.hmla")

	out, _, err := run(t, "", "--json", "pack", "-i", in, "-o", archive)
	require.NoError(t, err)
	var got packOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "legacy", got.Format)
	assert.Equal(t, 1, got.Entries)

	exported := filepath.Join(dir, "exported.csv")
	_, _, err = run(t, "", "export", "-l", archive, "-o", exported)
	require.NoError(t, err)
	data, err := os.ReadFile(exported)
	require.NoError(t, err)
	assert.Equal(t, "00077a671d4d3125.TEMP,a/b.ext,,0\n", string(data))

	// Duplicate identifiers are rejected before anything is written.
	dup := filepath.Join(dir, "dup.csv")
	require.NoError(t, os.WriteFile(dup, []byte("00077a671d4d3125.TEMP\n00077a671d4d3125.TBLU\n"), 0o600))
	_, _, err = run(t, "", "pack", "-i", dup, "-o", filepath.Join(dir, "dup.hmla"))
	require.ErrorIs(t, err, hashlist.ErrDuplicateEntry)
	assert.NoFileExists(t, filepath.Join(dir, "dup.hmla"))
}

func TestParseEntryDottedType(t *testing.T) {
	t.Parallel()

	entries, err := readEntries(strings.NewReader("00077a671d4d3125.A.BC,a/b.ext\n0000000000000001.TX..\n"))
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "00077a671d4d3125", entries[0].ID.String())
	assert.Equal(t, "A.BC", entries[0].ResourceType.String())
	assert.Equal(t, "TX..", entries[1].ResourceType.String())

	var out bytes.Buffer
	require.NoError(t, writeEntries(&out, slices.Values(entries)))
	assert.Equal(t, "00077a671d4d3125.A.BC,a/b.ext,,0\n0000000000000001.TX..,,,0\n", out.String())
}

func TestParseEntryErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		line string
	}{
		{"missing type", "00077a671d4d3125,a/b.ext\n"},
		{"short type", "00077a671d4d3125.TMP\n"},
		{"bad id", "00077a671d4d31.TEMP\n"},
		{"bad flags", "00077a671d4d3125.TEMP,a,b,256\n"},
		{"too many fields", "00077a671d4d3125.TEMP,a,b,1,extra\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := readEntries(strings.NewReader(tt.line))
			require.Error(t, err)
			assert.Contains(t, err.Error(), "line 1")
		})
	}
}

func TestLogging(t *testing.T) {
	t.Parallel()

	list := writeList(t, hashlist.FormatLegacy)

	_, stderr, err := run(t, "", "-v", "info", "--list", list)
	require.NoError(t, err)
	assert.Contains(t, stderr, `msg="hash list loaded"`)
	assert.Contains(t, stderr, "entries=3")

	_, stderr, err = run(t, "", "-vv", "--log-format", "json", "info", "--list", list)
	require.NoError(t, err)
	assert.Contains(t, stderr, `"msg":"hash list decoded"`)

	_, stderr, err = run(t, "", "info", "--list", list)
	require.NoError(t, err)
	assert.Empty(t, stderr)

	_, _, err = run(t, "", "--log-format", "xml", "hash", "a")
	require.Error(t, err)
}

func TestVersion(t *testing.T) {
	t.Parallel()

	out, _, err := run(t, "", "version")
	require.NoError(t, err)
	assert.Equal(t, "hashlist dev (unknown)\n", out)
}
