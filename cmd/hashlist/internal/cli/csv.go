package cli

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"iter"
	"strconv"
	"strings"

	"github.com/meigma/hashlist"
)

// Entry lines have the form
//
//	00077a671d4d3125.TEMP,a/b.ext,hint,6
//
// where path, hint and flags may be empty or omitted. Lines starting with
// '#' are comments.

// readEntries parses entry lines from r.
func readEntries(r io.Reader) ([]hashlist.Entry, error) {
	cr := csv.NewReader(r)
	cr.Comment = '#'
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true

	var entries []hashlist.Entry
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return entries, nil
		}
		if err != nil {
			return nil, err
		}
		line, _ := cr.FieldPos(0)
		e, err := parseEntry(rec)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		entries = append(entries, e)
	}
}

func parseEntry(rec []string) (hashlist.Entry, error) {
	if len(rec) > 4 {
		return hashlist.Entry{}, fmt.Errorf("expected at most 4 fields, got %d", len(rec))
	}

	key := rec[0]
	// Identifiers never contain '.', resource types may.
	dot := strings.IndexByte(key, '.')
	if dot < 0 {
		return hashlist.Entry{}, fmt.Errorf("%q: want ID.TYPE", key)
	}
	id, err := hashlist.ParseID(key[:dot])
	if err != nil {
		return hashlist.Entry{}, err
	}
	rt, err := hashlist.ParseResourceType(key[dot+1:])
	if err != nil {
		return hashlist.Entry{}, err
	}

	e := hashlist.Entry{ID: id, ResourceType: rt}
	if len(rec) > 1 {
		e.Path = rec[1]
	}
	if len(rec) > 2 {
		e.Hint = rec[2]
	}
	if len(rec) > 3 && rec[3] != "" {
		flags, err := strconv.ParseUint(rec[3], 10, 8)
		if err != nil {
			return hashlist.Entry{}, fmt.Errorf("flags %q: %w", rec[3], err)
		}
		e.Flags = hashlist.Flags(flags)
	}
	return e, nil
}

// writeEntries writes entries as entry lines.
func writeEntries(w io.Writer, entries iter.Seq[hashlist.Entry]) error {
	cw := csv.NewWriter(w)
	for e := range entries {
		rec := []string{
			e.ID.String() + "." + e.ResourceType.String(),
			e.Path,
			e.Hint,
			strconv.FormatUint(uint64(e.Flags), 10),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
