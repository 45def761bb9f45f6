// Package index holds the entries of a loaded hash list.
package index

import (
	"fmt"
	"iter"

	"github.com/meigma/hashlist/internal/doc"
	"github.com/meigma/hashlist/internal/hltype"
)

// DuplicatePolicy decides what happens when a document lists the same
// identifier twice.
type DuplicatePolicy uint8

const (
	// RejectDuplicates fails the whole load.
	RejectDuplicates DuplicatePolicy = iota
	// LastWins keeps the later record in the position of the earlier one.
	LastWins
)

func (p DuplicatePolicy) String() string {
	switch p {
	case RejectDuplicates:
		return "reject"
	case LastWins:
		return "last-wins"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(p))
	}
}

// Index provides access to hash list entries.
//
// Entries are kept in document order; lookups by identifier are O(1).
// An Index is immutable once built and safe for concurrent use.
type Index struct {
	entries []hltype.Entry
	byID    map[hltype.ID]int32

	// byValue maps an identifier value to the entry with the lowest tag.
	byValue map[uint64]int32
}

// Build validates the records of an entries sequence and indexes them.
// Errors wrap hltype.ErrDocumentParse or hltype.ErrDuplicateEntry and name
// the offending record.
func Build(records doc.Seq, policy DuplicatePolicy) (*Index, error) {
	idx := newIndex(len(records))
	for i, rec := range records {
		e, err := parseRecord(rec, fmt.Sprintf("$.entries[%d]", i))
		if err != nil {
			return nil, err
		}
		if err := idx.insert(e, i, policy); err != nil {
			return nil, err
		}
	}
	return idx, nil
}

// FromEntries indexes entries built in memory, such as rows imported by the
// pack command.
func FromEntries(entries []hltype.Entry, policy DuplicatePolicy) (*Index, error) {
	idx := newIndex(len(entries))
	for i, e := range entries {
		if err := idx.insert(e, i, policy); err != nil {
			return nil, err
		}
	}
	return idx, nil
}

func newIndex(n int) *Index {
	return &Index{
		entries: make([]hltype.Entry, 0, n),
		byID:    make(map[hltype.ID]int32, n),
		byValue: make(map[uint64]int32, n),
	}
}

// insert adds the entry found at record position pos.
func (idx *Index) insert(e hltype.Entry, pos int, policy DuplicatePolicy) error {
	if prev, ok := idx.byID[e.ID]; ok {
		if policy != LastWins {
			return fmt.Errorf("%w: %s in records %d and %d", hltype.ErrDuplicateEntry, e.ID, prev, pos)
		}
		idx.entries[prev] = e
		return nil
	}
	pos32 := int32(len(idx.entries)) //nolint:gosec // bounded by the decoders' element limits
	idx.byID[e.ID] = pos32
	if cur, ok := idx.byValue[e.ID.Value()]; !ok || e.ID.Tag() < idx.entries[cur].ID.Tag() {
		idx.byValue[e.ID.Value()] = pos32
	}
	idx.entries = append(idx.entries, e)
	return nil
}

func parseRecord(v doc.Value, path string) (hltype.Entry, error) {
	var e hltype.Entry

	m, err := doc.AsMap(v, path)
	if err != nil {
		return e, fmt.Errorf("%w: %w", hltype.ErrDocumentParse, err)
	}

	hashVal, err := doc.Required(m, "hash", path)
	if err != nil {
		return e, fmt.Errorf("%w: %w", hltype.ErrDocumentParse, err)
	}
	hash, err := doc.AsString(hashVal, path+".hash")
	if err != nil {
		return e, fmt.Errorf("%w: %w", hltype.ErrDocumentParse, err)
	}
	e.ID, err = hltype.ParseID(hash)
	if err != nil {
		return e, fmt.Errorf("%w: %s.hash: %w", hltype.ErrDocumentParse, path, err)
	}

	rtVal, err := doc.Required(m, "resourceType", path)
	if err != nil {
		return e, fmt.Errorf("%w: %w", hltype.ErrDocumentParse, err)
	}
	rt, err := doc.AsString(rtVal, path+".resourceType")
	if err != nil {
		return e, fmt.Errorf("%w: %w", hltype.ErrDocumentParse, err)
	}
	e.ResourceType, err = hltype.ParseResourceType(rt)
	if err != nil {
		return e, fmt.Errorf("%w: %s.resourceType: %w", hltype.ErrDocumentParse, path, err)
	}

	if e.Path, err = doc.OptionalString(m, "path", path); err != nil {
		return e, fmt.Errorf("%w: %w", hltype.ErrDocumentParse, err)
	}
	if e.Hint, err = doc.OptionalString(m, "hint", path); err != nil {
		return e, fmt.Errorf("%w: %w", hltype.ErrDocumentParse, err)
	}
	flags, err := doc.OptionalUint8(m, "gameFlags", path)
	if err != nil {
		return e, fmt.Errorf("%w: %w", hltype.ErrDocumentParse, err)
	}
	e.Flags = hltype.Flags(flags)

	tag, err := doc.OptionalUint8(m, "tag", path)
	if err != nil {
		return e, fmt.Errorf("%w: %w", hltype.ErrDocumentParse, err)
	}
	if tag != 0 {
		if e.ID.Tag() != 0 && e.ID.Tag() != tag {
			return e, fmt.Errorf("%w: %s: hash tag %02x conflicts with tag %02x",
				hltype.ErrDocumentParse, path, e.ID.Tag(), tag)
		}
		e.ID = e.ID.WithTag(tag)
	}
	return e, nil
}

// Lookup returns the entry for id.
func (idx *Index) Lookup(id hltype.ID) (hltype.Entry, bool) {
	i, ok := idx.byID[id]
	if !ok {
		return hltype.Entry{}, false
	}
	return idx.entries[i], true
}

// LookupValue returns the entry with identifier value v regardless of its
// tag. When several tags share the value, the lowest tag wins, so an
// untagged entry is always preferred.
func (idx *Index) LookupValue(v uint64) (hltype.Entry, bool) {
	i, ok := idx.byValue[v]
	if !ok {
		return hltype.Entry{}, false
	}
	return idx.entries[i], true
}

// Len returns the number of entries in the index.
func (idx *Index) Len() int {
	return len(idx.entries)
}

// Entries returns an iterator over all entries in document order. The
// iterator may be used any number of times.
func (idx *Index) Entries() iter.Seq[hltype.Entry] {
	return func(yield func(hltype.Entry) bool) {
		for _, e := range idx.entries {
			if !yield(e) {
				return
			}
		}
	}
}
