package index

import (
	"github.com/cespare/xxhash/v2"

	"github.com/meigma/hashlist/internal/hltype"
	"github.com/meigma/hashlist/internal/pathhash"
)

// PathIndex maps normalized paths back to entries. It finds entries whose
// stored path does not hash to their identifier, such as aliases.
//
// Buckets are keyed by the xxhash of the normalized path; every candidate is
// compared against the query so hash collisions never produce a match.
type PathIndex struct {
	idx     *Index
	buckets map[uint64][]int32
}

// NewPathIndex indexes the paths of idx. Entries without a path are skipped.
func NewPathIndex(idx *Index) *PathIndex {
	p := &PathIndex{
		idx:     idx,
		buckets: make(map[uint64][]int32),
	}
	for i, e := range idx.entries {
		if !e.HasPath() {
			continue
		}
		key := xxhash.Sum64String(pathhash.Normalize(e.Path))
		p.buckets[key] = append(p.buckets[key], int32(i)) //nolint:gosec // slice index
	}
	return p
}

// Lookup returns the entry whose path matches path after normalization.
// When several entries share a path, the one with the lowest identifier
// wins so the answer does not depend on record order.
func (p *PathIndex) Lookup(path string) (hltype.Entry, bool) {
	norm := pathhash.Normalize(path)
	var (
		best  hltype.Entry
		found bool
	)
	for _, i := range p.buckets[xxhash.Sum64String(norm)] {
		e := p.idx.entries[i]
		if pathhash.Normalize(e.Path) != norm {
			continue
		}
		if !found || e.ID.Compare(best.ID) < 0 {
			best, found = e, true
		}
	}
	return best, found
}

// Len returns the number of distinct path buckets.
func (p *PathIndex) Len() int {
	return len(p.buckets)
}
