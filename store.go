package hashlist

import (
	"log/slog"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/meigma/hashlist/internal/archive"
)

// Store holds the current HashList of a long-running process.
//
// A Store is either unloaded or holds exactly one list. Loading a new list
// swaps it in atomically: readers that already obtained the previous list
// keep using it, new queries see the new one. A failed load leaves the
// published list untouched.
//
// Store is safe for concurrent use.
type Store struct {
	cfg     *config
	dec     *archive.Decoder
	current atomic.Pointer[HashList]

	// refreshGroup coalesces concurrent refreshes of the same archive.
	refreshGroup singleflight.Group
}

// NewStore creates an unloaded Store. The options apply to every list the
// Store loads.
func NewStore(opts ...Option) *Store {
	cfg := newConfig(opts)
	return &Store{
		cfg: cfg,
		dec: newDecoder(cfg),
	}
}

// Load decodes data and publishes the result.
func (s *Store) Load(data []byte) (*HashList, error) {
	return s.publish(data, "hash list loaded")
}

// Reload is Load for a Store that is expected to hold a list already. The
// new list replaces the current one even if the archive is unchanged.
func (s *Store) Reload(data []byte) (*HashList, error) {
	return s.publish(data, "hash list reloaded")
}

func (s *Store) publish(data []byte, msg string) (*HashList, error) {
	h, err := load(s.dec, s.cfg, data)
	if err != nil {
		s.cfg.logger.Warn("hash list load failed, keeping current list",
			slog.Bool("loaded", s.current.Load() != nil),
			slog.Any("error", err))
		return nil, err
	}

	prev := s.current.Swap(h)
	attrs := []any{
		slog.Int("entries", h.Len()),
		slog.Uint64("revision", uint64(h.version.Revision)),
		slog.Uint64("format", uint64(h.version.Format)),
		slog.String("digest", h.source.Digest.String()),
	}
	if prev != nil {
		attrs = append(attrs, slog.Uint64("previous_revision", uint64(prev.version.Revision)))
	}
	s.cfg.logger.Info(msg, attrs...)
	return h, nil
}

// Refresh loads data unless the current list was loaded from the same
// archive. It reports whether a new list was published.
//
// Concurrent refreshes with the same archive decode it once.
func (s *Store) Refresh(data []byte) (*HashList, bool, error) {
	src := SourceOf(data)
	if cur := s.current.Load(); cur != nil && cur.Matches(src.Digest, src.Size) {
		s.cfg.logger.Debug("hash list unchanged", slog.String("digest", src.Digest.String()))
		return cur, false, nil
	}

	result, err, _ := s.refreshGroup.Do(src.Digest.String(), func() (any, error) {
		return s.refreshLocked(data, src)
	})
	if err != nil {
		return nil, false, err
	}

	r, _ := result.(refreshResult) //nolint:errcheck // type assertion always succeeds when err is nil
	return r.list, r.published, nil
}

// refreshResult is the value shared by coalesced refreshes.
type refreshResult struct {
	list      *HashList
	published bool
}

// refreshLocked runs inside refreshGroup for the digest of data.
func (s *Store) refreshLocked(data []byte, src Source) (refreshResult, error) {
	// Another refresh may have published this archive while we waited.
	if cur := s.current.Load(); cur != nil && cur.Matches(src.Digest, src.Size) {
		return refreshResult{list: cur}, nil
	}
	h, err := s.publish(data, "hash list refreshed")
	if err != nil {
		return refreshResult{}, err
	}
	return refreshResult{list: h, published: true}, nil
}

// Current returns the published list.
func (s *Store) Current() (*HashList, error) {
	h := s.current.Load()
	if h == nil {
		return nil, ErrNotLoaded
	}
	return h, nil
}

// Loaded reports whether a list is published.
func (s *Store) Loaded() bool {
	return s.current.Load() != nil
}

// Unload drops the published list.
func (s *Store) Unload() {
	if prev := s.current.Swap(nil); prev != nil {
		s.cfg.logger.Info("hash list unloaded",
			slog.Uint64("revision", uint64(prev.version.Revision)))
	}
}

// Lookup looks id up in the published list.
func (s *Store) Lookup(id ID) (Entry, bool, error) {
	h, err := s.Current()
	if err != nil {
		return Entry{}, false, err
	}
	e, ok := h.Lookup(id)
	return e, ok, nil
}

// ReverseLookup resolves path against the published list.
func (s *Store) ReverseLookup(path string) (ID, bool, error) {
	h, err := s.Current()
	if err != nil {
		return ID{}, false, err
	}
	return h.ReverseLookup(path)
}

// ToPath returns the path of id in the published list, or its text form.
func (s *Store) ToPath(id ID) (string, error) {
	h, err := s.Current()
	if err != nil {
		return "", err
	}
	return h.ToPath(id), nil
}

// Version returns the version of the published list.
func (s *Store) Version() (VersionTag, error) {
	h, err := s.Current()
	if err != nil {
		return VersionTag{}, err
	}
	return h.Version(), nil
}
