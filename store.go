package seqstore

import (
	"fmt"
	"iter"
	"log/slog"
	"slices"
)

// edit is one pending overlay mutation for a single header.
//
// Invariants kept by recordStore:
//   - deleted edits exist only for headers present in the base
//   - appended edits are exactly the headers tracked in the added list
type edit struct {
	sequence string
	deleted  bool
	appended bool
}

// recordStore answers every read and write query for an open session by
// merging the immutable base snapshot with the overlay of pending edits.
// An overlay entry always overrides the base; a single store-level dirty
// flag replaces per-record dirty state.
type recordStore struct {
	base    baseSnapshot
	overlay map[string]edit

	// added tracks first-insertion order of headers that do not occupy a
	// base position. Map iteration order cannot provide this.
	added []string

	cache  *readCache
	dirty  bool
	logger *slog.Logger
}

func newRecordStore(base baseSnapshot, cacheSize int, logger *slog.Logger) *recordStore {
	return &recordStore{
		base:    base,
		overlay: make(map[string]edit),
		cache:   newReadCache(cacheSize),
		logger:  logger,
	}
}

// get resolves a header against overlay first, then cache, then base.
// Successful base-sourced reads are offered to the cache.
func (s *recordStore) get(header string) (string, error) {
	if ed, ok := s.overlay[header]; ok {
		if ed.deleted {
			return "", fmt.Errorf("%w: %q", ErrNotFound, header)
		}

		return ed.sequence, nil
	}

	if seq, ok := s.cache.get(header); ok {
		s.logger.Debug("sequence served from cache", "header", header)

		return seq, nil
	}

	seq, err := s.base.lookup(header)
	if err != nil {
		return "", err
	}

	s.cache.put(header, seq)

	return seq, nil
}

// set records an insert or update in the overlay. Headers without a live
// position are appended to the end of the merged order: a brand-new header
// at first insertion, and a deleted-then-re-added header at its last write,
// not its original slot.
func (s *recordStore) set(header, sequence string) {
	ed, existed := s.overlay[header]

	switch {
	case existed && !ed.deleted:
		// Live pending edit: overwrite in place, keep its position.
		s.overlay[header] = edit{sequence: sequence, appended: ed.appended}
	case existed:
		// Deleted base header re-added: last-write position wins.
		s.overlay[header] = edit{sequence: sequence, appended: true}
		s.added = append(s.added, header)
	case s.base.contains(header):
		s.overlay[header] = edit{sequence: sequence}
	default:
		s.overlay[header] = edit{sequence: sequence, appended: true}
		s.added = append(s.added, header)
	}

	s.cache.invalidate(header)
	s.dirty = true
	s.logger.Debug("sequence staged in overlay", "header", header)
}

// del marks a header deleted. Deleting a header that only existed as a
// pending insertion reverts the insertion instead of leaving a tombstone.
// Headers that resolve to nothing fail with ErrNotFound.
func (s *recordStore) del(header string) error {
	ed, existed := s.overlay[header]

	switch {
	case existed && ed.deleted:
		return fmt.Errorf("%w: %q", ErrNotFound, header)
	case existed && ed.appended:
		delete(s.overlay, header)
		s.added = slices.DeleteFunc(s.added, func(h string) bool { return h == header })

		if s.base.contains(header) {
			// The header was deleted and re-added earlier in the session;
			// its base position still needs a tombstone.
			s.overlay[header] = edit{deleted: true}
		}
	case existed:
		s.overlay[header] = edit{deleted: true}
	case s.base.contains(header):
		s.overlay[header] = edit{deleted: true}
	default:
		return fmt.Errorf("%w: %q", ErrNotFound, header)
	}

	s.cache.invalidate(header)
	s.dirty = true
	s.logger.Debug("header marked deleted", "header", header)

	return nil
}

// contains reports whether get would succeed, without cache side effects.
func (s *recordStore) contains(header string) bool {
	if ed, ok := s.overlay[header]; ok {
		return !ed.deleted
	}

	return s.base.contains(header)
}

// headerList computes the merged order: base order for headers that retain
// their base position, then appended headers in first-insertion order.
func (s *recordStore) headerList() []string {
	out := make([]string, 0, len(s.base.headers())+len(s.added))

	for _, header := range s.base.headers() {
		if ed, ok := s.overlay[header]; ok && (ed.deleted || ed.appended) {
			continue
		}

		out = append(out, header)
	}

	return append(out, s.added...)
}

// items lazily pairs the merged header order with sequence lookups. Each
// element fetch may populate the cache. On a failed lookup the error is
// yielded once and iteration stops.
func (s *recordStore) items() iter.Seq2[Record, error] {
	return func(yield func(Record, error) bool) {
		for _, header := range s.headerList() {
			seq, err := s.get(header)
			if err != nil {
				yield(Record{}, err)

				return
			}

			if !yield(Record{Header: header, Sequence: seq}, nil) {
				return
			}
		}
	}
}

// materialize computes the full merged, ordered view written at commit. It
// is a pure function of base + overlay and never touches the cache.
func (s *recordStore) materialize() ([]Record, error) {
	headers := s.headerList()
	out := make([]Record, 0, len(headers))

	for _, header := range headers {
		if ed, ok := s.overlay[header]; ok && !ed.deleted {
			out = append(out, Record{Header: header, Sequence: ed.sequence})

			continue
		}

		seq, err := s.base.lookup(header)
		if err != nil {
			return nil, err
		}

		out = append(out, Record{Header: header, Sequence: seq})
	}

	return out, nil
}
