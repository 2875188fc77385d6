package seqstore

import (
	"errors"
	"fmt"
	"iter"
	"log/slog"
)

// Options configures a session at [Open].
type Options struct {
	// CacheSize bounds the read cache (number of sequences). Zero or
	// negative disables caching entirely.
	CacheSize int

	// Autocommit controls whether [Session.Close] flushes pending edits.
	// When false, Close discards them without writing.
	Autocommit bool

	// Logger receives debug and warning events. Nil discards everything.
	Logger *slog.Logger
}

// DefaultOptions returns the standard session options: caching disabled,
// autocommit on.
func DefaultOptions() Options {
	return Options{Autocommit: true}
}

// Session is the live handle over one storage: base snapshot + overlay +
// cache + a dirty flag. Sessions move from open to closed exactly once and
// cannot be reopened. A session owns its storage path exclusively for its
// lifetime; concurrent sessions over the same path are undefined.
type Session struct {
	path       string
	codec      Codec
	store      *recordStore
	logger     *slog.Logger
	autocommit bool
	closed     bool
}

// Open decodes the storage at path through codec and returns an open
// session. Malformed input fails with an error matching [ErrLoad] (or
// [ErrDuplicateHeader]) and no session is exposed.
func Open(path string, codec Codec, opts Options) (*Session, error) {
	if codec == nil {
		return nil, errors.New("open session: codec is nil")
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	base, err := openBase(path, codec)
	if err != nil {
		return nil, err
	}

	logger.Debug("session opened",
		"path", path,
		"records", len(base.headers()),
		"cache_size", opts.CacheSize,
		"autocommit", opts.Autocommit,
	)

	return &Session{
		path:       path,
		codec:      codec,
		store:      newRecordStore(base, opts.CacheSize, logger),
		logger:     logger,
		autocommit: opts.Autocommit,
	}, nil
}

// Get returns the sequence for header, overlay first, base otherwise.
// Absent or deleted headers fail with [ErrNotFound].
func (s *Session) Get(header string) (string, error) {
	if s.closed {
		return "", ErrClosed
	}

	return s.store.get(header)
}

// Set inserts or updates a record in the overlay. New headers are appended
// to the end of the merged order. The session becomes dirty.
func (s *Session) Set(header, sequence string) error {
	if s.closed {
		return ErrClosed
	}

	s.store.set(header, sequence)

	return nil
}

// Delete marks a record deleted in the overlay. Headers that resolve to
// nothing fail with [ErrNotFound].
func (s *Session) Delete(header string) error {
	if s.closed {
		return ErrClosed
	}

	return s.store.del(header)
}

// Contains reports whether Get would succeed. It never touches the cache.
func (s *Session) Contains(header string) (bool, error) {
	if s.closed {
		return false, ErrClosed
	}

	return s.store.contains(header), nil
}

// Headers returns every live header in the merged order: base order for
// retained and updated records, then new headers in insertion order.
func (s *Session) Headers() ([]string, error) {
	if s.closed {
		return nil, ErrClosed
	}

	return s.store.headerList(), nil
}

// Items lazily iterates the merged view in Headers order. Element fetches
// may populate the cache. A failed fetch (or a closed session) yields its
// error once and stops the iteration.
func (s *Session) Items() iter.Seq2[Record, error] {
	return func(yield func(Record, error) bool) {
		if s.closed {
			yield(Record{}, ErrClosed)

			return
		}

		for rec, err := range s.store.items() {
			if !yield(rec, err) {
				return
			}
		}
	}
}

// Materialize computes the full merged, ordered view that Commit would
// write. It does not mutate the cache or the overlay.
func (s *Session) Materialize() ([]Record, error) {
	if s.closed {
		return nil, ErrClosed
	}

	return s.store.materialize()
}

// Dirty reports whether the session has uncommitted edits.
func (s *Session) Dirty() bool {
	return !s.closed && s.store.dirty
}

// Commit writes the merged view through the codec, replacing the storage
// content. With no pending edits it is a no-op. On encode failure the
// overlay and dirty flag are left untouched so the caller can retry; on
// success the overlay is cleared and the committed view becomes the new
// base snapshot.
func (s *Session) Commit() error {
	if s.closed {
		return ErrClosed
	}

	if !s.store.dirty {
		s.logger.Debug("commit skipped, no pending edits")

		return nil
	}

	view, err := s.store.materialize()
	if err != nil {
		return fmt.Errorf("materialize view: %w", err)
	}

	err = s.codec.Encode(s.path, view)
	if err != nil {
		return err
	}

	// The just-written view supersedes the old base. It is already fully
	// resident, so the swap costs no I/O and cannot fail; a fresh Open
	// restores lazy reads.
	base, err := newEagerBase(view)
	if err != nil {
		return err
	}

	old := s.store.base
	s.store.base = base
	s.store.overlay = make(map[string]edit)
	s.store.added = nil
	s.store.dirty = false

	closeErr := old.close()
	if closeErr != nil {
		s.logger.Warn("closing storage reader after commit", "error", closeErr)
	}

	s.logger.Debug("session committed", "path", s.path, "records", len(view))

	return nil
}

// Close ends the session exactly once. With autocommit, pending edits are
// committed first; otherwise they are discarded. The session transitions
// to closed even when the commit fails, and the failure is returned rather
// than swallowed. A second Close fails with [ErrClosed].
func (s *Session) Close() error {
	if s.closed {
		return ErrClosed
	}

	var commitErr error

	switch {
	case s.autocommit:
		commitErr = s.Commit()
	case s.store.dirty:
		s.logger.Debug("discarding pending edits", "path", s.path, "edits", len(s.store.overlay))
	}

	s.closed = true

	closeErr := s.store.base.close()
	if closeErr != nil {
		closeErr = fmt.Errorf("close storage reader: %w", closeErr)
	}

	return errors.Join(commitErr, closeErr)
}
