package seqstore

import "errors"

// Sentinel errors for session and codec operations. Codec failures are
// wrapped so callers can match them with [errors.Is].
var (
	// ErrNotFound indicates a header resolves to no record.
	ErrNotFound = errors.New("header not found")

	// ErrClosed indicates an operation was attempted on a closed session.
	ErrClosed = errors.New("session closed")

	// ErrDuplicateHeader indicates a storage contains two equal headers.
	ErrDuplicateHeader = errors.New("duplicate header")

	// ErrLoad indicates a storage could not be read or decoded.
	ErrLoad = errors.New("load storage")

	// ErrSave indicates a storage could not be encoded or written.
	ErrSave = errors.New("save storage")
)
