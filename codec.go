package seqstore

// Record is one header/sequence pair. Headers are unique, order-preserving
// identifiers; sequences are opaque strings (the core validates neither
// case nor alphabet).
type Record struct {
	Header   string
	Sequence string
}

// Codec translates between a storage path and its ordered records.
// Implementations are stateless beyond their configuration; one Codec value
// can serve any number of sessions.
type Codec interface {
	// Decode reads the entire storage in its on-disk order. A missing
	// storage decodes as empty. Malformed or unreadable input fails with an
	// error matching [ErrLoad]; two equal headers fail with
	// [ErrDuplicateHeader].
	Decode(path string) ([]Record, error)

	// Encode replaces the storage content with records, in order. On
	// failure the previous content must be left intact; errors match
	// [ErrSave].
	Encode(path string, records []Record) error
}

// Reader is an open storage handle for per-record reads. It is returned by
// [RandomAccessCodec.OpenReader] and released by the session at close.
type Reader interface {
	// Headers returns every header in storage order.
	Headers() []string

	// Read fetches one sequence. Absent headers fail with [ErrNotFound].
	Read(header string) (string, error)

	Close() error
}

// RandomAccessCodec is an optional [Codec] capability for storages that can
// serve individual records. When a codec implements it, [Open] keeps only
// the header index in memory and the session reads sequences on demand,
// instead of decoding the whole storage up front.
type RandomAccessCodec interface {
	Codec

	// OpenReader indexes the storage and returns a handle for per-record
	// reads. Error semantics match [Codec.Decode].
	OpenReader(path string) (Reader, error)
}
