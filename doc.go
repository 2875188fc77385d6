// Package seqstore provides dict-like random access over biological
// sequence collections stored in formats that cannot be updated in place.
//
// A [Session] combines three layers:
//
//   - the base snapshot: the storage content as decoded at [Open]
//   - the overlay: pending, uncommitted inserts, updates, and deletes
//   - a bounded read cache for repeated base reads
//
// Reads always reflect base + overlay. Nothing reaches disk until
// [Session.Commit] re-encodes the full merged view and replaces the storage
// atomically; [Session.Close] commits once when autocommit is enabled and
// discards pending edits otherwise.
//
// Storage formats are [Codec] implementations. Three backends ship with the
// package: [FastaCodec] (flat FASTA text), [TarCodec] (tar archive of FASTA
// member files, optionally compressed), and [FolderCodec] (one FASTA file
// per record under a directory). Codecs that also implement
// [RandomAccessCodec] let the session keep only the header index in memory
// and fetch sequences on demand.
//
// Sessions are single-actor: no internal locking is performed, and opening
// concurrent sessions over the same path is undefined.
package seqstore
