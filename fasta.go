package seqstore

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"

	"github.com/natefinch/atomic"

	"github.com/mtln/seqstore/internal/fasta"
)

// FastaCodec reads and writes flat FASTA text storages. A missing file
// decodes as an empty storage. The zero value is usable.
//
// FastaCodec implements [RandomAccessCodec]: its reader indexes header
// byte offsets once and seeks per record.
type FastaCodec struct {
	// Wrap folds sequence lines at this column when positive.
	Wrap int

	// Logger receives warnings; nil discards.
	Logger *slog.Logger
}

// Decode parses the whole storage in file order.
func (c FastaCodec) Decode(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}

		return nil, fmt.Errorf("%w %q: %w", ErrLoad, path, err)
	}

	defer func() { _ = f.Close() }()

	parsed, err := fasta.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %w", ErrLoad, path, err)
	}

	records := make([]Record, 0, len(parsed))
	seen := make(map[string]struct{}, len(parsed))

	for _, rec := range parsed {
		if _, dup := seen[rec.Header]; dup {
			return nil, fmt.Errorf("%w: %q in %q", ErrDuplicateHeader, rec.Header, path)
		}

		seen[rec.Header] = struct{}{}
		records = append(records, Record{Header: rec.Header, Sequence: rec.Sequence})
	}

	return records, nil
}

// Encode replaces the storage with records, atomically (temp file +
// rename). On failure the previous content is untouched.
func (c FastaCodec) Encode(path string, records []Record) error {
	var buf bytes.Buffer

	for _, rec := range records {
		err := fasta.Write(&buf, fasta.Record{Header: rec.Header, Sequence: rec.Sequence}, c.Wrap)
		if err != nil {
			return fmt.Errorf("%w %q: %w", ErrSave, path, err)
		}
	}

	err := atomic.WriteFile(path, &buf)
	if err != nil {
		return fmt.Errorf("%w %q: %w", ErrSave, path, err)
	}

	return nil
}

// OpenReader indexes header offsets and returns a seeking reader.
func (c FastaCodec) OpenReader(path string) (Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &fastaReader{offsets: map[string]int64{}}, nil
		}

		return nil, fmt.Errorf("%w %q: %w", ErrLoad, path, err)
	}

	entries, err := fasta.ScanOffsets(f)
	if err != nil {
		_ = f.Close()

		return nil, fmt.Errorf("%w %q: %w", ErrLoad, path, err)
	}

	reader := &fastaReader{
		file:    f,
		path:    path,
		offsets: make(map[string]int64, len(entries)),
	}

	for _, entry := range entries {
		if _, dup := reader.offsets[entry.Header]; dup {
			_ = f.Close()

			return nil, fmt.Errorf("%w: %q in %q", ErrDuplicateHeader, entry.Header, path)
		}

		reader.order = append(reader.order, entry.Header)
		reader.offsets[entry.Header] = entry.Offset
	}

	return reader, nil
}

// fastaReader serves per-record reads by seeking to indexed header
// offsets. A nil file means the storage did not exist at open.
type fastaReader struct {
	file    *os.File
	path    string
	order   []string
	offsets map[string]int64
}

func (r *fastaReader) Headers() []string { return r.order }

func (r *fastaReader) Read(header string) (string, error) {
	offset, ok := r.offsets[header]
	if !ok || r.file == nil {
		return "", fmt.Errorf("%w: %q", ErrNotFound, header)
	}

	rec, err := fasta.ReadAt(r.file, offset)
	if err != nil {
		return "", fmt.Errorf("%w %q: %w", ErrLoad, r.path, err)
	}

	if rec.Header != header {
		return "", fmt.Errorf("%w %q: index points at %q, want %q", ErrLoad, r.path, rec.Header, header)
	}

	return rec.Sequence, nil
}

func (r *fastaReader) Close() error {
	if r.file == nil {
		return nil
	}

	return r.file.Close()
}
