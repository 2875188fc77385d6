package seqstore

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/natefinch/atomic"

	"github.com/mtln/seqstore/internal/fasta"
)

// DefaultFolderGlob selects the record files a FolderCodec considers part
// of the storage.
const DefaultFolderGlob = "**/*.fasta"

// FolderCodec stores one FASTA file per record under a directory. The
// record's header comes from the file's first line; file names only have
// to be unique. A missing directory decodes as an empty storage.
//
// FolderCodec implements [RandomAccessCodec]: its reader keeps the
// header-to-file index and opens one file per read.
//
// Unlike the flat and archive codecs, Encode cannot replace a directory
// atomically; each individual file write is atomic, deletions happen last.
type FolderCodec struct {
	// Glob selects record files relative to the storage directory, in
	// doublestar syntax. Empty means [DefaultFolderGlob].
	Glob string

	// Wrap folds sequence lines at this column when positive.
	Wrap int

	// Logger receives warnings about skipped files; nil discards.
	Logger *slog.Logger
}

func (c FolderCodec) pattern() string {
	if c.Glob == "" {
		return DefaultFolderGlob
	}

	return c.Glob
}

func (c FolderCodec) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}

	return c.Logger
}

// scan indexes the directory: header order plus header-to-relative-path.
// Files that cannot be read or do not start with a header line are skipped
// with a warning, matching single-file corruption to single-record loss.
func (c FolderCodec) scan(dir string) ([]string, map[string]string, error) {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return nil, map[string]string{}, nil
	}

	matches, err := doublestar.Glob(os.DirFS(dir), c.pattern())
	if err != nil {
		return nil, nil, fmt.Errorf("%w %q: glob %q: %w", ErrLoad, dir, c.pattern(), err)
	}

	var order []string

	files := make(map[string]string, len(matches))

	for _, rel := range matches {
		full := filepath.Join(dir, filepath.FromSlash(rel))

		info, err := os.Stat(full)
		if err != nil || info.IsDir() {
			continue
		}

		header, err := c.readHeaderLine(full)
		if err != nil {
			c.logger().Warn("skipping unreadable record file", "path", full, "error", err)

			continue
		}

		if _, dup := files[header]; dup {
			return nil, nil, fmt.Errorf("%w: %q in %q", ErrDuplicateHeader, header, dir)
		}

		order = append(order, header)
		files[header] = rel
	}

	return order, files, nil
}

func (c FolderCodec) readHeaderLine(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}

	defer func() { _ = f.Close() }()

	rec, _, err := fasta.ReadFirst(f)
	if err != nil {
		return "", err
	}

	return rec.Header, nil
}

// Decode reads every record file in index order.
func (c FolderCodec) Decode(dir string) ([]Record, error) {
	order, files, err := c.scan(dir)
	if err != nil {
		return nil, err
	}

	records := make([]Record, 0, len(order))

	for _, header := range order {
		seq, err := c.readRecordFile(dir, files[header], header)
		if err != nil {
			return nil, err
		}

		records = append(records, Record{Header: header, Sequence: seq})
	}

	return records, nil
}

func (c FolderCodec) readRecordFile(dir, rel, header string) (string, error) {
	full := filepath.Join(dir, filepath.FromSlash(rel))

	f, err := os.Open(full)
	if err != nil {
		return "", fmt.Errorf("%w %q: %w", ErrLoad, full, err)
	}

	defer func() { _ = f.Close() }()

	rec, more, err := fasta.ReadFirst(f)
	if err != nil {
		return "", fmt.Errorf("%w %q: %w", ErrLoad, full, err)
	}

	if more {
		c.logger().Warn("record file holds more than one record, keeping the first",
			"path", full, "header", rec.Header)
	}

	if rec.Header != header {
		return "", fmt.Errorf("%w %q: index points at %q, want %q", ErrLoad, full, rec.Header, header)
	}

	return rec.Sequence, nil
}

// Encode brings the directory in line with records: kept headers rewrite
// their existing files, new headers get sanitized file names (numeric
// suffix on collision), and files of absent headers are removed.
func (c FolderCodec) Encode(dir string, records []Record) error {
	_, existing, err := c.scan(dir)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSave, err)
	}

	err = os.MkdirAll(dir, 0o750)
	if err != nil {
		return fmt.Errorf("%w %q: %w", ErrSave, dir, err)
	}

	taken := make(map[string]struct{}, len(existing))
	for _, rel := range existing {
		taken[rel] = struct{}{}
	}

	kept := make(map[string]struct{}, len(records))

	for _, rec := range records {
		rel, ok := existing[rec.Header]
		if !ok {
			rel = c.newFilename(dir, rec.Header, taken)
		}

		kept[rec.Header] = struct{}{}

		var buf bytes.Buffer

		err = fasta.Write(&buf, fasta.Record{Header: rec.Header, Sequence: rec.Sequence}, c.Wrap)
		if err != nil {
			return fmt.Errorf("%w %q: %w", ErrSave, dir, err)
		}

		full := filepath.Join(dir, filepath.FromSlash(rel))

		err = os.MkdirAll(filepath.Dir(full), 0o750)
		if err != nil {
			return fmt.Errorf("%w %q: %w", ErrSave, full, err)
		}

		err = atomic.WriteFile(full, &buf)
		if err != nil {
			return fmt.Errorf("%w %q: %w", ErrSave, full, err)
		}
	}

	for header, rel := range existing {
		if _, ok := kept[header]; ok {
			continue
		}

		full := filepath.Join(dir, filepath.FromSlash(rel))

		err = os.Remove(full)
		if err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("%w %q: %w", ErrSave, full, err)
		}
	}

	return nil
}

// newFilename derives an unused file name for a new header and reserves it
// in taken.
func (c FolderCodec) newFilename(dir, header string, taken map[string]struct{}) string {
	base := fasta.Filename(header)

	for i := 0; ; i++ {
		rel := base + ".fasta"
		if i > 0 {
			rel = fmt.Sprintf("%s_%d.fasta", base, i)
		}

		if _, used := taken[rel]; used {
			continue
		}

		if _, err := os.Stat(filepath.Join(dir, rel)); err == nil {
			continue
		}

		taken[rel] = struct{}{}

		return rel
	}
}

// OpenReader indexes the directory and returns a per-file reader.
func (c FolderCodec) OpenReader(dir string) (Reader, error) {
	order, files, err := c.scan(dir)
	if err != nil {
		return nil, err
	}

	return &folderReader{codec: c, dir: dir, order: order, files: files}, nil
}

// folderReader serves per-record reads by opening the indexed file.
type folderReader struct {
	codec FolderCodec
	dir   string
	order []string
	files map[string]string
}

func (r *folderReader) Headers() []string { return r.order }

func (r *folderReader) Read(header string) (string, error) {
	rel, ok := r.files[header]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrNotFound, header)
	}

	return r.codec.readRecordFile(r.dir, rel, header)
}

func (r *folderReader) Close() error { return nil }
