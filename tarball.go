package seqstore

import (
	"archive/tar"
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/dsnet/compress/bzip2"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/natefinch/atomic"
	"github.com/ulikunitz/xz"

	"github.com/mtln/seqstore/internal/fasta"
)

// Compression methods accepted by [TarCodec].
const (
	CompressionNone  = ""
	CompressionGzip  = "gz"
	CompressionBzip2 = "bz2"
	CompressionXz    = "xz"
	CompressionZstd  = "zst"
)

// TarCodec stores records as FASTA member files inside a tar archive,
// optionally compressed. A missing archive decodes as an empty storage.
//
// TarCodec implements [RandomAccessCodec], but a compressed archive has no
// real random access: every read re-scans the archive up to the wanted
// member. The session's read cache is what makes repeated reads cheap.
type TarCodec struct {
	// Compression selects the archive compression: one of the
	// Compression* constants.
	Compression string

	// Wrap folds sequence lines at this column when positive.
	Wrap int

	// Logger receives warnings; nil discards.
	Logger *slog.Logger
}

func (c TarCodec) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}

	return c.Logger
}

// newDecompressor wraps r according to the configured method. The returned
// closer may be nil.
func (c TarCodec) newDecompressor(r io.Reader) (io.Reader, func() error, error) {
	switch c.Compression {
	case CompressionNone:
		return r, nil, nil
	case CompressionGzip:
		gz, err := gzip.NewReader(r)
		if err != nil {
			return nil, nil, err
		}

		return gz, gz.Close, nil
	case CompressionBzip2:
		bz, err := bzip2.NewReader(r, nil)
		if err != nil {
			return nil, nil, err
		}

		return bz, bz.Close, nil
	case CompressionXz:
		xr, err := xz.NewReader(r)
		if err != nil {
			return nil, nil, err
		}

		return xr, nil, nil
	case CompressionZstd:
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, nil, err
		}

		return zr, func() error { zr.Close(); return nil }, nil
	default:
		return nil, nil, fmt.Errorf("unknown compression %q", c.Compression)
	}
}

// newCompressor wraps w according to the configured method. The returned
// closer must run before the bytes are complete; it may be nil.
func (c TarCodec) newCompressor(w io.Writer) (io.Writer, func() error, error) {
	switch c.Compression {
	case CompressionNone:
		return w, nil, nil
	case CompressionGzip:
		gz := gzip.NewWriter(w)

		return gz, gz.Close, nil
	case CompressionBzip2:
		bz, err := bzip2.NewWriter(w, nil)
		if err != nil {
			return nil, nil, err
		}

		return bz, bz.Close, nil
	case CompressionXz:
		xw, err := xz.NewWriter(w)
		if err != nil {
			return nil, nil, err
		}

		return xw, xw.Close, nil
	case CompressionZstd:
		zw, err := zstd.NewWriter(w)
		if err != nil {
			return nil, nil, err
		}

		return zw, zw.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown compression %q", c.Compression)
	}
}

// openArchive opens path for sequential member reads. The caller must run
// the returned closer.
func (c TarCodec) openArchive(path string) (*tar.Reader, func() error, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}

	dr, dclose, err := c.newDecompressor(f)
	if err != nil {
		_ = f.Close()

		return nil, nil, fmt.Errorf("%w %q: %w", ErrLoad, path, err)
	}

	closer := func() error {
		var dErr error
		if dclose != nil {
			dErr = dclose()
		}

		return errors.Join(dErr, f.Close())
	}

	return tar.NewReader(dr), closer, nil
}

// scan walks the archive once, mapping each member's header (its first
// line) to the member name, in archive order.
func (c TarCodec) scan(path string) ([]string, map[string]string, error) {
	tr, closer, err := c.openArchive(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, map[string]string{}, nil
		}

		return nil, nil, fmt.Errorf("%w %q: %w", ErrLoad, path, err)
	}

	defer func() { _ = closer() }()

	var order []string

	members := make(map[string]string)

	for {
		hdr, err := tr.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}

			return nil, nil, fmt.Errorf("%w %q: %w", ErrLoad, path, err)
		}

		if hdr.Typeflag != tar.TypeReg {
			continue
		}

		line, err := bufio.NewReader(tr).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, nil, fmt.Errorf("%w %q: member %q: %w", ErrLoad, path, hdr.Name, err)
		}

		header, err := fasta.CleanHeader(line)
		if err != nil {
			return nil, nil, fmt.Errorf("%w %q: member %q: %w", ErrLoad, path, hdr.Name, err)
		}

		if _, dup := members[header]; dup {
			return nil, nil, fmt.Errorf("%w: %q in %q", ErrDuplicateHeader, header, path)
		}

		order = append(order, header)
		members[header] = hdr.Name
	}

	return order, members, nil
}

// readMember scans the archive to the named member and reads its first
// record.
func (c TarCodec) readMember(path, member, header string) (string, error) {
	tr, closer, err := c.openArchive(path)
	if err != nil {
		return "", fmt.Errorf("%w %q: %w", ErrLoad, path, err)
	}

	defer func() { _ = closer() }()

	for {
		hdr, err := tr.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return "", fmt.Errorf("%w %q: member %q vanished", ErrLoad, path, member)
			}

			return "", fmt.Errorf("%w %q: %w", ErrLoad, path, err)
		}

		if hdr.Name != member {
			continue
		}

		rec, more, err := fasta.ReadFirst(tr)
		if err != nil {
			return "", fmt.Errorf("%w %q: member %q: %w", ErrLoad, path, member, err)
		}

		if more {
			c.logger().Warn("archive member holds more than one record, keeping the first",
				"path", path, "member", member, "header", rec.Header)
		}

		if rec.Header != header {
			return "", fmt.Errorf("%w %q: index points at %q, want %q", ErrLoad, path, rec.Header, header)
		}

		return rec.Sequence, nil
	}
}

// Decode reads every member record in archive order.
func (c TarCodec) Decode(path string) ([]Record, error) {
	tr, closer, err := c.openArchive(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}

		return nil, fmt.Errorf("%w %q: %w", ErrLoad, path, err)
	}

	defer func() { _ = closer() }()

	var records []Record

	seen := make(map[string]struct{})

	for {
		hdr, err := tr.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}

			return nil, fmt.Errorf("%w %q: %w", ErrLoad, path, err)
		}

		if hdr.Typeflag != tar.TypeReg {
			continue
		}

		rec, more, err := fasta.ReadFirst(tr)
		if err != nil {
			return nil, fmt.Errorf("%w %q: member %q: %w", ErrLoad, path, hdr.Name, err)
		}

		if more {
			c.logger().Warn("archive member holds more than one record, keeping the first",
				"path", path, "member", hdr.Name, "header", rec.Header)
		}

		if _, dup := seen[rec.Header]; dup {
			return nil, fmt.Errorf("%w: %q in %q", ErrDuplicateHeader, rec.Header, path)
		}

		seen[rec.Header] = struct{}{}
		records = append(records, Record{Header: rec.Header, Sequence: rec.Sequence})
	}

	return records, nil
}

// Encode rebuilds the whole archive from records and replaces the file
// atomically. Kept headers reuse their existing member names.
func (c TarCodec) Encode(path string, records []Record) error {
	_, existing, err := c.scan(path)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSave, err)
	}

	taken := make(map[string]struct{}, len(existing))
	for _, name := range existing {
		taken[name] = struct{}{}
	}

	var buf bytes.Buffer

	cw, cclose, err := c.newCompressor(&buf)
	if err != nil {
		return fmt.Errorf("%w %q: %w", ErrSave, path, err)
	}

	tw := tar.NewWriter(cw)
	now := time.Now()

	for _, rec := range records {
		name, ok := existing[rec.Header]
		if !ok {
			name = newMemberName(rec.Header, taken)
		}

		var content bytes.Buffer

		err = fasta.Write(&content, fasta.Record{Header: rec.Header, Sequence: rec.Sequence}, c.Wrap)
		if err != nil {
			return fmt.Errorf("%w %q: %w", ErrSave, path, err)
		}

		err = tw.WriteHeader(&tar.Header{
			Name:     name,
			Typeflag: tar.TypeReg,
			Mode:     0o644,
			Size:     int64(content.Len()),
			ModTime:  now,
		})
		if err != nil {
			return fmt.Errorf("%w %q: member %q: %w", ErrSave, path, name, err)
		}

		_, err = content.WriteTo(tw)
		if err != nil {
			return fmt.Errorf("%w %q: member %q: %w", ErrSave, path, name, err)
		}
	}

	err = tw.Close()
	if err != nil {
		return fmt.Errorf("%w %q: %w", ErrSave, path, err)
	}

	if cclose != nil {
		err = cclose()
		if err != nil {
			return fmt.Errorf("%w %q: %w", ErrSave, path, err)
		}
	}

	err = atomic.WriteFile(path, &buf)
	if err != nil {
		return fmt.Errorf("%w %q: %w", ErrSave, path, err)
	}

	return nil
}

// newMemberName derives an unused member name for a new header and
// reserves it in taken.
func newMemberName(header string, taken map[string]struct{}) string {
	base := fasta.Filename(header)

	for i := 0; ; i++ {
		name := base + ".fasta"
		if i > 0 {
			name = fmt.Sprintf("%s_%d.fasta", base, i)
		}

		if _, used := taken[name]; used {
			continue
		}

		taken[name] = struct{}{}

		return name
	}
}

// OpenReader indexes the archive and returns a scanning reader.
func (c TarCodec) OpenReader(path string) (Reader, error) {
	order, members, err := c.scan(path)
	if err != nil {
		return nil, err
	}

	return &tarReader{codec: c, path: path, order: order, members: members}, nil
}

// tarReader serves per-record reads by re-scanning the archive to the
// indexed member.
type tarReader struct {
	codec   TarCodec
	path    string
	order   []string
	members map[string]string
}

func (r *tarReader) Headers() []string { return r.order }

func (r *tarReader) Read(header string) (string, error) {
	member, ok := r.members[header]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrNotFound, header)
	}

	return r.codec.readMember(r.path, member, header)
}

func (r *tarReader) Close() error { return nil }
