// Package fasta implements the FASTA text grammar shared by the storage
// codecs: record parsing, line folding on write, and header-derived file
// names.
//
// The grammar is the pragmatic flat-file dialect: a record is a ">" header
// line followed by sequence lines, which are concatenated with surrounding
// whitespace stripped. A blank line or the next header line ends the
// record. Nothing about the sequence alphabet is validated.
package fasta

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
)

// Record is one parsed header/sequence pair.
type Record struct {
	Header   string
	Sequence string
}

// IndexEntry locates a record's header line inside a flat FASTA stream.
type IndexEntry struct {
	Header string
	Offset int64
}

// ErrNoHeader indicates sequence data before the first ">" line, or a
// record read that did not start at a header line.
var ErrNoHeader = errors.New("missing fasta header")

// CleanHeader extracts the header from a raw ">" line.
func CleanHeader(line string) (string, error) {
	if !strings.HasPrefix(line, ">") {
		return "", fmt.Errorf("%w: %q", ErrNoHeader, strings.TrimRight(line, "\r\n"))
	}

	return strings.TrimSpace(line[1:]), nil
}

// Fold inserts newlines so no sequence line exceeds width columns. A width
// of zero or less leaves the sequence on a single line.
func Fold(sequence string, width int) string {
	if width <= 0 || len(sequence) <= width {
		return sequence
	}

	var b strings.Builder

	b.Grow(len(sequence) + len(sequence)/width)

	for len(sequence) > width {
		b.WriteString(sequence[:width])
		b.WriteByte('\n')
		sequence = sequence[width:]
	}

	b.WriteString(sequence)

	return b.String()
}

// Write serializes one record, folding the sequence at wrap columns when
// wrap is positive.
func Write(w io.Writer, rec Record, wrap int) error {
	_, err := fmt.Fprintf(w, ">%s\n%s\n", rec.Header, Fold(rec.Sequence, wrap))
	if err != nil {
		return fmt.Errorf("write record %q: %w", rec.Header, err)
	}

	return nil
}

var unsafeFilenameChars = regexp.MustCompile(`[/\\?%*:|"<>\x7F\x00-\x1F]`)

// Filename converts a header into a string safe to use as a file name.
func Filename(header string) string {
	return unsafeFilenameChars.ReplaceAllString(header, "_")
}

// Parse reads every record from r in order. A blank line ends the current
// record, matching [ReadAt]; non-blank data before the first header fails
// with [ErrNoHeader], data between records is skipped.
//
// bufio.Reader is used instead of bufio.Scanner so that sequence lines are
// not subject to a token size limit.
func Parse(r io.Reader) ([]Record, error) {
	var (
		records []Record
		current *Record
	)

	err := eachLine(r, func(line string) error {
		if strings.HasPrefix(line, ">") {
			header, headerErr := CleanHeader(line)
			if headerErr != nil {
				return headerErr
			}

			records = append(records, Record{Header: header})
			current = &records[len(records)-1]

			return nil
		}

		data := strings.TrimSpace(line)
		if data == "" {
			current = nil

			return nil
		}

		if current == nil {
			if len(records) == 0 {
				return fmt.Errorf("%w: data before first header", ErrNoHeader)
			}

			// Data between records belongs to no record; the offset index
			// never reaches it either.
			return nil
		}

		current.Sequence += data

		return nil
	})
	if err != nil {
		return nil, err
	}

	return records, nil
}

// ScanOffsets walks a flat FASTA stream and records the byte offset of
// every header line. Non-blank data before the first header fails with
// [ErrNoHeader].
func ScanOffsets(r io.Reader) ([]IndexEntry, error) {
	var (
		entries []IndexEntry
		offset  int64
		seen    bool
	)

	err := eachLine(r, func(line string) error {
		defer func() { offset += int64(len(line)) }()

		if strings.HasPrefix(line, ">") {
			header, headerErr := CleanHeader(line)
			if headerErr != nil {
				return headerErr
			}

			entries = append(entries, IndexEntry{Header: header, Offset: offset})
			seen = true

			return nil
		}

		if !seen && strings.TrimSpace(line) != "" {
			return fmt.Errorf("%w: data before first header", ErrNoHeader)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return entries, nil
}

// ReadAt reads the single record whose header line starts at offset.
// Reading stops at the next header line, a blank line, or EOF.
func ReadAt(rs io.ReadSeeker, offset int64) (Record, error) {
	_, err := rs.Seek(offset, io.SeekStart)
	if err != nil {
		return Record{}, fmt.Errorf("seek record: %w", err)
	}

	br := bufio.NewReader(rs)

	line, err := readLine(br)
	if err != nil {
		return Record{}, fmt.Errorf("read header line: %w", err)
	}

	header, err := CleanHeader(line)
	if err != nil {
		return Record{}, err
	}

	var seq strings.Builder

	for {
		line, err = readLine(br)
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}

			return Record{}, fmt.Errorf("read sequence line: %w", err)
		}

		data := strings.TrimSpace(line)
		if data == "" || strings.HasPrefix(data, ">") {
			break
		}

		seq.WriteString(data)
	}

	return Record{Header: header, Sequence: seq.String()}, nil
}

// ReadFirst reads the first record from r. The second return reports
// whether further records follow; callers that expect single-record files
// use it to warn.
func ReadFirst(r io.Reader) (Record, bool, error) {
	br := bufio.NewReader(r)

	line, err := readLine(br)
	if err != nil {
		return Record{}, false, fmt.Errorf("read header line: %w", err)
	}

	header, err := CleanHeader(line)
	if err != nil {
		return Record{}, false, err
	}

	var (
		seq   strings.Builder
		more  bool
		ended bool
	)

	for {
		line, err = readLine(br)
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}

			return Record{}, false, fmt.Errorf("read sequence line: %w", err)
		}

		data := strings.TrimSpace(line)
		if strings.HasPrefix(data, ">") {
			more = true

			break
		}

		// A blank line ends the record; keep scanning for a further
		// header so the caller can still warn.
		if data == "" {
			ended = true

			continue
		}

		if !ended {
			seq.WriteString(data)
		}
	}

	return Record{Header: header, Sequence: seq.String()}, more, nil
}

// eachLine feeds every line of r (including its line ending) to fn.
func eachLine(r io.Reader, fn func(line string) error) error {
	br := bufio.NewReader(r)

	for {
		line, err := readLine(br)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}

			return fmt.Errorf("read line: %w", err)
		}

		if err := fn(line); err != nil {
			return err
		}
	}
}

// readLine returns the next line including its terminator. io.EOF is
// returned only when no data remains.
func readLine(br *bufio.Reader) (string, error) {
	line, err := br.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && line != "" {
			return line, nil
		}

		return "", err
	}

	return line, nil
}
