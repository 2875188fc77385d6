package seqstore_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/mtln/seqstore"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()

	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func Test_FastaCodec_Decode_Preserves_File_Order(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "seqs.fasta")
	writeFile(t, path, ">a\nAAA\nTTT\n>b desc\nCCC\n")

	records, err := seqstore.FastaCodec{}.Decode(path)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	want := []seqstore.Record{
		{Header: "a", Sequence: "AAATTT"},
		{Header: "b desc", Sequence: "CCC"},
	}

	if diff := cmp.Diff(want, records); diff != "" {
		t.Fatalf("records mismatch (-want +got):\n%s", diff)
	}
}

func Test_FastaCodec_Decode_Missing_File_Is_Empty(t *testing.T) {
	t.Parallel()

	records, err := seqstore.FastaCodec{}.Decode(filepath.Join(t.TempDir(), "absent.fasta"))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	if len(records) != 0 {
		t.Fatalf("records = %v, want none", records)
	}
}

func Test_FastaCodec_Decode_Rejects_Duplicate_Headers(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "seqs.fasta")
	writeFile(t, path, ">a\nAAA\n>a\nTTT\n")

	_, err := seqstore.FastaCodec{}.Decode(path)
	if !errors.Is(err, seqstore.ErrDuplicateHeader) {
		t.Fatalf("err = %v, want ErrDuplicateHeader", err)
	}
}

func Test_FastaCodec_Decode_Rejects_Malformed_Input(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "seqs.fasta")
	writeFile(t, path, "AAA\n>a\nTTT\n")

	_, err := seqstore.FastaCodec{}.Decode(path)
	if !errors.Is(err, seqstore.ErrLoad) {
		t.Fatalf("err = %v, want ErrLoad", err)
	}
}

func Test_FastaCodec_Encode_Writes_Flat_Text(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "seqs.fasta")

	err := seqstore.FastaCodec{}.Encode(path, []seqstore.Record{
		{Header: "a", Sequence: "AAA"},
		{Header: "b", Sequence: "CCC"},
	})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}

	if string(content) != ">a\nAAA\n>b\nCCC\n" {
		t.Fatalf("content = %q", content)
	}
}

func Test_FastaCodec_Encode_Folds_At_Wrap_Column(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "seqs.fasta")

	err := seqstore.FastaCodec{Wrap: 4}.Encode(path, []seqstore.Record{
		{Header: "a", Sequence: "AAAAAA"},
	})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}

	if string(content) != ">a\nAAAA\nAA\n" {
		t.Fatalf("content = %q", content)
	}
}

func Test_FastaCodec_Reader_Serves_Indexed_Records(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "seqs.fasta")
	writeFile(t, path, ">a\nAAA\n>b\nCCCC\nGG\n")

	reader, err := seqstore.FastaCodec{}.OpenReader(path)
	if err != nil {
		t.Fatalf("open reader: %v", err)
	}

	defer func() { _ = reader.Close() }()

	if diff := cmp.Diff([]string{"a", "b"}, reader.Headers()); diff != "" {
		t.Fatalf("headers mismatch (-want +got):\n%s", diff)
	}

	seq, err := reader.Read("b")
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	if seq != "CCCCGG" {
		t.Fatalf("sequence = %q", seq)
	}

	// Reads are repeatable in any order.
	seq, err = reader.Read("a")
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	if seq != "AAA" {
		t.Fatalf("sequence = %q", seq)
	}

	if _, err := reader.Read("missing"); !errors.Is(err, seqstore.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func Test_FastaCodec_Decode_And_Reader_Agree_On_Blank_Lines(t *testing.T) {
	t.Parallel()

	// A blank line ends record a; the stray CCC belongs to no record. Both
	// read paths must see the same boundaries.
	path := filepath.Join(t.TempDir(), "seqs.fasta")
	writeFile(t, path, ">a\nAAA\n\nCCC\n>b\nTTT\n")

	codec := seqstore.FastaCodec{}

	records, err := codec.Decode(path)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	reader, err := codec.OpenReader(path)
	if err != nil {
		t.Fatalf("open reader: %v", err)
	}

	defer func() { _ = reader.Close() }()

	want := []seqstore.Record{
		{Header: "a", Sequence: "AAA"},
		{Header: "b", Sequence: "TTT"},
	}

	if diff := cmp.Diff(want, records); diff != "" {
		t.Fatalf("decoded records mismatch (-want +got):\n%s", diff)
	}

	for _, rec := range want {
		seq, err := reader.Read(rec.Header)
		if err != nil {
			t.Fatalf("read %s: %v", rec.Header, err)
		}

		if seq != rec.Sequence {
			t.Fatalf("reader %s = %q, decode saw %q", rec.Header, seq, rec.Sequence)
		}
	}
}

func Test_FastaCodec_Reader_Of_Missing_File_Is_Empty(t *testing.T) {
	t.Parallel()

	reader, err := seqstore.FastaCodec{}.OpenReader(filepath.Join(t.TempDir(), "absent.fasta"))
	if err != nil {
		t.Fatalf("open reader: %v", err)
	}

	defer func() { _ = reader.Close() }()

	if len(reader.Headers()) != 0 {
		t.Fatalf("headers = %v, want none", reader.Headers())
	}
}
