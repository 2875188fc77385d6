package fasta_test

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/mtln/seqstore/internal/fasta"
)

func Test_CleanHeader_Strips_Prefix_And_Whitespace(t *testing.T) {
	t.Parallel()

	header, err := fasta.CleanHeader(">seq one  \n")
	if err != nil {
		t.Fatalf("clean header: %v", err)
	}

	if header != "seq one" {
		t.Fatalf("header = %q, want %q", header, "seq one")
	}
}

func Test_CleanHeader_Rejects_Line_Without_Prefix(t *testing.T) {
	t.Parallel()

	_, err := fasta.CleanHeader("seq one\n")
	if !errors.Is(err, fasta.ErrNoHeader) {
		t.Fatalf("err = %v, want ErrNoHeader", err)
	}
}

func Test_Fold_Splits_At_Width(t *testing.T) {
	t.Parallel()

	got := fasta.Fold("AAAAAAA", 3)
	if got != "AAA\nAAA\nA" {
		t.Fatalf("folded = %q", got)
	}
}

func Test_Fold_Zero_Width_Is_Identity(t *testing.T) {
	t.Parallel()

	got := fasta.Fold("AAAAAAA", 0)
	if got != "AAAAAAA" {
		t.Fatalf("folded = %q", got)
	}
}

func Test_Write_Emits_Header_And_Wrapped_Sequence(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	err := fasta.Write(&buf, fasta.Record{Header: "a", Sequence: "AAAAAA"}, 4)
	if err != nil {
		t.Fatalf("write: %v", err)
	}

	if buf.String() != ">a\nAAAA\nAA\n" {
		t.Fatalf("output = %q", buf.String())
	}
}

func Test_Parse_Reads_Records_In_Order(t *testing.T) {
	t.Parallel()

	input := ">a\nAAA\nTTT\n\n>b desc\nCCC\n"

	records, err := fasta.Parse(strings.NewReader(input))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	want := []fasta.Record{
		{Header: "a", Sequence: "AAATTT"},
		{Header: "b desc", Sequence: "CCC"},
	}

	if diff := cmp.Diff(want, records); diff != "" {
		t.Fatalf("records mismatch (-want +got):\n%s", diff)
	}
}

func Test_Parse_Empty_Input_Yields_No_Records(t *testing.T) {
	t.Parallel()

	records, err := fasta.Parse(strings.NewReader(""))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	if len(records) != 0 {
		t.Fatalf("records = %v, want none", records)
	}
}

func Test_Parse_Blank_Line_Ends_A_Record(t *testing.T) {
	t.Parallel()

	// CCC sits after a's terminating blank line and belongs to no record.
	input := ">a\nAAA\n\nCCC\n>b\nTTT\n"

	records, err := fasta.Parse(strings.NewReader(input))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	want := []fasta.Record{
		{Header: "a", Sequence: "AAA"},
		{Header: "b", Sequence: "TTT"},
	}

	if diff := cmp.Diff(want, records); diff != "" {
		t.Fatalf("records mismatch (-want +got):\n%s", diff)
	}
}

func Test_Parse_Rejects_Data_Before_First_Header(t *testing.T) {
	t.Parallel()

	_, err := fasta.Parse(strings.NewReader("AAA\n>a\nTTT\n"))
	if !errors.Is(err, fasta.ErrNoHeader) {
		t.Fatalf("err = %v, want ErrNoHeader", err)
	}
}

func Test_ScanOffsets_Locates_Every_Header_Line(t *testing.T) {
	t.Parallel()

	input := ">a\nAAA\n>b\nCCCC\nGG\n"

	entries, err := fasta.ScanOffsets(strings.NewReader(input))
	if err != nil {
		t.Fatalf("scan: %v", err)
	}

	want := []fasta.IndexEntry{
		{Header: "a", Offset: 0},
		{Header: "b", Offset: 7},
	}

	if diff := cmp.Diff(want, entries); diff != "" {
		t.Fatalf("entries mismatch (-want +got):\n%s", diff)
	}
}

func Test_ReadAt_Returns_Record_At_Offset(t *testing.T) {
	t.Parallel()

	input := ">a\nAAA\n>b\nCCCC\nGG\n"

	rec, err := fasta.ReadAt(strings.NewReader(input), 7)
	if err != nil {
		t.Fatalf("read at: %v", err)
	}

	if rec.Header != "b" || rec.Sequence != "CCCCGG" {
		t.Fatalf("record = %+v", rec)
	}
}

func Test_ReadAt_Stops_At_Next_Header(t *testing.T) {
	t.Parallel()

	input := ">a\nAAA\n>b\nCCC\n"

	rec, err := fasta.ReadAt(strings.NewReader(input), 0)
	if err != nil {
		t.Fatalf("read at: %v", err)
	}

	if rec.Header != "a" || rec.Sequence != "AAA" {
		t.Fatalf("record = %+v", rec)
	}
}

func Test_ReadFirst_Reports_Additional_Records(t *testing.T) {
	t.Parallel()

	rec, more, err := fasta.ReadFirst(strings.NewReader(">a\nAAA\n>b\nCCC\n"))
	if err != nil {
		t.Fatalf("read first: %v", err)
	}

	if rec.Header != "a" || rec.Sequence != "AAA" {
		t.Fatalf("record = %+v", rec)
	}

	if !more {
		t.Fatal("more = false, want true")
	}
}

func Test_ReadFirst_Blank_Line_Ends_The_Record(t *testing.T) {
	t.Parallel()

	rec, more, err := fasta.ReadFirst(strings.NewReader(">a\nAAA\n\nCCC\n>b\nTTT\n"))
	if err != nil {
		t.Fatalf("read first: %v", err)
	}

	if rec.Sequence != "AAA" {
		t.Fatalf("sequence = %q, want record cut at the blank line", rec.Sequence)
	}

	if !more {
		t.Fatal("more = false, a further header follows")
	}
}

func Test_ReadFirst_Single_Record_Has_No_More(t *testing.T) {
	t.Parallel()

	rec, more, err := fasta.ReadFirst(strings.NewReader(">a\nAAA"))
	if err != nil {
		t.Fatalf("read first: %v", err)
	}

	if rec.Sequence != "AAA" || more {
		t.Fatalf("record = %+v, more = %v", rec, more)
	}
}

func Test_Filename_Replaces_Unsafe_Characters(t *testing.T) {
	t.Parallel()

	got := fasta.Filename(`gene/1:variant?"x"`)
	if strings.ContainsAny(got, `/\?%*:|"<>`) {
		t.Fatalf("filename %q still holds unsafe characters", got)
	}

	if fasta.Filename("plain-header_1") != "plain-header_1" {
		t.Fatal("safe characters should pass through unchanged")
	}
}
