package carv1

import (
	"bytes"
	"io"
	"testing"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-varint"
)

func helloWorldArchive(t *testing.T) ([]byte, []Entry, cid.Cid, cid.Cid) {
	t.Helper()
	cidA := mustCID(t, "hello")
	cidB := mustCID(t, "world")
	archive, entries, err := Build([]cid.Cid{cidA}, []Block{
		{CID: cidA, Payload: []byte("hello")},
		{CID: cidB, Payload: []byte("world")},
	})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	return archive, entries, cidA, cidB
}

func TestArchiveRoundTrip(t *testing.T) {
	archive, entries, cidA, cidB := helloWorldArchive(t)

	r, err := NewReader(bytes.NewReader(archive))
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}
	if r.Version() != FormatVersion {
		t.Fatalf("version: got %d want %d", r.Version(), FormatVersion)
	}
	roots := r.Roots()
	if len(roots) != 1 || !roots[0].Equals(cidA) {
		t.Fatalf("roots: got %v want [%s]", roots, cidA)
	}

	want := []struct {
		id      cid.Cid
		payload string
	}{
		{cidA, "hello"},
		{cidB, "world"},
	}
	for i, w := range want {
		b, err := r.Next()
		if err != nil {
			t.Fatalf("Next(%d) failed: %v", i, err)
		}
		if !b.CID.Equals(w.id) {
			t.Fatalf("block %d CID: got %s want %s", i, b.CID, w.id)
		}
		if string(b.Payload) != w.payload {
			t.Fatalf("block %d payload: got %q want %q", i, b.Payload, w.payload)
		}
	}
	if _, err := r.Next(); err != io.EOF {
		t.Fatalf("after last block: got %v want io.EOF", err)
	}

	if len(entries) != 2 {
		t.Fatalf("entries: got %d want 2", len(entries))
	}
	if entries[0].Offset+entries[0].Length != entries[1].Offset {
		t.Fatalf("entries are not contiguous: %+v", entries)
	}
	if entries[1].Offset+entries[1].Length != uint64(len(archive)) {
		t.Fatalf("last entry does not end at archive end")
	}
}

func TestReaderOffsetsMatchWriterEntries(t *testing.T) {
	archive, entries, _, _ := helloWorldArchive(t)

	r, err := NewReader(bytes.NewReader(archive))
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}
	for i, e := range entries {
		if r.Offset() != e.Offset {
			t.Fatalf("block %d: reader offset %d, writer offset %d", i, r.Offset(), e.Offset)
		}
		if _, err := r.Next(); err != nil {
			t.Fatalf("Next(%d) failed: %v", i, err)
		}
		if got := r.Offset() - e.Offset; got != e.Length {
			t.Fatalf("block %d: reader span %d, writer length %d", i, got, e.Length)
		}
	}
}

func TestReaderTruncation(t *testing.T) {
	archive, entries, _, _ := helloWorldArchive(t)
	second := entries[1]

	// Cut strictly inside the second record: the reader must fail with
	// KindTruncated on reaching it, never yield a partial block.
	for _, cut := range []uint64{second.Offset + 1, second.Offset + second.Length/2, second.Offset + second.Length - 1} {
		r, err := NewReader(bytes.NewReader(archive[:cut]))
		if err != nil {
			t.Fatalf("NewReader failed: %v", err)
		}
		if _, err := r.Next(); err != nil {
			t.Fatalf("first block should survive the cut at %d: %v", cut, err)
		}
		if _, err := r.Next(); !IsKind(err, KindTruncated) {
			t.Fatalf("cut at %d: got %v want KindTruncated", cut, err)
		}
	}

	// Cut exactly at the record boundary: a clean, shorter archive.
	r, err := NewReader(bytes.NewReader(archive[:second.Offset]))
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}
	if _, err := r.Next(); err != nil {
		t.Fatalf("first block failed: %v", err)
	}
	if _, err := r.Next(); err != io.EOF {
		t.Fatalf("boundary cut: got %v want io.EOF", err)
	}
}

func TestReaderTruncatedHeader(t *testing.T) {
	archive, _, _, _ := helloWorldArchive(t)
	for _, cut := range []int{0, 1, 5} {
		if _, err := NewReader(bytes.NewReader(archive[:cut])); !IsKind(err, KindTruncated) {
			t.Fatalf("header cut at %d: got %v want KindTruncated", cut, err)
		}
	}
}

func TestReaderVerifyFlagsOnlyCorruptBlock(t *testing.T) {
	archive, _, cidA, _ := helloWorldArchive(t)

	// Flip one payload bit in the second block.
	corrupt := append([]byte(nil), archive...)
	i := bytes.Index(corrupt, []byte("world"))
	if i < 0 {
		t.Fatalf("payload not found in archive bytes")
	}
	corrupt[i] ^= 0x01

	r, err := NewReaderWithOptions(bytes.NewReader(corrupt), ReaderOptions{Verify: true})
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}
	b, err := r.Next()
	if err != nil {
		t.Fatalf("intact block flagged: %v", err)
	}
	if !b.CID.Equals(cidA) {
		t.Fatalf("first block CID mismatch")
	}
	if _, err := r.Next(); !IsKind(err, KindIntegrityViolation) {
		t.Fatalf("corrupt block: got %v want KindIntegrityViolation", err)
	}
	// Skip-and-continue: the record was consumed, the scan goes on.
	if _, err := r.Next(); err != io.EOF {
		t.Fatalf("after corrupt block: got %v want io.EOF", err)
	}
}

func TestWriterPutAfterClose(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewWriter(&buf, nil)
	if err != nil {
		t.Fatalf("NewWriter failed: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("second Close failed: %v", err)
	}
	err = w.Put(mustCID(t, "late"), []byte("late"))
	if !IsKind(err, KindArchiveClosed) {
		t.Fatalf("Put after Close: got %v want KindArchiveClosed", err)
	}
}

func TestWriterVerifyPutMismatch(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewWriterWithOptions(&buf, nil, WriterOptions{VerifyPut: true})
	if err != nil {
		t.Fatalf("NewWriter failed: %v", err)
	}
	err = w.Put(mustCID(t, "hello"), []byte("not hello"))
	if !IsKind(err, KindIdentifierMismatch) {
		t.Fatalf("mismatched put: got %v want KindIdentifierMismatch", err)
	}
	if err := w.Put(mustCID(t, "hello"), []byte("hello")); err != nil {
		t.Fatalf("matching put failed: %v", err)
	}
}

func TestWriterRejectsUndefinedCID(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewWriter(&buf, nil)
	if err != nil {
		t.Fatalf("NewWriter failed: %v", err)
	}
	if err := w.Put(cid.Undef, []byte("x")); !IsKind(err, KindMalformedIdentifier) {
		t.Fatalf("undefined CID: got %v want KindMalformedIdentifier", err)
	}
}

func TestEmptyPayloadRoundTrip(t *testing.T) {
	id := mustCID(t, "")
	archive, _, err := Build(nil, []Block{{CID: id, Payload: nil}})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	r, err := NewReader(bytes.NewReader(archive))
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}
	b, err := r.Next()
	if err != nil {
		t.Fatalf("Next failed: %v", err)
	}
	if !b.CID.Equals(id) || len(b.Payload) != 0 {
		t.Fatalf("empty block mismatch: %s %q", b.CID, b.Payload)
	}
}

func TestDuplicatePutWritesTwoRecords(t *testing.T) {
	id := mustCID(t, "twice")
	archive, entries, err := Build(nil, []Block{
		{CID: id, Payload: []byte("twice")},
		{CID: id, Payload: []byte("twice")},
	})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if len(entries) != 2 || entries[0].Length != entries[1].Length {
		t.Fatalf("expected two identical records, got %+v", entries)
	}
	first := archive[entries[0].Offset : entries[0].Offset+entries[0].Length]
	second := archive[entries[1].Offset : entries[1].Offset+entries[1].Length]
	if !bytes.Equal(first, second) {
		t.Fatalf("duplicate records differ on disk")
	}
}

func TestReaderRejectsFrameShorterThanCID(t *testing.T) {
	archive, _, err := Build(nil, nil)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	bad := append(append([]byte(nil), archive...), varint.ToUvarint(2)...)
	bad = append(bad, 0x01, 0x02)

	r, err := NewReader(bytes.NewReader(bad))
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}
	if _, err := r.Next(); !IsKind(err, KindMalformedBlock) {
		t.Fatalf("short record: got %v want KindMalformedBlock", err)
	}
}
