package index

import (
	"bytes"
	"testing"

	"xdao.co/car/carv1"
)

func TestCodecRoundTrip(t *testing.T) {
	archive, blocks := buildArchive(t, 12)
	ix := buildIndex(t, archive)

	var buf bytes.Buffer
	if err := ix.Encode(&buf); err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	got, err := Decode(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	if got.Len() != ix.Len() {
		t.Fatalf("entry count: got %d want %d", got.Len(), ix.Len())
	}
	if got.ArchiveLen() != ix.ArchiveLen() {
		t.Fatalf("archive length: got %d want %d", got.ArchiveLen(), ix.ArchiveLen())
	}
	for _, b := range blocks {
		want, okW := ix.Lookup(b.CID)
		have, okH := got.Lookup(b.CID)
		if !okW || !okH || want != have {
			t.Fatalf("entry for %s did not survive the round-trip", b.CID)
		}
	}
}

func TestCodecRoundTripEmpty(t *testing.T) {
	archive, _ := buildArchive(t, 0)
	ix := buildIndex(t, archive)

	var buf bytes.Buffer
	if err := ix.Encode(&buf); err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	got, err := Decode(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if got.Len() != 0 {
		t.Fatalf("empty index: got %d entries", got.Len())
	}
}

func TestDecodeRejectsUnsupportedVersion(t *testing.T) {
	version := uint64(99)
	count := uint64(0)
	body, err := encMode.Marshal(wirePreamble{Version: &version, Entries: &count})
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	var buf bytes.Buffer
	if err := writeFrame(&buf, body); err != nil {
		t.Fatalf("writeFrame failed: %v", err)
	}
	if _, err := Decode(bytes.NewReader(buf.Bytes())); !carv1.IsKind(err, carv1.KindUnsupportedVersion) {
		t.Fatalf("version 99: got %v want KindUnsupportedVersion", err)
	}
}

func TestDecodeRejectsOutOfOrderEntries(t *testing.T) {
	archive, _ := buildArchive(t, 3)
	ix := buildIndex(t, archive)

	// Reverse the sorted entries and re-encode: Decode must refuse the
	// stream rather than serve broken binary searches.
	entries := ix.Entries()
	reversed := make([]carv1.Entry, len(entries))
	for i, e := range entries {
		reversed[len(entries)-1-i] = e
	}
	bad := &Index{archiveLen: ix.ArchiveLen(), entries: reversed}

	var buf bytes.Buffer
	if err := bad.Encode(&buf); err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if _, err := Decode(bytes.NewReader(buf.Bytes())); !carv1.IsKind(err, carv1.KindMalformedBlock) {
		t.Fatalf("out-of-order entries: got %v want KindMalformedBlock", err)
	}
}

func TestDecodeTruncated(t *testing.T) {
	archive, _ := buildArchive(t, 6)
	ix := buildIndex(t, archive)

	var buf bytes.Buffer
	if err := ix.Encode(&buf); err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	encoded := buf.Bytes()

	for _, cut := range []int{0, 1, len(encoded) / 2, len(encoded) - 1} {
		if _, err := Decode(bytes.NewReader(encoded[:cut])); !carv1.IsKind(err, carv1.KindTruncated) {
			t.Fatalf("cut at %d: got %v want KindTruncated", cut, err)
		}
	}
}

func TestDecodeRejectsGarbagePreamble(t *testing.T) {
	var buf bytes.Buffer
	if err := writeFrame(&buf, []byte("not cbor at all")); err != nil {
		t.Fatalf("writeFrame failed: %v", err)
	}
	if _, err := Decode(bytes.NewReader(buf.Bytes())); !carv1.IsKind(err, carv1.KindMalformedHeader) {
		t.Fatalf("garbage preamble: got %v want KindMalformedHeader", err)
	}
}
