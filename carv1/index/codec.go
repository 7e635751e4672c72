package index

import (
	"bufio"
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"
	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-varint"

	"xdao.co/car/carv1"
	"xdao.co/car/cidutil"
)

// FormatVersion is the on-disk index format version this build writes and
// accepts.
const FormatVersion = 1

var encMode cbor.EncMode
var decMode cbor.DecMode

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("index: CBOR encoder initialization failed: " + err.Error())
	}
	decMode, err = cbor.DecOptions{
		DupMapKey: cbor.DupMapKeyEnforcedAPF,
	}.DecMode()
	if err != nil {
		panic("index: CBOR decoder initialization failed: " + err.Error())
	}
}

// wirePreamble is the first frame of an index stream. ArchiveLen binds
// the index to the byte length of its source archive; zero disables the
// binding check.
type wirePreamble struct {
	Version    *uint64 `cbor:"version"`
	Entries    *uint64 `cbor:"entries"`
	ArchiveLen uint64  `cbor:"archiveLen,omitempty"`
}

// wireEntry is one length-prefixed entry frame.
type wireEntry struct {
	CID    []byte `cbor:"cid"`
	Offset uint64 `cbor:"offset"`
	Length uint64 `cbor:"length"`
}

// Encode serializes the index as a self-contained length-prefixed record
// stream: one CBOR preamble frame, then one CBOR frame per entry in
// sorted order.
func (ix *Index) Encode(w io.Writer) error {
	bw := bufio.NewWriter(w)
	version := uint64(FormatVersion)
	count := uint64(len(ix.entries))
	preamble, err := encMode.Marshal(wirePreamble{
		Version:    &version,
		Entries:    &count,
		ArchiveLen: ix.archiveLen,
	})
	if err != nil {
		return err
	}
	if err := writeFrame(bw, preamble); err != nil {
		return err
	}
	for _, e := range ix.entries {
		body, err := encMode.Marshal(wireEntry{
			CID:    e.CID.Bytes(),
			Offset: e.Offset,
			Length: e.Length,
		})
		if err != nil {
			return err
		}
		if err := writeFrame(bw, body); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// Decode reads an index stream back, validating version, entry count,
// strict ascending CID order, and entry shape. The returned index is
// ready for Lookup.
func Decode(r io.Reader) (*Index, error) {
	br := bufio.NewReader(r)
	body, err := readFrame(br)
	if err != nil {
		if err == io.EOF {
			return nil, &carv1.Error{Kind: carv1.KindTruncated, Message: "index: byte source is empty"}
		}
		return nil, err
	}
	var pre wirePreamble
	if err := decMode.Unmarshal(body, &pre); err != nil {
		return nil, &carv1.Error{Kind: carv1.KindMalformedHeader, Message: "index: preamble is not a valid CBOR map", Cause: err}
	}
	if pre.Version == nil || pre.Entries == nil {
		return nil, &carv1.Error{Kind: carv1.KindMalformedHeader, Message: "index: preamble is missing version or entry count"}
	}
	if *pre.Version != FormatVersion {
		return nil, &carv1.Error{
			Kind:    carv1.KindUnsupportedVersion,
			Message: fmt.Sprintf("index: unsupported index version %d (supported: %d)", *pre.Version, FormatVersion),
		}
	}

	// Cap the initial allocation: the declared count is untrusted until
	// the entries actually arrive.
	capHint := *pre.Entries
	if capHint > 1<<16 {
		capHint = 1 << 16
	}
	entries := make([]carv1.Entry, 0, capHint)
	for i := uint64(0); i < *pre.Entries; i++ {
		body, err := readFrame(br)
		if err != nil {
			if err == io.EOF {
				return nil, &carv1.Error{
					Kind:    carv1.KindTruncated,
					Message: fmt.Sprintf("index: stream ended after %d of %d entries", i, *pre.Entries),
				}
			}
			return nil, err
		}
		var we wireEntry
		if err := decMode.Unmarshal(body, &we); err != nil {
			return nil, &carv1.Error{
				Kind:    carv1.KindMalformedBlock,
				Message: fmt.Sprintf("index: entry %d is not a valid CBOR map", i),
				Cause:   err,
			}
		}
		id, err := cid.Cast(we.CID)
		if err != nil {
			return nil, &carv1.Error{
				Kind:    carv1.KindMalformedIdentifier,
				Message: fmt.Sprintf("index: entry %d has an invalid CID", i),
				Cause:   err,
			}
		}
		if len(entries) > 0 && cidutil.Compare(entries[len(entries)-1].CID, id) >= 0 {
			return nil, &carv1.Error{
				Kind:    carv1.KindMalformedBlock,
				Message: fmt.Sprintf("index: entry %d is not strictly ascending by CID bytes", i),
			}
		}
		entries = append(entries, carv1.Entry{CID: id, Offset: we.Offset, Length: we.Length})
	}
	return &Index{archiveLen: pre.ArchiveLen, entries: entries}, nil
}

// writeFrame writes one varint-length-prefixed frame.
func writeFrame(w io.Writer, payload []byte) error {
	if _, err := w.Write(varint.ToUvarint(uint64(len(payload)))); err != nil {
		return err
	}
	_, err := w.Write(payload)
	return err
}

// maxEntryFrameLength bounds a single index frame. Entries are small
// fixed-shape maps; anything near this limit is corrupt.
const maxEntryFrameLength = 1 << 20

// readFrame reads one varint-length-prefixed frame, mapping framing
// failures onto the carv1 error taxonomy.
func readFrame(br *bufio.Reader) ([]byte, error) {
	n, err := varint.ReadUvarint(br)
	if err != nil {
		switch err {
		case io.EOF:
			return nil, io.EOF
		case io.ErrUnexpectedEOF:
			return nil, &carv1.Error{Kind: carv1.KindTruncated, Message: "index: stream ended mid-varint", Cause: err}
		case varint.ErrNotMinimal:
			return nil, &carv1.Error{Kind: carv1.KindMalformedFraming, Message: "index: length prefix is not minimally encoded", Cause: err}
		case varint.ErrOverflow:
			return nil, &carv1.Error{Kind: carv1.KindMalformedFraming, Message: "index: length prefix overflows uint63", Cause: err}
		}
		return nil, err
	}
	if n > maxEntryFrameLength {
		return nil, &carv1.Error{
			Kind:    carv1.KindMalformedFraming,
			Message: fmt.Sprintf("index: frame length %d exceeds maximum %d", n, maxEntryFrameLength),
		}
	}
	buf := make([]byte, n)
	if read, err := io.ReadFull(br, buf); err != nil {
		return nil, &carv1.Error{
			Kind:    carv1.KindTruncated,
			Message: fmt.Sprintf("index: stream ended %d bytes into a %d-byte frame", read, n),
			Cause:   err,
		}
	}
	return buf, nil
}
