package carv1

import (
	"bufio"
	"fmt"
	"io"

	"github.com/ipfs/go-cid"

	"xdao.co/car/cidutil"
)

// Entry locates one block record inside an archive: the offset of the
// record's length prefix and the total byte span of the complete record
// (prefix + CID + payload). Entries are valid only against the exact
// archive bytes they were recorded from.
type Entry struct {
	CID    cid.Cid
	Offset uint64
	Length uint64
}

// WriterOptions controls archive encoding behavior.
type WriterOptions struct {
	// VerifyPut recomputes the digest over each payload and refuses the
	// append with KindIdentifierMismatch when it does not match the
	// declared CID, preventing construction of an internally
	// inconsistent archive.
	VerifyPut bool
}

// Writer is a sequential archive encoder.
//
// The header is emitted at construction; each Put appends one record in
// call order. The format does not deduplicate: putting identical
// arguments twice produces two identical records. A Writer is not safe
// for concurrent use.
type Writer struct {
	bw      *bufio.Writer
	sink    io.Writer
	opts    WriterOptions
	offset  uint64
	entries []Entry
	closed  bool
}

// NewWriter writes the header for the given roots to w and returns a
// Writer ready to append blocks.
func NewWriter(w io.Writer, roots []cid.Cid) (*Writer, error) {
	return NewWriterWithOptions(w, roots, WriterOptions{})
}

// NewWriterWithOptions is NewWriter with explicit options.
func NewWriterWithOptions(w io.Writer, roots []cid.Cid, opts WriterOptions) (*Writer, error) {
	body, err := encodeHeader(&Header{Version: FormatVersion, Roots: roots})
	if err != nil {
		return nil, err
	}
	cw := &Writer{
		bw:   bufio.NewWriter(w),
		sink: w,
		opts: opts,
	}
	n, err := writeFrame(cw.bw, body)
	if err != nil {
		return nil, err
	}
	cw.offset = n
	return cw, nil
}

// Put appends one block record. Records land on disk strictly in call
// order.
func (w *Writer) Put(id cid.Cid, payload []byte) error {
	if w.closed {
		return newError(KindArchiveClosed, "carv1: put after close")
	}
	if !id.Defined() {
		return newError(KindMalformedIdentifier, "carv1: put with an undefined CID")
	}
	if w.opts.VerifyPut {
		ok, err := cidutil.Verify(id, payload)
		if err != nil {
			return wrapError(KindMalformedIdentifier,
				fmt.Sprintf("carv1: cannot verify %s: unknown hash function", id), err)
		}
		if !ok {
			return newError(KindIdentifierMismatch,
				fmt.Sprintf("carv1: payload does not hash to %s", id))
		}
	}
	start := w.offset
	n, err := writeFrame(w.bw, encodeBlockFrame(id, payload))
	if err != nil {
		return err
	}
	w.offset += n
	w.entries = append(w.entries, Entry{CID: id, Offset: start, Length: n})
	return nil
}

// Entries returns one Entry per Put, in append order. The slice lets an
// index be built without re-reading the finished archive.
func (w *Writer) Entries() []Entry {
	entries := make([]Entry, len(w.entries))
	copy(entries, w.entries)
	return entries
}

// Size returns the archive's byte length so far (header plus all records).
func (w *Writer) Size() uint64 { return w.offset }

// Close flushes buffered records and closes the sink if it is an
// io.Closer. After Close, Put fails with KindArchiveClosed. Close is
// idempotent.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	if err := w.bw.Flush(); err != nil {
		return err
	}
	if c, ok := w.sink.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
