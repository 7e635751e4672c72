package carv1

import (
	"bufio"
	"io"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-varint"
)

// ReaderOptions controls archive decoding behavior.
type ReaderOptions struct {
	// Verify recomputes each block's digest and fails the Next call with
	// KindIntegrityViolation on mismatch. The iterator stays usable, so
	// the caller chooses between aborting and skip-and-continue.
	Verify bool
	// MaxFrameLength overrides DefaultMaxFrameLength when non-zero.
	MaxFrameLength uint64
}

// Reader is a lazy, forward-only archive decoder.
//
// The header is decoded eagerly at construction; blocks are decoded one
// per Next call. A Reader is not restartable and not safe for concurrent
// use; open independent Readers for concurrent scans of the same archive.
type Reader struct {
	br       *bufio.Reader
	header   *Header
	opts     ReaderOptions
	maxFrame uint64
	offset   uint64
}

// NewReader opens an archive positioned at offset 0 and decodes its
// header, failing fast on any header error.
func NewReader(r io.Reader) (*Reader, error) {
	return NewReaderWithOptions(r, ReaderOptions{})
}

// NewReaderWithOptions is NewReader with explicit options.
func NewReaderWithOptions(r io.Reader, opts ReaderOptions) (*Reader, error) {
	maxFrame := opts.MaxFrameLength
	if maxFrame == 0 {
		maxFrame = DefaultMaxFrameLength
	}
	cr := &Reader{
		br:       bufio.NewReader(r),
		opts:     opts,
		maxFrame: maxFrame,
	}
	body, err := readFrame(cr.br, maxFrame)
	if err != nil {
		if err == io.EOF {
			return nil, newError(KindTruncated, "carv1: byte source is empty")
		}
		return nil, err
	}
	header, err := decodeHeader(body)
	if err != nil {
		return nil, err
	}
	cr.header = header
	cr.offset = uint64(varint.UvarintSize(uint64(len(body)))) + uint64(len(body))
	return cr, nil
}

// Version returns the archive's declared format version.
func (r *Reader) Version() uint64 { return r.header.Version }

// Roots returns the archive's root CIDs in declared order.
func (r *Reader) Roots() []cid.Cid {
	roots := make([]cid.Cid, len(r.header.Roots))
	copy(roots, r.header.Roots)
	return roots
}

// Offset returns the archive byte offset the next Next call will read
// from: the running count of header and record bytes consumed so far.
// The index builder samples it around each record.
func (r *Reader) Offset() uint64 { return r.offset }

// Next decodes and returns the next block record.
//
// It returns io.EOF when the source is exhausted exactly at a record
// boundary. Exhaustion mid-record is KindTruncated; no partial block is
// ever surfaced. With Verify set, a well-framed block whose payload does
// not match its CID fails with KindIntegrityViolation after the record
// has been consumed, so a subsequent Next continues the scan.
func (r *Reader) Next() (*Block, error) {
	frame, err := readFrame(r.br, r.maxFrame)
	if err != nil {
		return nil, err
	}
	r.offset += uint64(varint.UvarintSize(uint64(len(frame)))) + uint64(len(frame))
	block, err := DecodeBlockFrame(frame)
	if err != nil {
		return nil, err
	}
	if r.opts.Verify {
		if err := block.Verify(); err != nil {
			return nil, err
		}
	}
	return block, nil
}
