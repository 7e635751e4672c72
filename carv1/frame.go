package carv1

import (
	"errors"
	"fmt"
	"io"

	"github.com/multiformats/go-varint"
)

// DefaultMaxFrameLength bounds a single frame (the header or one block
// record) unless overridden. A corrupt length prefix must not be able to
// trigger an arbitrarily large allocation.
const DefaultMaxFrameLength = 16 << 20 // 16 MiB

// readFrameLength reads one canonical uvarint length prefix from r.
//
// io.EOF is returned untouched when the source is exhausted before the
// first byte: the caller decides whether that is a clean record boundary.
// Exhaustion after at least one byte is KindTruncated. Non-minimal or
// oversized encodings are KindMalformedFraming.
func readFrameLength(r io.ByteReader, max uint64) (uint64, error) {
	n, err := varint.ReadUvarint(r)
	switch {
	case err == nil:
	case errors.Is(err, io.EOF):
		return 0, io.EOF
	case errors.Is(err, io.ErrUnexpectedEOF):
		return 0, wrapError(KindTruncated, "carv1: byte source ended mid-varint", err)
	case errors.Is(err, varint.ErrNotMinimal):
		return 0, wrapError(KindMalformedFraming, "carv1: length prefix is not minimally encoded", err)
	case errors.Is(err, varint.ErrOverflow):
		return 0, wrapError(KindMalformedFraming, "carv1: length prefix overflows uint63", err)
	default:
		return 0, err
	}
	if n > max {
		return 0, newError(KindMalformedFraming,
			fmt.Sprintf("carv1: frame length %d exceeds maximum %d", n, max))
	}
	return n, nil
}

// readFrame reads one length-prefixed frame and returns its payload.
// io.EOF is returned untouched at a clean frame boundary.
func readFrame(r byteAndByteSliceReader, max uint64) ([]byte, error) {
	n, err := readFrameLength(r, max)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, n)
	if read, err := io.ReadFull(r, buf); err != nil {
		return nil, wrapError(KindTruncated,
			fmt.Sprintf("carv1: byte source ended %d bytes into a %d-byte frame", read, n), err)
	}
	return buf, nil
}

// writeFrame writes one length-prefixed frame to w and returns the total
// bytes written (prefix plus payload).
func writeFrame(w io.Writer, payload []byte) (uint64, error) {
	prefix := varint.ToUvarint(uint64(len(payload)))
	if _, err := w.Write(prefix); err != nil {
		return 0, err
	}
	if _, err := w.Write(payload); err != nil {
		return 0, err
	}
	return uint64(len(prefix)) + uint64(len(payload)), nil
}

// byteAndByteSliceReader is what the frame decoder needs from its source:
// single bytes for the varint prefix, bulk reads for the frame body.
// bufio.Reader and bytes.Reader both satisfy it.
type byteAndByteSliceReader interface {
	io.ByteReader
	io.Reader
}
