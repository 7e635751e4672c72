package index

import (
	"bytes"
	"fmt"
	"io"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-varint"

	"xdao.co/car/carv1"
)

// SeekOptions controls the positioned single-record read.
type SeekOptions struct {
	// Verify recomputes the matched block's digest before returning it.
	Verify bool
}

// Get performs an indexed lookup against archive: binary search, then one
// positioned read of exactly the matched record's span. It never touches
// archive bytes outside that span and never needs the archive in memory.
//
// A miss is ErrNotFound. A hit whose offset or length falls outside the
// archive, or whose record carries a different CID than the index
// claimed, is ErrArchiveMismatch.
func (ix *Index) Get(archive io.ReaderAt, id cid.Cid) (*carv1.Block, error) {
	return ix.GetWithOptions(archive, id, SeekOptions{})
}

// GetWithOptions is Get with explicit options.
func (ix *Index) GetWithOptions(archive io.ReaderAt, id cid.Cid, opts SeekOptions) (*carv1.Block, error) {
	e, ok := ix.Lookup(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if ix.archiveLen != 0 && e.Offset+e.Length > ix.archiveLen {
		return nil, fmt.Errorf("%w: record [%d,%d) exceeds archive length %d",
			ErrArchiveMismatch, e.Offset, e.Offset+e.Length, ix.archiveLen)
	}
	if e.Length > carv1.DefaultMaxFrameLength+maxUvarintLen {
		return nil, fmt.Errorf("%w: record length %d exceeds frame maximum", ErrArchiveMismatch, e.Length)
	}

	record := make([]byte, e.Length)
	if _, err := archive.ReadAt(record, int64(e.Offset)); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil, fmt.Errorf("%w: record [%d,%d) is outside the archive",
				ErrArchiveMismatch, e.Offset, e.Offset+e.Length)
		}
		return nil, err
	}

	// The span covers the varint prefix plus the frame; the prefix must
	// account for the span exactly or the index points at something that
	// is not a record boundary.
	br := bytes.NewReader(record)
	frameLen, err := varint.ReadUvarint(br)
	if err != nil {
		return nil, fmt.Errorf("%w: record does not start with a length prefix", ErrArchiveMismatch)
	}
	prefixLen := uint64(varint.UvarintSize(frameLen))
	if prefixLen+frameLen != e.Length {
		return nil, fmt.Errorf("%w: record span %d disagrees with its length prefix %d",
			ErrArchiveMismatch, e.Length, prefixLen+frameLen)
	}

	block, err := carv1.DecodeBlockFrame(record[prefixLen:])
	if err != nil {
		return nil, err
	}
	if !block.CID.Equals(id) {
		return nil, fmt.Errorf("%w: record at offset %d holds %s, index claimed %s",
			ErrArchiveMismatch, e.Offset, block.CID, id)
	}
	if opts.Verify {
		if err := block.Verify(); err != nil {
			return nil, err
		}
	}
	return block, nil
}

// maxUvarintLen is the longest prefix a 63-bit frame length can occupy.
const maxUvarintLen = 9
