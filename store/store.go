// Package store exposes a finalized archive plus its index as a
// read-only content-addressed block store.
package store

import (
	"errors"
	"io"

	"github.com/ipfs/go-cid"

	"xdao.co/car/carv1"
	"xdao.co/car/carv1/index"
)

// Getter is a minimal read-only content-addressable view.
//
// Contract:
// - Stored blocks MUST be immutable.
// - Get MUST return ErrNotFound (index.ErrNotFound) when the CID is absent.
// - Get MUST never return bytes that do not belong to the requested CID.
type Getter interface {
	Get(id cid.Cid) ([]byte, error)
	Has(id cid.Cid) bool
}

// Options controls store behavior.
type Options struct {
	// Verify recomputes each block's digest on Get.
	Verify bool
}

// Store serves single-block reads from an archive through its index. Each
// Get costs one binary search plus one positioned read; cost is
// independent of archive size. A Store holds no mutable state and is safe
// for concurrent use once constructed.
type Store struct {
	archive io.ReaderAt
	idx     *index.Index
	header  *carv1.Header
	opts    Options
}

// New opens a store over a finalized archive and the index built from it.
// The archive's header is decoded once to expose the roots.
func New(archive io.ReaderAt, idx *index.Index) (*Store, error) {
	return NewWithOptions(archive, idx, Options{})
}

// NewWithOptions is New with explicit options.
func NewWithOptions(archive io.ReaderAt, idx *index.Index, opts Options) (*Store, error) {
	if archive == nil {
		return nil, errors.New("store: nil archive")
	}
	if idx == nil {
		return nil, errors.New("store: nil index")
	}
	headerLimit := int64(carv1.DefaultMaxFrameLength) + 16
	r, err := carv1.NewReader(io.NewSectionReader(archive, 0, headerLimit))
	if err != nil {
		return nil, err
	}
	return &Store{
		archive: archive,
		idx:     idx,
		header:  &carv1.Header{Version: r.Version(), Roots: r.Roots()},
		opts:    opts,
	}, nil
}

// Roots returns the archive's root CIDs in declared order.
func (s *Store) Roots() []cid.Cid {
	roots := make([]cid.Cid, len(s.header.Roots))
	copy(roots, s.header.Roots)
	return roots
}

// Len returns the number of distinct CIDs the store can serve.
func (s *Store) Len() int { return s.idx.Len() }

// Get returns the payload stored for id, or index.ErrNotFound.
func (s *Store) Get(id cid.Cid) ([]byte, error) {
	if !id.Defined() {
		return nil, index.ErrNotFound
	}
	block, err := s.idx.GetWithOptions(s.archive, id, index.SeekOptions{Verify: s.opts.Verify})
	if err != nil {
		return nil, err
	}
	return block.Payload, nil
}

// Has reports whether id is indexed. It touches no archive bytes.
func (s *Store) Has(id cid.Cid) bool {
	if !id.Defined() {
		return false
	}
	return s.idx.Has(id)
}
