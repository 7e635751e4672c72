// Package index builds and queries the sorted side-index that turns a
// sequential archive into a random-access block store: one (CID, offset,
// length) entry per record, sorted by canonical CID bytes, searched in
// O(log n) and read back with a single positioned read.
package index

import (
	"errors"
	"io"
	"sort"

	"github.com/ipfs/go-cid"

	"xdao.co/car/carv1"
	"xdao.co/car/cidutil"
)

var (
	// ErrNotFound reports a lookup miss: an expected, non-corruption
	// outcome.
	ErrNotFound = errors.New("index: not found")
	// ErrArchiveMismatch reports an index applied to an archive it was
	// not built from: an indexed offset or length falls outside the
	// archive, or the record found there does not carry the indexed CID.
	ErrArchiveMismatch = errors.New("index: archive mismatch")
)

// IsNotFound reports whether err is a lookup miss.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// Index is an immutable, sorted sequence of block locations for one
// specific archive. Entries are strictly ascending by canonical CID
// bytes; duplicate CIDs in the source archive are resolved first-wins,
// matching what a sequential scan would serve first.
type Index struct {
	archiveLen uint64
	entries    []carv1.Entry
}

// Build consumes the remaining block stream of r and returns the sorted
// index. One forward pass: O(n) time and O(n) memory in the number of
// blocks.
func Build(r *carv1.Reader) (*Index, error) {
	var entries []carv1.Entry
	for {
		start := r.Offset()
		block, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		entries = append(entries, carv1.Entry{
			CID:    block.CID,
			Offset: start,
			Length: r.Offset() - start,
		})
	}
	return FromEntries(entries, r.Offset()), nil
}

// FromEntries builds an index from a writer's entry capture (or any
// other entry list in archive order), avoiding a second pass over the
// archive. archiveLen is the archive's total byte length.
func FromEntries(entries []carv1.Entry, archiveLen uint64) *Index {
	sorted := make([]carv1.Entry, len(entries))
	copy(sorted, entries)
	// Stable sort keeps equal CIDs in archive order, so compaction
	// below retains the first occurrence.
	sort.SliceStable(sorted, func(i, j int) bool {
		return cidutil.Compare(sorted[i].CID, sorted[j].CID) < 0
	})
	deduped := sorted[:0]
	for _, e := range sorted {
		if len(deduped) > 0 && cidutil.Compare(deduped[len(deduped)-1].CID, e.CID) == 0 {
			continue
		}
		deduped = append(deduped, e)
	}
	return &Index{archiveLen: archiveLen, entries: deduped}
}

// Len returns the number of indexed CIDs.
func (ix *Index) Len() int { return len(ix.entries) }

// ArchiveLen returns the byte length of the archive this index was built
// from. Zero means unknown (an index decoded from a stream written by an
// older tool).
func (ix *Index) ArchiveLen() uint64 { return ix.archiveLen }

// Entries returns the sorted entries. The slice is shared; callers must
// not mutate it.
func (ix *Index) Entries() []carv1.Entry { return ix.entries }

// Lookup binary-searches for id and returns its location.
func (ix *Index) Lookup(id cid.Cid) (carv1.Entry, bool) {
	i := sort.Search(len(ix.entries), func(i int) bool {
		return cidutil.Compare(ix.entries[i].CID, id) >= 0
	})
	if i == len(ix.entries) || cidutil.Compare(ix.entries[i].CID, id) != 0 {
		return carv1.Entry{}, false
	}
	return ix.entries[i], true
}

// Has reports whether id is indexed.
func (ix *Index) Has(id cid.Cid) bool {
	_, ok := ix.Lookup(id)
	return ok
}

// Validate checks the recorded archive length against the actual size of
// the archive file, converting a stale or mismatched index/archive pair
// into ErrArchiveMismatch before any seek is attempted. Indexes with an
// unknown archive length validate vacuously.
func (ix *Index) Validate(archiveSize int64) error {
	if ix.archiveLen != 0 && ix.archiveLen != uint64(archiveSize) {
		return ErrArchiveMismatch
	}
	return nil
}
