// Package cidutil provides the CID helpers shared by the archive codec:
// digest derivation, canonical-byte ordering, and payload verification.
package cidutil

import (
	"bytes"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
)

// CIDv1RawSHA256CID returns a CIDv1 (raw + sha2-256) derived from data.
func CIDv1RawSHA256CID(data []byte) (cid.Cid, error) {
	sum, err := multihash.Sum(data, multihash.SHA2_256, -1)
	if err != nil {
		return cid.Undef, err
	}
	return cid.NewCidV1(cid.Raw, sum), nil
}

// Compare orders two CIDs by their canonical byte encoding.
//
// This is the ordering the archive index is sorted and searched by, so it
// must stay consistent with Cid.Bytes.
func Compare(a, b cid.Cid) int {
	return bytes.Compare(a.Bytes(), b.Bytes())
}

// Verify reports whether payload hashes to the digest embedded in id,
// using the hash function the CID itself names.
//
// A mismatch is data, not an error: Verify returns (false, nil). The error
// return is reserved for CIDs whose multihash cannot be decoded or whose
// hash function this build does not implement.
func Verify(id cid.Cid, payload []byte) (bool, error) {
	dec, err := multihash.Decode(id.Hash())
	if err != nil {
		return false, err
	}
	sum, err := multihash.Sum(payload, dec.Code, dec.Length)
	if err != nil {
		return false, err
	}
	return bytes.Equal(sum, id.Hash()), nil
}
