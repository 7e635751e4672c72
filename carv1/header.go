package carv1

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/ipfs/go-cid"
)

// FormatVersion is the only archive format version this build implements.
// Headers declaring any other version are rejected at open time.
const FormatVersion = 1

// Header is the archive-level header at byte offset 0: the format version
// and the ordered root CIDs. Root order is significant and preserved
// verbatim on round-trip.
type Header struct {
	Version uint64
	Roots   []cid.Cid
}

// encMode is the CBOR encoder configured with Core Deterministic Encoding
// (RFC 8949 §4.2): sorted map keys, smallest integer encoding, no
// indefinite-length items. The same header always produces identical bytes.
var encMode cbor.EncMode

// decMode is the CBOR decoder for header and index metadata. Unknown map
// keys are ignored for forward compatibility; field shape is still
// validated after decoding.
var decMode cbor.DecMode

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("carv1: CBOR encoder initialization failed: " + err.Error())
	}
	decMode, err = cbor.DecOptions{
		DupMapKey: cbor.DupMapKeyEnforcedAPF,
	}.DecMode()
	if err != nil {
		panic("carv1: CBOR decoder initialization failed: " + err.Error())
	}
}

// wireHeader is the CBOR shape of the archive header. Roots carry
// canonical CID bytes, not text, so round-trips are byte-exact for any
// CID. Pointer fields distinguish an absent key from a present-but-empty
// value.
type wireHeader struct {
	Roots   *[][]byte `cbor:"roots"`
	Version *uint64   `cbor:"version"`
}

// encodeHeader returns the unframed CBOR encoding of a header.
func encodeHeader(h *Header) ([]byte, error) {
	roots := make([][]byte, len(h.Roots))
	for i, r := range h.Roots {
		if !r.Defined() {
			return nil, newError(KindMalformedIdentifier,
				fmt.Sprintf("carv1: root %d is undefined", i))
		}
		roots[i] = r.Bytes()
	}
	return encMode.Marshal(wireHeader{Roots: &roots, Version: &h.Version})
}

// decodeHeader decodes and validates an unframed header body.
func decodeHeader(body []byte) (*Header, error) {
	var wh wireHeader
	if err := decMode.Unmarshal(body, &wh); err != nil {
		return nil, wrapError(KindMalformedHeader, "carv1: header is not a valid CBOR map", err)
	}
	if wh.Version == nil {
		return nil, newError(KindMalformedHeader, "carv1: header is missing the version field")
	}
	if wh.Roots == nil {
		return nil, newError(KindMalformedHeader, "carv1: header is missing the roots field")
	}
	if *wh.Version != FormatVersion {
		return nil, newError(KindUnsupportedVersion,
			fmt.Sprintf("carv1: unsupported archive version %d (supported: %d)", *wh.Version, FormatVersion))
	}
	roots := make([]cid.Cid, len(*wh.Roots))
	for i, raw := range *wh.Roots {
		id, err := cid.Cast(raw)
		if err != nil {
			return nil, wrapError(KindMalformedHeader,
				fmt.Sprintf("carv1: root %d is not a valid CID", i), err)
		}
		roots[i] = id
	}
	return &Header{Version: *wh.Version, Roots: roots}, nil
}
