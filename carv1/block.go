package carv1

import (
	"fmt"

	"github.com/ipfs/go-cid"

	"xdao.co/car/cidutil"
)

// minBlockFrameLength is the smallest frame that can hold a CID at all
// (CIDv1 with an identity multihash and an empty digest is four varint
// bytes). Shorter frames are rejected without attempting a CID parse.
const minBlockFrameLength = 4

// Block is one stored block record: a CID and its raw payload bytes.
// The payload is opaque and may be empty.
type Block struct {
	CID     cid.Cid
	Payload []byte
}

// DecodeBlockFrame splits an unframed block record into its leading
// canonical CID and trailing payload. The same logic serves the streaming
// reader and the indexed single-record read path.
func DecodeBlockFrame(frame []byte) (*Block, error) {
	if len(frame) < minBlockFrameLength {
		return nil, newError(KindMalformedBlock,
			fmt.Sprintf("carv1: %d-byte record is shorter than any CID encoding", len(frame)))
	}
	n, id, err := cid.CidFromBytes(frame)
	if err != nil {
		return nil, wrapError(KindMalformedIdentifier, "carv1: record does not start with a valid CID", err)
	}
	return &Block{CID: id, Payload: frame[n:]}, nil
}

// Verify recomputes the digest named inside the block's CID over its
// payload. A mismatch is KindIntegrityViolation; a CID naming an unknown
// hash function is KindMalformedIdentifier.
func (b *Block) Verify() error {
	ok, err := cidutil.Verify(b.CID, b.Payload)
	if err != nil {
		return wrapError(KindMalformedIdentifier,
			fmt.Sprintf("carv1: cannot verify %s: unknown hash function", b.CID), err)
	}
	if !ok {
		return newError(KindIntegrityViolation,
			fmt.Sprintf("carv1: payload does not hash to %s", b.CID))
	}
	return nil
}

// encodeBlockFrame returns the unframed record bytes: canonical CID
// encoding followed by the payload.
func encodeBlockFrame(id cid.Cid, payload []byte) []byte {
	idBytes := id.Bytes()
	frame := make([]byte, 0, len(idBytes)+len(payload))
	frame = append(frame, idBytes...)
	return append(frame, payload...)
}
