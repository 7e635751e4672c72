package carv1

import (
	"bytes"

	"github.com/ipfs/go-cid"
)

// Build encodes a complete archive in memory and returns its bytes along
// with the writer's entry list, one Entry per block in append order.
func Build(roots []cid.Cid, blocks []Block) ([]byte, []Entry, error) {
	var buf bytes.Buffer
	w, err := NewWriter(&buf, roots)
	if err != nil {
		return nil, nil, err
	}
	for _, b := range blocks {
		if err := w.Put(b.CID, b.Payload); err != nil {
			return nil, nil, err
		}
	}
	if err := w.Close(); err != nil {
		return nil, nil, err
	}
	return buf.Bytes(), w.Entries(), nil
}
