// Package testkit provides a reusable conformance suite for read-only
// content-addressed stores.
package testkit

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/ipfs/go-cid"

	"xdao.co/car/carv1"
	"xdao.co/car/carv1/index"
	"xdao.co/car/cidutil"
	"xdao.co/car/store"
)

// NewGetter constructs a store holding exactly the given blocks.
// The returned store MUST be isolated from other tests.
type NewGetter func(t *testing.T, blocks []carv1.Block) store.Getter

// Blocks returns n deterministic fixture blocks with distinct CIDs.
func Blocks(t *testing.T, n int) []carv1.Block {
	t.Helper()
	blocks := make([]carv1.Block, n)
	for i := range blocks {
		payload := []byte(fmt.Sprintf("fixture block %d", i))
		id, err := cidutil.CIDv1RawSHA256CID(payload)
		if err != nil {
			t.Fatalf("CIDv1RawSHA256CID failed: %v", err)
		}
		blocks[i] = carv1.Block{CID: id, Payload: payload}
	}
	return blocks
}

func RunGetterConformance(t *testing.T, newGetter NewGetter) {
	t.Helper()

	t.Run("GetRoundTrip", func(t *testing.T) {
		blocks := Blocks(t, 8)
		g := newGetter(t, blocks)
		for _, want := range blocks {
			got, err := g.Get(want.CID)
			if err != nil {
				t.Fatalf("Get(%s) failed: %v", want.CID, err)
			}
			if !bytes.Equal(got, want.Payload) {
				t.Fatalf("Get(%s) bytes mismatch", want.CID)
			}
		}
	})

	t.Run("HasAndNotFound", func(t *testing.T) {
		blocks := Blocks(t, 2)
		g := newGetter(t, blocks[:1])

		if !g.Has(blocks[0].CID) {
			t.Fatalf("Has returned false for a stored CID")
		}
		if g.Has(blocks[1].CID) {
			t.Fatalf("Has returned true for a missing CID")
		}
		_, err := g.Get(blocks[1].CID)
		if !index.IsNotFound(err) {
			t.Fatalf("Get missing: got err=%v want ErrNotFound", err)
		}
	})

	t.Run("RejectUndefCID", func(t *testing.T) {
		g := newGetter(t, Blocks(t, 1))
		var undef cid.Cid
		if g.Has(undef) {
			t.Fatalf("Has should be false for undefined CID")
		}
		if _, err := g.Get(undef); err == nil {
			t.Fatalf("Get should fail for undefined CID")
		}
	})
}
