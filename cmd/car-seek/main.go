// Command car-seek looks up a single CID through a previously built
// index and writes the matched payload to stdout. It reads exactly one
// record from the archive, wherever it is.
//
// Exit codes: 0 hit, 1 data error, 2 usage error, 3 not found.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/ipfs/go-cid"

	"xdao.co/car/carv1/index"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("car-seek", flag.ContinueOnError)
	fs.SetOutput(errOut)

	var indexPath string
	var verify bool
	fs.StringVar(&indexPath, "index", "", "Index file built by car-index")
	fs.BoolVar(&verify, "verify", false, "Recompute the matched block's digest before printing")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if indexPath == "" {
		fmt.Fprintln(errOut, "missing -index")
		return 2
	}
	if fs.NArg() != 2 {
		fmt.Fprintln(errOut, "usage: car-seek [-verify] -index <index> <archive> <cid>")
		return 2
	}

	id, err := cid.Decode(fs.Arg(1))
	if err != nil {
		fmt.Fprintf(errOut, "invalid CID %q: %v\n", fs.Arg(1), err)
		return 2
	}

	idxFile, err := os.Open(indexPath)
	if err != nil {
		fmt.Fprintf(errOut, "open index: %v\n", err)
		return 1
	}
	ix, err := index.Decode(idxFile)
	_ = idxFile.Close()
	if err != nil {
		fmt.Fprintf(errOut, "read index: %v\n", err)
		return 1
	}

	archive, err := os.Open(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(errOut, "open archive: %v\n", err)
		return 1
	}
	defer archive.Close()

	info, err := archive.Stat()
	if err != nil {
		fmt.Fprintf(errOut, "stat archive: %v\n", err)
		return 1
	}
	if err := ix.Validate(info.Size()); err != nil {
		fmt.Fprintf(errOut, "index does not match archive: %v\n", err)
		return 1
	}

	block, err := ix.GetWithOptions(archive, id, index.SeekOptions{Verify: verify})
	if err != nil {
		if index.IsNotFound(err) {
			fmt.Fprintf(errOut, "not found: %s\n", id)
			return 3
		}
		fmt.Fprintf(errOut, "seek %s: %v\n", id, err)
		return 1
	}
	_, _ = out.Write(block.Payload)
	return 0
}
