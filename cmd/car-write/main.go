// Command car-write builds an archive from input files. Each file
// becomes one block identified by a CIDv1 (raw + sha2-256) over its
// bytes. Roots default to every block's CID unless -root flags narrow
// them.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ipfs/go-cid"

	"xdao.co/car/carv1"
	"xdao.co/car/cidutil"
)

type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ",") }
func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("car-write", flag.ContinueOnError)
	fs.SetOutput(errOut)

	var outPath string
	var rootFlags stringList
	fs.StringVar(&outPath, "out", "", "Archive file to create")
	fs.Var(&rootFlags, "root", "Root CID to declare in the header (repeatable; default: every block)")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if outPath == "" {
		fmt.Fprintln(errOut, "missing -out")
		return 2
	}
	if fs.NArg() == 0 {
		fmt.Fprintln(errOut, "usage: car-write -out <archive> [-root <cid>]... <file>...")
		return 2
	}

	blocks := make([]carv1.Block, 0, fs.NArg())
	for _, path := range fs.Args() {
		payload, err := os.ReadFile(path)
		if err != nil {
			fmt.Fprintf(errOut, "read %s: %v\n", path, err)
			return 1
		}
		id, err := cidutil.CIDv1RawSHA256CID(payload)
		if err != nil {
			fmt.Fprintf(errOut, "derive CID for %s: %v\n", path, err)
			return 1
		}
		blocks = append(blocks, carv1.Block{CID: id, Payload: payload})
	}

	var roots []cid.Cid
	if len(rootFlags) > 0 {
		for _, s := range rootFlags {
			id, err := cid.Decode(s)
			if err != nil {
				fmt.Fprintf(errOut, "invalid -root %q: %v\n", s, err)
				return 2
			}
			roots = append(roots, id)
		}
	} else {
		for _, b := range blocks {
			roots = append(roots, b.CID)
		}
	}

	f, err := os.Create(outPath)
	if err != nil {
		fmt.Fprintf(errOut, "create archive: %v\n", err)
		return 1
	}
	w, err := carv1.NewWriterWithOptions(f, roots, carv1.WriterOptions{VerifyPut: true})
	if err != nil {
		_ = f.Close()
		fmt.Fprintf(errOut, "write header: %v\n", err)
		return 1
	}
	for i, b := range blocks {
		if err := w.Put(b.CID, b.Payload); err != nil {
			_ = f.Close()
			fmt.Fprintf(errOut, "write %s: %v\n", fs.Arg(i), err)
			return 1
		}
	}
	// Close flushes and closes the file.
	if err := w.Close(); err != nil {
		fmt.Fprintf(errOut, "finalize archive: %v\n", err)
		return 1
	}

	for i, b := range blocks {
		fmt.Fprintf(out, "%s\t%s\n", b.CID, fs.Arg(i))
	}
	return 0
}
