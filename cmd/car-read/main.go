// Command car-read streams an archive, printing its roots and every
// block record, optionally verifying each payload against its CID.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"xdao.co/car/carv1"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("car-read", flag.ContinueOnError)
	fs.SetOutput(errOut)

	var verify bool
	fs.BoolVar(&verify, "verify", false, "Recompute each block's digest and fail on mismatch")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(errOut, "usage: car-read [-verify] <archive>")
		return 2
	}

	f, err := os.Open(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(errOut, "open archive: %v\n", err)
		return 1
	}
	defer f.Close()

	r, err := carv1.NewReaderWithOptions(f, carv1.ReaderOptions{Verify: verify})
	if err != nil {
		fmt.Fprintf(errOut, "read header: %v\n", err)
		return 1
	}
	for _, root := range r.Roots() {
		fmt.Fprintf(out, "root\t%s\n", root)
	}

	n := 0
	for {
		b, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			fmt.Fprintf(errOut, "read block %d: %v\n", n, err)
			return 1
		}
		fmt.Fprintf(out, "block\t%s\t%d\n", b.CID, len(b.Payload))
		n++
	}
	return 0
}
