// Command car-index scans an archive once and writes the sorted offset
// index that car-seek queries.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"xdao.co/car/carv1"
	"xdao.co/car/carv1/index"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("car-index", flag.ContinueOnError)
	fs.SetOutput(errOut)

	var outPath string
	fs.StringVar(&outPath, "out", "", "Index file to create")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if outPath == "" {
		fmt.Fprintln(errOut, "missing -out")
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(errOut, "usage: car-index -out <index> <archive>")
		return 2
	}

	f, err := os.Open(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(errOut, "open archive: %v\n", err)
		return 1
	}
	defer f.Close()

	r, err := carv1.NewReader(f)
	if err != nil {
		fmt.Fprintf(errOut, "read header: %v\n", err)
		return 1
	}
	ix, err := index.Build(r)
	if err != nil {
		fmt.Fprintf(errOut, "index archive: %v\n", err)
		return 1
	}

	outFile, err := os.Create(outPath)
	if err != nil {
		fmt.Fprintf(errOut, "create index: %v\n", err)
		return 1
	}
	if err := ix.Encode(outFile); err != nil {
		_ = outFile.Close()
		fmt.Fprintf(errOut, "write index: %v\n", err)
		return 1
	}
	if err := outFile.Close(); err != nil {
		fmt.Fprintf(errOut, "close index: %v\n", err)
		return 1
	}

	fmt.Fprintf(out, "%s\t%d entries\n", outPath, ix.Len())
	return 0
}
