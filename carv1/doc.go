// Package carv1 implements the version-1 content-addressable archive
// codec: a CBOR header naming the archive's roots, followed by
// varint-framed block records of canonical CID bytes plus raw payload.
//
// The codec is a pure value transformation over explicit byte sources and
// sinks. Reader and Writer hold only their cursor; any number of
// independent Readers may scan the same finalized archive concurrently.
// Random access over a built index lives in carv1/index.
package carv1
