// Package codec provides the (de)compression seam spec.md treats as an
// external collaborator ("assumed available as an external streaming
// decompressor/compressor"). It supplies a concrete default so this module
// and its tests have something to run against, backed by
// github.com/klauspost/compress/flate — the dependency the teacher repo
// already requires but never imports directly from internal/squashfs
// (which reaches for stdlib compress/zlib instead).
package codec

import (
	"bytes"
	"io"

	"golang.org/x/xerrors"

	"github.com/klauspost/compress/flate"
)

// Decompressor reads a compressed payload from src and fills dst, which is
// sized to the file's recorded decompressed size.
type Decompressor func(dst []byte, src io.Reader) error

// Compressor writes a compressed encoding of src to dst, returning the
// number of bytes of src consumed.
type Compressor func(dst io.Writer, src []byte) (n int, err error)

// DefaultDecompress implements Decompressor with raw DEFLATE, used for both
// DEFLATE_BUFFER and DEFLATE_STREAM storage types: the two differ in how the
// host is expected to consume the output (whole-buffer vs. streaming), not
// in the bitstream, so one codec serves both.
func DefaultDecompress(dst []byte, src io.Reader) error {
	fr := flate.NewReader(src)
	defer fr.Close()
	n, err := io.ReadFull(fr, dst)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return xerrors.Errorf("codec: deflate: %w", err)
	}
	if n != len(dst) {
		return xerrors.Errorf("codec: deflate: got %d bytes, want %d", n, len(dst))
	}
	return nil
}

// DefaultCompress implements Compressor with raw DEFLATE at the default
// compression level.
func DefaultCompress(dst io.Writer, src []byte) (int, error) {
	fw, err := flate.NewWriter(dst, flate.DefaultCompression)
	if err != nil {
		return 0, xerrors.Errorf("codec: new deflate writer: %w", err)
	}
	n, err := fw.Write(src)
	if err != nil {
		return n, xerrors.Errorf("codec: deflate write: %w", err)
	}
	if err := fw.Close(); err != nil {
		return n, xerrors.Errorf("codec: deflate close: %w", err)
	}
	return n, nil
}

// CompressToBuffer is a convenience that compresses src with
// DefaultCompress and returns the compressed bytes.
func CompressToBuffer(src []byte) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := DefaultCompress(&buf, src); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
