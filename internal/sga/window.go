// Package sga implements the binary layout, table-of-contents record types
// and integrity machinery of the SGA v2 archive container.
//
// It corresponds to components A through E of the design: the binary window
// and converters, the TOC record types, the TOC area iterator, and the
// top-level archive file object.
package sga

import (
	"io"

	"golang.org/x/xerrors"
)

// window is a slice of an underlying byte stream: every address passed to
// its accessors is interpreted relative to base and bounded by size.
// Windows compose — a sub-window of w at (offset, length) shares the same
// underlying stream, translated and re-bounded.
//
// Grounded on internal/squashfs/reader.go's blockReader, which reads a
// SquashFS metadata block as an offset-relative view over an io.ReaderAt.
type window struct {
	r    io.ReaderAt
	w    io.WriterAt // nil if the underlying stream is read-only
	base int64
	size int64
}

func newReadWindow(r io.ReaderAt, base, size int64) window {
	return window{r: r, base: base, size: size}
}

func newReadWriteWindow(r io.ReaderAt, w io.WriterAt, base, size int64) window {
	return window{r: r, w: w, base: base, size: size}
}

// sub returns the sub-window of w at (offset, length), bounds-checked
// against w's own size.
func (w window) sub(offset, length int64) (window, error) {
	if offset < 0 || length < 0 || offset+length > w.size {
		return window{}, xerrors.Errorf("sub-window [%d:%d] of window sized %d: %w", offset, offset+length, w.size, ErrOutOfBounds)
	}
	return window{r: w.r, w: w.w, base: w.base + offset, size: length}, nil
}

// Len reports the window's size in bytes.
func (w window) Len() int64 { return w.size }

func (w window) readAt(p []byte, offset int64) error {
	if offset < 0 || int64(len(p))+offset > w.size {
		return xerrors.Errorf("read [%d:%d] of window sized %d: %w", offset, offset+int64(len(p)), w.size, ErrOutOfBounds)
	}
	if w.r == nil {
		return xerrors.Errorf("window has no backing reader: %w", ErrOutOfBounds)
	}
	n, err := w.r.ReadAt(p, w.base+offset)
	if err != nil && !(err == io.EOF && n == len(p)) {
		return xerrors.Errorf("readAt: %w", err)
	}
	return nil
}

func (w window) writeAt(p []byte, offset int64) error {
	if offset < 0 || int64(len(p))+offset > w.size {
		return xerrors.Errorf("write [%d:%d] of window sized %d: %w", offset, offset+int64(len(p)), w.size, ErrOutOfBounds)
	}
	if w.w == nil {
		return xerrors.Errorf("window is read-only: %w", ErrNotWritable)
	}
	_, err := w.w.WriteAt(p, w.base+offset)
	if err != nil {
		return xerrors.Errorf("writeAt: %w", err)
	}
	return nil
}
