package sgafs

import (
	"bytes"
	"io"
	"time"

	"golang.org/x/xerrors"

	"github.com/MAK-Relic-Tool/Relic-Tool-SGA-V2/internal/sga"
)

// OpenMode selects how openbin opens a file handle.
type OpenMode int

const (
	ModeRead OpenMode = iota
	ModeWrite
	ModeAppend
)

func (m OpenMode) writing() bool { return m == ModeWrite || m == ModeAppend }

// FileHandle is a scoped binary handle on a file node, returned by
// openbin. It must be released via Close; a read handle seeks back to the
// start on release, mirroring the in-memory "rewind on close" behavior the
// resource model calls for.
type FileHandle struct {
	node   *fileNode
	mode   OpenMode
	reader *bytes.Reader
	buf    *bytes.Buffer
}

// openBin implements openbin for a single file node (FS.OpenBin calls it):
// write modes promote the file immediately (the node's backing becomes
// materialized as soon as the handle is obtained); read mode never
// promotes, it reads the whole decompressed payload directly off the lazy
// record into memory when the node has not already been materialized by
// something else.
func (fn *fileNode) openBin(mode OpenMode) (*FileHandle, error) {
	if mode.writing() {
		m, err := fn.promote()
		if err != nil {
			return nil, err
		}
		buf := bytes.NewBuffer(nil)
		if mode == ModeAppend {
			buf.Write(m.payload)
		}
		return &FileHandle{node: fn, mode: mode, buf: buf}, nil
	}

	fn.mu.Lock()
	lazy := fn.lazy
	materialized := fn.materialized
	fn.mu.Unlock()

	var payload []byte
	if materialized != nil {
		payload = materialized.payload
	} else {
		_, p, err := lazy.archive.ReadFile(lazy.record, lazy.name)
		if err != nil {
			return nil, err
		}
		payload = p
	}
	return &FileHandle{node: fn, mode: mode, reader: bytes.NewReader(payload)}, nil
}

func (h *FileHandle) Read(p []byte) (int, error) {
	if h.mode.writing() {
		return 0, xerrors.Errorf("read: %w", sga.ErrNotWritable)
	}
	return h.reader.Read(p)
}

func (h *FileHandle) Seek(offset int64, whence int) (int64, error) {
	if h.mode.writing() {
		return 0, xerrors.Errorf("seek: %w", sga.ErrNotWritable)
	}
	return h.reader.Seek(offset, whence)
}

func (h *FileHandle) Write(p []byte) (int, error) {
	if !h.mode.writing() {
		return 0, xerrors.Errorf("write: %w", sga.ErrNotWritable)
	}
	return h.buf.Write(p)
}

// Close flushes a write handle's accumulated bytes back into the node's
// materialized payload, invalidating its cached CRC32, or rewinds a read
// handle.
func (h *FileHandle) Close() error {
	if !h.mode.writing() {
		_, err := h.reader.Seek(0, io.SeekStart)
		return err
	}
	h.node.mu.Lock()
	defer h.node.mu.Unlock()
	h.node.materialized.payload = h.buf.Bytes()
	h.node.materialized.crc32Valid = false
	h.node.materialized.modified = time.Now().UTC()
	return nil
}
