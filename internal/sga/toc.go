package sga

import (
	"bytes"
	"sync"

	"golang.org/x/xerrors"
)

// Layout constants from spec.md §4.C / §6.
const (
	MagicSize    = 8
	VersionSize  = 4
	MetaHeaderSize = 168
	// TOCOffset is fixed: immediately after the 8-byte magic, 4-byte
	// version and 168-byte meta header.
	TOCOffset = MagicSize + VersionSize + MetaHeaderSize

	tocHeaderSize  = 24
	driveRecordSize = 138
	folderRecordSize = 12
	dataHeaderSize = 264
)

// Magic is the 8-byte ASCII identifier at the start of every SGA v2 archive.
var Magic = [MagicSize]byte{'_', 'A', 'R', 'C', 'H', 'I', 'V', 'E'}

// FormatVersion is the only version this module reads or writes.
var FormatVersion = struct{ Major, Minor uint16 }{Major: 2, Minor: 0}

// MetaHeader is the 168-byte archive meta header occupying bytes [12:180).
type MetaHeader struct {
	FileMD5     [16]byte
	ArchiveName string // ≤128 bytes UTF-16LE, NUL-padded
	TOCMD5      [16]byte
	TOCSize     uint32
	DataOffset  uint32
}

func readMetaHeader(w window) (MetaHeader, error) {
	var m MetaHeader
	raw, err := readBytes(w, 0, 16)
	if err != nil {
		return m, err
	}
	copy(m.FileMD5[:], raw)
	if m.ArchiveName, err = readCString(w, 16, 128, encodingUTF16LE, 0); err != nil {
		return m, err
	}
	raw, err = readBytes(w, 144, 16)
	if err != nil {
		return m, err
	}
	copy(m.TOCMD5[:], raw)
	if m.TOCSize, err = readUint32(w, 160); err != nil {
		return m, err
	}
	if m.DataOffset, err = readUint32(w, 164); err != nil {
		return m, err
	}
	return m, nil
}

func writeMetaHeader(w window, m MetaHeader) error {
	if err := writeBytes(w, 0, m.FileMD5[:]); err != nil {
		return err
	}
	if err := writeCString(w, 16, 128, m.ArchiveName, encodingUTF16LE, 0); err != nil {
		return xerrors.Errorf("archive name: %w", err)
	}
	if err := writeBytes(w, 144, m.TOCMD5[:]); err != nil {
		return err
	}
	if err := writeUint32(w, 160, m.TOCSize); err != nil {
		return err
	}
	return writeUint32(w, 164, m.DataOffset)
}

// TOCHeader locates the four sub-areas of the TOC, offsets relative to the
// start of the TOC window.
type TOCHeader struct {
	DriveOffset  uint32
	DriveCount   uint16
	FolderOffset uint32
	FolderCount  uint16
	FileOffset   uint32
	FileCount    uint16
	NameOffset   uint32
	NameCount    uint16
}

func readTOCHeader(w window) (TOCHeader, error) {
	var h TOCHeader
	var err error
	if h.DriveOffset, err = readUint32(w, 0); err != nil {
		return h, err
	}
	if h.DriveCount, err = readUint16(w, 4); err != nil {
		return h, err
	}
	if h.FolderOffset, err = readUint32(w, 6); err != nil {
		return h, err
	}
	if h.FolderCount, err = readUint16(w, 10); err != nil {
		return h, err
	}
	if h.FileOffset, err = readUint32(w, 12); err != nil {
		return h, err
	}
	if h.FileCount, err = readUint16(w, 16); err != nil {
		return h, err
	}
	if h.NameOffset, err = readUint32(w, 18); err != nil {
		return h, err
	}
	if h.NameCount, err = readUint16(w, 22); err != nil {
		return h, err
	}
	return h, nil
}

func writeTOCHeader(w window, h TOCHeader) error {
	if err := writeUint32(w, 0, h.DriveOffset); err != nil {
		return err
	}
	if err := writeUint16(w, 4, h.DriveCount); err != nil {
		return err
	}
	if err := writeUint32(w, 6, h.FolderOffset); err != nil {
		return err
	}
	if err := writeUint16(w, 10, h.FolderCount); err != nil {
		return err
	}
	if err := writeUint32(w, 12, h.FileOffset); err != nil {
		return err
	}
	if err := writeUint16(w, 16, h.FileCount); err != nil {
		return err
	}
	if err := writeUint32(w, 18, h.NameOffset); err != nil {
		return err
	}
	return writeUint16(w, 22, h.NameCount)
}

// DriveRecord is the 138-byte on-disk drive entry.
type DriveRecord struct {
	Alias       string // ≤64 bytes ASCII
	Name        string // ≤64 bytes ASCII
	FirstFolder uint16
	LastFolder  uint16
	FirstFile   uint16
	LastFile    uint16
	RootFolder  uint16
}

func readDriveRecord(w window) (DriveRecord, error) {
	var d DriveRecord
	var err error
	if d.Alias, err = readCString(w, 0, 64, encodingASCII, 0); err != nil {
		return d, err
	}
	if d.Name, err = readCString(w, 64, 64, encodingASCII, 0); err != nil {
		return d, err
	}
	if d.FirstFolder, err = readUint16(w, 128); err != nil {
		return d, err
	}
	if d.LastFolder, err = readUint16(w, 130); err != nil {
		return d, err
	}
	if d.FirstFile, err = readUint16(w, 132); err != nil {
		return d, err
	}
	if d.LastFile, err = readUint16(w, 134); err != nil {
		return d, err
	}
	if d.RootFolder, err = readUint16(w, 136); err != nil {
		return d, err
	}
	return d, nil
}

func writeDriveRecord(w window, d DriveRecord) error {
	if err := writeCString(w, 0, 64, d.Alias, encodingASCII, 0); err != nil {
		return xerrors.Errorf("drive alias: %w", err)
	}
	if err := writeCString(w, 64, 64, d.Name, encodingASCII, 0); err != nil {
		return xerrors.Errorf("drive name: %w", err)
	}
	if err := writeUint16(w, 128, d.FirstFolder); err != nil {
		return err
	}
	if err := writeUint16(w, 130, d.LastFolder); err != nil {
		return err
	}
	if err := writeUint16(w, 132, d.FirstFile); err != nil {
		return err
	}
	if err := writeUint16(w, 134, d.LastFile); err != nil {
		return err
	}
	return writeUint16(w, 136, d.RootFolder)
}

// FolderRecord is the 12-byte on-disk folder entry.
type FolderRecord struct {
	NameOffset     uint32
	FirstSubfolder uint16
	LastSubfolder  uint16
	FirstFile      uint16
	LastFile       uint16
}

func readFolderRecord(w window) (FolderRecord, error) {
	var f FolderRecord
	var err error
	if f.NameOffset, err = readUint32(w, 0); err != nil {
		return f, err
	}
	if f.FirstSubfolder, err = readUint16(w, 4); err != nil {
		return f, err
	}
	if f.LastSubfolder, err = readUint16(w, 6); err != nil {
		return f, err
	}
	if f.FirstFile, err = readUint16(w, 8); err != nil {
		return f, err
	}
	if f.LastFile, err = readUint16(w, 10); err != nil {
		return f, err
	}
	return f, nil
}

func writeFolderRecord(w window, f FolderRecord) error {
	if err := writeUint32(w, 0, f.NameOffset); err != nil {
		return err
	}
	if err := writeUint16(w, 4, f.FirstSubfolder); err != nil {
		return err
	}
	if err := writeUint16(w, 6, f.LastSubfolder); err != nil {
		return err
	}
	if err := writeUint16(w, 8, f.FirstFile); err != nil {
		return err
	}
	return writeUint16(w, 10, f.LastFile)
}

// nameWindow is the pooled name region: NUL-terminated strings addressed by
// byte offset, decoded lazily and cached by offset. Grounded on
// original_source/src/relic/sga/v2/serialization.py's NameWindow.
type nameWindow struct {
	w window

	mu    sync.Mutex
	cache map[uint32]string
}

func newNameWindow(w window) *nameWindow {
	return &nameWindow{w: w, cache: make(map[uint32]string)}
}

// Lookup decodes the NUL-terminated name starting at offset, memoizing the
// result for subsequent lookups at the same offset.
func (n *nameWindow) Lookup(offset uint32) (string, error) {
	n.mu.Lock()
	if s, ok := n.cache[offset]; ok {
		n.mu.Unlock()
		return s, nil
	}
	n.mu.Unlock()

	remaining := n.w.Len() - int64(offset)
	if remaining <= 0 {
		return "", xerrors.Errorf("name offset %d: %w", offset, ErrOutOfBounds)
	}
	raw, err := readBytes(n.w, int64(offset), remaining)
	if err != nil {
		return "", err
	}
	idx := bytes.IndexByte(raw, 0)
	if idx < 0 {
		return "", xerrors.Errorf("name at offset %d is not NUL-terminated", offset)
	}
	s := string(raw[:idx])

	n.mu.Lock()
	n.cache[offset] = s
	n.mu.Unlock()
	return s, nil
}
