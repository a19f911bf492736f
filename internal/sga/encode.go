package sga

import "io"

// Exported record sizes, needed by the packer (package sgapack) to lay out
// a fresh TOC without duplicating the byte-offset knowledge already
// encoded in this package's read/write pairs.
const (
	TOCHeaderSize    = tocHeaderSize
	DriveRecordSize  = driveRecordSize
	FolderRecordSize = folderRecordSize
)

// EncodeMagicAndVersion writes the 8-byte magic and 4-byte version fields
// at the start of w.
func EncodeMagicAndVersion(w io.WriterAt) error {
	win := newReadWriteWindow(nil, w, 0, MagicSize+VersionSize)
	if err := win.writeAt(Magic[:], 0); err != nil {
		return err
	}
	if err := writeUint16(win, MagicSize, FormatVersion.Major); err != nil {
		return err
	}
	return writeUint16(win, MagicSize+2, FormatVersion.Minor)
}

// EncodeMetaHeader writes the 168-byte meta header at its fixed location.
func EncodeMetaHeader(w io.WriterAt, m MetaHeader) error {
	win := newReadWriteWindow(nil, w, MagicSize+VersionSize, MetaHeaderSize)
	return writeMetaHeader(win, m)
}

// EncodeTOCHeader writes the 24-byte TOC header at offset (relative to the
// start of the file, i.e. normally TOCOffset).
func EncodeTOCHeader(w io.WriterAt, offset int64, h TOCHeader) error {
	win := newReadWriteWindow(nil, w, offset, tocHeaderSize)
	return writeTOCHeader(win, h)
}

// EncodeDriveRecord writes a single 138-byte drive record at offset.
func EncodeDriveRecord(w io.WriterAt, offset int64, d DriveRecord) error {
	win := newReadWriteWindow(nil, w, offset, driveRecordSize)
	return writeDriveRecord(win, d)
}

// EncodeFolderRecord writes a single 12-byte folder record at offset.
func EncodeFolderRecord(w io.WriterAt, offset int64, f FolderRecord) error {
	win := newReadWriteWindow(nil, w, offset, folderRecordSize)
	return writeFolderRecord(win, f)
}

// EncodeFileRecord writes a single file record (20 bytes, DoW dialect —
// the packer always emits DoW per spec.md §4.H) at offset.
func EncodeFileRecord(w io.WriterAt, offset int64, f FileRecord) error {
	win := newReadWriteWindow(nil, w, offset, DialectDawnOfWar.RecordSize())
	return writeFileRecord(win, DialectDawnOfWar, f)
}

// EncodeDataHeader writes a 264-byte per-file data header at offset.
func EncodeDataHeader(w io.WriterAt, offset int64, h DataHeader) error {
	win := newReadWriteWindow(nil, w, offset, dataHeaderSize)
	return writeDataHeader(win, h)
}

// EigenFile and EigenTOC expose the eigen salts to the packer, which needs
// to hash its own freshly emitted TOC and TOC+data spans.
const (
	EigenFile = eigenFile
	EigenTOC  = eigenTOC
)

// HashWithEigen exposes md5WithEigen for the packer's back-fill pass.
func HashWithEigen(eigen string, r io.Reader) ([16]byte, error) {
	return md5WithEigen(eigen, r)
}
