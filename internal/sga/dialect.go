package sga

import "golang.org/x/xerrors"

// StorageType is the per-file codec, encoded in the high nibble of a file
// record's flags field.
type StorageType uint8

const (
	StorageStore         StorageType = 0
	StorageDeflateBuffer StorageType = 1
	StorageDeflateStream StorageType = 2
)

// Dialect distinguishes the two v2 file-record layouts: they differ only in
// the width of the flags field, and therefore in total record size.
type Dialect int

const (
	DialectUnknown Dialect = iota
	// DialectDawnOfWar is the 20-byte file record (4-byte flags).
	DialectDawnOfWar
	// DialectImpossibleCreatures is the 17-byte file record (1-byte flags).
	DialectImpossibleCreatures
)

// RecordSize returns the on-disk size of a file record under this dialect,
// or 0 for DialectUnknown.
func (d Dialect) RecordSize() int64 {
	switch d {
	case DialectDawnOfWar:
		return 20
	case DialectImpossibleCreatures:
		return 17
	default:
		return 0
	}
}

// DialectFromRecordSize matches a computed per-record byte width against
// the two known dialects, per spec.md §4.E step 6.
func DialectFromRecordSize(size int64) (Dialect, error) {
	switch size {
	case 20:
		return DialectDawnOfWar, nil
	case 17:
		return DialectImpossibleCreatures, nil
	default:
		return DialectUnknown, xerrors.Errorf("file record size %d matches neither dialect: %w", size, ErrUnknownDialect)
	}
}

// FileRecord is the TOC entry for a single file, normalized across both
// dialects: Flags always holds the full byte value, conceptually widened to
// a uint32, with the storage type in its high nibble (of the byte actually
// present on disk) and the low nibble preserved verbatim across writes.
type FileRecord struct {
	NameOffset       uint32
	Flags            uint32
	DataOffset       uint32
	CompressedSize   uint32
	DecompressedSize uint32
}

// StorageType extracts the storage type from the low byte of Flags.
func (f FileRecord) StorageType() StorageType {
	return StorageType((f.Flags & 0xF0) >> 4)
}

// WithStorageType returns a copy of f with its storage type set to t,
// preserving the low nibble of Flags.
func (f FileRecord) WithStorageType(t StorageType) FileRecord {
	f.Flags = (f.Flags & 0x0F) | (uint32(t) << 4)
	return f
}

func readFileRecord(w window, dialect Dialect) (FileRecord, error) {
	var f FileRecord
	var err error
	if f.NameOffset, err = readUint32(w, 0); err != nil {
		return f, err
	}
	switch dialect {
	case DialectDawnOfWar:
		if f.Flags, err = readUint32(w, 4); err != nil {
			return f, err
		}
		if f.DataOffset, err = readUint32(w, 8); err != nil {
			return f, err
		}
		if f.CompressedSize, err = readUint32(w, 12); err != nil {
			return f, err
		}
		if f.DecompressedSize, err = readUint32(w, 16); err != nil {
			return f, err
		}
	case DialectImpossibleCreatures:
		var flags [1]byte
		if err = w.readAt(flags[:], 4); err != nil {
			return f, err
		}
		f.Flags = uint32(flags[0])
		if f.DataOffset, err = readUint32(w, 5); err != nil {
			return f, err
		}
		if f.CompressedSize, err = readUint32(w, 9); err != nil {
			return f, err
		}
		if f.DecompressedSize, err = readUint32(w, 13); err != nil {
			return f, err
		}
	default:
		return f, xerrors.Errorf("reading file record: %w", ErrUnknownDialect)
	}
	return f, nil
}

func writeFileRecord(w window, dialect Dialect, f FileRecord) error {
	if err := writeUint32(w, 0, f.NameOffset); err != nil {
		return err
	}
	switch dialect {
	case DialectDawnOfWar:
		if err := writeUint32(w, 4, f.Flags); err != nil {
			return err
		}
		if err := writeUint32(w, 8, f.DataOffset); err != nil {
			return err
		}
		if err := writeUint32(w, 12, f.CompressedSize); err != nil {
			return err
		}
		return writeUint32(w, 16, f.DecompressedSize)
	case DialectImpossibleCreatures:
		if f.Flags > 0xFF {
			return xerrors.Errorf("flags %#x do not fit the IC dialect's 1-byte field", f.Flags)
		}
		if err := w.writeAt([]byte{byte(f.Flags)}, 4); err != nil {
			return err
		}
		if err := writeUint32(w, 5, f.DataOffset); err != nil {
			return err
		}
		if err := writeUint32(w, 9, f.CompressedSize); err != nil {
			return err
		}
		return writeUint32(w, 13, f.DecompressedSize)
	default:
		return xerrors.Errorf("writing file record: %w", ErrUnknownDialect)
	}
}
