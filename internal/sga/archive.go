package sga

import (
	"bytes"
	"io"
	"log"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
	"golang.org/x/xerrors"

	"github.com/MAK-Relic-Tool/Relic-Tool-SGA-V2/internal/sga/codec"
)

// Archive owns the top-level parsed structure of an SGA v2 container:
// magic/version check, meta header, TOC window, data window, dialect
// detection and integrity verification. Grounded on mpq.go's diveIn and
// internal/squashfs/reader.go's NewReader.
type Archive struct {
	stream    io.ReaderAt
	totalSize int64

	meta       MetaHeader
	tocHeader  TOCHeader
	tocWindow  window
	dataWindow window

	drives  driveArea
	folders folderArea
	files   fileArea
	names   *nameWindow

	dialect               Dialect
	hasFileDataHeader     bool
	hasSafeFileDataHeader bool

	decompress codec.Decompressor

	verifyGroup singleflight.Group
	mu          sync.Mutex
	tocValid    *bool
	fileValid   *bool
}

// Option configures Open.
type Option func(*Archive)

// WithDecompressor overrides the default DEFLATE decompressor used to read
// DEFLATE_BUFFER / DEFLATE_STREAM payloads.
func WithDecompressor(d codec.Decompressor) Option {
	return func(a *Archive) { a.decompress = d }
}

// Open parses an SGA v2 archive out of r, which must expose size bytes.
func Open(r io.ReaderAt, size int64, opts ...Option) (*Archive, error) {
	a := &Archive{stream: r, totalSize: size, decompress: codec.DefaultDecompress}
	for _, opt := range opts {
		opt(a)
	}

	full := newReadWindow(r, 0, size)

	var magic [MagicSize]byte
	if err := full.readAt(magic[:], 0); err != nil {
		return nil, xerrors.Errorf("reading magic: %w", err)
	}
	if magic != Magic {
		return nil, xerrors.Errorf("magic %q: %w", magic, ErrUnsupportedVersion)
	}

	major, err := readUint16(full, MagicSize)
	if err != nil {
		return nil, xerrors.Errorf("reading version: %w", err)
	}
	if major != FormatVersion.Major {
		return nil, xerrors.Errorf("version %d: %w", major, ErrUnsupportedVersion)
	}

	metaWindow, err := full.sub(MagicSize+VersionSize, MetaHeaderSize)
	if err != nil {
		return nil, xerrors.Errorf("meta header window: %w", err)
	}
	a.meta, err = readMetaHeader(metaWindow)
	if err != nil {
		return nil, xerrors.Errorf("reading meta header: %w", err)
	}

	a.tocWindow, err = full.sub(TOCOffset, int64(a.meta.TOCSize))
	if err != nil {
		return nil, xerrors.Errorf("toc window: %w", err)
	}
	dataLen := size - int64(a.meta.DataOffset)
	a.dataWindow, err = full.sub(int64(a.meta.DataOffset), dataLen)
	if err != nil {
		return nil, xerrors.Errorf("data window: %w", err)
	}
	if int64(a.meta.DataOffset) < TOCOffset+int64(a.meta.TOCSize) {
		return nil, xerrors.Errorf("data offset %d precedes end of toc: %w", a.meta.DataOffset, ErrOutOfBounds)
	}

	a.tocHeader, err = readTOCHeader(a.tocWindow)
	if err != nil {
		return nil, xerrors.Errorf("reading toc header: %w", err)
	}

	a.drives = driveArea{newArea(a.tocWindow, a.tocHeader.DriveOffset, a.tocHeader.DriveCount, driveRecordSize)}
	a.folders = folderArea{newArea(a.tocWindow, a.tocHeader.FolderOffset, a.tocHeader.FolderCount, folderRecordSize)}

	nameArea, err := a.tocWindow.sub(int64(a.tocHeader.NameOffset), int64(a.tocWindow.Len())-int64(a.tocHeader.NameOffset))
	if err != nil {
		return nil, xerrors.Errorf("name window: %w", err)
	}
	a.names = newNameWindow(nameArea)

	// Dialect detection (spec.md §4.E step 6).
	if a.tocHeader.FileCount == 0 {
		a.dialect = DialectUnknown
	} else {
		recordSize := (int64(a.tocHeader.NameOffset) - int64(a.tocHeader.FileOffset)) / int64(a.tocHeader.FileCount)
		a.dialect, err = DialectFromRecordSize(recordSize)
		if err != nil {
			return nil, err
		}
	}
	a.files = fileArea{newArea(a.tocWindow, a.tocHeader.FileOffset, a.tocHeader.FileCount, a.dialect.RecordSize()), a.dialect}

	expected := int64(a.tocHeader.FileCount) * dataHeaderSize
	for i := 0; i < a.files.Count(); i++ {
		f, err := a.files.File(i)
		if err != nil {
			return nil, err
		}
		expected += int64(f.CompressedSize)
	}
	a.hasFileDataHeader = expected <= dataLen
	a.hasSafeFileDataHeader = expected == dataLen

	return a, nil
}

// OpenFile is a convenience wrapper that opens the SGA v2 archive in r and
// also returns r as an io.Closer. The returned Archive borrows r; call
// Close on the returned closer to release it.
func OpenFile(r interface {
	io.ReaderAt
	io.Closer
}, size int64, opts ...Option) (*Archive, io.Closer, error) {
	a, err := Open(r, size, opts...)
	if err != nil {
		return nil, nil, err
	}
	return a, r, nil
}

func (a *Archive) ArchiveName() string            { return a.meta.ArchiveName }
func (a *Archive) Dialect() Dialect                { return a.dialect }
func (a *Archive) HasFileDataHeader() bool         { return a.hasFileDataHeader }
func (a *Archive) HasSafeFileDataHeader() bool     { return a.hasSafeFileDataHeader }
func (a *Archive) DriveCount() int                 { return a.drives.Count() }
func (a *Archive) Drive(i int) (DriveRecord, error) { return a.drives.Drive(i) }
func (a *Archive) FolderCount() int                { return a.folders.Count() }
func (a *Archive) Folder(i int) (FolderRecord, error) {
	return a.folders.Folder(i)
}
func (a *Archive) FileCount() int { return a.files.Count() }
func (a *Archive) FileRecord(i int) (FileRecord, error) {
	return a.files.File(i)
}
func (a *Archive) Name(offset uint32) (string, error) { return a.names.Lookup(offset) }

// fileHeaderWindow returns the 264-byte window preceding f's payload, and
// false if that span doesn't exist on disk at all (e.g. a data block packed
// without per-file headers, where DataOffset has no room before it for
// one) rather than merely holding garbage.
func (a *Archive) fileHeaderWindow(f FileRecord) (window, bool) {
	headerOff := int64(f.DataOffset) - dataHeaderSize
	w, err := a.dataWindow.sub(headerOff, dataHeaderSize)
	if err != nil {
		return window{}, false
	}
	return w, true
}

// ReadFile returns the valid-or-synthesized data header and the fully
// decompressed payload for the file record at data-block offset f.DataOffset.
func (a *Archive) ReadFile(f FileRecord, fallbackName string) (DataHeader, []byte, error) {
	payloadOff := int64(f.DataOffset)
	payloadWindow, err := a.dataWindow.sub(payloadOff, int64(f.CompressedSize))
	if err != nil {
		return DataHeader{}, nil, xerrors.Errorf("payload for %q: %w", fallbackName, err)
	}

	compressed, err := readBytes(payloadWindow, 0, int64(f.CompressedSize))
	if err != nil {
		return DataHeader{}, nil, err
	}

	var payload []byte
	switch f.StorageType() {
	case StorageStore:
		payload = compressed
	case StorageDeflateBuffer, StorageDeflateStream:
		payload = make([]byte, f.DecompressedSize)
		if err := a.decompress(payload, bytes.NewReader(compressed)); err != nil {
			return DataHeader{}, nil, xerrors.Errorf("decompressing %q: %w", fallbackName, err)
		}
	default:
		return DataHeader{}, nil, xerrors.Errorf("file %q has unknown storage type %d", fallbackName, f.StorageType())
	}

	var header DataHeader
	var valid bool
	if headerWindow, ok := a.fileHeaderWindow(f); ok {
		header, valid, err = readValidDataHeader(headerWindow)
		if err != nil {
			return DataHeader{}, nil, err
		}
	}
	if !valid {
		crc, err := crc32IEEE(bytes.NewReader(payload))
		if err != nil {
			return DataHeader{}, nil, err
		}
		log.Printf("sga: recovering missing/corrupt data header for %q", fallbackName)
		header = synthesizeDataHeader(fallbackName, crc, int32(time.Now().Unix()))
	}

	return header, payload, nil
}

// FileDataHeader returns just the data header for f, without allocating the
// full decompressed payload when the on-disk header is present and valid.
// A missing/corrupt header still requires decompressing the payload to
// synthesize a CRC32, so it falls back to ReadFile in that case.
func (a *Archive) FileDataHeader(f FileRecord, fallbackName string) (DataHeader, error) {
	if headerWindow, ok := a.fileHeaderWindow(f); ok {
		header, valid, err := readValidDataHeader(headerWindow)
		if err != nil {
			return DataHeader{}, err
		}
		if valid {
			return header, nil
		}
	}
	header, _, err := a.ReadFile(f, fallbackName)
	return header, err
}

// VerifyTOC reports whether the TOC MD5 recorded in the meta header matches
// the actual hash of the TOC span, prefixed by the TOC eigen salt. Results
// are cached and concurrent callers collapse into a single computation.
func (a *Archive) VerifyTOC() (bool, error) {
	a.mu.Lock()
	if a.tocValid != nil {
		v := *a.tocValid
		a.mu.Unlock()
		return v, nil
	}
	a.mu.Unlock()

	v, err, _ := a.verifyGroup.Do("toc", func() (interface{}, error) {
		r := io.NewSectionReader(a.stream, TOCOffset, int64(a.meta.TOCSize))
		got, err := md5WithEigen(eigenTOC, r)
		if err != nil {
			return nil, err
		}
		ok := got == a.meta.TOCMD5
		a.mu.Lock()
		a.tocValid = &ok
		a.mu.Unlock()
		return ok, nil
	})
	if err != nil {
		return false, err
	}
	return v.(bool), nil
}

// VerifyFile reports whether the File MD5 recorded in the meta header
// matches the hash of [toc_offset:EOF], prefixed by the file eigen salt.
func (a *Archive) VerifyFile() (bool, error) {
	a.mu.Lock()
	if a.fileValid != nil {
		v := *a.fileValid
		a.mu.Unlock()
		return v, nil
	}
	a.mu.Unlock()

	v, err, _ := a.verifyGroup.Do("file", func() (interface{}, error) {
		r := io.NewSectionReader(a.stream, TOCOffset, a.totalSize-TOCOffset)
		got, err := md5WithEigen(eigenFile, r)
		if err != nil {
			return nil, err
		}
		ok := got == a.meta.FileMD5
		a.mu.Lock()
		a.fileValid = &ok
		a.mu.Unlock()
		return ok, nil
	})
	if err != nil {
		return false, err
	}
	return v.(bool), nil
}
