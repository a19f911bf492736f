// Package sgapack serializes a virtual filesystem snapshot back into an
// SGA v2 byte stream: fresh indices, a deduplicated name pool, recomputed
// data headers and CRC32s, and back-filled integrity MD5s. Grounded on
// internal/squashfs/writer.go's Writer.Flush (collect everything, compute
// final layout, write once) and wired to github.com/orcaman/writerseeker
// for the in-memory sink and github.com/google/renameio for the atomic
// on-disk write.
package sgapack

import (
	"bytes"
	"io"

	"github.com/google/renameio"
	"github.com/orcaman/writerseeker"
	"golang.org/x/xerrors"

	"github.com/MAK-Relic-Tool/Relic-Tool-SGA-V2/internal/sga"
	"github.com/MAK-Relic-Tool/Relic-Tool-SGA-V2/internal/sga/codec"
	"github.com/MAK-Relic-Tool/Relic-Tool-SGA-V2/internal/sgafs"
)

// Options configures a pack run, mirroring the packer configuration
// surface from spec.md §6.
type Options struct {
	// ArchiveName is written into the meta header's name slot.
	ArchiveName string
	// DefaultStorage, when non-nil, overrides every file's own storage
	// type with one uniform codec choice — e.g. re-packing an archive
	// with everything forced to DEFLATE_BUFFER. Left nil, each file keeps
	// the storage type already recorded on its VFS node.
	DefaultStorage *sga.StorageType
	// Compressor overrides the codec used for any file not stored as
	// STORE. Defaults to codec.DefaultCompress (raw DEFLATE).
	Compressor codec.Compressor
}

func (o Options) compressor() codec.Compressor {
	if o.Compressor != nil {
		return o.Compressor
	}
	return codec.DefaultCompress
}

func (o Options) storageFor(f *sgafs.FileSnapshot) sga.StorageType {
	if o.DefaultStorage != nil {
		return *o.DefaultStorage
	}
	return f.StorageType
}

// sliceWriterAt is a fixed-size in-memory io.WriterAt. The packer computes
// every offset up front (collect, assign, measure compressed sizes) before
// writing a single byte, so the final size is known and the buffer never
// needs to grow.
type sliceWriterAt struct{ buf []byte }

func (s *sliceWriterAt) WriteAt(p []byte, off int64) (int, error) {
	if off < 0 || int(off)+len(p) > len(s.buf) {
		return 0, xerrors.Errorf("packer: write [%d:%d) exceeds buffer of size %d", off, int(off)+len(p), len(s.buf))
	}
	copy(s.buf[off:], p)
	return len(p), nil
}

type emittedFile struct {
	header         sga.DataHeader
	payload        []byte
	dataOffset     uint32 // relative to the start of the data block
	compressedSize uint32
	storageFlags   uint32
}

// Pack serializes drives into a fresh SGA v2 byte stream. The packer never
// exposes a partially-written archive: it builds the entire stream into a
// buffer, computes both integrity MD5s over the finished bytes, and only
// then hands back the sink — any error before that point returns nothing.
func Pack(drives []sgafs.DriveSnapshot, opts Options) (*writerseeker.WriterSeeker, error) {
	p := buildPlan(drives)

	tocSize := int64(sga.TOCHeaderSize) +
		int64(len(p.drives))*int64(sga.DriveRecordSize) +
		int64(len(p.folders))*int64(sga.FolderRecordSize) +
		int64(len(p.files))*sga.DialectDawnOfWar.RecordSize() +
		p.names.Len()

	tocOffset := int64(sga.TOCOffset)
	dataOffset := tocOffset + tocSize

	emitted := make([]emittedFile, len(p.files))
	var dataCursor int64
	for i, f := range p.files {
		storageType := opts.storageFor(f)

		var onDisk []byte
		if storageType == sga.StorageStore {
			onDisk = f.Payload
		} else {
			var buf bytes.Buffer
			if _, err := opts.compressor()(&buf, f.Payload); err != nil {
				return nil, xerrors.Errorf("compressing %q: %w", f.Name, err)
			}
			onDisk = buf.Bytes()
		}

		crc, err := sga.CRC32(bytes.NewReader(f.Payload))
		if err != nil {
			return nil, xerrors.Errorf("crc32 of %q: %w", f.Name, err)
		}

		payloadOffset := dataCursor + 264
		emitted[i] = emittedFile{
			header:         sga.DataHeader{Name: f.Name, Modified: int32(f.Modified.Unix()), CRC32: crc},
			payload:        onDisk,
			dataOffset:     uint32(payloadOffset),
			compressedSize: uint32(len(onDisk)),
			storageFlags:   uint32(storageType) << 4,
		}
		dataCursor = payloadOffset + int64(len(onDisk))
	}

	finalSize := dataOffset + dataCursor
	sink := &sliceWriterAt{buf: make([]byte, finalSize)}

	if err := sga.EncodeMagicAndVersion(sink); err != nil {
		return nil, err
	}

	meta := sga.MetaHeader{ArchiveName: opts.ArchiveName, TOCSize: uint32(tocSize), DataOffset: uint32(dataOffset)}
	if err := sga.EncodeMetaHeader(sink, meta); err != nil {
		return nil, err
	}

	driveOffset := int64(sga.TOCHeaderSize)
	folderOffset := driveOffset + int64(len(p.drives))*int64(sga.DriveRecordSize)
	fileOffset := folderOffset + int64(len(p.folders))*int64(sga.FolderRecordSize)
	nameOffset := fileOffset + int64(len(p.files))*sga.DialectDawnOfWar.RecordSize()

	tocHeader := sga.TOCHeader{
		DriveOffset:  uint32(driveOffset),
		DriveCount:   uint16(len(p.drives)),
		FolderOffset: uint32(folderOffset),
		FolderCount:  uint16(len(p.folders)),
		FileOffset:   uint32(fileOffset),
		FileCount:    uint16(len(p.files)),
		NameOffset:   uint32(nameOffset),
		NameCount:    uint16(p.names.Count()),
	}
	if err := sga.EncodeTOCHeader(sink, tocOffset, tocHeader); err != nil {
		return nil, err
	}

	for i, d := range p.drives {
		rec := sga.DriveRecord{
			Alias: d.alias, Name: d.name,
			FirstFolder: d.firstFolder, LastFolder: d.lastFolder,
			FirstFile: d.firstFile, LastFile: d.lastFile,
			RootFolder: d.rootFolder,
		}
		if err := sga.EncodeDriveRecord(sink, tocOffset+driveOffset+int64(i)*int64(sga.DriveRecordSize), rec); err != nil {
			return nil, err
		}
	}

	for i, slot := range p.folderSlots {
		rec := sga.FolderRecord{
			NameOffset:     p.folderNames[i],
			FirstSubfolder: slot.firstSub, LastSubfolder: slot.lastSub,
			FirstFile: slot.firstFile, LastFile: slot.lastFile,
		}
		if err := sga.EncodeFolderRecord(sink, tocOffset+folderOffset+int64(i)*int64(sga.FolderRecordSize), rec); err != nil {
			return nil, err
		}
	}

	for i, ef := range emitted {
		rec := sga.FileRecord{
			NameOffset: p.fileNames[i], Flags: ef.storageFlags,
			DataOffset: ef.dataOffset, CompressedSize: ef.compressedSize,
			DecompressedSize: uint32(len(p.files[i].Payload)),
		}
		if err := sga.EncodeFileRecord(sink, tocOffset+fileOffset+int64(i)*sga.DialectDawnOfWar.RecordSize(), rec); err != nil {
			return nil, err
		}
	}

	if _, err := sink.WriteAt(p.names.Bytes(), tocOffset+nameOffset); err != nil {
		return nil, err
	}

	for _, ef := range emitted {
		headerAbs := dataOffset + int64(ef.dataOffset) - 264
		if err := sga.EncodeDataHeader(sink, headerAbs, ef.header); err != nil {
			return nil, err
		}
		if _, err := sink.WriteAt(ef.payload, dataOffset+int64(ef.dataOffset)); err != nil {
			return nil, err
		}
	}

	tocMD5, err := sga.HashWithEigen(sga.EigenTOC, bytes.NewReader(sink.buf[tocOffset:tocOffset+tocSize]))
	if err != nil {
		return nil, err
	}
	fileMD5, err := sga.HashWithEigen(sga.EigenFile, bytes.NewReader(sink.buf[tocOffset:]))
	if err != nil {
		return nil, err
	}
	meta.TOCMD5 = tocMD5
	meta.FileMD5 = fileMD5
	if err := sga.EncodeMetaHeader(sink, meta); err != nil {
		return nil, err
	}

	var out writerseeker.WriterSeeker
	if _, err := out.Write(sink.buf); err != nil {
		return nil, xerrors.Errorf("copying into sink: %w", err)
	}
	if _, err := out.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	return &out, nil
}

// PackToFile packs drives and atomically replaces path with the result:
// the new archive is written to a temporary file in the same directory
// and renamed into place, so readers never observe a half-written file.
func PackToFile(drives []sgafs.DriveSnapshot, opts Options, path string) (err error) {
	ws, err := Pack(drives, opts)
	if err != nil {
		return err
	}

	t, err := renameio.TempFile("", path)
	if err != nil {
		return xerrors.Errorf("creating temp file for %q: %w", path, err)
	}
	defer func() {
		if cerr := t.Cleanup(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	if _, err := io.Copy(t, ws.BytesReader()); err != nil {
		return xerrors.Errorf("writing %q: %w", path, err)
	}
	if err := t.CloseAtomicallyReplace(); err != nil {
		return xerrors.Errorf("finalizing %q: %w", path, err)
	}
	return nil
}
