package sga

// area is a TOC sub-area: given (base, count) from the TOC header and a
// known record size, it exposes record i as a fixed-size sub-window.
// Iteration is index-based and stable, per spec.md §4.D.
type area struct {
	toc        window
	offset     int64
	count      int
	recordSize int64
}

func newArea(toc window, offset uint32, count uint16, recordSize int64) area {
	return area{toc: toc, offset: int64(offset), count: int(count), recordSize: recordSize}
}

func (a area) Count() int { return a.count }

func (a area) record(i int) (window, error) {
	if i < 0 || i >= a.count {
		return window{}, ErrOutOfBounds
	}
	return a.toc.sub(a.offset+int64(i)*a.recordSize, a.recordSize)
}

// driveArea, folderArea and fileArea are one concrete area type per TOC
// record kind rather than a generic boxed record, matching how
// internal/squashfs/reader.go hand-writes one reader per inode kind instead
// of a generic record reader.
type driveArea struct{ area }

func (a driveArea) Drive(i int) (DriveRecord, error) {
	w, err := a.record(i)
	if err != nil {
		return DriveRecord{}, err
	}
	return readDriveRecord(w)
}

type folderArea struct{ area }

func (a folderArea) Folder(i int) (FolderRecord, error) {
	w, err := a.record(i)
	if err != nil {
		return FolderRecord{}, err
	}
	return readFolderRecord(w)
}

type fileArea struct {
	area
	dialect Dialect
}

func (a fileArea) File(i int) (FileRecord, error) {
	w, err := a.record(i)
	if err != nil {
		return FileRecord{}, err
	}
	return readFileRecord(w, a.dialect)
}
