package sgafs

import (
	"sync"

	"golang.org/x/xerrors"

	"github.com/MAK-Relic-Tool/Relic-Tool-SGA-V2/internal/sga"
)

// lazyFolder wraps a TOC folder record. Its children are resolved once,
// memoized, by slicing the archive-wide folder/file arenas with the
// record's half-open ranges and keying the result by decoded name, with
// each entry's own kind (folder or file) preserved in the single map.
type lazyFolder struct {
	name    string
	record  sga.FolderRecord
	archive *sga.Archive

	allFolders []*folderNode
	allFiles   []*fileNode

	once      sync.Once
	childMap  map[string]child
	err       error
}

func (lf *lazyFolder) children() (map[string]child, error) {
	lf.once.Do(func() {
		m := make(map[string]child, int(lf.record.LastSubfolder-lf.record.FirstSubfolder)+int(lf.record.LastFile-lf.record.FirstFile))

		for i := int(lf.record.FirstSubfolder); i < int(lf.record.LastSubfolder); i++ {
			if i < 0 || i >= len(lf.allFolders) {
				lf.err = xerrors.Errorf("folder %q subfolder index %d: %w", lf.name, i, sga.ErrOutOfBounds)
				return
			}
			fn := lf.allFolders[i]
			name, err := fn.Name()
			if err != nil {
				lf.err = err
				return
			}
			m[name] = child{folder: fn}
		}

		for i := int(lf.record.FirstFile); i < int(lf.record.LastFile); i++ {
			if i < 0 || i >= len(lf.allFiles) {
				lf.err = xerrors.Errorf("folder %q file index %d: %w", lf.name, i, sga.ErrOutOfBounds)
				return
			}
			fn := lf.allFiles[i]
			m[fn.Name()] = child{file: fn}
		}

		lf.childMap = m
	})
	return lf.childMap, lf.err
}

// lazyFile wraps a TOC file record; it is read-only until promoted.
type lazyFile struct {
	name    string
	record  sga.FileRecord
	archive *sga.Archive
}

// buildArena wraps every folder and file record in the archive into a
// lazyFolder/lazyFile node, indexed exactly as the TOC indexes them, so
// that folder records' [first,last) ranges can slice these arrays
// directly. Grounded on the design note's "append-only vector of nodes
// keyed by u16 indices matching the on-disk indexing".
func buildArena(archive *sga.Archive) ([]*folderNode, []*fileNode, error) {
	folders := make([]*folderNode, archive.FolderCount())
	files := make([]*fileNode, archive.FileCount())

	for i := range files {
		rec, err := archive.FileRecord(i)
		if err != nil {
			return nil, nil, err
		}
		name, err := archive.Name(rec.NameOffset)
		if err != nil {
			return nil, nil, err
		}
		files[i] = newLazyFileNode(&lazyFile{name: name, record: rec, archive: archive})
	}

	for i := range folders {
		rec, err := archive.Folder(i)
		if err != nil {
			return nil, nil, err
		}
		name, err := archive.Name(rec.NameOffset)
		if err != nil {
			return nil, nil, err
		}
		folders[i] = newLazyFolderNode(&lazyFolder{
			name: name, record: rec, archive: archive,
			allFolders: folders, allFiles: files,
		})
	}

	return folders, files, nil
}
