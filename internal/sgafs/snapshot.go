package sgafs

import (
	"sort"
	"time"

	"github.com/MAK-Relic-Tool/Relic-Tool-SGA-V2/internal/sga"
)

// FileSnapshot is a packer-facing, fully-resolved view of one file: its
// entire decompressed payload in hand, ready to be recompressed and
// re-emitted.
type FileSnapshot struct {
	Name        string
	StorageType sga.StorageType
	Payload     []byte
	Modified    time.Time
}

// FolderSnapshot is a packer-facing, fully-resolved view of one folder and
// its subtree. Children are sorted by name for a serialization that does
// not depend on map iteration order.
type FolderSnapshot struct {
	Name    string
	Folders []*FolderSnapshot
	Files   []*FileSnapshot
}

// DriveSnapshot pairs a drive's alias/name with its folder subtree.
type DriveSnapshot struct {
	Alias string
	Name  string
	Root  *FolderSnapshot
}

// Snapshot walks the whole VFS — promoting every lazy file it touches along
// the way; folders are read through Children and are not promoted — and
// returns an immutable tree the packer can serialize independently of this
// FS and its underlying archive.
func (fs *FS) Snapshot() ([]DriveSnapshot, error) {
	fs.mu.Lock()
	order := append([]string(nil), fs.order...)
	drives := make(map[string]*drive, len(fs.drives))
	for k, v := range fs.drives {
		drives[k] = v
	}
	fs.mu.Unlock()

	out := make([]DriveSnapshot, 0, len(order))
	for _, alias := range order {
		d := drives[alias]
		root, err := snapshotFolder(d.root)
		if err != nil {
			return nil, err
		}
		out = append(out, DriveSnapshot{Alias: d.alias, Name: d.name, Root: root})
	}
	return out, nil
}

func snapshotFolder(fn *folderNode) (*FolderSnapshot, error) {
	name, err := fn.Name()
	if err != nil {
		return nil, err
	}
	children, err := fn.Children()
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(children))
	for n := range children {
		names = append(names, n)
	}
	sort.Strings(names)

	out := &FolderSnapshot{Name: name}
	for _, n := range names {
		c := children[n]
		switch {
		case c.folder != nil:
			sub, err := snapshotFolder(c.folder)
			if err != nil {
				return nil, err
			}
			out.Folders = append(out.Folders, sub)
		case c.file != nil:
			fileSnap, err := snapshotFile(c.file)
			if err != nil {
				return nil, err
			}
			out.Files = append(out.Files, fileSnap)
		}
	}
	return out, nil
}

func snapshotFile(fn *fileNode) (*FileSnapshot, error) {
	m, err := fn.promote()
	if err != nil {
		return nil, err
	}
	fn.mu.Lock()
	defer fn.mu.Unlock()
	return &FileSnapshot{
		Name:        m.name,
		StorageType: m.storageType,
		Payload:     m.payload,
		Modified:    m.modified,
	}, nil
}
