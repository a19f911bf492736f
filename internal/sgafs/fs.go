package sgafs

import (
	"errors"
	"sync"

	"golang.org/x/xerrors"

	"github.com/MAK-Relic-Tool/Relic-Tool-SGA-V2/internal/sga"
	"github.com/MAK-Relic-Tool/Relic-Tool-SGA-V2/internal/sgapath"
)

// drive is a mount within the VFS: an alias, a display name, and the
// folder node serving as its root.
type drive struct {
	alias string
	name  string
	root  *folderNode
}

// FS is the virtual filesystem projected over a parsed archive: drives at
// the root, each with a folder tree underneath that starts out entirely
// lazy. Grounded on internal/squashfs/reader.go's Reader (the archive-wide
// handle other operations hang off) generalized from one inode tree to a
// set of aliased drive trees.
type FS struct {
	archive *sga.Archive

	mu     sync.Mutex
	drives map[string]*drive
	order  []string
}

// NewEmpty builds a VFS with no archive behind it at all: every drive
// created on it is materialized from the start. Used both by callers
// building a brand new archive from scratch and by tests that only
// exercise the materialized-side operations.
func NewEmpty() *FS {
	return &FS{drives: make(map[string]*drive)}
}

// New builds a VFS over archive: every drive, folder and file record is
// wrapped lazily; nothing is decompressed until read.
func New(archive *sga.Archive) (*FS, error) {
	folders, files, err := buildArena(archive)
	if err != nil {
		return nil, err
	}

	fs := &FS{archive: archive, drives: make(map[string]*drive)}
	for i := 0; i < archive.DriveCount(); i++ {
		rec, err := archive.Drive(i)
		if err != nil {
			return nil, err
		}
		if int(rec.RootFolder) >= len(folders) {
			return nil, xerrors.Errorf("drive %q root folder %d: %w", rec.Alias, rec.RootFolder, sga.ErrOutOfBounds)
		}
		fs.drives[rec.Alias] = &drive{alias: rec.Alias, name: rec.Name, root: folders[rec.RootFolder]}
		fs.order = append(fs.order, rec.Alias)
	}
	return fs, nil
}

// defaultDrive implements the "no alias given" rule for creating nodes:
// exactly one drive exists, or the operation fails.
func (fs *FS) defaultDrive() (*drive, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	switch len(fs.order) {
	case 0:
		return nil, sga.ErrOperationFailed
	case 1:
		return fs.drives[fs.order[0]], nil
	default:
		return nil, sga.ErrInvalidPath
	}
}

// resolveFrom descends parts under root, name-segment by name-segment.
// Every intermediate segment must land on a folder; the final segment may
// be either kind.
func (fs *FS) resolveFrom(root *folderNode, parts []string) (*folderNode, *fileNode, error) {
	cur := root
	for i, part := range parts {
		children, err := cur.Children()
		if err != nil {
			return nil, nil, err
		}
		c, ok := children[part]
		if !ok {
			return nil, nil, sga.ErrResourceNotFound
		}
		last := i == len(parts)-1
		switch {
		case c.folder != nil:
			cur = c.folder
			if last {
				return cur, nil, nil
			}
		case last:
			return nil, c.file, nil
		default:
			return nil, nil, sga.ErrDirectoryExpected
		}
	}
	return cur, nil, nil
}

// resolve implements getnode: if p names an alias, start at that drive's
// root; otherwise try every drive in insertion order and return the first
// one under which the path resolves.
func (fs *FS) resolve(p sgapath.Path) (*folderNode, *fileNode, error) {
	if p.Alias != "" {
		fs.mu.Lock()
		d, ok := fs.drives[p.Alias]
		fs.mu.Unlock()
		if !ok {
			return nil, nil, sga.ErrResourceNotFound
		}
		if p.IsRoot() {
			return d.root, nil, nil
		}
		return fs.resolveFrom(d.root, p.Parts)
	}

	fs.mu.Lock()
	order := append([]string(nil), fs.order...)
	fs.mu.Unlock()

	lastErr := error(sga.ErrResourceNotFound)
	for _, alias := range order {
		fs.mu.Lock()
		d := fs.drives[alias]
		fs.mu.Unlock()
		if p.IsRoot() {
			return d.root, nil, nil
		}
		folder, file, err := fs.resolveFrom(d.root, p.Parts)
		if err == nil {
			return folder, file, nil
		}
		lastErr = err
	}
	return nil, nil, lastErr
}

// ListDir yields the child names of the folder at raw.
func (fs *FS) ListDir(raw string) ([]string, error) {
	p, err := sgapath.Parse(raw)
	if err != nil {
		return nil, err
	}
	folder, file, err := fs.resolve(p)
	if err != nil {
		return nil, err
	}
	if file != nil {
		return nil, sga.ErrDirectoryExpected
	}
	children, err := folder.Children()
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(children))
	for name := range children {
		names = append(names, name)
	}
	return names, nil
}

// MakeDir creates an empty folder (or, for an "alias:/" path, an empty
// drive). recreate allows re-creating an already-existing folder/drive in
// place instead of failing.
func (fs *FS) MakeDir(raw string, recreate bool) error {
	p, err := sgapath.Parse(raw)
	if err != nil {
		return err
	}

	if p.IsRoot() {
		if p.Alias == "" {
			return xerrors.Errorf("creating a drive requires an alias: %w", sga.ErrInvalidPath)
		}
		return fs.createDrive(p.Alias, recreate)
	}

	parentFolder, err := fs.resolveParentFolder(p)
	if err != nil {
		return err
	}
	mat, err := parentFolder.promote()
	if err != nil {
		return err
	}
	name := p.Base()
	if err := mat.addFolder(name, newLazyLessFolderNode(name), recreate); err != nil {
		return err
	}
	return nil
}

// MakeDirs is MakeDir extended to create missing intermediate folders.
func (fs *FS) MakeDirs(raw string, recreate bool) error {
	p, err := sgapath.Parse(raw)
	if err != nil {
		return err
	}
	if p.IsRoot() {
		return fs.MakeDir(raw, recreate)
	}

	var root *folderNode
	if p.Alias == "" {
		d, err := fs.defaultDrive()
		if err != nil {
			return err
		}
		root = d.root
	} else {
		fs.mu.Lock()
		d, ok := fs.drives[p.Alias]
		fs.mu.Unlock()
		if !ok {
			// recreate mirrors makedirs(..., recreate=True) delegating to
			// makedir(alias_path, recreate=True), whose alias+root branch
			// creates the drive unconditionally; without recreate, an
			// unknown alias is still resolved the same way opendir would
			// resolve it: not found.
			if !recreate {
				return sga.ErrResourceNotFound
			}
			if err := fs.createDrive(p.Alias, true); err != nil {
				return err
			}
			fs.mu.Lock()
			d = fs.drives[p.Alias]
			fs.mu.Unlock()
		}
		root = d.root
	}

	cur := root
	for i, part := range p.Parts {
		last := i == len(p.Parts)-1
		mat, err := cur.promote()
		if err != nil {
			return err
		}
		if existing, ok := mat.folders[part]; ok {
			if last && !recreate {
				return sga.ErrDirectoryExists
			}
			if last {
				mat.folders[part] = newLazyLessFolderNode(part)
				return nil
			}
			cur = existing
			continue
		}
		if _, ok := mat.files[part]; ok {
			return sga.ErrFileExists
		}
		next := newLazyLessFolderNode(part)
		mat.folders[part] = next
		cur = next
	}
	return nil
}

// resolveParentFolder resolves the folder that should contain p's final
// segment, honoring the "no alias, exactly one drive" default.
func (fs *FS) resolveParentFolder(p sgapath.Path) (*folderNode, error) {
	parent := p.Dir()
	if p.Alias == "" {
		d, err := fs.defaultDrive()
		if err != nil {
			return nil, err
		}
		folder, file, err := fs.resolveFrom(d.root, parent.Parts)
		if err != nil {
			return nil, err
		}
		if file != nil {
			return nil, sga.ErrDirectoryExpected
		}
		return folder, nil
	}
	folder, file, err := fs.resolve(sgapath.Path{Alias: p.Alias, Parts: parent.Parts})
	if err != nil {
		return nil, err
	}
	if file != nil {
		return nil, sga.ErrDirectoryExpected
	}
	return folder, nil
}

// createDrive adds a new, empty, materialized drive under alias, using
// alias as its display name too (the makedir path syntax carries no
// separate display name).
func (fs *FS) createDrive(alias string, recreate bool) error {
	return fs.CreateDrive(alias, alias, recreate)
}

// CreateDrive adds a new, empty, materialized drive with an alias and
// display name that may differ, for callers building an archive from
// scratch with API access beyond the path syntax.
func (fs *FS) CreateDrive(alias, name string, recreate bool) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if _, exists := fs.drives[alias]; exists {
		if !recreate {
			return sga.ErrDriveExists
		}
	} else {
		fs.order = append(fs.order, alias)
	}
	fs.drives[alias] = &drive{alias: alias, name: name, root: newLazyLessFolderNode("")}
	return nil
}

// OpenBin opens a binary handle on the file at raw. In a write/append mode,
// a missing file is created (with an empty, STORE-default payload) rather
// than failing.
func (fs *FS) OpenBin(raw string, mode OpenMode) (*FileHandle, error) {
	p, err := sgapath.Parse(raw)
	if err != nil {
		return nil, err
	}

	_, file, err := fs.resolve(p)
	if err == nil {
		if file == nil {
			return nil, sga.ErrFileExpected
		}
		return file.openBin(mode)
	}
	if !errors.Is(err, sga.ErrResourceNotFound) || !mode.writing() {
		return nil, err
	}

	parentFolder, err := fs.resolveParentFolder(p)
	if err != nil {
		return nil, err
	}
	mat, err := parentFolder.promote()
	if err != nil {
		return nil, err
	}
	name := p.Base()
	newFile := newLazyLessFileNode(name)
	if err := mat.addFile(name, newFile); err != nil {
		return nil, err
	}
	return newFile.openBin(mode)
}

// Remove deletes the file at raw from its materialized parent.
func (fs *FS) Remove(raw string) error {
	p, err := sgapath.Parse(raw)
	if err != nil {
		return err
	}
	if p.IsRoot() {
		return sga.ErrRemoveRoot
	}
	parentFolder, err := fs.resolveParentFolder(p)
	if err != nil {
		return err
	}
	mat, err := parentFolder.promote()
	if err != nil {
		return err
	}
	name := p.Base()
	if _, ok := mat.files[name]; !ok {
		return sga.ErrResourceNotFound
	}
	delete(mat.files, name)
	return nil
}

// RemoveDir deletes the folder at raw from its materialized parent.
func (fs *FS) RemoveDir(raw string) error {
	p, err := sgapath.Parse(raw)
	if err != nil {
		return err
	}
	if p.IsRoot() {
		return sga.ErrRemoveRoot
	}
	parentFolder, err := fs.resolveParentFolder(p)
	if err != nil {
		return err
	}
	mat, err := parentFolder.promote()
	if err != nil {
		return err
	}
	name := p.Base()
	if _, ok := mat.folders[name]; !ok {
		return sga.ErrResourceNotFound
	}
	delete(mat.folders, name)
	return nil
}

// GetInfo returns the requested namespaces of metadata for the node at raw.
func (fs *FS) GetInfo(raw string, ns Namespace) (Info, error) {
	p, err := sgapath.Parse(raw)
	if err != nil {
		return Info{}, err
	}
	folder, file, err := fs.resolve(p)
	if err != nil {
		return Info{}, err
	}
	if file != nil {
		return file.getInfo(ns)
	}
	return folderInfo(folder)
}

// SetInfo updates the file at raw's modified time, CRC32 and/or storage
// type, promoting it first.
func (fs *FS) SetInfo(raw string, opts SetInfo) error {
	p, err := sgapath.Parse(raw)
	if err != nil {
		return err
	}
	_, file, err := fs.resolve(p)
	if err != nil {
		return err
	}
	if file == nil {
		return sga.ErrFileExpected
	}
	return file.setInfo(opts)
}

// VerifyCRC32 recomputes the file's CRC32 and compares it against the
// stored value. If raiseOnMismatch is set, a mismatch is returned as
// Crc32Mismatch instead of a bool.
func (fs *FS) VerifyCRC32(raw string, raiseOnMismatch bool) (bool, error) {
	p, err := sgapath.Parse(raw)
	if err != nil {
		return false, err
	}
	_, file, err := fs.resolve(p)
	if err != nil {
		return false, err
	}
	if file == nil {
		return false, sga.ErrFileExpected
	}
	if raiseOnMismatch {
		if err := file.verifyCRC32OrError(); err != nil {
			return false, err
		}
		return true, nil
	}
	ok, _, err := file.verifyCRC32()
	return ok, err
}

// newLazyLessFolderNode constructs an already-materialized, empty folder
// node — the shape every freshly created folder or drive root starts in.
func newLazyLessFolderNode(name string) *folderNode {
	return &folderNode{materialized: newMaterializedFolder(name)}
}

// newLazyLessFileNode constructs an already-materialized, empty file node
// with STORE as its default storage type — the shape a freshly created
// file starts in before anything is written to it.
func newLazyLessFileNode(name string) *fileNode {
	return &fileNode{materialized: newMaterializedFile(name, sga.StorageStore)}
}
