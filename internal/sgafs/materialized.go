package sgafs

import (
	"time"

	"github.com/MAK-Relic-Tool/Relic-Tool-SGA-V2/internal/sga"
)

// materializedFolder owns its name and two maps, folders by name and files
// by name. Adding a child checks both maps so a folder and a file can never
// collide on the same name; a folder child always goes into folders, a file
// child always into files — never the other map.
type materializedFolder struct {
	name     string
	modified time.Time
	folders  map[string]*folderNode
	files    map[string]*fileNode
}

func newMaterializedFolder(name string) *materializedFolder {
	return &materializedFolder{
		name:    name,
		folders: make(map[string]*folderNode),
		files:   make(map[string]*fileNode),
	}
}

func (m *materializedFolder) children() map[string]child {
	out := make(map[string]child, len(m.folders)+len(m.files))
	for name, fn := range m.folders {
		out[name] = child{folder: fn}
	}
	for name, fn := range m.files {
		out[name] = child{file: fn}
	}
	return out
}

// addFolder inserts a folder child, failing if name is already taken by
// either a file or another folder (unless recreate allows replacing an
// existing folder).
func (m *materializedFolder) addFolder(name string, fn *folderNode, recreate bool) error {
	if _, exists := m.files[name]; exists {
		return sga.ErrFileExists
	}
	if _, exists := m.folders[name]; exists {
		if !recreate {
			return sga.ErrDirectoryExists
		}
	}
	m.folders[name] = fn
	return nil
}

// addFile inserts a file child, failing if name is already taken.
func (m *materializedFolder) addFile(name string, fn *fileNode) error {
	if _, exists := m.files[name]; exists {
		return sga.ErrFileExists
	}
	if _, exists := m.folders[name]; exists {
		return sga.ErrDirectoryExists
	}
	m.files[name] = fn
	return nil
}

// materializedFile owns its payload in decompressed form, always, so every
// write, CRC32 recomputation and storage-type change operates on plain
// bytes without regard to how the file was originally stored.
type materializedFile struct {
	name        string
	storageType sga.StorageType
	payload     []byte
	modified    time.Time
	crc32       uint32
	crc32Valid  bool
}

func newMaterializedFile(name string, storageType sga.StorageType) *materializedFile {
	return &materializedFile{name: name, storageType: storageType, modified: time.Now().UTC()}
}
