// Package sgafs projects a parsed SGA v2 archive as a path-addressable
// virtual filesystem: drives at the root, folders and files underneath,
// each node existing in lazy (TOC-backed, read-only) or materialized
// (in-memory, mutable) form with one-way promotion between them.
//
// Grounded on internal/squashfs/reader.go's inode tree (Readdir, Stat,
// FileInfo) for the read shape, and on cmd/distri/internal/fuse/fuse.go's
// FileNotFoundError idiom for surfacing filesystem-flavored errors.
package sgafs

import (
	"sync"
	"time"

	"github.com/MAK-Relic-Tool/Relic-Tool-SGA-V2/internal/sga"
)

// child is exactly one of folder or file: the combined by-name entry a
// parent folder (lazy or materialized) keys its children under.
type child struct {
	folder *folderNode
	file   *fileNode
}

// folderNode is the tagged Lazy/Materialized union for a folder, per the
// design note: a single wrapper type with one live backing at a time,
// guarded by a plain (non-reentrant) mutex. Promotion locks and unlocks mu
// itself; callers never hold mu across a call to promote.
type folderNode struct {
	mu           sync.Mutex
	lazy         *lazyFolder
	materialized *materializedFolder
}

func newLazyFolderNode(lf *lazyFolder) *folderNode {
	return &folderNode{lazy: lf}
}

// Name returns the folder's name, valid regardless of representation.
func (fn *folderNode) Name() (string, error) {
	fn.mu.Lock()
	defer fn.mu.Unlock()
	if fn.materialized != nil {
		return fn.materialized.name, nil
	}
	return fn.lazy.name, nil
}

// Children resolves the folder's child set, keyed by name, without
// promoting either the folder or its children.
func (fn *folderNode) Children() (map[string]child, error) {
	fn.mu.Lock()
	lazy := fn.lazy
	materialized := fn.materialized
	fn.mu.Unlock()

	if materialized != nil {
		return materialized.children(), nil
	}
	return lazy.children()
}

// promote snapshots the folder's current (still-lazy) children into a
// materialized folder. Idempotent: a folder already materialized returns
// its existing backing unchanged.
func (fn *folderNode) promote() (*materializedFolder, error) {
	fn.mu.Lock()
	defer fn.mu.Unlock()

	if fn.materialized != nil {
		return fn.materialized, nil
	}

	children, err := fn.lazy.children()
	if err != nil {
		return nil, err
	}
	m := newMaterializedFolder(fn.lazy.name)
	for name, c := range children {
		switch {
		case c.folder != nil:
			m.folders[name] = c.folder
		case c.file != nil:
			m.files[name] = c.file
		}
	}
	fn.materialized = m
	fn.lazy = nil
	return m, nil
}

// fileNode is the tagged Lazy/Materialized union for a file.
type fileNode struct {
	mu           sync.Mutex
	lazy         *lazyFile
	materialized *materializedFile
}

func newLazyFileNode(lf *lazyFile) *fileNode {
	return &fileNode{lazy: lf}
}

func (fn *fileNode) Name() string {
	fn.mu.Lock()
	defer fn.mu.Unlock()
	if fn.materialized != nil {
		return fn.materialized.name
	}
	return fn.lazy.name
}

// promote reads the file's entire decompressed payload and snapshots its
// metadata into a materialized file. Idempotent.
func (fn *fileNode) promote() (*materializedFile, error) {
	fn.mu.Lock()
	defer fn.mu.Unlock()

	if fn.materialized != nil {
		return fn.materialized, nil
	}

	header, payload, err := fn.lazy.archive.ReadFile(fn.lazy.record, fn.lazy.name)
	if err != nil {
		return nil, err
	}
	m := &materializedFile{
		name:        fn.lazy.name,
		storageType: fn.lazy.record.StorageType(),
		payload:     payload,
		modified:    time.Unix(int64(header.Modified), 0).UTC(),
		crc32:       header.CRC32,
		crc32Valid:  true,
	}
	fn.materialized = m
	fn.lazy = nil
	return m, nil
}

// Info describes a node's metadata, split into namespaces the caller opts
// into, mirroring getinfo's "basic"/"details"/"essence" namespaces.
type Info struct {
	Name        string
	IsDir       bool
	Size        int64
	Modified    time.Time
	CRC32       uint32
	StorageType sga.StorageType
}

// Namespace selects which parts of Info getinfo populates.
type Namespace uint8

const (
	NamespaceBasic Namespace = 1 << iota
	NamespaceDetails
	NamespaceEssence
)

// SetInfo carries the subset of file metadata setinfo may update. A nil
// field is left unchanged.
type SetInfo struct {
	Modified    *time.Time
	CRC32       *uint32
	StorageType *sga.StorageType
}
