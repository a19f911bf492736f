package sgapack

import "github.com/MAK-Relic-Tool/Relic-Tool-SGA-V2/internal/sgafs"

// folderSlot carries the assigned child ranges for one folder, parallel to
// plan.folders by index.
type folderSlot struct {
	firstSub, lastSub   uint16
	firstFile, lastFile uint16
}

// driveSlot carries one drive's assigned root and archive-wide ranges.
type driveSlot struct {
	alias, name                   string
	rootFolder                    uint16
	firstFolder, lastFolder       uint16
	firstFile, lastFile           uint16
}

// plan is the result of index assignment (spec.md §4.H steps 1-3): every
// folder and file in the whole archive, in final TOC order, plus the
// interned name pool.
type plan struct {
	folders     []*sgafs.FolderSnapshot
	folderSlots []folderSlot
	folderNames []uint32

	files     []*sgafs.FileSnapshot
	fileNames []uint32

	drives []driveSlot
	names  *namePool
}

// buildPlan assigns a fresh, contiguous index to every folder and file
// reachable from drives. For each folder visited, its direct children
// (folders, then files) are assigned as one contiguous block before any of
// those children are themselves visited — a stack-based pre-order walk
// satisfies this regardless of push/pop order, since the block is carved
// out entirely at the moment the parent is visited, not as children are
// discovered.
func buildPlan(drives []sgafs.DriveSnapshot) *plan {
	p := &plan{names: newNamePool()}

	appendFolder := func(f *sgafs.FolderSnapshot) int {
		idx := len(p.folders)
		p.folders = append(p.folders, f)
		p.folderSlots = append(p.folderSlots, folderSlot{})
		p.folderNames = append(p.folderNames, p.names.intern(f.Name))
		return idx
	}
	appendFile := func(f *sgafs.FileSnapshot) int {
		idx := len(p.files)
		p.files = append(p.files, f)
		p.fileNames = append(p.fileNames, p.names.intern(f.Name))
		return idx
	}

	for _, d := range drives {
		folderStart := len(p.folders)
		fileStart := len(p.files)

		rootIdx := appendFolder(d.Root)

		type frame struct {
			idx int
			f   *sgafs.FolderSnapshot
		}
		stack := []frame{{rootIdx, d.Root}}

		for len(stack) > 0 {
			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]

			subStart := len(p.folders)
			for _, sub := range top.f.Folders {
				appendFolder(sub)
			}
			subEnd := len(p.folders)
			p.folderSlots[top.idx].firstSub = uint16(subStart)
			p.folderSlots[top.idx].lastSub = uint16(subEnd)

			fileBlockStart := len(p.files)
			for _, f := range top.f.Files {
				appendFile(f)
			}
			fileBlockEnd := len(p.files)
			p.folderSlots[top.idx].firstFile = uint16(fileBlockStart)
			p.folderSlots[top.idx].lastFile = uint16(fileBlockEnd)

			for i := len(top.f.Folders) - 1; i >= 0; i-- {
				stack = append(stack, frame{subStart + i, top.f.Folders[i]})
			}
		}

		p.drives = append(p.drives, driveSlot{
			alias:       d.Alias,
			name:        d.Name,
			rootFolder:  uint16(rootIdx),
			firstFolder: uint16(folderStart),
			lastFolder:  uint16(len(p.folders)),
			firstFile:   uint16(fileStart),
			lastFile:    uint16(len(p.files)),
		})
	}

	return p
}
