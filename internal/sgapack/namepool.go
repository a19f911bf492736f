package sgapack

import "bytes"

// namePool interns names into a single contiguous, deduplicated byte
// region: the first call for a given name reserves its offset and appends
// "name\x00"; later calls for the same exact byte string reuse that
// offset, so folders and files that happen to share a name (in different
// directories) share one pool entry — exactly the dedup spec.md §4.H
// calls for.
type namePool struct {
	offsets map[string]uint32
	buf     bytes.Buffer
}

func newNamePool() *namePool {
	return &namePool{offsets: make(map[string]uint32)}
}

func (p *namePool) intern(name string) uint32 {
	if off, ok := p.offsets[name]; ok {
		return off
	}
	off := uint32(p.buf.Len())
	p.buf.WriteString(name)
	p.buf.WriteByte(0)
	p.offsets[name] = off
	return off
}

func (p *namePool) Bytes() []byte { return p.buf.Bytes() }
func (p *namePool) Len() int64    { return int64(p.buf.Len()) }
func (p *namePool) Count() int    { return len(p.offsets) }
