package render

import (
	"slices"

	"github.com/go-theft-craft/voxelcore/internal/world/chunk"
	"github.com/go-theft-craft/voxelcore/internal/world/cube"
)

type regionKey struct {
	at   chunk.Offset
	face cube.Face
}

type span struct {
	start, n uint32
}

func (s span) end() uint32 { return s.start + s.n }

// PackedBuffer mirrors the GPU face buffer on the CPU. Each chunk direction
// owns one contiguous region; freed regions are reused first-fit and merged
// with free neighbours, and free space at the tail shrinks the buffer.
type PackedBuffer struct {
	data    []uint32
	regions map[regionKey]span
	free    []span // ordered by start
}

// NewPackedBuffer returns an empty buffer.
func NewPackedBuffer() *PackedBuffer {
	return &PackedBuffer{regions: make(map[regionKey]span)}
}

// Upload stores the faces of direction f of chunk at and returns the index of
// their first element.
func (p *PackedBuffer) Upload(at chunk.Offset, f cube.Face, faces []uint32) uint32 {
	k := regionKey{at: at, face: f}
	n := uint32(len(faces))
	if s, ok := p.regions[k]; ok {
		if n <= s.n {
			copy(p.data[s.start:], faces)
			if n < s.n {
				p.release(span{start: s.start + n, n: s.n - n})
			}
			if n == 0 {
				delete(p.regions, k)
				return 0
			}
			p.regions[k] = span{start: s.start, n: n}
			return s.start
		}
		delete(p.regions, k)
		p.release(s)
	}
	if n == 0 {
		return 0
	}
	s := p.alloc(n)
	copy(p.data[s.start:s.end()], faces)
	p.regions[k] = s
	return s.start
}

// Release frees every region of column col.
func (p *PackedBuffer) Release(col chunk.ColumnOffset) {
	for k, s := range p.regions {
		if k.at.ColumnOffset == col {
			delete(p.regions, k)
			p.release(s)
		}
	}
}

// Faces returns the stored faces of direction f of chunk at.
func (p *PackedBuffer) Faces(at chunk.Offset, f cube.Face) []uint32 {
	s, ok := p.regions[regionKey{at: at, face: f}]
	if !ok {
		return nil
	}
	return p.data[s.start:s.end()]
}

// Data returns the whole buffer, free space included.
func (p *PackedBuffer) Data() []uint32 {
	return p.data
}

// Len returns the buffer length in elements.
func (p *PackedBuffer) Len() int {
	return len(p.data)
}

// Live returns the number of elements owned by regions.
func (p *PackedBuffer) Live() int {
	n := 0
	for _, s := range p.regions {
		n += int(s.n)
	}
	return n
}

func (p *PackedBuffer) alloc(n uint32) span {
	for i, fs := range p.free {
		if fs.n < n {
			continue
		}
		if fs.n == n {
			p.free = slices.Delete(p.free, i, i+1)
		} else {
			p.free[i] = span{start: fs.start + n, n: fs.n - n}
		}
		return span{start: fs.start, n: n}
	}
	s := span{start: uint32(len(p.data)), n: n}
	p.data = slices.Grow(p.data, int(n))[:len(p.data)+int(n)]
	return s
}

func (p *PackedBuffer) release(s span) {
	i, _ := slices.BinarySearchFunc(p.free, s.start, func(fs span, start uint32) int {
		return int(int64(fs.start) - int64(start))
	})
	p.free = slices.Insert(p.free, i, s)

	if i+1 < len(p.free) && p.free[i].end() == p.free[i+1].start {
		p.free[i].n += p.free[i+1].n
		p.free = slices.Delete(p.free, i+1, i+2)
	}
	if i > 0 && p.free[i-1].end() == p.free[i].start {
		p.free[i-1].n += p.free[i].n
		p.free = slices.Delete(p.free, i, i+1)
	}
	if last := p.free[len(p.free)-1]; last.end() == uint32(len(p.data)) {
		p.data = p.data[:last.start]
		p.free = p.free[:len(p.free)-1]
	}
}
