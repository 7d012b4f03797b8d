package mesh

import (
	"log/slog"
	"sync"

	"github.com/go-theft-craft/voxelcore/internal/world/block"
	"github.com/go-theft-craft/voxelcore/internal/world/chunk"
	"github.com/go-theft-craft/voxelcore/internal/world/cube"
)

// Neighbors holds the stores of the six chunks adjacent to the one being
// meshed, indexed by face. A nil entry reads as all air.
type Neighbors [cube.FaceCount]*chunk.Store

// Result is the mesh of one chunk.
type Result struct {
	Counts [cube.FaceCount]chunk.FaceCounts
	Faces  chunk.Faces
}

// Total returns the number of faces over all directions.
func (r *Result) Total() int {
	n := 0
	for _, c := range r.Counts {
		n += int(c.Total())
	}
	return n
}

// Scratch is a per-goroutine buffer large enough for one direction of a chunk.
// Opaque faces fill it from the front and translucent faces from the back.
type Scratch struct {
	buf [chunk.Volume]uint32
}

// Mesher turns block data into packed per-direction face buffers.
type Mesher struct {
	table   *VisibilityTable
	log     *slog.Logger
	scratch sync.Pool
}

// NewMesher returns a Mesher using the shared visibility table.
func NewMesher(log *slog.Logger) *Mesher {
	return &Mesher{
		table: DefaultTable(),
		log:   log,
		scratch: sync.Pool{
			New: func() any { return new(Scratch) },
		},
	}
}

// MeshChunk meshes store with a pooled scratch buffer. It is safe for
// concurrent use as long as the stores are not written meanwhile.
func (m *Mesher) MeshChunk(at chunk.Offset, store *chunk.Store, n *Neighbors) Result {
	s := m.scratch.Get().(*Scratch)
	defer m.scratch.Put(s)
	return m.Mesh(at, store, n, s)
}

// Mesh meshes store into s. Missing neighbors read as air. A nil or all-air
// store yields zero faces.
func (m *Mesher) Mesh(at chunk.Offset, store *chunk.Store, n *Neighbors, s *Scratch) Result {
	var res Result
	if store == nil || store.Empty() {
		m.log.Debug("skip mesh of empty chunk", "chunk", at)
		return res
	}

	var nb Neighbors
	if n != nil {
		nb = *n
	}
	for f := range nb {
		if nb[f] == nil {
			nb[f] = chunk.Empty()
		}
	}

	for _, f := range cube.Faces {
		res.Counts[f], res.Faces[f] = m.meshFace(f, store, &nb, s)
	}
	return res
}

func (m *Mesher) meshFace(f cube.Face, store *chunk.Store, nb *Neighbors, s *Scratch) (chunk.FaceCounts, []uint32) {
	entries := &m.table.entries[f]
	front, back := 0, chunk.Volume

	for i := 0; i < chunk.Volume; i++ {
		own := store.At(i)
		if own == block.Air {
			continue
		}
		e := entries[i]
		src := store
		if e.Slot != SelfSlot {
			src = nb[e.Slot]
		}
		if !block.ShowsFace(own, src.At(int(e.Index))) {
			continue
		}

		v := Pack(i, own.Texture(f))
		if own.Translucent() {
			back--
			s.buf[back] = v
		} else {
			s.buf[front] = v
			front++
		}
	}

	counts := chunk.FaceCounts{Opaque: uint32(front), Translucent: uint32(chunk.Volume - back)}
	if counts.Total() == 0 {
		return counts, nil
	}
	out := make([]uint32, counts.Total())
	copy(out, s.buf[:front])
	copy(out[front:], s.buf[back:])
	return counts, out
}
