package mesh

import (
	"sync"

	"github.com/go-theft-craft/voxelcore/internal/world/chunk"
	"github.com/go-theft-craft/voxelcore/internal/world/cube"
)

// SelfSlot marks a neighbor block that lives in the same chunk.
const SelfSlot = cube.FaceCount

// Entry locates the block adjacent to a local index in one direction.
type Entry struct {
	// Index is the neighbor's local index, already wrapped into the local
	// space of the chunk named by Slot.
	Index uint16
	// Slot is SelfSlot, or the face whose adjacent chunk holds the neighbor.
	Slot uint8
}

// VisibilityTable maps every (direction, local index) pair to the neighbor
// block it faces. It is immutable once built and shared by all meshing
// goroutines without synchronisation.
type VisibilityTable struct {
	entries [cube.FaceCount][chunk.Volume]Entry
}

// NewVisibilityTable computes the table.
func NewVisibilityTable() *VisibilityTable {
	t := &VisibilityTable{}
	for _, f := range cube.Faces {
		dx, dy, dz := f.Offset()
		for i := 0; i < chunk.Volume; i++ {
			x, y, z := chunk.Unindex(i)
			nx, ny, nz := x+dx, y+dy, z+dz
			slot := uint8(SelfSlot)
			if !inChunk(nx) || !inChunk(ny) || !inChunk(nz) {
				slot = uint8(f)
			}
			t.entries[f][i] = Entry{
				Index: uint16(chunk.Index(wrap(nx), wrap(ny), wrap(nz))),
				Slot:  slot,
			}
		}
	}
	return t
}

// At returns the entry for local index i facing f.
func (t *VisibilityTable) At(f cube.Face, i int) Entry {
	return t.entries[f][i]
}

// DefaultTable returns the process-wide table, building it on first use.
var DefaultTable = sync.OnceValue(NewVisibilityTable)

func inChunk(v int) bool {
	return v >= 0 && v < chunk.Size
}

func wrap(v int) int {
	return v & (chunk.Size - 1)
}
