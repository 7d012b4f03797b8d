package mesh

import (
	"testing"

	"github.com/go-theft-craft/voxelcore/internal/world/block"
	"github.com/go-theft-craft/voxelcore/internal/world/chunk"
	"github.com/go-theft-craft/voxelcore/internal/world/cube"
	"github.com/stretchr/testify/assert"
)

func TestVisibilityTableSlots(t *testing.T) {
	table := DefaultTable()
	for _, f := range cube.Faces {
		dx, dy, dz := f.Offset()
		for i := 0; i < chunk.Volume; i++ {
			x, y, z := chunk.Unindex(i)
			nx, ny, nz := x+dx, y+dy, z+dz
			inside := inChunk(nx) && inChunk(ny) && inChunk(nz)

			e := table.At(f, i)
			if inside {
				if e.Slot != SelfSlot {
					t.Fatalf("%s index %d: slot %d, want self", f, i, e.Slot)
				}
				if int(e.Index) != chunk.Index(nx, ny, nz) {
					t.Fatalf("%s index %d: neighbor %d, want %d", f, i, e.Index, chunk.Index(nx, ny, nz))
				}
				continue
			}
			if e.Slot != uint8(f) {
				t.Fatalf("%s index %d: slot %d, want %d", f, i, e.Slot, f)
			}
			if int(e.Index) != chunk.Index(wrap(nx), wrap(ny), wrap(nz)) {
				t.Fatalf("%s index %d: wrapped neighbor %d is wrong", f, i, e.Index)
			}
		}
	}
}

func TestVisibilityTableBoundaryExamples(t *testing.T) {
	table := DefaultTable()
	e := table.At(cube.East, chunk.Index(chunk.Size-1, 4, 9))
	assert.Equal(t, uint8(cube.East), e.Slot)
	assert.Equal(t, uint16(chunk.Index(0, 4, 9)), e.Index)

	e = table.At(cube.Down, chunk.Index(3, 0, 3))
	assert.Equal(t, uint8(cube.Down), e.Slot)
	assert.Equal(t, uint16(chunk.Index(3, chunk.Size-1, 3)), e.Index)

	e = table.At(cube.Up, chunk.Index(3, 0, 3))
	assert.Equal(t, uint8(SelfSlot), e.Slot)
}

func TestPackRoundTrip(t *testing.T) {
	tests := []struct {
		index int
		tex   block.Texture
	}{
		{0, 0},
		{chunk.Volume - 1, 0},
		{12345, 7},
		{chunk.Volume - 1, 1<<TextureBits - 1},
	}
	for _, tt := range tests {
		i, tex := Unpack(Pack(tt.index, tt.tex))
		assert.Equal(t, tt.index, i)
		assert.Equal(t, tt.tex, tex)
	}
	assert.Equal(t, 15, IndexBits)
	assert.Equal(t, uint32(3)<<15|5, Pack(5, 3))
}
