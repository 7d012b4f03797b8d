package render

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/go-theft-craft/voxelcore/internal/world/chunk"
	"github.com/go-theft-craft/voxelcore/internal/world/cube"
)

func offsetAt(x, y, z int32) chunk.Offset {
	return chunk.Offset{ColumnOffset: chunk.ColumnOffset{X: x, Z: z}, Y: y}
}

func TestPackedBufferAppends(t *testing.T) {
	p := NewPackedBuffer()
	a := offsetAt(0, 0, 0)
	assert.Equal(t, uint32(0), p.Upload(a, cube.East, []uint32{1, 2, 3}))
	assert.Equal(t, uint32(3), p.Upload(a, cube.West, []uint32{4, 5}))
	assert.Equal(t, []uint32{1, 2, 3, 4, 5}, p.Data())
	assert.Equal(t, []uint32{4, 5}, p.Faces(a, cube.West))
	assert.Equal(t, 5, p.Live())
}

func TestPackedBufferReusesRegionInPlace(t *testing.T) {
	p := NewPackedBuffer()
	a := offsetAt(0, 0, 0)
	p.Upload(a, cube.East, []uint32{1, 2, 3})
	p.Upload(a, cube.West, []uint32{9})

	assert.Equal(t, uint32(0), p.Upload(a, cube.East, []uint32{7, 8}))
	assert.Equal(t, []uint32{7, 8}, p.Faces(a, cube.East))
	assert.Equal(t, 3, p.Live())

	// The freed element is taken by the next small upload.
	assert.Equal(t, uint32(2), p.Upload(offsetAt(1, 0, 0), cube.Up, []uint32{6}))
	assert.Equal(t, 4, p.Len())
}

func TestPackedBufferMovesGrowingRegion(t *testing.T) {
	p := NewPackedBuffer()
	a := offsetAt(0, 0, 0)
	p.Upload(a, cube.East, []uint32{1})
	p.Upload(a, cube.West, []uint32{2})

	base := p.Upload(a, cube.East, []uint32{3, 4, 5})
	assert.Equal(t, uint32(2), base)
	assert.Equal(t, []uint32{3, 4, 5}, p.Faces(a, cube.East))
	assert.Equal(t, []uint32{2}, p.Faces(a, cube.West))
}

func TestPackedBufferReleaseMergesAndShrinks(t *testing.T) {
	p := NewPackedBuffer()
	keep := offsetAt(0, 0, 0)
	gone := offsetAt(5, 0, 5)
	p.Upload(keep, cube.East, []uint32{1, 1})
	p.Upload(gone, cube.East, []uint32{2, 2})
	p.Upload(gone.ColumnOffset.Origin().Chunk(), cube.West, []uint32{3})
	p.Upload(offsetAt(5, 3, 5), cube.Up, []uint32{4, 4, 4})

	p.Release(gone.ColumnOffset)
	assert.Equal(t, 2, p.Len(), "free tail is dropped")
	assert.Equal(t, 2, p.Live())
	assert.Nil(t, p.Faces(gone, cube.East))
	assert.Equal(t, []uint32{1, 1}, p.Faces(keep, cube.East))
}

func TestPackedBufferEmptyUpload(t *testing.T) {
	p := NewPackedBuffer()
	a := offsetAt(0, 0, 0)
	p.Upload(a, cube.Down, []uint32{1, 2})
	assert.Equal(t, uint32(0), p.Upload(a, cube.Down, nil))
	assert.Nil(t, p.Faces(a, cube.Down))
	assert.Zero(t, p.Len())
}
