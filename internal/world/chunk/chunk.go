package chunk

import (
	"github.com/go-theft-craft/voxelcore/internal/world/block"
	"github.com/go-theft-craft/voxelcore/internal/world/cube"
)

// FaceCounts holds the number of faces a chunk emits in one direction.
type FaceCounts struct {
	Opaque      uint32
	Translucent uint32
}

// Total returns the number of faces of both passes.
func (c FaceCounts) Total() uint32 {
	return c.Opaque + c.Translucent
}

// Faces holds one packed face buffer per direction. Each buffer is laid out
// as all opaque faces followed by all translucent faces.
type Faces [cube.FaceCount][]uint32

// Chunk is a Size³ cube of blocks together with its meshing state.
type Chunk struct {
	Offset Offset
	Store  Store

	// Counts are the face counts currently drawn by the renderer.
	Counts [cube.FaceCount]FaceCounts
	// Base is the first element of each direction's faces in the packed buffer,
	// assigned when Pending is uploaded.
	Base [cube.FaceCount]uint32
	// Pending holds face buffers waiting to be uploaded. nil means the
	// previously uploaded data is still current.
	Pending *Faces

	// HasDataBefore is set once the chunk's faces have been integrated.
	HasDataBefore bool
	// UseTmpData is set while a mesh computed off the render thread waits to
	// be adopted.
	UseTmpData bool

	// Footprints lists structures anchored in this chunk.
	Footprints []Footprint

	tmpCounts [cube.FaceCount]FaceCounts
	tmpFaces  Faces
	tmpSeq    uint32
	editSeq   uint32
}

// Faceless reports whether the chunk draws nothing.
func (c *Chunk) Faceless() bool {
	for _, n := range c.Counts {
		if n.Total() != 0 {
			return false
		}
	}
	return true
}

// EditSeq returns the number of direct edits applied to the chunk.
func (c *Chunk) EditSeq() uint32 {
	return c.editSeq
}

// MarkEdited records a direct edit, invalidating any staged mesh.
func (c *Chunk) MarkEdited() {
	c.editSeq++
}

// Stage stores a mesh computed for edit sequence seq without touching what the
// renderer reads. It is called by the generation side.
func (c *Chunk) Stage(counts [cube.FaceCount]FaceCounts, faces Faces, seq uint32) {
	c.tmpCounts = counts
	c.tmpFaces = faces
	c.tmpSeq = seq
	c.UseTmpData = true
}

// Adopt promotes the staged mesh to the live counts and marks it for upload.
// A staged mesh older than the latest direct edit is discarded. Adopt reports
// whether the staged mesh was taken.
func (c *Chunk) Adopt() bool {
	if !c.UseTmpData {
		return false
	}
	c.UseTmpData = false
	faces := c.tmpFaces
	c.tmpFaces = Faces{}
	if c.tmpSeq != c.editSeq {
		return false
	}
	c.Apply(c.tmpCounts, faces)
	return true
}

// Apply sets the live counts and queues faces for upload.
func (c *Chunk) Apply(counts [cube.FaceCount]FaceCounts, faces Faces) {
	c.Counts = counts
	c.Pending = &faces
	c.HasDataBefore = true
}

// TakePending returns and clears the faces waiting for upload.
func (c *Chunk) TakePending() *Faces {
	p := c.Pending
	c.Pending = nil
	return p
}

// StructureID identifies a kind of procedurally placed structure.
type StructureID uint16

const (
	StructureNone StructureID = iota
	StructureOakTree
)

// Footprint is the bounding box of a structure, recorded on the chunk holding
// its anchor block. Start is relative to that chunk's origin and may reach
// outside of it.
type Footprint struct {
	ID      StructureID
	Start   [3]int16
	Extents [3]uint16
}

// Bounds returns the inclusive world-space corners of the footprint anchored
// in chunk o.
func (f Footprint) Bounds(o Offset) (lo, hi Pos) {
	origin := o.Origin()
	lo = origin.Add(int(f.Start[0]), int(f.Start[1]), int(f.Start[2]))
	hi = lo.Add(int(f.Extents[0])-1, int(f.Extents[1])-1, int(f.Extents[2])-1)
	return lo, hi
}

// Column is a vertical stack of Height chunks sharing one offset.
type Column struct {
	Offset ColumnOffset
	Chunks [Height]Chunk
	// Regenerating is set while the generation side is writing the column's
	// blocks. Such a column is never promoted to the rendered map.
	Regenerating bool
}

// NewColumn returns an all-air column at off.
func NewColumn(off ColumnOffset) *Column {
	c := &Column{}
	c.Reset(off)
	return c
}

// Reset clears the column for reuse at off.
func (c *Column) Reset(off ColumnOffset) {
	*c = Column{Offset: off}
	for y := range c.Chunks {
		c.Chunks[y].Offset = Offset{ColumnOffset: off, Y: int32(y)}
	}
}

// Chunk returns the chunk at vertical index y, or nil when y is out of range.
func (c *Column) Chunk(y int) *Chunk {
	if y < 0 || y >= Height {
		return nil
	}
	return &c.Chunks[y]
}

// Block returns the block at column-local (x, z) and world y. Positions outside
// the vertical range read as air.
func (c *Column) Block(x, y, z int) block.ID {
	if y < 0 || y >= WorldHeight {
		return block.Air
	}
	return c.Chunks[y>>Shift].Store.Get(x, y&mask, z)
}

// SetBlock writes the block at column-local (x, z) and world y. Positions
// outside the vertical range are ignored.
func (c *Column) SetBlock(x, y, z int, id block.ID) {
	if y < 0 || y >= WorldHeight {
		return
	}
	c.Chunks[y>>Shift].Store.Set(x, y&mask, z, id)
}

// ForEachFootprint calls fn for every structure anchored in the column.
func (c *Column) ForEachFootprint(fn func(anchor Offset, f Footprint)) {
	for y := range c.Chunks {
		ch := &c.Chunks[y]
		for _, f := range ch.Footprints {
			fn(ch.Offset, f)
		}
	}
}
