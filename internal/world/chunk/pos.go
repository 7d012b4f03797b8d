package chunk

import (
	"fmt"
	"math"
)

const (
	// Shift is log2(Size).
	Shift = 5
	// Size is the edge length of a chunk in blocks.
	Size = 1 << Shift
	// Area is the number of block columns in a chunk.
	Area = Size * Size
	// Volume is the number of blocks in a chunk.
	Volume = Size * Size * Size
	// Height is the number of chunks stacked in a column.
	Height = 8
	// WorldHeight is the exclusive upper bound of block Y coordinates.
	WorldHeight = Height * Size

	mask = Size - 1
)

// Index returns the linear index of a local block position. Y varies
// fastest, then Z, then X.
func Index(x, y, z int) int {
	return x<<(2*Shift) | z<<Shift | y
}

// Unindex is the inverse of Index.
func Unindex(i int) (x, y, z int) {
	return i >> (2 * Shift), i & mask, (i >> Shift) & mask
}

// Pos is a global block position.
type Pos struct {
	X, Y, Z int
}

// InBounds reports whether Y is inside the vertical range of the world.
func (p Pos) InBounds() bool {
	return p.Y >= 0 && p.Y < WorldHeight
}

// Addressable reports whether the column holding p fits a ColumnOffset.
// Positions further out would alias a column near the origin.
func (p Pos) Addressable() bool {
	return columnFits(p.X>>Shift) && columnFits(p.Z>>Shift)
}

func columnFits(c int) bool {
	return c >= math.MinInt32 && c <= math.MaxInt32
}

// Column returns the column holding p.
func (p Pos) Column() ColumnOffset {
	return ColumnOffset{X: int32(p.X >> Shift), Z: int32(p.Z >> Shift)}
}

// Chunk returns the chunk holding p. Only meaningful when p.InBounds().
func (p Pos) Chunk() Offset {
	return Offset{ColumnOffset: p.Column(), Y: int32(p.Y >> Shift)}
}

// Local returns p relative to the origin of its chunk.
func (p Pos) Local() (x, y, z int) {
	return p.X & mask, p.Y & mask, p.Z & mask
}

// Add returns p moved by (dx, dy, dz).
func (p Pos) Add(dx, dy, dz int) Pos {
	return Pos{X: p.X + dx, Y: p.Y + dy, Z: p.Z + dz}
}

func (p Pos) String() string {
	return fmt.Sprintf("(%d,%d,%d)", p.X, p.Y, p.Z)
}

// ColumnOffset identifies a vertical stack of chunks.
type ColumnOffset struct {
	X, Z int32
}

// Key packs the offset into a single int64 suitable as a map key.
func (c ColumnOffset) Key() int64 {
	return int64(c.X)<<32 | int64(uint32(c.Z))
}

// ColumnOffsetFromKey is the inverse of ColumnOffset.Key.
func ColumnOffsetFromKey(k int64) ColumnOffset {
	return ColumnOffset{X: int32(k >> 32), Z: int32(uint32(k))}
}

// Distance returns the Manhattan distance between two columns. A render
// distance of n therefore covers a diamond around the centre.
func (c ColumnOffset) Distance(o ColumnOffset) int {
	return abs(int(c.X)-int(o.X)) + abs(int(c.Z)-int(o.Z))
}

// Add returns c moved by (dx, dz) columns.
func (c ColumnOffset) Add(dx, dz int) ColumnOffset {
	return ColumnOffset{X: c.X + int32(dx), Z: c.Z + int32(dz)}
}

// Origin returns the block position of the column's (0, 0, 0) corner.
func (c ColumnOffset) Origin() Pos {
	return Pos{X: int(c.X) << Shift, Z: int(c.Z) << Shift}
}

func (c ColumnOffset) String() string {
	return fmt.Sprintf("[%d,%d]", c.X, c.Z)
}

// Offset identifies a single chunk: a column plus a vertical index.
type Offset struct {
	ColumnOffset
	Y int32
}

// Origin returns the block position of the chunk's (0, 0, 0) corner.
func (o Offset) Origin() Pos {
	p := o.ColumnOffset.Origin()
	p.Y = int(o.Y) << Shift
	return p
}

func (o Offset) String() string {
	return fmt.Sprintf("[%d,%d,%d]", o.X, o.Y, o.Z)
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
