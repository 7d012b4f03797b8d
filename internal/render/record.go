package render

import (
	"encoding/binary"
	"math"
)

const (
	// DrawCommandSize is the encoded size of a DrawCommand.
	DrawCommandSize = 16
	// DrawOffsetSize is the encoded size of a DrawOffset.
	DrawOffsetSize = 24
)

// DrawCommand is one indirect draw: Count vertices per instance, InstanceCount
// faces starting at BaseInstance in the packed face buffer.
type DrawCommand struct {
	Count         uint32
	InstanceCount uint32
	First         uint32
	BaseInstance  uint32
}

// AppendBinary appends the little-endian encoding of c.
func (c DrawCommand) AppendBinary(b []byte) ([]byte, error) {
	b = binary.LittleEndian.AppendUint32(b, c.Count)
	b = binary.LittleEndian.AppendUint32(b, c.InstanceCount)
	b = binary.LittleEndian.AppendUint32(b, c.First)
	b = binary.LittleEndian.AppendUint32(b, c.BaseInstance)
	return b, nil
}

// MarshalBinary returns the encoding of c.
func (c DrawCommand) MarshalBinary() ([]byte, error) {
	return c.AppendBinary(make([]byte, 0, DrawCommandSize))
}

// DrawOffset places the faces of one draw: the chunk origin and the face
// direction. X and Z keep double precision for distant worlds.
type DrawOffset struct {
	OriginX float64
	OriginZ float64
	OriginY float32
	Face    uint32
}

// AppendBinary appends the little-endian encoding of o.
func (o DrawOffset) AppendBinary(b []byte) ([]byte, error) {
	b = binary.LittleEndian.AppendUint64(b, math.Float64bits(o.OriginX))
	b = binary.LittleEndian.AppendUint64(b, math.Float64bits(o.OriginZ))
	b = binary.LittleEndian.AppendUint32(b, math.Float32bits(o.OriginY))
	b = binary.LittleEndian.AppendUint32(b, o.Face)
	return b, nil
}

// MarshalBinary returns the encoding of o.
func (o DrawOffset) MarshalBinary() ([]byte, error) {
	return o.AppendBinary(make([]byte, 0, DrawOffsetSize))
}

// EncodeCommands appends every command of the batch to dst.
func (b *Batch) EncodeCommands(dst []byte) []byte {
	for _, c := range b.Commands {
		dst, _ = c.AppendBinary(dst)
	}
	return dst
}

// EncodeOffsets appends every offset record of the batch to dst.
func (b *Batch) EncodeOffsets(dst []byte) []byte {
	for _, o := range b.Offsets {
		dst, _ = o.AppendBinary(dst)
	}
	return dst
}
