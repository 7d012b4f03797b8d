package mesh

import (
	"github.com/go-theft-craft/voxelcore/internal/world/block"
	"github.com/go-theft-craft/voxelcore/internal/world/chunk"
)

// Packed face datum, one uint32 per face:
//
//	bits [0, IndexBits)   local block index (chunk.Index layout)
//	bits [IndexBits, 32)  atlas texture id
const (
	IndexBits   = 3 * chunk.Shift
	TextureBits = 32 - IndexBits

	indexMask = 1<<IndexBits - 1
)

// Pack encodes a face of the block at local index i drawn with texture tex.
func Pack(i int, tex block.Texture) uint32 {
	return uint32(tex)<<IndexBits | uint32(i)&indexMask
}

// Unpack is the inverse of Pack.
func Unpack(v uint32) (i int, tex block.Texture) {
	return int(v & indexMask), block.Texture(v >> IndexBits)
}
