package render

import (
	"log/slog"
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/go-theft-craft/voxelcore/internal/world/chunk"
	"github.com/go-theft-craft/voxelcore/internal/world/cube"
)

// VerticesPerFace is the vertex count of one instanced face quad.
const VerticesPerFace = 4

// BoundingRadius is the radius of the sphere enclosing a chunk.
var BoundingRadius = float32(chunk.Size) / 2 * float32(math.Sqrt(3))

// Frustum decides whether a bounding sphere may be visible.
type Frustum interface {
	SphereVisible(center mgl32.Vec3, radius float32) bool
}

// Source enumerates the chunks that may be drawn.
type Source interface {
	ForEachRenderedChunk(fn func(ch *chunk.Chunk))
}

// Batch is the draw list of one frame. Commands and Offsets are parallel;
// the first Opaque entries draw opaque faces, the rest translucent ones.
type Batch struct {
	Commands []DrawCommand
	Offsets  []DrawOffset
	Opaque   int

	// Visible and Culled count chunks with faces that passed or failed the
	// frustum test.
	Visible int
	Culled  int
}

// Reset empties the batch keeping its storage.
func (b *Batch) Reset() {
	b.Commands = b.Commands[:0]
	b.Offsets = b.Offsets[:0]
	b.Opaque = 0
	b.Visible = 0
	b.Culled = 0
}

// Faces returns the number of faces drawn by the batch.
func (b *Batch) Faces() int {
	n := 0
	for _, c := range b.Commands {
		n += int(c.InstanceCount)
	}
	return n
}

type draw struct {
	cmd DrawCommand
	off DrawOffset
}

// Builder assembles a Batch each frame, reusing its buffers.
type Builder struct {
	log         *slog.Logger
	batch       Batch
	translucent []draw
}

// NewBuilder returns an empty Builder.
func NewBuilder(log *slog.Logger) *Builder {
	return &Builder{log: log}
}

// Build collects the draws of every chunk of src that passes frustum, as seen
// from a viewer standing in chunk viewer. The returned batch is valid until the
// next call.
func (b *Builder) Build(src Source, frustum Frustum, viewer chunk.Offset) *Batch {
	b.batch.Reset()
	b.translucent = b.translucent[:0]

	src.ForEachRenderedChunk(func(ch *chunk.Chunk) {
		if ch.Faceless() {
			return
		}
		origin := ch.Offset.Origin()
		half := float32(chunk.Size) / 2
		center := mgl32.Vec3{float32(origin.X) + half, float32(origin.Y) + half, float32(origin.Z) + half}
		if !frustum.SphereVisible(center, BoundingRadius) {
			b.batch.Culled++
			return
		}
		b.batch.Visible++

		for _, f := range cube.Faces {
			if !mayFace(f, viewer, ch.Offset) {
				continue
			}
			c := ch.Counts[f]
			off := DrawOffset{
				OriginX: float64(origin.X),
				OriginZ: float64(origin.Z),
				OriginY: float32(origin.Y),
				Face:    uint32(f),
			}
			if c.Opaque > 0 {
				b.batch.Commands = append(b.batch.Commands, DrawCommand{
					Count:         VerticesPerFace,
					InstanceCount: c.Opaque,
					BaseInstance:  ch.Base[f],
				})
				b.batch.Offsets = append(b.batch.Offsets, off)
			}
			if c.Translucent > 0 {
				b.translucent = append(b.translucent, draw{
					cmd: DrawCommand{
						Count:         VerticesPerFace,
						InstanceCount: c.Translucent,
						BaseInstance:  ch.Base[f] + c.Opaque,
					},
					off: off,
				})
			}
		}
	})

	b.batch.Opaque = len(b.batch.Commands)
	for _, d := range b.translucent {
		b.batch.Commands = append(b.batch.Commands, d.cmd)
		b.batch.Offsets = append(b.batch.Offsets, d.off)
	}
	b.log.Debug("batch built",
		"draws", len(b.batch.Commands),
		"opaque", b.batch.Opaque,
		"visible", b.batch.Visible,
		"culled", b.batch.Culled,
	)
	return &b.batch
}

// mayFace reports whether a viewer in chunk v can possibly see faces of
// direction f in chunk c. Faces pointing away from the viewer's chunk are
// never visible.
func mayFace(f cube.Face, v, c chunk.Offset) bool {
	switch f {
	case cube.East:
		return v.X >= c.X
	case cube.West:
		return v.X <= c.X
	case cube.Up:
		return v.Y >= c.Y
	case cube.Down:
		return v.Y <= c.Y
	case cube.South:
		return v.Z >= c.Z
	case cube.North:
		return v.Z <= c.Z
	}
	return false
}
