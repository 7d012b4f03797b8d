package render

import (
	"io"
	"log/slog"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-theft-craft/voxelcore/internal/world/chunk"
	"github.com/go-theft-craft/voxelcore/internal/world/cube"
)

type chunkList []*chunk.Chunk

func (l chunkList) ForEachRenderedChunk(fn func(ch *chunk.Chunk)) {
	for _, ch := range l {
		fn(ch)
	}
}

type frustumFunc func(center mgl32.Vec3, radius float32) bool

func (f frustumFunc) SphereVisible(center mgl32.Vec3, radius float32) bool {
	return f(center, radius)
}

var everything = frustumFunc(func(mgl32.Vec3, float32) bool { return true })

func testChunk(x, y, z int32, opaque, translucent uint32) *chunk.Chunk {
	ch := &chunk.Chunk{Offset: chunk.Offset{ColumnOffset: chunk.ColumnOffset{X: x, Z: z}, Y: y}}
	for f := range ch.Counts {
		ch.Counts[f] = chunk.FaceCounts{Opaque: opaque, Translucent: translucent}
		ch.Base[f] = uint32(f) * 100
	}
	return ch
}

func newTestBuilder() *Builder {
	return NewBuilder(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestBuildEmitsAllDirectionsInsideViewerChunk(t *testing.T) {
	ch := testChunk(0, 2, 0, 3, 0)
	b := newTestBuilder().Build(chunkList{ch}, everything, ch.Offset)

	require.Len(t, b.Commands, cube.FaceCount)
	require.Len(t, b.Offsets, cube.FaceCount)
	assert.Equal(t, cube.FaceCount, b.Opaque)
	assert.Equal(t, 1, b.Visible)
	for i, c := range b.Commands {
		assert.Equal(t, DrawCommand{Count: 4, InstanceCount: 3, BaseInstance: uint32(i) * 100}, c)
		assert.Equal(t, DrawOffset{OriginX: 0, OriginZ: 0, OriginY: 64, Face: uint32(i)}, b.Offsets[i])
	}
	assert.Equal(t, 18, b.Faces())
}

func TestBuildPrefiltersByViewerChunk(t *testing.T) {
	ch := testChunk(2, 1, -1, 1, 0)
	viewer := chunk.Offset{ColumnOffset: chunk.ColumnOffset{X: 0, Z: 0}, Y: 1}
	b := newTestBuilder().Build(chunkList{ch}, everything, viewer)

	var faces []uint32
	for _, o := range b.Offsets {
		faces = append(faces, o.Face)
	}
	// Viewer is west of the chunk, level with it and south of it.
	assert.ElementsMatch(t, []uint32{uint32(cube.West), uint32(cube.Up), uint32(cube.Down), uint32(cube.South)}, faces)
}

func TestBuildOpaqueBeforeTranslucent(t *testing.T) {
	a := testChunk(0, 0, 0, 2, 5)
	c := testChunk(0, 1, 0, 4, 1)
	b := newTestBuilder().Build(chunkList{a, c}, everything, a.Offset)

	require.NotZero(t, b.Opaque)
	for i, cmd := range b.Commands {
		if i < b.Opaque {
			assert.Contains(t, []uint32{2, 4}, cmd.InstanceCount)
		} else {
			assert.Contains(t, []uint32{5, 1}, cmd.InstanceCount)
		}
	}
	last := b.Commands[len(b.Commands)-1]
	face := b.Offsets[len(b.Offsets)-1].Face
	assert.Equal(t, c.Base[face]+c.Counts[face].Opaque, last.BaseInstance, "translucent faces follow opaque ones")
}

func TestBuildFrustumCulls(t *testing.T) {
	near := testChunk(0, 0, 0, 1, 0)
	far := testChunk(10, 0, 0, 1, 0)
	onlyNear := frustumFunc(func(center mgl32.Vec3, radius float32) bool {
		assert.InDelta(t, 27.7128, radius, 1e-3)
		return center.X() < 100
	})
	b := newTestBuilder().Build(chunkList{near, far}, onlyNear, near.Offset)
	assert.Equal(t, 1, b.Visible)
	assert.Equal(t, 1, b.Culled)
	for _, o := range b.Offsets {
		assert.Zero(t, o.OriginX)
	}
}

func TestBuildSkipsFacelessChunks(t *testing.T) {
	b := newTestBuilder().Build(chunkList{testChunk(0, 0, 0, 0, 0)}, everything, chunk.Offset{})
	assert.Empty(t, b.Commands)
	assert.Zero(t, b.Visible+b.Culled)
}

func TestBuilderReusesBatch(t *testing.T) {
	bl := newTestBuilder()
	ch := testChunk(0, 0, 0, 1, 1)
	first := bl.Build(chunkList{ch}, everything, ch.Offset)
	n := len(first.Commands)
	second := bl.Build(chunkList{ch}, everything, ch.Offset)
	assert.Same(t, first, second)
	assert.Len(t, second.Commands, n)
}
