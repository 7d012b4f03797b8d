package world

import (
	"context"
	"io"
	"log/slog"
	"math"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-theft-craft/voxelcore/internal/metrics"
	"github.com/go-theft-craft/voxelcore/internal/world/block"
	"github.com/go-theft-craft/voxelcore/internal/world/chunk"
	"github.com/go-theft-craft/voxelcore/internal/world/cube"
	"github.com/go-theft-craft/voxelcore/internal/world/gen"
	"github.com/go-theft-craft/voxelcore/internal/world/stream"
)

func newTestWorld(t *testing.T, distance int) *World {
	t.Helper()
	return newTestWorldEnv(t, Env{Log: slog.New(slog.NewTextHandler(io.Discard, nil))}, distance)
}

func newTestWorldEnv(t *testing.T, env Env, distance int) *World {
	t.Helper()
	w, err := New(env, Options{
		Seed:        12345,
		Settings:    gen.DefaultSettings(),
		Distance:    distance,
		MaxDistance: 4,
		Margin:      1,
		Workers:     2,
	})
	require.NoError(t, err)
	w.Start(context.Background())
	t.Cleanup(w.Close)
	return w
}

// settle runs Update until a generation cycle around p has been integrated.
func settle(t *testing.T, w *World, p chunk.Pos) {
	t.Helper()
	deadline := time.Now().Add(20 * time.Second)
	for time.Now().Before(deadline) {
		if step := w.Update(p); step.Finished != nil && step.Finished.Plan.Center == p.Column() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("no cycle finished around %v", p)
}

type recordingUploader struct {
	uploads  map[chunk.Offset]int
	released []chunk.ColumnOffset
	next     uint32
}

func (u *recordingUploader) Upload(at chunk.Offset, _ cube.Face, faces []uint32) uint32 {
	if u.uploads == nil {
		u.uploads = make(map[chunk.Offset]int)
	}
	u.uploads[at]++
	base := u.next
	u.next += uint32(len(faces))
	return base
}

func (u *recordingUploader) Release(col chunk.ColumnOffset) {
	u.released = append(u.released, col)
}

func TestNewRejectsInvalidSettings(t *testing.T) {
	env := Env{Log: slog.New(slog.NewTextHandler(io.Discard, nil))}
	_, err := New(env, Options{Settings: gen.Settings{}})
	assert.ErrorIs(t, err, gen.ErrInvalidSettings)
}

func TestWorldMatchesGenerator(t *testing.T) {
	w := newTestWorld(t, 1)
	settle(t, w, chunk.Pos{})

	g := w.Generator()
	for _, xz := range [][2]int{{0, 0}, {5, 17}, {31, 31}, {-3, 12}} {
		h := g.HeightAt(xz[0], xz[1])
		p := chunk.Pos{X: xz[0], Y: h, Z: xz[1]}
		assert.Equal(t, g.SurfaceAt(xz[0], xz[1]), w.BlockAt(p), "surface at %v", p)
		assert.GreaterOrEqual(t, w.HighestSolidYAt(xz[0], xz[1]), h)
	}
}

func TestBlockAtOutsideWorld(t *testing.T) {
	w := newTestWorld(t, 1)
	settle(t, w, chunk.Pos{})

	assert.Equal(t, block.Air, w.BlockAt(chunk.Pos{Y: -1}))
	assert.Equal(t, block.Air, w.BlockAt(chunk.Pos{Y: chunk.WorldHeight}))
	assert.Equal(t, block.Air, w.BlockAt(chunk.Pos{X: 10_000, Y: 10, Z: 10_000}), "not rendered")
	assert.False(t, w.SetBlockAt(chunk.Pos{Y: chunk.WorldHeight + 3}, block.Stone))
	assert.False(t, w.SetBlockAt(chunk.Pos{X: 10_000, Y: 10, Z: 10_000}, block.Stone))
}

func TestSetBlockRoundTrip(t *testing.T) {
	w := newTestWorld(t, 1)
	settle(t, w, chunk.Pos{})

	tests := []struct {
		name string
		pos  chunk.Pos
		id   block.ID
	}{
		{"place in sky", chunk.Pos{X: 3, Y: 200, Z: 5}, block.Glass},
		{"dig underground", chunk.Pos{X: 7, Y: 10, Z: 9}, block.Air},
		{"negative column", chunk.Pos{X: -1, Y: 150, Z: 0}, block.OakLog},
		{"top of world", chunk.Pos{X: 0, Y: chunk.WorldHeight - 1, Z: 0}, block.Stone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.True(t, w.SetBlockAt(tt.pos, tt.id))
			assert.Equal(t, tt.id, w.BlockAt(tt.pos))
			assert.False(t, w.SetBlockAt(tt.pos, tt.id), "unchanged block")
		})
	}
}

func TestSetBlockRemeshesBorderingNeighbour(t *testing.T) {
	w := newTestWorld(t, 1)
	settle(t, w, chunk.Pos{})

	g := w.Generator()
	y := min(g.HeightAt(31, 5), g.HeightAt(32, 5)) - 3
	dig := chunk.Pos{X: 31, Y: y, Z: 5}
	require.True(t, w.BlockAt(dig).Solid())
	require.True(t, w.BlockAt(dig.Add(1, 0, 0)).Solid())

	east := w.lc.Rendered(chunk.ColumnOffset{X: 1}).Chunk(y >> chunk.Shift)
	before := east.Counts[cube.West].Opaque
	east.TakePending()

	require.True(t, w.SetBlockAt(dig, block.Air))
	assert.Equal(t, before+1, east.Counts[cube.West].Opaque)
	assert.NotNil(t, east.Pending)

	up := &recordingUploader{}
	w.DrainUploads(up)
	assert.Equal(t, 6, up.uploads[east.Offset])
	assert.Equal(t, 6, up.uploads[dig.Chunk()])
}

func TestFillBlocksRejectsLargeRegion(t *testing.T) {
	w := newTestWorld(t, 1)
	settle(t, w, chunk.Pos{})

	from := chunk.Pos{X: 0, Y: 150, Z: 0}
	to := chunk.Pos{X: 39, Y: 189, Z: 39}
	n, err := w.FillBlocks(from, to, block.Stone)
	assert.ErrorIs(t, err, ErrFillTooLarge)
	assert.Equal(t, 64000, n)
	assert.Equal(t, block.Air, w.BlockAt(chunk.Pos{X: 1, Y: 151, Z: 1}), "no partial fill")
}

func TestFillBlocksRejectsOverflowingRegion(t *testing.T) {
	w := newTestWorld(t, 1)
	settle(t, w, chunk.Pos{})

	tests := []struct {
		name     string
		from, to chunk.Pos
	}{
		{"product wraps to zero", chunk.Pos{}, chunk.Pos{X: 1<<32 - 1, Z: 1<<32 - 1}},
		{"extent wraps", chunk.Pos{X: math.MinInt, Y: 10}, chunk.Pos{X: math.MaxInt, Y: 10}},
		{"huge in every axis", chunk.Pos{X: math.MinInt, Y: math.MinInt, Z: math.MinInt}, chunk.Pos{X: math.MaxInt, Y: math.MaxInt, Z: math.MaxInt}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			type result struct {
				n   int
				err error
			}
			done := make(chan result, 1)
			go func() {
				n, err := w.FillBlocks(tt.from, tt.to, block.Stone)
				done <- result{n, err}
			}()
			select {
			case r := <-done:
				assert.ErrorIs(t, r.err, ErrFillTooLarge)
				assert.Equal(t, math.MaxInt, r.n)
			case <-time.After(5 * time.Second):
				t.Fatal("FillBlocks did not return")
			}
		})
	}
	assert.Equal(t, block.Air, w.BlockAt(chunk.Pos{X: 1, Y: 200, Z: 1}))
}

func TestFillBlocksAtIntLimits(t *testing.T) {
	w := newTestWorld(t, 1)
	settle(t, w, chunk.Pos{})

	done := make(chan int, 1)
	go func() {
		n, err := w.FillBlocks(chunk.Pos{X: math.MaxInt - 1, Y: 200}, chunk.Pos{X: math.MaxInt, Y: 200}, block.Stone)
		assert.NoError(t, err)
		done <- n
	}()
	select {
	case n := <-done:
		assert.Equal(t, 2, n)
	case <-time.After(5 * time.Second):
		t.Fatal("FillBlocks did not return")
	}
	assert.Equal(t, block.Air, w.BlockAt(chunk.Pos{X: -1, Y: 200}), "far positions must not alias near columns")
	assert.Equal(t, block.Air, w.BlockAt(chunk.Pos{X: math.MaxInt, Y: 200}))
}

func TestFillBlocksAcceptsExactCap(t *testing.T) {
	w := newTestWorld(t, 1)
	settle(t, w, chunk.Pos{})

	n, err := w.FillBlocks(chunk.Pos{X: 0, Y: 150, Z: 0}, chunk.Pos{X: 31, Y: 181, Z: 31}, block.Glass)
	require.NoError(t, err)
	assert.Equal(t, DefaultFillCap, n)
	assert.Equal(t, block.Glass, w.BlockAt(chunk.Pos{X: 0, Y: 150, Z: 0}))
	assert.Equal(t, block.Glass, w.BlockAt(chunk.Pos{X: 31, Y: 181, Z: 31}))
	assert.Equal(t, block.Air, w.BlockAt(chunk.Pos{X: 31, Y: 182, Z: 31}))
}

func TestBoxVolume(t *testing.T) {
	tests := []struct {
		lo, hi chunk.Pos
		want   int
	}{
		{chunk.Pos{}, chunk.Pos{}, 1},
		{chunk.Pos{X: -2, Y: 0, Z: -2}, chunk.Pos{X: 1, Y: 3, Z: 1}, 64},
		{chunk.Pos{}, chunk.Pos{X: 1<<32 - 1, Z: 1<<32 - 1}, math.MaxInt},
		{chunk.Pos{X: math.MinInt}, chunk.Pos{X: math.MaxInt}, math.MaxInt},
		{chunk.Pos{}, chunk.Pos{X: math.MaxInt - 1}, math.MaxInt},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, boxVolume(tt.lo, tt.hi), "%v..%v", tt.lo, tt.hi)
	}
}

func TestUnknownBlockRejected(t *testing.T) {
	w := newTestWorld(t, 1)
	settle(t, w, chunk.Pos{})

	p := chunk.Pos{X: 2, Y: 200, Z: 2}
	assert.False(t, w.SetBlockAt(p, block.ID(200)))
	_, err := w.FillBlocks(p, p.Add(1, 1, 1), block.ID(200))
	assert.ErrorIs(t, err, ErrUnknownBlock)
	assert.Equal(t, block.Air, w.BlockAt(p))
}

func TestEditsAreCounted(t *testing.T) {
	p := metrics.NewPipeline(nil)
	w := newTestWorldEnv(t, Env{Log: slog.New(slog.NewTextHandler(io.Discard, nil)), Metrics: p}, 1)
	settle(t, w, chunk.Pos{})

	require.True(t, w.SetBlockAt(chunk.Pos{X: 1, Y: 200, Z: 1}, block.Stone))
	_, err := w.FillBlocks(chunk.Pos{X: 4, Y: 200, Z: 4}, chunk.Pos{X: 5, Y: 201, Z: 5}, block.Glass)
	require.NoError(t, err)
	assert.Equal(t, 2.0, testutil.ToFloat64(p.DirectEdits))

	_, err = w.FillBlocks(chunk.Pos{X: 4, Y: 200, Z: 4}, chunk.Pos{X: 5, Y: 201, Z: 5}, block.Glass)
	require.NoError(t, err)
	assert.Equal(t, 2.0, testutil.ToFloat64(p.DirectEdits), "a fill that changes nothing is not an edit")
}

func TestFillBlocks(t *testing.T) {
	w := newTestWorld(t, 1)
	settle(t, w, chunk.Pos{})

	n, err := w.FillBlocks(chunk.Pos{X: 33, Y: 203, Z: 3}, chunk.Pos{X: 30, Y: 200, Z: 0}, block.Glass)
	require.NoError(t, err)
	assert.Equal(t, 64, n)
	for _, p := range []chunk.Pos{{X: 30, Y: 200, Z: 0}, {X: 33, Y: 203, Z: 3}, {X: 31, Y: 201, Z: 2}} {
		assert.Equal(t, block.Glass, w.BlockAt(p))
	}
	assert.Equal(t, block.Air, w.BlockAt(chunk.Pos{X: 34, Y: 200, Z: 0}))
}

func TestHighestSolidYAt(t *testing.T) {
	w := newTestWorld(t, 1)
	settle(t, w, chunk.Pos{})

	require.True(t, w.SetBlockAt(chunk.Pos{X: 4, Y: 250, Z: 4}, block.Stone))
	assert.Equal(t, 250, w.HighestSolidYAt(4, 4))
	assert.Equal(t, w.Generator().HeightAt(5000, -5000), w.HighestSolidYAt(5000, -5000))
}

func TestDrainUploads(t *testing.T) {
	w := newTestWorld(t, 1)
	settle(t, w, chunk.Pos{})

	up := &recordingUploader{}
	n := w.DrainUploads(up)
	assert.Equal(t, 5*chunk.Height, n, "every chunk of the rendered diamond")
	assert.Zero(t, w.DrainUploads(up), "nothing pending")

	var faces uint32
	w.ForEachRenderedChunk(func(ch *chunk.Chunk) {
		for _, c := range ch.Counts {
			faces += c.Total()
		}
	})
	assert.Equal(t, faces, up.next)
}

func TestWalkingReleasesEvictedColumns(t *testing.T) {
	w := newTestWorld(t, 1)
	settle(t, w, chunk.Pos{})
	settle(t, w, chunk.Pos{X: 6 * chunk.Size})

	up := &recordingUploader{}
	w.DrainUploads(up)
	assert.Contains(t, up.released, chunk.ColumnOffset{})
	assert.Equal(t, block.Air, w.BlockAt(chunk.Pos{Y: 10}), "origin column no longer rendered")
}

func TestUpdateRenderDistanceClamps(t *testing.T) {
	w := newTestWorld(t, 1)
	w.UpdateRenderDistance(100)
	assert.Equal(t, 4, w.RenderDistance())
	w.UpdateRenderDistance(-2)
	assert.Equal(t, 1, w.RenderDistance())
}

func TestClosedWorldRejectsEdits(t *testing.T) {
	w := newTestWorld(t, 1)
	settle(t, w, chunk.Pos{})
	w.Close()

	_, err := w.FillBlocks(chunk.Pos{}, chunk.Pos{}, block.Stone)
	assert.ErrorIs(t, err, ErrClosed)
	assert.False(t, w.SetBlockAt(chunk.Pos{X: 1, Y: 200, Z: 1}, block.Stone))
	assert.Equal(t, stream.Step{}, w.Update(chunk.Pos{}))
}
