package world

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/bits"
	"sync"

	"github.com/google/uuid"

	"github.com/go-theft-craft/voxelcore/internal/metrics"
	"github.com/go-theft-craft/voxelcore/internal/world/block"
	"github.com/go-theft-craft/voxelcore/internal/world/chunk"
	"github.com/go-theft-craft/voxelcore/internal/world/cube"
	"github.com/go-theft-craft/voxelcore/internal/world/gen"
	"github.com/go-theft-craft/voxelcore/internal/world/mesh"
	"github.com/go-theft-craft/voxelcore/internal/world/stream"
)

var (
	// ErrFillTooLarge is returned by FillBlocks for regions above the fill cap.
	ErrFillTooLarge = errors.New("fill region too large")
	// ErrClosed is returned by operations on a closed world.
	ErrClosed = errors.New("world closed")
	// ErrUnknownBlock is returned for block ids missing from the block table.
	ErrUnknownBlock = errors.New("unknown block")
)

// DefaultFillCap is the largest region FillBlocks accepts by default.
const DefaultFillCap = chunk.Volume

// Env carries the process-wide collaborators handed to a world.
type Env struct {
	Log     *slog.Logger
	Metrics *metrics.Pipeline
}

// Options configure a World.
type Options struct {
	Seed        int64
	Settings    gen.Settings
	Distance    int
	MaxDistance int
	Margin      int
	Workers     int
	FillCap     int
}

// Uploader receives finished face buffers for the GPU.
type Uploader interface {
	// Upload stores the faces of one direction of the chunk at and returns the
	// index of its first element in the packed buffer.
	Upload(at chunk.Offset, f cube.Face, faces []uint32) uint32
	// Release drops every buffer of the column.
	Release(col chunk.ColumnOffset)
}

// World is the render thread's view of the streamed world. Apart from
// Generator, its methods must be called from a single goroutine.
type World struct {
	id      uuid.UUID
	log     *slog.Logger
	metrics *metrics.Pipeline

	gen    *gen.Generator
	mesher *mesh.Mesher
	coord  *stream.Coordinator
	lc     *stream.Lifecycle

	// edits is write-locked while blocks of rendered chunks change.
	edits sync.RWMutex

	maxDistance int
	fillCap     int
	center      chunk.ColumnOffset
	placed      bool
	closed      bool

	dirty    []chunk.Offset
	dirtySet map[chunk.Offset]struct{}
	released []chunk.ColumnOffset
}

// New builds the generator and the streaming pipeline. The generation side
// does not run until Start.
func New(env Env, opts Options) (*World, error) {
	g, err := gen.New(opts.Seed, opts.Settings)
	if err != nil {
		return nil, err
	}
	if opts.FillCap <= 0 {
		opts.FillCap = DefaultFillCap
	}
	if opts.MaxDistance <= 0 {
		opts.MaxDistance = max(opts.Distance, 1)
	}

	id := uuid.New()
	log := env.Log.With("world", id.String())
	w := &World{
		id:          id,
		log:         log,
		metrics:     env.Metrics,
		gen:         g,
		mesher:      mesh.NewMesher(log.With("component", "mesher")),
		maxDistance: opts.MaxDistance,
		fillCap:     opts.FillCap,
		dirtySet:    make(map[chunk.Offset]struct{}),
	}
	w.coord = stream.NewCoordinator(log.With("component", "generation"), g, w.mesher, stream.Options{
		Distance: clamp(opts.Distance, 1, opts.MaxDistance),
		Margin:   opts.Margin,
		Workers:  opts.Workers,
		Edits:    w.edits.RLocker(),
		Metrics:  env.Metrics,
	})
	w.lc = w.coord.Lifecycle()
	return w, nil
}

// ID returns the instance id used in log records.
func (w *World) ID() uuid.UUID {
	return w.id
}

// Generator returns the terrain generator.
func (w *World) Generator() *gen.Generator {
	return w.gen
}

// RenderDistance returns the render distance of the next generation cycle.
func (w *World) RenderDistance() int {
	return w.coord.Distance()
}

// Start launches the generation side and requests the first cycle.
func (w *World) Start(ctx context.Context) {
	w.log.Info("world started", "seed", w.gen.Seed(), "render_distance", w.coord.Distance())
	w.coord.Start(ctx)
	w.coord.Signal()
}

// Close stops the generation side. Later edits are ignored.
func (w *World) Close() {
	if w.closed {
		return
	}
	w.closed = true
	w.coord.Close()
	w.log.Info("world stopped")
}

// Update advances streaming for a player standing at p. A new cycle is
// requested whenever the player enters another column.
func (w *World) Update(p chunk.Pos) stream.Step {
	if w.closed {
		return stream.Step{}
	}
	if center := p.Column(); !w.placed || center != w.center {
		w.center = center
		w.placed = true
		w.coord.Signal()
	}

	step := w.coord.Update(w.center)
	if cy := step.Finished; cy != nil {
		for _, ch := range cy.Adopted {
			w.markDirty(ch.Offset)
		}
		w.released = append(w.released, cy.Evicted...)
	}
	return step
}

// UpdateRenderDistance changes the render distance, clamped to [1, max]. The
// change applies from the next generation cycle.
func (w *World) UpdateRenderDistance(n int) {
	w.coord.SetDistance(clamp(n, 1, w.maxDistance))
}

// SignalGenerationCycle requests a generation cycle at the next Update.
func (w *World) SignalGenerationCycle() {
	w.coord.Signal()
}

// BlockAt returns the block at p. Positions outside rendered columns or the
// vertical range read as air.
func (w *World) BlockAt(p chunk.Pos) block.ID {
	if !p.Addressable() {
		return block.Air
	}
	col := w.lc.Rendered(p.Column())
	if col == nil {
		return block.Air
	}
	x, _, z := p.Local()
	return col.Block(x, p.Y, z)
}

// SetBlockAt replaces the block at p and remeshes the affected chunks at once.
// It reports whether the world changed; positions outside rendered columns or
// the vertical range are ignored, and so are unknown block ids.
func (w *World) SetBlockAt(p chunk.Pos, id block.ID) bool {
	if w.closed || !id.Valid() || !p.InBounds() || !p.Addressable() {
		return false
	}
	col := w.lc.Rendered(p.Column())
	if col == nil {
		return false
	}
	x, _, z := p.Local()
	if col.Block(x, p.Y, z) == id {
		return false
	}

	targets := make(map[chunk.Offset]*chunk.Chunk)
	w.edits.Lock()
	col.SetBlock(x, p.Y, z, id)
	w.collectTargets(p, targets)
	for _, ch := range targets {
		ch.MarkEdited()
	}
	w.edits.Unlock()

	w.remesh(targets)
	w.metrics.DirectEdit()
	return true
}

// FillBlocks sets every block of the inclusive box between from and to. It
// returns the number of positions in the box, saturated at math.MaxInt. Boxes
// larger than the fill cap are rejected whole with ErrFillTooLarge.
func (w *World) FillBlocks(from, to chunk.Pos, id block.ID) (int, error) {
	if w.closed {
		return 0, ErrClosed
	}
	if !id.Valid() {
		return 0, fmt.Errorf("fill blocks: %w: %d", ErrUnknownBlock, id)
	}
	lo := chunk.Pos{X: min(from.X, to.X), Y: min(from.Y, to.Y), Z: min(from.Z, to.Z)}
	hi := chunk.Pos{X: max(from.X, to.X), Y: max(from.Y, to.Y), Z: max(from.Z, to.Z)}
	count := boxVolume(lo, hi)
	if count > w.fillCap {
		w.log.Debug("fill rejected", "from", lo, "to", hi, "count", count, "cap", w.fillCap)
		return count, ErrFillTooLarge
	}

	// Every extent is at most the fill cap here, so offsets cannot overflow.
	ex, ez := hi.X-lo.X+1, hi.Z-lo.Z+1
	ylo, yhi := max(lo.Y, 0), min(hi.Y, chunk.WorldHeight-1)

	targets := make(map[chunk.Offset]*chunk.Chunk)
	w.edits.Lock()
	for dx := 0; dx < ex; dx++ {
		for dz := 0; dz < ez; dz++ {
			base := chunk.Pos{X: lo.X + dx, Z: lo.Z + dz}
			if !base.Addressable() {
				continue
			}
			col := w.lc.Rendered(base.Column())
			if col == nil {
				continue
			}
			lx, _, lz := base.Local()
			for y := ylo; y <= yhi; y++ {
				if col.Block(lx, y, lz) == id {
					continue
				}
				col.SetBlock(lx, y, lz, id)
				w.collectTargets(chunk.Pos{X: base.X, Y: y, Z: base.Z}, targets)
			}
		}
	}
	for _, ch := range targets {
		ch.MarkEdited()
	}
	w.edits.Unlock()

	w.remesh(targets)
	if len(targets) > 0 {
		w.metrics.DirectEdit()
	}
	return count, nil
}

// boxVolume returns the number of positions in the inclusive box lo..hi,
// saturated at math.MaxInt.
func boxVolume(lo, hi chunk.Pos) int {
	vol := uint64(1)
	for _, e := range [3][2]int{{lo.X, hi.X}, {lo.Y, hi.Y}, {lo.Z, hi.Z}} {
		ext, carry := bits.Add64(uint64(e[1])-uint64(e[0]), 1, 0)
		if carry != 0 {
			return math.MaxInt
		}
		h, l := bits.Mul64(vol, ext)
		if h != 0 || l > math.MaxInt {
			return math.MaxInt
		}
		vol = l
	}
	return int(vol)
}

// HighestSolidYAt returns the Y of the highest solid block in the column
// through (x, z), or -1 when it has none. Columns that are not rendered fall
// back to the generated terrain height.
func (w *World) HighestSolidYAt(x, z int) int {
	p := chunk.Pos{X: x, Z: z}
	col := w.lc.Rendered(p.Column())
	if col == nil {
		return w.gen.HeightAt(x, z)
	}
	lx, _, lz := p.Local()
	for y := chunk.WorldHeight - 1; y >= 0; y-- {
		if col.Block(lx, y, lz).Solid() {
			return y
		}
	}
	return -1
}

// ForEachRenderedChunk calls fn for every chunk of every rendered column.
func (w *World) ForEachRenderedChunk(fn func(ch *chunk.Chunk)) {
	for _, col := range w.lc.RenderedColumns() {
		for y := range col.Chunks {
			fn(&col.Chunks[y])
		}
	}
}

// DrainUploads hands every pending face buffer to u and records where it was
// placed. Buffers of evicted columns are released first.
func (w *World) DrainUploads(u Uploader) int {
	for _, off := range w.released {
		u.Release(off)
	}
	w.released = w.released[:0]

	n := 0
	for _, off := range w.dirty {
		delete(w.dirtySet, off)
		col := w.lc.Rendered(off.ColumnOffset)
		if col == nil {
			continue
		}
		ch := col.Chunk(int(off.Y))
		faces := ch.TakePending()
		if faces == nil {
			continue
		}
		for _, f := range cube.Faces {
			ch.Base[f] = u.Upload(ch.Offset, f, faces[f])
		}
		n++
	}
	w.dirty = w.dirty[:0]
	return n
}

// collectTargets adds the chunk holding p and every rendered neighbour chunk
// whose faces border p.
func (w *World) collectTargets(p chunk.Pos, targets map[chunk.Offset]*chunk.Chunk) {
	add := func(q chunk.Pos) {
		if !q.InBounds() || !q.Addressable() {
			return
		}
		off := q.Chunk()
		if _, ok := targets[off]; ok {
			return
		}
		col := w.lc.Rendered(off.ColumnOffset)
		if col == nil {
			return
		}
		targets[off] = col.Chunk(int(off.Y))
	}
	add(p)
	x, y, z := p.Local()
	for _, f := range cube.Faces {
		dx, dy, dz := f.Offset()
		if onBorder(x, dx) || onBorder(y, dy) || onBorder(z, dz) {
			add(p.Add(dx, dy, dz))
		}
	}
}

func onBorder(v, d int) bool {
	return (d < 0 && v == 0) || (d > 0 && v == chunk.Size-1)
}

func (w *World) remesh(targets map[chunk.Offset]*chunk.Chunk) {
	for off, ch := range targets {
		n := w.lc.RenderedNeighbors(off)
		res := w.mesher.MeshChunk(off, &ch.Store, &n)
		ch.Apply(res.Counts, res.Faces)
		w.markDirty(off)
	}
}

func (w *World) markDirty(off chunk.Offset) {
	if _, ok := w.dirtySet[off]; ok {
		return
	}
	w.dirtySet[off] = struct{}{}
	w.dirty = append(w.dirty, off)
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}
