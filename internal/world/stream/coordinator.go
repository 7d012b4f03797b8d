package stream

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/go-theft-craft/voxelcore/internal/metrics"
	"github.com/go-theft-craft/voxelcore/internal/world/chunk"
	"github.com/go-theft-craft/voxelcore/internal/world/cube"
	"github.com/go-theft-craft/voxelcore/internal/world/mesh"
)

// ErrStopped is returned by Run when the coordinator was closed.
var ErrStopped = errors.New("generation stopped")

// Generator fills a freshly reset column with terrain.
type Generator interface {
	Generate(col *chunk.Column)
}

// Phase is the state of the generation side.
type Phase int32

const (
	PhaseIdle Phase = iota
	PhaseScan
	PhaseAwaitCommit
	PhaseMesh
	PhaseAwaitIntegrate
	PhaseStopped
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseScan:
		return "scan"
	case PhaseAwaitCommit:
		return "await-commit"
	case PhaseMesh:
		return "mesh"
	case PhaseAwaitIntegrate:
		return "await-integrate"
	case PhaseStopped:
		return "stopped"
	}
	return fmt.Sprintf("Phase(%d)", int32(p))
}

type commandKind uint8

const (
	cmdBegin commandKind = iota
	cmdProceed
)

// command travels from the render thread to the generation side.
type command struct {
	kind   commandKind
	center chunk.ColumnOffset
}

type reportKind uint8

const (
	reportCommit reportKind = iota
	reportIntegrate
)

// report travels from the generation side to the render thread.
type report struct {
	kind  reportKind
	plan  *Plan
	cycle *Cycle
}

// Cycle summarises the second half of a generation cycle.
type Cycle struct {
	Plan    *Plan
	Evicted []chunk.ColumnOffset
	Blocked []chunk.ColumnOffset
	// Meshed lists the columns whose chunks received a new mesh.
	Meshed []*chunk.Column
	Chunks int
	Faces  int
	// Adopted lists the chunks whose staged mesh was taken at integration.
	Adopted []*chunk.Chunk
}

// Step reports what Update did on the render thread.
type Step struct {
	Started   bool
	Committed *Plan
	Finished  *Cycle
}

// Options configures a Coordinator.
type Options struct {
	Distance int
	Margin   int
	Workers  int
	// Edits is held for reading while a chunk is meshed. The render thread
	// holds the matching write lock while it edits blocks.
	Edits   sync.Locker
	Metrics *metrics.Pipeline
}

// Coordinator runs the generation side of the world and hands its results to
// the render thread in two steps per cycle:
//
//	scan -> commit (render thread) -> mesh -> integrate (render thread)
//
// Reports are handed over on an unbuffered channel, so the generation side
// stays in the matching await phase until the render thread takes them. It
// then blocks on the begin channel, so the render thread may mutate the
// rendered map and adopt meshes without further locking.
type Coordinator struct {
	log     *slog.Logger
	lc      *Lifecycle
	gen     Generator
	mesher  *mesh.Mesher
	workers int
	edits   sync.Locker
	metrics *metrics.Pipeline

	begin chan command // render thread -> generation, buffered by one
	ready chan report  // generation -> render thread, unbuffered

	phase     atomic.Int32
	distance  atomic.Int32
	requested atomic.Bool
	active    atomic.Bool

	cancel context.CancelFunc
	done   chan struct{}

	// Render thread state.
	busy   bool
	cycles uint64
}

// NewCoordinator returns a coordinator that has not started yet.
func NewCoordinator(log *slog.Logger, gen Generator, mesher *mesh.Mesher, opts Options) *Coordinator {
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers()
	}
	if opts.Edits == nil {
		opts.Edits = new(sync.RWMutex).RLocker()
	}
	c := &Coordinator{
		log:     log,
		lc:      NewLifecycle(opts.Margin),
		gen:     gen,
		mesher:  mesher,
		workers: opts.Workers,
		edits:   opts.Edits,
		metrics: opts.Metrics,
		begin:   make(chan command, 1),
		ready:   make(chan report),
		done:    make(chan struct{}),
	}
	c.distance.Store(int32(max(opts.Distance, 0)))
	return c
}

// Lifecycle returns the column maps.
func (c *Coordinator) Lifecycle() *Lifecycle {
	return c.lc
}

// Phase returns the current state of the generation side.
func (c *Coordinator) Phase() Phase {
	return Phase(c.phase.Load())
}

// Distance returns the render distance the next scan will use.
func (c *Coordinator) Distance() int {
	return int(c.distance.Load())
}

// SetDistance changes the render distance. Changes made while a cycle runs are
// coalesced and take effect at the next scan, which is requested here.
func (c *Coordinator) SetDistance(n int) {
	if old := c.distance.Swap(int32(max(n, 0))); int(old) != n {
		c.requested.Store(true)
	}
}

// Signal asks for a generation cycle at the next opportunity.
func (c *Coordinator) Signal() {
	c.requested.Store(true)
}

// Start launches the generation side. It returns immediately.
func (c *Coordinator) Start(ctx context.Context) {
	ctx, c.cancel = context.WithCancel(ctx)
	c.active.Store(true)
	go func() {
		err := c.Run(ctx)
		if err != nil && !errors.Is(err, ErrStopped) {
			c.log.Error("generation failed", "error", err)
		}
	}()
}

// Close stops the generation side and waits for it. Half-finished cycles are
// discarded.
func (c *Coordinator) Close() {
	if !c.active.Swap(false) {
		return
	}
	c.cancel()
	<-c.done
}

// Run is the generation loop. It returns ErrStopped once ctx is done.
func (c *Coordinator) Run(ctx context.Context) error {
	defer close(c.done)
	defer c.setPhase(PhaseStopped)

	for {
		c.setPhase(PhaseIdle)
		cmd, err := c.receive(ctx, cmdBegin)
		if err != nil {
			return err
		}

		c.setPhase(PhaseScan)
		plan, err := c.scan(ctx, cmd.center)
		if err != nil {
			return err
		}

		c.setPhase(PhaseAwaitCommit)
		if err := c.send(ctx, report{kind: reportCommit, plan: plan}); err != nil {
			return err
		}
		if _, err := c.receive(ctx, cmdProceed); err != nil {
			return err
		}

		c.setPhase(PhaseMesh)
		cycle, err := c.meshPhase(ctx, plan)
		if err != nil {
			return err
		}

		c.setPhase(PhaseAwaitIntegrate)
		if err := c.send(ctx, report{kind: reportIntegrate, cycle: cycle}); err != nil {
			return err
		}
	}
}

func (c *Coordinator) setPhase(p Phase) {
	c.phase.Store(int32(p))
}

func (c *Coordinator) receive(ctx context.Context, want commandKind) (command, error) {
	select {
	case <-ctx.Done():
		return command{}, ErrStopped
	case cmd := <-c.begin:
		if cmd.kind != want {
			panic(fmt.Sprintf("stream: got command %d, want %d", cmd.kind, want))
		}
		return cmd, nil
	}
}

func (c *Coordinator) send(ctx context.Context, r report) error {
	select {
	case <-ctx.Done():
		return ErrStopped
	case c.ready <- r:
		return nil
	}
}

// scan creates the missing columns around center and plans the map moves.
func (c *Coordinator) scan(ctx context.Context, center chunk.ColumnOffset) (*Plan, error) {
	defer c.metrics.ObservePhase("scan", time.Now())

	plan := &Plan{Center: center, Distance: c.Distance()}
	var cols []*chunk.Column
	for _, off := range c.lc.Missing(center, plan.Distance) {
		col, err := c.lc.Reserve(off)
		if err != nil {
			c.log.Warn("skip column", "column", off, "error", err)
			continue
		}
		col.Regenerating = true
		cols = append(cols, col)
		plan.Generated = append(plan.Generated, off)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.workers)
	for _, col := range cols {
		col := col
		g.Go(func() error {
			if gctx.Err() != nil {
				return ErrStopped
			}
			c.gen.Generate(col)
			col.Regenerating = false
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if ctx.Err() != nil {
		return nil, ErrStopped
	}

	c.lc.PlanMoves(plan)
	return plan, nil
}

// meshPhase evicts far columns and meshes every chunk touched by the commit.
func (c *Coordinator) meshPhase(ctx context.Context, plan *Plan) (*Cycle, error) {
	defer c.metrics.ObservePhase("mesh", time.Now())

	cycle := &Cycle{Plan: plan}
	cycle.Evicted, cycle.Blocked = c.lc.Evict(plan.Center, plan.Distance)
	cycle.Meshed = c.affected(plan)

	var faces atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.workers)
	for _, col := range cycle.Meshed {
		for y := range col.Chunks {
			ch := &col.Chunks[y]
			g.Go(func() error {
				if gctx.Err() != nil {
					return ErrStopped
				}
				faces.Add(int64(c.meshChunk(ch)))
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if ctx.Err() != nil {
		return nil, ErrStopped
	}
	cycle.Chunks = len(cycle.Meshed) * chunk.Height
	cycle.Faces = int(faces.Load())
	return cycle, nil
}

func (c *Coordinator) meshChunk(ch *chunk.Chunk) int {
	c.edits.Lock()
	defer c.edits.Unlock()

	n := c.lc.Neighbors(ch.Offset)
	res := c.mesher.MeshChunk(ch.Offset, &ch.Store, &n)
	ch.Stage(res.Counts, res.Faces, ch.EditSeq())
	return res.Total()
}

// affected returns the promoted columns and their rendered horizontal
// neighbours, whose border faces may change.
func (c *Coordinator) affected(plan *Plan) []*chunk.Column {
	seen := make(map[int64]struct{})
	var out []*chunk.Column
	add := func(off chunk.ColumnOffset) {
		if _, ok := seen[off.Key()]; ok {
			return
		}
		col := c.lc.Rendered(off)
		if col == nil {
			return
		}
		seen[off.Key()] = struct{}{}
		out = append(out, col)
	}
	for _, off := range plan.Promote {
		add(off)
	}
	for _, off := range plan.Promote {
		for _, f := range cube.Faces {
			dx, dy, dz := f.Offset()
			if dy != 0 {
				continue
			}
			add(off.Add(dx, dz))
		}
	}
	return out
}

// Update advances the handshake from the render thread. It commits a ready
// plan, integrates finished meshes, or starts a new cycle around center when
// one was requested and the generation side is idle. It never blocks.
func (c *Coordinator) Update(center chunk.ColumnOffset) Step {
	var step Step
	if !c.active.Load() {
		return step
	}

	select {
	case r := <-c.ready:
		switch r.kind {
		case reportCommit:
			start := time.Now()
			c.lc.Commit(r.plan)
			c.metrics.ObservePhase("commit", start)
			c.begin <- command{kind: cmdProceed}
			step.Committed = r.plan
		case reportIntegrate:
			start := time.Now()
			c.integrate(r.cycle)
			c.metrics.ObservePhase("integrate", start)
			c.busy = false
			c.cycles++
			step.Finished = r.cycle
		}
		return step
	default:
	}

	if !c.busy && c.requested.Swap(false) {
		c.busy = true
		c.begin <- command{kind: cmdBegin, center: center}
		step.Started = true
	}
	return step
}

// Busy reports whether a cycle started by Update has not been integrated yet.
// Render thread only.
func (c *Coordinator) Busy() bool {
	return c.busy
}

// Cycles returns the number of integrated cycles. Render thread only.
func (c *Coordinator) Cycles() uint64 {
	return c.cycles
}

func (c *Coordinator) integrate(cy *Cycle) {
	for _, col := range cy.Meshed {
		for y := range col.Chunks {
			ch := &col.Chunks[y]
			if ch.Adopt() {
				cy.Adopted = append(cy.Adopted, ch)
			}
		}
	}

	p := cy.Plan
	rendered, reserved := c.lc.Sizes()
	c.metrics.CycleDone()
	c.metrics.Transitions(len(p.Generated), len(p.Promote), len(p.Demote), len(cy.Evicted), len(cy.Blocked))
	c.metrics.Meshed(cy.Chunks, cy.Faces)
	c.metrics.SetMapSizes(rendered, reserved)

	c.log.Debug("generation cycle done",
		"center", p.Center,
		"distance", p.Distance,
		"generated", len(p.Generated),
		"promoted", len(p.Promote),
		"demoted", len(p.Demote),
		"evicted", len(cy.Evicted),
		"blocked", len(cy.Blocked),
		"faces", cy.Faces,
	)
}
