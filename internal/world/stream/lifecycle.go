package stream

import (
	"fmt"
	"slices"

	"github.com/go-theft-craft/voxelcore/internal/world/chunk"
	"github.com/go-theft-craft/voxelcore/internal/world/cube"
	"github.com/go-theft-craft/voxelcore/internal/world/mesh"
)

// Plan is the outcome of a scan: the columns to move between the maps at the
// next commit.
type Plan struct {
	Center   chunk.ColumnOffset
	Distance int

	// Generated lists columns created during the scan. They start reserved.
	Generated []chunk.ColumnOffset
	// Promote lists reserved columns that enter render distance.
	Promote []chunk.ColumnOffset
	// Demote lists rendered columns that left render distance.
	Demote []chunk.ColumnOffset
}

// Transitions returns the number of map changes the plan causes.
func (p *Plan) Transitions() int {
	return len(p.Generated) + len(p.Promote) + len(p.Demote)
}

// Lifecycle tracks which columns exist and whether they are drawn.
//
// Every column lives in exactly one of two maps. Rendered columns are drawn
// and may be read and edited by the render thread. Reserved columns are kept
// for meshing neighbours or because a structure anchored in them still
// reaches into render distance; only the generation side touches them.
//
// The rendered map is mutated only by Commit, which runs on the render thread
// while the generation side waits. Everything else runs on the generation side.
type Lifecycle struct {
	arena    *Arena
	rendered *ColumnMap
	reserved *ColumnMap
	margin   int
}

// NewLifecycle returns an empty lifecycle. margin is the number of extra
// column rings generated beyond render distance and must be at least 1 so
// that rendered border chunks are meshed against real neighbours.
func NewLifecycle(margin int) *Lifecycle {
	return &Lifecycle{
		arena:    NewArena(),
		rendered: NewColumnMap(256),
		reserved: NewColumnMap(256),
		margin:   max(margin, 1),
	}
}

// Margin returns the generation margin.
func (l *Lifecycle) Margin() int {
	return l.margin
}

// Rendered returns the rendered column at off, or nil.
func (l *Lifecycle) Rendered(off chunk.ColumnOffset) *chunk.Column {
	s, ok := l.rendered.Get(off)
	if !ok {
		return nil
	}
	return l.arena.At(s)
}

// Column returns the column at off from either map, or nil. Generation side
// only.
func (l *Lifecycle) Column(off chunk.ColumnOffset) *chunk.Column {
	if s, ok := l.rendered.Get(off); ok {
		return l.arena.At(s)
	}
	if s, ok := l.reserved.Get(off); ok {
		return l.arena.At(s)
	}
	return nil
}

// IsRendered reports whether off is in the rendered map.
func (l *Lifecycle) IsRendered(off chunk.ColumnOffset) bool {
	return l.rendered.Has(off)
}

// IsReserved reports whether off is in the reserved map. Generation side only.
func (l *Lifecycle) IsReserved(off chunk.ColumnOffset) bool {
	return l.reserved.Has(off)
}

// RenderedColumns returns every rendered column ordered by offset key.
func (l *Lifecycle) RenderedColumns() []*chunk.Column {
	entries := l.rendered.Entries()
	out := make([]*chunk.Column, len(entries))
	for i, e := range entries {
		out[i] = l.arena.At(e.Slot)
	}
	return out
}

// Sizes returns the number of rendered and reserved columns.
func (l *Lifecycle) Sizes() (rendered, reserved int) {
	return l.rendered.Len(), l.reserved.Len()
}

// Missing returns the offsets within distance+margin of center that have no
// column yet, nearest first.
func (l *Lifecycle) Missing(center chunk.ColumnOffset, distance int) []chunk.ColumnOffset {
	var out []chunk.ColumnOffset
	reach := distance + l.margin
	for r := 0; r <= reach; r++ {
		forRing(center, r, func(off chunk.ColumnOffset) {
			if !l.rendered.Has(off) && !l.reserved.Has(off) {
				out = append(out, off)
			}
		})
	}
	return out
}

// Reserve allocates an empty column at off and inserts it into the reserved
// map.
func (l *Lifecycle) Reserve(off chunk.ColumnOffset) (*chunk.Column, error) {
	if l.rendered.Has(off) || l.reserved.Has(off) {
		return nil, fmt.Errorf("reserve column %v: already present", off)
	}
	s, col, err := l.arena.Alloc(off)
	if err != nil {
		return nil, fmt.Errorf("reserve column %v: %w", off, err)
	}
	l.reserved.Put(off, s)
	return col, nil
}

// PlanMoves fills the promote and demote lists of p from its center and
// distance. Columns still being generated are never promoted.
func (l *Lifecycle) PlanMoves(p *Plan) {
	for _, e := range l.reserved.Entries() {
		if l.arena.At(e.Slot).Regenerating {
			continue
		}
		if e.Offset.Distance(p.Center) <= p.Distance {
			p.Promote = append(p.Promote, e.Offset)
		}
	}
	for _, e := range l.rendered.Entries() {
		if e.Offset.Distance(p.Center) > p.Distance {
			p.Demote = append(p.Demote, e.Offset)
		}
	}
	byDistance(p.Center, p.Promote)
	byDistance(p.Center, p.Demote)
}

// Commit applies the moves of p. It runs on the render thread while the
// generation side is blocked.
func (l *Lifecycle) Commit(p *Plan) {
	for _, off := range p.Demote {
		if s, ok := l.rendered.Get(off); ok {
			l.rendered.Delete(off)
			l.reserved.Put(off, s)
		}
	}
	for _, off := range p.Promote {
		if s, ok := l.reserved.Get(off); ok {
			l.reserved.Delete(off)
			l.rendered.Put(off, s)
		}
	}
}

// Evict frees reserved columns beyond distance+margin of center. A column is
// kept while any structure anchored in it overlaps a column within render
// distance; those are returned as blocked.
func (l *Lifecycle) Evict(center chunk.ColumnOffset, distance int) (evicted, blocked []chunk.ColumnOffset) {
	reach := distance + l.margin
	for _, e := range l.reserved.Entries() {
		if e.Offset.Distance(center) <= reach {
			continue
		}
		if l.footprintVisible(l.arena.At(e.Slot), center, distance) {
			blocked = append(blocked, e.Offset)
			continue
		}
		l.reserved.Delete(e.Offset)
		l.arena.Free(e.Slot)
		evicted = append(evicted, e.Offset)
	}
	return evicted, blocked
}

func (l *Lifecycle) footprintVisible(col *chunk.Column, center chunk.ColumnOffset, distance int) bool {
	visible := false
	col.ForEachFootprint(func(anchor chunk.Offset, f chunk.Footprint) {
		if visible {
			return
		}
		lo, hi := f.Bounds(anchor)
		a, b := lo.Column(), hi.Column()
		for x := a.X; x <= b.X; x++ {
			for z := a.Z; z <= b.Z; z++ {
				if (chunk.ColumnOffset{X: x, Z: z}).Distance(center) <= distance {
					visible = true
					return
				}
			}
		}
	})
	return visible
}

// Neighbors returns the stores around chunk at, looking in both maps.
// Generation side only.
func (l *Lifecycle) Neighbors(at chunk.Offset) mesh.Neighbors {
	return neighbors(at, l.Column)
}

// RenderedNeighbors returns the stores around chunk at, looking only at
// rendered columns. Safe on the render thread.
func (l *Lifecycle) RenderedNeighbors(at chunk.Offset) mesh.Neighbors {
	return neighbors(at, l.Rendered)
}

func neighbors(at chunk.Offset, lookup func(chunk.ColumnOffset) *chunk.Column) mesh.Neighbors {
	var n mesh.Neighbors
	for _, f := range cube.Faces {
		dx, dy, dz := f.Offset()
		y := int(at.Y) + dy
		if y < 0 || y >= chunk.Height {
			continue
		}
		col := lookup(at.ColumnOffset.Add(dx, dz))
		if col == nil {
			continue
		}
		n[f] = &col.Chunks[y].Store
	}
	return n
}

// forRing calls fn for every offset at exactly Manhattan distance r of c.
func forRing(c chunk.ColumnOffset, r int, fn func(chunk.ColumnOffset)) {
	if r == 0 {
		fn(c)
		return
	}
	for i := 0; i < r; i++ {
		fn(c.Add(i, r-i))
		fn(c.Add(r-i, -i))
		fn(c.Add(-i, -(r - i)))
		fn(c.Add(-(r - i), i))
	}
}

func byDistance(center chunk.ColumnOffset, offs []chunk.ColumnOffset) {
	slices.SortStableFunc(offs, func(a, b chunk.ColumnOffset) int {
		return a.Distance(center) - b.Distance(center)
	})
}
