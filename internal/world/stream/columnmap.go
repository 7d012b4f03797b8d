package stream

import (
	"slices"

	"github.com/brentp/intintmap"

	"github.com/go-theft-craft/voxelcore/internal/world/chunk"
)

// ColumnMap maps column offsets to arena slots. It is not safe for concurrent
// mutation; concurrent Get calls are fine while nobody writes.
type ColumnMap struct {
	m *intintmap.Map
}

// NewColumnMap returns a map sized for capacity columns.
func NewColumnMap(capacity int) *ColumnMap {
	return &ColumnMap{m: intintmap.New(max(capacity, 16), 0.6)}
}

// Get returns the slot of off.
func (c *ColumnMap) Get(off chunk.ColumnOffset) (Slot, bool) {
	v, ok := c.m.Get(off.Key())
	return Slot(v), ok
}

// Has reports whether off is present.
func (c *ColumnMap) Has(off chunk.ColumnOffset) bool {
	_, ok := c.m.Get(off.Key())
	return ok
}

// Put stores slot s under off.
func (c *ColumnMap) Put(off chunk.ColumnOffset, s Slot) {
	c.m.Put(off.Key(), int64(s))
}

// Delete removes off.
func (c *ColumnMap) Delete(off chunk.ColumnOffset) {
	c.m.Del(off.Key())
}

// Len returns the number of columns.
func (c *ColumnMap) Len() int {
	return c.m.Size()
}

// Entry is one offset/slot pair of a ColumnMap.
type Entry struct {
	Offset chunk.ColumnOffset
	Slot   Slot
}

// Entries returns every pair, ordered by offset key.
func (c *ColumnMap) Entries() []Entry {
	out := make([]Entry, 0, c.m.Size())
	for kv := range c.m.Items() {
		out = append(out, Entry{Offset: chunk.ColumnOffsetFromKey(kv[0]), Slot: Slot(kv[1])})
	}
	slices.SortFunc(out, func(a, b Entry) int {
		ka, kb := a.Offset.Key(), b.Offset.Key()
		switch {
		case ka < kb:
			return -1
		case ka > kb:
			return 1
		}
		return 0
	})
	return out
}
