package stream

import (
	"errors"

	"github.com/go-theft-craft/voxelcore/internal/world/chunk"
)

const (
	pageSize = 64
	maxPages = 4096
)

// ErrArenaFull is returned when every column slot is in use.
var ErrArenaFull = errors.New("column arena full")

// Slot addresses a column in an Arena.
type Slot int32

// Arena owns the storage of every column. Columns never move once allocated,
// so a *chunk.Column stays valid until its slot is freed. Pages are only
// added, never replaced, which lets the render thread read columns it was
// handed while the generation thread allocates others.
//
// Alloc and Free must only be called by the generation side.
type Arena struct {
	pages [maxPages]*[pageSize]chunk.Column
	next  Slot
	free  []Slot
	live  int
}

// NewArena returns an empty arena.
func NewArena() *Arena {
	return &Arena{}
}

// Alloc hands out a reset column at off.
func (a *Arena) Alloc(off chunk.ColumnOffset) (Slot, *chunk.Column, error) {
	var s Slot
	if n := len(a.free); n > 0 {
		s = a.free[n-1]
		a.free = a.free[:n-1]
	} else {
		if int(a.next) >= maxPages*pageSize {
			return 0, nil, ErrArenaFull
		}
		s = a.next
		a.next++
		if a.pages[s/pageSize] == nil {
			a.pages[s/pageSize] = new([pageSize]chunk.Column)
		}
	}
	col := a.At(s)
	col.Reset(off)
	a.live++
	return s, col, nil
}

// At returns the column in slot s.
func (a *Arena) At(s Slot) *chunk.Column {
	return &a.pages[s/pageSize][s%pageSize]
}

// Free releases slot s and drops its block storage.
func (a *Arena) Free(s Slot) {
	a.At(s).Reset(chunk.ColumnOffset{})
	a.free = append(a.free, s)
	a.live--
}

// Live returns the number of allocated columns.
func (a *Arena) Live() int {
	return a.live
}
