package chunk

import "github.com/go-theft-craft/voxelcore/internal/world/block"

// StoreKind is the storage variant of a Store.
type StoreKind uint8

const (
	// StoreAir holds no allocation; every read returns block.Air.
	StoreAir StoreKind = iota
	// StoreFull holds a dense array of Volume blocks.
	StoreFull
	// StoreCompressed is reserved for a palette-compressed variant. No code
	// constructs it and reads from it return block.Air.
	StoreCompressed
)

func (k StoreKind) String() string {
	switch k {
	case StoreAir:
		return "air"
	case StoreFull:
		return "full"
	case StoreCompressed:
		return "compressed"
	default:
		return "unknown"
	}
}

// Store holds the blocks of one chunk. The zero value is an Air store. A Store
// is promoted to Full on the first non-air write and never demoted.
type Store struct {
	kind   StoreKind
	blocks *[Volume]block.ID
	// filled counts non-air blocks in a Full store.
	filled int
}

var empty Store

// Empty returns the shared all-air store substituted for missing neighbors.
// It must never be written to.
func Empty() *Store {
	return &empty
}

// Kind returns the storage variant.
func (s *Store) Kind() StoreKind {
	return s.kind
}

// Get returns the block at local (x, y, z).
func (s *Store) Get(x, y, z int) block.ID {
	return s.At(Index(x, y, z))
}

// At returns the block at linear index i.
func (s *Store) At(i int) block.ID {
	switch s.kind {
	case StoreFull:
		return s.blocks[i]
	default:
		return block.Air
	}
}

// Set writes the block at local (x, y, z).
func (s *Store) Set(x, y, z int, id block.ID) {
	s.SetAt(Index(x, y, z), id)
}

// SetAt writes the block at linear index i, allocating the dense array on the
// first non-air write.
func (s *Store) SetAt(i int, id block.ID) {
	switch s.kind {
	case StoreAir:
		if id == block.Air {
			return
		}
		s.blocks = new([Volume]block.ID)
		s.kind = StoreFull
	case StoreFull:
	default:
		return
	}
	prev := s.blocks[i]
	if prev == id {
		return
	}
	switch {
	case prev == block.Air:
		s.filled++
	case id == block.Air:
		s.filled--
	}
	s.blocks[i] = id
}

// Fill sets every block of the store to id.
func (s *Store) Fill(id block.ID) {
	if s.kind == StoreAir {
		if id == block.Air {
			return
		}
		s.blocks = new([Volume]block.ID)
		s.kind = StoreFull
	}
	for i := range s.blocks {
		s.blocks[i] = id
	}
	if id == block.Air {
		s.filled = 0
	} else {
		s.filled = Volume
	}
}

// Empty reports whether the store holds no non-air block.
func (s *Store) Empty() bool {
	return s.kind != StoreFull || s.filled == 0
}

// Count returns the number of non-air blocks.
func (s *Store) Count() int {
	if s.kind != StoreFull {
		return 0
	}
	return s.filled
}

// Equal reports whether both stores hold the same blocks, regardless of variant.
func (s *Store) Equal(o *Store) bool {
	if s.Empty() || o.Empty() {
		return s.Empty() == o.Empty()
	}
	return *s.blocks == *o.blocks
}
