package gen

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
)

// positionHash is a stateless hash of a world XZ position under a seed. It
// replaces a shared RNG so that structure placement does not depend on the
// order in which columns are generated.
func positionHash(seed int64, x, z int) uint64 {
	var buf [24]byte
	binary.LittleEndian.PutUint64(buf[0:], uint64(seed))
	binary.LittleEndian.PutUint64(buf[8:], uint64(int64(x)))
	binary.LittleEndian.PutUint64(buf[16:], uint64(int64(z)))
	return xxhash.Sum64(buf[:])
}
