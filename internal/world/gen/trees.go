package gen

import (
	"github.com/go-theft-craft/voxelcore/internal/world/block"
	"github.com/go-theft-craft/voxelcore/internal/world/chunk"
)

// TreeReach is how far a tree's canopy extends from its trunk horizontally.
const TreeReach = 2

// tree is an oak anchored at the block above its supporting grass.
type tree struct {
	x, y, z int // world position of the lowest trunk block
	trunk   int
	hash    uint64
}

// canopyBase is the Y of the lowest leaf layer.
func (t tree) canopyBase() int {
	return t.y + t.trunk - 2
}

// top is the Y of the highest leaf layer.
func (t tree) top() int {
	return t.canopyBase() + 3
}

// treeAt reports whether a tree is anchored on the surface at world (x, z).
func (g *Generator) treeAt(x, z int, s sample) (tree, bool) {
	if s.surface != block.Grass || s.height <= g.settings.WaterLevel {
		return tree{}, false
	}
	h := positionHash(g.seed, x, z)
	if h%g.settings.TreeChance != 0 {
		return tree{}, false
	}
	t := tree{x: x, y: s.height + 1, z: z, trunk: 4 + int((h>>16)%3), hash: h}
	if t.top() >= chunk.WorldHeight {
		return tree{}, false
	}
	return t, true
}

// placeTrees writes every tree that overlaps col, including trees anchored in
// neighboring columns, clipped to col. Trunks replace leaves and leaves only
// fill air, so overlapping trees resolve the same way in any order.
// Footprints are recorded only for trees anchored inside col.
func (g *Generator) placeTrees(col *chunk.Column, samples *columnSamples) {
	origin := col.Offset.Origin()
	for x := -TreeReach; x < chunk.Size+TreeReach; x++ {
		for z := -TreeReach; z < chunk.Size+TreeReach; z++ {
			t, ok := g.treeAt(origin.X+x, origin.Z+z, *samples.at(x, z))
			if !ok {
				continue
			}
			g.placeTree(col, origin, t)
			if x >= 0 && x < chunk.Size && z >= 0 && z < chunk.Size {
				recordFootprint(col, t)
			}
		}
	}
}

func (g *Generator) placeTree(col *chunk.Column, origin chunk.Pos, t tree) {
	lx, lz := t.x-origin.X, t.z-origin.Z

	corner := 0
	for dy := 0; dy < 4; dy++ {
		y := t.canopyBase() + dy
		radius := 2
		if dy >= 2 {
			radius = 1
		}
		for dx := -radius; dx <= radius; dx++ {
			for dz := -radius; dz <= radius; dz++ {
				if radius == 2 && abs(dx) == 2 && abs(dz) == 2 {
					// Drop some corners for a rounder canopy.
					skip := t.hash>>(24+corner)&1 == 0
					corner++
					if skip {
						continue
					}
				}
				if dx == 0 && dz == 0 && y < t.y+t.trunk {
					continue
				}
				setLeaves(col, lx+dx, y, lz+dz)
			}
		}
	}

	for y := t.y; y < t.y+t.trunk; y++ {
		setTrunk(col, lx, y, lz)
	}
}

func inColumn(x, z int) bool {
	return x >= 0 && x < chunk.Size && z >= 0 && z < chunk.Size
}

func setLeaves(col *chunk.Column, x, y, z int) {
	if inColumn(x, z) && col.Block(x, y, z) == block.Air {
		col.SetBlock(x, y, z, block.OakLeaves)
	}
}

func setTrunk(col *chunk.Column, x, y, z int) {
	if !inColumn(x, z) {
		return
	}
	if b := col.Block(x, y, z); b == block.Air || b == block.OakLeaves {
		col.SetBlock(x, y, z, block.OakLog)
	}
}

func recordFootprint(col *chunk.Column, t tree) {
	anchor := chunk.Pos{X: t.x, Y: t.y, Z: t.z}
	ch := col.Chunk(anchor.Y >> chunk.Shift)
	if ch == nil {
		return
	}
	o := ch.Offset.Origin()
	ch.Footprints = append(ch.Footprints, chunk.Footprint{
		ID: chunk.StructureOakTree,
		Start: [3]int16{
			int16(t.x - TreeReach - o.X),
			int16(t.y - o.Y),
			int16(t.z - TreeReach - o.Z),
		},
		Extents: [3]uint16{2*TreeReach + 1, uint16(t.top() - t.y + 1), 2*TreeReach + 1},
	})
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
