package gen

import (
	"errors"
	"fmt"

	"github.com/go-theft-craft/voxelcore/internal/world/block"
	"github.com/go-theft-craft/voxelcore/internal/world/chunk"
)

// Settings tune terrain shape.
type Settings struct {
	// BaseHeight is the terrain height where elevation noise is zero.
	BaseHeight int `json:"base_height" yaml:"base_height" toml:"base_height"`
	// WaterLevel is the highest Y filled with water above low terrain.
	WaterLevel int `json:"water_level" yaml:"water_level" toml:"water_level"`
	// DirtDepth is the number of filler blocks below the surface block.
	DirtDepth int `json:"dirt_depth" yaml:"dirt_depth" toml:"dirt_depth"`
	// TreeChance makes one in TreeChance grass positions anchor a tree.
	TreeChance uint64 `json:"tree_chance" yaml:"tree_chance" toml:"tree_chance"`
}

// DefaultSettings returns the settings used when none are configured.
func DefaultSettings() Settings {
	return Settings{
		BaseHeight: 72,
		WaterLevel: 62,
		DirtDepth:  4,
		TreeChance: 97,
	}
}

// ErrInvalidSettings is returned by New for settings no terrain can satisfy.
var ErrInvalidSettings = errors.New("invalid generator settings")

func (s Settings) validate() error {
	switch {
	case s.WaterLevel <= 0 || s.WaterLevel >= chunk.WorldHeight:
		return fmt.Errorf("%w: water level %d outside (0,%d)", ErrInvalidSettings, s.WaterLevel, chunk.WorldHeight)
	case s.BaseHeight <= 0 || s.BaseHeight >= chunk.WorldHeight:
		return fmt.Errorf("%w: base height %d outside (0,%d)", ErrInvalidSettings, s.BaseHeight, chunk.WorldHeight)
	case s.DirtDepth < 1:
		return fmt.Errorf("%w: dirt depth %d < 1", ErrInvalidSettings, s.DirtDepth)
	case s.TreeChance == 0:
		return fmt.Errorf("%w: tree chance must be positive", ErrInvalidSettings)
	}
	return nil
}

// Generator fills columns with terrain and trees. Output depends only on the
// seed, the settings and the column offset; a Generator is safe for
// concurrent use.
type Generator struct {
	seed     int64
	settings Settings
	noise    *Noise
}

// New builds the noise tables for seed. An error means no world can be
// generated and is fatal to the caller.
func New(seed int64, settings Settings) (*Generator, error) {
	if err := settings.validate(); err != nil {
		return nil, err
	}
	return &Generator{
		seed:     seed,
		settings: settings,
		noise:    NewNoise(seed),
	}, nil
}

// Seed returns the world seed.
func (g *Generator) Seed() int64 {
	return g.seed
}

// Settings returns the terrain settings.
func (g *Generator) Settings() Settings {
	return g.settings
}

// sample is the per-XZ data shared by every chunk of a column.
type sample struct {
	height  int
	surface block.ID
	filler  block.ID
}

// sampleAt evaluates the noise channels at world (x, z).
func (g *Generator) sampleAt(x, z int) sample {
	fx, fz := float64(x), float64(z)

	elevation := g.noise.Elevation(fx/256.0, fz/256.0, 5, 0.5)
	flatness := g.noise.Flatness(fx/512.0+0.5, fz/512.0+0.5)
	temperature := g.noise.Temperature(fx/640.0+0.5, fz/640.0+0.5)
	humidity := g.noise.Humidity(fx/384.0+0.5, fz/384.0+0.5)

	amplitude := 6.0 + (1.0-flatness)*42.0
	h := g.settings.BaseHeight + int(elevation*amplitude)
	h = max(1, min(h, chunk.WorldHeight-1))

	s := sample{height: h, surface: block.Grass, filler: block.Dirt}
	switch {
	case h <= g.settings.WaterLevel+1:
		s.surface, s.filler = block.Sand, block.Sand
	case temperature > 0.65 && humidity < 0.35:
		s.surface, s.filler = block.Sand, block.Sand
	}
	return s
}

// HeightAt returns the terrain surface Y at world (x, z), ignoring structures.
func (g *Generator) HeightAt(x, z int) int {
	return g.sampleAt(x, z).height
}

// SurfaceAt returns the terrain surface block at world (x, z).
func (g *Generator) SurfaceAt(x, z int) block.ID {
	return g.sampleAt(x, z).surface
}

// classify picks the terrain block at height y of a column described by s.
func (g *Generator) classify(y int, s sample) block.ID {
	switch {
	case y > s.height:
		if y <= g.settings.WaterLevel {
			return block.Water
		}
		return block.Air
	case y == s.height:
		return s.surface
	case y > s.height-g.settings.DirtDepth:
		return s.filler
	default:
		return block.Stone
	}
}

// sampleEdge covers a column plus the ring of positions whose trees can
// reach into it.
const sampleEdge = chunk.Size + 2*TreeReach

type columnSamples [sampleEdge][sampleEdge]sample

// at returns the sample for column-local (x, z), which may lie up to
// TreeReach outside the column.
func (cs *columnSamples) at(x, z int) *sample {
	return &cs[x+TreeReach][z+TreeReach]
}

// Generate fills col with terrain and structures. col must be freshly reset;
// the caller owns it exclusively for the duration of the call.
func (g *Generator) Generate(col *chunk.Column) {
	origin := col.Offset.Origin()

	samples := new(columnSamples)
	for x := -TreeReach; x < chunk.Size+TreeReach; x++ {
		for z := -TreeReach; z < chunk.Size+TreeReach; z++ {
			*samples.at(x, z) = g.sampleAt(origin.X+x, origin.Z+z)
		}
	}

	top := g.settings.WaterLevel
	for x := 0; x < chunk.Size; x++ {
		for z := 0; z < chunk.Size; z++ {
			top = max(top, samples.at(x, z).height)
		}
	}

	for cy := range col.Chunks {
		base := cy << chunk.Shift
		if base > top {
			break
		}
		store := &col.Chunks[cy].Store
		for x := 0; x < chunk.Size; x++ {
			for z := 0; z < chunk.Size; z++ {
				s := samples.at(x, z)
				for y := 0; y < chunk.Size; y++ {
					if id := g.classify(base+y, *s); id != block.Air {
						store.Set(x, y, z, id)
					}
				}
			}
		}
	}

	g.placeTrees(col, samples)
}
