package gen

import (
	"github.com/aquilax/go-perlin"
	"github.com/ojrac/opensimplex-go"
)

// Climate noise parameters: single octave, so n = 1.
const (
	perlinAlpha   = 2.0
	perlinBeta    = 2.0
	perlinOctaves = 1
)

// Noise holds the noise channels sampled once per XZ position of a column.
// All channels depend only on (x, z) and the seed, and are read-only after
// construction, so one Noise is shared by every generating goroutine.
type Noise struct {
	elevation   opensimplex.Noise
	flatness    *perlin.Perlin
	temperature *perlin.Perlin
	humidity    *perlin.Perlin
}

// NewNoise builds the noise tables for seed.
func NewNoise(seed int64) *Noise {
	return &Noise{
		elevation:   opensimplex.New(seed),
		flatness:    perlin.NewPerlin(perlinAlpha, perlinBeta, perlinOctaves, seed+101),
		temperature: perlin.NewPerlin(perlinAlpha, perlinBeta, perlinOctaves, seed+202),
		humidity:    perlin.NewPerlin(perlinAlpha, perlinBeta, perlinOctaves, seed+303),
	}
}

// Elevation layers octaves of simplex noise. The result is in [-1, 1].
func (n *Noise) Elevation(x, z float64, octaves int, persistence float64) float64 {
	var total, maxVal float64
	amplitude, frequency := 1.0, 1.0
	for i := 0; i < octaves; i++ {
		total += n.elevation.Eval2(x*frequency, z*frequency) * amplitude
		maxVal += amplitude
		amplitude *= persistence
		frequency *= 2.0
	}
	return total / maxVal
}

// Flatness returns how flat the terrain is around (x, z), in [0, 1].
func (n *Noise) Flatness(x, z float64) float64 {
	return unit(n.flatness.Noise2D(x, z))
}

// Temperature returns the temperature around (x, z), in [0, 1].
func (n *Noise) Temperature(x, z float64) float64 {
	return unit(n.temperature.Noise2D(x, z))
}

// Humidity returns the humidity around (x, z), in [0, 1].
func (n *Noise) Humidity(x, z float64) float64 {
	return unit(n.humidity.Noise2D(x, z))
}

// unit maps a value in [-1, 1] onto [0, 1], clamping overshoot.
func unit(v float64) float64 {
	v = (v + 1) / 2
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
