package block

import "github.com/go-theft-craft/voxelcore/internal/world/cube"

// ID identifies a block type. The zero value is Air.
type ID uint8

const (
	Air ID = iota
	Grass
	Dirt
	Stone
	Sand
	Water
	OakLog
	OakLeaves
	Glass

	count
)

// Texture is an index into the block texture atlas.
type Texture uint32

// AtlasSize is the number of textures in the atlas.
const AtlasSize = 64

// Atlas texture indices.
const (
	texGrassTop Texture = iota
	texGrassSide
	texDirt
	texStone
	texSand
	texWater
	texLogSide
	texLogTop
	texLeaves
	texGlass
)

// RenderMode selects the face predicate of a block type.
type RenderMode uint8

const (
	// RenderNever draws no faces.
	RenderNever RenderMode = iota
	// RenderBehindTransparent shows a face whenever the neighbor can be seen through.
	RenderBehindTransparent
	// RenderCullSame is RenderBehindTransparent except between two blocks of the
	// same type, so a body of water does not draw its inner faces.
	RenderCullSame
)

// Properties describes how a block type is stored, meshed and drawn.
type Properties struct {
	Name     string
	Textures [cube.FaceCount]Texture
	// Solid blocks collide and can carry structures.
	Solid bool
	// Transparent blocks let neighboring faces show through.
	Transparent bool
	// Translucent blocks are drawn in the blended pass after all opaque draws.
	Translucent bool
	Render      RenderMode
}

func uniform(t Texture) [cube.FaceCount]Texture {
	return [cube.FaceCount]Texture{t, t, t, t, t, t}
}

func sided(top, side, bottom Texture) [cube.FaceCount]Texture {
	var tex [cube.FaceCount]Texture
	for _, f := range cube.Faces {
		tex[f] = side
	}
	tex[cube.Up] = top
	tex[cube.Down] = bottom
	return tex
}

var table = [count]Properties{
	Air: {
		Name:        "air",
		Transparent: true,
		Render:      RenderNever,
	},
	Grass: {
		Name:     "grass",
		Textures: sided(texGrassTop, texGrassSide, texDirt),
		Solid:    true,
		Render:   RenderBehindTransparent,
	},
	Dirt: {
		Name:     "dirt",
		Textures: uniform(texDirt),
		Solid:    true,
		Render:   RenderBehindTransparent,
	},
	Stone: {
		Name:     "stone",
		Textures: uniform(texStone),
		Solid:    true,
		Render:   RenderBehindTransparent,
	},
	Sand: {
		Name:     "sand",
		Textures: uniform(texSand),
		Solid:    true,
		Render:   RenderBehindTransparent,
	},
	Water: {
		Name:        "water",
		Textures:    uniform(texWater),
		Transparent: true,
		Translucent: true,
		Render:      RenderCullSame,
	},
	OakLog: {
		Name:     "oak_log",
		Textures: sided(texLogTop, texLogSide, texLogTop),
		Solid:    true,
		Render:   RenderBehindTransparent,
	},
	OakLeaves: {
		Name:        "oak_leaves",
		Textures:    uniform(texLeaves),
		Solid:       true,
		Transparent: true,
		Render:      RenderBehindTransparent,
	},
	Glass: {
		Name:        "glass",
		Textures:    uniform(texGlass),
		Solid:       true,
		Transparent: true,
		Translucent: true,
		Render:      RenderCullSame,
	},
}

// Valid reports whether id names a block in the table.
func (id ID) Valid() bool {
	return id < count
}

// Props returns the static properties of the block. Unknown ids resolve to Air.
func (id ID) Props() *Properties {
	if id >= count {
		return &table[Air]
	}
	return &table[id]
}

// Solid reports whether the block collides and supports structures.
func (id ID) Solid() bool { return id.Props().Solid }

// Transparent reports whether neighboring faces show through the block.
func (id ID) Transparent() bool { return id.Props().Transparent }

// Translucent reports whether the block is drawn in the blended pass.
func (id ID) Translucent() bool { return id.Props().Translucent }

// Texture returns the atlas texture of the block's face f.
func (id ID) Texture(f cube.Face) Texture {
	return id.Props().Textures[f]
}

// ShowsFace reports whether own draws the face it shares with neighbor.
func ShowsFace(own, neighbor ID) bool {
	switch own.Props().Render {
	case RenderBehindTransparent:
		return neighbor.Transparent()
	case RenderCullSame:
		return neighbor != own && neighbor.Transparent()
	default:
		return false
	}
}

func (id ID) String() string {
	return id.Props().Name
}

// ByName looks a block up by its table name.
func ByName(name string) (ID, bool) {
	for id := range table {
		if table[id].Name == name {
			return ID(id), true
		}
	}
	return Air, false
}
