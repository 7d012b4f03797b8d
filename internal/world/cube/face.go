package cube

// Face is one of the six axis-aligned directions a block face can point in.
// The numeric value doubles as the neighbor slot used by the mesher and as
// the face_direction written to per-draw offset records.
type Face uint8

const (
	East  Face = iota // +X
	West              // -X
	Up                // +Y
	Down              // -Y
	South             // +Z
	North             // -Z
)

// FaceCount is the number of faces of a cube.
const FaceCount = 6

// Faces lists every face in slot order.
var Faces = [FaceCount]Face{East, West, Up, Down, South, North}

var faceOffsets = [FaceCount][3]int{
	East:  {1, 0, 0},
	West:  {-1, 0, 0},
	Up:    {0, 1, 0},
	Down:  {0, -1, 0},
	South: {0, 0, 1},
	North: {0, 0, -1},
}

// Offset returns the unit step (dx, dy, dz) of the face.
func (f Face) Offset() (dx, dy, dz int) {
	o := faceOffsets[f]
	return o[0], o[1], o[2]
}

// Opposite returns the face pointing the other way along the same axis.
func (f Face) Opposite() Face {
	return f ^ 1
}

// Axis returns 0 for X, 1 for Y and 2 for Z.
func (f Face) Axis() int {
	return int(f) >> 1
}

// Positive reports whether the face points along the positive axis.
func (f Face) Positive() bool {
	return f&1 == 0
}

func (f Face) String() string {
	switch f {
	case East:
		return "east"
	case West:
		return "west"
	case Up:
		return "up"
	case Down:
		return "down"
	case South:
		return "south"
	case North:
		return "north"
	default:
		return "unknown"
	}
}
