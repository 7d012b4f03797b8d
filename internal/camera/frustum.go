package camera

import "github.com/go-gl/mathgl/mgl32"

// Frustum is the set of six planes bounding what a camera sees. Plane normals
// point inwards and are normalized, so plane·(p,1) is a signed distance.
type Frustum struct {
	planes [6]mgl32.Vec4
}

// NewFrustum extracts the planes of a combined projection·view matrix.
func NewFrustum(m mgl32.Mat4) Frustum {
	r0, r1, r2, r3 := m.Row(0), m.Row(1), m.Row(2), m.Row(3)
	f := Frustum{planes: [6]mgl32.Vec4{
		r3.Add(r0), // left
		r3.Sub(r0), // right
		r3.Add(r1), // bottom
		r3.Sub(r1), // top
		r3.Add(r2), // near
		r3.Sub(r2), // far
	}}
	for i, p := range f.planes {
		if l := p.Vec3().Len(); l > 0 {
			f.planes[i] = p.Mul(1 / l)
		}
	}
	return f
}

// SphereVisible reports whether any part of the sphere may lie inside the
// frustum. Spheres near a corner can pass without being visible.
func (f Frustum) SphereVisible(center mgl32.Vec3, radius float32) bool {
	for _, p := range f.planes {
		if p.Vec3().Dot(center)+p.W() < -radius {
			return false
		}
	}
	return true
}

// PointVisible reports whether p lies inside the frustum.
func (f Frustum) PointVisible(p mgl32.Vec3) bool {
	return f.SphereVisible(p, 0)
}
