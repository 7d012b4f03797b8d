package camera

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

var up = mgl32.Vec3{0, 1, 0}

// Camera is a perspective camera looking along yaw and pitch, both in radians.
// A yaw of zero looks towards +X.
type Camera struct {
	Position mgl32.Vec3
	Yaw      float32
	Pitch    float32

	FOV    float32 // degrees
	Aspect float32
	Near   float32
	Far    float32
}

// New returns a camera at pos with a 70° field of view.
func New(pos mgl32.Vec3, aspect, far float32) *Camera {
	return &Camera{
		Position: pos,
		FOV:      70,
		Aspect:   aspect,
		Near:     0.1,
		Far:      far,
	}
}

// Front returns the unit view direction.
func (c *Camera) Front() mgl32.Vec3 {
	yaw, pitch := float64(c.Yaw), float64(c.Pitch)
	return mgl32.Vec3{
		float32(math.Cos(yaw) * math.Cos(pitch)),
		float32(math.Sin(pitch)),
		float32(math.Sin(yaw) * math.Cos(pitch)),
	}.Normalize()
}

// View returns the world to view transform.
func (c *Camera) View() mgl32.Mat4 {
	return mgl32.LookAtV(c.Position, c.Position.Add(c.Front()), up)
}

// Projection returns the perspective projection.
func (c *Camera) Projection() mgl32.Mat4 {
	return mgl32.Perspective(mgl32.DegToRad(c.FOV), c.Aspect, c.Near, c.Far)
}

// Frustum returns the view frustum of the camera.
func (c *Camera) Frustum() Frustum {
	return NewFrustum(c.Projection().Mul4(c.View()))
}
