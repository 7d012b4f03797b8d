package camera

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
)

// assertVec compares component-wise with an absolute tolerance, so values
// that should be zero may carry float32 noise.
func assertVec(t *testing.T, want, got mgl32.Vec3) {
	t.Helper()
	for i := range want {
		assert.InDelta(t, want[i], got[i], 1e-5, "component %d of %v", i, got)
	}
}

func TestFrontFollowsYawAndPitch(t *testing.T) {
	c := New(mgl32.Vec3{}, 1, 100)
	assertVec(t, mgl32.Vec3{1, 0, 0}, c.Front())

	c.Yaw = math.Pi / 2
	assertVec(t, mgl32.Vec3{0, 0, 1}, c.Front())

	c.Pitch = math.Pi / 2
	assert.InDelta(t, 1, c.Front().Y(), 1e-5)
}

func TestFrustumSphereVisible(t *testing.T) {
	c := New(mgl32.Vec3{0, 64, 0}, 16.0/9.0, 200)
	f := c.Frustum()

	tests := []struct {
		name   string
		center mgl32.Vec3
		radius float32
		want   bool
	}{
		{"ahead", mgl32.Vec3{50, 64, 0}, 1, true},
		{"behind", mgl32.Vec3{-50, 64, 0}, 1, false},
		{"behind but large", mgl32.Vec3{-10, 64, 0}, 20, true},
		{"beyond far plane", mgl32.Vec3{300, 64, 0}, 1, false},
		{"far off to the side", mgl32.Vec3{10, 64, 200}, 1, false},
		{"above the view", mgl32.Vec3{10, 200, 0}, 1, false},
		{"straddles far plane", mgl32.Vec3{205, 64, 0}, 10, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, f.SphereVisible(tt.center, tt.radius))
		})
	}
}

func TestFrustumPointVisible(t *testing.T) {
	c := New(mgl32.Vec3{}, 1, 50)
	c.Yaw = math.Pi
	f := c.Frustum()
	assert.True(t, f.PointVisible(mgl32.Vec3{-10, 0, 0}))
	assert.False(t, f.PointVisible(mgl32.Vec3{10, 0, 0}))
}
