package math

import (
	stdmath "math"

	"github.com/go-gl/mathgl/mgl32"
)

// Fov holds the four half-angles of an eye frustum, in radians. Left and
// Down are usually negative.
type Fov struct {
	AngleLeft  float32
	AngleRight float32
	AngleUp    float32
	AngleDown  float32
}

// SymmetricFov builds a Fov from a vertical field of view and aspect ratio.
func SymmetricFov(fovY, aspect float32) Fov {
	halfY := fovY / 2
	halfX := float32(stdmath.Atan(stdmath.Tan(float64(halfY)) * float64(aspect)))
	return Fov{
		AngleLeft:  -halfX,
		AngleRight: halfX,
		AngleUp:    halfY,
		AngleDown:  -halfY,
	}
}

// Pose is a rigid transform as reported by a tracking runtime.
type Pose struct {
	Position    mgl32.Vec3
	Orientation mgl32.Quat
}

func IdentityPose() Pose {
	return Pose{Orientation: mgl32.QuatIdent()}
}

// Matrix returns translate(position) * rotate(orientation).
func (p Pose) Matrix() mgl32.Mat4 {
	return mgl32.Translate3D(p.Position.X(), p.Position.Y(), p.Position.Z()).Mul4(p.Orientation.Normalize().Mat4())
}

// View returns the inverse of the pose matrix.
func (p Pose) View() mgl32.Mat4 {
	return p.Matrix().Inv()
}

// ProjectionFov builds a Vulkan clip-space projection (y down, depth 0..1)
// from asymmetric frustum angles.
func ProjectionFov(fov Fov, near, far float32) mgl32.Mat4 {
	tLeft := float32(stdmath.Tan(float64(fov.AngleLeft)))
	tRight := float32(stdmath.Tan(float64(fov.AngleRight)))
	tUp := float32(stdmath.Tan(float64(fov.AngleUp)))
	tDown := float32(stdmath.Tan(float64(fov.AngleDown)))
	depth := far - near

	var m mgl32.Mat4
	m.Set(0, 0, 2/(tRight-tLeft))
	m.Set(0, 2, (tRight+tLeft)/(tRight-tLeft))
	m.Set(1, 1, 2/(tDown-tUp))
	m.Set(1, 2, (tDown+tUp)/(tDown-tUp))
	m.Set(2, 2, -far/depth)
	m.Set(2, 3, -(far*near)/depth)
	m.Set(3, 2, -1)
	return m
}

// LightProjection is the orthographic projection of the main directional light.
func LightProjection() mgl32.Mat4 {
	return mgl32.Ortho(-12.5, 12.5, 12.5, -12.5, -1024, 1024)
}

// LightDirection returns -(rotation * forward), with w = 0.
func LightDirection(rotation mgl32.Quat) mgl32.Vec4 {
	fwd := rotation.Normalize().Rotate(mgl32.Vec3{0, 0, 1})
	return fwd.Mul(-1).Vec4(0)
}
