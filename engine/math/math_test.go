package math

import (
	stdmath "math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
)

func TestPadUniformBufferSize(t *testing.T) {
	tests := []struct {
		size, align, want uint64
	}{
		{0, 0, 0},
		{13, 0, 13},
		{64, 256, 256},
		{256, 256, 256},
		{257, 256, 512},
		{288, 64, 320},
		{1, 1, 1},
		{0, 16, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, PadUniformBufferSize(tt.size, tt.align), "size=%d align=%d", tt.size, tt.align)
	}
}

func TestPadUniformBufferSizeSweep(t *testing.T) {
	for shift := 0; shift < 9; shift++ {
		align := uint32(1) << shift
		for size := uint32(0); size < 1024; size++ {
			got := PadUniformBufferSize(size, align)
			assert.Zero(t, got%align)
			assert.GreaterOrEqual(t, got, size)
			assert.Less(t, got-size, align)
		}
	}
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 1, Clamp(-4, 1, 3))
	assert.Equal(t, 3, Clamp(9, 1, 3))
	assert.Equal(t, float32(0.5), Clamp(float32(0.5), 0, 1))
}

func TestProjectionFovSymmetric(t *testing.T) {
	fov := Fov{AngleLeft: -stdmath.Pi / 4, AngleRight: stdmath.Pi / 4, AngleUp: stdmath.Pi / 4, AngleDown: -stdmath.Pi / 4}
	m := ProjectionFov(fov, 0.1, 100)

	assert.InDelta(t, 1, m.At(0, 0), 1e-5)
	assert.InDelta(t, -1, m.At(1, 1), 1e-5, "y is flipped for Vulkan")
	assert.InDelta(t, 0, m.At(0, 2), 1e-5)
	assert.Equal(t, float32(-1), m.At(3, 2))

	// near plane maps to depth 0, far plane to depth 1
	near := m.Mul4x1(mgl32.Vec4{0, 0, -0.1, 1})
	far := m.Mul4x1(mgl32.Vec4{0, 0, -100, 1})
	assert.InDelta(t, 0, near.Z()/near.W(), 1e-4)
	assert.InDelta(t, 1, far.Z()/far.W(), 1e-4)
}

func TestPoseView(t *testing.T) {
	p := Pose{Position: mgl32.Vec3{1, 2, 3}, Orientation: mgl32.QuatIdent()}
	v := p.View()
	origin := v.Mul4x1(mgl32.Vec4{1, 2, 3, 1})
	assert.True(t, origin.ApproxEqual(mgl32.Vec4{0, 0, 0, 1}))
}

func TestLightDirection(t *testing.T) {
	dir := LightDirection(mgl32.QuatIdent())
	assert.True(t, dir.ApproxEqual(mgl32.Vec4{0, 0, -1, 0}))
}

func TestTransformLocal(t *testing.T) {
	tr := TransformFromPositionRotationScale(mgl32.Vec3{1, 0, 0}, mgl32.QuatIdent(), mgl32.Vec3{2, 2, 2})
	p := tr.GetLocal().Mul4x1(mgl32.Vec4{1, 1, 1, 1})
	assert.True(t, p.ApproxEqual(mgl32.Vec4{3, 2, 2, 1}))

	child := TransformFromPosition(mgl32.Vec3{0, 1, 0})
	child.Parent = tr
	p = child.GetWorld().Mul4x1(mgl32.Vec4{0, 0, 0, 1})
	assert.True(t, p.ApproxEqual(mgl32.Vec4{1, 2, 0, 1}))
}

func TestGenerateNormals(t *testing.T) {
	positions := []mgl32.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}}
	normals := GenerateNormals(positions, [][3]uint32{{0, 1, 2}})
	for _, n := range normals {
		assert.True(t, n.ApproxEqual(mgl32.Vec3{0, 0, 1}))
	}
}
