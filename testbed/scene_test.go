package testbed

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/anima-xr/engine/math"
	"github.com/spaghettifunk/anima-xr/engine/renderer/metadata"
)

func TestCubeMesh(t *testing.T) {
	cube := CubeMesh()
	require.Equal(t, uint32(24), cube.VertexCount)
	require.Len(t, cube.Triangles, 12)
	require.Len(t, cube.Normal, 24)
	require.Len(t, cube.Tangent, 24)
	assert.Equal(t, metadata.VERTEX_POSITION_BIT|metadata.VERTEX_TEXCOORD_0_BIT|metadata.VERTEX_NORMAL_BIT|
		metadata.VERTEX_TANGENT_BIT|metadata.VERTEX_COLOR_BIT, cube.Attributes())

	for _, tri := range cube.Triangles {
		a, b, c := cube.Position[tri[0]], cube.Position[tri[1]], cube.Position[tri[2]]
		center := a.Add(b).Add(c).Mul(1.0 / 3)
		n := cube.Normal[tri[0]]
		assert.InDelta(t, 1, n.Len(), 1e-5)
		assert.Greater(t, n.Dot(center), float32(0), "triangle %v faces inwards", tri)
		// Flat faces: every vertex of a face carries the same normal.
		assert.Equal(t, n, cube.Normal[tri[1]])
		assert.Equal(t, n, cube.Normal[tri[2]])
		// Tangents lie in the face.
		assert.InDelta(t, 0, cube.Tangent[tri[0]].Vec3().Dot(n), 1e-5)
	}
}

func TestGridTransforms(t *testing.T) {
	center := mgl32.Vec3{0, 1.5, -1.5}
	root := math.TransformFromPosition(center)
	transforms := GridTransforms(root, 3, 0.25, 0.05)
	require.Len(t, transforms, 27)

	// The middle cube sits at the center, scaled.
	middle := transforms[13]
	assert.InDelta(t, 0.05, middle[0], 1e-6)
	assert.True(t, middle.Col(3).Vec3().ApproxEqual(center))

	first := transforms[0].Col(3).Vec3()
	assert.True(t, first.ApproxEqual(center.Sub(mgl32.Vec3{0.25, 0.25, 0.25})))
}

func TestGridTransformsFollowRoot(t *testing.T) {
	root := math.TransformCreate()
	root.SetRotation(mgl32.QuatRotate(mgl32.DegToRad(90), mgl32.Vec3{0, 1, 0}))
	transforms := GridTransforms(root, 2, 1, 1)
	// (+0.5, -0.5, +0.5) turned a quarter around +Y ends up at (+0.5, -0.5, -0.5).
	p := transforms[5].Col(3).Vec3()
	assert.True(t, p.ApproxEqualThreshold(mgl32.Vec3{0.5, -0.5, -0.5}, 1e-5), "%v", p)
}

func TestPanelTransform(t *testing.T) {
	m := PanelTransform(mgl32.Vec3{1, 2, 3}, 0.5).GetLocal()
	p := m.Mul4x1(mgl32.Vec4{2, -4, 0, 1})
	assert.True(t, p.ApproxEqual(mgl32.Vec4{2, 0, 3, 1}), "%v", p)
}
