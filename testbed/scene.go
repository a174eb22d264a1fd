package testbed

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/spaghettifunk/anima-xr/engine/math"
	"github.com/spaghettifunk/anima-xr/engine/renderer/metadata"
)

var cubeCorners = [8]mgl32.Vec3{
	{-0.5, -0.5, -0.5}, {0.5, -0.5, -0.5}, {0.5, 0.5, -0.5}, {-0.5, 0.5, -0.5},
	{-0.5, -0.5, 0.5}, {0.5, -0.5, 0.5}, {0.5, 0.5, 0.5}, {-0.5, 0.5, 0.5},
}

// Corners of each face, counter-clockwise seen from outside.
var cubeFaces = [6][4]int{
	{0, 3, 2, 1}, // -Z
	{4, 5, 6, 7}, // +Z
	{0, 4, 7, 3}, // -X
	{1, 2, 6, 5}, // +X
	{0, 1, 5, 4}, // -Y
	{3, 7, 6, 2}, // +Y
}

// CubeMesh is a unit cube centered on the origin. Faces do not share
// vertices so normals stay flat; the color of a vertex follows its corner.
func CubeMesh() *metadata.MeshCreateInfo {
	uvs := [4]mgl32.Vec2{{0, 0}, {1, 0}, {1, 1}, {0, 1}}

	info := &metadata.MeshCreateInfo{}
	for _, face := range cubeFaces {
		base := uint32(len(info.Position))
		for i, corner := range face {
			p := cubeCorners[corner]
			info.Position = append(info.Position, p)
			info.Texcoord0 = append(info.Texcoord0, uvs[i])
			info.Color = append(info.Color, mgl32.Vec4{p.X() + 0.5, p.Y() + 0.5, p.Z() + 0.5, 1})
		}
		info.Triangles = append(info.Triangles, [3]uint32{base, base + 1, base + 2}, [3]uint32{base, base + 2, base + 3})
	}
	info.VertexCount = uint32(len(info.Position))
	info.Normal = math.GenerateNormals(info.Position, info.Triangles)
	info.Tangent = math.GenerateTangents(info.Position, info.Texcoord0, info.Triangles)
	return info
}

// GridTransforms places n*n*n cubes of the given scale spacing meters apart
// around the origin of root.
func GridTransforms(root *math.Transform, n int, spacing, scale float32) []mgl32.Mat4 {
	transforms := make([]mgl32.Mat4, 0, n*n*n)
	world := root.GetWorld()
	half := float32(n-1) / 2
	for x := 0; x < n; x++ {
		for y := 0; y < n; y++ {
			for z := 0; z < n; z++ {
				offset := mgl32.Vec3{float32(x) - half, float32(y) - half, float32(z) - half}.Mul(spacing)
				m := world.
					Mul4(mgl32.Translate3D(offset.X(), offset.Y(), offset.Z())).
					Mul4(mgl32.Scale3D(scale, scale, scale))
				transforms = append(transforms, m)
			}
		}
	}
	return transforms
}

// HandTransform scales a tracked hand pose down to a small marker cube.
func HandTransform(pose mgl32.Mat4) mgl32.Mat4 {
	return pose.Mul4(mgl32.Scale3D(0.04, 0.04, 0.08))
}

// PanelTransform places a text mesh laid out in font pixels as a floating
// panel: pixelSize meters per pixel, top left corner at position.
func PanelTransform(position mgl32.Vec3, pixelSize float32) *math.Transform {
	return math.TransformFromPositionRotationScale(position, mgl32.QuatIdent(), mgl32.Vec3{pixelSize, pixelSize, pixelSize})
}
