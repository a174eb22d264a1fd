package math

import "github.com/go-gl/mathgl/mgl32"

// GenerateNormals computes face normals for every triangle and writes them to
// its three vertices. Shared vertices keep the normal of the last face that
// references them.
func GenerateNormals(positions []mgl32.Vec3, triangles [][3]uint32) []mgl32.Vec3 {
	normals := make([]mgl32.Vec3, len(positions))
	for _, tri := range triangles {
		i0, i1, i2 := tri[0], tri[1], tri[2]

		edge1 := positions[i1].Sub(positions[i0])
		edge2 := positions[i2].Sub(positions[i0])

		normal := edge1.Cross(edge2)
		if normal.Len() > mgl32.Epsilon {
			normal = normal.Normalize()
		}
		normals[i0] = normal
		normals[i1] = normal
		normals[i2] = normal
	}
	return normals
}

// GenerateTangents computes per-face tangents with handedness stored in w.
func GenerateTangents(positions []mgl32.Vec3, texcoords []mgl32.Vec2, triangles [][3]uint32) []mgl32.Vec4 {
	tangents := make([]mgl32.Vec4, len(positions))
	for _, tri := range triangles {
		i0, i1, i2 := tri[0], tri[1], tri[2]

		edge1 := positions[i1].Sub(positions[i0])
		edge2 := positions[i2].Sub(positions[i0])

		deltaU1 := texcoords[i1].X() - texcoords[i0].X()
		deltaV1 := texcoords[i1].Y() - texcoords[i0].Y()
		deltaU2 := texcoords[i2].X() - texcoords[i0].X()
		deltaV2 := texcoords[i2].Y() - texcoords[i0].Y()

		dividend := deltaU1*deltaV2 - deltaU2*deltaV1
		if dividend == 0 {
			continue
		}
		fc := 1.0 / dividend

		tangent := edge1.Mul(deltaV2).Sub(edge2.Mul(deltaV1)).Mul(fc)
		if tangent.Len() > mgl32.Epsilon {
			tangent = tangent.Normalize()
		}

		var handedness float32 = 1
		if deltaV1*deltaU2-deltaV2*deltaU1 < 0 {
			handedness = -1
		}

		t4 := tangent.Vec4(handedness)
		tangents[i0] = t4
		tangents[i1] = t4
		tangents[i2] = t4
	}
	return tangents
}
