package vulkan

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"

	"github.com/spaghettifunk/anima-xr/engine/renderer/metadata"
)

func TestMeshAttributeData(t *testing.T) {
	info := &metadata.MeshCreateInfo{
		VertexCount: 2,
		Position:    []mgl32.Vec3{{1, 2, 3}, {4, 5, 6}},
		Color:       []mgl32.Vec4{{1, 0, 0, 1}, {0, 1, 0, 1}},
		Triangles:   [][3]uint32{{0, 1, 1}},
	}
	data := meshAttributeData(info)

	assert.Len(t, data[metadata.VERTEX_BINDING_POSITION], 24)
	assert.Len(t, data[metadata.VERTEX_BINDING_COLOR], 32)
	assert.Nil(t, data[metadata.VERTEX_BINDING_NORMAL])
	assert.Nil(t, data[metadata.VERTEX_BINDING_TEXCOORD_0])

	pos := data[metadata.VERTEX_BINDING_POSITION]
	assert.Equal(t, float32(4), math.Float32frombits(binary.LittleEndian.Uint32(pos[12:])))

	indices := sliceBytes(info.Triangles)
	assert.Len(t, indices, 12)
	assert.Equal(t, uint32(1), binary.LittleEndian.Uint32(indices[4:]))
}
