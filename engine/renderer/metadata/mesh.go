package metadata

import "github.com/go-gl/mathgl/mgl32"

/** @brief Bitmask of per-vertex attributes a mesh provides or a shader consumes. */
type VertexAttributeFlags uint32

const (
	VERTEX_POSITION_BIT   VertexAttributeFlags = 1 << 0
	VERTEX_TEXCOORD_0_BIT VertexAttributeFlags = 1 << 1
	VERTEX_TEXCOORD_1_BIT VertexAttributeFlags = 1 << 2
	VERTEX_TEXCOORD_2_BIT VertexAttributeFlags = 1 << 3
	VERTEX_TEXCOORD_3_BIT VertexAttributeFlags = 1 << 4
	VERTEX_NORMAL_BIT     VertexAttributeFlags = 1 << 5
	VERTEX_TANGENT_BIT    VertexAttributeFlags = 1 << 6
	VERTEX_COLOR_BIT      VertexAttributeFlags = 1 << 7
	VERTEX_JOINTS_BIT     VertexAttributeFlags = 1 << 8
	VERTEX_WEIGHTS_BIT    VertexAttributeFlags = 1 << 9
)

/** @brief Vertex buffer bindings used by the forward pipeline, one per attribute. */
const (
	VERTEX_BINDING_POSITION uint32 = iota
	VERTEX_BINDING_TEXCOORD_0
	VERTEX_BINDING_NORMAL
	VERTEX_BINDING_TANGENT
	VERTEX_BINDING_COLOR
	VERTEX_BINDING_COUNT
)

/** @brief Attribute flags in vertex binding order. */
var VertexBindingAttributes = [VERTEX_BINDING_COUNT]VertexAttributeFlags{
	VERTEX_POSITION_BIT,
	VERTEX_TEXCOORD_0_BIT,
	VERTEX_NORMAL_BIT,
	VERTEX_TANGENT_BIT,
	VERTEX_COLOR_BIT,
}

func (f VertexAttributeFlags) Has(bit VertexAttributeFlags) bool {
	return f&bit == bit
}

/**
 * @brief Describes a mesh to create. The slices are borrowed: the renderer copies
 * what it needs to GPU memory and keeps no reference once creation returns.
 * Every present attribute slice must have VertexCount entries.
 */
type MeshCreateInfo struct {
	VertexCount uint32
	Position    []mgl32.Vec3
	Texcoord0   []mgl32.Vec2
	Normal      []mgl32.Vec3
	Tangent     []mgl32.Vec4
	Color       []mgl32.Vec4
	Triangles   [][3]uint32
}

// Attributes reports which attribute arrays are present.
func (m *MeshCreateInfo) Attributes() VertexAttributeFlags {
	var flags VertexAttributeFlags
	if m.Position != nil {
		flags |= VERTEX_POSITION_BIT
	}
	if m.Texcoord0 != nil {
		flags |= VERTEX_TEXCOORD_0_BIT
	}
	if m.Normal != nil {
		flags |= VERTEX_NORMAL_BIT
	}
	if m.Tangent != nil {
		flags |= VERTEX_TANGENT_BIT
	}
	if m.Color != nil {
		flags |= VERTEX_COLOR_BIT
	}
	return flags
}

/** @brief A GPU resident mesh. Immutable once created. */
type Mesh struct {
	Name        string
	VertexCount uint32
	IndexCount  uint32
	Attributes  VertexAttributeFlags
	/** @brief Backend specific buffers. */
	InternalData interface{}
}
