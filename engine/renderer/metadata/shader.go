package metadata

/** @brief Type of a property inside a shader's material data block. */
type ShaderPropertyType int

const (
	SHADER_PROPERTY_FLOAT ShaderPropertyType = iota
	SHADER_PROPERTY_VEC2
	SHADER_PROPERTY_VEC4
	SHADER_PROPERTY_INT
	SHADER_PROPERTY_IVEC2
	SHADER_PROPERTY_IVEC4
	SHADER_PROPERTY_UINT
	SHADER_PROPERTY_UVEC2
	SHADER_PROPERTY_UVEC4
	SHADER_PROPERTY_MAT2
	SHADER_PROPERTY_MAT4
)

var shaderPropertyNames = map[string]ShaderPropertyType{
	"float": SHADER_PROPERTY_FLOAT,
	"vec2":  SHADER_PROPERTY_VEC2,
	"vec4":  SHADER_PROPERTY_VEC4,
	"int":   SHADER_PROPERTY_INT,
	"ivec2": SHADER_PROPERTY_IVEC2,
	"ivec4": SHADER_PROPERTY_IVEC4,
	"uint":  SHADER_PROPERTY_UINT,
	"uvec2": SHADER_PROPERTY_UVEC2,
	"uvec4": SHADER_PROPERTY_UVEC4,
	"mat2":  SHADER_PROPERTY_MAT2,
	"mat4":  SHADER_PROPERTY_MAT4,
}

// ParseShaderPropertyType maps a GLSL type name to its property type.
func ParseShaderPropertyType(name string) (ShaderPropertyType, bool) {
	t, ok := shaderPropertyNames[name]
	return t, ok
}

// Size returns the std140 size in bytes of a single element.
func (t ShaderPropertyType) Size() uint32 {
	switch t {
	case SHADER_PROPERTY_FLOAT, SHADER_PROPERTY_INT, SHADER_PROPERTY_UINT:
		return 4
	case SHADER_PROPERTY_VEC2, SHADER_PROPERTY_IVEC2, SHADER_PROPERTY_UVEC2:
		return 8
	case SHADER_PROPERTY_VEC4, SHADER_PROPERTY_IVEC4, SHADER_PROPERTY_UVEC4:
		return 16
	case SHADER_PROPERTY_MAT2:
		return 32
	case SHADER_PROPERTY_MAT4:
		return 64
	}
	return 0
}

/** @brief A named property of a shader's material data block. */
type ShaderPropertyInfo struct {
	Name string
	Type ShaderPropertyType
	/** @brief Element count, 1 unless the property is an array. */
	Count uint32
	/** @brief Offset in bytes from the beginning of the data block. */
	Offset uint32
}

// ByteSize is the span in bytes the property occupies.
func (p ShaderPropertyInfo) ByteSize() uint32 {
	count := p.Count
	if count == 0 {
		count = 1
	}
	if count == 1 {
		return p.Type.Size()
	}
	// std140 arrays use a 16 byte stride for scalars and vectors
	stride := p.Type.Size()
	if stride < 16 {
		stride = 16
	}
	return stride * count
}

type ShaderDataLayout struct {
	DataSize   uint32
	Properties []ShaderPropertyInfo
}

// Property finds a property by name.
func (l *ShaderDataLayout) Property(name string) (ShaderPropertyInfo, bool) {
	for _, p := range l.Properties {
		if p.Name == name {
			return p, true
		}
	}
	return ShaderPropertyInfo{}, false
}

type ShaderMetadata struct {
	Layer      RenderLayer
	DataLayout ShaderDataLayout
}

/** @brief Uniform slots a shader's descriptor set layout exposes. */
type DescriptorSetLayoutFlags uint32

const (
	DESCRIPTOR_SET_LAYOUT_CAMERADATA DescriptorSetLayoutFlags = 1 << iota
	DESCRIPTOR_SET_LAYOUT_LIGHTINGDATA
	DESCRIPTOR_SET_LAYOUT_INSTANCEDATA
	DESCRIPTOR_SET_LAYOUT_SHADERDATA
	DESCRIPTOR_SET_LAYOUT_CUBEMAP

	DESCRIPTOR_SET_LAYOUT_ALL = DESCRIPTOR_SET_LAYOUT_CAMERADATA | DESCRIPTOR_SET_LAYOUT_LIGHTINGDATA |
		DESCRIPTOR_SET_LAYOUT_INSTANCEDATA | DESCRIPTOR_SET_LAYOUT_SHADERDATA | DESCRIPTOR_SET_LAYOUT_CUBEMAP
)

/** @brief Descriptor bindings of the fixed uniform slots. */
const (
	DESCRIPTOR_BINDING_CAMERA   uint32 = 0
	DESCRIPTOR_BINDING_LIGHTING uint32 = 1
	DESCRIPTOR_BINDING_INSTANCE uint32 = 2
	DESCRIPTOR_BINDING_SHADER   uint32 = 3
)

type DescriptorSetLayoutInfo struct {
	Flags        DescriptorSetLayoutFlags
	SamplerCount uint32
}

/** @brief Describes a shader to create. The SPIR-V slices are borrowed. */
type ShaderCreateInfo struct {
	Metadata     ShaderMetadata
	VertexInputs VertexAttributeFlags
	SamplerCount uint32
	VertexCode   []byte
	FragmentCode []byte
}

/**
 * @brief Represents a shader on the frontend.
 */
type Shader struct {
	Name         string
	Metadata     ShaderMetadata
	VertexInputs VertexAttributeFlags
	LayoutInfo   DescriptorSetLayoutInfo
	/** @brief Backend specific pipeline, pipeline layout and set layout. */
	InternalData interface{}
}
