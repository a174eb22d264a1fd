package metadata

import "github.com/spaghettifunk/anima-xr/engine/containers"

/** @brief The shader specific data block and texture bindings of a material. */
type MaterialData struct {
	Data     [MaxShaderDataBlockSize]byte
	Textures [MaxSamplerCount]containers.Handle
}

// NewMaterialData returns data with every texture slot unbound.
func NewMaterialData() MaterialData {
	var d MaterialData
	for i := range d.Textures {
		d.Textures[i] = containers.InvalidHandle
	}
	return d
}

type MaterialMetadata struct {
	Shader      containers.Handle
	CastShadows bool
}

type MaterialCreateInfo struct {
	Metadata MaterialMetadata
	Data     MaterialData
}

/**
 * @brief A material binds a shader to a data block and a set of textures.
 * Its data block lives in the uniform buffer slot matching its pool slot.
 */
type Material struct {
	Name     string
	Metadata MaterialMetadata
	Layer    RenderLayer
	Textures [MaxSamplerCount]containers.Handle
	/** @brief Backend specific descriptor set. */
	InternalData interface{}
}

/**
 * @brief A material definition as read from a .amt file. Textures are listed
 * in sampler order. Property values are numbers or (nested) arrays of
 * numbers, matched by name against the shader's data layout.
 */
type MaterialConfig struct {
	Name        string                 `toml:"name"`
	Shader      string                 `toml:"shader"`
	CastShadows bool                   `toml:"cast_shadows"`
	Textures    []string               `toml:"textures"`
	Properties  map[string]interface{} `toml:"properties"`
}
