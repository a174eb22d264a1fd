package assets

import (
	"fmt"
	"sort"

	"github.com/spaghettifunk/anima-xr/engine/assets/loaders"
	"github.com/spaghettifunk/anima-xr/engine/containers"
	"github.com/spaghettifunk/anima-xr/engine/core"
	"github.com/spaghettifunk/anima-xr/engine/renderer/metadata"
)

// MaterialTarget is the part of the renderer materials are built with.
type MaterialTarget interface {
	ShaderByName(name string) (containers.Handle, bool)
	Shader(h containers.Handle) *metadata.Shader
	TextureByName(name string) (containers.Handle, bool)
	CreateTexture(name string, info *metadata.TextureCreateInfo) (containers.Handle, error)
	MaterialByName(name string) (containers.Handle, bool)
	Material(h containers.Handle) *metadata.Material
	CreateMaterial(name string, info *metadata.MaterialCreateInfo) (containers.Handle, error)
	UpdateMaterialTexture(h containers.Handle, index uint32, texture containers.Handle) error
	SetMaterialProperty(h containers.Handle, name string, value interface{}) error
}

// LoadMaterial loads the .amt file at name and builds or refreshes the
// material it defines.
func (am *AssetManager) LoadMaterial(r MaterialTarget, name string) (containers.Handle, error) {
	res, err := am.Load(name, nil)
	if err != nil {
		return containers.InvalidHandle, err
	}
	cfg, ok := res.Data.(*metadata.MaterialConfig)
	if !ok {
		return containers.InvalidHandle, fmt.Errorf("%w: %q is not a material", core.ErrUnsupportedAsset, name)
	}
	return am.CreateMaterial(r, cfg)
}

/**
 * @brief Builds a material from a definition. Textures the renderer does not
 * know yet are loaded from the asset root and created as sRGB with mips.
 * A material of the same name is updated in place, as long as it keeps its
 * shader, so its handle stays valid across reloads.
 */
func (am *AssetManager) CreateMaterial(r MaterialTarget, cfg *metadata.MaterialConfig) (containers.Handle, error) {
	sh, ok := r.ShaderByName(cfg.Shader)
	if !ok {
		return containers.InvalidHandle, fmt.Errorf("material %q: %w: unknown shader %q", cfg.Name, core.ErrInvalidAsset, cfg.Shader)
	}
	shader := r.Shader(sh)
	if uint32(len(cfg.Textures)) > shader.LayoutInfo.SamplerCount {
		return containers.InvalidHandle, fmt.Errorf("material %q: %w: %d textures for %d samplers",
			cfg.Name, core.ErrTooManySamplers, len(cfg.Textures), shader.LayoutInfo.SamplerCount)
	}

	data := metadata.NewMaterialData()
	for i, name := range cfg.Textures {
		h, err := am.texture(r, name)
		if err != nil {
			return containers.InvalidHandle, fmt.Errorf("material %q: %w", cfg.Name, err)
		}
		data.Textures[i] = h
	}

	h, exists := r.MaterialByName(cfg.Name)
	if exists {
		material := r.Material(h)
		if material.Metadata.Shader != sh {
			return containers.InvalidHandle, fmt.Errorf("material %q: %w: shader cannot change on reload", cfg.Name, core.ErrInvalidAsset)
		}
		for i := uint32(0); i < shader.LayoutInfo.SamplerCount; i++ {
			if material.Textures[i] == data.Textures[i] {
				continue
			}
			if err := r.UpdateMaterialTexture(h, i, data.Textures[i]); err != nil {
				return containers.InvalidHandle, err
			}
		}
	} else {
		var err error
		h, err = r.CreateMaterial(cfg.Name, &metadata.MaterialCreateInfo{
			Metadata: metadata.MaterialMetadata{Shader: sh, CastShadows: cfg.CastShadows},
			Data:     data,
		})
		if err != nil {
			return containers.InvalidHandle, err
		}
	}

	names := make([]string, 0, len(cfg.Properties))
	for name := range cfg.Properties {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		prop, ok := shader.Metadata.DataLayout.Property(name)
		if !ok {
			return h, fmt.Errorf("material %q: %w: %q in shader %q", cfg.Name, core.ErrUnknownProperty, name, shader.Name)
		}
		value, err := EncodeProperty(prop, cfg.Properties[name])
		if err != nil {
			return h, fmt.Errorf("material %q property %q: %w", cfg.Name, name, err)
		}
		if err := r.SetMaterialProperty(h, name, value); err != nil {
			return h, err
		}
	}
	return h, nil
}

func (am *AssetManager) texture(r MaterialTarget, name string) (containers.Handle, error) {
	if h, ok := r.TextureByName(name); ok {
		return h, nil
	}
	res, err := am.Load(name, &metadata.ImageResourceParams{})
	if err != nil {
		return containers.InvalidHandle, err
	}
	image, ok := res.Data.(*metadata.ImageResourceData)
	if !ok {
		return containers.InvalidHandle, fmt.Errorf("%w: %q is not an image", core.ErrUnsupportedAsset, name)
	}
	return r.CreateTexture(name, image.TextureCreateInfo(metadata.COLORSPACE_SRGB, metadata.TEXTURE_FILTER_LINEAR, true))
}

/**
 * @brief Converts a decoded property value into the std140 words the
 * property occupies: []float32, []int32 or []uint32 of ByteSize/4 entries.
 * Array elements and mat2 columns are padded to 16 bytes.
 */
func EncodeProperty(prop metadata.ShaderPropertyInfo, value interface{}) (interface{}, error) {
	values, err := loaders.FlattenNumbers(value)
	if err != nil {
		return nil, err
	}
	count := int(prop.Count)
	if count == 0 {
		count = 1
	}
	components := componentCount(prop.Type)
	if len(values) != components*count {
		return nil, fmt.Errorf("%w: %s[%d] takes %d values, got %d",
			core.ErrMaterialDataRange, prop.Name, count, components*count, len(values))
	}

	words := int(prop.ByteSize() / 4)
	stride := words / count
	slots := make([]float64, words)
	for e := 0; e < count; e++ {
		for c := 0; c < components; c++ {
			index := c
			if prop.Type == metadata.SHADER_PROPERTY_MAT2 {
				index = (c/2)*4 + c%2
			}
			slots[e*stride+index] = values[e*components+c]
		}
	}

	switch prop.Type {
	case metadata.SHADER_PROPERTY_INT, metadata.SHADER_PROPERTY_IVEC2, metadata.SHADER_PROPERTY_IVEC4:
		out := make([]int32, words)
		for i, v := range slots {
			if v != float64(int32(v)) {
				return nil, fmt.Errorf("%w: %v is not an int", core.ErrInvalidAsset, v)
			}
			out[i] = int32(v)
		}
		return out, nil
	case metadata.SHADER_PROPERTY_UINT, metadata.SHADER_PROPERTY_UVEC2, metadata.SHADER_PROPERTY_UVEC4:
		out := make([]uint32, words)
		for i, v := range slots {
			if v < 0 || v != float64(uint32(v)) {
				return nil, fmt.Errorf("%w: %v is not a uint", core.ErrInvalidAsset, v)
			}
			out[i] = uint32(v)
		}
		return out, nil
	}
	out := make([]float32, words)
	for i, v := range slots {
		out[i] = float32(v)
	}
	return out, nil
}

func componentCount(t metadata.ShaderPropertyType) int {
	switch t {
	case metadata.SHADER_PROPERTY_VEC2, metadata.SHADER_PROPERTY_IVEC2, metadata.SHADER_PROPERTY_UVEC2:
		return 2
	case metadata.SHADER_PROPERTY_VEC4, metadata.SHADER_PROPERTY_IVEC4, metadata.SHADER_PROPERTY_UVEC4,
		metadata.SHADER_PROPERTY_MAT2:
		return 4
	case metadata.SHADER_PROPERTY_MAT4:
		return 16
	}
	return 1
}
