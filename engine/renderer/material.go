package renderer

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/spaghettifunk/anima-xr/engine/containers"
	"github.com/spaghettifunk/anima-xr/engine/core"
	"github.com/spaghettifunk/anima-xr/engine/renderer/metadata"
)

// CreateMaterial allocates a descriptor set for the material's shader and
// writes its data block into the shader data slot of the uniform buffer.
func (r *Renderer) CreateMaterial(name string, info *metadata.MaterialCreateInfo) (containers.Handle, error) {
	if err := r.idle("CreateMaterial"); err != nil {
		return containers.InvalidHandle, err
	}
	if info == nil {
		return containers.InvalidHandle, fmt.Errorf("CreateMaterial %q: no create info: %w", name, core.ErrInvalidHandle)
	}
	shader := r.shaders.Get(info.Metadata.Shader)
	if shader == nil {
		return containers.InvalidHandle, fmt.Errorf("CreateMaterial %q shader %s: %w", name, info.Metadata.Shader, core.ErrInvalidHandle)
	}
	textures, err := r.resolveTextures(shader, info.Data.Textures)
	if err != nil {
		return containers.InvalidHandle, fmt.Errorf("CreateMaterial %q: %w", name, err)
	}

	material, h := r.materials.Add()
	if material == nil {
		return containers.InvalidHandle, fmt.Errorf("CreateMaterial %q: %w (%d materials)", name, core.ErrPoolFull, r.materials.Capacity())
	}
	material.Name = register(r.materialNames, "material", name, h)
	material.Metadata = info.Metadata
	material.Layer = shader.Metadata.Layer
	material.Textures = info.Data.Textures

	if err := r.backend.CreateMaterial(material, shader, h.Index(), textures); err != nil {
		unregister(r.materialNames, material.Name, h)
		r.materials.Remove(h)
		core.LogError("CreateMaterial %q: %s", name, err)
		return containers.InvalidHandle, err
	}
	if !r.environment.IsNull() {
		if err := r.backend.UpdateMaterialEnvironment(material, shader, r.textures.Get(r.environment)); err != nil {
			core.LogWarn("CreateMaterial %q: failed to bind environment map: %s", name, err)
		}
	}

	off := r.layout.MaterialDataOffset(h.Index())
	copy(r.backend.UniformData()[off:off+uint64(metadata.MaxShaderDataBlockSize)], info.Data.Data[:])
	return h, nil
}

func (r *Renderer) resolveTextures(shader *metadata.Shader, handles [metadata.MaxSamplerCount]containers.Handle) ([]*metadata.Texture, error) {
	textures := make([]*metadata.Texture, shader.LayoutInfo.SamplerCount)
	for i := range textures {
		if handles[i].IsNull() {
			continue
		}
		t := r.textures.Get(handles[i])
		if t == nil {
			return nil, fmt.Errorf("sampler %d texture %s: %w", i, handles[i], core.ErrInvalidHandle)
		}
		textures[i] = t
	}
	return textures, nil
}

// UpdateMaterialData copies data into the material's block at offset. The
// change is visible from the next Render.
func (r *Renderer) UpdateMaterialData(h containers.Handle, data []byte, offset uint32) error {
	if r.materials.Get(h) == nil {
		return fmt.Errorf("UpdateMaterialData %s: %w", h, core.ErrInvalidHandle)
	}
	if uint64(offset)+uint64(len(data)) > uint64(metadata.MaxShaderDataBlockSize) {
		return fmt.Errorf("%w: %d bytes at offset %d", core.ErrMaterialDataRange, len(data), offset)
	}
	if len(data) == 0 {
		return nil
	}
	if err := r.idle("UpdateMaterialData"); err != nil {
		return err
	}
	base := r.layout.MaterialDataOffset(h.Index()) + uint64(offset)
	copy(r.backend.UniformData()[base:], data)
	return nil
}

// SetMaterialProperty writes value at the offset of the named property of
// the material's shader. value must be a fixed-size type matching the
// property's size, e.g. mgl32.Vec4 for a vec4.
func (r *Renderer) SetMaterialProperty(h containers.Handle, name string, value interface{}) error {
	material := r.materials.Get(h)
	if material == nil {
		return fmt.Errorf("SetMaterialProperty %s: %w", h, core.ErrInvalidHandle)
	}
	shader := r.shaders.Get(material.Metadata.Shader)
	if shader == nil {
		return fmt.Errorf("SetMaterialProperty %s shader: %w", h, core.ErrInvalidHandle)
	}
	prop, ok := shader.Metadata.DataLayout.Property(name)
	if !ok {
		return fmt.Errorf("%w: %q in shader %q", core.ErrUnknownProperty, name, shader.Name)
	}

	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, value); err != nil {
		return fmt.Errorf("SetMaterialProperty %q: %w", name, err)
	}
	if uint32(buf.Len()) != prop.ByteSize() {
		return fmt.Errorf("%w: %q expects %d bytes, got %d", core.ErrMaterialDataRange, name, prop.ByteSize(), buf.Len())
	}
	return r.UpdateMaterialData(h, buf.Bytes(), prop.Offset)
}

// UpdateMaterialTexture rebinds sampler index. InvalidHandle binds the
// default texture.
func (r *Renderer) UpdateMaterialTexture(h containers.Handle, index uint32, texture containers.Handle) error {
	if err := r.idle("UpdateMaterialTexture"); err != nil {
		return err
	}
	material := r.materials.Get(h)
	if material == nil {
		return fmt.Errorf("UpdateMaterialTexture %s: %w", h, core.ErrInvalidHandle)
	}
	shader := r.shaders.Get(material.Metadata.Shader)
	if shader == nil {
		return fmt.Errorf("UpdateMaterialTexture %s shader: %w", h, core.ErrInvalidHandle)
	}
	if index >= metadata.MaxSamplerCount || index >= shader.LayoutInfo.SamplerCount {
		return fmt.Errorf("%w: sampler %d of %d", core.ErrTooManySamplers, index, shader.LayoutInfo.SamplerCount)
	}
	var t *metadata.Texture
	if !texture.IsNull() {
		if t = r.textures.Get(texture); t == nil {
			return fmt.Errorf("UpdateMaterialTexture texture %s: %w", texture, core.ErrInvalidHandle)
		}
	}
	if err := r.backend.UpdateMaterialTexture(material, index, t); err != nil {
		return err
	}
	material.Textures[index] = texture
	return nil
}

func (r *Renderer) FreeMaterial(h containers.Handle) bool {
	if r.idle("FreeMaterial") != nil {
		return false
	}
	material := r.materials.Get(h)
	if material == nil {
		return false
	}
	r.backend.DestroyMaterial(material)
	unregister(r.materialNames, material.Name, h)

	off := r.layout.MaterialDataOffset(h.Index())
	clear(r.backend.UniformData()[off : off+uint64(metadata.MaxShaderDataBlockSize)])
	return r.materials.Remove(h)
}

func (r *Renderer) Material(h containers.Handle) *metadata.Material {
	return r.materials.Get(h)
}

func (r *Renderer) MaterialByName(name string) (containers.Handle, bool) {
	return lookup(r.materialNames, name)
}
