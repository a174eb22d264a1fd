package renderer

import (
	"fmt"

	"github.com/spaghettifunk/anima-xr/engine/containers"
	"github.com/spaghettifunk/anima-xr/engine/core"
	"github.com/spaghettifunk/anima-xr/engine/renderer/metadata"
)

func validateShader(info *metadata.ShaderCreateInfo) error {
	if info == nil || len(info.VertexCode) == 0 || len(info.FragmentCode) == 0 {
		return fmt.Errorf("%w: shader code is empty", core.ErrUnknown)
	}
	layout := &info.Metadata.DataLayout
	if layout.DataSize > metadata.MaxShaderDataBlockSize {
		return fmt.Errorf("%w: %d bytes, max %d", core.ErrShaderDataTooLarge, layout.DataSize, metadata.MaxShaderDataBlockSize)
	}
	if info.SamplerCount > metadata.MaxSamplerCount {
		return fmt.Errorf("%w: %d samplers, max %d", core.ErrTooManySamplers, info.SamplerCount, metadata.MaxSamplerCount)
	}
	for _, p := range layout.Properties {
		if p.Offset+p.ByteSize() > layout.DataSize {
			return fmt.Errorf("%w: property %q ends at %d, data size is %d",
				core.ErrShaderDataTooLarge, p.Name, p.Offset+p.ByteSize(), layout.DataSize)
		}
	}
	if info.VertexInputs&metadata.VERTEX_POSITION_BIT == 0 {
		return fmt.Errorf("%w: shader does not consume positions", core.ErrInvalidMeshData)
	}
	return nil
}

// CreateShader builds the graphics pipeline of a vertex/fragment pair. The
// pipeline targets the forward multiview pass and reads one instance
// transform per instance from the instance buffer.
func (r *Renderer) CreateShader(name string, info *metadata.ShaderCreateInfo) (containers.Handle, error) {
	if err := r.idle("CreateShader"); err != nil {
		return containers.InvalidHandle, err
	}
	if err := validateShader(info); err != nil {
		core.LogError("CreateShader %q: %s", name, err)
		return containers.InvalidHandle, err
	}

	shader, h := r.shaders.Add()
	if shader == nil {
		return containers.InvalidHandle, fmt.Errorf("CreateShader %q: %w (%d shaders)", name, core.ErrPoolFull, r.shaders.Capacity())
	}
	shader.Name = register(r.shaderNames, "shader", name, h)
	shader.Metadata = info.Metadata
	shader.Metadata.DataLayout.Properties = append([]metadata.ShaderPropertyInfo(nil), info.Metadata.DataLayout.Properties...)
	shader.VertexInputs = info.VertexInputs
	shader.LayoutInfo = metadata.DescriptorSetLayoutInfo{
		Flags:        metadata.DESCRIPTOR_SET_LAYOUT_ALL,
		SamplerCount: info.SamplerCount,
	}

	if err := r.backend.CreateShader(info, shader); err != nil {
		unregister(r.shaderNames, shader.Name, h)
		r.shaders.Remove(h)
		core.LogError("CreateShader %q: %s", name, err)
		return containers.InvalidHandle, err
	}
	return h, nil
}

// FreeShader destroys the pipeline. Materials still referencing the shader
// fail to draw until they are freed.
func (r *Renderer) FreeShader(h containers.Handle) bool {
	if r.idle("FreeShader") != nil {
		return false
	}
	shader := r.shaders.Get(h)
	if shader == nil {
		return false
	}
	r.backend.DestroyShader(shader)
	unregister(r.shaderNames, shader.Name, h)
	return r.shaders.Remove(h)
}

func (r *Renderer) Shader(h containers.Handle) *metadata.Shader {
	return r.shaders.Get(h)
}

func (r *Renderer) ShaderByName(name string) (containers.Handle, bool) {
	return lookup(r.shaderNames, name)
}
