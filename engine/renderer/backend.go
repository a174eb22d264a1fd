package renderer

import "github.com/spaghettifunk/anima-xr/engine/renderer/metadata"

// RendererBackend owns the GPU objects behind the resource tables and the
// per-frame command contexts. The renderer drives it from a single thread.
type RendererBackend interface {
	// MinUniformBufferOffsetAlignment of the selected device.
	MinUniformBufferOffsetAlignment() uint64
	// CreateDataBuffers allocates the host and device uniform and instance
	// buffers described by layout. Must be called before any resource is created.
	CreateDataBuffers(layout DataLayout) error
	// UniformData is the host-visible mapping of the uniform buffer.
	UniformData() []byte
	// InstanceData is the host-visible mapping of the instance buffer.
	InstanceData() []byte

	CreateMesh(info *metadata.MeshCreateInfo, mesh *metadata.Mesh) error
	DestroyMesh(mesh *metadata.Mesh)
	CreateTexture(info *metadata.TextureCreateInfo, texture *metadata.Texture) error
	DestroyTexture(texture *metadata.Texture)
	CreateShader(info *metadata.ShaderCreateInfo, shader *metadata.Shader) error
	DestroyShader(shader *metadata.Shader)
	// CreateMaterial allocates the material's descriptor set. slot selects the
	// shader data element; textures has one entry per shader sampler, nil
	// entries bind the default texture.
	CreateMaterial(material *metadata.Material, shader *metadata.Shader, slot uint32, textures []*metadata.Texture) error
	UpdateMaterialTexture(material *metadata.Material, index uint32, texture *metadata.Texture) error
	// UpdateMaterialEnvironment rewrites the cubemap binding. nil binds the default cubemap.
	UpdateMaterialEnvironment(material *metadata.Material, shader *metadata.Shader, cubemap *metadata.Texture) error
	DestroyMaterial(material *metadata.Material)

	// Frame returns the command context of a frame-in-flight slot.
	Frame(index uint32) FrameContext
	WaitIdle() error
	Shutdown() error
}

// FrameContext is one double-buffered slot: a command recording context and
// the fence signaled when its last submission completes.
type FrameContext interface {
	// Wait blocks until the previous submission of this slot has completed.
	Wait() error
	// Begin resets the command pool and starts a one-time-submit recording.
	Begin() error
	CommandRecorder
	// EndAndSubmit closes the recording and submits it with the slot fence
	// and no semaphores.
	EndAndSubmit() error
	// Abort closes the recording without submitting it.
	Abort()
}

// CommandRecorder records the commands of the forward pass.
type CommandRecorder interface {
	TransferUniformData(offset, size uint64)
	TransferInstanceData(offset, size uint64)
	BeginForwardRenderPass(imageIndex uint32) error
	BindPipeline(shader *metadata.Shader)
	// BindMaterial binds the material descriptor set with the instance
	// buffer dynamic offset in bytes.
	BindMaterial(shader *metadata.Shader, material *metadata.Material, instanceByteOffset uint32)
	BindMesh(mesh *metadata.Mesh, inputs metadata.VertexAttributeFlags)
	DrawIndexed(indexCount, instanceCount uint32)
	EndRenderPass()
}
