package renderer

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/anima-xr/engine/containers"
	"github.com/spaghettifunk/anima-xr/engine/core"
	"github.com/spaghettifunk/anima-xr/engine/math"
	"github.com/spaghettifunk/anima-xr/engine/renderer/metadata"
)

// RenderStats counts the commands recorded by the last Render.
type RenderStats struct {
	Drawcalls      uint32
	Instances      uint32
	PipelineBinds  uint32
	MaterialBinds  uint32
	DescriptorSets uint32
	MeshBinds      uint32
}

// Renderer owns the resource tables and turns queued draws into one forward
// multiview pass per frame. It is not safe for concurrent use; resources must
// be created and freed outside of Render.
type Renderer struct {
	backend RendererBackend
	layout  DataLayout

	meshes    *containers.Pool[metadata.Mesh]
	textures  *containers.Pool[metadata.Texture]
	shaders   *containers.Pool[metadata.Shader]
	materials *containers.Pool[metadata.Material]

	meshNames     map[string]containers.Handle
	textureNames  map[string]containers.Handle
	shaderNames   map[string]containers.Handle
	materialNames map[string]containers.Handle

	environment containers.Handle

	queue     *RenderQueue
	scheduler *FrameScheduler

	camera   metadata.CameraData
	lighting metadata.LightingData

	stats RenderStats
}

func New(backend RendererBackend) (*Renderer, error) {
	layout := NewDataLayout(backend.MinUniformBufferOffsetAlignment())
	if err := backend.CreateDataBuffers(layout); err != nil {
		core.LogError("failed to create renderer data buffers: %s", err)
		return nil, err
	}
	if uint64(len(backend.UniformData())) < layout.UniformSize || uint64(len(backend.InstanceData())) < layout.InstanceBufferSize {
		return nil, fmt.Errorf("%w: backend data buffers are smaller than the layout", core.ErrUnknown)
	}

	r := &Renderer{
		backend:       backend,
		layout:        layout,
		meshes:        containers.NewPool[metadata.Mesh](metadata.MaxMeshCount),
		textures:      containers.NewPool[metadata.Texture](metadata.MaxTextureCount),
		shaders:       containers.NewPool[metadata.Shader](metadata.MaxShaderCount),
		materials:     containers.NewPool[metadata.Material](metadata.MaxMaterialCount),
		meshNames:     make(map[string]containers.Handle),
		textureNames:  make(map[string]containers.Handle),
		shaderNames:   make(map[string]containers.Handle),
		materialNames: make(map[string]containers.Handle),
		environment:   containers.InvalidHandle,
		queue:         NewRenderQueue(metadata.MaxDrawcallCount, metadata.MaxInstanceCount),
		scheduler:     NewFrameScheduler(backend, metadata.MaxFramesInFlight),
	}
	r.camera = metadata.CameraData{
		View:       [2]mgl32.Mat4{mgl32.Ident4(), mgl32.Ident4()},
		Projection: [2]mgl32.Mat4{mgl32.Ident4(), mgl32.Ident4()},
	}
	r.UpdateCameraRaw(r.camera)
	r.UpdateMainLight(mgl32.QuatIdent(), mgl32.Vec4{1, 1, 1, 1})
	r.UpdateAmbientLight(mgl32.Vec4{0.1, 0.1, 0.1, 1})

	core.LogInfo("renderer initialized: uniform %d bytes, instance %d bytes (stride %d)",
		layout.UniformSize, layout.InstanceBufferSize, layout.InstanceStride)
	return r, nil
}

func (r *Renderer) Layout() DataLayout {
	return r.layout
}

func (r *Renderer) Scheduler() *FrameScheduler {
	return r.scheduler
}

func (r *Renderer) Queue() *RenderQueue {
	return r.queue
}

func (r *Renderer) LastFrameStats() RenderStats {
	return r.stats
}

func (r *Renderer) idle(op string) error {
	if r.scheduler.State() != FRAME_STATE_IDLE {
		return fmt.Errorf("%s: %w", op, core.ErrFrameRecording)
	}
	return nil
}

// UpdateCameraRaw replaces the camera block of the next frame.
func (r *Renderer) UpdateCameraRaw(data metadata.CameraData) {
	r.camera = data
	r.camera.Encode(r.backend.UniformData()[r.layout.CameraOffset:])
}

func (r *Renderer) Camera() metadata.CameraData {
	return r.camera
}

// UpdateMainLight sets the directional light from its rotation.
func (r *Renderer) UpdateMainLight(rotation mgl32.Quat, color mgl32.Vec4) {
	r.lighting.MainLightColor = color
	r.lighting.MainLightProjection = math.LightProjection()
	r.lighting.MainLightDirection = math.LightDirection(rotation)
	r.lighting.MainLightMatrix = rotation.Normalize().Mat4().Transpose()
	r.lighting.Encode(r.backend.UniformData()[r.layout.LightingOffset:])
}

func (r *Renderer) UpdateAmbientLight(color mgl32.Vec4) {
	r.lighting.AmbientColor = color
	r.lighting.Encode(r.backend.UniformData()[r.layout.LightingOffset:])
}

func (r *Renderer) Lighting() metadata.LightingData {
	return r.lighting
}

func (r *Renderer) DrawMesh(mesh, material containers.Handle, transform mgl32.Mat4) error {
	return r.DrawMeshInstanced(mesh, material, []mgl32.Mat4{transform})
}

// DrawMeshInstanced queues one drawcall for len(transforms) instances. It
// fails without queuing anything if a budget would be exceeded.
func (r *Renderer) DrawMeshInstanced(mesh, material containers.Handle, transforms []mgl32.Mat4) error {
	count := uint32(len(transforms))
	if count == 0 {
		return nil
	}
	if count > metadata.MaxInstanceCountPerDraw {
		return fmt.Errorf("%w: %d instances in one draw, max %d", core.ErrInstanceBudgetExceeded, count, metadata.MaxInstanceCountPerDraw)
	}
	m := r.meshes.Get(mesh)
	if m == nil {
		return fmt.Errorf("draw mesh %s: %w", mesh, core.ErrInvalidHandle)
	}
	mat := r.materials.Get(material)
	if mat == nil {
		return fmt.Errorf("draw material %s: %w", material, core.ErrInvalidHandle)
	}
	shader := r.shaders.Get(mat.Metadata.Shader)
	if shader == nil {
		return fmt.Errorf("draw material %q shader %s: %w", mat.Name, mat.Metadata.Shader, core.ErrInvalidHandle)
	}
	if err := checkVertexInputs(m, shader); err != nil {
		return err
	}

	_, instanceOffset, err := r.queue.Push(mesh.Index(), material.Index(), mat.Layer, count)
	if err != nil {
		return err
	}

	dst := r.backend.InstanceData()
	off := int(r.layout.InstanceOffset(instanceOffset))
	for _, t := range transforms {
		off = metadata.PutMat4(dst, off, t)
	}
	return nil
}

// DiscardFrame drops the queued draws of a frame that will not be rendered,
// e.g. when no swapchain image could be acquired.
func (r *Renderer) DiscardFrame() {
	if n := r.queue.Len(); n > 0 {
		core.LogDebug("discarding %d queued drawcalls", n)
	}
	r.queue.Reset()
}

func checkVertexInputs(mesh *metadata.Mesh, shader *metadata.Shader) error {
	if mesh.Attributes&shader.VertexInputs != shader.VertexInputs {
		return fmt.Errorf("%w: mesh %q lacks attributes %b required by shader %q",
			core.ErrInvalidMeshData, mesh.Name, shader.VertexInputs&^mesh.Attributes, shader.Name)
	}
	return nil
}

// Render records and submits the queued draws into the swapchain image
// imageIndex. The queue is empty afterwards, also when an error is returned.
func (r *Renderer) Render(imageIndex uint32) (err error) {
	defer r.queue.Reset()
	defer func() {
		if err != nil {
			r.scheduler.Abort()
			core.LogError("render failed: %s", err)
		}
	}()

	r.queue.Sort()
	stats := RenderStats{
		Drawcalls: uint32(r.queue.Len()),
		Instances: r.queue.InstanceCount(),
	}

	if err = r.scheduler.BeginRenderCommands(); err != nil {
		return err
	}
	if err = r.scheduler.TransferUniformBufferData(r.layout.UniformSize); err != nil {
		return err
	}
	if err = r.scheduler.TransferInstanceBufferData(0, r.layout.InstanceOffset(r.queue.InstanceCount())); err != nil {
		return err
	}
	if err = r.scheduler.BeginForwardRenderPass(imageIndex); err != nil {
		return err
	}
	rec, err := r.scheduler.Recorder()
	if err != nil {
		return err
	}

	var (
		prevShader   = containers.InvalidHandle
		prevMaterial = containers.InvalidHandle
		prevMesh     = containers.InvalidHandle
	)
	for i := 0; i < r.queue.Len(); i++ {
		call := r.queue.At(i)
		data := r.queue.Data(call.DataIndex())

		matHandle, ok := r.materials.HandleAt(call.Material())
		if !ok {
			return fmt.Errorf("drawcall %d material slot %d: %w", i, call.Material(), core.ErrInvalidHandle)
		}
		meshHandle, ok := r.meshes.HandleAt(call.Mesh())
		if !ok {
			return fmt.Errorf("drawcall %d mesh slot %d: %w", i, call.Mesh(), core.ErrInvalidHandle)
		}
		material := r.materials.Get(matHandle)
		mesh := r.meshes.Get(meshHandle)
		shader := r.shaders.Get(material.Metadata.Shader)
		if shader == nil {
			return fmt.Errorf("drawcall %d shader %s: %w", i, material.Metadata.Shader, core.ErrInvalidHandle)
		}
		if err = checkVertexInputs(mesh, shader); err != nil {
			return err
		}

		shaderChanged := material.Metadata.Shader != prevShader
		if shaderChanged {
			rec.BindPipeline(shader)
			prevShader = material.Metadata.Shader
			stats.PipelineBinds++
		}
		if matHandle != prevMaterial {
			prevMaterial = matHandle
			stats.MaterialBinds++
		}
		// the instance range differs per call, so the dynamic offset is rebound every draw
		rec.BindMaterial(shader, material, uint32(r.layout.InstanceOffset(data.InstanceOffset)))
		stats.DescriptorSets++

		if meshHandle != prevMesh || shaderChanged {
			rec.BindMesh(mesh, shader.VertexInputs)
			prevMesh = meshHandle
			stats.MeshBinds++
		}
		rec.DrawIndexed(mesh.IndexCount, data.InstanceCount)
	}

	if err = r.scheduler.EndRenderPass(); err != nil {
		return err
	}
	if err = r.scheduler.EndRenderCommands(); err != nil {
		return err
	}
	r.stats = stats
	return nil
}

// Shutdown waits for the device and frees every remaining resource.
func (r *Renderer) Shutdown() error {
	r.scheduler.Abort()
	if err := r.backend.WaitIdle(); err != nil {
		core.LogError("failed waiting for device idle: %s", err)
	}
	for h, ok := r.materials.GetHandle(0); ok; h, ok = r.materials.GetHandle(0) {
		r.FreeMaterial(h)
	}
	for h, ok := r.shaders.GetHandle(0); ok; h, ok = r.shaders.GetHandle(0) {
		r.FreeShader(h)
	}
	for h, ok := r.textures.GetHandle(0); ok; h, ok = r.textures.GetHandle(0) {
		r.FreeTexture(h)
	}
	for h, ok := r.meshes.GetHandle(0); ok; h, ok = r.meshes.GetHandle(0) {
		r.FreeMesh(h)
	}
	return r.backend.Shutdown()
}
