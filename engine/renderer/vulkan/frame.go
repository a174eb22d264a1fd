package vulkan

import (
	"fmt"
	"math"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/anima-xr/engine/core"
	"github.com/spaghettifunk/anima-xr/engine/renderer/metadata"
)

const uniformReadStages = vk.PipelineStageVertexShaderBit | vk.PipelineStageFragmentShaderBit

// VulkanFrame is one frame-in-flight slot: a command pool with a single
// primary command buffer and the fence of its last submission.
type VulkanFrame struct {
	backend *VulkanRenderer
	index   uint32

	pool          vk.CommandPool
	commandBuffer *VulkanCommandBuffer
	fence         *VulkanFence
}

func newVulkanFrame(backend *VulkanRenderer, index uint32) (*VulkanFrame, error) {
	context := backend.context
	frame := &VulkanFrame{backend: backend, index: index}

	poolCreateInfo := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		QueueFamilyIndex: context.Device.GraphicsQueueIndex,
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateTransientBit),
	}
	var pool vk.CommandPool
	if err := VulkanCheck("vkCreateCommandPool", vk.CreateCommandPool(context.Device.LogicalDevice, &poolCreateInfo, context.Allocator, &pool)); err != nil {
		core.LogError(err.Error())
		return nil, err
	}
	frame.pool = pool

	cb, err := NewVulkanCommandBuffer(context, pool, true)
	if err != nil {
		frame.destroy()
		return nil, err
	}
	frame.commandBuffer = cb

	// Signaled so the first wait on this slot returns immediately.
	fence, err := NewFence(context, true)
	if err != nil {
		frame.destroy()
		return nil, err
	}
	frame.fence = fence
	return frame, nil
}

func (f *VulkanFrame) destroy() {
	context := f.backend.context
	if f.fence != nil {
		f.fence.FenceDestroy(context)
		f.fence = nil
	}
	if f.commandBuffer != nil {
		f.commandBuffer.Free(context, f.pool)
		f.commandBuffer = nil
	}
	if f.pool != nil {
		vk.DestroyCommandPool(context.Device.LogicalDevice, f.pool, context.Allocator)
		f.pool = nil
	}
}

func (f *VulkanFrame) cmd() vk.CommandBuffer {
	return f.commandBuffer.Handle
}

func (f *VulkanFrame) Wait() error {
	if err := f.fence.FenceWait(f.backend.context, math.MaxUint64); err != nil {
		return fmt.Errorf("frame %d: %w", f.index, err)
	}
	return nil
}

func (f *VulkanFrame) Begin() error {
	context := f.backend.context
	if err := VulkanCheck("vkResetCommandPool", vk.ResetCommandPool(context.Device.LogicalDevice, f.pool, 0)); err != nil {
		core.LogError(err.Error())
		return err
	}
	f.commandBuffer.Reset()
	return f.commandBuffer.Begin(true, false, false)
}

func (f *VulkanFrame) TransferUniformData(offset, size uint64) {
	RecordUniformTransfer(f.cmd(), f.backend.uniformHost, f.backend.uniform, offset, size,
		vk.AccessUniformReadBit, uniformReadStages)
}

func (f *VulkanFrame) TransferInstanceData(offset, size uint64) {
	RecordUniformTransfer(f.cmd(), f.backend.instanceHost, f.backend.instance, offset, size,
		vk.AccessUniformReadBit, vk.PipelineStageVertexShaderBit)
}

func (f *VulkanFrame) BeginForwardRenderPass(imageIndex uint32) error {
	context := f.backend.context
	targets := context.RenderTargets
	if targets == nil || context.MainRenderpass == nil {
		return fmt.Errorf("%w: render targets not created", core.ErrInvalidFrameState)
	}
	if imageIndex >= uint32(len(targets.Framebuffers)) {
		return fmt.Errorf("%w: swapchain image %d of %d", core.ErrInvalidHandle, imageIndex, len(targets.Framebuffers))
	}
	context.MainRenderpass.RenderpassBegin(f.commandBuffer, targets.Framebuffers[imageIndex].Handle)
	return nil
}

func (f *VulkanFrame) BindPipeline(shader *metadata.Shader) {
	s := shader.InternalData.(*VulkanShader)
	s.Pipeline.Bind(f.commandBuffer, vk.PipelineBindPointGraphics)
}

func (f *VulkanFrame) BindMaterial(shader *metadata.Shader, material *metadata.Material, instanceByteOffset uint32) {
	s := shader.InternalData.(*VulkanShader)
	m := material.InternalData.(*VulkanMaterial)
	vk.CmdBindDescriptorSets(f.cmd(), vk.PipelineBindPointGraphics, s.Pipeline.PipelineLayout,
		0, 1, []vk.DescriptorSet{m.Set}, 1, []uint32{instanceByteOffset})
}

func (f *VulkanFrame) BindMesh(mesh *metadata.Mesh, inputs metadata.VertexAttributeFlags) {
	mesh.InternalData.(*VulkanMesh).Bind(f.cmd(), inputs)
}

func (f *VulkanFrame) DrawIndexed(indexCount, instanceCount uint32) {
	vk.CmdDrawIndexed(f.cmd(), indexCount, instanceCount, 0, 0, 0)
}

func (f *VulkanFrame) EndRenderPass() {
	f.backend.context.MainRenderpass.RenderpassEnd(f.commandBuffer)
}

// EndAndSubmit resets the fence right before the submission that signals it,
// so an aborted frame never leaves the slot waiting on an unsignaled fence.
func (f *VulkanFrame) EndAndSubmit() error {
	context := f.backend.context
	if err := f.commandBuffer.End(); err != nil {
		return err
	}
	if err := f.fence.FenceReset(context); err != nil {
		return err
	}

	submitInfo := vk.SubmitInfo{
		SType:              vk.StructureTypeSubmitInfo,
		CommandBufferCount: 1,
		PCommandBuffers:    []vk.CommandBuffer{f.cmd()},
	}
	err := lockPool.SafeQueueCall(context.Device.GraphicsQueueIndex, func() error {
		return VulkanCheck("vkQueueSubmit", vk.QueueSubmit(context.Device.GraphicsQueue, 1, []vk.SubmitInfo{submitInfo}, f.fence.Handle))
	})
	if err != nil {
		core.LogError("frame %d: %s", f.index, err)
		return err
	}
	f.commandBuffer.UpdateSubmitted()
	return nil
}

func (f *VulkanFrame) Abort() {
	if f.commandBuffer.State == COMMAND_BUFFER_STATE_RECORDING || f.commandBuffer.State == COMMAND_BUFFER_STATE_IN_RENDER_PASS {
		_ = f.commandBuffer.End()
	}
	f.commandBuffer.Reset()
}
