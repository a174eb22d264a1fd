package vulkan

import (
	"fmt"
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/anima-xr/engine/core"
)

type VulkanBuffer struct {
	Handle vk.Buffer
	Memory vk.DeviceMemory
	Size   uint64
	Usage  vk.BufferUsageFlagBits
	// Mapped is the persistent host mapping. Nil for device-local buffers.
	Mapped []byte
}

func BufferCreate(context *VulkanContext, size uint64, usage vk.BufferUsageFlagBits, memoryFlags vk.MemoryPropertyFlagBits, mapped bool) (*VulkanBuffer, error) {
	buffer := &VulkanBuffer{Size: size, Usage: usage}

	createInfo := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        vk.DeviceSize(size),
		Usage:       vk.BufferUsageFlags(usage),
		SharingMode: vk.SharingModeExclusive,
	}

	device := context.Device.LogicalDevice
	err := lockPool.SafeCall(MemoryManagement, func() error {
		var handle vk.Buffer
		if err := VulkanCheck("vkCreateBuffer", vk.CreateBuffer(device, &createInfo, context.Allocator, &handle)); err != nil {
			return err
		}
		buffer.Handle = handle

		var requirements vk.MemoryRequirements
		vk.GetBufferMemoryRequirements(device, handle, &requirements)
		requirements.Deref()

		memoryIndex := context.FindMemoryIndex(requirements.MemoryTypeBits, uint32(memoryFlags))
		if memoryIndex < 0 {
			return fmt.Errorf("%w: no memory type for buffer of %d bytes", core.ErrVulkanCall, size)
		}

		allocateInfo := vk.MemoryAllocateInfo{
			SType:           vk.StructureTypeMemoryAllocateInfo,
			AllocationSize:  requirements.Size,
			MemoryTypeIndex: uint32(memoryIndex),
		}
		var memory vk.DeviceMemory
		if err := VulkanCheck("vkAllocateMemory", vk.AllocateMemory(device, &allocateInfo, context.Allocator, &memory)); err != nil {
			return err
		}
		buffer.Memory = memory

		if err := VulkanCheck("vkBindBufferMemory", vk.BindBufferMemory(device, handle, memory, 0)); err != nil {
			return err
		}

		if mapped {
			var data unsafe.Pointer
			if err := VulkanCheck("vkMapMemory", vk.MapMemory(device, memory, 0, vk.DeviceSize(size), 0, &data)); err != nil {
				return err
			}
			buffer.Mapped = unsafe.Slice((*byte)(data), size)
		}
		return nil
	})
	if err != nil {
		core.LogError("failed to create buffer of %d bytes: %s", size, err)
		buffer.Destroy(context)
		return nil, err
	}
	return buffer, nil
}

func (b *VulkanBuffer) Destroy(context *VulkanContext) {
	device := context.Device.LogicalDevice
	_ = lockPool.SafeCall(MemoryManagement, func() error {
		if b.Mapped != nil {
			vk.UnmapMemory(device, b.Memory)
			b.Mapped = nil
		}
		if b.Handle != nil {
			vk.DestroyBuffer(device, b.Handle, context.Allocator)
			b.Handle = nil
		}
		if b.Memory != nil {
			vk.FreeMemory(device, b.Memory, context.Allocator)
			b.Memory = nil
		}
		return nil
	})
}

// CopyTo records a copy of size bytes at offset into the same offset of dst.
func (b *VulkanBuffer) CopyTo(cmd vk.CommandBuffer, dst *VulkanBuffer, offset, size uint64) {
	region := vk.BufferCopy{
		SrcOffset: vk.DeviceSize(offset),
		DstOffset: vk.DeviceSize(offset),
		Size:      vk.DeviceSize(size),
	}
	vk.CmdCopyBuffer(cmd, b.Handle, dst.Handle, 1, []vk.BufferCopy{region})
}

// UploadDeviceLocalBuffer creates a device-local buffer holding data, going
// through a staging buffer and a blocking single-use submission.
func UploadDeviceLocalBuffer(context *VulkanContext, data []byte, usage vk.BufferUsageFlagBits) (*VulkanBuffer, error) {
	size := uint64(len(data))
	staging, err := BufferCreate(context, size,
		vk.BufferUsageTransferSrcBit,
		vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit, true)
	if err != nil {
		return nil, err
	}
	defer staging.Destroy(context)
	copy(staging.Mapped, data)

	buffer, err := BufferCreate(context, size, usage|vk.BufferUsageTransferDstBit, vk.MemoryPropertyDeviceLocalBit, false)
	if err != nil {
		return nil, err
	}

	if err := SingleUse(context, func(cmd vk.CommandBuffer) {
		staging.CopyTo(cmd, buffer, 0, size)
	}); err != nil {
		buffer.Destroy(context)
		return nil, err
	}
	return buffer, nil
}

// RecordUniformTransfer copies [offset, offset+size) from src to dst between
// two barriers: previous shader reads finish before the copy, and the copy
// is visible to shader reads after it.
func RecordUniformTransfer(cmd vk.CommandBuffer, src, dst *VulkanBuffer, offset, size uint64, readAccess vk.AccessFlagBits, readStages vk.PipelineStageFlagBits) {
	before := vk.BufferMemoryBarrier{
		SType:               vk.StructureTypeBufferMemoryBarrier,
		SrcAccessMask:       vk.AccessFlags(readAccess),
		DstAccessMask:       vk.AccessFlags(vk.AccessTransferWriteBit),
		SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
		DstQueueFamilyIndex: vk.QueueFamilyIgnored,
		Buffer:              dst.Handle,
		Offset:              vk.DeviceSize(offset),
		Size:                vk.DeviceSize(size),
	}
	vk.CmdPipelineBarrier(cmd,
		vk.PipelineStageFlags(readStages), vk.PipelineStageFlags(vk.PipelineStageTransferBit),
		0, 0, nil, 1, []vk.BufferMemoryBarrier{before}, 0, nil)

	src.CopyTo(cmd, dst, offset, size)

	after := before
	after.SrcAccessMask = vk.AccessFlags(vk.AccessTransferWriteBit)
	after.DstAccessMask = vk.AccessFlags(readAccess)
	vk.CmdPipelineBarrier(cmd,
		vk.PipelineStageFlags(vk.PipelineStageTransferBit), vk.PipelineStageFlags(readStages),
		0, 0, nil, 1, []vk.BufferMemoryBarrier{after}, 0, nil)
}
