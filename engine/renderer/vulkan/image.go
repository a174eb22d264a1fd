package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/anima-xr/engine/core"
)

type VulkanImage struct {
	Handle    vk.Image
	Memory    vk.DeviceMemory
	View      vk.ImageView
	Format    vk.Format
	Width     uint32
	Height    uint32
	MipLevels uint32
	Layers    uint32
}

type VulkanImageConfig struct {
	Width, Height uint32
	MipLevels     uint32
	Layers        uint32
	Format        vk.Format
	Samples       vk.SampleCountFlagBits
	Usage         vk.ImageUsageFlagBits
	Aspect        vk.ImageAspectFlagBits
	ViewType      vk.ImageViewType
	Cube          bool
}

func ImageCreate(context *VulkanContext, config VulkanImageConfig) (*VulkanImage, error) {
	if config.MipLevels == 0 {
		config.MipLevels = 1
	}
	if config.Layers == 0 {
		config.Layers = 1
	}
	if config.Samples == 0 {
		config.Samples = vk.SampleCount1Bit
	}

	image := &VulkanImage{
		Format:    config.Format,
		Width:     config.Width,
		Height:    config.Height,
		MipLevels: config.MipLevels,
		Layers:    config.Layers,
	}

	createInfo := vk.ImageCreateInfo{
		SType:     vk.StructureTypeImageCreateInfo,
		ImageType: vk.ImageType2d,
		Format:    config.Format,
		Extent: vk.Extent3D{
			Width:  config.Width,
			Height: config.Height,
			Depth:  1,
		},
		MipLevels:     config.MipLevels,
		ArrayLayers:   config.Layers,
		Samples:       config.Samples,
		Tiling:        vk.ImageTilingOptimal,
		Usage:         vk.ImageUsageFlags(config.Usage),
		SharingMode:   vk.SharingModeExclusive,
		InitialLayout: vk.ImageLayoutUndefined,
	}
	if config.Cube {
		createInfo.Flags = vk.ImageCreateFlags(vk.ImageCreateCubeCompatibleBit)
	}

	device := context.Device.LogicalDevice
	err := lockPool.SafeCall(MemoryManagement, func() error {
		var handle vk.Image
		if err := VulkanCheck("vkCreateImage", vk.CreateImage(device, &createInfo, context.Allocator, &handle)); err != nil {
			return err
		}
		image.Handle = handle

		var requirements vk.MemoryRequirements
		vk.GetImageMemoryRequirements(device, handle, &requirements)
		requirements.Deref()

		memoryIndex := context.FindMemoryIndex(requirements.MemoryTypeBits, uint32(vk.MemoryPropertyDeviceLocalBit))
		if memoryIndex < 0 {
			return fmt.Errorf("%w: no device local memory for image", core.ErrVulkanCall)
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
		image.Memory = memory
		return VulkanCheck("vkBindImageMemory", vk.BindImageMemory(device, handle, memory, 0))
	})
	if err != nil {
		core.LogError("failed to create %dx%d image: %s", config.Width, config.Height, err)
		image.Destroy(context)
		return nil, err
	}

	view, err := ImageViewCreate(context, image.Handle, config.Format, config.ViewType, config.Aspect, 0, config.MipLevels, 0, config.Layers)
	if err != nil {
		image.Destroy(context)
		return nil, err
	}
	image.View = view
	return image, nil
}

func ImageViewCreate(context *VulkanContext, image vk.Image, format vk.Format, viewType vk.ImageViewType, aspect vk.ImageAspectFlagBits, baseMip, mipCount, baseLayer, layerCount uint32) (vk.ImageView, error) {
	viewCreateInfo := vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    image,
		ViewType: viewType,
		Format:   format,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask:     vk.ImageAspectFlags(aspect),
			BaseMipLevel:   baseMip,
			LevelCount:     mipCount,
			BaseArrayLayer: baseLayer,
			LayerCount:     layerCount,
		},
	}
	var view vk.ImageView
	if err := VulkanCheck("vkCreateImageView", vk.CreateImageView(context.Device.LogicalDevice, &viewCreateInfo, context.Allocator, &view)); err != nil {
		core.LogError(err.Error())
		return nil, err
	}
	return view, nil
}

func (image *VulkanImage) Destroy(context *VulkanContext) {
	device := context.Device.LogicalDevice
	_ = lockPool.SafeCall(MemoryManagement, func() error {
		if image.View != nil {
			vk.DestroyImageView(device, image.View, context.Allocator)
			image.View = nil
		}
		if image.Handle != nil {
			vk.DestroyImage(device, image.Handle, context.Allocator)
			image.Handle = nil
		}
		if image.Memory != nil {
			vk.FreeMemory(device, image.Memory, context.Allocator)
			image.Memory = nil
		}
		return nil
	})
}

// TransitionLayout records a barrier moving mip levels [baseMip, baseMip+mipCount)
// of every layer from oldLayout to newLayout.
func (image *VulkanImage) TransitionLayout(cmd vk.CommandBuffer, oldLayout, newLayout vk.ImageLayout, baseMip, mipCount uint32,
	srcAccess, dstAccess vk.AccessFlagBits, srcStage, dstStage vk.PipelineStageFlagBits) {
	barrier := vk.ImageMemoryBarrier{
		SType:               vk.StructureTypeImageMemoryBarrier,
		SrcAccessMask:       vk.AccessFlags(srcAccess),
		DstAccessMask:       vk.AccessFlags(dstAccess),
		OldLayout:           oldLayout,
		NewLayout:           newLayout,
		SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
		DstQueueFamilyIndex: vk.QueueFamilyIgnored,
		Image:               image.Handle,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
			BaseMipLevel:   baseMip,
			LevelCount:     mipCount,
			BaseArrayLayer: 0,
			LayerCount:     image.Layers,
		},
	}
	vk.CmdPipelineBarrier(cmd, vk.PipelineStageFlags(srcStage), vk.PipelineStageFlags(dstStage),
		0, 0, nil, 0, nil, 1, []vk.ImageMemoryBarrier{barrier})
}

// CopyFromBuffer records a copy of tightly packed layers into mip level 0.
func (image *VulkanImage) CopyFromBuffer(cmd vk.CommandBuffer, buffer *VulkanBuffer) {
	region := vk.BufferImageCopy{
		BufferOffset:      0,
		BufferRowLength:   0,
		BufferImageHeight: 0,
		ImageSubresource: vk.ImageSubresourceLayers{
			AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
			MipLevel:       0,
			BaseArrayLayer: 0,
			LayerCount:     image.Layers,
		},
		ImageOffset: vk.Offset3D{},
		ImageExtent: vk.Extent3D{Width: image.Width, Height: image.Height, Depth: 1},
	}
	vk.CmdCopyBufferToImage(cmd, buffer.Handle, image.Handle, vk.ImageLayoutTransferDstOptimal, 1, []vk.BufferImageCopy{region})
}

// GenerateMipmaps expects level 0 in TRANSFER_SRC and the remaining levels in
// TRANSFER_DST. Each level is blitted from the previous one at half size.
// Every level ends in SHADER_READ_ONLY.
func (image *VulkanImage) GenerateMipmaps(cmd vk.CommandBuffer) {
	width, height := int32(image.Width), int32(image.Height)
	for level := uint32(1); level < image.MipLevels; level++ {
		nextWidth, nextHeight := width, height
		if nextWidth > 1 {
			nextWidth /= 2
		}
		if nextHeight > 1 {
			nextHeight /= 2
		}
		blit := vk.ImageBlit{
			SrcSubresource: vk.ImageSubresourceLayers{
				AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
				MipLevel:   level - 1,
				LayerCount: image.Layers,
			},
			SrcOffsets: [2]vk.Offset3D{{}, {X: width, Y: height, Z: 1}},
			DstSubresource: vk.ImageSubresourceLayers{
				AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
				MipLevel:   level,
				LayerCount: image.Layers,
			},
			DstOffsets: [2]vk.Offset3D{{}, {X: nextWidth, Y: nextHeight, Z: 1}},
		}
		vk.CmdBlitImage(cmd,
			image.Handle, vk.ImageLayoutTransferSrcOptimal,
			image.Handle, vk.ImageLayoutTransferDstOptimal,
			1, []vk.ImageBlit{blit}, vk.FilterLinear)

		// the level just written becomes the source of the next blit
		image.TransitionLayout(cmd, vk.ImageLayoutTransferDstOptimal, vk.ImageLayoutTransferSrcOptimal, level, 1,
			vk.AccessTransferWriteBit, vk.AccessTransferReadBit,
			vk.PipelineStageTransferBit, vk.PipelineStageTransferBit)

		width, height = nextWidth, nextHeight
	}

	image.TransitionLayout(cmd, vk.ImageLayoutTransferSrcOptimal, vk.ImageLayoutShaderReadOnlyOptimal, 0, image.MipLevels,
		vk.AccessTransferReadBit, vk.AccessShaderReadBit,
		vk.PipelineStageTransferBit, vk.PipelineStageFragmentShaderBit)
}
