package vulkan

import (
	"fmt"
	stdmath "math"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/anima-xr/engine/core"
	"github.com/spaghettifunk/anima-xr/engine/math"
)

// VulkanSwapchain presents to a desktop window surface. The simulator uses
// it to mirror one eye of the stereo images.
type VulkanSwapchain struct {
	Surface     vk.Surface
	ImageFormat vk.SurfaceFormat
	Extent      vk.Extent2D
	Handle      vk.Swapchain
	Images      []vk.Image

	pool            vk.CommandPool
	commandBuffer   *VulkanCommandBuffer
	imageAvailable  vk.Semaphore
	blitComplete    vk.Semaphore
	inFlight        *VulkanFence
	needsRecreation bool
}

type VulkanSwapchainSupportInfo struct {
	Capabilities vk.SurfaceCapabilities
	Formats      []vk.SurfaceFormat
	PresentModes []vk.PresentMode
}

func querySwapchainSupport(physicalDevice vk.PhysicalDevice, surface vk.Surface) (*VulkanSwapchainSupportInfo, error) {
	support := &VulkanSwapchainSupportInfo{}
	if err := VulkanCheck("vkGetPhysicalDeviceSurfaceCapabilities", vk.GetPhysicalDeviceSurfaceCapabilities(physicalDevice, surface, &support.Capabilities)); err != nil {
		return nil, err
	}
	support.Capabilities.Deref()
	support.Capabilities.CurrentExtent.Deref()
	support.Capabilities.MinImageExtent.Deref()
	support.Capabilities.MaxImageExtent.Deref()

	var formatCount uint32
	if err := VulkanCheck("vkGetPhysicalDeviceSurfaceFormats", vk.GetPhysicalDeviceSurfaceFormats(physicalDevice, surface, &formatCount, nil)); err != nil {
		return nil, err
	}
	if formatCount == 0 {
		return nil, fmt.Errorf("%w: surface has no formats", core.ErrDeviceUnsuitable)
	}
	support.Formats = make([]vk.SurfaceFormat, formatCount)
	if err := VulkanCheck("vkGetPhysicalDeviceSurfaceFormats", vk.GetPhysicalDeviceSurfaceFormats(physicalDevice, surface, &formatCount, support.Formats)); err != nil {
		return nil, err
	}
	for i := range support.Formats {
		support.Formats[i].Deref()
	}

	var modeCount uint32
	if err := VulkanCheck("vkGetPhysicalDeviceSurfacePresentModes", vk.GetPhysicalDeviceSurfacePresentModes(physicalDevice, surface, &modeCount, nil)); err != nil {
		return nil, err
	}
	support.PresentModes = make([]vk.PresentMode, modeCount)
	if modeCount > 0 {
		if err := VulkanCheck("vkGetPhysicalDeviceSurfacePresentModes", vk.GetPhysicalDeviceSurfacePresentModes(physicalDevice, surface, &modeCount, support.PresentModes)); err != nil {
			return nil, err
		}
	}
	return support, nil
}

// SwapchainCreate creates the presentation objects for surface. The graphics
// queue must be able to present to it.
func SwapchainCreate(context *VulkanContext, surface vk.Surface, width, height uint32) (*VulkanSwapchain, error) {
	var supported vk.Bool32
	vk.GetPhysicalDeviceSurfaceSupport(context.Device.PhysicalDevice, context.Device.GraphicsQueueIndex, surface, &supported)
	if supported == vk.False {
		return nil, fmt.Errorf("%w: graphics queue cannot present to the preview surface", core.ErrDeviceUnsuitable)
	}

	swapchain := &VulkanSwapchain{Surface: surface}

	poolCreateInfo := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		QueueFamilyIndex: context.Device.GraphicsQueueIndex,
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit),
	}
	var pool vk.CommandPool
	if err := VulkanCheck("vkCreateCommandPool", vk.CreateCommandPool(context.Device.LogicalDevice, &poolCreateInfo, context.Allocator, &pool)); err != nil {
		return nil, err
	}
	swapchain.pool = pool

	cb, err := NewVulkanCommandBuffer(context, pool, true)
	if err != nil {
		swapchain.SwapchainDestroy(context)
		return nil, err
	}
	swapchain.commandBuffer = cb

	semaphoreCreateInfo := vk.SemaphoreCreateInfo{SType: vk.StructureTypeSemaphoreCreateInfo}
	if err := VulkanCheck("vkCreateSemaphore", vk.CreateSemaphore(context.Device.LogicalDevice, &semaphoreCreateInfo, context.Allocator, &swapchain.imageAvailable)); err != nil {
		swapchain.SwapchainDestroy(context)
		return nil, err
	}
	if err := VulkanCheck("vkCreateSemaphore", vk.CreateSemaphore(context.Device.LogicalDevice, &semaphoreCreateInfo, context.Allocator, &swapchain.blitComplete)); err != nil {
		swapchain.SwapchainDestroy(context)
		return nil, err
	}
	if swapchain.inFlight, err = NewFence(context, true); err != nil {
		swapchain.SwapchainDestroy(context)
		return nil, err
	}

	if err := swapchain.create(context, width, height); err != nil {
		swapchain.SwapchainDestroy(context)
		return nil, err
	}
	return swapchain, nil
}

func chooseSurfaceFormat(formats []vk.SurfaceFormat) vk.SurfaceFormat {
	for _, format := range formats {
		if format.Format == vk.FormatB8g8r8a8Srgb && format.ColorSpace == vk.ColorSpaceSrgbNonlinear {
			return format
		}
	}
	return formats[0]
}

func choosePresentMode(modes []vk.PresentMode) vk.PresentMode {
	for _, mode := range modes {
		if mode == vk.PresentModeMailbox {
			return mode
		}
	}
	return vk.PresentModeFifo
}

func chooseExtent(capabilities vk.SurfaceCapabilities, width, height uint32) vk.Extent2D {
	if capabilities.CurrentExtent.Width != stdmath.MaxUint32 {
		return capabilities.CurrentExtent
	}
	min := capabilities.MinImageExtent
	max := capabilities.MaxImageExtent
	return vk.Extent2D{
		Width:  math.Clamp(width, min.Width, max.Width),
		Height: math.Clamp(height, min.Height, max.Height),
	}
}

func (vs *VulkanSwapchain) create(context *VulkanContext, width, height uint32) error {
	support, err := querySwapchainSupport(context.Device.PhysicalDevice, vs.Surface)
	if err != nil {
		return err
	}

	vs.ImageFormat = chooseSurfaceFormat(support.Formats)
	vs.Extent = chooseExtent(support.Capabilities, width, height)

	imageCount := support.Capabilities.MinImageCount + 1
	if support.Capabilities.MaxImageCount > 0 && imageCount > support.Capabilities.MaxImageCount {
		imageCount = support.Capabilities.MaxImageCount
	}

	swapchainCreateInfo := vk.SwapchainCreateInfo{
		SType:            vk.StructureTypeSwapchainCreateInfo,
		Surface:          vs.Surface,
		MinImageCount:    imageCount,
		ImageFormat:      vs.ImageFormat.Format,
		ImageColorSpace:  vs.ImageFormat.ColorSpace,
		ImageExtent:      vs.Extent,
		ImageArrayLayers: 1,
		ImageUsage:       vk.ImageUsageFlags(vk.ImageUsageTransferDstBit),
		ImageSharingMode: vk.SharingModeExclusive,
		PreTransform:     support.Capabilities.CurrentTransform,
		CompositeAlpha:   vk.CompositeAlphaOpaqueBit,
		PresentMode:      choosePresentMode(support.PresentModes),
		Clipped:          vk.True,
		OldSwapchain:     nil,
	}

	var handle vk.Swapchain
	if err := lockPool.SafeCall(SwapchainManagement, func() error {
		return VulkanCheck("vkCreateSwapchain", vk.CreateSwapchain(context.Device.LogicalDevice, &swapchainCreateInfo, context.Allocator, &handle))
	}); err != nil {
		core.LogError(err.Error())
		return err
	}
	vs.Handle = handle

	var count uint32
	if err := VulkanCheck("vkGetSwapchainImages", vk.GetSwapchainImages(context.Device.LogicalDevice, vs.Handle, &count, nil)); err != nil {
		return err
	}
	vs.Images = make([]vk.Image, count)
	if err := VulkanCheck("vkGetSwapchainImages", vk.GetSwapchainImages(context.Device.LogicalDevice, vs.Handle, &count, vs.Images)); err != nil {
		return err
	}

	core.LogInfo("Preview swapchain created: %d images of %dx%d.", count, vs.Extent.Width, vs.Extent.Height)
	return nil
}

func (vs *VulkanSwapchain) destroySwapchain(context *VulkanContext) {
	if vs.Handle == nil {
		return
	}
	_ = lockPool.SafeCall(SwapchainManagement, func() error {
		vk.DestroySwapchain(context.Device.LogicalDevice, vs.Handle, context.Allocator)
		return nil
	})
	vs.Handle = nil
	vs.Images = nil
}

// SwapchainRecreate rebuilds the swapchain at the new window size.
func (vs *VulkanSwapchain) SwapchainRecreate(context *VulkanContext, width, height uint32) error {
	if width == 0 || height == 0 {
		core.LogDebug("SwapchainRecreate called with a zero dimension. Booting.")
		return nil
	}
	if err := vs.inFlight.FenceWait(context, stdmath.MaxUint64); err != nil {
		return err
	}
	vs.destroySwapchain(context)
	vs.needsRecreation = false
	return vs.create(context, width, height)
}

// Resized marks the swapchain out of date. It is rebuilt on the next present.
func (vs *VulkanSwapchain) Resized() {
	vs.needsRecreation = true
}

func (vs *VulkanSwapchain) SwapchainDestroy(context *VulkanContext) {
	if vs.inFlight != nil {
		_ = vs.inFlight.FenceWait(context, stdmath.MaxUint64)
	}
	vs.destroySwapchain(context)
	device := context.Device.LogicalDevice
	if vs.inFlight != nil {
		vs.inFlight.FenceDestroy(context)
		vs.inFlight = nil
	}
	if vs.imageAvailable != vk.NullSemaphore {
		vk.DestroySemaphore(device, vs.imageAvailable, context.Allocator)
		vs.imageAvailable = vk.NullSemaphore
	}
	if vs.blitComplete != vk.NullSemaphore {
		vk.DestroySemaphore(device, vs.blitComplete, context.Allocator)
		vs.blitComplete = vk.NullSemaphore
	}
	if vs.commandBuffer != nil {
		vs.commandBuffer.Free(context, vs.pool)
		vs.commandBuffer = nil
	}
	if vs.pool != nil {
		vk.DestroyCommandPool(device, vs.pool, context.Allocator)
		vs.pool = nil
	}
}

// PresentLayer blits one array layer of src, which is in COLOR_ATTACHMENT
// layout, to the next window image and presents it. src returns to its
// original layout. The width and height of the window are used when the
// swapchain needs recreating. Returns false when the frame was skipped.
func (vs *VulkanSwapchain) PresentLayer(context *VulkanContext, src *VulkanImage, layer, width, height uint32) (bool, error) {
	if vs.needsRecreation {
		if err := vs.SwapchainRecreate(context, width, height); err != nil {
			return false, err
		}
		if vs.Handle == nil {
			return false, nil
		}
	}

	if err := vs.inFlight.FenceWait(context, stdmath.MaxUint64); err != nil {
		return false, err
	}

	var imageIndex uint32
	result := vk.AcquireNextImage(context.Device.LogicalDevice, vs.Handle, stdmath.MaxUint64, vs.imageAvailable, vk.NullFence, &imageIndex)
	if result == vk.ErrorOutOfDate {
		vs.needsRecreation = true
		return false, nil
	} else if result != vk.Success && result != vk.Suboptimal {
		err := VulkanCheck("vkAcquireNextImage", result)
		core.LogError("Failed to acquire swapchain image: %s", err)
		return false, err
	}

	if err := vs.inFlight.FenceReset(context); err != nil {
		return false, err
	}

	cb := vs.commandBuffer
	cb.Reset()
	if err := cb.Begin(true, false, false); err != nil {
		return false, err
	}
	vs.recordBlit(cb.Handle, src, layer, vs.Images[imageIndex])
	if err := cb.End(); err != nil {
		return false, err
	}

	submitInfo := vk.SubmitInfo{
		SType:                vk.StructureTypeSubmitInfo,
		WaitSemaphoreCount:   1,
		PWaitSemaphores:      []vk.Semaphore{vs.imageAvailable},
		PWaitDstStageMask:    []vk.PipelineStageFlags{vk.PipelineStageFlags(vk.PipelineStageTransferBit)},
		CommandBufferCount:   1,
		PCommandBuffers:      []vk.CommandBuffer{cb.Handle},
		SignalSemaphoreCount: 1,
		PSignalSemaphores:    []vk.Semaphore{vs.blitComplete},
	}
	presentInfo := vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{vs.blitComplete},
		SwapchainCount:     1,
		PSwapchains:        []vk.Swapchain{vs.Handle},
		PImageIndices:      []uint32{imageIndex},
	}

	var presentResult vk.Result
	err := lockPool.SafeQueueCall(context.Device.GraphicsQueueIndex, func() error {
		if err := VulkanCheck("vkQueueSubmit", vk.QueueSubmit(context.Device.GraphicsQueue, 1, []vk.SubmitInfo{submitInfo}, vs.inFlight.Handle)); err != nil {
			return err
		}
		presentResult = vk.QueuePresent(context.Device.GraphicsQueue, &presentInfo)
		return nil
	})
	if err != nil {
		core.LogError(err.Error())
		return false, err
	}
	cb.UpdateSubmitted()

	switch presentResult {
	case vk.Success:
	case vk.ErrorOutOfDate, vk.Suboptimal:
		// Window resized or moved to another display.
		vs.needsRecreation = true
	default:
		err := VulkanCheck("vkQueuePresent", presentResult)
		core.LogError("Failed to present swap chain image: %s", err)
		return false, err
	}
	return true, nil
}

func (vs *VulkanSwapchain) recordBlit(cmd vk.CommandBuffer, src *VulkanImage, layer uint32, dst vk.Image) {
	color := vk.ImageAspectFlags(vk.ImageAspectColorBit)
	srcRange := vk.ImageSubresourceRange{AspectMask: color, LevelCount: 1, BaseArrayLayer: layer, LayerCount: 1}
	dstRange := vk.ImageSubresourceRange{AspectMask: color, LevelCount: 1, LayerCount: 1}

	barrier := func(image vk.Image, subresource vk.ImageSubresourceRange, oldLayout, newLayout vk.ImageLayout, srcAccess, dstAccess vk.AccessFlagBits) vk.ImageMemoryBarrier {
		return vk.ImageMemoryBarrier{
			SType:               vk.StructureTypeImageMemoryBarrier,
			SrcAccessMask:       vk.AccessFlags(srcAccess),
			DstAccessMask:       vk.AccessFlags(dstAccess),
			OldLayout:           oldLayout,
			NewLayout:           newLayout,
			SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
			DstQueueFamilyIndex: vk.QueueFamilyIgnored,
			Image:               image,
			SubresourceRange:    subresource,
		}
	}

	vk.CmdPipelineBarrier(cmd,
		vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit), vk.PipelineStageFlags(vk.PipelineStageTransferBit),
		0, 0, nil, 0, nil, 2, []vk.ImageMemoryBarrier{
			barrier(src.Handle, srcRange, vk.ImageLayoutColorAttachmentOptimal, vk.ImageLayoutTransferSrcOptimal,
				vk.AccessColorAttachmentWriteBit, vk.AccessTransferReadBit),
			barrier(dst, dstRange, vk.ImageLayoutUndefined, vk.ImageLayoutTransferDstOptimal,
				0, vk.AccessTransferWriteBit),
		})

	blit := vk.ImageBlit{
		SrcSubresource: vk.ImageSubresourceLayers{AspectMask: color, BaseArrayLayer: layer, LayerCount: 1},
		SrcOffsets:     [2]vk.Offset3D{{}, {X: int32(src.Width), Y: int32(src.Height), Z: 1}},
		DstSubresource: vk.ImageSubresourceLayers{AspectMask: color, LayerCount: 1},
		DstOffsets:     [2]vk.Offset3D{{}, {X: int32(vs.Extent.Width), Y: int32(vs.Extent.Height), Z: 1}},
	}
	vk.CmdBlitImage(cmd,
		src.Handle, vk.ImageLayoutTransferSrcOptimal,
		dst, vk.ImageLayoutTransferDstOptimal,
		1, []vk.ImageBlit{blit}, vk.FilterLinear)

	vk.CmdPipelineBarrier(cmd,
		vk.PipelineStageFlags(vk.PipelineStageTransferBit),
		vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit)|vk.PipelineStageFlags(vk.PipelineStageBottomOfPipeBit),
		0, 0, nil, 0, nil, 2, []vk.ImageMemoryBarrier{
			barrier(src.Handle, srcRange, vk.ImageLayoutTransferSrcOptimal, vk.ImageLayoutColorAttachmentOptimal,
				vk.AccessTransferReadBit, vk.AccessColorAttachmentWriteBit),
			barrier(dst, dstRange, vk.ImageLayoutTransferDstOptimal, vk.ImageLayoutPresentSrc,
				vk.AccessTransferWriteBit, 0),
		})
}
