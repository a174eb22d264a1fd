package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/anima-xr/engine/core"
)

// VulkanRenderTargets holds the attachments of the forward pass. The output
// images belong to the XR runtime's swapchain, each with one layer per eye.
type VulkanRenderTargets struct {
	Width, Height uint32
	Format        vk.Format

	Color *VulkanImage
	Depth *VulkanImage

	OutputViews  []vk.ImageView
	Framebuffers []*VulkanFramebuffer
}

// CreateRenderTargets creates the main render pass for format and a
// framebuffer per swapchain image.
func CreateRenderTargets(context *VulkanContext, images []vk.Image, width, height uint32, format vk.Format) error {
	if len(images) == 0 {
		return fmt.Errorf("%w: swapchain has no images", core.ErrVulkanCall)
	}
	if context.RenderTargets != nil {
		DestroyRenderTargets(context)
	}

	renderpass, err := RenderpassCreate(context, format, width, height, 0, 0, 0, 1, 1, 0)
	if err != nil {
		return err
	}
	context.MainRenderpass = renderpass
	context.FramebufferWidth = width
	context.FramebufferHeight = height

	targets := &VulkanRenderTargets{Width: width, Height: height, Format: format}
	context.RenderTargets = targets

	targets.Color, err = ImageCreate(context, VulkanImageConfig{
		Width: width, Height: height,
		Layers:   2,
		Format:   format,
		Samples:  context.Device.SampleCount,
		Usage:    vk.ImageUsageColorAttachmentBit | vk.ImageUsageTransientAttachmentBit,
		Aspect:   vk.ImageAspectColorBit,
		ViewType: vk.ImageViewType2dArray,
	})
	if err != nil {
		DestroyRenderTargets(context)
		return err
	}

	targets.Depth, err = ImageCreate(context, VulkanImageConfig{
		Width: width, Height: height,
		Layers:   2,
		Format:   context.Device.DepthFormat,
		Samples:  context.Device.SampleCount,
		Usage:    vk.ImageUsageDepthStencilAttachmentBit | vk.ImageUsageTransientAttachmentBit,
		Aspect:   vk.ImageAspectDepthBit,
		ViewType: vk.ImageViewType2dArray,
	})
	if err != nil {
		DestroyRenderTargets(context)
		return err
	}

	for i, image := range images {
		view, err := ImageViewCreate(context, image, format, vk.ImageViewType2dArray, vk.ImageAspectColorBit, 0, 1, 0, 2)
		if err != nil {
			DestroyRenderTargets(context)
			return err
		}
		targets.OutputViews = append(targets.OutputViews, view)

		framebuffer, err := FramebufferCreate(context, renderpass, width, height,
			[]vk.ImageView{targets.Color.View, targets.Depth.View, view})
		if err != nil {
			DestroyRenderTargets(context)
			return fmt.Errorf("framebuffer %d: %w", i, err)
		}
		targets.Framebuffers = append(targets.Framebuffers, framebuffer)
	}

	core.LogInfo("Render targets created: %d images of %dx%d.", len(images), width, height)
	return nil
}

func DestroyRenderTargets(context *VulkanContext) {
	targets := context.RenderTargets
	if targets != nil {
		for _, fb := range targets.Framebuffers {
			fb.Destroy(context)
		}
		for _, view := range targets.OutputViews {
			vk.DestroyImageView(context.Device.LogicalDevice, view, context.Allocator)
		}
		if targets.Color != nil {
			targets.Color.Destroy(context)
		}
		if targets.Depth != nil {
			targets.Depth.Destroy(context)
		}
		context.RenderTargets = nil
	}
	if context.MainRenderpass != nil {
		context.MainRenderpass.RenderpassDestroy(context)
		context.MainRenderpass = nil
	}
}
